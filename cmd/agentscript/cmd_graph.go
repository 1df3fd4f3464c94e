// Package main implements the agentscript CLI commands.
// This file contains the graph command: build the reference graph and
// print it as ASCII boxes (default) or JSON.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agentscript/internal/graph"
	"agentscript/internal/render"
	"agentscript/pkg/agentscript"
)

var graphJSON bool

var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Build and print the reference graph",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().BoolVar(&graphJSON, "json", false, "Print the serialized graph instead of ASCII boxes")
}

// graphStats is the JSON shape of the --json output.
type graphStats struct {
	Topics           int            `json:"topics"`
	ActionDefs       int            `json:"action_defs"`
	ReasoningActions int            `json:"reasoning_actions"`
	Variables        int            `json:"variables"`
	Connections      int            `json:"connections"`
	HasStartAgent    bool           `json:"has_start_agent"`
	EdgeCounts       map[string]int `json:"edge_counts"`
	TopicNames       []string       `json:"topic_names"`
	VariableNames    []string       `json:"variable_names"`
	ExecutionOrder   []string       `json:"execution_order,omitempty"`
	Unresolved       []string       `json:"unresolved,omitempty"`
}

var edgeKindJSONNames = map[graph.EdgeKind]string{
	graph.EdgeRoutes:        "routes",
	graph.EdgeTransitionsTo: "transitions_to",
	graph.EdgeDelegates:     "delegates",
	graph.EdgeInvokes:       "invokes",
	graph.EdgeReads:         "reads",
	graph.EdgeWrites:        "writes",
	graph.EdgeChains:        "chains",
	graph.EdgeEscalates:     "escalates",
}

func runGraph(cmd *cobra.Command, args []string) error {
	g, err := buildGraphFromFile(args[0])
	if err != nil {
		return err
	}

	if !graphJSON {
		fmt.Print(render.ASCII(g))
		return nil
	}

	s := g.Stats()
	out := graphStats{
		Topics:           s.Topics,
		ActionDefs:       s.ActionDefs,
		ReasoningActions: s.ReasoningActions,
		Variables:        s.Variables,
		Connections:      s.Connections,
		HasStartAgent:    s.HasStartAgent,
		EdgeCounts:       map[string]int{},
	}
	for kind, n := range s.EdgeCounts {
		out.EdgeCounts[edgeKindJSONNames[kind]] = n
	}
	out.TopicNames = g.TopicNames()
	out.VariableNames = g.VariableNames()
	if order, ok := g.TopologicalOrder(); ok {
		out.ExecutionOrder = order
	}
	for _, u := range g.Unresolved {
		out.Unresolved = append(out.Unresolved, u.Reference+" (in "+u.Context+")")
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func buildGraphFromFile(path string) (*agentscript.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	source := string(data)
	file, errs := agentscript.ParsePartial(source)
	if file == nil {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, agentscript.FormatParseError(source, e))
		}
		return nil, fmt.Errorf("%s: parse failed", path)
	}
	return agentscript.BuildGraph(file), nil
}
