// Package render draws the reference graph as terminal-friendly text:
// one bordered box per topic listing its action defs and reasoning
// actions, followed by the routing edges as labelled arrows. It calls
// only the graph's public query surface and never touches the AST.
package render

import (
	"fmt"
	"strings"

	"agentscript/internal/graph"
)

var edgeLabels = map[graph.EdgeKind]string{
	graph.EdgeRoutes:        "routes",
	graph.EdgeTransitionsTo: "transitions to",
	graph.EdgeDelegates:     "delegates to",
	graph.EdgeInvokes:       "invokes",
	graph.EdgeReads:         "reads",
	graph.EdgeWrites:        "writes",
	graph.EdgeChains:        "chains",
	graph.EdgeEscalates:     "escalates",
}

// ASCII renders g as box-and-arrow text. Topics appear in declaration
// order and edges in insertion order, so output is deterministic for a
// given graph. Unreachable topics are marked [!] and members of a
// detected cycle [cycle].
func ASCII(g *graph.Graph) string {
	unreachable := map[string]bool{}
	for _, u := range g.FindUnreachableTopics() {
		unreachable[u.Name] = true
	}
	inCycle := map[string]bool{}
	for _, c := range g.FindCycles() {
		for _, name := range c.Path {
			inCycle[name] = true
		}
	}

	var b strings.Builder
	if g.StartAgentIdx >= 0 {
		writeBox(&b, "start_agent", nil)
	}
	for i, n := range g.Nodes {
		if n.Kind != graph.NodeTopic {
			continue
		}
		title := n.Name
		if unreachable[n.Name] {
			title += " [!]"
		}
		if inCycle[n.Name] {
			title += " [cycle]"
		}
		writeBox(&b, "topic "+title, memberLines(g, i, n.Name))
	}

	for _, e := range g.Edges {
		if !isRouting(e.Kind) {
			continue
		}
		fmt.Fprintf(&b, "%s --> %s  (%s)\n", nodeLabel(g.Nodes[e.From]), nodeLabel(g.Nodes[e.To]), edgeLabels[e.Kind])
	}
	return b.String()
}

func isRouting(k graph.EdgeKind) bool {
	return k == graph.EdgeRoutes || k == graph.EdgeTransitionsTo || k == graph.EdgeDelegates
}

// memberLines lists node idx's topic-owned action defs and reasoning
// actions in node-insertion order.
func memberLines(g *graph.Graph, _ int, topic string) []string {
	var lines []string
	for _, n := range g.Nodes {
		if n.Topic != topic {
			continue
		}
		switch n.Kind {
		case graph.NodeActionDef:
			lines = append(lines, "action "+n.Name)
		case graph.NodeReasoningAction:
			entry := "reason " + n.Name
			if n.Target != "" {
				entry += " -> " + n.Target
			}
			lines = append(lines, entry)
		}
	}
	return lines
}

func nodeLabel(n graph.RefNode) string {
	switch n.Kind {
	case graph.NodeStartAgent:
		return "start_agent"
	case graph.NodeTopic:
		return n.Name
	default:
		return n.Topic + "." + n.Name
	}
}

func writeBox(b *strings.Builder, title string, lines []string) {
	width := len(title)
	for _, l := range lines {
		if len(l) > width {
			width = len(l)
		}
	}
	border := "+" + strings.Repeat("-", width+2) + "+"
	b.WriteString(border + "\n")
	fmt.Fprintf(b, "| %-*s |\n", width, title)
	if len(lines) > 0 {
		b.WriteString("|" + strings.Repeat("-", width+2) + "|\n")
		for _, l := range lines {
			fmt.Fprintf(b, "| %-*s |\n", width, l)
		}
	}
	b.WriteString(border + "\n\n")
}
