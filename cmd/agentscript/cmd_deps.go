// Package main implements the agentscript CLI commands.
// This file contains the deps command: classify and print every external
// dependency an agent file declares.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"agentscript/internal/deps"
	"agentscript/pkg/agentscript"
)

var depsCmd = &cobra.Command{
	Use:   "deps <file>",
	Short: "Print the external-dependency report for an agent file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeps,
}

func runDeps(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	source := string(data)
	file, errs := agentscript.ParsePartial(source)
	if file == nil {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, agentscript.FormatParseError(source, e))
		}
		return fmt.Errorf("%s: parse failed", args[0])
	}

	report := agentscript.ExtractDependencies(file)
	if len(report.Flat) == 0 {
		fmt.Println("no external dependencies")
		return nil
	}

	types := make([]deps.Type, 0, len(report.ByType))
	for t := range report.ByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		fmt.Printf("%s:\n", t)
		for _, d := range report.ByType[t] {
			if d.UsedIn != "" {
				fmt.Printf("  %s (action %s in %s)\n", d.Reference, d.ActionName, d.UsedIn)
			} else {
				fmt.Printf("  %s\n", d.Reference)
			}
		}
	}
	return nil
}
