// Package main implements the agentscript CLI commands.
// This file contains the parse command: parse one file and print the AST
// (or the error list) as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agentscript/internal/logging"
	"agentscript/pkg/agentscript"
)

var parsePartial bool

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse an agent file and print the AST as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parsePartial, "partial", false, "Recover at top-level block boundaries and print the partial AST alongside errors")
}

func runParse(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	source := string(data)
	logging.CLI("parse %s (%d bytes)", args[0], len(source))

	parse := agentscript.Parse
	if parsePartial {
		parse = agentscript.ParsePartial
	}
	file, errs := parse(source)

	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, agentscript.FormatParseError(source, e))
		}
		if file == nil || !parsePartial {
			os.Exit(1)
		}
	}

	out, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode AST: %w", err)
	}
	fmt.Println(string(out))
	if len(errs) > 0 {
		os.Exit(1)
	}
	return nil
}
