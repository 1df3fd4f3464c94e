// Package main implements the agentscript CLI commands.
// This file contains the fmt command: rewrite an agent file to canonical
// formatting (3-space indentation, canonical key order).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agentscript/internal/serialize"
	"agentscript/pkg/agentscript"
)

var fmtWrite bool

var fmtCmd = &cobra.Command{
	Use:   "fmt <file>",
	Short: "Reformat an agent file to canonical source",
	Args:  cobra.ExactArgs(1),
	RunE:  runFmt,
}

func init() {
	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "W", false, "Write the result back to the file instead of stdout")
}

func runFmt(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	source := string(data)

	// Strict parse: formatting a partial AST would silently drop the
	// unparsed regions of the file.
	file, errs := agentscript.Parse(source)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, agentscript.FormatParseError(source, e))
		}
		return fmt.Errorf("%s: cannot format a file with parse errors", args[0])
	}

	formatted := serialize.SerializeIndent(file, cfg.Serializer.IndentWidth)
	if fmtWrite {
		if formatted == source {
			return nil
		}
		return os.WriteFile(args[0], []byte(formatted), 0644)
	}
	fmt.Print(formatted)
	return nil
}
