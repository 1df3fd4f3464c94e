// Package main implements the agentscript CLI - parser, analyzer, and
// language server for AgentScript agent definitions.
//
// This file serves as the entry point and command registration hub. The
// command implementations are split across multiple cmd_*.go files:
//
// # File Index
//
//   - main.go       - Entry point, rootCmd, global flags, init()
//   - cmd_parse.go  - parseCmd: parse one file, print AST or errors as JSON
//   - cmd_check.go  - checkCmd: parse + validate + graph-validate, glob-friendly
//   - cmd_graph.go  - graphCmd: build and print the reference graph
//   - cmd_deps.go   - depsCmd: print the dependency report
//   - cmd_fmt.go    - fmtCmd: reformat to canonical source
//   - cmd_lsp.go    - lspCmd: run the language server over stdio
//   - cmd_watch.go  - watchCmd: re-check on file changes
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"agentscript/internal/config"
	"agentscript/internal/logging"
)

var (
	verbose   bool
	workspace string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "agentscript",
	Short: "AgentScript parser, reference-graph analyzer, and language server",
	Long: `agentscript is the toolchain for AgentScript agent definitions.

It parses agent files into a span-annotated AST, validates them,
builds a typed reference graph (transitions, invocations, variable
reads/writes), and serves IDE features over the Language Server
Protocol.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		cfg, err = config.Load(config.Path(ws))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			cfg.Logging.DebugMode = true
			cfg.Logging.Level = "debug"
		}

		if err := logging.Initialize(ws, cfg.Logging.DebugMode, cfg.Logging.Categories, cfg.Logging.Level, cfg.Logging.JSONFormat); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	rootCmd.AddCommand(
		parseCmd,
		checkCmd,
		graphCmd,
		depsCmd,
		fmtCmd,
		lspCmd,
		watchCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
