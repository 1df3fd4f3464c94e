// Package main implements the agentscript CLI commands.
// This file contains the lsp command: run the language server over
// stdin/stdout for editor integration.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"agentscript/internal/logging"
	"agentscript/internal/lspserver"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Start the AgentScript language server (for IDE integration)",
	Long: `Starts the Language Server Protocol server for AgentScript files.

This command is meant to be invoked by editors (VSCode, Neovim, Zed,
etc.) for completion, hover, go-to-definition, references, rename,
document symbols, formatting, folding, semantic tokens, and diagnostics.

The server communicates via JSON-RPC over stdin/stdout following the
LSP specification.`,
	RunE: runLSP,
}

func runLSP(cmd *cobra.Command, args []string) error {
	ws := workspace
	if ws == "" {
		ws, _ = os.Getwd()
	} else if abs, err := filepath.Abs(ws); err == nil {
		ws = abs
	}

	logging.LSP("starting language server for workspace: %s", ws)
	manager := lspserver.NewManager(ws, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logging.LSP("received shutdown signal, stopping language server")
		cancel()
	}()

	if err := manager.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Get(logging.CategoryLSP).Error("language server error: %v", err)
		return err
	}
	logging.LSP("language server stopped")
	return nil
}
