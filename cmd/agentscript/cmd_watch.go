// Package main implements the agentscript CLI commands.
// This file contains the watch command: re-run check on every agent-file
// change in a directory.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"agentscript/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory and re-check agent files on change",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

// isAgentFile reports whether a path looks like an AgentScript source
// file (.agent or .as).
func isAgentFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".agent" || ext == ".as"
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory tree, not individual files, so newly created
	// agent files are picked up too.
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fmt.Printf("watching %s for agent file changes (ctrl-c to stop)\n", dir)
	logging.CLI("watch started on %s", dir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isAgentFile(event.Name) {
				continue
			}
			report, err := checkFile(event.Name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", event.Name, err)
				continue
			}
			if len(report.issues) == 0 {
				fmt.Printf("OK: %s\n", event.Name)
				continue
			}
			fmt.Printf("%s:\n", event.Name)
			for _, issue := range report.issues {
				fmt.Printf("  %s\n", issue)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-sigCh:
			logging.CLI("watch stopped")
			return nil
		}
	}
}
