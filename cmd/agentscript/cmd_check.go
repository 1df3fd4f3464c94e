// Package main implements the agentscript CLI commands.
// This file contains the check command: parse, validate, and
// graph-validate one or more agent files, glob-friendly, with an exit
// code reflecting the error count.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"agentscript/internal/logging"
	"agentscript/pkg/agentscript"
)

var checkCmd = &cobra.Command{
	Use:   "check <file...>",
	Short: "Check agent files: parse, semantic rules, reference graph",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

// fileReport collects every issue found in one file, so the parallel
// checkers can print results in a deterministic order afterwards.
type fileReport struct {
	path   string
	issues []string
	errors int
}

func runCheck(cmd *cobra.Command, args []string) error {
	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				matches = []string{pattern}
			} else {
				fmt.Printf("No files found matching: %s\n", pattern)
				continue
			}
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	// Files are checked concurrently; the core itself stays
	// single-threaded per document.
	var mu sync.Mutex
	reports := make(map[string]*fileReport, len(files))
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for _, file := range files {
		file := file
		g.Go(func() error {
			r, err := checkFile(file)
			if err != nil {
				return err
			}
			mu.Lock()
			reports[file] = r
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	totalErrors := 0
	for _, file := range files {
		r := reports[file]
		if r == nil {
			continue
		}
		totalErrors += r.errors
		if len(r.issues) == 0 {
			fmt.Printf("OK: %s\n", r.path)
			continue
		}
		fmt.Printf("%s:\n", r.path)
		for _, issue := range r.issues {
			fmt.Printf("  %s\n", issue)
		}
	}

	logging.CLI("check finished: %d files, %d errors", len(files), totalErrors)
	if totalErrors > 0 {
		os.Exit(1)
	}
	return nil
}

func checkFile(path string) (*fileReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	source := string(data)
	r := &fileReport{path: path}

	file, parseErrs := agentscript.ParsePartial(source)
	for _, e := range parseErrs {
		r.issues = append(r.issues, agentscript.FormatParseError(source, e))
		r.errors++
	}
	if file == nil {
		return r, nil
	}

	for _, e := range agentscript.ValidateAST(file) {
		r.issues = append(r.issues, e.Error())
		if e.Severity.String() == "error" {
			r.errors++
		}
	}

	result := agentscript.BuildGraph(file).Validate()
	for _, e := range result.Errors {
		r.issues = append(r.issues, "error: "+e.Error())
		r.errors++
	}
	for _, w := range result.Warnings {
		r.issues = append(r.issues, "warning: "+w.Error())
	}
	return r, nil
}
