package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetGlobals(t *testing.T) {
	t.Helper()
	CloseAll()
	logsDir = ""
	workspace = ""
	config = loggingConfig{}
	logLevel = LevelInfo
}

func TestInitializeNoopWhenDebugDisabled(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	if err := Initialize(dir, false, nil, "info", false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".agentscript", "logs")); !os.IsNotExist(err) {
		t.Fatalf("expected no logs directory in production mode, got err=%v", err)
	}
}

func TestInitializeCreatesLogsDirWhenDebugEnabled(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	if err := Initialize(dir, true, nil, "debug", false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".agentscript", "logs")); err != nil {
		t.Fatalf("expected logs directory to exist: %v", err)
	}
	CloseAll()
}

func TestGetWritesToCategoryFile(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	if err := Initialize(dir, true, nil, "debug", false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	l := Get(CategoryParser)
	l.Info("parsing %s", "config block")

	entries, err := os.ReadDir(filepath.Join(dir, ".agentscript", "logs"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var found bool
	for _, e := range entries {
		if strings.Contains(e.Name(), "parser") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a parser log file, got entries %+v", entries)
	}
}

func TestCategoryDisabledIsNoop(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	if err := Initialize(dir, true, map[string]bool{"graph": false}, "debug", false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	l := Get(CategoryGraph)
	if l.logger != nil {
		t.Fatalf("expected a no-op logger for a disabled category")
	}
}

func TestJSONFormat(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	if err := Initialize(dir, true, nil, "debug", true); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	l := Get(CategoryLSP)
	l.StructuredLog("INFO", "diagnostics published", map[string]interface{}{"count": 3})
}

func TestErrorAlwaysLogsRegardlessOfLevel(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	if err := Initialize(dir, true, nil, "error", false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	l := Get(CategoryValidate)
	l.Debug("should be suppressed")
	l.Error("semantic error recorded")
}
