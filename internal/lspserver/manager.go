// Package lspserver implements the AgentScript language server on top of
// go.lsp.dev/protocol and go.lsp.dev/jsonrpc2.
//
// A Manager owns the open-documents map behind a reader-writer lock.
// Writes (didOpen/didChange/didClose) re-parse, re-validate, and rebuild
// the reference graph atomically while holding the write lock, then
// publish diagnostics. Reads take the read lock and operate on the
// snapshot captured under it; every request therefore sees a consistent
// (AST, graph) pair. The core stays single-threaded: all concurrency
// lives here.
package lspserver

import (
	"sync"

	"go.lsp.dev/uri"

	"agentscript/internal/ast"
	"agentscript/internal/config"
	"agentscript/internal/graph"
	"agentscript/internal/logging"
	"agentscript/internal/parser"
	"agentscript/internal/validate"
)

// documentState bundles everything derived from one version of a
// document's text. It is immutable once stored: an edit replaces the
// whole value, never mutates it.
type documentState struct {
	Version        int32
	Text           string
	AST            *ast.AgentFile
	ParseErrors    []parser.Error
	SemanticErrors []validate.SemanticError
	Graph          *graph.Graph
}

// Manager coordinates document state for the LSP server.
type Manager struct {
	mu        sync.RWMutex
	documents map[uri.URI]*documentState

	workspaceRoot string
	cfg           *config.Config
}

// NewManager creates a Manager for a workspace root.
func NewManager(workspaceRoot string, cfg *config.Config) *Manager {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logging.LSP("creating manager for workspace: %s", workspaceRoot)
	return &Manager{
		documents:     make(map[uri.URI]*documentState),
		workspaceRoot: workspaceRoot,
		cfg:           cfg,
	}
}

// analyze runs the whole single-document pipeline: partial parse,
// semantic validation, graph build. Pure function of text.
func analyze(text string, version int32) *documentState {
	st := &documentState{Version: version, Text: text}
	file, errs := parser.ParsePartial(text)
	st.AST = file
	st.ParseErrors = errs
	if file != nil {
		st.SemanticErrors = validate.Validate(file)
		st.Graph = graph.Build(file)
	}
	return st
}

// Open registers a document and computes its initial state.
func (m *Manager) Open(docURI uri.URI, text string, version int32) *documentState {
	m.mu.Lock()
	st := analyze(text, version)
	m.documents[docURI] = st
	m.mu.Unlock()
	logging.LSP("didOpen %s (version %d, %d parse errors)", docURI, version, len(st.ParseErrors))
	return st
}

// Change replaces a document's text (full sync) and recomputes its state.
func (m *Manager) Change(docURI uri.URI, text string, version int32) *documentState {
	m.mu.Lock()
	st := analyze(text, version)
	m.documents[docURI] = st
	m.mu.Unlock()
	logging.LSP("didChange %s (version %d, %d parse errors)", docURI, version, len(st.ParseErrors))
	return st
}

// Close releases a document's state.
func (m *Manager) Close(docURI uri.URI) {
	m.mu.Lock()
	delete(m.documents, docURI)
	m.mu.Unlock()
	logging.LSP("didClose %s", docURI)
}

// Snapshot returns the current state for a document, or nil if it is not
// open. The returned state is immutable and safe to use after the read
// lock is released.
func (m *Manager) Snapshot(docURI uri.URI) *documentState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.documents[docURI]
}

// OpenCount reports how many documents are currently tracked.
func (m *Manager) OpenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents)
}
