package lspserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"agentscript/internal/logging"
)

// MethodGetGraph, MethodGetDependencies, and MethodSimulate are the
// custom requests outside go.lsp.dev/protocol's typed surface.
const (
	MethodGetGraph        = "agentscript/getGraph"
	MethodGetDependencies = "agentscript/getDependencies"
	MethodSimulate        = "agentscript/simulate"
)

// stdioStream glues stdin/stdout into the single ReadWriteCloser
// jsonrpc2.NewStream expects.
type stdioStream struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (s stdioStream) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdioStream) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s stdioStream) Close() error {
	s.in.Close()
	return s.out.Close()
}

// ServeStdio runs the language server over stdin/stdout until the client
// disconnects or ctx is cancelled.
func (m *Manager) ServeStdio(ctx context.Context) error {
	return m.Serve(ctx, stdioStream{in: os.Stdin, out: os.Stdout})
}

// Serve runs the language server over an arbitrary transport.
func (m *Manager) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	conn.Go(ctx, m.handle(conn))
	logging.LSP("server listening")

	select {
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
		return ctx.Err()
	case <-conn.Done():
		return conn.Err()
	}
}

// publishDiagnostics pushes the merged diagnostic list for one document.
// Called after every write request (§7).
func (m *Manager) publishDiagnostics(ctx context.Context, conn jsonrpc2.Conn, docURI uri.URI, st *documentState) {
	params := &protocol.PublishDiagnosticsParams{
		URI:         docURI,
		Version:     uint32(st.Version),
		Diagnostics: diagnostics(st),
	}
	if err := conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, params); err != nil {
		logging.Get(logging.CategoryLSP).Error("publish diagnostics for %s: %v", docURI, err)
	}
}

func (m *Manager) capabilities() protocol.ServerCapabilities {
	caps := protocol.ServerCapabilities{
		TextDocumentSync: protocol.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    protocol.TextDocumentSyncKindFull,
		},
		CompletionProvider: &protocol.CompletionOptions{
			TriggerCharacters: []string{"@", ".", ":", " "},
		},
		HoverProvider:              true,
		DefinitionProvider:         true,
		ReferencesProvider:         true,
		DocumentSymbolProvider:     true,
		RenameProvider:             true,
		FoldingRangeProvider:       true,
		DocumentFormattingProvider: m.cfg.LSP.Formatting,
	}
	if m.cfg.LSP.CodeActions {
		caps.CodeActionProvider = true
	}
	if m.cfg.LSP.SemanticTokens {
		caps.SemanticTokensProvider = map[string]interface{}{
			"legend": map[string]interface{}{
				"tokenTypes":     semanticTokenTypes,
				"tokenModifiers": []string{},
			},
			"full": true,
		}
	}
	return caps
}

// handle builds the jsonrpc2 dispatch table. Write methods recompute
// document state then publish diagnostics; read methods answer from the
// snapshot. Requests against unopened documents answer null rather than
// erroring, since clients race didOpen against early requests.
func (m *Manager) handle(conn jsonrpc2.Conn) jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case protocol.MethodInitialize:
			return reply(ctx, &protocol.InitializeResult{
				Capabilities: m.capabilities(),
				ServerInfo: &protocol.ServerInfo{
					Name:    "agentscript-lsp",
					Version: "0.1.0",
				},
			}, nil)

		case protocol.MethodInitialized:
			return reply(ctx, nil, nil)

		case protocol.MethodShutdown:
			return reply(ctx, nil, nil)

		case protocol.MethodExit:
			conn.Close()
			return nil

		case protocol.MethodTextDocumentDidOpen:
			var params protocol.DidOpenTextDocumentParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			st := m.Open(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
			m.publishDiagnostics(ctx, conn, params.TextDocument.URI, st)
			return reply(ctx, nil, nil)

		case protocol.MethodTextDocumentDidChange:
			var params protocol.DidChangeTextDocumentParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			if len(params.ContentChanges) == 0 {
				return reply(ctx, nil, nil)
			}
			// Full sync: the last change carries the whole document.
			text := params.ContentChanges[len(params.ContentChanges)-1].Text
			st := m.Change(params.TextDocument.URI, text, params.TextDocument.Version)
			m.publishDiagnostics(ctx, conn, params.TextDocument.URI, st)
			return reply(ctx, nil, nil)

		case protocol.MethodTextDocumentDidClose:
			var params protocol.DidCloseTextDocumentParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			m.Close(params.TextDocument.URI)
			m.publishDiagnostics(ctx, conn, params.TextDocument.URI, &documentState{})
			return reply(ctx, nil, nil)

		case protocol.MethodTextDocumentCompletion:
			var params protocol.CompletionParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			st := m.Snapshot(params.TextDocument.URI)
			if st == nil {
				return reply(ctx, nil, nil)
			}
			return reply(ctx, m.completion(st, params.Position), nil)

		case protocol.MethodTextDocumentHover:
			var params protocol.HoverParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			st := m.Snapshot(params.TextDocument.URI)
			if st == nil {
				return reply(ctx, nil, nil)
			}
			return reply(ctx, m.hover(st, params.Position), nil)

		case protocol.MethodTextDocumentDefinition:
			var params protocol.DefinitionParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			st := m.Snapshot(params.TextDocument.URI)
			if st == nil {
				return reply(ctx, nil, nil)
			}
			return reply(ctx, m.definition(st, params.TextDocument.URI, params.Position), nil)

		case protocol.MethodTextDocumentReferences:
			var params protocol.ReferenceParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			st := m.Snapshot(params.TextDocument.URI)
			if st == nil {
				return reply(ctx, nil, nil)
			}
			return reply(ctx, m.references(st, params.TextDocument.URI, params.Position), nil)

		case protocol.MethodTextDocumentRename:
			var params protocol.RenameParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			st := m.Snapshot(params.TextDocument.URI)
			if st == nil {
				return reply(ctx, nil, nil)
			}
			return reply(ctx, m.rename(st, params.TextDocument.URI, params.Position, params.NewName), nil)

		case protocol.MethodTextDocumentDocumentSymbol:
			var params protocol.DocumentSymbolParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			st := m.Snapshot(params.TextDocument.URI)
			if st == nil {
				return reply(ctx, nil, nil)
			}
			return reply(ctx, m.documentSymbols(st), nil)

		case protocol.MethodTextDocumentFormatting:
			var params protocol.DocumentFormattingParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			st := m.Snapshot(params.TextDocument.URI)
			if st == nil || !m.cfg.LSP.Formatting {
				return reply(ctx, nil, nil)
			}
			return reply(ctx, m.formatting(st), nil)

		case protocol.MethodTextDocumentFoldingRange:
			var params protocol.FoldingRangeParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			st := m.Snapshot(params.TextDocument.URI)
			if st == nil {
				return reply(ctx, nil, nil)
			}
			return reply(ctx, m.foldingRanges(st), nil)

		case protocol.MethodSemanticTokensFull:
			var params protocol.SemanticTokensParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			st := m.Snapshot(params.TextDocument.URI)
			if st == nil || !m.cfg.LSP.SemanticTokens {
				return reply(ctx, nil, nil)
			}
			return reply(ctx, m.semanticTokens(st), nil)

		case protocol.MethodTextDocumentCodeAction:
			var params protocol.CodeActionParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			st := m.Snapshot(params.TextDocument.URI)
			if st == nil || !m.cfg.LSP.CodeActions {
				return reply(ctx, nil, nil)
			}
			return reply(ctx, m.codeActions(st, params.TextDocument.URI, params.Context.Diagnostics), nil)

		case MethodGetGraph, MethodGetDependencies, MethodSimulate:
			var params customParams
			if err := unmarshalParams(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			docURI := uri.URI(params.URI)
			st := m.Snapshot(docURI)
			if st == nil && params.MockData != "" {
				st = analyze(params.MockData, 0)
			}
			if st == nil {
				return reply(ctx, nil, fmt.Errorf("document not open: %s", params.URI))
			}
			switch req.Method() {
			case MethodGetGraph:
				return reply(ctx, m.getGraph(st), nil)
			case MethodGetDependencies:
				return reply(ctx, m.getDependencies(st), nil)
			default:
				return reply(ctx, m.simulate(st), nil)
			}

		default:
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}
	}
}

func unmarshalParams(req jsonrpc2.Request, v interface{}) error {
	if len(req.Params()) == 0 {
		return nil
	}
	return json.Unmarshal(req.Params(), v)
}

func replyParseError(ctx context.Context, reply jsonrpc2.Replier, err error) error {
	return reply(ctx, nil, fmt.Errorf("%w: %s", jsonrpc2.ErrParse, err))
}
