package lspserver

import (
	"go.lsp.dev/protocol"

	"agentscript/internal/ast"
	"agentscript/internal/graph"
	"agentscript/internal/validate"
)

// spanToRange converts a byte span into an LSP range against the given
// source text. LSP positions are zero-based; OffsetToLineCol is one-based.
func spanToRange(source string, span ast.Span) protocol.Range {
	start := ast.OffsetToLineCol(source, span.Start)
	end := ast.OffsetToLineCol(source, span.End)
	return protocol.Range{
		Start: protocol.Position{Line: uint32(start.Line - 1), Character: uint32(start.Column - 1)},
		End:   protocol.Position{Line: uint32(end.Line - 1), Character: uint32(end.Column - 1)},
	}
}

// diagnostics merges the three issue streams of one document state into a
// single list: parse errors, semantic errors, and graph validation
// issues, with Error/Warning severity mapping.
func diagnostics(st *documentState) []protocol.Diagnostic {
	diags := make([]protocol.Diagnostic, 0, len(st.ParseErrors)+len(st.SemanticErrors))

	for _, e := range st.ParseErrors {
		diags = append(diags, protocol.Diagnostic{
			Range:    spanToRange(st.Text, e.Span),
			Severity: protocol.DiagnosticSeverityError,
			Source:   "agentscript",
			Message:  e.Message,
		})
	}

	for _, e := range st.SemanticErrors {
		sev := protocol.DiagnosticSeverityError
		if e.Severity == validate.SeverityWarning {
			sev = protocol.DiagnosticSeverityWarning
		}
		span := ast.Span{}
		if e.Span != nil {
			span = *e.Span
		}
		msg := e.Message
		if e.Hint != "" {
			msg += " (" + e.Hint + ")"
		}
		diags = append(diags, protocol.Diagnostic{
			Range:    spanToRange(st.Text, span),
			Severity: sev,
			Source:   "agentscript",
			Message:  msg,
		})
	}

	if st.Graph != nil {
		diags = append(diags, graphDiagnostics(st)...)
	}
	return diags
}

func graphDiagnostics(st *documentState) []protocol.Diagnostic {
	var diags []protocol.Diagnostic

	for _, u := range st.Graph.Unresolved {
		diags = append(diags, protocol.Diagnostic{
			Range:    spanToRange(st.Text, u.Span),
			Severity: protocol.DiagnosticSeverityError,
			Source:   "agentscript",
			Message:  "unresolved reference " + u.Reference + " (in " + u.Context + ")",
		})
	}

	for _, c := range st.Graph.FindCycles() {
		span := cycleSpan(st.Graph, c)
		msg := "topic transition cycle: "
		for i, name := range c.Path {
			if i > 0 {
				msg += " -> "
			}
			msg += name
		}
		diags = append(diags, protocol.Diagnostic{
			Range:    spanToRange(st.Text, span),
			Severity: protocol.DiagnosticSeverityError,
			Source:   "agentscript",
			Message:  msg,
		})
	}

	for _, u := range st.Graph.FindUnreachableTopics() {
		diags = append(diags, protocol.Diagnostic{
			Range:    spanToRange(st.Text, topicSpan(st.Graph, u.Name)),
			Severity: protocol.DiagnosticSeverityWarning,
			Source:   "agentscript",
			Message:  "topic '" + u.Name + "' is unreachable from start_agent",
		})
	}

	for _, u := range st.Graph.FindUnusedActions() {
		diags = append(diags, protocol.Diagnostic{
			Range:    spanToRange(st.Text, actionSpan(st.Graph, u.Topic, u.Name)),
			Severity: protocol.DiagnosticSeverityWarning,
			Source:   "agentscript",
			Message:  "action '" + u.Name + "' in '" + u.Topic + "' is never invoked",
		})
	}

	for _, u := range st.Graph.FindUnusedVariables() {
		diags = append(diags, protocol.Diagnostic{
			Range:    spanToRange(st.Text, variableSpan(st.Graph, u.Name)),
			Severity: protocol.DiagnosticSeverityWarning,
			Source:   "agentscript",
			Message:  "variable '" + u.Name + "' is never read",
		})
	}
	return diags
}

func cycleSpan(g *graph.Graph, c graph.CycleDetected) ast.Span {
	if len(c.Path) > 0 {
		return topicSpan(g, c.Path[0])
	}
	return ast.Span{}
}

func topicSpan(g *graph.Graph, name string) ast.Span {
	if idx, ok := g.TopicIdx[name]; ok {
		return g.Nodes[idx].Span
	}
	return ast.Span{}
}

func actionSpan(g *graph.Graph, topic, name string) ast.Span {
	if idx, ok := g.ActionIdx[[2]string{topic, name}]; ok {
		return g.Nodes[idx].Span
	}
	return ast.Span{}
}

func variableSpan(g *graph.Graph, name string) ast.Span {
	if idx, ok := g.VariableIdx[name]; ok {
		return g.Nodes[idx].Span
	}
	return ast.Span{}
}
