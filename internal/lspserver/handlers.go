package lspserver

import (
	"fmt"
	"sort"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"agentscript/internal/ast"
	"agentscript/internal/graph"
	"agentscript/internal/lexer"
	"agentscript/internal/serialize"
)

// positionToOffset converts a zero-based LSP position to a byte offset.
func positionToOffset(text string, pos protocol.Position) int {
	line := uint32(0)
	offset := 0
	for line < pos.Line && offset < len(text) {
		if text[offset] == '\n' {
			line++
		}
		offset++
	}
	offset += int(pos.Character)
	if offset > len(text) {
		offset = len(text)
	}
	return offset
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// wordAt returns the identifier under offset and its span.
func wordAt(text string, offset int) (string, ast.Span) {
	if offset >= len(text) {
		offset = len(text) - 1
	}
	if offset < 0 || !isWordByte(text[offset]) {
		return "", ast.Span{}
	}
	start := offset
	for start > 0 && isWordByte(text[start-1]) {
		start--
	}
	end := offset
	for end < len(text) && isWordByte(text[end]) {
		end++
	}
	return text[start:end], ast.Span{Start: start, End: end}
}

// namespaceBefore reports the `@namespace.` prefix immediately preceding
// a word span, if any ("" otherwise).
func namespaceBefore(text string, wordStart int) string {
	i := wordStart
	if i == 0 || text[i-1] != '.' {
		return ""
	}
	end := i - 1
	start := end
	for start > 0 && isWordByte(text[start-1]) {
		start--
	}
	if start == 0 || text[start-1] != '@' {
		return ""
	}
	return text[start:end]
}

// completionKeywords are the block and entry keywords offered as bare
// completions.
var completionKeywords = []string{
	"config", "variables", "system", "topic", "start_agent", "actions",
	"inputs", "outputs", "target", "reasoning", "instructions",
	"before_reasoning", "after_reasoning", "messages", "welcome", "error",
	"connection", "knowledge", "language", "mutable", "linked",
	"description", "source", "label", "is_required", "is_displayable",
	"require_user_confirmation", "include_in_progress_indicator",
	"progress_indicator_message", "if", "else", "run", "with", "set", "to",
	"transition", "available", "when",
}

// completion computes context-sensitive completion items: after `@` the
// reference namespaces, after `@topic.`/`@variables.`/`@actions.` the
// matching definition names, otherwise the keyword set.
func (m *Manager) completion(st *documentState, pos protocol.Position) *protocol.CompletionList {
	offset := positionToOffset(st.Text, pos)
	items := []protocol.CompletionItem{}

	atRef := offset > 0 && st.Text[offset-1] == '@'
	ns := ""
	if offset > 0 && st.Text[offset-1] == '.' {
		ns = namespaceBefore(st.Text, offset)
	}

	switch {
	case atRef:
		for _, n := range []string{"variables", "actions", "outputs", "topic", "utils", "context", "connection"} {
			items = append(items, protocol.CompletionItem{Label: n, Kind: protocol.CompletionItemKindModule})
		}
	case ns == "topic" && st.Graph != nil:
		for _, name := range sortedKeys(st.Graph.TopicIdx) {
			items = append(items, protocol.CompletionItem{Label: name, Kind: protocol.CompletionItemKindClass})
		}
	case ns == "variables" && st.Graph != nil:
		for _, name := range sortedKeys(st.Graph.VariableIdx) {
			items = append(items, protocol.CompletionItem{Label: name, Kind: protocol.CompletionItemKindVariable})
		}
	case ns == "actions" && st.Graph != nil:
		seen := map[string]bool{}
		for key := range st.Graph.ActionIdx {
			if !seen[key[1]] {
				seen[key[1]] = true
				items = append(items, protocol.CompletionItem{Label: key[1], Kind: protocol.CompletionItemKindFunction})
			}
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	case ns == "utils":
		for _, n := range []string{"transition", "escalate", "setVariables"} {
			items = append(items, protocol.CompletionItem{Label: n, Kind: protocol.CompletionItemKindFunction})
		}
	default:
		for _, kw := range completionKeywords {
			items = append(items, protocol.CompletionItem{Label: kw, Kind: protocol.CompletionItemKindKeyword})
		}
	}

	return &protocol.CompletionList{IsIncomplete: false, Items: items}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// definitionNode resolves the word under the cursor to a graph node,
// using the `@namespace.` prefix (when present) to pick the right index.
func definitionNode(st *documentState, offset int) (graph.RefNode, bool) {
	if st.Graph == nil {
		return graph.RefNode{}, false
	}
	word, span := wordAt(st.Text, offset)
	if word == "" {
		return graph.RefNode{}, false
	}
	ns := namespaceBefore(st.Text, span.Start)

	g := st.Graph
	if ns == "" || ns == "topic" {
		if idx, ok := g.TopicIdx[word]; ok {
			return g.Nodes[idx], true
		}
	}
	if ns == "" || ns == "variables" {
		if idx, ok := g.VariableIdx[word]; ok {
			return g.Nodes[idx], true
		}
	}
	if ns == "" || ns == "actions" {
		for key, idx := range g.ActionIdx {
			if key[1] == word {
				return g.Nodes[idx], true
			}
		}
	}
	if idx, ok := g.ConnectionIdx[word]; ok {
		return g.Nodes[idx], true
	}
	return graph.RefNode{}, false
}

func (m *Manager) definition(st *documentState, docURI uri.URI, pos protocol.Position) []protocol.Location {
	node, ok := definitionNode(st, positionToOffset(st.Text, pos))
	if !ok {
		return nil
	}
	return []protocol.Location{{URI: docURI, Range: spanToRange(st.Text, node.Span)}}
}

func (m *Manager) hover(st *documentState, pos protocol.Position) *protocol.Hover {
	offset := positionToOffset(st.Text, pos)
	node, ok := definitionNode(st, offset)
	if !ok {
		return nil
	}

	var value string
	switch node.Kind {
	case graph.NodeTopic:
		in := len(st.Graph.IncomingTransitions(st.Graph.TopicIdx[node.Name]))
		out := len(st.Graph.OutgoingTransitions(st.Graph.TopicIdx[node.Name]))
		value = fmt.Sprintf("**topic %s**\n\n%d incoming, %d outgoing transitions", node.Name, in, out)
	case graph.NodeVariable:
		kind := "linked"
		if node.Mutable {
			kind = "mutable"
		}
		idx := st.Graph.VariableIdx[node.Name]
		value = fmt.Sprintf("**variable %s** (%s)\n\n%d readers, %d writers", node.Name,
			kind, len(st.Graph.VariableReaders(idx)), len(st.Graph.VariableWriters(idx)))
	case graph.NodeActionDef:
		idx := st.Graph.ActionIdx[[2]string{node.Topic, node.Name}]
		value = fmt.Sprintf("**action %s** (topic %s)\n\n%d invokers", node.Name, node.Topic, len(st.Graph.ActionInvokers(idx)))
	case graph.NodeConnection:
		value = fmt.Sprintf("**connection %s**", node.Name)
	default:
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: value},
	}
}

// wordOccurrences scans the text for whole-word matches of name.
func wordOccurrences(text, name string) []ast.Span {
	var spans []ast.Span
	for i := 0; i+len(name) <= len(text); {
		j := strings.Index(text[i:], name)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(name)
		before := start == 0 || !isWordByte(text[start-1])
		after := end >= len(text) || !isWordByte(text[end])
		if before && after {
			spans = append(spans, ast.Span{Start: start, End: end})
		}
		i = start + 1
	}
	return spans
}

func (m *Manager) references(st *documentState, docURI uri.URI, pos protocol.Position) []protocol.Location {
	word, _ := wordAt(st.Text, positionToOffset(st.Text, pos))
	if word == "" {
		return nil
	}
	var locs []protocol.Location
	for _, span := range wordOccurrences(st.Text, word) {
		locs = append(locs, protocol.Location{URI: docURI, Range: spanToRange(st.Text, span)})
	}
	return locs
}

func (m *Manager) rename(st *documentState, docURI uri.URI, pos protocol.Position, newName string) *protocol.WorkspaceEdit {
	word, _ := wordAt(st.Text, positionToOffset(st.Text, pos))
	if word == "" {
		return nil
	}
	var edits []protocol.TextEdit
	for _, span := range wordOccurrences(st.Text, word) {
		edits = append(edits, protocol.TextEdit{Range: spanToRange(st.Text, span), NewText: newName})
	}
	return &protocol.WorkspaceEdit{Changes: map[uri.URI][]protocol.TextEdit{docURI: edits}}
}

func (m *Manager) documentSymbols(st *documentState) []protocol.DocumentSymbol {
	if st.AST == nil {
		return nil
	}
	var syms []protocol.DocumentSymbol
	file := st.AST

	if file.Config != nil {
		syms = append(syms, protocol.DocumentSymbol{
			Name:           "config",
			Kind:           protocol.SymbolKindNamespace,
			Range:          spanToRange(st.Text, file.Config.Span),
			SelectionRange: spanToRange(st.Text, file.Config.Node.AgentName.Span),
		})
	}
	for _, v := range file.Variables {
		syms = append(syms, protocol.DocumentSymbol{
			Name:           v.Node.Name.Node,
			Detail:         v.Node.Kind.String() + " " + serialize.TypeString(v.Node.Type),
			Kind:           protocol.SymbolKindVariable,
			Range:          spanToRange(st.Text, v.Span),
			SelectionRange: spanToRange(st.Text, v.Node.Name.Span),
		})
	}
	for _, c := range file.Connections {
		syms = append(syms, protocol.DocumentSymbol{
			Name:           c.Node.Name.Node,
			Kind:           protocol.SymbolKindInterface,
			Range:          spanToRange(st.Text, c.Span),
			SelectionRange: spanToRange(st.Text, c.Node.Name.Span),
		})
	}
	if file.StartAgent != nil {
		syms = append(syms, protocol.DocumentSymbol{
			Name:           "start_agent",
			Kind:           protocol.SymbolKindClass,
			Range:          spanToRange(st.Text, file.StartAgent.Span),
			SelectionRange: spanToRange(st.Text, file.StartAgent.Span),
			Children:       actionSymbols(st.Text, file.StartAgent.Node.Actions),
		})
	}
	for _, t := range file.Topics {
		syms = append(syms, protocol.DocumentSymbol{
			Name:           t.Node.Name.Node,
			Kind:           protocol.SymbolKindClass,
			Range:          spanToRange(st.Text, t.Span),
			SelectionRange: spanToRange(st.Text, t.Node.Name.Span),
			Children:       actionSymbols(st.Text, t.Node.Actions),
		})
	}
	return syms
}

func actionSymbols(text string, actions []ast.Spanned[ast.ActionDef]) []protocol.DocumentSymbol {
	var syms []protocol.DocumentSymbol
	for _, a := range actions {
		syms = append(syms, protocol.DocumentSymbol{
			Name:           a.Node.Name.Node,
			Kind:           protocol.SymbolKindFunction,
			Range:          spanToRange(text, a.Span),
			SelectionRange: spanToRange(text, a.Node.Name.Span),
		})
	}
	return syms
}

// formatting serializes the AST back to canonical source and replaces the
// whole document. Skipped when the parse produced errors: formatting a
// partial AST would drop the unparsed regions.
func (m *Manager) formatting(st *documentState) []protocol.TextEdit {
	if st.AST == nil || len(st.ParseErrors) > 0 {
		return nil
	}
	formatted := serialize.Serialize(st.AST)
	if formatted == st.Text {
		return nil
	}
	full := spanToRange(st.Text, ast.Span{Start: 0, End: len(st.Text)})
	return []protocol.TextEdit{{Range: full, NewText: formatted}}
}

func (m *Manager) foldingRanges(st *documentState) []protocol.FoldingRange {
	if st.AST == nil {
		return nil
	}
	var spans []ast.Span
	file := st.AST
	if file.Config != nil {
		spans = append(spans, file.Config.Span)
	}
	if file.System != nil {
		spans = append(spans, file.System.Span)
	}
	if file.Knowledge != nil {
		spans = append(spans, file.Knowledge.Span)
	}
	if file.Language != nil {
		spans = append(spans, file.Language.Span)
	}
	if file.StartAgent != nil {
		spans = append(spans, file.StartAgent.Span)
	}
	for _, c := range file.Connections {
		spans = append(spans, c.Span)
	}
	for _, t := range file.Topics {
		spans = append(spans, t.Span)
	}

	var ranges []protocol.FoldingRange
	for _, span := range spans {
		r := spanToRange(st.Text, span)
		if r.End.Line <= r.Start.Line {
			continue
		}
		ranges = append(ranges, protocol.FoldingRange{
			StartLine: r.Start.Line,
			EndLine:   r.End.Line,
		})
	}
	return ranges
}

// semanticTokenTypes is the legend advertised in the server capabilities;
// index order is load-bearing for the encoded token stream.
var semanticTokenTypes = []string{"keyword", "string", "number", "comment", "variable", "operator", "type"}

const (
	tokKeyword = iota
	tokString
	tokNumber
	tokComment
	tokVariable
	tokOperator
	tokType
)

// semanticTokens lexes the document and emits the LSP delta-encoded
// token stream (deltaLine, deltaStart, length, type, modifiers).
func (m *Manager) semanticTokens(st *documentState) *protocol.SemanticTokens {
	toks, lexErr := lexer.Tokenize(st.Text)
	if lexErr != nil {
		return &protocol.SemanticTokens{Data: []uint32{}}
	}

	data := []uint32{}
	prevLine, prevCol := 0, 0
	for _, t := range toks {
		tokType, ok := classifyToken(t.Kind)
		if !ok {
			continue
		}
		lc := ast.OffsetToLineCol(st.Text, t.Span.Start)
		line, col := lc.Line-1, lc.Column-1
		length := t.Span.End - t.Span.Start
		if length <= 0 {
			continue
		}
		deltaLine := line - prevLine
		deltaStart := col
		if deltaLine == 0 {
			deltaStart = col - prevCol
		}
		data = append(data, uint32(deltaLine), uint32(deltaStart), uint32(length), uint32(tokType), 0)
		prevLine, prevCol = line, col
	}
	return &protocol.SemanticTokens{Data: data}
}

func classifyToken(k lexer.Kind) (int, bool) {
	switch k {
	case lexer.String:
		return tokString, true
	case lexer.Number:
		return tokNumber, true
	case lexer.Comment:
		return tokComment, true
	case lexer.Ident:
		return tokVariable, true
	case lexer.True, lexer.False, lexer.None:
		return tokKeyword, true
	case lexer.Eq, lexer.Ne, lexer.Lt, lexer.Gt, lexer.Le, lexer.Ge, lexer.Assign, lexer.Plus, lexer.Minus:
		return tokOperator, true
	case lexer.TypeString, lexer.TypeNumber, lexer.TypeBoolean, lexer.TypeObject, lexer.TypeList,
		lexer.TypeDate, lexer.TypeTimestamp, lexer.TypeCurrency, lexer.TypeID, lexer.TypeDatetime,
		lexer.TypeTime, lexer.TypeInteger, lexer.TypeLong:
		return tokType, true
	}
	if k >= lexer.KwConfig && k <= lexer.KwWhen {
		return tokKeyword, true
	}
	return 0, false
}

// codeActions offers a quickfix for the outbound_route_type rule: replace
// the offending value with the one accepted value.
func (m *Manager) codeActions(st *documentState, docURI uri.URI, diags []protocol.Diagnostic) []protocol.CodeAction {
	var actions []protocol.CodeAction
	for _, d := range diags {
		if !strings.Contains(d.Message, "outbound_route_type") {
			continue
		}
		fixed := d
		actions = append(actions, protocol.CodeAction{
			Title:       `Set outbound_route_type to "OmniChannelFlow"`,
			Kind:        protocol.QuickFix,
			Diagnostics: []protocol.Diagnostic{fixed},
			Edit: &protocol.WorkspaceEdit{
				Changes: map[uri.URI][]protocol.TextEdit{
					docURI: {{Range: d.Range, NewText: `"OmniChannelFlow"`}},
				},
			},
		})
	}
	return actions
}
