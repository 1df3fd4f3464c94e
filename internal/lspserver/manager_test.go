package lspserver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/goleak"

	"agentscript/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testURI = uri.URI("file:///tmp/support.agent")

const testSource = `config:
   agent_name: "Support"

variables:
   user_name: mutable string = "guest"

start_agent:
   reasoning:
      actions:
         go_help: @utils.transition to @topic.help

topic help:
   actions:
      get_data:
         target: "flow://GetData"
   before_reasoning:
      set @variables.user_name = "visitor"
   reasoning:
      actions:
         fetch: @actions.get_data
            with name = @variables.user_name
`

func newTestManager() *Manager {
	return NewManager("/tmp", config.DefaultConfig())
}

func TestOpenChangeClose(t *testing.T) {
	m := newTestManager()

	st := m.Open(testURI, testSource, 1)
	require.NotNil(t, st.AST)
	assert.Empty(t, st.ParseErrors)
	require.NotNil(t, st.Graph)
	assert.Equal(t, 1, m.OpenCount())

	st2 := m.Change(testURI, testSource+"\ntopic extra:\n   description: \"more\"\n", 2)
	assert.Len(t, st2.AST.Topics, 2)
	// Each edit replaces the whole state; the old snapshot is untouched.
	assert.Len(t, st.AST.Topics, 1)

	m.Close(testURI)
	assert.Equal(t, 0, m.OpenCount())
	assert.Nil(t, m.Snapshot(testURI))
}

func TestDiagnosticsMergeAllStreams(t *testing.T) {
	m := newTestManager()
	src := `config:
   agent_name: "T"

variables:
   count: mutable integer = 1

start_agent:
   reasoning:
      actions:
         go_away: @utils.transition to @topic.nonexistent
`
	st := m.Open(testURI, src, 1)
	diags := diagnostics(st)

	var mutableType, unresolved, warning bool
	for _, d := range diags {
		if strings.Contains(d.Message, "non-mutable type") {
			mutableType = true
		}
		if strings.Contains(d.Message, "unresolved reference @topic.nonexistent") {
			unresolved = true
		}
		if d.Severity == protocol.DiagnosticSeverityWarning {
			warning = true
		}
	}
	// Semantic rule 1: integer is not a mutable type.
	assert.True(t, mutableType, "expected a mutable-type diagnostic")
	// Graph validation: unresolved topic reference.
	assert.True(t, unresolved, "expected an unresolved-reference diagnostic")
	// Unused variable warning carries Warning severity.
	assert.True(t, warning)
}

func TestCompletionAfterAt(t *testing.T) {
	m := newTestManager()
	src := "config:\n   agent_name: \"T\"\n# @\n"
	st := m.Open(testURI, src, 1)

	// Position right after the '@' on line 3 (zero-based line 2).
	list := m.completion(st, protocol.Position{Line: 2, Character: 3})
	var labels []string
	for _, item := range list.Items {
		labels = append(labels, item.Label)
	}
	assert.Contains(t, labels, "variables")
	assert.Contains(t, labels, "topic")
	assert.Contains(t, labels, "utils")
}

func TestCompletionTopicNames(t *testing.T) {
	m := newTestManager()
	st := m.Open(testURI, testSource, 1)

	offsetMarker := "@topic.help"
	idx := strings.Index(st.Text, offsetMarker)
	require.GreaterOrEqual(t, idx, 0)
	// Position just after "@topic." so the namespace lookup applies.
	pos := offsetToPosition(st.Text, idx+len("@topic."))
	list := m.completion(st, pos)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "help", list.Items[0].Label)
}

func offsetToPosition(text string, offset int) protocol.Position {
	line, col := 0, 0
	for i := 0; i < offset && i < len(text); i++ {
		if text[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return protocol.Position{Line: uint32(line), Character: uint32(col)}
}

func TestDefinitionResolvesTopicReference(t *testing.T) {
	m := newTestManager()
	st := m.Open(testURI, testSource, 1)

	idx := strings.Index(st.Text, "@topic.help")
	require.GreaterOrEqual(t, idx, 0)
	pos := offsetToPosition(st.Text, idx+len("@topic.h"))
	locs := m.definition(st, testURI, pos)
	require.Len(t, locs, 1)

	// The definition points at the `topic help` declaration, which is
	// further down the document than the reference.
	assert.Greater(t, locs[0].Range.Start.Line, pos.Line)
}

func TestHoverOnVariable(t *testing.T) {
	m := newTestManager()
	st := m.Open(testURI, testSource, 1)

	idx := strings.Index(st.Text, "user_name: mutable")
	require.GreaterOrEqual(t, idx, 0)
	h := m.hover(st, offsetToPosition(st.Text, idx+2))
	require.NotNil(t, h)
	assert.Contains(t, h.Contents.Value, "variable user_name")
	assert.Contains(t, h.Contents.Value, "mutable")
}

func TestRenameEditsEveryOccurrence(t *testing.T) {
	m := newTestManager()
	st := m.Open(testURI, testSource, 1)

	idx := strings.Index(st.Text, "user_name")
	require.GreaterOrEqual(t, idx, 0)
	edit := m.rename(st, testURI, offsetToPosition(st.Text, idx+1), "display_name")
	require.NotNil(t, edit)
	edits := edit.Changes[testURI]
	// Declaration, the before_reasoning write, and the with-clause read.
	assert.Len(t, edits, 3)
	for _, e := range edits {
		assert.Equal(t, "display_name", e.NewText)
	}
}

func TestDocumentSymbolsAndFolding(t *testing.T) {
	m := newTestManager()
	st := m.Open(testURI, testSource, 1)

	syms := m.documentSymbols(st)
	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "config")
	assert.Contains(t, names, "user_name")
	assert.Contains(t, names, "start_agent")
	assert.Contains(t, names, "help")

	ranges := m.foldingRanges(st)
	assert.NotEmpty(t, ranges)
	for _, r := range ranges {
		assert.Less(t, r.StartLine, r.EndLine)
	}
}

func TestSemanticTokensDeltaEncoding(t *testing.T) {
	m := newTestManager()
	st := m.Open(testURI, "config:\n   agent_name: \"T\"\n", 1)

	toks := m.semanticTokens(st)
	require.NotNil(t, toks)
	// Encoded as 5-tuples.
	assert.Equal(t, 0, len(toks.Data)%5)
	assert.NotEmpty(t, toks.Data)
	// First token is `config` at line 0, col 0.
	assert.Equal(t, uint32(0), toks.Data[0])
	assert.Equal(t, uint32(0), toks.Data[1])
	assert.Equal(t, uint32(len("config")), toks.Data[2])
}

func TestCustomGetGraph(t *testing.T) {
	m := newTestManager()
	st := m.Open(testURI, testSource, 1)

	result := m.getGraph(st)
	assert.Equal(t, []string{"help"}, result.TopicNames)
	assert.Equal(t, []string{"user_name"}, result.VariableNames)

	var kinds []string
	for _, e := range result.Edges {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, "routes")
	assert.Contains(t, kinds, "invokes")
}

func TestCustomSimulate(t *testing.T) {
	m := newTestManager()
	st := m.Open(testURI, testSource, 1)

	result := m.simulate(st)
	steps := result.Topics["help"]
	require.NotEmpty(t, steps)
	assert.Equal(t, "before_reasoning", steps[0].Phase)
	assert.Equal(t, "set", steps[0].StatementType)
	assert.Equal(t, []string{"@variables.user_name"}, steps[0].VariableChanges)

	var sawReasoning bool
	for _, s := range steps {
		if s.Phase == "reasoning" && s.StatementType == "reasoning_action" {
			sawReasoning = true
			assert.Contains(t, s.ActionInvocations, "@actions.get_data")
		}
	}
	assert.True(t, sawReasoning)
}

func TestFormattingSkipsDocumentsWithParseErrors(t *testing.T) {
	m := newTestManager()
	st := m.Open(testURI, "config:\n   agent_name \"missing colon\"\n", 1)
	require.NotEmpty(t, st.ParseErrors)
	assert.Nil(t, m.formatting(st))
}
