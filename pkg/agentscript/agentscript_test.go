package agentscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEndToEnd drives the whole public surface against one agent file:
// parse, validate, serialize, graph queries, dependency extraction.
func TestEndToEnd(t *testing.T) {
	source := `config:
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
         target: "apex://AccountService.fetch"
   reasoning:
      actions:
         fetch: @actions.get_data
            with name = @variables.user_name

topic orphan:
   description: "nothing routes here"
`
	file, errs := Parse(source)
	require.Empty(t, errs)

	assert.Empty(t, ValidateAST(file))

	g := BuildGraph(file)
	result := g.Validate()
	assert.True(t, result.IsOK())

	unreachable := g.FindUnreachableTopics()
	require.Len(t, unreachable, 1)
	assert.Equal(t, "orphan", unreachable[0].Name)

	report := ExtractDependencies(file)
	require.Len(t, report.Flat, 1)
	assert.Equal(t, "ApexMethod", report.Flat[0].Type.String())

	// Roundtrip through the serializer.
	reparsed, errs := Parse(Serialize(file))
	require.Empty(t, errs)
	assert.Len(t, reparsed.Topics, 2)
}

func TestParsePartialReturnsBestEffortAST(t *testing.T) {
	source := "config:\n   agent_name \"broken\"\n\ntopic ok:\n   description: \"fine\"\n"
	file, errs := ParsePartial(source)
	require.NotEmpty(t, errs)
	require.NotNil(t, file)
	assert.Len(t, file.Topics, 1)
	assert.NotEmpty(t, FormatParseError(source, errs[0]))
}
