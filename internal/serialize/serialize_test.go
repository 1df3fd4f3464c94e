package serialize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentscript/internal/ast"
	"agentscript/internal/parser"
)

// ignoreSpans drops every ast.Span from the comparison: the roundtrip
// guarantee is structural, not positional.
var ignoreSpans = cmpopts.IgnoreTypes(ast.Span{})

func roundtrip(t *testing.T, source string) {
	t.Helper()
	first, errs := parser.Parse(source)
	require.Empty(t, errs, "input must parse cleanly")

	out := Serialize(first)
	second, errs := parser.Parse(out)
	require.Empty(t, errs, "serialized output must parse cleanly:\n%s", out)

	if diff := cmp.Diff(first, second, ignoreSpans); diff != "" {
		t.Fatalf("roundtrip mismatch (-first +second):\n%s\nserialized:\n%s", diff, out)
	}

	// Serializing the reparsed tree must reproduce the same bytes:
	// canonical output is a fixed point.
	assert.Equal(t, out, Serialize(second))
}

func TestRoundtripMinimal(t *testing.T) {
	roundtrip(t, "config:\n   agent_name: \"T\"\n")
}

func TestRoundtripFullAgent(t *testing.T) {
	roundtrip(t, `config:
   agent_name: "Support"
   agent_label: "Support Agent"
   description: "Helps customers"

variables:
   user_name: mutable string = "guest"
      description: "Display name"
   retries: mutable number = 0
   account_id: linked id
      source: @context.account

system:
   instructions: "Be helpful."
   messages:
      welcome: "Hi!"
      error: "Oops."

knowledge:
   faq: "kb://faq"

connection crm:
   outbound_route_type: "OmniChannelFlow"
   endpoint: "https://example"

language:
   additional_locales: "en_US,fr"

start_agent:
   reasoning:
      actions:
         go_help: @utils.transition to @topic.help

topic help:
   description: "Main help topic"
   actions:
      get_data:
         description: "Fetch account data"
         require_user_confirmation: False
         target: "flow://GetData"
         inputs:
            account: id
               is_required: True
         outputs:
            result: string
            items: list[string]
   before_reasoning:
      set @variables.retries = @variables.retries + 1
   after_reasoning:
      if @variables.retries > 3:
         run @actions.get_data
            with account = @variables.account_id
            set @variables.user_name = "known"
      else:
         set @variables.retries = 0
      transition to @topic.done
   reasoning:
      actions:
         fetch: @actions.get_data
            description: "Fetch data"
            available when @variables.account_id != None
            with account = @variables.account_id
            set @variables.user_name = "known"
         hand_off: @topic.done
         bail_out: @utils.escalate
         route: @utils.setVariables
            if @variables.retries > 5: transition to @topic.done
            transition to @topic.help

topic done:
   description: "Wrap up"
`)
}

func TestRoundtripInstructions(t *testing.T) {
	roundtrip(t, `system:
   instructions :|
      | You are a support agent.
      | Answer briefly.

topic help:
   reasoning:
      instructions :->
         | Hello {!@variables.user_name}!
         if @variables.user_name == "guest":
            | Please sign in.
         else:
            | Welcome back.
      actions:
         hand_off: @topic.help
`)
}

func TestRoundtripExpressions(t *testing.T) {
	roundtrip(t, `language:
   ternary: "a" if @variables.x == 1 else "b"
   logic: not @variables.a and (@variables.b or @variables.c)
   arith: (@variables.x + 1) - 2
   ident: @variables.x is not None
   items: [1, 2.5, True, None, "s"]
   nested: @variables.obj.field[0]
`)
}

func TestSerializeIndentWidth(t *testing.T) {
	file, errs := parser.Parse("config:\n   agent_name: \"T\"\n")
	require.Empty(t, errs)
	out := SerializeIndent(file, 4)
	assert.Contains(t, out, "\n    agent_name:")

	// The wider output still parses to the same tree.
	reparsed, errs := parser.Parse(out)
	require.Empty(t, errs)
	assert.Empty(t, cmp.Diff(file, reparsed, ignoreSpans))
}

func TestTypeString(t *testing.T) {
	inner := ast.Type{Tag: ast.TypeNumber}
	assert.Equal(t, "number", TypeString(inner))
	assert.Equal(t, "list[number]", TypeString(ast.Type{Tag: ast.TypeList, Elem: &inner}))
}

func TestExprStringParenthesization(t *testing.T) {
	a := ast.Expr{Kind: ast.ExprReference, Reference: &ast.Reference{Namespace: "variables", Path: []string{"a"}}}
	b := ast.Expr{Kind: ast.ExprReference, Reference: &ast.Reference{Namespace: "variables", Path: []string{"b"}}}
	c := ast.Expr{Kind: ast.ExprReference, Reference: &ast.Reference{Namespace: "variables", Path: []string{"c"}}}

	or := ast.Expr{Kind: ast.ExprBinOp, BinOp: ast.BinOr, Left: &a, Right: &b}
	and := ast.Expr{Kind: ast.ExprBinOp, BinOp: ast.BinAnd, Left: &or, Right: &c}
	assert.Equal(t, "(@variables.a or @variables.b) and @variables.c", ExprString(and))

	and2 := ast.Expr{Kind: ast.ExprBinOp, BinOp: ast.BinAnd, Left: &a, Right: &b}
	or2 := ast.Expr{Kind: ast.ExprBinOp, BinOp: ast.BinOr, Left: &and2, Right: &c}
	assert.Equal(t, "@variables.a and @variables.b or @variables.c", ExprString(or2))
}

func TestSerializePanicsOnLinkedDefault(t *testing.T) {
	def := ast.Expr{Kind: ast.ExprNumber, NumberValue: 1}
	file := &ast.AgentFile{
		Variables: []ast.Spanned[ast.VariableDecl]{{
			Node: ast.VariableDecl{
				Name:    ast.NewSpanned("x", ast.Span{}),
				Kind:    ast.VariableLinked,
				Type:    ast.Type{Tag: ast.TypeString},
				Default: &def,
			},
		}},
	}
	assert.Panics(t, func() { Serialize(file) })
}
