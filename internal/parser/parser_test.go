package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentscript/internal/ast"
)

func TestParseMinimalConfig(t *testing.T) {
	file, errs := Parse("config:\n   agent_name: \"T\"\n")
	require.Empty(t, errs)
	require.NotNil(t, file.Config)
	assert.Equal(t, "T", file.Config.Node.AgentName.Node)
	assert.Empty(t, file.Topics)
}

const fullAgentSource = `# Support agent definition
config:
   agent_name: "Support"
   agent_label: "Support Agent"

variables:
   user_name: mutable string = "guest"
      description: "Display name"
   account_id: linked id
      source: @context.account

system:
   instructions: "Be helpful."
   messages:
      welcome: "Hi!"
      error: "Oops."

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
         target: "flow://GetData"
         inputs:
            account: id
               is_required: True
         outputs:
            result: string
   before_reasoning:
      set @variables.user_name = "visitor"
   reasoning:
      instructions :->
         | Hello {!@variables.user_name}!
         if @variables.user_name == "guest":
            | Please sign in.
         else:
            | Welcome back.
      actions:
         fetch: @actions.get_data
            description: "Fetch data"
            available when @variables.account_id != None
            with account = @variables.account_id
            set @variables.user_name = "known"
`

func TestParseFullAgent(t *testing.T) {
	file, errs := Parse(fullAgentSource)
	require.Empty(t, errs)

	require.NotNil(t, file.Config)
	assert.Equal(t, "Support", file.Config.Node.AgentName.Node)
	require.NotNil(t, file.Config.Node.AgentLabel)
	assert.Equal(t, "Support Agent", file.Config.Node.AgentLabel.Node)

	require.Len(t, file.Variables, 2)
	userName := file.Variables[0].Node
	assert.Equal(t, "user_name", userName.Name.Node)
	assert.Equal(t, ast.VariableMutable, userName.Kind)
	assert.Equal(t, ast.TypeString, userName.Type.Tag)
	require.NotNil(t, userName.Default)
	assert.Equal(t, "guest", userName.Default.StringValue)
	require.NotNil(t, userName.Description)
	assert.Equal(t, "Display name", userName.Description.Node)

	accountID := file.Variables[1].Node
	assert.Equal(t, ast.VariableLinked, accountID.Kind)
	assert.Equal(t, ast.TypeID, accountID.Type.Tag)
	assert.Nil(t, accountID.Default)
	require.NotNil(t, accountID.Source)
	assert.Equal(t, "@context.account", accountID.Source.FullPath())

	require.NotNil(t, file.System)
	require.NotNil(t, file.System.Node.Instructions)
	assert.Equal(t, ast.InstructionsSimple, file.System.Node.Instructions.Kind)
	require.NotNil(t, file.System.Node.Welcome)
	assert.Equal(t, "Hi!", file.System.Node.Welcome.Simple.Node)
	require.NotNil(t, file.System.Node.ErrorMessage)

	require.Len(t, file.Connections, 1)
	conn := file.Connections[0].Node
	assert.Equal(t, "crm", conn.Name.Node)
	require.Len(t, conn.Entries, 2)
	assert.Equal(t, "outbound_route_type", conn.Entries[0].Key.Node)
	assert.Equal(t, "OmniChannelFlow", conn.Entries[0].Value.Node)

	require.NotNil(t, file.Language)
	require.Len(t, file.Language.Node.Entries, 1)
	assert.Equal(t, "additional_locales", file.Language.Node.Entries[0].Name.Node)

	require.NotNil(t, file.StartAgent)
	require.NotNil(t, file.StartAgent.Node.Reasoning)
	saActions := file.StartAgent.Node.Reasoning.Node.Actions
	require.Len(t, saActions, 1)
	assert.Equal(t, ast.TargetTransitionTo, saActions[0].Node.Target.Kind)
	assert.Equal(t, "@topic.help", saActions[0].Node.Target.Ref.FullPath())

	require.Len(t, file.Topics, 1)
	topic := file.Topics[0].Node
	assert.Equal(t, "help", topic.Name.Node)
	require.NotNil(t, topic.Description)

	require.Len(t, topic.Actions, 1)
	action := topic.Actions[0].Node
	assert.Equal(t, "get_data", action.Name.Node)
	require.NotNil(t, action.Target)
	assert.Equal(t, "flow://GetData", action.Target.Node)
	require.Len(t, action.Inputs, 1)
	assert.Equal(t, "account", action.Inputs[0].Node.Name.Node)
	require.NotNil(t, action.Inputs[0].Node.IsRequired)
	assert.True(t, action.Inputs[0].Node.IsRequired.Node)
	require.Len(t, action.Outputs, 1)

	require.NotNil(t, topic.BeforeReasoning)
	require.Len(t, topic.BeforeReasoning.Node.Stmts, 1)
	setStmt := topic.BeforeReasoning.Node.Stmts[0]
	assert.Equal(t, ast.StmtSet, setStmt.Kind)
	assert.Equal(t, "@variables.user_name", setStmt.SetTarget.FullPath())

	require.NotNil(t, topic.Reasoning)
	reasoning := topic.Reasoning.Node
	require.NotNil(t, reasoning.Instructions)
	assert.Equal(t, ast.InstructionsDynamic, reasoning.Instructions.Kind)
	parts := reasoning.Instructions.Dynamic
	require.Len(t, parts, 4)
	assert.Equal(t, ast.PartText, parts[0].Node.Kind)
	assert.Equal(t, "Hello", parts[0].Node.Text)
	assert.Equal(t, ast.PartInterpolation, parts[1].Node.Kind)
	assert.Equal(t, ast.PartText, parts[2].Node.Kind)
	assert.Equal(t, "!", parts[2].Node.Text)
	cond := parts[3].Node
	require.Equal(t, ast.PartConditional, cond.Kind)
	require.Len(t, cond.ThenParts, 1)
	assert.Equal(t, "Please sign in.", cond.ThenParts[0].Node.Text)
	require.Len(t, cond.ElseParts, 1)
	assert.Equal(t, "Welcome back.", cond.ElseParts[0].Node.Text)

	require.Len(t, reasoning.Actions, 1)
	fetch := reasoning.Actions[0].Node
	assert.Equal(t, ast.TargetAction, fetch.Target.Kind)
	assert.Equal(t, "@actions.get_data", fetch.Target.Ref.FullPath())
	require.NotNil(t, fetch.AvailableWhen)
	require.Len(t, fetch.WithClauses, 1)
	assert.Equal(t, "account", fetch.WithClauses[0].Param.Node)
	require.Len(t, fetch.SetClauses, 1)
	assert.Equal(t, "@variables.user_name", fetch.SetClauses[0].Target.FullPath())
}

func TestSpansInsideSource(t *testing.T) {
	file, errs := Parse(fullAgentSource)
	require.Empty(t, errs)
	check := func(span ast.Span) {
		assert.GreaterOrEqual(t, span.Start, 0)
		assert.LessOrEqual(t, span.Start, span.End)
		assert.LessOrEqual(t, span.End, len(fullAgentSource))
	}
	check(file.Config.Span)
	for _, v := range file.Variables {
		check(v.Span)
		check(v.Node.Name.Span)
	}
	for _, topic := range file.Topics {
		check(topic.Span)
		for _, a := range topic.Node.Actions {
			check(a.Span)
		}
	}
}

func TestNoneDefaultRequiresBooleanType(t *testing.T) {
	src := "variables:\n   flag: mutable boolean = None\n   name: mutable string = None\n"
	_, errs := ParsePartial(src)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "'= None' default is only valid")
}

func TestLegacyConnectionsRewrite(t *testing.T) {
	src := "connections:\n   foo: \"bar\"\n"
	_, errs := ParsePartial(src)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "use 'connection <name>:' instead")
}

func TestUnknownConfigKeyBreadcrumb(t *testing.T) {
	src := "config:\n   bogus_key: \"x\"\n"
	_, errs := ParsePartial(src)
	require.NotEmpty(t, errs)
	e := errs[0]
	assert.Contains(t, e.Expected, "agent_name")
	require.NotEmpty(t, e.Contexts)
	assert.Equal(t, "config block", e.Contexts[0].Label)
}

func TestNestedBreadcrumbInnermostFirst(t *testing.T) {
	src := `topic main:
   reasoning:
      actions:
         decide: @actions.missing
            bogus_entry "oops"
`
	_, errs := ParsePartial(src)
	require.NotEmpty(t, errs)
	var found bool
	for _, e := range errs {
		if len(e.Contexts) >= 3 && e.Contexts[0].Label == "reasoning action 'decide'" {
			found = true
			assert.Equal(t, "reasoning actions", e.Contexts[1].Label)
			assert.Equal(t, "reasoning block", e.Contexts[2].Label)
		}
	}
	assert.True(t, found, "expected an error with the reasoning-action breadcrumb chain")
}

func TestRecoveryResumesAtNextTopLevelBlock(t *testing.T) {
	src := `config:
   agent_name "missing colon"

topic help:
   description: "still parsed"
`
	file, errs := ParsePartial(src)
	require.NotEmpty(t, errs)
	require.NotNil(t, file)
	require.Len(t, file.Topics, 1)
	assert.Equal(t, "help", file.Topics[0].Node.Name.Node)
}

func TestStrictParseStopsAtFirstFailedBlock(t *testing.T) {
	src := `config:
   agent_name "missing colon"

topic help:
   description: "not reached"
`
	file, errs := Parse(src)
	require.NotEmpty(t, errs)
	assert.Empty(t, file.Topics)
}

func TestTernaryValueFirstOrdering(t *testing.T) {
	src := "language:\n   greeting: \"hi\" if @variables.casual == True else \"hello\"\n"
	file, errs := Parse(src)
	require.Empty(t, errs)
	require.Len(t, file.Language.Node.Entries, 1)
	e := file.Language.Node.Entries[0].Value
	require.Equal(t, ast.ExprTernary, e.Kind)
	assert.Equal(t, "hi", e.TernaryThen.StringValue)
	assert.Equal(t, "hello", e.TernaryElse.StringValue)
	assert.Equal(t, ast.ExprBinOp, e.TernaryCond.Kind)
}

func TestExpressionPrecedence(t *testing.T) {
	src := "language:\n   check: not @variables.a == 1 and @variables.b + 2 > 3 or @variables.c\n"
	file, errs := Parse(src)
	require.Empty(t, errs)
	e := file.Language.Node.Entries[0].Value
	// or binds loosest.
	require.Equal(t, ast.ExprBinOp, e.Kind)
	require.Equal(t, ast.BinOr, e.BinOp)
	// its left side is the `and`.
	require.Equal(t, ast.BinAnd, e.Left.BinOp)
	// `not` binds tighter than `==`: not applies to the reference only.
	notSide := e.Left.Left
	require.Equal(t, ast.ExprBinOp, notSide.Kind)
	require.Equal(t, ast.BinEq, notSide.BinOp)
	assert.Equal(t, ast.ExprUnaryOp, notSide.Left.Kind)
	// `+` binds tighter than `>`.
	gtSide := e.Left.Right
	require.Equal(t, ast.BinGt, gtSide.BinOp)
	assert.Equal(t, ast.BinAdd, gtSide.Left.BinOp)
}

func TestListLiteralTrailingComma(t *testing.T) {
	src := "language:\n   options: [\"a\", \"b\",]\n"
	file, errs := Parse(src)
	require.Empty(t, errs)
	e := file.Language.Node.Entries[0].Value
	require.Equal(t, ast.ExprList, e.Kind)
	assert.Len(t, e.Elements, 2)
}

func TestStaticInstructionsPipeLines(t *testing.T) {
	src := `system:
   instructions :|
      | You are a support agent.
      this line has no pipe and is dropped
      | Answer briefly.
`
	file, errs := Parse(src)
	require.Empty(t, errs)
	ins := file.System.Node.Instructions
	require.NotNil(t, ins)
	require.Equal(t, ast.InstructionsStatic, ins.Kind)
	require.Len(t, ins.Static, 2)
	assert.Equal(t, "You are a support agent.", ins.Static[0].Node)
	assert.Equal(t, "Answer briefly.", ins.Static[1].Node)
}

func TestStaticInstructionsWithoutPipes(t *testing.T) {
	src := `system:
   instructions :|
      first line
      second line
`
	file, errs := Parse(src)
	require.Empty(t, errs)
	ins := file.System.Node.Instructions
	require.Equal(t, ast.InstructionsStatic, ins.Kind)
	require.Len(t, ins.Static, 2)
	assert.Equal(t, "first line", ins.Static[0].Node)
}

func TestDynamicNestedIfDiscarded(t *testing.T) {
	src := `system:
   instructions :->
      if @variables.a == 1:
         | outer
         if @variables.b == 2:
            | inner
`
	file, errs := Parse(src)
	require.Empty(t, errs)
	ins := file.System.Node.Instructions
	require.Equal(t, ast.InstructionsDynamic, ins.Kind)
	require.Len(t, ins.Dynamic, 1)
	cond := ins.Dynamic[0].Node
	require.Equal(t, ast.PartConditional, cond.Kind)
	// The nested if is parsed structurally but discarded.
	require.Len(t, cond.ThenParts, 1)
	assert.Equal(t, "outer", cond.ThenParts[0].Node.Text)
}

func TestDynamicRunSkipped(t *testing.T) {
	src := `system:
   instructions :->
      | before
      run @actions.fetch
         with x = 1
      | after
`
	file, errs := Parse(src)
	require.Empty(t, errs)
	ins := file.System.Node.Instructions
	require.Len(t, ins.Dynamic, 2)
	assert.Equal(t, "before", ins.Dynamic[0].Node.Text)
	assert.Equal(t, "after", ins.Dynamic[1].Node.Text)
}

func TestDynamicSpacedArrowForm(t *testing.T) {
	src := "system:\n   instructions : ->\n      | hello\n"
	file, errs := Parse(src)
	require.Empty(t, errs)
	assert.Equal(t, ast.InstructionsDynamic, file.System.Node.Instructions.Kind)
}

func TestReasoningTargets(t *testing.T) {
	src := `topic triage:
   reasoning:
      actions:
         hand_off: @topic.billing
         bail_out: @utils.escalate
         update: @utils.setVariables
            set @variables.done = True
`
	file, errs := Parse(src)
	require.Empty(t, errs)
	actions := file.Topics[0].Node.Reasoning.Node.Actions
	require.Len(t, actions, 3)
	assert.Equal(t, ast.TargetTopicDelegate, actions[0].Node.Target.Kind)
	assert.Equal(t, ast.TargetEscalate, actions[1].Node.Target.Kind)
	assert.Equal(t, ast.TargetSetVariables, actions[2].Node.Target.Kind)
	require.Len(t, actions[2].Node.SetClauses, 1)
}

func TestReasoningIfClauseAndTrailingTransition(t *testing.T) {
	src := `topic triage:
   reasoning:
      actions:
         route: @utils.setVariables
            if @variables.vip == True: transition to @topic.priority
            transition to @topic.general
`
	file, errs := Parse(src)
	require.Empty(t, errs)
	ra := file.Topics[0].Node.Reasoning.Node.Actions[0].Node
	require.Len(t, ra.IfClauses, 1)
	ifc := ra.IfClauses[0]
	require.Equal(t, ast.StmtIf, ifc.Kind)
	require.Len(t, ifc.IfThen, 1)
	assert.Equal(t, "@topic.priority", ifc.IfThen[0].TransitionTarget.FullPath())
	require.NotNil(t, ra.Transition)
	assert.Equal(t, "@topic.general", ra.Transition.FullPath())
}

func TestDirectiveIfElseAndRunClauses(t *testing.T) {
	src := `topic main:
   after_reasoning:
      if @variables.count > 3:
         run @actions.cleanup
            with depth = 2
            set @variables.count = 0
      else:
         set @variables.count = @variables.count + 1
      transition to @topic.done
`
	file, errs := Parse(src)
	require.Empty(t, errs)
	stmts := file.Topics[0].Node.AfterReasoning.Node.Stmts
	require.Len(t, stmts, 2)
	ifStmt := stmts[0]
	require.Equal(t, ast.StmtIf, ifStmt.Kind)
	require.Len(t, ifStmt.IfThen, 1)
	run := ifStmt.IfThen[0]
	require.Equal(t, ast.StmtRun, run.Kind)
	assert.Equal(t, "@actions.cleanup", run.RunAction.FullPath())
	require.Len(t, run.RunWithClauses, 1)
	require.Len(t, run.RunSetClauses, 1)
	require.Len(t, ifStmt.IfElse, 1)
	assert.Equal(t, ast.StmtSet, ifStmt.IfElse[0].Kind)
	assert.Equal(t, ast.StmtTransition, stmts[1].Kind)
}

func TestMissingAgentName(t *testing.T) {
	src := "config:\n   description: \"no name\"\n"
	_, errs := ParsePartial(src)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "agent_name")
}

func TestFormatErrorCaret(t *testing.T) {
	src := "config:\n   bogus_key: \"x\"\n"
	_, errs := ParsePartial(src)
	require.NotEmpty(t, errs)
	rendered := FormatError(src, errs[0])
	assert.Contains(t, rendered, "while parsing: config block (line 1)")
	assert.Contains(t, rendered, "^")
}
