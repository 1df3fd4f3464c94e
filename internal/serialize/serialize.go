// Package serialize turns an *ast.AgentFile back into AgentScript source.
//
// Output is canonical, not byte-faithful: 3-space indentation at every
// nesting level, canonical key order per block, and prompt text
// reconstructed from the parsed parts rather than the original bytes.
// Spans are ignored entirely. The roundtrip guarantee is structural:
// parsing the output yields a tree node-for-node equal to the input,
// modulo span values.
package serialize

import (
	"fmt"
	"strconv"
	"strings"

	"agentscript/internal/ast"
)

// DefaultIndentWidth is the canonical indent step.
const DefaultIndentWidth = 3

// Serialize renders file as canonical AgentScript source. It never fails
// on a well-formed AST; a tree that violates the data-model invariants
// (e.g. a linked variable carrying a default) is a programmer error and
// panics.
func Serialize(file *ast.AgentFile) string {
	return SerializeIndent(file, DefaultIndentWidth)
}

// SerializeIndent renders file with a house-style indent width instead of
// the canonical 3 spaces.
func SerializeIndent(file *ast.AgentFile, indentWidth int) string {
	if indentWidth < 1 {
		indentWidth = DefaultIndentWidth
	}
	w := &writer{step: strings.Repeat(" ", indentWidth)}
	if file.Config != nil {
		w.writeConfig(file.Config.Node)
	}
	if len(file.Variables) > 0 {
		w.writeVariables(file.Variables)
	}
	if file.System != nil {
		w.writeSystem(file.System.Node)
	}
	if file.Knowledge != nil {
		w.writeKeyValueBlock("knowledge", file.Knowledge.Node.Entries)
	}
	if file.Language != nil {
		w.writeLanguage(file.Language.Node)
	}
	for _, c := range file.Connections {
		w.line(0, "connection %s:", c.Node.Name.Node)
		for _, e := range c.Node.Entries {
			w.line(1, "%s: %q", e.Key.Node, e.Value.Node)
		}
		w.blank()
	}
	if file.StartAgent != nil {
		sa := file.StartAgent.Node
		w.line(0, "start_agent:")
		w.writeTopicBody(1, sa.Description, sa.System, sa.Actions, sa.BeforeReasoning, sa.AfterReasoning, sa.Reasoning)
		w.blank()
	}
	for _, t := range file.Topics {
		tb := t.Node
		w.line(0, "topic %s:", tb.Name.Node)
		w.writeTopicBody(1, tb.Description, tb.System, tb.Actions, tb.BeforeReasoning, tb.AfterReasoning, tb.Reasoning)
		w.blank()
	}
	return w.String()
}

type writer struct {
	b    strings.Builder
	step string
}

func (w *writer) String() string {
	out := w.b.String()
	// Collapse the trailing blank-line separator into a single final newline.
	out = strings.TrimRight(out, "\n")
	if out != "" {
		out += "\n"
	}
	return out
}

func (w *writer) line(depth int, format string, args ...interface{}) {
	w.b.WriteString(strings.Repeat(w.step, depth))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *writer) blank() {
	w.b.WriteByte('\n')
}

func (w *writer) writeConfig(c ast.ConfigBlock) {
	w.line(0, "config:")
	w.line(1, "agent_name: %q", c.AgentName.Node)
	if c.AgentLabel != nil {
		w.line(1, "agent_label: %q", c.AgentLabel.Node)
	}
	if c.Description != nil {
		w.line(1, "description: %q", c.Description.Node)
	}
	if c.AgentType != nil {
		w.line(1, "agent_type: %q", c.AgentType.Node)
	}
	if c.DefaultAgentUser != nil {
		w.line(1, "default_agent_user: %q", c.DefaultAgentUser.Node)
	}
	w.blank()
}

func (w *writer) writeVariables(decls []ast.Spanned[ast.VariableDecl]) {
	w.line(0, "variables:")
	for _, d := range decls {
		decl := d.Node
		if decl.Kind == ast.VariableLinked && decl.Default != nil {
			panic(fmt.Sprintf("serialize: linked variable %q carries a default", decl.Name.Node))
		}
		head := fmt.Sprintf("%s: %s %s", decl.Name.Node, decl.Kind, TypeString(decl.Type))
		if decl.Default != nil {
			head += " = " + ExprString(*decl.Default)
		}
		w.line(1, "%s", head)
		if decl.Description != nil {
			w.line(2, "description: %q", decl.Description.Node)
		}
		if decl.Source != nil {
			w.line(2, "source: %s", decl.Source.FullPath())
		}
	}
	w.blank()
}

func (w *writer) writeSystem(s ast.SystemBlock) {
	w.line(0, "system:")
	if s.Instructions != nil {
		w.writeInstructions(1, *s.Instructions)
	}
	if s.Welcome != nil || s.ErrorMessage != nil {
		w.line(1, "messages:")
		if s.Welcome != nil {
			w.line(2, "welcome: %q", s.Welcome.Simple.Node)
		}
		if s.ErrorMessage != nil {
			w.line(2, "error: %q", s.ErrorMessage.Simple.Node)
		}
	}
	w.blank()
}

func (w *writer) writeKeyValueBlock(name string, entries []ast.KeyValueEntry) {
	w.line(0, "%s:", name)
	for _, e := range entries {
		w.line(1, "%s: %q", e.Key.Node, e.Value.Node)
	}
	w.blank()
}

func (w *writer) writeLanguage(l ast.LanguageBlock) {
	w.line(0, "language:")
	for _, e := range l.Entries {
		w.line(1, "%s: %s", e.Name.Node, ExprString(e.Value))
	}
	w.blank()
}

func (w *writer) writeTopicBody(depth int, description *ast.Spanned[string], system *ast.Instructions, actions []ast.Spanned[ast.ActionDef], before, after *ast.Spanned[ast.DirectiveBlock], reasoning *ast.Spanned[ast.ReasoningBlock]) {
	if description != nil {
		w.line(depth, "description: %q", description.Node)
	}
	if system != nil {
		w.line(depth, "system:")
		w.writeInstructions(depth+1, *system)
	}
	if len(actions) > 0 {
		w.line(depth, "actions:")
		for _, a := range actions {
			w.writeActionDef(depth+1, a.Node)
		}
	}
	if before != nil {
		w.line(depth, "before_reasoning:")
		w.writeStmts(depth+1, before.Node.Stmts)
	}
	if after != nil {
		w.line(depth, "after_reasoning:")
		w.writeStmts(depth+1, after.Node.Stmts)
	}
	if reasoning != nil {
		w.writeReasoning(depth, reasoning.Node)
	}
}

func (w *writer) writeActionDef(depth int, a ast.ActionDef) {
	w.line(depth, "%s:", a.Name.Node)
	if a.Description != nil {
		w.line(depth+1, "description: %q", a.Description.Node)
	}
	if a.Label != nil {
		w.line(depth+1, "label: %q", a.Label.Node)
	}
	if a.RequireUserConfirmation != nil {
		w.line(depth+1, "require_user_confirmation: %s", boolLit(a.RequireUserConfirmation.Node))
	}
	if a.IncludeInProgressIndicator != nil {
		w.line(depth+1, "include_in_progress_indicator: %s", boolLit(a.IncludeInProgressIndicator.Node))
	}
	if a.ProgressIndicatorMessage != nil {
		w.line(depth+1, "progress_indicator_message: %q", a.ProgressIndicatorMessage.Node)
	}
	if a.Target != nil {
		w.line(depth+1, "target: %q", a.Target.Node)
	}
	if len(a.Inputs) > 0 {
		w.line(depth+1, "inputs:")
		for _, in := range a.Inputs {
			w.writeParamDef(depth+2, in.Node)
		}
	}
	if len(a.Outputs) > 0 {
		w.line(depth+1, "outputs:")
		for _, out := range a.Outputs {
			w.writeParamDef(depth+2, out.Node)
		}
	}
}

func (w *writer) writeParamDef(depth int, p ast.ParamDef) {
	w.line(depth, "%s: %s", paramName(p.Name.Node), TypeString(p.Type))
	if p.Description != nil {
		w.line(depth+1, "description: %q", p.Description.Node)
	}
	if p.Label != nil {
		w.line(depth+1, "label: %q", p.Label.Node)
	}
	if p.IsRequired != nil {
		w.line(depth+1, "is_required: %s", boolLit(p.IsRequired.Node))
	}
	if p.IsDisplayable != nil {
		w.line(depth+1, "is_displayable: %s", boolLit(p.IsDisplayable.Node))
	}
	if p.IsUsedByPlanner != nil {
		w.line(depth+1, "is_used_by_planner: %s", boolLit(p.IsUsedByPlanner.Node))
	}
	if p.ComplexDataTypeName != nil {
		w.line(depth+1, "complex_data_type_name: %q", p.ComplexDataTypeName.Node)
	}
	if p.FilterFromAgent != nil {
		w.line(depth+1, "filter_from_agent: %s", boolLit(p.FilterFromAgent.Node))
	}
	if p.Available != nil {
		w.line(depth+1, "available: %s", boolLit(p.Available.Node))
	}
}

// paramName re-quotes parameter names that would not lex as a single
// identifier (or as the handful of keywords accepted in name position).
func paramName(name string) string {
	if isIdentLike(name) {
		return name
	}
	return strconv.Quote(name)
}

func isIdentLike(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

func (w *writer) writeStmts(depth int, stmts []ast.Stmt) {
	for _, s := range stmts {
		w.writeStmt(depth, s)
	}
}

func (w *writer) writeStmt(depth int, s ast.Stmt) {
	switch s.Kind {
	case ast.StmtSet:
		w.line(depth, "set %s = %s", s.SetTarget.FullPath(), ExprString(*s.SetValue))
	case ast.StmtRun:
		w.line(depth, "run %s", s.RunAction.FullPath())
		for _, c := range s.RunWithClauses {
			w.line(depth+1, "with %s = %s", paramName(c.Param.Node), ExprString(c.Value))
		}
		for _, c := range s.RunSetClauses {
			w.line(depth+1, "set %s = %s", c.Target.FullPath(), ExprString(c.Value))
		}
	case ast.StmtIf:
		w.line(depth, "if %s:", ExprString(*s.IfCond))
		w.writeStmts(depth+1, s.IfThen)
		if len(s.IfElse) > 0 {
			w.line(depth, "else:")
			w.writeStmts(depth+1, s.IfElse)
		}
	case ast.StmtTransition:
		w.line(depth, "transition to %s", s.TransitionTarget.FullPath())
	}
}

func (w *writer) writeReasoning(depth int, r ast.ReasoningBlock) {
	w.line(depth, "reasoning:")
	if r.Instructions != nil {
		w.writeInstructions(depth+1, *r.Instructions)
	}
	if len(r.Actions) > 0 {
		w.line(depth+1, "actions:")
		for _, ra := range r.Actions {
			w.writeReasoningAction(depth+2, ra.Node)
		}
	}
}

func (w *writer) writeReasoningAction(depth int, ra ast.ReasoningAction) {
	w.line(depth, "%s: %s", ra.Name.Node, targetString(ra.Target))
	body := depth + 1
	if ra.Description != nil {
		w.line(body, "description: %q", ra.Description.Node)
	}
	if ra.AvailableWhen != nil {
		w.line(body, "available when %s", ExprString(*ra.AvailableWhen))
	}
	for _, c := range ra.WithClauses {
		w.line(body, "with %s = %s", paramName(c.Param.Node), ExprString(c.Value))
	}
	for _, c := range ra.SetClauses {
		w.line(body, "set %s = %s", c.Target.FullPath(), ExprString(c.Value))
	}
	for _, run := range ra.RunClauses {
		w.writeStmt(body, run)
	}
	for _, ifc := range ra.IfClauses {
		// Reasoning-action if clauses use the single-line form.
		w.line(body, "if %s: transition to %s", ExprString(*ifc.IfCond), ifc.IfThen[0].TransitionTarget.FullPath())
	}
	if ra.Transition != nil {
		w.line(body, "transition to %s", ra.Transition.FullPath())
	}
}

func targetString(t ast.ReasoningActionTarget) string {
	switch t.Kind {
	case ast.TargetTransitionTo:
		return "@utils.transition to " + t.Ref.FullPath()
	case ast.TargetEscalate:
		return "@utils.escalate"
	case ast.TargetSetVariables:
		return "@utils.setVariables"
	default:
		return t.Ref.FullPath()
	}
}

func (w *writer) writeInstructions(depth int, ins ast.Instructions) {
	switch ins.Kind {
	case ast.InstructionsSimple:
		w.line(depth, "instructions: %q", ins.Simple.Node)
	case ast.InstructionsStatic:
		w.line(depth, "instructions :|")
		for _, l := range ins.Static {
			w.line(depth+1, "| %s", l.Node)
		}
	case ast.InstructionsDynamic:
		w.line(depth, "instructions :->")
		w.writeDynamicParts(depth+1, ins.Dynamic)
	}
}

func (w *writer) writeDynamicParts(depth int, parts []ast.Spanned[ast.InstructionPart]) {
	for _, sp := range parts {
		part := sp.Node
		switch part.Kind {
		case ast.PartText:
			w.writeTextPart(depth, part.Text)
		case ast.PartInterpolation:
			w.line(depth, "| {!%s}", ExprString(*part.Interpolation))
		case ast.PartConditional:
			w.line(depth, "if %s:", ExprString(*part.Cond))
			w.writeDynamicParts(depth+1, part.ThenParts)
			if len(part.ElseParts) > 0 {
				w.line(depth, "else:")
				w.writeDynamicParts(depth+1, part.ElseParts)
			}
		}
	}
}

// writeTextPart emits one Text part as a pipe line, turning embedded
// newlines (continuation joins) back into an indented continuation block.
func (w *writer) writeTextPart(depth int, text string) {
	lines := strings.Split(text, "\n")
	w.line(depth, "| %s", lines[0])
	for _, cont := range lines[1:] {
		w.line(depth+1, "| %s", cont)
	}
}

func boolLit(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

var typeNames = map[ast.TypeTag]string{
	ast.TypeString:    "string",
	ast.TypeNumber:    "number",
	ast.TypeBoolean:   "boolean",
	ast.TypeObject:    "object",
	ast.TypeDate:      "date",
	ast.TypeTimestamp: "timestamp",
	ast.TypeCurrency:  "currency",
	ast.TypeID:        "id",
	ast.TypeDatetime:  "datetime",
	ast.TypeTime:      "time",
	ast.TypeInteger:   "integer",
	ast.TypeLong:      "long",
}

// TypeString renders a Type the way the type grammar reads it.
func TypeString(t ast.Type) string {
	if t.Tag == ast.TypeList {
		if t.Elem == nil {
			return "list[string]"
		}
		return "list[" + TypeString(*t.Elem) + "]"
	}
	return typeNames[t.Tag]
}

// Operator precedence levels, low to high, matching the expression
// grammar: ternary, or, and, is/is-not, comparison, additive, unary,
// postfix, primary.
const (
	precTernary = iota
	precOr
	precAnd
	precIs
	precCmp
	precAdd
	precUnary
	precPostfix
	precPrimary
)

var binOpInfo = map[ast.BinOpKind]struct {
	text string
	prec int
}{
	ast.BinOr:    {"or", precOr},
	ast.BinAnd:   {"and", precAnd},
	ast.BinIs:    {"is", precIs},
	ast.BinIsNot: {"is not", precIs},
	ast.BinEq:    {"==", precCmp},
	ast.BinNe:    {"!=", precCmp},
	ast.BinLt:    {"<", precCmp},
	ast.BinGt:    {">", precCmp},
	ast.BinLe:    {"<=", precCmp},
	ast.BinGe:    {">=", precCmp},
	ast.BinAdd:   {"+", precAdd},
	ast.BinSub:   {"-", precAdd},
}

// ExprString renders an expression with the minimum parenthesization that
// preserves its parse.
func ExprString(e ast.Expr) string {
	return exprAt(e, precTernary)
}

func exprAt(e ast.Expr, min int) string {
	text, prec := exprText(e)
	if prec < min {
		return "(" + text + ")"
	}
	return text
}

func exprText(e ast.Expr) (string, int) {
	switch e.Kind {
	case ast.ExprReference:
		return e.Reference.FullPath(), precPrimary
	case ast.ExprString:
		return "\"" + e.StringValue + "\"", precPrimary
	case ast.ExprNumber:
		return strconv.FormatFloat(e.NumberValue, 'f', -1, 64), precPrimary
	case ast.ExprBool:
		return boolLit(e.BoolValue), precPrimary
	case ast.ExprNone:
		return "None", precPrimary
	case ast.ExprList:
		elems := make([]string, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = exprAt(el, precTernary)
		}
		return "[" + strings.Join(elems, ", ") + "]", precPrimary
	case ast.ExprObject:
		// Object literals only arise via deserialization; rendered for
		// debugging output, never re-parsed from source.
		entries := make([]string, len(e.ObjectEntries))
		for i, entry := range e.ObjectEntries {
			entries[i] = entry.Key + ": " + exprAt(entry.Value, precTernary)
		}
		return "{" + strings.Join(entries, ", ") + "}", precPrimary
	case ast.ExprBinOp:
		info := binOpInfo[e.BinOp]
		leftMin := info.prec
		if e.BinOp == ast.BinIs || e.BinOp == ast.BinIsNot {
			// `is` is non-associative: a nested `is` on either side only
			// arises from parentheses, so re-parenthesize it.
			leftMin = info.prec + 1
		}
		left := exprAt(*e.Left, leftMin)
		right := exprAt(*e.Right, info.prec+1)
		return left + " " + info.text + " " + right, info.prec
	case ast.ExprUnaryOp:
		if e.UnaryOp == ast.UnaryNot {
			return "not " + exprAt(*e.Operand, precUnary), precUnary
		}
		return "-" + exprAt(*e.Operand, precUnary), precUnary
	case ast.ExprTernary:
		then := exprAt(*e.TernaryThen, precOr)
		cond := exprAt(*e.TernaryCond, precOr)
		els := exprAt(*e.TernaryElse, precTernary)
		return then + " if " + cond + " else " + els, precTernary
	case ast.ExprProperty:
		return exprAt(*e.PropertyBase, precPostfix) + "." + e.PropertyName, precPostfix
	case ast.ExprIndex:
		return exprAt(*e.IndexBase, precPostfix) + "[" + exprAt(*e.IndexValue, precTernary) + "]", precPostfix
	default:
		return "None", precPrimary
	}
}
