package parser

import (
	"agentscript/internal/ast"
	"agentscript/internal/lexer"
)

// parseSystemOverride parses a topic/start_agent-scoped `system:` block,
// which accepts only `instructions` (no messages sub-block) (§3.4).
func (p *parser) parseSystemOverride() ast.Instructions {
	start := p.expect(lexer.KwSystem)
	var ins ast.Instructions
	p.label("system override", start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			switch p.cur().Kind {
			case lexer.KwInstructions:
				ins = p.parseInstructions()
			default:
				p.fatal([]string{"instructions"})
			}
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	return ins
}

// parseDirectiveBlock parses `before_reasoning:`/`after_reasoning:` into an
// ordered list of statements (§3.4/§4.3).
func (p *parser) parseDirectiveBlock(kw lexer.Kind, label string) ast.Spanned[ast.DirectiveBlock] {
	start := p.expect(kw)
	var block ast.DirectiveBlock
	p.label(label, start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			block.Stmts = append(block.Stmts, p.parseStmt())
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	return ast.NewSpanned(block, ast.Span{Start: start.Span.Start, End: p.lastEnd()})
}

// parseStmt parses one directive-block statement: Set, Run, If, or Transition (§3.4).
func (p *parser) parseStmt() ast.Stmt {
	switch p.cur().Kind {
	case lexer.KwSet:
		return p.parseSetStmt()
	case lexer.KwRun:
		return p.parseRunStmt()
	case lexer.KwIf:
		return p.parseIfStmt()
	case lexer.KwTransition:
		return p.parseTransitionStmt()
	default:
		p.fatal([]string{"set", "run", "if", "transition"})
		return ast.Stmt{}
	}
}

func (p *parser) parseSetStmt() ast.Stmt {
	start := p.expect(lexer.KwSet)
	ref := p.parseReference()
	p.expect(lexer.Assign)
	val := p.parseExpr()
	return ast.Stmt{Kind: ast.StmtSet, Span: ast.Span{Start: start.Span.Start, End: val.Span.End}, SetTarget: &ref, SetValue: &val}
}

func (p *parser) parseWithClause() ast.WithClause {
	p.expect(lexer.KwWith)
	name := p.paramName()
	p.expect(lexer.Assign)
	val := p.parseExpr()
	return ast.WithClause{Param: name, Value: val}
}

func (p *parser) parseSetClause() ast.SetClause {
	p.expect(lexer.KwSet)
	ref := p.parseReference()
	p.expect(lexer.Assign)
	val := p.parseExpr()
	return ast.SetClause{Target: ref, Value: val}
}

// parseRunStmt parses `run <action-ref> [ indented with/set clauses ]`,
// shared between directive blocks and reasoning-action bodies (§4.4).
func (p *parser) parseRunStmt() ast.Stmt {
	start := p.expect(lexer.KwRun)
	actionRef := p.parseReference()
	stmt := ast.Stmt{Kind: ast.StmtRun, Span: ast.Span{Start: start.Span.Start, End: actionRef.Span.End}, RunAction: &actionRef}

	if p.at(lexer.Newline) {
		save := p.pos
		p.advance()
		p.skipBlockNoise()
		if p.at(lexer.Indent) {
			p.advance()
			for !p.atBlockEnd() {
				switch p.cur().Kind {
				case lexer.KwWith:
					stmt.RunWithClauses = append(stmt.RunWithClauses, p.parseWithClause())
				case lexer.KwSet:
					stmt.RunSetClauses = append(stmt.RunSetClauses, p.parseSetClause())
				default:
					p.fatal([]string{"with", "set"})
				}
				p.skipBlockNoise()
			}
			d := p.expect(lexer.Dedent)
			stmt.Span.End = d.Span.End
		} else {
			p.pos = save
		}
	}
	return stmt
}

// parseIfStmt parses the full directive-block `if` form: `if EXPR : Newline
// Indent BODY Dedent [ else : Newline Indent BODY Dedent ]` (§3.4).
func (p *parser) parseIfStmt() ast.Stmt {
	start := p.expect(lexer.KwIf)
	cond := p.parseExpr()
	p.expect(lexer.Colon)
	p.expect(lexer.Newline)
	p.skipBlockNoise()
	p.expect(lexer.Indent)

	var thenStmts []ast.Stmt
	for !p.atBlockEnd() {
		thenStmts = append(thenStmts, p.parseStmt())
		p.skipBlockNoise()
	}
	end := p.expect(lexer.Dedent).Span.End

	var elseStmts []ast.Stmt
	save := p.pos
	p.skipBlockNoise()
	if p.at(lexer.KwElse) {
		p.advance()
		p.expect(lexer.Colon)
		p.expect(lexer.Newline)
		p.skipBlockNoise()
		p.expect(lexer.Indent)
		for !p.atBlockEnd() {
			elseStmts = append(elseStmts, p.parseStmt())
			p.skipBlockNoise()
		}
		end = p.expect(lexer.Dedent).Span.End
	} else {
		p.pos = save
	}

	return ast.Stmt{Kind: ast.StmtIf, Span: ast.Span{Start: start.Span.Start, End: end}, IfCond: &cond, IfThen: thenStmts, IfElse: elseStmts}
}

func (p *parser) parseTransitionStmt() ast.Stmt {
	start := p.expect(lexer.KwTransition)
	p.expect(lexer.KwTo)
	ref := p.parseReference()
	return ast.Stmt{Kind: ast.StmtTransition, Span: ast.Span{Start: start.Span.Start, End: ref.Span.End}, TransitionTarget: &ref}
}

// parseReasoningIfClause parses the simpler, single-line reasoning-action
// `if` form: `if expr : transition to <ref>` (§4.4).
func (p *parser) parseReasoningIfClause() ast.Stmt {
	start := p.expect(lexer.KwIf)
	cond := p.parseExpr()
	p.expect(lexer.Colon)
	transStart := p.expect(lexer.KwTransition)
	p.expect(lexer.KwTo)
	ref := p.parseReference()
	thenStmt := ast.Stmt{Kind: ast.StmtTransition, Span: ast.Span{Start: transStart.Span.Start, End: ref.Span.End}, TransitionTarget: &ref}
	return ast.Stmt{Kind: ast.StmtIf, Span: ast.Span{Start: start.Span.Start, End: ref.Span.End}, IfCond: &cond, IfThen: []ast.Stmt{thenStmt}}
}

// parseReasoningBlock parses `reasoning:` with optional instructions and an
// optional `actions:` menu (§3.4/§4.4).
func (p *parser) parseReasoningBlock() ast.Spanned[ast.ReasoningBlock] {
	start := p.expect(lexer.KwReasoning)
	var block ast.ReasoningBlock
	p.label("reasoning block", start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			switch p.cur().Kind {
			case lexer.KwInstructions:
				ins := p.parseInstructions()
				block.Instructions = &ins
			case lexer.KwActions:
				block.Actions = p.parseReasoningActionsBlock()
			default:
				p.fatal([]string{"instructions", "actions"})
			}
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	return ast.NewSpanned(block, ast.Span{Start: start.Span.Start, End: p.lastEnd()})
}

// parseReasoningActionsBlock parses the reasoning block's `actions:` menu.
// An empty menu is forbidden (§4.3).
func (p *parser) parseReasoningActionsBlock() []ast.Spanned[ast.ReasoningAction] {
	start := p.expect(lexer.KwActions)
	var actions []ast.Spanned[ast.ReasoningAction]
	p.label("reasoning actions", start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			actions = append(actions, p.parseReasoningAction())
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	if len(actions) == 0 {
		p.errors = append(p.errors, Error{Message: "actions block cannot be empty", Span: start.Span})
	}
	return actions
}

func (p *parser) parseReasoningAction() ast.Spanned[ast.ReasoningAction] {
	name := p.spannedIdent()
	p.expect(lexer.Colon)
	target := p.parseReasoningActionTarget()

	ra := ast.ReasoningAction{Name: name, Target: target}
	p.label("reasoning action '"+name.Node+"'", name.Span, func() {
		if !p.at(lexer.Newline) {
			return
		}
		save := p.pos
		p.advance()
		p.skipBlockNoise()
		if !p.at(lexer.Indent) {
			p.pos = save
			return
		}
		p.advance()
		for !p.atBlockEnd() {
			switch p.cur().Kind {
			case lexer.KwDescription:
				d := p.descriptionEntry()
				ra.Description = &d
			case lexer.KwWith:
				ra.WithClauses = append(ra.WithClauses, p.parseWithClause())
			case lexer.KwSet:
				ra.SetClauses = append(ra.SetClauses, p.parseSetClause())
			case lexer.KwAvailable:
				p.advance()
				p.expect(lexer.KwWhen)
				expr := p.parseExpr()
				ra.AvailableWhen = &expr
			case lexer.KwRun:
				ra.RunClauses = append(ra.RunClauses, p.parseRunStmt())
			case lexer.KwIf:
				ra.IfClauses = append(ra.IfClauses, p.parseReasoningIfClause())
			case lexer.KwTransition:
				p.advance()
				p.expect(lexer.KwTo)
				ref := p.parseReference()
				ra.Transition = &ref
			default:
				p.fatal([]string{"description", "with", "set", "available", "run", "if", "transition"})
			}
			p.skipBlockNoise()
		}
		p.expect(lexer.Dedent)
	})
	return ast.NewSpanned(ra, ast.Span{Start: name.Span.Start, End: p.lastEnd()})
}

// parseReasoningActionTarget classifies the reference following the
// reasoning action's name/colon into one of the five target kinds (§4.4).
func (p *parser) parseReasoningActionTarget() ast.ReasoningActionTarget {
	ref := p.parseReference()
	switch {
	case ref.Namespace == "utils" && len(ref.Path) > 0 && ref.Path[0] == "transition":
		p.expect(lexer.KwTo)
		to := p.parseReference()
		return ast.ReasoningActionTarget{Kind: ast.TargetTransitionTo, Ref: &to}
	case ref.Namespace == "utils" && len(ref.Path) > 0 && ref.Path[0] == "escalate":
		return ast.ReasoningActionTarget{Kind: ast.TargetEscalate}
	case ref.Namespace == "utils" && len(ref.Path) > 0 && ref.Path[0] == "setVariables":
		return ast.ReasoningActionTarget{Kind: ast.TargetSetVariables}
	case ref.Namespace == "topic":
		r := ref
		return ast.ReasoningActionTarget{Kind: ast.TargetTopicDelegate, Ref: &r}
	case ref.Namespace == "actions":
		r := ref
		return ast.ReasoningActionTarget{Kind: ast.TargetAction, Ref: &r}
	default:
		p.errors = append(p.errors, Error{Message: "unrecognized reasoning action target '" + ref.FullPath() + "'", Span: ref.Span})
		r := ref
		return ast.ReasoningActionTarget{Kind: ast.TargetAction, Ref: &r}
	}
}

// parseTopicBody parses the entries shared by topic and start_agent blocks.
func (p *parser) parseTopicBody(description **ast.Spanned[string], system **ast.Instructions, actions *[]ast.Spanned[ast.ActionDef], before, after **ast.Spanned[ast.DirectiveBlock], reasoning **ast.Spanned[ast.ReasoningBlock]) {
	for !p.atBlockEnd() {
		switch p.cur().Kind {
		case lexer.KwDescription:
			d := p.descriptionEntry()
			*description = &d
		case lexer.KwSystem:
			ins := p.parseSystemOverride()
			*system = &ins
		case lexer.KwActions:
			a := p.parseActionsBlock()
			*actions = a.Node
		case lexer.KwBeforeReasoning:
			b := p.parseDirectiveBlock(lexer.KwBeforeReasoning, "before_reasoning block")
			*before = &b
		case lexer.KwAfterReasoning:
			a := p.parseDirectiveBlock(lexer.KwAfterReasoning, "after_reasoning block")
			*after = &a
		case lexer.KwReasoning:
			r := p.parseReasoningBlock()
			*reasoning = &r
		default:
			p.fatal([]string{"description", "system", "actions", "before_reasoning", "after_reasoning", "reasoning"})
		}
		p.skipBlockNoise()
	}
}

func (p *parser) parseTopicBlock() ast.Spanned[ast.TopicBlock] {
	start := p.expect(lexer.KwTopic)
	name := p.spannedIdent()
	var tb ast.TopicBlock
	tb.Name = name
	p.label("topic '"+name.Node+"'", start.Span, func() {
		p.blockPrologue()
		p.parseTopicBody(&tb.Description, &tb.System, &tb.Actions, &tb.BeforeReasoning, &tb.AfterReasoning, &tb.Reasoning)
		p.blockEpilogue()
	})
	return ast.NewSpanned(tb, ast.Span{Start: start.Span.Start, End: p.lastEnd()})
}

func (p *parser) parseStartAgentBlock() ast.Spanned[ast.StartAgentBlock] {
	start := p.expect(lexer.KwStartAgent)
	var sb ast.StartAgentBlock
	p.label("start_agent block", start.Span, func() {
		p.blockPrologue()
		p.parseTopicBody(&sb.Description, &sb.System, &sb.Actions, &sb.BeforeReasoning, &sb.AfterReasoning, &sb.Reasoning)
		p.blockEpilogue()
	})
	return ast.NewSpanned(sb, ast.Span{Start: start.Span.Start, End: p.lastEnd()})
}
