package parser

import (
	"agentscript/internal/ast"
	"agentscript/internal/lexer"
)

// parseConfigBlock parses `config: Newline Indent { entry } Dedent` (§4.3).
// agent_name is mandatory; every other key is optional.
func (p *parser) parseConfigBlock() ast.Spanned[ast.ConfigBlock] {
	start := p.expect(lexer.KwConfig)
	var block ast.ConfigBlock
	var haveName bool
	p.label("config block", start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			switch p.cur().Kind {
			case lexer.Ident:
				switch p.cur().Text {
				case "agent_name":
					p.advance()
					p.expect(lexer.Colon)
					block.AgentName = p.spannedString()
					haveName = true
				case "agent_label":
					p.advance()
					p.expect(lexer.Colon)
					v := p.spannedString()
					block.AgentLabel = &v
				case "agent_type":
					p.advance()
					p.expect(lexer.Colon)
					v := p.spannedString()
					block.AgentType = &v
				case "default_agent_user":
					p.advance()
					p.expect(lexer.Colon)
					v := p.spannedString()
					block.DefaultAgentUser = &v
				default:
					p.fatal([]string{"agent_name", "agent_label", "description", "agent_type", "default_agent_user"})
				}
			case lexer.KwDescription:
				d := p.descriptionEntry()
				block.Description = &d
			default:
				p.fatal([]string{"agent_name", "agent_label", "description", "agent_type", "default_agent_user"})
			}
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	if !haveName {
		p.errors = append(p.errors, Error{
			Message: "config block is missing required 'agent_name'",
			Span:    start.Span,
			Expected: []string{"agent_name"},
		})
	}
	return ast.NewSpanned(block, ast.Span{Start: start.Span.Start, End: p.lastEnd()})
}

func (p *parser) lastEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].Span.End
}

// parseVariablesBlock parses the `variables:` block into an ordered list of
// declarations (§4.3).
func (p *parser) parseVariablesBlock() []ast.Spanned[ast.VariableDecl] {
	start := p.expect(lexer.KwVariables)
	var decls []ast.Spanned[ast.VariableDecl]
	p.label("variables block", start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			decls = append(decls, p.parseVariableDecl())
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	return decls
}

func (p *parser) parseVariableDecl() ast.Spanned[ast.VariableDecl] {
	name := p.spannedIdent()
	p.expect(lexer.Colon)
	kindTok := p.expectAny(lexer.KwMutable, lexer.KwLinked)
	kind := ast.VariableMutable
	if kindTok.Kind == lexer.KwLinked {
		kind = ast.VariableLinked
	}
	ty := p.parseType()

	decl := ast.VariableDecl{Name: name, Kind: kind, Type: ty}
	lastSpanEnd := p.lastEnd()

	if p.at(lexer.Assign) {
		p.advance()
		expr := p.parseExpr()
		lastSpanEnd = expr.Span.End
		if expr.Kind == ast.ExprNone && ty.Tag != ast.TypeBoolean {
			p.errors = append(p.errors, Error{
				Message: "'= None' default is only valid when the declared type is boolean",
				Span:    ast.Span{Start: name.Span.Start, End: expr.Span.End},
			})
		}
		decl.Default = &expr
	}

	if p.at(lexer.Newline) {
		save := p.pos
		p.advance()
		p.skipBlockNoise()
		if p.at(lexer.Indent) {
			p.advance()
			for !p.atBlockEnd() {
				switch p.cur().Kind {
				case lexer.KwDescription:
					d := p.descriptionEntry()
					decl.Description = &d
					lastSpanEnd = d.Span.End
				case lexer.KwSource:
					p.advance()
					p.expect(lexer.Colon)
					ref := p.parseReference()
					decl.Source = &ref
					lastSpanEnd = ref.Span.End
				default:
					p.fatal([]string{"description", "source"})
				}
				p.skipBlockNoise()
			}
			d := p.expect(lexer.Dedent)
			lastSpanEnd = d.Span.End
		} else {
			// No metadata body after all: rewind so the caller's
			// skip_block_noise sees the Newline that separates entries.
			p.pos = save
		}
	}

	return ast.NewSpanned(decl, ast.Span{Start: name.Span.Start, End: lastSpanEnd})
}

// parseSystemBlock parses `system:` with optional `instructions` (simple
// form) and a `messages:` sub-block (§4.3).
func (p *parser) parseSystemBlock() ast.Spanned[ast.SystemBlock] {
	start := p.expect(lexer.KwSystem)
	var block ast.SystemBlock
	p.label("system block", start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			switch p.cur().Kind {
			case lexer.KwInstructions:
				ins := p.parseInstructions()
				block.Instructions = &ins
			case lexer.KwMessages:
				p.parseMessagesBlock(&block)
			default:
				p.fatal([]string{"instructions", "messages"})
			}
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	return ast.NewSpanned(block, ast.Span{Start: start.Span.Start, End: p.lastEnd()})
}

func (p *parser) parseMessagesBlock(block *ast.SystemBlock) {
	start := p.expect(lexer.KwMessages)
	p.label("messages block", start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			switch p.cur().Kind {
			case lexer.KwWelcome:
				p.advance()
				p.expect(lexer.Colon)
				str := p.spannedString()
				ins := ast.Instructions{Kind: ast.InstructionsSimple, Simple: str}
				block.Welcome = &ins
			case lexer.KwError:
				p.advance()
				p.expect(lexer.Colon)
				str := p.spannedString()
				ins := ast.Instructions{Kind: ast.InstructionsSimple, Simple: str}
				block.ErrorMessage = &ins
			default:
				p.fatal([]string{"welcome", "error"})
			}
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
}

// parseConnectionBlock parses `connection <name>:` with an arbitrary ordered
// list of (name, string) entries, preserved verbatim (§4.3). A legacy bare
// `connections:` form is rejected with an actionable error.
func (p *parser) parseConnectionBlock() ast.Spanned[ast.ConnectionBlock] {
	if p.at(lexer.KwConnections) {
		tok := p.advance()
		p.fatalAt(tok.Span, []string{"connection <name>:"})
	}
	start := p.expect(lexer.KwConnection)
	name := p.spannedIdent()
	var block ast.ConnectionBlock
	block.Name = name
	p.label("connection block", start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			key := p.entryKeyToken()
			p.expect(lexer.Colon)
			val := p.spannedString()
			block.Entries = append(block.Entries, ast.KeyValueEntry{Key: key, Value: val})
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	return ast.NewSpanned(block, ast.Span{Start: start.Span.Start, End: p.lastEnd()})
}

// parseKnowledgeBlock parses `knowledge:`, shaped identically to a
// connection block (an ordered list of (name, string) entries).
func (p *parser) parseKnowledgeBlock() ast.Spanned[ast.KnowledgeBlock] {
	start := p.expect(lexer.KwKnowledge)
	var block ast.KnowledgeBlock
	p.label("knowledge block", start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			key := p.entryKeyToken()
			p.expect(lexer.Colon)
			val := p.spannedString()
			block.Entries = append(block.Entries, ast.KeyValueEntry{Key: key, Value: val})
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	return ast.NewSpanned(block, ast.Span{Start: start.Span.Start, End: p.lastEnd()})
}

// parseLanguageBlock parses `language:`, an ordered list of (name, expr)
// entries (e.g. additional_locales: "en_US,fr").
func (p *parser) parseLanguageBlock() ast.Spanned[ast.LanguageBlock] {
	start := p.expect(lexer.KwLanguage)
	var block ast.LanguageBlock
	p.label("language block", start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			key := p.entryKeyToken()
			p.expect(lexer.Colon)
			val := p.parseExpr()
			block.Entries = append(block.Entries, ast.LanguageEntry{Name: key, Value: val})
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	return ast.NewSpanned(block, ast.Span{Start: start.Span.Start, End: p.lastEnd()})
}

// entryKeyToken accepts an identifier or a small set of keywords used as
// entry-key names inside opaque (name, value) blocks.
func (p *parser) entryKeyToken() ast.Spanned[string] {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Ident, lexer.KwDescription, lexer.KwSource, lexer.KwLabel, lexer.KwTarget, lexer.KwAvailable:
		p.advance()
		return ast.NewSpanned(tok.Text, tok.Span)
	}
	p.fatal([]string{"identifier"})
	return ast.Spanned[string]{}
}

// fatalAt records a structured error at an explicit span (used when the
// offending token has already been consumed, e.g. the legacy `connections:`
// rewrite) and unwinds to the nearest recovery point.
func (p *parser) fatalAt(span ast.Span, expected []string) {
	err := Error{
		Message:  "legacy 'connections:' block is no longer supported; use 'connection <name>:' instead, e.g.\n  connection my_service:\n     outbound_route_type: \"OmniChannelFlow\"",
		Span:     span,
		Expected: expected,
	}
	ctxs := make([]ContextEntry, len(p.context))
	copy(ctxs, p.context)
	for i, j := 0, len(ctxs)-1; i < j; i, j = i+1, j-1 {
		ctxs[i], ctxs[j] = ctxs[j], ctxs[i]
	}
	err.Contexts = ctxs
	p.errors = append(p.errors, err)
	panic(bail{})
}
