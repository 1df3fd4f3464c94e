package parser

import (
	"agentscript/internal/ast"
	"agentscript/internal/lexer"
)

// toplevelRecoveryKinds are the token kinds the skip-then-retry recovery
// policy resynchronizes on after a top-level block fails (§4.6).
var toplevelRecoveryKinds = []lexer.Kind{
	lexer.KwTopic, lexer.KwStartAgent, lexer.KwConfig,
	lexer.KwVariables, lexer.KwSystem, lexer.KwLanguage, lexer.KwConnection,
}

func atToplevelRecoveryPoint(k lexer.Kind) bool {
	for _, want := range toplevelRecoveryKinds {
		if k == want {
			return true
		}
	}
	return false
}

// atToplevelBlockStart reports whether k opens a recognized top-level
// block. This is the full set (§3.4), two wider than the skip-then-retry
// resync set in §4.6, which omits `knowledge` and the legacy `connections`.
func atToplevelBlockStart(k lexer.Kind) bool {
	return atToplevelRecoveryPoint(k) || k == lexer.KwKnowledge || k == lexer.KwConnections
}

// Parse lexes and parses source strictly: any parse error aborts with the
// (possibly partial) AST plus the full error list, with no skip-then-retry
// recovery between top-level blocks.
func Parse(source string) (*ast.AgentFile, []Error) {
	return parseSource(source, false)
}

// ParsePartial behaves like Parse but applies skip-then-retry recovery at
// top-level block boundaries, so a single malformed block does not abort
// the whole parse (§4.6).
func ParsePartial(source string) (*ast.AgentFile, []Error) {
	return parseSource(source, true)
}

func parseSource(source string, recover bool) (*ast.AgentFile, []Error) {
	toks, lexErr := lexer.Lex(source)
	if lexErr != nil {
		return nil, []Error{{Message: lexErr.Message, Span: lexErr.Span}}
	}
	p := newParser(source, toks)
	file := p.parseFile(recover)
	return file, p.errors
}

// parseFile composes the top-level block parsers over any permutation of
// top-level blocks (§4.6). Single-instance blocks (config, variables,
// system, knowledge, language, start_agent) are recorded once each;
// connections and topics accumulate as ordered lists.
func (p *parser) parseFile(recover bool) *ast.AgentFile {
	file := &ast.AgentFile{}
	p.skipToplevelNoise()
	for !p.at(lexer.EOF) {
		startPos := p.pos
		ok := p.parseToplevelBlock(file)
		if !ok {
			if !atToplevelBlockStart(p.cur().Kind) {
				p.recordError([]string{"config", "variables", "system", "knowledge", "language", "connection", "start_agent", "topic"})
			}
			if !recover {
				break
			}
			p.recoverToNextToplevelBlock()
			if p.pos == startPos {
				// Nothing recognized as a resync point; avoid spinning.
				p.advance()
			}
		}
		p.skipToplevelNoise()
	}
	if !p.at(lexer.EOF) {
		p.recordError([]string{"end of input"})
	}
	return file
}

// parseToplevelBlock dispatches on the current keyword and records the
// parsed block into file. Returns false if the current token does not
// start a recognized top-level block, or if the block body panicked with
// bail (caught here so the caller can apply recovery).
func (p *parser) parseToplevelBlock(file *ast.AgentFile) (ok bool) {
	if !atToplevelBlockStart(p.cur().Kind) {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			if _, isBail := r.(bail); !isBail {
				panic(r)
			}
			ok = false
		}
	}()

	switch p.cur().Kind {
	case lexer.KwConfig:
		b := p.parseConfigBlock()
		file.Config = &b
	case lexer.KwVariables:
		file.Variables = append(file.Variables, p.parseVariablesBlock()...)
	case lexer.KwSystem:
		b := p.parseSystemBlock()
		file.System = &b
	case lexer.KwLanguage:
		b := p.parseLanguageBlock()
		file.Language = &b
	case lexer.KwConnection, lexer.KwConnections:
		b := p.parseConnectionBlock()
		file.Connections = append(file.Connections, b)
	case lexer.KwKnowledge:
		b := p.parseKnowledgeBlock()
		file.Knowledge = &b
	case lexer.KwStartAgent:
		b := p.parseStartAgentBlock()
		file.StartAgent = &b
	case lexer.KwTopic:
		b := p.parseTopicBlock()
		file.Topics = append(file.Topics, b)
	default:
		return false
	}
	return true
}

// recoverToNextToplevelBlock implements skip-then-retry: consume tokens one
// by one until the next token is a top-level recovery keyword or EOF (§4.6).
func (p *parser) recoverToNextToplevelBlock() {
	for !p.at(lexer.EOF) && !atToplevelRecoveryPoint(p.cur().Kind) {
		p.advance()
	}
}
