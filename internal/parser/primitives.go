// Package parser implements the recursive-descent grammar (C2-C5) that
// turns a lexer.Token stream into an *ast.AgentFile.
//
// Mandatory-token failures are reported by recording a structured Error
// and panicking with the internal bail sentinel; bail is recovered at a
// well-defined boundary (a top-level block, in driver.go). ParsePartial
// then resumes at the next top-level block; the strict Parse stops there.
package parser

import (
	"fmt"

	"agentscript/internal/ast"
	"agentscript/internal/lexer"
)

// bail unwinds the current block parse back to the nearest recovery point.
type bail struct{}

type parser struct {
	toks    []lexer.Token
	pos     int
	source  string
	errors  []Error
	context []ContextEntry
}

func newParser(source string, toks []lexer.Token) *parser {
	return &parser{source: source, toks: toks}
}

func (p *parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(off int) lexer.Token {
	idx := p.pos + off
	if idx >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[idx]
}

func (p *parser) at(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *parser) advance() lexer.Token {
	tok := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return tok
}

// label pushes a named context frame for the duration of fn, so any error
// raised within fn carries this label in its context chain (§4.6).
func (p *parser) label(name string, span ast.Span, fn func()) {
	p.context = append(p.context, ContextEntry{Label: name, Span: span})
	defer func() { p.context = p.context[:len(p.context)-1] }()
	fn()
}

func (p *parser) recordError(expected []string) Error {
	tok := p.cur()
	found := lexer.KindName(tok.Kind)
	if tok.Kind == lexer.Ident || tok.Kind == lexer.UnicodeText {
		found = fmt.Sprintf("%q", tok.Text)
	}
	ctxs := make([]ContextEntry, len(p.context))
	copy(ctxs, p.context)
	// Reverse so contexts[0] is the innermost labelled alternative (§8 invariant).
	for i, j := 0, len(ctxs)-1; i < j; i, j = i+1, j-1 {
		ctxs[i], ctxs[j] = ctxs[j], ctxs[i]
	}
	err := Error{
		Message:  fmt.Sprintf("Parse error at line %d, column %d: found %s", ast.OffsetToLineCol(p.source, tok.Span.Start).Line, ast.OffsetToLineCol(p.source, tok.Span.Start).Column, found),
		Span:     tok.Span,
		Expected: expected,
		Found:    found,
		Contexts: ctxs,
	}
	p.errors = append(p.errors, err)
	return err
}

// fatal records a structured error and unwinds to the nearest recovery point.
func (p *parser) fatal(expected []string) {
	p.recordError(expected)
	panic(bail{})
}

func (p *parser) expect(k lexer.Kind) lexer.Token {
	if p.at(k) {
		return p.advance()
	}
	p.fatal([]string{lexer.KindName(k)})
	return lexer.Token{}
}

func (p *parser) expectAny(ks ...lexer.Kind) lexer.Token {
	for _, k := range ks {
		if p.at(k) {
			return p.advance()
		}
	}
	names := make([]string, len(ks))
	for i, k := range ks {
		names[i] = lexer.KindName(k)
	}
	p.fatal(names)
	return lexer.Token{}
}

// skipBlockNoise consumes zero or more Newline/Comment tokens.
func (p *parser) skipBlockNoise() {
	for p.at(lexer.Newline) || p.at(lexer.Comment) {
		p.advance()
	}
}

// skipToplevelNoise consumes zero or more Newline/Comment/Dedent tokens,
// absorbing trailing Dedents between top-level blocks (§4.2).
func (p *parser) skipToplevelNoise() {
	for p.at(lexer.Newline) || p.at(lexer.Comment) || p.at(lexer.Dedent) {
		p.advance()
	}
}

func (p *parser) spannedIdent() ast.Spanned[string] {
	tok := p.expect(lexer.Ident)
	return ast.NewSpanned(tok.Text, tok.Span)
}

func (p *parser) spannedString() ast.Spanned[string] {
	tok := p.expect(lexer.String)
	return ast.NewSpanned(tok.Text, tok.Span)
}

func (p *parser) spannedNumber() ast.Spanned[float64] {
	tok := p.expect(lexer.Number)
	return ast.NewSpanned(tok.Num, tok.Span)
}

func (p *parser) spannedBool() ast.Spanned[bool] {
	tok := p.expectAny(lexer.True, lexer.False)
	return ast.NewSpanned(tok.Kind == lexer.True, tok.Span)
}

// descriptionEntry parses `description: "..."`.
func (p *parser) descriptionEntry() ast.Spanned[string] {
	start := p.expect(lexer.KwDescription)
	p.expect(lexer.Colon)
	str := p.spannedString()
	return ast.NewSpanned(str.Node, ast.Span{Start: start.Span.Start, End: str.Span.End})
}

// blockPrologue consumes `":" Newline skip_block_noise Indent` after the
// caller has already consumed the block keyword (and optional name).
func (p *parser) blockPrologue() {
	p.expect(lexer.Colon)
	p.expect(lexer.Newline)
	p.skipBlockNoise()
	p.expect(lexer.Indent)
}

// blockEpilogue consumes `skip_block_noise Dedent`, closing a block opened
// with blockPrologue.
func (p *parser) blockEpilogue() {
	p.skipBlockNoise()
	p.expect(lexer.Dedent)
}

// atBlockEnd reports whether the current token ends the current indented
// block (Dedent or EOF).
func (p *parser) atBlockEnd() bool {
	return p.at(lexer.Dedent) || p.at(lexer.EOF)
}
