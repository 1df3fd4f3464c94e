package parser

import (
	"strings"

	"agentscript/internal/ast"
	"agentscript/internal/lexer"
	"agentscript/internal/logging"
)

// parseInstructions dispatches on the token immediately following
// `instructions` to produce one of the three forms (§4.5): Simple
// (`instructions: "..."`), Static (`instructions :|`), or Dynamic
// (`instructions :->` / `instructions : ->`).
func (p *parser) parseInstructions() ast.Instructions {
	p.expect(lexer.KwInstructions)
	switch {
	case p.at(lexer.ColonPipe):
		p.advance()
		raw := p.collectRawBlock()
		return ast.Instructions{Kind: ast.InstructionsStatic, Static: p.parseStaticLines(raw)}
	case p.at(lexer.ColonArrow):
		p.advance()
		raw := p.collectRawBlock()
		return ast.Instructions{Kind: ast.InstructionsDynamic, Dynamic: p.parseDynamicBody(raw)}
	case p.at(lexer.Colon):
		p.advance()
		if p.at(lexer.Arrow) {
			p.advance()
			raw := p.collectRawBlock()
			return ast.Instructions{Kind: ast.InstructionsDynamic, Dynamic: p.parseDynamicBody(raw)}
		}
		str := p.spannedString()
		return ast.Instructions{Kind: ast.InstructionsSimple, Simple: str}
	default:
		p.fatal([]string{"':'", "':|'", "':->'"})
		return ast.Instructions{}
	}
}

// collectRawBlock consumes `Newline skip_block_noise Indent`, then returns
// every token inside the block up to (but not including) the matching
// outer Dedent, which is also consumed. Nested Indent/Dedent pairs are
// included verbatim as opaque content (§4.5).
func (p *parser) collectRawBlock() []lexer.Token {
	p.expect(lexer.Newline)
	p.skipBlockNoise()
	p.expect(lexer.Indent)
	depth := 1
	var toks []lexer.Token
	for {
		if p.at(lexer.EOF) {
			p.fatal([]string{"dedent"})
			return toks
		}
		tok := p.cur()
		if tok.Kind == lexer.Indent {
			depth++
		}
		if tok.Kind == lexer.Dedent {
			depth--
			if depth == 0 {
				p.advance()
				return toks
			}
		}
		toks = append(toks, tok)
		p.advance()
	}
}

// splitLines groups a flat token slice into per-source-line slices,
// dropping Comment/Indent/Dedent noise and using Newline as the separator.
func splitLines(toks []lexer.Token) [][]lexer.Token {
	var lines [][]lexer.Token
	var cur []lexer.Token
	for _, t := range toks {
		switch t.Kind {
		case lexer.Newline:
			if len(cur) > 0 {
				lines = append(lines, cur)
				cur = nil
			}
		case lexer.Comment, lexer.Indent, lexer.Dedent:
			// dropped
		default:
			cur = append(cur, t)
		}
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}
	return lines
}

// parseStaticLines implements the Static post-processing rule (§4.5): if
// any line begins with `|`, only pipe-prefixed lines become Text entries
// (the pipe itself is stripped); otherwise every non-empty line becomes
// one Text entry.
func (p *parser) parseStaticLines(raw []lexer.Token) []ast.Spanned[string] {
	lines := splitLines(raw)
	hasPipe := false
	for _, l := range lines {
		if len(l) > 0 && l[0].Kind == lexer.Pipe {
			hasPipe = true
			break
		}
	}
	var out []ast.Spanned[string]
	for _, l := range lines {
		if len(l) == 0 {
			continue
		}
		body := l
		if hasPipe {
			if l[0].Kind != lexer.Pipe {
				continue
			}
			body = l[1:]
		}
		if len(body) == 0 {
			continue
		}
		text := joinInstructionTokens(body)
		span := ast.Span{Start: l[0].Span.Start, End: l[len(l)-1].Span.End}
		out = append(out, ast.NewSpanned(text, span))
	}
	return out
}

// tokenLiteral renders the literal text a token contributes to
// reconstructed prompt text. Strings are re-quoted since their Text field
// holds the unescaped inner bytes.
func tokenLiteral(t lexer.Token) string {
	if t.Kind == lexer.String {
		return "\"" + t.Text + "\""
	}
	return t.Text
}

const tightBothChars = ":.,)]}!?"
const tightAfterChars = ":.,)]}!?([{@"

func isSingleCharIn(s, set string) bool {
	return len(s) == 1 && strings.IndexByte(set, s[0]) >= 0
}

// joinInstructionTokens concatenates token texts with single-space
// separators, suppressing the space around `: . , ) ] } ! ?` and after
// `( [ { @` (§4.5).
func joinInstructionTokens(toks []lexer.Token) string {
	var b strings.Builder
	prevTightAfter := false
	for i, t := range toks {
		lit := tokenLiteral(t)
		if i > 0 {
			curTightBoth := isSingleCharIn(lit, tightBothChars)
			if !prevTightAfter && !curTightBoth {
				b.WriteByte(' ')
			}
		}
		b.WriteString(lit)
		prevTightAfter = isSingleCharIn(lit, tightAfterChars)
	}
	return b.String()
}

// dynState is a small cursor over a flat token slice, independent of the
// enclosing parser's own position, used to walk the already-collected raw
// block for Dynamic instructions.
type dynState struct {
	toks []lexer.Token
	pos  int
}

func (d *dynState) cur() lexer.Token {
	if d.pos >= len(d.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return d.toks[d.pos]
}

func (d *dynState) at(k lexer.Kind) bool { return d.cur().Kind == k }

func (d *dynState) advance() lexer.Token {
	t := d.cur()
	if d.pos < len(d.toks) {
		d.pos++
	}
	return t
}

// parseDynamicBody runs the second pass over a collected raw token block,
// producing the InstructionPart sequence (§4.5).
func (p *parser) parseDynamicBody(raw []lexer.Token) []ast.Spanned[ast.InstructionPart] {
	d := &dynState{toks: raw}
	return p.parseDynamicParts(d, 0)
}

// parseDynamicParts consumes parts until the token slice is exhausted or an
// unmatched Dedent is reached (the latter only occurs when called
// recursively from inside an `if` body).
func (p *parser) parseDynamicParts(d *dynState, depth int) []ast.Spanned[ast.InstructionPart] {
	var parts []ast.Spanned[ast.InstructionPart]
	for d.pos < len(d.toks) && !d.at(lexer.Dedent) {
		switch d.cur().Kind {
		case lexer.Newline, lexer.Comment:
			d.advance()
		case lexer.Pipe:
			parts = append(parts, p.parseDynamicPipeLine(d)...)
		case lexer.KwIf:
			if part, ok := p.parseDynamicConditional(d, depth); ok {
				parts = append(parts, part)
			}
		case lexer.KwRun:
			p.skipDynamicRun(d)
		default:
			d.advance()
		}
	}
	return parts
}

// parseDynamicConditional parses `if EXPR : Newline Indent BODY Dedent
// [ else : Newline Indent BODY Dedent ]`. Per the depth guard (§4.5/§9), a
// conditional nested inside another conditional's branch (depth > 0) is
// parsed structurally (to keep the cursor consistent) but discarded.
func (p *parser) parseDynamicConditional(d *dynState, depth int) (ast.Spanned[ast.InstructionPart], bool) {
	startTok := d.advance() // 'if'
	condToks := p.collectCondTokens(d)
	cond := p.parseExprFromTokens(condToks)
	if d.at(lexer.Colon) {
		d.advance()
	}
	for d.at(lexer.Newline) || d.at(lexer.Comment) {
		d.advance()
	}

	lastTok := startTok
	var thenParts, elseParts []ast.Spanned[ast.InstructionPart]
	if d.at(lexer.Indent) {
		d.advance()
		thenParts = p.parseDynamicParts(d, depth+1)
		if d.at(lexer.Dedent) {
			lastTok = d.advance()
		}
	}

	save := d.pos
	for d.at(lexer.Newline) || d.at(lexer.Comment) {
		d.advance()
	}
	if d.at(lexer.KwElse) {
		d.advance()
		if d.at(lexer.Colon) {
			d.advance()
		}
		for d.at(lexer.Newline) || d.at(lexer.Comment) {
			d.advance()
		}
		if d.at(lexer.Indent) {
			d.advance()
			elseParts = p.parseDynamicParts(d, depth+1)
			if d.at(lexer.Dedent) {
				lastTok = d.advance()
			}
		}
	} else {
		d.pos = save
	}

	if depth > 0 {
		logging.Get(logging.CategoryParser).Debug("discarding nested if in dynamic instructions at byte %d (platform limitation)", startTok.Span.Start)
		return ast.Spanned[ast.InstructionPart]{}, false
	}

	part := ast.InstructionPart{Kind: ast.PartConditional, Cond: &cond, ThenParts: thenParts, ElseParts: elseParts}
	return ast.NewSpanned(part, ast.Span{Start: startTok.Span.Start, End: lastTok.Span.End}), true
}

// collectCondTokens gathers the tokens of an `if` condition, stopping
// before the Colon (or a Newline, defensively, if the Colon is missing).
func (p *parser) collectCondTokens(d *dynState) []lexer.Token {
	var toks []lexer.Token
	for d.pos < len(d.toks) && !d.at(lexer.Colon) && !d.at(lexer.Newline) {
		toks = append(toks, d.advance())
	}
	return toks
}

// skipDynamicRun silently discards a `run …` statement and its optional
// indented body: instructions describe, they do not execute (§4.5).
func (p *parser) skipDynamicRun(d *dynState) {
	d.advance() // 'run'
	for d.pos < len(d.toks) && !d.at(lexer.Newline) {
		d.advance()
	}
	save := d.pos
	for d.at(lexer.Newline) || d.at(lexer.Comment) {
		d.advance()
	}
	if !d.at(lexer.Indent) {
		d.pos = save
		return
	}
	d.advance()
	depth := 1
	for depth > 0 && d.pos < len(d.toks) {
		t := d.cur()
		if t.Kind == lexer.Indent {
			depth++
		}
		if t.Kind == lexer.Dedent {
			depth--
			if depth == 0 {
				d.advance()
				break
			}
		}
		d.advance()
	}
}

// parseDynamicPipeLine consumes one `|`-introduced Text line, extracting
// any `{!EXPR}` interpolations, and folds in a following indented
// continuation block (if any) as additional text joined by a newline.
func (p *parser) parseDynamicPipeLine(d *dynState) []ast.Spanned[ast.InstructionPart] {
	pipeTok := d.advance()
	var lineToks []lexer.Token
	for d.pos < len(d.toks) && !d.at(lexer.Newline) && !d.at(lexer.Indent) && !d.at(lexer.Dedent) {
		lineToks = append(lineToks, d.advance())
	}
	parts := p.splitInterpolations(lineToks, pipeTok)

	save := d.pos
	for d.at(lexer.Newline) || d.at(lexer.Comment) {
		d.advance()
	}
	if d.at(lexer.Indent) {
		d.advance()
		var contToks []lexer.Token
		depth := 1
		for depth > 0 && d.pos < len(d.toks) {
			t := d.cur()
			if t.Kind == lexer.Indent {
				depth++
			}
			if t.Kind == lexer.Dedent {
				depth--
				if depth == 0 {
					d.advance()
					break
				}
			}
			contToks = append(contToks, t)
			d.advance()
		}
		contLines := splitLines(contToks)
		var contText strings.Builder
		for i, l := range contLines {
			if i > 0 {
				contText.WriteByte('\n')
			}
			body := l
			if len(l) > 0 && l[0].Kind == lexer.Pipe {
				body = l[1:]
			}
			contText.WriteString(joinInstructionTokens(body))
		}
		if contText.Len() > 0 && len(parts) > 0 && parts[len(parts)-1].Node.Kind == ast.PartText {
			last := &parts[len(parts)-1]
			last.Node.Text += "\n" + contText.String()
			if len(contToks) > 0 {
				last.Span.End = contToks[len(contToks)-1].Span.End
			}
		}
	} else {
		d.pos = save
	}
	return parts
}

// splitInterpolations scans one line's tokens for balanced `{! … }`
// interpolation regions, alternating PartText and PartInterpolation parts.
func (p *parser) splitInterpolations(toks []lexer.Token, pipeTok lexer.Token) []ast.Spanned[ast.InstructionPart] {
	var parts []ast.Spanned[ast.InstructionPart]
	var buf []lexer.Token
	flush := func() {
		if len(buf) == 0 {
			return
		}
		text := joinInstructionTokens(buf)
		span := ast.Span{Start: buf[0].Span.Start, End: buf[len(buf)-1].Span.End}
		parts = append(parts, ast.NewSpanned(ast.InstructionPart{Kind: ast.PartText, Text: text}, span))
		buf = nil
	}

	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.Kind == lexer.BraceBang {
			flush()
			depth := 1
			j := i + 1
			var inner []lexer.Token
			endIdx := j
			for j < len(toks) {
				switch toks[j].Kind {
				case lexer.LBrace, lexer.DoubleLBrace, lexer.BraceBang:
					depth++
					inner = append(inner, toks[j])
				case lexer.RBrace, lexer.DoubleRBrace:
					depth--
					if depth == 0 {
						endIdx = j
						j++
						goto closed
					}
					inner = append(inner, toks[j])
				default:
					inner = append(inner, toks[j])
				}
				j++
			}
			endIdx = len(toks) - 1
		closed:
			expr := p.parseExprFromTokens(inner)
			end := t.Span.End
			if endIdx >= 0 && endIdx < len(toks) {
				end = toks[endIdx].Span.End
			}
			parts = append(parts, ast.NewSpanned(ast.InstructionPart{Kind: ast.PartInterpolation, Interpolation: &expr}, ast.Span{Start: t.Span.Start, End: end}))
			i = j
			continue
		}
		buf = append(buf, t)
		i++
	}
	flush()

	if len(parts) == 0 {
		parts = append(parts, ast.NewSpanned(ast.InstructionPart{Kind: ast.PartText, Text: ""}, pipeTok.Span))
	}
	return parts
}

// parseExprFromTokens parses an expression out of an arbitrary token
// sub-slice (used for interpolations and `if` conditions inside Dynamic
// instructions), isolating any parse failure from the enclosing parse:
// a malformed embedded expression yields a None literal rather than
// aborting the whole instructions block.
func (p *parser) parseExprFromTokens(toks []lexer.Token) (result ast.Expr) {
	sub := &parser{source: p.source, toks: append(append([]lexer.Token{}, toks...), lexer.Token{Kind: lexer.EOF})}
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bail); !ok {
				panic(r)
			}
			result = ast.Expr{Kind: ast.ExprNone}
		}
		p.errors = append(p.errors, sub.errors...)
	}()
	result = sub.parseExpr()
	return
}
