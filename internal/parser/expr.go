package parser

import (
	"agentscript/internal/ast"
	"agentscript/internal/lexer"
)

var namespaceKinds = []lexer.Kind{lexer.Ident, lexer.KwVariables, lexer.KwActions, lexer.KwOutputs, lexer.KwTopic, lexer.KwInputs}

// pathSegmentKinds are the token kinds accepted as a `.`-separated path
// element after a reference's namespace: plain identifiers plus the small
// set of keyword-valued names used in fixed phrases like
// `@utils.transition to @topic.X` (§4.2).
var pathSegmentKinds = []lexer.Kind{lexer.Ident, lexer.KwTransition, lexer.KwTo, lexer.KwRun, lexer.KwSet}

func (p *parser) parseReference() ast.Reference {
	at := p.expect(lexer.At)
	ns := p.expectAny(namespaceKinds...)
	end := ns.Span.End
	var path []string
	for p.at(lexer.Dot) {
		p.advance()
		seg := p.expectAny(pathSegmentKinds...)
		path = append(path, seg.Text)
		end = seg.Span.End
	}
	return ast.Reference{Namespace: ns.Text, Path: path, Span: ast.Span{Start: at.Span.Start, End: end}}
}

var typeTagByKind = map[lexer.Kind]ast.TypeTag{
	lexer.TypeString:    ast.TypeString,
	lexer.TypeNumber:    ast.TypeNumber,
	lexer.TypeBoolean:   ast.TypeBoolean,
	lexer.TypeObject:    ast.TypeObject,
	lexer.TypeDate:      ast.TypeDate,
	lexer.TypeTimestamp: ast.TypeTimestamp,
	lexer.TypeCurrency:  ast.TypeCurrency,
	lexer.TypeID:        ast.TypeID,
	lexer.TypeDatetime:  ast.TypeDatetime,
	lexer.TypeTime:      ast.TypeTime,
	lexer.TypeInteger:   ast.TypeInteger,
	lexer.TypeLong:      ast.TypeLong,
}

func (p *parser) parseType() ast.Type {
	if p.at(lexer.TypeList) {
		p.advance()
		p.expect(lexer.LBracket)
		elem := p.parseType()
		p.expect(lexer.RBracket)
		return ast.Type{Tag: ast.TypeList, Elem: &elem}
	}
	if tag, ok := typeTagByKind[p.cur().Kind]; ok {
		p.advance()
		return ast.Type{Tag: tag}
	}
	p.fatal([]string{"type name"})
	return ast.Type{}
}

// parseExpr implements the precedence-climbing expression grammar of §3.4,
// with the value-first Ternary wrapped around the whole Or-level expression.
func (p *parser) parseExpr() ast.Expr {
	then := p.parseOr()
	if p.at(lexer.KwIf) {
		start := then.Span.Start
		p.advance()
		cond := p.parseOr()
		p.expect(lexer.KwElse)
		elseExpr := p.parseExpr()
		return ast.Expr{
			Kind:        ast.ExprTernary,
			Span:        ast.Span{Start: start, End: elseExpr.Span.End},
			TernaryCond: &cond,
			TernaryThen: &then,
			TernaryElse: &elseExpr,
		}
	}
	return then
}

func (p *parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.at(lexer.KwOr) {
		p.advance()
		right := p.parseAnd()
		lhs := left
		left = ast.Expr{Kind: ast.ExprBinOp, BinOp: ast.BinOr, Left: &lhs, Right: &right, Span: ast.Span{Start: lhs.Span.Start, End: right.Span.End}}
	}
	return left
}

func (p *parser) parseAnd() ast.Expr {
	left := p.parseIsLevel()
	for p.at(lexer.KwAnd) {
		p.advance()
		right := p.parseIsLevel()
		lhs := left
		left = ast.Expr{Kind: ast.ExprBinOp, BinOp: ast.BinAnd, Left: &lhs, Right: &right, Span: ast.Span{Start: lhs.Span.Start, End: right.Span.End}}
	}
	return left
}

func (p *parser) parseIsLevel() ast.Expr {
	left := p.parseComparison()
	if p.at(lexer.KwIs) {
		p.advance()
		op := ast.BinIs
		if p.at(lexer.KwNot) {
			p.advance()
			op = ast.BinIsNot
		}
		right := p.parseComparison()
		lhs := left
		left = ast.Expr{Kind: ast.ExprBinOp, BinOp: op, Left: &lhs, Right: &right, Span: ast.Span{Start: lhs.Span.Start, End: right.Span.End}}
	}
	return left
}

var comparisonOps = map[lexer.Kind]ast.BinOpKind{
	lexer.Eq: ast.BinEq,
	lexer.Ne: ast.BinNe,
	lexer.Lt: ast.BinLt,
	lexer.Gt: ast.BinGt,
	lexer.Le: ast.BinLe,
	lexer.Ge: ast.BinGe,
}

func (p *parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	for {
		op, ok := comparisonOps[p.cur().Kind]
		if !ok {
			break
		}
		p.advance()
		right := p.parseAdditive()
		lhs := left
		left = ast.Expr{Kind: ast.ExprBinOp, BinOp: op, Left: &lhs, Right: &right, Span: ast.Span{Start: lhs.Span.Start, End: right.Span.End}}
	}
	return left
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseUnary()
	for p.at(lexer.Plus) || p.at(lexer.Minus) {
		op := ast.BinAdd
		if p.at(lexer.Minus) {
			op = ast.BinSub
		}
		p.advance()
		right := p.parseUnary()
		lhs := left
		left = ast.Expr{Kind: ast.ExprBinOp, BinOp: op, Left: &lhs, Right: &right, Span: ast.Span{Start: lhs.Span.Start, End: right.Span.End}}
	}
	return left
}

func (p *parser) parseUnary() ast.Expr {
	if p.at(lexer.KwNot) {
		start := p.advance()
		operand := p.parseUnary()
		return ast.Expr{Kind: ast.ExprUnaryOp, UnaryOp: ast.UnaryNot, Operand: &operand, Span: ast.Span{Start: start.Span.Start, End: operand.Span.End}}
	}
	if p.at(lexer.Minus) {
		start := p.advance()
		operand := p.parseUnary()
		return ast.Expr{Kind: ast.ExprUnaryOp, UnaryOp: ast.UnaryNeg, Operand: &operand, Span: ast.Span{Start: start.Span.Start, End: operand.Span.End}}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() ast.Expr {
	base := p.parsePrimary()
	for {
		if p.at(lexer.Dot) {
			p.advance()
			name := p.expect(lexer.Ident)
			inner := base
			base = ast.Expr{Kind: ast.ExprProperty, PropertyBase: &inner, PropertyName: name.Text, Span: ast.Span{Start: inner.Span.Start, End: name.Span.End}}
			continue
		}
		if p.at(lexer.LBracket) {
			p.advance()
			idx := p.parseExpr()
			end := p.expect(lexer.RBracket)
			inner := base
			base = ast.Expr{Kind: ast.ExprIndex, IndexBase: &inner, IndexValue: &idx, Span: ast.Span{Start: inner.Span.Start, End: end.Span.End}}
			continue
		}
		break
	}
	return base
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.cur()
	switch tok.Kind {
	case lexer.String:
		p.advance()
		return ast.Expr{Kind: ast.ExprString, StringValue: tok.Text, Span: tok.Span}
	case lexer.Number:
		p.advance()
		return ast.Expr{Kind: ast.ExprNumber, NumberValue: tok.Num, Span: tok.Span}
	case lexer.True, lexer.False:
		p.advance()
		return ast.Expr{Kind: ast.ExprBool, BoolValue: tok.Kind == lexer.True, Span: tok.Span}
	case lexer.None:
		p.advance()
		return ast.Expr{Kind: ast.ExprNone, Span: tok.Span}
	case lexer.LParen:
		p.advance()
		inner := p.parseExpr()
		end := p.expect(lexer.RParen)
		inner.Span = ast.Span{Start: tok.Span.Start, End: end.Span.End}
		return inner
	case lexer.LBracket:
		return p.parseListLiteral()
	case lexer.At:
		ref := p.parseReference()
		return ast.Expr{Kind: ast.ExprReference, Reference: &ref, Span: ref.Span}
	default:
		p.fatal([]string{"expression"})
		return ast.Expr{}
	}
}

func (p *parser) parseListLiteral() ast.Expr {
	start := p.expect(lexer.LBracket)
	var elems []ast.Expr
	for !p.at(lexer.RBracket) {
		elems = append(elems, p.parseExpr())
		if p.at(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	end := p.expect(lexer.RBracket)
	return ast.Expr{Kind: ast.ExprList, Elements: elems, Span: ast.Span{Start: start.Span.Start, End: end.Span.End}}
}
