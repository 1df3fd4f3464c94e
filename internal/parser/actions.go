package parser

import (
	"agentscript/internal/ast"
	"agentscript/internal/lexer"
)

// paramNameKinds are the token kinds accepted in a parameter-name position:
// identifiers, string literals, and a small set of keywords used as names
// (§4.4).
var paramNameKinds = []lexer.Kind{lexer.Ident, lexer.String, lexer.KwDescription, lexer.KwAvailable}

func (p *parser) paramName() ast.Spanned[string] {
	tok := p.expectAny(paramNameKinds...)
	return ast.NewSpanned(tok.Text, tok.Span)
}

// parseActionsBlock parses `actions:` into an ordered list of ActionDefs.
// An empty block is forbidden (§4.3).
func (p *parser) parseActionsBlock() ast.Spanned[[]ast.Spanned[ast.ActionDef]] {
	start := p.expect(lexer.KwActions)
	var defs []ast.Spanned[ast.ActionDef]
	p.label("actions block", start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			defs = append(defs, p.parseActionDef())
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	if len(defs) == 0 {
		p.errors = append(p.errors, Error{
			Message: "actions block cannot be empty",
			Span:    start.Span,
		})
	}
	return ast.NewSpanned(defs, ast.Span{Start: start.Span.Start, End: p.lastEnd()})
}

func (p *parser) parseActionDef() ast.Spanned[ast.ActionDef] {
	name := p.spannedIdent()
	var def ast.ActionDef
	def.Name = name
	p.label("action '"+name.Node+"'", name.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			switch p.cur().Kind {
			case lexer.KwDescription:
				d := p.descriptionEntry()
				def.Description = &d
			case lexer.KwLabel:
				p.advance()
				p.expect(lexer.Colon)
				v := p.spannedString()
				def.Label = &v
			case lexer.KwRequireUserConfirmation:
				p.advance()
				p.expect(lexer.Colon)
				v := p.spannedBool()
				def.RequireUserConfirmation = &v
			case lexer.KwIncludeInProgressIndicator:
				p.advance()
				p.expect(lexer.Colon)
				v := p.spannedBool()
				def.IncludeInProgressIndicator = &v
			case lexer.KwProgressIndicatorMessage:
				p.advance()
				p.expect(lexer.Colon)
				v := p.spannedString()
				def.ProgressIndicatorMessage = &v
			case lexer.KwTarget:
				p.advance()
				p.expect(lexer.Colon)
				v := p.spannedString()
				def.Target = &v
			case lexer.KwInputs:
				def.Inputs = p.parseParamListBlock("inputs")
			case lexer.KwOutputs:
				def.Outputs = p.parseParamListBlock("outputs")
			default:
				p.fatal([]string{"description", "label", "require_user_confirmation", "include_in_progress_indicator", "progress_indicator_message", "target", "inputs", "outputs"})
			}
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	return ast.NewSpanned(def, ast.Span{Start: name.Span.Start, End: p.lastEnd()})
}

// parseParamListBlock parses `inputs:`/`outputs:` blocks of ParamDefs. An
// empty body is forbidden (§4.3).
func (p *parser) parseParamListBlock(which string) []ast.Spanned[ast.ParamDef] {
	kw := lexer.KwInputs
	if which == "outputs" {
		kw = lexer.KwOutputs
	}
	start := p.expect(kw)
	var params []ast.Spanned[ast.ParamDef]
	p.label(which+" block", start.Span, func() {
		p.blockPrologue()
		for !p.atBlockEnd() {
			params = append(params, p.parseParamDef())
			p.skipBlockNoise()
		}
		p.blockEpilogue()
	})
	if len(params) == 0 {
		p.errors = append(p.errors, Error{
			Message: which + " block cannot be empty",
			Span:    start.Span,
		})
	}
	return params
}

func (p *parser) parseParamDef() ast.Spanned[ast.ParamDef] {
	name := p.paramName()
	p.expect(lexer.Colon)
	ty := p.parseType()
	def := ast.ParamDef{Name: name, Type: ty}
	end := p.lastEnd()

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
					def.Description = &d
				case lexer.KwLabel:
					p.advance()
					p.expect(lexer.Colon)
					v := p.spannedString()
					def.Label = &v
				case lexer.KwIsRequired:
					p.advance()
					p.expect(lexer.Colon)
					v := p.spannedBool()
					def.IsRequired = &v
				case lexer.KwIsDisplayable:
					p.advance()
					p.expect(lexer.Colon)
					v := p.spannedBool()
					def.IsDisplayable = &v
				case lexer.KwIsUsedByPlanner:
					p.advance()
					p.expect(lexer.Colon)
					v := p.spannedBool()
					def.IsUsedByPlanner = &v
				case lexer.KwComplexDataTypeName:
					p.advance()
					p.expect(lexer.Colon)
					v := p.spannedString()
					def.ComplexDataTypeName = &v
				case lexer.KwFilterFromAgent:
					p.advance()
					p.expect(lexer.Colon)
					v := p.spannedBool()
					def.FilterFromAgent = &v
				case lexer.KwAvailable:
					p.advance()
					p.expect(lexer.Colon)
					v := p.spannedBool()
					def.Available = &v
				default:
					p.fatal([]string{"description", "label", "is_required", "is_displayable", "is_used_by_planner", "complex_data_type_name", "filter_from_agent", "available"})
				}
				p.skipBlockNoise()
			}
			d := p.expect(lexer.Dedent)
			end = d.Span.End
		} else {
			// No metadata body after all: rewind so the caller's
			// skip_block_noise sees the Newline that separates entries.
			p.pos = save
		}
	}

	return ast.NewSpanned(def, ast.Span{Start: name.Span.Start, End: end})
}
