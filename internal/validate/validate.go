// Package validate implements the semantic checks that run after a
// successful parse: AST-level rules independent of cross-references
// (reference resolution and graph-shape checks live in internal/graph).
package validate

import (
	"fmt"
	"strings"

	"agentscript/internal/ast"
)

// Severity classifies a SemanticError the way the schema validator a
// rule's violations: hard failures versus advisory warnings.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// SemanticError is one semantic-rule violation found by Validate.
type SemanticError struct {
	Message  string
	Span     *ast.Span
	Severity Severity
	Hint     string
}

func (e SemanticError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Severity, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Severity, e.Message)
}

// mutableTypeDenylist are the scalar types forbidden on a mutable variable (rule 1).
var mutableTypeDenylist = map[ast.TypeTag]bool{
	ast.TypeInteger:  true,
	ast.TypeLong:     true,
	ast.TypeDatetime: true,
	ast.TypeTime:     true,
}

var supportedMutableTypesHint = "supported mutable types: string, number, boolean, object, list, date, timestamp, currency, id"

// localeWhitelist is the closed set of 37 locale codes additional_locales
// values may name (rule 3).
var localeWhitelist = map[string]bool{
	"ar": true, "bg": true, "ca": true, "cs": true, "da": true, "de": true,
	"el": true, "en_AU": true, "en_GB": true, "en_US": true, "es": true,
	"es_MX": true, "et": true, "fi": true, "fr": true, "fr_CA": true,
	"hi": true, "hr": true, "hu": true, "in": true, "it": true, "iw": true,
	"ja": true, "ko": true, "nl_NL": true, "no": true, "pl": true,
	"pt_BR": true, "pt_PT": true, "ro": true, "sv": true, "th": true,
	"tl": true, "tr": true, "vi": true, "zh_CN": true, "zh_TW": true,
}

// reservedParamNames are the action-input parameter names that collide with
// block-grammar keywords and trigger a warning (rule 5).
var reservedParamNames = map[string]bool{
	"description": true, "label": true, "target": true, "inputs": true, "outputs": true,
}

// Validate walks file and applies the five semantic rules of the language
// reference, returning every violation found (no early exit).
func Validate(file *ast.AgentFile) []SemanticError {
	var errs []SemanticError
	errs = append(errs, validateVariables(file.Variables)...)
	errs = append(errs, validateLanguage(file.Language)...)
	errs = append(errs, validateConnections(file.Connections)...)
	if file.StartAgent != nil {
		errs = append(errs, validateActionParams("start_agent", file.StartAgent.Node.Actions)...)
	}
	for _, t := range file.Topics {
		errs = append(errs, validateActionParams(t.Node.Name.Node, t.Node.Actions)...)
	}
	return errs
}

// validateVariables applies rules 1 and 2.
func validateVariables(decls []ast.Spanned[ast.VariableDecl]) []SemanticError {
	var errs []SemanticError
	for _, d := range decls {
		decl := d.Node
		span := decl.Name.Span

		if decl.Kind == ast.VariableMutable && mutableTypeDenylist[decl.Type.Tag] {
			errs = append(errs, SemanticError{
				Message:  fmt.Sprintf("mutable variable '%s' cannot declare a non-mutable type", decl.Name.Node),
				Span:     &span,
				Severity: SeverityError,
				Hint:     supportedMutableTypesHint,
			})
		}

		if decl.Kind == ast.VariableLinked && decl.Source != nil &&
			decl.Source.Namespace == "context" && decl.Type.Tag == ast.TypeObject {
			errs = append(errs, SemanticError{
				Message:  fmt.Sprintf("linked variable '%s' sourced from @context cannot declare type object", decl.Name.Node),
				Span:     &span,
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateLanguage applies rule 3 to every additional_locales entry.
func validateLanguage(block *ast.Spanned[ast.LanguageBlock]) []SemanticError {
	if block == nil {
		return nil
	}
	var errs []SemanticError
	for _, entry := range block.Node.Entries {
		if entry.Name.Node != "additional_locales" {
			continue
		}
		if entry.Value.Kind != ast.ExprString {
			continue
		}
		span := entry.Value.Span
		for _, code := range strings.Split(entry.Value.StringValue, ",") {
			code = strings.TrimSpace(code)
			if code == "" || localeWhitelist[code] {
				continue
			}
			errs = append(errs, SemanticError{
				Message:  fmt.Sprintf("unknown locale code '%s' in additional_locales", code),
				Span:     &span,
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateConnections applies rule 4.
func validateConnections(blocks []ast.Spanned[ast.ConnectionBlock]) []SemanticError {
	var errs []SemanticError
	for _, b := range blocks {
		for _, entry := range b.Node.Entries {
			if entry.Key.Node != "outbound_route_type" {
				continue
			}
			if entry.Value.Node != "OmniChannelFlow" {
				span := entry.Value.Span
				errs = append(errs, SemanticError{
					Message:  fmt.Sprintf("connection '%s': outbound_route_type must be \"OmniChannelFlow\"", b.Node.Name.Node),
					Span:     &span,
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateActionParams applies rule 5 across every action's input list.
func validateActionParams(scope string, actions []ast.Spanned[ast.ActionDef]) []SemanticError {
	var errs []SemanticError
	for _, a := range actions {
		for _, in := range a.Node.Inputs {
			if !reservedParamNames[in.Node.Name.Node] {
				continue
			}
			span := in.Node.Name.Span
			errs = append(errs, SemanticError{
				Message:  fmt.Sprintf("%s: action '%s' input '%s' shadows a reserved keyword", scope, a.Node.Name.Node, in.Node.Name.Node),
				Span:     &span,
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
