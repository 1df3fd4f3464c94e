package validate

import (
	"testing"

	"agentscript/internal/ast"
)

func spanned[T any](v T) ast.Spanned[T] { return ast.NewSpanned(v, ast.Span{}) }

func TestValidateMutableIntegerIsError(t *testing.T) {
	file := &ast.AgentFile{
		Variables: []ast.Spanned[ast.VariableDecl]{
			spanned(ast.VariableDecl{
				Name: spanned("counter"),
				Kind: ast.VariableMutable,
				Type: ast.Type{Tag: ast.TypeInteger},
			}),
		},
	}
	errs := Validate(file)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %+v", len(errs), errs)
	}
	if errs[0].Severity != SeverityError {
		t.Fatalf("expected SeverityError, got %v", errs[0].Severity)
	}
	if errs[0].Hint == "" {
		t.Fatalf("expected a hint listing supported mutable types")
	}
}

func TestValidateMutableStringIsFine(t *testing.T) {
	file := &ast.AgentFile{
		Variables: []ast.Spanned[ast.VariableDecl]{
			spanned(ast.VariableDecl{
				Name: spanned("name"),
				Kind: ast.VariableMutable,
				Type: ast.Type{Tag: ast.TypeString},
			}),
		},
	}
	if errs := Validate(file); len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}

func TestValidateLinkedContextObjectIsError(t *testing.T) {
	file := &ast.AgentFile{
		Variables: []ast.Spanned[ast.VariableDecl]{
			spanned(ast.VariableDecl{
				Name:   spanned("profile"),
				Kind:   ast.VariableLinked,
				Type:   ast.Type{Tag: ast.TypeObject},
				Source: &ast.Reference{Namespace: "context", Path: []string{"user"}},
			}),
		},
	}
	errs := Validate(file)
	if len(errs) != 1 || errs[0].Severity != SeverityError {
		t.Fatalf("expected 1 error, got %+v", errs)
	}
}

func TestValidateUnknownLocaleIsError(t *testing.T) {
	file := &ast.AgentFile{
		Language: &ast.Spanned[ast.LanguageBlock]{Node: ast.LanguageBlock{
			Entries: []ast.LanguageEntry{
				{Name: spanned("additional_locales"), Value: ast.Expr{Kind: ast.ExprString, StringValue: "en_US, xx_YY"}},
			},
		}},
	}
	errs := Validate(file)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for unknown locale, got %+v", errs)
	}
}

func TestValidateOutboundRouteTypeMismatch(t *testing.T) {
	file := &ast.AgentFile{
		Connections: []ast.Spanned[ast.ConnectionBlock]{
			spanned(ast.ConnectionBlock{
				Name: spanned("crm"),
				Entries: []ast.KeyValueEntry{
					{Key: spanned("outbound_route_type"), Value: spanned("SomethingElse")},
				},
			}),
		},
	}
	errs := Validate(file)
	if len(errs) != 1 || errs[0].Severity != SeverityError {
		t.Fatalf("expected 1 error, got %+v", errs)
	}
}

func TestValidateReservedInputNameIsWarning(t *testing.T) {
	file := &ast.AgentFile{
		StartAgent: &ast.Spanned[ast.StartAgentBlock]{Node: ast.StartAgentBlock{
			Actions: []ast.Spanned[ast.ActionDef]{
				spanned(ast.ActionDef{
					Name: spanned("lookup"),
					Inputs: []ast.Spanned[ast.ParamDef]{
						spanned(ast.ParamDef{Name: spanned("label"), Type: ast.Type{Tag: ast.TypeString}}),
					},
				}),
			},
		}},
	}
	errs := Validate(file)
	if len(errs) != 1 || errs[0].Severity != SeverityWarning {
		t.Fatalf("expected 1 warning, got %+v", errs)
	}
}
