package deps

import (
	"testing"

	"agentscript/internal/ast"
)

func spanned[T any](v T) ast.Spanned[T] { return ast.NewSpanned(v, ast.Span{}) }

// TestExtractGroupsByTypeAndTopic covers S6: a topic action targeting a
// flow, a knowledge entry, and a connection all surface in the flat list
// and both grouping indexes, de-duplicated per category.
func TestExtractGroupsByTypeAndTopic(t *testing.T) {
	target := spanned("flow://Collect_Address")
	file := &ast.AgentFile{
		Knowledge: &ast.Spanned[ast.KnowledgeBlock]{Node: ast.KnowledgeBlock{
			Entries: []ast.KeyValueEntry{{Key: spanned("faq"), Value: spanned("...")}},
		}},
		Connections: []ast.Spanned[ast.ConnectionBlock]{
			spanned(ast.ConnectionBlock{Name: spanned("crm")}),
		},
		Topics: []ast.Spanned[ast.TopicBlock]{
			spanned(ast.TopicBlock{
				Name: spanned("intake"),
				Actions: []ast.Spanned[ast.ActionDef]{
					spanned(ast.ActionDef{Name: spanned("collect"), Target: &target}),
				},
			}),
		},
	}

	r := Extract(file)
	if len(r.Flat) != 3 {
		t.Fatalf("expected 3 flat dependencies, got %d: %+v", len(r.Flat), r.Flat)
	}
	if len(r.ByType[TypeFlow]) != 1 || r.ByType[TypeFlow][0].ActionName != "collect" {
		t.Fatalf("expected 1 flow dependency used by collect, got %+v", r.ByType[TypeFlow])
	}
	if len(r.ByTopic["intake"]) != 1 {
		t.Fatalf("expected 1 dependency grouped under topic intake, got %+v", r.ByTopic["intake"])
	}
	if len(r.ByType[TypeKnowledgeBase]) != 1 || len(r.ByType[TypeConnection]) != 1 {
		t.Fatalf("expected knowledge and connection entries to classify, got byType=%+v", r.ByType)
	}
	if !r.Sets[TypeFlow]["flow://Collect_Address"] {
		t.Fatalf("expected de-duplicated flow set to contain the reference")
	}
}

func TestClassifyURISchemes(t *testing.T) {
	cases := []struct {
		raw  string
		want Type
	}{
		{"flow://Collect_Address", TypeFlow},
		{"apex://CaseService", TypeApexClass},
		{"apex://CaseService.escalate", TypeApexMethod},
		{"prompt://summarize_case", TypePromptTemplate},
		{"service://billing", TypeExternalService},
		{"create://Case", TypeSObject},
		{"read://Case.Status", TypeField},
		{"update://Case", TypeSObject},
		{"delete://Case", TypeSObject},
		{"query://Account.Name", TypeField},
		{"whatever://thing", TypeCustom},
		{"not-a-uri", TypeCustom},
	}
	for _, c := range cases {
		if got := Classify(c.raw); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}
