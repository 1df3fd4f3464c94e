package graph

import (
	"testing"

	"agentscript/internal/ast"
)

func spanned[T any](v T) ast.Spanned[T] { return ast.NewSpanned(v, ast.Span{}) }

func topicRef(name string) *ast.Reference {
	return &ast.Reference{Namespace: "topic", Path: []string{name}}
}

func transitionAction(name string, target *ast.Reference) ast.Spanned[ast.ReasoningAction] {
	return spanned(ast.ReasoningAction{
		Name:   spanned(name),
		Target: ast.ReasoningActionTarget{Kind: ast.TargetTransitionTo, Ref: target},
	})
}

func reasoning(actions ...ast.Spanned[ast.ReasoningAction]) *ast.Spanned[ast.ReasoningBlock] {
	b := spanned(ast.ReasoningBlock{Actions: actions})
	return &b
}

// TestFindCyclesTwoTopics covers S2: topic a transitions to b, b transitions
// back to a, so find_cycles reports one SCC naming both.
func TestFindCyclesTwoTopics(t *testing.T) {
	file := &ast.AgentFile{
		Topics: []ast.Spanned[ast.TopicBlock]{
			spanned(ast.TopicBlock{
				Name:      spanned("a"),
				Reasoning: reasoning(transitionAction("go_to_b", topicRef("b"))),
			}),
			spanned(ast.TopicBlock{
				Name:      spanned("b"),
				Reasoning: reasoning(transitionAction("go_to_a", topicRef("a"))),
			}),
		},
	}

	g := Build(file)
	cycles := g.FindCycles()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d: %+v", len(cycles), cycles)
	}
	names := map[string]bool{}
	for _, n := range cycles[0].Path {
		names[n] = true
	}
	if !names["a"] || !names["b"] {
		t.Fatalf("expected cycle path to contain both a and b, got %v", cycles[0].Path)
	}
}

// TestFindUnreachableTopicsOrphan covers S3: start_agent transitions to
// help, leaving orphan unreached.
func TestFindUnreachableTopicsOrphan(t *testing.T) {
	file := &ast.AgentFile{
		StartAgent: &ast.Spanned[ast.StartAgentBlock]{Node: ast.StartAgentBlock{
			Reasoning: reasoning(transitionAction("go_to_help", topicRef("help"))),
		}},
		Topics: []ast.Spanned[ast.TopicBlock]{
			spanned(ast.TopicBlock{Name: spanned("help")}),
			spanned(ast.TopicBlock{Name: spanned("orphan")}),
		},
	}

	g := Build(file)
	unreachable := g.FindUnreachableTopics()
	if len(unreachable) != 1 {
		t.Fatalf("expected 1 unreachable topic, got %d: %+v", len(unreachable), unreachable)
	}
	if unreachable[0].Name != "orphan" {
		t.Fatalf("expected orphan to be unreachable, got %q", unreachable[0].Name)
	}
}

// TestFindUnusedActions covers S4: main declares get_data but no reasoning
// action invokes it.
func TestFindUnusedActions(t *testing.T) {
	file := &ast.AgentFile{
		Topics: []ast.Spanned[ast.TopicBlock]{
			spanned(ast.TopicBlock{
				Name: spanned("main"),
				Actions: []ast.Spanned[ast.ActionDef]{
					spanned(ast.ActionDef{Name: spanned("get_data")}),
				},
			}),
		},
	}

	g := Build(file)
	unused := g.FindUnusedActions()
	if len(unused) != 1 {
		t.Fatalf("expected 1 unused action, got %d: %+v", len(unused), unused)
	}
	if unused[0].Topic != "main" || unused[0].Name != "get_data" {
		t.Fatalf("expected main.get_data, got %+v", unused[0])
	}
}

// TestUnresolvedTopicReferenceFromStartAgent covers S5: start_agent
// transitions to a topic that was never defined.
func TestUnresolvedTopicReferenceFromStartAgent(t *testing.T) {
	file := &ast.AgentFile{
		StartAgent: &ast.Spanned[ast.StartAgentBlock]{Node: ast.StartAgentBlock{
			Reasoning: reasoning(transitionAction("go_nowhere", topicRef("nonexistent"))),
		}},
	}

	g := Build(file)
	if len(g.Unresolved) != 1 {
		t.Fatalf("expected 1 unresolved reference, got %d: %+v", len(g.Unresolved), g.Unresolved)
	}
	u := g.Unresolved[0]
	if u.Namespace != "topic" || u.Context != scopeStartAgent {
		t.Fatalf("expected namespace=topic context=start_agent, got %+v", u)
	}

	result := g.Validate()
	if result.IsOK() {
		t.Fatalf("expected Validate to report the unresolved reference as an error")
	}
}

// TestStartAgentRoutingAlwaysEmitsRoutesEdge confirms that both TransitionTo
// and TopicDelegate targets owned by start_agent produce a Routes edge,
// never TransitionsTo/Delegates (§4.8).
func TestStartAgentRoutingAlwaysEmitsRoutesEdge(t *testing.T) {
	file := &ast.AgentFile{
		StartAgent: &ast.Spanned[ast.StartAgentBlock]{Node: ast.StartAgentBlock{
			Reasoning: reasoning(
				transitionAction("to_help", topicRef("help")),
				spanned(ast.ReasoningAction{
					Name:   spanned("delegate_to_help"),
					Target: ast.ReasoningActionTarget{Kind: ast.TargetTopicDelegate, Ref: topicRef("help")},
				}),
			),
		}},
		Topics: []ast.Spanned[ast.TopicBlock]{
			spanned(ast.TopicBlock{Name: spanned("help")}),
		},
	}

	g := Build(file)
	for _, e := range g.Edges {
		if e.From != g.StartAgentIdx {
			continue
		}
		if e.Kind != EdgeRoutes {
			t.Fatalf("expected every start_agent-owned routing edge to be EdgeRoutes, got %v", e.Kind)
		}
	}
}

// TestActionInvokeResolvesAndFlagsUsage confirms a reasoning action
// targeting an action def produces an Invokes edge that clears the
// unused-action warning.
func TestActionInvokeResolvesAndFlagsUsage(t *testing.T) {
	file := &ast.AgentFile{
		Topics: []ast.Spanned[ast.TopicBlock]{
			spanned(ast.TopicBlock{
				Name: spanned("main"),
				Actions: []ast.Spanned[ast.ActionDef]{
					spanned(ast.ActionDef{Name: spanned("get_data")}),
				},
				Reasoning: reasoning(spanned(ast.ReasoningAction{
					Name: spanned("fetch"),
					Target: ast.ReasoningActionTarget{
						Kind: ast.TargetAction,
						Ref:  &ast.Reference{Namespace: "actions", Path: []string{"get_data"}},
					},
				})),
			}),
		},
	}

	g := Build(file)
	if len(g.Unresolved) != 0 {
		t.Fatalf("expected no unresolved references, got %+v", g.Unresolved)
	}
	if len(g.FindUnusedActions()) != 0 {
		t.Fatalf("expected get_data to be marked used")
	}
}
