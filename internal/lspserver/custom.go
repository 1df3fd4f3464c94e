package lspserver

import (
	"agentscript/internal/ast"
	"agentscript/internal/deps"
	"agentscript/internal/graph"
	"agentscript/internal/serialize"
)

// customParams is the request shape shared by the three agentscript/*
// custom methods.
type customParams struct {
	URI      string `json:"uri"`
	MockData string `json:"mock_data,omitempty"`
}

// graphNodeJSON / graphEdgeJSON / graphResult serialize the reference
// graph for agentscript/getGraph.
type graphNodeJSON struct {
	Kind    string `json:"kind"`
	Name    string `json:"name,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Target  string `json:"target,omitempty"`
	Mutable bool   `json:"mutable,omitempty"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

type graphEdgeJSON struct {
	Kind string `json:"kind"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

type graphResult struct {
	Nodes         []graphNodeJSON `json:"nodes"`
	Edges         []graphEdgeJSON `json:"edges"`
	TopicNames    []string        `json:"topic_names"`
	VariableNames []string        `json:"variable_names"`
}

var nodeKindNames = map[graph.NodeKind]string{
	graph.NodeStartAgent:      "start_agent",
	graph.NodeTopic:           "topic",
	graph.NodeActionDef:       "action_def",
	graph.NodeReasoningAction: "reasoning_action",
	graph.NodeVariable:        "variable",
	graph.NodeConnection:      "connection",
}

var edgeKindNames = map[graph.EdgeKind]string{
	graph.EdgeRoutes:        "routes",
	graph.EdgeTransitionsTo: "transitions_to",
	graph.EdgeDelegates:     "delegates",
	graph.EdgeInvokes:       "invokes",
	graph.EdgeReads:         "reads",
	graph.EdgeWrites:        "writes",
	graph.EdgeChains:        "chains",
	graph.EdgeEscalates:     "escalates",
}

func (m *Manager) getGraph(st *documentState) *graphResult {
	result := &graphResult{Nodes: []graphNodeJSON{}, Edges: []graphEdgeJSON{}}
	if st.Graph == nil {
		return result
	}
	g := st.Graph
	for _, n := range g.Nodes {
		result.Nodes = append(result.Nodes, graphNodeJSON{
			Kind:    nodeKindNames[n.Kind],
			Name:    n.Name,
			Topic:   n.Topic,
			Target:  n.Target,
			Mutable: n.Mutable,
			Start:   n.Span.Start,
			End:     n.Span.End,
		})
	}
	for _, e := range g.Edges {
		result.Edges = append(result.Edges, graphEdgeJSON{Kind: edgeKindNames[e.Kind], From: e.From, To: e.To})
	}
	result.TopicNames = g.TopicNames()
	result.VariableNames = g.VariableNames()
	return result
}

// depJSON / depsResult serialize the dependency report for
// agentscript/getDependencies.
type depJSON struct {
	Type       string `json:"type"`
	Reference  string `json:"reference"`
	UsedIn     string `json:"used_in,omitempty"`
	ActionName string `json:"action_name,omitempty"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

type depsResult struct {
	Dependencies []depJSON            `json:"dependencies"`
	ByType       map[string][]depJSON `json:"by_type"`
	ByTopic      map[string][]depJSON `json:"by_topic"`
}

func (m *Manager) getDependencies(st *documentState) *depsResult {
	result := &depsResult{Dependencies: []depJSON{}, ByType: map[string][]depJSON{}, ByTopic: map[string][]depJSON{}}
	if st.AST == nil {
		return result
	}
	report := deps.Extract(st.AST)
	conv := func(d deps.Dependency) depJSON {
		return depJSON{
			Type:       d.Type.String(),
			Reference:  d.Reference,
			UsedIn:     d.UsedIn,
			ActionName: d.ActionName,
			Start:      d.Span.Start,
			End:        d.Span.End,
		}
	}
	for _, d := range report.Flat {
		result.Dependencies = append(result.Dependencies, conv(d))
	}
	for t, list := range report.ByType {
		for _, d := range list {
			result.ByType[t.String()] = append(result.ByType[t.String()], conv(d))
		}
	}
	for topic, list := range report.ByTopic {
		for _, d := range list {
			result.ByTopic[topic] = append(result.ByTopic[topic], conv(d))
		}
	}
	return result
}

// simulateStep is one flattened record of the static walk performed by
// agentscript/simulate. Expressions are rendered, never evaluated.
type simulateStep struct {
	Phase             string   `json:"phase"`
	StatementType     string   `json:"statement_type"`
	Detail            string   `json:"detail"`
	VariableChanges   []string `json:"variable_changes,omitempty"`
	ActionInvocations []string `json:"action_invocations,omitempty"`
}

type simulateResult struct {
	Topics map[string][]simulateStep `json:"topics"`
}

// simulate statically walks before_reasoning, reasoning.actions, and
// after_reasoning of every topic (plus start_agent) without executing
// anything.
func (m *Manager) simulate(st *documentState) *simulateResult {
	result := &simulateResult{Topics: map[string][]simulateStep{}}
	if st.AST == nil {
		return result
	}
	if sa := st.AST.StartAgent; sa != nil {
		result.Topics["start_agent"] = simulateTopic(sa.Node.BeforeReasoning, sa.Node.Reasoning, sa.Node.AfterReasoning)
	}
	for _, t := range st.AST.Topics {
		tb := t.Node
		result.Topics[tb.Name.Node] = simulateTopic(tb.BeforeReasoning, tb.Reasoning, tb.AfterReasoning)
	}
	return result
}

func simulateTopic(before *ast.Spanned[ast.DirectiveBlock], reasoning *ast.Spanned[ast.ReasoningBlock], after *ast.Spanned[ast.DirectiveBlock]) []simulateStep {
	steps := []simulateStep{}
	if before != nil {
		steps = append(steps, simulateStmts("before_reasoning", before.Node.Stmts)...)
	}
	if reasoning != nil {
		for _, ra := range reasoning.Node.Actions {
			steps = append(steps, simulateReasoningAction(ra.Node))
		}
	}
	if after != nil {
		steps = append(steps, simulateStmts("after_reasoning", after.Node.Stmts)...)
	}
	return steps
}

func simulateStmts(phase string, stmts []ast.Stmt) []simulateStep {
	var steps []simulateStep
	for _, s := range stmts {
		steps = append(steps, simulateStmt(phase, s)...)
	}
	return steps
}

func simulateStmt(phase string, s ast.Stmt) []simulateStep {
	switch s.Kind {
	case ast.StmtSet:
		return []simulateStep{{
			Phase:           phase,
			StatementType:   "set",
			Detail:          s.SetTarget.FullPath() + " = " + serialize.ExprString(*s.SetValue),
			VariableChanges: []string{s.SetTarget.FullPath()},
		}}
	case ast.StmtRun:
		step := simulateStep{
			Phase:             phase,
			StatementType:     "run",
			Detail:            s.RunAction.FullPath(),
			ActionInvocations: []string{s.RunAction.FullPath()},
		}
		for _, c := range s.RunSetClauses {
			step.VariableChanges = append(step.VariableChanges, c.Target.FullPath())
		}
		return []simulateStep{step}
	case ast.StmtIf:
		steps := []simulateStep{{
			Phase:         phase,
			StatementType: "if",
			Detail:        serialize.ExprString(*s.IfCond),
		}}
		steps = append(steps, simulateStmts(phase, s.IfThen)...)
		steps = append(steps, simulateStmts(phase, s.IfElse)...)
		return steps
	case ast.StmtTransition:
		return []simulateStep{{
			Phase:         phase,
			StatementType: "transition",
			Detail:        s.TransitionTarget.FullPath(),
		}}
	}
	return nil
}

func simulateReasoningAction(ra ast.ReasoningAction) simulateStep {
	step := simulateStep{
		Phase:         "reasoning",
		StatementType: "reasoning_action",
		Detail:        ra.Name.Node + ": " + reasoningTargetDetail(ra.Target),
	}
	for _, c := range ra.SetClauses {
		step.VariableChanges = append(step.VariableChanges, c.Target.FullPath())
	}
	if ra.Target.Kind == ast.TargetAction && ra.Target.Ref != nil {
		step.ActionInvocations = append(step.ActionInvocations, ra.Target.Ref.FullPath())
	}
	for _, run := range ra.RunClauses {
		if run.RunAction != nil {
			step.ActionInvocations = append(step.ActionInvocations, run.RunAction.FullPath())
		}
	}
	return step
}

func reasoningTargetDetail(t ast.ReasoningActionTarget) string {
	switch t.Kind {
	case ast.TargetTransitionTo:
		return "transition to " + t.Ref.FullPath()
	case ast.TargetTopicDelegate:
		return "delegate to " + t.Ref.FullPath()
	case ast.TargetEscalate:
		return "escalate"
	case ast.TargetSetVariables:
		return "set variables"
	default:
		if t.Ref != nil {
			return "invoke " + t.Ref.FullPath()
		}
		return "invoke"
	}
}
