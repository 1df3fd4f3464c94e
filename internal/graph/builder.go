package graph

import "agentscript/internal/ast"

const scopeStartAgent = "start_agent"

// scope is the enclosing node edges discovered during an expression/stmt
// walk attach to: a Topic or StartAgent node, tagged with its display name
// for UnresolvedReference context strings.
type scope struct {
	ownerIdx int
	name     string // "start_agent" or "topic <name>"
	isStart  bool
}

// Build runs the two-pass builder over file and returns the populated graph.
func Build(file *ast.AgentFile) *Graph {
	g := newGraph()
	b := &builder{g: g, file: file}
	b.pass1Definitions()
	b.pass2References()
	return g
}

type builder struct {
	g    *Graph
	file *ast.AgentFile
}

// pass1Definitions inserts every Variable, StartAgent (with its nested
// ActionDefs/ReasoningActions), Topic (likewise), and Connection node, and
// populates the secondary indexes (§4.8 pass 1).
func (b *builder) pass1Definitions() {
	for _, c := range b.file.Connections {
		idx := b.g.addNode(RefNode{Kind: NodeConnection, Name: c.Node.Name.Node, Span: c.Span})
		b.g.ConnectionIdx[c.Node.Name.Node] = idx
	}

	for _, v := range b.file.Variables {
		idx := b.g.addNode(RefNode{
			Kind:    NodeVariable,
			Name:    v.Node.Name.Node,
			Mutable: v.Node.Kind == ast.VariableMutable,
			Span:    v.Span,
		})
		b.g.VariableIdx[v.Node.Name.Node] = idx
	}

	if b.file.StartAgent != nil {
		idx := b.g.addNode(RefNode{Kind: NodeStartAgent, Span: b.file.StartAgent.Span})
		b.g.StartAgentIdx = idx
		b.insertActionsAndReasoning(scopeStartAgent, b.file.StartAgent.Node.Actions, b.file.StartAgent.Node.Reasoning)
	}

	for _, t := range b.file.Topics {
		idx := b.g.addNode(RefNode{Kind: NodeTopic, Name: t.Node.Name.Node, Span: t.Span})
		b.g.TopicIdx[t.Node.Name.Node] = idx
		b.insertActionsAndReasoning(t.Node.Name.Node, t.Node.Actions, t.Node.Reasoning)
	}
}

func (b *builder) insertActionsAndReasoning(topic string, actions []ast.Spanned[ast.ActionDef], reasoning *ast.Spanned[ast.ReasoningBlock]) {
	for _, a := range actions {
		idx := b.g.addNode(RefNode{Kind: NodeActionDef, Name: a.Node.Name.Node, Topic: topic, Span: a.Span})
		b.g.ActionIdx[[2]string{topic, a.Node.Name.Node}] = idx
	}
	if reasoning == nil {
		return
	}
	for _, ra := range reasoning.Node.Actions {
		target := ""
		if ra.Node.Target.Ref != nil {
			target = ra.Node.Target.Ref.FullPath()
		}
		idx := b.g.addNode(RefNode{Kind: NodeReasoningAction, Name: ra.Node.Name.Node, Topic: topic, Target: target, Span: ra.Span})
		b.g.ReasoningIdx[[2]string{topic, ra.Node.Name.Node}] = idx
	}
}

// pass2References resolves every cross-reference found in directive blocks,
// reasoning blocks, and instructions, inserting edges or UnresolvedReference
// entries (§4.8 pass 2).
func (b *builder) pass2References() {
	if b.file.StartAgent != nil {
		sc := scope{ownerIdx: b.g.StartAgentIdx, name: scopeStartAgent, isStart: true}
		b.walkTopicLike(sc, b.file.StartAgent.Node.Description, b.file.StartAgent.Node.System, b.file.StartAgent.Node.BeforeReasoning, b.file.StartAgent.Node.AfterReasoning, b.file.StartAgent.Node.Reasoning)
	}
	for _, t := range b.file.Topics {
		sc := scope{ownerIdx: b.g.TopicIdx[t.Node.Name.Node], name: "topic " + t.Node.Name.Node}
		b.walkTopicLike(sc, t.Node.Description, t.Node.System, t.Node.BeforeReasoning, t.Node.AfterReasoning, t.Node.Reasoning)
	}
}

func (b *builder) walkTopicLike(sc scope, _ *ast.Spanned[string], system *ast.Instructions, before, after *ast.Spanned[ast.DirectiveBlock], reasoning *ast.Spanned[ast.ReasoningBlock]) {
	if system != nil {
		b.walkInstructions(sc, *system)
	}
	if before != nil {
		b.walkStmts(sc, before.Node.Stmts)
	}
	if after != nil {
		b.walkStmts(sc, after.Node.Stmts)
	}
	if reasoning == nil {
		return
	}
	if reasoning.Node.Instructions != nil {
		b.walkInstructions(sc, *reasoning.Node.Instructions)
	}
	for _, ra := range reasoning.Node.Actions {
		b.walkReasoningAction(sc, ra.Node)
	}
}

func (b *builder) raScope(sc scope, ra ast.ReasoningAction) scope {
	idx, ok := b.g.ReasoningIdx[[2]string{topicNameOf(sc), ra.Name.Node}]
	if !ok {
		return sc
	}
	return scope{ownerIdx: idx, name: sc.name, isStart: sc.isStart}
}

func topicNameOf(sc scope) string {
	if sc.isStart {
		return scopeStartAgent
	}
	return sc.name[len("topic "):]
}

func (b *builder) walkReasoningAction(sc scope, ra ast.ReasoningAction) {
	raSc := b.raScope(sc, ra)

	switch ra.Target.Kind {
	case ast.TargetAction:
		b.resolveActionInvoke(raSc, ra.Target.Ref)
	case ast.TargetTransitionTo:
		b.resolveTransition(sc, ra.Target.Ref)
	case ast.TargetTopicDelegate:
		b.resolveDelegate(sc, ra.Target.Ref)
	case ast.TargetEscalate, ast.TargetSetVariables:
		// no edge
	}

	if ra.AvailableWhen != nil {
		b.walkExpr(raSc, *ra.AvailableWhen)
	}
	for _, wc := range ra.WithClauses {
		b.walkExpr(raSc, wc.Value)
	}
	for _, scl := range ra.SetClauses {
		b.resolveSet(raSc, scl)
	}
	for _, stmt := range ra.RunClauses {
		b.walkStmt(raSc, stmt)
	}
	for _, stmt := range ra.IfClauses {
		b.walkIfClauseTransitionsOnTopic(sc, raSc, stmt)
	}
	if ra.Transition != nil {
		b.resolveTransition(sc, ra.Transition)
	}
}

// walkIfClauseTransitionsOnTopic walks a reasoning action's `if cond :
// transition to X` clause. The condition is evaluated in the reasoning
// action's own scope; the resulting transition, per the Topic/StartAgent-
// origin invariant (§3.5), attaches to the owning topic/start_agent.
func (b *builder) walkIfClauseTransitionsOnTopic(topicSc, raSc scope, stmt ast.Stmt) {
	if stmt.IfCond != nil {
		b.walkExpr(raSc, *stmt.IfCond)
	}
	for _, then := range stmt.IfThen {
		if then.Kind == ast.StmtTransition {
			b.resolveTransition(topicSc, then.TransitionTarget)
		}
	}
}

func (b *builder) walkStmts(sc scope, stmts []ast.Stmt) {
	for _, s := range stmts {
		b.walkStmt(sc, s)
	}
}

func (b *builder) walkStmt(sc scope, stmt ast.Stmt) {
	switch stmt.Kind {
	case ast.StmtSet:
		if stmt.SetValue != nil {
			b.walkExpr(sc, *stmt.SetValue)
		}
		b.resolveSet(sc, ast.SetClause{Target: *stmt.SetTarget, Value: derefExpr(stmt.SetValue)})
	case ast.StmtRun:
		b.resolveActionInvoke(sc, stmt.RunAction)
		for _, wc := range stmt.RunWithClauses {
			b.walkExpr(sc, wc.Value)
		}
		for _, scl := range stmt.RunSetClauses {
			b.resolveSet(sc, scl)
		}
	case ast.StmtIf:
		if stmt.IfCond != nil {
			b.walkExpr(sc, *stmt.IfCond)
		}
		b.walkStmts(sc, stmt.IfThen)
		b.walkStmts(sc, stmt.IfElse)
	case ast.StmtTransition:
		b.resolveTransition(sc, stmt.TransitionTarget)
	}
}

func derefExpr(e *ast.Expr) ast.Expr {
	if e == nil {
		return ast.Expr{Kind: ast.ExprNone}
	}
	return *e
}

func (b *builder) walkInstructions(sc scope, ins ast.Instructions) {
	if ins.Kind != ast.InstructionsDynamic {
		return
	}
	b.walkInstructionParts(sc, ins.Dynamic)
}

func (b *builder) walkInstructionParts(sc scope, parts []ast.Spanned[ast.InstructionPart]) {
	for _, p := range parts {
		switch p.Node.Kind {
		case ast.PartInterpolation:
			if p.Node.Interpolation != nil {
				b.walkExpr(sc, *p.Node.Interpolation)
			}
		case ast.PartConditional:
			if p.Node.Cond != nil {
				b.walkExpr(sc, *p.Node.Cond)
			}
			b.walkInstructionParts(sc, p.Node.ThenParts)
			b.walkInstructionParts(sc, p.Node.ElseParts)
		}
	}
}

// walkExpr recurses through every expression shape that can embed a
// reference (§4.8: BinOp, UnaryOp, Ternary, List, Object, Property, Index).
func (b *builder) walkExpr(sc scope, e ast.Expr) {
	switch e.Kind {
	case ast.ExprReference:
		if e.Reference != nil {
			b.resolveReferenceRead(sc, *e.Reference)
		}
	case ast.ExprList:
		for _, el := range e.Elements {
			b.walkExpr(sc, el)
		}
	case ast.ExprObject:
		for _, entry := range e.ObjectEntries {
			b.walkExpr(sc, entry.Value)
		}
	case ast.ExprBinOp:
		if e.Left != nil {
			b.walkExpr(sc, *e.Left)
		}
		if e.Right != nil {
			b.walkExpr(sc, *e.Right)
		}
	case ast.ExprUnaryOp:
		if e.Operand != nil {
			b.walkExpr(sc, *e.Operand)
		}
	case ast.ExprTernary:
		if e.TernaryCond != nil {
			b.walkExpr(sc, *e.TernaryCond)
		}
		if e.TernaryThen != nil {
			b.walkExpr(sc, *e.TernaryThen)
		}
		if e.TernaryElse != nil {
			b.walkExpr(sc, *e.TernaryElse)
		}
	case ast.ExprProperty:
		if e.PropertyBase != nil {
			b.walkExpr(sc, *e.PropertyBase)
		}
	case ast.ExprIndex:
		if e.IndexBase != nil {
			b.walkExpr(sc, *e.IndexBase)
		}
		if e.IndexValue != nil {
			b.walkExpr(sc, *e.IndexValue)
		}
	}
}

// resolveReferenceRead attaches Reads for @variables.X and Invokes for
// @actions.X discovered inside an expression, from the enclosing scope's
// node (§4.8 final paragraph).
func (b *builder) resolveReferenceRead(sc scope, ref ast.Reference) {
	switch ref.Namespace {
	case "variables":
		b.resolveVariableRead(sc, ref)
	case "actions":
		b.resolveActionInvoke(sc, &ref)
	}
}

func (b *builder) resolveVariableRead(sc scope, ref ast.Reference) {
	idx, ok := b.g.VariableIdx[firstPathName(ref)]
	if !ok {
		b.unresolved(ref, sc.name)
		return
	}
	b.g.addEdge(EdgeReads, sc.ownerIdx, idx)
}

func (b *builder) resolveSet(sc scope, scl ast.SetClause) {
	if scl.Target.Namespace != "variables" {
		return
	}
	idx, ok := b.g.VariableIdx[firstPathName(scl.Target)]
	if !ok {
		b.unresolved(scl.Target, sc.name)
		return
	}
	b.g.addEdge(EdgeWrites, sc.ownerIdx, idx)
}

func (b *builder) resolveActionInvoke(sc scope, ref *ast.Reference) {
	if ref == nil {
		return
	}
	topic := topicNameOf(sc)
	idx, ok := b.g.ActionIdx[[2]string{topic, firstPathName(*ref)}]
	if !ok {
		b.unresolvedNS(*ref, "actions", sc.name)
		return
	}
	b.g.addEdge(EdgeInvokes, sc.ownerIdx, idx)
}

func (b *builder) resolveTransition(sc scope, ref *ast.Reference) {
	b.resolveTopicRouting(sc, ref, EdgeTransitionsTo)
}

func (b *builder) resolveDelegate(sc scope, ref *ast.Reference) {
	b.resolveTopicRouting(sc, ref, EdgeDelegates)
}

// resolveTopicRouting resolves a `@topic.X` reference and inserts an edge
// from sc's owner to the target topic. StartAgent-owned scopes always
// produce a Routes edge regardless of the triggering construct (§4.8).
func (b *builder) resolveTopicRouting(sc scope, ref *ast.Reference, kind EdgeKind) {
	if ref == nil {
		return
	}
	idx, ok := b.g.TopicIdx[firstPathName(*ref)]
	if !ok {
		b.unresolvedNS(*ref, "topic", sc.name)
		return
	}
	if sc.isStart {
		b.g.addEdge(EdgeRoutes, sc.ownerIdx, idx)
	} else {
		b.g.addEdge(kind, sc.ownerIdx, idx)
	}
}

// firstPathName returns the first path segment of a reference, which for
// `@variables.x`, `@actions.y`, `@topic.z` is the only segment that matters.
func firstPathName(ref ast.Reference) string {
	if len(ref.Path) > 0 {
		return ref.Path[0]
	}
	return ref.Namespace
}

func (b *builder) unresolved(ref ast.Reference, context string) {
	b.unresolvedNS(ref, ref.Namespace, context)
}

func (b *builder) unresolvedNS(ref ast.Reference, namespace, context string) {
	b.g.Unresolved = append(b.g.Unresolved, UnresolvedReference{
		Reference: ref.FullPath(),
		Namespace: namespace,
		Span:      ref.Span,
		Context:   context,
	})
}
