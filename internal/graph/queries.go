package graph

import "sort"

// routingEdgeKinds are the edge kinds that represent topic-to-topic
// control flow (§4.9 structural queries).
var routingEdgeKinds = map[EdgeKind]bool{EdgeRoutes: true, EdgeTransitionsTo: true, EdgeDelegates: true}

// Usages returns the incoming edges of node n (all kinds).
func (g *Graph) Usages(n int) []RefEdge {
	return g.edgesAt(g.incomingEdgeIdx(n))
}

// Dependencies returns the outgoing edges of node n (all kinds).
func (g *Graph) Dependencies(n int) []RefEdge {
	return g.edgesAt(g.outgoingEdgeIdx(n))
}

// OutgoingTransitions returns the Routes/TransitionsTo/Delegates edges
// leaving node n.
func (g *Graph) OutgoingTransitions(n int) []RefEdge {
	return filterEdges(g.edgesAt(g.outgoingEdgeIdx(n)), routingEdgeKinds)
}

// IncomingTransitions returns the Routes/TransitionsTo/Delegates edges
// entering node n.
func (g *Graph) IncomingTransitions(n int) []RefEdge {
	return filterEdges(g.edgesAt(g.incomingEdgeIdx(n)), routingEdgeKinds)
}

// ActionInvokers returns the incoming Invokes edges of an ActionDef node.
func (g *Graph) ActionInvokers(n int) []RefEdge {
	return filterEdges(g.edgesAt(g.incomingEdgeIdx(n)), map[EdgeKind]bool{EdgeInvokes: true})
}

// VariableReaders returns the incoming Reads edges of a Variable node.
func (g *Graph) VariableReaders(n int) []RefEdge {
	return filterEdges(g.edgesAt(g.incomingEdgeIdx(n)), map[EdgeKind]bool{EdgeReads: true})
}

// VariableWriters returns the incoming Writes edges of a Variable node.
func (g *Graph) VariableWriters(n int) []RefEdge {
	return filterEdges(g.edgesAt(g.incomingEdgeIdx(n)), map[EdgeKind]bool{EdgeWrites: true})
}

func (g *Graph) edgesAt(idxs []int) []RefEdge {
	out := make([]RefEdge, len(idxs))
	for i, idx := range idxs {
		out[i] = g.Edges[idx]
	}
	return out
}

func filterEdges(edges []RefEdge, kinds map[EdgeKind]bool) []RefEdge {
	var out []RefEdge
	for _, e := range edges {
		if kinds[e.Kind] {
			out = append(out, e)
		}
	}
	return out
}

// TopicNames returns every topic name in the graph, sorted.
func (g *Graph) TopicNames() []string {
	names := make([]string, 0, len(g.TopicIdx))
	for name := range g.TopicIdx {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VariableNames returns every variable name in the graph, sorted.
func (g *Graph) VariableNames() []string {
	names := make([]string, 0, len(g.VariableIdx))
	for name := range g.VariableIdx {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CycleDetected names one strongly connected component of size > 1 whose
// members are all Topic nodes.
type CycleDetected struct {
	Path []string // Topic names, in SCC discovery order
}

// FindCycles runs Tarjan's algorithm over the full graph and reports every
// SCC of size > 1 composed entirely of Topic nodes (§4.9).
func (g *Graph) FindCycles() []CycleDetected {
	t := &tarjan{
		g:       g,
		index:   make([]int, len(g.Nodes)),
		lowlink: make([]int, len(g.Nodes)),
		onStack: make([]bool, len(g.Nodes)),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for n := range g.Nodes {
		if t.index[n] == -1 {
			t.strongConnect(n)
		}
	}

	var cycles []CycleDetected
	for _, scc := range t.sccs {
		if len(scc) <= 1 {
			continue
		}
		var names []string
		allTopics := true
		for _, n := range scc {
			if g.Nodes[n].Kind != NodeTopic {
				allTopics = false
				break
			}
			names = append(names, g.Nodes[n].Name)
		}
		if !allTopics {
			continue
		}
		cycles = append(cycles, CycleDetected{Path: names})
	}
	return cycles
}

type tarjan struct {
	g       *Graph
	index   []int
	lowlink []int
	onStack []bool
	stack   []int
	nextIdx int
	sccs    [][]int
}

func (t *tarjan) strongConnect(v int) {
	t.index[v] = t.nextIdx
	t.lowlink[v] = t.nextIdx
	t.nextIdx++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, eidx := range t.g.outgoingEdgeIdx(v) {
		w := t.g.Edges[eidx].To
		if t.index[w] == -1 {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []int
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}

// UnreachableTopic names one Topic node (Warning severity) the DFS from
// StartAgent never reached.
type UnreachableTopic struct {
	Name string
}

// FindUnreachableTopics runs a DFS from StartAgent (if present) over
// Routes/TransitionsTo/Delegates edges and reports every Topic not
// reached, in declaration order (§4.9).
func (g *Graph) FindUnreachableTopics() []UnreachableTopic {
	if g.StartAgentIdx < 0 {
		return nil
	}
	reached := g.reachableFrom(g.StartAgentIdx)

	var out []UnreachableTopic
	for i, n := range g.Nodes {
		if n.Kind != NodeTopic {
			continue
		}
		if !reached[i] {
			out = append(out, UnreachableTopic{Name: n.Name})
		}
	}
	return out
}

func (g *Graph) reachableFrom(start int) []bool {
	reached := make([]bool, len(g.Nodes))
	stack := []int{start}
	reached[start] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, eidx := range g.outgoingEdgeIdx(n) {
			e := g.Edges[eidx]
			if !routingEdgeKinds[e.Kind] {
				continue
			}
			if !reached[e.To] {
				reached[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	return reached
}

// UnusedActionDef names one ActionDef (Warning severity) with no incoming
// Invokes edge.
type UnusedActionDef struct {
	Topic string
	Name  string
}

// FindUnusedActions reports every ActionDef node with no incoming Invokes
// edge, in declaration order (§4.9).
func (g *Graph) FindUnusedActions() []UnusedActionDef {
	var out []UnusedActionDef
	for i, n := range g.Nodes {
		if n.Kind != NodeActionDef {
			continue
		}
		if len(g.ActionInvokers(i)) == 0 {
			out = append(out, UnusedActionDef{Topic: n.Topic, Name: n.Name})
		}
	}
	return out
}

// UnusedVariable names one Variable (Warning severity) with no incoming
// Reads edge.
type UnusedVariable struct {
	Name string
}

// FindUnusedVariables reports every Variable node with no incoming Reads
// edge, in declaration order (§4.9).
func (g *Graph) FindUnusedVariables() []UnusedVariable {
	var out []UnusedVariable
	for i, n := range g.Nodes {
		if n.Kind != NodeVariable {
			continue
		}
		if len(g.VariableReaders(i)) == 0 {
			out = append(out, UnusedVariable{Name: n.Name})
		}
	}
	return out
}

// TopologicalOrder returns topic names in dependency order (edges point
// from dependent to dependency's... no: here "A transitions to B" is
// ordered A before B), or ok=false if the full graph contains a cycle
// (Kahn's algorithm, §4.9).
func (g *Graph) TopologicalOrder() (order []string, ok bool) {
	inDegree := make([]int, len(g.Nodes))
	for _, e := range g.Edges {
		inDegree[e.To]++
	}

	var queue []int
	for i := range g.Nodes {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	sort.Ints(queue)

	var visited []int
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited = append(visited, n)
		var freed []int
		for _, eidx := range g.outgoingEdgeIdx(n) {
			to := g.Edges[eidx].To
			inDegree[to]--
			if inDegree[to] == 0 {
				freed = append(freed, to)
			}
		}
		sort.Ints(freed)
		queue = append(queue, freed...)
		sort.Ints(queue)
	}

	if len(visited) != len(g.Nodes) {
		return nil, false
	}

	for _, n := range visited {
		if g.Nodes[n].Kind == NodeTopic {
			order = append(order, g.Nodes[n].Name)
		}
	}
	return order, true
}

// Stats summarizes the graph's node and edge population (§4.9).
type Stats struct {
	Topics           int
	ActionDefs       int
	ReasoningActions int
	Variables        int
	Connections      int
	HasStartAgent    bool
	EdgeCounts       map[EdgeKind]int
}

// Stats computes population counts over the graph.
func (g *Graph) Stats() Stats {
	s := Stats{HasStartAgent: g.StartAgentIdx >= 0, EdgeCounts: map[EdgeKind]int{}}
	for _, n := range g.Nodes {
		switch n.Kind {
		case NodeTopic:
			s.Topics++
		case NodeActionDef:
			s.ActionDefs++
		case NodeReasoningAction:
			s.ReasoningActions++
		case NodeVariable:
			s.Variables++
		case NodeConnection:
			s.Connections++
		}
	}
	for _, e := range g.Edges {
		s.EdgeCounts[e.Kind]++
	}
	return s
}

// ValidationResult bundles every issue Validate finds, split by severity.
type ValidationResult struct {
	Errors   []error
	Warnings []error
}

// IsOK reports whether the validation found no errors (warnings are fine).
func (r ValidationResult) IsOK() bool { return len(r.Errors) == 0 }

// Validate merges unresolved references and cycles (errors) with
// unreachable topics, unused actions, and unused variables (warnings)
// (§4.9).
func (g *Graph) Validate() ValidationResult {
	var result ValidationResult
	for _, u := range g.Unresolved {
		result.Errors = append(result.Errors, unresolvedError{u})
	}
	for _, c := range g.FindCycles() {
		result.Errors = append(result.Errors, cycleError{c})
	}
	if g.StartAgentIdx >= 0 {
		for _, u := range g.FindUnreachableTopics() {
			result.Warnings = append(result.Warnings, unreachableError{u})
		}
	}
	for _, u := range g.FindUnusedActions() {
		result.Warnings = append(result.Warnings, unusedActionError{u})
	}
	for _, u := range g.FindUnusedVariables() {
		result.Warnings = append(result.Warnings, unusedVariableError{u})
	}
	return result
}
