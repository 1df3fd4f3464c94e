// Package graph builds and queries the reference graph: a directed
// multigraph over tagged nodes (topics, action defs, reasoning actions,
// variables, connections) that resolves cross-references inside a single
// parsed AgentFile.
package graph

import "agentscript/internal/ast"

// NodeKind is the closed-sum tag for RefNode.
type NodeKind int

const (
	NodeStartAgent NodeKind = iota
	NodeTopic
	NodeActionDef
	NodeReasoningAction
	NodeVariable
	NodeConnection
)

// RefNode is one entity in the reference graph.
type RefNode struct {
	Kind    NodeKind
	Name    string // Topic/ActionDef/ReasoningAction/Variable/Connection name; empty for StartAgent
	Topic   string // owning topic name for ActionDef/ReasoningAction; "start_agent" when owned by StartAgent
	Target  string // ReasoningAction's raw target string, if any (for dependency-style reporting)
	Mutable bool   // Variable only
	Span    ast.Span
}

// EdgeKind is the closed-sum tag for RefEdge.
type EdgeKind int

const (
	EdgeRoutes EdgeKind = iota
	EdgeTransitionsTo
	EdgeDelegates
	EdgeInvokes
	EdgeReads
	EdgeWrites
	EdgeChains    // reserved: never produced by the builder (§9 Open Question 3)
	EdgeEscalates // reserved: never produced by the builder (§9 Open Question 3)
)

// RefEdge is one directed relationship between two node indexes.
type RefEdge struct {
	Kind EdgeKind
	From int
	To   int
}

// UnresolvedReference records a source reference that could not be resolved
// to a node during the build's second pass.
type UnresolvedReference struct {
	Reference string // textual form, e.g. "@topic.nonexistent"
	Namespace string
	Span      ast.Span
	Context   string // e.g. "start_agent", "topic main"
}

// Graph is the built reference graph: nodes, edges, and the secondary
// indexes used for O(1) name resolution during the build and for queries
// afterward.
type Graph struct {
	Nodes []RefNode
	Edges []RefEdge

	StartAgentIdx int // -1 if absent
	TopicIdx      map[string]int
	VariableIdx   map[string]int
	ConnectionIdx map[string]int
	ActionIdx     map[[2]string]int // (topic, name) -> node index
	ReasoningIdx  map[[2]string]int // (topic, name) -> node index

	Unresolved []UnresolvedReference

	out map[int][]int // adjacency by node index, all edge kinds
	in  map[int][]int
}

func newGraph() *Graph {
	return &Graph{
		StartAgentIdx: -1,
		TopicIdx:      map[string]int{},
		VariableIdx:   map[string]int{},
		ConnectionIdx: map[string]int{},
		ActionIdx:     map[[2]string]int{},
		ReasoningIdx:  map[[2]string]int{},
		out:           map[int][]int{},
		in:            map[int][]int{},
	}
}

func (g *Graph) addNode(n RefNode) int {
	idx := len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	return idx
}

func (g *Graph) addEdge(kind EdgeKind, from, to int) {
	eidx := len(g.Edges)
	g.Edges = append(g.Edges, RefEdge{Kind: kind, From: from, To: to})
	g.out[from] = append(g.out[from], eidx)
	g.in[to] = append(g.in[to], eidx)
}

// outgoingEdgeIdx returns edge indexes for edges leaving node n.
func (g *Graph) outgoingEdgeIdx(n int) []int { return g.out[n] }

// incomingEdgeIdx returns edge indexes for edges entering node n.
func (g *Graph) incomingEdgeIdx(n int) []int { return g.in[n] }
