// Package deps classifies action target strings by URI scheme and reports
// every external dependency an agent definition declares, without
// attempting to resolve any of them (that is the reference graph's job).
package deps

import (
	"strings"

	"agentscript/internal/ast"
)

// Type is the closed-sum classification of one dependency reference.
type Type int

const (
	TypeFlow Type = iota
	TypeApexClass
	TypeApexMethod
	TypePromptTemplate
	TypeExternalService
	TypeSObject
	TypeField
	TypeKnowledgeBase
	TypeConnection
	TypeCustom
)

func (t Type) String() string {
	switch t {
	case TypeFlow:
		return "Flow"
	case TypeApexClass:
		return "ApexClass"
	case TypeApexMethod:
		return "ApexMethod"
	case TypePromptTemplate:
		return "PromptTemplate"
	case TypeExternalService:
		return "ExternalService"
	case TypeSObject:
		return "SObject"
	case TypeField:
		return "Field"
	case TypeKnowledgeBase:
		return "KnowledgeBase"
	case TypeConnection:
		return "Connection"
	default:
		return "Custom"
	}
}

// Dependency is one use site of an external reference.
type Dependency struct {
	Type       Type
	Reference  string // raw target string, or entry name for Knowledge/Connection
	UsedIn     string // topic name or "start_agent"
	ActionName string // empty for Knowledge/Connection entries
	Span       ast.Span
}

// Report is the output of Extract: a flat use-site list plus two grouping
// indexes over it, and de-duplicated reference sets per category (§4.10).
type Report struct {
	Flat    []Dependency
	ByType  map[Type][]Dependency
	ByTopic map[string][]Dependency

	// Sets holds the distinct reference strings seen for each Type,
	// de-duplicated across every use site.
	Sets map[Type]map[string]bool
}

func newReport() *Report {
	return &Report{
		ByType:  map[Type][]Dependency{},
		ByTopic: map[string][]Dependency{},
		Sets:    map[Type]map[string]bool{},
	}
}

func (r *Report) add(d Dependency) {
	r.Flat = append(r.Flat, d)
	r.ByType[d.Type] = append(r.ByType[d.Type], d)
	r.ByTopic[d.UsedIn] = append(r.ByTopic[d.UsedIn], d)
	if r.Sets[d.Type] == nil {
		r.Sets[d.Type] = map[string]bool{}
	}
	r.Sets[d.Type][d.Reference] = true
}

// Extract walks every action target in file, plus its knowledge and
// connection blocks, and classifies each as a Dependency. It performs no
// cross-reference resolution (§4.10).
func Extract(file *ast.AgentFile) *Report {
	r := newReport()

	if file.StartAgent != nil {
		extractActionTargets(r, "start_agent", file.StartAgent.Node.Actions)
	}
	for _, t := range file.Topics {
		extractActionTargets(r, t.Node.Name.Node, t.Node.Actions)
	}

	if file.Knowledge != nil {
		for _, e := range file.Knowledge.Node.Entries {
			r.add(Dependency{Type: TypeKnowledgeBase, Reference: e.Key.Node, Span: e.Key.Span})
		}
	}
	for _, c := range file.Connections {
		r.add(Dependency{Type: TypeConnection, Reference: c.Node.Name.Node, Span: c.Span})
	}

	return r
}

func extractActionTargets(r *Report, topic string, actions []ast.Spanned[ast.ActionDef]) {
	for _, a := range actions {
		if a.Node.Target == nil {
			continue
		}
		raw := a.Node.Target.Node
		r.add(Dependency{
			Type:       Classify(raw),
			Reference:  raw,
			UsedIn:     topic,
			ActionName: a.Node.Name.Node,
			Span:       a.Node.Target.Span,
		})
	}
}

// Classify maps a raw action target string to its dependency Type by URI
// scheme (§4.10). Any scheme not in the known table, or a string with no
// "://" at all, classifies as Custom.
func Classify(raw string) Type {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return TypeCustom
	}
	switch scheme {
	case "flow":
		return TypeFlow
	case "apex":
		if strings.Contains(rest, ".") {
			return TypeApexMethod
		}
		return TypeApexClass
	case "prompt":
		return TypePromptTemplate
	case "service":
		return TypeExternalService
	case "create", "read", "update", "delete", "query":
		if strings.Contains(rest, ".") {
			return TypeField
		}
		return TypeSObject
	default:
		return TypeCustom
	}
}
