// Package agentscript is the stable public surface of the AgentScript
// toolchain: parsing, semantic validation, serialization, reference-graph
// construction, and dependency extraction. External consumers should
// import this package only; everything under internal/ may change
// without notice.
package agentscript

import (
	"agentscript/internal/ast"
	"agentscript/internal/deps"
	"agentscript/internal/graph"
	"agentscript/internal/parser"
	"agentscript/internal/serialize"
	"agentscript/internal/validate"
)

// Re-exported result types.
type (
	// AgentFile is the parsed representation of one AgentScript source unit.
	AgentFile = ast.AgentFile
	// Span is a byte interval into the original source.
	Span = ast.Span
	// ParseError is a structured parse failure with expected set, found
	// token, and context-chain breadcrumbs.
	ParseError = parser.Error
	// SemanticError is one semantic-rule violation.
	SemanticError = validate.SemanticError
	// Graph is the reference graph over an AgentFile's definitions.
	Graph = graph.Graph
	// DependencyReport classifies every external reference an agent
	// definition declares.
	DependencyReport = deps.Report
)

// Parse parses source strictly: any error aborts, and both the partial
// AST (possibly nil) and the error list are returned.
func Parse(source string) (*AgentFile, []ParseError) {
	return parser.Parse(source)
}

// ParsePartial parses with skip-then-retry recovery at top-level block
// boundaries, returning a best-effort AST alongside every error found.
func ParsePartial(source string) (*AgentFile, []ParseError) {
	return parser.ParsePartial(source)
}

// FormatParseError renders a parse error as a line-anchored message with
// a caret run under the offending span.
func FormatParseError(source string, e ParseError) string {
	return parser.FormatError(source, e)
}

// ValidateAST applies the AST-level semantic rules.
func ValidateAST(file *AgentFile) []SemanticError {
	return validate.Validate(file)
}

// Serialize renders file as canonical AgentScript source (3-space
// indentation, canonical key order).
func Serialize(file *AgentFile) string {
	return serialize.Serialize(file)
}

// BuildGraph constructs the reference graph from a parsed file. It never
// fails: unresolved references are collected inside the graph and
// surfaced by its Validate method.
func BuildGraph(file *AgentFile) *Graph {
	return graph.Build(file)
}

// ExtractDependencies classifies every action target, knowledge entry,
// and connection block by dependency type.
func ExtractDependencies(file *AgentFile) *DependencyReport {
	return deps.Extract(file)
}
