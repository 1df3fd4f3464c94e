package parser

import (
	"fmt"
	"strings"

	"agentscript/internal/ast"
)

// ContextEntry is one (label, span) breadcrumb frame active when an Error was raised.
type ContextEntry struct {
	Label string
	Span  ast.Span
}

// Error is a structured parse failure (§6.3): a message, a primary span,
// the set of tokens that would have been accepted, the token that was
// actually found, and the labelled-context breadcrumb trail active at
// the failure site.
type Error struct {
	Message  string
	Span     ast.Span
	Expected []string
	Found    string
	Contexts []ContextEntry
}

func (e Error) Error() string { return e.Message }

// FormatError renders a structured Error as a line-anchored message with
// a caret run under the offending span, per §6.3/§7.
func FormatError(source string, e Error) string {
	lc := ast.OffsetToLineCol(source, e.Span.Start)
	line := ast.LineContent(source, lc.Line)

	var b strings.Builder
	fmt.Fprintf(&b, "Error at line %d, column %d: ", lc.Line, lc.Column)
	if e.Found != "" {
		fmt.Fprintf(&b, "found %s", e.Found)
	} else {
		b.WriteString(e.Message)
	}
	if len(e.Expected) > 0 {
		fmt.Fprintf(&b, ", expected one of %s", strings.Join(e.Expected, ", "))
	}
	if len(e.Contexts) > 0 {
		b.WriteString("\n  while parsing: ")
		parts := make([]string, len(e.Contexts))
		for i, c := range e.Contexts {
			cLC := ast.OffsetToLineCol(source, c.Span.Start)
			parts[i] = fmt.Sprintf("%s (line %d)", c.Label, cLC.Line)
		}
		b.WriteString(strings.Join(parts, " > "))
	}

	caretLen := e.Span.End - e.Span.Start
	remaining := len(line) - (lc.Column - 1)
	if remaining < 0 {
		remaining = 0
	}
	if caretLen > remaining {
		caretLen = remaining
	}
	if caretLen < 1 {
		caretLen = 1
	}
	pad := strings.Repeat(" ", lc.Column-1)
	caret := strings.Repeat("^", caretLen)
	fmt.Fprintf(&b, "\n  |\n%3d | %s\n  | %s%s", lc.Line, line, pad, caret)
	return b.String()
}
