package graph

import "fmt"

// unresolvedError adapts UnresolvedReference to error for ValidationResult.
type unresolvedError struct{ ref UnresolvedReference }

func (e unresolvedError) Error() string {
	return fmt.Sprintf("unresolved reference %s (namespace %s) in %s", e.ref.Reference, e.ref.Namespace, e.ref.Context)
}

// Value exposes the underlying UnresolvedReference for callers that want
// the structured value rather than the formatted message.
func (e unresolvedError) Value() UnresolvedReference { return e.ref }

type cycleError struct{ cycle CycleDetected }

func (e cycleError) Error() string {
	return fmt.Sprintf("cycle detected among topics %v", e.cycle.Path)
}

func (e cycleError) Value() CycleDetected { return e.cycle }

type unreachableError struct{ topic UnreachableTopic }

func (e unreachableError) Error() string {
	return fmt.Sprintf("topic %q is unreachable from start_agent", e.topic.Name)
}

func (e unreachableError) Value() UnreachableTopic { return e.topic }

type unusedActionError struct{ action UnusedActionDef }

func (e unusedActionError) Error() string {
	return fmt.Sprintf("action %q in topic %q is never invoked", e.action.Name, e.action.Topic)
}

func (e unusedActionError) Value() UnusedActionDef { return e.action }

type unusedVariableError struct{ variable UnusedVariable }

func (e unusedVariableError) Error() string {
	return fmt.Sprintf("variable %q is never read", e.variable.Name)
}

func (e unusedVariableError) Value() UnusedVariable { return e.variable }
