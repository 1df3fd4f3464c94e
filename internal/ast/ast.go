package ast

// AgentFile is the top-level parse result: a complete AgentScript source unit.
type AgentFile struct {
	Config      *Spanned[ConfigBlock]
	Variables   []Spanned[VariableDecl]
	System      *Spanned[SystemBlock]
	Knowledge   *Spanned[KnowledgeBlock]
	Language    *Spanned[LanguageBlock]
	StartAgent  *Spanned[StartAgentBlock]
	Connections []Spanned[ConnectionBlock]
	Topics      []Spanned[TopicBlock]
}

// ConfigBlock declares the agent's identity.
type ConfigBlock struct {
	AgentName         Spanned[string]
	AgentLabel        *Spanned[string]
	Description       *Spanned[string]
	AgentType         *Spanned[string]
	DefaultAgentUser  *Spanned[string]
}

// VariableKind distinguishes mutable state from linked (read-only, externally sourced) state.
type VariableKind int

const (
	VariableMutable VariableKind = iota
	VariableLinked
)

func (k VariableKind) String() string {
	switch k {
	case VariableMutable:
		return "mutable"
	case VariableLinked:
		return "linked"
	default:
		return "unknown"
	}
}

// VariableDecl declares one piece of agent state.
//
// Invariant: Default is populated only when Kind == VariableMutable;
// Source is meaningful only when Kind == VariableLinked.
type VariableDecl struct {
	Name        Spanned[string]
	Kind        VariableKind
	Type        Type
	Default     *Expr
	Description *Spanned[string]
	Source      *Reference
}

// TypeTag enumerates the scalar type vocabulary plus the recursive List case.
type TypeTag int

const (
	TypeString TypeTag = iota
	TypeNumber
	TypeBoolean
	TypeObject
	TypeList
	TypeDate
	TypeTimestamp
	TypeCurrency
	TypeID
	TypeDatetime
	TypeTime
	TypeInteger
	TypeLong
)

// Type is a closed-sum type descriptor. Elem is populated only when Tag == TypeList.
type Type struct {
	Tag  TypeTag
	Elem *Type
}

// SystemBlock carries system-level messages and default instructions.
type SystemBlock struct {
	Instructions *Instructions
	Welcome      *Instructions
	ErrorMessage *Instructions
}

// KnowledgeBlock is an opaque ordered list of (name, string) entries,
// mirroring ConnectionBlock's shape; consumed only by the dependency extractor.
type KnowledgeBlock struct {
	Entries []KeyValueEntry
}

// LanguageBlock is an ordered list of (name, expr) entries, e.g. additional_locales.
type LanguageBlock struct {
	Entries []LanguageEntry
}

// LanguageEntry is one key/expression pair inside a language block.
type LanguageEntry struct {
	Name  Spanned[string]
	Value Expr
}

// ConnectionBlock names an external connection and carries an ordered,
// verbatim list of (name, string-value) entries.
type ConnectionBlock struct {
	Name    Spanned[string]
	Entries []KeyValueEntry
}

// KeyValueEntry is one (name, string) pair as found in connection/knowledge blocks.
type KeyValueEntry struct {
	Key   Spanned[string]
	Value Spanned[string]
}

// TopicBlock is a conversational context: its own instructions, actions, and reasoning.
type TopicBlock struct {
	Name            Spanned[string]
	Description     *Spanned[string]
	System          *Instructions
	Actions         []Spanned[ActionDef]
	BeforeReasoning *Spanned[DirectiveBlock]
	AfterReasoning  *Spanned[DirectiveBlock]
	Reasoning       *Spanned[ReasoningBlock]
}

// StartAgentBlock is the mandatory entry point that routes to topics.
// It shares every field TopicBlock has except Name (it has none).
type StartAgentBlock struct {
	Description     *Spanned[string]
	System          *Instructions
	Actions         []Spanned[ActionDef]
	BeforeReasoning *Spanned[DirectiveBlock]
	AfterReasoning  *Spanned[DirectiveBlock]
	Reasoning       *Spanned[ReasoningBlock]
}

// ActionDef is a tool the agent can call.
type ActionDef struct {
	Name                       Spanned[string]
	Description                *Spanned[string]
	Label                      *Spanned[string]
	RequireUserConfirmation    *Spanned[bool]
	IncludeInProgressIndicator *Spanned[bool]
	ProgressIndicatorMessage   *Spanned[string]
	Target                     *Spanned[string]
	Inputs                     []Spanned[ParamDef]
	Outputs                    []Spanned[ParamDef]
}

// ParamDef describes one action input or output.
type ParamDef struct {
	Name                  Spanned[string]
	Type                  Type
	Description           *Spanned[string]
	Label                 *Spanned[string]
	IsRequired             *Spanned[bool]
	IsDisplayable          *Spanned[bool]
	IsUsedByPlanner        *Spanned[bool]
	ComplexDataTypeName    *Spanned[string]
	FilterFromAgent        *Spanned[bool]
	Available              *Spanned[bool]
}

// StmtKind is the closed-sum tag for directive statements.
type StmtKind int

const (
	StmtSet StmtKind = iota
	StmtRun
	StmtIf
	StmtTransition
)

// Stmt is one imperative statement inside a before_reasoning/after_reasoning block.
type Stmt struct {
	Kind StmtKind
	Span Span

	// StmtSet
	SetTarget *Reference
	SetValue  *Expr

	// StmtRun
	RunAction      *Reference
	RunWithClauses []WithClause
	RunSetClauses  []SetClause

	// StmtIf
	IfCond     *Expr
	IfThen     []Stmt
	IfElse     []Stmt

	// StmtTransition
	TransitionTarget *Reference
}

// WithClause binds a parameter name to a value expression, e.g. `with amount = @variables.x`.
type WithClause struct {
	Param Spanned[string]
	Value Expr
}

// SetClause assigns a value to a reference, e.g. `set @variables.x = 1`.
type SetClause struct {
	Target Reference
	Value  Expr
}

// DirectiveBlock is an ordered list of statements (before_reasoning / after_reasoning).
type DirectiveBlock struct {
	Stmts []Stmt
}

// ReasoningBlock holds the LLM-facing instructions plus the menu of reasoning actions.
type ReasoningBlock struct {
	Instructions *Instructions
	Actions      []Spanned[ReasoningAction]
}

// ReasoningActionTargetKind tags which kind of target a reasoning action binds to.
type ReasoningActionTargetKind int

const (
	TargetAction ReasoningActionTargetKind = iota
	TargetTransitionTo
	TargetTopicDelegate
	TargetEscalate
	TargetSetVariables
)

// ReasoningActionTarget is the closed-sum decision a reasoning action represents.
type ReasoningActionTarget struct {
	Kind ReasoningActionTargetKind
	Ref  *Reference // populated for TargetAction, TargetTransitionTo, TargetTopicDelegate
}

// ReasoningAction is a decision an LLM may invoke during reasoning.
type ReasoningAction struct {
	Name            Spanned[string]
	Target          ReasoningActionTarget
	Description     *Spanned[string]
	AvailableWhen   *Expr
	WithClauses     []WithClause
	SetClauses      []SetClause
	RunClauses      []Stmt // StmtRun entries
	IfClauses       []Stmt // StmtIf entries
	Transition      *Reference
}

// InstructionsKind tags which of the three instruction forms is present.
type InstructionsKind int

const (
	InstructionsSimple InstructionsKind = iota
	InstructionsStatic
	InstructionsDynamic
)

// Instructions is the closed-sum prompt-template value attached to system/topic/reasoning blocks.
type Instructions struct {
	Kind    InstructionsKind
	Simple  Spanned[string]          // InstructionsSimple
	Static  []Spanned[string]        // InstructionsStatic: one Text line per entry
	Dynamic []Spanned[InstructionPart] // InstructionsDynamic
}

// InstructionPartKind tags Dynamic-instruction segments.
type InstructionPartKind int

const (
	PartText InstructionPartKind = iota
	PartInterpolation
	PartConditional
)

// InstructionPart is one segment of a Dynamic instruction.
type InstructionPart struct {
	Kind InstructionPartKind

	Text          string // PartText
	Interpolation *Expr  // PartInterpolation

	// PartConditional
	Cond      *Expr
	ThenParts []Spanned[InstructionPart]
	ElseParts []Spanned[InstructionPart]
}
