// Package lexer turns AgentScript source into a token stream.
//
// Tokenizing happens in two stages. Stage one (Tokenize) performs a
// longest-match raw scan with no notion of blocks. Stage two (the
// indentation normalizer, in indent.go) walks that flat stream and
// synthesizes Indent/Dedent/Newline markers from a column-width stack,
// so the grammar in internal/parser never has to reason about
// whitespace directly.
package lexer

import "agentscript/internal/ast"

// Kind tags every token category named in the source syntax summary.
type Kind int

const (
	Ident Kind = iota
	EOF
	Newline
	Indent
	Dedent
	Comment
	UnicodeText

	// Literals.
	True
	False
	None
	Number
	String

	// Operators.
	Eq
	Ne
	Lt
	Gt
	Le
	Ge
	Assign
	Plus
	Minus
	KwAnd
	KwOr
	KwNot
	KwIs

	// Punctuation.
	Colon
	Dot
	Comma
	At
	Pipe
	Arrow        // ->
	ColonPipe    // :|
	ColonArrow   // :->
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	BraceBang    // {!
	DoubleLBrace // {{
	DoubleRBrace // }}
	Ellipsis     // ...
	TextPunct    // one of / ? ! $ % * & ; ` ~ ^ \ _ '

	// Type names.
	TypeString
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

	// Keywords.
	KwConfig
	KwVariables
	KwSystem
	KwTopic
	KwStartAgent
	KwActions
	KwInputs
	KwOutputs
	KwTarget
	KwReasoning
	KwInstructions
	KwBeforeReasoning
	KwAfterReasoning
	KwMessages
	KwWelcome
	KwError
	KwConnection
	KwConnections
	KwKnowledge
	KwLanguage
	KwMutable
	KwLinked
	KwDescription
	KwSource
	KwLabel
	KwIsRequired
	KwIsDisplayable
	KwIsUsedByPlanner
	KwComplexDataTypeName
	KwFilterFromAgent
	KwRequireUserConfirmation
	KwIncludeInProgressIndicator
	KwProgressIndicatorMessage
	KwIf
	KwElse
	KwRun
	KwWith
	KwSet
	KwTo
	KwAs
	KwTransition
	KwAvailable
	KwWhen
)

// Token is a tagged value plus a span.
type Token struct {
	Kind Kind
	Text string // raw lexeme for Ident/UnicodeText/Comment/TextPunct; unescaped inner bytes for String
	Num  float64
	Span ast.Span
}

var keywords = map[string]Kind{
	"config":                         KwConfig,
	"variables":                      KwVariables,
	"system":                         KwSystem,
	"topic":                          KwTopic,
	"start_agent":                    KwStartAgent,
	"actions":                        KwActions,
	"inputs":                         KwInputs,
	"outputs":                        KwOutputs,
	"target":                         KwTarget,
	"reasoning":                      KwReasoning,
	"instructions":                   KwInstructions,
	"before_reasoning":               KwBeforeReasoning,
	"after_reasoning":                KwAfterReasoning,
	"messages":                       KwMessages,
	"welcome":                        KwWelcome,
	"error":                          KwError,
	"connection":                     KwConnection,
	"connections":                    KwConnections,
	"knowledge":                      KwKnowledge,
	"language":                       KwLanguage,
	"mutable":                        KwMutable,
	"linked":                         KwLinked,
	"description":                    KwDescription,
	"source":                         KwSource,
	"label":                          KwLabel,
	"is_required":                    KwIsRequired,
	"is_displayable":                 KwIsDisplayable,
	"is_used_by_planner":             KwIsUsedByPlanner,
	"complex_data_type_name":         KwComplexDataTypeName,
	"filter_from_agent":              KwFilterFromAgent,
	"require_user_confirmation":      KwRequireUserConfirmation,
	"include_in_progress_indicator":  KwIncludeInProgressIndicator,
	"progress_indicator_message":     KwProgressIndicatorMessage,
	"if":                             KwIf,
	"else":                           KwElse,
	"run":                            KwRun,
	"with":                           KwWith,
	"set":                            KwSet,
	"to":                             KwTo,
	"as":                             KwAs,
	"transition":                     KwTransition,
	"available":                      KwAvailable,
	"when":                           KwWhen,
	"is":                             KwIs,
	"not":                            KwNot,
	"and":                            KwAnd,
	"or":                             KwOr,
	"True":                           True,
	"False":                          False,
	"None":                           None,
}

var typeNames = map[string]Kind{
	"string":    TypeString,
	"number":    TypeNumber,
	"boolean":   TypeBoolean,
	"object":    TypeObject,
	"list":      TypeList,
	"date":      TypeDate,
	"timestamp": TypeTimestamp,
	"currency":  TypeCurrency,
	"id":        TypeID,
	"datetime":  TypeDatetime,
	"time":      TypeTime,
	"integer":   TypeInteger,
	"long":      TypeLong,
}

// textPunctChars are always lexed as a single TextPunct token; a literal
// single quote is always text, never the start of anything special.
const textPunctChars = "/?!$%*&;`~^\\_'"

// KindName renders a Kind for error messages ("expected ... found ...").
func KindName(k Kind) string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "token"
}

var kindNames = func() map[Kind]string {
	m := map[Kind]string{
		Ident:        "identifier",
		EOF:          "end of input",
		Newline:      "newline",
		Indent:       "indent",
		Dedent:       "dedent",
		Comment:      "comment",
		UnicodeText:  "text",
		True:         "True",
		False:        "False",
		None:         "None",
		Number:       "number",
		String:       "string",
		Eq:           "'=='",
		Ne:           "'!='",
		Lt:           "'<'",
		Gt:           "'>'",
		Le:           "'<='",
		Ge:           "'>='",
		Assign:       "'='",
		Plus:         "'+'",
		Minus:        "'-'",
		KwAnd:        "'and'",
		KwOr:         "'or'",
		KwNot:        "'not'",
		KwIs:         "'is'",
		Colon:        "':'",
		Dot:          "'.'",
		Comma:        "','",
		At:           "'@'",
		Pipe:         "'|'",
		Arrow:        "'->'",
		ColonPipe:    "':|'",
		ColonArrow:   "':->'",
		LParen:       "'('",
		RParen:       "')'",
		LBracket:     "'['",
		RBracket:     "']'",
		LBrace:       "'{'",
		RBrace:       "'}'",
		BraceBang:    "'{!'",
		DoubleLBrace: "'{{'",
		DoubleRBrace: "'}}'",
		Ellipsis:     "'...'",
		TextPunct:    "punctuation",
	}
	for name, kind := range keywords {
		m[kind] = "'" + name + "'"
	}
	for name, kind := range typeNames {
		m[kind] = "'" + name + "'"
	}
	return m
}()
