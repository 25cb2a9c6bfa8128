// Package token defines the lexical token model produced by the template
// parser and consumed read-only by the compiler.
package token

import "fmt"

// Kind identifies the syntactic construct a token represents.
type Kind int

const (
	// Text is an unrecognized run of source bytes, preserved exactly.
	Text Kind = iota
	// IfOpen opens a conditional block: <if EXPR then>.
	IfOpen
	// ElseIf starts an alternative guarded branch: <elseif EXPR then>.
	ElseIf
	// Else starts the unconditional default branch: <else />.
	Else
	// IfClose closes a conditional block: </if>.
	IfClose
	// FuncOpen opens a function wrap: <func NAME>.
	FuncOpen
	// FuncClose closes a function wrap: </func>.
	FuncClose
	// Include splices a named sub-template: <template NAME />.
	Include
	// Expression is an inline expression: {= EXPR }.
	Expression
	// VarAssign binds a value to a render-scoped variable:
	// <setvar NAME>VALUE</setvar>.
	VarAssign
)

// String returns the construct name used in error messages.
func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case IfOpen:
		return "if"
	case ElseIf:
		return "elseif"
	case Else:
		return "else"
	case IfClose:
		return "/if"
	case FuncOpen:
		return "func"
	case FuncClose:
		return "/func"
	case Include:
		return "template"
	case Expression:
		return "expression"
	case VarAssign:
		return "setvar"
	default:
		return "unknown"
	}
}

// Token is one recognized syntactic unit with its source position and
// kind-specific payload. Which payload fields are meaningful depends on Kind:
//
//	Text                 Value = exact source bytes
//	IfOpen, ElseIf       Value = condition text as stored
//	FuncOpen             Name  = function name
//	Include              Name  = sub-template name
//	Expression           Value = expression text as stored
//	VarAssign            Name  = variable name, Value = value text as stored
//	Else, IfClose, FuncClose carry no payload
//
// Payload text keeps the upstream store's quote escaping; the security
// policy undoes it exactly once during validation.
type Token struct {
	Kind     Kind
	Position int // byte offset of the token's first byte in the source
	Name     string
	Value    string
}

// String returns a debug representation of the token.
func (t Token) String() string {
	switch {
	case t.Name != "" && t.Value != "":
		return fmt.Sprintf("Token{%s %s=%q @%d}", t.Kind, t.Name, t.Value, t.Position)
	case t.Name != "":
		return fmt.Sprintf("Token{%s %s @%d}", t.Kind, t.Name, t.Position)
	case t.Value != "":
		return fmt.Sprintf("Token{%s %q @%d}", t.Kind, t.Value, t.Position)
	default:
		return fmt.Sprintf("Token{%s @%d}", t.Kind, t.Position)
	}
}

// IsText reports whether the token is a plain text run.
func (t Token) IsText() bool { return t.Kind == Text }

// Opens reports whether the token opens a nesting construct.
func (t Token) Opens() bool { return t.Kind == IfOpen || t.Kind == FuncOpen }

// Closes reports whether the token closes a nesting construct.
func (t Token) Closes() bool { return t.Kind == IfClose || t.Kind == FuncClose }

// ParsedTemplate is the ordered token sequence for one template. It is
// created once per parse, treated as immutable, and discarded after
// compilation; only compiled output is cached.
type ParsedTemplate struct {
	Tokens []Token
}

// OnlyText reports whether the template consists of a single Text token, the
// common case for templates with no embedded constructs.
func (p ParsedTemplate) OnlyText() bool {
	return len(p.Tokens) == 1 && p.Tokens[0].Kind == Text
}
