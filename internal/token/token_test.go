package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Text:       "text",
		IfOpen:     "if",
		ElseIf:     "elseif",
		Else:       "else",
		IfClose:    "/if",
		FuncOpen:   "func",
		FuncClose:  "/func",
		Include:    "template",
		Expression: "expression",
		VarAssign:  "setvar",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestOpensCloses(t *testing.T) {
	assert.True(t, Token{Kind: IfOpen}.Opens())
	assert.True(t, Token{Kind: FuncOpen}.Opens())
	assert.True(t, Token{Kind: IfClose}.Closes())
	assert.True(t, Token{Kind: FuncClose}.Closes())
	assert.False(t, Token{Kind: Else}.Opens())
	assert.False(t, Token{Kind: Else}.Closes())
}

func TestOnlyText(t *testing.T) {
	assert.True(t, ParsedTemplate{Tokens: []Token{{Kind: Text, Value: "hi"}}}.OnlyText())
	assert.False(t, ParsedTemplate{Tokens: []Token{
		{Kind: Text, Value: "hi"},
		{Kind: Expression, Value: "$x"},
	}}.OnlyText())
	assert.False(t, ParsedTemplate{}.OnlyText())
}

func TestTokenString(t *testing.T) {
	tok := Token{Kind: VarAssign, Name: "title", Value: "'Home'", Position: 12}
	s := tok.String()
	assert.Contains(t, s, "setvar")
	assert.Contains(t, s, "title")
	assert.Contains(t, s, "@12")
}
