package compiler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scripterrors "github.com/conneroisu/scriptlet/internal/errors"
	"github.com/conneroisu/scriptlet/internal/parser"
	"github.com/conneroisu/scriptlet/internal/security"
	"github.com/conneroisu/scriptlet/internal/token"
)

// mapIncluder is a test stand-in for the template store.
type mapIncluder map[string]string

func (m mapIncluder) Get(name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", fmt.Errorf("no template %q", name)
	}
	return text, nil
}

func compileText(t *testing.T, text string, includer Includer) (string, error) {
	t.Helper()
	parsed, err := parser.New().Parse(text)
	require.NoError(t, err)
	return New(security.NewPolicy(), includer).Compile(parsed)
}

func TestCompilePassThroughIdentity(t *testing.T) {
	text := `plain markup with "quotes" and $signs`
	parsed := token.ParsedTemplate{Tokens: []token.Token{{Kind: token.Text, Value: text}}}

	out, err := New(security.NewPolicy(), nil).Compile(parsed)
	require.NoError(t, err)
	assert.Equal(t, text, out, "construct-free templates compile to themselves")
}

func TestCompileConditionalWithExpression(t *testing.T) {
	out, err := compileText(t, "<if $x then>{= strlen($x) }</if>", nil)
	require.NoError(t, err)
	assert.Equal(t, `(($x) ? ((strlen($x))) : (""))`, out)
}

func TestCompileTwoBranchConditional(t *testing.T) {
	out, err := compileText(t, "<if $a then>text<else />other</if>", nil)
	require.NoError(t, err)
	assert.Equal(t, `(($a) ? ("text") : ("other"))`, out)
}

func TestCompileElseIfChain(t *testing.T) {
	out, err := compileText(t, "<if $a then>A<elseif $b then>B<else />C</if>", nil)
	require.NoError(t, err)
	assert.Equal(t, `(($a) ? ("A") : ((($b) ? ("B") : ("C"))))`, out)
}

func TestCompileMixedTextAndConstructs(t *testing.T) {
	out, err := compileText(t, `pre {= $x } post`, nil)
	require.NoError(t, err)
	assert.Equal(t, `"pre " . ($x) . " post"`, out)
}

func TestCompileFunctionWrap(t *testing.T) {
	out, err := compileText(t, "<func trim> padded </func>", nil)
	require.NoError(t, err)
	assert.Equal(t, `trim((" padded "))`, out)
}

func TestCompileFunctionWrapRejectsUnknownName(t *testing.T) {
	_, err := compileText(t, "<func system>ls</func>", nil)
	require.Error(t, err)
	assert.Equal(t, scripterrors.ErrCodeSecurityViolation, scripterrors.CodeOf(err))
	assert.True(t, scripterrors.IsSecurityError(err))
}

func TestCompileInclude(t *testing.T) {
	store := mapIncluder{"footer": "-- the footer --"}

	out, err := compileText(t, "before <template footer /> after", store)
	require.NoError(t, err)
	assert.Equal(t, `"before " . "-- the footer --" . " after"`, out)
}

func TestCompileIncludeMissingTemplate(t *testing.T) {
	_, err := compileText(t, "<template ghost />", mapIncluder{})
	require.Error(t, err)

	_, err = compileText(t, "<template ghost />", nil)
	require.Error(t, err, "nil includer fails the compile")
}

func TestCompileVarAssignEmitsNoOutputValue(t *testing.T) {
	out, err := compileText(t, "<setvar title>'Home'</setvar>rest", nil)
	require.NoError(t, err)
	assert.Equal(t, `set('title', ('Home')) . "rest"`, out)
}

func TestCompileSecurityRejectionAbortsWholeCompile(t *testing.T) {
	cases := []string{
		"<if shell_exec('id') then>x</if>",
		"{= eval($x) }",
		"<setvar v>unserialize($blob)</setvar>",
		"ok text {= $fine } <if $also_fine then>y<elseif system('x') then>z</if>",
	}
	for _, text := range cases {
		_, err := compileText(t, text, nil)
		require.Error(t, err, text)
		assert.Equal(t, scripterrors.ErrCodeSecurityViolation, scripterrors.CodeOf(err), text)
	}
}

func TestCompileMultipleElse(t *testing.T) {
	_, err := compileText(t, "<if $a then>text<else />x<else />y</if>", nil)
	require.Error(t, err)
	assert.Equal(t, scripterrors.ErrCodeMultipleElse, scripterrors.CodeOf(err))
}

func TestCompileElseIfAfterElse(t *testing.T) {
	_, err := compileText(t, "<if $a then>x<else />y<elseif $b then>z</if>", nil)
	require.Error(t, err)
	assert.Equal(t, scripterrors.ErrCodeElseIfAfterElse, scripterrors.CodeOf(err))
}

func TestCompileElseWithoutIf(t *testing.T) {
	for _, text := range []string{
		"x<else />y",
		"<func trim><else /></func>",
	} {
		_, err := compileText(t, text, nil)
		require.Error(t, err, text)
		assert.Equal(t, scripterrors.ErrCodeElseWithoutIf, scripterrors.CodeOf(err), text)
	}
}

func TestCompileBalanceCheckCatchesRawSequences(t *testing.T) {
	// A token sequence that bypasses the parser's structural pass.
	parsed := token.ParsedTemplate{Tokens: []token.Token{
		{Kind: token.IfOpen, Value: "$a"},
		{Kind: token.Text, Value: "x"},
	}}
	_, err := New(security.NewPolicy(), nil).Compile(parsed)
	require.Error(t, err)
	assert.Equal(t, scripterrors.ErrCodeUnbalancedConditional, scripterrors.CodeOf(err))
}

func TestCompileNestedConditionals(t *testing.T) {
	out, err := compileText(t, "<if $a then><if $b then>x</if><else />y</if>", nil)
	require.NoError(t, err)
	assert.Equal(t, `(($a) ? ((($b) ? ("x") : (""))) : ("y"))`, out)
}

func TestCompileIdenticalInputYieldsIdenticalFragment(t *testing.T) {
	text := "<if $a then>A<elseif $b then>{= trim($b) }<else />C</if>"
	first, err := compileText(t, text, nil)
	require.NoError(t, err)
	second, err := compileText(t, text, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLiteralEscaping(t *testing.T) {
	out, err := compileText(t, `say "hi" \ {= $x }`, nil)
	require.NoError(t, err)
	assert.Equal(t, `"say \"hi\" \\ " . ($x)`, out)
}

func TestAutoQuote(t *testing.T) {
	cases := map[string]string{
		"'already'":      "'already'",
		`"also quoted"`:  `"also quoted"`,
		"$var":           "$var",
		"42":             "42",
		"-3.5":           "-3.5",
		"true":           "true",
		"FALSE":          "FALSE",
		"null":           "null",
		"strlen($x)":     "strlen($x)",
		"array(1, 2)":    "array(1, 2)",
		"[1, 2]":         "[1, 2]",
		"bare words":     "'bare words'",
		"it's quoted":    `'it\'s quoted'`,
		"1 + 2":          "'1 + 2'",
		"  padded  ":     "'padded'",
		"":               "''",
		"back\\slash":    `'back\\slash'`,
		"$var . 'tail'":  "$var . 'tail'",
	}
	for in, want := range cases {
		assert.Equal(t, want, autoQuote(in), "input %q", in)
	}
}
