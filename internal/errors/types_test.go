package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptErrorFormatting(t *testing.T) {
	err := NewUnclosed("if", 42).WithTemplate("header")

	msg := err.Error()
	assert.Contains(t, msg, "[ERR_UNCLOSED]")
	assert.Contains(t, msg, "template:header")
	assert.Contains(t, msg, "offset:42")
	assert.Contains(t, msg, "unclosed construct: if")
}

func TestScriptErrorOmitsUnknownPosition(t *testing.T) {
	err := NewDisallowedFunction("exec")
	assert.NotContains(t, err.Error(), "offset:")
}

func TestErrorWrapping(t *testing.T) {
	inner := NewForbiddenPattern("shell execution", "shell_exec(")
	outer := NewSecurityViolation(7, inner)

	require.ErrorIs(t, outer.Unwrap(), inner)
	assert.True(t, IsCompileError(outer))
	assert.True(t, IsSecurityError(outer), "wrapped security cause should be visible")
	assert.True(t, IsSecurityError(inner))
	assert.False(t, IsParseError(outer))
}

func TestIsMatchesByTypeAndCode(t *testing.T) {
	a := NewMultipleElse(10)
	b := NewMultipleElse(99)
	c := NewElseWithoutIf(10)

	assert.True(t, errors.Is(a, b), "same type and code should match regardless of position")
	assert.False(t, errors.Is(a, c))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeElseIfAfterElse, CodeOf(NewElseIfAfterElse(3)))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}
