// Package errors defines the structured error types shared by the parser,
// compiler, security policy and runtime.
//
// Every component raises a *ScriptError with a Type, a stable Code and the
// byte offset of the offending construct. Errors flow upward unwrapped; the
// runtime is the single place where they are matched and converted into the
// fail-open result.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType categorizes errors by the pipeline stage that raised them.
type ErrorType string

const (
	ErrorTypeParse    ErrorType = "parse"
	ErrorTypeCompile  ErrorType = "compile"
	ErrorTypeSecurity ErrorType = "security"
	ErrorTypeCache    ErrorType = "cache"
	ErrorTypeStore    ErrorType = "store"
	ErrorTypeConfig   ErrorType = "config"
)

// Stable error codes. Tests and callers match on these rather than on
// message text.
const (
	ErrCodeUnclosed        = "ERR_UNCLOSED"
	ErrCodeUnexpectedClose = "ERR_UNEXPECTED_CLOSE"
	ErrCodeMalformed       = "ERR_MALFORMED_CONSTRUCT"

	ErrCodeUnbalancedConditional = "ERR_UNBALANCED_CONDITIONAL"
	ErrCodeElseWithoutIf         = "ERR_ELSE_WITHOUT_IF"
	ErrCodeMultipleElse          = "ERR_MULTIPLE_ELSE"
	ErrCodeElseIfAfterElse       = "ERR_ELSEIF_AFTER_ELSE"
	ErrCodeSecurityViolation     = "ERR_SECURITY_VIOLATION"

	ErrCodeForbiddenPattern   = "ERR_FORBIDDEN_PATTERN"
	ErrCodeDisallowedFunction = "ERR_DISALLOWED_FUNCTION"

	ErrCodeCacheWrite    = "ERR_CACHE_WRITE"
	ErrCodeCacheNotReady = "ERR_CACHE_NOT_READY"
	ErrCodeTemplateRead  = "ERR_TEMPLATE_READ"
	ErrCodeConfigInvalid = "ERR_CONFIG_INVALID"
)

// ScriptError is the structured error type used across the pipeline.
type ScriptError struct {
	Type     ErrorType
	Code     string
	Message  string
	Position int    // byte offset into the template text, -1 when unknown
	Template string // template identity, filled in at the runtime boundary
	Cause    error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	if e.Template != "" {
		parts = append(parts, "template:"+e.Template)
	}
	if e.Position >= 0 {
		parts = append(parts, fmt.Sprintf("offset:%d", e.Position))
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// Is matches errors by type and code.
func (e *ScriptError) Is(target error) bool {
	var t *ScriptError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithTemplate records the template identity on the error. Used at the
// runtime boundary so component code stays identity-agnostic.
func (e *ScriptError) WithTemplate(name string) *ScriptError {
	e.Template = name
	return e
}

// Parse error constructors

// NewUnclosed reports a construct that was opened but never closed.
func NewUnclosed(construct string, position int) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeParse,
		Code:     ErrCodeUnclosed,
		Message:  "unclosed construct: " + construct,
		Position: position,
	}
}

// NewUnexpectedClose reports a close marker with no matching open.
func NewUnexpectedClose(construct string, position int) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeParse,
		Code:     ErrCodeUnexpectedClose,
		Message:  "unexpected close: " + construct,
		Position: position,
	}
}

// NewMalformedConstruct reports a construct marker that could not be read.
func NewMalformedConstruct(detail string, position int) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeParse,
		Code:     ErrCodeMalformed,
		Message:  "malformed construct: " + detail,
		Position: position,
	}
}

// Compile error constructors

// NewUnbalancedConditional reports a conditional nesting defect detected by
// the compiler's final balance check.
func NewUnbalancedConditional(depth int) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeCompile,
		Code:     ErrCodeUnbalancedConditional,
		Message:  fmt.Sprintf("unbalanced conditional, depth %d at end of input", depth),
		Position: -1,
	}
}

// NewElseWithoutIf reports an else branch outside any conditional.
func NewElseWithoutIf(position int) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeCompile,
		Code:     ErrCodeElseWithoutIf,
		Message:  "else without open conditional",
		Position: position,
	}
}

// NewMultipleElse reports a second else branch in one conditional.
func NewMultipleElse(position int) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeCompile,
		Code:     ErrCodeMultipleElse,
		Message:  "conditional has more than one else branch",
		Position: position,
	}
}

// NewElseIfAfterElse reports an elseif branch following an else branch.
func NewElseIfAfterElse(position int) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeCompile,
		Code:     ErrCodeElseIfAfterElse,
		Message:  "elseif after else branch",
		Position: position,
	}
}

// NewSecurityViolation wraps a security rejection raised during compilation.
func NewSecurityViolation(position int, cause error) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeCompile,
		Code:     ErrCodeSecurityViolation,
		Message:  "expression rejected by security policy",
		Position: position,
		Cause:    cause,
	}
}

// Security error constructors

// NewForbiddenPattern reports expression text matching a forbidden pattern.
func NewForbiddenPattern(category, matched string) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeSecurity,
		Code:     ErrCodeForbiddenPattern,
		Message:  fmt.Sprintf("forbidden pattern (%s): %q", category, matched),
		Position: -1,
	}
}

// NewDisallowedFunction reports a call to a function outside the allow-set.
func NewDisallowedFunction(name string) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeSecurity,
		Code:     ErrCodeDisallowedFunction,
		Message:  "function not allowed: " + name,
		Position: -1,
	}
}

// Infrastructure error constructors

// NewCacheError wraps a persistent-cache failure.
func NewCacheError(code, message string, cause error) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeCache,
		Code:     code,
		Message:  message,
		Position: -1,
		Cause:    cause,
	}
}

// NewStoreError wraps a template-store read failure.
func NewStoreError(message string, cause error) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeStore,
		Code:     ErrCodeTemplateRead,
		Message:  message,
		Position: -1,
		Cause:    cause,
	}
}

// NewConfigError reports an invalid configuration value.
func NewConfigError(message string) *ScriptError {
	return &ScriptError{
		Type:     ErrorTypeConfig,
		Code:     ErrCodeConfigInvalid,
		Message:  message,
		Position: -1,
	}
}

// Predicates used at the runtime boundary and in tests.

// IsParseError reports whether err is a parse-stage error.
func IsParseError(err error) bool { return isType(err, ErrorTypeParse) }

// IsCompileError reports whether err is a compile-stage error.
func IsCompileError(err error) bool { return isType(err, ErrorTypeCompile) }

// IsSecurityError reports whether err is a security rejection, directly or
// wrapped inside a compile error.
func IsSecurityError(err error) bool {
	if isType(err, ErrorTypeSecurity) {
		return true
	}
	var se *ScriptError
	if errors.As(err, &se) && se.Cause != nil {
		return isType(se.Cause, ErrorTypeSecurity)
	}
	return false
}

// CodeOf extracts the stable code from err, or "" for foreign errors.
func CodeOf(err error) string {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func isType(err error, t ErrorType) bool {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Type == t
	}
	return false
}
