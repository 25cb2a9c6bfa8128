// Package parser turns raw template text into the ordered token sequence
// consumed by the compiler.
//
// The scan is a single left-to-right pass over the combined construct
// pattern; byte runs between matches become Text tokens with their exact
// source bytes. A cheap pre-check short-circuits templates that contain no
// construct marker at all, which is the common case.
package parser

import (
	"regexp"
	"strings"

	"github.com/conneroisu/scriptlet/internal/errors"
	"github.com/conneroisu/scriptlet/internal/token"
)

// markerPattern is the fast pre-check: does the text contain anything that
// could be a construct? Kept deliberately loose so that near-miss construct
// text is parsed (and rejected as malformed) instead of silently passed
// through.
var markerPattern = regexp.MustCompile(`</?(?:if|elseif|else|func|template|setvar)\b|\{=`)

// constructPattern matches every well-formed construct marker. Alternation
// order is the recognition priority. Submatch groups:
//
//	1 if condition    2 elseif condition    3 func name
//	4 template name   5 setvar name         6 setvar value    7 expression
var constructPattern = regexp.MustCompile(
	`(?s)<if\s+(.+?)\s+then>` +
		`|<elseif\s+(.+?)\s+then>` +
		`|<else\s*/>` +
		`|</if>` +
		`|<func\s+([A-Za-z_]\w*)\s*>` +
		`|</func>` +
		`|<template\s+([\w.-]+)\s*/>` +
		`|<setvar\s+([A-Za-z_]\w*)\s*>(.*?)</setvar>` +
		`|\{=\s*(.+?)\s*\}`,
)

// Parser tokenizes template text. It holds no per-parse state and is safe
// for concurrent use.
type Parser struct{}

// New returns a Parser.
func New() *Parser {
	return &Parser{}
}

// HasMarker reports whether text contains anything resembling a construct
// marker. The runtime uses this to skip the pipeline entirely for plain
// templates.
func HasMarker(text string) bool {
	return markerPattern.MatchString(text)
}

// Parse tokenizes text and validates construct nesting. The returned
// sequence is immutable; Text tokens preserve their exact source bytes.
func (p *Parser) Parse(text string) (token.ParsedTemplate, error) {
	if !HasMarker(text) {
		return token.ParsedTemplate{
			Tokens: []token.Token{{Kind: token.Text, Value: text}},
		}, nil
	}

	tokens, err := p.scan(text)
	if err != nil {
		return token.ParsedTemplate{}, err
	}
	if err := validateNesting(tokens, len(text)); err != nil {
		return token.ParsedTemplate{}, err
	}
	return token.ParsedTemplate{Tokens: tokens}, nil
}

// scan performs the left-to-right construct scan.
func (p *Parser) scan(text string) ([]token.Token, error) {
	var tokens []token.Token

	appendText := func(start, end int) error {
		if start >= end {
			return nil
		}
		run := text[start:end]
		// A marker inside a text run is a construct the combined pattern
		// could not read, e.g. "<if x>" with no "then".
		if loc := markerPattern.FindStringIndex(run); loc != nil {
			return errors.NewMalformedConstruct(
				strings.TrimSpace(firstLine(run[loc[0]:])), start+loc[0])
		}
		tokens = append(tokens, token.Token{Kind: token.Text, Value: run, Position: start})
		return nil
	}

	last := 0
	for _, m := range constructPattern.FindAllStringSubmatchIndex(text, -1) {
		if err := appendText(last, m[0]); err != nil {
			return nil, err
		}
		tokens = append(tokens, tokenFromMatch(text, m))
		last = m[1]
	}
	if err := appendText(last, len(text)); err != nil {
		return nil, err
	}
	return tokens, nil
}

// tokenFromMatch builds the token for one constructPattern match. m is the
// submatch index slice from FindAllStringSubmatchIndex.
func tokenFromMatch(text string, m []int) token.Token {
	pos := m[0]
	group := func(n int) (string, bool) {
		if m[2*n] < 0 {
			return "", false
		}
		return text[m[2*n]:m[2*n+1]], true
	}

	if cond, ok := group(1); ok {
		return token.Token{Kind: token.IfOpen, Position: pos, Value: cond}
	}
	if cond, ok := group(2); ok {
		return token.Token{Kind: token.ElseIf, Position: pos, Value: cond}
	}
	if name, ok := group(3); ok {
		return token.Token{Kind: token.FuncOpen, Position: pos, Name: name}
	}
	if name, ok := group(4); ok {
		return token.Token{Kind: token.Include, Position: pos, Name: name}
	}
	if name, ok := group(5); ok {
		value, _ := group(6)
		return token.Token{Kind: token.VarAssign, Position: pos, Name: name, Value: value}
	}
	if expr, ok := group(7); ok {
		return token.Token{Kind: token.Expression, Position: pos, Value: expr}
	}

	// No capture group: the literal alternatives.
	matched := text[m[0]:m[1]]
	switch {
	case matched == "</if>":
		return token.Token{Kind: token.IfClose, Position: pos}
	case matched == "</func>":
		return token.Token{Kind: token.FuncClose, Position: pos}
	default:
		return token.Token{Kind: token.Else, Position: pos}
	}
}

// validateNesting is the structural pass: a stack check that every opened
// construct closes, every close has a matching open, and closes match the
// construct kind on top of the stack. Branch ordering inside conditionals
// (else/elseif placement) is the compiler's concern.
func validateNesting(tokens []token.Token, end int) error {
	type frame struct {
		kind token.Kind
		pos  int
	}
	var stack []frame

	for _, t := range tokens {
		switch t.Kind {
		case token.IfOpen, token.FuncOpen:
			stack = append(stack, frame{t.Kind, t.Position})
		case token.IfClose:
			if len(stack) == 0 || stack[len(stack)-1].kind != token.IfOpen {
				return errors.NewUnexpectedClose(t.Kind.String(), t.Position)
			}
			stack = stack[:len(stack)-1]
		case token.FuncClose:
			if len(stack) == 0 || stack[len(stack)-1].kind != token.FuncOpen {
				return errors.NewUnexpectedClose(t.Kind.String(), t.Position)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 0 {
		// Reported at end of input, where the missing close was expected.
		top := stack[len(stack)-1]
		return errors.NewUnclosed(top.kind.String(), end)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
