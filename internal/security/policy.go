// Package security validates user-supplied template expressions against a
// static allow-set of safe functions and a set of forbidden syntactic
// patterns grouped by attack category.
//
// The policy is constructed once at startup and shared read-only across
// requests. Validation is a pure text check: it never probes the host for
// function existence and never executes anything.
package security

import (
	"regexp"
	"sort"
	"strings"

	"github.com/conneroisu/scriptlet/internal/errors"
)

// callSitePattern extracts identifiers immediately followed by an opening
// call parenthesis.
var callSitePattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// Policy holds the immutable rule set used to vet expressions.
type Policy struct {
	allowed   map[string]struct{}
	forbidden []ForbiddenPattern
}

// Option configures a Policy at construction time.
type Option func(*Policy)

// WithAdditionalFunctions unions deployment-configured names into the
// allow-set. Names are lowercased; configuration can extend the set but
// never shrink it.
func WithAdditionalFunctions(names []string) Option {
	return func(p *Policy) {
		for _, name := range names {
			name = strings.ToLower(strings.TrimSpace(name))
			if name != "" {
				p.allowed[name] = struct{}{}
			}
		}
	}
}

// NewPolicy builds the policy from the built-in rule set plus any options.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		allowed:   make(map[string]struct{}, len(allowedFunctions)),
		forbidden: forbiddenPatterns,
	}
	for _, name := range allowedFunctions {
		p.allowed[name] = struct{}{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Validate checks one expression and returns the text that may be compiled.
//
// Three ordered checks:
//  1. the upstream store's quote escaping is undone to obtain the real
//     expression text,
//  2. the unescaped text is scanned against every forbidden pattern,
//  3. every identifier used as a call must be a language construct
//     exemption or a member of the allow-set.
func (p *Policy) Validate(expression string) (string, error) {
	text := Unescape(expression)

	for _, fp := range p.forbidden {
		if match := fp.Pattern.FindString(text); match != "" {
			return "", errors.NewForbiddenPattern(fp.Category, match)
		}
	}

	for _, m := range callSitePattern.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(m[1])
		if _, exempt := constructExemptions[name]; exempt {
			continue
		}
		if _, ok := p.allowed[name]; !ok {
			return "", errors.NewDisallowedFunction(name)
		}
	}

	return text, nil
}

// ValidateFunctionName checks a bare function name, as used by the <func>
// wrap construct where no surrounding expression exists.
func (p *Policy) ValidateFunctionName(name string) error {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return errors.NewDisallowedFunction(name)
	}
	if _, exempt := constructExemptions[trimmed]; exempt {
		return nil
	}
	if _, ok := p.allowed[trimmed]; !ok {
		return errors.NewDisallowedFunction(trimmed)
	}
	return nil
}

// Allowed reports whether a function name is in the allow-set.
func (p *Policy) Allowed(name string) bool {
	_, ok := p.allowed[strings.ToLower(name)]
	return ok
}

// AllowedFunctions returns the allow-set sorted for display.
func (p *Policy) AllowedFunctions() []string {
	names := make([]string, 0, len(p.allowed))
	for name := range p.allowed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Categories returns the distinct forbidden-pattern categories in rule
// order, for validation reports.
func (p *Policy) Categories() []string {
	seen := make(map[string]struct{})
	var cats []string
	for _, fp := range p.forbidden {
		if _, ok := seen[fp.Category]; ok {
			continue
		}
		seen[fp.Category] = struct{}{}
		cats = append(cats, fp.Category)
	}
	return cats
}

// Unescape undoes the upstream template store's quote escaping. The store
// keeps template text with backslash-escaped quotes; the real expression
// text is recovered exactly once, here, before any validation or emission.
func Unescape(text string) string {
	if !strings.ContainsRune(text, '\\') {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\\' && i+1 < len(text) {
			switch text[i+1] {
			case '"', '\'', '\\':
				b.WriteByte(text[i+1])
				i++
				continue
			}
		}
		b.WriteByte(text[i])
	}
	return b.String()
}
