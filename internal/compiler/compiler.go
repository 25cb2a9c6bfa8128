// Package compiler turns a parsed token sequence into a single executable
// fragment for the host renderer, validating every embedded expression
// through the security policy before emission.
package compiler

import (
	"regexp"
	"strings"

	"github.com/conneroisu/scriptlet/internal/errors"
	"github.com/conneroisu/scriptlet/internal/security"
	"github.com/conneroisu/scriptlet/internal/token"
)

// Includer supplies raw sub-template text for <template NAME /> constructs.
// The external template store satisfies this.
type Includer interface {
	Get(name string) (string, error)
}

// Compiler compiles token sequences. It holds only immutable collaborators
// and is safe for concurrent use; per-compile state lives on the stack of
// each Compile call.
type Compiler struct {
	policy   *security.Policy
	includer Includer
}

// New returns a Compiler using the given policy. includer may be nil, in
// which case <template /> constructs fail the compile.
func New(policy *security.Policy, includer Includer) *Compiler {
	return &Compiler{policy: policy, includer: includer}
}

// frame is one open nesting construct during the walk.
type frame struct {
	kind     token.Kind // token.IfOpen or token.FuncOpen
	cond     *Conditional
	call     *Call
	elseSeen bool
	nodes    []Node // body being collected for the current branch/arg
}

// Compile walks tokens once and emits the fragment. Any security rejection
// aborts the whole compile.
func (c *Compiler) Compile(parsed token.ParsedTemplate) (string, error) {
	root := &frame{}
	stack := []*frame{root}
	top := func() *frame { return stack[len(stack)-1] }
	condDepth := 0

	for _, tok := range parsed.Tokens {
		switch tok.Kind {
		case token.Text:
			top().nodes = append(top().nodes, &Literal{Text: tok.Value})

		case token.IfOpen:
			cond, err := c.policy.Validate(tok.Value)
			if err != nil {
				return "", errors.NewSecurityViolation(tok.Position, err)
			}
			f := &frame{kind: token.IfOpen, cond: &Conditional{}}
			f.cond.Branches = append(f.cond.Branches, Branch{Cond: cond})
			stack = append(stack, f)
			condDepth++

		case token.ElseIf:
			f := top()
			if f.kind != token.IfOpen {
				return "", errors.NewElseWithoutIf(tok.Position)
			}
			if f.elseSeen {
				return "", errors.NewElseIfAfterElse(tok.Position)
			}
			cond, err := c.policy.Validate(tok.Value)
			if err != nil {
				return "", errors.NewSecurityViolation(tok.Position, err)
			}
			f.sealBranch()
			f.cond.Branches = append(f.cond.Branches, Branch{Cond: cond})

		case token.Else:
			f := top()
			if f.kind != token.IfOpen {
				return "", errors.NewElseWithoutIf(tok.Position)
			}
			if f.elseSeen {
				return "", errors.NewMultipleElse(tok.Position)
			}
			f.sealBranch()
			f.elseSeen = true

		case token.IfClose:
			f := top()
			if f.kind != token.IfOpen {
				return "", errors.NewUnbalancedConditional(condDepth)
			}
			f.sealBranch()
			stack = stack[:len(stack)-1]
			top().nodes = append(top().nodes, f.cond)
			condDepth--

		case token.FuncOpen:
			if err := c.policy.ValidateFunctionName(tok.Name); err != nil {
				return "", errors.NewSecurityViolation(tok.Position, err)
			}
			stack = append(stack, &frame{kind: token.FuncOpen, call: &Call{Name: strings.ToLower(tok.Name)}})

		case token.FuncClose:
			f := top()
			if f.kind != token.FuncOpen {
				return "", errors.NewUnbalancedConditional(condDepth)
			}
			f.call.Args = f.nodes
			stack = stack[:len(stack)-1]
			top().nodes = append(top().nodes, f.call)

		case token.Include:
			text, err := c.include(tok.Name)
			if err != nil {
				return "", err
			}
			top().nodes = append(top().nodes, &Literal{Text: text})

		case token.Expression:
			expr, err := c.policy.Validate(tok.Value)
			if err != nil {
				return "", errors.NewSecurityViolation(tok.Position, err)
			}
			top().nodes = append(top().nodes, &Expr{Text: expr})

		case token.VarAssign:
			value, err := c.policy.Validate(tok.Value)
			if err != nil {
				return "", errors.NewSecurityViolation(tok.Position, err)
			}
			top().nodes = append(top().nodes, &Assign{Name: tok.Name, Value: autoQuote(value)})
		}
	}

	// Balance check after the walk. The parser's structural pass should
	// make this unreachable; it stays as the last line of defense.
	if len(stack) != 1 || condDepth != 0 {
		return "", errors.NewUnbalancedConditional(condDepth)
	}

	return serialize(root.nodes), nil
}

// sealBranch moves the collected body into the branch being closed.
func (f *frame) sealBranch() {
	if f.elseSeen {
		f.cond.Else = f.nodes
	} else {
		f.cond.Branches[len(f.cond.Branches)-1].Body = f.nodes
	}
	f.nodes = nil
}

func (c *Compiler) include(name string) (string, error) {
	if c.includer == nil {
		return "", errors.NewStoreError("no template store for include: "+name, nil)
	}
	text, err := c.includer.Get(name)
	if err != nil {
		return "", errors.NewStoreError("include failed: "+name, err)
	}
	return text, nil
}

var (
	numericValue = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)
	variableRef  = regexp.MustCompile(`^\$[A-Za-z_]\w*`)
	functionCall = regexp.MustCompile(`^[A-Za-z_]\w*\s*\(`)
)

// autoQuote treats a bare assigned value as a literal string unless it is
// recognizably something else. The bias is toward over-quoting: a value the
// rules cannot classify becomes an inert quoted string rather than code.
func autoQuote(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return "''"
	}
	if len(v) >= 2 {
		if (v[0] == '\'' && v[len(v)-1] == '\'') || (v[0] == '"' && v[len(v)-1] == '"') {
			return v
		}
	}
	switch strings.ToLower(v) {
	case "true", "false", "null":
		return v
	}
	if numericValue.MatchString(v) || variableRef.MatchString(v) {
		return v
	}
	if functionCall.MatchString(v) || strings.HasPrefix(v, "array(") || strings.HasPrefix(v, "[") {
		return v
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}
