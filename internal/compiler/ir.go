package compiler

import "strings"

// The compiler builds an explicit intermediate representation instead of
// concatenating generated code as it walks. Validation happens on the IR
// inputs; text is produced only at the final boundary, because the host
// renderer's evaluation mechanism takes a single expression string.

// Node is one IR variant.
type Node interface {
	emit(b *strings.Builder)
}

// Literal is a run of template bytes emitted verbatim.
type Literal struct {
	Text string
}

// Branch is one guarded arm of a Conditional.
type Branch struct {
	Cond string
	Body []Node
}

// Conditional is a chain of guarded branches with an optional default.
type Conditional struct {
	Branches []Branch
	Else     []Node
}

// Call wraps enclosed output as the single argument to a function.
type Call struct {
	Name string
	Args []Node
}

// Assign binds a value to a render-scoped variable, emitting no output.
type Assign struct {
	Name  string
	Value string
}

// Expr evaluates an expression and stringifies the result.
type Expr struct {
	Text string
}

// serialize renders an IR sequence to the host renderer's expression
// dialect: double-quoted literals joined with " . ", chained ternaries for
// conditionals, name((arg)) for wraps, set('name', (value)) for
// assignments. A sequence that is a single Literal serializes to its raw
// bytes, which gives plain templates pass-through identity.
func serialize(nodes []Node) string {
	if len(nodes) == 1 {
		if lit, ok := nodes[0].(*Literal); ok {
			return lit.Text
		}
	}
	var b strings.Builder
	emitSequence(&b, nodes)
	return b.String()
}

// emitSequence writes nodes joined by the host concatenation operator. An
// empty sequence is the empty string expression.
func emitSequence(b *strings.Builder, nodes []Node) {
	if len(nodes) == 0 {
		b.WriteString(`""`)
		return
	}
	for i, n := range nodes {
		if i > 0 {
			b.WriteString(" . ")
		}
		n.emit(b)
	}
}

func (l *Literal) emit(b *strings.Builder) {
	b.WriteByte('"')
	for i := 0; i < len(l.Text); i++ {
		switch c := l.Text[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
}

func (c *Conditional) emit(b *strings.Builder) {
	for _, br := range c.Branches {
		b.WriteString("((")
		b.WriteString(br.Cond)
		b.WriteString(") ? (")
		emitSequence(b, br.Body)
		b.WriteString(") : (")
	}
	emitSequence(b, c.Else)
	for range c.Branches {
		b.WriteString("))")
	}
}

func (c *Call) emit(b *strings.Builder) {
	b.WriteString(c.Name)
	b.WriteString("((")
	emitSequence(b, c.Args)
	b.WriteString("))")
}

func (a *Assign) emit(b *strings.Builder) {
	b.WriteString("set('")
	b.WriteString(a.Name)
	b.WriteString("', (")
	b.WriteString(a.Value)
	b.WriteString("))")
}

func (e *Expr) emit(b *strings.Builder) {
	b.WriteString("(")
	b.WriteString(e.Text)
	b.WriteString(")")
}
