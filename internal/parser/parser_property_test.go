package parser

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/scriptlet/internal/token"
)

// TestParserProperties tests invariant properties of the tokenizer.
func TestParserProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Property 1: text with no construct marker parses to a single Text
	// token carrying the input bytes unchanged.
	properties.Property("plain text is a single identical token", prop.ForAll(
		func(text string) bool {
			if HasMarker(text) {
				return true // only plain text is in scope here
			}
			parsed, err := New().Parse(text)
			if err != nil {
				return false
			}
			return parsed.OnlyText() && parsed.Tokens[0].Value == text
		},
		gen.AnyString(),
	))

	// Property 2: correctly nested conditionals always parse, at any depth.
	properties.Property("balanced nesting parses", prop.ForAll(
		func(depth int) bool {
			var b strings.Builder
			for i := 0; i < depth; i++ {
				b.WriteString("<if $x then>a")
			}
			for i := 0; i < depth; i++ {
				b.WriteString("</if>")
			}
			_, err := New().Parse(b.String())
			return err == nil
		},
		gen.IntRange(1, 40),
	))

	// Property 3: dropping the final close from a balanced template always
	// fails with an unclosed-construct error.
	properties.Property("missing close never parses", prop.ForAll(
		func(depth int) bool {
			var b strings.Builder
			for i := 0; i < depth; i++ {
				b.WriteString("<if $x then>a")
			}
			for i := 0; i < depth-1; i++ {
				b.WriteString("</if>")
			}
			_, err := New().Parse(b.String())
			return err != nil
		},
		gen.IntRange(1, 40),
	))

	// Property 4: token positions are strictly increasing and in range.
	properties.Property("positions are ordered", prop.ForAll(
		func(paddings []string) bool {
			var b strings.Builder
			for _, pad := range paddings {
				if HasMarker(pad) || strings.Contains(pad, "<") || strings.Contains(pad, "{") {
					continue
				}
				b.WriteString(pad)
				b.WriteString("{= $x }")
			}
			text := b.String()
			if text == "" {
				return true
			}
			parsed, err := New().Parse(text)
			if err != nil {
				return false
			}
			prev := -1
			for _, tok := range parsed.Tokens {
				if tok.Position <= prev || tok.Position > len(text) {
					return false
				}
				if tok.Kind == token.Text && tok.Value == "" {
					return false
				}
				prev = tok.Position
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
