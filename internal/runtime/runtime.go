// Package runtime orchestrates template resolution end to end: store
// fetch, marker pre-check, two-tier cache lookup, compile on miss, and the
// fail-open error boundary.
//
// Fail-open is absolute: no parse, compile, or security error — and no
// unanticipated panic — escapes past Resolve. Any failure yields the
// original, unmodified template text. Collaborators are injected at
// construction; there are no ambient singletons.
package runtime

import (
	"context"
	"fmt"

	"github.com/conneroisu/scriptlet/internal/cache"
	"github.com/conneroisu/scriptlet/internal/errors"
	"github.com/conneroisu/scriptlet/internal/logging"
	"github.com/conneroisu/scriptlet/internal/parser"
	"github.com/conneroisu/scriptlet/internal/store"
	"github.com/conneroisu/scriptlet/internal/token"
)

// Parser is the tokenizer dependency.
type Parser interface {
	Parse(text string) (token.ParsedTemplate, error)
}

// Compiler is the fragment-compiler dependency.
type Compiler interface {
	Compile(parsed token.ParsedTemplate) (string, error)
}

// Options toggles runtime behavior from configuration.
type Options struct {
	// Enabled is the master switch; when false every template resolves to
	// its original text.
	Enabled bool
	// Debug logs rejected or errored compilations for operator diagnosis.
	Debug bool
}

// Runtime ties the pipeline together for the host renderer.
type Runtime struct {
	store    store.Store
	parser   Parser
	compiler Compiler
	cache    *cache.Cache
	logger   logging.Logger
	opts     Options
}

// New constructs a Runtime with explicit collaborators.
func New(st store.Store, p Parser, c Compiler, ca *cache.Cache, logger logging.Logger, opts Options) *Runtime {
	if ca == nil {
		ca = cache.New(cache.NewMemory(), nil)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Runtime{store: st, parser: p, compiler: c, cache: ca, logger: logger, opts: opts}
}

// Resolve fetches the named template from the store and returns its
// executable form. The returned error is non-nil only when the store fetch
// itself fails; everything downstream of the fetch is fail-open.
func (r *Runtime) Resolve(ctx context.Context, name string) (string, error) {
	raw, err := r.store.Get(name)
	if err != nil {
		return "", err
	}
	return r.ResolveText(ctx, name, raw), nil
}

// ResolveText resolves already-fetched template text. It never fails: on
// any pipeline error the original text comes back unchanged.
func (r *Runtime) ResolveText(ctx context.Context, identity, text string) (result string) {
	// Single catch boundary for the whole pipeline, including panics from
	// unanticipated defects.
	defer func() {
		if rec := recover(); rec != nil {
			r.logFailure(ctx, identity, fmt.Errorf("panic: %v", rec))
			result = text
		}
	}()

	if !r.opts.Enabled {
		return text
	}
	if !parser.HasMarker(text) {
		return text
	}

	hash := cache.ContentHash(text)
	if fragment, tier, ok := r.cache.Get(identity, hash); ok {
		r.logger.Debug(ctx, "cache hit", "template", identity, "tier", tier.String())
		return fragment
	}

	parsed, err := r.parser.Parse(text)
	if err != nil {
		r.logFailure(ctx, identity, err)
		return text
	}

	fragment, err := r.compiler.Compile(parsed)
	if err != nil {
		r.logFailure(ctx, identity, err)
		return text
	}

	if err := r.cache.Set(identity, hash, fragment); err != nil {
		// A cache write failure costs a recompile next time, nothing more.
		r.logFailure(ctx, identity, err)
	}
	return fragment
}

// Invalidate drops all cached fragments for a template identity, e.g. when
// its stored text was edited or removed upstream.
func (r *Runtime) Invalidate(identity string) int {
	return r.cache.Invalidate(identity)
}

// Cache exposes the underlying cache for operator tooling.
func (r *Runtime) Cache() *cache.Cache {
	return r.cache
}

// logFailure records errored compilations, only when debug is on.
func (r *Runtime) logFailure(ctx context.Context, identity string, err error) {
	if !r.opts.Debug {
		return
	}
	var se *errors.ScriptError
	if scriptErr, ok := err.(*errors.ScriptError); ok {
		se = scriptErr.WithTemplate(identity)
		r.logger.Warn(ctx, se, "template left uncompiled",
			"template", identity,
			"code", se.Code,
			"offset", se.Position,
		)
		return
	}
	r.logger.Warn(ctx, err, "template left uncompiled", "template", identity)
}
