// Package engine is the entry point for compiling filters and projections.
// It binds the condition parser, the compiler and the compiled-function
// cache together.
//
//	e := engine.New(engine.WithLogger(log))
//	paid, err := engine.Where(e, orders, "status = 'paid' AND total > 100")
//	rows, err := engine.Project(e, paid, "id, customer.name AS customer")
//
// Structurally equal queries on the same element type compile once and are
// served from the cache afterwards.
package engine

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/manojoshi/pathquery/cache"
	"github.com/manojoshi/pathquery/compile"
	"github.com/manojoshi/pathquery/condition"
	"github.com/manojoshi/pathquery/internal"
)

// Option configures an Engine.
type Option func(*Engine)

// WithCache shares a cache between engines. The default is a private
// cache.New().
func WithCache(c *cache.Cache) Option { return func(e *Engine) { e.cache = c } }

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithTagName sets the struct tag holding member aliases (default "pq").
func WithTagName(tag string) Option { return func(e *Engine) { e.opts.TagName = tag } }

// WithCaseInsensitive toggles the case-insensitive member fallback
// (default on).
func WithCaseInsensitive(on bool) Option {
	return func(e *Engine) { e.opts.CaseInsensitive = on }
}

func WithTracer(t trace.Tracer) Option { return func(e *Engine) { e.tracer = t } }

// Engine compiles and caches query functions. Safe for concurrent use.
type Engine struct {
	cache  *cache.Cache
	log    zerolog.Logger
	tracer trace.Tracer
	opts   compile.Options
}

func New(opts ...Option) *Engine {
	e := &Engine{
		log:    zerolog.Nop(),
		tracer: otel.Tracer("pathquery.engine"),
		opts:   compile.Options{TagName: compile.DefaultTag, CaseInsensitive: true},
	}
	for _, o := range opts {
		o(e)
	}
	if e.cache == nil {
		e.cache = cache.New(cache.WithLogger(e.log))
	}
	return e
}

// Cache exposes the underlying cache for pre-warming and invalidation.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// Narrowed returns an engine sharing e's cache that resolves paths against
// concrete whenever the element type is an interface.
func (e *Engine) Narrowed(concrete reflect.Type) *Engine {
	n := *e
	n.opts.Concrete = concrete
	return &n
}

// ---------------------------------------------------------------------
// Filters
// ---------------------------------------------------------------------

// CompileFilterString parses expr and compiles it for elem.
func (e *Engine) CompileFilterString(expr string, elem reflect.Type) (compile.Predicate, error) {
	cond, err := condition.Parse(expr)
	if err != nil {
		return nil, err
	}
	return e.CompileFilter(cond, elem)
}

// CompileFilter compiles cond for elem, or returns the cached predicate.
func (e *Engine) CompileFilter(cond condition.Condition, elem reflect.Type) (compile.Predicate, error) {
	sig := e.FilterSignature(cond, elem)
	fn, err := e.getOrCompile(sig, "filter", func() (any, error) {
		return compile.Filter(cond, elem, e.opts)
	})
	if err != nil {
		return nil, err
	}
	return fn.(compile.Predicate), nil
}

// FilterSignature is the cache key CompileFilter uses.
func (e *Engine) FilterSignature(cond condition.Condition, elem reflect.Type) string {
	if cond == nil {
		cond = condition.Empty
	}
	return cache.Signature(elem, "bool", e.optsKey(false), cond.String())
}

// ---------------------------------------------------------------------
// Projections
// ---------------------------------------------------------------------

// CompileSelector compiles a projection of fields for elem.
func (e *Engine) CompileSelector(fields []compile.Field, elem reflect.Type) (compile.Selector, compile.Shape, error) {
	return e.compileSelector(fields, elem, false)
}

// SelectorSignature is the cache key CompileSelector uses.
func (e *Engine) SelectorSignature(fields []compile.Field, elem reflect.Type) string {
	return e.selectorSignature(fields, elem, false)
}

func (e *Engine) selectorSignature(fields []compile.Field, elem reflect.Type, boxed bool) string {
	parts := internal.Map(fields, func(f compile.Field) string {
		if f.Name == "" {
			return strings.TrimSpace(f.Path)
		}
		return strings.TrimSpace(f.Path) + " AS " + f.Name
	})
	return cache.Signature(elem, "select", append([]string{e.optsKey(boxed)}, parts...)...)
}

// projection is the cached value of a selector: the function and the
// shape of what it returns live and die together.
type projection struct {
	sel   compile.Selector
	shape compile.Shape
}

// Func lets cache.Invoke call the selector directly.
func (p projection) Func() any { return p.sel }

func (e *Engine) compileSelector(fields []compile.Field, elem reflect.Type, boxed bool) (compile.Selector, compile.Shape, error) {
	sig := e.selectorSignature(fields, elem, boxed)
	fn, err := e.getOrCompile(sig, "select", func() (any, error) {
		opts := e.opts
		opts.Boxed = boxed
		sel, shape, err := compile.Select(fields, elem, opts)
		if err != nil {
			return nil, err
		}
		return projection{sel: sel, shape: shape}, nil
	})
	if err != nil {
		return nil, compile.Shape{}, err
	}
	p := fn.(projection)
	return p.sel, p.shape, nil
}

// ---------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------

func (e *Engine) getOrCompile(sig, kind string, build func() (any, error)) (any, error) {
	return e.cache.GetOrCompile(sig, func() (any, error) {
		_, span := e.tracer.Start(context.Background(), "pathquery.compile")
		defer span.End()
		span.SetAttributes(
			attribute.String("pathquery.signature", sig),
			attribute.String("pathquery.kind", kind),
		)

		start := time.Now()
		fn, err := build()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.log.Debug().Err(err).Str("signature", sig).Str("kind", kind).Msg("compile failed")
			return nil, err
		}
		e.log.Debug().
			Str("signature", sig).
			Str("kind", kind).
			Dur("took", time.Since(start)).
			Msg("compiled")
		return fn, nil
	})
}

// optsKey folds the compile options into signatures so engines with
// different settings never share entries.
func (e *Engine) optsKey(boxed bool) string {
	var sb strings.Builder
	sb.WriteString(e.opts.TagName)
	if e.opts.CaseInsensitive {
		sb.WriteString(",ci")
	}
	if boxed {
		sb.WriteString(",boxed")
	}
	if e.opts.Concrete != nil {
		sb.WriteString(",as=")
		sb.WriteString(cache.TypeName(e.opts.Concrete))
	}
	return sb.String()
}
