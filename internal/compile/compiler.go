// Package compile resolves query expression trees against the mapping
// metadata and produces criteria.
//
// A Compiler is built once per Store and is safe for concurrent use; every
// call to Compile allocates its own BuildContext (lambda stack, alias
// registry, criteria builder), so compilations never share mutable state.
package compile

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/odatacriteria/internal/alias"
	"github.com/roach88/odatacriteria/internal/criteria"
	"github.com/roach88/odatacriteria/internal/expr"
	"github.com/roach88/odatacriteria/internal/ir"
	"github.com/roach88/odatacriteria/internal/mapping"
)

// Compiler compiles queries against one Store.
type Compiler struct {
	store  *mapping.Store
	opts   Options
	tracer trace.Tracer
}

// New creates a Compiler. It fails with ErrCodeInvalidConfiguration when
// the options are inconsistent, e.g. an empty root alias.
func New(store *mapping.Store, opts ...Option) (*Compiler, error) {
	if store == nil {
		return nil, &Error{Code: ErrCodeInvalidConfiguration, Message: "mapping store is required"}
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	o.fillDefaults()

	return &Compiler{
		store:  store,
		opts:   o,
		tracer: o.TracerProvider.Tracer(instrumentationName),
	}, nil
}

// Store returns the mapping store the compiler resolves against.
func (c *Compiler) Store() *mapping.Store {
	return c.store
}

// Result is the outcome of one compilation.
type Result struct {
	// Query is the normalized tree: every member resolved.
	Query *expr.Query

	// Aliases lists the join aliases in creation order.
	Aliases []alias.Alias

	Criteria *criteria.Criteria

	// Hash identifies the input query under this schema and options.
	Hash string

	SchemaHash    string
	CaseSensitive bool
	Duration      time.Duration
}

// NewBuildContext starts a compilation rooted at root without running
// it. sink, if non-nil, is told about every alias created. Useful for
// callers that drive ResolveMember or Normalize themselves.
func (c *Compiler) NewBuildContext(root mapping.TypeID, sink alias.Sink) (*BuildContext, error) {
	mc, ok := c.store.MappedOrShortcut(root)
	if !ok {
		return nil, invalidExpression("root type %q is not mapped", root)
	}
	return newBuildContext(c.store, &c.opts, mc.Type, sink), nil
}

// Compile resolves q and builds its criteria. Any failure aborts the whole
// compilation; the returned error wraps an *Error or a
// *criteria.BuildError.
func (c *Compiler) Compile(ctx context.Context, q *expr.Query) (_ *Result, err error) {
	if q == nil {
		return nil, invalidExpression("query is required")
	}
	ctx, span := c.tracer.Start(ctx, "compile.Query", trace.WithAttributes(
		attribute.String("odata.root", string(q.Root)),
		attribute.Bool("odata.case_sensitive", c.opts.CaseSensitive),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logFailure(ctx, q, err)
		}
		span.End()
	}()
	start := time.Now()

	hash, err := c.QueryHash(q)
	if err != nil {
		return nil, err
	}

	mc, ok := c.store.MappedOrShortcut(q.Root)
	if !ok {
		return nil, invalidExpression("root type %q is not mapped", q.Root)
	}
	rootAlias := ""
	if c.opts.RootAlias != nil {
		rootAlias = *c.opts.RootAlias
	}
	builder, err := criteria.NewBuilder(c.store, mc.Type, rootAlias, c.opts.Logger)
	if err != nil {
		return nil, err
	}

	bc := newBuildContext(c.store, &c.opts, mc.Type, builder)
	normalized, err := bc.NormalizeQuery(q)
	if err != nil {
		return nil, err
	}

	crit, err := builder.Build(normalized)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Query:         normalized,
		Aliases:       bc.aliases.Aliases(),
		Criteria:      crit,
		Hash:          hash,
		SchemaHash:    c.store.Hash(),
		CaseSensitive: c.opts.CaseSensitive,
		Duration:      time.Since(start),
	}
	span.SetAttributes(
		attribute.Int("odata.aliases", len(res.Aliases)),
		attribute.String("odata.query_hash", hash),
	)
	c.opts.Logger.InfoContext(ctx, "query compiled",
		"root", string(q.Root),
		"aliases", len(res.Aliases),
		"hash", hash,
	)
	return res, nil
}

// QueryHash identifies q under this compiler's schema and case
// sensitivity. It does not resolve anything, so it is defined for queries
// that fail to compile too.
func (c *Compiler) QueryHash(q *expr.Query) (string, error) {
	return ir.QueryHash(c.store.Hash(), string(q.Root), q.ToIR(), c.opts.CaseSensitive)
}

func (c *Compiler) logFailure(ctx context.Context, q *expr.Query, err error) {
	attrs := []any{"root", string(q.Root), "error", err}
	var ce *Error
	if errors.As(err, &ce) {
		attrs = append(attrs, "code", string(ce.Code))
	}
	c.opts.Logger.WarnContext(ctx, "query compilation failed", attrs...)
}
