package compile

import (
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/odatacriteria/internal/alias"
	"github.com/roach88/odatacriteria/internal/resolve"
)

// DefaultRootAlias qualifies root members when no alias is configured.
const DefaultRootAlias = "root"

const instrumentationName = "github.com/roach88/odatacriteria/internal/compile"

// Options configures a Compiler. The zero value is not usable; start from
// defaultOptions via New.
type Options struct {
	// RootAlias qualifies members of the query root. nil means the root is
	// unaliased; a pointer to "" is rejected as invalid configuration.
	RootAlias *string

	// CaseSensitive disables case-folded name matching.
	CaseSensitive bool

	// AliasPrefix is the prefix of generated join aliases.
	AliasPrefix string

	// Resolver overrides the catalog-backed name resolver.
	Resolver resolve.Resolver

	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
}

// Option configures a Compiler.
type Option func(*Options)

// WithRootAlias sets the root alias. An empty name fails New with
// ErrCodeInvalidConfiguration.
func WithRootAlias(name string) Option {
	return func(o *Options) {
		o.RootAlias = &name
	}
}

// WithoutRootAlias leaves root members unqualified.
func WithoutRootAlias() Option {
	return func(o *Options) {
		o.RootAlias = nil
	}
}

// WithCaseSensitive toggles case-sensitive name resolution.
func WithCaseSensitive(on bool) Option {
	return func(o *Options) {
		o.CaseSensitive = on
	}
}

// WithAliasPrefix sets the prefix for generated aliases (default "t").
func WithAliasPrefix(prefix string) Option {
	return func(o *Options) {
		o.AliasPrefix = prefix
	}
}

// WithResolver replaces the default name resolver.
func WithResolver(r resolve.Resolver) Option {
	return func(o *Options) {
		o.Resolver = r
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithTracerProvider sets the provider compile spans are recorded with.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

func defaultOptions() Options {
	root := DefaultRootAlias
	return Options{
		RootAlias:   &root,
		AliasPrefix: alias.DefaultPrefix,
	}
}

func (o *Options) validate() error {
	if o.RootAlias != nil && *o.RootAlias == "" {
		return &Error{
			Code:    ErrCodeInvalidConfiguration,
			Message: "root alias cannot be an empty string",
		}
	}
	if o.AliasPrefix == "" {
		return &Error{
			Code:    ErrCodeInvalidConfiguration,
			Message: "alias prefix cannot be empty",
		}
	}
	return nil
}

func (o *Options) fillDefaults() {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
}
