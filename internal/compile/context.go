package compile

import (
	"log/slog"

	"github.com/roach88/odatacriteria/internal/alias"
	"github.com/roach88/odatacriteria/internal/mapping"
	"github.com/roach88/odatacriteria/internal/resolve"
	"github.com/roach88/odatacriteria/internal/scope"
)

// BuildContext is the state of one query compilation: the lambda binding
// stack, the alias registry and the resolution settings. It is created per
// compilation and must not be shared between goroutines; the Store it
// reads is shared and immutable.
type BuildContext struct {
	store         *mapping.Store
	catalog       *mapping.Catalog
	resolver      resolve.Resolver
	scope         *scope.Context
	aliases       *alias.Registry
	rootType      mapping.TypeID
	rootAlias     string
	caseSensitive bool
	logger        *slog.Logger

	// lambdaParams holds every parameter name declared anywhere in the
	// query, to tell a stale parameter reference from a plain typo.
	lambdaParams map[string]bool
}

func newBuildContext(
	store *mapping.Store,
	opts *Options,
	rootType mapping.TypeID,
	sink alias.Sink,
) *BuildContext {
	rootAlias := ""
	if opts.RootAlias != nil {
		rootAlias = *opts.RootAlias
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = resolve.New(store.Catalog())
	}

	aliases := alias.NewRegistry(opts.AliasPrefix, sink, opts.Logger)
	aliases.Reserve(rootAlias)

	return &BuildContext{
		store:         store,
		catalog:       store.Catalog(),
		resolver:      resolver,
		scope:         scope.New(),
		aliases:       aliases,
		rootType:      rootType,
		rootAlias:     rootAlias,
		caseSensitive: opts.CaseSensitive,
		logger:        opts.Logger,
		lambdaParams:  make(map[string]bool),
	}
}

// RootType returns the mapped type the query ranges over.
func (c *BuildContext) RootType() mapping.TypeID {
	return c.rootType
}

// RootAlias returns the root alias, or "" when the root is unaliased.
func (c *BuildContext) RootAlias() string {
	return c.rootAlias
}

// Aliases returns the registry of join aliases created so far.
func (c *BuildContext) Aliases() *alias.Registry {
	return c.aliases
}

// Scope returns the lambda binding stack.
func (c *BuildContext) Scope() *scope.Context {
	return c.scope
}

// declareLambdaParameters records parameter names seen in the query.
func (c *BuildContext) declareLambdaParameters(names ...string) {
	for _, n := range names {
		c.lambdaParams[n] = true
	}
}
