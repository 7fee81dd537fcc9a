// Package alias allocates join aliases for navigation paths.
//
// Within one compilation every distinct navigation path gets at most one
// alias, and every alias name is unique. The registry is owned by a single
// compilation and is not safe for concurrent use.
package alias

import (
	"log/slog"
	"strconv"

	"github.com/roach88/odatacriteria/internal/mapping"
)

// DefaultPrefix is used for generated alias names: t1, t2, ...
const DefaultPrefix = "t"

// Alias stands for a join along Path.
type Alias struct {
	// Name is the unique alias name.
	Name string `json:"name"`

	// Path is the alias-qualified navigation path the alias replaces,
	// e.g. "root.Customer" or "t1.Home.Country".
	Path string `json:"path"`

	// Parent is the alias Path is qualified by; empty when the root has no
	// alias.
	Parent string `json:"parent,omitempty"`

	// Relative is Path without the Parent prefix.
	Relative string `json:"relative"`

	// Type is the mapped type the alias ranges over.
	Type mapping.TypeID `json:"type"`

	// Collection marks aliases introduced for the element of an any/all
	// sub-predicate rather than for a to-one join.
	Collection bool `json:"collection,omitempty"`
}

// Sink is notified once per newly created alias, in creation order. The
// criteria builder implements it to emit join clauses.
type Sink interface {
	AddAlias(a Alias)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(a Alias)

// AddAlias implements Sink.
func (f SinkFunc) AddAlias(a Alias) { f(a) }

// Registry allocates aliases for one compilation.
type Registry struct {
	prefix   string
	next     int
	reserved map[string]bool
	byPath   map[string]int
	aliases  []Alias
	sink     Sink
	logger   *slog.Logger
}

// NewRegistry creates a registry. An empty prefix uses DefaultPrefix; sink
// and logger may be nil.
func NewRegistry(prefix string, sink Sink, logger *slog.Logger) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		prefix:   prefix,
		reserved: make(map[string]bool),
		byPath:   make(map[string]int),
		sink:     sink,
		logger:   logger,
	}
}

// Reserve marks names that generated aliases must never take, such as the
// root alias.
func (r *Registry) Reserve(names ...string) {
	for _, n := range names {
		if n != "" {
			r.reserved[n] = true
		}
	}
}

// UniqueName returns a fresh alias name. Names are never repeated within
// the registry and skip reserved names.
func (r *Registry) UniqueName() string {
	for {
		r.next++
		name := r.prefix + strconv.Itoa(r.next)
		if !r.reserved[name] {
			r.reserved[name] = true
			return name
		}
	}
}

// Path joins a parent alias and a relative path.
func Path(parent, relative string) string {
	if parent == "" {
		return relative
	}
	return parent + "." + relative
}

// GetOrCreate returns the alias for parent.relative, creating it on first
// use. The bool result reports whether a new alias was created.
func (r *Registry) GetOrCreate(parent, relative string, t mapping.TypeID) (Alias, bool) {
	return r.getOrCreate(parent, relative, t, false)
}

// GetOrCreateCollection is GetOrCreate for the element alias of an any/all
// sub-predicate.
func (r *Registry) GetOrCreateCollection(parent, relative string, elem mapping.TypeID) (Alias, bool) {
	return r.getOrCreate(parent, relative, elem, true)
}

func (r *Registry) getOrCreate(parent, relative string, t mapping.TypeID, collection bool) (Alias, bool) {
	path := Path(parent, relative)
	if i, ok := r.byPath[path]; ok {
		return r.aliases[i], false
	}

	a := Alias{
		Name:       r.UniqueName(),
		Path:       path,
		Parent:     parent,
		Relative:   relative,
		Type:       t,
		Collection: collection,
	}
	r.byPath[path] = len(r.aliases)
	r.aliases = append(r.aliases, a)

	r.logger.Debug("alias created",
		"alias", a.Name,
		"path", a.Path,
		"type", string(a.Type),
		"collection", a.Collection,
	)
	if r.sink != nil {
		r.sink.AddAlias(a)
	}
	return a, true
}

// Lookup returns the alias registered for path.
func (r *Registry) Lookup(path string) (Alias, bool) {
	i, ok := r.byPath[path]
	if !ok {
		return Alias{}, false
	}
	return r.aliases[i], true
}

// Aliases returns all aliases in creation order.
func (r *Registry) Aliases() []Alias {
	return append([]Alias(nil), r.aliases...)
}

// Len returns the number of aliases created.
func (r *Registry) Len() int {
	return len(r.aliases)
}
