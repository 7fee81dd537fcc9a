// Package resolve maps query member names onto catalog members.
package resolve

import (
	"github.com/agnivade/levenshtein"

	"github.com/roach88/odatacriteria/internal/mapping"
)

// ResolvedName is the persisted name and value type a query name maps to.
type ResolvedName struct {
	Name          string
	Type          mapping.TypeID
	Kind          mapping.MemberKind
	DeclaringType mapping.TypeID
}

// Resolver resolves a member name on an owning type. A false result means
// nothing matched; it is not an error, callers decide whether absence is
// terminal.
type Resolver interface {
	Resolve(name string, owner mapping.TypeID, caseSensitive bool) (ResolvedName, bool)
}

// Func adapts a function to the Resolver interface.
type Func func(name string, owner mapping.TypeID, caseSensitive bool) (ResolvedName, bool)

// Resolve implements Resolver.
func (f Func) Resolve(name string, owner mapping.TypeID, caseSensitive bool) (ResolvedName, bool) {
	return f(name, owner, caseSensitive)
}

// Default resolves against the declared and inherited members of a
// catalog type.
type Default struct {
	catalog *mapping.Catalog
}

// New returns a Default resolver over catalog.
func New(catalog *mapping.Catalog) *Default {
	return &Default{catalog: catalog}
}

// Resolve implements Resolver.
//
// Properties are matched first, case-insensitively unless caseSensitive is
// set. When several properties match (a subtype redeclaring a base member,
// or names differing only by case) the winner is chosen by:
//  1. declaring type nearest to owner in its base chain (owner itself first)
//  2. exact-case spelling over a folded match
//
// Fields are only consulted when no property matches, and only by exact
// name.
func (r *Default) Resolve(name string, owner mapping.TypeID, caseSensitive bool) (ResolvedName, bool) {
	chain := r.catalog.BaseChain(owner)
	if len(chain) == 0 {
		return ResolvedName{}, false
	}
	distance := make(map[mapping.TypeID]int, len(chain))
	for i, id := range chain {
		distance[id] = i
	}

	members := r.catalog.Members(owner)

	var best *mapping.Member
	bestRank := [2]int{}
	for i := range members {
		m := &members[i]
		if m.Kind != mapping.MemberProperty || !mapping.NamesEqual(m.Name, name, caseSensitive) {
			continue
		}
		caseMismatch := 0
		if m.Name != name {
			caseMismatch = 1
		}
		rank := [2]int{distance[m.DeclaringType], caseMismatch}
		if best == nil || rank[0] < bestRank[0] || (rank[0] == bestRank[0] && rank[1] < bestRank[1]) {
			best, bestRank = m, rank
		}
	}
	if best != nil {
		return toResolved(*best), true
	}

	for _, m := range members {
		if m.Kind == mapping.MemberField && m.Name == name {
			return toResolved(m), true
		}
	}

	return ResolvedName{}, false
}

func toResolved(m mapping.Member) ResolvedName {
	return ResolvedName{
		Name:          m.Name,
		Type:          m.Type,
		Kind:          m.Kind,
		DeclaringType: m.DeclaringType,
	}
}

// Suggest returns the member of owner whose name is closest to name, for
// "did you mean" hints. Only reasonably close names are returned.
func (r *Default) Suggest(name string, owner mapping.TypeID) (string, bool) {
	return Suggest(r.catalog, name, owner)
}

// Suggest is the catalog-level form of Default.Suggest, usable with any
// Resolver implementation.
func Suggest(catalog *mapping.Catalog, name string, owner mapping.TypeID) (string, bool) {
	if catalog == nil || name == "" {
		return "", false
	}
	limit := max(2, len(name)/3)

	best, bestDist := "", limit+1
	seen := make(map[string]bool)
	for _, m := range catalog.Members(owner) {
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		d := levenshtein.ComputeDistance(name, m.Name)
		if d < bestDist {
			best, bestDist = m.Name, d
		}
	}
	return best, best != ""
}
