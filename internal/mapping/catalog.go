package mapping

import (
	"fmt"
	"sort"
)

// Catalog is the immutable set of types a query may reference.
type Catalog struct {
	types map[TypeID]*Type
}

// SchemaError reports an inconsistent type or mapping definition.
type SchemaError struct {
	Type    TypeID
	Member  string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Member != "" {
		return fmt.Sprintf("schema: %s.%s: %s", e.Type, e.Member, e.Message)
	}
	return fmt.Sprintf("schema: %s: %s", e.Type, e.Message)
}

// NewCatalog builds a catalog from the given types plus the built-in
// scalars. Collection types of the form "[]Elem" referenced by members are
// registered automatically.
//
// Validation:
//   - type ids are unique and non-empty
//   - member, base and element types exist
//   - base chains are acyclic and only link entities/components
//   - member names are unique within their declaring type
func NewCatalog(types ...Type) (*Catalog, error) {
	c := &Catalog{types: make(map[TypeID]*Type, len(types)+16)}

	for _, t := range builtinTypes() {
		t := t
		c.types[t.ID] = &t
	}

	for _, t := range types {
		if t.ID == NoType {
			return nil, &SchemaError{Message: "type id is required"}
		}
		if _, exists := c.types[t.ID]; exists {
			return nil, &SchemaError{Type: t.ID, Message: "duplicate type"}
		}
		cp := t
		cp.Members = make([]Member, len(t.Members))
		for i, m := range t.Members {
			if m.Column == "" {
				m.Column = m.Name
			}
			m.DeclaringType = t.ID
			cp.Members[i] = m
		}
		c.types[t.ID] = &cp
	}

	// Register implicit collection types before validating members.
	for _, t := range c.snapshot() {
		for _, m := range t.Members {
			c.ensureCollection(m.Type)
		}
	}

	for _, t := range c.snapshot() {
		if err := c.validate(t); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Catalog) snapshot() []*Type {
	out := make([]*Type, 0, len(c.types))
	for _, id := range c.TypeIDs() {
		out = append(out, c.types[id])
	}
	return out
}

func (c *Catalog) ensureCollection(id TypeID) {
	if _, ok := c.types[id]; ok {
		return
	}
	elem, ok := ElementOf(id)
	if !ok {
		return
	}
	c.types[id] = &Type{ID: id, Kind: KindCollection, Element: elem}
}

func (c *Catalog) validate(t *Type) error {
	if t.Kind == KindCollection {
		if t.Element == NoType {
			return &SchemaError{Type: t.ID, Message: "collection element type is required"}
		}
		if _, ok := c.types[t.Element]; !ok {
			return &SchemaError{Type: t.ID, Message: fmt.Sprintf("unknown element type %q", t.Element)}
		}
	}

	if t.Base != NoType {
		base, ok := c.types[t.Base]
		if !ok {
			return &SchemaError{Type: t.ID, Message: fmt.Sprintf("unknown base type %q", t.Base)}
		}
		if !isStructured(t.Kind) || !isStructured(base.Kind) {
			return &SchemaError{Type: t.ID, Message: fmt.Sprintf("base type %q must link entity or component types", t.Base)}
		}
		seen := map[TypeID]bool{t.ID: true}
		for cur := base; cur != nil && cur.Base != NoType; cur = c.types[cur.Base] {
			if seen[cur.Base] {
				return &SchemaError{Type: t.ID, Message: "base type cycle"}
			}
			seen[cur.Base] = true
		}
	}

	names := make(map[string]bool, len(t.Members))
	for _, m := range t.Members {
		if m.Name == "" {
			return &SchemaError{Type: t.ID, Message: "member name is required"}
		}
		if names[m.Name] {
			return &SchemaError{Type: t.ID, Member: m.Name, Message: "duplicate member"}
		}
		names[m.Name] = true
		if _, ok := c.types[m.Type]; !ok {
			return &SchemaError{Type: t.ID, Member: m.Name, Message: fmt.Sprintf("unknown type %q", m.Type)}
		}
	}
	return nil
}

func isStructured(k Kind) bool {
	return k == KindEntity || k == KindComponent
}

// Type returns the catalog entry for id.
func (c *Catalog) Type(id TypeID) (*Type, bool) {
	t, ok := c.types[id]
	return t, ok
}

// TypeIDs returns all type ids in sorted order.
func (c *Catalog) TypeIDs() []TypeID {
	ids := make([]TypeID, 0, len(c.types))
	for id := range c.types {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BaseChain returns id followed by its ancestors, most-derived first.
func (c *Catalog) BaseChain(id TypeID) []TypeID {
	var chain []TypeID
	for t, ok := c.types[id]; ok; t, ok = c.types[t.Base] {
		chain = append(chain, t.ID)
		if t.Base == NoType {
			break
		}
	}
	return chain
}

// Members returns the declared and inherited members of id, most-derived
// declaring type first. A member redeclared by a subtype appears once per
// declaring type, so callers can see shadowing.
func (c *Catalog) Members(id TypeID) []Member {
	var out []Member
	for _, tid := range c.BaseChain(id) {
		out = append(out, c.types[tid].Members...)
	}
	return out
}

// ElementType returns the element type of a collection type.
func (c *Catalog) ElementType(id TypeID) (TypeID, bool) {
	t, ok := c.types[id]
	if !ok || t.Kind != KindCollection {
		return NoType, false
	}
	return t.Element, true
}

// IsDynamic reports whether id is the schemaless container type.
func (c *Catalog) IsDynamic(id TypeID) bool {
	t, ok := c.types[id]
	return ok && t.Kind == KindDynamic
}

// KindOf returns the kind of id, or KindScalar for unknown ids.
func (c *Catalog) KindOf(id TypeID) Kind {
	if t, ok := c.types[id]; ok {
		return t.Kind
	}
	return KindScalar
}
