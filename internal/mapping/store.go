package mapping

import (
	"fmt"
	"sort"

	"github.com/roach88/odatacriteria/internal/ir"
)

// Store is the Mapping Metadata Store. It is produced once by Build and
// never mutated afterwards.
type Store struct {
	catalog   *Catalog
	classes   map[TypeID]*MappedClass
	shortcut  map[TypeID]TypeID
	ambiguous map[TypeID][]TypeID
	hash      string
}

// Build creates a Store from a catalog and the mapped classes persisted
// against it.
//
// The base shortcut table is filled by counting, for every mapped class,
// its direct base type. A base gets an entry only when exactly one mapped
// class derives from it and the base itself is not mapped. Bases shared by
// two or more mapped classes are recorded as ambiguous and never resolved.
func Build(catalog *Catalog, classes []MappedClass) (*Store, error) {
	if catalog == nil {
		return nil, fmt.Errorf("mapping: catalog is required")
	}

	s := &Store{
		catalog:   catalog,
		classes:   make(map[TypeID]*MappedClass, len(classes)),
		shortcut:  make(map[TypeID]TypeID),
		ambiguous: make(map[TypeID][]TypeID),
	}

	for _, spec := range classes {
		mc, err := s.buildClass(spec)
		if err != nil {
			return nil, err
		}
		s.classes[mc.Type] = mc
	}

	baseUse := make(map[TypeID][]TypeID)
	for _, id := range s.mappedIDs() {
		t, _ := catalog.Type(id)
		if t.Base == NoType {
			continue
		}
		baseUse[t.Base] = append(baseUse[t.Base], id)
	}
	for base, subtypes := range baseUse {
		if _, mapped := s.classes[base]; mapped {
			continue
		}
		if len(subtypes) == 1 {
			s.shortcut[base] = subtypes[0]
		} else {
			s.ambiguous[base] = subtypes
		}
	}

	hash, err := ir.SchemaHash(s.describe())
	if err != nil {
		return nil, err
	}
	s.hash = hash

	return s, nil
}

func (s *Store) buildClass(spec MappedClass) (*MappedClass, error) {
	t, ok := s.catalog.Type(spec.Type)
	if !ok {
		return nil, &SchemaError{Type: spec.Type, Message: "mapped type is not in the catalog"}
	}
	if t.Kind != KindEntity {
		return nil, &SchemaError{Type: spec.Type, Message: fmt.Sprintf("only entity types can be mapped, got %s", t.Kind)}
	}
	if _, dup := s.classes[spec.Type]; dup {
		return nil, &SchemaError{Type: spec.Type, Message: "type mapped twice"}
	}
	if spec.Table == "" {
		return nil, &SchemaError{Type: spec.Type, Message: "table is required"}
	}

	mc := &MappedClass{
		Type:       spec.Type,
		Table:      spec.Table,
		Key:        spec.Key,
		Dynamic:    append([]DynamicProperty(nil), spec.Dynamic...),
		properties: make(map[string]Property),
	}
	if mc.Key == "" {
		mc.Key = "id"
	}

	// Members are most-derived first, so a redeclared member keeps the
	// subtype's definition.
	for _, m := range s.catalog.Members(spec.Type) {
		if m.Kind != MemberProperty {
			continue
		}
		if _, seen := mc.properties[m.Name]; seen {
			continue
		}
		mc.properties[m.Name] = Property{
			Name:          m.Name,
			Type:          m.Type,
			Column:        m.Column,
			Inverse:       m.Inverse,
			DeclaringType: m.DeclaringType,
		}
		mc.order = append(mc.order, m.Name)
	}

	for i, d := range mc.Dynamic {
		owner, ok := mc.properties[d.Component]
		if !ok || owner.Type != TypeDynamic {
			return nil, &SchemaError{Type: spec.Type, Member: d.Component, Message: "dynamic component must be a property of type dynamic"}
		}
		if d.Name == "" {
			return nil, &SchemaError{Type: spec.Type, Member: d.Component, Message: "dynamic member name is required"}
		}
		if s.catalog.KindOf(d.Type) != KindScalar {
			return nil, &SchemaError{Type: spec.Type, Member: d.Path(), Message: "dynamic members must be scalar"}
		}
		if d.Column == "" {
			mc.Dynamic[i].Column = owner.Column + "_" + d.Name
		}
	}

	return mc, nil
}

func (s *Store) mappedIDs() []TypeID {
	ids := make([]TypeID, 0, len(s.classes))
	for id := range s.classes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Catalog returns the catalog the store was built from.
func (s *Store) Catalog() *Catalog {
	return s.catalog
}

// Hash identifies the schema content. Compilations against stores with the
// same hash are interchangeable.
func (s *Store) Hash() string {
	return s.hash
}

// Lookup returns the mapped class for t.
func (s *Store) Lookup(t TypeID) (*MappedClass, bool) {
	mc, ok := s.classes[t]
	return mc, ok
}

// IsMapped reports whether t has a mapped class.
func (s *Store) IsMapped(t TypeID) bool {
	_, ok := s.classes[t]
	return ok
}

// UniqueSubtypeForBase returns the sole mapped subtype of an unmapped base.
func (s *Store) UniqueSubtypeForBase(base TypeID) (TypeID, bool) {
	sub, ok := s.shortcut[base]
	return sub, ok
}

// MappedOrShortcut returns the mapped class for t, trying the base
// shortcut when t itself is not mapped.
func (s *Store) MappedOrShortcut(t TypeID) (*MappedClass, bool) {
	if mc, ok := s.classes[t]; ok {
		return mc, true
	}
	if sub, ok := s.shortcut[t]; ok {
		return s.classes[sub], true
	}
	return nil, false
}

// FindDynamicProperty looks up a dynamic component member of mapped type t.
func (s *Store) FindDynamicProperty(t TypeID, path string, caseSensitive bool) (DynamicProperty, bool) {
	mc, ok := s.classes[t]
	if !ok {
		return DynamicProperty{}, false
	}
	return mc.FindDynamicProperty(path, caseSensitive)
}

// MappedClasses returns all mapped classes sorted by type id.
func (s *Store) MappedClasses() []*MappedClass {
	out := make([]*MappedClass, 0, len(s.classes))
	for _, id := range s.mappedIDs() {
		out = append(out, s.classes[id])
	}
	return out
}

// Shortcuts returns a copy of the base shortcut table.
func (s *Store) Shortcuts() map[TypeID]TypeID {
	out := make(map[TypeID]TypeID, len(s.shortcut))
	for k, v := range s.shortcut {
		out[k] = v
	}
	return out
}

// AmbiguousBases returns unmapped bases shared by more than one mapped
// class, with their subtypes sorted.
func (s *Store) AmbiguousBases() map[TypeID][]TypeID {
	out := make(map[TypeID][]TypeID, len(s.ambiguous))
	for k, v := range s.ambiguous {
		out[k] = append([]TypeID(nil), v...)
	}
	return out
}

// describe renders the schema as an IRObject for hashing.
func (s *Store) describe() ir.IRObject {
	types := ir.IRObject{}
	for _, id := range s.catalog.TypeIDs() {
		t, _ := s.catalog.Type(id)
		members := make(ir.IRArray, 0, len(t.Members))
		for _, m := range t.Members {
			members = append(members, ir.IRObject{
				"name":    ir.IRString(m.Name),
				"type":    ir.IRString(m.Type),
				"kind":    ir.IRString(m.Kind.String()),
				"column":  ir.IRString(m.Column),
				"inverse": ir.IRString(m.Inverse),
			})
		}
		types[string(id)] = ir.IRObject{
			"kind":    ir.IRString(t.Kind.String()),
			"base":    ir.IRString(t.Base),
			"element": ir.IRString(t.Element),
			"members": members,
		}
	}

	classes := ir.IRObject{}
	for _, mc := range s.MappedClasses() {
		dyn := make(ir.IRArray, 0, len(mc.Dynamic))
		for _, d := range mc.Dynamic {
			dyn = append(dyn, ir.IRObject{
				"path":   ir.IRString(d.Path()),
				"type":   ir.IRString(d.Type),
				"column": ir.IRString(d.Column),
			})
		}
		classes[string(mc.Type)] = ir.IRObject{
			"table":   ir.IRString(mc.Table),
			"key":     ir.IRString(mc.Key),
			"dynamic": dyn,
		}
	}

	return ir.IRObject{"types": types, "classes": classes}
}
