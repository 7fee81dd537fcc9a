package mapping

import "strings"

// Property is one entry of a mapped class's persisted property table.
type Property struct {
	Name          string
	Type          TypeID
	Column        string
	Inverse       string
	DeclaringType TypeID
}

// DynamicProperty is a member of a dynamic component. It is addressed by
// Component + "." + Name, e.g. "Attributes.Color".
type DynamicProperty struct {
	Component string
	Name      string
	Type      TypeID
	Column    string
}

// Path returns the dotted path the property is looked up by.
func (d DynamicProperty) Path() string {
	return d.Component + "." + d.Name
}

// MappedClass is the persisted view of one entity type.
type MappedClass struct {
	Type    TypeID
	Table   string
	Key     string
	Dynamic []DynamicProperty

	properties map[string]Property
	order      []string
}

// Property looks up a persisted property by exact name.
func (m *MappedClass) Property(name string) (Property, bool) {
	p, ok := m.properties[name]
	return p, ok
}

// Properties returns the property table in declaration order,
// most-derived declaring type first.
func (m *MappedClass) Properties() []Property {
	out := make([]Property, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.properties[name])
	}
	return out
}

// FindDynamicProperty looks up a dynamic component member by its dotted
// path. With caseSensitive false an exact-case match still wins over a
// folded match.
func (m *MappedClass) FindDynamicProperty(path string, caseSensitive bool) (DynamicProperty, bool) {
	path = strings.TrimPrefix(path, ".")
	var folded *DynamicProperty
	for i := range m.Dynamic {
		d := &m.Dynamic[i]
		if d.Path() == path {
			return *d, true
		}
		if folded == nil && !caseSensitive && NamesEqual(d.Path(), path, false) {
			folded = d
		}
	}
	if folded != nil {
		return *folded, true
	}
	return DynamicProperty{}, false
}
