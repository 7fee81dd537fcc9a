package mapping

import (
	"fmt"
	"strings"
)

// TypeID names a type in the catalog, e.g. "Order" or "Shop.Customer".
type TypeID string

// NoType is the zero TypeID. Resolution against NoType echoes names back
// unchanged.
const NoType TypeID = ""

// Built-in scalar types.
const (
	TypeString   TypeID = "string"
	TypeBool     TypeID = "bool"
	TypeInt32    TypeID = "int32"
	TypeInt64    TypeID = "int64"
	TypeDecimal  TypeID = "decimal"
	TypeDouble   TypeID = "double"
	TypeGUID     TypeID = "guid"
	TypeDateTime TypeID = "datetime"
	TypeBinary   TypeID = "binary"
)

// TypeDynamic is the schemaless key/value container. Members of a property
// typed as TypeDynamic are looked up through the owning MappedClass's
// dynamic component table rather than through declared members.
const TypeDynamic TypeID = "dynamic"

// Kind classifies a catalog type.
type Kind int

const (
	KindScalar Kind = iota
	KindEntity
	KindComponent
	KindCollection
	KindDynamic
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindEntity:
		return "entity"
	case KindComponent:
		return "component"
	case KindCollection:
		return "collection"
	case KindDynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MemberKind distinguishes properties from plain fields. The resolver
// prefers properties and falls back to fields.
type MemberKind int

const (
	MemberProperty MemberKind = iota
	MemberField
)

func (k MemberKind) String() string {
	if k == MemberField {
		return "field"
	}
	return "property"
}

// Member is a declared property or field of a type.
type Member struct {
	Name string
	Type TypeID
	Kind MemberKind

	// Column is the persisted column (or column prefix for components).
	// Defaults to Name.
	Column string

	// Inverse is the foreign key column on the element table for
	// collection members.
	Inverse string

	// DeclaringType is filled in by NewCatalog.
	DeclaringType TypeID
}

// Type describes one catalog entry.
type Type struct {
	ID      TypeID
	Kind    Kind
	Base    TypeID
	Element TypeID // collections only
	Members []Member
}

func builtinTypes() []Type {
	scalars := []TypeID{
		TypeString, TypeBool, TypeInt32, TypeInt64, TypeDecimal,
		TypeDouble, TypeGUID, TypeDateTime, TypeBinary,
	}
	types := make([]Type, 0, len(scalars)+1)
	for _, id := range scalars {
		types = append(types, Type{ID: id, Kind: KindScalar})
	}
	types = append(types, Type{ID: TypeDynamic, Kind: KindDynamic})
	return types
}

// CollectionOf returns the conventional id for a collection of elem.
func CollectionOf(elem TypeID) TypeID {
	return TypeID("[]" + string(elem))
}

// ElementOf returns the element id of a collection id of the form "[]Elem".
func ElementOf(id TypeID) (TypeID, bool) {
	elem, ok := strings.CutPrefix(string(id), "[]")
	if !ok || elem == "" {
		return NoType, false
	}
	return TypeID(elem), true
}

// IsBuiltin reports whether id names a built-in scalar or TypeDynamic.
func IsBuiltin(id TypeID) bool {
	for _, t := range builtinTypes() {
		if t.ID == id {
			return true
		}
	}
	return false
}
