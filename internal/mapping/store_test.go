package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func animalCatalog(t *testing.T, withCat bool) *Catalog {
	t.Helper()
	types := []Type{
		{ID: "Animal", Kind: KindEntity, Members: []Member{
			{Name: "Name", Type: TypeString},
		}},
		{ID: "Dog", Kind: KindEntity, Base: "Animal", Members: []Member{
			{Name: "Breed", Type: TypeString},
			{Name: "Attributes", Type: TypeDynamic, Column: "attrs"},
		}},
	}
	if withCat {
		types = append(types, Type{ID: "Cat", Kind: KindEntity, Base: "Animal", Members: []Member{
			{Name: "Lives", Type: TypeInt32},
		}})
	}
	c, err := NewCatalog(types...)
	require.NoError(t, err)
	return c
}

func TestBuild_UniqueSubtypeShortcut(t *testing.T) {
	s, err := Build(animalCatalog(t, false), []MappedClass{
		{Type: "Dog", Table: "dogs"},
	})
	require.NoError(t, err)

	sub, ok := s.UniqueSubtypeForBase("Animal")
	require.True(t, ok)
	assert.Equal(t, TypeID("Dog"), sub)
	assert.Empty(t, s.AmbiguousBases())

	mc, ok := s.MappedOrShortcut("Animal")
	require.True(t, ok)
	assert.Equal(t, TypeID("Dog"), mc.Type)
	assert.False(t, s.IsMapped("Animal"))
}

func TestBuild_AmbiguousBaseIsNotShortcut(t *testing.T) {
	s, err := Build(animalCatalog(t, true), []MappedClass{
		{Type: "Dog", Table: "dogs"},
		{Type: "Cat", Table: "cats"},
	})
	require.NoError(t, err)

	_, ok := s.UniqueSubtypeForBase("Animal")
	assert.False(t, ok)
	assert.Equal(t, map[TypeID][]TypeID{"Animal": {"Cat", "Dog"}}, s.AmbiguousBases())

	_, ok = s.MappedOrShortcut("Animal")
	assert.False(t, ok)
}

func TestBuild_MappedBaseIsNotShortcut(t *testing.T) {
	s, err := Build(animalCatalog(t, false), []MappedClass{
		{Type: "Animal", Table: "animals"},
		{Type: "Dog", Table: "dogs"},
	})
	require.NoError(t, err)

	_, ok := s.UniqueSubtypeForBase("Animal")
	assert.False(t, ok)
	mc, ok := s.MappedOrShortcut("Animal")
	require.True(t, ok)
	assert.Equal(t, TypeID("Animal"), mc.Type)
}

func TestBuild_PropertyTable(t *testing.T) {
	s, err := Build(animalCatalog(t, false), []MappedClass{
		{Type: "Dog", Table: "dogs"},
	})
	require.NoError(t, err)

	mc, ok := s.Lookup("Dog")
	require.True(t, ok)
	assert.Equal(t, "id", mc.Key)

	names := make([]string, 0)
	for _, p := range mc.Properties() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Breed", "Attributes", "Name"}, names)

	p, ok := mc.Property("Name")
	require.True(t, ok)
	assert.Equal(t, TypeID("Animal"), p.DeclaringType)
}

func TestFindDynamicProperty(t *testing.T) {
	s, err := Build(animalCatalog(t, false), []MappedClass{{
		Type:  "Dog",
		Table: "dogs",
		Dynamic: []DynamicProperty{
			{Component: "Attributes", Name: "Color", Type: TypeString},
			{Component: "Attributes", Name: "color", Type: TypeInt32, Column: "lower_color"},
		},
	}})
	require.NoError(t, err)

	d, ok := s.FindDynamicProperty("Dog", "Attributes.Color", true)
	require.True(t, ok)
	assert.Equal(t, "attrs_Color", d.Column)

	d, ok = s.FindDynamicProperty("Dog", "Attributes.color", false)
	require.True(t, ok)
	assert.Equal(t, TypeInt32, d.Type, "exact case wins over folded match")

	d, ok = s.FindDynamicProperty("Dog", "attributes.COLOR", false)
	require.True(t, ok)
	assert.Equal(t, "Color", d.Name)

	_, ok = s.FindDynamicProperty("Dog", "attributes.COLOR", true)
	assert.False(t, ok)

	_, ok = s.FindDynamicProperty("Cat", "Attributes.Color", false)
	assert.False(t, ok)
}

func TestBuild_Errors(t *testing.T) {
	c := animalCatalog(t, false)

	_, err := Build(c, []MappedClass{{Type: "Nope", Table: "x"}})
	assert.ErrorContains(t, err, "not in the catalog")

	_, err = Build(c, []MappedClass{{Type: TypeString, Table: "x"}})
	assert.ErrorContains(t, err, "only entity types")

	_, err = Build(c, []MappedClass{{Type: "Dog"}})
	assert.ErrorContains(t, err, "table is required")

	_, err = Build(c, []MappedClass{{Type: "Dog", Table: "d"}, {Type: "Dog", Table: "d"}})
	assert.ErrorContains(t, err, "mapped twice")

	_, err = Build(c, []MappedClass{{Type: "Dog", Table: "d", Dynamic: []DynamicProperty{
		{Component: "Breed", Name: "X", Type: TypeString},
	}}})
	assert.ErrorContains(t, err, "dynamic component")

	_, err = Build(nil, nil)
	assert.Error(t, err)
}

func TestStore_HashStable(t *testing.T) {
	build := func() *Store {
		s, err := Build(animalCatalog(t, false), []MappedClass{{Type: "Dog", Table: "dogs"}})
		require.NoError(t, err)
		return s
	}
	a, b := build(), build()
	assert.Equal(t, a.Hash(), b.Hash())

	other, err := Build(animalCatalog(t, false), []MappedClass{{Type: "Dog", Table: "hounds"}})
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash(), other.Hash())
}
