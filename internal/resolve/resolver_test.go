package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatacriteria/internal/mapping"
	"github.com/roach88/odatacriteria/internal/testutil"
)

func shopResolver(t *testing.T) *Default {
	t.Helper()
	store, err := testutil.ShopStore(false)
	require.NoError(t, err)
	return New(store.Catalog())
}

func TestResolve_CaseSensitivity(t *testing.T) {
	r := shopResolver(t)

	got, ok := r.Resolve("Name", "Customer", true)
	require.True(t, ok)
	assert.Equal(t, "Name", got.Name)
	assert.Equal(t, mapping.TypeString, got.Type)

	got, ok = r.Resolve("name", "Customer", false)
	require.True(t, ok)
	assert.Equal(t, "Name", got.Name, "persisted spelling is returned")

	_, ok = r.Resolve("name", "Customer", true)
	assert.False(t, ok)
}

func TestResolve_ExactCaseWinsWhenBothSpellingsExist(t *testing.T) {
	catalog, err := mapping.NewCatalog(mapping.Type{
		ID:   "Doc",
		Kind: mapping.KindEntity,
		Members: []mapping.Member{
			{Name: "Title", Type: mapping.TypeString},
			{Name: "title", Type: mapping.TypeInt32},
		},
	})
	require.NoError(t, err)
	r := New(catalog)

	got, ok := r.Resolve("title", "Doc", false)
	require.True(t, ok)
	assert.Equal(t, mapping.TypeInt32, got.Type)

	got, ok = r.Resolve("Title", "Doc", false)
	require.True(t, ok)
	assert.Equal(t, mapping.TypeString, got.Type)
}

func TestResolve_InheritedMember(t *testing.T) {
	r := shopResolver(t)

	got, ok := r.Resolve("Id", "Order", true)
	require.True(t, ok)
	assert.Equal(t, mapping.TypeID("Entity"), got.DeclaringType)
}

func TestResolve_ShadowedProperty(t *testing.T) {
	r := shopResolver(t)

	got, ok := r.Resolve("Name", "Car", true)
	require.True(t, ok)
	assert.Equal(t, mapping.TypeID("Car"), got.DeclaringType)

	got, ok = r.Resolve("Name", "Vehicle", true)
	require.True(t, ok)
	assert.Equal(t, mapping.TypeID("Vehicle"), got.DeclaringType)

	// Truck redeclares nothing: the nearest declaration in its base chain wins.
	got, ok = r.Resolve("Name", "Truck", false)
	require.True(t, ok)
	assert.Equal(t, mapping.TypeID("Car"), got.DeclaringType)
}

func TestResolve_FieldFallbackIsExactCase(t *testing.T) {
	r := shopResolver(t)

	got, ok := r.Resolve("internalCode", "Order", false)
	require.True(t, ok)
	assert.Equal(t, mapping.MemberField, got.Kind)

	_, ok = r.Resolve("InternalCode", "Order", false)
	assert.False(t, ok)
}

func TestResolve_Unknown(t *testing.T) {
	r := shopResolver(t)

	_, ok := r.Resolve("Nope", "Order", false)
	assert.False(t, ok)

	_, ok = r.Resolve("Name", "NoSuchType", false)
	assert.False(t, ok)
}

func TestSuggest(t *testing.T) {
	r := shopResolver(t)

	s, ok := r.Suggest("Totl", "Order")
	require.True(t, ok)
	assert.Equal(t, "Total", s)

	_, ok = r.Suggest("Completely", "Order")
	assert.False(t, ok)
}

func TestFunc(t *testing.T) {
	var r Resolver = Func(func(name string, owner mapping.TypeID, _ bool) (ResolvedName, bool) {
		return ResolvedName{Name: "x_" + name, Type: owner}, true
	})
	got, ok := r.Resolve("a", "T", true)
	require.True(t, ok)
	assert.Equal(t, "x_a", got.Name)
}
