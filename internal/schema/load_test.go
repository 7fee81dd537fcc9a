package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatacriteria/internal/mapping"
	"github.com/roach88/odatacriteria/internal/testutil"
)

func TestLoad_Shop(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "shop"))
	require.NoError(t, err)

	assert.Equal(t, 2, s.FileCount)
	assert.Len(t, s.Types, len(testutil.ShopTypes()))
	assert.Len(t, s.Classes, len(testutil.ShopClasses()))

	store, err := s.Build()
	require.NoError(t, err)

	dog, ok := store.UniqueSubtypeForBase("Animal")
	require.True(t, ok)
	assert.Equal(t, mapping.TypeID("Dog"), dog)

	// The CUE spec describes the same schema as the Go fixture.
	assert.Equal(t, testutil.MustShopStore(false).Hash(), store.Hash())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing"))
	assert.Error(t, err)

	_, err = Load(filepath.Join("testdata", "shop", "types.cue"))
	assert.ErrorContains(t, err, "not a directory")

	_, err = Load(t.TempDir())
	assert.ErrorContains(t, err, "no CUE files")
}

func TestLoadSource(t *testing.T) {
	s, err := LoadSource("inline.cue", `
		types: {
			Entity: members: Id: "int64"
			Order: {base: "Entity", members: Number: "string"}
		}
		mapped: Order: table: "orders"
	`)
	require.NoError(t, err)
	assert.Equal(t, 1, s.FileCount)

	store, err := s.Build()
	require.NoError(t, err)
	assert.True(t, store.IsMapped("Order"))
	assert.False(t, store.IsMapped("Entity"))
}

func TestLoadSource_NoTypes(t *testing.T) {
	_, err := LoadSource("empty.cue", `mapped: {}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no types declared")
}

func TestLoadSource_SyntaxError(t *testing.T) {
	_, err := LoadSource("bad.cue", `types: {`)
	require.Error(t, err)
}
