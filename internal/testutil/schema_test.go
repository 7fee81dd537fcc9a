package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatacriteria/internal/mapping"
)

func TestShopStore(t *testing.T) {
	s, err := ShopStore(false)
	require.NoError(t, err)

	sub, ok := s.UniqueSubtypeForBase("Animal")
	require.True(t, ok)
	assert.Equal(t, "Dog", string(sub))

	// Customer and Order share the unmapped Entity base.
	assert.Contains(t, s.AmbiguousBases(), mapping.TypeID("Entity"))
}

func TestShopStore_WithCat(t *testing.T) {
	s, err := ShopStore(true)
	require.NoError(t, err)

	_, ok := s.UniqueSubtypeForBase("Animal")
	assert.False(t, ok)
}
