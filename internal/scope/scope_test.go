package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_RootState(t *testing.T) {
	c := New()
	assert.Equal(t, 0, c.Depth())
	assert.False(t, c.InLambda())

	_, ok := c.Current()
	assert.False(t, ok)
	assert.ErrorIs(t, c.Exit(), ErrNotInLambda)
}

func TestContext_NestedLookupInnermostFirst(t *testing.T) {
	c := New()
	require.NoError(t, c.Enter(Binding{Parameter: "o", Alias: "t1", Type: "Order"}))
	require.NoError(t, c.Enter(Binding{Parameter: "l", Alias: "t2", Type: "OrderLine"}))
	require.NoError(t, c.Enter(Binding{Parameter: "o", Alias: "t3", Type: "Other"}))

	assert.Equal(t, 3, c.Depth())

	b, ok := c.Find("o")
	require.True(t, ok)
	assert.Equal(t, "t3", b.Alias, "shadowing parameter resolves to innermost")

	b, ok = c.Find("l")
	require.True(t, ok)
	assert.Equal(t, "t2", b.Alias)

	_, ok = c.Find("x")
	assert.False(t, ok)

	assert.Equal(t, []string{"t1", "t2", "t3"}, aliases(c.Bindings()))

	require.NoError(t, c.Exit())
	b, _ = c.Find("o")
	assert.Equal(t, "t1", b.Alias)
	assert.Equal(t, 2, c.Depth())
}

func TestContext_EnterValidation(t *testing.T) {
	c := New()
	assert.Error(t, c.Enter(Binding{}))
	assert.Error(t, c.Enter(Binding{Parameter: ItName}))
	assert.Equal(t, 0, c.Depth())
}

func TestContext_WithinAlwaysExits(t *testing.T) {
	c := New()
	boom := errors.New("boom")

	err := c.Within(Binding{Parameter: "o", Alias: "t1"}, func() error {
		assert.Equal(t, 1, c.Depth())
		cur, ok := c.Current()
		require.True(t, ok)
		assert.Equal(t, "o", cur.Parameter)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Depth())
}

func aliases(bs []Binding) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Alias
	}
	return out
}
