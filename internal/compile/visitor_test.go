package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatacriteria/internal/expr"
	"github.com/roach88/odatacriteria/internal/mapping"
	"github.com/roach88/odatacriteria/internal/scope"
	"github.com/roach88/odatacriteria/internal/testutil"
)

func newContext(t *testing.T, withCat bool, root mapping.TypeID, opts ...Option) *BuildContext {
	t.Helper()
	c, err := New(testutil.MustShopStore(withCat), opts...)
	require.NoError(t, err)
	bc, err := c.NewBuildContext(root, nil)
	require.NoError(t, err)
	return bc
}

func mustResolve(t *testing.T, bc *BuildContext, path string) *expr.ResolvedMember {
	t.Helper()
	r, err := bc.ResolveMember(expr.NewMember(path))
	require.NoError(t, err)
	return r
}

func TestResolveMember_SingleSegment(t *testing.T) {
	bc := newContext(t, false, "Order")

	r := mustResolve(t, bc, "Number")
	assert.Equal(t, &expr.ResolvedMember{Alias: "root", Member: "Number", Type: mapping.TypeString}, r)
	assert.Equal(t, "root.Number", r.Path())
	assert.Equal(t, 0, bc.Aliases().Len())
}

func TestResolveMember_ItPrefix(t *testing.T) {
	bc := newContext(t, false, "Order")

	r := mustResolve(t, bc, "$it/Number")
	assert.Equal(t, "root.Number", r.Path())

	_, err := bc.ResolveMember(expr.NewMember("$it"))
	assert.True(t, IsInvalidExpression(err))
}

func TestResolveMember_CaseSensitivity(t *testing.T) {
	bc := newContext(t, false, "Order")
	r := mustResolve(t, bc, "number")
	assert.Equal(t, "Number", r.Member, "resolved name is the declared spelling")

	bc = newContext(t, false, "Order", WithCaseSensitive(true))
	_, err := bc.ResolveMember(expr.NewMember("number"))
	require.Error(t, err)
	assert.True(t, IsUnresolvableName(err))

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "number", ce.Name)
	assert.Equal(t, "Order", ce.Type)
	assert.Equal(t, "Number", ce.Suggestion)

	r = mustResolve(t, bc, "Number")
	assert.Equal(t, "Number", r.Member)
}

func TestResolveMember_MultiHopJoin(t *testing.T) {
	bc := newContext(t, false, "Order")

	r := mustResolve(t, bc, "Customer/Address/City")
	assert.Equal(t, "t2.City", r.Path())
	assert.Equal(t, mapping.TypeString, r.Type)

	aliases := bc.Aliases().Aliases()
	require.Len(t, aliases, 2)
	assert.Equal(t, "t1", aliases[0].Name)
	assert.Equal(t, "root.Customer", aliases[0].Path)
	assert.Equal(t, mapping.TypeID("Customer"), aliases[0].Type)
	assert.Equal(t, "t2", aliases[1].Name)
	assert.Equal(t, "t1.Address", aliases[1].Path)
	assert.Equal(t, mapping.TypeID("Address"), aliases[1].Type)
}

func TestResolveMember_IdempotentAliasing(t *testing.T) {
	bc := newContext(t, false, "Order")

	paths := []string{"Customer/Name", "Customer/Email", "customer/name", "Customer/Address/City", "Customer/Address/Street"}
	var got []string
	for _, p := range paths {
		got = append(got, mustResolve(t, bc, p).Path())
	}

	assert.Equal(t, []string{"t1.Name", "t1.Email", "t1.Name", "t2.City", "t2.Street"}, got)
	assert.Equal(t, 2, bc.Aliases().Len())
}

func TestResolveMember_Component(t *testing.T) {
	bc := newContext(t, false, "Customer")

	r := mustResolve(t, bc, "Home/Street")
	assert.Equal(t, "root.Home.Street", r.Path())
	assert.Equal(t, 0, bc.Aliases().Len(), "components are not joined")

	r = mustResolve(t, bc, "Home/Country/Name")
	assert.Equal(t, "t1.Name", r.Path())
	a, ok := bc.Aliases().Lookup("root.Home.Country")
	require.True(t, ok)
	assert.Equal(t, "t1", a.Name)
	assert.Equal(t, "Home.Country", a.Relative)
}

func TestResolveMember_DynamicComponent(t *testing.T) {
	bc := newContext(t, false, "Customer")

	r := mustResolve(t, bc, "Attributes/Color")
	assert.Equal(t, "root.Attributes.Color", r.Path())
	assert.Equal(t, mapping.TypeString, r.Type)

	r = mustResolve(t, bc, "attributes/size")
	assert.Equal(t, "root.Attributes.Size", r.Path())
	assert.Equal(t, mapping.TypeInt32, r.Type)

	_, err := bc.ResolveMember(expr.NewMember("Attributes/Weight"))
	require.Error(t, err)
	assert.True(t, IsUnresolvableDynamicMember(err))
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Weight", ce.Name)
	assert.Equal(t, "Attributes", ce.Path)
	assert.Equal(t, "Customer", ce.Type)
}

func TestResolveMember_DynamicComponentAfterJoin(t *testing.T) {
	bc := newContext(t, false, "Order")

	r := mustResolve(t, bc, "Customer/Attributes/Size")
	assert.Equal(t, "t1.Attributes.Size", r.Path())
	assert.Equal(t, mapping.TypeInt32, r.Type)
}

func TestResolveMember_DynamicComponentCaseSensitive(t *testing.T) {
	bc := newContext(t, false, "Customer", WithCaseSensitive(true))

	_, err := bc.ResolveMember(expr.NewMember("Attributes/color"))
	assert.True(t, IsUnresolvableDynamicMember(err))
}

func TestResolveMember_BaseTypeShortcut(t *testing.T) {
	bc := newContext(t, false, "Person")

	r := mustResolve(t, bc, "Pet/Breed")
	assert.Equal(t, "t1.Breed", r.Path())
	a, ok := bc.Aliases().Lookup("root.Pet")
	require.True(t, ok)
	assert.Equal(t, mapping.TypeID("Dog"), a.Type)

	r = mustResolve(t, bc, "Pet/Name")
	assert.Equal(t, "t1.Name", r.Path())
	assert.Equal(t, 1, bc.Aliases().Len())
}

func TestResolveMember_AmbiguousBaseIsNotGuessed(t *testing.T) {
	bc := newContext(t, true, "Person")

	for _, p := range []string{"Pet/Breed", "Pet/Name"} {
		_, err := bc.ResolveMember(expr.NewMember(p))
		require.Error(t, err, p)
		assert.True(t, IsUnresolvableName(err), p)
	}
	assert.Equal(t, 0, bc.Aliases().Len())
}

func TestResolveMember_FieldFallback(t *testing.T) {
	bc := newContext(t, false, "Order")
	r := mustResolve(t, bc, "internalCode")
	assert.Equal(t, "root.internalCode", r.Path())

	_, err := bc.ResolveMember(expr.NewMember("InternalCode"))
	assert.True(t, IsUnresolvableName(err), "fields match by exact case only")
}

func TestResolveMember_UnresolvableSegmentMidPath(t *testing.T) {
	bc := newContext(t, false, "Order")

	_, err := bc.ResolveMember(expr.NewMember("Customer/Nme/City"))
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeUnresolvableName, ce.Code)
	assert.Equal(t, "Nme", ce.Name)
	assert.Equal(t, "Customer", ce.Type)
	assert.Equal(t, "Name", ce.Suggestion)
	assert.Equal(t, "Customer.Nme.City", ce.Path)

	_, err = bc.ResolveMember(expr.NewMember("Lines/Quantity"))
	assert.True(t, IsUnresolvableName(err), "collections are only reachable through any/all")
}

func TestResolveMember_InsideLambda(t *testing.T) {
	bc := newContext(t, false, "Customer")
	orders, _ := bc.Aliases().GetOrCreateCollection("root", "Orders", "Order")
	require.NoError(t, bc.Scope().Enter(scope.Binding{Parameter: "o", Alias: orders.Name, Type: "Order"}))

	r := mustResolve(t, bc, "o/Total")
	assert.Equal(t, &expr.ResolvedMember{Alias: "t1", Member: "Total", Type: mapping.TypeDecimal}, r)

	r = mustResolve(t, bc, "o/Customer/Name")
	assert.Equal(t, "t2.Name", r.Path())
	a, _ := bc.Aliases().Lookup("t1.Customer")
	assert.Equal(t, "t1", a.Parent)

	_, err := bc.ResolveMember(expr.NewMember("Total"))
	assert.True(t, IsUsageError(err), "lambda paths must start with the parameter")
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "o/Total", ce.Suggestion)
	assert.ErrorContains(t, err, "(in scope: o)")

	_, err = bc.ResolveMember(expr.NewMember("$it/Name"))
	assert.True(t, IsUsageError(err))
	assert.ErrorContains(t, err, "$it cannot be used inside a lambda")

	lines, _ := bc.Aliases().GetOrCreateCollection("t1", "Lines", "OrderLine")
	require.NoError(t, bc.Scope().Enter(scope.Binding{Parameter: "l", Alias: lines.Name, Type: "OrderLine"}))
	r = mustResolve(t, bc, "o/Number")
	assert.Equal(t, "t1.Number", r.Path(), "outer parameters stay visible")
	r = mustResolve(t, bc, "l/Quantity")
	assert.Equal(t, "t3.Quantity", r.Path())
}

func TestResolveMember_StaleLambdaParameter(t *testing.T) {
	bc := newContext(t, false, "Customer")
	bc.declareLambdaParameters("o")

	_, err := bc.ResolveMember(expr.NewMember("o/Total"))
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
}

func TestResolveMember_WithoutRootAlias(t *testing.T) {
	bc := newContext(t, false, "Order", WithoutRootAlias())

	r := mustResolve(t, bc, "Number")
	assert.Equal(t, "Number", r.Path())

	r = mustResolve(t, bc, "Customer/Name")
	assert.Equal(t, "t1.Name", r.Path())
	a, ok := bc.Aliases().Lookup("Customer")
	require.True(t, ok)
	assert.Equal(t, "t1", a.Name)
	assert.Equal(t, "", a.Parent)
}

func TestResolveMember_ShadowedProperty(t *testing.T) {
	bc := newContext(t, false, "Truck")
	r := mustResolve(t, bc, "Name")
	assert.Equal(t, "root.Name", r.Path())
	assert.Equal(t, mapping.TypeString, r.Type)
}

func TestResolveMember_EmptyPath(t *testing.T) {
	bc := newContext(t, false, "Order")
	_, err := bc.ResolveMember(&expr.Member{})
	assert.True(t, IsInvalidExpression(err))
}
