package schema

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatacriteria/internal/mapping"
)

func TestCompileTypeBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		types: Order: {
			base: "Entity"
			members: {
				Number: "string"
				Lines: {type: "[]OrderLine", inverse: "order_id"}
				code: {type: "string", column: "internal_code", field: true}
			}
		}
	`)
	require.NoError(t, v.Err())

	typ, err := CompileType(v.LookupPath(cue.ParsePath("types.Order")))
	require.NoError(t, err)

	assert.Equal(t, mapping.TypeID("Order"), typ.ID)
	assert.Equal(t, mapping.KindEntity, typ.Kind)
	assert.Equal(t, mapping.TypeID("Entity"), typ.Base)
	assert.Equal(t, []mapping.Member{
		{Name: "Number", Type: mapping.TypeString},
		{Name: "Lines", Type: "[]OrderLine", Inverse: "order_id"},
		{Name: "code", Type: mapping.TypeString, Column: "internal_code", Kind: mapping.MemberField},
	}, typ.Members)
}

func TestCompileTypeComponent(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`types: Location: {kind: "component", members: Street: "string"}`)

	typ, err := CompileType(v.LookupPath(cue.ParsePath("types.Location")))
	require.NoError(t, err)
	assert.Equal(t, mapping.KindComponent, typ.Kind)
}

func TestCompileTypeErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"bad kind", `types: X: kind: "view"`, "kind"},
		{"member not struct", `types: X: members: A: 3`, "members.A"},
		{"member without type", `types: X: members: A: {column: "a"}`, "members.A.type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := cuecontext.New().CompileString(tt.src, cue.Filename("x.cue"))
			_, err := CompileType(v.LookupPath(cue.ParsePath("types.X")))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.True(t, ce.Pos.IsValid())
			assert.Contains(t, err.Error(), "x.cue:")
		})
	}
}

func TestCompileMapped(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		mapped: Customer: {
			table: "customers"
			key: "customer_id"
			dynamic: Attributes: {
				Color: "string"
				Size: {type: "int32", column: "attr_size"}
			}
		}
	`)

	mc, err := CompileMapped(v.LookupPath(cue.ParsePath("mapped.Customer")))
	require.NoError(t, err)

	assert.Equal(t, mapping.TypeID("Customer"), mc.Type)
	assert.Equal(t, "customers", mc.Table)
	assert.Equal(t, "customer_id", mc.Key)
	assert.Equal(t, []mapping.DynamicProperty{
		{Component: "Attributes", Name: "Color", Type: mapping.TypeString},
		{Component: "Attributes", Name: "Size", Type: mapping.TypeInt32, Column: "attr_size"},
	}, mc.Dynamic)
}

func TestCompileMappedMissingTable(t *testing.T) {
	v := cuecontext.New().CompileString(`mapped: Customer: key: "id"`)

	_, err := CompileMapped(v.LookupPath(cue.ParsePath("mapped.Customer")))
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "table", ce.Field)
}

func TestCompileMappedDynamicWithoutType(t *testing.T) {
	v := cuecontext.New().CompileString(`mapped: C: {table: "c", dynamic: A: B: {column: "b"}}`)

	_, err := CompileMapped(v.LookupPath(cue.ParsePath("mapped.C")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dynamic member needs a type")
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "table", Message: "table is required"}
	assert.Equal(t, "table: table is required", err.Error())
}
