package criteriasql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatacriteria/internal/criteria"
	"github.com/roach88/odatacriteria/internal/ir"
)

func orders() *criteria.Criteria {
	return &criteria.Criteria{
		Root:  "Order",
		Table: "orders",
		Key:   "id",
		Alias: "root",
		Projections: []criteria.Projection{
			{Column: criteria.Column{Qualifier: "root", Name: "number"}, Name: "root.Number"},
		},
	}
}

func col(q, name string) criteria.Column {
	return criteria.Column{Qualifier: q, Name: name}
}

func val(v ir.IRValue) criteria.Value {
	return criteria.Value{Value: v}
}

func TestCompile_GoldenSQL(t *testing.T) {
	compiler := NewSQLCompiler()

	testCases := []struct {
		name       string
		build      func(c *criteria.Criteria)
		wantSQL    string
		wantParams []any
	}{
		{
			name:    "projection only",
			build:   func(c *criteria.Criteria) {},
			wantSQL: `SELECT root.number AS "root.Number" FROM orders AS root ORDER BY root.id COLLATE BINARY ASC`,
		},
		{
			name: "to-one joins",
			build: func(c *criteria.Criteria) {
				c.Joins = []criteria.Join{
					{Kind: criteria.JoinToOne, Alias: "t1", Table: "customers", Parent: "root", Column: "customer_id", Key: "id"},
					{Kind: criteria.JoinToOne, Alias: "t2", Table: "addresses", Parent: "t1", Column: "address_id", Key: "id"},
				}
				c.Filter = criteria.Compare{Op: criteria.Eq, Left: col("t2", "city"), Right: val(ir.IRString("Paris"))}
			},
			wantSQL: `SELECT root.number AS "root.Number" FROM orders AS root` +
				` LEFT JOIN customers AS t1 ON t1.id = root.customer_id` +
				` LEFT JOIN addresses AS t2 ON t2.id = t1.address_id` +
				` WHERE t2.city = ? ORDER BY root.id COLLATE BINARY ASC`,
			wantParams: []any{"Paris"},
		},
		{
			name: "nested junctions",
			build: func(c *criteria.Criteria) {
				c.Filter = criteria.And{Predicates: []criteria.Predicate{
					criteria.Or{Predicates: []criteria.Predicate{
						criteria.Compare{Op: criteria.Eq, Left: col("root", "status"), Right: val(ir.IRString("open"))},
						criteria.IsNull{Operand: col("root", "status")},
					}},
					criteria.Not{Predicate: criteria.Compare{Op: criteria.Ge, Left: col("root", "total"), Right: val(ir.IRDecimal("10.5"))}},
				}}
			},
			wantSQL: `SELECT root.number AS "root.Number" FROM orders AS root` +
				` WHERE (root.status = ? OR root.status IS NULL) AND NOT (root.total >= ?)` +
				` ORDER BY root.id COLLATE BINARY ASC`,
			wantParams: []any{"open", "10.5"},
		},
		{
			name: "exists with scoped join",
			build: func(c *criteria.Criteria) {
				c.Root, c.Table = "Customer", "customers"
				c.Joins = []criteria.Join{
					{Kind: criteria.JoinCollection, Alias: "t1", Table: "orders", Parent: "root", Column: "customer_id", Key: "id"},
					{Kind: criteria.JoinToOne, Alias: "t2", Table: "addresses", Parent: "t1", Column: "ship_id", Key: "id", Scope: "t1"},
				}
				c.Projections = nil
				c.Filter = criteria.Exists{Alias: "t1", Filter: criteria.Compare{
					Op: criteria.Eq, Left: col("t2", "city"), Right: val(ir.IRString("Lyon")),
				}}
			},
			wantSQL: `SELECT root.* FROM customers AS root WHERE EXISTS (SELECT 1 FROM orders AS t1` +
				` LEFT JOIN addresses AS t2 ON t2.id = t1.ship_id` +
				` WHERE t1.customer_id = root.id AND (t2.city = ?)) ORDER BY root.id COLLATE BINARY ASC`,
			wantParams: []any{"Lyon"},
		},
		{
			name: "all counts unknown as violation",
			build: func(c *criteria.Criteria) {
				c.Root, c.Table = "Customer", "customers"
				c.Joins = []criteria.Join{
					{Kind: criteria.JoinCollection, Alias: "t1", Table: "orders", Parent: "root", Column: "customer_id", Key: "id"},
				}
				c.Projections = nil
				c.Filter = criteria.Not{Predicate: criteria.Exists{Alias: "t1", Filter: criteria.NotTrue{
					Predicate: criteria.Compare{Op: criteria.Eq, Left: col("t1", "status"), Right: val(ir.IRString("closed"))},
				}}}
			},
			wantSQL: `SELECT root.* FROM customers AS root WHERE NOT (EXISTS (SELECT 1 FROM orders AS t1` +
				` WHERE t1.customer_id = root.id AND (NOT COALESCE((t1.status = ?), 0))))` +
				` ORDER BY root.id COLLATE BINARY ASC`,
			wantParams: []any{"closed"},
		},
		{
			name: "order by with params",
			build: func(c *criteria.Criteria) {
				c.Alias = ""
				c.Projections = nil
				c.OrderBy = []criteria.Order{
					{Operand: criteria.Arith{Op: criteria.Mul, Left: col("orders", "total"), Right: val(ir.IRInt(2))}, Descending: true},
				}
			},
			wantSQL:    `SELECT orders.* FROM orders ORDER BY (orders.total * ?) DESC, orders.id COLLATE BINARY ASC`,
			wantParams: []any{int64(2)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := orders()
			tc.build(c)
			sql, params, err := compiler.Compile(c)
			require.NoError(t, err)

			assert.Equal(t, tc.wantSQL, sql, "SQL mismatch")
			assert.Equal(t, tc.wantParams, params, "Parameters mismatch")
		})
	}
}

func TestCompile_NoStringInterpolation(t *testing.T) {
	c := orders()
	c.Filter = criteria.Compare{Op: criteria.Eq, Left: col("root", "number"), Right: val(ir.IRString("'; DROP TABLE orders; --"))}

	sql, params, err := NewSQLCompiler().Compile(c)
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP")
	assert.Equal(t, []any{"'; DROP TABLE orders; --"}, params)
}

func TestCompile_Like(t *testing.T) {
	tests := []struct {
		kind    criteria.LikeKind
		pattern string
		want    string
	}{
		{criteria.LikePrefix, "A_1", `A\_1%`},
		{criteria.LikeSuffix, "50%", `%50\%`},
		{criteria.LikeContains, `x\y`, `%x\\y%`},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			c := orders()
			c.Filter = criteria.Like{Kind: tt.kind, Operand: col("root", "number"), Pattern: val(ir.IRString(tt.pattern))}
			sql, params, err := NewSQLCompiler().Compile(c)
			require.NoError(t, err)
			assert.Contains(t, sql, `root.number LIKE ? ESCAPE '\'`)
			assert.Equal(t, []any{tt.want}, params)
		})
	}

	c := orders()
	c.Filter = criteria.Like{Kind: criteria.LikePrefix, Operand: col("root", "number"), Pattern: col("root", "status")}
	sql, _, err := NewSQLCompiler().Compile(c)
	require.NoError(t, err)
	assert.Contains(t, sql, "root.number LIKE (root.status || '%')")

	c.Filter = criteria.Like{Kind: criteria.LikePrefix, Operand: col("root", "number"), Pattern: val(ir.IRInt(1))}
	_, _, err = NewSQLCompiler().Compile(c)
	assert.Error(t, err)
}

func TestCompile_Functions(t *testing.T) {
	number := col("root", "number")
	total := col("root", "total")
	tests := []struct {
		fn     criteria.Func
		want   string
		params int
	}{
		{criteria.Func{Name: "tolower", Args: []criteria.Operand{number}}, "LOWER(root.number)", 0},
		{criteria.Func{Name: "year", Args: []criteria.Operand{col("root", "placed_at")}}, "CAST(strftime('%Y', root.placed_at) AS INTEGER)", 0},
		{criteria.Func{Name: "substring", Args: []criteria.Operand{number, val(ir.IRInt(1))}}, "SUBSTR(root.number, ? + 1)", 1},
		{criteria.Func{Name: "substring", Args: []criteria.Operand{number, val(ir.IRInt(1)), val(ir.IRInt(2))}}, "SUBSTR(root.number, ? + 1, ?)", 2},
		{criteria.Func{Name: "indexof", Args: []criteria.Operand{number, val(ir.IRString("-"))}}, "(INSTR(root.number, ?) - 1)", 1},
		{criteria.Func{Name: "concat", Args: []criteria.Operand{number, val(ir.IRString("x"))}}, "(root.number || ?)", 1},
		{criteria.Func{Name: "floor", Args: []criteria.Operand{criteria.Arith{Op: criteria.Div, Left: total, Right: val(ir.IRInt(3))}}},
			"(CAST((root.total / ?) AS INTEGER) - ((root.total / ?) < CAST((root.total / ?) AS INTEGER)))", 3},
	}
	for _, tt := range tests {
		t.Run(tt.fn.Name, func(t *testing.T) {
			sql, params, err := NewSQLCompiler().compileOperand(tt.fn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sql)
			assert.Len(t, params, tt.params)
		})
	}

	_, _, err := NewSQLCompiler().compileOperand(criteria.Func{Name: "frob", Args: []criteria.Operand{number}})
	assert.ErrorContains(t, err, "unsupported function")
	_, _, err = NewSQLCompiler().compileOperand(criteria.Func{Name: "year"})
	assert.Error(t, err)
}

func TestCompile_Errors(t *testing.T) {
	_, _, err := NewSQLCompiler().Compile(nil)
	assert.Error(t, err)

	c := orders()
	c.Filter = criteria.Exists{Alias: "t7"}
	_, _, err = NewSQLCompiler().Compile(c)
	assert.ErrorContains(t, err, "not a collection alias")

	c = orders()
	c.Filter = criteria.Compare{Op: criteria.Eq, Left: col("root", "x"), Right: val(ir.IRArray{})}
	_, _, err = NewSQLCompiler().Compile(c)
	assert.ErrorContains(t, err, "convert value")
}
