package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatacriteria/internal/alias"
)

func sampleResult() *Result {
	r := NewResult()
	r.Aliases = []alias.Alias{
		{Name: "t1", Path: "root.Customer"},
		{Name: "t2", Path: "t1.Address"},
	}
	r.SQL = "SELECT root.* FROM orders AS root LEFT JOIN customers AS t1 ON t1.id = root.customer_id"
	r.Rows = []string{"A-1"}
	r.Portable = true
	return r
}

func TestEvaluateAssertion(t *testing.T) {
	tests := []struct {
		name string
		a    Assertion
		pass bool
	}{
		{"alias match", Assertion{Type: AssertAlias, Path: "t1.Address", Name: "t2"}, true},
		{"alias mismatch", Assertion{Type: AssertAlias, Path: "t1.Address", Name: "t3"}, false},
		{"alias missing", Assertion{Type: AssertAlias, Path: "root.Orders", Name: "t1"}, false},
		{"alias count", Assertion{Type: AssertAliasCount, Count: 2}, true},
		{"alias count wrong", Assertion{Type: AssertAliasCount, Count: 0}, false},
		{"sql contains", Assertion{Type: AssertSQLContains, Text: "LEFT JOIN customers"}, true},
		{"sql contains missing", Assertion{Type: AssertSQLContains, Text: "EXISTS"}, false},
		{"sql not contains", Assertion{Type: AssertSQLNotContains, Text: "EXISTS"}, true},
		{"sql not contains found", Assertion{Type: AssertSQLNotContains, Text: "LEFT JOIN"}, false},
		{"rows", Assertion{Type: AssertRows, Values: []string{"A-1"}}, true},
		{"rows differ", Assertion{Type: AssertRows, Values: []string{"A-1", "A-2"}}, false},
		{"portable", Assertion{Type: AssertPortable}, true},
		{"unknown", Assertion{Type: "vibes"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := evaluateAssertion(tt.a, sampleResult())
			if tt.pass {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestEvaluateAssertion_NotPortable(t *testing.T) {
	r := sampleResult()
	r.Portable = false
	r.Warnings = []string{"Modulo arithmetic"}

	err := evaluateAssertion(Assertion{Type: AssertPortable}, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Modulo arithmetic")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: "sql", Expected: "a", Actual: "b", SQL: "SELECT 1"}
	assert.Equal(t, "Assertion failed: sql\n  Expected: a\n  Actual: b\n\nSQL:\n  SELECT 1\n", err.Error())
}

func TestCheckExpect_Params(t *testing.T) {
	s := &Scenario{Expect: Expect{Params: []any{"Paris", 3}}}
	r := sampleResult()
	r.Params = []any{"Paris", int64(3)}

	checkExpect(s, r)
	assert.True(t, r.Pass, "errors: %v", r.Errors)
}

func TestFormatMap_Sorted(t *testing.T) {
	assert.Equal(t, "{a: 1, b: 2}", formatMap(map[string]string{"b": "2", "a": "1"}))
}
