package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/odatacriteria/internal/alias"
	"github.com/roach88/odatacriteria/internal/ir"
	"github.com/roach88/odatacriteria/internal/testutil"
)

// createTestStore creates a new store in a temp dir with sequential ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequentialIDs("c")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCompilation creates a successful compilation with one alias.
func createTestCompilation(queryHash string) Compilation {
	return Compilation{
		QueryHash:  queryHash,
		SchemaHash: "schema-1",
		RootType:   "Order",
		Source:     "root: Order\n",
		Query:      ir.IRObject{"root": ir.IRString("Order")},
		SQL:        "SELECT root.* FROM orders AS root LEFT JOIN customers AS t1 ON t1.id = root.customer_id WHERE t1.name = ?",
		Params:     ir.IRArray{ir.IRString("Ada")},
		Aliases: []alias.Alias{
			{Name: "t1", Path: "root.Customer", Parent: "root", Relative: "Customer", Type: "Customer"},
		},
	}
}
