package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatacriteria/internal/store"
)

// recordQueries compiles each query into a fresh compile log.
func recordQueries(t *testing.T, args []string, queries ...string) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "compile.db")
	for _, q := range queries {
		cmdArgs := append([]string{"compile", "--db", db}, args...)
		cmdArgs = append(cmdArgs, shopSchema, queryFile(q))
		_, _ = execute(t, cmdArgs...)
	}
	return db
}

func TestHistoryCommand_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "compile.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No compilations recorded.")
}

func TestHistoryCommand_JSON(t *testing.T) {
	db := recordQueries(t, nil, "order_city", "typo", "order_city")

	out, err := execute(t, "--format", "json", "history", "--db", db)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	entries := resp.Data.([]any)
	require.Len(t, entries, 3)

	first := entries[0].(map[string]any)
	assert.Equal(t, float64(1), first["seq"])
	assert.Equal(t, "Order", first["root"])
	assert.Equal(t, float64(2), first["aliases"])
	assert.Contains(t, first["sql"], "LEFT JOIN customers AS t1")

	second := entries[1].(map[string]any)
	assert.Equal(t, "UNRESOLVABLE_NAME", second["error_code"])

	third := entries[2].(map[string]any)
	assert.Equal(t, first["query_hash"], third["query_hash"])
	assert.NotEqual(t, first["id"], third["id"])
}

func TestHistoryCommand_Filters(t *testing.T) {
	db := recordQueries(t, nil, "order_city", "typo", "order_city")

	out, err := execute(t, "--format", "json", "history", "--db", db, "--failed")
	require.NoError(t, err)
	assert.Len(t, decodeResponse(t, out).Data, 1)

	out, err = execute(t, "--format", "json", "history", "--db", db, "--limit", "2")
	require.NoError(t, err)
	entries := decodeResponse(t, out).Data.([]any)
	require.Len(t, entries, 2)
	assert.Equal(t, float64(2), entries[0].(map[string]any)["seq"])
}

func TestHistoryCommand_Verbose(t *testing.T) {
	db := recordQueries(t, nil, "order_city")

	out, err := execute(t, "-v", "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "  SELECT root.number")
}

func TestHistoryCommand_MissingDB(t *testing.T) {
	out, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "database not found")
}

func TestHistoryCommand_RequiresDB(t *testing.T) {
	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}
