package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentTarget(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyDirJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", t.TempDir())
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(0), data["total"])
}

func TestTestCommandAllScenarios(t *testing.T) {
	entries, err := filepath.Glob(filepath.Join(scenarioDir, "*.yaml"))
	require.NoError(t, err)

	out, err := execute(t, "test", scenarioDir)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ order_city")
	assert.Contains(t, out, "✓ unresolvable")
	assert.Contains(t, out, fmt.Sprintf("Test Summary: %d passed, 0 failed, %d total", len(entries), len(entries)))
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", "--filter", "order_*", scenarioDir)
	require.NoError(t, err, out)

	resp := decodeResponse(t, out)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["total"])
	scenarios := data["scenarios"].([]any)
	assert.Equal(t, "order_city", scenarios[0].(map[string]any)["name"])
}

func TestTestCommandSingleFile(t *testing.T) {
	out, err := execute(t, "test", filepath.Join(scenarioDir, "all_vacuous.yaml"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

// writeScenario writes a scenario with an absolute schema path into
// dir/scenarios and returns the scenarios directory.
func writeScenario(t *testing.T, dir, city string) string {
	t.Helper()
	schemaDir, err := filepath.Abs(shopSchema)
	require.NoError(t, err)

	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	content := fmt.Sprintf(`name: by_city
description: Orders shipped to one city.
schema: %s
query:
  root: Order
  filter:
    eq: [{member: Customer/Address/City}, {string: %s}]
`, schemaDir, city)
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "by_city.yaml"), []byte(content), 0o644))
	return scenarios
}

func TestTestCommandUpdateGolden(t *testing.T) {
	dir := t.TempDir()
	scenarios := writeScenario(t, dir, "Paris")

	out, err := execute(t, "test", "--update", scenarios)
	require.NoError(t, err, out)

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "by_city.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"params":["Paris"]`)
	assert.Contains(t, string(golden), `"compilation_id":"by_city-0001"`)

	out, err = execute(t, "test", scenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ by_city")

	writeScenario(t, dir, "Rome")
	out, err = execute(t, "test", scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ by_city")
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\n"), 0o644))

	out, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, ErrCodeScenarioFailed, resp.Error.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["failed"])
}
