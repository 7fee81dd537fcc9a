package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	shopSchema   = filepath.Join("..", "harness", "testdata", "schema", "shop")
	brokenSchema = filepath.Join("..", "schema", "testdata", "broken")
	scenarioDir  = filepath.Join("..", "harness", "testdata", "scenarios")
)

func queryFile(name string) string {
	return filepath.Join("testdata", "queries", name+".yaml")
}

// execute runs the root command with args and returns stdout and the
// command error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}
