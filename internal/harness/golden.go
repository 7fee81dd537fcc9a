package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/odatacriteria/internal/ir"
)

// Snapshot captures what a scenario compiled to. All fields use
// canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName  string
	CompilationID string
	Result        *Result
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	aliases := make([]any, len(s.Result.Aliases))
	for i, a := range s.Result.Aliases {
		aliases[i] = map[string]any{
			"name":       a.Name,
			"path":       a.Path,
			"type":       string(a.Type),
			"collection": a.Collection,
		}
	}

	out := map[string]any{
		"scenario":       s.ScenarioName,
		"compilation_id": s.CompilationID,
		"aliases":        aliases,
	}
	if s.Result.ErrorCode != "" {
		out["error_code"] = s.Result.ErrorCode
		return out
	}
	out["sql"] = s.Result.SQL
	params := make([]any, len(s.Result.Params))
	copy(params, s.Result.Params)
	out["params"] = params
	if s.Result.Rows != nil {
		rows := make([]any, len(s.Result.Rows))
		for i, r := range s.Result.Rows {
			rows[i] = r
		}
		out["rows"] = rows
	}
	return out
}

// MarshalSnapshot renders the snapshot of a result as canonical JSON.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snap := Snapshot{ScenarioName: scenarioName, CompilationID: result.CompilationID, Result: result}
	return ir.MarshalCanonical(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
