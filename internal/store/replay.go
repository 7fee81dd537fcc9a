package store

import (
	"context"
	"fmt"
	"strings"
)

// Recompiler compiles the Source of a recorded compilation again and
// returns the fresh record. A failed compile is reported through the
// record's ErrorCode, not the error return; an error aborts the replay.
type Recompiler func(ctx context.Context, recorded Compilation) (Compilation, error)

// Drift is one difference between a recorded compilation and its replay.
type Drift struct {
	ID       string `json:"id"`
	Seq      int64  `json:"seq"`
	Field    string `json:"field"`
	Recorded string `json:"recorded"`
	Current  string `json:"current"`
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Checked int     `json:"checked"`
	Skipped int     `json:"skipped"` // no source recorded
	Drifts  []Drift `json:"drifts"`
}

// Replay recompiles every matching compilation that has a source and
// reports where the output changed: SQL, parameters, error code or
// aliases. Drifts are ordered by seq, then field.
func (s *Store) Replay(ctx context.Context, opts ListOptions, recompile Recompiler) (ReplayResult, error) {
	result := ReplayResult{Drifts: []Drift{}}

	recorded, err := s.List(ctx, opts)
	if err != nil {
		return result, fmt.Errorf("replay: %w", err)
	}

	for _, rec := range recorded {
		if rec.Source == "" {
			result.Skipped++
			continue
		}
		cur, err := recompile(ctx, rec)
		if err != nil {
			return result, fmt.Errorf("replay %s: %w", rec.ID, err)
		}
		result.Checked++
		result.Drifts = append(result.Drifts, diff(rec, cur)...)
	}

	s.logger.InfoContext(ctx, "replay finished",
		"checked", result.Checked,
		"skipped", result.Skipped,
		"drifts", len(result.Drifts),
	)
	return result, nil
}

func diff(rec, cur Compilation) []Drift {
	var out []Drift
	add := func(field, a, b string) {
		if a != b {
			out = append(out, Drift{ID: rec.ID, Seq: rec.Seq, Field: field, Recorded: a, Current: b})
		}
	}

	add("error_code", rec.ErrorCode, cur.ErrorCode)
	add("sql", rec.SQL, cur.SQL)

	recParams, _ := marshalParams(rec.Params)
	curParams, _ := marshalParams(cur.Params)
	add("params", recParams, curParams)

	add("aliases", aliasSummary(rec), aliasSummary(cur))
	return out
}

func aliasSummary(c Compilation) string {
	parts := make([]string, len(c.Aliases))
	for i, a := range c.Aliases {
		parts[i] = a.Name + "=" + a.Path
	}
	return strings.Join(parts, ", ")
}
