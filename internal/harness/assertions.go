package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string // Compiled SQL for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "\nSQL:\n  %s\n", e.SQL)
	}

	return buf.String()
}

// checkExpect compares the outcome against the scenario's expect clause.
func checkExpect(s *Scenario, r *Result) {
	want := s.Expect
	if want.Error != "" {
		if r.ErrorCode != want.Error {
			r.AddError((&AssertionError{
				Type:     "error",
				Expected: want.Error,
				Actual:   describeOutcome(r),
			}).Error())
		}
		return
	}
	if r.ErrorCode != "" {
		r.AddError((&AssertionError{
			Type:     "error",
			Expected: "successful compilation",
			Actual:   describeOutcome(r),
		}).Error())
		return
	}

	if want.Aliases != nil {
		got := aliasMap(r)
		if !equalMaps(got, want.Aliases) {
			r.AddError((&AssertionError{
				Type:     "aliases",
				Expected: formatMap(want.Aliases),
				Actual:   formatMap(got),
				SQL:      r.SQL,
			}).Error())
		}
	}

	if want.SQL != "" && want.SQL != r.SQL {
		r.AddError((&AssertionError{
			Type:     "sql",
			Expected: want.SQL,
			Actual:   r.SQL,
		}).Error())
	}

	if want.Params != nil {
		wantJSON, werr := canonicalParams(want.Params)
		gotJSON, gerr := canonicalParams(r.Params)
		if werr != nil || gerr != nil || wantJSON != gotJSON {
			r.AddError((&AssertionError{
				Type:     "params",
				Expected: wantJSON,
				Actual:   gotJSON,
				SQL:      r.SQL,
			}).Error())
		}
	}
}

// evaluateAssertion checks one assertion against a successful result.
func evaluateAssertion(a Assertion, r *Result) error {
	switch a.Type {
	case AssertAlias:
		got, ok := aliasMap(r)[a.Path]
		if !ok || got != a.Name {
			if !ok {
				got = "(no alias)"
			}
			return &AssertionError{Type: a.Type, Expected: a.Path + " = " + a.Name, Actual: a.Path + " = " + got}
		}
	case AssertAliasCount:
		if len(r.Aliases) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d aliases", a.Count),
				Actual:   fmt.Sprintf("%d aliases: %s", len(r.Aliases), formatMap(aliasMap(r))),
			}
		}
	case AssertSQLContains:
		if !strings.Contains(r.SQL, a.Text) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("SQL containing %q", a.Text), Actual: "not found", SQL: r.SQL}
		}
	case AssertSQLNotContains:
		if strings.Contains(r.SQL, a.Text) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("SQL without %q", a.Text), Actual: "found", SQL: r.SQL}
		}
	case AssertRows:
		if !slices.Equal(r.Rows, a.Values) {
			return &AssertionError{
				Type:     a.Type,
				Expected: "[" + strings.Join(a.Values, ", ") + "]",
				Actual:   "[" + strings.Join(r.Rows, ", ") + "]",
				SQL:      r.SQL,
			}
		}
	case AssertPortable:
		if !r.Portable {
			return &AssertionError{Type: a.Type, Expected: "portable criteria", Actual: strings.Join(r.Warnings, "; ")}
		}
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
	return nil
}

func describeOutcome(r *Result) string {
	if r.ErrorCode == "" {
		return "success: " + r.SQL
	}
	return r.ErrorCode + ": " + r.ErrorMessage
}

func aliasMap(r *Result) map[string]string {
	out := make(map[string]string, len(r.Aliases))
	for _, a := range r.Aliases {
		out[a.Path] = a.Name
	}
	return out
}

func equalMaps(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// formatMap renders a map with sorted keys for stable messages.
func formatMap(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + m[k]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
