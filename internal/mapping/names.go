package mapping

import "golang.org/x/text/cases"

// NamesEqual compares two member names. When caseSensitive is false the
// comparison uses full Unicode case folding.
//
// A cases.Caser is stateful, so a fresh one is created per call.
func NamesEqual(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	if a == b {
		return true
	}
	return cases.Fold().String(a) == cases.Fold().String(b)
}
