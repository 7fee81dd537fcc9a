package expr

import (
	"fmt"
	"strings"
)

// MethodType enumerates the supported query functions.
type MethodType int

const (
	IsOf MethodType = iota
	Cast
	EndsWith
	IndexOf
	Replace
	StartsWith
	ToLower
	ToUpper
	Trim
	SubString
	SubStringOf
	Concat
	Length
	Year
	Month
	Day
	Hour
	Minute
	Second
	Round
	Floor
	Ceiling
	Any
	All
	Contains
)

type methodInfo struct {
	name    string
	minArgs int
	maxArgs int
}

var methods = [...]methodInfo{
	IsOf:        {"isof", 1, 2},
	Cast:        {"cast", 1, 2},
	EndsWith:    {"endswith", 2, 2},
	IndexOf:     {"indexof", 2, 2},
	Replace:     {"replace", 3, 3},
	StartsWith:  {"startswith", 2, 2},
	ToLower:     {"tolower", 1, 1},
	ToUpper:     {"toupper", 1, 1},
	Trim:        {"trim", 1, 1},
	SubString:   {"substring", 2, 3},
	SubStringOf: {"substringof", 2, 2},
	Concat:      {"concat", 2, 2},
	Length:      {"length", 1, 1},
	Year:        {"year", 1, 1},
	Month:       {"month", 1, 1},
	Day:         {"day", 1, 1},
	Hour:        {"hour", 1, 1},
	Minute:      {"minute", 1, 1},
	Second:      {"second", 1, 1},
	Round:       {"round", 1, 1},
	Floor:       {"floor", 1, 1},
	Ceiling:     {"ceiling", 1, 1},
	Any:         {"any", 1, 2},
	All:         {"all", 2, 2},
	Contains:    {"contains", 2, 2},
}

func (m MethodType) valid() bool {
	return m >= 0 && int(m) < len(methods)
}

// String returns the lower-case OData function name.
func (m MethodType) String() string {
	if !m.valid() {
		return fmt.Sprintf("MethodType(%d)", int(m))
	}
	return methods[m].name
}

// Arity returns the accepted argument count range.
func (m MethodType) Arity() (min, max int) {
	if !m.valid() {
		return 0, 0
	}
	return methods[m].minArgs, methods[m].maxArgs
}

// IsLambda reports whether m takes a collection and a sub-predicate.
func (m MethodType) IsLambda() bool {
	return m == Any || m == All
}

// CheckArity returns an error when n arguments do not fit m.
func (m MethodType) CheckArity(n int) error {
	lo, hi := m.Arity()
	if n < lo || n > hi {
		if lo == hi {
			return fmt.Errorf("%s expects %d argument(s), got %d", m, lo, n)
		}
		return fmt.Errorf("%s expects %d to %d arguments, got %d", m, lo, hi, n)
	}
	return nil
}

// ParseMethodType looks a function up by name, ignoring case.
func ParseMethodType(name string) (MethodType, bool) {
	lower := strings.ToLower(name)
	for i, info := range methods {
		if info.name == lower {
			return MethodType(i), true
		}
	}
	return 0, false
}
