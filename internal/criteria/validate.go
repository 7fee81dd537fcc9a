package criteria

import (
	"fmt"

	"github.com/roach88/odatacriteria/internal/ir"
)

// ValidationResult contains the portability analysis of a Criteria.
//
// The portable fragment is the subset every supported backend renders
// identically. Criteria outside it still compile for SQLite; warnings tell
// the caller which parts may behave differently elsewhere.
type ValidationResult struct {
	IsPortable bool
	Warnings   []string
}

// portableFuncs render the same on every backend.
var portableFuncs = map[string]bool{
	"tolower":   true,
	"toupper":   true,
	"trim":      true,
	"length":    true,
	"concat":    true,
	"substring": true,
}

// Validate checks c against the portable fragment:
//  1. Explicit projections (no SELECT *)
//  2. Only portable scalar functions
//  3. Like patterns are literals
//  4. No comparisons against null values (use IsNull)
//  5. No modulo arithmetic
//
// Validate is a pure function.
func Validate(c *Criteria) ValidationResult {
	v := &validator{warnings: []string{}}
	if c == nil {
		v.addWarning("nil criteria")
	} else {
		if len(c.Projections) == 0 {
			v.addWarning("Empty projections (SELECT *) - portable fragment requires explicit columns")
		}
		v.predicate(c.Filter)
		for _, o := range c.OrderBy {
			v.operand(o.Operand)
		}
	}
	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) predicate(p Predicate) {
	switch n := p.(type) {
	case nil:
	case Compare:
		for _, side := range []Operand{n.Left, n.Right} {
			if val, ok := side.(Value); ok {
				if _, null := val.Value.(ir.IRNull); null {
					v.addWarning("Comparison %s against NULL - use IsNull", n.Op)
				}
			}
		}
		v.operand(n.Left)
		v.operand(n.Right)
	case IsNull:
		v.operand(n.Operand)
	case And:
		for _, q := range n.Predicates {
			v.predicate(q)
		}
	case Or:
		for _, q := range n.Predicates {
			v.predicate(q)
		}
	case Not:
		v.predicate(n.Predicate)
	case NotTrue:
		v.predicate(n.Predicate)
	case Exists:
		v.predicate(n.Filter)
	case Like:
		if _, ok := n.Pattern.(Value); !ok {
			v.addWarning("Non-literal %s pattern - escaping differs between backends", n.Kind)
		}
		v.operand(n.Operand)
		v.operand(n.Pattern)
	case Truth:
		v.operand(n.Operand)
	default:
		v.addWarning("Unknown predicate type: %T - portability cannot be verified", p)
	}
}

func (v *validator) operand(o Operand) {
	switch n := o.(type) {
	case Column, Value:
	case Arith:
		if n.Op == Mod {
			v.addWarning("Modulo arithmetic - semantics for negative operands differ between backends")
		}
		v.operand(n.Left)
		v.operand(n.Right)
	case Negate:
		v.operand(n.Operand)
	case Func:
		if !portableFuncs[n.Name] {
			v.addWarning("Function %s is outside the portable fragment", n.Name)
		}
		for _, a := range n.Args {
			v.operand(a)
		}
	default:
		v.addWarning("Unknown operand type: %T - portability cannot be verified", o)
	}
}
