// Package schema loads mapping specifications written in CUE and turns
// them into a mapping catalog plus the mapped class table.
//
// A specification has two top-level structs:
//
//	types: Customer: {
//		base: "Entity"
//		members: {
//			Name:   "string"
//			Orders: {type: "[]Order", inverse: "customer_id"}
//		}
//	}
//	mapped: Customer: {table: "customers"}
//
// A member is either a bare type name or a struct with type, column,
// inverse and field. Types default to kind "entity".
package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/odatacriteria/internal/mapping"
)

// CompileType parses one entry of the types struct. The type id is the
// entry's label.
func CompileType(v cue.Value) (*mapping.Type, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	t := &mapping.Type{ID: mapping.TypeID(label(v)), Kind: mapping.KindEntity}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if kindVal.Exists() {
		s, err := kindVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		switch s {
		case "entity":
		case "component":
			t.Kind = mapping.KindComponent
		default:
			return nil, &CompileError{
				Field:   "kind",
				Message: fmt.Sprintf("kind must be entity or component, got %q", s),
				Pos:     kindVal.Pos(),
			}
		}
	}

	baseVal := v.LookupPath(cue.ParsePath("base"))
	if baseVal.Exists() {
		s, err := baseVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		t.Base = mapping.TypeID(s)
	}

	membersVal := v.LookupPath(cue.ParsePath("members"))
	if !membersVal.Exists() {
		return t, nil
	}
	iter, err := membersVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		m, err := compileMember(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		t.Members = append(t.Members, m)
	}
	return t, nil
}

func compileMember(name string, v cue.Value) (mapping.Member, error) {
	m := mapping.Member{Name: name}

	// Shorthand: Name: "string"
	if s, err := v.String(); err == nil {
		m.Type = mapping.TypeID(s)
		return m, nil
	}

	if v.IncompleteKind() != cue.StructKind {
		return m, &CompileError{
			Field:   "members." + name,
			Message: "member must be a type name or a struct",
			Pos:     v.Pos(),
		}
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return m, &CompileError{
			Field:   "members." + name + ".type",
			Message: "member type is required",
			Pos:     v.Pos(),
		}
	}
	typ, err := typeVal.String()
	if err != nil {
		return m, formatCUEError(err)
	}
	m.Type = mapping.TypeID(typ)

	if m.Column, err = optionalString(v, "column"); err != nil {
		return m, err
	}
	if m.Inverse, err = optionalString(v, "inverse"); err != nil {
		return m, err
	}

	fieldVal := v.LookupPath(cue.ParsePath("field"))
	if fieldVal.Exists() {
		isField, err := fieldVal.Bool()
		if err != nil {
			return m, formatCUEError(err)
		}
		if isField {
			m.Kind = mapping.MemberField
		}
	}
	return m, nil
}

// CompileMapped parses one entry of the mapped struct. The mapped type is
// the entry's label.
func CompileMapped(v cue.Value) (*mapping.MappedClass, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	mc := &mapping.MappedClass{Type: mapping.TypeID(label(v))}

	tableVal := v.LookupPath(cue.ParsePath("table"))
	if !tableVal.Exists() {
		return nil, &CompileError{
			Field:   "table",
			Message: "table is required",
			Pos:     v.Pos(),
		}
	}
	table, err := tableVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	mc.Table = table

	if mc.Key, err = optionalString(v, "key"); err != nil {
		return nil, err
	}

	dynVal := v.LookupPath(cue.ParsePath("dynamic"))
	if !dynVal.Exists() {
		return mc, nil
	}
	components, err := dynVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for components.Next() {
		component := components.Label()
		props, err := components.Value().Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for props.Next() {
			d := mapping.DynamicProperty{Component: component, Name: props.Label()}
			pv := props.Value()
			if s, err := pv.String(); err == nil {
				d.Type = mapping.TypeID(s)
			} else {
				typ, err := pv.LookupPath(cue.ParsePath("type")).String()
				if err != nil {
					return nil, &CompileError{
						Field:   "dynamic." + component + "." + d.Name,
						Message: "dynamic member needs a type",
						Pos:     pv.Pos(),
					}
				}
				d.Type = mapping.TypeID(typ)
				if d.Column, err = optionalString(pv, "column"); err != nil {
					return nil, err
				}
			}
			mc.Dynamic = append(mc.Dynamic, d)
		}
	}
	return mc, nil
}

func label(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].String()
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
