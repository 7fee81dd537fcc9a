package schema

import (
	"fmt"

	"github.com/roach88/odatacriteria/internal/mapping"
)

// Validation error codes (E200-E299)
const (
	ErrUnknownBase        = "E201" // base type not declared
	ErrUnknownMemberType  = "E202" // member type not declared
	ErrMissingInverse     = "E203" // collection member without inverse column
	ErrUnknownMappedType  = "E204" // mapped type not declared
	ErrMappedComponent    = "E205" // only entities can be mapped
	ErrDuplicateTable     = "E206" // two mapped types share a table
	ErrBaseCycle          = "E207" // base chain loops
	ErrDynamicComponent   = "E208" // dynamic members on a non-dynamic member
	ErrDuplicateDynamic   = "E209" // dynamic member declared twice
	ErrInvalidDynamicType = "E210" // dynamic member type is not a scalar
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks cross-references in a loaded schema. Returns all errors
// found (does not fail-fast).
func Validate(s *Schema) []ValidationError {
	var errs []ValidationError

	types := make(map[mapping.TypeID]*mapping.Type, len(s.Types))
	for i := range s.Types {
		types[s.Types[i].ID] = &s.Types[i]
	}
	known := func(id mapping.TypeID) bool {
		if elem, ok := mapping.ElementOf(id); ok {
			id = elem
		}
		_, ok := types[id]
		return ok || mapping.IsBuiltin(id)
	}

	for _, t := range s.Types {
		if t.Base != mapping.NoType {
			if _, ok := types[t.Base]; !ok {
				errs = append(errs, ValidationError{
					Field:   string(t.ID) + ".base",
					Message: fmt.Sprintf("unknown base type %q", t.Base),
					Code:    ErrUnknownBase,
				})
			}
		}
		if hasBaseCycle(t.ID, types) {
			errs = append(errs, ValidationError{
				Field:   string(t.ID) + ".base",
				Message: "base type chain loops back to " + string(t.ID),
				Code:    ErrBaseCycle,
			})
		}

		for _, m := range t.Members {
			field := string(t.ID) + "." + m.Name
			if !known(m.Type) {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("unknown type %q", m.Type),
					Code:    ErrUnknownMemberType,
				})
				continue
			}
			if _, ok := mapping.ElementOf(m.Type); ok && m.Inverse == "" {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "collection members need an inverse column",
					Code:    ErrMissingInverse,
				})
			}
		}
	}

	tables := make(map[string]mapping.TypeID)
	for _, mc := range s.Classes {
		t, ok := types[mc.Type]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   "mapped." + string(mc.Type),
				Message: "mapped type is not declared",
				Code:    ErrUnknownMappedType,
			})
			continue
		}
		if t.Kind != mapping.KindEntity {
			errs = append(errs, ValidationError{
				Field:   "mapped." + string(mc.Type),
				Message: "only entity types can be mapped",
				Code:    ErrMappedComponent,
			})
		}
		if prev, dup := tables[mc.Table]; dup {
			errs = append(errs, ValidationError{
				Field:   "mapped." + string(mc.Type) + ".table",
				Message: fmt.Sprintf("table %q is already mapped by %s", mc.Table, prev),
				Code:    ErrDuplicateTable,
			})
		} else {
			tables[mc.Table] = mc.Type
		}

		errs = append(errs, validateDynamic(mc, types)...)
	}

	return errs
}

func validateDynamic(mc mapping.MappedClass, types map[mapping.TypeID]*mapping.Type) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for _, d := range mc.Dynamic {
		field := "mapped." + string(mc.Type) + ".dynamic." + d.Path()
		if memberType(mc.Type, d.Component, types) != mapping.TypeDynamic {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: d.Component + " is not a dynamic member of " + string(mc.Type),
				Code:    ErrDynamicComponent,
			})
		}
		if seen[d.Path()] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "declared twice",
				Code:    ErrDuplicateDynamic,
			})
		}
		seen[d.Path()] = true
		if !mapping.IsBuiltin(d.Type) || d.Type == mapping.TypeDynamic {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("dynamic members must be scalar, got %q", d.Type),
				Code:    ErrInvalidDynamicType,
			})
		}
	}
	return errs
}

// memberType finds name on id or its bases, most-derived first.
func memberType(id mapping.TypeID, name string, types map[mapping.TypeID]*mapping.Type) mapping.TypeID {
	seen := make(map[mapping.TypeID]bool)
	for id != mapping.NoType && !seen[id] {
		seen[id] = true
		t, ok := types[id]
		if !ok {
			break
		}
		for _, m := range t.Members {
			if m.Name == name {
				return m.Type
			}
		}
		id = t.Base
	}
	return mapping.NoType
}

func hasBaseCycle(start mapping.TypeID, types map[mapping.TypeID]*mapping.Type) bool {
	seen := map[mapping.TypeID]bool{start: true}
	t, ok := types[start]
	for ok && t.Base != mapping.NoType {
		if t.Base == start {
			return true
		}
		if seen[t.Base] {
			// A loop that does not pass through start is reported on its own members.
			return false
		}
		seen[t.Base] = true
		t, ok = types[t.Base]
	}
	return false
}
