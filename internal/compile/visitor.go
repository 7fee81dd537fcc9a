package compile

import (
	"fmt"
	"strings"

	"github.com/roach88/odatacriteria/internal/expr"
	"github.com/roach88/odatacriteria/internal/mapping"
	"github.com/roach88/odatacriteria/internal/resolve"
	"github.com/roach88/odatacriteria/internal/scope"
)

// ResolveMember rewrites an unresolved member access into a resolved,
// alias-qualified reference.
//
// The first segment picks the starting owner. Inside a lambda it must name
// a bound parameter, whose alias and type take over. Outside, a leading
// $it is dropped and resolution starts at the root.
//
// Each later segment is resolved against the current owner. A failed
// lookup in a multi-segment path is retried once against the owner's
// unique mapped subtype. Whenever a non-final segment lands on a mapped
// type the resolved segments so far are replaced by a join alias (reused
// when the same path was aliased before) and resolution continues
// relative to it.
func (c *BuildContext) ResolveMember(m *expr.Member) (*expr.ResolvedMember, error) {
	if len(m.Segments) == 0 {
		return nil, invalidExpression("empty member path")
	}

	owner := c.rootType
	lastAlias := c.rootAlias
	segments := m.Segments
	first := segments[0]

	switch {
	case c.scope.InLambda():
		if first == scope.ItName {
			return nil, usageError(first, m.Path(), "$it cannot be used inside a lambda")
		}
		b, ok := c.scope.Find(first)
		if !ok {
			return nil, c.unscopedLambdaPath(m)
		}
		owner, lastAlias = b.Type, b.Alias
		segments = segments[1:]
	case first == scope.ItName:
		segments = segments[1:]
	case c.lambdaParams[first] && !c.resolves(first, owner):
		return nil, usageError(first, m.Path(), "lambda parameter used outside its sub-predicate")
	}

	if len(segments) == 0 {
		return nil, invalidExpression("%s must be followed by a member name", first)
	}

	mapped, _ := c.store.Lookup(owner)

	if len(segments) == 1 {
		name, typ, ok, err := c.resolveSegment(mapped, "", segments[0], owner)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, c.unresolvable(segments[0], owner, m.Path())
		}
		return &expr.ResolvedMember{Alias: lastAlias, Member: name, Type: typ}, nil
	}

	var buf []string
	typ := owner
	for i, seg := range segments {
		isLast := i == len(segments)-1
		bufPath := strings.Join(buf, ".")

		name, next, ok, err := c.resolveSegment(mapped, bufPath, seg, typ)
		if err != nil {
			return nil, err
		}
		if !ok {
			if !c.store.IsMapped(typ) {
				if sub, found := c.store.UniqueSubtypeForBase(typ); found {
					typ = sub
				}
			}
			name, next, ok, err = c.resolveSegment(mapped, bufPath, seg, typ)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, c.unresolvable(seg, typ, m.Path())
			}
		}

		buf = append(buf, name)
		typ = next

		if isLast {
			break
		}

		target, isMapped := c.store.MappedOrShortcut(typ)
		if !isMapped {
			if c.catalog.KindOf(typ) == mapping.KindEntity {
				// An unmapped entity base with several mapped subtypes.
				// Joining would mean guessing the table.
				return nil, &Error{
					Code:    ErrCodeUnresolvableName,
					Message: "navigation target has no unique mapped type",
					Name:    seg,
					Type:    string(typ),
					Path:    m.Path(),
				}
			}
			continue
		}

		mapped = target
		a, created := c.aliases.GetOrCreate(lastAlias, strings.Join(buf, "."), target.Type)
		if !created {
			c.logger.Debug("alias reused", "alias", a.Name, "path", a.Path)
		}
		lastAlias = a.Name
		buf = buf[:0]
	}

	return &expr.ResolvedMember{
		Alias:  lastAlias,
		Member: strings.Join(buf, "."),
		Type:   typ,
	}, nil
}

// resolveSegment resolves one segment against owner. Members of a dynamic
// component are looked up by their accumulated path on the current mapped
// class; a miss there is an error. A plain miss returns ok=false.
func (c *BuildContext) resolveSegment(
	mapped *mapping.MappedClass,
	bufPath, name string,
	owner mapping.TypeID,
) (resolved string, typ mapping.TypeID, ok bool, err error) {
	if owner == mapping.NoType {
		return name, mapping.NoType, true, nil
	}

	if c.catalog.IsDynamic(owner) {
		if mapped != nil {
			if dp, found := mapped.FindDynamicProperty(bufPath+"."+name, c.caseSensitive); found {
				return dp.Name, dp.Type, true, nil
			}
		}
		ownerName := string(owner)
		if mapped != nil {
			ownerName = string(mapped.Type)
		}
		return "", owner, false, &Error{
			Code:    ErrCodeUnresolvableDynamicMember,
			Message: "dynamic component has no such member",
			Name:    name,
			Type:    ownerName,
			Path:    bufPath,
		}
	}

	r, found := c.resolver.Resolve(name, owner, c.caseSensitive)
	if !found {
		return "", owner, false, nil
	}
	return r.Name, r.Type, true, nil
}

func (c *BuildContext) resolves(name string, owner mapping.TypeID) bool {
	_, ok := c.resolver.Resolve(name, owner, c.caseSensitive)
	return ok
}

// unscopedLambdaPath reports a path inside a lambda body that does not
// start with an active parameter, suggesting the innermost one.
func (c *BuildContext) unscopedLambdaPath(m *expr.Member) *Error {
	params := make([]string, 0, c.scope.Depth())
	for _, b := range c.scope.Bindings() {
		params = append(params, b.Parameter)
	}
	e := usageError(m.Segments[0], m.Path(), fmt.Sprintf(
		"lambda member path must start with a lambda parameter (in scope: %s)", strings.Join(params, ", ")))
	if cur, ok := c.scope.Current(); ok {
		e.Suggestion = cur.Parameter + "/" + strings.Join(m.Segments, "/")
	}
	return e
}

func (c *BuildContext) unresolvable(name string, owner mapping.TypeID, path string) *Error {
	e := &Error{
		Code:    ErrCodeUnresolvableName,
		Message: "cannot resolve name",
		Name:    name,
		Type:    string(owner),
		Path:    path,
	}
	if s, ok := resolve.Suggest(c.catalog, name, owner); ok {
		e.Suggestion = s
	}
	return e
}
