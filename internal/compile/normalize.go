package compile

import (
	"github.com/roach88/odatacriteria/internal/expr"
	"github.com/roach88/odatacriteria/internal/scope"
)

// Normalize returns a copy of e with every member access resolved. Lambda
// sub-predicates are normalized inside their own binding frame.
func (c *BuildContext) Normalize(e expr.Expression) (expr.Expression, error) {
	switch n := e.(type) {
	case nil:
		return nil, nil
	case *expr.Member:
		return c.ResolveMember(n)
	case *expr.ResolvedMember, *expr.Literal:
		return n, nil
	case *expr.Binary:
		left, err := c.Normalize(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.Normalize(n.Right)
		if err != nil {
			return nil, err
		}
		if left == nil || right == nil {
			return nil, invalidExpression("%s: missing operand", n.Op)
		}
		return &expr.Binary{Op: n.Op, Left: left, Right: right}, nil
	case *expr.Unary:
		operand, err := c.Normalize(n.Operand)
		if err != nil {
			return nil, err
		}
		if operand == nil {
			return nil, invalidExpression("%s: missing operand", n.Op)
		}
		return &expr.Unary{Op: n.Op, Operand: operand}, nil
	case *expr.Method:
		if err := n.Method.CheckArity(len(n.Args)); err != nil {
			return nil, invalidExpression("%v", err)
		}
		if n.Method.IsLambda() {
			return c.normalizeLambdaCall(n)
		}
		args := make([]expr.Expression, 0, len(n.Args))
		for _, a := range n.Args {
			if _, isLambda := a.(*expr.Lambda); isLambda {
				return nil, invalidExpression("%s does not take a lambda argument", n.Method)
			}
			na, err := c.Normalize(a)
			if err != nil {
				return nil, err
			}
			args = append(args, na)
		}
		return &expr.Method{Method: n.Method, Args: args}, nil
	case *expr.Lambda:
		return nil, invalidExpression("lambda %q outside of any/all", n.Parameter)
	default:
		return nil, invalidExpression("unsupported expression %T", e)
	}
}

// normalizeLambdaCall handles any/all: the collection member is resolved
// in the enclosing scope, its element gets an alias, and the body is
// normalized with the parameter bound to that alias.
func (c *BuildContext) normalizeLambdaCall(n *expr.Method) (expr.Expression, error) {
	member, ok := n.Args[0].(*expr.Member)
	if !ok {
		return nil, invalidExpression("%s: first argument must be a collection member", n.Method)
	}
	collection, err := c.ResolveMember(member)
	if err != nil {
		return nil, err
	}

	elem, ok := c.catalog.ElementType(collection.Type)
	if !ok {
		return nil, invalidExpression("%s: %s is not a collection", n.Method, member.Path())
	}
	target, ok := c.store.MappedOrShortcut(elem)
	if !ok {
		return nil, invalidExpression("%s: element type %s of %s is not mapped", n.Method, elem, member.Path())
	}

	a, _ := c.aliases.GetOrCreateCollection(collection.Alias, collection.Member, target.Type)
	out := &expr.Lambda{Alias: a.Name, Element: target.Type}

	if len(n.Args) == 1 {
		return &expr.Method{Method: n.Method, Args: []expr.Expression{collection, out}}, nil
	}

	lambda, ok := n.Args[1].(*expr.Lambda)
	if !ok {
		return nil, invalidExpression("%s: second argument must be a lambda", n.Method)
	}
	if lambda.Parameter == scope.ItName {
		return nil, usageError(lambda.Parameter, member.Path(), "$it cannot be used as a lambda parameter")
	}
	if _, shadowed := c.scope.Find(lambda.Parameter); shadowed {
		return nil, usageError(lambda.Parameter, member.Path(), "lambda parameter shadows an enclosing parameter")
	}
	if lambda.Body == nil {
		return nil, invalidExpression("%s: lambda %q has no body", n.Method, lambda.Parameter)
	}

	binding := scope.Binding{Parameter: lambda.Parameter, Alias: a.Name, Type: target.Type}
	err = c.scope.Within(binding, func() error {
		body, err := c.Normalize(lambda.Body)
		if err != nil {
			return err
		}
		out.Parameter = lambda.Parameter
		out.Body = body
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &expr.Method{Method: n.Method, Args: []expr.Expression{collection, out}}, nil
}

// NormalizeQuery resolves the filter, select list and order-by of q.
func (c *BuildContext) NormalizeQuery(q *expr.Query) (*expr.Query, error) {
	c.declareLambdaParameters(expr.LambdaParameters(q.Filter)...)

	out := &expr.Query{Root: c.rootType}

	filter, err := c.Normalize(q.Filter)
	if err != nil {
		return nil, err
	}
	out.Filter = filter

	for _, s := range q.Select {
		m, ok := s.(*expr.Member)
		if !ok {
			return nil, invalidExpression("select entries must be members")
		}
		r, err := c.ResolveMember(m)
		if err != nil {
			return nil, err
		}
		out.Select = append(out.Select, r)
	}

	for _, o := range q.OrderBy {
		e, err := c.Normalize(o.Expr)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return nil, invalidExpression("empty order-by term")
		}
		out.OrderBy = append(out.OrderBy, expr.OrderTerm{Expr: e, Descending: o.Descending})
	}

	return out, nil
}
