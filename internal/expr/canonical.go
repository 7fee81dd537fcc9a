package expr

import (
	"github.com/roach88/odatacriteria/internal/ir"
)

// ToIR renders e as an IRObject for canonical hashing and JSON output. A
// nil expression renders as IRNull.
func ToIR(e Expression) ir.IRValue {
	switch n := e.(type) {
	case nil:
		return ir.IRNull{}
	case *Member:
		return ir.IRObject{"member": ir.IRString(n.Path())}
	case *ResolvedMember:
		return ir.IRObject{
			"resolved": ir.IRString(n.Path()),
			"type":     ir.IRString(n.Type),
		}
	case *Literal:
		return ir.IRObject{"literal": n.Value}
	case *Binary:
		return ir.IRObject{
			"op":    ir.IRString(n.Op),
			"left":  ToIR(n.Left),
			"right": ToIR(n.Right),
		}
	case *Unary:
		return ir.IRObject{
			"op":      ir.IRString(n.Op),
			"operand": ToIR(n.Operand),
		}
	case *Method:
		args := make(ir.IRArray, 0, len(n.Args))
		for _, a := range n.Args {
			args = append(args, ToIR(a))
		}
		return ir.IRObject{
			"method": ir.IRString(n.Method.String()),
			"args":   args,
		}
	case *Lambda:
		obj := ir.IRObject{
			"param": ir.IRString(n.Parameter),
			"body":  ToIR(n.Body),
		}
		if n.Alias != "" {
			obj["alias"] = ir.IRString(n.Alias)
			obj["element"] = ir.IRString(n.Element)
		}
		return obj
	default:
		return ir.IRNull{}
	}
}

// ToIR renders the query for hashing.
func (q *Query) ToIR() ir.IRObject {
	sel := make(ir.IRArray, 0, len(q.Select))
	for _, s := range q.Select {
		sel = append(sel, ToIR(s))
	}
	order := make(ir.IRArray, 0, len(q.OrderBy))
	for _, o := range q.OrderBy {
		order = append(order, ir.IRObject{
			"expr": ToIR(o.Expr),
			"desc": ir.IRBool(o.Descending),
		})
	}
	return ir.IRObject{
		"root":    ir.IRString(q.Root),
		"filter":  ToIR(q.Filter),
		"select":  sel,
		"orderby": order,
	}
}
