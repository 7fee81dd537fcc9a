// Package expr defines the query expression tree the compiler works on.
//
// The parser collaborator produces unresolved trees: member accesses are
// plain segment lists (Member). Compilation rewrites every Member into a
// ResolvedMember carrying the join alias it hangs off, the persisted member
// path relative to that alias, and its value type.
//
// Expression is a sealed interface; only types in this package implement
// it, so type switches over it can be exhaustive.
package expr

import (
	"strings"

	"github.com/roach88/odatacriteria/internal/ir"
	"github.com/roach88/odatacriteria/internal/mapping"
)

// Expression is a node of a query expression tree.
type Expression interface {
	exprNode()
}

// Member is an unresolved member access such as Customer/Address/City.
// Segments are in navigation order.
type Member struct {
	Segments []string
}

func (*Member) exprNode() {}

// NewMember splits a dotted or slash-separated path into a Member.
func NewMember(path string) *Member {
	fields := strings.FieldsFunc(path, func(r rune) bool {
		return r == '.' || r == '/'
	})
	return &Member{Segments: fields}
}

// Path returns the segments joined by dots.
func (m *Member) Path() string {
	return strings.Join(m.Segments, ".")
}

// ResolvedMember is a member access after name resolution.
type ResolvedMember struct {
	// Alias qualifies Member; empty when the query root has no alias.
	Alias string

	// Member is the resolved, persisted member path relative to Alias,
	// e.g. "City", "Home.Street" or "Attributes.Color".
	Member string

	// Type is the value type of the last segment.
	Type mapping.TypeID
}

func (*ResolvedMember) exprNode() {}

// Path returns the alias-qualified path, e.g. "t2.City".
func (r *ResolvedMember) Path() string {
	if r.Alias == "" {
		return r.Member
	}
	return r.Alias + "." + r.Member
}

// Literal is a constant value.
type Literal struct {
	Value ir.IRValue
}

func (*Literal) exprNode() {}

// BinaryOp is a binary operator.
type BinaryOp string

const (
	OpEq  BinaryOp = "eq"
	OpNe  BinaryOp = "ne"
	OpGt  BinaryOp = "gt"
	OpGe  BinaryOp = "ge"
	OpLt  BinaryOp = "lt"
	OpLe  BinaryOp = "le"
	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"
	OpAdd BinaryOp = "add"
	OpSub BinaryOp = "sub"
	OpMul BinaryOp = "mul"
	OpDiv BinaryOp = "div"
	OpMod BinaryOp = "mod"
)

var binaryOps = map[BinaryOp]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGe: true, OpLt: true, OpLe: true,
	OpAnd: true, OpOr: true,
	OpAdd: true, OpSub: true, OpMul: true, OpDiv: true, OpMod: true,
}

// IsComparison reports whether op compares two values.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
		return true
	}
	return false
}

// IsLogical reports whether op is and/or.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// IsArithmetic reports whether op is add, sub, mul, div or mod.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// Binary applies Op to Left and Right.
type Binary struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

func (*Binary) exprNode() {}

// UnaryOp is a unary operator.
type UnaryOp string

const (
	OpNot    UnaryOp = "not"
	OpNegate UnaryOp = "negate"
)

// Unary applies Op to Operand.
type Unary struct {
	Op      UnaryOp
	Operand Expression
}

func (*Unary) exprNode() {}

// Method is a query function call. For Any and All the first argument is
// the collection member and the second, when present, a *Lambda.
type Method struct {
	Method MethodType
	Args   []Expression
}

func (*Method) exprNode() {}

// Lambda is the sub-predicate of an any/all call.
type Lambda struct {
	Parameter string
	Body      Expression

	// Alias and Element are set by compilation: the alias bound to the
	// parameter and the collection element type it ranges over.
	Alias   string
	Element mapping.TypeID
}

func (*Lambda) exprNode() {}

// OrderTerm is one entry of an order-by list.
type OrderTerm struct {
	Expr       Expression
	Descending bool
}

// Query is a complete filter/select/order-by request over one root type.
type Query struct {
	Root    mapping.TypeID
	Filter  Expression // nil means no filter
	Select  []Expression
	OrderBy []OrderTerm
}

// Walk calls fn for e and every node below it in depth-first order. When
// fn returns false the children of that node are skipped.
func Walk(e Expression, fn func(Expression) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Unary:
		Walk(n.Operand, fn)
	case *Method:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Lambda:
		Walk(n.Body, fn)
	}
}

// LambdaParameters returns every lambda parameter name declared in e, in
// first-seen order.
func LambdaParameters(e Expression) []string {
	var out []string
	seen := make(map[string]bool)
	Walk(e, func(n Expression) bool {
		if l, ok := n.(*Lambda); ok && !seen[l.Parameter] {
			seen[l.Parameter] = true
			out = append(out, l.Parameter)
		}
		return true
	})
	return out
}
