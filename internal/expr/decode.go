package expr

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/odatacriteria/internal/ir"
	"github.com/roach88/odatacriteria/internal/mapping"
)

// DecodeError reports a malformed expression document.
type DecodeError struct {
	Line    int
	Column  int
	Message string
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

func errAt(n *yaml.Node, format string, args ...any) error {
	return &DecodeError{Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)}
}

type queryDoc struct {
	Root    string    `yaml:"root"`
	Filter  yaml.Node `yaml:"filter"`
	Select  []string  `yaml:"select"`
	OrderBy []string  `yaml:"orderby"`
}

// DecodeQuery parses a YAML query document:
//
//	root: Customer
//	filter:
//	  eq: [{member: Address/City}, {string: Paris}]
//	select: [Name, Address/City]
//	orderby: [Name, Id desc]
func DecodeQuery(data []byte) (*Query, error) {
	var doc queryDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	return doc.query()
}

func (doc *queryDoc) query() (*Query, error) {
	q := &Query{Root: mapping.TypeID(doc.Root)}
	if doc.Filter.Kind != 0 {
		f, err := DecodeNode(&doc.Filter)
		if err != nil {
			return nil, err
		}
		q.Filter = f
	}
	for _, s := range doc.Select {
		m := NewMember(s)
		if len(m.Segments) == 0 {
			return nil, &DecodeError{Message: "select: empty member path"}
		}
		q.Select = append(q.Select, m)
	}
	for _, s := range doc.OrderBy {
		term, err := parseOrderTerm(s)
		if err != nil {
			return nil, err
		}
		q.OrderBy = append(q.OrderBy, term)
	}
	return q, nil
}

// UnmarshalYAML lets a Query be embedded in larger YAML documents.
func (q *Query) UnmarshalYAML(value *yaml.Node) error {
	var doc queryDoc
	if err := value.Decode(&doc); err != nil {
		return err
	}
	parsed, err := doc.query()
	if err != nil {
		return err
	}
	*q = *parsed
	return nil
}

func parseOrderTerm(s string) (OrderTerm, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return OrderTerm{}, &DecodeError{Message: fmt.Sprintf("orderby: invalid term %q", s)}
	}
	term := OrderTerm{Expr: NewMember(fields[0])}
	if len(fields) == 2 {
		switch strings.ToLower(fields[1]) {
		case "asc":
		case "desc":
			term.Descending = true
		default:
			return OrderTerm{}, &DecodeError{Message: fmt.Sprintf("orderby: invalid direction %q", fields[1])}
		}
	}
	return term, nil
}

// Decode parses a single YAML expression.
func Decode(data []byte) (Expression, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse expression: %w", err)
	}
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		return DecodeNode(n.Content[0])
	}
	return DecodeNode(&n)
}

// DecodeNode converts a YAML node into an expression. Every expression is
// a single-key mapping whose key names the node kind.
func DecodeNode(n *yaml.Node) (Expression, error) {
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, errAt(n, "expression must be a mapping with exactly one key")
	}
	key, val := n.Content[0], n.Content[1]
	kind := strings.ToLower(key.Value)

	switch kind {
	case "member":
		if val.Kind != yaml.ScalarNode {
			return nil, errAt(val, "member: expected a path")
		}
		m := NewMember(val.Value)
		if len(m.Segments) == 0 {
			return nil, errAt(val, "member: empty path")
		}
		return m, nil
	case "string", "int", "bool", "null", "decimal":
		return decodeLiteral(kind, val)
	case string(OpNot), string(OpNegate):
		operand, err := DecodeNode(val)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: UnaryOp(kind), Operand: operand}, nil
	case "any", "all":
		return decodeLambdaCall(kind, val)
	}

	if op := BinaryOp(kind); binaryOps[op] {
		return decodeBinary(op, val)
	}
	if mt, ok := ParseMethodType(kind); ok {
		args, err := decodeList(val)
		if err != nil {
			return nil, err
		}
		if err := mt.CheckArity(len(args)); err != nil {
			return nil, errAt(key, "%v", err)
		}
		return &Method{Method: mt, Args: args}, nil
	}
	return nil, errAt(key, "unknown expression kind %q", key.Value)
}

func decodeLiteral(kind string, val *yaml.Node) (Expression, error) {
	if val.Kind != yaml.ScalarNode {
		return nil, errAt(val, "%s: expected a scalar", kind)
	}
	switch kind {
	case "string":
		return &Literal{Value: ir.IRString(val.Value)}, nil
	case "int":
		var i int64
		if err := val.Decode(&i); err != nil {
			return nil, errAt(val, "int: %v", err)
		}
		return &Literal{Value: ir.IRInt(i)}, nil
	case "bool":
		var b bool
		if err := val.Decode(&b); err != nil {
			return nil, errAt(val, "bool: %v", err)
		}
		return &Literal{Value: ir.IRBool(b)}, nil
	case "decimal":
		d, err := ir.NewIRDecimal(val.Value)
		if err != nil {
			return nil, errAt(val, "decimal: %v", err)
		}
		return &Literal{Value: d}, nil
	default:
		return &Literal{Value: ir.IRNull{}}, nil
	}
}

func decodeList(val *yaml.Node) ([]Expression, error) {
	if val.Kind != yaml.SequenceNode {
		return nil, errAt(val, "expected a list of expressions")
	}
	out := make([]Expression, 0, len(val.Content))
	for _, item := range val.Content {
		e, err := DecodeNode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// decodeBinary accepts exactly two operands; and/or accept two or more and
// fold them to the left.
func decodeBinary(op BinaryOp, val *yaml.Node) (Expression, error) {
	operands, err := decodeList(val)
	if err != nil {
		return nil, err
	}
	if len(operands) < 2 || (len(operands) > 2 && !op.IsLogical()) {
		return nil, errAt(val, "%s: expected 2 operands, got %d", op, len(operands))
	}
	out := &Binary{Op: op, Left: operands[0], Right: operands[1]}
	for _, next := range operands[2:] {
		out = &Binary{Op: op, Left: out, Right: next}
	}
	return out, nil
}

type lambdaDoc struct {
	Member string    `yaml:"member"`
	Param  string    `yaml:"param"`
	Body   yaml.Node `yaml:"body"`
}

func decodeLambdaCall(kind string, val *yaml.Node) (Expression, error) {
	var doc lambdaDoc
	if err := val.Decode(&doc); err != nil {
		return nil, errAt(val, "%s: %v", kind, err)
	}
	collection := NewMember(doc.Member)
	if len(collection.Segments) == 0 {
		return nil, errAt(val, "%s: member is required", kind)
	}

	mt := Any
	if kind == "all" {
		mt = All
	}
	call := &Method{Method: mt, Args: []Expression{collection}}

	if doc.Body.Kind == 0 {
		if mt == All {
			return nil, errAt(val, "all: body is required")
		}
		if doc.Param != "" {
			return nil, errAt(val, "any: param given without body")
		}
		return call, nil
	}
	if doc.Param == "" {
		return nil, errAt(val, "%s: param is required with a body", kind)
	}
	body, err := DecodeNode(&doc.Body)
	if err != nil {
		return nil, err
	}
	call.Args = append(call.Args, &Lambda{Parameter: doc.Param, Body: body})
	return call, nil
}
