package criteria

import (
	"github.com/roach88/odatacriteria/internal/ir"
	"github.com/roach88/odatacriteria/internal/mapping"
)

// Criteria is a compiled query.
type Criteria struct {
	Root  mapping.TypeID
	Table string
	Key   string

	// Alias qualifies root columns. Empty when the root is unaliased;
	// backends then qualify with Table.
	Alias string

	Joins       []Join
	Filter      Predicate // nil = no filter
	Projections []Projection
	OrderBy     []Order
}

// Qualifier returns the name root columns are qualified with.
func (c *Criteria) Qualifier() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Table
}

// JoinFor returns the join introduced for alias.
func (c *Criteria) JoinFor(alias string) (Join, bool) {
	for _, j := range c.Joins {
		if j.Alias == alias {
			return j, true
		}
	}
	return Join{}, false
}

// JoinsInScope returns the to-one joins belonging to scope, in creation
// order. Scope "" selects the outer query.
func (c *Criteria) JoinsInScope(scope string) []Join {
	var out []Join
	for _, j := range c.Joins {
		if j.Kind == JoinToOne && j.Scope == scope {
			out = append(out, j)
		}
	}
	return out
}

// JoinKind distinguishes to-one navigations from collection elements.
type JoinKind string

const (
	JoinToOne      JoinKind = "to-one"
	JoinCollection JoinKind = "collection"
)

// Join is the join clause for one alias.
type Join struct {
	Kind  JoinKind
	Alias string
	Path  string // alias-qualified navigation path
	Type  mapping.TypeID
	Table string

	// Parent is the qualifier the join hangs off.
	Parent string

	// Column is the foreign key: on the parent for JoinToOne, on the
	// joined table for JoinCollection.
	Column string

	// Key is the referenced key: the joined table's key for JoinToOne,
	// the parent's key for JoinCollection.
	Key string

	// Scope is the enclosing collection alias, "" for the outer query.
	Scope string
}

// Projection is one selected column.
type Projection struct {
	Column Column
	Name   string // output name, the resolved member path
}

// Order is one order-by term.
type Order struct {
	Operand    Operand
	Descending bool
}

// Predicate is a filter condition.
type Predicate interface {
	predicateNode()
}

// CompareOp is a comparison operator.
type CompareOp string

const (
	Eq CompareOp = "="
	Ne CompareOp = "<>"
	Gt CompareOp = ">"
	Ge CompareOp = ">="
	Lt CompareOp = "<"
	Le CompareOp = "<="
)

// Compare compares two operands. Comparisons against null are expressed
// with IsNull instead.
type Compare struct {
	Op    CompareOp
	Left  Operand
	Right Operand
}

func (Compare) predicateNode() {}

// IsNull tests an operand for null; Negate tests for not null.
type IsNull struct {
	Operand Operand
	Negate  bool
}

func (IsNull) predicateNode() {}

// And is a conjunction; empty means true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction; empty means false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// NotTrue holds unless Predicate is true. An unknown (NULL) result
// counts as not true.
type NotTrue struct {
	Predicate Predicate
}

func (NotTrue) predicateNode() {}

// Exists holds when at least one element of the collection joined as
// Alias satisfies Filter. A nil Filter matches any element.
type Exists struct {
	Alias  string
	Filter Predicate
}

func (Exists) predicateNode() {}

// LikeKind selects the pattern shape of a Like predicate.
type LikeKind string

const (
	LikePrefix   LikeKind = "prefix"
	LikeSuffix   LikeKind = "suffix"
	LikeContains LikeKind = "contains"
)

// Like matches Operand against Pattern as a prefix, suffix or substring.
type Like struct {
	Kind    LikeKind
	Operand Operand
	Pattern Operand
}

func (Like) predicateNode() {}

// Truth treats a boolean operand as a predicate.
type Truth struct {
	Operand Operand
}

func (Truth) predicateNode() {}

// Operand is a value expression.
type Operand interface {
	operandNode()
}

// Column is a persisted column qualified by an alias or table name.
type Column struct {
	Qualifier string
	Name      string
	Type      mapping.TypeID
}

func (Column) operandNode() {}

// Value is a literal, always rendered as a bound parameter.
type Value struct {
	Value ir.IRValue
}

func (Value) operandNode() {}

// ArithOp is an arithmetic operator.
type ArithOp string

const (
	Add ArithOp = "+"
	Sub ArithOp = "-"
	Mul ArithOp = "*"
	Div ArithOp = "/"
	Mod ArithOp = "%"
)

// Arith applies an arithmetic operator.
type Arith struct {
	Op    ArithOp
	Left  Operand
	Right Operand
}

func (Arith) operandNode() {}

// Negate is unary minus.
type Negate struct {
	Operand Operand
}

func (Negate) operandNode() {}

// Func is a scalar function call. Name is the query function name, e.g.
// "tolower" or "year"; backends map it to their own functions.
type Func struct {
	Name string
	Args []Operand
}

func (Func) operandNode() {}
