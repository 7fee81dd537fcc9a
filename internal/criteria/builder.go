package criteria

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/odatacriteria/internal/alias"
	"github.com/roach88/odatacriteria/internal/expr"
	"github.com/roach88/odatacriteria/internal/ir"
	"github.com/roach88/odatacriteria/internal/mapping"
)

// BuildError reports a resolved tree that cannot be expressed as criteria.
type BuildError struct {
	Path    string
	Message string
}

func (e *BuildError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("criteria: %s: %s", e.Path, e.Message)
	}
	return "criteria: " + e.Message
}

func buildErr(path, format string, args ...any) *BuildError {
	return &BuildError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Builder turns a resolved query into Criteria. It implements alias.Sink:
// the alias registry of a compilation reports every new alias to it, and
// the builder derives the join clause from the alias's path.
//
// A Builder serves exactly one compilation.
type Builder struct {
	store     *mapping.Store
	catalog   *mapping.Catalog
	root      *mapping.MappedClass
	rootAlias string
	joins     []Join
	byAlias   map[string]int
	err       error
	logger    *slog.Logger
}

var _ alias.Sink = (*Builder)(nil)

// NewBuilder creates a builder for a query over root. rootAlias is ""
// when root members are unqualified.
func NewBuilder(store *mapping.Store, root mapping.TypeID, rootAlias string, logger *slog.Logger) (*Builder, error) {
	mc, ok := store.MappedOrShortcut(root)
	if !ok {
		return nil, buildErr("", "root type %s is not mapped", root)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{
		store:     store,
		catalog:   store.Catalog(),
		root:      mc,
		rootAlias: rootAlias,
		byAlias:   make(map[string]int),
		logger:    logger,
	}, nil
}

func (b *Builder) rootQualifier() string {
	if b.rootAlias != "" {
		return b.rootAlias
	}
	return b.root.Table
}

// owner returns the qualifier, type and enclosing scope of an alias name.
func (b *Builder) owner(name string) (qualifier string, typ mapping.TypeID, scope string, ok bool) {
	if name == b.rootAlias {
		return b.rootQualifier(), b.root.Type, "", true
	}
	i, found := b.byAlias[name]
	if !found {
		return "", mapping.NoType, "", false
	}
	j := b.joins[i]
	if j.Kind == JoinCollection {
		return j.Alias, j.Type, j.Alias, true
	}
	return j.Alias, j.Type, j.Scope, true
}

// AddAlias implements alias.Sink. Errors are kept and reported by Build,
// since the registry cannot receive them.
func (b *Builder) AddAlias(a alias.Alias) {
	if b.err != nil {
		return
	}
	j, err := b.join(a)
	if err != nil {
		b.err = err
		return
	}
	b.byAlias[j.Alias] = len(b.joins)
	b.joins = append(b.joins, j)
	b.logger.Debug("join added",
		"alias", j.Alias,
		"kind", string(j.Kind),
		"table", j.Table,
		"scope", j.Scope,
	)
}

func (b *Builder) join(a alias.Alias) (Join, error) {
	parentQual, parentType, scope, ok := b.owner(a.Parent)
	if !ok {
		return Join{}, buildErr(a.Path, "unknown parent alias %q", a.Parent)
	}
	target, ok := b.store.MappedOrShortcut(a.Type)
	if !ok {
		return Join{}, buildErr(a.Path, "join target %s is not mapped", a.Type)
	}
	col, m, err := b.memberColumn(parentType, a.Relative)
	if err != nil {
		return Join{}, err
	}

	j := Join{
		Alias:  a.Name,
		Path:   a.Path,
		Type:   target.Type,
		Table:  target.Table,
		Parent: parentQual,
		Scope:  scope,
	}
	if a.Collection {
		if m.inverse == "" {
			return Join{}, buildErr(a.Path, "collection has no inverse column")
		}
		parentClass, ok := b.store.MappedOrShortcut(parentType)
		if !ok {
			return Join{}, buildErr(a.Path, "collection owner %s is not mapped", parentType)
		}
		j.Kind = JoinCollection
		j.Column = m.inverse
		j.Key = parentClass.Key
		return j, nil
	}

	j.Kind = JoinToOne
	j.Column = col
	j.Key = target.Key
	return j, nil
}

type memberInfo struct {
	typ     mapping.TypeID
	column  string
	inverse string
}

func (b *Builder) member(owner mapping.TypeID, name string) (memberInfo, bool) {
	if mc, ok := b.store.MappedOrShortcut(owner); ok {
		if p, ok := mc.Property(name); ok {
			return memberInfo{typ: p.Type, column: p.Column, inverse: p.Inverse}, true
		}
	}
	for _, m := range b.catalog.Members(owner) {
		if m.Name == name {
			return memberInfo{typ: m.Type, column: m.Column, inverse: m.Inverse}, true
		}
	}
	return memberInfo{}, false
}

// memberColumn walks a resolved member path from owner. Component
// segments prefix the column of the members below them; a dynamic
// component member resolves through the owner's dynamic table.
func (b *Builder) memberColumn(owner mapping.TypeID, path string) (string, memberInfo, error) {
	if path == "" {
		return "", memberInfo{}, buildErr(path, "empty member path")
	}
	segs := strings.Split(path, ".")
	cur := owner
	prefix := ""
	for i, seg := range segs {
		m, ok := b.member(cur, seg)
		if !ok {
			return "", memberInfo{}, buildErr(path, "%s has no member %s", cur, seg)
		}
		col := m.column
		if prefix != "" {
			col = prefix + "_" + col
		}

		if m.typ == mapping.TypeDynamic {
			mc, ok := b.store.MappedOrShortcut(owner)
			if !ok {
				return "", memberInfo{}, buildErr(path, "dynamic component on unmapped type %s", owner)
			}
			dp, ok := mc.FindDynamicProperty(strings.Join(segs[i:], "."), true)
			if !ok {
				return "", memberInfo{}, buildErr(path, "no dynamic member")
			}
			return dp.Column, memberInfo{typ: dp.Type, column: dp.Column}, nil
		}

		if i == len(segs)-1 {
			return col, m, nil
		}
		if b.catalog.KindOf(m.typ) != mapping.KindComponent {
			return "", memberInfo{}, buildErr(path, "cannot navigate through %s without a join", m.typ)
		}
		prefix = col
		cur = m.typ
	}
	return "", memberInfo{}, buildErr(path, "empty member path")
}

// Column maps a resolved member onto its qualified persisted column.
func (b *Builder) Column(r *expr.ResolvedMember) (Column, error) {
	qual, typ, _, ok := b.owner(r.Alias)
	if !ok {
		return Column{}, buildErr(r.Path(), "unknown alias %q", r.Alias)
	}
	col, _, err := b.memberColumn(typ, r.Member)
	if err != nil {
		return Column{}, err
	}
	return Column{Qualifier: qual, Name: col, Type: r.Type}, nil
}

// Build converts a normalized query. It must be called after every alias
// of the compilation has been reported.
func (b *Builder) Build(q *expr.Query) (*Criteria, error) {
	if b.err != nil {
		return nil, b.err
	}

	filter, err := b.predicate(q.Filter)
	if err != nil {
		return nil, err
	}

	c := &Criteria{
		Root:   b.root.Type,
		Table:  b.root.Table,
		Key:    b.root.Key,
		Alias:  b.rootAlias,
		Joins:  append([]Join(nil), b.joins...),
		Filter: filter,
	}

	for _, s := range q.Select {
		r, ok := s.(*expr.ResolvedMember)
		if !ok {
			return nil, buildErr("", "select entries must be resolved members")
		}
		col, err := b.Column(r)
		if err != nil {
			return nil, err
		}
		c.Projections = append(c.Projections, Projection{Column: col, Name: r.Path()})
	}

	for _, o := range q.OrderBy {
		op, err := b.operand(o.Expr)
		if err != nil {
			return nil, err
		}
		c.OrderBy = append(c.OrderBy, Order{Operand: op, Descending: o.Descending})
	}

	return c, nil
}

var compareOps = map[expr.BinaryOp]CompareOp{
	expr.OpEq: Eq, expr.OpNe: Ne,
	expr.OpGt: Gt, expr.OpGe: Ge,
	expr.OpLt: Lt, expr.OpLe: Le,
}

var arithOps = map[expr.BinaryOp]ArithOp{
	expr.OpAdd: Add, expr.OpSub: Sub,
	expr.OpMul: Mul, expr.OpDiv: Div, expr.OpMod: Mod,
}

func isNullLiteral(e expr.Expression) bool {
	lit, ok := e.(*expr.Literal)
	if !ok {
		return false
	}
	_, null := lit.Value.(ir.IRNull)
	return null
}

func (b *Builder) predicate(e expr.Expression) (Predicate, error) {
	switch n := e.(type) {
	case nil:
		return nil, nil
	case *expr.Binary:
		return b.binaryPredicate(n)
	case *expr.Unary:
		if n.Op != expr.OpNot {
			return nil, buildErr("", "%s is not a predicate", n.Op)
		}
		inner, err := b.predicate(n.Operand)
		if err != nil {
			return nil, err
		}
		return Not{Predicate: inner}, nil
	case *expr.Method:
		return b.methodPredicate(n)
	case *expr.ResolvedMember:
		if n.Type != mapping.TypeBool {
			return nil, buildErr(n.Path(), "%s member used as a predicate", n.Type)
		}
		col, err := b.Column(n)
		if err != nil {
			return nil, err
		}
		return Truth{Operand: col}, nil
	case *expr.Literal:
		if _, ok := n.Value.(ir.IRBool); !ok {
			return nil, buildErr("", "non-boolean literal used as a predicate")
		}
		return Truth{Operand: Value{Value: n.Value}}, nil
	default:
		return nil, buildErr("", "unexpected %T in predicate", e)
	}
}

func (b *Builder) binaryPredicate(n *expr.Binary) (Predicate, error) {
	switch {
	case n.Op.IsLogical():
		left, err := b.predicate(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.predicate(n.Right)
		if err != nil {
			return nil, err
		}
		if n.Op == expr.OpAnd {
			return And{Predicates: flattenAnd(left, right)}, nil
		}
		return Or{Predicates: flattenOr(left, right)}, nil

	case n.Op.IsComparison():
		if isNullLiteral(n.Left) || isNullLiteral(n.Right) {
			if n.Op != expr.OpEq && n.Op != expr.OpNe {
				return nil, buildErr("", "null cannot be compared with %s", n.Op)
			}
			other := n.Left
			if isNullLiteral(n.Left) {
				other = n.Right
			}
			op, err := b.operand(other)
			if err != nil {
				return nil, err
			}
			return IsNull{Operand: op, Negate: n.Op == expr.OpNe}, nil
		}
		left, err := b.operand(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.operand(n.Right)
		if err != nil {
			return nil, err
		}
		return Compare{Op: compareOps[n.Op], Left: left, Right: right}, nil
	}
	return nil, buildErr("", "%s is not a predicate", n.Op)
}

func flattenAnd(ps ...Predicate) []Predicate {
	var out []Predicate
	for _, p := range ps {
		if a, ok := p.(And); ok {
			out = append(out, a.Predicates...)
			continue
		}
		out = append(out, p)
	}
	return out
}

func flattenOr(ps ...Predicate) []Predicate {
	var out []Predicate
	for _, p := range ps {
		if o, ok := p.(Or); ok {
			out = append(out, o.Predicates...)
			continue
		}
		out = append(out, p)
	}
	return out
}

func (b *Builder) methodPredicate(n *expr.Method) (Predicate, error) {
	switch n.Method {
	case expr.Any, expr.All:
		return b.lambdaPredicate(n)
	case expr.StartsWith:
		return b.like(LikePrefix, n.Args[0], n.Args[1])
	case expr.EndsWith:
		return b.like(LikeSuffix, n.Args[0], n.Args[1])
	case expr.Contains:
		return b.like(LikeContains, n.Args[0], n.Args[1])
	case expr.SubStringOf:
		// substringof(needle, haystack)
		return b.like(LikeContains, n.Args[1], n.Args[0])
	case expr.IsOf, expr.Cast:
		return nil, buildErr("", "%s is not supported", n.Method)
	}
	op, err := b.operand(n)
	if err != nil {
		return nil, err
	}
	return Truth{Operand: op}, nil
}

func (b *Builder) like(kind LikeKind, subject, pattern expr.Expression) (Predicate, error) {
	s, err := b.operand(subject)
	if err != nil {
		return nil, err
	}
	p, err := b.operand(pattern)
	if err != nil {
		return nil, err
	}
	return Like{Kind: kind, Operand: s, Pattern: p}, nil
}

func (b *Builder) lambdaPredicate(n *expr.Method) (Predicate, error) {
	if len(n.Args) != 2 {
		return nil, buildErr("", "%s: unresolved collection", n.Method)
	}
	lambda, ok := n.Args[1].(*expr.Lambda)
	if !ok || lambda.Alias == "" {
		return nil, buildErr("", "%s: unresolved collection", n.Method)
	}
	if _, known := b.byAlias[lambda.Alias]; !known {
		return nil, buildErr("", "%s: unknown collection alias %q", n.Method, lambda.Alias)
	}
	body, err := b.predicate(lambda.Body)
	if err != nil {
		return nil, err
	}
	if n.Method == expr.Any {
		return Exists{Alias: lambda.Alias, Filter: body}, nil
	}
	if body == nil {
		return nil, buildErr("", "all: missing body")
	}
	return Not{Predicate: Exists{Alias: lambda.Alias, Filter: NotTrue{Predicate: body}}}, nil
}

func (b *Builder) operand(e expr.Expression) (Operand, error) {
	switch n := e.(type) {
	case *expr.ResolvedMember:
		return b.Column(n)
	case *expr.Literal:
		return Value{Value: n.Value}, nil
	case *expr.Binary:
		op, ok := arithOps[n.Op]
		if !ok {
			return nil, buildErr("", "%s used as a value", n.Op)
		}
		left, err := b.operand(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.operand(n.Right)
		if err != nil {
			return nil, err
		}
		return Arith{Op: op, Left: left, Right: right}, nil
	case *expr.Unary:
		if n.Op != expr.OpNegate {
			return nil, buildErr("", "%s used as a value", n.Op)
		}
		inner, err := b.operand(n.Operand)
		if err != nil {
			return nil, err
		}
		return Negate{Operand: inner}, nil
	case *expr.Method:
		switch n.Method {
		case expr.Any, expr.All, expr.StartsWith, expr.EndsWith, expr.Contains,
			expr.SubStringOf, expr.IsOf, expr.Cast:
			return nil, buildErr("", "%s used as a value", n.Method)
		}
		args := make([]Operand, 0, len(n.Args))
		for _, a := range n.Args {
			op, err := b.operand(a)
			if err != nil {
				return nil, err
			}
			args = append(args, op)
		}
		return Func{Name: n.Method.String(), Args: args}, nil
	default:
		return nil, buildErr("", "unexpected %T in value position", e)
	}
}
