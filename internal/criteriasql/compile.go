// Package criteriasql renders criteria as parameterized SQLite SQL.
package criteriasql

import (
	"fmt"
	"strings"

	"github.com/roach88/odatacriteria/internal/criteria"
	"github.com/roach88/odatacriteria/internal/ir"
)

// SQLCompiler compiles criteria to parameterized SQL for SQLite.
//
// All values are bound parameters, never interpolated. Every query ends
// with an ORDER BY on the root key so results are deterministic even when
// the caller gave no ordering.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts criteria to SQL. Returns (sql, params, error).
//
// To-one joins of the outer query become LEFT JOINs so that a missing
// related row makes the condition false instead of dropping the row
// before the filter is applied. any/all become correlated EXISTS
// subqueries that carry their own joins.
func (c *SQLCompiler) Compile(crit *criteria.Criteria) (string, []any, error) {
	if crit == nil {
		return "", nil, fmt.Errorf("cannot compile nil criteria")
	}

	var b strings.Builder
	var params []any

	b.WriteString("SELECT ")
	b.WriteString(c.compileProjections(crit))
	b.WriteString(" FROM ")
	b.WriteString(fromClause(crit.Table, crit.Alias))

	joinSQL, err := c.compileJoins(crit, "")
	if err != nil {
		return "", nil, err
	}
	b.WriteString(joinSQL)

	if crit.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(crit, crit.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(filterSQL)
		params = append(params, filterParams...)
	}

	orderSQL, orderParams, err := c.compileOrderBy(crit)
	if err != nil {
		return "", nil, fmt.Errorf("compile order by: %w", err)
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderSQL)
	params = append(params, orderParams...)

	return b.String(), params, nil
}

func fromClause(table, alias string) string {
	if alias == "" {
		return table
	}
	return table + " AS " + alias
}

// quoteIdent quotes an output column name.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (c *SQLCompiler) compileProjections(crit *criteria.Criteria) string {
	if len(crit.Projections) == 0 {
		return crit.Qualifier() + ".*"
	}
	parts := make([]string, 0, len(crit.Projections))
	for _, p := range crit.Projections {
		col := p.Column.Qualifier + "." + p.Column.Name
		if p.Name == "" {
			parts = append(parts, col)
			continue
		}
		parts = append(parts, col+" AS "+quoteIdent(p.Name))
	}
	return strings.Join(parts, ", ")
}

// compileJoins renders the to-one joins of one scope in creation order.
func (c *SQLCompiler) compileJoins(crit *criteria.Criteria, scope string) (string, error) {
	var b strings.Builder
	for _, j := range crit.JoinsInScope(scope) {
		if j.Column == "" || j.Key == "" {
			return "", fmt.Errorf("join %s: missing join columns", j.Alias)
		}
		fmt.Fprintf(&b, " LEFT JOIN %s AS %s ON %s.%s = %s.%s",
			j.Table, j.Alias, j.Alias, j.Key, j.Parent, j.Column)
	}
	return b.String(), nil
}

// compileOrderBy renders the requested terms followed by the root key as
// a deterministic tiebreaker.
func (c *SQLCompiler) compileOrderBy(crit *criteria.Criteria) (string, []any, error) {
	var parts []string
	var params []any
	for _, o := range crit.OrderBy {
		sql, p, err := c.compileOperand(o.Operand)
		if err != nil {
			return "", nil, err
		}
		dir := " ASC"
		if o.Descending {
			dir = " DESC"
		}
		parts = append(parts, sql+dir)
		params = append(params, p...)
	}
	parts = append(parts, crit.Qualifier()+"."+crit.Key+" COLLATE BINARY ASC")
	return strings.Join(parts, ", "), params, nil
}

// compilePredicate compiles a predicate to a WHERE clause fragment.
// Values are never interpolated.
func (c *SQLCompiler) compilePredicate(crit *criteria.Criteria, p criteria.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case criteria.Compare:
		left, lp, err := c.compileOperand(pred.Left)
		if err != nil {
			return "", nil, err
		}
		right, rp, err := c.compileOperand(pred.Right)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s %s", left, pred.Op, right), append(lp, rp...), nil
	case criteria.IsNull:
		sql, params, err := c.compileOperand(pred.Operand)
		if err != nil {
			return "", nil, err
		}
		if pred.Negate {
			return sql + " IS NOT NULL", params, nil
		}
		return sql + " IS NULL", params, nil
	case criteria.And:
		return c.compileJunction(crit, pred.Predicates, " AND ", "1 = 1")
	case criteria.Or:
		return c.compileJunction(crit, pred.Predicates, " OR ", "1 = 0")
	case criteria.Not:
		sql, params, err := c.compilePredicate(crit, pred.Predicate)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", params, nil
	case criteria.NotTrue:
		sql, params, err := c.compilePredicate(crit, pred.Predicate)
		if err != nil {
			return "", nil, err
		}
		return "NOT COALESCE((" + sql + "), 0)", params, nil
	case criteria.Exists:
		return c.compileExists(crit, pred)
	case criteria.Like:
		return c.compileLike(pred)
	case criteria.Truth:
		sql, params, err := c.compileOperand(pred.Operand)
		if err != nil {
			return "", nil, err
		}
		return sql, params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileJunction(crit *criteria.Criteria, preds []criteria.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(preds))
	var params []any
	for _, p := range preds {
		sql, pp, err := c.compilePredicate(crit, p)
		if err != nil {
			return "", nil, err
		}
		switch p.(type) {
		case criteria.And, criteria.Or:
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, pp...)
	}
	return strings.Join(parts, sep), params, nil
}

// compileExists renders a correlated subquery over a collection alias,
// with the to-one joins scoped to it.
func (c *SQLCompiler) compileExists(crit *criteria.Criteria, e criteria.Exists) (string, []any, error) {
	j, ok := crit.JoinFor(e.Alias)
	if !ok || j.Kind != criteria.JoinCollection {
		return "", nil, fmt.Errorf("exists: %q is not a collection alias", e.Alias)
	}

	joins, err := c.compileJoins(crit, j.Alias)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "EXISTS (SELECT 1 FROM %s AS %s%s WHERE %s.%s = %s.%s",
		j.Table, j.Alias, joins, j.Alias, j.Column, j.Parent, j.Key)

	var params []any
	if e.Filter != nil {
		sql, p, err := c.compilePredicate(crit, e.Filter)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" AND (")
		b.WriteString(sql)
		b.WriteString(")")
		params = p
	}
	b.WriteString(")")
	return b.String(), params, nil
}

// compileLike renders prefix/suffix/substring matches. Literal patterns
// are escaped and bound as one parameter.
func (c *SQLCompiler) compileLike(l criteria.Like) (string, []any, error) {
	subject, params, err := c.compileOperand(l.Operand)
	if err != nil {
		return "", nil, err
	}

	if v, ok := l.Pattern.(criteria.Value); ok {
		s, ok := v.Value.(ir.IRString)
		if !ok {
			return "", nil, fmt.Errorf("%s match needs a string pattern, got %T", l.Kind, v.Value)
		}
		pattern := likePattern(l.Kind, escapeLike(string(s)))
		return subject + ` LIKE ? ESCAPE '\'`, append(params, pattern), nil
	}

	pattern, pp, err := c.compileOperand(l.Pattern)
	if err != nil {
		return "", nil, err
	}
	var expr string
	switch l.Kind {
	case criteria.LikePrefix:
		expr = pattern + " || '%'"
	case criteria.LikeSuffix:
		expr = "'%' || " + pattern
	default:
		expr = "'%' || " + pattern + " || '%'"
	}
	return subject + " LIKE (" + expr + ")", append(params, pp...), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func likePattern(kind criteria.LikeKind, escaped string) string {
	switch kind {
	case criteria.LikePrefix:
		return escaped + "%"
	case criteria.LikeSuffix:
		return "%" + escaped
	default:
		return "%" + escaped + "%"
	}
}

func (c *SQLCompiler) compileOperand(o criteria.Operand) (string, []any, error) {
	switch op := o.(type) {
	case criteria.Column:
		return op.Qualifier + "." + op.Name, nil, nil
	case criteria.Value:
		param, err := ir.ToParam(op.Value)
		if err != nil {
			return "", nil, fmt.Errorf("convert value: %w", err)
		}
		return "?", []any{param}, nil
	case criteria.Arith:
		left, lp, err := c.compileOperand(op.Left)
		if err != nil {
			return "", nil, err
		}
		right, rp, err := c.compileOperand(op.Right)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(%s %s %s)", left, op.Op, right), append(lp, rp...), nil
	case criteria.Negate:
		sql, params, err := c.compileOperand(op.Operand)
		if err != nil {
			return "", nil, err
		}
		return "-(" + sql + ")", params, nil
	case criteria.Func:
		return c.compileFunc(op)
	default:
		return "", nil, fmt.Errorf("unsupported operand type: %T", o)
	}
}

var simpleFuncs = map[string]string{
	"tolower": "LOWER",
	"toupper": "UPPER",
	"trim":    "TRIM",
	"length":  "LENGTH",
	"replace": "REPLACE",
	"round":   "ROUND",
}

var dateParts = map[string]string{
	"year":   "%Y",
	"month":  "%m",
	"day":    "%d",
	"hour":   "%H",
	"minute": "%M",
	"second": "%S",
}

func (c *SQLCompiler) compileFunc(f criteria.Func) (string, []any, error) {
	if len(f.Args) == 0 {
		return "", nil, fmt.Errorf("function %s: no arguments", f.Name)
	}
	args := make([]string, len(f.Args))
	var params []any
	for i, a := range f.Args {
		sql, p, err := c.compileOperand(a)
		if err != nil {
			return "", nil, err
		}
		args[i] = sql
		params = append(params, p...)
	}

	if name, ok := simpleFuncs[f.Name]; ok {
		return name + "(" + strings.Join(args, ", ") + ")", params, nil
	}
	if part, ok := dateParts[f.Name]; ok {
		return fmt.Sprintf("CAST(strftime('%s', %s) AS INTEGER)", part, args[0]), params, nil
	}

	switch f.Name {
	case "concat":
		return "(" + strings.Join(args, " || ") + ")", params, nil
	case "substring":
		// Query positions are zero-based, SQLite's are one-based.
		if len(args) == 3 {
			return fmt.Sprintf("SUBSTR(%s, %s + 1, %s)", args[0], args[1], args[2]), params, nil
		}
		return fmt.Sprintf("SUBSTR(%s, %s + 1)", args[0], args[1]), params, nil
	case "indexof":
		return fmt.Sprintf("(INSTR(%s, %s) - 1)", args[0], args[1]), params, nil
	case "floor", "ceiling":
		// CAST truncates toward zero; adjust by one where it went the
		// wrong way. The argument appears three times.
		x := args[0]
		tripled := append(append(append([]any(nil), params...), params...), params...)
		if f.Name == "floor" {
			return fmt.Sprintf("(CAST(%s AS INTEGER) - (%s < CAST(%s AS INTEGER)))", x, x, x), tripled, nil
		}
		return fmt.Sprintf("(CAST(%s AS INTEGER) + (%s > CAST(%s AS INTEGER)))", x, x, x), tripled, nil
	}
	return "", nil, fmt.Errorf("unsupported function: %s", f.Name)
}
