// Package criteria is the query criteria handed to a backend after
// compilation.
//
// A Criteria is backend-neutral: the root table, the joins introduced by
// join aliases, a filter predicate tree, projections and ordering. Column
// names are already persisted names; backends only render them.
//
// Predicate and Operand are sealed interfaces. Only types in this package
// implement them, so backend compilers can switch over them exhaustively.
//
// Joins come in two kinds:
//
//   - JoinToOne: a navigation to a single related row. The foreign key
//     lives on the parent row (Column) and points at the target key.
//   - JoinCollection: the element alias of an any/all sub-predicate. The
//     foreign key lives on the element row (Column) and points back at
//     the parent key. Collection joins are rendered as correlated
//     subqueries, never as top-level joins.
//
// Every join carries a Scope: the collection alias whose subquery it
// belongs to, or "" for joins of the outer query.
package criteria
