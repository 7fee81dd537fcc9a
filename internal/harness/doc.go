// Package harness provides conformance testing for query compilation.
//
// A scenario names a CUE schema, a query, and what compiling the query
// must produce: the alias table, the SQL, or an error code. Scenarios may
// also seed a SQLite fixture and assert on the rows the SQL returns.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: ../schema/shop
//	fixture: ../fixtures/shop.sql
//	options:
//	  case_sensitive: false
//	query:
//	  root: Order
//	  filter:
//	    eq: [{member: Customer/Address/City}, {string: Paris}]
//	expect:
//	  aliases:
//	    root.Customer: t1
//	    t1.Address: t2
//	  params: [Paris]
//	assertions:
//	  - type: sql_contains
//	    text: "LEFT JOIN customers AS t1"
//	  - type: rows
//	    values: [A-1, A-2]
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - alias: the alias for path is name
//   - alias_count: exactly count aliases were created
//   - sql_contains / sql_not_contains: substring checks on the SQL
//   - rows: first column of every row the SQL returns from the fixture
//   - portable: the criteria stay inside the portable fragment
//
// # Deterministic Testing
//
// Every run records its compilation in a fresh in-memory compile log with
// sequential ids, so golden snapshots are byte-identical across runs.
package harness
