// Package store provides a SQLite-backed log of query compilations.
//
// Every compilation, successful or not, is recorded with:
//   - Compilations: query hash, schema hash, input tree, SQL and params
//   - Aliases: the join aliases the compilation introduced, in order
//
// # Ordering
//
//   - Each compilation gets a seq INTEGER (logical clock), never a timestamp
//   - All queries use ORDER BY seq ASC, id COLLATE BINARY ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Input trees and parameters are stored as RFC 8785 canonical JSON via
// internal/ir.
package store
