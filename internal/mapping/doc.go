// Package mapping holds the schema descriptors the resolver works against.
//
// Two layers are kept apart:
//
//   - Catalog: every type a query can mention, mapped or not. It plays the
//     role runtime reflection would play in other environments: declared
//     members, base types, collection element types. Scalar types and the
//     dynamic (schemaless) container type are built in.
//   - Store: the persisted view. It owns one MappedClass per mapped entity
//     (table, key, property table, dynamic component members) and the
//     base-type shortcut table used when a query names an unmapped base
//     type whose only mapped subtype is unambiguous.
//
// Both are built once by Build and are read-only afterwards, so a single
// *Store can be shared by concurrent compilations without locking. There is
// no package-level instance; callers thread the *Store through explicitly.
package mapping
