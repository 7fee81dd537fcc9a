// Package ir provides the value model shared by the expression tree, the
// criteria IR and the compile log.
//
// This package contains leaf types only. All other internal packages may
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Numbers are int64 or decimal text, never float64, so hashes of
//     compiled queries are stable across platforms
//   - Literal values are a sealed set (IRNull, IRString, IRInt, IRBool,
//     IRDecimal, IRArray, IRObject)
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only encoding
//     used for content-addressed identity
package ir
