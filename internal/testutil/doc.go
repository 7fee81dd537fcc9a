// Package testutil provides deterministic helpers and fixture schemas shared
// by package tests and the conformance harness.
package testutil
