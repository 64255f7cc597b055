// Package resolver turns an environment into a compiled scope.
//
// A resolve is all or nothing: dependency reference cycles are rejected up
// front, then every package and every top-level macro is compiled and self
// tested. The first failure aborts the resolve and no scope is returned.
// Resolving an unchanged environment twice yields identical scopes; only
// the generation token differs.
package resolver
