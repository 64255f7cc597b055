// Package harness exercises compiled macros.
//
// It has two halves. The self tester runs at build time: once a scope
// level seals, every macro is checked statically (free names resolve,
// calls to known macros pass an acceptable argument count) and then called
// once with synthetic integer arguments. The scenario runner runs queries
// from YAML files against a resolved scope and compares the results with
// expectations and golden files.
//
// # Scenario Format
//
//	name: arithmetic
//	description: "Basic macros answer queries"
//	macros:
//	  - name: addOne
//	    variables: [n]
//	    formula: n + 1
//	queries:
//	  - expr: addOne(5)
//	    expect: "6"
//	  - expr: addOne()
//	    error: argument
//
// Expected values compare against the rendered result. Expected errors
// name an error kind: syntax, name_not_defined, division_by_zero,
// limit_exceeded, type, argument, overflow or invalid_expression.
//
// # Deterministic Testing
//
// Self tests draw arguments from a SeededSampler. By default the seed is
// derived from the macro id, so a macro sees the same arguments on every
// resolve.
package harness
