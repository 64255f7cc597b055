// Package expr implements the restricted expression language that macro
// formulas and queries are written in.
//
// Formulas are parsed once into an AST and interpreted by a tree-walking
// evaluator. Nothing is ever compiled to host code: names resolve only
// against an explicit Scope, and the only callables are macros, namespaces
// and the builtins of a Registry.
//
// # Grammar
//
//	expr       = or_expr [ "if" or_expr "else" expr ]
//	or_expr    = and_expr { "or" and_expr }
//	and_expr   = not_expr { "and" not_expr }
//	not_expr   = "not" not_expr | comparison
//	comparison = bitor { ("<"|"<="|">"|">="|"=="|"!=") bitor }
//	bitor      = bitxor { "|" bitxor }
//	bitxor     = bitand { "^" bitand }
//	bitand     = shift { "&" shift }
//	shift      = sum { ("<<"|">>") sum }
//	sum        = term { ("+"|"-") term }
//	term       = factor { ("*"|"/"|"//"|"%") factor }
//	factor     = ("-"|"+"|"~") factor | power
//	power      = postfix [ "**" factor ]
//	postfix    = atom { "(" [args] ")" | "." NAME }
//	atom       = NUMBER | NAME | "True" | "False" | "(" expr ")"
//	args       = arg { "," arg } [","]
//	arg        = expr | NAME "=" expr
//
// Numeric semantics follow the conventions formula authors expect from
// calculator-style languages: "/" always yields a float, "//" floors, "%"
// takes the sign of the divisor and booleans behave as 0 and 1.
//
// # Limits
//
// Evaluation is bounded by Limits. Exceeding the call depth or step budget
// returns LimitExceededError rather than exhausting the goroutine stack.
package expr
