package expr

// Node is a parsed expression.
//
// This is a SEALED interface: only types in this package can implement it,
// so the interpreter switch is exhaustive.
type Node interface {
	exprNode() // Marker method - unexported to seal
	Pos() int  // Byte offset in the source
}

// Literal is a number or boolean constant.
type Literal struct {
	Offset int
	Value  Value
}

func (Literal) exprNode()  {}
func (n Literal) Pos() int { return n.Offset }

// Name is an identifier resolved against the evaluation scope.
type Name struct {
	Offset int
	Ident  string
}

func (Name) exprNode()  {}
func (n Name) Pos() int { return n.Offset }

// Attribute is ns.name on a namespace value.
type Attribute struct {
	Offset int
	X      Node
	Ident  string
}

func (Attribute) exprNode()  {}
func (n Attribute) Pos() int { return n.Offset }

// KeywordArg is name=value in a call.
type KeywordArg struct {
	Name  string
	Value Node
}

// Call applies Func to positional and keyword arguments.
type Call struct {
	Offset   int
	Func     Node
	Args     []Node
	Keywords []KeywordArg
}

func (Call) exprNode()  {}
func (n Call) Pos() int { return n.Offset }

// Unary is "-x", "+x" or "~x".
type Unary struct {
	Offset int
	Op     string
	X      Node
}

func (Unary) exprNode()  {}
func (n Unary) Pos() int { return n.Offset }

// Binary is an arithmetic or bitwise operation.
type Binary struct {
	Offset int
	Op     string
	Left   Node
	Right  Node
}

func (Binary) exprNode()  {}
func (n Binary) Pos() int { return n.Offset }

// Logical is a short-circuit "and" / "or". The result is the deciding
// operand, not a coerced bool.
type Logical struct {
	Offset int
	Op     string
	Left   Node
	Right  Node
}

func (Logical) exprNode()  {}
func (n Logical) Pos() int { return n.Offset }

// Not is boolean negation.
type Not struct {
	Offset int
	X      Node
}

func (Not) exprNode()  {}
func (n Not) Pos() int { return n.Offset }

// Compare is a comparison chain: a < b <= c is (a < b) and (b <= c) with b
// evaluated once.
type Compare struct {
	Offset int
	First  Node
	Ops    []string
	Rest   []Node
}

func (Compare) exprNode()  {}
func (n Compare) Pos() int { return n.Offset }

// Conditional is "Then if Cond else Else".
type Conditional struct {
	Offset int
	Then   Node
	Cond   Node
	Else   Node
}

func (Conditional) exprNode()  {}
func (n Conditional) Pos() int { return n.Offset }

// Walk visits n and its children depth-first in source order.
// Children are skipped when visit returns false.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch n := n.(type) {
	case Attribute:
		Walk(n.X, visit)
	case Call:
		Walk(n.Func, visit)
		for _, a := range n.Args {
			Walk(a, visit)
		}
		for _, kw := range n.Keywords {
			Walk(kw.Value, visit)
		}
	case Unary:
		Walk(n.X, visit)
	case Binary:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case Logical:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case Not:
		Walk(n.X, visit)
	case Compare:
		Walk(n.First, visit)
		for _, r := range n.Rest {
			Walk(r, visit)
		}
	case Conditional:
		Walk(n.Then, visit)
		Walk(n.Cond, visit)
		Walk(n.Else, visit)
	}
}

// FreeNames returns the distinct identifiers n reads from its scope, in
// order of first appearance. Attribute selectors are not included.
func FreeNames(n Node) []string {
	var names []string
	seen := make(map[string]bool)
	Walk(n, func(n Node) bool {
		if name, ok := n.(Name); ok && !seen[name.Ident] {
			seen[name.Ident] = true
			names = append(names, name.Ident)
		}
		return true
	})
	return names
}
