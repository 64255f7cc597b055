package expr

import "fmt"

// Limits bounds a single evaluation.
type Limits struct {
	MaxDepth int // Nested macro calls
	MaxSteps int // Evaluated nodes
}

// DefaultLimits are applied when no limits are configured.
var DefaultLimits = Limits{MaxDepth: 200, MaxSteps: 1_000_000}

// Interpreter evaluates parsed expressions. Step and depth counters span
// every Eval and Call made through the same Interpreter, so use one per
// top-level evaluation.
type Interpreter struct {
	limits Limits
	steps  int
	depth  int
}

// NewInterpreter creates an interpreter with the given limits. Zero fields
// fall back to DefaultLimits.
func NewInterpreter(limits Limits) *Interpreter {
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = DefaultLimits.MaxDepth
	}
	if limits.MaxSteps <= 0 {
		limits.MaxSteps = DefaultLimits.MaxSteps
	}
	return &Interpreter{limits: limits}
}

// Evaluate parses and evaluates src against scope with DefaultLimits.
// Every failure is returned as *InvalidExpressionError.
func Evaluate(src string, scope Scope) (Value, error) {
	return EvaluateWithLimits(src, scope, DefaultLimits)
}

// EvaluateWithLimits is Evaluate with explicit limits.
func EvaluateWithLimits(src string, scope Scope, limits Limits) (Value, error) {
	node, err := Parse(src)
	if err != nil {
		if se, ok := err.(*SyntaxError); ok {
			return nil, &InvalidExpressionError{Expr: src, Pos: se.Pos, Msg: se.Msg}
		}
		return nil, &InvalidExpressionError{Expr: src, Pos: -1, Err: err}
	}
	v, err := NewInterpreter(limits).Eval(node, scope)
	if err != nil {
		return nil, &InvalidExpressionError{Expr: src, Pos: -1, Err: err}
	}
	return v, nil
}

// Eval evaluates node against scope.
func (in *Interpreter) Eval(node Node, scope Scope) (Value, error) {
	in.steps++
	if in.steps > in.limits.MaxSteps {
		return nil, &LimitExceededError{Limit: "steps", Max: in.limits.MaxSteps}
	}

	switch n := node.(type) {
	case Literal:
		return n.Value, nil

	case Name:
		v, ok := scope.Lookup(n.Ident)
		if !ok {
			return nil, &NameNotDefinedError{Name: n.Ident}
		}
		return v, nil

	case Attribute:
		x, err := in.Eval(n.X, scope)
		if err != nil {
			return nil, err
		}
		ns, ok := x.(*Namespace)
		if !ok {
			return nil, &TypeError{Msg: fmt.Sprintf("%s has no attribute %q", x.Kind(), n.Ident)}
		}
		v, ok := ns.Lookup(n.Ident)
		if !ok {
			return nil, &NameNotDefinedError{Name: ns.Name() + "." + n.Ident}
		}
		return v, nil

	case Call:
		fn, err := in.Eval(n.Func, scope)
		if err != nil {
			return nil, err
		}
		args := make([]Value, len(n.Args))
		for i, a := range n.Args {
			if args[i], err = in.Eval(a, scope); err != nil {
				return nil, err
			}
		}
		kwargs := make([]Keyword, len(n.Keywords))
		for i, kw := range n.Keywords {
			v, err := in.Eval(kw.Value, scope)
			if err != nil {
				return nil, err
			}
			kwargs[i] = Keyword{Name: kw.Name, Value: v}
		}
		return in.Call(fn, args, kwargs)

	case Unary:
		x, err := in.Eval(n.X, scope)
		if err != nil {
			return nil, err
		}
		return unaryOp(n.Op, x)

	case Binary:
		l, err := in.Eval(n.Left, scope)
		if err != nil {
			return nil, err
		}
		r, err := in.Eval(n.Right, scope)
		if err != nil {
			return nil, err
		}
		return binaryOp(n.Op, l, r)

	case Logical:
		l, err := in.Eval(n.Left, scope)
		if err != nil {
			return nil, err
		}
		if Truthy(l) == (n.Op == "or") {
			return l, nil
		}
		return in.Eval(n.Right, scope)

	case Not:
		x, err := in.Eval(n.X, scope)
		if err != nil {
			return nil, err
		}
		return Bool(!Truthy(x)), nil

	case Compare:
		left, err := in.Eval(n.First, scope)
		if err != nil {
			return nil, err
		}
		for i, op := range n.Ops {
			right, err := in.Eval(n.Rest[i], scope)
			if err != nil {
				return nil, err
			}
			ok, err := compare(op, left, right)
			if err != nil {
				return nil, err
			}
			if !ok {
				return Bool(false), nil
			}
			left = right
		}
		return Bool(true), nil

	case Conditional:
		c, err := in.Eval(n.Cond, scope)
		if err != nil {
			return nil, err
		}
		if Truthy(c) {
			return in.Eval(n.Then, scope)
		}
		return in.Eval(n.Else, scope)
	}
	return nil, fmt.Errorf("unknown node type %T", node)
}

// Call invokes a macro or builtin.
func (in *Interpreter) Call(fn Value, args []Value, kwargs []Keyword) (Value, error) {
	switch f := fn.(type) {
	case *Function:
		bindings, err := f.bind(args, kwargs)
		if err != nil {
			return nil, err
		}
		if in.depth >= in.limits.MaxDepth {
			return nil, &LimitExceededError{Limit: "depth", Max: in.limits.MaxDepth}
		}
		in.depth++
		defer func() { in.depth-- }()
		return in.Eval(f.Body, Layered(bindings, f.Scope))
	case *Builtin:
		return f.Fn(args, kwargs)
	}
	return nil, &TypeError{Msg: fmt.Sprintf("%s is not callable", fn.Kind())}
}
