package expr

import (
	"fmt"
	"math"
	"slices"
)

// BuiltinFunc implements a builtin.
type BuiltinFunc func(args []Value, kwargs []Keyword) (Value, error)

// Builtin is a host-implemented callable.
type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

func (*Builtin) value()       {}
func (*Builtin) Kind() string { return "builtin" }

func (b *Builtin) String() string {
	return fmt.Sprintf("<builtin %s>", b.Name)
}

// Registry is the immutable set of names available to every formula. It is
// always the outermost scope layer, so user names may not shadow it.
type Registry struct {
	values map[string]Value
}

// Lookup returns the builtin bound to name.
func (r *Registry) Lookup(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Has reports whether name is a builtin.
func (r *Registry) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Names returns the builtin names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.values))
	for k := range r.values {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// NewRegistry builds a registry from the given builtins and namespaces.
func NewRegistry(builtins []*Builtin, namespaces ...*Namespace) *Registry {
	r := &Registry{values: make(map[string]Value, len(builtins)+len(namespaces))}
	for _, b := range builtins {
		r.values[b.Name] = b
	}
	for _, ns := range namespaces {
		r.values[ns.Name()] = ns
	}
	return r
}

// DefaultRegistry returns the standard builtins: abs, min, max, round, int,
// float, bool, pow, sqrt, floor, ceil, sum, len and the math namespace.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultBuiltins(), mathNamespace())
}

func defaultBuiltins() []*Builtin {
	return []*Builtin{
		{Name: "abs", Fn: builtinAbs},
		{Name: "min", Fn: extremum("min", -1)},
		{Name: "max", Fn: extremum("max", 1)},
		{Name: "round", Fn: builtinRound},
		{Name: "int", Fn: builtinInt},
		{Name: "float", Fn: unaryFloat("float", func(f float64) float64 { return f })},
		{Name: "bool", Fn: builtinBool},
		{Name: "pow", Fn: builtinPow},
		{Name: "sqrt", Fn: builtinSqrt},
		{Name: "floor", Fn: rounding("floor", math.Floor)},
		{Name: "ceil", Fn: rounding("ceil", math.Ceil)},
		{Name: "sum", Fn: builtinSum},
		{Name: "len", Fn: builtinLen},
	}
}

func mathNamespace() *Namespace {
	ns := NewNamespace("math")
	ns.Set("pi", Float(math.Pi))
	ns.Set("e", Float(math.E))
	ns.Set("tau", Float(2*math.Pi))
	ns.Set("inf", Float(math.Inf(1)))
	for _, b := range []*Builtin{
		{Name: "sin", Fn: unaryFloat("sin", math.Sin)},
		{Name: "cos", Fn: unaryFloat("cos", math.Cos)},
		{Name: "tan", Fn: unaryFloat("tan", math.Tan)},
		{Name: "exp", Fn: builtinExp},
		{Name: "log", Fn: builtinLog},
		{Name: "sqrt", Fn: builtinSqrt},
		{Name: "floor", Fn: rounding("floor", math.Floor)},
		{Name: "ceil", Fn: rounding("ceil", math.Ceil)},
		{Name: "fabs", Fn: unaryFloat("fabs", math.Abs)},
	} {
		ns.Set(b.Name, b)
	}
	return ns
}

func noKeywords(name string, kwargs []Keyword) error {
	if len(kwargs) > 0 {
		return &ArgumentError{Func: name, Msg: "takes no keyword arguments"}
	}
	return nil
}

func exactArgs(name string, args []Value, kwargs []Keyword, n int) error {
	if err := noKeywords(name, kwargs); err != nil {
		return err
	}
	if len(args) != n {
		return &ArgumentError{Func: name, Msg: fmt.Sprintf("takes exactly %d argument(s) (%d given)", n, len(args))}
	}
	return nil
}

func numberArg(name string, v Value) (float64, error) {
	f, ok := asFloat(v)
	if !ok {
		return 0, &TypeError{Msg: fmt.Sprintf("%s() argument must be a number, not %s", name, v.Kind())}
	}
	return f, nil
}

func floatToInt(name string, f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &ArgumentError{Func: name, Msg: fmt.Sprintf("cannot convert %s to integer", FormatFloat(f))}
	}
	if f >= 9.223372036854775807e18 || f < -9.223372036854775808e18 {
		return nil, &OverflowError{Op: name}
	}
	return Int(int64(f)), nil
}

func builtinAbs(args []Value, kwargs []Keyword) (Value, error) {
	if err := exactArgs("abs", args, kwargs, 1); err != nil {
		return nil, err
	}
	if i, ok := asInt(args[0]); ok {
		if i < 0 {
			return unaryOp("-", Int(i))
		}
		return Int(i), nil
	}
	if f, ok := args[0].(Float); ok {
		return Float(math.Abs(float64(f))), nil
	}
	return nil, &TypeError{Msg: fmt.Sprintf("bad operand type for abs(): %s", args[0].Kind())}
}

// extremum implements min (sign -1) and max (sign 1). A single tuple
// argument is iterated.
func extremum(name string, sign int) BuiltinFunc {
	return func(args []Value, kwargs []Keyword) (Value, error) {
		if err := noKeywords(name, kwargs); err != nil {
			return nil, err
		}
		items := args
		if len(args) == 1 {
			t, ok := args[0].(Tuple)
			if !ok {
				return nil, &TypeError{Msg: fmt.Sprintf("%s object is not iterable", args[0].Kind())}
			}
			items = t
		}
		if len(items) == 0 {
			return nil, &ArgumentError{Func: name, Msg: "arg is an empty sequence"}
		}
		best := items[0]
		for _, v := range items[1:] {
			op := "<"
			if sign > 0 {
				op = ">"
			}
			better, err := compare(op, v, best)
			if err != nil {
				return nil, err
			}
			if better {
				best = v
			}
		}
		return best, nil
	}
}

// builtinRound rounds half to even. Without ndigits the result is an int.
func builtinRound(args []Value, kwargs []Keyword) (Value, error) {
	var ndigits Value
	for _, kw := range kwargs {
		if kw.Name != "ndigits" {
			return nil, &ArgumentError{Func: "round", Msg: fmt.Sprintf("got an unexpected keyword argument %q", kw.Name)}
		}
		ndigits = kw.Value
	}
	switch {
	case len(args) == 2 && ndigits == nil:
		ndigits = args[1]
	case len(args) != 1:
		return nil, &ArgumentError{Func: "round", Msg: fmt.Sprintf("takes 1 or 2 arguments (%d given)", len(args))}
	}

	x := args[0]
	if ndigits == nil {
		if i, ok := asInt(x); ok {
			return Int(i), nil
		}
		f, err := numberArg("round", x)
		if err != nil {
			return nil, err
		}
		return floatToInt("round", math.RoundToEven(f))
	}

	n, ok := asInt(ndigits)
	if !ok {
		return nil, &TypeError{Msg: fmt.Sprintf("round() ndigits must be an integer, not %s", ndigits.Kind())}
	}
	if i, ok := asInt(x); ok {
		if n >= 0 {
			return Int(i), nil
		}
		if n < -18 {
			return Int(0), nil
		}
		p, _ := powInt(10, -n)
		pow := int64(p.(Int))
		q := Float(float64(i) / float64(pow))
		return mulInt(int64(math.RoundToEven(float64(q))), pow)
	}
	f, err := numberArg("round", x)
	if err != nil {
		return nil, err
	}
	if n > 308 {
		return Float(f), nil
	}
	scale := math.Pow(10, float64(n))
	r := math.RoundToEven(f*scale) / scale
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return Float(f), nil
	}
	return Float(r), nil
}

func builtinInt(args []Value, kwargs []Keyword) (Value, error) {
	if err := noKeywords("int", kwargs); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Int(0), nil
	}
	if len(args) != 1 {
		return nil, &ArgumentError{Func: "int", Msg: fmt.Sprintf("takes at most 1 argument (%d given)", len(args))}
	}
	if i, ok := asInt(args[0]); ok {
		return Int(i), nil
	}
	f, err := numberArg("int", args[0])
	if err != nil {
		return nil, err
	}
	return floatToInt("int", math.Trunc(f))
}

func builtinBool(args []Value, kwargs []Keyword) (Value, error) {
	if err := noKeywords("bool", kwargs); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Bool(false), nil
	}
	if len(args) != 1 {
		return nil, &ArgumentError{Func: "bool", Msg: fmt.Sprintf("takes at most 1 argument (%d given)", len(args))}
	}
	return Bool(Truthy(args[0])), nil
}

func builtinPow(args []Value, kwargs []Keyword) (Value, error) {
	if err := exactArgs("pow", args, kwargs, 2); err != nil {
		return nil, err
	}
	return binaryOp("**", args[0], args[1])
}

func builtinSqrt(args []Value, kwargs []Keyword) (Value, error) {
	if err := exactArgs("sqrt", args, kwargs, 1); err != nil {
		return nil, err
	}
	f, err := numberArg("sqrt", args[0])
	if err != nil {
		return nil, err
	}
	if f < 0 {
		return nil, &ArgumentError{Func: "sqrt", Msg: "math domain error"}
	}
	return Float(math.Sqrt(f)), nil
}

func builtinExp(args []Value, kwargs []Keyword) (Value, error) {
	if err := exactArgs("exp", args, kwargs, 1); err != nil {
		return nil, err
	}
	f, err := numberArg("exp", args[0])
	if err != nil {
		return nil, err
	}
	r := math.Exp(f)
	if math.IsInf(r, 1) && !math.IsInf(f, 1) {
		return nil, &OverflowError{Op: "exp"}
	}
	return Float(r), nil
}

// builtinLog is log(x) or log(x, base).
func builtinLog(args []Value, kwargs []Keyword) (Value, error) {
	if err := noKeywords("log", kwargs); err != nil {
		return nil, err
	}
	if len(args) != 1 && len(args) != 2 {
		return nil, &ArgumentError{Func: "log", Msg: fmt.Sprintf("takes 1 or 2 arguments (%d given)", len(args))}
	}
	x, err := numberArg("log", args[0])
	if err != nil {
		return nil, err
	}
	if x <= 0 {
		return nil, &ArgumentError{Func: "log", Msg: "math domain error"}
	}
	if len(args) == 1 {
		return Float(math.Log(x)), nil
	}
	base, err := numberArg("log", args[1])
	if err != nil {
		return nil, err
	}
	if base <= 0 {
		return nil, &ArgumentError{Func: "log", Msg: "math domain error"}
	}
	if base == 1 {
		return nil, ErrDivisionByZero
	}
	return Float(math.Log(x) / math.Log(base)), nil
}

func unaryFloat(name string, fn func(float64) float64) BuiltinFunc {
	return func(args []Value, kwargs []Keyword) (Value, error) {
		if err := exactArgs(name, args, kwargs, 1); err != nil {
			return nil, err
		}
		f, err := numberArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return Float(fn(f)), nil
	}
}

// rounding implements floor and ceil, which return ints.
func rounding(name string, fn func(float64) float64) BuiltinFunc {
	return func(args []Value, kwargs []Keyword) (Value, error) {
		if err := exactArgs(name, args, kwargs, 1); err != nil {
			return nil, err
		}
		if i, ok := asInt(args[0]); ok {
			return Int(i), nil
		}
		f, err := numberArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return floatToInt(name, fn(f))
	}
}

// builtinSum is sum(tuple) or sum(tuple, start).
func builtinSum(args []Value, kwargs []Keyword) (Value, error) {
	var start Value = Int(0)
	for _, kw := range kwargs {
		if kw.Name != "start" {
			return nil, &ArgumentError{Func: "sum", Msg: fmt.Sprintf("got an unexpected keyword argument %q", kw.Name)}
		}
		start = kw.Value
	}
	switch len(args) {
	case 2:
		start = args[1]
	case 1:
	default:
		return nil, &ArgumentError{Func: "sum", Msg: fmt.Sprintf("takes 1 or 2 arguments (%d given)", len(args))}
	}
	t, ok := args[0].(Tuple)
	if !ok {
		return nil, &TypeError{Msg: fmt.Sprintf("%s object is not iterable", args[0].Kind())}
	}
	total := start
	for _, v := range t {
		var err error
		if total, err = binaryOp("+", total, v); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func builtinLen(args []Value, kwargs []Keyword) (Value, error) {
	if err := exactArgs("len", args, kwargs, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case Tuple:
		return Int(len(v)), nil
	case *Namespace:
		return Int(v.Len()), nil
	}
	return nil, &TypeError{Msg: fmt.Sprintf("object of type %s has no len()", args[0].Kind())}
}
