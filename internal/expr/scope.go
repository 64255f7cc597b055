package expr

import (
	"fmt"
	"slices"
	"strings"
)

// Scope resolves names during evaluation.
type Scope interface {
	Lookup(name string) (Value, bool)
}

// Bindings is a flat scope, used for call-time parameter bindings.
type Bindings map[string]Value

func (b Bindings) Lookup(name string) (Value, bool) {
	v, ok := b[name]
	return v, ok
}

// layered resolves names against each scope in turn.
type layered []Scope

func (l layered) Lookup(name string) (Value, bool) {
	for _, s := range l {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Layered returns a scope that consults scopes in order; the first hit
// wins. Nil scopes are skipped.
func Layered(scopes ...Scope) Scope {
	return layered(scopes)
}

// Namespace is a named set of values: a compiled package, a builtin module
// like math, or a whole compiled scope level. Reads see values added after
// a function captured the namespace, which is how sibling macros reach each
// other.
type Namespace struct {
	name   string
	values map[string]Value
}

// NewNamespace creates an empty namespace.
func NewNamespace(name string) *Namespace {
	return &Namespace{name: name, values: make(map[string]Value)}
}

func (*Namespace) value()       {}
func (*Namespace) Kind() string { return "namespace" }

func (ns *Namespace) String() string {
	return fmt.Sprintf("<namespace %s>", ns.name)
}

// Name returns the namespace's own name.
func (ns *Namespace) Name() string {
	return ns.name
}

// Lookup returns the value bound to name.
func (ns *Namespace) Lookup(name string) (Value, bool) {
	v, ok := ns.values[name]
	return v, ok
}

// Has reports whether name is bound.
func (ns *Namespace) Has(name string) bool {
	_, ok := ns.values[name]
	return ok
}

// Set binds name to v, replacing any previous binding.
func (ns *Namespace) Set(name string, v Value) {
	ns.values[name] = v
}

// Len returns the number of bindings.
func (ns *Namespace) Len() int {
	return len(ns.values)
}

// Names returns the bound names in sorted order.
func (ns *Namespace) Names() []string {
	names := make([]string, 0, len(ns.values))
	for k := range ns.values {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Param is a declared macro parameter.
type Param struct {
	Name        string
	Default     Value // nil when the parameter is required
	KeywordOnly bool  // Declared after the variadic parameter
}

func (p Param) String() string {
	if p.Default == nil {
		return p.Name
	}
	return p.Name + "=" + p.Default.String()
}

// Function is a compiled macro: a parsed formula body plus its parameter
// list. Scope is the definition scope, consulted below the call bindings.
type Function struct {
	Name     string
	ID       string
	Params   []Param
	Variadic string // Name of the *args parameter, "" if none
	Formula  string
	Body     Node
	Scope    Scope
}

func (*Function) value()       {}
func (*Function) Kind() string { return "function" }

func (f *Function) String() string {
	return fmt.Sprintf("<macro %s(%s)>", f.Name, strings.Join(f.Signature(), ", "))
}

// Signature returns the parameter declarations in order, variadic included.
func (f *Function) Signature() []string {
	var sig []string
	for _, p := range f.Params {
		if p.KeywordOnly {
			continue
		}
		sig = append(sig, p.String())
	}
	if f.Variadic != "" {
		sig = append(sig, "*"+f.Variadic)
	}
	for _, p := range f.Params {
		if p.KeywordOnly {
			sig = append(sig, p.String())
		}
	}
	return sig
}

// Arity returns the minimum positional argument count and the maximum, or
// -1 when the function is variadic.
func (f *Function) Arity() (lo, hi int) {
	for _, p := range f.Params {
		if p.KeywordOnly {
			continue
		}
		hi++
		if p.Default == nil {
			lo = hi
		}
	}
	if f.Variadic != "" {
		hi = -1
	}
	return lo, hi
}

// CheckArgs reports whether a call with the given positional argument count
// and keyword names would bind.
func (f *Function) CheckArgs(positional int, keywords []string) error {
	args := make([]Value, positional)
	for i := range args {
		args[i] = Int(0)
	}
	kws := make([]Keyword, len(keywords))
	for i, k := range keywords {
		kws[i] = Keyword{Name: k, Value: Int(0)}
	}
	_, err := f.bind(args, kws)
	return err
}

// Keyword is an evaluated keyword argument.
type Keyword struct {
	Name  string
	Value Value
}

// bind maps call arguments onto parameters.
func (f *Function) bind(args []Value, kwargs []Keyword) (Bindings, error) {
	b := make(Bindings, len(f.Params)+1)
	i := 0
	for _, p := range f.Params {
		if p.KeywordOnly {
			continue
		}
		if i < len(args) {
			b[p.Name] = args[i]
			i++
		}
	}
	if f.Variadic != "" {
		rest := Tuple{}
		if i < len(args) {
			rest = append(rest, args[i:]...)
		}
		b[f.Variadic] = rest
	} else if i < len(args) {
		lo, hi := f.Arity()
		return nil, &ArgumentError{Func: f.Name, Msg: fmt.Sprintf("takes %s positional arguments but %d were given", arityText(lo, hi), len(args))}
	}

	for _, kw := range kwargs {
		p, ok := f.param(kw.Name)
		if !ok {
			return nil, &ArgumentError{Func: f.Name, Msg: fmt.Sprintf("got an unexpected keyword argument %q", kw.Name)}
		}
		if _, dup := b[p.Name]; dup {
			return nil, &ArgumentError{Func: f.Name, Msg: fmt.Sprintf("got multiple values for argument %q", kw.Name)}
		}
		b[p.Name] = kw.Value
	}

	for _, p := range f.Params {
		if _, ok := b[p.Name]; ok {
			continue
		}
		if p.Default == nil {
			return nil, &ArgumentError{Func: f.Name, Msg: fmt.Sprintf("missing required argument %q", p.Name)}
		}
		b[p.Name] = p.Default
	}
	return b, nil
}

func (f *Function) param(name string) (Param, bool) {
	for _, p := range f.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

func arityText(lo, hi int) string {
	if lo == hi {
		return fmt.Sprint(lo)
	}
	return fmt.Sprintf("from %d to %d", lo, hi)
}
