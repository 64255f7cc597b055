package harness

import (
	"fmt"

	"github.com/roach88/swirl/internal/expr"
)

// StaticError reports a problem found in a formula without running it.
type StaticError struct {
	Macro string
	Err   error
}

func (e *StaticError) Error() string {
	return fmt.Sprintf("%s: %v", e.Macro, e.Err)
}

func (e *StaticError) Unwrap() error {
	return e.Err
}

// StaticCheck verifies that every free name in fn's formula is a parameter
// or resolves in fn's scope, and that calls to macros pass an argument
// count their signature accepts.
func StaticCheck(fn *expr.Function) error {
	params := make(map[string]bool, len(fn.Params)+1)
	for _, p := range fn.Params {
		params[p.Name] = true
	}
	if fn.Variadic != "" {
		params[fn.Variadic] = true
	}

	for _, name := range expr.FreeNames(fn.Body) {
		if params[name] {
			continue
		}
		if _, ok := fn.Scope.Lookup(name); !ok {
			return &StaticError{Macro: fn.Name, Err: &expr.NameNotDefinedError{Name: name}}
		}
	}

	var err error
	expr.Walk(fn.Body, func(n expr.Node) bool {
		if err != nil {
			return false
		}
		if attr, ok := n.(expr.Attribute); ok {
			if ns, ok := resolveNamespace(attr.X, fn.Scope, params); ok && !ns.Has(attr.Ident) {
				err = &StaticError{Macro: fn.Name, Err: &expr.NameNotDefinedError{Name: ns.Name() + "." + attr.Ident}}
				return false
			}
			return true
		}
		call, ok := n.(expr.Call)
		if !ok {
			return true
		}
		callee := resolveCallee(call.Func, fn.Scope, params)
		if callee == nil {
			return true
		}
		keywords := make([]string, len(call.Keywords))
		for i, kw := range call.Keywords {
			keywords[i] = kw.Name
		}
		if cerr := callee.CheckArgs(len(call.Args), keywords); cerr != nil {
			err = &StaticError{Macro: fn.Name, Err: cerr}
			return false
		}
		return true
	})
	return err
}

// resolveCallee returns the macro a call expression targets when it can be
// known statically: a plain name or a namespace attribute chain.
func resolveCallee(n expr.Node, scope expr.Scope, params map[string]bool) *expr.Function {
	var v expr.Value
	switch n := n.(type) {
	case expr.Name:
		if params[n.Ident] {
			return nil
		}
		var ok bool
		if v, ok = scope.Lookup(n.Ident); !ok {
			return nil
		}
	case expr.Attribute:
		ns, ok := resolveNamespace(n.X, scope, params)
		if !ok {
			return nil
		}
		if v, ok = ns.Lookup(n.Ident); !ok {
			return nil
		}
	default:
		return nil
	}
	fn, _ := v.(*expr.Function)
	return fn
}

func resolveNamespace(n expr.Node, scope expr.Scope, params map[string]bool) (*expr.Namespace, bool) {
	var v expr.Value
	switch n := n.(type) {
	case expr.Name:
		if params[n.Ident] {
			return nil, false
		}
		var ok bool
		if v, ok = scope.Lookup(n.Ident); !ok {
			return nil, false
		}
	case expr.Attribute:
		parent, ok := resolveNamespace(n.X, scope, params)
		if !ok {
			return nil, false
		}
		if v, ok = parent.Lookup(n.Ident); !ok {
			return nil, false
		}
	default:
		return nil, false
	}
	ns, ok := v.(*expr.Namespace)
	return ns, ok
}
