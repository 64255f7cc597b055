package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/ir"
)

// Scope is a compiled scope: top-level packages and macros by name, layered
// over an immutable builtins registry.
type Scope struct {
	Names    *expr.Namespace
	Builtins *expr.Registry
}

// NewScope creates an empty scope over builtins.
func NewScope(builtins *expr.Registry) *Scope {
	return &Scope{Names: expr.NewNamespace(""), Builtins: builtins}
}

// Lookup resolves name against the top-level names, then the builtins.
func (s *Scope) Lookup(name string) (expr.Value, bool) {
	if v, ok := s.Names.Lookup(name); ok {
		return v, true
	}
	return s.Builtins.Lookup(name)
}

// Evaluate evaluates src against the scope.
func (s *Scope) Evaluate(src string, limits expr.Limits) (expr.Value, error) {
	return expr.EvaluateWithLimits(src, s, limits)
}

// CompileEnvironment builds every package, then every top-level macro
// against the union of package namespaces and builtins. The first failure
// aborts the build; no partial scope is returned.
func (c *Compiler) CompileEnvironment(env ir.Environment) (*Scope, error) {
	s := NewScope(c.builtins)
	for _, pkg := range env.Packages {
		if s.Names.Has(pkg.Name) || c.builtins.Has(pkg.Name) {
			return nil, &NameAlreadyUsedError{Name: pkg.Name}
		}
		ns, err := c.CompilePackage(pkg, c.builtins)
		if err != nil {
			return nil, err
		}
		s.Names.Set(pkg.Name, ns)
	}
	if err := c.compileLevel("", s.Names, c.builtins, env.Macros); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot kinds.
const (
	snapshotMacro     = "macro"
	snapshotNamespace = "namespace"
)

// Snapshot serializes the scope as canonical JSON. Macros are stored as
// their signature and formula; Relink reparses them. Equal scopes produce
// equal bytes.
func (s *Scope) Snapshot() ([]byte, error) {
	names, err := snapshotNames(s.Names)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(names)
}

func snapshotNames(ns *expr.Namespace) (map[string]any, error) {
	out := make(map[string]any, ns.Len())
	for _, name := range ns.Names() {
		v, _ := ns.Lookup(name)
		switch v := v.(type) {
		case *expr.Function:
			out[name] = map[string]any{
				"kind":    snapshotMacro,
				"id":      v.ID,
				"params":  v.Signature(),
				"formula": v.Formula,
			}
		case *expr.Namespace:
			names, err := snapshotNames(v)
			if err != nil {
				return nil, err
			}
			out[name] = map[string]any{
				"kind":  snapshotNamespace,
				"names": names,
			}
		default:
			return nil, fmt.Errorf("snapshot %s: unsupported value %s", name, v.Kind())
		}
	}
	return out, nil
}

type snapshotEntry struct {
	Kind    string                   `json:"kind"`
	ID      string                   `json:"id"`
	Params  []string                 `json:"params"`
	Formula string                   `json:"formula"`
	Names   map[string]snapshotEntry `json:"names"`
}

// Relink rebuilds a scope from a Snapshot. Formulas are reparsed and bound,
// but nothing is validated against records or self tested again.
func Relink(data []byte, builtins *expr.Registry) (*Scope, error) {
	var entries map[string]snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("relink: %w", err)
	}
	ns, err := relinkNamespace("", entries, builtins)
	if err != nil {
		return nil, err
	}
	return &Scope{Names: ns, Builtins: builtins}, nil
}

// relinkNamespace binds each macro against the namespace that contains it,
// mirroring how compileLevel bound it originally.
func relinkNamespace(name string, entries map[string]snapshotEntry, builtins *expr.Registry) (*expr.Namespace, error) {
	ns := expr.NewNamespace(name)
	scope := expr.Layered(ns, builtins)
	for _, key := range ir.SortedKeys(entries) {
		e := entries[key]
		switch e.Kind {
		case snapshotMacro:
			params, variadic, err := ParseParams(e.Params)
			if err != nil {
				return nil, fmt.Errorf("relink %s: %w", key, err)
			}
			body, err := expr.Parse(e.Formula)
			if err != nil {
				return nil, fmt.Errorf("relink %s: %w", key, err)
			}
			ns.Set(key, &expr.Function{
				Name:     key,
				ID:       e.ID,
				Params:   params,
				Variadic: variadic,
				Formula:  e.Formula,
				Body:     body,
				Scope:    scope,
			})
		case snapshotNamespace:
			child, err := relinkNamespace(key, e.Names, builtins)
			if err != nil {
				return nil, err
			}
			ns.Set(key, child)
		default:
			return nil, fmt.Errorf("relink %s: unknown kind %q", key, e.Kind)
		}
	}
	return ns, nil
}
