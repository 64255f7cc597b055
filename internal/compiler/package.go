package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/ir"
)

// CompilePackage builds the namespace for pkg.
//
// Dependencies compile first, in declaration order, and their exposed names
// merge into the package namespace. The first name exposed twice is
// rejected with NameAlreadyUsedError unless both entries are the same macro
// (a dependency reached through two paths). Own macros then compile against
// the merged names, their siblings and scope; they may not reuse any of
// those names. A package without macros exposes only its dependencies.
func (c *Compiler) CompilePackage(pkg ir.Package, scope expr.Scope) (*expr.Namespace, error) {
	if rec, ok := c.packages[pkg.ID]; ok && pkg.ID != "" {
		pkg = rec
	}
	if ns, ok := c.built[pkg.ID]; ok && pkg.ID != "" {
		return ns, nil
	}
	if pkg.ID != "" {
		if i := slices.Index(c.building, pkg.ID); i >= 0 {
			path := append(slices.Clone(c.building[i:]), pkg.ID)
			return nil, &DependencyCycleError{Path: path}
		}
		c.building = append(c.building, pkg.ID)
		defer func() { c.building = c.building[:len(c.building)-1] }()
	}

	if err := ValidateName(pkg.Name); err != nil {
		return nil, err
	}

	ns := expr.NewNamespace(pkg.Name)
	for _, dep := range pkg.Dependencies {
		depNS, err := c.CompilePackage(dep, scope)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", pkg.Name, err)
		}
		for _, name := range depNS.Names() {
			v, _ := depNS.Lookup(name)
			if prev, ok := ns.Lookup(name); ok {
				if sameMacro(prev, v) {
					continue
				}
				return nil, &NameAlreadyUsedError{Name: name, Scope: pkg.Name}
			}
			ns.Set(name, v)
		}
	}

	if err := c.compileLevel(pkg.Name, ns, scope, pkg.Macros); err != nil {
		return nil, fmt.Errorf("package %s: %w", pkg.Name, err)
	}
	if pkg.ID != "" {
		c.built[pkg.ID] = ns
	}
	return ns, nil
}

// compileLevel compiles macros into level. Every macro sees level layered
// over outer, so siblings and the macro itself resolve late, after the
// level is complete. Self tests run once the whole level is sealed.
func (c *Compiler) compileLevel(scopeName string, level *expr.Namespace, outer expr.Scope, macros []ir.Macro) error {
	inner := expr.Layered(level, outer)
	fns := make([]*expr.Function, 0, len(macros))
	for _, m := range macros {
		if level.Has(m.Name) || c.builtins.Has(m.Name) {
			return &NameAlreadyUsedError{Name: m.Name, Scope: scopeName}
		}
		fn, err := c.CompileMacro(m, inner)
		if err != nil {
			return err
		}
		level.Set(m.Name, fn)
		fns = append(fns, fn)
	}

	if c.tester == nil {
		return nil
	}
	for _, fn := range fns {
		if err := c.tester.Test(fn); err != nil {
			return &BuildError{Macro: fn.Name, ID: fn.ID, Stage: StageSelfTest, Err: err}
		}
	}
	return nil
}

// sameMacro reports whether a and b are the same compiled macro.
func sameMacro(a, b expr.Value) bool {
	fa, ok1 := a.(*expr.Function)
	fb, ok2 := b.(*expr.Function)
	if !ok1 || !ok2 {
		return false
	}
	return fa == fb || (fa.ID != "" && fa.ID == fb.ID && fa.Formula == fb.Formula)
}
