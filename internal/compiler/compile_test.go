package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/ir"
)

func macro(name, formula string, vars ...string) ir.Macro {
	return ir.Macro{OwnerID: "owner", Name: name, Variables: vars, Formula: formula}.WithDerivedID()
}

func call(t *testing.T, s *Scope, src string) expr.Value {
	t.Helper()
	v, err := s.Evaluate(src, expr.DefaultLimits)
	require.NoError(t, err, src)
	return v
}

// recordingTester records tested macros and fails the named ones.
type recordingTester struct {
	tested []string
	fail   map[string]error
}

func (r *recordingTester) Test(fn *expr.Function) error {
	r.tested = append(r.tested, fn.Name)
	return r.fail[fn.Name]
}

// =============================================================================
// Macro Compilation Tests
// =============================================================================

func TestCompileMacro(t *testing.T) {
	c := New(expr.DefaultRegistry())
	fn, err := c.CompileMacro(macro("scale", "x * by", "x", "by=2"), c.Builtins())
	require.NoError(t, err)

	assert.Equal(t, "scale", fn.Name)
	assert.Equal(t, ir.MacroID("owner", "scale"), fn.ID)
	assert.Equal(t, []string{"x", "by=2"}, fn.Signature())

	v, err := expr.NewInterpreter(expr.DefaultLimits).Call(fn, []expr.Value{expr.Int(21)}, nil)
	require.NoError(t, err)
	assert.Equal(t, expr.Int(42), v)
}

func TestCompileMacroValidationErrors(t *testing.T) {
	c := New(expr.DefaultRegistry())
	_, err := c.CompileMacro(macro("if", "1", "$x"), c.Builtins())
	require.Error(t, err)

	var ke *KeywordNameError
	var ie *InvalidNameError
	assert.ErrorAs(t, err, &ke)
	assert.ErrorAs(t, err, &ie)
}

func TestCompileMacroSyntaxError(t *testing.T) {
	c := New(expr.DefaultRegistry())
	_, err := c.CompileMacro(macro("broken", "n +", "n"), c.Builtins())

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, StageParse, be.Stage)
	assert.Equal(t, "broken", be.Macro)

	var ie *expr.InvalidExpressionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "n +", ie.Expr)
}

func TestParseParams(t *testing.T) {
	params, variadic, err := ParseParams([]string{"a", "b = 2.5", "*rest", "flag=True"})
	require.NoError(t, err)
	assert.Equal(t, "rest", variadic)
	assert.Equal(t, []expr.Param{
		{Name: "a"},
		{Name: "b", Default: expr.Float(2.5)},
		{Name: "flag", Default: expr.Bool(true), KeywordOnly: true},
	}, params)
}

func TestParseParamsErrors(t *testing.T) {
	tests := []struct {
		name string
		vars []string
	}{
		{"duplicate", []string{"n", "n"}},
		{"duplicate variadic name", []string{"n", "*n"}},
		{"two variadics", []string{"*a", "*b"}},
		{"required after default", []string{"a=1", "b"}},
		{"invalid", []string{"1x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseParams(tt.vars)
			assert.Error(t, err)
		})
	}
}

// =============================================================================
// Package Compilation Tests
// =============================================================================

func sciencePackage() ir.Package {
	p := ir.Package{ID: ir.PackageID("owner", "science"), OwnerID: "owner", Name: "science"}
	p.Macros = []ir.Macro{
		macro("square", "x ** 2", "x"),
		macro("cube", "x * square(x)", "x"),
	}
	return p
}

func TestCompilePackage(t *testing.T) {
	c := New(expr.DefaultRegistry())
	ns, err := c.CompilePackage(sciencePackage(), c.Builtins())
	require.NoError(t, err)
	assert.Equal(t, []string{"cube", "square"}, ns.Names())

	v, err := expr.Evaluate("science.cube(3)", expr.Layered(expr.Bindings{"science": ns}, c.Builtins()))
	require.NoError(t, err)
	assert.Equal(t, expr.Int(27), v)
}

// TestCompilePackageWithDependency tests that a package exposes its
// dependency's names alongside its own.
func TestCompilePackageWithDependency(t *testing.T) {
	mk := ir.Package{ID: ir.PackageID("owner", "mk"), OwnerID: "owner", Name: "mk"}
	mk.Dependencies = []ir.Package{sciencePackage()}
	mk.Macros = []ir.Macro{macro("hyper", "cube(x) + square(x)", "x")}

	c := New(expr.DefaultRegistry())
	ns, err := c.CompilePackage(mk, c.Builtins())
	require.NoError(t, err)
	assert.Equal(t, []string{"cube", "hyper", "square"}, ns.Names())

	scope := expr.Layered(expr.Bindings{"mk": ns}, c.Builtins())
	v, err := expr.Evaluate("mk.hyper(2) + mk.square(3)", scope)
	require.NoError(t, err)
	assert.Equal(t, expr.Int(21), v)
}

// TestCompilePackageNoMacros tests that an empty package re-exports its dependencies.
func TestCompilePackageNoMacros(t *testing.T) {
	wrapper := ir.Package{ID: "wrapper", Name: "wrapper", Dependencies: []ir.Package{sciencePackage()}}

	c := New(expr.DefaultRegistry())
	ns, err := c.CompilePackage(wrapper, c.Builtins())
	require.NoError(t, err)
	assert.Equal(t, []string{"cube", "square"}, ns.Names())
}

func TestCompilePackageDependencyConflict(t *testing.T) {
	other := ir.Package{ID: "other", Name: "other", Macros: []ir.Macro{
		{OwnerID: "someone", Name: "square", Variables: []string{"x"}, Formula: "x * x"},
	}}
	other.Macros[0] = other.Macros[0].WithDerivedID()
	p := ir.Package{ID: "p", Name: "p", Dependencies: []ir.Package{sciencePackage(), other}}

	c := New(expr.DefaultRegistry())
	_, err := c.CompilePackage(p, c.Builtins())

	var ne *NameAlreadyUsedError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "square", ne.Name)
	assert.Equal(t, "p", ne.Scope)
}

// TestCompilePackageDiamond tests that one package reached through two
// dependencies is not a conflict and is built once.
func TestCompilePackageDiamond(t *testing.T) {
	left := ir.Package{ID: "left", Name: "left", Dependencies: []ir.Package{sciencePackage()}}
	right := ir.Package{ID: "right", Name: "right", Dependencies: []ir.Package{sciencePackage()}}
	top := ir.Package{ID: "top", Name: "top", Dependencies: []ir.Package{left, right}}

	tester := &recordingTester{}
	c := New(expr.DefaultRegistry(), WithTester(tester))
	ns, err := c.CompilePackage(top, c.Builtins())
	require.NoError(t, err)
	assert.Equal(t, []string{"cube", "square"}, ns.Names())
	assert.Equal(t, []string{"square", "cube"}, tester.tested)
}

func TestCompilePackageOwnMacroCollisions(t *testing.T) {
	tests := []struct {
		name   string
		macros []ir.Macro
		deps   []ir.Package
	}{
		{"sibling", []ir.Macro{macro("f", "1"), macro("f", "2")}, nil},
		{"dependency", []ir.Macro{macro("square", "1")}, []ir.Package{sciencePackage()}},
		{"builtin", []ir.Macro{macro("abs", "1")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ir.Package{ID: "p", Name: "p", Macros: tt.macros, Dependencies: tt.deps}
			c := New(expr.DefaultRegistry())
			_, err := c.CompilePackage(p, c.Builtins())
			assert.True(t, IsNameAlreadyUsed(err), "got %v", err)
		})
	}
}

func TestCompilePackageReferenceCycle(t *testing.T) {
	a := ir.Package{ID: "a", Name: "a", Dependencies: []ir.Package{{ID: "b"}}}
	b := ir.Package{ID: "b", Name: "b", Dependencies: []ir.Package{{ID: "a"}}}

	c := New(expr.DefaultRegistry(), WithPackages([]ir.Package{a, b}))
	_, err := c.CompilePackage(a, c.Builtins())

	var ce *DependencyCycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"a", "b", "a"}, ce.Path)
}

func TestCompilePackageSelfTestFailure(t *testing.T) {
	tester := &recordingTester{fail: map[string]error{"cube": errors.New("boom")}}
	c := New(expr.DefaultRegistry(), WithTester(tester))
	_, err := c.CompilePackage(sciencePackage(), c.Builtins())

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, StageSelfTest, be.Stage)
	assert.Equal(t, "cube", be.Macro)
	assert.EqualError(t, be.Err, "boom")
}

// =============================================================================
// Environment Compilation Tests
// =============================================================================

func TestCompileEnvironment(t *testing.T) {
	env := ir.Environment{
		Packages: []ir.Package{sciencePackage()},
		Macros: []ir.Macro{
			macro("addOne", "n + 1", "n"),
			macro("factorial", "1 if num <= 1 else num*factorial(num-1)", "num"),
			macro("useScience", "science.square(n) + addOne(n)", "n"),
		},
	}

	tester := &recordingTester{}
	c := New(expr.DefaultRegistry(), WithTester(tester))
	s, err := c.CompileEnvironment(env)
	require.NoError(t, err)

	assert.Equal(t, expr.Int(6), call(t, s, "addOne(5)"))
	assert.Equal(t, expr.Int(120), call(t, s, "factorial(5)"))
	assert.Equal(t, expr.Int(31), call(t, s, "useScience(5)"))
	assert.Equal(t, expr.Int(8), call(t, s, "abs(-8)"))
	assert.Equal(t, []string{"square", "cube", "addOne", "factorial", "useScience"}, tester.tested)
}

func TestCompileEnvironmentCollisions(t *testing.T) {
	tests := []struct {
		name string
		env  ir.Environment
	}{
		{"duplicate macro", ir.Environment{Macros: []ir.Macro{macro("f", "1"), macro("f", "2")}}},
		{"macro shadows package", ir.Environment{
			Packages: []ir.Package{sciencePackage()},
			Macros:   []ir.Macro{macro("science", "1")},
		}},
		{"duplicate package", ir.Environment{Packages: []ir.Package{sciencePackage(), sciencePackage()}}},
		{"package shadows builtin", ir.Environment{Packages: []ir.Package{{ID: "m", Name: "math"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(expr.DefaultRegistry())
			s, err := c.CompileEnvironment(tt.env)
			assert.Nil(t, s)
			assert.True(t, IsNameAlreadyUsed(err), "got %v", err)
		})
	}
}

// =============================================================================
// Snapshot Tests
// =============================================================================

func TestSnapshotRelinkRoundTrip(t *testing.T) {
	env := ir.Environment{
		Packages: []ir.Package{sciencePackage()},
		Macros: []ir.Macro{
			macro("addOne", "n + 1", "n"),
			macro("total", "sum(xs) * k", "*xs", "k=2"),
		},
	}
	c := New(expr.DefaultRegistry())
	s, err := c.CompileEnvironment(env)
	require.NoError(t, err)

	data, err := s.Snapshot()
	require.NoError(t, err)

	relinked, err := Relink(data, expr.DefaultRegistry())
	require.NoError(t, err)

	again, err := relinked.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))

	assert.Equal(t, expr.Int(6), call(t, relinked, "addOne(5)"))
	assert.Equal(t, expr.Int(12), call(t, relinked, "total(1, 2, 3)"))
	assert.Equal(t, expr.Int(27), call(t, relinked, "science.cube(3)"))
}

func TestSnapshotFormat(t *testing.T) {
	c := New(expr.DefaultRegistry())
	s, err := c.CompileEnvironment(ir.Environment{Macros: []ir.Macro{macro("addOne", "n + 1", "n")}})
	require.NoError(t, err)

	data, err := s.Snapshot()
	require.NoError(t, err)
	want := `{"addOne":{"formula":"n + 1","id":"` + ir.MacroID("owner", "addOne") + `","kind":"macro","params":["n"]}}`
	assert.Equal(t, want, string(data))
}

func TestRelinkRejectsUnknownKind(t *testing.T) {
	_, err := Relink([]byte(`{"x":{"kind":"mystery"}}`), expr.DefaultRegistry())
	assert.Error(t, err)

	_, err = Relink([]byte(`not json`), expr.DefaultRegistry())
	assert.Error(t, err)
}
