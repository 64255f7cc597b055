package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/swirl/internal/compiler"
	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/ir"
	"github.com/roach88/swirl/internal/records"
)

const owner = "client@guest"

func macro(name, formula string, vars ...string) ir.Macro {
	return ir.Macro{OwnerID: owner, Name: name, Variables: vars, Formula: formula}.WithDerivedID()
}

func pkg(name string, macros []ir.Macro, deps ...ir.Package) ir.Package {
	return ir.Package{
		ID:           ir.PackageID(owner, name),
		OwnerID:      owner,
		Name:         name,
		DateCreated:  "2024-01-01",
		Macros:       macros,
		Dependencies: deps,
	}
}

func ref(p ir.Package) ir.Package {
	return ir.Package{ID: p.ID}
}

func fixedOpts(tokens ...string) Options {
	return Options{Generator: NewFixedGenerator(tokens...)}
}

func eval(t *testing.T, r *Result, src string) string {
	t.Helper()
	v, err := r.Scope.Evaluate(src, expr.DefaultLimits)
	require.NoError(t, err, src)
	return v.String()
}

func fixtureStore(t *testing.T) *records.Store {
	t.Helper()
	s, err := records.Open("testdata/swirlenv")
	require.NoError(t, err)
	return s
}

// =============================================================================
// Generator Tests
// =============================================================================

func TestUUIDv7Generator(t *testing.T) {
	token := UUIDv7Generator{}.Generate()
	parsed, err := uuid.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, token, UUIDv7Generator{}.Generate())
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

// =============================================================================
// Resolve Tests
// =============================================================================

// TestResolveMacros tests top-level macros calling each other and recursing.
func TestResolveMacros(t *testing.T) {
	env := ir.Environment{Macros: []ir.Macro{
		macro("addOne", "n + 1", "n"),
		macro("factorial", "1 if num <= 1 else num*factorial(num-1)", "num"),
		macro("twice", "addOne(addOne(n))", "n"),
	}}

	r, err := Resolve(context.Background(), env, fixedOpts("gen-1"))
	require.NoError(t, err)

	assert.Equal(t, "gen-1", r.Generation)
	assert.Equal(t, "gen-1", r.Environment.ID)
	assert.Empty(t, env.ID, "input environment is not modified")
	assert.Equal(t, "6", eval(t, r, "addOne(5)"))
	assert.Equal(t, "120", eval(t, r, "factorial(5)"))
	assert.Equal(t, "7", eval(t, r, "twice(5)"))
}

// TestResolvePackageDependency tests that a package exposes its
// dependency's names alongside its own.
func TestResolvePackageDependency(t *testing.T) {
	science := pkg("science", []ir.Macro{macro("square", "x ** 2", "x")})
	mk := pkg("mk", []ir.Macro{macro("cube", "x * square(x)", "x")}, science)

	r, err := Resolve(context.Background(), ir.Environment{Packages: []ir.Package{mk}}, fixedOpts("g"))
	require.NoError(t, err)

	assert.Equal(t, "27", eval(t, r, "mk.cube(3)"))
	assert.Equal(t, "9", eval(t, r, "mk.square(3)"))
	_, ok := r.Scope.Lookup("science")
	assert.False(t, ok, "inline dependencies are not exposed at the top level")
}

// TestResolveDependencyReference tests a dependency given by record id.
func TestResolveDependencyReference(t *testing.T) {
	science := pkg("science", []ir.Macro{macro("square", "x ** 2", "x")})
	mk := pkg("mk", nil, ref(science))

	r, err := Resolve(context.Background(), ir.Environment{Packages: []ir.Package{mk, science}}, fixedOpts("g"))
	require.NoError(t, err)
	assert.Equal(t, "16", eval(t, r, "mk.square(4)"))
	assert.Equal(t, "16", eval(t, r, "science.square(4)"))
}

func TestResolveEmpty(t *testing.T) {
	r, err := Resolve(context.Background(), ir.Environment{}, fixedOpts("g"))
	require.NoError(t, err)
	assert.NotNil(t, r.Environment.Packages)
	assert.NotNil(t, r.Environment.Macros)
	assert.Equal(t, "2", eval(t, r, "abs(-2)"))
}

// TestResolveDeterministic tests that an unchanged environment yields an
// identical scope.
func TestResolveDeterministic(t *testing.T) {
	env := ir.Environment{
		Packages: []ir.Package{pkg("science", []ir.Macro{macro("square", "x ** 2", "x")})},
		Macros:   []ir.Macro{macro("addOne", "n + 1", "n")},
	}
	opts := fixedOpts("gen-1", "gen-2")

	first, err := Resolve(context.Background(), env, opts)
	require.NoError(t, err)
	second, err := Resolve(context.Background(), env, opts)
	require.NoError(t, err)

	a, err := first.Scope.Snapshot()
	require.NoError(t, err)
	b, err := second.Scope.Snapshot()
	require.NoError(t, err)
	if diff := cmp.Diff(string(a), string(b)); diff != "" {
		t.Errorf("scope changed between resolves (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, first.Generation, second.Generation)
}

// =============================================================================
// Failure Tests
// =============================================================================

func TestResolveFailures(t *testing.T) {
	science := pkg("science", []ir.Macro{macro("square", "x ** 2", "x")})
	loopA := ir.Package{ID: "a", OwnerID: owner, Name: "a", Dependencies: []ir.Package{{ID: "b"}}}
	loopB := ir.Package{ID: "b", OwnerID: owner, Name: "b", Dependencies: []ir.Package{{ID: "a"}}}

	tests := []struct {
		name  string
		env   ir.Environment
		check func(error) bool
	}{
		{
			name:  "duplicate macro name",
			env:   ir.Environment{Macros: []ir.Macro{macro("f", "1"), {ID: "other", OwnerID: "x", Name: "f", Formula: "2"}}},
			check: compiler.IsNameAlreadyUsed,
		},
		{
			name:  "macro shadows package",
			env:   ir.Environment{Packages: []ir.Package{science}, Macros: []ir.Macro{macro("science", "1")}},
			check: compiler.IsNameAlreadyUsed,
		},
		{
			name:  "macro shadows builtin",
			env:   ir.Environment{Macros: []ir.Macro{macro("abs", "1")}},
			check: compiler.IsNameAlreadyUsed,
		},
		{
			name:  "long name",
			env:   ir.Environment{Macros: []ir.Macro{macro("abcdefghijklmnopqrstuvwxyz12345", "1")}},
			check: compiler.IsValidationError,
		},
		{
			name:  "keyword name",
			env:   ir.Environment{Macros: []ir.Macro{macro("lambda", "1")}},
			check: compiler.IsValidationError,
		},
		{
			name:  "reference cycle",
			env:   ir.Environment{Packages: []ir.Package{loopA, loopB}},
			check: compiler.IsDependencyCycle,
		},
		{
			name:  "unbounded recursion",
			env:   ir.Environment{Macros: []ir.Macro{macro("forever", "forever(n)", "n")}},
			check: compiler.IsBuildError,
		},
		{
			name:  "undefined name",
			env:   ir.Environment{Macros: []ir.Macro{macro("f", "n + g(n)", "n")}},
			check: compiler.IsBuildError,
		},
		{
			name:  "syntax error",
			env:   ir.Environment{Macros: []ir.Macro{macro("f", "n +", "n")}},
			check: compiler.IsBuildError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Resolve(context.Background(), tt.env, fixedOpts("g"))
			require.Error(t, err)
			assert.Nil(t, r, "no partial result")
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
		})
	}
}

func TestResolveUnboundedRecursionIsLimit(t *testing.T) {
	env := ir.Environment{Macros: []ir.Macro{macro("forever", "forever(n)", "n")}}
	_, err := Resolve(context.Background(), env, fixedOpts("g"))
	assert.True(t, expr.IsLimitExceeded(err), "got %v", err)
}

func TestResolveSkipSelfTest(t *testing.T) {
	env := ir.Environment{Macros: []ir.Macro{macro("forever", "forever(n)", "n")}}
	opts := fixedOpts("g")
	opts.SkipSelfTest = true

	r, err := Resolve(context.Background(), env, opts)
	require.NoError(t, err)
	_, ok := r.Scope.Lookup("forever")
	assert.True(t, ok)
}

type countingTester struct{ calls int }

func (c *countingTester) Test(*expr.Function) error {
	c.calls++
	return nil
}

// TestResolveCustomTester tests that a diamond dependency is tested once.
func TestResolveCustomTester(t *testing.T) {
	base := pkg("base", []ir.Macro{macro("one", "1")})
	left := pkg("left", []ir.Macro{macro("l", "one()")}, ref(base))
	right := pkg("right", []ir.Macro{macro("r", "one()")}, ref(base))

	tester := &countingTester{}
	opts := fixedOpts("g")
	opts.Tester = tester

	_, err := Resolve(context.Background(), ir.Environment{Packages: []ir.Package{base, left, right}}, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, tester.calls)
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Resolve(ctx, ir.Environment{}, fixedOpts())
	assert.True(t, errors.Is(err, context.Canceled))
}

// =============================================================================
// Record Directory Tests
// =============================================================================

func TestResolveDir(t *testing.T) {
	r, err := ResolveDir(context.Background(), fixtureStore(t), fixedOpts("gen-1"))
	require.NoError(t, err)

	assert.Len(t, r.Environment.Packages, 2)
	assert.Len(t, r.Environment.Macros, 3, "the malformed record is skipped")
	assert.Equal(t, "6", eval(t, r, "addOne(5)"))
	assert.Equal(t, "120", eval(t, r, "factorial(5)"))
	assert.Equal(t, "10", eval(t, r, "scale(5)"))
	assert.Equal(t, "27", eval(t, r, "science.cube(3)"))
	assert.Equal(t, "5.0", eval(t, r, "mk.hyp(3, 4)"))
	assert.Equal(t, "8", eval(t, r, "mk.cube(2)"))
}

// TestResolveDirGolden pins the snapshot of the fixture records.
func TestResolveDirGolden(t *testing.T) {
	r, err := ResolveDir(context.Background(), fixtureStore(t), fixedOpts("gen-1"))
	require.NoError(t, err)

	data, err := r.Scope.Snapshot()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "swirlenv_scope", data)
}
