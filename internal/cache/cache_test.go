package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/swirl/internal/compiler"
	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/ir"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testEnv(generation string) ir.Environment {
	macro := func(name, formula string, vars ...string) ir.Macro {
		return ir.Macro{OwnerID: "client@guest", Name: name, Variables: vars, Formula: formula}.WithDerivedID()
	}
	return ir.Environment{
		ID: generation,
		Packages: []ir.Package{{
			ID: "science", OwnerID: "client@guest", Name: "science", DateCreated: "2024-01-01",
			Macros: []ir.Macro{macro("square", "x ** 2", "x")},
		}},
		Macros: []ir.Macro{
			macro("addOne", "n + 1", "n"),
			macro("factorial", "1 if num <= 1 else num*factorial(num-1)", "num"),
		},
	}
}

func compileEnv(t *testing.T, env ir.Environment) *compiler.Scope {
	t.Helper()
	scope, err := compiler.New(expr.DefaultRegistry()).CompileEnvironment(env)
	require.NoError(t, err)
	return scope
}

// =============================================================================
// Open Tests
// =============================================================================

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	c, err := Open(dir)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, filepath.Join(dir, FileName), c.Path())
	_, err = os.Stat(c.Path())
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		c, err := Open(dir)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, c.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	c := openTestCache(t)
	assert.NoError(t, c.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, c.verifyPragma("synchronous", "1"))
	assert.NoError(t, c.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, c.verifyPragma("user_version", "1"))
}

func TestOpen_RefusesNewerSchema(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	_, err = c.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = Open(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, (&Cache{}).Close())
}

// =============================================================================
// Artifact Tests
// =============================================================================

func TestRead_EmptyIsMiss(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	_, err := c.ReadEnvironment(ctx)
	assert.True(t, IsMiss(err))
	_, err = c.ReadScope(ctx, expr.DefaultRegistry())
	assert.True(t, IsMiss(err))
	_, err = c.Generation(ctx)
	assert.True(t, IsMiss(err))
}

// TestWrite_RoundTrip tests that a cached scope is evaluable after relinking.
func TestWrite_RoundTrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	env := testEnv("gen-1")
	scope := compileEnv(t, env)

	require.NoError(t, c.Write(ctx, env, scope))

	gotEnv, err := c.ReadEnvironment(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(env, gotEnv); diff != "" {
		t.Errorf("environment mismatch (-want +got):\n%s", diff)
	}

	generation, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gen-1", generation)

	gotScope, err := c.ReadScope(ctx, expr.DefaultRegistry())
	require.NoError(t, err)
	for src, want := range map[string]string{
		"addOne(5)":                   "6",
		"factorial(5)":                "120",
		"science.square(4) + abs(-1)": "17",
	} {
		v, err := gotScope.Evaluate(src, expr.DefaultLimits)
		require.NoError(t, err, src)
		assert.Equal(t, want, v.String(), src)
	}

	want, err := scope.Snapshot()
	require.NoError(t, err)
	got, err := gotScope.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestWrite_ReplacesPrevious(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	first := testEnv("gen-1")
	require.NoError(t, c.Write(ctx, first, compileEnv(t, first)))

	second := ir.Environment{ID: "gen-2", Macros: []ir.Macro{
		{ID: "x", OwnerID: "o", Name: "only", Variables: []string{}, Formula: "7"},
	}}
	require.NoError(t, c.Write(ctx, second, compileEnv(t, second)))

	generation, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gen-2", generation)

	scope, err := c.ReadScope(ctx, expr.DefaultRegistry())
	require.NoError(t, err)
	_, ok := scope.Lookup("addOne")
	assert.False(t, ok)

	var count int
	require.NoError(t, c.db.QueryRow("SELECT COUNT(*) FROM artifacts").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestInvalidate(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	env := testEnv("gen-1")
	require.NoError(t, c.Write(ctx, env, compileEnv(t, env)))

	require.NoError(t, c.Invalidate(ctx))

	_, err := c.ReadEnvironment(ctx)
	assert.True(t, IsMiss(err))
	_, err = c.ReadScope(ctx, expr.DefaultRegistry())
	assert.True(t, IsMiss(err))

	// Invalidating an empty cache is not an error.
	assert.NoError(t, c.Invalidate(ctx))
}

func TestWrite_PersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	env := testEnv("gen-1")

	c, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, env, compileEnv(t, env)))
	require.NoError(t, c.Close())

	c, err = Open(dir)
	require.NoError(t, err)
	defer c.Close()

	scope, err := c.ReadScope(ctx, expr.DefaultRegistry())
	require.NoError(t, err)
	v, err := scope.Evaluate("addOne(1)", expr.DefaultLimits)
	require.NoError(t, err)
	assert.Equal(t, "2", v.String())
}
