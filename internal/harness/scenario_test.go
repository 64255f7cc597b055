package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/swirl/internal/compiler"
	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/ir"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runScenario(t *testing.T, s *Scenario) *Result {
	t.Helper()
	c := compiler.New(expr.DefaultRegistry(), compiler.WithTester(NewSelfTester()))
	scope, err := c.CompileEnvironment(s.Apply(ir.Environment{}))
	require.NoError(t, err)
	return Run(s, scope, expr.DefaultLimits)
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/arithmetic.yaml")
	require.NoError(t, err)

	assert.Equal(t, "arithmetic", s.Name)
	require.Len(t, s.Macros, 5)
	assert.Equal(t, []string{"num"}, s.Macros[2].Variables)
	require.Len(t, s.Queries, 8)
	assert.Equal(t, "syntax", s.Queries[7].Error)
}

func TestLoadScenarioRelativeRecords(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "records"), 0755))
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: r
description: d
records: records
queries:
  - expr: "1"
    expect: "1"
`), 0644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "records"), s.Records)
}

func TestLoadScenarioInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing name", "description: d\nqueries: [{expr: '1', expect: '1'}]\n", "name is required"},
		{"missing description", "name: n\nqueries: [{expr: '1', expect: '1'}]\n", "description is required"},
		{"no queries", "name: n\ndescription: d\n", "queries list is required"},
		{"unknown field", "name: n\ndescription: d\nquery: []\n", "failed to parse YAML"},
		{"both expect and error", "name: n\ndescription: d\nqueries: [{expr: '1', expect: '1', error: type}]\n", "exactly one"},
		{"unknown error kind", "name: n\ndescription: d\nqueries: [{expr: '1', error: oops}]\n", "unknown error kind"},
		{"macro without formula", "name: n\ndescription: d\nmacros: [{name: f}]\nqueries: [{expr: '1', expect: '1'}]\n", "formula is required"},
		{"missing records", "name: n\ndescription: d\nrecords: nowhere\nqueries: [{expr: '1', expect: '1'}]\n", "records directory not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestScenarioApply(t *testing.T) {
	base := ir.Environment{ID: "gen", Macros: []ir.Macro{m("existing", "1")}}
	s := &Scenario{Macros: []MacroStep{{Name: "addOne", Variables: []string{"n"}, Formula: "n + 1"}}}

	env := s.Apply(base)
	require.Len(t, env.Macros, 2)
	assert.Len(t, base.Macros, 1, "base environment is not modified")
	assert.Equal(t, "gen", env.ID)
	assert.Equal(t, DefaultScenarioOwner, env.Macros[1].OwnerID)
	assert.Equal(t, ir.MacroID(DefaultScenarioOwner, "addOne"), env.Macros[1].ID)
}

func TestRunScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/arithmetic.yaml")
	require.NoError(t, err)

	result := runScenario(t, s)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Queries, 8)
	assert.Equal(t, "126", result.Queries[1].Value)
	assert.Equal(t, ErrKindDivisionByZero, result.Queries[4].Error)
}

func TestRunScenarioFailures(t *testing.T) {
	s := &Scenario{
		Name:   "failing",
		Macros: []MacroStep{{Name: "addOne", Variables: []string{"n"}, Formula: "n + 1"}},
		Queries: []Query{
			{Expr: "addOne(1)", Expect: "3"},
			{Expr: "addOne(1)", Error: ErrKindType},
			{Expr: "1 / 0", Error: ErrKindType},
			{Expr: "1 / 0", Expect: "0"},
			{Expr: "1 / 0", Error: ErrKindInvalidExpression},
		},
	}

	result := runScenario(t, s)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 4)
	assert.True(t, result.Queries[4].Pass, "invalid_expression matches any evaluation error")
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 +", ErrKindSyntax},
		{"nope", ErrKindNameNotDefined},
		{"1 // 0", ErrKindDivisionByZero},
		{"1 + math", ErrKindType},
		{"abs()", ErrKindArgument},
		{"9223372036854775807 * 2", ErrKindOverflow},
	}
	for _, tt := range tests {
		_, err := expr.Evaluate(tt.src, expr.DefaultRegistry())
		require.Error(t, err)
		assert.Equal(t, tt.want, ErrorKind(err), tt.src)
	}
}
