package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertGolden_Arithmetic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/arithmetic.yaml")
	require.NoError(t, err)

	// Regenerate with:
	//   go test ./internal/harness -run TestAssertGolden_Arithmetic -update
	err = AssertGolden(t, s.Name, runScenario(t, s))
	require.NoError(t, err)
}

func TestResultMarshalCanonical(t *testing.T) {
	r := &Result{
		Name: "x",
		Pass: false,
		Queries: []QueryResult{
			{Expr: "1", Value: "1", Pass: true},
			{Expr: "y", Error: ErrKindNameNotDefined},
		},
		Errors: []string{"boom"},
	}

	data, err := r.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"errors":["boom"],"name":"x","pass":false,"queries":[{"expr":"1","pass":true,"value":"1"},{"error":"name_not_defined","expr":"y","pass":false}]}`,
		string(data))
}
