package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/swirl/internal/ir"
)

// toCanonicalMap converts a Result to a map[string]any for canonical JSON
// serialization. ir.MarshalCanonical only handles maps, slices and
// primitives.
func (r *Result) toCanonicalMap() map[string]any {
	queries := make([]any, len(r.Queries))
	for i, q := range r.Queries {
		m := map[string]any{
			"expr": q.Expr,
			"pass": q.Pass,
		}
		if q.Value != "" {
			m["value"] = q.Value
		}
		if q.Error != "" {
			m["error"] = q.Error
		}
		queries[i] = m
	}

	out := map[string]any{
		"name":    r.Name,
		"pass":    r.Pass,
		"queries": queries,
	}
	if len(r.Errors) > 0 {
		out["errors"] = r.Errors
	}
	return out
}

// MarshalCanonical returns the canonical JSON form of the result.
func (r *Result) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(r.toCanonicalMap())
}

// AssertGolden compares the result against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./... -update
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := result.MarshalCanonical()
	if err != nil {
		return err
	}
	AssertGoldenBytes(t, name, data)
	return nil
}

// AssertGoldenBytes compares canonical bytes, such as a scope snapshot,
// against testdata/golden/{name}.golden.
func AssertGoldenBytes(t *testing.T, name string, data []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
