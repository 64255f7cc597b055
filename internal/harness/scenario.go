package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/ir"
)

// DefaultScenarioOwner owns inline scenario macros that name no owner.
const DefaultScenarioOwner = "scenario@test"

// Scenario is a set of queries run against a resolved scope.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Records is an optional record directory to resolve, relative to the
	// scenario file.
	Records string `yaml:"records,omitempty"`

	// Macros are added to the environment as top-level macros.
	Macros []MacroStep `yaml:"macros,omitempty"`

	// Queries are evaluated in order.
	Queries []Query `yaml:"queries"`
}

// MacroStep declares an inline macro.
type MacroStep struct {
	Owner       string   `yaml:"owner,omitempty"`
	Name        string   `yaml:"name"`
	Variables   []string `yaml:"variables,omitempty"`
	Formula     string   `yaml:"formula"`
	Description string   `yaml:"description,omitempty"`
}

// Query is one expression with its expected outcome. Exactly one of
// Expect and Error is set.
type Query struct {
	Expr   string `yaml:"expr"`
	Expect string `yaml:"expect,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

// Error kinds accepted in Query.Error.
const (
	ErrKindSyntax            = "syntax"
	ErrKindNameNotDefined    = "name_not_defined"
	ErrKindDivisionByZero    = "division_by_zero"
	ErrKindLimitExceeded     = "limit_exceeded"
	ErrKindType              = "type"
	ErrKindArgument          = "argument"
	ErrKindOverflow          = "overflow"
	ErrKindInvalidExpression = "invalid_expression"
)

var errorKinds = []string{
	ErrKindSyntax, ErrKindNameNotDefined, ErrKindDivisionByZero, ErrKindLimitExceeded,
	ErrKindType, ErrKindArgument, ErrKindOverflow, ErrKindInvalidExpression,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative Records path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "query:" vs "queries:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Records != "" && !filepath.IsAbs(scenario.Records) {
		scenario.Records = filepath.Join(filepath.Dir(path), scenario.Records)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}
	if s.Records != "" {
		if _, err := os.Stat(s.Records); os.IsNotExist(err) {
			return fmt.Errorf("records directory not found: %s", s.Records)
		}
	}
	for i, m := range s.Macros {
		if m.Name == "" {
			return fmt.Errorf("macros[%d]: name is required", i)
		}
		if strings.TrimSpace(m.Formula) == "" {
			return fmt.Errorf("macros[%d]: formula is required", i)
		}
	}
	for i, q := range s.Queries {
		if q.Expr == "" {
			return fmt.Errorf("queries[%d]: expr is required", i)
		}
		if (q.Expect == "") == (q.Error == "") {
			return fmt.Errorf("queries[%d]: exactly one of expect or error is required", i)
		}
		if q.Error != "" && !isErrorKind(q.Error) {
			return fmt.Errorf("queries[%d]: unknown error kind %q (want one of %s)", i, q.Error, strings.Join(errorKinds, ", "))
		}
	}
	return nil
}

func isErrorKind(kind string) bool {
	for _, k := range errorKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Apply returns env with the scenario's inline macros appended.
func (s *Scenario) Apply(env ir.Environment) ir.Environment {
	out := env
	out.Macros = append([]ir.Macro(nil), env.Macros...)
	for _, step := range s.Macros {
		owner := step.Owner
		if owner == "" {
			owner = DefaultScenarioOwner
		}
		out.Macros = append(out.Macros, ir.Macro{
			OwnerID:     owner,
			Name:        step.Name,
			Variables:   step.Variables,
			Formula:     step.Formula,
			Description: step.Description,
		}.WithDerivedID())
	}
	return out
}

// QueryResult is the outcome of one query.
type QueryResult struct {
	Expr  string `json:"expr"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"` // Error kind
	Pass  bool   `json:"pass"`
}

// Result is the outcome of a scenario.
type Result struct {
	Name    string        `json:"name"`
	Pass    bool          `json:"pass"`
	Queries []QueryResult `json:"queries"`
	Errors  []string      `json:"errors,omitempty"`
}

// addError records a failure and marks the result as failed.
func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run evaluates every query against scope. Evaluation failures are
// outcomes to compare, not errors.
func Run(s *Scenario, scope expr.Scope, limits expr.Limits) *Result {
	result := &Result{Name: s.Name, Pass: true, Queries: []QueryResult{}}
	for i, q := range s.Queries {
		qr := QueryResult{Expr: q.Expr}
		v, err := expr.EvaluateWithLimits(q.Expr, scope, limits)
		if err != nil {
			qr.Error = ErrorKind(err)
		} else {
			qr.Value = v.String()
		}

		switch {
		case q.Error != "" && qr.Error == "":
			result.addError("queries[%d] %s: expected %s error, got %s", i, q.Expr, q.Error, qr.Value)
		case q.Error != "" && q.Error != qr.Error && q.Error != ErrKindInvalidExpression:
			result.addError("queries[%d] %s: expected %s error, got %s: %v", i, q.Expr, q.Error, qr.Error, err)
		case q.Error == "" && err != nil:
			result.addError("queries[%d] %s: expected %s, got error: %v", i, q.Expr, q.Expect, err)
		case q.Error == "" && qr.Value != q.Expect:
			result.addError("queries[%d] %s: expected %s, got %s", i, q.Expr, q.Expect, qr.Value)
		default:
			qr.Pass = true
		}
		result.Queries = append(result.Queries, qr)
	}
	return result
}

// ErrorKind classifies an evaluation error.
func ErrorKind(err error) string {
	var (
		ie *expr.InvalidExpressionError
		nd *expr.NameNotDefinedError
		le *expr.LimitExceededError
		te *expr.TypeError
		ae *expr.ArgumentError
		oe *expr.OverflowError
	)
	switch {
	case errors.As(err, &ie) && ie.Err == nil:
		return ErrKindSyntax
	case errors.As(err, &nd):
		return ErrKindNameNotDefined
	case expr.IsDivisionByZero(err):
		return ErrKindDivisionByZero
	case errors.As(err, &le):
		return ErrKindLimitExceeded
	case errors.As(err, &te):
		return ErrKindType
	case errors.As(err, &ae):
		return ErrKindArgument
	case errors.As(err, &oe):
		return ErrKindOverflow
	}
	return ErrKindInvalidExpression
}
