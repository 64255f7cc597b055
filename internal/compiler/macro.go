package compiler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/ir"
)

// Tester exercises a freshly compiled macro once its scope level is
// sealed. A nil error means the macro passed.
type Tester interface {
	Test(fn *expr.Function) error
}

// Compiler turns macros and packages into callables and namespaces.
//
// A Compiler serves a single resolve: packages are memoized by id so a
// package reached through several dependency paths is built and tested once.
type Compiler struct {
	builtins *expr.Registry
	tester   Tester
	packages map[string]ir.Package // Top-level package records by id
	built    map[string]*expr.Namespace
	building []string // Package ids being compiled, outermost first
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithTester runs t against every macro after its scope level seals.
func WithTester(t Tester) Option {
	return func(c *Compiler) {
		c.tester = t
	}
}

// WithPackages registers top-level package records. A dependency entry
// whose id matches a registered record compiles as that record.
func WithPackages(pkgs []ir.Package) Option {
	return func(c *Compiler) {
		for _, p := range pkgs {
			c.packages[p.ID] = p
		}
	}
}

// New creates a Compiler over the given builtins.
func New(builtins *expr.Registry, opts ...Option) *Compiler {
	c := &Compiler{
		builtins: builtins,
		packages: make(map[string]ir.Package),
		built:    make(map[string]*expr.Namespace),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Builtins returns the registry every scope is layered over.
func (c *Compiler) Builtins() *expr.Registry {
	return c.builtins
}

// CompileMacro validates m, parses its formula once and binds its declared
// variables as parameters. The body evaluates against scope layered under
// the call-time bindings.
func (c *Compiler) CompileMacro(m ir.Macro, scope expr.Scope) (*expr.Function, error) {
	if errs := Validate(m); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	params, variadic, err := ParseParams(m.Variables)
	if err != nil {
		return nil, err
	}
	body, err := expr.Parse(m.Formula)
	if err != nil {
		var se *expr.SyntaxError
		if errors.As(err, &se) {
			err = &expr.InvalidExpressionError{Expr: m.Formula, Pos: se.Pos, Msg: se.Msg}
		}
		return nil, &BuildError{Macro: m.Name, ID: m.ID, Stage: StageParse, Err: err}
	}
	return &expr.Function{
		Name:     m.Name,
		ID:       m.ID,
		Params:   params,
		Variadic: variadic,
		Formula:  m.Formula,
		Body:     body,
		Scope:    scope,
	}, nil
}

// ParseParams converts variable declarations into parameters. A "*name"
// declaration collects surplus positional arguments; declarations after it
// are keyword-only.
func ParseParams(vars []string) ([]expr.Param, string, error) {
	var (
		params     []expr.Param
		variadic   string
		seen       = make(map[string]bool)
		hasDefault bool
	)
	for _, raw := range vars {
		if err := ValidateVariable(raw); err != nil {
			return nil, "", err
		}
		decl := strings.TrimSpace(raw)
		name, lit, _ := strings.Cut(decl, "=")
		name = strings.TrimSpace(name)
		lit = strings.TrimSpace(lit)

		if rest, ok := strings.CutPrefix(name, "*"); ok {
			if variadic != "" {
				return nil, "", &InvalidNameError{Token: raw, Reason: "only one variadic parameter is allowed"}
			}
			if seen[rest] {
				return nil, "", &NameAlreadyUsedError{Name: rest}
			}
			seen[rest] = true
			variadic = rest
			continue
		}

		if seen[name] {
			return nil, "", &NameAlreadyUsedError{Name: name}
		}
		seen[name] = true

		p := expr.Param{Name: name, KeywordOnly: variadic != ""}
		if lit != "" {
			v, err := parseLiteral(lit)
			if err != nil {
				return nil, "", &InvalidNameError{Token: raw, Reason: err.Error()}
			}
			p.Default = v
			if !p.KeywordOnly {
				hasDefault = true
			}
		} else if hasDefault && !p.KeywordOnly {
			return nil, "", &InvalidNameError{Token: raw, Reason: "parameter without a default follows parameter with a default"}
		}
		params = append(params, p)
	}
	return params, variadic, nil
}

// parseLiteral converts a default literal: True, False, an int or a float.
func parseLiteral(lit string) (expr.Value, error) {
	switch lit {
	case "True":
		return expr.Bool(true), nil
	case "False":
		return expr.Bool(false), nil
	}
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return expr.Int(i), nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, errors.New("default must be an int, float or boolean literal")
	}
	return expr.Float(f), nil
}
