package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/swirl/internal/compiler"
	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/harness"
	"github.com/roach88/swirl/internal/ir"
	"github.com/roach88/swirl/internal/records"
)

// Options configures a resolve. The zero value resolves with the default
// builtins, a seed-0 self test, default limits and UUIDv7 generations.
type Options struct {
	// Builtins is the registry every scope is layered over.
	Builtins *expr.Registry

	// Tester replaces the default self tester when set.
	Tester compiler.Tester

	// Seed feeds the default self-test sampler.
	Seed uint64

	// Limits bounds each self-test call.
	Limits expr.Limits

	// SkipSelfTest disables self tests entirely.
	SkipSelfTest bool

	// Generator produces the environment id.
	Generator Generator
}

func (o Options) withDefaults() Options {
	if o.Builtins == nil {
		o.Builtins = expr.DefaultRegistry()
	}
	if o.Limits == (expr.Limits{}) {
		o.Limits = expr.DefaultLimits
	}
	if o.Tester == nil && !o.SkipSelfTest {
		o.Tester = harness.NewSelfTester(
			harness.WithSampler(harness.NewSeededSampler(o.Seed)),
			harness.WithLimits(o.Limits),
			harness.WithLogger(slog.Default()),
		)
	}
	if o.Generator == nil {
		o.Generator = UUIDv7Generator{}
	}
	return o
}

// Result is a successful resolve.
type Result struct {
	// Environment is the resolved input with its generation id set.
	Environment ir.Environment

	// Scope holds every package namespace and top-level macro.
	Scope *compiler.Scope

	// Generation is the environment id assigned to this resolve.
	Generation string
}

// Resolve compiles env into a scope. Package records referenced by id from
// dependency lists are substituted before compiling. Any failure aborts the
// resolve.
func Resolve(ctx context.Context, env ir.Environment, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	if cycles := compiler.AnalyzeCycles(env.Packages); len(cycles) > 0 {
		for _, c := range cycles[1:] {
			slog.Warn("dependency cycle", "message", c.Message)
		}
		return nil, fmt.Errorf("resolve: %w", cycles[0].Err())
	}

	copts := []compiler.Option{compiler.WithPackages(env.Packages)}
	if opts.Tester != nil {
		copts = append(copts, compiler.WithTester(opts.Tester))
	}
	scope, err := compiler.New(opts.Builtins, copts...).CompileEnvironment(env)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	out := env
	out.ID = opts.Generator.Generate()
	if out.Packages == nil {
		out.Packages = []ir.Package{}
	}
	if out.Macros == nil {
		out.Macros = []ir.Macro{}
	}

	slog.Info("resolved",
		"generation", out.ID,
		"packages", len(out.Packages),
		"macros", len(out.Macros))
	return &Result{Environment: out, Scope: scope, Generation: out.ID}, nil
}

// ResolveDir loads the records in store and resolves them. Malformed
// records are skipped.
func ResolveDir(ctx context.Context, store *records.Store, opts Options) (*Result, error) {
	env, err := store.LoadEnvironment()
	if err != nil {
		return nil, err
	}
	return Resolve(ctx, env, opts)
}
