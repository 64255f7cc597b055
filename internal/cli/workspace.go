package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/swirl/internal/cache"
	"github.com/roach88/swirl/internal/compiler"
	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/mutate"
	"github.com/roach88/swirl/internal/records"
	"github.com/roach88/swirl/internal/resolver"
)

// workspace is the record directory and cache a command works on.
type workspace struct {
	store *records.Store
	cache *cache.Cache
	opts  resolver.Options
}

// openWorkspace opens the record store and cache named by the config.
func openWorkspace(o *RootOptions) (*workspace, error) {
	store, err := records.Open(o.Config.EnvPath)
	if err != nil {
		return nil, err
	}
	c, err := cache.Open(o.Config.CachePath)
	if err != nil {
		return nil, &cacheError{Err: err}
	}
	return &workspace{
		store: store,
		cache: c,
		opts: resolver.Options{
			Builtins: expr.DefaultRegistry(),
			Seed:     o.Config.Seed,
			Limits:   o.Config.Limits(),
		},
	}, nil
}

func (w *workspace) Close() error {
	return w.cache.Close()
}

func (w *workspace) mutator() *mutate.Mutator {
	return mutate.New(w.store, w.cache, w.opts)
}

// resolve resolves the record directory and replaces the cache contents.
func (w *workspace) resolve(ctx context.Context) (*resolver.Result, error) {
	res, err := resolver.ResolveDir(ctx, w.store, w.opts)
	if err != nil {
		return nil, err
	}
	if err := w.cache.Write(ctx, res.Environment, res.Scope); err != nil {
		return nil, &cacheError{Err: err}
	}
	return res, nil
}

// scope returns the cached scope, resolving the records when the cache is
// empty or unreadable.
func (w *workspace) scope(ctx context.Context) (*compiler.Scope, error) {
	scope, err := w.cache.ReadScope(ctx, w.opts.Builtins)
	if err == nil {
		return scope, nil
	}
	if !cache.IsMiss(err) {
		slog.Warn("cache unreadable, resolving records", "error", err)
	}
	res, err := w.resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", w.store.Dir(), err)
	}
	return res.Scope, nil
}
