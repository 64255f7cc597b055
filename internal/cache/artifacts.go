package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/swirl/internal/compiler"
	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/ir"
)

// Artifact names.
const (
	ArtifactEnv   = "env"
	ArtifactScope = "scope"
)

// ErrMiss is returned when the cache holds no artifacts.
var ErrMiss = errors.New("cache miss")

// IsMiss returns true if err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}

// Write replaces both artifacts with env and the snapshot of scope in one
// transaction. The environment id is stored as the generation.
func (c *Cache) Write(ctx context.Context, env ir.Environment, scope *compiler.Scope) error {
	envBody, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("write cache: marshal environment: %w", err)
	}
	scopeBody, err := scope.Snapshot()
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write cache: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts`); err != nil {
		return fmt.Errorf("write cache: clear: %w", err)
	}
	for _, a := range []struct {
		name string
		body []byte
	}{
		{ArtifactEnv, envBody},
		{ArtifactScope, scopeBody},
	} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts (name, generation, body) VALUES (?, ?, ?)
		`, a.name, env.ID, a.body); err != nil {
			return fmt.Errorf("write cache: insert %s: %w", a.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write cache: commit: %w", err)
	}
	return nil
}

// Invalidate drops both artifacts in one transaction.
func (c *Cache) Invalidate(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("invalidate cache: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE name IN (?, ?)`, ArtifactEnv, ArtifactScope); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("invalidate cache: commit: %w", err)
	}
	return nil
}

// read returns the body and generation of one artifact, or ErrMiss.
func (c *Cache) read(ctx context.Context, name string) ([]byte, string, error) {
	var (
		body       []byte
		generation string
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT body, generation FROM artifacts WHERE name = ?
	`, name).Scan(&body, &generation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrMiss
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s artifact: %w", name, err)
	}
	return body, generation, nil
}

// Generation returns the generation of the cached artifacts, or ErrMiss.
func (c *Cache) Generation(ctx context.Context) (string, error) {
	_, generation, err := c.read(ctx, ArtifactEnv)
	return generation, err
}

// ReadEnvironment returns the cached environment, or ErrMiss.
func (c *Cache) ReadEnvironment(ctx context.Context) (ir.Environment, error) {
	body, _, err := c.read(ctx, ArtifactEnv)
	if err != nil {
		return ir.Environment{}, err
	}
	var env ir.Environment
	if err := json.Unmarshal(body, &env); err != nil {
		return ir.Environment{}, fmt.Errorf("decode env artifact: %w", err)
	}
	return env, nil
}

// ReadScope relinks the cached scope snapshot against builtins, or returns
// ErrMiss. Macros are not validated or self tested again.
func (c *Cache) ReadScope(ctx context.Context, builtins *expr.Registry) (*compiler.Scope, error) {
	body, _, err := c.read(ctx, ArtifactScope)
	if err != nil {
		return nil, err
	}
	return compiler.Relink(body, builtins)
}
