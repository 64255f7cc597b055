package mutate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/swirl/internal/cache"
	"github.com/roach88/swirl/internal/compiler"
	"github.com/roach88/swirl/internal/ir"
	"github.com/roach88/swirl/internal/records"
	"github.com/roach88/swirl/internal/resolver"
)

// MacroData is the user-supplied content of a macro. For Edit, empty
// strings and nil Variables mean "keep the current value".
type MacroData struct {
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Variables   Variables `json:"variables"`
	Formula     string    `json:"formula"`
	Description string    `json:"description,omitempty"`
}

// NotFoundError reports a record that does not exist.
type NotFoundError struct {
	Kind ir.RecordKind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// IsNotFound returns true if err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Mutator applies record changes to a record store and keeps the cache in
// step with them.
type Mutator struct {
	mu    sync.Mutex
	store *records.Store
	cache *cache.Cache // Optional
	opts  resolver.Options
}

// New creates a mutator. c may be nil, in which case trial resolves always
// load the records and nothing is cached.
func New(store *records.Store, c *cache.Cache, opts resolver.Options) *Mutator {
	return &Mutator{store: store, cache: c, opts: opts}
}

// Create adds a new macro. The id is derived from the owner and name; a
// macro with the same id or name already in the environment is rejected
// with NameAlreadyUsedError and nothing is written.
func (m *Mutator) Create(ctx context.Context, data MacroData) (ir.Macro, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if data.OwnerID == "" {
		return ir.Macro{}, fmt.Errorf("create: owner_id is required")
	}
	macro := ir.Macro{
		OwnerID:     data.OwnerID,
		Name:        data.Name,
		Variables:   variablesOrEmpty(data.Variables),
		Formula:     data.Formula,
		Description: data.Description,
	}.WithDerivedID()
	if err := errors.Join(compiler.Validate(macro)...); err != nil {
		return ir.Macro{}, fmt.Errorf("create %s: %w", macro.Name, err)
	}

	env, err := m.environment(ctx)
	if err != nil {
		return ir.Macro{}, err
	}
	if m.store.Exists(ir.KindMacro, macro.ID) || slices.ContainsFunc(env.Macros, func(x ir.Macro) bool {
		return x.ID == macro.ID || x.Name == macro.Name
	}) {
		return ir.Macro{}, &compiler.NameAlreadyUsedError{Name: macro.Name}
	}
	env.Macros = append(env.Macros, macro)

	res, err := resolver.Resolve(ctx, env, m.opts)
	if err != nil {
		return ir.Macro{}, fmt.Errorf("create %s: %w", macro.Name, err)
	}
	if err := m.store.WriteMacro(macro); err != nil {
		return ir.Macro{}, err
	}
	if err := m.writeCache(ctx, res); err != nil {
		return ir.Macro{}, err
	}

	slog.Info("macro created", "name", macro.Name, "id", macro.ID)
	return macro, nil
}

// Edit overlays data on the macro with id ref. Changing the owner or name
// changes the id; the record is rewritten in place and then renamed, so
// exactly one file remains.
func (m *Mutator) Edit(ctx context.Context, ref string, data MacroData) (ir.Macro, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, err := m.store.ReadMacro(ref)
	if records.IsNotExist(err) || records.IsInvalidID(err) {
		return ir.Macro{}, &NotFoundError{Kind: ir.KindMacro, ID: ref}
	}
	if err != nil {
		return ir.Macro{}, err
	}

	edited := overlay(old, data).WithDerivedID()
	if err := errors.Join(compiler.Validate(edited)...); err != nil {
		return ir.Macro{}, fmt.Errorf("edit %s: %w", edited.Name, err)
	}
	if edited.ID != ref && m.store.Exists(ir.KindMacro, edited.ID) {
		return ir.Macro{}, &compiler.NameAlreadyUsedError{Name: edited.Name}
	}

	env, err := m.environment(ctx)
	if err != nil {
		return ir.Macro{}, err
	}
	env.Macros = slices.DeleteFunc(slices.Clone(env.Macros), func(x ir.Macro) bool {
		return x.ID == ref
	})
	env.Macros = append(env.Macros, edited)

	res, err := resolver.Resolve(ctx, env, m.opts)
	if err != nil {
		return ir.Macro{}, fmt.Errorf("edit %s: %w", edited.Name, err)
	}
	if err := m.store.ReplaceMacro(ref, edited); err != nil {
		return ir.Macro{}, err
	}
	if err := m.writeCache(ctx, res); err != nil {
		return ir.Macro{}, err
	}

	slog.Info("macro edited", "name", edited.Name, "id", edited.ID, "previous_id", ref)
	return edited, nil
}

// Delete removes the macro record with id ref. Nothing is resolved; the
// cache is invalidated so the next read resolves from records.
func (m *Mutator) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Remove(ir.KindMacro, ref); err != nil {
		if records.IsNotExist(err) || records.IsInvalidID(err) {
			return &NotFoundError{Kind: ir.KindMacro, ID: ref}
		}
		return err
	}
	if m.cache != nil {
		if err := m.cache.Invalidate(ctx); err != nil {
			return err
		}
	}

	slog.Info("macro deleted", "id", ref)
	return nil
}

// environment returns the cached environment, or loads the records when
// there is no usable cache.
func (m *Mutator) environment(ctx context.Context) (ir.Environment, error) {
	if m.cache != nil {
		env, err := m.cache.ReadEnvironment(ctx)
		if err == nil {
			return env, nil
		}
		if !cache.IsMiss(err) {
			slog.Warn("cache unreadable, loading records", "error", err)
		}
	}
	return m.store.LoadEnvironment()
}

func (m *Mutator) writeCache(ctx context.Context, res *resolver.Result) error {
	if m.cache == nil {
		return nil
	}
	return m.cache.Write(ctx, res.Environment, res.Scope)
}

func overlay(m ir.Macro, data MacroData) ir.Macro {
	if data.OwnerID != "" {
		m.OwnerID = data.OwnerID
	}
	if data.Name != "" {
		m.Name = data.Name
	}
	if data.Variables != nil {
		m.Variables = []string(data.Variables)
	}
	if data.Formula != "" {
		m.Formula = data.Formula
	}
	if data.Description != "" {
		m.Description = data.Description
	}
	return m
}

func variablesOrEmpty(v Variables) []string {
	if v == nil {
		return []string{}
	}
	return []string(v)
}
