package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// MaxNameLength is the longest accepted macro, package or variable name.
const MaxNameLength = 30

// LengthError reports a name or variable longer than MaxNameLength.
type LengthError struct {
	Token string
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%q should not be longer than %d characters", e.Token, MaxNameLength)
}

// InvalidNameError reports a token that does not match the identifier
// grammar, or matches only a prefix of it.
type InvalidNameError struct {
	Token  string
	Reason string // Optional detail
}

func (e *InvalidNameError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%q is not a valid name: %s", e.Token, e.Reason)
	}
	return fmt.Sprintf("%q is not a valid name", e.Token)
}

// KeywordNameError reports a token that is a reserved keyword.
type KeywordNameError struct {
	Token string
}

func (e *KeywordNameError) Error() string {
	return fmt.Sprintf("%q is a reserved keyword", e.Token)
}

// NameAlreadyUsedError reports a duplicate name within one scope level.
// Scope is the enclosing package name, or empty for the top level.
type NameAlreadyUsedError struct {
	Name  string
	Scope string
}

func (e *NameAlreadyUsedError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("%q is already used in %s", e.Name, e.Scope)
	}
	return fmt.Sprintf("%q is already used", e.Name)
}

// Build stages reported by BuildError.
const (
	StageParse    = "parse"
	StageSelfTest = "selftest"
)

// BuildError reports a macro whose formula could not be parsed, or that
// failed its self test.
type BuildError struct {
	Macro string // Macro name
	ID    string // Macro id
	Stage string // StageParse or StageSelfTest
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s failed at %s: %v", e.Macro, e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// DependencyCycleError reports packages that depend on themselves.
// Path starts and ends with the same package.
type DependencyCycleError struct {
	Path []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " → "))
}

// IsValidationError reports whether err is or wraps a name grammar error.
func IsValidationError(err error) bool {
	var le *LengthError
	var ie *InvalidNameError
	var ke *KeywordNameError
	return errors.As(err, &le) || errors.As(err, &ie) || errors.As(err, &ke)
}

// IsNameAlreadyUsed reports whether err is or wraps a NameAlreadyUsedError.
func IsNameAlreadyUsed(err error) bool {
	var ne *NameAlreadyUsedError
	return errors.As(err, &ne)
}

// IsBuildError reports whether err is or wraps a BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

// IsDependencyCycle reports whether err is or wraps a DependencyCycleError.
func IsDependencyCycle(err error) bool {
	var ce *DependencyCycleError
	return errors.As(err, &ce)
}
