package cli

import (
	"errors"

	"github.com/roach88/swirl/internal/compiler"
	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/mutate"
	"github.com/roach88/swirl/internal/records"
)

// Command error codes (exit code 2).
const (
	ErrCodeGeneric   = "E001" // Generic/unknown error
	ErrCodeNotFound  = "E002" // Record or path not found
	ErrCodeConfig    = "E003" // Configuration could not be loaded
	ErrCodeMalformed = "E004" // Record file fails to parse or match the schema
	ErrCodeCache     = "E005" // Cache could not be opened or written
)

// Rejected input codes (exit code 1).
const (
	ErrCodeLength          = "E101" // Name or variable too long
	ErrCodeInvalidName     = "E102" // Name or variable fails the grammar
	ErrCodeKeyword         = "E103" // Name is a reserved keyword
	ErrCodeNameAlreadyUsed = "E104" // Duplicate name in one scope level
	ErrCodeBuild           = "E105" // Formula failed to parse or self test
	ErrCodeDependencyCycle = "E106" // Packages depend on themselves
	ErrCodeExpression      = "E107" // Query expression failed
	ErrCodeLimit           = "E108" // Evaluation exceeded its limits
	ErrCodeScenario        = "E109" // Scenario assertions failed
)

// ErrorCode maps err to its CLI error code by kind.
func ErrorCode(err error) string {
	var (
		le *compiler.LengthError
		ne *compiler.InvalidNameError
		ke *compiler.KeywordNameError
		ie *expr.InvalidExpressionError
		ce *cacheError
	)
	switch {
	case mutate.IsNotFound(err), records.IsNotExist(err), records.IsInvalidID(err):
		return ErrCodeNotFound
	case records.IsMalformed(err):
		return ErrCodeMalformed
	case compiler.IsDependencyCycle(err):
		return ErrCodeDependencyCycle
	case compiler.IsNameAlreadyUsed(err):
		return ErrCodeNameAlreadyUsed
	case errors.As(err, &le):
		return ErrCodeLength
	case errors.As(err, &ke):
		return ErrCodeKeyword
	case errors.As(err, &ne):
		return ErrCodeInvalidName
	case compiler.IsBuildError(err):
		return ErrCodeBuild
	case expr.IsLimitExceeded(err):
		return ErrCodeLimit
	case errors.As(err, &ie):
		return ErrCodeExpression
	case errors.As(err, &ce):
		return ErrCodeCache
	}
	return ErrCodeGeneric
}

// exitCodeFor returns the exit status for an error code.
func exitCodeFor(code string) int {
	if len(code) == 4 && code[1] == '1' {
		return ExitFailure
	}
	return ExitCommandError
}

// cacheError marks a failure of the cache rather than of the records.
type cacheError struct {
	Err error
}

func (e *cacheError) Error() string {
	return "cache: " + e.Err.Error()
}

func (e *cacheError) Unwrap() error {
	return e.Err
}
