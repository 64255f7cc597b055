package expr

import (
	"errors"
	"fmt"
)

// ErrDivisionByZero is returned by "/", "//", "%" and negative powers of
// zero. Build-time self tests treat it as benign.
var ErrDivisionByZero = errors.New("division by zero")

// InvalidExpressionError reports an expression that cannot be parsed or
// evaluated. Evaluate wraps every failure in this type; the cause stays
// reachable through errors.Is / errors.As.
type InvalidExpressionError struct {
	Expr string // Source text
	Pos  int    // Byte offset of a syntax error, -1 for runtime failures
	Msg  string
	Err  error // Runtime cause (optional)
}

func (e *InvalidExpressionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid expression %q: %v", e.Expr, e.Err)
	}
	if e.Pos >= 0 {
		return fmt.Sprintf("invalid expression %q: offset %d: %s", e.Expr, e.Pos, e.Msg)
	}
	return fmt.Sprintf("invalid expression %q: %s", e.Expr, e.Msg)
}

func (e *InvalidExpressionError) Unwrap() error {
	return e.Err
}

// SyntaxError is a parse failure at a byte offset.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

// NameNotDefinedError is returned when a name does not resolve in scope.
type NameNotDefinedError struct {
	Name string
}

func (e *NameNotDefinedError) Error() string {
	return fmt.Sprintf("name %q is not defined", e.Name)
}

// TypeError reports an operation applied to values of the wrong type.
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string {
	return "type error: " + e.Msg
}

// ArgumentError reports a call with the wrong arguments.
type ArgumentError struct {
	Func string
	Msg  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s(): %s", e.Func, e.Msg)
}

// OverflowError reports an integer result outside the int64 range.
type OverflowError struct {
	Op string
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("integer overflow in %s", e.Op)
}

// LimitExceededError is returned when evaluation exceeds its call depth or
// step budget.
type LimitExceededError struct {
	Limit string // "depth" or "steps"
	Max   int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("evaluation exceeded max %s (%d)", e.Limit, e.Max)
}

// IsDivisionByZero reports whether err is or wraps ErrDivisionByZero.
func IsDivisionByZero(err error) bool {
	return errors.Is(err, ErrDivisionByZero)
}

// IsLimitExceeded reports whether err is or wraps a LimitExceededError.
func IsLimitExceeded(err error) bool {
	var le *LimitExceededError
	return errors.As(err, &le)
}
