package compiler

import (
	"regexp"
	"strings"

	"github.com/roach88/swirl/internal/expr"
	"github.com/roach88/swirl/internal/ir"
)

var (
	// namePattern matches an identifier with an optional variadic marker.
	namePattern = regexp.MustCompile(`^\*?[_A-Za-z][_A-Za-z0-9]*`)

	// variablePattern matches an identifier with an optional literal default.
	// Group 1 is the identifier, group 2 the default.
	variablePattern = regexp.MustCompile(
		`^(\*?[_A-Za-z][_A-Za-z0-9]*)(?:\s*=\s*(True|False|[-+]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][-+]?[0-9]+)?))?`)
)

// Validate checks the macro name and every declared variable.
// Checks stop at the first failure per token, but every token is checked:
// the name first, then each variable in order.
func Validate(m ir.Macro) []error {
	var errs []error
	if err := ValidateName(m.Name); err != nil {
		errs = append(errs, err)
	}
	for _, v := range m.Variables {
		if err := ValidateVariable(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ValidateName checks a macro or package name.
func ValidateName(token string) error {
	match := namePattern.FindString(token)
	if match == "" {
		return &InvalidNameError{Token: token}
	}
	return checkIdentifier(token, match, token)
}

// ValidateVariable checks a variable declaration such as "n", "n=5" or
// "*rest". Surrounding whitespace is ignored.
func ValidateVariable(token string) error {
	trimmed := strings.TrimSpace(token)
	m := variablePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return &InvalidNameError{Token: token}
	}
	if err := checkIdentifier(token, m[1], m[1]); err != nil {
		return err
	}
	if m[0] != trimmed {
		return &InvalidNameError{Token: token}
	}
	if strings.HasPrefix(m[1], "*") && m[2] != "" {
		return &InvalidNameError{Token: token, Reason: "variadic parameter cannot have a default"}
	}
	return nil
}

// checkIdentifier applies the length, full-match and keyword checks to an
// identifier matched out of token.
func checkIdentifier(token, match, whole string) error {
	if len(match) > MaxNameLength {
		return &LengthError{Token: token}
	}
	if match != whole {
		return &InvalidNameError{Token: token}
	}
	if expr.IsKeyword(strings.TrimPrefix(match, "*")) {
		return &KeywordNameError{Token: token}
	}
	return nil
}
