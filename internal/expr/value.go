package expr

import (
	"math"
	"strconv"
	"strings"
)

// Value is a runtime value.
//
// This is a SEALED interface: only types in this package can implement it.
type Value interface {
	value() // Marker method - unexported to seal
	Kind() string
	String() string
}

// Int is an integer value. Arithmetic that leaves the int64 range fails
// with OverflowError, so results such as factorial(21) are rejected even
// though formulas written for unbounded integers once accepted them.
type Int int64

// Float is a floating point value.
type Float float64

// Bool is a boolean value. In arithmetic it behaves as 0 or 1.
type Bool bool

// Tuple is an immutable sequence, produced by variadic parameters.
type Tuple []Value

func (Int) value()   {}
func (Float) value() {}
func (Bool) value()  {}
func (Tuple) value() {}

func (Int) Kind() string   { return "int" }
func (Float) Kind() string { return "float" }
func (Bool) Kind() string  { return "bool" }
func (Tuple) Kind() string { return "tuple" }

func (v Int) String() string {
	return strconv.FormatInt(int64(v), 10)
}

func (v Float) String() string {
	return FormatFloat(float64(v))
}

func (v Bool) String() string {
	if v {
		return "True"
	}
	return "False"
}

func (v Tuple) String() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.String()
	}
	if len(v) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FormatFloat renders f the way formula authors read results: shortest
// round-trip digits, always with a fractional part or exponent, and
// exponent notation outside [1e-4, 1e16).
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	e := strconv.FormatFloat(f, 'e', -1, 64)
	mant, expPart, _ := strings.Cut(e, "e")
	exp, _ := strconv.Atoi(expPart)
	if f != 0 && (exp < -4 || exp >= 16) {
		sign := "+"
		if exp < 0 {
			sign = "-"
			exp = -exp
		}
		return mant + "e" + sign + leftPad2(exp)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

func leftPad2(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

// Truthy reports the boolean interpretation of v. Zero numbers and empty
// tuples are false; everything else is true.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Int:
		return v != 0
	case Float:
		return v != 0
	case Bool:
		return bool(v)
	case Tuple:
		return len(v) > 0
	default:
		return true
	}
}

// Equal reports whether a and b are equal. Numbers compare by value across
// kinds; callables and namespaces compare by identity.
func Equal(a, b Value) bool {
	if isNumber(a) && isNumber(b) {
		c, _ := compareNumbers(a, b)
		return c == 0 && !isNaN(a) && !isNaN(b)
	}
	switch a := a.(type) {
	case Tuple:
		bt, ok := b.(Tuple)
		if !ok || len(a) != len(bt) {
			return false
		}
		for i := range a {
			if !Equal(a[i], bt[i]) {
				return false
			}
		}
		return true
	case *Function:
		return a == b
	case *Namespace:
		return a == b
	case *Builtin:
		return a == b
	}
	return false
}

func isNumber(v Value) bool {
	switch v.(type) {
	case Int, Float, Bool:
		return true
	}
	return false
}

func isNaN(v Value) bool {
	f, ok := v.(Float)
	return ok && math.IsNaN(float64(f))
}

// asInt returns v as int64 when it is an Int or Bool.
func asInt(v Value) (int64, bool) {
	switch v := v.(type) {
	case Int:
		return int64(v), true
	case Bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// asFloat returns v as float64 when it is numeric.
func asFloat(v Value) (float64, bool) {
	if f, ok := v.(Float); ok {
		return float64(f), true
	}
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

// compareNumbers orders two numeric values. Int/Int comparisons are exact;
// anything involving a Float compares as float64.
func compareNumbers(a, b Value) (int, bool) {
	ai, aInt := asInt(a)
	bi, bInt := asInt(b)
	if aInt && bInt {
		switch {
		case ai < bi:
			return -1, true
		case ai > bi:
			return 1, true
		}
		return 0, true
	}
	af, ok1 := asFloat(a)
	bf, ok2 := asFloat(b)
	if !ok1 || !ok2 {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}
