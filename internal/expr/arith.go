package expr

import (
	"fmt"
	"math"
	"math/bits"
)

func operandError(op string, a, b Value) error {
	return &TypeError{Msg: fmt.Sprintf("unsupported operand types for %s: %s and %s", op, a.Kind(), b.Kind())}
}

// binaryOp applies an arithmetic or bitwise operator.
func binaryOp(op string, a, b Value) (Value, error) {
	switch op {
	case "|", "^", "&", "<<", ">>":
		return bitwiseOp(op, a, b)
	}

	ai, aInt := asInt(a)
	bi, bInt := asInt(b)
	if aInt && bInt {
		return intOp(op, ai, bi)
	}
	af, ok1 := asFloat(a)
	bf, ok2 := asFloat(b)
	if !ok1 || !ok2 {
		return nil, operandError(op, a, b)
	}
	return floatOp(op, af, bf)
}

func intOp(op string, a, b int64) (Value, error) {
	switch op {
	case "+":
		s := a + b
		if (s > a) != (b > 0) {
			return nil, &OverflowError{Op: op}
		}
		return Int(s), nil
	case "-":
		d := a - b
		if (d < a) != (b > 0) {
			return nil, &OverflowError{Op: op}
		}
		return Int(d), nil
	case "*":
		return mulInt(a, b)
	case "/":
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		return Float(float64(a) / float64(b)), nil
	case "//":
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		if a == math.MinInt64 && b == -1 {
			return nil, &OverflowError{Op: op}
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return Int(q), nil
	case "%":
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		if b == -1 {
			return Int(0), nil
		}
		r := a % b
		if r != 0 && ((r < 0) != (b < 0)) {
			r += b
		}
		return Int(r), nil
	case "**":
		return powInt(a, b)
	}
	return nil, &TypeError{Msg: fmt.Sprintf("unknown operator %s", op)}
}

func mulInt(a, b int64) (Value, error) {
	if a == 0 || b == 0 {
		return Int(0), nil
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return nil, &OverflowError{Op: "*"}
	}
	return Int(p), nil
}

// powInt raises a to b. Negative exponents produce a float.
func powInt(a, b int64) (Value, error) {
	if b < 0 {
		if a == 0 {
			return nil, ErrDivisionByZero
		}
		return Float(math.Pow(float64(a), float64(b))), nil
	}
	result := int64(1)
	base := a
	for b > 0 {
		if b&1 == 1 {
			v, err := mulInt(result, base)
			if err != nil {
				return nil, &OverflowError{Op: "**"}
			}
			result = int64(v.(Int))
		}
		b >>= 1
		if b > 0 {
			v, err := mulInt(base, base)
			if err != nil {
				return nil, &OverflowError{Op: "**"}
			}
			base = int64(v.(Int))
		}
	}
	return Int(result), nil
}

func floatOp(op string, a, b float64) (Value, error) {
	switch op {
	case "+":
		return Float(a + b), nil
	case "-":
		return Float(a - b), nil
	case "*":
		return Float(a * b), nil
	case "/":
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		return Float(a / b), nil
	case "//":
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		return Float(math.Floor(a / b)), nil
	case "%":
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		r := math.Mod(a, b)
		if r != 0 && ((r < 0) != (b < 0)) {
			r += b
		}
		return Float(r), nil
	case "**":
		if a == 0 && b < 0 {
			return nil, ErrDivisionByZero
		}
		if a < 0 && b != math.Trunc(b) {
			return nil, &TypeError{Msg: "negative number cannot be raised to a fractional power"}
		}
		r := math.Pow(a, b)
		if math.IsInf(r, 0) && !math.IsInf(a, 0) && !math.IsInf(b, 0) {
			return nil, &OverflowError{Op: "**"}
		}
		return Float(r), nil
	}
	return nil, &TypeError{Msg: fmt.Sprintf("unknown operator %s", op)}
}

func bitwiseOp(op string, a, b Value) (Value, error) {
	ai, ok1 := asInt(a)
	bi, ok2 := asInt(b)
	if !ok1 || !ok2 {
		return nil, operandError(op, a, b)
	}
	_, aBool := a.(Bool)
	_, bBool := b.(Bool)
	switch op {
	case "|":
		return keepBool(ai|bi, aBool && bBool), nil
	case "^":
		return keepBool(ai^bi, aBool && bBool), nil
	case "&":
		return keepBool(ai&bi, aBool && bBool), nil
	case "<<":
		if bi < 0 {
			return nil, &TypeError{Msg: "negative shift count"}
		}
		if ai == 0 {
			return Int(0), nil
		}
		if bi >= 63 {
			return nil, &OverflowError{Op: op}
		}
		mag := ai
		if mag < 0 {
			mag = -mag
		}
		if mag < 0 || bits.Len64(uint64(mag))+int(bi) > 63 {
			return nil, &OverflowError{Op: op}
		}
		return Int(ai << bi), nil
	case ">>":
		if bi < 0 {
			return nil, &TypeError{Msg: "negative shift count"}
		}
		if bi >= 63 {
			if ai < 0 {
				return Int(-1), nil
			}
			return Int(0), nil
		}
		return Int(ai >> bi), nil
	}
	return nil, &TypeError{Msg: fmt.Sprintf("unknown operator %s", op)}
}

func keepBool(v int64, asBool bool) Value {
	if asBool {
		return Bool(v != 0)
	}
	return Int(v)
}

func unaryOp(op string, x Value) (Value, error) {
	if op == "~" {
		i, ok := asInt(x)
		if !ok {
			return nil, &TypeError{Msg: fmt.Sprintf("bad operand type for unary ~: %s", x.Kind())}
		}
		return Int(^i), nil
	}
	if i, ok := asInt(x); ok {
		switch op {
		case "+":
			return Int(i), nil
		case "-":
			if i == math.MinInt64 {
				return nil, &OverflowError{Op: "unary -"}
			}
			return Int(-i), nil
		}
	}
	if f, ok := x.(Float); ok {
		switch op {
		case "+":
			return f, nil
		case "-":
			return -f, nil
		}
	}
	return nil, &TypeError{Msg: fmt.Sprintf("bad operand type for unary %s: %s", op, x.Kind())}
}

// compare evaluates a single comparison.
func compare(op string, a, b Value) (bool, error) {
	switch op {
	case "==":
		return Equal(a, b), nil
	case "!=":
		return !Equal(a, b), nil
	}
	var c int
	switch {
	case isNumber(a) && isNumber(b):
		if isNaN(a) || isNaN(b) {
			return false, nil
		}
		c, _ = compareNumbers(a, b)
	default:
		at, ok1 := a.(Tuple)
		bt, ok2 := b.(Tuple)
		if !ok1 || !ok2 {
			return false, &TypeError{Msg: fmt.Sprintf("'%s' not supported between %s and %s", op, a.Kind(), b.Kind())}
		}
		var err error
		if c, err = compareTuples(at, bt); err != nil {
			return false, err
		}
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, &TypeError{Msg: fmt.Sprintf("unknown comparison %s", op)}
}

func compareTuples(a, b Tuple) (int, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		if Equal(a[i], b[i]) {
			continue
		}
		lt, err := compare("<", a[i], b[i])
		if err != nil {
			return 0, err
		}
		if lt {
			return -1, nil
		}
		return 1, nil
	}
	return len(a) - len(b), nil
}
