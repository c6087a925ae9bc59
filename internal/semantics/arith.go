package semantics

import (
	"math"
	"math/bits"

	"pyvm/internal/object"
)

func overflow() *object.Exception {
	return object.NewException(object.OverflowError, "integer overflow")
}

func addInt(a, b int64) (int64, error) {
	c := a + b
	if (c > a) != (b > 0) {
		return 0, overflow()
	}
	return c, nil
}

func subInt(a, b int64) (int64, error) {
	c := a - b
	if (c < a) != (b > 0) {
		return 0, overflow()
	}
	return c, nil
}

func mulInt(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, overflow()
	}
	return c, nil
}

// floorDivInt rounds toward negative infinity.
func floorDivInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, object.NewException(object.ZeroDivisionError, "integer division or modulo by zero")
	}
	if a == math.MinInt64 && b == -1 {
		return 0, overflow()
	}
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q, nil
}

// modInt takes the sign of the divisor.
func modInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, object.NewException(object.ZeroDivisionError, "integer division or modulo by zero")
	}
	if b == -1 {
		return 0, nil
	}
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m, nil
}

func powInt(base, exp int64) (int64, error) {
	result := int64(1)
	for exp > 0 {
		var err error
		if exp&1 == 1 {
			if result, err = mulInt(result, base); err != nil {
				return 0, err
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, err = mulInt(base, base); err != nil {
				return 0, err
			}
		}
	}
	return result, nil
}

func lshiftInt(a, n int64) (int64, error) {
	if n < 0 {
		return 0, object.NewException(object.ValueError, "negative shift count")
	}
	if a == 0 {
		return 0, nil
	}
	mag := a
	if mag < 0 {
		mag = ^mag
	}
	if n > 63 || int64(bits.Len64(uint64(mag)))+n > 63 {
		return 0, overflow()
	}
	return a << uint(n), nil
}

func rshiftInt(a, n int64) (int64, error) {
	if n < 0 {
		return 0, object.NewException(object.ValueError, "negative shift count")
	}
	if n >= 64 {
		if a < 0 {
			return -1, nil
		}
		return 0, nil
	}
	return a >> uint(n), nil
}

func floorDivFloat(a, b float64) (float64, error) {
	if b == 0 {
		return 0, object.NewException(object.ZeroDivisionError, "float floor division by zero")
	}
	return math.Floor(a / b), nil
}

func modFloat(a, b float64) (float64, error) {
	if b == 0 {
		return 0, object.NewException(object.ZeroDivisionError, "float modulo")
	}
	m := math.Mod(a, b)
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	} else if m == 0 {
		m = math.Copysign(0, b)
	}
	return m, nil
}

func powFloat(a, b float64) (float64, error) {
	if a == 0 && b < 0 {
		return 0, object.NewException(object.ZeroDivisionError, "0.0 cannot be raised to a negative power")
	}
	if a < 0 && b != math.Trunc(b) {
		return 0, object.NewException(object.ValueError, "math domain error")
	}
	r := math.Pow(a, b)
	if math.IsInf(r, 0) && !math.IsInf(a, 0) && !math.IsInf(b, 0) {
		return 0, object.NewException(object.OverflowError, "(34, 'Numerical result out of range')")
	}
	return r, nil
}
