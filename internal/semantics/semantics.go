package semantics

import (
	"math"
	"strings"

	"pyvm/internal/object"
)

func IsTruthy(obj object.Object) bool {
	switch v := obj.(type) {
	case *object.Bool:
		return v.Value
	case *object.NoneType:
		return false
	case *object.Int:
		return v.Value != 0
	case *object.Float:
		return v.Value != 0
	case *object.Str:
		return v.Value != ""
	case *object.Tuple:
		return len(v.Elements) > 0
	case *object.List:
		return len(v.Elements) > 0
	case *object.Dict:
		return v.Len() > 0
	case *object.Set:
		return v.Len() > 0
	case *object.Range:
		return v.Len() > 0
	default:
		return true
	}
}

// Len implements len(o).
func Len(o object.Object) (int64, error) {
	switch v := o.(type) {
	case *object.Str:
		return int64(len(v.Runes())), nil
	case *object.Tuple:
		return int64(len(v.Elements)), nil
	case *object.List:
		return int64(len(v.Elements)), nil
	case *object.Dict:
		return int64(v.Len()), nil
	case *object.Set:
		return int64(v.Len()), nil
	case *object.Range:
		return v.Len(), nil
	}
	return 0, object.NewException(object.TypeError, "object of type '%s' has no len()", o.Type())
}

// asInt narrows Int and Bool to int64.
func asInt(o object.Object) (int64, bool) {
	switch v := o.(type) {
	case *object.Int:
		return v.Value, true
	case *object.Bool:
		if v.Value {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func asFloat(o object.Object) (float64, bool) {
	if f, ok := o.(*object.Float); ok {
		return f.Value, true
	}
	if i, ok := asInt(o); ok {
		return float64(i), true
	}
	return 0, false
}

// AsIndex narrows a value used as a sequence index or count.
func AsIndex(o object.Object) (int64, bool) { return asInt(o) }

func unsupported(op string, left, right object.Object) *object.Exception {
	return object.NewException(object.TypeError,
		"unsupported operand type(s) for %s: '%s' and '%s'", op, left.Type(), right.Type())
}

// BinaryOp evaluates left op right for the Python operator symbols
// + - * @ / // % ** << >> & | ^.
func BinaryOp(op string, left, right object.Object) (object.Object, error) {
	if li, ok := asInt(left); ok {
		if ri, ok := asInt(right); ok {
			return intBinary(op, left, right, li, ri)
		}
	}
	if lf, ok := asFloat(left); ok {
		if rf, ok := asFloat(right); ok {
			return floatBinary(op, left, right, lf, rf)
		}
	}

	switch l := left.(type) {
	case *object.Str:
		switch op {
		case "+":
			if r, ok := right.(*object.Str); ok {
				return &object.Str{Value: l.Value + r.Value}, nil
			}
			return nil, object.NewException(object.TypeError,
				"can only concatenate str (not \"%s\") to str", right.Type())
		case "*":
			if n, ok := asInt(right); ok {
				return repeatStr(l.Value, n)
			}
		case "%":
			return FormatPercent(l.Value, right)
		}
	case *object.List:
		switch op {
		case "+":
			if r, ok := right.(*object.List); ok {
				out := make([]object.Object, 0, len(l.Elements)+len(r.Elements))
				out = append(append(out, l.Elements...), r.Elements...)
				return &object.List{Elements: out}, nil
			}
			return nil, object.NewException(object.TypeError,
				"can only concatenate list (not \"%s\") to list", right.Type())
		case "*":
			if n, ok := asInt(right); ok {
				return repeatList(l.Elements, n)
			}
		}
	case *object.Tuple:
		switch op {
		case "+":
			if r, ok := right.(*object.Tuple); ok {
				out := make([]object.Object, 0, len(l.Elements)+len(r.Elements))
				out = append(append(out, l.Elements...), r.Elements...)
				return &object.Tuple{Elements: out}, nil
			}
			return nil, object.NewException(object.TypeError,
				"can only concatenate tuple (not \"%s\") to tuple", right.Type())
		case "*":
			if n, ok := asInt(right); ok {
				return repeatTuple(l.Elements, n)
			}
		}
	case *object.Set:
		if r, ok := right.(*object.Set); ok {
			if out, ok, err := setBinary(op, l, r); ok || err != nil {
				return out, err
			}
		}
	case *object.Dict:
		if r, ok := right.(*object.Dict); ok && op == "|" {
			out := l.Copy()
			for _, e := range r.Entries() {
				_ = out.Set(e.Key, e.Value)
			}
			return out, nil
		}
	}

	if op == "*" {
		if n, ok := asInt(left); ok {
			switch r := right.(type) {
			case *object.Str:
				return repeatStr(r.Value, n)
			case *object.List:
				return repeatList(r.Elements, n)
			case *object.Tuple:
				return repeatTuple(r.Elements, n)
			}
		}
		if isSequence(left) || isSequence(right) {
			other := right
			if !isSequence(left) {
				other = left
			}
			return nil, object.NewException(object.TypeError,
				"can't multiply sequence by non-int of type '%s'", other.Type())
		}
	}
	if op == "**" {
		return nil, object.NewException(object.TypeError,
			"unsupported operand type(s) for ** or pow(): '%s' and '%s'", left.Type(), right.Type())
	}
	return nil, unsupported(op, left, right)
}

// InplaceOp evaluates an augmented assignment. Lists and sets are updated
// in place; everything else falls back to BinaryOp.
func InplaceOp(op string, left, right object.Object) (object.Object, error) {
	switch l := left.(type) {
	case *object.List:
		switch op {
		case "+":
			items, err := object.Collect(right)
			if err != nil {
				return nil, err
			}
			l.Elements = append(l.Elements, items...)
			return l, nil
		case "*":
			if n, ok := asInt(right); ok {
				items, err := repeatSeq(l.Elements, n)
				if err != nil {
					return nil, err
				}
				l.Elements = items
				return l, nil
			}
		}
	case *object.Set:
		if r, ok := right.(*object.Set); ok {
			out, ok, err := setBinary(op, l, r)
			if err != nil || !ok {
				break
			}
			l.Clear()
			for _, item := range out.(*object.Set).Items() {
				_ = l.Add(item)
			}
			return l, nil
		}
	case *object.Dict:
		if op == "|" {
			if r, ok := right.(*object.Dict); ok {
				for _, e := range r.Entries() {
					_ = l.Set(e.Key, e.Value)
				}
				return l, nil
			}
		}
	}
	out, err := BinaryOp(op, left, right)
	if exc, ok := err.(*object.Exception); ok && strings.HasPrefix(exc.Message(), "unsupported operand") {
		return nil, object.NewException(object.TypeError,
			"unsupported operand type(s) for %s=: '%s' and '%s'", op, left.Type(), right.Type())
	}
	return out, err
}

func UnaryOp(op string, operand object.Object) (object.Object, error) {
	switch op {
	case "not":
		return object.NativeBool(!IsTruthy(operand)), nil
	case "-":
		switch v := operand.(type) {
		case *object.Float:
			return &object.Float{Value: -v.Value}, nil
		default:
			if i, ok := asInt(operand); ok {
				if i == math.MinInt64 {
					return nil, overflow()
				}
				return &object.Int{Value: -i}, nil
			}
		}
	case "+":
		switch v := operand.(type) {
		case *object.Float:
			return v, nil
		default:
			if i, ok := asInt(operand); ok {
				return &object.Int{Value: i}, nil
			}
		}
	case "~":
		if i, ok := asInt(operand); ok {
			return &object.Int{Value: ^i}, nil
		}
	}
	return nil, object.NewException(object.TypeError, "bad operand type for unary %s: '%s'", op, operand.Type())
}

func intBinary(op string, left, right object.Object, a, b int64) (object.Object, error) {
	_, lb := left.(*object.Bool)
	_, rb := right.(*object.Bool)
	if lb && rb {
		switch op {
		case "&":
			return object.NativeBool(a&b != 0), nil
		case "|":
			return object.NativeBool(a|b != 0), nil
		case "^":
			return object.NativeBool(a^b != 0), nil
		}
	}

	var r int64
	var err error
	switch op {
	case "+":
		r, err = addInt(a, b)
	case "-":
		r, err = subInt(a, b)
	case "*":
		r, err = mulInt(a, b)
	case "//":
		r, err = floorDivInt(a, b)
	case "%":
		r, err = modInt(a, b)
	case "/":
		if b == 0 {
			return nil, object.NewException(object.ZeroDivisionError, "division by zero")
		}
		return &object.Float{Value: float64(a) / float64(b)}, nil
	case "**":
		if b < 0 {
			f, err := powFloat(float64(a), float64(b))
			if err != nil {
				return nil, err
			}
			return &object.Float{Value: f}, nil
		}
		r, err = powInt(a, b)
	case "<<":
		r, err = lshiftInt(a, b)
	case ">>":
		r, err = rshiftInt(a, b)
	case "&":
		r = a & b
	case "|":
		r = a | b
	case "^":
		r = a ^ b
	default:
		return nil, unsupported(op, left, right)
	}
	if err != nil {
		return nil, err
	}
	return &object.Int{Value: r}, nil
}

func floatBinary(op string, left, right object.Object, a, b float64) (object.Object, error) {
	var r float64
	var err error
	switch op {
	case "+":
		r = a + b
	case "-":
		r = a - b
	case "*":
		r = a * b
	case "/":
		if b == 0 {
			return nil, object.NewException(object.ZeroDivisionError, "float division by zero")
		}
		r = a / b
	case "//":
		r, err = floorDivFloat(a, b)
	case "%":
		r, err = modFloat(a, b)
	case "**":
		r, err = powFloat(a, b)
	default:
		return nil, unsupported(op, left, right)
	}
	if err != nil {
		return nil, err
	}
	return &object.Float{Value: r}, nil
}

func setBinary(op string, l, r *object.Set) (object.Object, bool, error) {
	out := object.NewSet()
	switch op {
	case "|":
		for _, it := range l.Items() {
			_ = out.Add(it)
		}
		for _, it := range r.Items() {
			_ = out.Add(it)
		}
	case "&":
		for _, it := range l.Items() {
			if ok, _ := r.Contains(it); ok {
				_ = out.Add(it)
			}
		}
	case "-":
		for _, it := range l.Items() {
			if ok, _ := r.Contains(it); !ok {
				_ = out.Add(it)
			}
		}
	case "^":
		for _, it := range l.Items() {
			if ok, _ := r.Contains(it); !ok {
				_ = out.Add(it)
			}
		}
		for _, it := range r.Items() {
			if ok, _ := l.Contains(it); !ok {
				_ = out.Add(it)
			}
		}
	default:
		return nil, false, nil
	}
	return out, true, nil
}

func isSequence(o object.Object) bool {
	switch o.(type) {
	case *object.Str, *object.List, *object.Tuple:
		return true
	}
	return false
}

const maxRepeat = 1 << 28

func repeatStr(s string, n int64) (object.Object, error) {
	if n <= 0 || s == "" {
		return &object.Str{Value: ""}, nil
	}
	if int64(len(s))*n > maxRepeat || n > maxRepeat {
		return nil, object.NewException(object.MemoryError, "repeated string is too large")
	}
	return &object.Str{Value: strings.Repeat(s, int(n))}, nil
}

func repeatSeq(items []object.Object, n int64) ([]object.Object, error) {
	if n <= 0 || len(items) == 0 {
		return []object.Object{}, nil
	}
	if int64(len(items))*n > maxRepeat || n > maxRepeat {
		return nil, object.NewException(object.MemoryError, "repeated sequence is too large")
	}
	out := make([]object.Object, 0, int64(len(items))*n)
	for i := int64(0); i < n; i++ {
		out = append(out, items...)
	}
	return out, nil
}

func repeatList(items []object.Object, n int64) (object.Object, error) {
	out, err := repeatSeq(items, n)
	if err != nil {
		return nil, err
	}
	return &object.List{Elements: out}, nil
}

func repeatTuple(items []object.Object, n int64) (object.Object, error) {
	out, err := repeatSeq(items, n)
	if err != nil {
		return nil, err
	}
	return &object.Tuple{Elements: out}, nil
}
