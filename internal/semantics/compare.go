package semantics

import (
	"math"
	"strings"

	"pyvm/internal/object"
)

// Equal is ==. Values of different types are unequal except across the
// numeric types.
func Equal(left, right object.Object) bool {
	return equal(left, right, 0)
}

const maxCompareDepth = 200

func equal(left, right object.Object, depth int) bool {
	if left == right {
		if f, ok := left.(*object.Float); ok {
			return !math.IsNaN(f.Value)
		}
		return true
	}
	if depth > maxCompareDepth {
		return false
	}
	if li, ok := asInt(left); ok {
		if ri, ok := asInt(right); ok {
			return li == ri
		}
	}
	if lf, ok := asFloat(left); ok {
		if rf, ok := asFloat(right); ok {
			return lf == rf
		}
		return false
	}
	switch l := left.(type) {
	case *object.Str:
		r, ok := right.(*object.Str)
		return ok && l.Value == r.Value
	case *object.NoneType:
		return right == object.None
	case *object.Tuple:
		r, ok := right.(*object.Tuple)
		return ok && equalSeq(l.Elements, r.Elements, depth)
	case *object.List:
		r, ok := right.(*object.List)
		return ok && equalSeq(l.Elements, r.Elements, depth)
	case *object.Dict:
		r, ok := right.(*object.Dict)
		if !ok || l.Len() != r.Len() {
			return false
		}
		for _, e := range l.Entries() {
			v, found, _ := r.Get(e.Key)
			if !found || !equal(e.Value, v, depth+1) {
				return false
			}
		}
		return true
	case *object.Set:
		r, ok := right.(*object.Set)
		return ok && l.Len() == r.Len() && subset(l, r)
	case *object.Range:
		r, ok := right.(*object.Range)
		if !ok || l.Len() != r.Len() {
			return false
		}
		n := l.Len()
		return n == 0 || (l.Start == r.Start && (n == 1 || l.Step == r.Step))
	case *object.Slice:
		r, ok := right.(*object.Slice)
		return ok && equal(l.Start, r.Start, depth+1) && equal(l.Stop, r.Stop, depth+1) && equal(l.Step, r.Step, depth+1)
	case *object.BoundMethod:
		r, ok := right.(*object.BoundMethod)
		return ok && l.Self == r.Self && l.Func == r.Func
	}
	return false
}

func equalSeq(a, b []object.Object, depth int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equal(a[i], b[i], depth+1) {
			return false
		}
	}
	return true
}

func subset(a, b *object.Set) bool {
	for _, it := range a.Items() {
		if ok, _ := b.Contains(it); !ok {
			return false
		}
	}
	return true
}

// Identity is the "is" operator. Equal small values are distinct objects
// unless they are singletons.
func Identity(left, right object.Object) bool {
	return left == right
}

// Compare evaluates a rich comparison for one of < <= == != > >=.
func Compare(op string, left, right object.Object) (object.Object, error) {
	switch op {
	case "==":
		return object.NativeBool(Equal(left, right)), nil
	case "!=":
		return object.NativeBool(!Equal(left, right)), nil
	}
	ok, err := order(op, left, right)
	if err != nil {
		return nil, err
	}
	return object.NativeBool(ok), nil
}

// Less reports left < right, failing for unordered type pairs. sorted,
// min and max use it.
func Less(left, right object.Object) (bool, error) {
	return order("<", left, right)
}

func order(op string, left, right object.Object) (bool, error) {
	if li, ok := asInt(left); ok {
		if ri, ok := asInt(right); ok {
			return cmpResult(op, cmpInt(li, ri)), nil
		}
	}
	if lf, ok := asFloat(left); ok {
		if rf, ok := asFloat(right); ok {
			if math.IsNaN(lf) || math.IsNaN(rf) {
				return false, nil
			}
			return cmpResult(op, cmpFloat(lf, rf)), nil
		}
	}
	switch l := left.(type) {
	case *object.Str:
		if r, ok := right.(*object.Str); ok {
			return cmpResult(op, cmpStr(l.Value, r.Value)), nil
		}
	case *object.List:
		if r, ok := right.(*object.List); ok {
			return orderSeq(op, l.Elements, r.Elements)
		}
	case *object.Tuple:
		if r, ok := right.(*object.Tuple); ok {
			return orderSeq(op, l.Elements, r.Elements)
		}
	case *object.Set:
		if r, ok := right.(*object.Set); ok {
			switch op {
			case "<=":
				return subset(l, r), nil
			case "<":
				return l.Len() < r.Len() && subset(l, r), nil
			case ">=":
				return subset(r, l), nil
			case ">":
				return r.Len() < l.Len() && subset(r, l), nil
			}
		}
	}
	return false, object.NewException(object.TypeError,
		"'%s' not supported between instances of '%s' and '%s'", op, left.Type(), right.Type())
}

// orderSeq compares lexicographically: the first unequal pair decides,
// otherwise the lengths do.
func orderSeq(op string, a, b []object.Object) (bool, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		if Equal(a[i], b[i]) {
			continue
		}
		return order(op, a[i], b[i])
	}
	return cmpResult(op, cmpInt(int64(len(a)), int64(len(b)))), nil
}

func cmpResult(op string, c int) bool {
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	case "==":
		return c == 0
	case "!=":
		return c != 0
	}
	return false
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpStr orders by code point, which for valid UTF-8 matches byte order.
func cmpStr(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Contains is the "in" operator with the container on the right.
func Contains(container, item object.Object) (bool, error) {
	switch c := container.(type) {
	case *object.Str:
		s, ok := item.(*object.Str)
		if !ok {
			return false, object.NewException(object.TypeError,
				"'in <string>' requires string as left operand, not %s", item.Type())
		}
		return strings.Contains(c.Value, s.Value), nil
	case *object.List:
		return containsSeq(c.Elements, item), nil
	case *object.Tuple:
		return containsSeq(c.Elements, item), nil
	case *object.Dict:
		_, found, err := c.Get(item)
		return found, err
	case *object.Set:
		return c.Contains(item)
	case *object.Range:
		i, ok := asInt(item)
		if !ok {
			if f, isFloat := item.(*object.Float); isFloat {
				if i2, exact := floatIndex(f.Value); exact {
					i, ok = i2, true
				}
			}
		}
		if !ok {
			return false, nil
		}
		n := c.Len()
		if n == 0 {
			return false, nil
		}
		off := i - c.Start
		if off%c.Step != 0 {
			return false, nil
		}
		k := off / c.Step
		return k >= 0 && k < n, nil
	case *object.Iterator, *object.Generator:
		for {
			v, ok, err := object.Advance(c)
			if err != nil || !ok {
				return false, err
			}
			if Equal(v, item) {
				return true, nil
			}
		}
	}
	return false, object.NewException(object.TypeError,
		"argument of type '%s' is not iterable", container.Type())
}

func containsSeq(items []object.Object, item object.Object) bool {
	for _, el := range items {
		if Identity(el, item) || Equal(el, item) {
			return true
		}
	}
	return false
}

func floatIndex(f float64) (int64, bool) {
	i := int64(f)
	return i, float64(i) == f
}
