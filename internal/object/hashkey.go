package object

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

// HashKey identifies a hashable value inside a Dict or Set. Numerically
// equal Int, Float and Bool values share a key, so 1, 1.0 and True collide.
type HashKey string

func HashKeyOf(o Object) (HashKey, bool) {
	switch v := o.(type) {
	case *Int:
		return intKey(v.Value), true
	case *Bool:
		if v.Value {
			return intKey(1), true
		}
		return intKey(0), true
	case *Float:
		if i, ok := floatAsInt(v.Value); ok {
			return intKey(i), true
		}
		return HashKey("f" + strconv.FormatUint(math.Float64bits(v.Value), 16)), true
	case *Str:
		return HashKey("s" + v.Value), true
	case *NoneType:
		return "n", true
	case *Tuple:
		var b strings.Builder
		b.WriteString("t")
		b.WriteString(strconv.Itoa(len(v.Elements)))
		for _, el := range v.Elements {
			k, ok := HashKeyOf(el)
			if !ok {
				return "", false
			}
			fmt.Fprintf(&b, "|%d:%s", len(k), k)
		}
		return HashKey(b.String()), true
	case *List, *Dict, *Set, *Slice:
		return "", false
	default:
		return HashKey(fmt.Sprintf("p%p", o)), true
	}
}

func intKey(i int64) HashKey { return HashKey("i" + strconv.FormatInt(i, 10)) }

func floatAsInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Hash mirrors the builtin hash(). Small integers hash to themselves.
func Hash(o Object) (int64, error) {
	key, ok := HashKeyOf(o)
	if !ok {
		return 0, Unhashable(o)
	}
	if strings.HasPrefix(string(key), "i") {
		n, _ := strconv.ParseInt(string(key[1:]), 10, 64)
		if n == -1 {
			n = -2
		}
		return n, nil
	}
	h := fnv.New64a()
	h.Write([]byte(key))
	n := int64(h.Sum64() >> 1)
	if n == -1 {
		n = -2
	}
	return n, nil
}

func Unhashable(o Object) *Exception {
	return NewException(TypeError, "unhashable type: '%s'", o.Type())
}
