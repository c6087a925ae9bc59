package object

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Repr is the debug conversion, repr(o).
func Repr(o Object) string {
	var b strings.Builder
	writeRepr(&b, o, map[Object]bool{})
	return b.String()
}

// ToStr is the display conversion, str(o).
func ToStr(o Object) string {
	switch v := o.(type) {
	case *Str:
		return v.Value
	case *Exception:
		return v.Message()
	}
	return Repr(o)
}

// ASCII is ascii(o): repr with every non-ASCII rune escaped.
func ASCII(o Object) string {
	r := Repr(o)
	var b strings.Builder
	for _, c := range r {
		switch {
		case c < utf8.RuneSelf:
			b.WriteRune(c)
		case c <= 0xff:
			fmt.Fprintf(&b, "\\x%02x", c)
		case c <= 0xffff:
			fmt.Fprintf(&b, "\\u%04x", c)
		default:
			fmt.Fprintf(&b, "\\U%08x", c)
		}
	}
	return b.String()
}

func writeRepr(b *strings.Builder, o Object, seen map[Object]bool) {
	switch v := o.(type) {
	case *List:
		if seen[v] {
			b.WriteString("[...]")
			return
		}
		seen[v] = true
		b.WriteByte('[')
		writeItems(b, v.Elements, seen)
		b.WriteByte(']')
		delete(seen, v)
	case *Tuple:
		if seen[v] {
			b.WriteString("(...)")
			return
		}
		seen[v] = true
		b.WriteByte('(')
		writeItems(b, v.Elements, seen)
		if len(v.Elements) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
		delete(seen, v)
	case *Dict:
		if seen[v] {
			b.WriteString("{...}")
			return
		}
		seen[v] = true
		b.WriteByte('{')
		for i, e := range v.Entries() {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, e.Key, seen)
			b.WriteString(": ")
			writeRepr(b, e.Value, seen)
		}
		b.WriteByte('}')
		delete(seen, v)
	case *Set:
		if v.Len() == 0 {
			b.WriteString("set()")
			return
		}
		b.WriteByte('{')
		writeItems(b, v.Items(), seen)
		b.WriteByte('}')
	case *Slice:
		b.WriteString("slice(")
		writeItems(b, []Object{v.Start, v.Stop, v.Step}, seen)
		b.WriteByte(')')
	case nil:
		b.WriteString("<NULL>")
	default:
		b.WriteString(o.Inspect())
	}
}

func writeItems(b *strings.Builder, items []Object, seen map[Object]bool) {
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		writeRepr(b, it, seen)
	}
}

// QuoteStr renders s as a string literal. Single quotes are preferred
// unless s contains a single quote and no double quote.
func QuoteStr(s string) string {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.WriteRune(quote)
	for _, c := range s {
		switch {
		case c == quote || c == '\\':
			b.WriteByte('\\')
			b.WriteRune(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, "\\x%02x", c)
		case c == utf8.RuneError || !unicode.IsPrint(c):
			switch {
			case c <= 0xff:
				fmt.Fprintf(&b, "\\x%02x", c)
			case c <= 0xffff:
				fmt.Fprintf(&b, "\\u%04x", c)
			default:
				fmt.Fprintf(&b, "\\U%08x", c)
			}
		default:
			b.WriteRune(c)
		}
	}
	b.WriteRune(quote)
	return b.String()
}

// FormatFloat renders f the way float.__repr__ does: the shortest digits
// that round-trip, exponent form outside 1e-4 <= |f| < 1e16.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	if f != 0 {
		sci := strconv.FormatFloat(f, 'e', -1, 64)
		i := strings.IndexByte(sci, 'e')
		if exp, err := strconv.Atoi(sci[i+1:]); err == nil && (exp < -4 || exp >= 16) {
			return sci
		}
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
