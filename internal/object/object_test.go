package object

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{-0.0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{0.1, "0.1"},
		{2.5, "2.5"},
		{1e16, "1e+16"},
		{1e15, "1000000000000000.0"},
		{1.5e-5, "1.5e-05"},
		{0.0001, "0.0001"},
		{1.0 / 3, "0.3333333333333333"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in); got != tt.want {
			t.Fatalf("FormatFloat(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestQuoteStr(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc", "'abc'"},
		{"it's", `"it's"`},
		{`both ' and "`, `'both \' and "'`},
		{"tab\there\n", `'tab\there\n'`},
		{"\x01", `'\x01'`},
		{"héllo", "'héllo'"},
	}
	for _, tt := range tests {
		if got := QuoteStr(tt.in); got != tt.want {
			t.Fatalf("QuoteStr(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestReprContainers(t *testing.T) {
	d := NewDict()
	_ = d.Set(&Str{Value: "a"}, &Int{Value: 1})
	_ = d.Set(&Int{Value: 2}, &List{Elements: []Object{True, None}})

	tests := []struct {
		in   Object
		want string
	}{
		{&Tuple{}, "()"},
		{&Tuple{Elements: []Object{&Int{Value: 1}}}, "(1,)"},
		{&List{Elements: []Object{&Str{Value: "x"}, &Float{Value: 2}}}, "['x', 2.0]"},
		{d, "{'a': 1, 2: [True, None]}"},
		{NewSet(), "set()"},
		{&Range{Start: 0, Stop: 5, Step: 1}, "range(0, 5)"},
		{&Slice{Start: &Int{Value: 1}, Stop: None, Step: None}, "slice(1, None, None)"},
	}
	for _, tt := range tests {
		if got := Repr(tt.in); got != tt.want {
			t.Fatalf("expected %s, got %s", tt.want, got)
		}
	}
}

func TestReprSelfReference(t *testing.T) {
	l := &List{}
	l.Elements = append(l.Elements, &Int{Value: 1}, l)
	if got := Repr(l); got != "[1, [...]]" {
		t.Fatalf("expected [1, [...]], got %s", got)
	}
}

func TestToStrVersusRepr(t *testing.T) {
	s := &Str{Value: "hi"}
	if ToStr(s) != "hi" || Repr(s) != "'hi'" {
		t.Fatalf("unexpected conversions: str=%q repr=%q", ToStr(s), Repr(s))
	}
	if got := ASCII(&Str{Value: "é"}); got != `'\xe9'` {
		t.Fatalf("expected '\\xe9', got %s", got)
	}
}

func TestNumericKeysCollide(t *testing.T) {
	d := NewDict()
	_ = d.Set(&Int{Value: 1}, &Str{Value: "int"})
	_ = d.Set(&Float{Value: 1.0}, &Str{Value: "float"})
	_ = d.Set(True, &Str{Value: "bool"})

	if d.Len() != 1 {
		t.Fatalf("expected one key, got %d", d.Len())
	}
	e := d.Entries()[0]
	if _, ok := e.Key.(*Int); !ok {
		t.Fatalf("expected the first key object to be kept, got %s", e.Key.Type())
	}
	if ToStr(e.Value) != "bool" {
		t.Fatalf("expected last value to win, got %s", ToStr(e.Value))
	}
}

func TestDictInsertionOrder(t *testing.T) {
	d := NewDict()
	for _, k := range []string{"c", "a", "b"} {
		d.SetStr(k, None)
	}
	if _, err := d.Delete(&Str{Value: "a"}); err != nil {
		t.Fatal(err)
	}
	d.SetStr("a", None)
	got := ""
	for _, k := range d.Keys() {
		got += ToStr(k)
	}
	if got != "cba" {
		t.Fatalf("expected order cba, got %s", got)
	}
}

func TestUnhashable(t *testing.T) {
	d := NewDict()
	err := d.Set(&List{}, None)
	var exc *Exception
	if !errors.As(err, &exc) || !exc.IsA(TypeError) {
		t.Fatalf("expected TypeError, got %v", err)
	}
	if exc.Error() != "TypeError: unhashable type: 'list'" {
		t.Fatalf("unexpected message: %s", exc.Error())
	}
	if _, ok := HashKeyOf(&Tuple{Elements: []Object{&List{}}}); ok {
		t.Fatal("tuple holding a list must be unhashable")
	}
}

func TestHash(t *testing.T) {
	for _, tt := range []struct {
		in   Object
		want int64
	}{
		{&Int{Value: 7}, 7},
		{True, 1},
		{&Float{Value: 3.0}, 3},
		{&Int{Value: -1}, -2},
	} {
		got, err := Hash(tt.in)
		if err != nil || got != tt.want {
			t.Fatalf("hash(%s): expected %d, got %d (%v)", Repr(tt.in), tt.want, got, err)
		}
	}
	a, _ := Hash(&Str{Value: "abc"})
	b, _ := Hash(&Str{Value: "abc"})
	if a != b {
		t.Fatal("equal strings must hash equally")
	}
}

func TestExceptionHierarchy(t *testing.T) {
	if !ZeroDivisionError.IsSubclass(ArithmeticError) || !ZeroDivisionError.IsSubclass(ExceptionBase) {
		t.Fatal("ZeroDivisionError should derive from ArithmeticError and Exception")
	}
	if GeneratorExit.IsSubclass(ExceptionBase) {
		t.Fatal("GeneratorExit must not derive from Exception")
	}
	if UnboundLocalError.Kind() != KindName {
		t.Fatalf("expected UnboundLocalError to inherit KindName, got %s", UnboundLocalError.Kind())
	}
	if RecursionError.Kind() != KindRuntime {
		t.Fatalf("expected KindRuntime, got %s", RecursionError.Kind())
	}
}

func TestExceptionMessages(t *testing.T) {
	e := NewException(ValueError, "bad %d", 3)
	if e.Error() != "ValueError: bad 3" || e.Inspect() != "ValueError('bad 3')" {
		t.Fatalf("unexpected rendering: %s / %s", e.Error(), e.Inspect())
	}
	k := NewExceptionArgs(KeyError, []Object{&Str{Value: "k"}}, KindKey)
	if k.Error() != "KeyError: 'k'" {
		t.Fatalf("expected KeyError to repr its key, got %s", k.Error())
	}
	s := NewStopIteration(&Int{Value: 3})
	if v, ok := s.Value().(*Int); !ok || v.Value != 3 {
		t.Fatalf("expected StopIteration value 3, got %s", Repr(s.Value()))
	}
	if NewStopIteration(None).Value() != None {
		t.Fatal("expected empty StopIteration to carry None")
	}
	if a := ArityError("f() takes 0 positional arguments but 1 was given"); a.Kind != KindArityMismatch || !a.IsA(TypeError) {
		t.Fatalf("expected arity TypeError, got %s %s", a.Kind, a.Class.Name)
	}
	if m := NewException(TypeError, "%%c requires int or char"); m.Message() != "%c requires int or char" {
		t.Fatalf("expected an escaped percent to render once, got %q", m.Message())
	}
}

func TestExceptionMatching(t *testing.T) {
	exc := NewException(KeyError, "'k'")
	if !exc.IsA(LookupError) || exc.IsA(TypeError) {
		t.Fatalf("expected KeyError to match LookupError only, got class %s", exc.Class.Name)
	}
	wrapped := fmt.Errorf("while running: %w", exc)
	if !errors.Is(wrapped, exc) {
		t.Fatal("expected errors.Is to find the exception by identity")
	}
	if errors.Is(wrapped, NewException(KeyError, "'k'")) {
		t.Fatal("expected a different exception value not to match")
	}
}

func TestIterators(t *testing.T) {
	items, err := Collect(&Range{Start: 5, Stop: 0, Step: -2})
	if err != nil {
		t.Fatal(err)
	}
	if Repr(&List{Elements: items}) != "[5, 3, 1]" {
		t.Fatalf("unexpected range items: %s", Repr(&List{Elements: items}))
	}

	l := &List{Elements: []Object{&Int{Value: 1}}}
	it, _ := GetIter(l)
	l.Elements = append(l.Elements, &Int{Value: 2})
	n := 0
	for {
		_, ok, err := Advance(it)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		n++
	}
	if n != 2 {
		t.Fatalf("expected list iterator to see appended item, got %d items", n)
	}

	chars, _ := Collect(&Str{Value: "hé"})
	if len(chars) != 2 || ToStr(chars[1]) != "é" {
		t.Fatalf("expected code point iteration, got %s", Repr(&List{Elements: chars}))
	}

	if _, err := GetIter(&Int{Value: 1}); err == nil || err.Error() != "TypeError: 'int' object is not iterable" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDictIteratorDetectsResize(t *testing.T) {
	d := NewDict()
	d.SetStr("a", None)
	it, _ := GetIter(d)
	if _, ok, err := Advance(it); !ok || err != nil {
		t.Fatalf("expected first key, got ok=%v err=%v", ok, err)
	}
	d.SetStr("b", None)
	if _, _, err := Advance(it); err == nil {
		t.Fatal("expected RuntimeError after resize")
	}
}

func TestRangeLen(t *testing.T) {
	for _, tt := range []struct {
		r    Range
		want int64
	}{
		{Range{0, 10, 3}, 4},
		{Range{10, 0, -3}, 4},
		{Range{0, 0, 1}, 0},
		{Range{5, 0, 1}, 0},
		{Range{0, 3, math.MaxInt64}, 1},
		{Range{3, 0, math.MinInt64}, 1},
		{Range{math.MinInt64, math.MaxInt64, math.MaxInt64}, 3},
		{Range{math.MinInt64, math.MaxInt64, 1}, math.MaxInt64},
	} {
		if got := tt.r.Len(); got != tt.want {
			t.Fatalf("len(%s): expected %d, got %d", tt.r.Inspect(), tt.want, got)
		}
	}
}
