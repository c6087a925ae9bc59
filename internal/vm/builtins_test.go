package vm

import (
	"bytes"
	"strings"
	"testing"

	"pyvm/internal/object"
	"pyvm/internal/runtimeio"
)

func list(items ...object.Object) *object.List { return &object.List{Elements: items} }

func fl(v float64) *object.Float { return &object.Float{Value: v} }

func builtin(t *testing.T, name string) object.Object {
	t.Helper()
	b, ok := Builtin(name)
	if !ok {
		t.Fatalf("expected builtin %s", name)
	}
	return b
}

func kwargs(t *testing.T, kv ...any) *object.Dict {
	t.Helper()
	d := object.NewDict()
	for k := 0; k+1 < len(kv); k += 2 {
		d.SetStr(kv[k].(string), kv[k+1].(object.Object))
	}
	return d
}

func TestBuiltins(t *testing.T) {
	m := New()
	b := func(name string) object.Object { return builtin(t, name) }

	tests := []struct {
		name   string
		args   []object.Object
		kwargs *object.Dict
		want   string
	}{
		{"len", []object.Object{list(i(1), i(2), i(3))}, nil, "3"},
		{"len", []object.Object{str("héllo")}, nil, "5"},
		{"repr", []object.Object{str("a")}, nil, `"'a'"`},
		{"ascii", []object.Object{str("é")}, nil, `"'\\xe9'"`},
		{"str", []object.Object{fl(1.5)}, nil, "'1.5'"},
		{"str", nil, nil, "''"},
		{"int", []object.Object{str(" 12 ")}, nil, "12"},
		{"int", []object.Object{str("1f"), i(16)}, nil, "31"},
		{"int", []object.Object{str("0b101"), i(0)}, nil, "5"},
		{"int", []object.Object{fl(-3.9)}, nil, "-3"},
		{"float", []object.Object{str("1e3")}, nil, "1000.0"},
		{"float", []object.Object{i(2)}, nil, "2.0"},
		{"bool", []object.Object{list()}, nil, "False"},
		{"list", []object.Object{rng(t, m, i(3))}, nil, "[0, 1, 2]"},
		{"tuple", []object.Object{str("ab")}, nil, "('a', 'b')"},
		{"dict", nil, kwargs(t, "a", i(1)), "{'a': 1}"},
		{"dict", []object.Object{list(tuple(str("k"), i(2)))}, nil, "{'k': 2}"},
		{"set", []object.Object{list(i(1), i(1), i(2))}, nil, "{1, 2}"},
		{"sorted", []object.Object{list(i(3), i(1), i(2))}, kwargs(t, "reverse", object.True), "[3, 2, 1]"},
		{"sorted", []object.Object{list(i(3), i(-4), i(1))}, kwargs(t, "key", b("abs")), "[1, 3, -4]"},
		{"min", []object.Object{i(3), i(1), i(2)}, nil, "1"},
		{"max", []object.Object{list(i(1), i(5), i(2))}, nil, "5"},
		{"max", []object.Object{list()}, kwargs(t, "default", i(0)), "0"},
		{"sum", []object.Object{list(i(1), i(2), i(3)), i(10)}, nil, "16"},
		{"abs", []object.Object{i(-3)}, nil, "3"},
		{"divmod", []object.Object{i(-7), i(2)}, nil, "(-4, 1)"},
		{"pow", []object.Object{i(2), i(10)}, nil, "1024"},
		{"pow", []object.Object{i(2), i(10), i(1000)}, nil, "24"},
		{"round", []object.Object{fl(2.5)}, nil, "2"},
		{"round", []object.Object{fl(3.5)}, nil, "4"},
		{"any", []object.Object{list(i(0), i(1))}, nil, "True"},
		{"all", []object.Object{list()}, nil, "True"},
		{"callable", []object.Object{b("len")}, nil, "True"},
		{"callable", []object.Object{i(1)}, nil, "False"},
		{"isinstance", []object.Object{object.True, b("int")}, nil, "True"},
		{"isinstance", []object.Object{str("a"), tuple(b("int"), b("str"))}, nil, "True"},
		{"isinstance", []object.Object{i(1), b("str")}, nil, "False"},
		{"chr", []object.Object{i(65)}, nil, "'A'"},
		{"ord", []object.Object{str("A")}, nil, "65"},
		{"format", []object.Object{fl(3.14159), str(".2f")}, nil, "'3.14'"},
		{"hash", []object.Object{i(7)}, nil, "7"},
	}
	for _, tt := range tests {
		res, err := m.Call(b(tt.name), tt.args, tt.kwargs)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got := object.Repr(res); got != tt.want {
			t.Fatalf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestIteratorBuiltins(t *testing.T) {
	m := New()
	b := func(name string) object.Object { return builtin(t, name) }
	listOf := func(name string, args []object.Object, kw *object.Dict) string {
		it := call(t, m, b(name), args, kw)
		return object.Repr(call(t, m, b("list"), []object.Object{it}, nil))
	}

	tests := []struct {
		got, want string
	}{
		{listOf("enumerate", []object.Object{str("ab")}, kwargs(t, "start", i(1))), "[(1, 'a'), (2, 'b')]"},
		{listOf("zip", []object.Object{list(i(1), i(2)), list(i(3), i(4), i(5))}, nil), "[(1, 3), (2, 4)]"},
		{listOf("reversed", []object.Object{list(i(1), i(2), i(3))}, nil), "[3, 2, 1]"},
		{listOf("map", []object.Object{b("str"), list(i(1), i(2))}, nil), "['1', '2']"},
		{listOf("filter", []object.Object{object.None, list(i(0), i(1), i(2))}, nil), "[1, 2]"},
		{listOf("iter", []object.Object{rng(t, m, i(1), i(7), i(3))}, nil), "[1, 4]"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Fatalf("expected %s, got %s", tt.want, tt.got)
		}
	}

	it := call(t, m, b("iter"), []object.Object{list()}, nil)
	expectRepr(t, call(t, m, b("next"), []object.Object{it, str("done")}, nil), "'done'")
	_, err := m.Call(b("next"), []object.Object{it}, nil)
	expectException(t, err, object.StopIteration, "")
}

func rng(t *testing.T, m *VM, args ...object.Object) object.Object {
	return call(t, m, builtin(t, "range"), args, nil)
}

func TestBuiltinErrors(t *testing.T) {
	m := New()
	tests := []struct {
		name  string
		args  []object.Object
		class *object.ExceptionType
		msg   string
	}{
		{"len", []object.Object{i(1)}, object.TypeError, "object of type 'int' has no len()"},
		{"len", nil, object.TypeError, "len() takes exactly one argument (0 given)"},
		{"int", []object.Object{str("abc")}, object.ValueError, "invalid literal for int() with base 10: 'abc'"},
		{"float", []object.Object{str("x")}, object.ValueError, "could not convert string to float: 'x'"},
		{"min", []object.Object{list()}, object.ValueError, "min() arg is an empty sequence"},
		{"chr", []object.Object{i(-1)}, object.ValueError, "chr() arg not in range(0x110000)"},
		{"range", []object.Object{i(1), i(2), i(0)}, object.ValueError, "range() arg 3 must not be zero"},
		{"sum", []object.Object{list(str("a")), str("")}, object.TypeError, "sum() can't sum strings [use ''.join(seq) instead]"},
		{"pow", []object.Object{i(2), i(1), i(0)}, object.ValueError, "pow() 3rd argument cannot be 0"},
		{"isinstance", []object.Object{i(1), i(2)}, object.TypeError, "isinstance() arg 2 must be a type or tuple of types"},
	}
	for _, tt := range tests {
		_, err := m.Call(builtin(t, tt.name), tt.args, nil)
		expectException(t, err, tt.class, tt.msg)
	}

	_, err := m.Call(builtin(t, "len"), []object.Object{str("a")}, kwargs(t, "x", i(1)))
	expectException(t, err, object.TypeError, "len() takes no keyword arguments")
}

func TestPrintOptions(t *testing.T) {
	m := New()
	out := withOutput(m)
	call(t, m, builtin(t, "print"), []object.Object{i(1), str("a")}, kwargs(t, "sep", str("-"), "end", str("!")))
	call(t, m, builtin(t, "print"), nil, nil)
	if out.String() != "1-a!\n" {
		t.Fatalf("expected %q, got %q", "1-a!\n", out.String())
	}
}

func TestInput(t *testing.T) {
	m := New()
	var out bytes.Buffer
	m.SetConsole(runtimeio.NewConsole(strings.NewReader("abc\n"), &out))

	expectRepr(t, call(t, m, builtin(t, "input"), []object.Object{str("> ")}, nil), "'abc'")
	if out.String() != "> " {
		t.Fatalf("expected prompt, got %q", out.String())
	}
	_, err := m.Call(builtin(t, "input"), nil, nil)
	expectException(t, err, object.EOFError, "EOF when reading a line")
}

func callMethod(t *testing.T, m *VM, self object.Object, name string, args []object.Object, kw *object.Dict) (object.Object, error) {
	t.Helper()
	fn, err := getAttr(m, self, name)
	if err != nil {
		t.Fatalf("getattr %s: %v", name, err)
	}
	return m.Call(fn, args, kw)
}

func TestStrMethods(t *testing.T) {
	m := New()
	tests := []struct {
		self string
		name string
		args []object.Object
		kw   *object.Dict
		want string
	}{
		{"a,b", "split", []object.Object{str(",")}, nil, "['a', 'b']"},
		{"  a  b ", "split", nil, nil, "['a', 'b']"},
		{",", "join", []object.Object{list(str("a"), str("b"))}, nil, "'a,b'"},
		{" hi ", "strip", nil, nil, "'hi'"},
		{"abc", "upper", nil, nil, "'ABC'"},
		{"hello world", "title", nil, nil, "'Hello World'"},
		{"abcabc", "replace", []object.Object{str("b"), str("x")}, nil, "'axcaxc'"},
		{"abc", "find", []object.Object{str("z")}, nil, "-1"},
		{"abc", "startswith", []object.Object{tuple(str("x"), str("a"))}, nil, "True"},
		{"{} {name}", "format", []object.Object{i(1)}, kwargs(t, "name", str("x")), "'1 x'"},
		{"{0}-{0}", "format", []object.Object{str("a")}, nil, "'a-a'"},
		{"{:>4}|{!r}", "format", []object.Object{i(7), str("q")}, nil, `"   7|'q'"`},
		{"{{}}", "format", nil, nil, "'{}'"},
	}
	for _, tt := range tests {
		res, err := callMethod(t, m, str(tt.self), tt.name, tt.args, tt.kw)
		if err != nil {
			t.Fatalf("%q.%s: unexpected error: %v", tt.self, tt.name, err)
		}
		if got := object.Repr(res); got != tt.want {
			t.Fatalf("%q.%s: expected %s, got %s", tt.self, tt.name, tt.want, got)
		}
	}

	_, err := callMethod(t, m, str("{0}{}"), "format", []object.Object{i(1), i(2)}, nil)
	expectException(t, err, object.ValueError,
		"cannot switch from manual field specification to automatic field numbering")
	_, err = callMethod(t, m, str("abc"), "index", []object.Object{str("z")}, nil)
	expectException(t, err, object.ValueError, "substring not found")
}

func TestListMethods(t *testing.T) {
	m := New()
	xs := list(i(3), i(-4), i(1))

	if _, err := callMethod(t, m, xs, "sort", nil, kwargs(t, "key", builtin(t, "abs"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectRepr(t, xs, "[1, 3, -4]")

	res, err := callMethod(t, m, xs, "pop", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectInt(t, res, -4)

	if _, err := callMethod(t, m, xs, "insert", []object.Object{i(0), i(9)}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectRepr(t, xs, "[9, 1, 3]")

	_, err = callMethod(t, m, xs, "index", []object.Object{i(5)}, nil)
	expectException(t, err, object.ValueError, "5 is not in list")

	_, err = callMethod(t, m, list(), "pop", nil, nil)
	expectException(t, err, object.IndexError, "pop from empty list")
}

func TestDictMethods(t *testing.T) {
	m := New()
	d := dict(t, str("a"), i(1))

	res, err := callMethod(t, m, d, "get", []object.Object{str("b"), i(0)}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectInt(t, res, 0)

	res, err = callMethod(t, m, d, "setdefault", []object.Object{str("b"), i(2)}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectInt(t, res, 2)

	res, err = callMethod(t, m, d, "items", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectRepr(t, res, "[('a', 1), ('b', 2)]")

	_, err = callMethod(t, m, d, "pop", []object.Object{str("zz")}, nil)
	expectException(t, err, object.KeyError, "'zz'")
}

func TestSetMethods(t *testing.T) {
	m := New()
	s := object.NewSet()
	for _, v := range []int64{1, 2} {
		if err := s.Add(i(v)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	res, err := callMethod(t, m, s, "union", []object.Object{list(i(2), i(3))}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectRepr(t, res, "{1, 2, 3}")

	_, err = callMethod(t, m, s, "remove", []object.Object{i(9)}, nil)
	expectException(t, err, object.KeyError, "9")
}

func TestExceptionAttributes(t *testing.T) {
	m := New()
	exc := object.NewException(object.ValueError, "bad")
	exc.Cause = object.NewException(object.KeyError, "k")

	args, err := getAttr(m, exc, "args")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectRepr(t, args, "('bad',)")

	cause, err := getAttr(m, exc, "__cause__")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cause != exc.Cause {
		t.Fatalf("expected __cause__ to be the cause")
	}

	_, err = getAttr(m, i(1), "nope")
	expectException(t, err, object.AttributeError, "'int' object has no attribute 'nope'")
}
