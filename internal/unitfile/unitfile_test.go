package unitfile

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"pyvm/internal/code"
	"pyvm/internal/object"
	"pyvm/internal/vm"
)

const fibAssembly = `
name: <module>
filename: fib.py
consts:
  - code:
      name: fib
      filename: fib.py
      argcount: 1
      varnames: [n]
      consts: [2, 1]
      code:
        - LOAD_FAST n
        - LOAD_CONST 0
        - COMPARE_OP <
        - POP_JUMP_IF_FALSE @recurse
        - LOAD_FAST n
        - RETURN_VALUE
        - recurse:
        - LOAD_GLOBAL fib
        - LOAD_FAST n
        - LOAD_CONST 1
        - BINARY_SUBTRACT
        - CALL_FUNCTION 1
        - LOAD_GLOBAL fib
        - LOAD_FAST n
        - LOAD_CONST 0
        - BINARY_SUBTRACT
        - CALL_FUNCTION 1
        - BINARY_ADD
        - RETURN_VALUE
  - fib
  - 10
  - {tuple: [1, 2.5, "x", null, true]}
code:
  - LOAD_CONST 0
  - LOAD_CONST 1
  - MAKE_FUNCTION 0
  - STORE_NAME fib
  - LOAD_NAME fib
  - LOAD_CONST 2
  - CALL_FUNCTION 1
  - RETURN_VALUE
`

func parseFib(t *testing.T) *object.Code {
	t.Helper()
	c, err := ParseAssembly([]byte(fibAssembly))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return c
}

func mustMarshal(t *testing.T, c *object.Code) []byte {
	t.Helper()
	data, err := Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func run(t *testing.T, c *object.Code) object.Object {
	t.Helper()
	res, err := vm.New().Run(c, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func TestAssemblyRuns(t *testing.T) {
	c := parseFib(t)
	if got := run(t, c); object.Repr(got) != "55" {
		t.Fatalf("expected 55, got %s", object.Repr(got))
	}

	fib := c.Consts[0].(*object.Code)
	if fib.QualName != "fib" || fib.Filename != "fib.py" {
		t.Fatalf("expected fib from fib.py, got %s from %s", fib.QualName, fib.Filename)
	}
	if len(fib.Names) != 1 || fib.Names[0] != "fib" {
		t.Fatalf("expected symbolic names to be interned once, got %v", fib.Names)
	}
	if got := fib.Instructions[3]; got.Op != code.OpPopJumpIfFalse || got.Arg != 6 {
		t.Fatalf("expected POP_JUMP_IF_FALSE 6, got %s %d", got.Op, got.Arg)
	}
	if got := object.Repr(c.Consts[3]); got != "(1, 2.5, 'x', None, True)" {
		t.Fatalf("expected tuple constant, got %s", got)
	}
}

func TestBinaryEncodingIsStable(t *testing.T) {
	c := parseFib(t)
	first, err := Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := Unmarshal(first)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	second, err := Marshal(decoded)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("expected identical encodings after decoding")
	}
	if decoded.Instructions.String() != c.Instructions.String() {
		t.Fatalf("expected same listing, got:\n%s\nwant:\n%s", decoded.Instructions, c.Instructions)
	}
	if got := run(t, decoded); object.Repr(got) != "55" {
		t.Fatalf("expected 55, got %s", object.Repr(got))
	}
}

func TestFormatAssemblyReparses(t *testing.T) {
	c := parseFib(t)
	text, err := FormatAssembly(c)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(string(text), "POP_JUMP_IF_FALSE @L6") {
		t.Fatalf("expected a generated label, got:\n%s", text)
	}
	again, err := ParseAssembly(text)
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, text)
	}
	if !bytes.Equal(mustMarshal(t, again), mustMarshal(t, c)) {
		t.Fatalf("expected the reparsed unit to match, got:\n%s", again.Disassemble())
	}
}

func TestFormatAssemblyKeepsFloatsAndStrings(t *testing.T) {
	c := &object.Code{
		Name: "<module>",
		Consts: []object.Object{
			&object.Float{Value: 3}, &object.Str{Value: "10"}, &object.Str{Value: "a: b"},
		},
		Instructions: code.Instructions{
			code.Make(code.OpLoadConst, 0), code.Make(code.OpLoadConst, 1), code.Make(code.OpLoadConst, 2),
			code.Make(code.OpBuildTuple, 3), code.Make(code.OpReturnValue),
		},
	}
	text, err := FormatAssembly(c)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	again, err := ParseAssembly(text)
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, text)
	}
	if got := object.Repr(run(t, again)); got != "(3.0, '10', 'a: b')" {
		t.Fatalf("expected constants to keep their types, got %s", got)
	}
}

func TestAssemblyErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown opcode", "code: [LOAD_EVERYTHING 1]", `unknown opcode "LOAD_EVERYTHING"`},
		{"missing operand", "code: [LOAD_CONST]", "LOAD_CONST needs an operand"},
		{"extra operand", "code: [RETURN_VALUE 1]", "RETURN_VALUE takes no operand"},
		{"undefined label", "code: [JUMP_ABSOLUTE @nowhere]", "undefined labels: nowhere"},
		{"label on a non-jump", "code: [LOAD_CONST @x]", "LOAD_CONST does not take a label"},
		{"const out of range", "code: [LOAD_CONST 0, RETURN_VALUE]", "constant index 0 out of range"},
		{"unknown key", "code: [RETURN_VALUE]\nstack: 3", "field stack not found"},
		{"unknown flag", "flags: [async]\ncode: [RETURN_VALUE]", `unknown flag "async"`},
		{"empty", "code: []", "no instructions"},
		{"free variable", "code: [LOAD_DEREF x]", `"x" is neither a cell nor a free variable`},
		{"bad comparison", "code: [COMPARE_OP ~]", `unknown comparison "~"`},
		{"big int", "consts: [!!int 99999999999999999999]\ncode: [RETURN_VALUE]", "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAssembly([]byte(tt.src))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
			if !strings.HasPrefix(err.Error(), "unitfile: ") {
				t.Fatalf("expected unitfile prefix, got %v", err)
			}
		})
	}
}

func TestValidateRejectsBadOperands(t *testing.T) {
	base := func(ins ...code.Instruction) *object.Code {
		return &object.Code{Name: "f", VarNames: []string{"a"}, Instructions: ins}
	}
	tests := []struct {
		name string
		c    *object.Code
		want string
	}{
		{"jump past end", base(code.Make(code.OpJumpForward, 4)), "jump target 5 past the end"},
		{"local", base(code.Make(code.OpLoadFast, 1)), "local index 1 out of range"},
		{"unknown opcode", base(code.Make(code.Opcode(250))), "unknown opcode 250"},
		{"raise form", base(code.Make(code.OpRaiseVarargs, 3)), "raise form index 3 out of range"},
		{"lines", &object.Code{Name: "f", Lines: []int{1, 2}, Instructions: code.Instructions{code.Make(code.OpReturnValue)}}, "2 line entries for 1 instructions"},
		{"parameters", &object.Code{Name: "f", ArgCount: 2, VarNames: []string{"a"}, Instructions: code.Instructions{code.Make(code.OpReturnValue)}}, "2 parameters but only 1 local names"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.c)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestUnmarshalRejectsForeignData(t *testing.T) {
	data, err := encMode.Marshal(&wireFile{Magic: "elf", Version: version, Unit: &wireUnit{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := Unmarshal(data); err == nil || !strings.Contains(err.Error(), "not a compiled unit") {
		t.Fatalf("expected magic error, got %v", err)
	}
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	c := parseFib(t)
	dir := t.TempDir()
	for _, name := range []string{"fib.pyvmc", "fib.yaml"} {
		path := filepath.Join(dir, name)
		if err := Save(path, c); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if got := run(t, loaded); object.Repr(got) != "55" {
			t.Fatalf("%s: expected 55, got %s", name, object.Repr(got))
		}
	}
	if err := Save(filepath.Join(dir, "fib.txt"), c); err == nil || !strings.Contains(err.Error(), "unknown extension") {
		t.Fatalf("expected extension error, got %v", err)
	}
}

func TestFormatOfAndCodecs(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.pyvmc", FormatBinary},
		{"a.yaml", FormatYAML},
		{"dir/A.YML", FormatYAML},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		if err != nil || got != tt.want {
			t.Fatalf("FormatOf(%s): expected %d, got %d (%v)", tt.path, tt.want, got, err)
		}
	}

	c := parseFib(t)
	for _, f := range []Format{FormatBinary, FormatYAML} {
		data, err := Encode(c, f)
		if err != nil {
			t.Fatalf("encode %d: %v", f, err)
		}
		back, err := Decode(data, f)
		if err != nil {
			t.Fatalf("decode %d: %v", f, err)
		}
		if got := run(t, back); object.Repr(got) != "55" {
			t.Fatalf("format %d: expected 55, got %s", f, object.Repr(got))
		}
	}
}
