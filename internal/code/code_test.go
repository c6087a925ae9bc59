package code

import (
	"strings"
	"testing"
)

func TestLookupNameRoundTrip(t *testing.T) {
	for op, def := range definitions {
		got, ok := LookupName(def.Name)
		if !ok {
			t.Fatalf("expected %s to resolve", def.Name)
		}
		if got != op {
			t.Fatalf("expected %s -> %d, got %d", def.Name, op, got)
		}
	}
	if _, ok := LookupName("SETUP_WITH"); ok {
		t.Fatal("expected SETUP_WITH to be unknown")
	}
}

func TestCPythonNumbering(t *testing.T) {
	tests := []struct {
		op   Opcode
		want byte
	}{
		{OpPopTop, 1},
		{OpBinaryAdd, 23},
		{OpReturnValue, 83},
		{OpLoadConst, 100},
		{OpForIter, 93},
		{OpMakeFunction, 132},
		{OpLoadMethod, 160},
		{OpDictUpdate, 165},
	}
	for _, tt := range tests {
		if byte(tt.op) != tt.want {
			t.Fatalf("expected %s = %d, got %d", tt.op, tt.want, byte(tt.op))
		}
	}
}

func TestHasArg(t *testing.T) {
	if OpPopTop.HasArg() {
		t.Fatal("POP_TOP should not take an operand")
	}
	if !OpLoadConst.HasArg() {
		t.Fatal("LOAD_CONST should take an operand")
	}
}

func TestJumpTarget(t *testing.T) {
	rel := Make(OpJumpForward, 3)
	if got, ok := rel.JumpTarget(10); !ok || got != 14 {
		t.Fatalf("expected relative target 14, got %d (%v)", got, ok)
	}
	abs := Make(OpJumpAbsolute, 2)
	if got, ok := abs.JumpTarget(10); !ok || got != 2 {
		t.Fatalf("expected absolute target 2, got %d (%v)", got, ok)
	}
	if _, ok := Make(OpLoadConst, 1).JumpTarget(0); ok {
		t.Fatal("LOAD_CONST is not a jump")
	}
}

func TestStackEffects(t *testing.T) {
	tests := []struct {
		op   Opcode
		arg  int
		jump bool
		want int
	}{
		{OpLoadConst, 0, false, 1},
		{OpBinaryAdd, 0, false, -1},
		{OpBuildList, 3, false, -2},
		{OpBuildMap, 2, false, -3},
		{OpBuildConstKeyMap, 2, false, -2},
		{OpUnpackSequence, 3, false, 2},
		{OpUnpackEx, 1 | 2<<8, false, 3},
		{OpForIter, 4, false, 1},
		{OpForIter, 4, true, -1},
		{OpJumpIfTrueOrPop, 0, true, 0},
		{OpJumpIfTrueOrPop, 0, false, -1},
		{OpMakeFunction, MakeFunctionDefaults | MakeFunctionClosure, false, -3},
		{OpCallFunctionKw, 3, false, -4},
		{OpCallMethod, 2, false, -3},
		{OpFormatValue, FormatValueWithSpec, false, -1},
	}
	for _, tt := range tests {
		got, ok := StackEffect(tt.op, tt.arg, tt.jump)
		if !ok {
			t.Fatalf("%s: expected a declared effect", tt.op)
		}
		if got != tt.want {
			t.Fatalf("%s(%d, jump=%v): expected %d, got %d", tt.op, tt.arg, tt.jump, tt.want, got)
		}
	}
	for _, op := range []Opcode{OpReturnValue, OpRaiseVarargs, OpYieldValue, OpBreakLoop} {
		if _, ok := StackEffect(op, 0, false); ok {
			t.Fatalf("%s leaves the frame and should not declare an in-place effect", op)
		}
	}
}

func TestAssemblerResolvesLabels(t *testing.T) {
	a := NewAssembler()
	a.Emit(OpLoadConst, 0)
	a.EmitJump(OpPopJumpIfFalse, "else")
	a.Emit(OpLoadConst, 1)
	a.EmitJump(OpJumpForward, "end")
	if err := a.Mark("else"); err != nil {
		t.Fatal(err)
	}
	a.Emit(OpLoadConst, 2)
	if err := a.Mark("end"); err != nil {
		t.Fatal(err)
	}
	a.Emit(OpReturnValue)

	ins, err := a.Instructions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ins[1].Arg != 4 {
		t.Fatalf("expected absolute target 4, got %d", ins[1].Arg)
	}
	if ins[3].Arg != 1 {
		t.Fatalf("expected relative delta 1, got %d", ins[3].Arg)
	}
}

func TestAssemblerErrors(t *testing.T) {
	a := NewAssembler()
	a.EmitJump(OpJumpAbsolute, "nowhere")
	if _, err := a.Instructions(); err == nil || !strings.Contains(err.Error(), "nowhere") {
		t.Fatalf("expected undefined label error, got %v", err)
	}

	b := NewAssembler()
	_ = b.Mark("top")
	b.EmitJump(OpJumpForward, "top")
	if _, err := b.Instructions(); err == nil {
		t.Fatal("expected backwards relative jump to be rejected")
	}

	c := NewAssembler()
	_ = c.Mark("x")
	if err := c.Mark("x"); err == nil {
		t.Fatal("expected duplicate label error")
	}
}

func TestInstructionsString(t *testing.T) {
	ins := Instructions{
		Make(OpLoadConst, 0),
		Make(OpJumpForward, 0),
		Make(OpReturnValue),
	}
	out := ins.String()
	if !strings.Contains(out, "LOAD_CONST") || !strings.Contains(out, "(to 2)") {
		t.Fatalf("unexpected disassembly:\n%s", out)
	}
	if !strings.Contains(out, ">>    2 RETURN_VALUE") {
		t.Fatalf("expected jump target marker, got:\n%s", out)
	}
}

func TestStackInputsCoverEffects(t *testing.T) {
	for op := range definitions {
		for _, arg := range []int{0, 1, 3} {
			effect, ok := StackEffect(op, arg, false)
			if !ok {
				continue
			}
			if in := StackInputs(op, arg); in < -effect {
				t.Fatalf("%s %d: expected at least %d inputs, got %d", op, arg, -effect, in)
			}
		}
	}
	if got := StackInputs(OpCallFunctionKw, 2); got != 4 {
		t.Fatalf("expected CALL_FUNCTION_KW 2 to read 4 values, got %d", got)
	}
}
