package vm

import (
	"fmt"

	"pyvm/internal/code"
	"pyvm/internal/object"
)

type blockKind int

const (
	blockLoop blockKind = iota
	blockExcept
	blockFinally
	blockExceptHandler
)

func (k blockKind) String() string {
	switch k {
	case blockLoop:
		return "LOOP"
	case blockExcept:
		return "EXCEPT"
	case blockFinally:
		return "FINALLY"
	case blockExceptHandler:
		return "EXCEPT_HANDLER"
	}
	return fmt.Sprintf("block(%d)", int(k))
}

// block is one entry of a frame's block stack. level is the operand-stack
// depth to restore when unwinding into it.
type block struct {
	kind    blockKind
	handler int
	level   int

	// saved is the exception that was being handled when an EXCEPT_HANDLER
	// block was pushed; popping the block restores it.
	saved *object.Exception
}

// Frame is one activation of a compiled unit.
type Frame struct {
	code    *object.Code
	fn      *object.Function
	ip      int
	lastIP  int
	jumped  bool
	stack   []object.Object
	blocks  []block
	fast    []object.Object
	cells   []*object.Cell
	names   object.Namespace
	globals object.Namespace

	// back is the index of the calling frame in the VM's frame stack, or -1
	// for the outermost frame. A generator frame gets a new back on every
	// resume.
	back int

	handling *object.Exception
	gen      *object.Generator
}

func newFrame(c *object.Code, fn *object.Function, globals object.Namespace) *Frame {
	f := &Frame{
		code:    c,
		fn:      fn,
		globals: globals,
		back:    -1,
		fast:    make([]object.Object, len(c.VarNames)),
		cells:   make([]*object.Cell, len(c.CellVars)+len(c.FreeVars)),
	}
	for i := range c.CellVars {
		f.cells[i] = &object.Cell{}
	}
	if fn != nil {
		copy(f.cells[len(c.CellVars):], fn.Closure)
	}
	return f
}

func (f *Frame) Code() *object.Code { return f.code }

// Depth is the current operand-stack depth.
func (f *Frame) Depth() int { return len(f.stack) }

func (f *Frame) push(o object.Object) { f.stack = append(f.stack, o) }

func (f *Frame) pop() object.Object {
	n := len(f.stack) - 1
	o := f.stack[n]
	f.stack[n] = nil
	f.stack = f.stack[:n]
	return o
}

// popN removes the top n values and returns them bottom first.
func (f *Frame) popN(n int) []object.Object {
	start := len(f.stack) - n
	out := make([]object.Object, n)
	copy(out, f.stack[start:])
	for i := start; i < len(f.stack); i++ {
		f.stack[i] = nil
	}
	f.stack = f.stack[:start]
	return out
}

func (f *Frame) top() object.Object { return f.stack[len(f.stack)-1] }

// peek returns the value n slots below the top; peek(1) is the top.
func (f *Frame) peek(n int) object.Object { return f.stack[len(f.stack)-n] }

func (f *Frame) truncate(level int) {
	for len(f.stack) > level {
		f.pop()
	}
}

func (f *Frame) jump(target int) {
	f.ip = target
	f.jumped = true
}

func (f *Frame) jumpTarget(ins code.Instruction) int {
	target, _ := ins.JumpTarget(f.lastIP)
	return target
}

func (f *Frame) pushBlock(kind blockKind, handler int) {
	f.blocks = append(f.blocks, block{kind: kind, handler: handler, level: len(f.stack)})
}

func (f *Frame) popBlock() (block, bool) {
	if len(f.blocks) == 0 {
		return block{}, false
	}
	b := f.blocks[len(f.blocks)-1]
	f.blocks = f.blocks[:len(f.blocks)-1]
	return b, true
}

func (f *Frame) line() int { return f.code.Line(f.lastIP) }

func (f *Frame) traceback() object.TracebackEntry {
	return object.TracebackEntry{Name: f.code.Name, Filename: f.code.Filename, Line: f.line()}
}

// check reports a corrupt unit: operand indexes out of range or an operand
// stack too shallow for the instruction.
func (f *Frame) check(ok bool, format string, a ...any) error {
	if ok {
		return nil
	}
	return &FaultError{Code: f.code.Name, IP: f.lastIP, Msg: fmt.Sprintf(format, a...)}
}

// FaultError is an internal failure caused by a malformed unit. It is never
// visible to bytecode exception handlers.
type FaultError struct {
	Code string
	IP   int
	Msg  string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("vm fault in %s at %d: %s", e.Code, e.IP, e.Msg)
}
