package vm

import (
	"fmt"

	"pyvm/internal/object"
)

// why names the reason a frame is leaving the current instruction stream.
type why int

const (
	whyException why = iota + 1
	whyReturn
	whyBreak
	whyContinue
)

func (w why) String() string {
	switch w {
	case whyException:
		return "exception"
	case whyReturn:
		return "return"
	case whyBreak:
		return "break"
	case whyContinue:
		return "continue"
	}
	return fmt.Sprintf("why(%d)", int(w))
}

// exit is a non-local exit in progress. value is the return value, or the
// loop-start target as an Int for continue.
type exit struct {
	why   why
	value object.Object
	exc   *object.Exception
}

// pendingExit is the marker a FINALLY handler finds on top of the stack
// when it was entered by unwinding. END_FINALLY resumes it.
type pendingExit struct {
	exit
}

func (*pendingExit) Type() object.Type { return "finally_marker" }
func (p *pendingExit) Inspect() string { return "<pending " + p.why.String() + ">" }

// unwind pops blocks innermost first until one of them takes over the exit.
// It reports false when the block stack empties first; the caller then
// returns from or fails the frame.
func (f *Frame) unwind(e exit) bool {
	for len(f.blocks) > 0 {
		b := f.blocks[len(f.blocks)-1]

		if b.kind == blockExceptHandler {
			f.blocks = f.blocks[:len(f.blocks)-1]
			f.truncate(b.level)
			f.handling = b.saved
			continue
		}
		if b.kind == blockLoop && e.why == whyContinue {
			f.jump(int(e.value.(*object.Int).Value))
			return true
		}

		f.blocks = f.blocks[:len(f.blocks)-1]
		f.truncate(b.level)

		switch {
		case b.kind == blockLoop && e.why == whyBreak:
			f.jump(b.handler)
			return true

		case b.kind == blockExcept && e.why == whyException:
			f.enterHandler(b.level, e.exc)
			f.push(e.exc)
			f.jump(b.handler)
			return true

		case b.kind == blockFinally:
			if e.why == whyException {
				f.enterHandler(b.level, e.exc)
			}
			f.push(&pendingExit{e})
			f.jump(b.handler)
			return true
		}
	}
	return false
}

// enterHandler records exc as the exception being handled until the
// EXCEPT_HANDLER block pushed here is popped.
func (f *Frame) enterHandler(level int, exc *object.Exception) {
	f.blocks = append(f.blocks, block{kind: blockExceptHandler, level: level, saved: f.handling})
	f.handling = exc
}

// popExcept ends an except clause.
func (f *Frame) popExcept() error {
	b, ok := f.popBlock()
	if err := f.check(ok && b.kind == blockExceptHandler, "POP_EXCEPT without an active handler"); err != nil {
		return err
	}
	f.handling = b.saved
	return nil
}
