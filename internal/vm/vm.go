package vm

import (
	"errors"
	"io"

	"github.com/tliron/commonlog"

	"pyvm/internal/code"
	"pyvm/internal/limits"
	"pyvm/internal/object"
	"pyvm/internal/runtimeio"
)

var log = commonlog.GetLogger("pyvm.vm")

// TraceEvent describes one instruction that completed without leaving its
// frame.
type TraceEvent struct {
	Code   *object.Code
	IP     int
	Ins    code.Instruction
	Before int
	After  int
	Jumped bool
}

type Tracer func(TraceEvent)

// VM executes compiled units. A VM is single-threaded; independent VMs
// share nothing but the immutable builtin tables.
type VM struct {
	frames []*Frame

	maxDepth int
	steps    *limits.Steps
	budget   *limits.Budget

	console *runtimeio.Console
	tracer  Tracer
}

func New() *VM {
	return &VM{
		maxDepth: limits.DefaultMaxDepth,
		console:  runtimeio.NewConsole(nil, io.Discard),
	}
}

// NewWithLimits applies l in one step; zero fields keep their defaults.
func NewWithLimits(l limits.Limits) *VM {
	m := New()
	m.SetMaxRecursion(l.Depth())
	m.SetMaxSteps(l.MaxSteps)
	m.SetMaxMemory(l.MaxMemory)
	return m
}

func (m *VM) SetMaxRecursion(max int) {
	if max <= 0 {
		max = limits.DefaultMaxDepth
	}
	m.maxDepth = max
}

func (m *VM) SetMaxSteps(max int64) {
	if max < 0 {
		max = 0
	}
	m.steps = limits.NewSteps(max)
}

func (m *VM) SetMaxMemory(max int64) {
	if max < 0 {
		max = 0
	}
	m.budget = limits.NewBudget(max)
}

func (m *VM) SetBudget(b *limits.Budget) {
	m.budget = b
}

// SetConsole routes print and input.
func (m *VM) SetConsole(c *runtimeio.Console) {
	if c != nil {
		m.console = c
	}
}

func (m *VM) SetTracer(t Tracer) {
	m.tracer = t
}

// Steps reports how many instructions have executed so far.
func (m *VM) Steps() int64 { return m.steps.Used() }

// MemoryUsed reports the bytes charged against the memory budget.
func (m *VM) MemoryUsed() int64 { return m.budget.Used() }

// Run executes c as a module: its names resolve in globals, then in the
// builtins. It returns the value of the unit's RETURN_VALUE, or the
// unhandled *object.Exception.
func (m *VM) Run(c *object.Code, globals object.Namespace) (object.Object, error) {
	if c == nil {
		return nil, errors.New("vm: nil code")
	}
	if globals == nil {
		globals = object.Namespace{}
	}
	if m.steps == nil {
		m.steps = limits.NewSteps(0)
	}

	f := newFrame(c, nil, globals)
	f.names = globals

	log.Infof("run %s (%s)", c.Name, c.Filename)
	res, err := m.execute(f)
	var exc *object.Exception
	if errors.As(err, &exc) {
		log.Debugf("unhandled %s after %d steps", exc.Error(), m.steps.Used())
	}
	log.Infof("finished %s after %d steps", c.Name, m.steps.Used())
	return res, err
}

// Call invokes any callable value. Builtins use it to re-enter the
// interpreter.
func (m *VM) Call(fn object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	switch callee := fn.(type) {
	case *object.Function:
		return m.callFunction(callee, args, kwargs)
	case *object.BoundMethod:
		full := make([]object.Object, 0, len(args)+1)
		full = append(append(full, callee.Self), args...)
		return m.Call(callee.Func, full, kwargs)
	case *object.Builtin:
		res, err := callee.Fn(m, args, kwargs)
		if err != nil {
			return nil, err
		}
		if err := m.chargeObject(res); err != nil {
			return nil, err
		}
		return res, nil
	case *object.ExceptionType:
		if kwargs != nil && kwargs.Len() > 0 {
			return nil, object.NewException(object.TypeError, "%s() takes no keyword arguments", callee.Name)
		}
		exc := object.NewExceptionArgs(callee, append([]object.Object(nil), args...), object.KindUserRaised)
		if err := m.charge(object.CostException()); err != nil {
			return nil, err
		}
		return exc, nil
	}
	return nil, object.NewException(object.TypeError, "'%s' object is not callable", fn.Type())
}

// execute runs f to completion as a new activation on the frame stack.
// The frame's memory is charged while it is on the stack.
func (m *VM) execute(f *Frame) (object.Object, error) {
	cost := object.CostFrame(f.code)
	if err := m.charge(cost); err != nil {
		return nil, err
	}
	defer m.budget.Release(cost)
	if err := m.pushFrame(f); err != nil {
		return nil, err
	}
	defer m.popFrame()
	res, _, err := m.runFrame(f, nil)
	return res, err
}

func (m *VM) pushFrame(f *Frame) error {
	if len(m.frames) >= m.maxDepth {
		return object.NewException(object.RecursionError, limits.MaxDepthMessage)
	}
	f.back = len(m.frames) - 1
	m.frames = append(m.frames, f)
	log.Debugf("push frame %s depth=%d", f.code.QualName, len(m.frames))
	return nil
}

func (m *VM) popFrame() {
	n := len(m.frames) - 1
	f := m.frames[n]
	m.frames[n] = nil
	m.frames = m.frames[:n]
	f.back = -1
	log.Debugf("pop frame %s depth=%d", f.code.QualName, n)
}

// handled is the exception a bare raise would re-raise: the innermost one
// being handled in f or any frame that called it.
func (m *VM) handled(f *Frame) *object.Exception {
	for f != nil {
		if f.handling != nil {
			return f.handling
		}
		if f.back < 0 || f.back >= len(m.frames) {
			return nil
		}
		f = m.frames[f.back]
	}
	return nil
}

// chain links exc to the exception being handled when it was raised,
// cutting any cycle the link would create.
func (m *VM) chain(f *Frame, exc *object.Exception) {
	ctx := m.handled(f)
	if ctx == nil || ctx == exc || exc.Context != nil {
		return
	}
	for o := ctx; o != nil; o = o.Context {
		if o.Context == exc {
			o.Context = nil
			break
		}
	}
	exc.Context = ctx
}
