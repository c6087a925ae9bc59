package vm

import (
	"errors"

	"pyvm/internal/code"
	"pyvm/internal/object"
)

var _ object.Driver = (*VM)(nil)

func genFrame(g *object.Generator) (*Frame, bool) {
	f, ok := g.Frame.(*Frame)
	return f, ok && f != nil
}

// Send resumes g with v as the value of its pending yield.
func (m *VM) Send(g *object.Generator, v object.Object) (object.Object, error) {
	if g.Running {
		return nil, object.NewException(object.ValueError, "generator already executing")
	}
	if g.State == object.GenExhausted {
		return nil, object.NewStopIteration(nil)
	}
	f, ok := genFrame(g)
	if !ok {
		return nil, errors.New("vm: generator has no frame")
	}
	if v == nil {
		v = object.None
	}
	switch g.State {
	case object.GenCreated:
		if v != object.None {
			return nil, object.NewException(object.TypeError, "can't send non-None value to a just-started generator")
		}
	case object.GenSuspended:
		f.push(v)
	}
	return m.resume(g, f, nil)
}

// Throw raises exc inside g at the point where it is suspended.
func (m *VM) Throw(g *object.Generator, exc *object.Exception) (object.Object, error) {
	if g.Running {
		return nil, object.NewException(object.ValueError, "generator already executing")
	}
	if g.State != object.GenSuspended {
		m.finish(g)
		return nil, exc
	}
	f, ok := genFrame(g)
	if !ok {
		return nil, errors.New("vm: generator has no frame")
	}

	if delegating(f) {
		if sub, ok := f.top().(*object.Generator); ok {
			if exc.IsA(object.GeneratorExit) {
				if err := sub.Close(); err != nil {
					return m.resume(g, f, asException(err))
				}
				return m.resume(g, f, exc)
			}
			g.Running = true
			v, err := sub.Throw(exc)
			g.Running = false
			if err == nil {
				return v, nil
			}
			var stop *object.Exception
			if errors.As(err, &stop) && stop.IsA(object.StopIteration) {
				f.pop()
				f.push(stop.Value())
				f.ip = f.lastIP + 1
				return m.resume(g, f, nil)
			}
			return m.resume(g, f, asException(err))
		}
	}
	return m.resume(g, f, exc)
}

// Close throws GeneratorExit into g and expects it to finish.
func (m *VM) Close(g *object.Generator) error {
	if g.State != object.GenSuspended {
		m.finish(g)
		return nil
	}
	_, err := m.Throw(g, object.NewExceptionArgs(object.GeneratorExit, nil, object.KindRuntime))
	if err == nil {
		return object.NewException(object.RuntimeError, "generator ignored GeneratorExit")
	}
	var exc *object.Exception
	if errors.As(err, &exc) && (exc.IsA(object.GeneratorExit) || exc.IsA(object.StopIteration)) {
		return nil
	}
	return err
}

func (m *VM) finish(g *object.Generator) {
	g.State = object.GenExhausted
	g.Frame = nil
}

// delegating reports whether f is parked on a YIELD_FROM; the instruction
// re-executes on resume.
func delegating(f *Frame) bool {
	ins := f.code.Instructions
	return f.ip == f.lastIP && f.ip < len(ins) && ins[f.ip].Op == code.OpYieldFrom
}

func asException(err error) *object.Exception {
	var exc *object.Exception
	if errors.As(err, &exc) {
		return exc
	}
	return object.NewException(object.RuntimeError, "%s", err.Error())
}

func (m *VM) resume(g *object.Generator, f *Frame, inject *object.Exception) (object.Object, error) {
	if err := m.pushFrame(f); err != nil {
		return nil, err
	}
	g.Running = true
	res, yielded, err := m.runFrame(f, inject)
	g.Running = false
	m.popFrame()

	if yielded {
		g.State = object.GenSuspended
		return res, nil
	}
	m.finish(g)
	if err != nil {
		var exc *object.Exception
		if errors.As(err, &exc) && exc.IsA(object.StopIteration) {
			wrapped := object.NewException(object.RuntimeError, "generator raised StopIteration")
			wrapped.Cause = exc
			wrapped.Context = exc
			wrapped.SuppressContext = true
			return nil, wrapped
		}
		return nil, err
	}
	return nil, object.NewStopIteration(res)
}

// yieldFrom runs one round of delegation. The stack holds the
// sub-iterator and the value to send it.
func (m *VM) yieldFrom(f *Frame) (control, error) {
	sent := f.pop()
	sub := f.top()

	var (
		v    object.Object
		done bool
		err  error
	)
	switch s := sub.(type) {
	case *object.Generator:
		v, err = s.Send(sent)
	default:
		if sent != object.None {
			return control{}, object.NewException(object.AttributeError,
				"'%s' object has no attribute 'send'", sub.Type())
		}
		var ok bool
		v, ok, err = object.Advance(sub)
		if err == nil && !ok {
			done, v = true, object.None
		}
	}
	if err != nil {
		var stop *object.Exception
		if !errors.As(err, &stop) || !stop.IsA(object.StopIteration) {
			return control{}, err
		}
		done, v = true, stop.Value()
	}
	if done {
		f.pop()
		f.push(v)
		return control{}, nil
	}
	f.ip = f.lastIP
	return control{yield: v}, nil
}
