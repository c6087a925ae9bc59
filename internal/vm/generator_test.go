package vm

import (
	"reflect"
	"testing"

	"pyvm/internal/code"
	"pyvm/internal/object"
)

func genUnit(t *testing.T, name string) *unit {
	return newUnit(t, name).flags(object.CO_GENERATOR).op(code.OpGenStart, 0)
}

// start defines each unit and returns a generator from calling the last.
func start(t *testing.T, m *VM, globals object.Namespace, units ...*object.Code) *object.Generator {
	t.Helper()
	mod := newUnit(t, "<module>")
	for _, u := range units {
		mod.def(u)
	}
	last := units[len(units)-1]
	c := mod.loadName(last.Name).op(code.OpCallFunction, 0).ret().build()
	res, err := m.Run(c, globals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, ok := res.(*object.Generator)
	if !ok {
		t.Fatalf("expected generator, got %s", res.Type())
	}
	return g
}

func expectStop(t *testing.T, err error, want string) {
	t.Helper()
	exc := expectException(t, err, object.StopIteration, "")
	expectRepr(t, exc.Value(), want)
}

func TestGeneratorSend(t *testing.T) {
	gen := genUnit(t, "echo").
		loadConst(i(0)).op(code.OpYieldValue).storeFast("x").
		loadFast("x").loadConst(i(1)).op(code.OpBinaryAdd).op(code.OpYieldValue).op(code.OpPopTop).
		retNone().build()

	m := New()
	g := start(t, m, nil, gen)

	if _, err := g.Send(i(5)); err == nil {
		t.Fatalf("expected error sending to a just-started generator")
	} else {
		expectException(t, err, object.TypeError, "can't send non-None value to a just-started generator")
	}

	v, err := g.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectInt(t, v, 0)

	v, err = g.Send(i(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectInt(t, v, 11)

	_, err = g.Send(object.None)
	expectStop(t, err, "None")
}

func TestGeneratorThrowCaught(t *testing.T) {
	gen := genUnit(t, "g")
	tryExcept(gen, "ValueError",
		func(u *unit) { u.loadConst(i(1)).op(code.OpYieldValue).op(code.OpPopTop) },
		func(u *unit) { u.loadConst(str("caught")).op(code.OpYieldValue).op(code.OpPopTop) })
	gc := gen.retNone().build()

	m := New()
	g := start(t, m, nil, gc)
	if _, err := g.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := g.Throw(object.NewException(object.ValueError, "in"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectRepr(t, v, "'caught'")
	_, err = g.Next()
	expectStop(t, err, "None")
}

func TestGeneratorThrowUncaught(t *testing.T) {
	gen := genUnit(t, "g").loadConst(i(1)).op(code.OpYieldValue).op(code.OpPopTop).retNone().build()
	m := New()
	g := start(t, m, nil, gen)
	if _, err := g.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := g.Throw(object.NewException(object.KeyError, "k"))
	exc := expectException(t, err, object.KeyError, "")
	if len(exc.Traceback) == 0 || exc.Traceback[0].Name != "g" {
		t.Fatalf("expected traceback through g, got %+v", exc.Traceback)
	}
	if g.State != object.GenExhausted {
		t.Fatalf("expected EXHAUSTED, got %s", g.State)
	}
}

func TestThrowIntoUnstartedGenerator(t *testing.T) {
	gen := genUnit(t, "g").loadConst(i(1)).op(code.OpYieldValue).op(code.OpPopTop).retNone().build()
	g := start(t, New(), nil, gen)
	_, err := g.Throw(object.NewException(object.ValueError, "early"))
	expectException(t, err, object.ValueError, "early")
	if g.State != object.GenExhausted {
		t.Fatalf("expected EXHAUSTED, got %s", g.State)
	}
}

func TestGeneratorCloseRunsFinally(t *testing.T) {
	gen := genUnit(t, "g")
	nestedFinally(gen, 1, func(u *unit) {
		u.loadConst(i(1)).op(code.OpYieldValue).op(code.OpPopTop)
	})
	gc := gen.retNone().build()

	var calls counter
	m := New()
	g := start(t, m, finGlobals(&calls, 1), gc)
	if _, err := g.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(calls.calls, []string{"fin0"}) {
		t.Fatalf("expected finally to run once, got %v", calls.calls)
	}
	if g.State != object.GenExhausted {
		t.Fatalf("expected EXHAUSTED, got %s", g.State)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("expected closing twice to be a no-op, got %v", err)
	}
}

func TestGeneratorIgnoringExit(t *testing.T) {
	gen := genUnit(t, "g")
	tryExcept(gen, "GeneratorExit",
		func(u *unit) { u.loadConst(i(1)).op(code.OpYieldValue).op(code.OpPopTop) },
		func(u *unit) { u.loadConst(i(2)).op(code.OpYieldValue).op(code.OpPopTop) })
	gc := gen.retNone().build()

	g := start(t, New(), nil, gc)
	if _, err := g.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := g.Close()
	expectException(t, err, object.RuntimeError, "generator ignored GeneratorExit")
}

func TestYieldFromGenerator(t *testing.T) {
	inner := genUnit(t, "inner").
		loadConst(i(1)).op(code.OpYieldValue).op(code.OpPopTop).
		loadConst(i(2)).op(code.OpYieldValue).op(code.OpPopTop).
		loadConst(i(3)).ret().build()
	outer := genUnit(t, "outer").
		loadGlobal("inner").op(code.OpCallFunction, 0).op(code.OpGetYieldFromIter).
		loadConst(object.None).op(code.OpYieldFrom).
		op(code.OpYieldValue).op(code.OpPopTop).
		retNone().build()

	g := start(t, New(), nil, inner, outer)
	var got []int64
	for {
		v, err := g.Next()
		if err != nil {
			expectStop(t, err, "None")
			break
		}
		got = append(got, v.(*object.Int).Value)
	}
	if !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Fatalf("expected [1 2 3], got %v", got)
	}
}

func TestYieldFromForwardsSend(t *testing.T) {
	inner := genUnit(t, "inner").
		loadConst(str("ready")).op(code.OpYieldValue).
		ret().build()
	outer := genUnit(t, "outer").
		loadGlobal("inner").op(code.OpCallFunction, 0).op(code.OpGetYieldFromIter).
		loadConst(object.None).op(code.OpYieldFrom).
		ret().build()

	g := start(t, New(), nil, inner, outer)
	v, err := g.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectRepr(t, v, "'ready'")
	_, err = g.Send(i(42))
	expectStop(t, err, "42")
}

func TestYieldFromList(t *testing.T) {
	outer := genUnit(t, "outer").
		loadConst(i(5)).loadConst(i(6)).op(code.OpBuildList, 2).op(code.OpGetYieldFromIter).
		loadConst(object.None).op(code.OpYieldFrom).
		ret().build()

	g := start(t, New(), nil, outer)
	for _, want := range []int64{5, 6} {
		v, err := g.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expectInt(t, v, want)
	}
	_, err := g.Next()
	expectStop(t, err, "None")
}

func TestYieldFromListRejectsSend(t *testing.T) {
	outer := genUnit(t, "outer").
		loadConst(i(5)).op(code.OpBuildList, 1).op(code.OpGetYieldFromIter).
		loadConst(object.None).op(code.OpYieldFrom).
		ret().build()

	g := start(t, New(), nil, outer)
	if _, err := g.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := g.Send(i(1))
	expectException(t, err, object.AttributeError, "'list_iterator' object has no attribute 'send'")
}

func TestThrowThroughYieldFrom(t *testing.T) {
	inner := genUnit(t, "inner").
		jump(code.OpSetupExcept, "handler").
		loadConst(i(1)).op(code.OpYieldValue).op(code.OpPopTop).
		op(code.OpPopBlock).retNone().
		mark("handler").
		op(code.OpPopTop).op(code.OpPopExcept).
		loadConst(str("caught")).ret().build()
	outer := genUnit(t, "outer").
		loadGlobal("inner").op(code.OpCallFunction, 0).op(code.OpGetYieldFromIter).
		loadConst(object.None).op(code.OpYieldFrom).
		ret().build()

	g := start(t, New(), nil, inner, outer)
	if _, err := g.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := g.Throw(object.NewException(object.ValueError, "x"))
	expectStop(t, err, "'caught'")
}

func TestStopIterationBecomesRuntimeError(t *testing.T) {
	gen := genUnit(t, "g").
		call("StopIteration", i(1)).op(code.OpRaiseVarargs, 1).
		retNone().build()

	g := start(t, New(), nil, gen)
	_, err := g.Next()
	exc := expectException(t, err, object.RuntimeError, "generator raised StopIteration")
	if exc.Cause == nil || !exc.Cause.IsA(object.StopIteration) {
		t.Fatalf("expected StopIteration cause, got %v", exc.Cause)
	}
	if g.State != object.GenExhausted {
		t.Fatalf("expected EXHAUSTED, got %s", g.State)
	}
}

func TestGeneratorAlreadyExecuting(t *testing.T) {
	gen := genUnit(t, "g").
		loadGlobal("next").loadGlobal("it").op(code.OpCallFunction, 1).
		op(code.OpYieldValue).op(code.OpPopTop).
		retNone().build()

	m := New()
	globals := object.Namespace{}
	g := start(t, m, globals, gen)
	globals["it"] = g

	_, err := g.Next()
	expectException(t, err, object.ValueError, "generator already executing")
	if g.Running {
		t.Fatalf("expected generator to be idle after failing")
	}
}

func TestForLoopOverGenerator(t *testing.T) {
	gen := genUnit(t, "g").
		loadConst(i(1)).op(code.OpYieldValue).op(code.OpPopTop).
		loadConst(i(2)).op(code.OpYieldValue).op(code.OpPopTop).
		retNone().build()
	mod := newUnit(t, "<module>").def(gen).
		loadConst(i(0)).storeName("total").
		loadName("g").op(code.OpCallFunction, 0).op(code.OpGetIter).
		mark("loop").
		jump(code.OpForIter, "done").
		loadName("total").op(code.OpInplaceAdd).storeName("total").
		jump(code.OpJumpAbsolute, "loop").
		mark("done").
		loadName("total").ret().build()

	res, _ := mustRun(t, New(), mod)
	expectInt(t, res, 3)
}
