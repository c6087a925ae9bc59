package vm

import (
	"errors"
	"strings"

	"pyvm/internal/code"
	"pyvm/internal/object"
	"pyvm/internal/semantics"
)

// control is what an instruction asks of the loop beyond falling through
// to the next one.
type control struct {
	exit  exit
	yield object.Object
}

var binaryOps = map[code.Opcode]string{
	code.OpBinaryAdd:            "+",
	code.OpBinarySubtract:       "-",
	code.OpBinaryMultiply:       "*",
	code.OpBinaryMatrixMultiply: "@",
	code.OpBinaryTrueDivide:     "/",
	code.OpBinaryFloorDivide:    "//",
	code.OpBinaryModulo:         "%",
	code.OpBinaryPower:          "**",
	code.OpBinaryLshift:         "<<",
	code.OpBinaryRshift:         ">>",
	code.OpBinaryAnd:            "&",
	code.OpBinaryOr:             "|",
	code.OpBinaryXor:            "^",
}

var inplaceOps = map[code.Opcode]string{
	code.OpInplaceAdd:            "+",
	code.OpInplaceSubtract:       "-",
	code.OpInplaceMultiply:       "*",
	code.OpInplaceMatrixMultiply: "@",
	code.OpInplaceTrueDivide:     "/",
	code.OpInplaceFloorDivide:    "//",
	code.OpInplaceModulo:         "%",
	code.OpInplacePower:          "**",
	code.OpInplaceLshift:         "<<",
	code.OpInplaceRshift:         ">>",
	code.OpInplaceAnd:            "&",
	code.OpInplaceOr:             "|",
	code.OpInplaceXor:            "^",
}

var unaryOps = map[code.Opcode]string{
	code.OpUnaryPositive: "+",
	code.OpUnaryNegative: "-",
	code.OpUnaryNot:      "not",
	code.OpUnaryInvert:   "~",
}

// runFrame is the dispatch loop for one frame. It returns when the frame
// returns (yielded false), suspends at a yield (yielded true) or fails.
// A non-nil inject is raised at the current instruction before anything
// else runs; generators use it for throw().
func (m *VM) runFrame(f *Frame, inject *object.Exception) (result object.Object, yielded bool, err error) {
	ins := f.code.Instructions
	raisedAt := f.lastIP

	var ctl control
	if inject != nil {
		ctl.exit = exit{why: whyException, exc: inject}
	}

	for {
		if ctl.exit.why == 0 && ctl.yield == nil {
			if f.ip < 0 || f.ip >= len(ins) {
				return nil, false, f.check(false, "instruction pointer %d out of range", f.ip)
			}
			in := ins[f.ip]
			f.lastIP = f.ip
			f.ip++
			f.jumped = false
			before := len(f.stack)
			if err := f.check(before >= code.StackInputs(in.Op, in.Arg),
				"%s needs %d operands, stack has %d", in.Op, code.StackInputs(in.Op, in.Arg), before); err != nil {
				return nil, false, err
			}

			var derr error
			if derr = m.tick(); derr == nil {
				ctl, derr = m.dispatch(f, in)
			}
			if derr != nil {
				var exc *object.Exception
				if !errors.As(derr, &exc) {
					return nil, false, derr
				}
				if len(exc.Traceback) == 0 && exc.Class != object.MemoryError {
					if cerr := m.charge(object.CostException()); cerr != nil {
						errors.As(cerr, &exc)
					}
				}
				m.chain(f, exc)
				raisedAt = f.lastIP
				ctl = control{exit: exit{why: whyException, exc: exc}}
			}
			if ctl.exit.why == 0 && ctl.yield == nil {
				if m.tracer != nil {
					m.tracer(TraceEvent{
						Code: f.code, IP: f.lastIP, Ins: in,
						Before: before, After: len(f.stack), Jumped: f.jumped,
					})
				}
				continue
			}
		}

		if ctl.yield != nil {
			return ctl.yield, true, nil
		}

		e := ctl.exit
		ctl = control{}
		if f.unwind(e) {
			continue
		}
		switch e.why {
		case whyReturn:
			return e.value, false, nil
		case whyException:
			e.exc.AddTraceback(object.TracebackEntry{
				Name: f.code.Name, Filename: f.code.Filename, Line: f.code.Line(raisedAt),
			})
			return nil, false, e.exc
		default:
			return nil, false, f.check(false, "'%s' outside loop", e.why)
		}
	}
}

func (m *VM) tick() error {
	if err := m.steps.Tick(); err != nil {
		return object.NewException(object.RuntimeError, "%s", err.Error())
	}
	return nil
}

func (m *VM) dispatch(f *Frame, in code.Instruction) (control, error) {
	c := f.code
	arg := in.Arg

	if op, ok := binaryOps[in.Op]; ok {
		right := f.pop()
		left := f.pop()
		res, err := semantics.BinaryOp(op, left, right)
		if err != nil {
			return control{}, err
		}
		if err := m.chargeObject(res); err != nil {
			return control{}, err
		}
		f.push(res)
		return control{}, nil
	}
	if op, ok := inplaceOps[in.Op]; ok {
		right := f.pop()
		left := f.pop()
		res, err := semantics.InplaceOp(op, left, right)
		if err != nil {
			return control{}, err
		}
		if res != left {
			if err := m.chargeObject(res); err != nil {
				return control{}, err
			}
		}
		f.push(res)
		return control{}, nil
	}
	if op, ok := unaryOps[in.Op]; ok {
		res, err := semantics.UnaryOp(op, f.pop())
		if err != nil {
			return control{}, err
		}
		f.push(res)
		return control{}, nil
	}

	switch in.Op {
	case code.OpNop, code.OpGenStart:

	case code.OpPopTop:
		f.pop()
	case code.OpRotTwo:
		rotate(f.stack, 2)
	case code.OpRotThree:
		rotate(f.stack, 3)
	case code.OpRotFour:
		rotate(f.stack, 4)
	case code.OpRotN:
		rotate(f.stack, arg)
	case code.OpDupTop:
		f.push(f.top())
	case code.OpDupTopTwo:
		a, b := f.peek(2), f.peek(1)
		f.push(a)
		f.push(b)

	// Names.
	case code.OpLoadConst:
		if err := f.check(arg >= 0 && arg < len(c.Consts), "constant %d out of range", arg); err != nil {
			return control{}, err
		}
		f.push(c.Consts[arg])
	case code.OpLoadName, code.OpStoreName, code.OpDeleteName,
		code.OpLoadGlobal, code.OpStoreGlobal, code.OpDeleteGlobal,
		code.OpLoadAttr, code.OpStoreAttr, code.OpDeleteAttr, code.OpLoadMethod:
		if err := f.check(arg >= 0 && arg < len(c.Names), "name %d out of range", arg); err != nil {
			return control{}, err
		}
		return control{}, m.execNamed(f, in.Op, c.Names[arg])
	case code.OpLoadFast:
		if err := f.check(arg >= 0 && arg < len(f.fast), "local %d out of range", arg); err != nil {
			return control{}, err
		}
		v := f.fast[arg]
		if v == nil {
			return control{}, unboundLocal(c.VarNames[arg])
		}
		f.push(v)
	case code.OpStoreFast:
		if err := f.check(arg >= 0 && arg < len(f.fast), "local %d out of range", arg); err != nil {
			return control{}, err
		}
		f.fast[arg] = f.pop()
	case code.OpDeleteFast:
		if err := f.check(arg >= 0 && arg < len(f.fast), "local %d out of range", arg); err != nil {
			return control{}, err
		}
		if f.fast[arg] == nil {
			return control{}, unboundLocal(c.VarNames[arg])
		}
		f.fast[arg] = nil
	case code.OpLoadDeref, code.OpStoreDeref, code.OpDeleteDeref, code.OpLoadClosure, code.OpLoadClassDeref:
		if err := f.check(arg >= 0 && arg < len(f.cells) && f.cells[arg] != nil, "cell %d out of range", arg); err != nil {
			return control{}, err
		}
		return control{}, m.execDeref(f, in.Op, arg)
	case code.OpLoadAssertionError:
		f.push(object.AssertionError)

	// Subscripts and comparisons.
	case code.OpBinarySubscr:
		index := f.pop()
		container := f.pop()
		v, err := semantics.GetItem(container, index)
		if err != nil {
			return control{}, err
		}
		f.push(v)
	case code.OpStoreSubscr:
		index := f.pop()
		container := f.pop()
		value := f.pop()
		if d, ok := container.(*object.Dict); ok {
			if _, found, _ := d.Get(index); !found {
				if err := m.charge(object.CostDictEntry()); err != nil {
					return control{}, err
				}
			}
		}
		if err := semantics.SetItem(container, index, value); err != nil {
			return control{}, err
		}
	case code.OpDeleteSubscr:
		index := f.pop()
		container := f.pop()
		if err := semantics.DelItem(container, index); err != nil {
			return control{}, err
		}
	case code.OpCompareOp:
		if err := f.check(arg >= 0 && arg < len(code.CompareOps), "compare operator %d out of range", arg); err != nil {
			return control{}, err
		}
		right := f.pop()
		left := f.pop()
		res, err := semantics.Compare(code.CompareOps[arg], left, right)
		if err != nil {
			return control{}, err
		}
		f.push(res)
	case code.OpIsOp:
		right := f.pop()
		left := f.pop()
		f.push(object.NativeBool(semantics.Identity(left, right) != (arg == 1)))
	case code.OpContainsOp:
		container := f.pop()
		item := f.pop()
		found, err := semantics.Contains(container, item)
		if err != nil {
			return control{}, err
		}
		f.push(object.NativeBool(found != (arg == 1)))

	// Containers.
	case code.OpBuildTuple, code.OpBuildList, code.OpBuildSet, code.OpBuildMap,
		code.OpBuildConstKeyMap, code.OpBuildString, code.OpBuildSlice,
		code.OpListAppend, code.OpSetAdd, code.OpMapAdd,
		code.OpListExtend, code.OpSetUpdate, code.OpDictUpdate, code.OpDictMerge,
		code.OpListToTuple, code.OpUnpackSequence, code.OpUnpackEx, code.OpFormatValue:
		return control{}, m.execContainer(f, in)

	// Control flow.
	case code.OpJumpForward, code.OpJumpAbsolute:
		f.jump(f.jumpTarget(in))
	case code.OpPopJumpIfFalse:
		if !semantics.IsTruthy(f.pop()) {
			f.jump(f.jumpTarget(in))
		}
	case code.OpPopJumpIfTrue:
		if semantics.IsTruthy(f.pop()) {
			f.jump(f.jumpTarget(in))
		}
	case code.OpJumpIfFalseOrPop:
		if !semantics.IsTruthy(f.top()) {
			f.jump(f.jumpTarget(in))
		} else {
			f.pop()
		}
	case code.OpJumpIfTrueOrPop:
		if semantics.IsTruthy(f.top()) {
			f.jump(f.jumpTarget(in))
		} else {
			f.pop()
		}
	case code.OpSetupLoop:
		f.pushBlock(blockLoop, f.jumpTarget(in))
	case code.OpSetupExcept:
		f.pushBlock(blockExcept, f.jumpTarget(in))
	case code.OpSetupFinally:
		f.pushBlock(blockFinally, f.jumpTarget(in))
	case code.OpPopBlock:
		b, ok := f.popBlock()
		if err := f.check(ok && b.kind != blockExceptHandler, "POP_BLOCK without a matching setup"); err != nil {
			return control{}, err
		}
	case code.OpBreakLoop:
		return control{exit: exit{why: whyBreak}}, nil
	case code.OpContinueLoop:
		return control{exit: exit{why: whyContinue, value: &object.Int{Value: int64(arg)}}}, nil
	case code.OpReturnValue:
		return control{exit: exit{why: whyReturn, value: f.pop()}}, nil

	// Exceptions.
	case code.OpPopExcept:
		return control{}, f.popExcept()
	case code.OpEndFinally:
		switch v := f.pop().(type) {
		case *object.NoneType:
		case *pendingExit:
			return control{exit: v.exit}, nil
		case *object.Exception:
			return control{exit: exit{why: whyException, exc: v}}, nil
		default:
			return control{}, f.check(false, "END_FINALLY found %s", v.Type())
		}
	case code.OpJumpIfNotExcMatch:
		right := f.pop()
		left := f.pop()
		ok, err := exceptionMatches(left, right)
		if err != nil {
			return control{}, err
		}
		if !ok {
			f.jump(f.jumpTarget(in))
		}
	case code.OpRaiseVarargs:
		return control{}, m.raiseVarargs(f, arg)
	case code.OpReraise:
		exc, ok := f.pop().(*object.Exception)
		if err := f.check(ok, "RERAISE without an exception"); err != nil {
			return control{}, err
		}
		return control{exit: exit{why: whyException, exc: exc}}, nil

	// Functions.
	case code.OpMakeFunction:
		return control{}, m.makeFunction(f, arg)
	case code.OpCallFunction:
		args := f.popN(arg)
		return control{}, m.callAndPush(f, f.pop(), args, nil)
	case code.OpCallFunctionKw:
		names, ok := f.pop().(*object.Tuple)
		if err := f.check(ok && len(names.Elements) <= arg, "CALL_FUNCTION_KW needs a tuple of names"); err != nil {
			return control{}, err
		}
		values := f.popN(arg)
		fn := f.pop()
		npos := arg - len(names.Elements)
		kwargs := object.NewDict()
		for i, name := range names.Elements {
			if err := kwargs.Set(name, values[npos+i]); err != nil {
				return control{}, err
			}
		}
		return control{}, m.callAndPush(f, fn, values[:npos], kwargs)
	case code.OpCallFunctionEx:
		return control{}, m.callFunctionEx(f, arg)
	case code.OpCallMethod:
		args := f.popN(arg)
		second := f.pop()
		first := f.pop()
		if first == nil {
			return control{}, m.callAndPush(f, second, args, nil)
		}
		full := make([]object.Object, 0, len(args)+1)
		full = append(append(full, second), args...)
		return control{}, m.callAndPush(f, first, full, nil)

	// Iteration and generators.
	case code.OpGetIter:
		it, err := object.GetIter(f.pop())
		if err != nil {
			return control{}, err
		}
		f.push(it)
	case code.OpGetYieldFromIter:
		if _, ok := f.top().(*object.Generator); !ok {
			it, err := object.GetIter(f.pop())
			if err != nil {
				return control{}, err
			}
			f.push(it)
		}
	case code.OpForIter:
		v, ok, err := object.Advance(f.top())
		if err != nil {
			return control{}, err
		}
		if ok {
			f.push(v)
		} else {
			f.pop()
			f.jump(f.jumpTarget(in))
		}
	case code.OpYieldValue:
		if err := f.check(f.gen != nil, "YIELD_VALUE outside a generator"); err != nil {
			return control{}, err
		}
		return control{yield: f.pop()}, nil
	case code.OpYieldFrom:
		if err := f.check(f.gen != nil, "YIELD_FROM outside a generator"); err != nil {
			return control{}, err
		}
		return m.yieldFrom(f)

	default:
		return control{}, f.check(false, "unknown opcode %s", in.Op)
	}
	return control{}, nil
}

// rotate lifts the top of stack n-1 positions down.
func rotate(stack []object.Object, n int) {
	if n < 2 || n > len(stack) {
		return
	}
	top := stack[len(stack)-1]
	base := len(stack) - n
	copy(stack[base+1:], stack[base:len(stack)-1])
	stack[base] = top
}

func unboundLocal(name string) *object.Exception {
	return object.NewException(object.UnboundLocalError, "local variable '%s' referenced before assignment", name)
}

func nameError(name string) *object.Exception {
	return object.NewException(object.NameError, "name '%s' is not defined", name)
}

func (m *VM) lookupGlobal(f *Frame, name string) (object.Object, bool) {
	if v, ok := f.globals[name]; ok {
		return v, true
	}
	v, ok := builtins[name]
	return v, ok
}

func (m *VM) execNamed(f *Frame, op code.Opcode, name string) error {
	switch op {
	case code.OpLoadName:
		if f.names != nil {
			if v, ok := f.names[name]; ok {
				f.push(v)
				return nil
			}
		}
		v, ok := m.lookupGlobal(f, name)
		if !ok {
			return nameError(name)
		}
		f.push(v)
	case code.OpStoreName:
		if f.names == nil {
			f.names = object.Namespace{}
		}
		f.names[name] = f.pop()
	case code.OpDeleteName:
		if _, ok := f.names[name]; !ok {
			return nameError(name)
		}
		delete(f.names, name)
	case code.OpLoadGlobal:
		v, ok := m.lookupGlobal(f, name)
		if !ok {
			return nameError(name)
		}
		f.push(v)
	case code.OpStoreGlobal:
		f.globals[name] = f.pop()
	case code.OpDeleteGlobal:
		if _, ok := f.globals[name]; !ok {
			return nameError(name)
		}
		delete(f.globals, name)
	case code.OpLoadAttr:
		v, err := getAttr(m, f.pop(), name)
		if err != nil {
			return err
		}
		f.push(v)
	case code.OpStoreAttr:
		owner := f.pop()
		value := f.pop()
		return setAttr(owner, name, value)
	case code.OpDeleteAttr:
		return delAttr(f.pop(), name)
	case code.OpLoadMethod:
		obj := f.pop()
		if meth, ok := lookupMethod(obj, name); ok {
			f.push(meth)
			f.push(obj)
			return nil
		}
		v, err := getAttr(m, obj, name)
		if err != nil {
			return err
		}
		f.push(nil)
		f.push(v)
	}
	return nil
}

func (m *VM) execDeref(f *Frame, op code.Opcode, i int) error {
	cell := f.cells[i]
	name := f.code.DerefName(i)
	switch op {
	case code.OpLoadClosure:
		f.push(cell)
	case code.OpLoadClassDeref:
		if f.names != nil {
			if v, ok := f.names[name]; ok {
				f.push(v)
				return nil
			}
		}
		fallthrough
	case code.OpLoadDeref:
		if cell.Value == nil {
			return emptyCell(f.code, i)
		}
		f.push(cell.Value)
	case code.OpStoreDeref:
		cell.Value = f.pop()
	case code.OpDeleteDeref:
		if cell.Value == nil {
			return emptyCell(f.code, i)
		}
		cell.Value = nil
	}
	return nil
}

func emptyCell(c *object.Code, i int) *object.Exception {
	name := c.DerefName(i)
	if i < len(c.CellVars) {
		return unboundLocal(name)
	}
	return object.NewException(object.NameError,
		"free variable '%s' referenced before assignment in enclosing scope", name)
}

func (m *VM) execContainer(f *Frame, in code.Instruction) error {
	arg := in.Arg
	switch in.Op {
	case code.OpBuildTuple:
		items := f.popN(arg)
		if err := m.charge(object.CostTuple(len(items))); err != nil {
			return err
		}
		f.push(&object.Tuple{Elements: items})
	case code.OpBuildList:
		items := f.popN(arg)
		if err := m.charge(object.CostList(len(items))); err != nil {
			return err
		}
		f.push(&object.List{Elements: items})
	case code.OpBuildSet:
		items := f.popN(arg)
		if err := m.charge(object.CostSet(len(items))); err != nil {
			return err
		}
		s := object.NewSet()
		for _, it := range items {
			if err := s.Add(it); err != nil {
				return err
			}
		}
		f.push(s)
	case code.OpBuildMap:
		items := f.popN(2 * arg)
		if err := m.charge(object.CostDict(arg)); err != nil {
			return err
		}
		d := object.NewDict()
		for i := 0; i < len(items); i += 2 {
			if err := d.Set(items[i], items[i+1]); err != nil {
				return err
			}
		}
		f.push(d)
	case code.OpBuildConstKeyMap:
		keys, ok := f.pop().(*object.Tuple)
		if err := f.check(ok && len(keys.Elements) == arg, "BUILD_CONST_KEY_MAP needs a tuple of %d keys", arg); err != nil {
			return err
		}
		values := f.popN(arg)
		if err := m.charge(object.CostDict(arg)); err != nil {
			return err
		}
		d := object.NewDict()
		for i, k := range keys.Elements {
			if err := d.Set(k, values[i]); err != nil {
				return err
			}
		}
		f.push(d)
	case code.OpBuildString:
		var b strings.Builder
		for _, part := range f.popN(arg) {
			s, ok := part.(*object.Str)
			if err := f.check(ok, "BUILD_STRING part is %s", part.Type()); err != nil {
				return err
			}
			b.WriteString(s.Value)
		}
		if err := m.charge(object.CostStr(b.Len())); err != nil {
			return err
		}
		f.push(&object.Str{Value: b.String()})
	case code.OpBuildSlice:
		if err := f.check(arg == 2 || arg == 3, "BUILD_SLICE takes 2 or 3 operands"); err != nil {
			return err
		}
		parts := f.popN(arg)
		s := &object.Slice{Start: parts[0], Stop: parts[1], Step: object.None}
		if arg == 3 {
			s.Step = parts[2]
		}
		f.push(s)

	case code.OpListAppend:
		v := f.pop()
		l, ok := f.peek(arg).(*object.List)
		if err := f.check(ok, "LIST_APPEND target is not a list"); err != nil {
			return err
		}
		if err := m.charge(object.CostListElements(1)); err != nil {
			return err
		}
		l.Elements = append(l.Elements, v)
	case code.OpSetAdd:
		v := f.pop()
		s, ok := f.peek(arg).(*object.Set)
		if err := f.check(ok, "SET_ADD target is not a set"); err != nil {
			return err
		}
		if err := m.charge(object.CostSetEntry()); err != nil {
			return err
		}
		return s.Add(v)
	case code.OpMapAdd:
		value := f.pop()
		key := f.pop()
		d, ok := f.peek(arg).(*object.Dict)
		if err := f.check(ok, "MAP_ADD target is not a dict"); err != nil {
			return err
		}
		if err := m.charge(object.CostDictEntry()); err != nil {
			return err
		}
		return d.Set(key, value)
	case code.OpListExtend:
		src := f.pop()
		l, ok := f.peek(arg).(*object.List)
		if err := f.check(ok, "LIST_EXTEND target is not a list"); err != nil {
			return err
		}
		items, err := object.Collect(src)
		if err != nil {
			var exc *object.Exception
			if errors.As(err, &exc) && exc.IsA(object.TypeError) {
				return object.NewException(object.TypeError,
					"Value after * must be an iterable, not %s", src.Type())
			}
			return err
		}
		if err := m.charge(object.CostListElements(len(items))); err != nil {
			return err
		}
		l.Elements = append(l.Elements, items...)
	case code.OpSetUpdate:
		src := f.pop()
		s, ok := f.peek(arg).(*object.Set)
		if err := f.check(ok, "SET_UPDATE target is not a set"); err != nil {
			return err
		}
		items, err := object.Collect(src)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := s.Add(it); err != nil {
				return err
			}
		}
	case code.OpDictUpdate, code.OpDictMerge:
		src := f.pop()
		d, ok := f.peek(arg).(*object.Dict)
		if err := f.check(ok, "%s target is not a dict", in.Op); err != nil {
			return err
		}
		other, ok := src.(*object.Dict)
		if !ok {
			if in.Op == code.OpDictMerge {
				return object.NewException(object.TypeError,
					"%s argument after ** must be a mapping, not %s", calleeName(f.peek(arg+2)), src.Type())
			}
			return object.NewException(object.TypeError, "'%s' object is not a mapping", src.Type())
		}
		for _, e := range other.Entries() {
			if in.Op == code.OpDictMerge {
				if _, dup, _ := d.Get(e.Key); dup {
					return object.NewException(object.TypeError,
						"%s got multiple values for keyword argument '%s'", calleeName(f.peek(arg+2)), object.ToStr(e.Key))
				}
			}
			if err := d.Set(e.Key, e.Value); err != nil {
				return err
			}
		}
	case code.OpListToTuple:
		l, ok := f.pop().(*object.List)
		if err := f.check(ok, "LIST_TO_TUPLE operand is not a list"); err != nil {
			return err
		}
		f.push(&object.Tuple{Elements: append([]object.Object(nil), l.Elements...)})

	case code.OpUnpackSequence:
		seq := f.pop()
		items, err := unpackable(seq)
		if err != nil {
			return err
		}
		switch {
		case len(items) > arg:
			return object.NewException(object.ValueError, "too many values to unpack (expected %d)", arg)
		case len(items) < arg:
			return object.NewException(object.ValueError,
				"not enough values to unpack (expected %d, got %d)", arg, len(items))
		}
		for i := len(items) - 1; i >= 0; i-- {
			f.push(items[i])
		}
	case code.OpUnpackEx:
		before, after := arg&0xFF, arg>>8
		items, err := unpackable(f.pop())
		if err != nil {
			return err
		}
		if len(items) < before+after {
			return object.NewException(object.ValueError,
				"not enough values to unpack (expected at least %d, got %d)", before+after, len(items))
		}
		rest := append([]object.Object(nil), items[before:len(items)-after]...)
		if err := m.charge(object.CostList(len(rest))); err != nil {
			return err
		}
		for i := len(items) - 1; i >= len(items)-after; i-- {
			f.push(items[i])
		}
		f.push(&object.List{Elements: rest})
		for i := before - 1; i >= 0; i-- {
			f.push(items[i])
		}

	case code.OpFormatValue:
		spec := ""
		if arg&code.FormatValueWithSpec != 0 {
			s, ok := f.pop().(*object.Str)
			if err := f.check(ok, "FORMAT_VALUE spec is not a str"); err != nil {
				return err
			}
			spec = s.Value
		}
		v := f.pop()
		switch arg & code.FormatValueConvMask {
		case code.FormatValueStr:
			v = &object.Str{Value: object.ToStr(v)}
		case code.FormatValueRepr:
			v = &object.Str{Value: object.Repr(v)}
		case code.FormatValueASCII:
			v = &object.Str{Value: object.ASCII(v)}
		}
		res, err := semantics.Format(v, spec)
		if err != nil {
			return err
		}
		if err := m.chargeObject(res); err != nil {
			return err
		}
		f.push(res)
	}
	return nil
}

func unpackable(seq object.Object) ([]object.Object, error) {
	items, err := object.Collect(seq)
	if err != nil {
		var exc *object.Exception
		if errors.As(err, &exc) && exc.IsA(object.TypeError) {
			return nil, object.NewException(object.TypeError,
				"cannot unpack non-iterable %s object", seq.Type())
		}
		return nil, err
	}
	return items, nil
}

// exceptionMatches implements the except-clause test. right is a class or
// a tuple of classes.
func exceptionMatches(left, right object.Object) (bool, error) {
	var class *object.ExceptionType
	switch l := left.(type) {
	case *object.Exception:
		class = l.Class
	case *object.ExceptionType:
		class = l
	default:
		return false, nil
	}
	var candidates []object.Object
	if t, ok := right.(*object.Tuple); ok {
		candidates = t.Elements
	} else {
		candidates = []object.Object{right}
	}
	matched := false
	for _, c := range candidates {
		t, ok := c.(*object.ExceptionType)
		if !ok {
			return false, object.NewException(object.TypeError,
				"catching classes that do not inherit from BaseException is not allowed")
		}
		if class.IsSubclass(t) {
			matched = true
		}
	}
	return matched, nil
}

// toException turns a raise operand into an exception instance.
func (m *VM) toException(v object.Object) (*object.Exception, error) {
	switch e := v.(type) {
	case *object.Exception:
		return e, nil
	case *object.ExceptionType:
		res, err := m.Call(e, nil, nil)
		if err != nil {
			return nil, err
		}
		return res.(*object.Exception), nil
	}
	return nil, object.NewException(object.TypeError, "exceptions must derive from BaseException")
}

func (m *VM) raiseVarargs(f *Frame, argc int) error {
	switch argc {
	case 0:
		exc := m.handled(f)
		if exc == nil {
			return object.NewException(object.RuntimeError, "No active exception to reraise")
		}
		return exc
	case 1, 2:
		var causeObj object.Object
		if argc == 2 {
			causeObj = f.pop()
		}
		exc, err := m.toException(f.pop())
		if err != nil {
			return err
		}
		if argc == 2 {
			switch causeObj.(type) {
			case *object.NoneType:
				exc.Cause = nil
			default:
				cause, err := m.toException(causeObj)
				if err != nil {
					return object.NewException(object.TypeError, "exception causes must derive from BaseException")
				}
				exc.Cause = cause
			}
			exc.SuppressContext = true
		}
		return exc
	}
	return f.check(false, "bad RAISE_VARARGS operand %d", argc)
}
