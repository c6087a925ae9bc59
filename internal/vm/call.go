package vm

import (
	"errors"
	"fmt"
	"strings"

	"pyvm/internal/code"
	"pyvm/internal/object"
)

// callFunction binds arguments into a fresh frame and runs it. Generator
// functions return a generator holding the frame instead.
func (m *VM) callFunction(fn *object.Function, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	f := newFrame(fn.Code, fn, fn.Globals)
	if err := m.bind(fn, f, args, kwargs); err != nil {
		return nil, err
	}
	if !fn.Code.IsGenerator() {
		return m.execute(f)
	}

	if err := m.charge(object.CostFrame(fn.Code) + object.CostGenerator()); err != nil {
		return nil, err
	}
	g := &object.Generator{
		Name:     fn.Name,
		QualName: fn.QualName,
		State:    object.GenCreated,
		Frame:    f,
		Driver:   m,
	}
	f.gen = g
	log.Debugf("created generator %s", fn.QualName)
	return g, nil
}

// bind fills the frame's locals from a call's arguments.
func (m *VM) bind(fn *object.Function, f *Frame, args []object.Object, kwargs *object.Dict) error {
	co := fn.Code
	name := fn.QualName
	argc := co.ArgCount
	total := argc + co.KwOnlyArgCount

	next := total
	var varargs, varkw int = -1, -1
	if co.Flags&object.CO_VARARGS != 0 {
		varargs = next
		next++
	}
	if co.Flags&object.CO_VARKEYWORDS != 0 {
		varkw = next
	}
	if err := f.check(next <= len(f.fast) && (varkw < 0 || varkw < len(f.fast)),
		"%s declares more parameters than locals", name); err != nil {
		return err
	}

	var kwdict *object.Dict
	if varkw >= 0 {
		kwdict = object.NewDict()
		f.fast[varkw] = kwdict
	}

	n := len(args)
	if n > argc {
		n = argc
	}
	copy(f.fast, args[:n])
	if varargs >= 0 {
		rest := object.EmptyTuple
		if len(args) > argc {
			rest = &object.Tuple{Elements: append([]object.Object(nil), args[argc:]...)}
		}
		f.fast[varargs] = rest
	}

	if kwargs != nil {
		for _, e := range kwargs.Entries() {
			key, ok := e.Key.(*object.Str)
			if !ok {
				return object.ArityError("%s() keywords must be strings", name)
			}
			j := indexOf(co.VarNames[:total], key.Value, co.PosOnlyArgCount)
			if j < 0 {
				if kwdict != nil {
					if err := kwdict.Set(key, e.Value); err != nil {
						return err
					}
					continue
				}
				if indexOf(co.VarNames[:co.PosOnlyArgCount], key.Value, 0) >= 0 {
					return object.ArityError(
						"%s() got some positional-only arguments passed as keyword arguments: '%s'", name, key.Value)
				}
				return object.ArityError("%s() got an unexpected keyword argument '%s'", name, key.Value)
			}
			if f.fast[j] != nil {
				return object.ArityError("%s() got multiple values for argument '%s'", name, key.Value)
			}
			f.fast[j] = e.Value
		}
	}

	if len(args) > argc && varargs < 0 {
		return tooManyPositional(fn, f, len(args))
	}

	defaults := fn.Defaults
	if len(args) < argc {
		required := argc - len(defaults)
		var missing []string
		for i := len(args); i < required; i++ {
			if f.fast[i] == nil {
				missing = append(missing, co.VarNames[i])
			}
		}
		if len(missing) > 0 {
			return missingArguments(name, "positional", missing)
		}
		for i := max(len(args), required); i < argc; i++ {
			if f.fast[i] == nil {
				f.fast[i] = defaults[i-required]
			}
		}
	}

	if co.KwOnlyArgCount > 0 {
		var missing []string
		for i := argc; i < total; i++ {
			if f.fast[i] != nil {
				continue
			}
			if fn.KwDefaults != nil {
				if v, ok := fn.KwDefaults.GetStr(co.VarNames[i]); ok {
					f.fast[i] = v
					continue
				}
			}
			missing = append(missing, co.VarNames[i])
		}
		if len(missing) > 0 {
			return missingArguments(name, "keyword-only", missing)
		}
	}

	// Parameters captured by inner functions live in their cells.
	for i, cellName := range co.CellVars {
		if j := indexOf(co.VarNames, cellName, 0); j >= 0 && j < len(f.fast) && f.fast[j] != nil {
			f.cells[i].Value = f.fast[j]
		}
	}
	return nil
}

func indexOf(names []string, name string, from int) int {
	for i := from; i < len(names); i++ {
		if names[i] == name {
			return i
		}
	}
	return -1
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func tooManyPositional(fn *object.Function, f *Frame, given int) error {
	co := fn.Code
	kwonlyGiven := 0
	for i := co.ArgCount; i < co.ArgCount+co.KwOnlyArgCount; i++ {
		if f.fast[i] != nil {
			kwonlyGiven++
		}
	}

	var sig, s string
	if len(fn.Defaults) > 0 {
		sig = fmt.Sprintf("from %d to %d", co.ArgCount-len(fn.Defaults), co.ArgCount)
		s = "s"
	} else {
		sig = fmt.Sprintf("%d", co.ArgCount)
		s = plural(co.ArgCount)
	}
	kwonlySig := ""
	if kwonlyGiven > 0 {
		kwonlySig = fmt.Sprintf(" positional argument%s (and %d keyword-only argument%s)",
			plural(given), kwonlyGiven, plural(kwonlyGiven))
	}
	verb := "were"
	if given == 1 && kwonlyGiven == 0 {
		verb = "was"
	}
	return object.ArityError("%s() takes %s positional argument%s but %d%s %s given",
		fn.QualName, sig, s, given, kwonlySig, verb)
}

func missingArguments(name, kind string, missing []string) error {
	quoted := make([]string, len(missing))
	for i, n := range missing {
		quoted[i] = "'" + n + "'"
	}
	var list string
	switch len(quoted) {
	case 1:
		list = quoted[0]
	case 2:
		list = quoted[0] + " and " + quoted[1]
	default:
		list = strings.Join(quoted[:len(quoted)-1], ", ") + ", and " + quoted[len(quoted)-1]
	}
	return object.ArityError("%s() missing %d required %s argument%s: %s",
		name, len(missing), kind, plural(len(missing)), list)
}

// makeFunction pops the qualified name, the code and then the optional
// parts named by flags, innermost bit first.
func (m *VM) makeFunction(f *Frame, flags int) error {
	qualname, ok := f.pop().(*object.Str)
	if err := f.check(ok, "MAKE_FUNCTION needs a qualified name"); err != nil {
		return err
	}
	co, ok := f.pop().(*object.Code)
	if err := f.check(ok, "MAKE_FUNCTION needs a code object"); err != nil {
		return err
	}

	fn := &object.Function{
		Code:     co,
		Globals:  f.globals,
		Name:     co.Name,
		QualName: qualname.Value,
	}
	if flags&code.MakeFunctionClosure != 0 {
		t, ok := f.pop().(*object.Tuple)
		if err := f.check(ok && len(t.Elements) == len(co.FreeVars),
			"closure for %s needs %d cells", co.Name, len(co.FreeVars)); err != nil {
			return err
		}
		fn.Closure = make([]*object.Cell, len(t.Elements))
		for i, el := range t.Elements {
			cell, ok := el.(*object.Cell)
			if err := f.check(ok, "closure item %d is %s, not a cell", i, el.Type()); err != nil {
				return err
			}
			fn.Closure[i] = cell
		}
	}
	if flags&code.MakeFunctionAnnotations != 0 {
		fn.Annotations = f.pop()
	}
	if flags&code.MakeFunctionKwDefaults != 0 {
		d, ok := f.pop().(*object.Dict)
		if err := f.check(ok, "keyword-only defaults must be a dict"); err != nil {
			return err
		}
		fn.KwDefaults = d
	}
	if flags&code.MakeFunctionDefaults != 0 {
		t, ok := f.pop().(*object.Tuple)
		if err := f.check(ok, "defaults must be a tuple"); err != nil {
			return err
		}
		fn.Defaults = t.Elements
	}
	if err := f.check(len(co.FreeVars) == len(fn.Closure),
		"%s has %d free variables but no closure", co.Name, len(co.FreeVars)); err != nil {
		return err
	}

	if err := m.chargeObject(fn); err != nil {
		return err
	}
	f.push(fn)
	return nil
}

func (m *VM) callAndPush(f *Frame, fn object.Object, args []object.Object, kwargs *object.Dict) error {
	res, err := m.Call(fn, args, kwargs)
	if err != nil {
		return err
	}
	f.push(res)
	return nil
}

// callFunctionEx is f(*args) and f(*args, **kwargs).
func (m *VM) callFunctionEx(f *Frame, flags int) error {
	var kwargs *object.Dict
	if flags&1 != 0 {
		kw := f.pop()
		d, ok := kw.(*object.Dict)
		if !ok {
			return object.NewException(object.TypeError,
				"%s argument after ** must be a mapping, not %s", calleeName(f.peek(2)), kw.Type())
		}
		kwargs = d.Copy()
	}
	star := f.pop()
	fn := f.pop()

	var args []object.Object
	if t, ok := star.(*object.Tuple); ok {
		args = t.Elements
	} else {
		items, err := object.Collect(star)
		if err != nil {
			var exc *object.Exception
			if errors.As(err, &exc) && exc.IsA(object.TypeError) && exc.Traceback == nil {
				return object.NewException(object.TypeError,
					"%s argument after * must be an iterable, not %s", calleeName(fn), star.Type())
			}
			return err
		}
		args = items
	}
	return m.callAndPush(f, fn, args, kwargs)
}

// calleeName renders a callable the way argument errors name it.
func calleeName(fn object.Object) string {
	switch v := fn.(type) {
	case *object.Function:
		return v.QualName + "()"
	case *object.Builtin:
		return v.Name + "()"
	case *object.BoundMethod:
		return calleeName(v.Func)
	case *object.ExceptionType:
		return v.Name + "()"
	}
	return string(fn.Type()) + " object"
}
