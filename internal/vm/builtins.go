package vm

import (
	"errors"
	"math"
	"sort"
	"strings"

	"pyvm/internal/numlit"
	"pyvm/internal/object"
	"pyvm/internal/runtimeio"
	"pyvm/internal/semantics"
)

// builtins is consulted after a unit's globals by LOAD_GLOBAL and
// LOAD_NAME. It is read-only once init has run.
var builtins = map[string]object.Object{}

var builtinFuncs = []*object.Builtin{
	{Name: "print", Fn: builtinPrint},
	{Name: "input", Fn: builtinInput},
	{Name: "len", Fn: builtinLen},
	{Name: "repr", Fn: builtinRepr},
	{Name: "ascii", Fn: builtinASCII},
	{Name: "str", Fn: builtinStr},
	{Name: "int", Fn: builtinInt},
	{Name: "float", Fn: builtinFloat},
	{Name: "bool", Fn: builtinBool},
	{Name: "list", Fn: builtinList},
	{Name: "tuple", Fn: builtinTuple},
	{Name: "dict", Fn: builtinDict},
	{Name: "set", Fn: builtinSet},
	{Name: "range", Fn: builtinRange},
	{Name: "iter", Fn: builtinIter},
	{Name: "next", Fn: builtinNext},
	{Name: "enumerate", Fn: builtinEnumerate},
	{Name: "zip", Fn: builtinZip},
	{Name: "map", Fn: builtinMap},
	{Name: "filter", Fn: builtinFilter},
	{Name: "reversed", Fn: builtinReversed},
	{Name: "sorted", Fn: builtinSorted},
	{Name: "min", Fn: builtinMin},
	{Name: "max", Fn: builtinMax},
	{Name: "sum", Fn: builtinSum},
	{Name: "abs", Fn: builtinAbs},
	{Name: "divmod", Fn: builtinDivmod},
	{Name: "pow", Fn: builtinPow},
	{Name: "round", Fn: builtinRound},
	{Name: "any", Fn: builtinAny},
	{Name: "all", Fn: builtinAll},
	{Name: "callable", Fn: builtinCallable},
	{Name: "isinstance", Fn: builtinIsinstance},
	{Name: "hash", Fn: builtinHash},
	{Name: "format", Fn: builtinFormat},
	{Name: "chr", Fn: builtinChr},
	{Name: "ord", Fn: builtinOrd},
	{Name: "getattr", Fn: builtinGetattr},
	{Name: "setattr", Fn: builtinSetattr},
	{Name: "hasattr", Fn: builtinHasattr},
}

func init() {
	for _, b := range builtinFuncs {
		builtins[b.Name] = b
	}
	for _, t := range object.ExceptionTypes {
		builtins[t.Name] = t
	}
	builtins["Exception"] = object.ExceptionBase
	builtins["None"] = object.None
	builtins["True"] = object.True
	builtins["False"] = object.False
}

// Builtin returns the builtin bound to name, if any.
func Builtin(name string) (object.Object, bool) {
	v, ok := builtins[name]
	return v, ok
}

func consoleOf(c object.Caller) *runtimeio.Console {
	if m, ok := c.(*VM); ok && m.console != nil {
		return m.console
	}
	return runtimeio.Stdio()
}

func typeError(format string, a ...any) *object.Exception {
	return object.NewException(object.TypeError, format, a...)
}

func valueError(format string, a ...any) *object.Exception {
	return object.NewException(object.ValueError, format, a...)
}

func checkArgs(name string, args []object.Object, min, max int) error {
	n := len(args)
	if n >= min && (max < 0 || n <= max) {
		return nil
	}
	switch {
	case min == max && min == 0:
		return object.ArityError("%s() takes no arguments (%d given)", name, n)
	case min == max && min == 1:
		return object.ArityError("%s() takes exactly one argument (%d given)", name, n)
	case min == max:
		return object.ArityError("%s expected %d arguments, got %d", name, min, n)
	case n < min:
		return object.ArityError("%s expected at least %d argument%s, got %d", name, min, plural(min), n)
	default:
		return object.ArityError("%s expected at most %d argument%s, got %d", name, max, plural(max), n)
	}
}

// takeKwargs returns the keyword arguments of a builtin call, rejecting
// names it does not accept.
func takeKwargs(name string, kwargs *object.Dict, allowed ...string) (map[string]object.Object, error) {
	out := map[string]object.Object{}
	if kwargs == nil || kwargs.Len() == 0 {
		return out, nil
	}
	if len(allowed) == 0 {
		return nil, typeError("%s() takes no keyword arguments", name)
	}
	for _, e := range kwargs.Entries() {
		key, ok := e.Key.(*object.Str)
		if !ok {
			return nil, typeError("keywords must be strings")
		}
		known := false
		for _, a := range allowed {
			if a == key.Value {
				known = true
				break
			}
		}
		if !known {
			return nil, typeError("'%s' is an invalid keyword argument for %s()", key.Value, name)
		}
		out[key.Value] = e.Value
	}
	return out, nil
}

func noKwargs(name string, kwargs *object.Dict) error {
	_, err := takeKwargs(name, kwargs)
	return err
}

func asIndex(o object.Object) (int64, error) {
	if i, ok := semantics.AsIndex(o); ok {
		return i, nil
	}
	return 0, typeError("'%s' object cannot be interpreted as an integer", o.Type())
}

func builtinPrint(c object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	kw, err := takeKwargs("print", kwargs, "sep", "end", "flush")
	if err != nil {
		return nil, err
	}
	sep, end := " ", "\n"
	if v, ok := kw["sep"]; ok && v != object.None {
		s, ok := v.(*object.Str)
		if !ok {
			return nil, typeError("sep must be None or a string, not %s", v.Type())
		}
		sep = s.Value
	}
	if v, ok := kw["end"]; ok && v != object.None {
		s, ok := v.(*object.Str)
		if !ok {
			return nil, typeError("end must be None or a string, not %s", v.Type())
		}
		end = s.Value
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = object.ToStr(a)
	}
	if err := consoleOf(c).Write(strings.Join(parts, sep) + end); err != nil {
		return nil, err
	}
	return object.None, nil
}

func builtinInput(c object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("input", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("input", args, 0, 1); err != nil {
		return nil, err
	}
	prompt := ""
	if len(args) == 1 {
		prompt = object.ToStr(args[0])
	}
	line, err := consoleOf(c).Input(prompt)
	if err != nil {
		if errors.Is(err, runtimeio.ErrInputUnavailable) {
			return nil, object.NewException(object.EOFError, "%s", err.Error())
		}
		return nil, err
	}
	return &object.Str{Value: line}, nil
}

func builtinLen(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("len", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("len", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := semantics.Len(args[0])
	if err != nil {
		return nil, err
	}
	return &object.Int{Value: n}, nil
}

func builtinRepr(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("repr", args, 1, 1); err != nil {
		return nil, err
	}
	return &object.Str{Value: object.Repr(args[0])}, noKwargs("repr", kwargs)
}

func builtinASCII(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("ascii", args, 1, 1); err != nil {
		return nil, err
	}
	return &object.Str{Value: object.ASCII(args[0])}, noKwargs("ascii", kwargs)
}

func builtinStr(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("str", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("str", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return &object.Str{}, nil
	}
	if s, ok := args[0].(*object.Str); ok {
		return s, nil
	}
	return &object.Str{Value: object.ToStr(args[0])}, nil
}

func builtinInt(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	kw, err := takeKwargs("int", kwargs, "base")
	if err != nil {
		return nil, err
	}
	if err := checkArgs("int", args, 0, 2); err != nil {
		return nil, err
	}
	if len(args) == 2 {
		kw["base"] = args[1]
	}
	if len(args) == 0 {
		return &object.Int{}, nil
	}

	if b, ok := kw["base"]; ok {
		base, err := asIndex(b)
		if err != nil {
			return nil, err
		}
		s, ok := args[0].(*object.Str)
		if !ok {
			return nil, typeError("int() can't convert non-string with explicit base")
		}
		return parseInt(s, int(base))
	}

	switch v := args[0].(type) {
	case *object.Int:
		return v, nil
	case *object.Bool:
		if v.Value {
			return &object.Int{Value: 1}, nil
		}
		return &object.Int{}, nil
	case *object.Float:
		switch {
		case math.IsNaN(v.Value):
			return nil, valueError("cannot convert float NaN to integer")
		case math.IsInf(v.Value, 0):
			return nil, object.NewException(object.OverflowError, "cannot convert float infinity to integer")
		}
		t := math.Trunc(v.Value)
		if t >= 9.223372036854775807e18 || t < -9.223372036854775808e18 {
			return nil, object.NewException(object.OverflowError, "int too large to convert")
		}
		return &object.Int{Value: int64(t)}, nil
	case *object.Str:
		return parseInt(v, 10)
	}
	return nil, typeError("int() argument must be a string, a bytes-like object or a number, not '%s'", args[0].Type())
}

func parseInt(s *object.Str, base int) (object.Object, error) {
	n, err := numlit.ParseInt(s.Value, base)
	switch {
	case err == nil:
		return &object.Int{Value: n}, nil
	case errors.Is(err, numlit.ErrBase):
		return nil, valueError("%s", err.Error())
	case errors.Is(err, numlit.ErrRange):
		return nil, object.NewException(object.OverflowError, "int too large to convert")
	}
	return nil, valueError("invalid literal for int() with base %d: %s", base, object.Repr(s))
}

func builtinFloat(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("float", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("float", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return &object.Float{}, nil
	}
	switch v := args[0].(type) {
	case *object.Float:
		return v, nil
	case *object.Int:
		return &object.Float{Value: float64(v.Value)}, nil
	case *object.Bool:
		if v.Value {
			return &object.Float{Value: 1}, nil
		}
		return &object.Float{}, nil
	case *object.Str:
		f, err := numlit.ParseFloat(v.Value)
		if err != nil {
			return nil, valueError("could not convert string to float: %s", object.Repr(v))
		}
		return &object.Float{Value: f}, nil
	}
	return nil, typeError("float() argument must be a string or a number, not '%s'", args[0].Type())
}

func builtinBool(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("bool", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("bool", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return object.False, nil
	}
	return object.NativeBool(semantics.IsTruthy(args[0])), nil
}

func builtinList(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("list", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("list", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return &object.List{}, nil
	}
	items, err := object.Collect(args[0])
	if err != nil {
		return nil, err
	}
	return &object.List{Elements: items}, nil
}

func builtinTuple(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("tuple", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("tuple", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return object.EmptyTuple, nil
	}
	if t, ok := args[0].(*object.Tuple); ok {
		return t, nil
	}
	items, err := object.Collect(args[0])
	if err != nil {
		return nil, err
	}
	return &object.Tuple{Elements: items}, nil
}

func builtinDict(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("dict", args, 0, 1); err != nil {
		return nil, err
	}
	d := object.NewDict()
	if len(args) == 1 {
		if err := dictUpdate(d, args[0]); err != nil {
			return nil, err
		}
	}
	if kwargs != nil {
		for _, e := range kwargs.Entries() {
			if err := d.Set(e.Key, e.Value); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// dictUpdate merges a mapping or an iterable of pairs into d.
func dictUpdate(d *object.Dict, src object.Object) error {
	if other, ok := src.(*object.Dict); ok {
		for _, e := range other.Entries() {
			if err := d.Set(e.Key, e.Value); err != nil {
				return err
			}
		}
		return nil
	}
	items, err := object.Collect(src)
	if err != nil {
		return err
	}
	for i, it := range items {
		pair, err := object.Collect(it)
		if err != nil {
			return typeError("cannot convert dictionary update sequence element #%d to a sequence", i)
		}
		if len(pair) != 2 {
			return valueError("dictionary update sequence element #%d has length %d; 2 is required", i, len(pair))
		}
		if err := d.Set(pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

func builtinSet(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("set", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("set", args, 0, 1); err != nil {
		return nil, err
	}
	s := object.NewSet()
	if len(args) == 0 {
		return s, nil
	}
	items, err := object.Collect(args[0])
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := s.Add(it); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func builtinRange(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("range", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("range", args, 1, 3); err != nil {
		return nil, err
	}
	bounds := make([]int64, len(args))
	for i, a := range args {
		v, err := asIndex(a)
		if err != nil {
			return nil, err
		}
		bounds[i] = v
	}
	r := &object.Range{Step: 1}
	switch len(bounds) {
	case 1:
		r.Stop = bounds[0]
	case 2:
		r.Start, r.Stop = bounds[0], bounds[1]
	case 3:
		r.Start, r.Stop, r.Step = bounds[0], bounds[1], bounds[2]
		if r.Step == 0 {
			return nil, valueError("range() arg 3 must not be zero")
		}
	}
	return r, nil
}

func builtinIter(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("iter", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("iter", args, 1, 1); err != nil {
		return nil, err
	}
	return object.GetIter(args[0])
}

func builtinNext(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("next", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("next", args, 1, 2); err != nil {
		return nil, err
	}
	if g, ok := args[0].(*object.Generator); ok {
		v, err := g.Next()
		if err != nil {
			var exc *object.Exception
			if len(args) == 2 && errors.As(err, &exc) && exc.IsA(object.StopIteration) {
				return args[1], nil
			}
			return nil, err
		}
		return v, nil
	}
	if _, ok := args[0].(*object.Iterator); !ok {
		return nil, typeError("'%s' object is not an iterator", args[0].Type())
	}
	v, ok, err := object.Advance(args[0])
	if err != nil {
		return nil, err
	}
	if !ok {
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, object.NewStopIteration(nil)
	}
	return v, nil
}

func builtinEnumerate(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	kw, err := takeKwargs("enumerate", kwargs, "start")
	if err != nil {
		return nil, err
	}
	if err := checkArgs("enumerate", args, 1, 2); err != nil {
		return nil, err
	}
	if len(args) == 2 {
		kw["start"] = args[1]
	}
	var i int64
	if s, ok := kw["start"]; ok {
		if i, err = asIndex(s); err != nil {
			return nil, err
		}
	}
	it, err := object.GetIter(args[0])
	if err != nil {
		return nil, err
	}
	return object.NewIterator("enumerate", func() (object.Object, bool, error) {
		v, ok, err := object.Advance(it)
		if !ok || err != nil {
			return nil, false, err
		}
		t := &object.Tuple{Elements: []object.Object{&object.Int{Value: i}, v}}
		i++
		return t, true, nil
	}), nil
}

func iterAll(args []object.Object) ([]object.Object, error) {
	its := make([]object.Object, len(args))
	for i, a := range args {
		it, err := object.GetIter(a)
		if err != nil {
			return nil, err
		}
		its[i] = it
	}
	return its, nil
}

// advanceAll pulls one value from each iterator, stopping at the first
// exhausted one.
func advanceAll(its []object.Object) ([]object.Object, bool, error) {
	row := make([]object.Object, len(its))
	for i, it := range its {
		v, ok, err := object.Advance(it)
		if !ok || err != nil {
			return nil, false, err
		}
		row[i] = v
	}
	return row, true, nil
}

func builtinZip(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("zip", kwargs); err != nil {
		return nil, err
	}
	its, err := iterAll(args)
	if err != nil {
		return nil, err
	}
	return object.NewIterator("zip", func() (object.Object, bool, error) {
		if len(its) == 0 {
			return nil, false, nil
		}
		row, ok, err := advanceAll(its)
		if !ok || err != nil {
			return nil, false, err
		}
		return &object.Tuple{Elements: row}, true, nil
	}), nil
}

func builtinMap(c object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("map", kwargs); err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, typeError("map() must have at least two arguments.")
	}
	fn := args[0]
	its, err := iterAll(args[1:])
	if err != nil {
		return nil, err
	}
	return object.NewIterator("map", func() (object.Object, bool, error) {
		row, ok, err := advanceAll(its)
		if !ok || err != nil {
			return nil, false, err
		}
		v, err := c.Call(fn, row, nil)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}), nil
}

func builtinFilter(c object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("filter", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("filter", args, 2, 2); err != nil {
		return nil, err
	}
	fn := args[0]
	it, err := object.GetIter(args[1])
	if err != nil {
		return nil, err
	}
	return object.NewIterator("filter", func() (object.Object, bool, error) {
		for {
			v, ok, err := object.Advance(it)
			if !ok || err != nil {
				return nil, false, err
			}
			keep := v
			if fn != object.None {
				if keep, err = c.Call(fn, []object.Object{v}, nil); err != nil {
					return nil, false, err
				}
			}
			if semantics.IsTruthy(keep) {
				return v, true, nil
			}
		}
	}), nil
}

func builtinReversed(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("reversed", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("reversed", args, 1, 1); err != nil {
		return nil, err
	}
	var items []object.Object
	switch v := args[0].(type) {
	case *object.List, *object.Tuple, *object.Str:
		items, _ = object.Collect(v)
	case *object.Range:
		n := v.Len()
		i := n - 1
		return object.NewIterator("range_iterator", func() (object.Object, bool, error) {
			if i < 0 {
				return nil, false, nil
			}
			x := v.At(i)
			i--
			return &object.Int{Value: x}, true, nil
		}), nil
	default:
		return nil, typeError("'%s' object is not reversible", args[0].Type())
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return object.SliceIterator("reversed", items), nil
}

// sortItems sorts in place. Keys are computed once; the sort is stable in
// both directions.
func sortItems(c object.Caller, items []object.Object, key object.Object, reverse bool) error {
	keys := items
	if key != nil && key != object.None {
		keys = make([]object.Object, len(items))
		for i, it := range items {
			k, err := c.Call(key, []object.Object{it}, nil)
			if err != nil {
				return err
			}
			keys[i] = k
		}
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	var cmpErr error
	sort.SliceStable(idx, func(a, b int) bool {
		if cmpErr != nil {
			return false
		}
		l, r := keys[idx[a]], keys[idx[b]]
		if reverse {
			l, r = r, l
		}
		less, err := semantics.Less(l, r)
		if err != nil {
			cmpErr = err
		}
		return less
	})
	if cmpErr != nil {
		return cmpErr
	}
	sorted := make([]object.Object, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
	return nil
}

func builtinSorted(c object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	kw, err := takeKwargs("sorted", kwargs, "key", "reverse")
	if err != nil {
		return nil, err
	}
	if err := checkArgs("sorted", args, 1, 1); err != nil {
		return nil, err
	}
	items, err := object.Collect(args[0])
	if err != nil {
		return nil, err
	}
	reverse := kw["reverse"] != nil && semantics.IsTruthy(kw["reverse"])
	if err := sortItems(c, items, kw["key"], reverse); err != nil {
		return nil, err
	}
	return &object.List{Elements: items}, nil
}

func minmax(c object.Caller, name string, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	kw, err := takeKwargs(name, kwargs, "key", "default")
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, typeError("%s expected at least 1 argument, got 0", name)
	}
	def, hasDefault := kw["default"]
	items := args
	if len(args) == 1 {
		if items, err = object.Collect(args[0]); err != nil {
			return nil, err
		}
	} else if hasDefault {
		return nil, typeError("Cannot specify a default for %s() with multiple positional arguments", name)
	}
	if len(items) == 0 {
		if hasDefault {
			return def, nil
		}
		return nil, valueError("%s() arg is an empty sequence", name)
	}

	key := kw["key"]
	keyOf := func(v object.Object) (object.Object, error) {
		if key == nil || key == object.None {
			return v, nil
		}
		return c.Call(key, []object.Object{v}, nil)
	}
	best := items[0]
	bestKey, err := keyOf(best)
	if err != nil {
		return nil, err
	}
	for _, it := range items[1:] {
		k, err := keyOf(it)
		if err != nil {
			return nil, err
		}
		var better bool
		if name == "max" {
			better, err = semantics.Less(bestKey, k)
		} else {
			better, err = semantics.Less(k, bestKey)
		}
		if err != nil {
			return nil, err
		}
		if better {
			best, bestKey = it, k
		}
	}
	return best, nil
}

func builtinMin(c object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	return minmax(c, "min", args, kwargs)
}

func builtinMax(c object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	return minmax(c, "max", args, kwargs)
}

func builtinSum(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	kw, err := takeKwargs("sum", kwargs, "start")
	if err != nil {
		return nil, err
	}
	if err := checkArgs("sum", args, 1, 2); err != nil {
		return nil, err
	}
	if len(args) == 2 {
		kw["start"] = args[1]
	}
	var total object.Object = &object.Int{}
	if s, ok := kw["start"]; ok {
		if _, isStr := s.(*object.Str); isStr {
			return nil, typeError("sum() can't sum strings [use ''.join(seq) instead]")
		}
		total = s
	}
	items, err := object.Collect(args[0])
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if total, err = semantics.BinaryOp("+", total, it); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func builtinAbs(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("abs", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("abs", args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *object.Int:
		if v.Value >= 0 {
			return v, nil
		}
		return semantics.UnaryOp("-", v)
	case *object.Bool:
		return semantics.UnaryOp("+", v)
	case *object.Float:
		return &object.Float{Value: math.Abs(v.Value)}, nil
	}
	return nil, typeError("bad operand type for abs(): '%s'", args[0].Type())
}

func builtinDivmod(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("divmod", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("divmod", args, 2, 2); err != nil {
		return nil, err
	}
	q, err := semantics.BinaryOp("//", args[0], args[1])
	if err != nil {
		return nil, err
	}
	r, err := semantics.BinaryOp("%", args[0], args[1])
	if err != nil {
		return nil, err
	}
	return &object.Tuple{Elements: []object.Object{q, r}}, nil
}

func builtinPow(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("pow", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("pow", args, 2, 3); err != nil {
		return nil, err
	}
	if len(args) == 2 || args[2] == object.None {
		return semantics.BinaryOp("**", args[0], args[1])
	}
	base, ok1 := semantics.AsIndex(args[0])
	exp, ok2 := semantics.AsIndex(args[1])
	mod, ok3 := semantics.AsIndex(args[2])
	if !ok1 || !ok2 || !ok3 {
		return nil, typeError("pow() 3rd argument not allowed unless all arguments are integers")
	}
	if mod == 0 {
		return nil, valueError("pow() 3rd argument cannot be 0")
	}
	if exp < 0 {
		return nil, valueError("pow() negative exponent not supported")
	}
	m := mod
	if m < 0 {
		m = -m
	}
	result := int64(1) % m
	b := ((base % m) + m) % m
	for exp > 0 {
		if exp&1 == 1 {
			result = mulMod(result, b, m)
		}
		b = mulMod(b, b, m)
		exp >>= 1
	}
	if mod < 0 && result != 0 {
		result += mod
	}
	return &object.Int{Value: result}, nil
}

// mulMod is a*b mod m without overflowing for operands below m.
func mulMod(a, b, m int64) int64 {
	var r int64
	a %= m
	for b > 0 {
		if b&1 == 1 {
			r = (r + a) % m
		}
		a = (a * 2) % m
		b >>= 1
	}
	return r
}

func builtinRound(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	kw, err := takeKwargs("round", kwargs, "ndigits")
	if err != nil {
		return nil, err
	}
	if err := checkArgs("round", args, 1, 2); err != nil {
		return nil, err
	}
	if len(args) == 2 {
		kw["ndigits"] = args[1]
	}
	nd, hasDigits := kw["ndigits"]
	if hasDigits && nd == object.None {
		hasDigits = false
	}
	switch v := args[0].(type) {
	case *object.Int, *object.Bool:
		i, _ := semantics.AsIndex(v)
		return &object.Int{Value: i}, nil
	case *object.Float:
		if !hasDigits {
			if math.IsNaN(v.Value) {
				return nil, valueError("cannot convert float NaN to integer")
			}
			if math.IsInf(v.Value, 0) {
				return nil, object.NewException(object.OverflowError, "cannot convert float infinity to integer")
			}
			return &object.Int{Value: int64(math.RoundToEven(v.Value))}, nil
		}
		digits, err := asIndex(nd)
		if err != nil {
			return nil, err
		}
		scale := math.Pow(10, float64(digits))
		return &object.Float{Value: math.RoundToEven(v.Value*scale) / scale}, nil
	}
	return nil, typeError("type %s doesn't define __round__ method", args[0].Type())
}

func builtinAny(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	return truthScan("any", args, kwargs, true)
}

func builtinAll(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	return truthScan("all", args, kwargs, false)
}

// truthScan stops at the first element whose truth equals stopOn.
func truthScan(name string, args []object.Object, kwargs *object.Dict, stopOn bool) (object.Object, error) {
	if err := noKwargs(name, kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs(name, args, 1, 1); err != nil {
		return nil, err
	}
	it, err := object.GetIter(args[0])
	if err != nil {
		return nil, err
	}
	for {
		v, ok, err := object.Advance(it)
		if err != nil {
			return nil, err
		}
		if !ok {
			return object.NativeBool(!stopOn), nil
		}
		if semantics.IsTruthy(v) == stopOn {
			return object.NativeBool(stopOn), nil
		}
	}
}

func isCallable(o object.Object) bool {
	switch o.(type) {
	case *object.Function, *object.Builtin, *object.BoundMethod, *object.ExceptionType:
		return true
	}
	return false
}

func builtinCallable(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("callable", args, 1, 1); err != nil {
		return nil, err
	}
	return object.NativeBool(isCallable(args[0])), noKwargs("callable", kwargs)
}

// instanceChecks maps the builtin constructors to the values they build.
var instanceChecks = map[string]func(object.Object) bool{
	"int": func(o object.Object) bool {
		switch o.(type) {
		case *object.Int, *object.Bool:
			return true
		}
		return false
	},
	"float": func(o object.Object) bool { _, ok := o.(*object.Float); return ok },
	"bool":  func(o object.Object) bool { _, ok := o.(*object.Bool); return ok },
	"str":   func(o object.Object) bool { _, ok := o.(*object.Str); return ok },
	"list":  func(o object.Object) bool { _, ok := o.(*object.List); return ok },
	"tuple": func(o object.Object) bool { _, ok := o.(*object.Tuple); return ok },
	"dict":  func(o object.Object) bool { _, ok := o.(*object.Dict); return ok },
	"set":   func(o object.Object) bool { _, ok := o.(*object.Set); return ok },
	"range": func(o object.Object) bool { _, ok := o.(*object.Range); return ok },
}

func isInstance(o, class object.Object) (bool, error) {
	switch c := class.(type) {
	case *object.ExceptionType:
		exc, ok := o.(*object.Exception)
		return ok && exc.IsA(c), nil
	case *object.Builtin:
		if check, ok := instanceChecks[c.Name]; ok && builtins[c.Name] == c {
			return check(o), nil
		}
	case *object.Tuple:
		for _, el := range c.Elements {
			ok, err := isInstance(o, el)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	return false, typeError("isinstance() arg 2 must be a type or tuple of types")
}

func builtinIsinstance(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("isinstance", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("isinstance", args, 2, 2); err != nil {
		return nil, err
	}
	ok, err := isInstance(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return object.NativeBool(ok), nil
}

func builtinHash(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("hash", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("hash", args, 1, 1); err != nil {
		return nil, err
	}
	h, err := object.Hash(args[0])
	if err != nil {
		return nil, err
	}
	return &object.Int{Value: h}, nil
}

func builtinFormat(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("format", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("format", args, 1, 2); err != nil {
		return nil, err
	}
	spec := ""
	if len(args) == 2 {
		s, ok := args[1].(*object.Str)
		if !ok {
			return nil, typeError("format() argument 2 must be str, not %s", args[1].Type())
		}
		spec = s.Value
	}
	return semantics.Format(args[0], spec)
}

func builtinChr(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("chr", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("chr", args, 1, 1); err != nil {
		return nil, err
	}
	i, err := asIndex(args[0])
	if err != nil {
		return nil, err
	}
	if i < 0 || i > 0x10FFFF {
		return nil, valueError("chr() arg not in range(0x110000)")
	}
	return &object.Str{Value: string(rune(i))}, nil
}

func builtinOrd(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("ord", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("ord", args, 1, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(*object.Str)
	if !ok {
		return nil, typeError("ord() expected string of length 1, but %s found", args[0].Type())
	}
	rs := s.Runes()
	if len(rs) != 1 {
		return nil, typeError("ord() expected a character, but string of length %d found", len(rs))
	}
	return &object.Int{Value: int64(rs[0])}, nil
}

func attrName(fname string, o object.Object) (string, error) {
	s, ok := o.(*object.Str)
	if !ok {
		return "", typeError("%s(): attribute name must be string", fname)
	}
	return s.Value, nil
}

func builtinGetattr(c object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("getattr", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("getattr", args, 2, 3); err != nil {
		return nil, err
	}
	name, err := attrName("getattr", args[1])
	if err != nil {
		return nil, err
	}
	v, err := getAttr(c, args[0], name)
	if err != nil {
		var exc *object.Exception
		if len(args) == 3 && errors.As(err, &exc) && exc.IsA(object.AttributeError) {
			return args[2], nil
		}
		return nil, err
	}
	return v, nil
}

func builtinSetattr(_ object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("setattr", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("setattr", args, 3, 3); err != nil {
		return nil, err
	}
	name, err := attrName("setattr", args[1])
	if err != nil {
		return nil, err
	}
	if err := setAttr(args[0], name, args[2]); err != nil {
		return nil, err
	}
	return object.None, nil
}

func builtinHasattr(c object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("hasattr", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("hasattr", args, 2, 2); err != nil {
		return nil, err
	}
	name, err := attrName("hasattr", args[1])
	if err != nil {
		return nil, err
	}
	if _, err := getAttr(c, args[0], name); err != nil {
		var exc *object.Exception
		if errors.As(err, &exc) && exc.IsA(object.AttributeError) {
			return object.False, nil
		}
		return nil, err
	}
	return object.True, nil
}
