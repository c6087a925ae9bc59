package vm

import (
	"strconv"
	"strings"
	"unicode"

	"pyvm/internal/object"
	"pyvm/internal/semantics"
)

// method receives its receiver separately from the call's arguments.
type method func(c object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error)

// methods holds the built-in methods of each native type, keyed by the
// type name the program sees.
var methods = map[object.Type]map[string]*object.Builtin{}

func defineMethods(t object.Type, table map[string]method) {
	ms := make(map[string]*object.Builtin, len(table))
	for name, fn := range table {
		ms[name] = wrapMethod(t, name, fn)
	}
	methods[t] = ms
}

func wrapMethod(t object.Type, name string, fn method) *object.Builtin {
	return &object.Builtin{Name: name, Fn: func(c object.Caller, args []object.Object, kwargs *object.Dict) (object.Object, error) {
		if len(args) == 0 {
			return nil, typeError("unbound method %s.%s() needs an argument", t, name)
		}
		return fn(c, args[0], args[1:], kwargs)
	}}
}

func init() {
	defineMethods(object.LIST_OBJ, map[string]method{
		"append":  listAppend,
		"extend":  listExtend,
		"insert":  listInsert,
		"pop":     listPop,
		"remove":  listRemove,
		"index":   seqIndex,
		"count":   seqCount,
		"clear":   listClear,
		"copy":    listCopy,
		"reverse": listReverse,
		"sort":    listSort,
	})
	defineMethods(object.TUPLE_OBJ, map[string]method{
		"index": seqIndex,
		"count": seqCount,
	})
	defineMethods(object.DICT_OBJ, map[string]method{
		"get":        dictGet,
		"keys":       dictKeys,
		"values":     dictValues,
		"items":      dictItems,
		"pop":        dictPop,
		"popitem":    dictPopitem,
		"setdefault": dictSetdefault,
		"update":     dictUpdateMethod,
		"clear":      dictClear,
		"copy":       dictCopy,
	})
	defineMethods(object.SET_OBJ, map[string]method{
		"add":          setAdd,
		"remove":       setRemove,
		"discard":      setDiscard,
		"pop":          setPop,
		"clear":        setClear,
		"copy":         setCopy,
		"update":       setUpdate,
		"union":        setOperator("union", "|"),
		"intersection": setOperator("intersection", "&"),
		"difference":   setOperator("difference", "-"),
	})
	defineMethods(object.STR_OBJ, map[string]method{
		"join":       strJoin,
		"split":      strSplit,
		"strip":      strStrip("strip", strings.Trim, strings.TrimSpace),
		"lstrip":     strStrip("lstrip", strings.TrimLeft, func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }),
		"rstrip":     strStrip("rstrip", strings.TrimRight, func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }),
		"upper":      strMap("upper", strings.ToUpper),
		"lower":      strMap("lower", strings.ToLower),
		"capitalize": strMap("capitalize", capitalize),
		"title":      strMap("title", title),
		"startswith": strAffix("startswith", strings.HasPrefix),
		"endswith":   strAffix("endswith", strings.HasSuffix),
		"replace":    strReplace,
		"find":       strFind("find", false),
		"index":      strFind("index", true),
		"count":      strCount,
		"isdigit":    strIs("isdigit", unicode.IsDigit),
		"isalpha":    strIs("isalpha", unicode.IsLetter),
		"isspace":    strIs("isspace", unicode.IsSpace),
		"isalnum":    strIs("isalnum", func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }),
		"format":     strFormat,
	})
	defineMethods(object.GENERATOR_OBJ, map[string]method{
		"send":     genSend,
		"throw":    genThrow,
		"close":    genClose,
		"__next__": genNext,
	})
}

var iterNext = wrapMethod("iterator", "__next__", func(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("__next__", args, 0, 0); err != nil {
		return nil, err
	}
	v, ok, err := object.Advance(self)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, object.NewStopIteration(nil)
	}
	return v, nil
})

// lookupMethod finds the unbound built-in method name of obj's type.
func lookupMethod(obj object.Object, name string) (*object.Builtin, bool) {
	if _, ok := obj.(*object.Iterator); ok {
		return iterNext, name == "__next__"
	}
	m, ok := methods[obj.Type()][name]
	return m, ok
}

func noAttribute(obj object.Object, name string) *object.Exception {
	return object.NewException(object.AttributeError, "'%s' object has no attribute '%s'", obj.Type(), name)
}

func strObj(s string) *object.Str { return &object.Str{Value: s} }

// getAttr implements obj.name for the native types.
func getAttr(_ object.Caller, obj object.Object, name string) (object.Object, error) {
	switch o := obj.(type) {
	case *object.Exception:
		switch name {
		case "args":
			return &object.Tuple{Elements: append([]object.Object(nil), o.Args...)}, nil
		case "__cause__":
			if o.Cause == nil {
				return object.None, nil
			}
			return o.Cause, nil
		case "__context__":
			if o.Context == nil {
				return object.None, nil
			}
			return o.Context, nil
		case "__suppress_context__":
			return object.NativeBool(o.SuppressContext), nil
		case "__class__":
			return o.Class, nil
		case "value":
			if o.IsA(object.StopIteration) {
				return o.Value(), nil
			}
		}
	case *object.ExceptionType:
		if name == "__name__" || name == "__qualname__" {
			return strObj(o.Name), nil
		}
	case *object.Function:
		switch name {
		case "__name__":
			return strObj(o.Name), nil
		case "__qualname__":
			return strObj(o.QualName), nil
		case "__code__":
			return o.Code, nil
		case "__defaults__":
			if len(o.Defaults) == 0 {
				return object.None, nil
			}
			return &object.Tuple{Elements: o.Defaults}, nil
		case "__kwdefaults__":
			if o.KwDefaults == nil {
				return object.None, nil
			}
			return o.KwDefaults, nil
		case "__annotations__":
			if o.Annotations == nil {
				o.Annotations = object.NewDict()
			}
			return o.Annotations, nil
		case "__closure__":
			if len(o.Closure) == 0 {
				return object.None, nil
			}
			cells := make([]object.Object, len(o.Closure))
			for i, c := range o.Closure {
				cells[i] = c
			}
			return &object.Tuple{Elements: cells}, nil
		}
		if v, ok := o.Attrs[name]; ok {
			return v, nil
		}
		if name == "__doc__" {
			return object.None, nil
		}
	case *object.Builtin:
		if name == "__name__" || name == "__qualname__" {
			return strObj(o.Name), nil
		}
	case *object.BoundMethod:
		switch name {
		case "__self__":
			return o.Self, nil
		case "__func__":
			return o.Func, nil
		}
	case *object.Generator:
		switch name {
		case "__name__":
			return strObj(o.Name), nil
		case "__qualname__":
			return strObj(o.QualName), nil
		case "gi_running":
			return object.NativeBool(o.Running), nil
		}
	case *object.Code:
		switch name {
		case "co_name":
			return strObj(o.Name), nil
		case "co_filename":
			return strObj(o.Filename), nil
		case "co_firstlineno":
			return &object.Int{Value: int64(o.FirstLine)}, nil
		case "co_argcount":
			return &object.Int{Value: int64(o.ArgCount)}, nil
		case "co_posonlyargcount":
			return &object.Int{Value: int64(o.PosOnlyArgCount)}, nil
		case "co_kwonlyargcount":
			return &object.Int{Value: int64(o.KwOnlyArgCount)}, nil
		case "co_varnames":
			return namesTuple(o.VarNames), nil
		case "co_cellvars":
			return namesTuple(o.CellVars), nil
		case "co_freevars":
			return namesTuple(o.FreeVars), nil
		}
	case *object.Cell:
		if name == "cell_contents" {
			if o.Value == nil {
				return nil, valueError("Cell is empty")
			}
			return o.Value, nil
		}
	case *object.Range:
		switch name {
		case "start":
			return &object.Int{Value: o.Start}, nil
		case "stop":
			return &object.Int{Value: o.Stop}, nil
		case "step":
			return &object.Int{Value: o.Step}, nil
		}
	case *object.Slice:
		switch name {
		case "start":
			return o.Start, nil
		case "stop":
			return o.Stop, nil
		case "step":
			return o.Step, nil
		}
	}
	if m, ok := lookupMethod(obj, name); ok {
		return &object.BoundMethod{Self: obj, Func: m}, nil
	}
	return nil, noAttribute(obj, name)
}

func namesTuple(names []string) *object.Tuple {
	out := make([]object.Object, len(names))
	for i, n := range names {
		out[i] = strObj(n)
	}
	return &object.Tuple{Elements: out}
}

// setAttr implements obj.name = value. Only functions carry arbitrary
// attributes.
func setAttr(obj object.Object, name string, value object.Object) error {
	switch o := obj.(type) {
	case *object.Function:
		switch name {
		case "__name__", "__qualname__":
			s, ok := value.(*object.Str)
			if !ok {
				return typeError("%s must be set to a string object", name)
			}
			if name == "__name__" {
				o.Name = s.Value
			} else {
				o.QualName = s.Value
			}
			return nil
		case "__defaults__":
			switch d := value.(type) {
			case *object.NoneType:
				o.Defaults = nil
			case *object.Tuple:
				o.Defaults = d.Elements
			default:
				return typeError("__defaults__ must be set to a tuple object")
			}
			return nil
		case "__code__", "__closure__", "__globals__":
			return object.NewException(object.AttributeError, "readonly attribute")
		}
		if o.Attrs == nil {
			o.Attrs = object.Namespace{}
		}
		o.Attrs[name] = value
		return nil
	case *object.Exception:
		switch name {
		case "__cause__", "__context__":
			var exc *object.Exception
			switch v := value.(type) {
			case *object.NoneType:
			case *object.Exception:
				exc = v
			default:
				return typeError("exception cause must be None or derive from BaseException")
			}
			if name == "__cause__" {
				o.Cause = exc
				o.SuppressContext = true
			} else {
				o.Context = exc
			}
			return nil
		case "__suppress_context__":
			o.SuppressContext = semantics.IsTruthy(value)
			return nil
		case "args":
			items, err := object.Collect(value)
			if err != nil {
				return err
			}
			o.Args = items
			return nil
		}
	}
	if _, ok := lookupMethod(obj, name); ok {
		return object.NewException(object.AttributeError, "'%s' object attribute '%s' is read-only", obj.Type(), name)
	}
	return noAttribute(obj, name)
}

func delAttr(obj object.Object, name string) error {
	if fn, ok := obj.(*object.Function); ok {
		if _, found := fn.Attrs[name]; found {
			delete(fn.Attrs, name)
			return nil
		}
	}
	return noAttribute(obj, name)
}

// List methods.

func listAppend(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("list.append", args, 1, 1); err != nil {
		return nil, err
	}
	l := self.(*object.List)
	l.Elements = append(l.Elements, args[0])
	return object.None, noKwargs("list.append", kwargs)
}

func listExtend(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("list.extend", args, 1, 1); err != nil {
		return nil, err
	}
	items, err := object.Collect(args[0])
	if err != nil {
		return nil, err
	}
	l := self.(*object.List)
	l.Elements = append(l.Elements, items...)
	return object.None, noKwargs("list.extend", kwargs)
}

func listInsert(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("insert", args, 2, 2); err != nil {
		return nil, err
	}
	i, err := asIndex(args[0])
	if err != nil {
		return nil, err
	}
	l := self.(*object.List)
	n := int64(len(l.Elements))
	if i < 0 {
		i += n
		if i < 0 {
			i = 0
		}
	}
	if i > n {
		i = n
	}
	l.Elements = append(l.Elements, nil)
	copy(l.Elements[i+1:], l.Elements[i:])
	l.Elements[i] = args[1]
	return object.None, noKwargs("list.insert", kwargs)
}

func listPop(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("pop", args, 0, 1); err != nil {
		return nil, err
	}
	l := self.(*object.List)
	n := int64(len(l.Elements))
	if n == 0 {
		return nil, object.NewException(object.IndexError, "pop from empty list")
	}
	i := n - 1
	if len(args) == 1 {
		var err error
		if i, err = asIndex(args[0]); err != nil {
			return nil, err
		}
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, object.NewException(object.IndexError, "pop index out of range")
		}
	}
	v := l.Elements[i]
	l.Elements = append(l.Elements[:i], l.Elements[i+1:]...)
	return v, noKwargs("list.pop", kwargs)
}

func listRemove(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("list.remove", args, 1, 1); err != nil {
		return nil, err
	}
	l := self.(*object.List)
	for i, el := range l.Elements {
		if semantics.Equal(el, args[0]) {
			l.Elements = append(l.Elements[:i], l.Elements[i+1:]...)
			return object.None, noKwargs("list.remove", kwargs)
		}
	}
	return nil, valueError("list.remove(x): x not in list")
}

func elementsOf(self object.Object) []object.Object {
	switch v := self.(type) {
	case *object.List:
		return v.Elements
	case *object.Tuple:
		return v.Elements
	}
	return nil
}

func seqIndex(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("index", args, 1, 3); err != nil {
		return nil, err
	}
	items := elementsOf(self)
	n := int64(len(items))
	start, stop := int64(0), n
	bounds := []*int64{&start, &stop}
	for k, a := range args[1:] {
		v, err := asIndex(a)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			v += n
			if v < 0 {
				v = 0
			}
		}
		if v > n {
			v = n
		}
		*bounds[k] = v
	}
	for i := start; i < stop; i++ {
		if semantics.Equal(items[i], args[0]) {
			return &object.Int{Value: i}, noKwargs("index", kwargs)
		}
	}
	return nil, valueError("%s is not in %s", object.Repr(args[0]), self.Type())
}

func seqCount(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs(string(self.Type())+".count", args, 1, 1); err != nil {
		return nil, err
	}
	var n int64
	for _, el := range elementsOf(self) {
		if semantics.Equal(el, args[0]) {
			n++
		}
	}
	return &object.Int{Value: n}, noKwargs("count", kwargs)
}

func listClear(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("list.clear", args, 0, 0); err != nil {
		return nil, err
	}
	self.(*object.List).Elements = nil
	return object.None, noKwargs("list.clear", kwargs)
}

func listCopy(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("list.copy", args, 0, 0); err != nil {
		return nil, err
	}
	items := append([]object.Object(nil), self.(*object.List).Elements...)
	return &object.List{Elements: items}, noKwargs("list.copy", kwargs)
}

func listReverse(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("list.reverse", args, 0, 0); err != nil {
		return nil, err
	}
	items := self.(*object.List).Elements
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return object.None, noKwargs("list.reverse", kwargs)
}

func listSort(c object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if len(args) > 0 {
		return nil, typeError("sort() takes no positional arguments")
	}
	kw, err := takeKwargs("sort", kwargs, "key", "reverse")
	if err != nil {
		return nil, err
	}
	reverse := kw["reverse"] != nil && semantics.IsTruthy(kw["reverse"])
	if err := sortItems(c, self.(*object.List).Elements, kw["key"], reverse); err != nil {
		return nil, err
	}
	return object.None, nil
}

// Dict methods. keys, values and items return lists rather than views.

func dictGet(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("get", args, 1, 2); err != nil {
		return nil, err
	}
	v, found, err := self.(*object.Dict).Get(args[0])
	if err != nil {
		return nil, err
	}
	if found {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return object.None, noKwargs("dict.get", kwargs)
}

func dictKeys(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("dict.keys", args, 0, 0); err != nil {
		return nil, err
	}
	return &object.List{Elements: self.(*object.Dict).Keys()}, noKwargs("dict.keys", kwargs)
}

func dictValues(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("dict.values", args, 0, 0); err != nil {
		return nil, err
	}
	return &object.List{Elements: self.(*object.Dict).Values()}, noKwargs("dict.values", kwargs)
}

func dictItems(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("dict.items", args, 0, 0); err != nil {
		return nil, err
	}
	entries := self.(*object.Dict).Entries()
	out := make([]object.Object, len(entries))
	for i, e := range entries {
		out[i] = &object.Tuple{Elements: []object.Object{e.Key, e.Value}}
	}
	return &object.List{Elements: out}, noKwargs("dict.items", kwargs)
}

func dictPop(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("dict.pop", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("pop", args, 1, 2); err != nil {
		return nil, err
	}
	d := self.(*object.Dict)
	v, found, err := d.Get(args[0])
	if err != nil {
		return nil, err
	}
	if !found {
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, semantics.KeyError(args[0])
	}
	if _, err := d.Delete(args[0]); err != nil {
		return nil, err
	}
	return v, nil
}

func dictPopitem(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("dict.popitem", args, 0, 0); err != nil {
		return nil, err
	}
	d := self.(*object.Dict)
	entries := d.Entries()
	if len(entries) == 0 {
		return nil, object.NewException(object.KeyError, "popitem(): dictionary is empty")
	}
	last := entries[len(entries)-1]
	if _, err := d.Delete(last.Key); err != nil {
		return nil, err
	}
	return &object.Tuple{Elements: []object.Object{last.Key, last.Value}}, noKwargs("dict.popitem", kwargs)
}

func dictSetdefault(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("setdefault", args, 1, 2); err != nil {
		return nil, err
	}
	d := self.(*object.Dict)
	v, found, err := d.Get(args[0])
	if err != nil {
		return nil, err
	}
	if found {
		return v, nil
	}
	def := object.Object(object.None)
	if len(args) == 2 {
		def = args[1]
	}
	if err := d.Set(args[0], def); err != nil {
		return nil, err
	}
	return def, noKwargs("dict.setdefault", kwargs)
}

func dictUpdateMethod(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("update", args, 0, 1); err != nil {
		return nil, err
	}
	d := self.(*object.Dict)
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
	return object.None, nil
}

func dictClear(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("dict.clear", args, 0, 0); err != nil {
		return nil, err
	}
	self.(*object.Dict).Clear()
	return object.None, noKwargs("dict.clear", kwargs)
}

func dictCopy(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("dict.copy", args, 0, 0); err != nil {
		return nil, err
	}
	return self.(*object.Dict).Copy(), noKwargs("dict.copy", kwargs)
}

// Set methods.

func setAdd(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("set.add", args, 1, 1); err != nil {
		return nil, err
	}
	if err := self.(*object.Set).Add(args[0]); err != nil {
		return nil, err
	}
	return object.None, noKwargs("set.add", kwargs)
}

func setRemove(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("set.remove", args, 1, 1); err != nil {
		return nil, err
	}
	found, err := self.(*object.Set).Remove(args[0])
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, semantics.KeyError(args[0])
	}
	return object.None, noKwargs("set.remove", kwargs)
}

func setDiscard(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("set.discard", args, 1, 1); err != nil {
		return nil, err
	}
	if _, err := self.(*object.Set).Remove(args[0]); err != nil {
		return nil, err
	}
	return object.None, noKwargs("set.discard", kwargs)
}

func setPop(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("set.pop", args, 0, 0); err != nil {
		return nil, err
	}
	s := self.(*object.Set)
	items := s.Items()
	if len(items) == 0 {
		return nil, object.NewException(object.KeyError, "pop from an empty set")
	}
	if _, err := s.Remove(items[0]); err != nil {
		return nil, err
	}
	return items[0], noKwargs("set.pop", kwargs)
}

func setClear(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("set.clear", args, 0, 0); err != nil {
		return nil, err
	}
	self.(*object.Set).Clear()
	return object.None, noKwargs("set.clear", kwargs)
}

func setCopy(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("set.copy", args, 0, 0); err != nil {
		return nil, err
	}
	return self.(*object.Set).Copy(), noKwargs("set.copy", kwargs)
}

func setUpdate(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("set.update", kwargs); err != nil {
		return nil, err
	}
	s := self.(*object.Set)
	for _, a := range args {
		items, err := object.Collect(a)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if err := s.Add(it); err != nil {
				return nil, err
			}
		}
	}
	return object.None, nil
}

// setOperator applies a binary set operator across every argument, which
// may be any iterable.
func setOperator(name, op string) method {
	return func(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
		if err := noKwargs("set."+name, kwargs); err != nil {
			return nil, err
		}
		var acc object.Object = self.(*object.Set).Copy()
		for _, a := range args {
			other, ok := a.(*object.Set)
			if !ok {
				items, err := object.Collect(a)
				if err != nil {
					return nil, err
				}
				other = object.NewSet()
				for _, it := range items {
					if err := other.Add(it); err != nil {
						return nil, err
					}
				}
			}
			var err error
			if acc, err = semantics.BinaryOp(op, acc, other); err != nil {
				return nil, err
			}
		}
		return acc, nil
	}
}

// String methods.

func strArg(fname string, o object.Object) (string, error) {
	s, ok := o.(*object.Str)
	if !ok {
		return "", typeError("%s() argument must be str, not %s", fname, o.Type())
	}
	return s.Value, nil
}

func strJoin(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("str.join", args, 1, 1); err != nil {
		return nil, err
	}
	items, err := object.Collect(args[0])
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(*object.Str)
		if !ok {
			return nil, typeError("sequence item %d: expected str instance, %s found", i, it.Type())
		}
		parts[i] = s.Value
	}
	return strObj(strings.Join(parts, self.(*object.Str).Value)), noKwargs("str.join", kwargs)
}

func strSplit(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	kw, err := takeKwargs("split", kwargs, "sep", "maxsplit")
	if err != nil {
		return nil, err
	}
	if err := checkArgs("split", args, 0, 2); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		kw["sep"] = args[0]
	}
	if len(args) > 1 {
		kw["maxsplit"] = args[1]
	}
	maxsplit := int64(-1)
	if v, ok := kw["maxsplit"]; ok {
		if maxsplit, err = asIndex(v); err != nil {
			return nil, err
		}
	}
	s := self.(*object.Str).Value

	var parts []string
	if sep, ok := kw["sep"]; ok && sep != object.None {
		sepStr, err := strArg("split", sep)
		if err != nil {
			return nil, err
		}
		if sepStr == "" {
			return nil, valueError("empty separator")
		}
		if maxsplit < 0 {
			parts = strings.Split(s, sepStr)
		} else {
			parts = strings.SplitN(s, sepStr, int(maxsplit)+1)
		}
	} else {
		parts = splitWhitespace(s, maxsplit)
	}
	out := make([]object.Object, len(parts))
	for i, p := range parts {
		out[i] = strObj(p)
	}
	return &object.List{Elements: out}, nil
}

func splitWhitespace(s string, maxsplit int64) []string {
	if maxsplit < 0 {
		return strings.Fields(s)
	}
	var parts []string
	rest := strings.TrimLeftFunc(s, unicode.IsSpace)
	for rest != "" {
		if int64(len(parts)) == maxsplit {
			parts = append(parts, rest)
			break
		}
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			parts = append(parts, rest)
			break
		}
		parts = append(parts, rest[:end])
		rest = strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
	}
	return parts
}

func strStrip(name string, withChars func(string, string) string, spaces func(string) string) method {
	return func(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
		if err := noKwargs("str."+name, kwargs); err != nil {
			return nil, err
		}
		if err := checkArgs(name, args, 0, 1); err != nil {
			return nil, err
		}
		s := self.(*object.Str).Value
		if len(args) == 0 || args[0] == object.None {
			return strObj(spaces(s)), nil
		}
		chars, err := strArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return strObj(withChars(s, chars)), nil
	}
}

func strMap(name string, fn func(string) string) method {
	return func(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
		if err := checkArgs("str."+name, args, 0, 0); err != nil {
			return nil, err
		}
		return strObj(fn(self.(*object.Str).Value)), noKwargs("str."+name, kwargs)
	}
}

func capitalize(s string) string {
	rs := []rune(strings.ToLower(s))
	if len(rs) > 0 {
		rs[0] = unicode.ToUpper(rs[0])
	}
	return string(rs)
}

func title(s string) string {
	rs := []rune(s)
	prevCased := false
	for i, r := range rs {
		if prevCased {
			rs[i] = unicode.ToLower(r)
		} else {
			rs[i] = unicode.ToUpper(r)
		}
		prevCased = unicode.IsLetter(r)
	}
	return string(rs)
}

func strAffix(name string, test func(string, string) bool) method {
	return func(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
		if err := noKwargs("str."+name, kwargs); err != nil {
			return nil, err
		}
		if err := checkArgs(name, args, 1, 1); err != nil {
			return nil, err
		}
		s := self.(*object.Str).Value
		candidates := []object.Object{args[0]}
		if t, ok := args[0].(*object.Tuple); ok {
			candidates = t.Elements
		}
		for _, c := range candidates {
			a, ok := c.(*object.Str)
			if !ok {
				return nil, typeError("%s first arg must be str or a tuple of str, not %s", name, c.Type())
			}
			if test(s, a.Value) {
				return object.True, nil
			}
		}
		return object.False, nil
	}
}

func strReplace(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("str.replace", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("replace", args, 2, 3); err != nil {
		return nil, err
	}
	old, err := strArg("replace", args[0])
	if err != nil {
		return nil, err
	}
	repl, err := strArg("replace", args[1])
	if err != nil {
		return nil, err
	}
	n := int64(-1)
	if len(args) == 3 {
		if n, err = asIndex(args[2]); err != nil {
			return nil, err
		}
	}
	return strObj(strings.Replace(self.(*object.Str).Value, old, repl, int(n))), nil
}

// runeIndex converts a byte offset in s into a code point offset.
func runeIndex(s string, byteOff int) int64 {
	return int64(len([]rune(s[:byteOff])))
}

func strFind(name string, raise bool) method {
	return func(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
		if err := noKwargs("str."+name, kwargs); err != nil {
			return nil, err
		}
		if err := checkArgs(name, args, 1, 1); err != nil {
			return nil, err
		}
		sub, err := strArg(name, args[0])
		if err != nil {
			return nil, err
		}
		s := self.(*object.Str).Value
		at := strings.Index(s, sub)
		if at < 0 {
			if raise {
				return nil, valueError("substring not found")
			}
			return &object.Int{Value: -1}, nil
		}
		return &object.Int{Value: runeIndex(s, at)}, nil
	}
}

func strCount(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := noKwargs("str.count", kwargs); err != nil {
		return nil, err
	}
	if err := checkArgs("count", args, 1, 1); err != nil {
		return nil, err
	}
	sub, err := strArg("count", args[0])
	if err != nil {
		return nil, err
	}
	s := self.(*object.Str).Value
	if sub == "" {
		return &object.Int{Value: int64(len([]rune(s))) + 1}, nil
	}
	return &object.Int{Value: int64(strings.Count(s, sub))}, nil
}

func strIs(name string, pred func(rune) bool) method {
	return func(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
		if err := checkArgs("str."+name, args, 0, 0); err != nil {
			return nil, err
		}
		s := self.(*object.Str).Value
		if s == "" {
			return object.False, nil
		}
		for _, r := range s {
			if !pred(r) {
				return object.False, nil
			}
		}
		return object.True, noKwargs("str."+name, kwargs)
	}
}

// strFormat implements str.format with positional and named fields,
// conversions and format specs. Attribute and index lookups inside a
// field name are not supported.
func strFormat(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	src := self.(*object.Str).Value
	var b strings.Builder
	auto := 0
	manual := false

	for i := 0; i < len(src); i++ {
		ch := src[i]
		if ch == '}' {
			if i+1 < len(src) && src[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return nil, valueError("Single '}' encountered in format string")
		}
		if ch != '{' {
			b.WriteByte(ch)
			continue
		}
		if i+1 < len(src) && src[i+1] == '{' {
			b.WriteByte('{')
			i++
			continue
		}
		end := strings.IndexByte(src[i:], '}')
		if end < 0 {
			return nil, valueError("Single '{' encountered in format string")
		}
		field := src[i+1 : i+end]
		i += end

		spec := ""
		if k := strings.IndexByte(field, ':'); k >= 0 {
			field, spec = field[:k], field[k+1:]
		}
		conv := byte(0)
		if k := strings.IndexByte(field, '!'); k >= 0 {
			if k+2 != len(field) {
				return nil, valueError("expected ':' after conversion specifier")
			}
			conv = field[k+1]
			field = field[:k]
		}

		var v object.Object
		switch {
		case field == "":
			if manual {
				return nil, valueError("cannot switch from manual field specification to automatic field numbering")
			}
			if auto >= len(args) {
				return nil, object.NewException(object.IndexError,
					"Replacement index %d out of range for positional args tuple", auto)
			}
			v = args[auto]
			auto++
		case field[0] >= '0' && field[0] <= '9':
			if auto > 0 {
				return nil, valueError("cannot switch from automatic field numbering to manual field specification")
			}
			manual = true
			n, err := strconv.Atoi(field)
			if err != nil {
				return nil, valueError("invalid format field %s", field)
			}
			if n >= len(args) {
				return nil, object.NewException(object.IndexError,
					"Replacement index %d out of range for positional args tuple", n)
			}
			v = args[n]
		default:
			var found bool
			if kwargs != nil {
				v, found = kwargs.GetStr(field)
			}
			if !found {
				return nil, semantics.KeyError(strObj(field))
			}
		}

		switch conv {
		case 0:
		case 's':
			v = strObj(object.ToStr(v))
		case 'r':
			v = strObj(object.Repr(v))
		case 'a':
			v = strObj(object.ASCII(v))
		default:
			return nil, valueError("Unknown conversion specifier %c", conv)
		}
		out, err := semantics.Format(v, spec)
		if err != nil {
			return nil, err
		}
		b.WriteString(out.(*object.Str).Value)
	}
	return strObj(b.String()), nil
}

// Generator methods.

func genSend(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("send", args, 1, 1); err != nil {
		return nil, err
	}
	return self.(*object.Generator).Send(args[0])
}

func genNext(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("__next__", args, 0, 0); err != nil {
		return nil, err
	}
	return self.(*object.Generator).Next()
}

func genThrow(c object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("throw", args, 1, 3); err != nil {
		return nil, err
	}
	var exc *object.Exception
	switch v := args[0].(type) {
	case *object.Exception:
		exc = v
	case *object.ExceptionType:
		var callArgs []object.Object
		if len(args) > 1 && args[1] != object.None {
			callArgs = []object.Object{args[1]}
		}
		res, err := c.Call(v, callArgs, nil)
		if err != nil {
			return nil, err
		}
		exc = res.(*object.Exception)
	default:
		return nil, typeError("exceptions must be classes or instances deriving from BaseException, not %s", args[0].Type())
	}
	return self.(*object.Generator).Throw(exc)
}

func genClose(_ object.Caller, self object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("close", args, 0, 0); err != nil {
		return nil, err
	}
	if err := self.(*object.Generator).Close(); err != nil {
		return nil, err
	}
	return object.None, nil
}
