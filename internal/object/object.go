package object

import (
	"fmt"
	"math"
	"strconv"
)

// Type is the runtime type name as the interpreted program sees it.
type Type string

const (
	INT_OBJ            Type = "int"
	FLOAT_OBJ          Type = "float"
	BOOL_OBJ           Type = "bool"
	NONE_OBJ           Type = "NoneType"
	STR_OBJ            Type = "str"
	TUPLE_OBJ          Type = "tuple"
	LIST_OBJ           Type = "list"
	DICT_OBJ           Type = "dict"
	SET_OBJ            Type = "set"
	SLICE_OBJ          Type = "slice"
	RANGE_OBJ          Type = "range"
	FUNCTION_OBJ       Type = "function"
	BUILTIN_OBJ        Type = "builtin_function_or_method"
	METHOD_OBJ         Type = "method"
	CELL_OBJ           Type = "cell"
	GENERATOR_OBJ      Type = "generator"
	CODE_OBJ           Type = "code"
	EXCEPTION_TYPE_OBJ Type = "type"
)

type Object interface {
	Type() Type
	Inspect() string
}

type Int struct{ Value int64 }

func (*Int) Type() Type        { return INT_OBJ }
func (i *Int) Inspect() string { return strconv.FormatInt(i.Value, 10) }

type Float struct{ Value float64 }

func (*Float) Type() Type        { return FLOAT_OBJ }
func (f *Float) Inspect() string { return FormatFloat(f.Value) }

type Bool struct{ Value bool }

func (*Bool) Type() Type { return BOOL_OBJ }
func (b *Bool) Inspect() string {
	if b.Value {
		return "True"
	}
	return "False"
}

var (
	True  = &Bool{Value: true}
	False = &Bool{Value: false}
)

func NativeBool(b bool) *Bool {
	if b {
		return True
	}
	return False
}

type NoneType struct{}

func (*NoneType) Type() Type      { return NONE_OBJ }
func (*NoneType) Inspect() string { return "None" }

var None = &NoneType{}

type Str struct{ Value string }

func (*Str) Type() Type        { return STR_OBJ }
func (s *Str) Inspect() string { return QuoteStr(s.Value) }

// Runes returns the code points of s; indexing and len work on these.
func (s *Str) Runes() []rune { return []rune(s.Value) }

type Tuple struct{ Elements []Object }

func (*Tuple) Type() Type        { return TUPLE_OBJ }
func (t *Tuple) Inspect() string { return Repr(t) }

var EmptyTuple = &Tuple{}

type List struct{ Elements []Object }

func (*List) Type() Type        { return LIST_OBJ }
func (l *List) Inspect() string { return Repr(l) }

type Slice struct {
	Start Object
	Stop  Object
	Step  Object
}

func (*Slice) Type() Type        { return SLICE_OBJ }
func (s *Slice) Inspect() string { return Repr(s) }

type Range struct {
	Start int64
	Stop  int64
	Step  int64
}

func (*Range) Type() Type { return RANGE_OBJ }
func (r *Range) Inspect() string {
	if r.Step == 1 {
		return fmt.Sprintf("range(%d, %d)", r.Start, r.Stop)
	}
	return fmt.Sprintf("range(%d, %d, %d)", r.Start, r.Stop, r.Step)
}

func (r *Range) Len() int64 { return StepCount(r.Start, r.Stop, r.Step) }

// StepCount is the number of values start, start+step, ... visits before
// reaching stop. The arithmetic is done unsigned so that no combination of
// bounds and step overflows; a count past MaxInt64 saturates.
func StepCount(start, stop, step int64) int64 {
	var span, mag uint64
	switch {
	case step > 0 && start < stop:
		span, mag = uint64(stop)-uint64(start), uint64(step)
	case step < 0 && start > stop:
		span, mag = uint64(start)-uint64(stop), -uint64(step)
	default:
		return 0
	}
	n := (span-1)/mag + 1
	if n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}

func (r *Range) At(i int64) int64 { return r.Start + i*r.Step }

// Cell is a shared variable slot. A nil Value means the slot is empty.
type Cell struct{ Value Object }

func (*Cell) Type() Type { return CELL_OBJ }
func (c *Cell) Inspect() string {
	if c.Value == nil {
		return fmt.Sprintf("<cell at %p: empty>", c)
	}
	return fmt.Sprintf("<cell at %p: %s object>", c, c.Value.Type())
}

// Caller lets primitives re-enter the interpreter, e.g. to call a key
// function or advance a generator.
type Caller interface {
	Call(fn Object, args []Object, kwargs *Dict) (Object, error)
}

type BuiltinFunction func(c Caller, args []Object, kwargs *Dict) (Object, error)

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (*Builtin) Type() Type        { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string { return "<built-in function " + b.Name + ">" }

// BoundMethod prepends Self to the arguments of Func.
type BoundMethod struct {
	Self Object
	Func Object
}

func (m *BoundMethod) Type() Type {
	if _, ok := m.Func.(*Builtin); ok {
		return BUILTIN_OBJ
	}
	return METHOD_OBJ
}

func (m *BoundMethod) Inspect() string {
	switch fn := m.Func.(type) {
	case *Builtin:
		return fmt.Sprintf("<built-in method %s of %s object at %p>", fn.Name, m.Self.Type(), m.Self)
	case *Function:
		return fmt.Sprintf("<bound method %s of %s>", fn.QualName, Repr(m.Self))
	default:
		return fmt.Sprintf("<bound method of %s>", Repr(m.Self))
	}
}

type Function struct {
	Code        *Code
	Globals     Namespace
	Name        string
	QualName    string
	Defaults    []Object
	KwDefaults  *Dict
	Annotations Object
	Closure     []*Cell

	// Attrs holds attributes stored on the function object itself.
	Attrs Namespace
}

func (*Function) Type() Type { return FUNCTION_OBJ }
func (f *Function) Inspect() string {
	return fmt.Sprintf("<function %s at %p>", f.QualName, f)
}

// Namespace maps module-level names to values. Each run gets its own.
type Namespace map[string]Object
