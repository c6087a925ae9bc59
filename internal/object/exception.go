package object

import (
	"fmt"
	"strings"
)

// Kind classifies a raised exception independently of its Python class.
type Kind int

const (
	KindRuntime Kind = iota
	KindTypeMismatch
	KindArityMismatch
	KindName
	KindIndex
	KindKey
	KindZeroDivision
	KindStopIteration
	KindUserRaised
)

var kindNames = [...]string{
	KindRuntime:       "Runtime",
	KindTypeMismatch:  "TypeMismatch",
	KindArityMismatch: "ArityMismatch",
	KindName:          "Name",
	KindIndex:         "Index",
	KindKey:           "Key",
	KindZeroDivision:  "ZeroDivision",
	KindStopIteration: "StopIteration",
	KindUserRaised:    "UserRaised",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ExceptionType is an exception class. Calling one from bytecode builds an
// Exception.
type ExceptionType struct {
	Name string
	Base *ExceptionType
	kind Kind
}

func (*ExceptionType) Type() Type { return EXCEPTION_TYPE_OBJ }
func (t *ExceptionType) Inspect() string {
	return "<class '" + t.Name + "'>"
}

// IsSubclass reports whether t is other or derives from it.
func (t *ExceptionType) IsSubclass(other *ExceptionType) bool {
	for c := t; c != nil; c = c.Base {
		if c == other {
			return true
		}
	}
	return false
}

func (t *ExceptionType) Kind() Kind { return t.kind }

func newType(name string, base *ExceptionType, kind Kind) *ExceptionType {
	if base != nil && kind == KindRuntime {
		kind = base.kind
	}
	return &ExceptionType{Name: name, Base: base, kind: kind}
}

var (
	BaseException = newType("BaseException", nil, KindRuntime)
	GeneratorExit = newType("GeneratorExit", BaseException, KindRuntime)
	ExceptionBase = newType("Exception", BaseException, KindRuntime)

	ArithmeticError   = newType("ArithmeticError", ExceptionBase, KindRuntime)
	ZeroDivisionError = newType("ZeroDivisionError", ArithmeticError, KindZeroDivision)
	OverflowError     = newType("OverflowError", ArithmeticError, KindRuntime)

	LookupError = newType("LookupError", ExceptionBase, KindRuntime)
	IndexError  = newType("IndexError", LookupError, KindIndex)
	KeyError    = newType("KeyError", LookupError, KindKey)

	NameError         = newType("NameError", ExceptionBase, KindName)
	UnboundLocalError = newType("UnboundLocalError", NameError, KindName)

	TypeError      = newType("TypeError", ExceptionBase, KindTypeMismatch)
	ValueError     = newType("ValueError", ExceptionBase, KindRuntime)
	AttributeError = newType("AttributeError", ExceptionBase, KindRuntime)
	AssertionError = newType("AssertionError", ExceptionBase, KindRuntime)

	RuntimeError        = newType("RuntimeError", ExceptionBase, KindRuntime)
	RecursionError      = newType("RecursionError", RuntimeError, KindRuntime)
	NotImplementedError = newType("NotImplementedError", RuntimeError, KindRuntime)

	StopIteration = newType("StopIteration", ExceptionBase, KindStopIteration)
	MemoryError   = newType("MemoryError", ExceptionBase, KindRuntime)
	EOFError      = newType("EOFError", ExceptionBase, KindRuntime)
)

// ExceptionTypes lists every built-in exception class.
var ExceptionTypes = []*ExceptionType{
	BaseException, GeneratorExit, ExceptionBase,
	ArithmeticError, ZeroDivisionError, OverflowError,
	LookupError, IndexError, KeyError,
	NameError, UnboundLocalError,
	TypeError, ValueError, AttributeError, AssertionError,
	RuntimeError, RecursionError, NotImplementedError,
	StopIteration, MemoryError, EOFError,
}

type TracebackEntry struct {
	Name     string
	Filename string
	Line     int
}

// Exception is a raised condition. It is also a Go error so it can travel
// through ordinary error returns until bytecode catches it.
type Exception struct {
	Class *ExceptionType
	Args  []Object
	Kind  Kind

	Cause           *Exception
	Context         *Exception
	SuppressContext bool

	// Traceback is ordered innermost frame first.
	Traceback []TracebackEntry
}

func (e *Exception) Type() Type { return Type(e.Class.Name) }

func (e *Exception) Inspect() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = Repr(a)
	}
	return e.Class.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (e *Exception) Error() string {
	msg := e.Message()
	if msg == "" {
		return e.Class.Name
	}
	return e.Class.Name + ": " + msg
}

// Message is str(e).
func (e *Exception) Message() string {
	switch len(e.Args) {
	case 0:
		return ""
	case 1:
		if e.Class.IsSubclass(KeyError) {
			return Repr(e.Args[0])
		}
		return ToStr(e.Args[0])
	default:
		return Repr(&Tuple{Elements: e.Args})
	}
}

// IsA reports whether e is an instance of t or one of its subclasses.
func (e *Exception) IsA(t *ExceptionType) bool { return e.Class.IsSubclass(t) }

// Value is the payload of a StopIteration: its first argument, or None.
func (e *Exception) Value() Object {
	if len(e.Args) == 0 {
		return None
	}
	return e.Args[0]
}

func (e *Exception) AddTraceback(entry TracebackEntry) {
	e.Traceback = append(e.Traceback, entry)
}

func NewException(t *ExceptionType, format string, a ...any) *Exception {
	msg := fmt.Sprintf(format, a...)
	return &Exception{Class: t, Args: []Object{&Str{Value: msg}}, Kind: t.kind}
}

// NewExceptionArgs builds an exception the way calling its class does.
func NewExceptionArgs(t *ExceptionType, args []Object, kind Kind) *Exception {
	return &Exception{Class: t, Args: args, Kind: kind}
}

func NewStopIteration(value Object) *Exception {
	args := []Object{}
	if value != nil && value != None {
		args = []Object{value}
	}
	return &Exception{Class: StopIteration, Args: args, Kind: KindStopIteration}
}

func ArityError(format string, a ...any) *Exception {
	e := NewException(TypeError, format, a...)
	e.Kind = KindArityMismatch
	return e
}
