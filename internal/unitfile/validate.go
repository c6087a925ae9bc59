package unitfile

import (
	"github.com/pkg/errors"

	"pyvm/internal/code"
	"pyvm/internal/object"
)

// Validate checks that every operand of c, and of each unit nested in its
// constant pool, indexes something that exists. A unit that passes can
// still fault at run time (stack underflow, a bad block layout) but never
// reads outside its own tables.
func Validate(c *object.Code) error {
	return validate(c, c.Name)
}

func validate(c *object.Code, path string) error {
	fail := func(format string, a ...any) error {
		return errors.Errorf("unitfile: %s: "+format, append([]any{path}, a...)...)
	}

	if len(c.Instructions) == 0 {
		return fail("no instructions")
	}
	if len(c.Lines) != 0 && len(c.Lines) != len(c.Instructions) {
		return fail("%d line entries for %d instructions", len(c.Lines), len(c.Instructions))
	}
	if c.ArgCount < 0 || c.PosOnlyArgCount < 0 || c.KwOnlyArgCount < 0 {
		return fail("negative argument count")
	}
	if c.PosOnlyArgCount > c.ArgCount {
		return fail("%d positional-only arguments but only %d positional", c.PosOnlyArgCount, c.ArgCount)
	}
	if n := c.TotalArgs(); n > len(c.VarNames) {
		return fail("%d parameters but only %d local names", n, len(c.VarNames))
	}

	derefs := len(c.CellVars) + len(c.FreeVars)
	for ip, ins := range c.Instructions {
		def, ok := code.Lookup(ins.Op)
		if !ok {
			return fail("instruction %d: unknown opcode %d", ip, ins.Op)
		}
		if ins.Arg < 0 {
			return fail("instruction %d (%s): negative operand %d", ip, def.Name, ins.Arg)
		}
		if t, ok := ins.JumpTarget(ip); ok && t >= len(c.Instructions) {
			return fail("instruction %d (%s): jump target %d past the end", ip, def.Name, t)
		}

		var table string
		var size int
		switch ins.Op {
		case code.OpLoadConst:
			table, size = "constant", len(c.Consts)
		case code.OpLoadName, code.OpStoreName, code.OpDeleteName,
			code.OpLoadGlobal, code.OpStoreGlobal, code.OpDeleteGlobal,
			code.OpLoadAttr, code.OpStoreAttr, code.OpDeleteAttr, code.OpLoadMethod:
			table, size = "name", len(c.Names)
		case code.OpLoadFast, code.OpStoreFast, code.OpDeleteFast:
			table, size = "local", len(c.VarNames)
		case code.OpLoadDeref, code.OpStoreDeref, code.OpDeleteDeref,
			code.OpLoadClosure, code.OpLoadClassDeref:
			table, size = "cell", derefs
		case code.OpCompareOp:
			table, size = "comparison", len(code.CompareOps)
		case code.OpRaiseVarargs:
			table, size = "raise form", 3
		default:
			continue
		}
		if ins.Arg >= size {
			return fail("instruction %d (%s): %s index %d out of range (%d entries)", ip, def.Name, table, ins.Arg, size)
		}
	}

	for i, k := range c.Consts {
		if nested, ok := k.(*object.Code); ok {
			if err := validate(nested, path+"."+nested.Name); err != nil {
				return err
			}
			continue
		}
		if err := validateConst(k); err != nil {
			return fail("constant %d: %v", i, err)
		}
	}
	return nil
}

func validateConst(k object.Object) error {
	switch k := k.(type) {
	case *object.NoneType, *object.Bool, *object.Int, *object.Float, *object.Str:
		return nil
	case *object.Tuple:
		for _, e := range k.Elements {
			if _, nested := e.(*object.Code); nested {
				return errors.New("code object inside a tuple")
			}
			if err := validateConst(e); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return errors.New("missing value")
	default:
		return errors.Errorf("%s cannot be a constant", k.Type())
	}
}
