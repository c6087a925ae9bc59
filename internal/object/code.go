package object

import (
	"bytes"
	"fmt"

	"pyvm/internal/code"
)

type CodeFlags int

const (
	CO_VARARGS     CodeFlags = 0x04
	CO_VARKEYWORDS CodeFlags = 0x08
	CO_NESTED      CodeFlags = 0x10
	CO_GENERATOR   CodeFlags = 0x20
)

// Code is a compiled unit. It is never mutated once built and is shared by
// every Function made from it.
type Code struct {
	Name      string
	QualName  string
	Filename  string
	FirstLine int

	Instructions code.Instructions
	Lines        []int

	Consts   []Object
	Names    []string
	VarNames []string
	CellVars []string
	FreeVars []string

	ArgCount        int
	PosOnlyArgCount int
	KwOnlyArgCount  int
	Flags           CodeFlags
}

func (*Code) Type() Type { return CODE_OBJ }
func (c *Code) Inspect() string {
	return fmt.Sprintf("<code object %s at %p, file %q, line %d>", c.Name, c, c.Filename, c.FirstLine)
}

func (c *Code) IsGenerator() bool { return c.Flags&CO_GENERATOR != 0 }

// TotalArgs counts every named parameter slot, *args and **kwargs included.
func (c *Code) TotalArgs() int {
	n := c.ArgCount + c.KwOnlyArgCount
	if c.Flags&CO_VARARGS != 0 {
		n++
	}
	if c.Flags&CO_VARKEYWORDS != 0 {
		n++
	}
	return n
}

// DerefName resolves a LOAD_DEREF-family operand: cell variables first,
// then free variables.
func (c *Code) DerefName(i int) string {
	if i < len(c.CellVars) {
		return c.CellVars[i]
	}
	if j := i - len(c.CellVars); j >= 0 && j < len(c.FreeVars) {
		return c.FreeVars[j]
	}
	return fmt.Sprintf("<deref %d>", i)
}

// Line returns the source line for the instruction at ip, or FirstLine when
// the unit carries no line table.
func (c *Code) Line(ip int) int {
	if ip >= 0 && ip < len(c.Lines) {
		return c.Lines[ip]
	}
	return c.FirstLine
}

// Disassemble lists the unit and, after it, every nested unit in its
// constant pool.
func (c *Code) Disassemble() string {
	var out bytes.Buffer
	c.disassemble(&out)
	return out.String()
}

func (c *Code) disassemble(out *bytes.Buffer) {
	fmt.Fprintf(out, "Disassembly of %s:\n", c.Inspect())
	out.WriteString(c.Instructions.Format(c.describe))
	for _, k := range c.Consts {
		if nested, ok := k.(*Code); ok {
			out.WriteByte('\n')
			nested.disassemble(out)
		}
	}
}

func (c *Code) describe(_ int, ins code.Instruction) string {
	name := func(tab []string) string {
		if ins.Arg >= 0 && ins.Arg < len(tab) {
			return tab[ins.Arg]
		}
		return "?"
	}
	switch ins.Op {
	case code.OpLoadConst:
		if ins.Arg >= 0 && ins.Arg < len(c.Consts) {
			return Repr(c.Consts[ins.Arg])
		}
		return "?"
	case code.OpLoadName, code.OpStoreName, code.OpDeleteName,
		code.OpLoadGlobal, code.OpStoreGlobal, code.OpDeleteGlobal,
		code.OpLoadAttr, code.OpStoreAttr, code.OpDeleteAttr, code.OpLoadMethod:
		return name(c.Names)
	case code.OpLoadFast, code.OpStoreFast, code.OpDeleteFast:
		return name(c.VarNames)
	case code.OpLoadDeref, code.OpStoreDeref, code.OpDeleteDeref,
		code.OpLoadClosure, code.OpLoadClassDeref:
		return c.DerefName(ins.Arg)
	case code.OpCompareOp:
		if ins.Arg >= 0 && ins.Arg < len(code.CompareOps) {
			return code.CompareOps[ins.Arg]
		}
	case code.OpIsOp:
		if ins.Arg == 1 {
			return "is not"
		}
		return "is"
	case code.OpContainsOp:
		if ins.Arg == 1 {
			return "not in"
		}
		return "in"
	}
	return ""
}
