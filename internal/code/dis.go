package code

import (
	"bytes"
	"fmt"
)

// Operands renders an operand for display; it is consulted by String for
// every instruction that carries one.
type Operands func(ip int, ins Instruction) string

func (ins Instructions) String() string {
	return ins.Format(nil)
}

// Format disassembles the sequence one instruction per line, marking jump
// targets with ">>" the way CPython's dis module does.
func (ins Instructions) Format(describe Operands) string {
	var out bytes.Buffer

	targets := map[int]bool{}
	for i, in := range ins {
		if t, ok := in.JumpTarget(i); ok {
			targets[t] = true
		}
	}

	for i, in := range ins {
		marker := "  "
		if targets[i] {
			marker = ">>"
		}
		def, ok := Lookup(in.Op)
		if !ok {
			fmt.Fprintf(&out, "%s %4d UNKNOWN_OPCODE %d\n", marker, i, in.Op)
			continue
		}
		if !in.Op.HasArg() {
			fmt.Fprintf(&out, "%s %4d %s\n", marker, i, def.Name)
			continue
		}
		fmt.Fprintf(&out, "%s %4d %-24s %d", marker, i, def.Name, in.Arg)
		if t, ok := in.JumpTarget(i); ok && def.Jump == JumpRelative {
			fmt.Fprintf(&out, " (to %d)", t)
		} else if describe != nil {
			if s := describe(i, in); s != "" {
				fmt.Fprintf(&out, " (%s)", s)
			}
		}
		out.WriteByte('\n')
	}

	return out.String()
}
