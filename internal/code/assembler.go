package code

import (
	"fmt"
	"sort"
	"strings"
)

type fixup struct {
	at    int
	label string
}

// Assembler lays out an instruction sequence with symbolic jump labels.
// Relative and absolute jumps are resolved when Instructions is called.
type Assembler struct {
	ins    Instructions
	labels map[string]int
	fixups []fixup
}

func NewAssembler() *Assembler {
	return &Assembler{labels: map[string]int{}}
}

// Emit appends an instruction and returns its index.
func (a *Assembler) Emit(op Opcode, arg ...int) int {
	a.ins = append(a.ins, Make(op, arg...))
	return len(a.ins) - 1
}

// EmitJump appends a jump whose operand is filled in from label.
func (a *Assembler) EmitJump(op Opcode, label string) int {
	pos := a.Emit(op, 0)
	a.fixups = append(a.fixups, fixup{at: pos, label: label})
	return pos
}

// Mark binds label to the next instruction emitted.
func (a *Assembler) Mark(label string) error {
	if _, dup := a.labels[label]; dup {
		return fmt.Errorf("label %q defined twice", label)
	}
	a.labels[label] = len(a.ins)
	return nil
}

func (a *Assembler) Len() int { return len(a.ins) }

func (a *Assembler) Instructions() (Instructions, error) {
	var missing []string
	for _, f := range a.fixups {
		target, ok := a.labels[f.label]
		if !ok {
			missing = append(missing, f.label)
			continue
		}
		def, _ := Lookup(a.ins[f.at].Op)
		switch {
		case def == nil || def.Jump == JumpNone:
			return nil, fmt.Errorf("instruction %d (%s) does not take a jump label", f.at, a.ins[f.at].Op)
		case def.Jump == JumpRelative:
			delta := target - (f.at + 1)
			if delta < 0 {
				return nil, fmt.Errorf("instruction %d (%s) cannot jump backwards to %q", f.at, def.Name, f.label)
			}
			a.ins[f.at].Arg = delta
		default:
			a.ins[f.at].Arg = target
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("undefined labels: %s", strings.Join(missing, ", "))
	}
	out := make(Instructions, len(a.ins))
	copy(out, a.ins)
	return out, nil
}
