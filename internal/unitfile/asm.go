package unitfile

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"pyvm/internal/code"
	"pyvm/internal/object"
)

// asmUnit is the YAML assembly form of a unit. Instructions are written
// the way dis prints them:
//
//	code:
//	  - LOAD_NAME print
//	  - LOAD_CONST 0
//	  - CALL_FUNCTION 1
//	  - loop:
//	  - JUMP_ABSOLUTE @loop
//
// Jump operands name a label, name-table operands may name the entry
// directly, and COMPARE_OP takes the operator.
type asmUnit struct {
	Name      string      `yaml:"name,omitempty"`
	QualName  string      `yaml:"qualname,omitempty"`
	Filename  string      `yaml:"filename,omitempty"`
	FirstLine int         `yaml:"firstline,omitempty"`
	ArgCount  int         `yaml:"argcount,omitempty"`
	PosOnly   int         `yaml:"posonlyargcount,omitempty"`
	KwOnly    int         `yaml:"kwonlyargcount,omitempty"`
	Flags     []string    `yaml:"flags,flow,omitempty"`
	Names     []string    `yaml:"names,flow,omitempty"`
	VarNames  []string    `yaml:"varnames,flow,omitempty"`
	CellVars  []string    `yaml:"cellvars,flow,omitempty"`
	FreeVars  []string    `yaml:"freevars,flow,omitempty"`
	Consts    []yaml.Node `yaml:"consts,omitempty"`
	Code      []yaml.Node `yaml:"code"`
	Lines     []int       `yaml:"lines,flow,omitempty"`
}

var flagNames = []struct {
	name string
	flag object.CodeFlags
}{
	{"varargs", object.CO_VARARGS},
	{"varkeywords", object.CO_VARKEYWORDS},
	{"nested", object.CO_NESTED},
	{"generator", object.CO_GENERATOR},
}

// ParseAssembly decodes and validates a unit written in the YAML assembly
// form.
func ParseAssembly(data []byte) (*object.Code, error) {
	var u asmUnit
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&u); err != nil {
		return nil, errors.Wrap(err, "unitfile: parse")
	}
	c, err := u.assemble()
	if err != nil {
		return nil, err
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	log.Debugf("assembled %s: %d instructions", c.QualName, len(c.Instructions))
	return c, nil
}

func (u *asmUnit) assemble() (*object.Code, error) {
	c := &object.Code{
		Name:            u.Name,
		QualName:        u.QualName,
		Filename:        u.Filename,
		FirstLine:       u.FirstLine,
		ArgCount:        u.ArgCount,
		PosOnlyArgCount: u.PosOnly,
		KwOnlyArgCount:  u.KwOnly,
		Names:           u.Names,
		VarNames:        u.VarNames,
		CellVars:        u.CellVars,
		FreeVars:        u.FreeVars,
		Lines:           u.Lines,
	}
	fillDefaults(c)

	for _, name := range u.Flags {
		found := false
		for _, f := range flagNames {
			if f.name == name {
				c.Flags |= f.flag
				found = true
			}
		}
		if !found {
			return nil, errors.Errorf("unitfile: %s: unknown flag %q", c.Name, name)
		}
	}

	for i := range u.Consts {
		k, err := constFromNode(&u.Consts[i])
		if err != nil {
			return nil, errors.Wrapf(err, "unitfile: %s: constant %d", c.Name, i)
		}
		c.Consts = append(c.Consts, k)
	}

	asm := code.NewAssembler()
	for i := range u.Code {
		if err := u.emit(c, asm, &u.Code[i]); err != nil {
			return nil, errors.Wrapf(err, "unitfile: %s: line %d", c.Name, u.Code[i].Line)
		}
	}
	ins, err := asm.Instructions()
	if err != nil {
		return nil, errors.Wrapf(err, "unitfile: %s", c.Name)
	}
	c.Instructions = ins
	return c, nil
}

// emit assembles one entry of the code list. An entry is an instruction
// string, a quoted "label:" string, or a bare "label:" which YAML reads as
// a single-key mapping.
func (u *asmUnit) emit(c *object.Code, asm *code.Assembler, n *yaml.Node) error {
	switch {
	case n.Kind == yaml.MappingNode && len(n.Content) == 2 && n.Content[1].Tag == "!!null":
		return asm.Mark(n.Content[0].Value)
	case n.Kind != yaml.ScalarNode:
		return errors.New("expected an instruction or a label")
	}

	text := strings.TrimSpace(n.Value)
	if strings.HasSuffix(text, ":") && !strings.ContainsAny(text, " \t") {
		return asm.Mark(strings.TrimSuffix(text, ":"))
	}

	mnemonic, operand, _ := strings.Cut(text, " ")
	operand = strings.TrimSpace(operand)
	op, ok := code.LookupName(mnemonic)
	if !ok {
		return errors.Errorf("unknown opcode %q", mnemonic)
	}
	if !op.HasArg() {
		if operand != "" {
			return errors.Errorf("%s takes no operand", mnemonic)
		}
		asm.Emit(op)
		return nil
	}
	if operand == "" {
		return errors.Errorf("%s needs an operand", mnemonic)
	}

	if label, ok := strings.CutPrefix(operand, "@"); ok {
		if def, _ := code.Lookup(op); def.Jump == code.JumpNone {
			return errors.Errorf("%s does not take a label", mnemonic)
		}
		asm.EmitJump(op, label)
		return nil
	}
	if arg, err := strconv.Atoi(operand); err == nil {
		asm.Emit(op, arg)
		return nil
	}

	arg, err := symbolicOperand(c, op, operand)
	if err != nil {
		return err
	}
	asm.Emit(op, arg)
	return nil
}

// symbolicOperand resolves a named operand, adding names to the unit's
// tables on first use.
func symbolicOperand(c *object.Code, op code.Opcode, operand string) (int, error) {
	intern := func(tab *[]string) int {
		for i, s := range *tab {
			if s == operand {
				return i
			}
		}
		*tab = append(*tab, operand)
		return len(*tab) - 1
	}
	switch op {
	case code.OpLoadName, code.OpStoreName, code.OpDeleteName,
		code.OpLoadGlobal, code.OpStoreGlobal, code.OpDeleteGlobal,
		code.OpLoadAttr, code.OpStoreAttr, code.OpDeleteAttr, code.OpLoadMethod:
		return intern(&c.Names), nil
	case code.OpLoadFast, code.OpStoreFast, code.OpDeleteFast:
		return intern(&c.VarNames), nil
	case code.OpLoadDeref, code.OpStoreDeref, code.OpDeleteDeref,
		code.OpLoadClosure, code.OpLoadClassDeref:
		for i, s := range c.CellVars {
			if s == operand {
				return i, nil
			}
		}
		for i, s := range c.FreeVars {
			if s == operand {
				return len(c.CellVars) + i, nil
			}
		}
		return 0, errors.Errorf("%q is neither a cell nor a free variable", operand)
	case code.OpCompareOp:
		for i, s := range code.CompareOps {
			if s == operand {
				return i, nil
			}
		}
		return 0, errors.Errorf("unknown comparison %q", operand)
	case code.OpIsOp, code.OpContainsOp:
		switch operand {
		case "is", "in":
			return 0, nil
		case "not", "is not", "not in":
			return 1, nil
		}
	}
	return 0, errors.Errorf("%s cannot take operand %q", op, operand)
}

func constFromNode(n *yaml.Node) (object.Object, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return object.None, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, err
			}
			return object.NativeBool(b), nil
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				return nil, errors.Errorf("integer %s out of range", n.Value)
			}
			return &object.Int{Value: i}, nil
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return nil, err
			}
			return &object.Float{Value: f}, nil
		case "!!str":
			return &object.Str{Value: n.Value}, nil
		}
		return nil, errors.Errorf("unsupported constant tag %s", n.Tag)
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, errors.New("constant mapping must have exactly one key, tuple or code")
		}
		key, body := n.Content[0].Value, n.Content[1]
		switch key {
		case "tuple":
			if body.Kind != yaml.SequenceNode {
				return nil, errors.New("tuple constant must be a list")
			}
			t := &object.Tuple{Elements: make([]object.Object, len(body.Content))}
			for i, item := range body.Content {
				e, err := constFromNode(item)
				if err != nil {
					return nil, err
				}
				t.Elements[i] = e
			}
			return t, nil
		case "code":
			var nested asmUnit
			if err := body.Decode(&nested); err != nil {
				return nil, err
			}
			return nested.assemble()
		}
		return nil, errors.Errorf("unknown constant kind %q", key)
	}
	return nil, errors.New("constant must be a scalar or a tuple/code mapping")
}

// FormatAssembly renders c in the YAML assembly form. Jump targets get
// generated labels; every other operand stays numeric.
func FormatAssembly(c *object.Code) ([]byte, error) {
	u, err := disassemble(c)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(u); err != nil {
		return nil, errors.Wrap(err, "unitfile: format")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "unitfile: format")
	}
	return buf.Bytes(), nil
}

func disassemble(c *object.Code) (*asmUnit, error) {
	u := &asmUnit{
		Name:      c.Name,
		QualName:  c.QualName,
		Filename:  c.Filename,
		FirstLine: c.FirstLine,
		ArgCount:  c.ArgCount,
		PosOnly:   c.PosOnlyArgCount,
		KwOnly:    c.KwOnlyArgCount,
		Names:     c.Names,
		VarNames:  c.VarNames,
		CellVars:  c.CellVars,
		FreeVars:  c.FreeVars,
		Lines:     c.Lines,
	}
	if u.QualName == u.Name {
		u.QualName = ""
	}
	for _, f := range flagNames {
		if c.Flags&f.flag != 0 {
			u.Flags = append(u.Flags, f.name)
		}
	}
	for i, k := range c.Consts {
		n, err := constToNode(k)
		if err != nil {
			return nil, errors.Wrapf(err, "unitfile: %s: constant %d", c.Name, i)
		}
		u.Consts = append(u.Consts, *n)
	}

	targets := map[int]bool{}
	for ip, ins := range c.Instructions {
		if t, ok := ins.JumpTarget(ip); ok {
			targets[t] = true
		}
	}
	label := func(ip int) string { return fmt.Sprintf("L%d", ip) }
	for ip, ins := range c.Instructions {
		if targets[ip] {
			u.Code = append(u.Code, *strNode(label(ip) + ":"))
		}
		text := ins.Op.String()
		if t, ok := ins.JumpTarget(ip); ok {
			text += " @" + label(t)
		} else if ins.Op.HasArg() {
			text += " " + strconv.Itoa(ins.Arg)
		}
		u.Code = append(u.Code, *strNode(text))
	}
	return u, nil
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func constToNode(k object.Object) (*yaml.Node, error) {
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}
	switch k := k.(type) {
	case *object.NoneType:
		return scalar("!!null", "null"), nil
	case *object.Bool:
		return scalar("!!bool", strconv.FormatBool(k.Value)), nil
	case *object.Int:
		return scalar("!!int", strconv.FormatInt(k.Value, 10)), nil
	case *object.Float:
		switch {
		case math.IsInf(k.Value, 1):
			return scalar("!!float", ".inf"), nil
		case math.IsInf(k.Value, -1):
			return scalar("!!float", "-.inf"), nil
		case math.IsNaN(k.Value):
			return scalar("!!float", ".nan"), nil
		}
		return scalar("!!float", object.FormatFloat(k.Value)), nil
	case *object.Str:
		return strNode(k.Value), nil
	case *object.Tuple:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, e := range k.Elements {
			n, err := constToNode(e)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{strNode("tuple"), seq}}, nil
	case *object.Code:
		nested, err := disassemble(k)
		if err != nil {
			return nil, err
		}
		var body yaml.Node
		if err := body.Encode(nested); err != nil {
			return nil, err
		}
		return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{strNode("code"), &body}}, nil
	}
	return nil, errors.Errorf("%s cannot be persisted", object.Repr(k))
}
