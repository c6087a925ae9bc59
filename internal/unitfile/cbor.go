package unitfile

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"pyvm/internal/code"
	"pyvm/internal/object"
)

const (
	magic   = "pyvmc"
	version = 1
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("unitfile: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

type wireFile struct {
	Magic   string    `cbor:"1,keyasint"`
	Version int       `cbor:"2,keyasint"`
	Unit    *wireUnit `cbor:"3,keyasint"`
}

type wireUnit struct {
	Name      string      `cbor:"1,keyasint"`
	QualName  string      `cbor:"2,keyasint,omitempty"`
	Filename  string      `cbor:"3,keyasint,omitempty"`
	FirstLine int         `cbor:"4,keyasint,omitempty"`
	ArgCount  int         `cbor:"5,keyasint,omitempty"`
	PosOnly   int         `cbor:"6,keyasint,omitempty"`
	KwOnly    int         `cbor:"7,keyasint,omitempty"`
	Flags     int         `cbor:"8,keyasint,omitempty"`
	Consts    []wireConst `cbor:"9,keyasint,omitempty"`
	Names     []string    `cbor:"10,keyasint,omitempty"`
	VarNames  []string    `cbor:"11,keyasint,omitempty"`
	CellVars  []string    `cbor:"12,keyasint,omitempty"`
	FreeVars  []string    `cbor:"13,keyasint,omitempty"`
	Code      []wireIns   `cbor:"14,keyasint"`
	Lines     []int       `cbor:"15,keyasint,omitempty"`
}

type wireIns struct {
	_   struct{} `cbor:",toarray"`
	Op  uint8
	Arg int
}

type constKind uint8

const (
	constNone constKind = iota
	constBool
	constInt
	constFloat
	constStr
	constTuple
	constCode
)

type wireConst struct {
	Kind  constKind   `cbor:"1,keyasint"`
	Bool  bool        `cbor:"2,keyasint,omitempty"`
	Int   int64       `cbor:"3,keyasint,omitempty"`
	Float float64     `cbor:"4,keyasint"`
	Str   string      `cbor:"5,keyasint,omitempty"`
	Items []wireConst `cbor:"6,keyasint,omitempty"`
	Code  *wireUnit   `cbor:"7,keyasint,omitempty"`
}

// Marshal encodes c in the binary .pyvmc form. Equal units always encode
// to equal bytes.
func Marshal(c *object.Code) ([]byte, error) {
	u, err := toWire(c)
	if err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(&wireFile{Magic: magic, Version: version, Unit: u})
	if err != nil {
		return nil, errors.Wrap(err, "unitfile: marshal")
	}
	return data, nil
}

// Unmarshal decodes and validates a .pyvmc unit.
func Unmarshal(data []byte) (*object.Code, error) {
	var f wireFile
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "unitfile: unmarshal")
	}
	if f.Magic != magic {
		return nil, errors.Errorf("unitfile: not a compiled unit (magic %q)", f.Magic)
	}
	if f.Version != version {
		return nil, errors.Errorf("unitfile: unsupported version %d", f.Version)
	}
	if f.Unit == nil {
		return nil, errors.New("unitfile: missing unit")
	}
	c, err := fromWire(f.Unit)
	if err != nil {
		return nil, err
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	log.Debugf("decoded %s: %d instructions", c.QualName, len(c.Instructions))
	return c, nil
}

func toWire(c *object.Code) (*wireUnit, error) {
	u := &wireUnit{
		Name:      c.Name,
		QualName:  c.QualName,
		Filename:  c.Filename,
		FirstLine: c.FirstLine,
		ArgCount:  c.ArgCount,
		PosOnly:   c.PosOnlyArgCount,
		KwOnly:    c.KwOnlyArgCount,
		Flags:     int(c.Flags),
		Names:     c.Names,
		VarNames:  c.VarNames,
		CellVars:  c.CellVars,
		FreeVars:  c.FreeVars,
		Lines:     c.Lines,
		Code:      make([]wireIns, len(c.Instructions)),
	}
	for i, ins := range c.Instructions {
		u.Code[i] = wireIns{Op: uint8(ins.Op), Arg: ins.Arg}
	}
	for i, k := range c.Consts {
		wk, err := constToWire(k)
		if err != nil {
			return nil, errors.Wrapf(err, "unitfile: %s: constant %d", c.Name, i)
		}
		u.Consts = append(u.Consts, wk)
	}
	return u, nil
}

func constToWire(k object.Object) (wireConst, error) {
	switch k := k.(type) {
	case *object.NoneType:
		return wireConst{Kind: constNone}, nil
	case *object.Bool:
		return wireConst{Kind: constBool, Bool: k.Value}, nil
	case *object.Int:
		return wireConst{Kind: constInt, Int: k.Value}, nil
	case *object.Float:
		return wireConst{Kind: constFloat, Float: k.Value}, nil
	case *object.Str:
		return wireConst{Kind: constStr, Str: k.Value}, nil
	case *object.Tuple:
		w := wireConst{Kind: constTuple, Items: make([]wireConst, len(k.Elements))}
		for i, e := range k.Elements {
			item, err := constToWire(e)
			if err != nil {
				return wireConst{}, err
			}
			w.Items[i] = item
		}
		return w, nil
	case *object.Code:
		u, err := toWire(k)
		if err != nil {
			return wireConst{}, err
		}
		return wireConst{Kind: constCode, Code: u}, nil
	default:
		return wireConst{}, errors.Errorf("%s cannot be persisted", object.Repr(k))
	}
}

func fromWire(u *wireUnit) (*object.Code, error) {
	c := &object.Code{
		Name:            u.Name,
		QualName:        u.QualName,
		Filename:        u.Filename,
		FirstLine:       u.FirstLine,
		ArgCount:        u.ArgCount,
		PosOnlyArgCount: u.PosOnly,
		KwOnlyArgCount:  u.KwOnly,
		Flags:           object.CodeFlags(u.Flags),
		Names:           u.Names,
		VarNames:        u.VarNames,
		CellVars:        u.CellVars,
		FreeVars:        u.FreeVars,
		Lines:           u.Lines,
		Instructions:    make(code.Instructions, len(u.Code)),
	}
	fillDefaults(c)
	for i, ins := range u.Code {
		c.Instructions[i] = code.Instruction{Op: code.Opcode(ins.Op), Arg: ins.Arg}
	}
	for i, wk := range u.Consts {
		k, err := constFromWire(wk)
		if err != nil {
			return nil, errors.Wrapf(err, "unitfile: %s: constant %d", c.Name, i)
		}
		c.Consts = append(c.Consts, k)
	}
	return c, nil
}

func constFromWire(w wireConst) (object.Object, error) {
	switch w.Kind {
	case constNone:
		return object.None, nil
	case constBool:
		return object.NativeBool(w.Bool), nil
	case constInt:
		return &object.Int{Value: w.Int}, nil
	case constFloat:
		return &object.Float{Value: w.Float}, nil
	case constStr:
		return &object.Str{Value: w.Str}, nil
	case constTuple:
		t := &object.Tuple{Elements: make([]object.Object, len(w.Items))}
		for i, item := range w.Items {
			e, err := constFromWire(item)
			if err != nil {
				return nil, err
			}
			t.Elements[i] = e
		}
		return t, nil
	case constCode:
		if w.Code == nil {
			return nil, errors.New("code constant without a unit")
		}
		return fromWire(w.Code)
	default:
		return nil, errors.Errorf("unknown constant kind %d", w.Kind)
	}
}

// fillDefaults supplies the names a hand-written unit may leave out.
func fillDefaults(c *object.Code) {
	if c.Name == "" {
		c.Name = "<module>"
	}
	if c.QualName == "" {
		c.QualName = c.Name
	}
	if c.Filename == "" {
		c.Filename = "<unit>"
	}
}
