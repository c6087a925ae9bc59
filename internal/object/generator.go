package object

import "fmt"

type GenState int

const (
	GenCreated GenState = iota
	GenSuspended
	GenExhausted
)

func (s GenState) String() string {
	switch s {
	case GenCreated:
		return "CREATED"
	case GenSuspended:
		return "SUSPENDED"
	case GenExhausted:
		return "EXHAUSTED"
	}
	return fmt.Sprintf("GenState(%d)", int(s))
}

// Driver resumes generator frames. The interpreter implements it; the
// generator only tracks lifecycle and forwards to it.
type Driver interface {
	Send(g *Generator, v Object) (Object, error)
	Throw(g *Generator, exc *Exception) (Object, error)
	Close(g *Generator) error
}

type Generator struct {
	Name     string
	QualName string
	State    GenState
	Running  bool

	// Frame is the retained activation record, owned by the Driver.
	Frame  any
	Driver Driver
}

func (*Generator) Type() Type { return GENERATOR_OBJ }
func (g *Generator) Inspect() string {
	return fmt.Sprintf("<generator object %s at %p>", g.QualName, g)
}

// Next advances the generator as next() does.
func (g *Generator) Next() (Object, error) { return g.Driver.Send(g, None) }

func (g *Generator) Send(v Object) (Object, error) { return g.Driver.Send(g, v) }

func (g *Generator) Throw(exc *Exception) (Object, error) { return g.Driver.Throw(g, exc) }

func (g *Generator) Close() error { return g.Driver.Close(g) }
