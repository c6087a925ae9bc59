// Package spectest runs conformance cases: YAML files that carry a unit in
// assembly form together with the output, result or exception it must
// produce.
package spectest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"pyvm/internal/limits"
	"pyvm/internal/object"
	"pyvm/internal/runtimeio"
	"pyvm/internal/unitfile"
	"pyvm/internal/vm"
)

// Mode selects how a case's unit reaches the interpreter.
type Mode string

const (
	// ModeAssembly runs the unit as assembled from the case file.
	ModeAssembly Mode = "asm"
	// ModeBinary runs the unit after a trip through the .pyvmc encoding.
	ModeBinary Mode = "cbor"
)

var Modes = []Mode{ModeAssembly, ModeBinary}

type Case struct {
	Name        string      `yaml:"-"`
	Path        string      `yaml:"-"`
	Description string      `yaml:"description"`
	Stdin       string      `yaml:"stdin"`
	Limits      CaseLimits  `yaml:"limits"`
	Expect      Expectation `yaml:"expect"`
	Unit        yaml.Node   `yaml:"unit"`
}

type CaseLimits struct {
	MaxDepth  int   `yaml:"max_depth"`
	MaxSteps  int64 `yaml:"max_steps"`
	MaxMemory int64 `yaml:"max_memory"`
}

// Expectation describes the outcome of a run. Empty fields are not
// checked, except that a run with no Error or Fault expected must succeed.
type Expectation struct {
	Stdout         *string  `yaml:"stdout"`
	StdoutContains string   `yaml:"stdout_contains"`
	StdoutFile     string   `yaml:"stdout_file"`
	Result         string   `yaml:"result"`
	Error          string   `yaml:"error"`
	ErrContains    string   `yaml:"error_contains"`
	Traceback      []string `yaml:"traceback"`
	Fault          bool     `yaml:"fault"`
}

type Result struct {
	Stdout string
	Value  object.Object
	Exc    *object.Exception
	Err    error
}

// LoadCases reads every .yaml case in dir, sorted by file name.
func LoadCases(dir string) ([]*Case, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	cases := make([]*Case, 0, len(paths))
	for _, path := range paths {
		c, err := LoadCase(path)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("spectest: read %s: %w", path, err)
	}
	var c Case
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("spectest: parse %s: %w", path, err)
	}
	if c.Unit.Kind == 0 {
		return nil, fmt.Errorf("spectest: %s has no unit", path)
	}
	c.Path = path
	c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &c, nil
}

// Compile assembles the case's unit, routing it through the binary
// encoding for ModeBinary.
func (c *Case) Compile(mode Mode) (*object.Code, error) {
	src, err := yaml.Marshal(&c.Unit)
	if err != nil {
		return nil, fmt.Errorf("spectest: %s: %w", c.Name, err)
	}
	unit, err := unitfile.ParseAssembly(src)
	if err != nil {
		return nil, err
	}
	switch mode {
	case ModeAssembly:
		return unit, nil
	case ModeBinary:
		data, err := unitfile.Marshal(unit)
		if err != nil {
			return nil, err
		}
		return unitfile.Unmarshal(data)
	}
	return nil, fmt.Errorf("spectest: unknown mode %q", mode)
}

func Run(t *testing.T, c *Case, mode Mode) Result {
	t.Helper()

	unit, err := c.Compile(mode)
	if err != nil {
		t.Fatalf("compile %s: %v", c.Name, err)
	}

	var out bytes.Buffer
	m := vm.NewWithLimits(limits.Limits{
		MaxDepth:  c.Limits.MaxDepth,
		MaxSteps:  c.Limits.MaxSteps,
		MaxMemory: c.Limits.MaxMemory,
	})
	m.SetConsole(runtimeio.NewConsole(strings.NewReader(c.Stdin), &out))

	res := Result{}
	res.Value, res.Err = m.Run(unit, nil)
	res.Stdout = out.String()
	errors.As(res.Err, &res.Exc)
	return res
}

func Assert(t *testing.T, c *Case, res Result) {
	t.Helper()
	exp := c.Expect

	for _, want := range exp.stdout() {
		ok, reason, err := MatchStdout(res.Stdout, want, filepath.Dir(c.Path))
		if err != nil {
			t.Fatalf("stdout check failed: %v", err)
		}
		if !ok {
			t.Fatal(reason)
		}
	}

	switch {
	case exp.Fault:
		var fault *vm.FaultError
		if !errors.As(res.Err, &fault) {
			t.Fatalf("expected a fault, got %v", res.Err)
		}
	case exp.Error != "":
		if res.Exc == nil {
			t.Fatalf("expected %s, got result %v and error %v", exp.Error, res.Value, res.Err)
		}
		if res.Exc.Class.Name != exp.Error {
			t.Fatalf("expected %s, got %s", exp.Error, res.Exc.Error())
		}
	case res.Err != nil:
		t.Fatalf("unexpected error: %v", res.Err)
	}

	if exp.ErrContains != "" && (res.Err == nil || !strings.Contains(res.Err.Error(), exp.ErrContains)) {
		t.Fatalf("expected error containing %q, got %v", exp.ErrContains, res.Err)
	}
	if exp.Result != "" {
		if res.Value == nil {
			t.Fatalf("expected result %s, got none", exp.Result)
		}
		if got := object.Repr(res.Value); got != exp.Result {
			t.Fatalf("expected result %s, got %s", exp.Result, got)
		}
	}
	if exp.Traceback != nil {
		if res.Exc == nil {
			t.Fatalf("expected a traceback, got error %v", res.Err)
		}
		if got := frameNames(res.Exc); strings.Join(got, " > ") != strings.Join(exp.Traceback, " > ") {
			t.Fatalf("expected traceback %v, got %v", exp.Traceback, got)
		}
	}
}

func (e Expectation) stdout() []StdoutExpectation {
	var out []StdoutExpectation
	if e.Stdout != nil {
		out = append(out, StdoutExpectation{Mode: StdoutExact, Value: *e.Stdout})
	}
	if e.StdoutContains != "" {
		out = append(out, StdoutExpectation{Mode: StdoutContains, Value: e.StdoutContains})
	}
	if e.StdoutFile != "" {
		out = append(out, StdoutExpectation{Mode: StdoutFile, Value: e.StdoutFile})
	}
	return out
}

// frameNames lists the traceback outermost first, as it prints.
func frameNames(exc *object.Exception) []string {
	names := make([]string, len(exc.Traceback))
	for i, e := range exc.Traceback {
		names[len(names)-1-i] = e.Name
	}
	return names
}

// RunDir runs every case under dir in each mode.
func RunDir(t *testing.T, dir string) {
	t.Helper()
	cases, err := LoadCases(dir)
	if err != nil {
		t.Fatalf("load cases: %v", err)
	}
	if len(cases) == 0 {
		t.Fatalf("no cases in %s", dir)
	}
	for _, c := range cases {
		for _, mode := range Modes {
			t.Run(c.Name+"/"+string(mode), func(t *testing.T) {
				Assert(t, c, Run(t, c, mode))
			})
		}
	}
}
