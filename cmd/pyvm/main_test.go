package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli"

	"pyvm/internal/spectest"
	"pyvm/internal/unitfile"
)

const countdown = `
name: <module>
filename: countdown.py
consts: [3, 0, 1, null]
code:
  - LOAD_CONST 0
  - STORE_NAME n
  - loop:
  - LOAD_NAME n
  - LOAD_CONST 1
  - COMPARE_OP >
  - POP_JUMP_IF_FALSE @done
  - LOAD_NAME print
  - LOAD_NAME n
  - CALL_FUNCTION 1
  - POP_TOP
  - LOAD_NAME n
  - LOAD_CONST 2
  - INPLACE_SUBTRACT
  - STORE_NAME n
  - JUMP_ABSOLUTE @loop
  - done:
  - LOAD_CONST 3
  - RETURN_VALUE
`

const divide = `
name: <module>
filename: divide.py
consts: [1, 0]
code:
  - LOAD_CONST 0
  - LOAD_CONST 1
  - BINARY_TRUE_DIVIDE
  - RETURN_VALUE
`

func writeUnit(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runPyvm(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var runErr error
	stdout, stderr, err := spectest.CaptureOutput(func() {
		runErr = newApp().Run(append([]string{"pyvm"}, args...))
	})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	return stdout, stderr, runErr
}

func exitCode(err error) int {
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}
	return -1
}

func TestRunPrints(t *testing.T) {
	path := writeUnit(t, t.TempDir(), "countdown.yaml", countdown)
	stdout, stderr, err := runPyvm(t, "run", path)
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", err, stderr)
	}
	if stdout != "3\n2\n1\n" {
		t.Fatalf("expected countdown, got %q", stdout)
	}
}

func TestRunReportsTraceback(t *testing.T) {
	path := writeUnit(t, t.TempDir(), "divide.yaml", divide)
	_, stderr, err := runPyvm(t, "run", "--no-color", path)
	if exitCode(err) != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
	want := "Traceback (most recent call last):\n" +
		"  File \"divide.py\", line 0, in <module>\n" +
		"ZeroDivisionError: division by zero\n"
	if stderr != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, stderr)
	}
}

func TestRunLimitsFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "countdown.yaml", countdown)
	writeUnit(t, dir, "pyvm.toml", "[limits]\nmax_steps = 10\n")

	_, stderr, err := runPyvm(t, "run", path)
	if exitCode(err) != 1 || !strings.Contains(stderr, "max instruction count exceeded (10)") {
		t.Fatalf("expected step limit from pyvm.toml, got %v\n%s", err, stderr)
	}

	stdout, stderr, err := runPyvm(t, "run", "--max-steps", "1000", path)
	if err != nil {
		t.Fatalf("expected the flag to override the file, got %v\n%s", err, stderr)
	}
	if stdout != "3\n2\n1\n" {
		t.Fatalf("expected countdown, got %q", stdout)
	}
}

func TestRunBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "countdown.yaml", countdown)
	cfg := writeUnit(t, dir, "other.toml", "[limits]\nmax_depth = -3\n")

	_, _, err := runPyvm(t, "run", "--config", cfg, path)
	if exitCode(err) != 2 || !strings.Contains(err.Error(), "max_depth must not be negative") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestRunUsage(t *testing.T) {
	_, _, err := runPyvm(t, "run")
	if exitCode(err) != 2 || !strings.Contains(err.Error(), "usage: pyvm run FILE") {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestDis(t *testing.T) {
	path := writeUnit(t, t.TempDir(), "countdown.yaml", countdown)
	stdout, _, err := runPyvm(t, "dis", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Disassembly of <code object <module>", "COMPARE_OP", "(>)", ">>"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in listing:\n%s", want, stdout)
		}
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	src := writeUnit(t, dir, "countdown.yaml", countdown)
	bin := filepath.Join(dir, "countdown.pyvmc")

	if _, stderr, err := runPyvm(t, "convert", src, bin); err != nil {
		t.Fatalf("convert: %v\n%s", err, stderr)
	}
	if _, err := unitfile.Load(bin); err != nil {
		t.Fatalf("expected a loadable unit, got %v", err)
	}
	stdout, _, err := runPyvm(t, "run", bin)
	if err != nil || stdout != "3\n2\n1\n" {
		t.Fatalf("expected countdown from the binary unit, got %q (%v)", stdout, err)
	}
}
