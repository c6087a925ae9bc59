package diag

import (
	"fmt"
	"strings"
	"testing"

	"pyvm/internal/object"
)

func raised(class *object.ExceptionType, msg string, frames ...string) *object.Exception {
	exc := object.NewException(class, "%s", msg)
	// frames are given outermost first; tracebacks are stored innermost first
	for i := len(frames) - 1; i >= 0; i-- {
		exc.AddTraceback(object.TracebackEntry{Name: frames[i], Filename: "prog.py", Line: i + 1})
	}
	return exc
}

func TestTraceback(t *testing.T) {
	exc := raised(object.ZeroDivisionError, "division by zero", "<module>", "f")
	want := `Traceback (most recent call last):
  File "prog.py", line 1, in <module>
  File "prog.py", line 2, in f
ZeroDivisionError: division by zero
`
	if got := Traceback(exc, false); got != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestTracebackWithoutMessageOrFrames(t *testing.T) {
	exc := &object.Exception{Class: object.StopIteration}
	if got := Traceback(exc, false); got != "StopIteration\n" {
		t.Fatalf("expected bare class name, got %q", got)
	}
}

func TestTracebackChains(t *testing.T) {
	inner := raised(object.KeyError, "k", "<module>")
	outer := raised(object.ValueError, "bad", "<module>")
	outer.Context = inner

	got := Traceback(outer, false)
	if !strings.Contains(got, contextSeparator) {
		t.Fatalf("expected context separator, got:\n%s", got)
	}
	if strings.Index(got, "KeyError") > strings.Index(got, "ValueError") {
		t.Fatalf("expected the context to print first, got:\n%s", got)
	}

	outer.Cause = raised(object.TypeError, "why", "<module>")
	outer.SuppressContext = true
	got = Traceback(outer, false)
	if !strings.Contains(got, causeSeparator) || strings.Contains(got, "KeyError") {
		t.Fatalf("expected only the cause to print, got:\n%s", got)
	}

	outer.Cause = nil
	got = Traceback(outer, false)
	if strings.Contains(got, "TypeError") || strings.Contains(got, "KeyError") {
		t.Fatalf("expected a suppressed context to stay hidden, got:\n%s", got)
	}
}

func TestTracebackStopsOnCycles(t *testing.T) {
	a := raised(object.ValueError, "a")
	b := raised(object.ValueError, "b")
	a.Context, b.Context = b, a
	got := Traceback(a, false)
	if strings.Count(got, "ValueError") != 2 {
		t.Fatalf("expected each exception once, got:\n%s", got)
	}
}

func TestReportColors(t *testing.T) {
	exc := raised(object.NameError, "name 'x' is not defined", "<module>")
	if got := Report(exc, true); !strings.Contains(got, "\x1b[") {
		t.Fatalf("expected escape codes, got %q", got)
	}
	if got := Report(exc, false); strings.Contains(got, "\x1b[") {
		t.Fatalf("expected plain text, got %q", got)
	}

	got := Report(fmt.Errorf("load: %w", fmt.Errorf("truncated")), false)
	if got != "error: load: truncated\n" {
		t.Fatalf("expected one-line report, got %q", got)
	}
	wrapped := fmt.Errorf("run: %w", exc)
	if got := Report(wrapped, false); !strings.HasPrefix(got, "Traceback") {
		t.Fatalf("expected wrapped exception to render as a traceback, got %q", got)
	}
}
