package spectest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestMatchStdoutExactNormalize(t *testing.T) {
	exp := StdoutExpectation{Mode: StdoutExact, Value: "a\nb\n"}
	ok, reason, err := MatchStdout("a\r\nb\r\n", exp, "")
	if err != nil {
		t.Fatalf("MatchStdout error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match, got mismatch: %s", reason)
	}
}

func TestMatchStdoutContains(t *testing.T) {
	exp := StdoutExpectation{Mode: StdoutContains, Value: "world\n"}
	if ok, reason, _ := MatchStdout("hello\nworld\n", exp, ""); !ok {
		t.Fatalf("expected match, got mismatch: %s", reason)
	}
	if ok, _, _ := MatchStdout("hello\n", exp, ""); ok {
		t.Fatalf("expected mismatch")
	}
}

func TestMatchStdoutFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "golden.txt"), []byte("golden\n42\n"), 0o644); err != nil {
		t.Fatalf("failed to write golden: %v", err)
	}

	exp := StdoutExpectation{Mode: StdoutFile, Value: "golden.txt"}
	ok, reason, err := MatchStdout("golden\n42\n", exp, dir)
	if err != nil {
		t.Fatalf("MatchStdout error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match, got mismatch: %s", reason)
	}
}

func TestCaptureOutput(t *testing.T) {
	stdout, stderr, err := CaptureOutput(func() {
		fmt.Fprint(os.Stdout, "out")
		fmt.Fprint(os.Stderr, "err")
	})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if stdout != "out" || stderr != "err" {
		t.Fatalf("expected out/err, got %q/%q", stdout, stderr)
	}
}
