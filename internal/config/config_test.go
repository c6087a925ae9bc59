package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pyvm/internal/limits"
)

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse(`
[limits]
max_steps = 5000

[log]
verbosity = 2
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Limits.MaxSteps != 5000 {
		t.Fatalf("expected max_steps 5000, got %d", c.Limits.MaxSteps)
	}
	if c.Limits.MaxDepth != limits.DefaultMaxDepth {
		t.Fatalf("expected default depth to survive, got %d", c.Limits.MaxDepth)
	}
	if c.Log.Verbosity != 2 {
		t.Fatalf("expected verbosity 2, got %d", c.Log.Verbosity)
	}
	if !c.Output.Color {
		t.Fatalf("expected color to default to true")
	}
	if got := c.RunLimits(); got.MaxSteps != 5000 || got.Depth() != limits.DefaultMaxDepth {
		t.Fatalf("expected limits to carry over, got %+v", got)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse("[limits]\nmax_stack = 3\n")
	if err == nil || !strings.Contains(err.Error(), "limits.max_stack") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestParseRejectsNegativeLimits(t *testing.T) {
	_, err := Parse("[limits]\nmax_memory = -1\n")
	if err == nil || !strings.Contains(err.Error(), "max_memory must not be negative") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseSyntaxError(t *testing.T) {
	if _, err := Parse("[limits\n"); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(root, FileName)
	if err := os.WriteFile(path, []byte("[output]\ncolor = false\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	found, err := Find(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != path {
		t.Fatalf("expected %s, got %s", path, found)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Output.Color || c.Path != path {
		t.Fatalf("expected color off from %s, got %+v", path, c)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "config: cannot read") {
		t.Fatalf("expected read error, got %v", err)
	}
}
