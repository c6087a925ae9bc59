package runtimeio

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestConsoleInput(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("alice\r\nbob"), &out)

	line, err := c.Input("name? ")
	if err != nil || line != "alice" {
		t.Fatalf("expected alice, got %q (%v)", line, err)
	}
	line, err = c.Input("")
	if err != nil || line != "bob" {
		t.Fatalf("expected unterminated last line, got %q (%v)", line, err)
	}
	if _, err := c.Input(""); !errors.Is(err, ErrInputUnavailable) {
		t.Fatalf("expected ErrInputUnavailable, got %v", err)
	}
	if out.String() != "name? " {
		t.Fatalf("expected prompt written once, got %q", out.String())
	}
}

func TestIsTerminalRejectsBuffers(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Fatal("a buffer is not a terminal")
	}
}
