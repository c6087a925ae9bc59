package runtimeio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var ErrInputUnavailable = errors.New("EOF when reading a line")

// Console is the program's standard streams: print writes to Out, input
// reads lines from In.
type Console struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	if in == nil {
		in = strings.NewReader("")
	}
	if out == nil {
		out = io.Discard
	}
	return &Console{In: in, Out: out}
}

// Stdio is a console over the process's stdin and stdout.
func Stdio() *Console { return NewConsole(os.Stdin, os.Stdout) }

func (c *Console) Write(s string) error {
	_, err := io.WriteString(c.Out, s)
	return err
}

// Input writes prompt and reads one line without its terminator. It
// returns ErrInputUnavailable at end of input.
func (c *Console) Input(prompt string) (string, error) {
	if prompt != "" {
		if _, err := fmt.Fprint(c.Out, prompt); err != nil {
			return "", err
		}
	}
	if c.reader == nil {
		c.reader = bufio.NewReader(c.In)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrInputUnavailable
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// IsTerminal reports whether the stream is attached to a terminal.
func IsTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func IsInteractive() bool {
	return IsTerminal(os.Stdin)
}
