package spectest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// StdoutMode says how a case's expected output is compared.
type StdoutMode int

const (
	StdoutNone StdoutMode = iota
	StdoutExact
	StdoutContains
	// StdoutFile compares against a golden file next to the case.
	StdoutFile
)

type StdoutExpectation struct {
	Mode  StdoutMode
	Value string
}

var captureMu sync.Mutex

// CaptureOutput runs fn with os.Stdout and os.Stderr redirected and returns
// what was written to each. Used for code that prints through the process
// streams instead of a runtimeio.Console.
func CaptureOutput(fn func()) (stdout, stderr string, err error) {
	captureMu.Lock()
	defer captureMu.Unlock()

	outR, outW, err := os.Pipe()
	if err != nil {
		return "", "", err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return "", "", err
	}

	drain := func(r *os.File) <-chan string {
		ch := make(chan string, 1)
		go func() {
			var buf bytes.Buffer
			_, _ = io.Copy(&buf, r)
			ch <- buf.String()
		}()
		return ch
	}
	outCh, errCh := drain(outR), drain(errR)

	oldOut, oldErr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = outW, errW
	defer func() {
		os.Stdout, os.Stderr = oldOut, oldErr
	}()

	fn()

	_ = outW.Close()
	_ = errW.Close()
	stdout, stderr = <-outCh, <-errCh
	_ = outR.Close()
	_ = errR.Close()
	return stdout, stderr, nil
}

func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// want resolves the text an expectation compares against. A StdoutFile
// path is resolved against baseDir.
func (e StdoutExpectation) want(baseDir string) (string, error) {
	if e.Mode != StdoutFile {
		return NormalizeNewlines(e.Value), nil
	}
	if e.Value == "" {
		return "", errors.New("spectest: stdout file path is empty")
	}
	path := e.Value
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return NormalizeNewlines(string(b)), nil
}

// MatchStdout compares captured output with an expectation and returns a
// description of the difference when they do not agree.
func MatchStdout(got string, exp StdoutExpectation, baseDir string) (bool, string, error) {
	if exp.Mode == StdoutNone {
		return true, "", nil
	}
	want, err := exp.want(baseDir)
	if err != nil {
		return false, "", err
	}
	got = NormalizeNewlines(got)

	var ok bool
	var what string
	switch exp.Mode {
	case StdoutExact:
		ok, what = got == want, fmt.Sprintf("%q", want)
	case StdoutContains:
		ok, what = strings.Contains(got, want), fmt.Sprintf("output containing %q", want)
	case StdoutFile:
		ok, what = got == want, fmt.Sprintf("the contents of %s", exp.Value)
	default:
		return false, "", fmt.Errorf("spectest: unknown stdout mode %d", exp.Mode)
	}
	if !ok {
		return false, fmt.Sprintf("stdout: expected %s, got %q", what, got), nil
	}
	return true, "", nil
}
