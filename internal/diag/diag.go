// Package diag renders run failures for a terminal: Python tracebacks for
// unhandled exceptions and a one-line report for everything else.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"pyvm/internal/object"
)

const (
	causeSeparator   = "The above exception was the direct cause of the following exception:"
	contextSeparator = "During handling of the above exception, another exception occurred:"
)

type palette struct {
	header  func(a ...any) string
	file    func(a ...any) string
	name    func(a ...any) string
	class   func(a ...any) string
	fault   func(a ...any) string
	divider func(a ...any) string
}

func newPalette(withColor bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if withColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		header:  mk(color.Bold),
		file:    mk(color.FgCyan),
		name:    mk(color.FgYellow),
		class:   mk(color.FgRed, color.Bold),
		fault:   mk(color.FgRed, color.Bold),
		divider: mk(color.Faint),
	}
}

// Traceback renders exc the way CPython prints an unhandled exception,
// outermost frame first, preceded by any chained cause or context.
func Traceback(exc *object.Exception, withColor bool) string {
	p := newPalette(withColor)
	var b strings.Builder
	writeChain(&b, p, exc, map[*object.Exception]bool{})
	return b.String()
}

func writeChain(b *strings.Builder, p palette, exc *object.Exception, seen map[*object.Exception]bool) {
	seen[exc] = true
	switch {
	case exc.Cause != nil && !seen[exc.Cause]:
		writeChain(b, p, exc.Cause, seen)
		fmt.Fprintf(b, "\n%s\n\n", p.divider(causeSeparator))
	case exc.Cause == nil && !exc.SuppressContext && exc.Context != nil && !seen[exc.Context]:
		writeChain(b, p, exc.Context, seen)
		fmt.Fprintf(b, "\n%s\n\n", p.divider(contextSeparator))
	}

	if len(exc.Traceback) > 0 {
		b.WriteString(p.header("Traceback (most recent call last):"))
		b.WriteByte('\n')
		for i := len(exc.Traceback) - 1; i >= 0; i-- {
			e := exc.Traceback[i]
			fmt.Fprintf(b, "  File %s, line %d, in %s\n", p.file(fmt.Sprintf("%q", e.Filename)), e.Line, p.name(e.Name))
		}
	}
	b.WriteString(p.class(exc.Class.Name))
	if msg := exc.Message(); msg != "" {
		b.WriteString(": " + msg)
	}
	b.WriteByte('\n')
}

// Report renders any error returned by a run. Exceptions get a traceback;
// other errors (faults, load failures) a single "error:" line.
func Report(err error, withColor bool) string {
	var exc *object.Exception
	if errors.As(err, &exc) {
		return Traceback(exc, withColor)
	}
	p := newPalette(withColor)
	return p.fault("error:") + " " + err.Error() + "\n"
}
