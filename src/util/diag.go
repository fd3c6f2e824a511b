package util

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Severity classifies a diagnostic printed by the compiler driver.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) label() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// Diagnostic is a single fatal or informational message produced anywhere
// in the pipeline (parsing, validation, annotation, lowering, caching).
type Diagnostic struct {
	Severity Severity
	Message  string
}

// PrintDiagnostic writes d to w, colorized with severity-specific color
// when w is a terminal, plain text otherwise.
func PrintDiagnostic(w io.Writer, d Diagnostic) {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		var c *color.Color
		switch d.Severity {
		case SeverityError:
			c = color.New(color.FgRed, color.Bold)
		case SeverityWarning:
			c = color.New(color.FgYellow, color.Bold)
		default:
			c = color.New(color.FgCyan)
		}
		c.Fprintf(w, "%s: ", d.Severity.label())
		fmt.Fprintln(w, d.Message)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", d.Severity.label(), d.Message)
}

// Fatal prints d with SeverityError to stderr.
func Fatal(message string) {
	PrintDiagnostic(os.Stderr, Diagnostic{Severity: SeverityError, Message: message})
}
