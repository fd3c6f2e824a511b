package textir

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"

	"lowerc/src/source"
)

var parser = participle.MustBuild[ModuleCST](
	participle.Lexer(tokenLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses src (named filename for diagnostics) into a source.Module.
// A syntax error is reported to stderr with a caret pointing at the
// offending token before being returned, the same convention util.diag
// uses for pipeline-level fatal errors.
func Parse(filename, src string) (*source.Module, error) {
	cst, err := parser.ParseString(filename, src)
	if err != nil {
		reportParseError(src, err)
		return nil, err
	}
	return build(cst)
}

// reportParseError prints a caret-style syntax error pointing at the
// offending line and column.
func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.New(color.FgRed).Fprintf(os.Stderr, "syntax error: %s\n", err)
		return
	}
	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.New(color.FgRed).Fprintf(os.Stderr, "syntax error at unknown location: %s\n", err)
		return
	}
	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(pos.Column-1, 0)) + "^"
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "syntax error in %s at line %d, column %d:\n", pos.Filename, pos.Line, pos.Column)
	fmt.Fprintln(os.Stderr, line)
	color.New(color.FgRed).Fprintln(os.Stderr, caret)
}
