// Package textir implements the s-expression-flavored textual surface
// syntax used to construct source.Module values directly, for golden test
// fixtures and the -dump-ir/-dump-rc CLI debug mode. It is deliberately
// impoverished: no types beyond what source.Type already distinguishes, no
// inference, no implicit conversions, and no error recovery beyond
// reporting a syntax error. source.Print is the inverse of Parse for every
// construct this grammar covers.
package textir

import "github.com/alecthomas/participle/v2/lexer"

// tokenLexer tokenizes the fixture grammar: parenthesized keyword forms,
// bare identifiers (which double as keywords, matched as literals by the
// grammar itself), quoted strings, and signed decimal numbers.
var tokenLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `;[^\n]*`},
	{Name: "Number", Pattern: `[-+]?[0-9]+(\.[0-9]+)?`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
	{Name: "Punct", Pattern: `[()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})
