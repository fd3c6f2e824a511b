package textir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lowerc/src/source"
)

func TestParseSimpleDefinition(t *testing.T) {
	m, err := Parse("t.lir", `(module "demo"
  (define f ((x Number)) () Number x))`)
	require.NoError(t, err)
	require.Equal(t, "demo", m.Name)
	require.Len(t, m.Definitions, 1)

	d := m.Definitions[0]
	assert.Equal(t, "f", d.Name)
	assert.False(t, d.IsThunk)
	require.Len(t, d.Arguments, 1)
	assert.Equal(t, "x", d.Arguments[0].Name)
	assert.Equal(t, source.Number{}, d.Arguments[0].Type)

	v, ok := d.Body.(*source.Variable)
	require.True(t, ok)
	assert.Equal(t, "x", v.Name)
}

func TestParseZeroArgDefinitionIsThunk(t *testing.T) {
	m, err := Parse("t.lir", `(module "demo"
  (define answer () () Number (number 42.0)))`)
	require.NoError(t, err)
	assert.True(t, m.Definitions[0].IsThunk)
}

func TestParseRecordAndApplication(t *testing.T) {
	m, err := Parse("t.lir", `(module "demo"
  (record Pair (Number Boolean))
  (define f ((x Number)) () Number x)
  (define g ((x Number)) () Number (apply f (number 42.0))))`)
	require.NoError(t, err)
	require.Len(t, m.TypeDefinitions, 1)
	assert.Equal(t, "Pair", m.TypeDefinitions[0].Name)
	require.Len(t, m.TypeDefinitions[0].Elements, 2)

	g := m.Definitions[1]
	apply, ok := g.Body.(*source.FunctionApplication)
	require.True(t, ok)
	fn, ok := apply.Function.(*source.Variable)
	require.True(t, ok)
	assert.Equal(t, "f", fn.Name)
}

func TestParseForeignDeclareAndDefine(t *testing.T) {
	m, err := Parse("t.lir", `(module "demo"
  (foreign-declare puts ByteString Number)
  (foreign-define wrapper ((s ByteString)) () Number (apply puts s)))`)
	require.NoError(t, err)
	require.Len(t, m.ForeignDeclarations, 1)
	assert.Equal(t, "puts", m.ForeignDeclarations[0].Name)
	require.Len(t, m.ForeignDefinitions, 1)
	assert.Equal(t, "wrapper", m.ForeignDefinitions[0].Name)
	assert.Empty(t, m.Definitions)
}

func TestParseCaseWithDefaultAndAlternatives(t *testing.T) {
	m, err := Parse("t.lir", `(module "demo"
  (record Pair (Number Number))
  (define f ((v Variant)) () Number
    (case v
      (Pair p (element Pair 0 p))
      (default d (number 0.0)))))`)
	require.NoError(t, err)
	d := m.Definitions[0]
	c, ok := d.Body.(*source.Case)
	require.True(t, ok)
	require.Len(t, c.Alternatives, 1)
	assert.Equal(t, "p", c.Alternatives[0].Name)
	require.NotNil(t, c.Default)
	assert.Equal(t, "d", c.Default.Name)
}

func TestParseCloneAndDrop(t *testing.T) {
	m, err := Parse("t.lir", `(module "demo"
  (define f ((x Number) (y Number)) () Number
    (clone x
      (drop y
        x))))`)
	require.NoError(t, err)
	clone, ok := m.Definitions[0].Body.(*source.CloneVariables)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, clone.Names)
	drop, ok := clone.Inner.(*source.DropVariables)
	require.True(t, ok)
	assert.Equal(t, []string{"y"}, drop.Names)
}

func TestParseFunctionTypeResult(t *testing.T) {
	m, err := Parse("t.lir", `(module "demo"
  (define make-adder ((x Number)) () (Number) -> Number
    (letrec (define adder ((y Number)) ((x Number)) Number (add x y))
      adder)))`)
	require.NoError(t, err)
	d := m.Definitions[0]
	fn, ok := d.ResultType.(*source.Function)
	require.True(t, ok)
	assert.Equal(t, source.Number{}, fn.Argument)
	assert.Equal(t, source.Number{}, fn.Result)

	letrec, ok := d.Body.(*source.LetRecursive)
	require.True(t, ok)
	assert.Equal(t, "adder", letrec.Definition.Name)
	assert.Len(t, letrec.Definition.Environment, 1)
}

func TestParsePrintRoundTrip(t *testing.T) {
	src := `(module "demo"
  (record Pair (Number Boolean))
  (define f ((x Number)) () Number x)
  (define g ((x Number)) () Number (apply f (number 42.0)))
)
`
	m, err := Parse("t.lir", src)
	require.NoError(t, err)

	printed := source.Print(m)
	reparsed, err := Parse("t.lir", printed)
	require.NoError(t, err)
	assert.Equal(t, printed, source.Print(reparsed))
}

func TestParseSyntaxErrorReturnsError(t *testing.T) {
	_, err := Parse("bad.lir", `(module "demo"`)
	require.Error(t, err)
}
