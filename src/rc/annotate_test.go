package rc

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lowerc/src/source"
	"lowerc/src/util"
)

func TestAnnotateIdentityDropsOnlySelfName(t *testing.T) {
	d := &source.Definition{
		Name:       "id",
		Arguments:  []source.Argument{{Name: "x", Type: source.Number{}}},
		Body:       &source.Variable{Name: "x"},
		ResultType: source.Number{},
	}
	ann, err := AnnotateDefinition(d)
	require.NoError(t, err)
	// x is referenced exactly once and consumed by the return, so the only
	// drop around the body is of the unreferenced self name id.
	inner := selfDropInner(t, ann)
	_, isDrop := inner.(*source.DropVariables)
	assert.False(t, isDrop)
	v, ok := inner.(*source.Variable)
	require.True(t, ok)
	assert.Equal(t, "x", v.Name)
}

func TestAnnotateUnusedArgumentIsDropped(t *testing.T) {
	d := &source.Definition{
		Name: "const",
		Arguments: []source.Argument{
			{Name: "x", Type: source.Number{}},
			{Name: "unused", Type: source.Number{}},
		},
		Body:       &source.Variable{Name: "x"},
		ResultType: source.Number{},
	}
	ann, err := AnnotateDefinition(d)
	require.NoError(t, err)
	drop, ok := ann.Body.(*source.DropVariables)
	require.True(t, ok)
	assert.Contains(t, drop.Names, "unused")
	assert.NotContains(t, drop.Names, "x")
}

func TestAnnotateSecondUseInsertsClone(t *testing.T) {
	// (add x x) uses x twice: the second reference in right-to-left order
	// (annotation visits Rhs first) should be wrapped in a CloneVariables.
	d := &source.Definition{
		Name:      "double",
		Arguments: []source.Argument{{Name: "x", Type: source.Number{}}},
		Body: &source.ArithmeticOperation{
			Operator: source.Add,
			Lhs:      &source.Variable{Name: "x"},
			Rhs:      &source.Variable{Name: "x"},
		},
		ResultType: source.Number{},
	}
	ann, err := AnnotateDefinition(d)
	require.NoError(t, err)
	arith, ok := selfDropInner(t, ann).(*source.ArithmeticOperation)
	require.True(t, ok)

	_, lhsIsClone := arith.Lhs.(*source.CloneVariables)
	_, rhsIsClone := arith.Rhs.(*source.CloneVariables)
	assert.True(t, lhsIsClone != rhsIsClone, "exactly one operand should carry the clone")
}

func TestAnnotateIfBalancesBranches(t *testing.T) {
	// then-branch moves x, else-branch doesn't: annotate must insert a drop
	// of x into the else branch so both arms consume the same variables.
	d := &source.Definition{
		Name: "pick",
		Arguments: []source.Argument{
			{Name: "c", Type: source.Boolean{}},
			{Name: "x", Type: source.Number{}},
		},
		Body: &source.If{
			Condition: &source.Variable{Name: "c"},
			Then:      &source.Variable{Name: "x"},
			Else:      &source.NumberLiteral{Value: 0},
		},
		ResultType: source.Number{},
	}
	ann, err := AnnotateDefinition(d)
	require.NoError(t, err)
	ifExpr, ok := selfDropInner(t, ann).(*source.If)
	require.True(t, ok)

	_, elseDropsX := ifExpr.Else.(*source.DropVariables)
	assert.True(t, elseDropsX)
}

func TestAnnotateLetRecursiveClonesCapturedVariable(t *testing.T) {
	// x is both captured by the inner closure's environment and used again
	// in the enclosing body, so it must be cloned before the letrec.
	inner := &source.Definition{
		Name:       "k",
		Arguments:  []source.Argument{{Name: "y", Type: source.Number{}}},
		Environment: []source.Argument{{Name: "x", Type: source.Number{}}},
		Body:       &source.Variable{Name: "x"},
		ResultType: source.Number{},
	}
	d := &source.Definition{
		Name:      "outer",
		Arguments: []source.Argument{{Name: "x", Type: source.Number{}}},
		Body: &source.LetRecursive{
			Definition: inner,
			Body:       &source.Variable{Name: "x"},
		},
		ResultType: source.Number{},
	}
	ann, err := AnnotateDefinition(d)
	require.NoError(t, err)
	_, isClone := selfDropInner(t, ann).(*source.CloneVariables)
	assert.True(t, isClone, "x is captured by the closure and used again, so must be cloned")
}

func TestAnnotateModuleFansOutAcrossThreads(t *testing.T) {
	m := &source.Module{
		Name: "multi",
		Definitions: []*source.Definition{
			{Name: "a", Arguments: []source.Argument{{Name: "x", Type: source.Number{}}}, Body: &source.Variable{Name: "x"}, ResultType: source.Number{}},
			{Name: "b", Arguments: []source.Argument{{Name: "y", Type: source.Number{}}}, Body: &source.Variable{Name: "y"}, ResultType: source.Number{}},
			{Name: "c", Arguments: []source.Argument{{Name: "z", Type: source.Number{}}}, Body: &source.Variable{Name: "z"}, ResultType: source.Number{}},
		},
	}
	out, err := Annotate(m, util.Options{Threads: 4})
	require.NoError(t, err)
	require.Len(t, out.Definitions, 3)
	for i, d := range out.Definitions {
		assert.Equal(t, m.Definitions[i].Name, d.Name)
	}
}

func TestAnnotateUnsupportedExpressionErrors(t *testing.T) {
	d := &source.Definition{
		Name:       "bad",
		Body:       unsupportedExpr{},
		ResultType: source.Number{},
	}
	_, err := AnnotateDefinition(d)
	require.Error(t, err)
}

// unsupportedExpr satisfies source.Expression by embedding it (the
// interface's marker method is unexported, so no type outside package source
// can declare it) but isn't one of the closed sum's variants, exercising
// annotate's default error branch.
type unsupportedExpr struct{ source.Expression }

// selfDropInner checks that d's annotated body is wrapped in a drop of d's
// own name alone (every definition owns its self name, and a body that never
// refers to it drops it) and returns the expression that drop wraps.
func selfDropInner(t *testing.T, d *source.Definition) source.Expression {
	t.Helper()
	drop, ok := d.Body.(*source.DropVariables)
	require.True(t, ok)
	require.Equal(t, []string{d.Name}, drop.Names)
	return drop.Inner
}

// reannotate feeds an already-annotated definition back into
// AnnotateDefinition, as a cache-miss recompile of a previously annotated
// tree would.
func reannotate(t *testing.T, d *source.Definition) *source.Definition {
	t.Helper()
	out, err := AnnotateDefinition(d)
	require.NoError(t, err)
	return out
}

func TestAnnotateIsIdempotentOnDoubleClone(t *testing.T) {
	// let x = 42 in x + x: the second pass must reproduce the single
	// CloneVariables wrapper from the first pass, not nest a second one
	// around it.
	d := &source.Definition{
		Name: "double",
		Body: &source.Let{
			Name: "x",
			Type: source.Number{},
			Bound: &source.NumberLiteral{Value: 42},
			Body: &source.ArithmeticOperation{
				Operator: source.Add,
				Lhs:      &source.Variable{Name: "x"},
				Rhs:      &source.Variable{Name: "x"},
			},
		},
		ResultType: source.Number{},
	}
	once := reannotate(t, d)
	twice := reannotate(t, once)
	assert.True(t, reflect.DeepEqual(once, twice), "second pass must reproduce the first pass's output unchanged")

	let, ok := selfDropInner(t, twice).(*source.Let)
	require.True(t, ok)
	arith, ok := let.Body.(*source.ArithmeticOperation)
	require.True(t, ok)
	clone, isClone := arith.Lhs.(*source.CloneVariables)
	require.True(t, isClone)
	// a single layer, not CloneVariables wrapping another CloneVariables.
	_, doubleWrapped := clone.Inner.(*source.CloneVariables)
	assert.False(t, doubleWrapped, "clone must not be double-wrapped on a second pass")
}

func TestAnnotateIsIdempotentOnDoubleDrop(t *testing.T) {
	// let x = 42 in 0: the second pass must reproduce the single
	// DropVariables wrapper from the first pass, not nest a second one
	// around it.
	d := &source.Definition{
		Name: "ignore",
		Body: &source.Let{
			Name:  "x",
			Type:  source.Number{},
			Bound: &source.NumberLiteral{Value: 42},
			Body:  &source.NumberLiteral{Value: 0},
		},
		ResultType: source.Number{},
	}
	once := reannotate(t, d)
	twice := reannotate(t, once)
	assert.True(t, reflect.DeepEqual(once, twice), "second pass must reproduce the first pass's output unchanged")

	let, ok := selfDropInner(t, twice).(*source.Let)
	require.True(t, ok)
	drop, isDrop := let.Body.(*source.DropVariables)
	require.True(t, isDrop)
	// a single layer, not DropVariables wrapping another DropVariables.
	_, doubleWrapped := drop.Inner.(*source.DropVariables)
	assert.False(t, doubleWrapped, "drop must not be double-wrapped on a second pass")
}

func TestAnnotateIsIdempotentOnLetRecursiveEnvironmentClone(t *testing.T) {
	inner := &source.Definition{
		Name:        "k",
		Arguments:   []source.Argument{{Name: "y", Type: source.Number{}}},
		Environment: []source.Argument{{Name: "x", Type: source.Number{}}},
		Body:        &source.Variable{Name: "x"},
		ResultType:  source.Number{},
	}
	d := &source.Definition{
		Name:      "outer",
		Arguments: []source.Argument{{Name: "x", Type: source.Number{}}},
		Body: &source.LetRecursive{
			Definition: inner,
			Body:       &source.Variable{Name: "x"},
		},
		ResultType: source.Number{},
	}
	once := reannotate(t, d)
	twice := reannotate(t, once)
	assert.True(t, reflect.DeepEqual(once, twice), "second pass must reproduce the first pass's output unchanged")

	clone, isClone := selfDropInner(t, twice).(*source.CloneVariables)
	require.True(t, isClone)
	_, doubleWrapped := clone.Inner.(*source.CloneVariables)
	assert.False(t, doubleWrapped, "environment clone must not be double-wrapped on a second pass")
}
