package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lowerc/src/target/types"
)

func TestCreateFunctionDefaultsParamNames(t *testing.T) {
	m := NewModule("m")
	f := m.CreateFunction("f", types.ConventionSource, []types.Type{types.PrimitiveType{Kind: types.Float64}}, nil, types.PrimitiveType{Kind: types.Float64})
	require.Len(t, f.Params(), 1)
	assert.Equal(t, "arg0", f.Params()[0].Name())
}

func TestCreateFunctionHonorsGivenParamNames(t *testing.T) {
	m := NewModule("m")
	f := m.CreateFunction("f", types.ConventionSource,
		[]types.Type{types.PrimitiveType{Kind: types.Float64}, types.PrimitiveType{Kind: types.Float64}},
		[]string{"closure", "x"}, types.PrimitiveType{Kind: types.Float64})
	assert.Equal(t, "closure", f.Params()[0].Name())
	assert.Equal(t, "x", f.Params()[1].Name())
}

func TestVerifyRejectsUnterminatedBlock(t *testing.T) {
	m := NewModule("m")
	f := m.CreateFunction("f", types.ConventionSource, nil, nil, nil)
	f.CreateBlock("entry")
	err := f.Verify()
	require.Error(t, err)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "f", be.Function)
}

func TestVerifyAcceptsReturnTerminatedBlock(t *testing.T) {
	m := NewModule("m")
	f := m.CreateFunction("f", types.ConventionSource, nil, nil, types.PrimitiveType{Kind: types.Float64})
	b := f.CreateBlock("entry")
	v := b.CreateConstantFloat(1.5)
	b.CreateReturn(v)
	assert.NoError(t, f.Verify())
}

func TestArithAndCompareEmitInstructions(t *testing.T) {
	m := NewModule("m")
	f := m.CreateFunction("f", types.ConventionSource, nil, nil, types.PrimitiveType{Kind: types.Float64})
	b := f.CreateBlock("entry")
	lhs := b.CreateConstantFloat(2)
	rhs := b.CreateConstantFloat(3)
	sum := b.CreateArith(Add, lhs, rhs)
	assert.Equal(t, types.PrimitiveType{Kind: types.Float64}, sum.ValueType())

	cmp := b.CreateCompare(Eq, lhs, rhs)
	assert.Equal(t, types.PrimitiveType{Kind: types.Bool1}, cmp.ValueType())
	b.CreateReturn(sum)
	assert.NoError(t, f.Verify())
}

func TestConditionalBranchTerminatesBlock(t *testing.T) {
	m := NewModule("m")
	f := m.CreateFunction("f", types.ConventionSource, nil, nil, types.PrimitiveType{Kind: types.Float64})
	entry := f.CreateBlock("entry")
	thenB := f.CreateBlock("then")
	elseB := f.CreateBlock("else")

	cond := entry.CreateConstantBool(true)
	entry.CreateCondBranch(cond, thenB, elseB)

	thenB.CreateReturn(thenB.CreateConstantFloat(1))
	elseB.CreateReturn(elseB.CreateConstantFloat(0))

	assert.NoError(t, f.Verify())
}

func TestCreateCallWithVoidResultOmitsName(t *testing.T) {
	m := NewModule("m")
	f := m.CreateFunction("f", types.ConventionSource, nil, nil, nil)
	callee := m.CreateFunction("drop_it", types.ConventionTarget, []types.Type{types.PrimitiveType{Kind: types.PointerSized}}, nil, nil)
	b := f.CreateBlock("entry")
	ref := b.CreateGlobalRef(m.CreateWeakRecord("unused", types.PrimitiveType{Kind: types.PointerSized}))
	call := b.CreateCall(types.ConventionTarget, ref, []Value{ref}, nil)
	assert.Nil(t, call.ValueType())
	assert.Empty(t, call.Name())
	_ = callee
	b.CreateReturn(nil)
	assert.NoError(t, f.Verify())
}

func TestLookupFunctionFindsDeclared(t *testing.T) {
	m := NewModule("m")
	m.CreateFunction("f", types.ConventionSource, nil, nil, nil)
	assert.NotNil(t, m.LookupFunction("f"))
	assert.Nil(t, m.LookupFunction("missing"))
}

func TestModuleStringIncludesFunctionsAndGlobals(t *testing.T) {
	m := NewModule("demo")
	m.CreateStaticString("greeting", []byte("hi"))
	f := m.CreateFunction("f", types.ConventionSource, nil, nil, types.PrimitiveType{Kind: types.Float64})
	b := f.CreateBlock("entry")
	b.CreateReturn(b.CreateConstantFloat(0))

	out := m.String()
	assert.Contains(t, out, "module demo")
	assert.Contains(t, out, "greeting")
	assert.Contains(t, out, "function[source] f")
}

func TestBuildErrorMessageIncludesFunctionName(t *testing.T) {
	err := &BuildError{Function: "f", Message: "bad operand"}
	assert.Contains(t, err.Error(), "f")
	assert.Contains(t, err.Error(), "bad operand")

	bare := &BuildError{Message: "no function context"}
	assert.NotContains(t, bare.Error(), "in function")
}
