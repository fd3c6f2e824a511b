package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lowerc/src/target/ir"
	"lowerc/src/target/types"
)

func TestBuildClonePointerFnIsIdempotent(t *testing.T) {
	m := ir.NewModule("m")
	f1 := BuildClonePointerFn(m)
	f2 := BuildClonePointerFn(m)
	assert.Same(t, f1, f2, "a second call must return the already-declared function, not redeclare it")
	assert.NoError(t, f1.Verify())
}

func TestBuildDropPointerFnIsIdempotentAndVerifies(t *testing.T) {
	m := ir.NewModule("m")
	f1 := BuildDropPointerFn(m)
	f2 := BuildDropPointerFn(m)
	assert.Same(t, f1, f2)
	assert.NoError(t, f1.Verify())
}

func TestClonePointerAndDropPointerCoexist(t *testing.T) {
	m := ir.NewModule("m")
	BuildClonePointerFn(m)
	BuildDropPointerFn(m)
	require.NotNil(t, m.LookupFunction(ClonePointerName))
	require.NotNil(t, m.LookupFunction(DropPointerName))
	assert.NotEqual(t, m.LookupFunction(ClonePointerName).Name(), m.LookupFunction(DropPointerName).Name())
}

func TestEmitCallClonePointerEmitsACall(t *testing.T) {
	m := ir.NewModule("m")
	f := m.CreateFunction("caller", types.ConventionTarget, []types.Type{types.PrimitiveType{Kind: types.PointerSized}}, []string{"p"}, nil)
	b := f.CreateBlock("entry")
	EmitCallClonePointer(b, m, f.Params()[0])
	b.CreateReturn(nil)
	assert.NoError(t, f.Verify())
	assert.Contains(t, b.String(), ClonePointerName)
}

func TestFuncValueExposesUnderlyingFunctionName(t *testing.T) {
	m := ir.NewModule("m")
	f := m.CreateFunction("helper", types.ConventionTarget, nil, nil, nil)
	v := FuncValue(f)
	assert.Equal(t, "helper", v.Name())
}
