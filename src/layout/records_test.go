package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lowerc/src/source"
	"lowerc/src/target/ir"
	"lowerc/src/target/types"
)

func pairModule() *source.Module {
	return &source.Module{
		Name: "m",
		TypeDefinitions: []*source.RecordBody{
			{Name: "Pair", Elements: []source.Type{source.Number{}, source.Number{}}},
			{Name: "Unit", Elements: nil},
		},
	}
}

func TestBuildRecordCloneFnIsIdempotentPerName(t *testing.T) {
	m := ir.NewModule("m")
	sm := pairModule()
	f1 := BuildRecordCloneFn(m, sm, "Pair")
	f2 := BuildRecordCloneFn(m, sm, "Pair")
	assert.Same(t, f1, f2)
	assert.NoError(t, f1.Verify())
}

func TestBuildRecordCloneFnBoxedRecordClonesPointer(t *testing.T) {
	m := ir.NewModule("m")
	sm := pairModule()
	f := BuildRecordCloneFn(m, sm, "Pair")
	out := f.String()
	assert.Contains(t, out, ClonePointerName)
}

func TestBuildRecordCloneFnUnboxedRecordClonesElements(t *testing.T) {
	m := ir.NewModule("m")
	sm := pairModule()
	f := BuildRecordCloneFn(m, sm, "Unit")
	assert.NoError(t, f.Verify())
	assert.NotContains(t, f.String(), ClonePointerName, "an empty record is unboxed, there is no heap pointer to clone")
}

func TestBuildRecordDropFnBoxedRecordCallsDropPointer(t *testing.T) {
	m := ir.NewModule("m")
	sm := pairModule()
	f := BuildRecordDropFn(m, sm, "Pair")
	assert.NoError(t, f.Verify())
	assert.Contains(t, f.String(), DropPointerName)

	fields := m.LookupFunction("Pair.fields.drop")
	require.NotNil(t, fields)
	assert.NoError(t, fields.Verify())
}

func TestVariantNamingHelpersSanitizeTypeID(t *testing.T) {
	tid := source.TypeID(&source.Record{Name: "Pair"})
	assert.Equal(t, "variant_clone_"+SanitizeTypeID(tid), VariantCloneFnName(tid))
	assert.Equal(t, "variant_drop_"+SanitizeTypeID(tid), VariantDropFnName(tid))
	assert.Equal(t, "typeinfo_"+SanitizeTypeID(tid), TypeInfoGlobalName(tid))
}

func TestSanitizeTypeIDReplacesNonAlphanumeric(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeTypeID("a.b c"))
	assert.Equal(t, "abc123", sanitizeTypeID("abc123"))
}

func TestBuildVariantPayloadFnsNumberBitcastsInPlace(t *testing.T) {
	m := ir.NewModule("m")
	sm := &source.Module{Name: "m"}
	clone, drop := BuildVariantPayloadFns(m, sm, source.Number{})
	assert.NoError(t, clone.Verify())
	assert.NoError(t, drop.Verify())
}

func TestBuildVariantPayloadFnsByteStringBoxesPayload(t *testing.T) {
	m := ir.NewModule("m")
	sm := &source.Module{Name: "m"}
	clone, drop := BuildVariantPayloadFns(m, sm, source.ByteString{})
	assert.NoError(t, clone.Verify())
	assert.NoError(t, drop.Verify())
	assert.Contains(t, clone.String(), ClonePointerName)
	assert.Contains(t, drop.String(), DropPointerName)
}

func TestUnboxAndBoxVariantPayloadAreInverseShapes(t *testing.T) {
	m := ir.NewModule("m")
	sm := &source.Module{Name: "m"}
	f := m.CreateFunction("f", types.ConventionTarget, []types.Type{types.PrimitiveType{Kind: types.PointerSized}}, []string{"payload"}, types.PrimitiveType{Kind: types.Float64})
	b := f.CreateBlock("entry")
	val := UnboxVariantPayload(b, sm, f.Params()[0], source.Number{})
	b.CreateReturn(val)
	assert.NoError(t, f.Verify())

	f2 := m.CreateFunction("g", types.ConventionTarget, []types.Type{types.PrimitiveType{Kind: types.Float64}}, []string{"v"}, types.PrimitiveType{Kind: types.PointerSized})
	b2 := f2.CreateBlock("entry")
	boxed := BoxVariantPayload(b2, sm, f2.Params()[0], source.Number{})
	b2.CreateReturn(boxed)
	assert.NoError(t, f2.Verify())
}

func TestEmitCloneAndDropValueNumberAreNoops(t *testing.T) {
	m := ir.NewModule("m")
	sm := &source.Module{Name: "m"}
	f := m.CreateFunction("f", types.ConventionTarget, []types.Type{types.PrimitiveType{Kind: types.Float64}}, []string{"x"}, nil)
	b := f.CreateBlock("entry")
	EmitCloneValue(b, m, sm, f.Params()[0], source.Number{})
	EmitDropValue(b, m, sm, f.Params()[0], source.Number{})
	b.CreateReturn(nil)
	assert.NoError(t, f.Verify())
}
