package types

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lowerc/src/source"
)

func TestLowerGroundTypes(t *testing.T) {
	m := &source.Module{Name: "m"}
	assert.Equal(t, PrimitiveType{Kind: Float64}, Lower(source.Number{}, m))
	assert.Equal(t, PrimitiveType{Kind: Bool1}, Lower(source.Boolean{}, m))
	assert.Equal(t, ByteStringType, Lower(source.ByteString{}, m))
	assert.Equal(t, VariantType, Lower(source.Variant{}, m))
}

func TestLowerEmptyRecordIsUnboxed(t *testing.T) {
	m := &source.Module{
		Name:            "m",
		TypeDefinitions: []*source.RecordBody{{Name: "Unit", Elements: nil}},
	}
	got := Lower(&source.Record{Name: "Unit"}, m)
	rt, ok := got.(RecordType)
	assert.True(t, ok, "empty record must lower to an inline RecordType, not a pointer")
	assert.Equal(t, "Unit", rt.Name)
	assert.Empty(t, rt.Fields)
}

func TestLowerNonEmptyRecordIsBoxed(t *testing.T) {
	m := &source.Module{
		Name: "m",
		TypeDefinitions: []*source.RecordBody{
			{Name: "Pair", Elements: []source.Type{source.Number{}, source.Number{}}},
		},
	}
	got := Lower(&source.Record{Name: "Pair"}, m)
	ptr, ok := got.(PointerType)
	require := assert.New(t)
	require.True(ok, "non-empty record must lower to a pointer")
	rt, ok := ptr.Elem.(RecordType)
	require.True(ok)
	require.Len(rt.Fields, 2)
}

func TestLowerFunctionTypeIsClosurePointer(t *testing.T) {
	m := &source.Module{Name: "m"}
	got := Lower(&source.Function{Argument: source.Number{}, Result: source.Number{}}, m)
	ptr, ok := got.(PointerType)
	assert.True(t, ok)
	assert.Equal(t, UnsizedClosureType.Name, ptr.Elem.(RecordType).Name)
}

func TestArityCountsCurriedPositions(t *testing.T) {
	assert.Equal(t, 0, Arity(source.Number{}))
	assert.Equal(t, 1, Arity(&source.Function{Argument: source.Number{}, Result: source.Number{}}))
	nested := &source.Function{
		Argument: source.Number{},
		Result:   &source.Function{Argument: source.Number{}, Result: source.Number{}},
	}
	assert.Equal(t, 2, Arity(nested))
}

func TestVariantPayloadBoxedOnlyByteString(t *testing.T) {
	assert.True(t, VariantPayloadBoxed(source.ByteString{}))
	assert.False(t, VariantPayloadBoxed(source.Number{}))
	assert.False(t, VariantPayloadBoxed(source.Boolean{}))
}

func TestIsBoxedMissingRecordIsUnboxed(t *testing.T) {
	m := &source.Module{Name: "m"}
	assert.False(t, IsBoxed(m, "Nonexistent"))
}

func TestPrimitiveStringNames(t *testing.T) {
	assert.Equal(t, "f64", Float64.String())
	assert.Equal(t, "i1", Bool1.String())
	assert.Equal(t, "i8", Byte.String())
	assert.Equal(t, "iptr", PointerSized.String())
}

func TestCallingConventionString(t *testing.T) {
	assert.Equal(t, "source", ConventionSource.String())
	assert.Equal(t, "target", ConventionTarget.String())
}
