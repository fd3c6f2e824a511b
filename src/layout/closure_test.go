package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lowerc/src/source"
	"lowerc/src/target/ir"
	"lowerc/src/target/types"
)

func TestEnvironmentTypeOrdersFieldsByDeclaration(t *testing.T) {
	m := &source.Module{Name: "m"}
	env := EnvironmentType("adder", []source.Argument{
		{Name: "x", Type: source.Number{}},
		{Name: "flag", Type: source.Boolean{}},
	}, m)
	assert.Equal(t, "adder.env", env.Name)
	require.Len(t, env.Fields, 2)
	assert.Equal(t, types.PrimitiveType{Kind: types.Float64}, env.Fields[0])
	assert.Equal(t, types.PrimitiveType{Kind: types.Bool1}, env.Fields[1])
}

func TestClosureTypeFieldOrderMatchesFieldConstants(t *testing.T) {
	env := types.RecordType{Name: "e", Fields: nil}
	ct := ClosureType(env)
	require.Len(t, ct.Fields, 4)
	assert.Equal(t, types.PrimitiveType{Kind: types.PointerSized}, ct.Fields[FieldEntryFn])
	assert.Equal(t, env, ct.Fields[FieldEnvironment])
}

func TestEntryFnTypeParamCountMatchesArityPlusClosure(t *testing.T) {
	ft := EntryFnType(2, types.PrimitiveType{Kind: types.Float64})
	assert.Len(t, ft.Params, 3)
	assert.Equal(t, types.PrimitiveType{Kind: types.Float64}, ft.Result)
}

func TestNamingHelpersFollowDefinitionName(t *testing.T) {
	assert.Equal(t, "f.entry", EntryFnName("f"))
	assert.Equal(t, "f.drop", DropFnName("f"))
	assert.Equal(t, "f.thunk.initial", ThunkInitialEntryName("f"))
	assert.Equal(t, "f.thunk.locked", ThunkLockedEntryName("f"))
	assert.Equal(t, "f.thunk.normal", ThunkNormalEntryName("f"))
	assert.Equal(t, "f.thunk.drop.normal", ThunkNormalDropName("f"))
}

func TestEmitLoadAndStoreEntryFnRoundTrip(t *testing.T) {
	m := ir.NewModule("m")
	closureType := ClosureType(types.RecordType{Name: "env", Fields: nil})
	f := m.CreateFunction("user", types.ConventionTarget, []types.Type{types.PointerType{Elem: closureType}}, []string{"closure"}, nil)
	b := f.CreateBlock("entry")

	entryVal := EmitLoadEntryFn(b, f.Params()[0], ir.Acquire)
	newEntry := b.CreateConstantInt(42)
	EmitStoreEntryFn(b, f.Params()[0], newEntry, ir.Release)
	b.CreateReturn(nil)

	assert.NoError(t, f.Verify())
	assert.NotNil(t, entryVal)
	out := b.String()
	assert.Contains(t, out, "atomic.load.acquire")
	assert.Contains(t, out, "atomic.store.release")
}

func TestEmitLoadArityAndEnvironment(t *testing.T) {
	m := ir.NewModule("m")
	envType := types.RecordType{Name: "adder.env", Fields: []types.Type{types.PrimitiveType{Kind: types.Float64}}}
	closureType := ClosureType(envType)
	f := m.CreateFunction("user", types.ConventionTarget, []types.Type{closureType}, []string{"closure"}, nil)
	b := f.CreateBlock("entry")

	arity := EmitLoadArity(b, f.Params()[0])
	env := EmitLoadEnvironment(b, f.Params()[0], envType)
	b.CreateReturn(nil)

	assert.NoError(t, f.Verify())
	assert.Equal(t, types.PrimitiveType{Kind: types.PointerSized}, arity.ValueType())
	assert.Equal(t, envType, env.ValueType())
}

func TestThunkPayloadTypeMembersOrderedEnvironmentThenResult(t *testing.T) {
	env := types.RecordType{Name: "env", Fields: nil}
	result := types.PrimitiveType{Kind: types.Float64}
	u := ThunkPayloadType(env, result)
	require.Len(t, u.Members, 2)
	assert.Equal(t, env, u.Members[ThunkMemberEnvironment])
	assert.Equal(t, result, u.Members[ThunkMemberResult])
}
