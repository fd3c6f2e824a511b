package layout

import (
	"fmt"

	"lowerc/src/source"
	"lowerc/src/target/ir"
	"lowerc/src/target/types"
)

// Closure record field indices, fixed by 4.D's layout
// { entry_fn*, drop_fn*, arity, environment }.
const (
	FieldEntryFn = iota
	FieldDropFn
	FieldArity
	FieldEnvironment
)

// dropFnType is the target-convention (closure*) -> void signature every
// drop function shares (4.D).
var dropFnType = types.FunctionPointerType{
	Convention: types.ConventionTarget,
	Params:     []types.Type{types.PrimitiveType{Kind: types.PointerSized}},
	Result:     nil,
}

// EnvironmentType builds the record type that holds a definition's captured
// free variables, in declaration order.
func EnvironmentType(defName string, environment []source.Argument, m *source.Module) types.RecordType {
	fields := make([]types.Type, len(environment))
	for i, a := range environment {
		fields[i] = types.Lower(a.Type, m)
	}
	return types.RecordType{Name: defName + ".env", Fields: fields}
}

// ClosureType builds the sized closure record type whose environment slot
// (the fourth field) holds environment: a definition's captured-variable
// record, a thunk's { environment | result } union, or a generated shim's
// ad hoc capture record (4.D).
func ClosureType(environment types.Type) types.RecordType {
	return types.RecordType{
		Name: "closure",
		Fields: []types.Type{
			types.PrimitiveType{Kind: types.PointerSized}, // entry_fn, accessed atomically
			dropFnType,
			types.PrimitiveType{Kind: types.PointerSized}, // arity
			environment,
		},
	}
}

// ThunkPayloadType is the union a thunk's environment slot occupies: the
// captured environment while unevaluated, the cached result once forced
// (4.D, 4.G).
func ThunkPayloadType(environment, result types.Type) types.UnionType {
	return types.UnionType{Name: "thunk.payload", Members: []types.Type{environment, result}}
}

const (
	ThunkMemberEnvironment = 0
	ThunkMemberResult      = 1
)

// EntryFnType is the source-convention (closure*, arg0, ..., argN) -> result
// signature of a closure's entry function (4.D).
func EntryFnType(arity int, result types.Type) types.FunctionPointerType {
	params := make([]types.Type, arity+1)
	params[0] = types.PrimitiveType{Kind: types.PointerSized} // closure*
	for i := 1; i <= arity; i++ {
		params[i] = types.PrimitiveType{Kind: types.PointerSized} // uniformly boxed/bitcast argument slot
	}
	return types.FunctionPointerType{Convention: types.ConventionSource, Params: params, Result: result}
}

// EmitLoadEntryFn atomically loads a closure's entry function pointer.
func EmitLoadEntryFn(b *ir.Block, closure ir.Value, ordering ir.Ordering) ir.Value {
	slot := b.CreatePointerArith(closure, FieldEntryFn, types.PointerType{Elem: types.PrimitiveType{Kind: types.PointerSized}})
	return b.CreateAtomicLoad(slot, types.PrimitiveType{Kind: types.PointerSized}, ordering)
}

// EmitStoreEntryFn atomically stores a new entry function pointer into a
// closure, used to publish the locked and normal thunk states (4.G).
func EmitStoreEntryFn(b *ir.Block, closure ir.Value, fn ir.Value, ordering ir.Ordering) {
	slot := b.CreatePointerArith(closure, FieldEntryFn, types.PointerType{Elem: types.PrimitiveType{Kind: types.PointerSized}})
	b.CreateAtomicStore(fn, slot, ordering)
}

// EmitEntryFnCAS performs the thunk-forcing CAS of 4.G step 1: compare the
// closure's entry pointer against expected (the initial entry function's
// own address) and swap to newVal (the locked entry function's address).
func EmitEntryFnCAS(b *ir.Block, closure, expected, newVal ir.Value) ir.Value {
	slot := b.CreatePointerArith(closure, FieldEntryFn, types.PointerType{Elem: types.PrimitiveType{Kind: types.PointerSized}})
	return b.CreateCAS(slot, expected, newVal, ir.Acquire, ir.Relaxed)
}

// EmitLoadDropFn loads a closure's (non-atomic) drop function pointer.
func EmitLoadDropFn(b *ir.Block, closure ir.Value) ir.Value {
	return b.CreateRecordElement(closure, FieldDropFn, dropFnType)
}

// EmitStoreDropFn installs a new drop function, used when a thunk transitions
// to the normal state (4.G: "the normal drop ... has been updated").
func EmitStoreDropFn(b *ir.Block, closure ir.Value, fn ir.Value) {
	slot := b.CreatePointerArith(closure, FieldDropFn, types.PointerType{Elem: dropFnType})
	b.CreateStore(fn, slot)
}

// EmitLoadGenericClosure loads an untagged closure pointer's first three
// fields (entry_fn, drop_fn, arity) through the unsized closure view, which
// every concrete closure shape agrees on regardless of its environment's
// width; callers that need the environment itself instead load through the
// definition's own sized closure type.
func EmitLoadGenericClosure(b *ir.Block, untaggedPtr ir.Value) ir.Value {
	return b.CreateLoad(untaggedPtr, types.UnsizedClosureType)
}

// EmitLoadArity loads a closure's declared arity.
func EmitLoadArity(b *ir.Block, closure ir.Value) ir.Value {
	return b.CreateRecordElement(closure, FieldArity, types.PrimitiveType{Kind: types.PointerSized})
}

// EmitLoadEnvironment projects the environment field of a closure, typed
// envType (the sized environment record, or the thunk payload union).
func EmitLoadEnvironment(b *ir.Block, closure ir.Value, envType types.Type) ir.Value {
	return b.CreateRecordElement(closure, FieldEnvironment, envType)
}

// EntryFnName derives the linker name of a definition's entry function.
func EntryFnName(defName string) string { return fmt.Sprintf("%s.entry", defName) }

// DropFnName derives the linker name of a definition's closure drop function.
func DropFnName(defName string) string { return fmt.Sprintf("%s.drop", defName) }

// ThunkInitialEntryName, ThunkLockedEntryName and ThunkNormalEntryName name
// the three entry functions a thunk cycles through (4.G).
func ThunkInitialEntryName(defName string) string { return fmt.Sprintf("%s.thunk.initial", defName) }
func ThunkLockedEntryName(defName string) string  { return fmt.Sprintf("%s.thunk.locked", defName) }
func ThunkNormalEntryName(defName string) string  { return fmt.Sprintf("%s.thunk.normal", defName) }
func ThunkNormalDropName(defName string) string   { return fmt.Sprintf("%s.thunk.drop.normal", defName) }
