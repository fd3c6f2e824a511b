// Package layout turns the target type algebra into concrete memory
// layouts: tagged pointers, per-type clone/drop functions, and closure and
// thunk records. It sits between target/types (what a value's type is) and
// lower (how an expression computes one).
package layout

import (
	"lowerc/src/target/ir"
	"lowerc/src/target/types"
)

// CountSlotType is the reference counter that precedes every heap value,
// one pointer-integer slot before the value itself (4.B).
var CountSlotType = types.PrimitiveType{Kind: types.PointerSized}

// StaticTagBit is the low bit that marks a pointer as non-heap (static),
// per 4.B's pointer tagging scheme.
const StaticTagBit = int64(1)

// ClonePointerName and DropPointerName are the linker names of the two
// generic, weak-linkage RC primitives every clone_<name>/drop_<name>
// function (4.C) and every CloneVariables/DropVariables lowering (4.F)
// calls into, rather than re-inlining the tag check and atomic op at every
// call site.
const (
	ClonePointerName = "rc.clone_pointer"
	DropPointerName  = "rc.drop_pointer"
)

// dropContentFnType is drop_pointer's drop_content parameter: a callback
// invoked on the untagged value pointer to recursively drop its children,
// modelled as a genuine function-pointer value (4.B: "invoke drop_content
// on the payload").
var dropContentFnType = types.FunctionPointerType{
	Convention: types.ConventionTarget,
	Params:     []types.Type{types.PrimitiveType{Kind: types.PointerSized}},
	Result:     nil,
}

// emitUntagged computes the untagged address of p regardless of its tag,
// by bit-casting to a pointer-sized integer, clearing the low bit, and
// bit-casting back to elemType* (4.B untag_pointer).
func emitUntagged(b *ir.Block, p ir.Value, elemType types.Type) ir.Value {
	asInt := b.CreateBitcast(p, types.PrimitiveType{Kind: types.PointerSized})
	mask := b.CreateConstantInt(^StaticTagBit)
	cleared := b.CreateBitwise(ir.And, asInt, mask)
	return b.CreateBitcast(cleared, types.PointerType{Elem: elemType})
}

// Untag computes the untagged address of p as a pointer to elemType,
// exported for the lower package: every closure value flowing through a
// call site or a LetRecursive/thunk body must be untagged the same way a
// clone_pointer/drop_pointer call would untag it before dereferencing.
func Untag(b *ir.Block, p ir.Value, elemType types.Type) ir.Value {
	return emitUntagged(b, p, elemType)
}

// emitIsStatic tests p's tag bit, returning a Boolean: true means p is a
// non-heap (static) pointer and RC operations on it must be skipped.
func emitIsStatic(b *ir.Block, p ir.Value) ir.Value {
	asInt := b.CreateBitcast(p, types.PrimitiveType{Kind: types.PointerSized})
	one := b.CreateConstantInt(1)
	masked := b.CreateBitwise(ir.And, asInt, one)
	zero := b.CreateConstantInt(0)
	return b.CreateCompare(ir.Neq, masked, zero)
}

func emitCountSlot(b *ir.Block, valuePtr ir.Value) ir.Value {
	return b.CreatePointerArith(valuePtr, -1, types.PointerType{Elem: CountSlotType})
}

// BuildClonePointerFn emits clone_pointer(p): if p is a heap pointer,
// atomically increment its preceding counter with relaxed ordering (4.B).
// It is idempotent across a module — calling it twice returns the same
// function rather than redeclaring it.
func BuildClonePointerFn(m *ir.Module) *ir.Function {
	if f := m.LookupFunction(ClonePointerName); f != nil {
		return f
	}
	ptrType := types.PrimitiveType{Kind: types.PointerSized}
	f := m.CreateWeakFunction(ClonePointerName, types.ConventionTarget, []types.Type{ptrType}, []string{"p"}, nil)
	entry := f.CreateBlock("entry")
	thenB := f.CreateBlock("heap")
	joinB := f.CreateBlock("join")

	p := f.Params()[0]
	isStatic := emitIsStatic(entry, p)
	entry.CreateCondBranch(isStatic, joinB, thenB)

	slot := emitCountSlot(thenB, p)
	one := thenB.CreateConstantInt(1)
	thenB.CreateAtomicRMW(ir.FetchAdd, slot, one, ir.Relaxed)
	thenB.CreateJump(joinB)

	joinB.CreateReturn(nil)
	return f
}

// BuildDropPointerFn emits drop_pointer(p, drop_content): if p is a heap
// pointer, atomically decrement its preceding counter; if the pre-decrement
// value was zero, invoke drop_content on the untagged value pointer and
// free the block (4.B). The acquire ordering on the triggering decrement
// synchronizes-with every prior clone's relaxed increment (5).
func BuildDropPointerFn(m *ir.Module) *ir.Function {
	if f := m.LookupFunction(DropPointerName); f != nil {
		return f
	}
	ptrType := types.PrimitiveType{Kind: types.PointerSized}
	f := m.CreateWeakFunction(DropPointerName, types.ConventionTarget, []types.Type{ptrType, dropContentFnType}, []string{"p", "drop_content"}, nil)
	entry := f.CreateBlock("entry")
	thenB := f.CreateBlock("heap")
	cleanupB := f.CreateBlock("cleanup")
	joinB := f.CreateBlock("join")

	p := f.Params()[0]
	dropContent := f.Params()[1]
	isStatic := emitIsStatic(entry, p)
	entry.CreateCondBranch(isStatic, joinB, thenB)

	slot := emitCountSlot(thenB, p)
	one := thenB.CreateConstantInt(1)
	pre := thenB.CreateAtomicRMW(ir.FetchSub, slot, one, ir.Acquire)
	zero := thenB.CreateConstantInt(0)
	wasZero := thenB.CreateCompare(ir.Eq, pre, zero)
	thenB.CreateCondBranch(wasZero, cleanupB, joinB)

	untagged := emitUntagged(cleanupB, p, types.PrimitiveType{Kind: types.PointerSized})
	cleanupB.CreateCall(types.ConventionTarget, dropContent, []ir.Value{untagged}, nil)
	cleanupB.CreateHeapFree(untagged)
	cleanupB.CreateJump(joinB)

	joinB.CreateReturn(nil)
	return f
}

// EmitCallClonePointer calls the module's generic clone_pointer with p.
func EmitCallClonePointer(b *ir.Block, m *ir.Module, p ir.Value) {
	fn := BuildClonePointerFn(m)
	b.CreateCall(types.ConventionTarget, FuncValue(fn), []ir.Value{p}, nil)
}

// EmitCallDropPointer calls the module's generic drop_pointer with p and
// the supplied per-type dropContent callback.
func EmitCallDropPointer(b *ir.Block, m *ir.Module, p ir.Value, dropContent ir.Value) {
	fn := BuildDropPointerFn(m)
	b.CreateCall(types.ConventionTarget, FuncValue(fn), []ir.Value{p, dropContent}, nil)
}

// funcValue adapts an *ir.Function to ir.Value so it can be used as a call
// callee or stored into a closure's entry_fn/drop_fn slot.
type funcValue struct{ f *ir.Function }

func (v *funcValue) ID() int      { return 0 }
func (v *funcValue) Name() string { return v.f.Name() }
func (v *funcValue) ValueType() types.Type {
	params := make([]types.Type, len(v.f.Params()))
	for i, p := range v.f.Params() {
		params[i] = p.ValueType()
	}
	return types.FunctionPointerType{Convention: v.f.Convention(), Params: params, Result: v.f.Result()}
}
func (v *funcValue) String() string { return "@" + v.f.Name() }

// FuncValue exports funcValue's constructor so lower can reference any
// function (entry functions, drop functions, foreign declarations) as a
// call operand or closure slot value.
func FuncValue(f *ir.Function) ir.Value { return &funcValue{f: f} }
