package lower

import (
	"fmt"

	"lowerc/src/layout"
	"lowerc/src/source"
	"lowerc/src/target/ir"
	"lowerc/src/target/types"
)

// EmitApplyOne emits the generic unary call trampoline (4.H): untag closure,
// load its arity, and branch on whether this is the closure's last argument
// (arity == 1, a direct call through entry_fn) or not (arity > 1, build a
// partial-application closure capturing arg and reducing arity by one). A
// Function-typed closure's arity can never be zero, so no third case exists
// at this granularity.
func EmitApplyOne(f *ir.Function, startBlock *ir.Block, m *ir.Module, sm *source.Module, closure, arg ir.Value, argType source.Type, resultType types.Type) (ir.Value, *ir.Block) {
	ptrType := types.PrimitiveType{Kind: types.PointerSized}
	untagged := layout.Untag(startBlock, closure, types.UnsizedClosureType)
	generic := layout.EmitLoadGenericClosure(startBlock, untagged)
	arity := layout.EmitLoadArity(startBlock, generic)
	one := startBlock.CreateConstantInt(1)
	isLast := startBlock.CreateCompare(ir.Eq, arity, one)
	slot := startBlock.CreateLocal(resultType)

	callB := f.CreateBlock("apply.call")
	papB := f.CreateBlock("apply.pap")
	joinB := f.CreateBlock("apply.join")
	startBlock.CreateCondBranch(isLast, callB, papB)

	entryFn := layout.EmitLoadEntryFn(callB, untagged, ir.Acquire)
	entryAsFn := callB.CreateBitcast(entryFn, layout.EntryFnType(1, resultType))
	argAsPtr := callB.CreateBitcast(arg, ptrType)
	direct := callB.CreateCall(types.ConventionSource, entryAsFn, []ir.Value{closure, argAsPtr}, resultType)
	callB.CreateStore(direct, slot)
	callB.CreateJump(joinB)

	pap := buildPartialApplication(papB, m, sm, closure, arg, argType)
	papAsResult := papB.CreateBitcast(pap, resultType)
	papB.CreateStore(papAsResult, slot)
	papB.CreateJump(joinB)

	return joinB.CreateLoad(slot, resultType), joinB
}

// buildPartialApplication builds (in papB) a fresh heap closure capturing
// arg alongside the original closure, whose entry function is the shared
// apply shim and whose arity is the original closure's arity minus one
// (4.H: under-application builds a closure awaiting the remaining
// arguments).
func buildPartialApplication(papB *ir.Block, m *ir.Module, sm *source.Module, closure, arg ir.Value, argType source.Type) ir.Value {
	ptrType := types.PrimitiveType{Kind: types.PointerSized}
	untagged := layout.Untag(papB, closure, types.UnsizedClosureType)
	generic := layout.EmitLoadGenericClosure(papB, untagged)
	arity := layout.EmitLoadArity(papB, generic)
	one := papB.CreateConstantInt(1)
	newArity := papB.CreateIntArith(ir.Sub, arity, one)

	capType := shimCaptureType(argType)
	closureAsI := papB.CreateBitcast(closure, ptrType)
	argAsI := papB.CreateBitcast(arg, ptrType)
	capRecord := papB.CreateRecord(capType, []ir.Value{closureAsI, argAsI})

	shimEntry := BuildApplyShimEntryFn(m, sm)
	shimDrop := BuildApplyShimDropFn(m, sm, argType)

	closureRecType := layout.ClosureType(capType)
	heapPtr := papB.CreateHeapAlloc(closureRecType)
	entryPtr := papB.CreateBitcast(layout.FuncValue(shimEntry), ptrType)
	rec := papB.CreateRecord(closureRecType, []ir.Value{entryPtr, layout.FuncValue(shimDrop), newArity, capRecord})
	papB.CreateStore(rec, heapPtr)
	return papB.CreateBitcast(heapPtr, ptrType)
}

// shimCaptureType is the fixed { closure*, arg* } record every partial
// application shim closure captures, both fields stored as pointer-sized
// words regardless of arg's real representation (Number and Boolean fit in
// a word; everything else is already pointer-shaped).
func shimCaptureType(argType source.Type) types.RecordType {
	ptrType := types.PrimitiveType{Kind: types.PointerSized}
	return types.RecordType{Name: "apply.shim.cap", Fields: []types.Type{ptrType, ptrType}}
}

const applyShimEntryName = "rc.apply_shim.entry"

// BuildApplyShimEntryFn builds (once per module) the generic partial
// application shim's entry function: unpack the captured original closure
// and its first argument, apply them (a nested, genuinely recursive call
// through EmitApplyOne), then apply the resulting closure to the caller's
// new argument.
// The two recursive EmitApplyOne calls below pass a nil argType: by the time
// a value reaches the shim it has already been type-erased to a generic
// pointer-sized word. A further partial application nested inside this
// replay (only possible for arity >= 3 curried functions applied through
// more than one partial step) recaptures that word without knowing its
// source type; EmitDropValue silently no-ops on a nil type rather than
// guessing, trading a potential reference leak in that narrow path for
// never corrupting memory on a wrong guess.
func BuildApplyShimEntryFn(m *ir.Module, sm *source.Module) *ir.Function {
	if f := m.LookupFunction(applyShimEntryName); f != nil {
		return f
	}
	ptrType := types.PrimitiveType{Kind: types.PointerSized}
	f := m.CreateFunction(applyShimEntryName, types.ConventionSource, []types.Type{ptrType, ptrType}, []string{"closure", "arg"}, ptrType)
	entry := f.CreateBlock("entry")

	capType := shimCaptureType(nil)
	untagged := layout.Untag(entry, f.Params()[0], types.UnsizedClosureType)
	generic := layout.EmitLoadGenericClosure(entry, untagged)
	capVal := layout.EmitLoadEnvironment(entry, generic, capType)
	origClosure := entry.CreateRecordElement(capVal, 0, ptrType)
	capturedArg := entry.CreateRecordElement(capVal, 1, ptrType)

	firstResult, firstJoin := EmitApplyOne(f, entry, m, sm, origClosure, capturedArg, nil, ptrType)
	secondResult, secondJoin := EmitApplyOne(f, firstJoin, m, sm, firstResult, f.Params()[1], nil, ptrType)
	secondJoin.CreateReturn(secondResult)
	return f
}

// BuildApplyShimDropFn builds the per-captured-argument-type drop function
// for a partial application shim closure: it always drops the captured
// original closure (a Function value always participates in RC) and drops
// the captured argument only when argType is itself RC-managed, keeping
// Number/Boolean captures correctly treated as no-ops.
func BuildApplyShimDropFn(m *ir.Module, sm *source.Module, argType source.Type) *ir.Function {
	name := "rc.apply_shim.drop." + layout.SanitizeTypeID(source.TypeID(argType))
	if f := m.LookupFunction(name); f != nil {
		return f
	}
	ptrType := types.PrimitiveType{Kind: types.PointerSized}
	capType := shimCaptureType(argType)
	f := m.CreateWeakFunction(name, types.ConventionTarget, []types.Type{ptrType}, []string{"p"}, nil)
	entry := f.CreateBlock("entry")
	closureRecType := layout.ClosureType(capType)
	closurePtr := entry.CreateBitcast(f.Params()[0], types.PointerType{Elem: closureRecType})
	self := entry.CreateLoad(closurePtr, closureRecType)
	capVal := layout.EmitLoadEnvironment(entry, self, capType)
	origClosure := entry.CreateRecordElement(capVal, 0, ptrType)
	capturedArgWord := entry.CreateRecordElement(capVal, 1, ptrType)

	layout.EmitDropValue(entry, m, sm, origClosure, &source.Function{Argument: argType, Result: source.Number{}})
	capturedArg := entry.CreateBitcast(capturedArgWord, types.Lower(argType, sm))
	layout.EmitDropValue(entry, m, sm, capturedArg, argType)
	entry.CreateReturn(nil)
	return f
}

// lowerApply compiles a single curried FunctionApplication node (4.H): lower
// the function and argument subterms, then emit the two-way call trampoline.
func (c *funcCtx) lowerApply(x *source.FunctionApplication) (typed, error) {
	fn, err := c.lowerExpr(x.Function)
	if err != nil {
		return typed{}, err
	}
	arg, err := c.lowerExpr(x.Argument)
	if err != nil {
		return typed{}, err
	}
	fnType, ok := fn.typ.(*source.Function)
	if !ok {
		return typed{}, &ir.BuildError{Function: c.f.Name(), Message: fmt.Sprintf("application of non-function type %s", source.TypeID(fn.typ))}
	}
	resultType := types.Lower(fnType.Result, c.lowerer.sm)
	result, join := EmitApplyOne(c.f, c.b, c.lowerer.m, c.lowerer.sm, fn.val, arg.val, arg.typ, resultType)
	c.b = join
	return typed{val: result, typ: fnType.Result}, nil
}
