package lower

import (
	"lowerc/src/layout"
	"lowerc/src/source"
	"lowerc/src/target/ir"
	"lowerc/src/target/types"
)

// buildThunkProtocol builds the three entry functions a thunk's closure
// cycles through (4.G) and installs the first of them, initialEntry, as the
// definition's published entry function:
//
//   - initialEntry: CAS the closure's entry pointer from its own address to
//     lockedEntry's (acquire on success, relaxed on failure). On success,
//     drop the now-stale captured environment, call forceFn, clone the
//     result so the cached copy holds its own reference, store the clone
//     into the payload union, install normalDrop, publish normalEntry
//     (release), and return the uncloned result. On failure, another
//     thread has already started or finished forcing; reload the entry
//     pointer and tail-call through it.
//   - lockedEntry: compares the live entry pointer against its own address;
//     equal means forcing is still in progress on the same thread, which
//     cannot happen under this protocol's single-force-per-thread use and
//     is unreachable; unequal means the transition to normal already
//     completed, so fall through to whatever is now installed.
//   - normalEntry: load the cached result, clone it, and return the clone.
//
// normalDrop replaces dropFn once a thunk settles into the normal state: it
// drops the cached result instead of the (by then overwritten) environment.
func buildThunkProtocol(m *ir.Module, sm *source.Module, d *source.Definition, env types.Type, resultType types.Type, forceFn, envDropFn *ir.Function) *ir.Function {
	payloadType := layout.ThunkPayloadType(env, resultType)
	closureRecType := layout.ClosureType(payloadType)
	ptrType := types.PrimitiveType{Kind: types.PointerSized}

	normalEntry := m.CreateFunction(layout.ThunkNormalEntryName(d.Name), types.ConventionSource, []types.Type{ptrType}, []string{"closure"}, resultType)
	lockedEntry := m.CreateFunction(layout.ThunkLockedEntryName(d.Name), types.ConventionSource, []types.Type{ptrType}, []string{"closure"}, resultType)
	initialEntry := m.CreateFunction(layout.ThunkInitialEntryName(d.Name), types.ConventionSource, []types.Type{ptrType}, []string{"closure"}, resultType)
	normalDrop := m.CreateWeakFunction(layout.ThunkNormalDropName(d.Name), types.ConventionTarget, []types.Type{ptrType}, []string{"p"}, nil)

	{
		b := normalEntry.CreateBlock("entry")
		selfPtr := layout.Untag(b, normalEntry.Params()[0], closureRecType)
		self := b.CreateLoad(selfPtr, closureRecType)
		union := layout.EmitLoadEnvironment(b, self, payloadType)
		cached := b.CreateUnionElement(union, layout.ThunkMemberResult, resultType)
		layout.EmitCloneValue(b, m, sm, cached, d.ResultType)
		b.CreateReturn(cached)
	}

	{
		b := normalDrop.CreateBlock("entry")
		closurePtr := b.CreateBitcast(normalDrop.Params()[0], types.PointerType{Elem: closureRecType})
		self := b.CreateLoad(closurePtr, closureRecType)
		union := layout.EmitLoadEnvironment(b, self, payloadType)
		result := b.CreateUnionElement(union, layout.ThunkMemberResult, resultType)
		layout.EmitDropValue(b, m, sm, result, d.ResultType)
		b.CreateReturn(nil)
	}

	{
		b := lockedEntry.CreateBlock("entry")
		untagged := layout.Untag(b, lockedEntry.Params()[0], closureRecType)
		current := layout.EmitLoadEntryFn(b, untagged, ir.Acquire)
		self := b.CreateBitcast(layout.FuncValue(lockedEntry), ptrType)
		stillLocked := b.CreateCompare(ir.Eq, current, self)

		stuckB := lockedEntry.CreateBlock("thunk.stuck")
		settledB := lockedEntry.CreateBlock("thunk.settled")
		b.CreateCondBranch(stillLocked, stuckB, settledB)

		stuckB.CreateUnreachable()

		settledFn := settledB.CreateBitcast(current, layout.EntryFnType(0, resultType))
		settledResult := settledB.CreateCall(types.ConventionSource, settledFn, []ir.Value{lockedEntry.Params()[0]}, resultType)
		settledB.CreateReturn(settledResult)
	}

	{
		b := initialEntry.CreateBlock("entry")
		untagged := layout.Untag(b, initialEntry.Params()[0], closureRecType)
		expected := b.CreateBitcast(layout.FuncValue(initialEntry), ptrType)
		lockedVal := b.CreateBitcast(layout.FuncValue(lockedEntry), ptrType)
		won := layout.EmitEntryFnCAS(b, untagged, expected, lockedVal)

		forceB := initialEntry.CreateBlock("thunk.force")
		retryB := initialEntry.CreateBlock("thunk.retry")
		b.CreateCondBranch(won, forceB, retryB)

		forceB.CreateCall(types.ConventionTarget, layout.FuncValue(envDropFn), []ir.Value{untagged}, nil)
		forced := forceB.CreateCall(types.ConventionSource, layout.FuncValue(forceFn), []ir.Value{initialEntry.Params()[0]}, resultType)

		cached := forced
		layout.EmitCloneValue(forceB, m, sm, cached, d.ResultType)
		resultUnion := forceB.CreateUnion(payloadType, layout.ThunkMemberResult, cached)
		fieldPtr := forceB.CreatePointerArith(untagged, layout.FieldEnvironment, types.PointerType{Elem: payloadType})
		forceB.CreateStore(resultUnion, fieldPtr)

		normalDropPtr := forceB.CreateBitcast(layout.FuncValue(normalDrop), ptrType)
		layout.EmitStoreDropFn(forceB, untagged, normalDropPtr)

		normalEntryPtr := forceB.CreateBitcast(layout.FuncValue(normalEntry), ptrType)
		layout.EmitStoreEntryFn(forceB, untagged, normalEntryPtr, ir.Release)

		forceB.CreateReturn(forced)

		retryCurrent := layout.EmitLoadEntryFn(retryB, untagged, ir.Acquire)
		retryFn := retryB.CreateBitcast(retryCurrent, layout.EntryFnType(0, resultType))
		retryResult := retryB.CreateCall(types.ConventionSource, retryFn, []ir.Value{initialEntry.Params()[0]}, resultType)
		retryB.CreateReturn(retryResult)
	}

	return initialEntry
}

// EmitForceThunk reads whichever entry function is currently installed on
// closure (initial, locked, or normal — 4.G) and calls through it with no
// extra arguments, transparently forcing at every Variable read of a
// thunk-bound name (the source IR has no explicit force node).
func EmitForceThunk(b *ir.Block, closure ir.Value, resultType types.Type) ir.Value {
	untagged := layout.Untag(b, closure, types.UnsizedClosureType)
	entryFn := layout.EmitLoadEntryFn(b, untagged, ir.Acquire)
	entryAsFn := b.CreateBitcast(entryFn, layout.EntryFnType(0, resultType))
	return b.CreateCall(types.ConventionSource, entryAsFn, []ir.Value{closure}, resultType)
}
