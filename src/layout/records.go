package layout

import (
	"lowerc/src/source"
	"lowerc/src/target/ir"
	"lowerc/src/target/types"
)

func recordCloneFnName(name string) string { return "clone_" + name }
func recordDropFnName(name string) string  { return "drop_" + name }
func recordFieldsDropFnName(name string) string { return name + ".fields.drop" }

// closureFieldsDropName is the content-dropper passed to drop_pointer for
// every Function-typed value: it loads the closure's own drop_fn and
// invokes it (4.D: "drop_fn ... called when the closure's reference count
// transitions to freed").
const closureFieldsDropName = "closure.fields.drop"

// BuildClosureFieldsDropFn builds (once per module) the drop_pointer
// content-dropper shared by every closure value, regardless of its sized
// environment type: it reads the generic unsized-closure view of the
// block, loads drop_fn, and calls it with the closure pointer itself.
func BuildClosureFieldsDropFn(m *ir.Module) *ir.Function {
	if f := m.LookupFunction(closureFieldsDropName); f != nil {
		return f
	}
	ptrType := types.PrimitiveType{Kind: types.PointerSized}
	f := m.CreateWeakFunction(closureFieldsDropName, types.ConventionTarget, []types.Type{ptrType}, []string{"p"}, nil)
	entry := f.CreateBlock("entry")
	closurePtr := entry.CreateBitcast(f.Params()[0], types.PointerType{Elem: types.UnsizedClosureType})
	closure := entry.CreateLoad(closurePtr, types.UnsizedClosureType)
	dropFn := EmitLoadDropFn(entry, closure)
	entry.CreateCall(types.ConventionTarget, dropFn, []ir.Value{f.Params()[0]}, nil)
	entry.CreateReturn(nil)
	return f
}

// BuildRecordCloneFn builds (once per module) clone_<name>(record): clone
// the heap pointer if the record is boxed, otherwise recursively clone
// every element (4.C).
func BuildRecordCloneFn(m *ir.Module, sm *source.Module, name string) *ir.Function {
	fname := recordCloneFnName(name)
	if f := m.LookupFunction(fname); f != nil {
		return f
	}
	body := sm.LookupRecordBody(name)
	recType := types.Lower(&source.Record{Name: name}, sm)
	f := m.CreateWeakFunction(fname, types.ConventionTarget, []types.Type{recType}, []string{"r"}, recType)
	entry := f.CreateBlock("entry")
	val := f.Params()[0]
	if pt, boxed := recType.(types.PointerType); boxed {
		_ = pt
		EmitCallClonePointer(entry, m, val)
		entry.CreateReturn(val)
		return f
	}
	for i, elemType := range body.Elements {
		lowered := types.Lower(elemType, sm)
		elem := entry.CreateRecordElement(val, i, lowered)
		EmitCloneValue(entry, m, sm, elem, elemType)
	}
	entry.CreateReturn(val)
	return f
}

// BuildRecordDropFn builds (once per module) drop_<name>(record): drop the
// heap pointer (with a content-dropper that recursively drops every
// element) if boxed, otherwise recursively drop every element (4.C).
func BuildRecordDropFn(m *ir.Module, sm *source.Module, name string) *ir.Function {
	fname := recordDropFnName(name)
	if f := m.LookupFunction(fname); f != nil {
		return f
	}
	body := sm.LookupRecordBody(name)
	recType := types.Lower(&source.Record{Name: name}, sm)
	f := m.CreateWeakFunction(fname, types.ConventionTarget, []types.Type{recType}, []string{"r"}, nil)
	entry := f.CreateBlock("entry")
	val := f.Params()[0]
	if _, boxed := recType.(types.PointerType); boxed {
		fields := buildRecordFieldsDropFn(m, sm, name, body)
		EmitCallDropPointer(entry, m, val, FuncValue(fields))
		entry.CreateReturn(nil)
		return f
	}
	for i, elemType := range body.Elements {
		lowered := types.Lower(elemType, sm)
		elem := entry.CreateRecordElement(val, i, lowered)
		EmitDropValue(entry, m, sm, elem, elemType)
	}
	entry.CreateReturn(nil)
	return f
}

// buildRecordFieldsDropFn builds the drop_pointer content-dropper for a
// boxed record: given the untagged value pointer (reinterpreted as a
// pointer-sized word), load the unboxed record and drop each field.
func buildRecordFieldsDropFn(m *ir.Module, sm *source.Module, name string, body *source.RecordBody) *ir.Function {
	fname := recordFieldsDropFnName(name)
	if f := m.LookupFunction(fname); f != nil {
		return f
	}
	unboxed := types.RecordType{Name: name}
	fields := make([]types.Type, len(body.Elements))
	for i, e := range body.Elements {
		fields[i] = types.Lower(e, sm)
	}
	unboxed.Fields = fields
	ptrType := types.PrimitiveType{Kind: types.PointerSized}
	f := m.CreateWeakFunction(fname, types.ConventionTarget, []types.Type{ptrType}, []string{"p"}, nil)
	entry := f.CreateBlock("entry")
	recPtr := entry.CreateBitcast(f.Params()[0], types.PointerType{Elem: unboxed})
	rec := entry.CreateLoad(recPtr, unboxed)
	for i, elemType := range body.Elements {
		elem := entry.CreateRecordElement(rec, i, fields[i])
		EmitDropValue(entry, m, sm, elem, elemType)
	}
	entry.CreateReturn(nil)
	return f
}

// EmitCloneValue emits a type-directed clone of val (of source type t):
// Number/Boolean are no-ops; ByteString and Function clone their heap
// pointer; Record calls the emitted record-clone function; Variant
// dispatches through the type-info table (4.F CloneVariables).
func EmitCloneValue(b *ir.Block, m *ir.Module, sm *source.Module, val ir.Value, t source.Type) {
	switch x := t.(type) {
	case source.Number, source.Boolean:
		// no-op
	case source.ByteString:
		ptr := b.CreateRecordElement(val, 0, types.PointerType{Elem: types.PrimitiveType{Kind: types.Byte}})
		EmitCallClonePointer(b, m, ptr)
	case *source.Function:
		EmitCallClonePointer(b, m, val)
	case *source.Record:
		fn := BuildRecordCloneFn(m, sm, x.Name)
		b.CreateCall(types.ConventionTarget, FuncValue(fn), []ir.Value{val}, fn.Result())
	case source.Variant:
		emitVariantDispatch(b, m, val, true)
	}
}

// EmitDropValue emits a type-directed drop of val (of source type t),
// symmetric with EmitCloneValue (4.F DropVariables).
func EmitDropValue(b *ir.Block, m *ir.Module, sm *source.Module, val ir.Value, t source.Type) {
	switch x := t.(type) {
	case source.Number, source.Boolean:
		// no-op
	case source.ByteString:
		ptr := b.CreateRecordElement(val, 0, types.PointerType{Elem: types.PrimitiveType{Kind: types.Byte}})
		noop := BuildNoopDropContentFn(m)
		EmitCallDropPointer(b, m, ptr, FuncValue(noop))
	case *source.Function:
		fields := BuildClosureFieldsDropFn(m)
		EmitCallDropPointer(b, m, val, FuncValue(fields))
	case *source.Record:
		fn := BuildRecordDropFn(m, sm, x.Name)
		b.CreateCall(types.ConventionTarget, FuncValue(fn), []ir.Value{val}, nil)
	case source.Variant:
		emitVariantDispatch(b, m, val, false)
	}
}

// noopDropContentName is the drop_pointer content-dropper for leaf heap
// values (ByteString bytes) that have no children to recursively drop.
const noopDropContentName = "rc.noop_drop_content"

// BuildNoopDropContentFn builds (once per module) a drop_content callback
// that does nothing, used for heap values with no children to recurse into.
func BuildNoopDropContentFn(m *ir.Module) *ir.Function {
	if f := m.LookupFunction(noopDropContentName); f != nil {
		return f
	}
	ptrType := types.PrimitiveType{Kind: types.PointerSized}
	f := m.CreateWeakFunction(noopDropContentName, types.ConventionTarget, []types.Type{ptrType}, []string{"p"}, nil)
	entry := f.CreateBlock("entry")
	entry.CreateReturn(nil)
	return f
}

// emitVariantDispatch loads a variant's type-info record and calls either
// its clone_fn or its drop_fn with the payload word (4.A/4.C).
func emitVariantDispatch(b *ir.Block, m *ir.Module, val ir.Value, clone bool) {
	tagPtr := b.CreateRecordElement(val, 0, types.PointerType{Elem: types.TypeInfoType})
	payload := b.CreateRecordElement(val, 1, types.PrimitiveType{Kind: types.PointerSized})
	info := b.CreateLoad(tagPtr, types.TypeInfoType)
	idx := 1
	if clone {
		idx = 0
	}
	fn := b.CreateRecordElement(info, idx, types.TypeInfoType.Fields[idx])
	b.CreateCall(types.ConventionTarget, fn, []ir.Value{payload}, nil)
}

// VariantCloneFnName and VariantDropFnName name the per-payload-type
// functions referenced indirectly through a variant's type-info record,
// keyed by the deterministic type_id string (4.C).
func VariantCloneFnName(tid string) string { return "variant_clone_" + sanitizeTypeID(tid) }
func VariantDropFnName(tid string) string  { return "variant_drop_" + sanitizeTypeID(tid) }
func TypeInfoGlobalName(tid string) string { return "typeinfo_" + sanitizeTypeID(tid) }

// SanitizeTypeID exports sanitizeTypeID for callers outside the package
// (lower's apply shims key their own per-argument-type functions the same
// way a variant's type-info functions do).
func SanitizeTypeID(tid string) string { return sanitizeTypeID(tid) }

// UnboxVariantPayload recovers a value of source type inner from a variant's
// pointer-sized payload word, for reading (a Case alternative's bound
// name) rather than cloning or dropping.
func UnboxVariantPayload(b *ir.Block, sm *source.Module, payload ir.Value, inner source.Type) ir.Value {
	lowered := types.Lower(inner, sm)
	if types.VariantPayloadBoxed(inner) {
		ptr := b.CreateBitcast(payload, types.PointerType{Elem: lowered})
		return b.CreateLoad(ptr, lowered)
	}
	return b.CreateBitcast(payload, lowered)
}

// BoxVariantPayload is UnboxVariantPayload's inverse, used when constructing
// a Variant value: ByteString payloads are heap-boxed, everything else is
// bit-cast directly into the pointer-sized payload word.
func BoxVariantPayload(b *ir.Block, sm *source.Module, val ir.Value, inner source.Type) ir.Value {
	lowered := types.Lower(inner, sm)
	if types.VariantPayloadBoxed(inner) {
		heapPtr := b.CreateHeapAlloc(lowered)
		b.CreateStore(val, heapPtr)
		return b.CreateBitcast(heapPtr, types.PrimitiveType{Kind: types.PointerSized})
	}
	return b.CreateBitcast(val, types.PrimitiveType{Kind: types.PointerSized})
}

func sanitizeTypeID(tid string) string {
	out := make([]byte, len(tid))
	for i := 0; i < len(tid); i++ {
		c := tid[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

// BuildVariantPayloadFns builds the variant_clone_<tid>/variant_drop_<tid>
// functions for a payload of source type inner, unboxing according to 4.A
// (ByteString is boxed; every other payload type fits in the pointer-sized
// word and is bit-cast in place).
func BuildVariantPayloadFns(m *ir.Module, sm *source.Module, inner source.Type) (clone, drop *ir.Function) {
	tid := source.TypeID(inner)
	cloneName := VariantCloneFnName(tid)
	dropName := VariantDropFnName(tid)
	ptrType := types.PrimitiveType{Kind: types.PointerSized}

	if f := m.LookupFunction(cloneName); f != nil {
		clone = f
	} else {
		clone = m.CreateWeakFunction(cloneName, types.ConventionTarget, []types.Type{ptrType}, []string{"payload"}, nil)
		entry := clone.CreateBlock("entry")
		unboxPayloadAndDispatch(entry, m, sm, clone.Params()[0], inner, true)
		entry.CreateReturn(nil)
	}
	if f := m.LookupFunction(dropName); f != nil {
		drop = f
	} else {
		drop = m.CreateWeakFunction(dropName, types.ConventionTarget, []types.Type{ptrType}, []string{"payload"}, nil)
		entry := drop.CreateBlock("entry")
		unboxPayloadAndDispatch(entry, m, sm, drop.Params()[0], inner, false)
		entry.CreateReturn(nil)
	}
	return clone, drop
}

// unboxPayloadAndDispatch recovers the value of source type inner from a
// variant's pointer-sized payload word (boxed on the heap iff inner is
// ByteString, otherwise bit-cast in place) and clones or drops it.
func unboxPayloadAndDispatch(b *ir.Block, m *ir.Module, sm *source.Module, payload ir.Value, inner source.Type, clone bool) {
	lowered := types.Lower(inner, sm)
	if types.VariantPayloadBoxed(inner) {
		asPtr := b.CreateBitcast(payload, types.PointerType{Elem: lowered})
		boxed := b.CreateLoad(asPtr, lowered)
		if clone {
			EmitCloneValue(b, m, sm, boxed, inner)
		} else {
			EmitDropValue(b, m, sm, boxed, inner)
		}
		return
	}
	val := b.CreateBitcast(payload, lowered)
	if clone {
		EmitCloneValue(b, m, sm, val, inner)
	} else {
		EmitDropValue(b, m, sm, val, inner)
	}
}
