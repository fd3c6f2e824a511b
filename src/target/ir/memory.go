package ir

import (
	"fmt"

	"lowerc/src/target/types"
)

// MemoryInst is a plain (non-atomic) load or store.
type MemoryInst struct {
	id       int
	name     string
	isStore  bool
	ptr      Value
	val      Value // set for store
	elemType types.Type
}

func (i *MemoryInst) ID() int      { return i.id }
func (i *MemoryInst) Name() string { return i.name }
func (i *MemoryInst) ValueType() types.Type {
	if i.isStore {
		return nil
	}
	return i.elemType
}
func (i *MemoryInst) String() string {
	if i.isStore {
		return fmt.Sprintf("store %s, %s", i.val.Name(), i.ptr.Name())
	}
	return fmt.Sprintf("%%%s = load %s", i.name, i.ptr.Name())
}

// LocalInst reserves a function-scoped stack slot of a given element type,
// used to merge the two (or more) arms of an If or Case into a single SSA
// value via a store in each arm followed by one load at the join block.
type LocalInst struct {
	id   int
	name string
	typ  types.Type
}

func (i *LocalInst) ID() int               { return i.id }
func (i *LocalInst) Name() string          { return i.name }
func (i *LocalInst) ValueType() types.Type { return types.PointerType{Elem: i.typ} }
func (i *LocalInst) String() string        { return fmt.Sprintf("%%%s = local %s", i.name, i.typ) }

// CreateLocal declares a stack slot holding a value of typ.
func (b *Block) CreateLocal(typ types.Type) *LocalInst {
	inst := &LocalInst{id: b.f.getID(), typ: typ}
	inst.name = b.nextName("local")
	b.emit(inst)
	return inst
}

// CreateLoad loads the pointee of ptr, typed as elemType.
func (b *Block) CreateLoad(ptr Value, elemType types.Type) *MemoryInst {
	inst := &MemoryInst{id: b.f.getID(), ptr: ptr, elemType: elemType}
	inst.name = b.nextName("load")
	b.emit(inst)
	return inst
}

// CreateStore stores val through ptr.
func (b *Block) CreateStore(val, ptr Value) *MemoryInst {
	inst := &MemoryInst{id: b.f.getID(), isStore: true, ptr: ptr, val: val}
	inst.name = b.nextName("store")
	b.emit(inst)
	return inst
}

// AllocInst allocates a heap block of the form { count: iptr; value: T },
// storing count = 0 and returning a pointer to the value slot (4.B).
type AllocInst struct {
	id   int
	name string
	typ  types.Type
}

func (i *AllocInst) ID() int               { return i.id }
func (i *AllocInst) Name() string          { return i.name }
func (i *AllocInst) ValueType() types.Type { return types.PointerType{Elem: i.typ} }
func (i *AllocInst) String() string        { return fmt.Sprintf("%%%s = alloc %s", i.name, i.typ) }

// CreateHeapAlloc emits a heap allocation of typ, counter pre-zeroed.
func (b *Block) CreateHeapAlloc(typ types.Type) *AllocInst {
	inst := &AllocInst{id: b.f.getID(), typ: typ}
	inst.name = b.nextName("heap")
	b.emit(inst)
	return inst
}

// FreeInst releases a heap block given its value pointer (4.B: subtract one
// slot to reach the count field, then release the whole block).
type FreeInst struct {
	id   int
	name string
	ptr  Value
}

func (i *FreeInst) ID() int               { return i.id }
func (i *FreeInst) Name() string          { return i.name }
func (i *FreeInst) ValueType() types.Type { return nil }
func (i *FreeInst) String() string        { return fmt.Sprintf("free %s", i.ptr.Name()) }

// CreateHeapFree emits a release of the heap block addressed by ptr.
func (b *Block) CreateHeapFree(ptr Value) *FreeInst {
	inst := &FreeInst{id: b.f.getID(), ptr: ptr}
	inst.name = b.nextName("free")
	b.emit(inst)
	return inst
}
