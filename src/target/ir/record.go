package ir

import (
	"fmt"
	"strings"

	"lowerc/src/target/types"
)

// RecordInst builds an unboxed record value from its elements, in order
// (4.F: "lower each element; build an unboxed record value").
type RecordInst struct {
	id     int
	name   string
	typ    types.RecordType
	elems  []Value
}

func (i *RecordInst) ID() int               { return i.id }
func (i *RecordInst) Name() string          { return i.name }
func (i *RecordInst) ValueType() types.Type { return i.typ }
func (i *RecordInst) String() string {
	parts := make([]string, len(i.elems))
	for j, e := range i.elems {
		parts[j] = e.Name()
	}
	return fmt.Sprintf("%%%s = record %s { %s }", i.name, i.typ.Name, strings.Join(parts, ", "))
}

// CreateRecord builds an unboxed record of typ from elems.
func (b *Block) CreateRecord(typ types.RecordType, elems []Value) *RecordInst {
	inst := &RecordInst{id: b.f.getID(), typ: typ, elems: elems}
	inst.name = b.nextName("rec")
	b.emit(inst)
	return inst
}

// RecordElemInst projects element Index out of an unboxed record value
// (the load-through-pointer step for boxed records happens via a prior
// CreateLoad; this instruction only ever sees the unboxed value).
type RecordElemInst struct {
	id    int
	name  string
	typ   types.Type
	rec   Value
	index int
}

func (i *RecordElemInst) ID() int               { return i.id }
func (i *RecordElemInst) Name() string          { return i.name }
func (i *RecordElemInst) ValueType() types.Type { return i.typ }
func (i *RecordElemInst) String() string {
	return fmt.Sprintf("%%%s = extract %s[%d]", i.name, i.rec.Name(), i.index)
}

// CreateRecordElement projects the index-th element (of type elemType) out
// of an unboxed record value rec.
func (b *Block) CreateRecordElement(rec Value, index int, elemType types.Type) *RecordElemInst {
	inst := &RecordElemInst{id: b.f.getID(), typ: elemType, rec: rec, index: index}
	inst.name = b.nextName("elem")
	b.emit(inst)
	return inst
}

// UnionInst constructs a union value by injecting val as member memberIndex;
// storage is shared across all members (4.D: the thunk payload union).
type UnionInst struct {
	id          int
	name        string
	typ         types.UnionType
	memberIndex int
	val         Value
}

func (i *UnionInst) ID() int               { return i.id }
func (i *UnionInst) Name() string          { return i.name }
func (i *UnionInst) ValueType() types.Type { return i.typ }
func (i *UnionInst) String() string {
	return fmt.Sprintf("%%%s = union %s[%d] = %s", i.name, i.typ.Name, i.memberIndex, i.val.Name())
}

// CreateUnion injects val as the active member memberIndex of typ.
func (b *Block) CreateUnion(typ types.UnionType, memberIndex int, val Value) *UnionInst {
	inst := &UnionInst{id: b.f.getID(), typ: typ, memberIndex: memberIndex, val: val}
	inst.name = b.nextName("union")
	b.emit(inst)
	return inst
}

// UnionElemInst reads union value u as its memberIndex member; the caller
// is responsible for only doing so when that member is the active one
// (for thunks, this is discriminated externally by the entry-function
// pointer, per 4.G).
type UnionElemInst struct {
	id          int
	name        string
	typ         types.Type
	u           Value
	memberIndex int
}

func (i *UnionElemInst) ID() int               { return i.id }
func (i *UnionElemInst) Name() string          { return i.name }
func (i *UnionElemInst) ValueType() types.Type { return i.typ }
func (i *UnionElemInst) String() string {
	return fmt.Sprintf("%%%s = extract.union %s[%d]", i.name, i.u.Name(), i.memberIndex)
}

// CreateUnionElement reads the memberIndex member (of type elemType) out of
// union value u.
func (b *Block) CreateUnionElement(u Value, memberIndex int, elemType types.Type) *UnionElemInst {
	inst := &UnionElemInst{id: b.f.getID(), typ: elemType, u: u, memberIndex: memberIndex}
	inst.name = b.nextName("uelem")
	b.emit(inst)
	return inst
}
