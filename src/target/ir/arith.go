package ir

import (
	"fmt"

	"lowerc/src/target/types"
)

// ArithOp enumerates the target IR's binary arithmetic operations, mirroring
// source.ArithmeticOperator one for one.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
)

var arithNames = [...]string{"add", "sub", "mul", "div"}

func (o ArithOp) String() string { return arithNames[o] }

// ArithInst is a binary floating-point arithmetic instruction.
type ArithInst struct {
	id       int
	name     string
	op       ArithOp
	lhs, rhs Value
}

func (i *ArithInst) ID() int               { return i.id }
func (i *ArithInst) Name() string          { return i.name }
func (i *ArithInst) ValueType() types.Type { return types.PrimitiveType{Kind: types.Float64} }
func (i *ArithInst) String() string {
	return fmt.Sprintf("%%%s = %s %s, %s", i.name, i.op, i.lhs.Name(), i.rhs.Name())
}

// CreateArith emits a binary arithmetic instruction over Number operands.
func (b *Block) CreateArith(op ArithOp, lhs, rhs Value) *ArithInst {
	inst := &ArithInst{id: b.f.getID(), op: op, lhs: lhs, rhs: rhs}
	inst.name = b.nextName("arith")
	b.emit(inst)
	return inst
}

// IntArithInst is a binary pointer-sized-integer arithmetic instruction. It
// is distinct from ArithInst, which is reserved for source Number (f64)
// values: IntArithInst backs target-IR-only bookkeeping math such as a
// partial-application closure's reduced arity.
type IntArithInst struct {
	id       int
	name     string
	op       ArithOp
	lhs, rhs Value
}

func (i *IntArithInst) ID() int      { return i.id }
func (i *IntArithInst) Name() string { return i.name }
func (i *IntArithInst) ValueType() types.Type {
	return types.PrimitiveType{Kind: types.PointerSized}
}
func (i *IntArithInst) String() string {
	return fmt.Sprintf("%%%s = i.%s %s, %s", i.name, i.op, i.lhs.Name(), i.rhs.Name())
}

// CreateIntArith emits a binary arithmetic instruction over pointer-sized
// integer operands.
func (b *Block) CreateIntArith(op ArithOp, lhs, rhs Value) *IntArithInst {
	inst := &IntArithInst{id: b.f.getID(), op: op, lhs: lhs, rhs: rhs}
	inst.name = b.nextName("iarith")
	b.emit(inst)
	return inst
}

// BitwiseOp enumerates the pointer-sized-integer bitwise operations the
// pointer-tagging primitives (4.B) need.
type BitwiseOp int

const (
	And BitwiseOp = iota
	Or
	Xor
)

var bitwiseNames = [...]string{"and", "or", "xor"}

func (o BitwiseOp) String() string { return bitwiseNames[o] }

// BitwiseInst is a binary bitwise instruction over pointer-sized integers.
type BitwiseInst struct {
	id       int
	name     string
	op       BitwiseOp
	lhs, rhs Value
}

func (i *BitwiseInst) ID() int      { return i.id }
func (i *BitwiseInst) Name() string { return i.name }
func (i *BitwiseInst) ValueType() types.Type {
	return types.PrimitiveType{Kind: types.PointerSized}
}
func (i *BitwiseInst) String() string {
	return fmt.Sprintf("%%%s = %s %s, %s", i.name, i.op, i.lhs.Name(), i.rhs.Name())
}

// CreateBitwise emits a bitwise AND/OR/XOR over pointer-sized-integer
// operands: pointer tag tests and tag bit manipulation (4.B) route through
// this rather than through CreateArith, which is reserved for Number
// operands.
func (b *Block) CreateBitwise(op BitwiseOp, lhs, rhs Value) *BitwiseInst {
	inst := &BitwiseInst{id: b.f.getID(), op: op, lhs: lhs, rhs: rhs}
	inst.name = b.nextName("bitop")
	b.emit(inst)
	return inst
}

// CompareOp enumerates the target IR's relational operations, mirroring
// source.ComparisonOperator one for one.
type CompareOp int

const (
	Eq CompareOp = iota
	Neq
	Lt
	Le
	Gt
	Ge
)

var compareNames = [...]string{"eq", "neq", "lt", "le", "gt", "ge"}

func (o CompareOp) String() string { return compareNames[o] }

// CompareInst is a binary relational instruction producing a Boolean.
type CompareInst struct {
	id       int
	name     string
	op       CompareOp
	lhs, rhs Value
}

func (i *CompareInst) ID() int               { return i.id }
func (i *CompareInst) Name() string          { return i.name }
func (i *CompareInst) ValueType() types.Type { return types.PrimitiveType{Kind: types.Bool1} }
func (i *CompareInst) String() string {
	return fmt.Sprintf("%%%s = cmp.%s %s, %s", i.name, i.op, i.lhs.Name(), i.rhs.Name())
}

// CreateCompare emits a relational instruction; the ints-vs-integer
// representation used for variant tag comparisons also routes through this
// (tags are bit-cast to pointer-sized integers before comparing, per 4.F).
func (b *Block) CreateCompare(op CompareOp, lhs, rhs Value) *CompareInst {
	inst := &CompareInst{id: b.f.getID(), op: op, lhs: lhs, rhs: rhs}
	inst.name = b.nextName("cmp")
	b.emit(inst)
	return inst
}

// BitcastInst reinterprets a value's bit pattern as another type, used for
// boxing variant payloads into pointer-sized words and for viewing a sized
// closure's heap pointer as an unsized closure pointer at a LetRecursive
// binding site.
type BitcastInst struct {
	id   int
	name string
	typ  types.Type
	val  Value
}

func (i *BitcastInst) ID() int               { return i.id }
func (i *BitcastInst) Name() string          { return i.name }
func (i *BitcastInst) ValueType() types.Type { return i.typ }
func (i *BitcastInst) String() string {
	return fmt.Sprintf("%%%s = bitcast %s to %s", i.name, i.val.Name(), i.typ)
}

// CreateBitcast emits a bit-cast of val to typ.
func (b *Block) CreateBitcast(val Value, typ types.Type) *BitcastInst {
	inst := &BitcastInst{id: b.f.getID(), typ: typ, val: val}
	inst.name = b.nextName("cast")
	b.emit(inst)
	return inst
}

// PtrArithInst computes ptr + offset (in units of the pointee type), used
// for stepping from a heap pointer to its preceding reference counter slot
// and for indexing into unboxed record storage.
type PtrArithInst struct {
	id     int
	name   string
	typ    types.Type
	ptr    Value
	offset int64
}

func (i *PtrArithInst) ID() int               { return i.id }
func (i *PtrArithInst) Name() string          { return i.name }
func (i *PtrArithInst) ValueType() types.Type { return i.typ }
func (i *PtrArithInst) String() string {
	return fmt.Sprintf("%%%s = getelementptr %s, %d", i.name, i.ptr.Name(), i.offset)
}

// CreatePointerArith emits ptr + offset, typed as resultType.
func (b *Block) CreatePointerArith(ptr Value, offset int64, resultType types.Type) *PtrArithInst {
	inst := &PtrArithInst{id: b.f.getID(), typ: resultType, ptr: ptr, offset: offset}
	inst.name = b.nextName("gep")
	b.emit(inst)
	return inst
}
