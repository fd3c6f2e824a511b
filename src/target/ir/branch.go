package ir

import (
	"fmt"

	"lowerc/src/target/types"
)

// BranchInst terminates a block: conditionally to one of two successors,
// unconditionally to one successor, by returning a value, or by asserting
// the point is unreachable (an unmatched Case with no default, 4.F; a
// still-locked thunk, 4.G step 4).
type BranchInst struct {
	id          int
	name        string
	conditional bool
	unreachable bool
	isReturn    bool
	cond        Value
	thenB, elseB *Block
	target      *Block
	retVal      Value
}

func (i *BranchInst) ID() int               { return i.id }
func (i *BranchInst) Name() string          { return i.name }
func (i *BranchInst) ValueType() types.Type { return nil }
func (i *BranchInst) String() string {
	switch {
	case i.unreachable:
		return "unreachable"
	case i.isReturn:
		if i.retVal == nil {
			return "return"
		}
		return fmt.Sprintf("return %s", i.retVal.Name())
	case i.conditional:
		return fmt.Sprintf("branch %s, %s, %s", i.cond.Name(), i.thenB.Name(), i.elseB.Name())
	default:
		return fmt.Sprintf("jump %s", i.target.Name())
	}
}

// CreateCondBranch terminates b, jumping to thenB if cond is true and elseB
// otherwise.
func (b *Block) CreateCondBranch(cond Value, thenB, elseB *Block) *BranchInst {
	inst := &BranchInst{id: b.f.getID(), conditional: true, cond: cond, thenB: thenB, elseB: elseB}
	inst.name = b.nextName("br")
	b.emit(inst)
	b.term = inst
	return inst
}

// CreateJump terminates b with an unconditional branch to dst.
func (b *Block) CreateJump(dst *Block) *BranchInst {
	inst := &BranchInst{id: b.f.getID(), target: dst}
	inst.name = b.nextName("jump")
	b.emit(inst)
	b.term = inst
	return inst
}

// CreateReturn terminates b, returning val (nil for a void function).
func (b *Block) CreateReturn(val Value) *BranchInst {
	inst := &BranchInst{id: b.f.getID(), isReturn: true, retVal: val}
	inst.name = b.nextName("ret")
	b.emit(inst)
	b.term = inst
	return inst
}

// CreateUnreachable terminates b with an assertion that control can never
// reach this point.
func (b *Block) CreateUnreachable() *BranchInst {
	inst := &BranchInst{id: b.f.getID(), unreachable: true}
	inst.name = b.nextName("unreachable")
	b.emit(inst)
	b.term = inst
	return inst
}

// CallInst calls callee (a closure entry function, a drop function, or a
// foreign target-convention function) with args.
type CallInst struct {
	id         int
	name       string
	convention types.CallingConvention
	callee     Value
	args       []Value
	result     types.Type
}

func (i *CallInst) ID() int               { return i.id }
func (i *CallInst) Name() string          { return i.name }
func (i *CallInst) ValueType() types.Type { return i.result }
func (i *CallInst) String() string {
	parts := make([]string, len(i.args))
	for j, a := range i.args {
		parts[j] = a.Name()
	}
	if i.result == nil {
		return fmt.Sprintf("call[%s] %s(%v)", i.convention, i.callee.Name(), parts)
	}
	return fmt.Sprintf("%%%s = call[%s] %s(%v)", i.name, i.convention, i.callee.Name(), parts)
}

// CreateCall emits a call to callee under convention, returning result
// (nil for a void callee, e.g. a drop function).
func (b *Block) CreateCall(convention types.CallingConvention, callee Value, args []Value, result types.Type) *CallInst {
	inst := &CallInst{id: b.f.getID(), convention: convention, callee: callee, args: args, result: result}
	if result != nil {
		inst.name = b.nextName("call")
	}
	b.emit(inst)
	return inst
}
