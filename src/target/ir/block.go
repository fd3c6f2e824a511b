package ir

import (
	"fmt"
	"strings"

	"lowerc/src/target/types"
)

// Block is a basic block: a straight-line instruction sequence terminated
// by exactly one branch, call-then-branch, return or unreachable.
type Block struct {
	f            *Function
	id           int
	name         string
	term         Value
	instructions []Value
}

// ID returns the block's unique identifier within its function.
func (b *Block) ID() int { return b.id }

// Name returns the block's label.
func (b *Block) Name() string { return b.name }

func (b *Block) emit(v Value) {
	b.instructions = append(b.instructions, v)
}

func (b *Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.name)
	for _, inst := range b.instructions {
		fmt.Fprintf(&sb, "\t%s\n", inst.String())
	}
	if b.term == nil {
		sb.WriteString("\t; unterminated\n")
	}
	return sb.String()
}

func (b *Block) nextName(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, b.f.getID())
}

// ----- constants -----

// CreateConstantFloat emits a Number literal.
func (b *Block) CreateConstantFloat(v float64) *Constant {
	c := &Constant{id: b.f.getID(), typ: types.PrimitiveType{Kind: types.Float64}, float: v}
	c.name = b.nextName("num")
	b.emit(c)
	return c
}

// CreateConstantBool emits a Boolean literal.
func (b *Block) CreateConstantBool(v bool) *Constant {
	c := &Constant{id: b.f.getID(), typ: types.PrimitiveType{Kind: types.Bool1}, boolean: v}
	c.name = b.nextName("bool")
	b.emit(c)
	return c
}

// CreateConstantInt emits a pointer-sized integer constant: arities, tags,
// reinterpreted variant payloads.
func (b *Block) CreateConstantInt(v int64) *Constant {
	c := &Constant{id: b.f.getID(), typ: types.PrimitiveType{Kind: types.PointerSized}, integer: v}
	c.name = b.nextName("int")
	b.emit(c)
	return c
}

// CreateGlobalRef emits a reference to a module global (a function pointer,
// a static string, or a type-info record).
func (b *Block) CreateGlobalRef(g *Global) *Constant {
	c := &Constant{id: b.f.getID(), typ: g.ValueType(), global: g}
	c.name = b.nextName("gref")
	b.emit(c)
	return c
}
