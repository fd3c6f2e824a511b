// Package ir is the target IR builder: the small imperative, SSA-like
// instruction set that lowering emits and that a code generator would hand
// to LLVM. It knows only primitive numbers, pointers, records, unions,
// functions and a fixed instruction set (load, store, branch, call, atomic
// load/store, compare-and-swap, bitwise, arithmetic, pointer arithmetic,
// heap allocate/free, bit-cast, deconstruct) — no register allocation, no
// target-specific codegen; that begins downstream of this package.
package ir

import "lowerc/src/target/types"

// Value is anything an instruction can reference as an operand: a previous
// instruction's result, a function parameter, or a global.
type Value interface {
	ID() int
	Name() string
	ValueType() types.Type
	String() string
}

// BuildError reports a structural mistake caught while building the target
// IR (an operand of the wrong kind, a block left unterminated) — the
// counterpart of source.CompileError for this layer.
type BuildError struct {
	Function string
	Message  string
}

func (e *BuildError) Error() string {
	if e.Function == "" {
		return "target ir: " + e.Message
	}
	return "target ir: in function " + e.Function + ": " + e.Message
}
