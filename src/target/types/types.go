// Package types is the target-IR type algebra: the primitive, pointer,
// record, union and function types that source types lower into, plus the
// boxing and arity queries the lowering and layout packages consult.
package types

import (
	"fmt"
	"strings"

	"lowerc/src/source"
)

// Primitive enumerates the target IR's scalar kinds.
type Primitive int

const (
	Float64     Primitive = iota // Number
	Bool1                        // Boolean
	Byte                         // one octet, used for ByteString backing bytes
	PointerSized                 // a pointer-sized integer: counters, arity, tags, union-reinterpreted payloads
)

var primitiveNames = [...]string{"f64", "i1", "i8", "iptr"}

func (p Primitive) String() string { return primitiveNames[p] }

// CallingConvention distinguishes the compiler-chosen source convention used
// by closure entry functions from the platform/target convention used by
// drop functions and foreign bindings.
type CallingConvention int

const (
	ConventionSource CallingConvention = iota
	ConventionTarget
)

func (c CallingConvention) String() string {
	if c == ConventionSource {
		return "source"
	}
	return "target"
}

// Type is any target IR type.
type Type interface {
	isType()
	String() string
}

// PrimitiveType wraps a Primitive as a Type.
type PrimitiveType struct{ Kind Primitive }

func (PrimitiveType) isType()          {}
func (p PrimitiveType) String() string { return p.Kind.String() }

// PointerType is a pointer to Elem, with no tag-bit information carried in
// the type itself (tagging is a value-level, not type-level, concern — see
// the layout package's pointer helpers).
type PointerType struct{ Elem Type }

func (PointerType) isType()          {}
func (p PointerType) String() string { return p.Elem.String() + "*" }

// RecordType is an unboxed sequence of fields, laid out in order. It is
// used both for source record lowering and for internal layout records
// (heap blocks, closures, type-info tables).
type RecordType struct {
	Name   string
	Fields []Type
}

func (RecordType) isType() {}
func (r RecordType) String() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s{%s}", r.Name, strings.Join(parts, ", "))
}

// UnionType reinterprets the same storage as any one of Members; exactly
// one member is "active" at a time, discriminated externally (thunks
// discriminate via the closure's entry-function pointer).
type UnionType struct {
	Name    string
	Members []Type
}

func (UnionType) isType() {}
func (u UnionType) String() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = m.String()
	}
	return fmt.Sprintf("%s<%s>", u.Name, strings.Join(parts, " | "))
}

// FunctionPointerType is the type of a function pointer: entry_fn and
// drop_fn fields of a closure record, or a foreign declaration's callee.
type FunctionPointerType struct {
	Convention CallingConvention
	Params     []Type
	Result     Type
}

func (FunctionPointerType) isType() {}
func (f FunctionPointerType) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	res := "void"
	if f.Result != nil {
		res = f.Result.String()
	}
	return fmt.Sprintf("(%s)[%s]->%s", strings.Join(parts, ", "), f.Convention, res)
}

// ByteStringType is the fixed two-word layout of a ByteString: a tagged
// pointer to its bytes, and its length.
var ByteStringType = RecordType{
	Name:   "ByteString",
	Fields: []Type{PointerType{Elem: PrimitiveType{Kind: Byte}}, PrimitiveType{Kind: PointerSized}},
}

// TypeInfoType is the weak-linkage { clone_fn, drop_fn } record keyed by a
// type_id and referenced by every variant's tag pointer.
var TypeInfoType = RecordType{
	Name: "TypeInfo",
	Fields: []Type{
		FunctionPointerType{Convention: ConventionTarget, Params: []Type{PrimitiveType{Kind: PointerSized}}, Result: nil},
		FunctionPointerType{Convention: ConventionTarget, Params: []Type{PrimitiveType{Kind: PointerSized}}, Result: nil},
	},
}

// VariantType is the constant-shape { tag_pointer, payload } encoding of
// every source Variant value, regardless of the dynamic type it carries.
var VariantType = RecordType{
	Name:   "Variant",
	Fields: []Type{PointerType{Elem: TypeInfoType}, PrimitiveType{Kind: PointerSized}},
}

// IsBoxed reports whether name's record body is heap-boxed: any record with
// at least one element is boxed, the empty record is inline.
func IsBoxed(m *source.Module, name string) bool {
	body := m.LookupRecordBody(name)
	return body != nil && body.IsBoxed()
}

// VariantPayloadBoxed reports whether a value of inner (a Variant's payload
// source type) must be boxed on the heap rather than reinterpreted inline
// in the pointer-sized payload word. Only ByteString does not fit.
func VariantPayloadBoxed(inner source.Type) bool {
	_, ok := inner.(source.ByteString)
	return ok
}

// Lower converts a source type to its target representation, consulting m
// for record element layout and boxing policy.
func Lower(t source.Type, m *source.Module) Type {
	switch x := t.(type) {
	case source.Number:
		return PrimitiveType{Kind: Float64}
	case source.Boolean:
		return PrimitiveType{Kind: Bool1}
	case source.ByteString:
		return ByteStringType
	case *source.Record:
		body := m.LookupRecordBody(x.Name)
		var fields []Type
		if body != nil {
			fields = make([]Type, len(body.Elements))
			for i, e := range body.Elements {
				fields[i] = Lower(e, m)
			}
		}
		rt := RecordType{Name: x.Name, Fields: fields}
		if IsBoxed(m, x.Name) {
			return PointerType{Elem: rt}
		}
		return rt
	case *source.Function:
		return PointerType{Elem: UnsizedClosureType}
	case source.Variant:
		return VariantType
	default:
		return PrimitiveType{Kind: PointerSized}
	}
}

// UnsizedClosureType is the abstract closure shape used for every
// Function-typed value: an entry function, a drop function, an arity word
// and an empty environment. Concrete definition sites use a sized closure
// (layout.ClosureType) that agrees on the first three fields and
// widens the fourth.
var UnsizedClosureType = RecordType{
	Name: "Closure",
	Fields: []Type{
		PrimitiveType{Kind: PointerSized}, // entry_fn, accessed atomically; stored as a tagged integer
		FunctionPointerType{Convention: ConventionTarget, Params: []Type{PrimitiveType{Kind: PointerSized}}, Result: nil},
		PrimitiveType{Kind: PointerSized}, // arity
		RecordType{Name: "Environment", Fields: nil},
	},
}

// Arity returns the number of curried argument positions before the first
// non-Function result of a source Function type. Non-function types have
// arity 0.
func Arity(t source.Type) int {
	n := 0
	for {
		fn, ok := t.(*source.Function)
		if !ok {
			return n
		}
		n++
		t = fn.Result
	}
}
