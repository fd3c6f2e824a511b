// Package source implements the data model for the source intermediate
// representation lowered by this backend: a typed lambda calculus with
// algebraic data types, thunked bindings, closures with free-variable
// environments and foreign bindings.
package source

// Type is a source-level type. The sum is closed: Number, Boolean,
// ByteString, Record, Function, Variant.
type Type interface {
	isType()
	String() string
}

// Number is the only numeric type: a 64-bit float.
type Number struct{}

func (Number) isType()        {}
func (Number) String() string { return "Number" }

// Boolean is the two-valued primitive type.
type Boolean struct{}

func (Boolean) isType()        {}
func (Boolean) String() string { return "Boolean" }

// ByteString is an immutable byte sequence.
type ByteString struct{}

func (ByteString) isType()        {}
func (ByteString) String() string { return "ByteString" }

// Record is a nominal product type, resolved through the module's
// name → RecordBody map.
type Record struct {
	Name string
}

func (*Record) isType()          {}
func (r *Record) String() string { return r.Name }

// Function is curried and uniformly unary: one argument type, one result
// type (which may itself be a Function for further currying).
type Function struct {
	Argument Type
	Result   Type
}

func (*Function) isType() {}
func (f *Function) String() string {
	return "(" + f.Argument.String() + ") -> " + f.Result.String()
}

// Variant is the type of every dynamically tagged value. It carries no
// name: at runtime a Variant value is a pair of a type-info pointer (keyed
// on the wrapped value's own Type) and a payload word. There is exactly one
// Variant type, not a family of named sum types.
type Variant struct{}

func (Variant) isType()        {}
func (Variant) String() string { return "Variant" }

// RecordBody is the definition bound to a Record's Name: an ordered list of
// element types. A RecordBody with no elements lowers to an unboxed empty
// value; any other RecordBody lowers to a heap-boxed pointer.
type RecordBody struct {
	Name     string
	Elements []Type
}

// IsBoxed reports whether values of this record body are heap-boxed, the
// pure function of its element count that every pass must agree on.
func (r *RecordBody) IsBoxed() bool {
	return len(r.Elements) > 0
}

// Equal reports whether two source types are structurally identical, with
// Record compared by name only.
func Equal(a, b Type) bool {
	switch x := a.(type) {
	case Number:
		_, ok := b.(Number)
		return ok
	case Boolean:
		_, ok := b.(Boolean)
		return ok
	case ByteString:
		_, ok := b.(ByteString)
		return ok
	case Variant:
		_, ok := b.(Variant)
		return ok
	case *Record:
		y, ok := b.(*Record)
		return ok && x.Name == y.Name
	case *Function:
		y, ok := b.(*Function)
		return ok && Equal(x.Argument, y.Argument) && Equal(x.Result, y.Result)
	default:
		return false
	}
}

// TypeID returns the deterministic string form of t used to key a variant's
// type-info global (4.C) and to compile a variant tag (4.A/4.F).
func TypeID(t Type) string {
	switch x := t.(type) {
	case Number:
		return "Number"
	case Boolean:
		return "Boolean"
	case ByteString:
		return "ByteString"
	case Variant:
		return "Variant"
	case *Record:
		return "Record(" + x.Name + ")"
	case *Function:
		return "Function(" + TypeID(x.Argument) + "," + TypeID(x.Result) + ")"
	default:
		return "?"
	}
}
