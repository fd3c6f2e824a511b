package source

// Expression is a source IR term. The sum is closed over the constructs
// named below; rc.Annotate and the lower package's lowerExpr both switch
// exhaustively over it. CloneVariables and DropVariables are produced only by rc.Annotate —
// a module containing them before that pass has run is malformed.
type Expression interface {
	isExpression()
}

// ArithmeticOperator enumerates the four arithmetic operators.
type ArithmeticOperator int

const (
	Add ArithmeticOperator = iota
	Sub
	Mul
	Div
)

// ComparisonOperator enumerates the six comparison operators.
type ComparisonOperator int

const (
	Eq ComparisonOperator = iota
	Neq
	Lt
	Le
	Gt
	Ge
)

// NumberLiteral is a Number(f64) constant.
type NumberLiteral struct {
	Value float64
}

func (*NumberLiteral) isExpression() {}

// BooleanLiteral is a Boolean(bool) constant.
type BooleanLiteral struct {
	Value bool
}

func (*BooleanLiteral) isExpression() {}

// ByteStringLiteral is a ByteString(bytes) constant.
type ByteStringLiteral struct {
	Value []byte
}

func (*ByteStringLiteral) isExpression() {}

// Variable is a reference to a name bound by a Definition's arguments,
// environment, or by Let/LetRecursive/Case.
type Variable struct {
	Name string
}

func (*Variable) isExpression() {}

// ArithmeticOperation is op(lhs, rhs) for op ∈ {Add, Sub, Mul, Div}.
type ArithmeticOperation struct {
	Operator ArithmeticOperator
	Lhs, Rhs Expression
}

func (*ArithmeticOperation) isExpression() {}

// ComparisonOperation is op(lhs, rhs) for op ∈ {Eq, Neq, Lt, Le, Gt, Ge}.
type ComparisonOperation struct {
	Operator ComparisonOperator
	Lhs, Rhs Expression
}

func (*ComparisonOperation) isExpression() {}

// If evaluates Condition and continues into Then or Else.
type If struct {
	Condition, Then, Else Expression
}

func (*If) isExpression() {}

// Let binds Name : Type to the result of Bound within the scope of Body.
type Let struct {
	Name  string
	Type  Type
	Bound Expression
	Body  Expression
}

func (*Let) isExpression() {}

// LetRecursive binds a single recursive Definition in scope for both Body
// and, via the definition's own environment, for itself.
type LetRecursive struct {
	Definition *Definition
	Body       Expression
}

func (*LetRecursive) isExpression() {}

// FunctionApplication applies Function to a single Argument. N-ary calls
// are curried chains of this node; see rc.Annotate's right-to-left rule and
// lower.EmitApplyOne's arity trampoline (4.H).
type FunctionApplication struct {
	Function Expression
	Argument Expression
}

func (*FunctionApplication) isExpression() {}

// RecordConstruction builds a value of the named record Type from Elements
// in declaration order.
type RecordConstruction struct {
	Type     *Record
	Elements []Expression
}

func (*RecordConstruction) isExpression() {}

// RecordElement projects element Index out of Record, which must have
// source type Type.
type RecordElement struct {
	Type   *Record
	Index  int
	Record Expression
}

func (*RecordElement) isExpression() {}

// VariantConstruction wraps Payload, of source type InnerType, as a
// dynamically tagged Variant value.
type VariantConstruction struct {
	InnerType Type
	Payload   Expression
}

func (*VariantConstruction) isExpression() {}

// CaseAlternative matches a Variant whose wrapped value has source type
// Type, binding it to Name within Body.
type CaseAlternative struct {
	Type Type
	Name string
	Body Expression
}

// CaseDefault is the fallback arm of a Case: it binds the scrutinee
// unchanged (same Variant value, not unwrapped) to Name within Body.
type CaseDefault struct {
	Name string
	Body Expression
}

// Case dispatches on the runtime type tag carried by a Variant-typed
// Argument. Default is nil when every possible tag is covered by
// Alternatives, or when a non-match should be unreachable.
type Case struct {
	Argument     Expression
	Alternatives []CaseAlternative
	Default      *CaseDefault
}

func (*Case) isExpression() {}

// CloneVariables is produced only by rc.Annotate: it clones each named
// variable before evaluating Inner.
type CloneVariables struct {
	Names []string
	Inner Expression
}

func (*CloneVariables) isExpression() {}

// DropVariables is produced only by rc.Annotate: it drops each named
// variable, which Inner itself never consumes.
type DropVariables struct {
	Names []string
	Inner Expression
}

func (*DropVariables) isExpression() {}
