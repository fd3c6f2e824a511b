package textir

import "github.com/alecthomas/participle/v2/lexer"

// ModuleCST is the parsed concrete syntax tree for a whole fixture file:
// (module "name" <item>*).
type ModuleCST struct {
	Pos   lexer.Position
	Name  string       `"(" "module" @String`
	Items []*ItemCST   `@@*`
	Close string       `")"`
}

// ItemCST is one top-level form. Record, ForeignDeclare, Declare and Define
// are mutually exclusive, disambiguated on the keyword immediately
// following the opening paren; Define's own Keyword field further
// distinguishes "define" from "foreign-define" at build time.
type ItemCST struct {
	Record         *RecordDefCST    `  @@`
	ForeignDeclare *ForeignDeclCST  `| @@`
	Declare        *DeclareDefCST   `| @@`
	Define         *DefineDefCST    `| @@`
}

// RecordDefCST is (record Name (Type...)).
type RecordDefCST struct {
	Name     string      `"(" "record" @Ident`
	Elements []*TypeCST  `"(" @@* ")" ")"`
}

// ForeignDeclCST is (foreign-declare Name ArgType ResultType).
type ForeignDeclCST struct {
	Name       string   `"(" "foreign-declare" @Ident`
	ArgType    *TypeCST `@@`
	ResultType *TypeCST `@@ ")"`
}

// DeclareDefCST is (declare Name Type).
type DeclareDefCST struct {
	Name string   `"(" "declare" @Ident`
	Type *TypeCST `@@ ")"`
}

// ArgDefCST is (name Type), used both for a definition's arguments and for
// its captured environment.
type ArgDefCST struct {
	Name string   `"(" @Ident`
	Type *TypeCST `@@ ")"`
}

// DefineDefCST is (define Name (Args) (Env) ResultType Body), reused
// verbatim (with the "foreign-define" keyword) for foreign definitions and
// for the nested definition inside a letrec.
type DefineDefCST struct {
	Keyword    string       `"(" @("define" | "foreign-define")`
	Name       string       `@Ident`
	Arguments  []*ArgDefCST `"(" @@* ")"`
	Env        []*ArgDefCST `"(" @@* ")"`
	ResultType *TypeCST     `@@`
	Body       *ExprCST     `@@ ")"`
}

// TypeCST is a source.Type written out positionally: the four ground types
// are bare keywords, a record type is a bare identifier (its name), and a
// function type is "(" Argument ")" "->" Result.
type TypeCST struct {
	Number     bool        `(  @"Number"`
	Boolean    bool        ` | @"Boolean"`
	ByteString bool        ` | @"ByteString"`
	Variant    bool        ` | @"Variant"`
	Func       *FuncTypeCST ` | @@`
	Record     *string     ` | @Ident )`
}

// FuncTypeCST is "(" Argument ")" "->" Result, the textual form of
// source.Function (4.A).
type FuncTypeCST struct {
	Argument *TypeCST `"(" @@ ")" "->"`
	Result   *TypeCST `@@`
}

// ExprCST is one source-IR expression node. Variable is the fallback: a
// bare identifier with no enclosing parens.
type ExprCST struct {
	Number     *NumberLitCST     `  @@`
	Boolean    *BooleanLitCST    `| @@`
	Bytestring *BytestringLitCST `| @@`
	Arith      *ArithCST         `| @@`
	Comp       *CompCST          `| @@`
	If         *IfCST            `| @@`
	Let        *LetCST           `| @@`
	Letrec     *LetrecCST        `| @@`
	Apply      *ApplyCST         `| @@`
	Record     *RecordConsCST    `| @@`
	Element    *ElementCST       `| @@`
	Variant    *VariantConsCST   `| @@`
	Case       *CaseCST          `| @@`
	Clone      *CloneCST         `| @@`
	Drop       *DropCST          `| @@`
	Variable   *string           `| @Ident`
}

type NumberLitCST struct {
	Value string `"(" "number" @Number ")"`
}

type BooleanLitCST struct {
	Value string `"(" "boolean" @("true" | "false") ")"`
}

type BytestringLitCST struct {
	Value string `"(" "bytestring" @String ")"`
}

// ArithCST covers add/sub/mul/div; the operator token is kept as a string
// and build.go's arithOp maps it to a source.ArithmeticOperator.
type ArithCST struct {
	Op  string   `"(" @("add" | "sub" | "mul" | "div")`
	Lhs *ExprCST `@@`
	Rhs *ExprCST `@@ ")"`
}

// CompCST covers eq/neq/lt/le/gt/ge.
type CompCST struct {
	Op  string   `"(" @("eq" | "neq" | "lt" | "le" | "gt" | "ge")`
	Lhs *ExprCST `@@`
	Rhs *ExprCST `@@ ")"`
}

type IfCST struct {
	Condition *ExprCST `"(" "if" @@`
	Then      *ExprCST `@@`
	Else      *ExprCST `@@ ")"`
}

type LetCST struct {
	Name  string   `"(" "let" @Ident`
	Type  *TypeCST `@@`
	Bound *ExprCST `@@`
	Body  *ExprCST `@@ ")"`
}

type LetrecCST struct {
	Definition *DefineDefCST `"(" "letrec" @@`
	Body       *ExprCST      `@@ ")"`
}

type ApplyCST struct {
	Function *ExprCST `"(" "apply" @@`
	Argument *ExprCST `@@ ")"`
}

type RecordConsCST struct {
	Type     string     `"(" "record" @Ident`
	Elements []*ExprCST `@@* ")"`
}

type ElementCST struct {
	Type   string   `"(" "element" @Ident`
	Index  string   `@Number`
	Record *ExprCST `@@ ")"`
}

type VariantConsCST struct {
	InnerType *TypeCST `"(" "variant" @@`
	Payload   *ExprCST `@@ ")"`
}

// CaseArmCST is one arm of a Case: either a typed alternative or the
// default arm. Default is tried first since "default" would otherwise also
// parse as a (degenerate) record type name.
type CaseArmCST struct {
	Default *CaseDefaultCST `  @@`
	Alt     *CaseAltCST     `| @@`
}

type CaseDefaultCST struct {
	Name string   `"(" "default" @Ident`
	Body *ExprCST `@@ ")"`
}

type CaseAltCST struct {
	Type *TypeCST `"(" @@`
	Name string   `@Ident`
	Body *ExprCST `@@ ")"`
}

type CaseCST struct {
	Argument *ExprCST      `"(" "case" @@`
	Arms     []*CaseArmCST `@@* ")"`
}

type CloneCST struct {
	Names []string `"(" "clone" @Ident+`
	Body  *ExprCST `@@ ")"`
}

type DropCST struct {
	Names []string `"(" "drop" @Ident+`
	Body  *ExprCST `@@ ")"`
}
