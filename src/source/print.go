package source

import (
	"fmt"
	"strings"

	"lowerc/src/util/xtoa"
)

// Print renders m as an indented textual dump, used by -dump-ir/-dump-rc
// and by golden test fixtures. It is a fixed point of textir's parser for
// every construct in the surface grammar (textir's parser_test.go and
// golden_test.go check this),
// though textir owns the actual parseable syntax.
func Print(m *Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(module %q\n", m.Name)
	for _, r := range m.TypeDefinitions {
		fmt.Fprintf(&b, "  (record %s %s)\n", r.Name, typeList(r.Elements))
	}
	for _, f := range m.ForeignDeclarations {
		fmt.Fprintf(&b, "  (foreign-declare %s %s %s)\n", f.Name, f.ArgumentType, f.ResultType)
	}
	for _, decl := range m.Declarations {
		fmt.Fprintf(&b, "  (declare %s %s)\n", decl.Name, decl.Type)
	}
	for _, d := range m.Definitions {
		printDefinition(&b, "define", d)
	}
	for _, d := range m.ForeignDefinitions {
		printDefinition(&b, "foreign-define", d)
	}
	b.WriteString(")\n")
	return b.String()
}

func printDefinition(b *strings.Builder, keyword string, d *Definition) {
	fmt.Fprintf(b, "  (%s %s %s %s %s\n", keyword, d.Name, argList(d.Arguments), argList(d.Environment), d.ResultType)
	printExpr(b, d.Body, 2)
	b.WriteString("  )\n")
}

func typeList(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func argList(as []Argument) string {
	var b strings.Builder
	b.WriteString("(")
	for i, a := range as {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "(%s %s)", a.Name, a.Type)
	}
	b.WriteString(")")
	return b.String()
}

func printExpr(b *strings.Builder, e Expression, depth int) {
	indent := strings.Repeat("  ", depth)
	switch x := e.(type) {
	case *NumberLiteral:
		fmt.Fprintf(b, "%s(number %s)\n", indent, xtoa.FtoA(float32(x.Value)))
	case *BooleanLiteral:
		fmt.Fprintf(b, "%s(boolean %v)\n", indent, x.Value)
	case *ByteStringLiteral:
		fmt.Fprintf(b, "%s(bytestring %q)\n", indent, string(x.Value))
	case *Variable:
		fmt.Fprintf(b, "%s%s\n", indent, x.Name)
	case *ArithmeticOperation:
		fmt.Fprintf(b, "%s(%s\n", indent, arithName(x.Operator))
		printExpr(b, x.Lhs, depth+1)
		printExpr(b, x.Rhs, depth+1)
		fmt.Fprintf(b, "%s)\n", indent)
	case *ComparisonOperation:
		fmt.Fprintf(b, "%s(%s\n", indent, compName(x.Operator))
		printExpr(b, x.Lhs, depth+1)
		printExpr(b, x.Rhs, depth+1)
		fmt.Fprintf(b, "%s)\n", indent)
	case *If:
		fmt.Fprintf(b, "%s(if\n", indent)
		printExpr(b, x.Condition, depth+1)
		printExpr(b, x.Then, depth+1)
		printExpr(b, x.Else, depth+1)
		fmt.Fprintf(b, "%s)\n", indent)
	case *Let:
		fmt.Fprintf(b, "%s(let %s %s\n", indent, x.Name, x.Type)
		printExpr(b, x.Bound, depth+1)
		printExpr(b, x.Body, depth+1)
		fmt.Fprintf(b, "%s)\n", indent)
	case *LetRecursive:
		fmt.Fprintf(b, "%s(letrec\n", indent)
		printDefinition(b, "define", x.Definition)
		printExpr(b, x.Body, depth+1)
		fmt.Fprintf(b, "%s)\n", indent)
	case *FunctionApplication:
		fmt.Fprintf(b, "%s(apply\n", indent)
		printExpr(b, x.Function, depth+1)
		printExpr(b, x.Argument, depth+1)
		fmt.Fprintf(b, "%s)\n", indent)
	case *RecordConstruction:
		fmt.Fprintf(b, "%s(record %s\n", indent, x.Type.Name)
		for _, el := range x.Elements {
			printExpr(b, el, depth+1)
		}
		fmt.Fprintf(b, "%s)\n", indent)
	case *RecordElement:
		fmt.Fprintf(b, "%s(element %s %d\n", indent, x.Type.Name, x.Index)
		printExpr(b, x.Record, depth+1)
		fmt.Fprintf(b, "%s)\n", indent)
	case *VariantConstruction:
		fmt.Fprintf(b, "%s(variant %s\n", indent, x.InnerType)
		printExpr(b, x.Payload, depth+1)
		fmt.Fprintf(b, "%s)\n", indent)
	case *Case:
		fmt.Fprintf(b, "%s(case\n", indent)
		printExpr(b, x.Argument, depth+1)
		for _, alt := range x.Alternatives {
			fmt.Fprintf(b, "%s  (%s %s\n", indent, alt.Type, alt.Name)
			printExpr(b, alt.Body, depth+2)
			fmt.Fprintf(b, "%s  )\n", indent)
		}
		if x.Default != nil {
			fmt.Fprintf(b, "%s  (default %s\n", indent, x.Default.Name)
			printExpr(b, x.Default.Body, depth+2)
			fmt.Fprintf(b, "%s  )\n", indent)
		}
		fmt.Fprintf(b, "%s)\n", indent)
	case *CloneVariables:
		fmt.Fprintf(b, "%s(clone %s\n", indent, strings.Join(x.Names, " "))
		printExpr(b, x.Inner, depth+1)
		fmt.Fprintf(b, "%s)\n", indent)
	case *DropVariables:
		fmt.Fprintf(b, "%s(drop %s\n", indent, strings.Join(x.Names, " "))
		printExpr(b, x.Inner, depth+1)
		fmt.Fprintf(b, "%s)\n", indent)
	}
}

func arithName(op ArithmeticOperator) string {
	return [...]string{"add", "sub", "mul", "div"}[op]
}

func compName(op ComparisonOperator) string {
	return [...]string{"eq", "neq", "lt", "le", "gt", "ge"}[op]
}
