package textir

import (
	"fmt"
	"strconv"

	"lowerc/src/source"
)

// build converts a parsed concrete syntax tree into a source.Module. It
// performs no type checking or scope resolution beyond what is needed to
// shape the tree (e.g. resolving a record element's type name into a
// *source.Record) — those remain the job of the upstream passes this
// fixture format stands in for.
func build(cst *ModuleCST) (*source.Module, error) {
	name, err := unquote(cst.Name)
	if err != nil {
		return nil, fmt.Errorf("textir: module name: %w", err)
	}
	m := &source.Module{Name: name}
	for _, item := range cst.Items {
		switch {
		case item.Record != nil:
			rb, err := buildRecordDef(item.Record)
			if err != nil {
				return nil, err
			}
			m.TypeDefinitions = append(m.TypeDefinitions, rb)
		case item.ForeignDeclare != nil:
			fd, err := buildForeignDeclare(item.ForeignDeclare)
			if err != nil {
				return nil, err
			}
			m.ForeignDeclarations = append(m.ForeignDeclarations, fd)
		case item.Declare != nil:
			d, err := buildDeclare(item.Declare)
			if err != nil {
				return nil, err
			}
			m.Declarations = append(m.Declarations, d)
		case item.Define != nil:
			d, err := buildDefine(item.Define)
			if err != nil {
				return nil, err
			}
			if item.Define.Keyword == "foreign-define" {
				m.ForeignDefinitions = append(m.ForeignDefinitions, d)
			} else {
				m.Definitions = append(m.Definitions, d)
			}
		default:
			return nil, fmt.Errorf("textir: empty top-level item")
		}
	}
	return m, nil
}

func buildRecordDef(r *RecordDefCST) (*source.RecordBody, error) {
	elems := make([]source.Type, len(r.Elements))
	for i, t := range r.Elements {
		typ, err := buildType(t)
		if err != nil {
			return nil, err
		}
		elems[i] = typ
	}
	return &source.RecordBody{Name: r.Name, Elements: elems}, nil
}

func buildForeignDeclare(f *ForeignDeclCST) (*source.ForeignDeclaration, error) {
	argType, err := buildType(f.ArgType)
	if err != nil {
		return nil, err
	}
	resType, err := buildType(f.ResultType)
	if err != nil {
		return nil, err
	}
	return &source.ForeignDeclaration{Name: f.Name, ArgumentType: argType, ResultType: resType}, nil
}

func buildDeclare(d *DeclareDefCST) (*source.Declaration, error) {
	typ, err := buildType(d.Type)
	if err != nil {
		return nil, err
	}
	return &source.Declaration{Name: d.Name, Type: typ}, nil
}

func buildDefine(d *DefineDefCST) (*source.Definition, error) {
	args, err := buildArgs(d.Arguments)
	if err != nil {
		return nil, err
	}
	env, err := buildArgs(d.Env)
	if err != nil {
		return nil, err
	}
	resultType, err := buildType(d.ResultType)
	if err != nil {
		return nil, err
	}
	body, err := buildExpr(d.Body)
	if err != nil {
		return nil, err
	}
	return &source.Definition{
		Name:        d.Name,
		Environment: env,
		Arguments:   args,
		Body:        body,
		ResultType:  resultType,
		IsThunk:     len(args) == 0,
	}, nil
}

func buildArgs(cs []*ArgDefCST) ([]source.Argument, error) {
	out := make([]source.Argument, len(cs))
	for i, a := range cs {
		typ, err := buildType(a.Type)
		if err != nil {
			return nil, err
		}
		out[i] = source.Argument{Name: a.Name, Type: typ}
	}
	return out, nil
}

func buildType(t *TypeCST) (source.Type, error) {
	switch {
	case t.Number:
		return source.Number{}, nil
	case t.Boolean:
		return source.Boolean{}, nil
	case t.ByteString:
		return source.ByteString{}, nil
	case t.Variant:
		return source.Variant{}, nil
	case t.Func != nil:
		arg, err := buildType(t.Func.Argument)
		if err != nil {
			return nil, err
		}
		res, err := buildType(t.Func.Result)
		if err != nil {
			return nil, err
		}
		return &source.Function{Argument: arg, Result: res}, nil
	case t.Record != nil:
		return &source.Record{Name: *t.Record}, nil
	default:
		return nil, fmt.Errorf("textir: empty type node")
	}
}

func buildExpr(e *ExprCST) (source.Expression, error) {
	switch {
	case e.Number != nil:
		v, err := strconv.ParseFloat(e.Number.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("textir: number literal: %w", err)
		}
		return &source.NumberLiteral{Value: v}, nil

	case e.Boolean != nil:
		return &source.BooleanLiteral{Value: e.Boolean.Value == "true"}, nil

	case e.Bytestring != nil:
		s, err := unquote(e.Bytestring.Value)
		if err != nil {
			return nil, err
		}
		return &source.ByteStringLiteral{Value: []byte(s)}, nil

	case e.Arith != nil:
		op, err := arithOp(e.Arith.Op)
		if err != nil {
			return nil, err
		}
		lhs, err := buildExpr(e.Arith.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := buildExpr(e.Arith.Rhs)
		if err != nil {
			return nil, err
		}
		return &source.ArithmeticOperation{Operator: op, Lhs: lhs, Rhs: rhs}, nil

	case e.Comp != nil:
		op, err := compOp(e.Comp.Op)
		if err != nil {
			return nil, err
		}
		lhs, err := buildExpr(e.Comp.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := buildExpr(e.Comp.Rhs)
		if err != nil {
			return nil, err
		}
		return &source.ComparisonOperation{Operator: op, Lhs: lhs, Rhs: rhs}, nil

	case e.If != nil:
		cond, err := buildExpr(e.If.Condition)
		if err != nil {
			return nil, err
		}
		then, err := buildExpr(e.If.Then)
		if err != nil {
			return nil, err
		}
		els, err := buildExpr(e.If.Else)
		if err != nil {
			return nil, err
		}
		return &source.If{Condition: cond, Then: then, Else: els}, nil

	case e.Let != nil:
		typ, err := buildType(e.Let.Type)
		if err != nil {
			return nil, err
		}
		bound, err := buildExpr(e.Let.Bound)
		if err != nil {
			return nil, err
		}
		body, err := buildExpr(e.Let.Body)
		if err != nil {
			return nil, err
		}
		return &source.Let{Name: e.Let.Name, Type: typ, Bound: bound, Body: body}, nil

	case e.Letrec != nil:
		def, err := buildDefine(e.Letrec.Definition)
		if err != nil {
			return nil, err
		}
		body, err := buildExpr(e.Letrec.Body)
		if err != nil {
			return nil, err
		}
		return &source.LetRecursive{Definition: def, Body: body}, nil

	case e.Apply != nil:
		fn, err := buildExpr(e.Apply.Function)
		if err != nil {
			return nil, err
		}
		arg, err := buildExpr(e.Apply.Argument)
		if err != nil {
			return nil, err
		}
		return &source.FunctionApplication{Function: fn, Argument: arg}, nil

	case e.Record != nil:
		elems := make([]source.Expression, len(e.Record.Elements))
		for i, el := range e.Record.Elements {
			ee, err := buildExpr(el)
			if err != nil {
				return nil, err
			}
			elems[i] = ee
		}
		return &source.RecordConstruction{Type: &source.Record{Name: e.Record.Type}, Elements: elems}, nil

	case e.Element != nil:
		idx, err := strconv.Atoi(e.Element.Index)
		if err != nil {
			return nil, fmt.Errorf("textir: element index: %w", err)
		}
		rec, err := buildExpr(e.Element.Record)
		if err != nil {
			return nil, err
		}
		return &source.RecordElement{Type: &source.Record{Name: e.Element.Type}, Index: idx, Record: rec}, nil

	case e.Variant != nil:
		inner, err := buildType(e.Variant.InnerType)
		if err != nil {
			return nil, err
		}
		payload, err := buildExpr(e.Variant.Payload)
		if err != nil {
			return nil, err
		}
		return &source.VariantConstruction{InnerType: inner, Payload: payload}, nil

	case e.Case != nil:
		var alts []source.CaseAlternative
		var def *source.CaseDefault
		for _, arm := range e.Case.Arms {
			switch {
			case arm.Default != nil:
				body, err := buildExpr(arm.Default.Body)
				if err != nil {
					return nil, err
				}
				def = &source.CaseDefault{Name: arm.Default.Name, Body: body}
			case arm.Alt != nil:
				typ, err := buildType(arm.Alt.Type)
				if err != nil {
					return nil, err
				}
				body, err := buildExpr(arm.Alt.Body)
				if err != nil {
					return nil, err
				}
				alts = append(alts, source.CaseAlternative{Type: typ, Name: arm.Alt.Name, Body: body})
			default:
				return nil, fmt.Errorf("textir: empty case arm")
			}
		}
		arg, err := buildExpr(e.Case.Argument)
		if err != nil {
			return nil, err
		}
		return &source.Case{Argument: arg, Alternatives: alts, Default: def}, nil

	case e.Clone != nil:
		body, err := buildExpr(e.Clone.Body)
		if err != nil {
			return nil, err
		}
		return &source.CloneVariables{Names: e.Clone.Names, Inner: body}, nil

	case e.Drop != nil:
		body, err := buildExpr(e.Drop.Body)
		if err != nil {
			return nil, err
		}
		return &source.DropVariables{Names: e.Drop.Names, Inner: body}, nil

	case e.Variable != nil:
		return &source.Variable{Name: *e.Variable}, nil

	default:
		return nil, fmt.Errorf("textir: empty expression node")
	}
}

func arithOp(s string) (source.ArithmeticOperator, error) {
	switch s {
	case "add":
		return source.Add, nil
	case "sub":
		return source.Sub, nil
	case "mul":
		return source.Mul, nil
	case "div":
		return source.Div, nil
	default:
		return 0, fmt.Errorf("textir: unknown arithmetic operator %q", s)
	}
}

func compOp(s string) (source.ComparisonOperator, error) {
	switch s {
	case "eq":
		return source.Eq, nil
	case "neq":
		return source.Neq, nil
	case "lt":
		return source.Lt, nil
	case "le":
		return source.Le, nil
	case "gt":
		return source.Gt, nil
	case "ge":
		return source.Ge, nil
	default:
		return 0, fmt.Errorf("textir: unknown comparison operator %q", s)
	}
}

// unquote strips the surrounding double quotes a String token always
// carries and processes backslash escapes.
func unquote(s string) (string, error) {
	return strconv.Unquote(s)
}
