package source

// ValidateModule type-checks every definition's body against its declared
// result type, rejects nested Variant payloads (NestedVariant), and rejects
// any CloneVariables/DropVariables node already present (ReferenceCount) —
// those are produced only by rc.Annotate and must not precede it.
func ValidateModule(m *Module) error {
	for _, d := range m.Definitions {
		if err := validateDefinition(m, d); err != nil {
			return err
		}
	}
	for _, d := range m.ForeignDefinitions {
		if err := validateDefinition(m, d); err != nil {
			return err
		}
	}
	return nil
}

func validateDefinition(m *Module, d *Definition) error {
	var s Scope
	s.Push()
	bindModuleScope(m, &s)
	for _, a := range d.Environment {
		s.Bind(a.Name, a.Type)
	}
	for _, a := range d.Arguments {
		s.Bind(a.Name, a.Type)
	}
	t, err := infer(d.Body, m, &s, d.Name)
	s.Pop()
	if err != nil {
		return err
	}
	if !Equal(t, d.ResultType) {
		return errf(KindTypeCheck, d.Name, "declared result type %s does not match inferred type %s", d.ResultType, t)
	}
	return nil
}

func bindModuleScope(m *Module, s *Scope) {
	for _, f := range m.ForeignDeclarations {
		s.Bind(f.Name, &Function{Argument: f.ArgumentType, Result: f.ResultType})
	}
	for _, decl := range m.Declarations {
		s.Bind(decl.Name, decl.Type)
	}
	for _, d := range m.Definitions {
		s.Bind(d.Name, d.FunctionType())
	}
	for _, d := range m.ForeignDefinitions {
		s.Bind(d.Name, d.FunctionType())
	}
}

func infer(e Expression, m *Module, s *Scope, def string) (Type, error) {
	switch x := e.(type) {
	case *NumberLiteral:
		return Number{}, nil
	case *BooleanLiteral:
		return Boolean{}, nil
	case *ByteStringLiteral:
		return ByteString{}, nil
	case *Variable:
		t, ok := s.Lookup(x.Name)
		if !ok {
			return nil, errf(KindTypeCheck, def, "reference to undeclared identifier %q", x.Name)
		}
		return t, nil
	case *ArithmeticOperation:
		lt, err := infer(x.Lhs, m, s, def)
		if err != nil {
			return nil, err
		}
		rt, err := infer(x.Rhs, m, s, def)
		if err != nil {
			return nil, err
		}
		if _, ok := lt.(Number); !ok {
			return nil, errf(KindTypeCheck, def, "arithmetic operation requires Number operands, got %s", lt)
		}
		if _, ok := rt.(Number); !ok {
			return nil, errf(KindTypeCheck, def, "arithmetic operation requires Number operands, got %s", rt)
		}
		return Number{}, nil
	case *ComparisonOperation:
		lt, err := infer(x.Lhs, m, s, def)
		if err != nil {
			return nil, err
		}
		rt, err := infer(x.Rhs, m, s, def)
		if err != nil {
			return nil, err
		}
		if !Equal(lt, rt) {
			return nil, errf(KindTypeCheck, def, "comparison operands have mismatched types %s and %s", lt, rt)
		}
		return Boolean{}, nil
	case *If:
		ct, err := infer(x.Condition, m, s, def)
		if err != nil {
			return nil, err
		}
		if _, ok := ct.(Boolean); !ok {
			return nil, errf(KindTypeCheck, def, "if condition must be Boolean, got %s", ct)
		}
		tt, err := infer(x.Then, m, s, def)
		if err != nil {
			return nil, err
		}
		et, err := infer(x.Else, m, s, def)
		if err != nil {
			return nil, err
		}
		if !Equal(tt, et) {
			return nil, errf(KindTypeCheck, def, "if branches have mismatched types %s and %s", tt, et)
		}
		return tt, nil
	case *Let:
		bt, err := infer(x.Bound, m, s, def)
		if err != nil {
			return nil, err
		}
		if !Equal(bt, x.Type) {
			return nil, errf(KindTypeCheck, def, "let binding %q declares %s but bound expression has type %s", x.Name, x.Type, bt)
		}
		s.Push()
		s.Bind(x.Name, x.Type)
		t, err := infer(x.Body, m, s, def)
		s.Pop()
		return t, err
	case *LetRecursive:
		s.Push()
		s.Bind(x.Definition.Name, x.Definition.FunctionType())
		if err := validateDefinitionIn(m, x.Definition, s); err != nil {
			s.Pop()
			return nil, err
		}
		t, err := infer(x.Body, m, s, def)
		s.Pop()
		return t, err
	case *FunctionApplication:
		ft, err := infer(x.Function, m, s, def)
		if err != nil {
			return nil, err
		}
		fn, ok := ft.(*Function)
		if !ok {
			return nil, errf(KindTypeCheck, def, "application of non-function type %s", ft)
		}
		at, err := infer(x.Argument, m, s, def)
		if err != nil {
			return nil, err
		}
		if !Equal(at, fn.Argument) {
			return nil, errf(KindTypeCheck, def, "function expects argument %s, got %s", fn.Argument, at)
		}
		return fn.Result, nil
	case *RecordConstruction:
		body := m.LookupRecordBody(x.Type.Name)
		if body == nil {
			return nil, errf(KindTypeCheck, def, "reference to undeclared record type %q", x.Type.Name)
		}
		if len(body.Elements) != len(x.Elements) {
			return nil, errf(KindTypeCheck, def, "record %q expects %d elements, got %d", x.Type.Name, len(body.Elements), len(x.Elements))
		}
		for i, el := range x.Elements {
			et, err := infer(el, m, s, def)
			if err != nil {
				return nil, err
			}
			if !Equal(et, body.Elements[i]) {
				return nil, errf(KindTypeCheck, def, "record %q element %d expects %s, got %s", x.Type.Name, i, body.Elements[i], et)
			}
		}
		return x.Type, nil
	case *RecordElement:
		rt, err := infer(x.Record, m, s, def)
		if err != nil {
			return nil, err
		}
		r, ok := rt.(*Record)
		if !ok || r.Name != x.Type.Name {
			return nil, errf(KindTypeCheck, def, "element projection expects record %q, got %s", x.Type.Name, rt)
		}
		body := m.LookupRecordBody(x.Type.Name)
		if body == nil || x.Index < 0 || x.Index >= len(body.Elements) {
			return nil, errf(KindTypeCheck, def, "element index %d out of range for record %q", x.Index, x.Type.Name)
		}
		return body.Elements[x.Index], nil
	case *VariantConstruction:
		if _, ok := x.InnerType.(Variant); ok {
			return nil, errf(KindNestedVariant, def, "variant payload must not itself be of type Variant")
		}
		pt, err := infer(x.Payload, m, s, def)
		if err != nil {
			return nil, err
		}
		if !Equal(pt, x.InnerType) {
			return nil, errf(KindTypeCheck, def, "variant construction declares inner type %s but payload has type %s", x.InnerType, pt)
		}
		return Variant{}, nil
	case *Case:
		at, err := infer(x.Argument, m, s, def)
		if err != nil {
			return nil, err
		}
		if _, ok := at.(Variant); !ok {
			return nil, errf(KindTypeCheck, def, "case argument must be Variant, got %s", at)
		}
		var result Type
		seen := map[string]bool{}
		for _, alt := range x.Alternatives {
			if _, ok := alt.Type.(Variant); ok {
				return nil, errf(KindNestedVariant, def, "case alternative type must not itself be Variant")
			}
			id := TypeID(alt.Type)
			if seen[id] {
				return nil, errf(KindTypeCheck, def, "case has more than one alternative for type %s", alt.Type)
			}
			seen[id] = true
			s.Push()
			s.Bind(alt.Name, alt.Type)
			bt, err := infer(alt.Body, m, s, def)
			s.Pop()
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = bt
			} else if !Equal(result, bt) {
				return nil, errf(KindTypeCheck, def, "case alternatives have mismatched types %s and %s", result, bt)
			}
		}
		if x.Default != nil {
			s.Push()
			s.Bind(x.Default.Name, Variant{})
			bt, err := infer(x.Default.Body, m, s, def)
			s.Pop()
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = bt
			} else if !Equal(result, bt) {
				return nil, errf(KindTypeCheck, def, "case default has mismatched type %s, expected %s", bt, result)
			}
		}
		if result == nil {
			return nil, errf(KindTypeCheck, def, "case has no alternatives and no default")
		}
		return result, nil
	case *CloneVariables, *DropVariables:
		return nil, errf(KindReferenceCount, def, "module already carries reference-count annotations before rc.Annotate has run")
	default:
		return nil, errf(KindTypeCheck, def, "unhandled expression kind in validation")
	}
}

// validateDefinitionIn type-checks a LetRecursive's nested Definition using
// an already-open Scope (which has its own name pre-bound by the caller so
// self-reference resolves).
func validateDefinitionIn(m *Module, d *Definition, s *Scope) error {
	s.Push()
	for _, a := range d.Environment {
		s.Bind(a.Name, a.Type)
	}
	for _, a := range d.Arguments {
		s.Bind(a.Name, a.Type)
	}
	t, err := infer(d.Body, m, s, d.Name)
	s.Pop()
	if err != nil {
		return err
	}
	if !Equal(t, d.ResultType) {
		return errf(KindTypeCheck, d.Name, "declared result type %s does not match inferred type %s", d.ResultType, t)
	}
	return nil
}
