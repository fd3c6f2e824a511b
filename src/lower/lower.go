// Package lower turns an annotated source module into a target-IR module:
// one entry/drop function pair per definition, closures and thunks built
// per layout's records, and every expression construct compiled through the
// RC primitives layout exposes. It assumes rc.Annotate has already run —
// CloneVariables/DropVariables nodes are expected, not malformed.
package lower

import (
	"fmt"

	"lowerc/src/layout"
	"lowerc/src/source"
	"lowerc/src/target/ir"
	"lowerc/src/target/types"
)

// Lowerer holds the module-wide state a single lowering pass accumulates:
// the target module under construction, the source module being read, and
// the counters and tables that keep generated names unique.
type Lowerer struct {
	m     *ir.Module
	sm    *source.Module
	strID int

	closures map[string]closureRef
}

// closureRef is a top-level definition's statically placed closure: a
// single static record callers read through like any heap closure,
// distinguished only by its tag bit.
type closureRef struct {
	global  *ir.Global
	typ     source.Type
	isThunk bool
}

// typed pairs a lowered value with the source type it represents; lower
// threads this through every expression so constructs further down the
// tree (FunctionApplication's arity dispatch, a Case's result type) can
// consult a term's type without re-running inference.
type typed struct {
	val ir.Value
	typ source.Type
}

// funcCtx is the per-function lowering context: the function and block
// currently being built, and the lexical bindings in scope.
type funcCtx struct {
	lowerer *Lowerer
	f       *ir.Function
	b       *ir.Block
	vars    map[string]ir.Value
	types   map[string]source.Type
	thunks  map[string]bool
}

func newFuncCtx(l *Lowerer, f *ir.Function, b *ir.Block) *funcCtx {
	return &funcCtx{lowerer: l, f: f, b: b, vars: map[string]ir.Value{}, types: map[string]source.Type{}, thunks: map[string]bool{}}
}

func (c *funcCtx) bind(name string, val ir.Value, typ source.Type) {
	c.vars[name] = val
	c.types[name] = typ
	delete(c.thunks, name)
}

// bindThunk records name as holding a thunk closure rather than a direct
// value of typ: every later Variable read of name must force it first.
func (c *funcCtx) bindThunk(name string, closure ir.Value, typ source.Type) {
	c.vars[name] = closure
	c.types[name] = typ
	c.thunks[name] = true
}

// withBlock returns a funcCtx over a different block with its own copy of
// the current bindings, used for If/Case arms so that a Let inside one arm
// can never leak a binding into a sibling arm.
func (c *funcCtx) withBlock(b *ir.Block) *funcCtx {
	vars := make(map[string]ir.Value, len(c.vars))
	for k, v := range c.vars {
		vars[k] = v
	}
	typs := make(map[string]source.Type, len(c.types))
	for k, v := range c.types {
		typs[k] = v
	}
	thunks := make(map[string]bool, len(c.thunks))
	for k, v := range c.thunks {
		thunks[k] = v
	}
	return &funcCtx{lowerer: c.lowerer, f: c.f, b: b, vars: vars, types: typs, thunks: thunks}
}

func (l *Lowerer) nextStringID() int {
	l.strID++
	return l.strID
}

// byteStringRecordType is the fixed { bytes*, length } shape every
// ByteString value lowers to.
func byteStringRecordType() types.RecordType { return types.ByteStringType }

// emitTagStatic sets ptr's low tag bit, marking it as a non-heap (static)
// value: the inverse of layout.Untag (4.B).
func (c *funcCtx) emitTagStatic(ptr ir.Value) ir.Value {
	asInt := c.b.CreateBitcast(ptr, types.PrimitiveType{Kind: types.PointerSized})
	one := c.b.CreateConstantInt(1)
	tagged := c.b.CreateBitwise(ir.Or, asInt, one)
	return c.b.CreateBitcast(tagged, ptr.ValueType())
}

// LowerModule compiles every definition of sm into a target-IR module.
func LowerModule(sm *source.Module) (*ir.Module, error) {
	l := &Lowerer{m: ir.NewModule(sm.Name), sm: sm, closures: map[string]closureRef{}}

	layout.BuildClonePointerFn(l.m)
	layout.BuildDropPointerFn(l.m)
	layout.BuildNoopDropContentFn(l.m)
	layout.BuildClosureFieldsDropFn(l.m)
	BuildApplyShimEntryFn(l.m, sm)

	for _, fd := range sm.ForeignDeclarations {
		l.lowerForeignDeclaration(fd)
	}
	for _, d := range sm.ForeignDefinitions {
		if err := l.lowerTopLevelDefinition(d, types.ConventionSource); err != nil {
			return nil, err
		}
	}
	for _, d := range sm.Definitions {
		if err := l.lowerTopLevelDefinition(d, types.ConventionSource); err != nil {
			return nil, err
		}
	}
	for _, f := range l.m.Functions() {
		if err := f.Verify(); err != nil {
			return nil, err
		}
	}
	return l.m, nil
}

func (l *Lowerer) declareForeign(fd *source.ForeignDeclaration) *ir.Function {
	if f := l.m.LookupFunction(fd.Name); f != nil {
		return f
	}
	argType := types.Lower(fd.ArgumentType, l.sm)
	resType := types.Lower(fd.ResultType, l.sm)
	return l.m.CreateFunction(fd.Name, types.ConventionTarget, []types.Type{argType}, []string{"arg"}, resType)
}

// lowerForeignDeclaration wires a target-convention import into a degenerate
// closure (4.H): an entry function that unwraps the single source-convention
// argument and forwards it to the raw foreign symbol, and an empty
// environment. No drop function is built for it: there is nothing captured
// to release.
func (l *Lowerer) lowerForeignDeclaration(fd *source.ForeignDeclaration) {
	raw := l.declareForeign(fd)
	argType := types.Lower(fd.ArgumentType, l.sm)
	resType := types.Lower(fd.ResultType, l.sm)
	ptrType := types.PrimitiveType{Kind: types.PointerSized}

	entry := l.m.CreateFunction(fd.Name+".entry", types.ConventionSource, []types.Type{ptrType, ptrType}, []string{"closure", "arg"}, resType)
	b := entry.CreateBlock("entry")
	argVal := b.CreateBitcast(entry.Params()[1], argType)
	result := b.CreateCall(types.ConventionTarget, layout.FuncValue(raw), []ir.Value{argVal}, resType)
	b.CreateReturn(result)

	env := types.RecordType{Name: fd.Name + ".env"}
	closureRecType := layout.ClosureType(env)
	g := l.m.CreateWeakRecord(fd.Name+".closure", closureRecType)
	l.closures[fd.Name] = closureRef{global: g, typ: &source.Function{Argument: fd.ArgumentType, Result: fd.ResultType}}
}

// lowerTopLevelDefinition compiles d's entry/drop functions and registers a
// statically placed closure record any Variable reference to d.Name resolves
// to (4.D, 4.H: foreign definitions take exactly the same shape and the same
// source calling convention).
func (l *Lowerer) lowerTopLevelDefinition(d *source.Definition, convention types.CallingConvention) error {
	entryFn, _, envType, err := l.buildEntryAndDropFns(d, convention)
	if err != nil {
		return err
	}
	closureRecType := layout.ClosureType(envType)
	g := l.m.CreateWeakRecord(d.Name+".closure", closureRecType)
	l.closures[d.Name] = closureRef{global: g, typ: d.FunctionType(), isThunk: d.IsThunk}
	_ = entryFn
	return nil
}

// buildEntryAndDropFns builds a definition's entry function (the compiled
// body, reading its captured environment out of its closure parameter) and
// its closure's drop function (which drops every captured variable). For a
// thunk it additionally wires the three-state atomic protocol (4.G) and
// returns the initial entry function in its place. Returns the environment
// type used for this definition's closure shape.
func (l *Lowerer) buildEntryAndDropFns(d *source.Definition, convention types.CallingConvention) (entryFn, dropFn *ir.Function, envType types.Type, err error) {
	env := layout.EnvironmentType(d.Name, d.Environment, l.sm)
	resultType := types.Lower(d.ResultType, l.sm)

	bodyName := layout.EntryFnName(d.Name)
	if d.IsThunk {
		bodyName = d.Name + ".force"
	}

	ptrType := types.PrimitiveType{Kind: types.PointerSized}
	entryParamTypes := make([]types.Type, len(d.Arguments)+1)
	paramNames := make([]string, len(d.Arguments)+1)
	entryParamTypes[0] = ptrType
	paramNames[0] = "closure"
	for i, a := range d.Arguments {
		entryParamTypes[i+1] = ptrType
		paramNames[i+1] = a.Name
	}

	var payloadType types.Type = env
	if d.IsThunk {
		payloadType = layout.ThunkPayloadType(env, resultType)
	}
	closureRecType := layout.ClosureType(payloadType)

	f := l.m.CreateFunction(bodyName, convention, entryParamTypes, paramNames, resultType)
	entry := f.CreateBlock("entry")
	c := newFuncCtx(l, f, entry)

	if len(d.Environment) > 0 {
		selfPtr := layout.Untag(entry, f.Params()[0], closureRecType)
		self := entry.CreateLoad(selfPtr, closureRecType)
		var envVal ir.Value
		if d.IsThunk {
			union := layout.EmitLoadEnvironment(entry, self, payloadType)
			envVal = entry.CreateUnionElement(union, layout.ThunkMemberEnvironment, env)
		} else {
			envVal = layout.EmitLoadEnvironment(entry, self, env)
		}
		for i, a := range d.Environment {
			elem := entry.CreateRecordElement(envVal, i, types.Lower(a.Type, l.sm))
			c.bind(a.Name, elem, a.Type)
		}
	}
	for i, a := range d.Arguments {
		raw := f.Params()[i+1]
		c.bind(a.Name, entry.CreateBitcast(raw, types.Lower(a.Type, l.sm)), a.Type)
	}

	result, err := c.lowerExpr(d.Body)
	if err != nil {
		return nil, nil, nil, err
	}
	c.b.CreateReturn(c.b.CreateBitcast(result.val, resultType))

	dropFn = l.m.CreateFunction(layout.DropFnName(d.Name), types.ConventionTarget, []types.Type{ptrType}, []string{"p"}, nil)
	dentry := dropFn.CreateBlock("entry")
	if len(d.Environment) > 0 {
		closurePtr := dentry.CreateBitcast(dropFn.Params()[0], types.PointerType{Elem: closureRecType})
		self := dentry.CreateLoad(closurePtr, closureRecType)
		var envVal ir.Value
		if d.IsThunk {
			union := layout.EmitLoadEnvironment(dentry, self, payloadType)
			envVal = dentry.CreateUnionElement(union, layout.ThunkMemberEnvironment, env)
		} else {
			envVal = layout.EmitLoadEnvironment(dentry, self, env)
		}
		for i, a := range d.Environment {
			elem := dentry.CreateRecordElement(envVal, i, types.Lower(a.Type, l.sm))
			layout.EmitDropValue(dentry, l.m, l.sm, elem, a.Type)
		}
	}
	dentry.CreateReturn(nil)

	entryFn = f
	if d.IsThunk {
		entryFn = buildThunkProtocol(l.m, l.sm, d, env, resultType, f, dropFn)
	}
	return entryFn, dropFn, payloadType, nil
}

// lookupTopLevelClosure resolves a Variable against the module's top-level
// definitions, once the caller has already checked it isn't a local binding.
func (l *Lowerer) lookupTopLevelClosure(name string) (closureRef, bool) {
	r, ok := l.closures[name]
	return r, ok
}

func mapArith(op source.ArithmeticOperator) ir.ArithOp { return ir.ArithOp(op) }
func mapCompare(op source.ComparisonOperator) ir.CompareOp { return ir.CompareOp(op) }

// lowerExpr compiles e into c's current block, returning the value it
// computes along with the source type it carries (4.F).
func (c *funcCtx) lowerExpr(e source.Expression) (typed, error) {
	switch x := e.(type) {
	case *source.NumberLiteral:
		return typed{val: c.b.CreateConstantFloat(x.Value), typ: source.Number{}}, nil

	case *source.BooleanLiteral:
		return typed{val: c.b.CreateConstantBool(x.Value), typ: source.Boolean{}}, nil

	case *source.ByteStringLiteral:
		v, err := c.lowerByteStringLiteral(x.Value)
		if err != nil {
			return typed{}, err
		}
		return typed{val: v, typ: source.ByteString{}}, nil

	case *source.Variable:
		if v, ok := c.vars[x.Name]; ok {
			typ := c.types[x.Name]
			if c.thunks[x.Name] {
				forced := EmitForceThunk(c.b, v, types.Lower(typ, c.lowerer.sm))
				return typed{val: forced, typ: typ}, nil
			}
			return typed{val: v, typ: typ}, nil
		}
		if r, ok := c.lowerer.lookupTopLevelClosure(x.Name); ok {
			ref := c.b.CreateGlobalRef(r.global)
			tagged := c.emitTagStatic(ref)
			if r.isThunk {
				forced := EmitForceThunk(c.b, tagged, types.Lower(r.typ, c.lowerer.sm))
				return typed{val: forced, typ: r.typ}, nil
			}
			return typed{val: tagged, typ: r.typ}, nil
		}
		return typed{}, &ir.BuildError{Function: c.f.Name(), Message: fmt.Sprintf("unbound variable %q", x.Name)}

	case *source.ArithmeticOperation:
		lhs, err := c.lowerExpr(x.Lhs)
		if err != nil {
			return typed{}, err
		}
		rhs, err := c.lowerExpr(x.Rhs)
		if err != nil {
			return typed{}, err
		}
		return typed{val: c.b.CreateArith(mapArith(x.Operator), lhs.val, rhs.val), typ: source.Number{}}, nil

	case *source.ComparisonOperation:
		lhs, err := c.lowerExpr(x.Lhs)
		if err != nil {
			return typed{}, err
		}
		rhs, err := c.lowerExpr(x.Rhs)
		if err != nil {
			return typed{}, err
		}
		return typed{val: c.b.CreateCompare(mapCompare(x.Operator), lhs.val, rhs.val), typ: source.Boolean{}}, nil

	case *source.If:
		return c.lowerIf(x)

	case *source.Let:
		bound, err := c.lowerExpr(x.Bound)
		if err != nil {
			return typed{}, err
		}
		c.bind(x.Name, bound.val, x.Type)
		return c.lowerExpr(x.Body)

	case *source.LetRecursive:
		return c.lowerLetRecursive(x)

	case *source.FunctionApplication:
		return c.lowerApply(x)

	case *source.RecordConstruction:
		return c.lowerRecordConstruction(x)

	case *source.RecordElement:
		return c.lowerRecordElement(x)

	case *source.VariantConstruction:
		payload, err := c.lowerExpr(x.Payload)
		if err != nil {
			return typed{}, err
		}
		info := c.lowerer.ensureTypeInfoGlobal(x.InnerType)
		ref := c.b.CreateGlobalRef(info)
		boxed := layout.BoxVariantPayload(c.b, c.lowerer.sm, payload.val, x.InnerType)
		v := c.b.CreateRecord(types.VariantType, []ir.Value{ref, boxed})
		return typed{val: v, typ: source.Variant{}}, nil

	case *source.Case:
		return c.lowerCase(x)

	case *source.CloneVariables:
		for _, name := range x.Names {
			layout.EmitCloneValue(c.b, c.lowerer.m, c.lowerer.sm, c.vars[name], c.types[name])
		}
		return c.lowerExpr(x.Inner)

	case *source.DropVariables:
		for _, name := range x.Names {
			layout.EmitDropValue(c.b, c.lowerer.m, c.lowerer.sm, c.vars[name], c.types[name])
		}
		return c.lowerExpr(x.Inner)

	default:
		return typed{}, &ir.BuildError{Function: c.f.Name(), Message: fmt.Sprintf("unhandled expression %T", e)}
	}
}

func (c *funcCtx) lowerIf(x *source.If) (typed, error) {
	cond, err := c.lowerExpr(x.Condition)
	if err != nil {
		return typed{}, err
	}
	thenB := c.f.CreateBlock("if.then")
	elseB := c.f.CreateBlock("if.else")
	joinB := c.f.CreateBlock("if.join")

	thenCtx := c.withBlock(thenB)
	thenV, err := thenCtx.lowerExpr(x.Then)
	if err != nil {
		return typed{}, err
	}
	elseCtx := c.withBlock(elseB)
	elseV, err := elseCtx.lowerExpr(x.Else)
	if err != nil {
		return typed{}, err
	}

	resultType := thenV.typ
	slotType := types.Lower(resultType, c.lowerer.sm)
	slot := c.b.CreateLocal(slotType)
	c.b.CreateCondBranch(cond.val, thenB, elseB)

	thenCtx.b.CreateStore(thenV.val, slot)
	thenCtx.b.CreateJump(joinB)
	elseCtx.b.CreateStore(elseV.val, slot)
	elseCtx.b.CreateJump(joinB)

	c.b = joinB
	return typed{val: joinB.CreateLoad(slot, slotType), typ: resultType}, nil
}

func (c *funcCtx) lowerLetRecursive(x *source.LetRecursive) (typed, error) {
	d := x.Definition
	entryFn, dropFn, closureFieldType, err := c.lowerer.buildEntryAndDropFns(d, types.ConventionSource)
	if err != nil {
		return typed{}, err
	}
	env := layout.EnvironmentType(d.Name, d.Environment, c.lowerer.sm)
	closureRecType := layout.ClosureType(closureFieldType)

	var envVal ir.Value
	if len(d.Environment) > 0 {
		elems := make([]ir.Value, len(d.Environment))
		for i, a := range d.Environment {
			v, ok := c.vars[a.Name]
			if !ok {
				return typed{}, &ir.BuildError{Function: c.f.Name(), Message: fmt.Sprintf("letrec %q: environment references unbound %q", d.Name, a.Name)}
			}
			elems[i] = v
		}
		envVal = c.b.CreateRecord(env, elems)
	} else {
		envVal = c.b.CreateRecord(env, nil)
	}
	fieldVal := envVal
	if d.IsThunk {
		fieldVal = c.b.CreateUnion(closureFieldType.(types.UnionType), layout.ThunkMemberEnvironment, envVal)
	}

	heapPtr := c.b.CreateHeapAlloc(closureRecType)
	entryPtr := c.b.CreateBitcast(layout.FuncValue(entryFn), types.PrimitiveType{Kind: types.PointerSized})
	arity := c.b.CreateConstantInt(int64(len(d.Arguments)))
	rec := c.b.CreateRecord(closureRecType, []ir.Value{entryPtr, layout.FuncValue(dropFn), arity, fieldVal})
	c.b.CreateStore(rec, heapPtr)
	asClosure := c.b.CreateBitcast(heapPtr, types.PointerType{Elem: types.UnsizedClosureType})

	if d.IsThunk {
		c.bindThunk(d.Name, asClosure, d.FunctionType())
	} else {
		c.bind(d.Name, asClosure, d.FunctionType())
	}
	return c.lowerExpr(x.Body)
}

func (c *funcCtx) lowerRecordConstruction(x *source.RecordConstruction) (typed, error) {
	elems := make([]ir.Value, len(x.Elements))
	for i, e := range x.Elements {
		v, err := c.lowerExpr(e)
		if err != nil {
			return typed{}, err
		}
		elems[i] = v.val
	}
	lowered := types.Lower(x.Type, c.lowerer.sm)
	if pt, boxed := lowered.(types.PointerType); boxed {
		inner := pt.Elem.(types.RecordType)
		rec := c.b.CreateRecord(inner, elems)
		heapPtr := c.b.CreateHeapAlloc(inner)
		c.b.CreateStore(rec, heapPtr)
		return typed{val: heapPtr, typ: x.Type}, nil
	}
	rt := lowered.(types.RecordType)
	return typed{val: c.b.CreateRecord(rt, elems), typ: x.Type}, nil
}

func (c *funcCtx) lowerRecordElement(x *source.RecordElement) (typed, error) {
	rec, err := c.lowerExpr(x.Record)
	if err != nil {
		return typed{}, err
	}
	body := c.lowerer.sm.LookupRecordBody(x.Type.Name)
	elemSourceType := body.Elements[x.Index]
	elemType := types.Lower(elemSourceType, c.lowerer.sm)
	lowered := types.Lower(x.Type, c.lowerer.sm)
	if _, boxed := lowered.(types.PointerType); boxed {
		unboxed := types.RecordType{Name: x.Type.Name, Fields: lowerFieldTypes(body, c.lowerer.sm)}
		loaded := c.b.CreateLoad(rec.val, unboxed)
		return typed{val: c.b.CreateRecordElement(loaded, x.Index, elemType), typ: elemSourceType}, nil
	}
	return typed{val: c.b.CreateRecordElement(rec.val, x.Index, elemType), typ: elemSourceType}, nil
}

func lowerFieldTypes(body *source.RecordBody, sm *source.Module) []types.Type {
	out := make([]types.Type, len(body.Elements))
	for i, e := range body.Elements {
		out[i] = types.Lower(e, sm)
	}
	return out
}

func (c *funcCtx) lowerCase(x *source.Case) (typed, error) {
	arg, err := c.lowerExpr(x.Argument)
	if err != nil {
		return typed{}, err
	}
	tagPtr := c.b.CreateRecordElement(arg.val, 0, types.PointerType{Elem: types.TypeInfoType})
	payload := c.b.CreateRecordElement(arg.val, 1, types.PrimitiveType{Kind: types.PointerSized})

	type arm struct {
		block *ir.Block
		val   typed
	}
	arms := make([]arm, 0, len(x.Alternatives)+1)

	testBs := make([]*ir.Block, len(x.Alternatives))
	bodyBs := make([]*ir.Block, len(x.Alternatives))
	for i := range x.Alternatives {
		testBs[i] = c.f.CreateBlock("case.test")
		bodyBs[i] = c.f.CreateBlock("case.body")
	}
	var defaultB, missB *ir.Block
	if x.Default != nil {
		defaultB = c.f.CreateBlock("case.default")
	} else {
		missB = c.f.CreateBlock("case.unreachable")
	}
	joinB := c.f.CreateBlock("case.join")

	for i, alt := range x.Alternatives {
		bodyCtx := c.withBlock(bodyBs[i])
		unboxed := layout.UnboxVariantPayload(bodyBs[i], c.lowerer.sm, payload, alt.Type)
		bodyCtx.bind(alt.Name, unboxed, alt.Type)
		v, err := bodyCtx.lowerExpr(alt.Body)
		if err != nil {
			return typed{}, err
		}
		arms = append(arms, arm{block: bodyCtx.b, val: v})
	}
	if x.Default != nil {
		defCtx := c.withBlock(defaultB)
		defCtx.bind(x.Default.Name, arg.val, source.Variant{})
		v, err := defCtx.lowerExpr(x.Default.Body)
		if err != nil {
			return typed{}, err
		}
		arms = append(arms, arm{block: defCtx.b, val: v})
	} else {
		missB.CreateUnreachable()
	}

	if len(arms) == 0 {
		return typed{}, &ir.BuildError{Function: c.f.Name(), Message: "case has neither alternatives nor a default"}
	}
	resultType := arms[0].val.typ
	slotType := types.Lower(resultType, c.lowerer.sm)
	slot := c.b.CreateLocal(slotType)

	first := missB
	if x.Default != nil {
		first = defaultB
	}
	if len(testBs) > 0 {
		first = testBs[0]
	}
	c.b.CreateJump(first)

	for i, alt := range x.Alternatives {
		info := c.lowerer.ensureTypeInfoGlobal(alt.Type)
		ref := testBs[i].CreateGlobalRef(info)
		ptrSized := types.PrimitiveType{Kind: types.PointerSized}
		tagInt := testBs[i].CreateBitcast(tagPtr, ptrSized)
		refInt := testBs[i].CreateBitcast(ref, ptrSized)
		matches := testBs[i].CreateCompare(ir.Eq, tagInt, refInt)
		var next *ir.Block
		switch {
		case i+1 < len(testBs):
			next = testBs[i+1]
		case x.Default != nil:
			next = defaultB
		default:
			next = missB
		}
		testBs[i].CreateCondBranch(matches, bodyBs[i], next)
	}

	for _, a := range arms {
		a.block.CreateStore(a.val.val, slot)
		a.block.CreateJump(joinB)
	}

	c.b = joinB
	return typed{val: joinB.CreateLoad(slot, slotType), typ: resultType}, nil
}

// ensureTypeInfoGlobal declares (once) the weak type-info global a Variant's
// tag pointer compares against, and builds its clone/drop functions.
func (l *Lowerer) ensureTypeInfoGlobal(inner source.Type) *ir.Global {
	name := layout.TypeInfoGlobalName(source.TypeID(inner))
	for _, g := range l.m.Globals() {
		if g.Name() == name {
			return g
		}
	}
	layout.BuildVariantPayloadFns(l.m, l.sm, inner)
	return l.m.CreateWeakRecord(name, types.TypeInfoType)
}
