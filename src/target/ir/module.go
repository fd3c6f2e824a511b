package ir

import (
	"fmt"
	"strings"

	"lowerc/src/target/types"
)

// Global is a module-level constant: a static string, a byte buffer, or a
// weak-linkage record such as a variant's type-info table.
type Global struct {
	id   int
	name string
	typ  types.Type
	init []byte // nil for non-byte-backed globals (type-info tables etc.)
	weak bool
}

func (g *Global) ID() int               { return g.id }
func (g *Global) Name() string          { return g.name }
func (g *Global) ValueType() types.Type { return types.PointerType{Elem: g.typ} }
func (g *Global) String() string        { return fmt.Sprintf("@%s : %s", g.name, g.ValueType()) }

// Param is a function parameter, the zeroth of which (for source-convention
// functions) is always the closure pointer.
type Param struct {
	f    *Function
	id   int
	name string
	typ  types.Type
}

func (p *Param) ID() int               { return p.id }
func (p *Param) Name() string          { return p.name }
func (p *Param) ValueType() types.Type { return p.typ }
func (p *Param) String() string        { return fmt.Sprintf("%%%s : %s", p.name, p.typ) }

// Function is one target-IR function: a calling convention, a parameter
// list, a result type and a sequence of basic blocks.
type Function struct {
	m          *Module
	name       string
	convention types.CallingConvention
	params     []*Param
	result     types.Type
	blocks     []*Block
	nextID     int
	weak       bool
}

func (f *Function) getID() int {
	f.nextID++
	return f.nextID
}

// Name returns the function's linker name.
func (f *Function) Name() string { return f.name }

// Convention returns the function's calling convention.
func (f *Function) Convention() types.CallingConvention { return f.convention }

// Params returns the function's declared parameters, in order.
func (f *Function) Params() []*Param { return f.params }

// Result returns the function's declared result type, nil for void.
func (f *Function) Result() types.Type { return f.result }

// CreateBlock appends a new, empty basic block to f and returns it.
func (f *Function) CreateBlock(name string) *Block {
	b := &Block{f: f, id: f.getID()}
	if name != "" {
		b.name = name
	} else {
		b.name = fmt.Sprintf("block%d", b.id)
	}
	f.blocks = append(f.blocks, b)
	return b
}

// Blocks returns the function's basic blocks in emission order.
func (f *Function) Blocks() []*Block { return f.blocks }

// Verify checks that every block the function owns is terminated; lowering
// bugs that leave a block without a branch/return/unreachable surface here
// rather than silently miscompiling.
func (f *Function) Verify() error {
	for _, b := range f.blocks {
		if b.term == nil {
			return &BuildError{Function: f.name, Message: fmt.Sprintf("block %s is not terminated", b.Name())}
		}
	}
	return nil
}

func (f *Function) String() string {
	var sb strings.Builder
	parts := make([]string, len(f.params))
	for i, p := range f.params {
		parts[i] = p.String()
	}
	res := "void"
	if f.result != nil {
		res = f.result.String()
	}
	fmt.Fprintf(&sb, "function[%s] %s(%s) -> %s {\n", f.convention, f.name, strings.Join(parts, ", "), res)
	for _, b := range f.blocks {
		sb.WriteString(b.String())
	}
	sb.WriteString("}\n")
	return sb.String()
}

// Module is a collection of functions and globals, the unit lowering
// produces and the unit a cache entry stores.
type Module struct {
	Name      string
	functions []*Function
	globals   []*Global
	nextID    int
}

// NewModule creates an empty target-IR module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

func (m *Module) getID() int {
	m.nextID++
	return m.nextID
}

// CreateFunction declares a new function in m and returns its builder.
func (m *Module) CreateFunction(name string, convention types.CallingConvention, paramTypes []types.Type, paramNames []string, result types.Type) *Function {
	f := &Function{m: m, name: name, convention: convention, result: result}
	for i, t := range paramTypes {
		n := fmt.Sprintf("arg%d", i)
		if i < len(paramNames) && paramNames[i] != "" {
			n = paramNames[i]
		}
		f.params = append(f.params, &Param{f: f, id: f.getID(), name: n, typ: t})
	}
	m.functions = append(m.functions, f)
	return f
}

// CreateWeakFunction is CreateFunction for a per-type clone/drop function,
// which must merge across compilation units (weak linkage).
func (m *Module) CreateWeakFunction(name string, convention types.CallingConvention, paramTypes []types.Type, paramNames []string, result types.Type) *Function {
	f := m.CreateFunction(name, convention, paramTypes, paramNames, result)
	f.weak = true
	return f
}

// CreateStaticString interns a tagged, static (non-heap) ByteString global.
func (m *Module) CreateStaticString(name string, data []byte) *Global {
	g := &Global{id: m.getID(), name: name, typ: types.PrimitiveType{Kind: types.Byte}, init: data}
	m.globals = append(m.globals, g)
	return g
}

// CreateWeakRecord interns a weak-linkage record global, used for a
// variant's per-type type-info table.
func (m *Module) CreateWeakRecord(name string, typ types.Type) *Global {
	g := &Global{id: m.getID(), name: name, typ: typ, weak: true}
	m.globals = append(m.globals, g)
	return g
}

// Functions returns every function declared in m, in declaration order.
func (m *Module) Functions() []*Function { return m.functions }

// Globals returns every global declared in m, in declaration order.
func (m *Module) Globals() []*Global { return m.globals }

// LookupFunction finds a previously declared function by name.
func (m *Module) LookupFunction(name string) *Function {
	for _, f := range m.functions {
		if f.name == name {
			return f
		}
	}
	return nil
}

func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; module %s\n", m.Name)
	for _, g := range m.globals {
		link := ""
		if g.weak {
			link = "weak "
		}
		fmt.Fprintf(&sb, "%sglobal %s\n", link, g.String())
	}
	for _, f := range m.functions {
		sb.WriteString(f.String())
	}
	return sb.String()
}
