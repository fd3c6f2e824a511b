// Package rc implements the reference-count annotation pass: it rewrites
// an un-annotated source module into an equivalent module where every
// expression is surrounded by the minimal CloneVariables/DropVariables
// markers needed to keep reference counts balanced along every
// control-flow path.
package rc

import (
	"fmt"
	"sync"

	"lowerc/src/source"
	"lowerc/src/util"
)

// Annotate runs the reference-count pass over every definition in m,
// fanning the independent per-definition work out across opt.Threads
// worker goroutines the same way the corpus's tree-optimisation pass
// shards top-level units, and returns a new module (m is never mutated).
func Annotate(m *source.Module, opt util.Options) (*source.Module, error) {
	out := &source.Module{
		Name:                m.Name,
		TypeDefinitions:     m.TypeDefinitions,
		ForeignDeclarations: m.ForeignDeclarations,
		ForeignDefinitions:  m.ForeignDefinitions,
		Declarations:        m.Declarations,
		Definitions:         make([]*source.Definition, len(m.Definitions)),
	}

	threads := opt.Threads
	if threads < 1 {
		threads = 1
	}
	if threads > len(m.Definitions) {
		threads = len(m.Definitions)
	}
	if threads <= 1 {
		for i, d := range m.Definitions {
			ann, err := AnnotateDefinition(d)
			if err != nil {
				return nil, err
			}
			out.Definitions[i] = ann
		}
		return out, nil
	}

	pe := util.NewPerror(threads)
	var wg sync.WaitGroup
	l := len(m.Definitions)
	n := l / threads
	res := l % threads

	for i1 := 0; i1 < l; {
		j := n
		if i1 < res*(n+1) { // first `res` shards take one extra item
			j = n + 1
		}
		if j == 0 {
			j = 1
		}
		end := i1 + j
		if end > l {
			end = l
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for k := start; k < end; k++ {
				ann, err := AnnotateDefinition(m.Definitions[k])
				if err != nil {
					pe.Append(err)
					continue
				}
				out.Definitions[k] = ann
			}
		}(i1, end)
		i1 = end
	}
	wg.Wait()
	pe.Stop()
	if pe.Len() > 0 {
		var first error
		for err := range pe.Errors() {
			if first == nil {
				first = err
			}
		}
		return nil, first
	}
	return out, nil
}

// AnnotateDefinition runs the pass over a single definition, used both for
// top-level module definitions and for the nested definition of a
// LetRecursive.
func AnnotateDefinition(d *source.Definition) (*source.Definition, error) {
	owned := map[string]bool{d.Name: true}
	for _, a := range d.Environment {
		owned[a.Name] = true
	}
	for _, a := range d.Arguments {
		owned[a.Name] = true
	}
	body, moved, err := annotate(d.Body, owned, map[string]bool{})
	if err != nil {
		return nil, err
	}
	body = wrapDrops(body, setDiff(owned, moved))
	return &source.Definition{
		Name:        d.Name,
		Environment: d.Environment,
		Arguments:   d.Arguments,
		Body:        body,
		ResultType:  d.ResultType,
		IsThunk:     d.IsThunk,
	}, nil
}

func setDiff(a, b map[string]bool) []string {
	var out []string
	for k := range a {
		if !b[k] {
			out = append(out, k)
		}
	}
	return out
}

func wrapDrops(e source.Expression, names []string) source.Expression {
	if len(names) == 0 {
		return e
	}
	return &source.DropVariables{Names: names, Inner: e}
}

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// annotate walks e with the given owned and moved sets and returns the
// annotated expression plus the moved set after visiting e.
func annotate(e source.Expression, owned, moved map[string]bool) (source.Expression, map[string]bool, error) {
	switch x := e.(type) {
	case *source.Variable:
		if owned[x.Name] && moved[x.Name] {
			return &source.CloneVariables{Names: []string{x.Name}, Inner: &source.Variable{Name: x.Name}}, moved, nil
		}
		m2 := cloneSet(moved)
		m2[x.Name] = true
		return x, m2, nil

	case *source.NumberLiteral, *source.BooleanLiteral, *source.ByteStringLiteral:
		return e, moved, nil

	case *source.Let:
		bodyOwned := cloneSet(owned)
		bodyOwned[x.Name] = true
		bodyAnn, bodyMoved, err := annotate(x.Body, bodyOwned, moved)
		if err != nil {
			return nil, nil, err
		}
		if !bodyMoved[x.Name] {
			bodyAnn = &source.DropVariables{Names: []string{x.Name}, Inner: bodyAnn}
		}
		boundMoved := cloneSet(bodyMoved)
		delete(boundMoved, x.Name)
		boundAnn, finalMoved, err := annotate(x.Bound, owned, boundMoved)
		if err != nil {
			return nil, nil, err
		}
		return &source.Let{Name: x.Name, Type: x.Type, Bound: boundAnn, Body: bodyAnn}, finalMoved, nil

	case *source.LetRecursive:
		bodyOwned := cloneSet(owned)
		bodyOwned[x.Definition.Name] = true
		bodyAnn, bodyMoved, err := annotate(x.Body, bodyOwned, moved)
		if err != nil {
			return nil, nil, err
		}
		annDef, err := AnnotateDefinition(x.Definition)
		if err != nil {
			return nil, nil, err
		}
		var clones []string
		cur := cloneSet(bodyMoved)
		for i := len(x.Definition.Environment) - 1; i >= 0; i-- {
			v := x.Definition.Environment[i].Name
			if owned[v] && cur[v] {
				clones = append(clones, v)
			} else {
				cur[v] = true
			}
		}
		if !cur[x.Definition.Name] {
			bodyAnn = &source.DropVariables{Names: []string{x.Definition.Name}, Inner: bodyAnn}
		}
		delete(cur, x.Definition.Name)
		result := source.Expression(&source.LetRecursive{Definition: annDef, Body: bodyAnn})
		if len(clones) > 0 {
			result = &source.CloneVariables{Names: clones, Inner: result}
		}
		return result, cur, nil

	case *source.If:
		tAnn, tMoved, err := annotate(x.Then, owned, moved)
		if err != nil {
			return nil, nil, err
		}
		eAnn, eMoved, err := annotate(x.Else, owned, moved)
		if err != nil {
			return nil, nil, err
		}
		all := union(tMoved, eMoved)
		tAnn = wrapDrops(tAnn, setDiff(all, tMoved))
		eAnn = wrapDrops(eAnn, setDiff(all, eMoved))
		cAnn, cMoved, err := annotate(x.Condition, owned, all)
		if err != nil {
			return nil, nil, err
		}
		return &source.If{Condition: cAnn, Then: tAnn, Else: eAnn}, cMoved, nil

	case *source.Case:
		type arm struct {
			ann   source.Expression
			moved map[string]bool
		}
		altArms := make([]arm, len(x.Alternatives))
		for i, alt := range x.Alternatives {
			altOwned := cloneSet(owned)
			altOwned[alt.Name] = true
			ann, mv, err := annotate(alt.Body, altOwned, moved)
			if err != nil {
				return nil, nil, err
			}
			if !mv[alt.Name] {
				ann = &source.DropVariables{Names: []string{alt.Name}, Inner: ann}
			}
			mv = cloneSet(mv)
			delete(mv, alt.Name)
			altArms[i] = arm{ann, mv}
		}
		var defArm *arm
		if x.Default != nil {
			altOwned := cloneSet(owned)
			altOwned[x.Default.Name] = true
			ann, mv, err := annotate(x.Default.Body, altOwned, moved)
			if err != nil {
				return nil, nil, err
			}
			if !mv[x.Default.Name] {
				ann = &source.DropVariables{Names: []string{x.Default.Name}, Inner: ann}
			}
			mv = cloneSet(mv)
			delete(mv, x.Default.Name)
			defArm = &arm{ann, mv}
		}
		all := map[string]bool{}
		for _, a := range altArms {
			all = union(all, a.moved)
		}
		if defArm != nil {
			all = union(all, defArm.moved)
		}
		newAlts := make([]source.CaseAlternative, len(x.Alternatives))
		for i, alt := range x.Alternatives {
			newAlts[i] = source.CaseAlternative{
				Type: alt.Type,
				Name: alt.Name,
				Body: wrapDrops(altArms[i].ann, setDiff(all, altArms[i].moved)),
			}
		}
		var newDefault *source.CaseDefault
		if defArm != nil {
			newDefault = &source.CaseDefault{
				Name: x.Default.Name,
				Body: wrapDrops(defArm.ann, setDiff(all, defArm.moved)),
			}
		}
		argAnn, argMoved, err := annotate(x.Argument, owned, all)
		if err != nil {
			return nil, nil, err
		}
		return &source.Case{Argument: argAnn, Alternatives: newAlts, Default: newDefault}, argMoved, nil

	case *source.ArithmeticOperation:
		rAnn, rMoved, err := annotate(x.Rhs, owned, moved)
		if err != nil {
			return nil, nil, err
		}
		lAnn, lMoved, err := annotate(x.Lhs, owned, rMoved)
		if err != nil {
			return nil, nil, err
		}
		return &source.ArithmeticOperation{Operator: x.Operator, Lhs: lAnn, Rhs: rAnn}, lMoved, nil

	case *source.ComparisonOperation:
		rAnn, rMoved, err := annotate(x.Rhs, owned, moved)
		if err != nil {
			return nil, nil, err
		}
		lAnn, lMoved, err := annotate(x.Lhs, owned, rMoved)
		if err != nil {
			return nil, nil, err
		}
		return &source.ComparisonOperation{Operator: x.Operator, Lhs: lAnn, Rhs: rAnn}, lMoved, nil

	case *source.FunctionApplication:
		argAnn, argMoved, err := annotate(x.Argument, owned, moved)
		if err != nil {
			return nil, nil, err
		}
		fnAnn, fnMoved, err := annotate(x.Function, owned, argMoved)
		if err != nil {
			return nil, nil, err
		}
		return &source.FunctionApplication{Function: fnAnn, Argument: argAnn}, fnMoved, nil

	case *source.RecordConstruction:
		annElems := make([]source.Expression, len(x.Elements))
		cur := moved
		for i := len(x.Elements) - 1; i >= 0; i-- {
			ann, mv, err := annotate(x.Elements[i], owned, cur)
			if err != nil {
				return nil, nil, err
			}
			annElems[i] = ann
			cur = mv
		}
		return &source.RecordConstruction{Type: x.Type, Elements: annElems}, cur, nil

	case *source.RecordElement:
		rAnn, rMoved, err := annotate(x.Record, owned, moved)
		if err != nil {
			return nil, nil, err
		}
		return &source.RecordElement{Type: x.Type, Index: x.Index, Record: rAnn}, rMoved, nil

	case *source.VariantConstruction:
		pAnn, pMoved, err := annotate(x.Payload, owned, moved)
		if err != nil {
			return nil, nil, err
		}
		return &source.VariantConstruction{InnerType: x.InnerType, Payload: pAnn}, pMoved, nil

	case *source.CloneVariables:
		// x is already a clone wrapper applied by an earlier run of this
		// pass. Re-deriving its Inner through the generic rules below would
		// hit the *Variable (or *LetRecursive) case again and wrap a second,
		// redundant CloneVariables around the first. If recursing produces
		// exactly that, collapse back to one layer instead of nesting, so
		// that re-annotating an already-annotated tree reproduces it
		// unchanged instead of doubling the clone.
		innerAnn, innerMoved, err := annotate(x.Inner, owned, moved)
		if err != nil {
			return nil, nil, err
		}
		if already, ok := innerAnn.(*source.CloneVariables); ok && sameNames(already.Names, x.Names) {
			return already, innerMoved, nil
		}
		return &source.CloneVariables{Names: x.Names, Inner: innerAnn}, innerMoved, nil

	case *source.DropVariables:
		innerAnn, innerMoved, err := annotate(x.Inner, owned, moved)
		if err != nil {
			return nil, nil, err
		}
		// Names here are already fully consumed: they were dropped, not
		// referenced, so mark them moved (rather than deleting them, as a
		// first run would) instead of merely clearing them. A binder site
		// re-annotating this same body (Let, If/Case balancing,
		// LetRecursive) decides whether to add its own drop wrapper by
		// checking whether its name is already in the moved set; without
		// this, an already-dropped name always looks "never touched" on the
		// next run and gets wrapped in a second, redundant drop.
		result := cloneSet(innerMoved)
		for _, n := range x.Names {
			result[n] = true
		}
		return &source.DropVariables{Names: x.Names, Inner: innerAnn}, result, nil

	default:
		return nil, nil, &source.CompileError{Kind: source.KindReferenceCount, Message: fmt.Sprintf("rc: unsupported expression kind %T", e)}
	}
}

// sameNames reports whether a and b contain the same set of names,
// irrespective of order.
func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, n := range a {
		set[n] = true
	}
	for _, n := range b {
		if !set[n] {
			return false
		}
	}
	return true
}

func union(a, b map[string]bool) map[string]bool {
	out := cloneSet(a)
	for k := range b {
		out[k] = true
	}
	return out
}
