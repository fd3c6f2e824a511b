package source

import "lowerc/src/util"

// frame is one lexical scope: the names bound directly within it, each
// mapped to its declared Type.
type frame map[string]Type

// Scope tracks nested lexical scopes on a linked-list util.Stack. Scope
// exists for
// validate.go's reference checking; free-variable lists themselves are an
// upstream concern (environment inference), supplied directly on every
// Definition rather than computed here.
type Scope struct {
	frames util.Stack[frame]
}

// Push opens a new, empty lexical scope.
func (s *Scope) Push() {
	s.frames.Push(make(frame))
}

// Pop closes the innermost lexical scope.
func (s *Scope) Pop() {
	s.frames.Pop()
}

// Bind records name : typ in the innermost open scope.
func (s *Scope) Bind(name string, typ Type) {
	if f := s.frames.Peek(); f != nil {
		f[name] = typ
	}
}

// Lookup searches scopes from innermost to outermost for name.
func (s *Scope) Lookup(name string) (Type, bool) {
	n := s.frames.Size()
	for i := 1; i <= n; i++ {
		if f := s.frames.Get(i); f != nil {
			if t, ok := f[name]; ok {
				return t, true
			}
		}
	}
	return nil, false
}
