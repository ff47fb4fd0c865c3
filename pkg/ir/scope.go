package ir

import "github.com/vyn-lang/vync/pkg/types"

// binding pairs a declared variable's home register with its type, the
// latter needed purely to pick the right typed opcode during lowering.
type binding struct {
	reg VReg
	typ types.Type
}

// scope is a lexically-nested map from variable name to binding. Unlike
// the type checker's Scope, mutation (AssignExpr) resolves and reuses
// the existing binding rather than shadowing it, so writes inside a
// nested if/loop body remain visible once that body exits.
type scope struct {
	parent *scope
	vars   map[string]binding
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: make(map[string]binding)}
}

func (s *scope) declare(name string, b binding) {
	s.vars[name] = b
}

func (s *scope) resolve(name string) (binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return b, true
		}
	}
	return binding{}, false
}
