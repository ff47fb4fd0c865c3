package types

import "github.com/vyn-lang/vync/pkg/source"

// Symbol is a resolved identifier binding as seen by the type checker.
type Symbol struct {
	Name     string
	Type     Type
	Span     source.Span
	Mutable  bool
	IsStatic bool
}

// Scope is one frame of a lexically-nested symbol table. Declarations
// bind in the innermost frame only; identifier resolution walks the
// parent chain. A dedicated alias map follows the same scoping rules.
type Scope struct {
	parent  *Scope
	symbols map[string]*Symbol
	aliases map[string]Type
}

// NewScope creates a root scope with no parent.
func NewScope() *Scope {
	return &Scope{symbols: make(map[string]*Symbol), aliases: make(map[string]Type)}
}

// Enter pushes a fresh child frame.
func (s *Scope) Enter() *Scope {
	return &Scope{parent: s, symbols: make(map[string]*Symbol), aliases: make(map[string]Type)}
}

// Declare binds name in the current frame. Callers must check
// DeclaredLocally first to raise VariableRedeclaration.
func (s *Scope) Declare(sym *Symbol) {
	s.symbols[sym.Name] = sym
}

// DeclaredLocally reports whether name is already bound in this frame
// (not parents), returning the existing symbol for cross-referencing.
func (s *Scope) DeclaredLocally(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// Resolve walks the parent chain looking for name.
func (s *Scope) Resolve(name string) (*Symbol, bool) {
	if sym, ok := s.symbols[name]; ok {
		return sym, true
	}
	if s.parent != nil {
		return s.parent.Resolve(name)
	}
	return nil, false
}

// DeclareAlias binds a type alias in the current frame.
func (s *Scope) DeclareAlias(name string, t Type) {
	s.aliases[name] = t
}

// AliasDeclaredLocally reports whether name is already aliased in this frame.
func (s *Scope) AliasDeclaredLocally(name string) (Type, bool) {
	t, ok := s.aliases[name]
	return t, ok
}

// ResolveAlias walks the parent chain looking for a type alias.
func (s *Scope) ResolveAlias(name string) (Type, bool) {
	if t, ok := s.aliases[name]; ok {
		return t, true
	}
	if s.parent != nil {
		return s.parent.ResolveAlias(name)
	}
	return Type{}, false
}
