// Package types implements the type checker: it assigns a Type to every
// expression, verifies assignments and operator applicability, enforces
// mutability, and records a symbol type table for the IR builder.
package types

import "fmt"

// Kind classifies a Type.
type Kind int

const (
	Integer Kind = iota
	Float
	Bool
	String
	Nil
	Array    // fixed-length
	Sequence // dynamically-sized
)

// Type is a nominal type. Array and Sequence carry an Element type;
// Array additionally carries a compile-time-known Size. Equality between
// Types is structural (see Equal).
type Type struct {
	Kind    Kind
	Element *Type
	Size    int
}

func Int() Type           { return Type{Kind: Integer} }
func Flt() Type            { return Type{Kind: Float} }
func Boolean() Type        { return Type{Kind: Bool} }
func Str() Type            { return Type{Kind: String} }
func NilType() Type        { return Type{Kind: Nil} }
func ArrayOf(e Type, n int) Type { return Type{Kind: Array, Element: &e, Size: n} }
func SequenceOf(e Type) Type     { return Type{Kind: Sequence, Element: &e} }

// Equal reports structural equality between two types.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Array:
		return t.Size == o.Size && t.Element.Equal(*o.Element)
	case Sequence:
		return t.Element.Equal(*o.Element)
	default:
		return true
	}
}

// IsNumeric reports whether t is Integer or Float.
func (t Type) IsNumeric() bool { return t.Kind == Integer || t.Kind == Float }

// IsIndexable reports whether t supports `a[i]` indexing.
func (t Type) IsIndexable() bool { return t.Kind == Array || t.Kind == Sequence }

func (t Type) String() string {
	switch t.Kind {
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Bool:
		return "Bool"
	case String:
		return "String"
	case Nil:
		return "Nil"
	case Array:
		return fmt.Sprintf("[%d]%s", t.Size, t.Element)
	case Sequence:
		return fmt.Sprintf("[]%s", t.Element)
	default:
		return "?"
	}
}
