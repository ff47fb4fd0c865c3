package ir

import (
	"github.com/vyn-lang/vync/pkg/ast"
	"github.com/vyn-lang/vync/pkg/staticeval"
	"github.com/vyn-lang/vync/pkg/types"
)

// inferType recomputes an already-type-checked expression's type so the
// builder can pick typed opcodes. It assumes the program passed the
// type checker and therefore never fails; it does no diagnostic work.
func inferType(expr ast.Expression, st *staticeval.Table, sc *scope) types.Type {
	switch n := expr.Node.(type) {
	case ast.IntegerLiteral:
		return types.Int()
	case ast.FloatLiteral:
		return types.Flt()
	case ast.BoolLiteral:
		return types.Boolean()
	case ast.StringLiteral:
		return types.Str()
	case ast.NilLiteral:
		return types.NilType()

	case ast.Identifier:
		if v, _, ok := st.Get(n.Name); ok {
			return staticKindToType(v.Kind)
		}
		if b, ok := sc.resolve(n.Name); ok {
			return b.typ
		}
		return types.NilType()

	case ast.ArrayLiteral:
		if len(n.Elements) == 0 {
			return types.ArrayOf(types.NilType(), 0)
		}
		elem := inferType(n.Elements[0], st, sc)
		return types.ArrayOf(elem, len(n.Elements))

	case ast.UnaryExpr:
		operand := inferType(n.Operand, st, sc)
		if (n.Operator == "!" || n.Operator == "not") && operand.Kind == types.Integer {
			return types.Boolean()
		}
		return operand

	case ast.BinaryExpr:
		left := inferType(n.Left, st, sc)
		switch n.Operator {
		case "<", "<=", ">", ">=", "==", "!=", "and", "or":
			return types.Boolean()
		default:
			return left
		}

	case ast.AssignExpr:
		return inferType(n.Value, st, sc)

	case ast.IndexExpr:
		target := inferType(n.Target, st, sc)
		if target.Element != nil {
			return *target.Element
		}
		return types.NilType()

	case ast.IndexAssignExpr:
		return inferType(n.Value, st, sc)

	default:
		return types.NilType()
	}
}

func staticKindToType(k staticeval.Kind) types.Type {
	switch k {
	case staticeval.KInt:
		return types.Int()
	case staticeval.KFloat:
		return types.Flt()
	case staticeval.KBool:
		return types.Boolean()
	case staticeval.KString:
		return types.Str()
	default:
		return types.NilType()
	}
}
