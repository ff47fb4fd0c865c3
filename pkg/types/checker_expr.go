package types

import (
	"github.com/vyn-lang/vync/pkg/ast"
	"github.com/vyn-lang/vync/pkg/diag"
)

// checkExpr assigns a Type to expr, recording diagnostics on failure.
// The second return value is false when the expression could not be
// typed at all (callers should not build further on the result).
func (ch *Checker) checkExpr(expr ast.Expression, scope *Scope, c *diag.Collector) (Type, bool) {
	switch n := expr.Node.(type) {
	case ast.IntegerLiteral:
		return Int(), true
	case ast.FloatLiteral:
		return Flt(), true
	case ast.BoolLiteral:
		return Boolean(), true
	case ast.StringLiteral:
		return Str(), true
	case ast.NilLiteral:
		return NilType(), true

	case ast.Identifier:
		sym, ok := scope.Resolve(n.Name)
		if !ok {
			c.Add(diag.New(diag.UndefinedVariable, expr.Span, "undefined variable %q", n.Name))
			return Type{}, false
		}
		ch.uses[UseKey{Span: expr.Span, Name: n.Name}] = sym.Type
		return sym.Type, true

	case ast.ArrayLiteral:
		return ch.checkArrayLiteral(n, expr, scope, c)

	case ast.UnaryExpr:
		return ch.checkUnary(n, expr, scope, c)

	case ast.BinaryExpr:
		return ch.checkBinary(n, expr, scope, c)

	case ast.AssignExpr:
		return ch.checkAssign(n, expr, scope, c)

	case ast.IndexExpr:
		return ch.checkIndex(n, expr, scope, c)

	case ast.IndexAssignExpr:
		return ch.checkIndexAssign(n, expr, scope, c)

	default:
		c.Add(diag.New(diag.UnknownAST, expr.Span, "unrecognized expression"))
		return Type{}, false
	}
}

func (ch *Checker) checkArrayLiteral(n ast.ArrayLiteral, expr ast.Expression, scope *Scope, c *diag.Collector) (Type, bool) {
	if len(n.Elements) == 0 {
		// Deferred: the caller (VarDecl) must supply an annotation for
		// an empty literal. Standing alone, treat it as untyped and let
		// the caller reject it.
		return Type{}, false
	}

	first, ok := ch.checkExpr(n.Elements[0], scope, c)
	if !ok {
		return Type{}, false
	}
	for _, el := range n.Elements[1:] {
		t, ok := ch.checkExpr(el, scope, c)
		if !ok {
			return Type{}, false
		}
		if !t.Equal(first) {
			c.Add(diag.New(diag.ArrayLengthMismatch, el.Span, "array element type %s does not match preceding element type %s", t, first))
			return Type{}, false
		}
	}
	return ArrayOf(first, len(n.Elements)), true
}

func (ch *Checker) checkUnary(n ast.UnaryExpr, expr ast.Expression, scope *Scope, c *diag.Collector) (Type, bool) {
	operand, ok := ch.checkExpr(n.Operand, scope, c)
	if !ok {
		return Type{}, false
	}

	switch n.Operator {
	case "-":
		if operand.IsNumeric() {
			return operand, true
		}
	case "+":
		if operand.IsNumeric() {
			return operand, true
		}
	case "!", "not":
		if operand.Kind == Bool {
			return Boolean(), true
		}
		if operand.Kind == Integer {
			// !Int(n) folds to Bool(n == 0); typed as Bool.
			return Boolean(), true
		}
	}

	c.Add(diag.New(diag.InvalidUnaryOp, expr.Span, "operator %q is not defined for %s", n.Operator, operand))
	return Type{}, false
}

func (ch *Checker) checkBinary(n ast.BinaryExpr, expr ast.Expression, scope *Scope, c *diag.Collector) (Type, bool) {
	lhs, ok := ch.checkExpr(n.Left, scope, c)
	if !ok {
		return Type{}, false
	}
	rhs, ok := ch.checkExpr(n.Right, scope, c)
	if !ok {
		return Type{}, false
	}

	switch n.Operator {
	case "+", "-", "*", "/", "^":
		if n.Operator == "+" && lhs.Kind == String && rhs.Kind == String {
			return Str(), true
		}
		if lhs.IsNumeric() && lhs.Equal(rhs) {
			return lhs, true
		}

	case "<", "<=", ">", ">=":
		if lhs.IsNumeric() && lhs.Equal(rhs) {
			return Boolean(), true
		}

	case "==", "!=":
		if lhs.Equal(rhs) {
			return Boolean(), true
		}

	case "and", "or":
		if lhs.Kind == Bool && rhs.Kind == Bool {
			return Boolean(), true
		}
	}

	c.Add(diag.New(diag.InvalidBinaryOp, expr.Span, "operator %q is not defined for %s and %s", n.Operator, lhs, rhs))
	return Type{}, false
}

func (ch *Checker) checkAssign(n ast.AssignExpr, expr ast.Expression, scope *Scope, c *diag.Collector) (Type, bool) {
	ident, ok := n.Target.Node.(ast.Identifier)
	if !ok {
		c.Add(diag.New(diag.LeftHandAssignment, n.Target.Span, "left-hand side of assignment must be an identifier"))
		return Type{}, false
	}

	sym, ok := scope.Resolve(ident.Name)
	if !ok {
		c.Add(diag.New(diag.UndefinedVariable, n.Target.Span, "undefined variable %q", ident.Name))
		return Type{}, false
	}
	if sym.IsStatic {
		c.Add(diag.New(diag.StaticMutation, expr.Span, "cannot assign to static %q", ident.Name))
		return Type{}, false
	}
	if !sym.Mutable {
		c.Add(diag.New(diag.ImmutableMutation, expr.Span, "cannot assign to immutable variable %q", ident.Name).
			WithSecondary(sym.Span, "declared here without 'mut'"))
		return Type{}, false
	}

	valueType, ok := ch.checkExpr(n.Value, scope, c)
	if !ok {
		return Type{}, false
	}
	if !valueType.Equal(sym.Type) {
		c.Add(diag.New(diag.TypeMismatch, expr.Span, "cannot assign %s to %q of type %s", valueType, ident.Name, sym.Type))
		return Type{}, false
	}

	ch.uses[UseKey{Span: n.Target.Span, Name: ident.Name}] = sym.Type
	return sym.Type, true
}

func (ch *Checker) checkIndex(n ast.IndexExpr, expr ast.Expression, scope *Scope, c *diag.Collector) (Type, bool) {
	target, ok := ch.checkExpr(n.Target, scope, c)
	if !ok {
		return Type{}, false
	}
	if !target.IsIndexable() {
		c.Add(diag.New(diag.InvalidIndexing, expr.Span, "cannot index into %s", target))
		return Type{}, false
	}
	idxType, ok := ch.checkExpr(n.Index, scope, c)
	if !ok {
		return Type{}, false
	}
	if idxType.Kind != Integer {
		c.Add(diag.New(diag.InvalidIndexing, n.Index.Span, "index must be Integer, found %s", idxType))
		return Type{}, false
	}
	return *target.Element, true
}

func (ch *Checker) checkIndexAssign(n ast.IndexAssignExpr, expr ast.Expression, scope *Scope, c *diag.Collector) (Type, bool) {
	target, ok := ch.checkExpr(n.Target, scope, c)
	if !ok {
		return Type{}, false
	}
	if !target.IsIndexable() {
		c.Add(diag.New(diag.InvalidIndexing, expr.Span, "cannot index into %s", target))
		return Type{}, false
	}
	if ident, isIdent := n.Target.Node.(ast.Identifier); isIdent {
		if sym, ok := scope.Resolve(ident.Name); ok && !sym.Mutable {
			c.Add(diag.New(diag.ImmutableMutation, expr.Span, "cannot mutate immutable variable %q through indexing", ident.Name).
				WithSecondary(sym.Span, "declared here without 'mut'"))
			return Type{}, false
		}
	}

	idxType, ok := ch.checkExpr(n.Index, scope, c)
	if !ok {
		return Type{}, false
	}
	if idxType.Kind != Integer {
		c.Add(diag.New(diag.InvalidIndexing, n.Index.Span, "index must be Integer, found %s", idxType))
		return Type{}, false
	}

	valueType, ok := ch.checkExpr(n.Value, scope, c)
	if !ok {
		return Type{}, false
	}
	elem := *target.Element
	if !valueType.Equal(elem) {
		c.Add(diag.New(diag.TypeMismatch, expr.Span, "cannot assign %s into a sequence of %s", valueType, elem))
		return Type{}, false
	}
	return elem, true
}
