package types

import (
	"github.com/vyn-lang/vync/pkg/ast"
	"github.com/vyn-lang/vync/pkg/diag"
	"github.com/vyn-lang/vync/pkg/source"
	"github.com/vyn-lang/vync/pkg/staticeval"
)

// UseKey identifies one resolved identifier use site.
type UseKey struct {
	Span source.Span
	Name string
}

// SymbolTypes is the checker's output: every resolved identifier use
// site mapped to its type, for the IR builder to consume.
type SymbolTypes map[UseKey]Type

// Checker assigns types to a type-checked program.
type Checker struct {
	statics  *staticeval.Table
	root     *Scope
	uses     SymbolTypes
	loopDepth int
}

// NewChecker creates a Checker that resolves `[N]T` sizes and static
// identifiers against the frozen static table.
func NewChecker(statics *staticeval.Table) *Checker {
	return &Checker{
		statics: statics,
		root:    NewScope(),
		uses:    make(SymbolTypes),
	}
}

// Check type-checks the whole program, returning the symbol-use type
// table for the IR builder. Local errors are appended to c and checking
// continues with the next statement.
func (ch *Checker) Check(p *ast.Program, c *diag.Collector) SymbolTypes {
	for _, stmt := range p.Statements {
		ch.checkStmt(stmt, ch.root, c)
	}
	return ch.uses
}

func (ch *Checker) checkStmt(stmt ast.Statement, scope *Scope, c *diag.Collector) {
	switch st := stmt.Node.(type) {
	case ast.ExpressionStmt:
		ch.checkExpr(st.Expr, scope, c)

	case ast.VarDecl:
		ch.checkVarDecl(st, stmt.Span, scope, c)

	case ast.StaticDecl:
		ch.checkStaticDecl(st, stmt.Span, scope, c)

	case ast.TypeAliasDecl:
		if _, exists := scope.AliasDeclaredLocally(st.Name); exists {
			c.Add(diag.New(diag.TypeAliasRedeclaration, stmt.Span, "type alias %q already declared in this scope", st.Name))
			return
		}
		t := ch.resolveAnnotation(st.Type, scope, c)
		scope.DeclareAlias(st.Name, t)

	case ast.StdoutStmt:
		ch.checkExpr(st.Value, scope, c)

	case ast.ScopeStmt:
		inner := scope.Enter()
		for _, s := range st.Body {
			ch.checkStmt(s, inner, c)
		}

	case ast.InstructionBlock:
		for _, s := range st.Body {
			ch.checkStmt(s, scope, c)
		}

	case ast.IfStmt:
		condType, ok := ch.checkExpr(st.Condition, scope, c)
		if ok && !condType.Equal(Boolean()) {
			c.Add(diag.New(diag.TypeMismatch, st.Condition.Span, "if condition must be Bool, found %s", condType))
		}
		thenScope := scope.Enter()
		for _, s := range st.Then {
			ch.checkStmt(s, thenScope, c)
		}
		elseScope := scope.Enter()
		for _, s := range st.Else {
			ch.checkStmt(s, elseScope, c)
		}

	case ast.LoopStmt:
		ch.loopDepth++
		inner := scope.Enter()
		for _, s := range st.Body {
			ch.checkStmt(s, inner, c)
		}
		ch.loopDepth--

	case ast.BreakStmt:
		if ch.loopDepth == 0 {
			c.Add(diag.New(diag.IllegalLoopInterruptToken, stmt.Span, "'break' used outside of a loop"))
		}

	case ast.ContinueStmt:
		if ch.loopDepth == 0 {
			c.Add(diag.New(diag.IllegalLoopInterruptToken, stmt.Span, "'continue' used outside of a loop"))
		}
	}
}

func (ch *Checker) checkVarDecl(st ast.VarDecl, span source.Span, scope *Scope, c *diag.Collector) {
	if existing, exists := scope.DeclaredLocally(st.Name); exists {
		c.Add(diag.New(diag.VariableRedeclaration, span, "%q is already declared in this scope", st.Name).
			WithSecondary(existing.Span, "original declaration"))
		return
	}

	if isEmptyArrayLiteral(st.Value.Node) {
		if st.Annotation == nil {
			c.Add(diag.New(diag.TypeInfer, span, "cannot infer type of an empty array literal without an annotation"))
			return
		}
		if declared := ch.resolveAnnotation(st.Annotation, scope, c); declared.Kind == Sequence || (declared.Kind == Array && declared.Size == 0) {
			scope.Declare(&Symbol{Name: st.Name, Type: declared, Span: span, Mutable: st.Mutable})
		} else {
			c.Add(diag.New(diag.DeclarationTypeMismatch, span, "declared type %s does not match an empty array literal", declared))
		}
		return
	}

	valueType, ok := ch.checkExpr(st.Value, scope, c)
	if !ok {
		return
	}

	var declared Type
	if st.Annotation == nil {
		declared = valueType
	} else {
		declared = ch.resolveAnnotation(st.Annotation, scope, c)
		if !declared.Equal(valueType) {
			c.Add(diag.New(diag.DeclarationTypeMismatch, span, "declared type %s does not match value type %s", declared, valueType))
			return
		}
	}

	scope.Declare(&Symbol{Name: st.Name, Type: declared, Span: span, Mutable: st.Mutable})
}

func (ch *Checker) checkStaticDecl(st ast.StaticDecl, span source.Span, scope *Scope, c *diag.Collector) {
	if existing, exists := scope.DeclaredLocally(st.Name); exists {
		c.Add(diag.New(diag.VariableRedeclaration, span, "%q is already declared in this scope", st.Name).
			WithSecondary(existing.Span, "original declaration"))
		return
	}

	if !isStaticExpr(st.Value.Node) {
		c.Add(diag.New(diag.StaticRequiresConstant, span, "static declaration requires a compile-time constant expression"))
	}

	valueType, ok := ch.checkExpr(st.Value, scope, c)
	if !ok {
		return
	}

	declared := valueType
	if st.Annotation != nil {
		declared = ch.resolveAnnotation(st.Annotation, scope, c)
		if !declared.Equal(valueType) {
			c.Add(diag.New(diag.DeclarationTypeMismatch, span, "declared type %s does not match value type %s", declared, valueType))
			return
		}
	}

	scope.Declare(&Symbol{Name: st.Name, Type: declared, Span: span, Mutable: false, IsStatic: true})
}

// isStaticExpr is a conservative syntactic check mirroring the static
// evaluator's folding rules (used only to raise StaticRequiresConstant
// early and consistently with the evaluator's own NotStaticExpression).
func isStaticExpr(e ast.Expr) bool {
	switch v := e.(type) {
	case ast.IntegerLiteral, ast.FloatLiteral, ast.BoolLiteral, ast.StringLiteral, ast.NilLiteral, ast.Identifier:
		return true
	case ast.UnaryExpr:
		return isStaticExpr(v.Operand.Node)
	case ast.BinaryExpr:
		return isStaticExpr(v.Left.Node) && isStaticExpr(v.Right.Node)
	default:
		return false
	}
}

func isEmptyArrayLiteral(e ast.Expr) bool {
	arr, ok := e.(ast.ArrayLiteral)
	return ok && len(arr.Elements) == 0
}

func (ch *Checker) resolveAnnotation(a ast.TypeAnnotation, scope *Scope, c *diag.Collector) Type {
	switch t := a.(type) {
	case ast.NamedType:
		switch t.Name {
		case "Integer":
			return Int()
		case "Float":
			return Flt()
		case "Bool":
			return Boolean()
		case "String":
			return Str()
		case "Nil":
			return NilType()
		default:
			if alias, ok := scope.ResolveAlias(t.Name); ok {
				return alias
			}
			c.Add(diag.New(diag.InvalidTypeName, source.Span{}, "unknown type %q", t.Name))
			return NilType()
		}

	case ast.SequenceType:
		elem := ch.resolveAnnotation(t.Element, scope, c)
		return SequenceOf(elem)

	case ast.FixedArrayType:
		elem := ch.resolveAnnotation(t.Element, scope, c)
		size, ok := ch.resolveArraySize(t.Size, c)
		if !ok {
			return ArrayOf(elem, 0)
		}
		return ArrayOf(elem, size)

	default:
		return NilType()
	}
}

func (ch *Checker) resolveArraySize(sizeExpr ast.Expression, c *diag.Collector) (int, bool) {
	ident, ok := sizeExpr.Node.(ast.Identifier)
	if ok {
		n, found := ch.statics.GetInt(ident.Name)
		if !found {
			c.Add(diag.New(diag.ArraySizeNotStatic, sizeExpr.Span, "array size must resolve to a static integer"))
			return 0, false
		}
		if n < 0 {
			c.Add(diag.New(diag.NegativeArraySize, sizeExpr.Span, "array size %d must not be negative", n))
			return 0, false
		}
		return int(n), true
	}

	lit, ok := sizeExpr.Node.(ast.IntegerLiteral)
	if ok {
		if lit.Value < 0 {
			c.Add(diag.New(diag.NegativeArraySize, sizeExpr.Span, "array size %d must not be negative", lit.Value))
			return 0, false
		}
		return int(lit.Value), true
	}

	c.Add(diag.New(diag.ArraySizeNotStatic, sizeExpr.Span, "array size must be a compile-time constant"))
	return 0, false
}
