// Package ast defines the abstract syntax tree consumed by the static
// evaluator, type checker and IR builder. Expr and Stmt are closed sum
// types implemented as interfaces with a private marker method so the
// set of variants stays exhaustive and match sites (type switches) must
// be kept in sync across phases.
package ast

import "github.com/vyn-lang/vync/pkg/source"

// Expression is any expression AST node wrapped with its span.
type Expression = source.Spanned[Expr]

// Statement is any statement AST node wrapped with its span.
type Statement = source.Spanned[Stmt]

// Program is an ordered sequence of top-level statements.
type Program struct {
	Statements []Statement
}

// Expr is the closed sum of expression node kinds.
type Expr interface {
	exprNode()
}

// Stmt is the closed sum of statement node kinds.
type Stmt interface {
	stmtNode()
}

// ---- Expressions ----

type IntegerLiteral struct{ Value int32 }
type FloatLiteral struct{ Value float64 }
type BoolLiteral struct{ Value bool }
type StringLiteral struct{ Value string }
type NilLiteral struct{}
type Identifier struct{ Name string }

type ArrayLiteral struct{ Elements []Expression }

type UnaryExpr struct {
	Operator string // "-", "+", "not", "!"
	Operand  Expression
}

type BinaryExpr struct {
	Left     Expression
	Operator string // + - * / ^ < <= > >= == != and or
	Right    Expression
}

// AssignExpr is `x = expr`.
type AssignExpr struct {
	Target Expression
	Value  Expression
}

type IndexExpr struct {
	Target Expression
	Index  Expression
}

// IndexAssignExpr is `a[i] = expr`.
type IndexAssignExpr struct {
	Target Expression
	Index  Expression
	Value  Expression
}

func (IntegerLiteral) exprNode()   {}
func (FloatLiteral) exprNode()     {}
func (BoolLiteral) exprNode()      {}
func (StringLiteral) exprNode()    {}
func (NilLiteral) exprNode()       {}
func (Identifier) exprNode()       {}
func (ArrayLiteral) exprNode()     {}
func (UnaryExpr) exprNode()        {}
func (BinaryExpr) exprNode()       {}
func (AssignExpr) exprNode()       {}
func (IndexExpr) exprNode()        {}
func (IndexAssignExpr) exprNode()  {}

// ---- Type annotations (surface syntax, resolved via the static table) ----

// TypeAnnotation is the surface-level type form used in declarations.
type TypeAnnotation interface {
	typeAnnotationNode()
}

type NamedType struct{ Name string } // Integer, Float, Bool, String, Nil
type FixedArrayType struct {
	Element TypeAnnotation
	Size    Expression // resolved via the static evaluator
}
type SequenceType struct{ Element TypeAnnotation }

func (NamedType) typeAnnotationNode()      {}
func (FixedArrayType) typeAnnotationNode() {}
func (SequenceType) typeAnnotationNode()   {}

// ---- Statements ----

type ExpressionStmt struct{ Expr Expression }

type VarDecl struct {
	Name       string
	Mutable    bool
	Annotation TypeAnnotation // nil if omitted (inferred)
	Value      Expression
}

type StaticDecl struct {
	Name       string
	Annotation TypeAnnotation
	Value      Expression
}

type TypeAliasDecl struct {
	Name string
	Type TypeAnnotation
}

type StdoutStmt struct{ Value Expression }

// ScopeStmt introduces a fresh lexical scope without control flow.
type ScopeStmt struct{ Body []Statement }

// InstructionBlock groups statements without introducing a new scope
// (used for parenthesized/grouped statement sequences).
type InstructionBlock struct{ Body []Statement }

type IfStmt struct {
	Condition Expression
	Then      []Statement
	Else      []Statement // nil if no else branch
}

type LoopStmt struct{ Body []Statement }

type BreakStmt struct{}
type ContinueStmt struct{}

func (ExpressionStmt) stmtNode()   {}
func (VarDecl) stmtNode()          {}
func (StaticDecl) stmtNode()       {}
func (TypeAliasDecl) stmtNode()    {}
func (StdoutStmt) stmtNode()       {}
func (ScopeStmt) stmtNode()        {}
func (InstructionBlock) stmtNode() {}
func (IfStmt) stmtNode()           {}
func (LoopStmt) stmtNode()         {}
func (BreakStmt) stmtNode()        {}
func (ContinueStmt) stmtNode()     {}
