// Package diag implements the diagnostic model threaded through every
// compiler phase: a Collector that phases append to without aborting,
// and a renderer that prints the ANSI-colored, caret-annotated report
// format from the specification.
package diag

import (
	"fmt"

	"github.com/vyn-lang/vync/pkg/source"
)

// Category groups diagnostic Kinds for display and for the CLI's
// `check` output.
type Category string

const (
	Syntax   Category = "Syntax"
	Type     Category = "Type"
	Math     Category = "Math"
	Index    Category = "Index"
	Compiler Category = "Compiler"
	Runtime  Category = "Runtime"
)

// Kind enumerates every diagnostic kind named in the error taxonomy.
type Kind int

const (
	// Syntax
	UnexpectedToken Kind = iota
	ExpectedToken
	InvalidTypeName
	ExpectedTypeAnnotation

	// Static evaluator
	CircularStaticDependency
	UndefinedStatic
	StaticEvaluationFailed
	NotStaticExpression
	InvalidStaticOperation
	StaticOverflow
	DivisionByZeroStatic
	NegativeExponent
	NegativeArraySize
	ArraySizeNotStatic

	// Type checker
	TypeMismatch
	InvalidUnaryOp
	InvalidBinaryOp
	DeclarationTypeMismatch
	ArrayLengthMismatch
	IndexOutOfBounds
	InvalidIndexing
	TypeInfer
	StaticRequiresConstant

	// Scoping
	UndefinedVariable
	VariableRedeclaration
	TypeAliasRedeclaration
	ImmutableMutation
	StaticMutation
	IllegalLoopInterruptToken
	LeftHandAssignment

	// Compiler (internal guards)
	RegisterOverflow
	NotImplementedKind
	UnknownAST
	UndefinedIdentifierEscaped

	// Runtime
	ArithmeticError
	UnaryOperationError
	ComparisonOperationError
	DivisionByZeroRuntime

	// Object file
	InvalidObjectFile
)

var categoryOf = map[Kind]Category{
	UnexpectedToken: Syntax, ExpectedToken: Syntax, InvalidTypeName: Syntax,
	ExpectedTypeAnnotation: Syntax, StaticRequiresConstant: Syntax,

	CircularStaticDependency: Type, UndefinedStatic: Type, StaticEvaluationFailed: Type,
	NotStaticExpression: Type, InvalidStaticOperation: Type, StaticOverflow: Type,
	NegativeExponent: Type, NegativeArraySize: Type, ArraySizeNotStatic: Type,
	TypeMismatch: Type, InvalidUnaryOp: Type, InvalidBinaryOp: Type,
	DeclarationTypeMismatch: Type, ArrayLengthMismatch: Type, InvalidIndexing: Type,
	TypeInfer: Type, UndefinedVariable: Type, VariableRedeclaration: Type,
	TypeAliasRedeclaration: Type, ImmutableMutation: Type, StaticMutation: Type,
	IllegalLoopInterruptToken: Type, LeftHandAssignment: Type,

	IndexOutOfBounds: Index,

	RegisterOverflow: Compiler, NotImplementedKind: Compiler, UnknownAST: Compiler,
	UndefinedIdentifierEscaped: Compiler, InvalidObjectFile: Compiler,

	ArithmeticError: Runtime, UnaryOperationError: Runtime, ComparisonOperationError: Runtime,

	DivisionByZeroStatic: Math, DivisionByZeroRuntime: Math,
}

// Secondary is an optional second snippet shown below the main one,
// e.g. the original declaration site for a redeclaration error.
type Secondary struct {
	Span  source.Span
	Label string
}

// Diagnostic is one reported error.
type Diagnostic struct {
	Kind      Kind
	Message   string
	Span      source.Span
	Secondary *Secondary
	Hint      string
}

// Category returns the display category for this diagnostic's kind.
func (d Diagnostic) Category() Category {
	if c, ok := categoryOf[d.Kind]; ok {
		return c
	}
	return Compiler
}

// New builds a Diagnostic with a formatted message.
func New(kind Kind, span source.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

// WithHint attaches a hint and returns the diagnostic for chaining.
func (d Diagnostic) WithHint(hint string) Diagnostic {
	d.Hint = hint
	return d
}

// WithSecondary attaches a secondary cross-reference span.
func (d Diagnostic) WithSecondary(span source.Span, label string) Diagnostic {
	d.Secondary = &Secondary{Span: span, Label: label}
	return d
}

// Collector accumulates diagnostics across a phase without aborting.
// A phase fails iff its Collector is non-empty when the phase returns.
type Collector struct {
	diagnostics []Diagnostic
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector { return &Collector{} }

// Add appends a diagnostic.
func (c *Collector) Add(d Diagnostic) { c.diagnostics = append(c.diagnostics, d) }

// Failed reports whether any diagnostic has been collected.
func (c *Collector) Failed() bool { return len(c.diagnostics) > 0 }

// Len returns the number of collected diagnostics.
func (c *Collector) Len() int { return len(c.diagnostics) }

// All returns every collected diagnostic in source-walk order.
func (c *Collector) All() []Diagnostic { return c.diagnostics }

// Merge appends another collector's diagnostics onto this one, preserving
// the order in which they were produced.
func (c *Collector) Merge(other *Collector) {
	c.diagnostics = append(c.diagnostics, other.diagnostics...)
}
