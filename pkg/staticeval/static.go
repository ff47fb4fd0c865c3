// Package staticeval resolves every `static` declaration in a program to
// a concrete compile-time StaticValue, detecting circular dependencies,
// integer overflow and other folding failures. It is a pure function of
// the AST: evaluating the same program twice yields the same table.
package staticeval

import (
	"fmt"

	"github.com/vyn-lang/vync/pkg/ast"
	"github.com/vyn-lang/vync/pkg/diag"
	"github.com/vyn-lang/vync/pkg/source"
)

// Kind tags a StaticValue's dynamic type.
type Kind int

const (
	KInt Kind = iota
	KFloat
	KBool
	KString
	KNil
)

// Value is a frozen compile-time scalar.
type Value struct {
	Kind Kind
	Int  int32
	Flt  float64
	Bool bool
	Str  string
}

func IntValue(n int32) Value      { return Value{Kind: KInt, Int: n} }
func FloatValue(f float64) Value  { return Value{Kind: KFloat, Flt: f} }
func BoolValue(b bool) Value      { return Value{Kind: KBool, Bool: b} }
func StringValue(s string) Value  { return Value{Kind: KString, Str: s} }
func NilValue() Value             { return Value{Kind: KNil} }

type entry struct {
	value Value
	span  source.Span
}

// Table is the frozen, read-only-after-evaluation static table.
type Table struct {
	entries map[string]entry
}

// Get looks up a resolved static value by name.
func (t *Table) Get(name string) (Value, source.Span, bool) {
	e, ok := t.entries[name]
	return e.value, e.span, ok
}

// GetInt is a convenience accessor used to resolve `[N]T` array sizes.
func (t *Table) GetInt(name string) (int32, bool) {
	e, ok := t.entries[name]
	if !ok || e.value.Kind != KInt {
		return 0, false
	}
	return e.value.Int, true
}

// Evaluator collects and folds every `static` declaration in a program.
type Evaluator struct {
	table      map[string]entry
	evaluating []string
}

// New creates an empty Evaluator.
func New() *Evaluator {
	return &Evaluator{table: make(map[string]entry)}
}

type pendingStatic struct {
	name  string
	value ast.Expression
	span  source.Span
}

// EvaluateProgram walks the program collecting every `static` declaration
// (including those nested inside scope blocks), folds each one, and
// returns the frozen Table. Local failures are appended to c and do not
// abort evaluation of the remaining statics.
func (e *Evaluator) EvaluateProgram(p *ast.Program, c *diag.Collector) *Table {
	var pending []pendingStatic
	collect(p.Statements, &pending)

	for _, decl := range pending {
		e.evaluateAndStore(decl.name, decl.value, decl.span, c)
	}

	return &Table{entries: e.table}
}

func collect(stmts []ast.Statement, out *[]pendingStatic) {
	for _, s := range stmts {
		switch st := s.Node.(type) {
		case ast.StaticDecl:
			*out = append(*out, pendingStatic{name: st.Name, value: st.Value, span: s.Span})
		case ast.ScopeStmt:
			collect(st.Body, out)
		case ast.InstructionBlock:
			collect(st.Body, out)
		case ast.IfStmt:
			collect(st.Then, out)
			collect(st.Else, out)
		case ast.LoopStmt:
			collect(st.Body, out)
		}
	}
}

func (e *Evaluator) evaluateAndStore(name string, expr ast.Expression, span source.Span, c *diag.Collector) {
	if existing, ok := e.table[name]; ok {
		c.Add(diag.New(diag.VariableRedeclaration, span, "static %q is already declared", name).
			WithSecondary(existing.span, "original declaration"))
		return
	}

	for _, n := range e.evaluating {
		if n == name {
			c.Add(diag.New(diag.CircularStaticDependency, span, "static %q depends on itself through a cycle", name))
			return
		}
	}

	e.evaluating = append(e.evaluating, name)
	value, ok := e.evalExpr(expr, c)
	e.evaluating = e.evaluating[:len(e.evaluating)-1]

	if !ok {
		return
	}
	e.table[name] = entry{value: value, span: span}
}

func (e *Evaluator) evalExpr(expr ast.Expression, c *diag.Collector) (Value, bool) {
	switch n := expr.Node.(type) {
	case ast.IntegerLiteral:
		return IntValue(n.Value), true
	case ast.FloatLiteral:
		return FloatValue(n.Value), true
	case ast.BoolLiteral:
		return BoolValue(n.Value), true
	case ast.StringLiteral:
		return StringValue(n.Value), true
	case ast.NilLiteral:
		return NilValue(), true

	case ast.Identifier:
		if ent, ok := e.table[n.Name]; ok {
			return ent.value, true
		}
		for _, name := range e.evaluating {
			if name == n.Name {
				c.Add(diag.New(diag.CircularStaticDependency, expr.Span, "static %q depends on itself through a cycle", n.Name))
				return Value{}, false
			}
		}
		c.Add(diag.New(diag.UndefinedStatic, expr.Span, "undefined static %q", n.Name))
		return Value{}, false

	case ast.UnaryExpr:
		return e.evalUnary(n, expr.Span, c)

	case ast.BinaryExpr:
		return e.evalBinary(n, expr.Span, c)

	default:
		c.Add(diag.New(diag.NotStaticExpression, expr.Span, "expression is not a compile-time constant"))
		return Value{}, false
	}
}

func (e *Evaluator) evalUnary(n ast.UnaryExpr, span source.Span, c *diag.Collector) (Value, bool) {
	rhs, ok := e.evalExpr(n.Operand, c)
	if !ok {
		return Value{}, false
	}

	switch n.Operator {
	case "-":
		switch rhs.Kind {
		case KInt:
			return IntValue(-rhs.Int), true
		case KFloat:
			return FloatValue(-rhs.Flt), true
		}
	case "+":
		if rhs.Kind == KInt || rhs.Kind == KFloat {
			return rhs, true
		}
	case "!", "not":
		switch rhs.Kind {
		case KBool:
			return BoolValue(!rhs.Bool), true
		case KInt:
			// Explicit language design: !Int(n) folds to Bool(n == 0).
			return BoolValue(rhs.Int == 0), true
		}
	}

	c.Add(diag.New(diag.InvalidStaticOperation, span, "invalid static unary operation %q", n.Operator))
	return Value{}, false
}

func (e *Evaluator) evalBinary(n ast.BinaryExpr, span source.Span, c *diag.Collector) (Value, bool) {
	lhs, ok := e.evalExpr(n.Left, c)
	if !ok {
		return Value{}, false
	}
	rhs, ok := e.evalExpr(n.Right, c)
	if !ok {
		return Value{}, false
	}

	if lhs.Kind == KInt && rhs.Kind == KInt {
		return evalIntOp(n.Operator, lhs.Int, rhs.Int, span, c)
	}
	if lhs.Kind == KFloat && rhs.Kind == KFloat {
		return evalFloatOp(n.Operator, lhs.Flt, rhs.Flt, span, c)
	}
	if lhs.Kind == KBool && rhs.Kind == KBool {
		switch n.Operator {
		case "and":
			return BoolValue(lhs.Bool && rhs.Bool), true
		case "or":
			return BoolValue(lhs.Bool || rhs.Bool), true
		}
	}
	if lhs.Kind == KString && rhs.Kind == KString && n.Operator == "+" {
		return StringValue(lhs.Str + rhs.Str), true
	}

	c.Add(diag.New(diag.InvalidStaticOperation, span, "invalid static binary operation %q", n.Operator))
	return Value{}, false
}

func evalIntOp(op string, l, r int32, span source.Span, c *diag.Collector) (Value, bool) {
	checkedAdd := func(a, b int32) (int32, bool) {
		s := int64(a) + int64(b)
		return int32(s), s == int64(int32(s))
	}
	checkedSub := func(a, b int32) (int32, bool) {
		s := int64(a) - int64(b)
		return int32(s), s == int64(int32(s))
	}
	checkedMul := func(a, b int32) (int32, bool) {
		s := int64(a) * int64(b)
		return int32(s), s == int64(int32(s))
	}

	overflow := func() (Value, bool) {
		c.Add(diag.New(diag.StaticOverflow, span, "integer constant overflow"))
		return Value{}, false
	}

	switch op {
	case "+":
		v, ok := checkedAdd(l, r)
		if !ok {
			return overflow()
		}
		return IntValue(v), true
	case "-":
		v, ok := checkedSub(l, r)
		if !ok {
			return overflow()
		}
		return IntValue(v), true
	case "*":
		v, ok := checkedMul(l, r)
		if !ok {
			return overflow()
		}
		return IntValue(v), true
	case "/":
		if r == 0 {
			c.Add(diag.New(diag.DivisionByZeroStatic, span, "division by zero"))
			return Value{}, false
		}
		return IntValue(l / r), true
	case "^":
		if r < 0 {
			c.Add(diag.New(diag.NegativeExponent, span, "negative exponent in integer power"))
			return Value{}, false
		}
		result := int64(1)
		base := int64(l)
		for i := int32(0); i < r; i++ {
			result *= base
			if result > int64(1<<31-1) || result < int64(-1<<31) {
				return overflow()
			}
		}
		return IntValue(int32(result)), true
	case "<":
		return BoolValue(l < r), true
	case "<=":
		return BoolValue(l <= r), true
	case ">":
		return BoolValue(l > r), true
	case ">=":
		return BoolValue(l >= r), true
	case "==":
		return BoolValue(l == r), true
	case "!=":
		return BoolValue(l != r), true
	}

	c.Add(diag.New(diag.InvalidStaticOperation, span, "invalid static integer operation %q", op))
	return Value{}, false
}

func evalFloatOp(op string, l, r float64, span source.Span, c *diag.Collector) (Value, bool) {
	switch op {
	case "+":
		return FloatValue(l + r), true
	case "-":
		return FloatValue(l - r), true
	case "*":
		return FloatValue(l * r), true
	case "/":
		if r == 0 {
			c.Add(diag.New(diag.DivisionByZeroStatic, span, "division by zero"))
			return Value{}, false
		}
		return FloatValue(l / r), true
	case "^":
		v := 1.0
		for i := 0; i < int(r); i++ {
			v *= l
		}
		return FloatValue(v), true
	case "<":
		return BoolValue(l < r), true
	case "<=":
		return BoolValue(l <= r), true
	case ">":
		return BoolValue(l > r), true
	case ">=":
		return BoolValue(l >= r), true
	case "==":
		return BoolValue(l == r), true
	case "!=":
		return BoolValue(l != r), true
	}

	c.Add(diag.New(diag.InvalidStaticOperation, span, "invalid static float operation %q", op))
	return Value{}, false
}

// String renders a Value for debug/disassembly output.
func (v Value) String() string {
	switch v.Kind {
	case KInt:
		return fmt.Sprintf("%d", v.Int)
	case KFloat:
		return fmt.Sprintf("%g", v.Flt)
	case KBool:
		return fmt.Sprintf("%t", v.Bool)
	case KString:
		return v.Str
	default:
		return "nil"
	}
}
