package ir

import (
	"github.com/vyn-lang/vync/pkg/ast"
	"github.com/vyn-lang/vync/pkg/source"
	"github.com/vyn-lang/vync/pkg/staticeval"
	"github.com/vyn-lang/vync/pkg/types"
)

// loopContext records the jump targets for break/continue inside the
// loop currently being lowered.
type loopContext struct {
	breakLabel    Label
	continueLabel Label
}

// Builder lowers a type-checked program to a flat Instruction stream.
// The caller must have already run the static evaluator and type
// checker successfully (Program well-typed, statics resolved); Builder
// performs no validation of its own.
type Builder struct {
	statics   *staticeval.Table
	instrs    []SpannedInstr
	nextReg   VReg
	nextLabel Label
	loops     []loopContext
}

// NewBuilder creates a Builder against the program's frozen static
// table (used to inline references to `static` declarations as
// constants rather than loads).
func NewBuilder(statics *staticeval.Table) *Builder {
	return &Builder{statics: statics}
}

// Build lowers every top-level statement and appends a trailing Halt.
func (b *Builder) Build(p *ast.Program) []SpannedInstr {
	root := newScope(nil)
	for _, stmt := range p.Statements {
		b.lowerStmt(stmt, root)
	}
	b.emit(source.Span{}, Instruction{Op: OpHalt})
	return b.instrs
}

func (b *Builder) emit(span source.Span, i Instruction) {
	b.instrs = append(b.instrs, source.With(i, span))
}

func (b *Builder) newReg() VReg {
	r := b.nextReg
	b.nextReg++
	return r
}

func (b *Builder) newLabel() Label {
	l := b.nextLabel
	b.nextLabel++
	return l
}

func (b *Builder) lowerStmt(stmt ast.Statement, sc *scope) {
	span := stmt.Span
	switch st := stmt.Node.(type) {
	case ast.ExpressionStmt:
		b.lowerExpr(st.Expr, sc)

	case ast.VarDecl:
		valueReg := b.lowerExpr(st.Value, sc)
		typ := inferType(st.Value, b.statics, sc)
		dest := b.newReg()
		b.emit(span, Instruction{Op: OpMove, Dest: dest, Src: valueReg})
		sc.declare(st.Name, binding{reg: dest, typ: typ})

	case ast.StaticDecl, ast.TypeAliasDecl:
		// Compile-time only: statics are inlined as constants at every
		// use site and type aliases carry no runtime representation.

	case ast.StdoutStmt:
		reg := b.lowerExpr(st.Value, sc)
		b.emit(span, Instruction{Op: OpLogAddr, Src: reg})

	case ast.ScopeStmt:
		inner := newScope(sc)
		for _, s := range st.Body {
			b.lowerStmt(s, inner)
		}

	case ast.InstructionBlock:
		for _, s := range st.Body {
			b.lowerStmt(s, sc)
		}

	case ast.IfStmt:
		b.lowerIf(st, span, sc)

	case ast.LoopStmt:
		b.lowerLoop(st, span, sc)

	case ast.BreakStmt:
		if n := len(b.loops); n > 0 {
			b.emit(span, Instruction{Op: OpJump, Target: b.loops[n-1].breakLabel})
		}

	case ast.ContinueStmt:
		if n := len(b.loops); n > 0 {
			b.emit(span, Instruction{Op: OpJump, Target: b.loops[n-1].continueLabel})
		}
	}
}

func (b *Builder) lowerIf(st ast.IfStmt, span source.Span, sc *scope) {
	condReg := b.lowerExpr(st.Condition, sc)
	elseLabel := b.newLabel()
	endLabel := b.newLabel()

	b.emit(span, Instruction{Op: OpJumpIfFalse, Src: condReg, Target: elseLabel})

	thenScope := newScope(sc)
	for _, s := range st.Then {
		b.lowerStmt(s, thenScope)
	}
	b.emit(span, Instruction{Op: OpJump, Target: endLabel})

	b.emit(span, Instruction{Op: OpLabel, Name: elseLabel})
	elseScope := newScope(sc)
	for _, s := range st.Else {
		b.lowerStmt(s, elseScope)
	}

	b.emit(span, Instruction{Op: OpLabel, Name: endLabel})
}

func (b *Builder) lowerLoop(st ast.LoopStmt, span source.Span, sc *scope) {
	startLabel := b.newLabel()
	endLabel := b.newLabel()

	b.loops = append(b.loops, loopContext{breakLabel: endLabel, continueLabel: startLabel})
	defer func() { b.loops = b.loops[:len(b.loops)-1] }()

	b.emit(span, Instruction{Op: OpLabel, Name: startLabel})
	inner := newScope(sc)
	for _, s := range st.Body {
		b.lowerStmt(s, inner)
	}
	b.emit(span, Instruction{Op: OpJump, Target: startLabel})
	b.emit(span, Instruction{Op: OpLabel, Name: endLabel})
}

// lowerExpr evaluates expr, returning the register holding its result.
// A bare variable reference returns that variable's home register
// directly rather than copying it into a fresh temporary.
func (b *Builder) lowerExpr(expr ast.Expression, sc *scope) VReg {
	span := expr.Span
	switch n := expr.Node.(type) {
	case ast.IntegerLiteral:
		r := b.newReg()
		b.emit(span, Instruction{Op: OpLoadConstInt, Dest: r, IntValue: n.Value})
		return r

	case ast.FloatLiteral:
		r := b.newReg()
		b.emit(span, Instruction{Op: OpLoadConstFloat, Dest: r, FloatValue: n.Value})
		return r

	case ast.BoolLiteral:
		r := b.newReg()
		if n.Value {
			b.emit(span, Instruction{Op: OpLoadBoolTrue, Dest: r})
		} else {
			b.emit(span, Instruction{Op: OpLoadBoolFalse, Dest: r})
		}
		return r

	case ast.StringLiteral:
		r := b.newReg()
		b.emit(span, Instruction{Op: OpLoadConstString, Dest: r, StringValue: n.Value})
		return r

	case ast.NilLiteral:
		r := b.newReg()
		b.emit(span, Instruction{Op: OpLoadNil, Dest: r})
		return r

	case ast.Identifier:
		if v, _, ok := b.statics.Get(n.Name); ok {
			return b.loadStatic(span, v)
		}
		if bnd, ok := sc.resolve(n.Name); ok {
			return bnd.reg
		}
		// Unreachable for a type-checked program: the checker already
		// rejected undefined identifiers.
		r := b.newReg()
		b.emit(span, Instruction{Op: OpLoadNil, Dest: r})
		return r

	case ast.ArrayLiteral:
		elems := make([]VReg, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = b.lowerExpr(el, sc)
		}
		r := b.newReg()
		b.emit(span, Instruction{Op: OpNewArray, Dest: r, Elements: elems})
		return r

	case ast.UnaryExpr:
		return b.lowerUnary(n, span, sc)

	case ast.BinaryExpr:
		return b.lowerBinary(n, span, sc)

	case ast.AssignExpr:
		return b.lowerAssign(n, span, sc)

	case ast.IndexExpr:
		target := b.lowerExpr(n.Target, sc)
		idx := b.lowerExpr(n.Index, sc)
		r := b.newReg()
		b.emit(span, Instruction{Op: OpIndexGet, Dest: r, Left: target, Right: idx})
		return r

	case ast.IndexAssignExpr:
		target := b.lowerExpr(n.Target, sc)
		idx := b.lowerExpr(n.Index, sc)
		value := b.lowerExpr(n.Value, sc)
		b.emit(span, Instruction{Op: OpIndexSet, Dest: value, Left: target, Right: idx})
		return value

	default:
		r := b.newReg()
		b.emit(span, Instruction{Op: OpLoadNil, Dest: r})
		return r
	}
}

func (b *Builder) loadStatic(span source.Span, v staticeval.Value) VReg {
	r := b.newReg()
	switch v.Kind {
	case staticeval.KInt:
		b.emit(span, Instruction{Op: OpLoadConstInt, Dest: r, IntValue: v.Int})
	case staticeval.KFloat:
		b.emit(span, Instruction{Op: OpLoadConstFloat, Dest: r, FloatValue: v.Flt})
	case staticeval.KBool:
		if v.Bool {
			b.emit(span, Instruction{Op: OpLoadBoolTrue, Dest: r})
		} else {
			b.emit(span, Instruction{Op: OpLoadBoolFalse, Dest: r})
		}
	case staticeval.KString:
		b.emit(span, Instruction{Op: OpLoadConstString, Dest: r, StringValue: v.Str})
	default:
		b.emit(span, Instruction{Op: OpLoadNil, Dest: r})
	}
	return r
}

func (b *Builder) lowerUnary(n ast.UnaryExpr, span source.Span, sc *scope) VReg {
	operand := b.lowerExpr(n.Operand, sc)
	typ := inferType(n.Operand, b.statics, sc)
	r := b.newReg()

	switch n.Operator {
	case "-":
		if typ.Kind == types.Float {
			b.emit(span, Instruction{Op: OpNegFloat, Dest: r, Src: operand})
		} else {
			b.emit(span, Instruction{Op: OpNegInt, Dest: r, Src: operand})
		}
	case "+":
		b.emit(span, Instruction{Op: OpMove, Dest: r, Src: operand})
	case "!", "not":
		if typ.Kind == types.Integer {
			b.emit(span, Instruction{Op: OpIntIsZero, Dest: r, Src: operand})
		} else {
			b.emit(span, Instruction{Op: OpNotBool, Dest: r, Src: operand})
		}
	}
	return r
}

func (b *Builder) lowerBinary(n ast.BinaryExpr, span source.Span, sc *scope) VReg {
	left := b.lowerExpr(n.Left, sc)
	right := b.lowerExpr(n.Right, sc)
	leftType := inferType(n.Left, b.statics, sc)
	r := b.newReg()

	isFloat := leftType.Kind == types.Float
	isString := leftType.Kind == types.String

	var op Op
	switch n.Operator {
	case "+":
		switch {
		case isString:
			op = OpConcatString
		case isFloat:
			op = OpAddFloat
		default:
			op = OpAddInt
		}
	case "-":
		if isFloat {
			op = OpSubFloat
		} else {
			op = OpSubInt
		}
	case "*":
		if isFloat {
			op = OpMulFloat
		} else {
			op = OpMulInt
		}
	case "/":
		if isFloat {
			op = OpDivFloat
		} else {
			op = OpDivInt
		}
	case "^":
		if isFloat {
			op = OpPowFloat
		} else {
			op = OpPowInt
		}
	case "<":
		if isFloat {
			op = OpLessFloat
		} else {
			op = OpLessInt
		}
	case "<=":
		if isFloat {
			op = OpLessEqFloat
		} else {
			op = OpLessEqInt
		}
	case ">":
		if isFloat {
			op = OpGreaterFloat
		} else {
			op = OpGreaterInt
		}
	case ">=":
		if isFloat {
			op = OpGreaterEqFloat
		} else {
			op = OpGreaterEqInt
		}
	case "==":
		op = OpEqual
	case "!=":
		op = OpNotEqual
	case "and":
		op = OpAndBool
	case "or":
		op = OpOrBool
	}

	b.emit(span, Instruction{Op: op, Dest: r, Left: left, Right: right})
	return r
}

func (b *Builder) lowerAssign(n ast.AssignExpr, span source.Span, sc *scope) VReg {
	value := b.lowerExpr(n.Value, sc)
	ident := n.Target.Node.(ast.Identifier)
	bnd, ok := sc.resolve(ident.Name)
	if !ok {
		// Unreachable for a type-checked program.
		return value
	}
	b.emit(span, Instruction{Op: OpMove, Dest: bnd.reg, Src: value})
	return bnd.reg
}
