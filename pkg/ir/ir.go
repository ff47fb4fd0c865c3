// Package ir lowers a type-checked ast.Program into a flat, linear
// sequence of three-address instructions over an unbounded set of
// virtual registers. Labels mark jump targets symbolically; they are
// resolved to byte offsets by the bytecode emitter, not here.
package ir

import (
	"fmt"

	"github.com/vyn-lang/vync/pkg/source"
)

// SpannedInstr pairs an Instruction with the source span it was lowered
// from, so a later phase (register allocation, the VM) can point a
// diagnostic at the original expression.
type SpannedInstr = source.Spanned[Instruction]

// VReg is a virtual register name, assigned once per declared variable
// or intermediate expression result and never reused by the builder.
// The register allocator later maps the (unbounded) VReg space onto a
// small, bounded set of physical registers.
type VReg uint32

// Label marks a jump target. The builder assigns labels sequentially;
// Jump/JumpIfFalse instructions carry the Label they target, and a
// Label{} marker instruction records where that target ends up in the
// instruction stream.
type Label uint32

// Op identifies an instruction's operation.
type Op int

const (
	OpLoadConstInt Op = iota
	OpLoadConstFloat
	OpLoadConstString
	OpLoadBoolTrue
	OpLoadBoolFalse
	OpLoadNil

	OpMove

	OpAddInt
	OpSubInt
	OpMulInt
	OpDivInt
	OpPowInt
	OpNegInt
	OpIntIsZero // runtime `!Int(n)` fold: Dest = Bool(Src == 0)

	OpAddFloat
	OpSubFloat
	OpMulFloat
	OpDivFloat
	OpPowFloat
	OpNegFloat

	OpConcatString

	OpAndBool
	OpOrBool
	OpNotBool

	OpLessInt
	OpLessEqInt
	OpGreaterInt
	OpGreaterEqInt
	OpLessFloat
	OpLessEqFloat
	OpGreaterFloat
	OpGreaterEqFloat

	OpEqual    // generic: compares tagged runtime values of any type
	OpNotEqual

	OpNewArray
	OpIndexGet
	OpIndexSet

	OpLogAddr // stdout

	OpJump
	OpJumpIfFalse
	OpLabel

	OpHalt
)

// Instruction is one three-address IR op. Only the fields relevant to
// Op are populated; the rest are zero.
type Instruction struct {
	Op    Op
	Dest  VReg
	Left  VReg
	Right VReg
	Src   VReg

	IntValue    int32
	FloatValue  float64
	StringValue string

	Elements []VReg // OpNewArray operands, in literal order

	Target Label // OpJump, OpJumpIfFalse
	Name   Label // OpLabel
}

func (i Instruction) String() string {
	switch i.Op {
	case OpLoadConstInt:
		return fmt.Sprintf("r%d = const.int %d", i.Dest, i.IntValue)
	case OpLoadConstFloat:
		return fmt.Sprintf("r%d = const.float %g", i.Dest, i.FloatValue)
	case OpLoadConstString:
		return fmt.Sprintf("r%d = const.string %q", i.Dest, i.StringValue)
	case OpLoadBoolTrue:
		return fmt.Sprintf("r%d = const.bool true", i.Dest)
	case OpLoadBoolFalse:
		return fmt.Sprintf("r%d = const.bool false", i.Dest)
	case OpLoadNil:
		return fmt.Sprintf("r%d = const.nil", i.Dest)
	case OpMove:
		return fmt.Sprintf("r%d = r%d", i.Dest, i.Src)
	case OpNegInt, OpNegFloat, OpNotBool, OpIntIsZero:
		return fmt.Sprintf("r%d = %s r%d", i.Dest, opName(i.Op), i.Src)
	case OpNewArray:
		return fmt.Sprintf("r%d = array%v", i.Dest, i.Elements)
	case OpIndexGet:
		return fmt.Sprintf("r%d = r%d[r%d]", i.Dest, i.Left, i.Right)
	case OpIndexSet:
		return fmt.Sprintf("r%d[r%d] = r%d", i.Left, i.Right, i.Dest)
	case OpLogAddr:
		return fmt.Sprintf("log r%d", i.Src)
	case OpJump:
		return fmt.Sprintf("jump L%d", i.Target)
	case OpJumpIfFalse:
		return fmt.Sprintf("jumpf r%d, L%d", i.Src, i.Target)
	case OpLabel:
		return fmt.Sprintf("L%d:", i.Name)
	case OpHalt:
		return "halt"
	default:
		return fmt.Sprintf("r%d = r%d %s r%d", i.Dest, i.Left, opName(i.Op), i.Right)
	}
}

func opName(op Op) string {
	switch op {
	case OpAddInt, OpAddFloat:
		return "add"
	case OpSubInt, OpSubFloat:
		return "sub"
	case OpMulInt, OpMulFloat:
		return "mul"
	case OpDivInt, OpDivFloat:
		return "div"
	case OpPowInt, OpPowFloat:
		return "pow"
	case OpNegInt, OpNegFloat:
		return "neg"
	case OpIntIsZero:
		return "iszero"
	case OpConcatString:
		return "concat"
	case OpAndBool:
		return "and"
	case OpOrBool:
		return "or"
	case OpNotBool:
		return "not"
	case OpLessInt, OpLessFloat:
		return "lt"
	case OpLessEqInt, OpLessEqFloat:
		return "le"
	case OpGreaterInt, OpGreaterFloat:
		return "gt"
	case OpGreaterEqInt, OpGreaterEqFloat:
		return "ge"
	case OpEqual:
		return "eq"
	case OpNotEqual:
		return "ne"
	default:
		return "?"
	}
}
