// Package bytecode flattens an allocated instruction stream into the
// linear byte format the VM executes: one opcode byte followed by a
// fixed (or, for array construction, length-prefixed) run of operand
// bytes. Register operands are one byte wide (the allocator's physical
// register file never exceeds 256 slots); constant-pool, string-pool
// and jump-target operands are two bytes, big-endian.
package bytecode

import "fmt"

// Op identifies a bytecode instruction.
type Op byte

const (
	OpHalt Op = iota + 1

	OpLoadConstInt
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
	OpIntIsZero

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

	OpEqual
	OpNotEqual

	OpNewArray // variable width: dest, count(u16), count * register
	OpIndexGet
	OpIndexSet

	OpLogAddr

	OpJump
	OpJumpIfFalse
)

// operandWidths lists the byte width of each fixed operand for an Op,
// in encoding order. OpNewArray is handled separately since its
// operand count depends on the array's element count.
var operandWidths = map[Op][]int{
	OpHalt: {},

	OpLoadConstInt:    {1, 2},
	OpLoadConstFloat:  {1, 2},
	OpLoadConstString: {1, 2},
	OpLoadBoolTrue:    {1},
	OpLoadBoolFalse:   {1},
	OpLoadNil:         {1},

	OpMove: {1, 1},

	OpAddInt:    {1, 1, 1},
	OpSubInt:    {1, 1, 1},
	OpMulInt:    {1, 1, 1},
	OpDivInt:    {1, 1, 1},
	OpPowInt:    {1, 1, 1},
	OpNegInt:    {1, 1},
	OpIntIsZero: {1, 1},

	OpAddFloat:   {1, 1, 1},
	OpSubFloat:   {1, 1, 1},
	OpMulFloat:   {1, 1, 1},
	OpDivFloat:   {1, 1, 1},
	OpPowFloat:   {1, 1, 1},
	OpNegFloat:   {1, 1},

	OpConcatString: {1, 1, 1},

	OpAndBool: {1, 1, 1},
	OpOrBool:  {1, 1, 1},
	OpNotBool: {1, 1},

	OpLessInt:       {1, 1, 1},
	OpLessEqInt:     {1, 1, 1},
	OpGreaterInt:    {1, 1, 1},
	OpGreaterEqInt:  {1, 1, 1},
	OpLessFloat:     {1, 1, 1},
	OpLessEqFloat:   {1, 1, 1},
	OpGreaterFloat:  {1, 1, 1},
	OpGreaterEqFloat: {1, 1, 1},

	OpEqual:    {1, 1, 1},
	OpNotEqual: {1, 1, 1},

	OpIndexGet: {1, 1, 1},
	OpIndexSet: {1, 1, 1},

	OpLogAddr: {1},

	OpJump:        {2},
	OpJumpIfFalse: {1, 2},
}

func (op Op) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return fmt.Sprintf("OP(%d)", op)
}

var opNames = map[Op]string{
	OpHalt:             "HALT",
	OpLoadConstInt:     "LOAD_CONST_INT",
	OpLoadConstFloat:   "LOAD_CONST_FLOAT",
	OpLoadConstString:  "LOAD_CONST_STRING",
	OpLoadBoolTrue:     "LOAD_BOOL_TRUE",
	OpLoadBoolFalse:    "LOAD_BOOL_FALSE",
	OpLoadNil:          "LOAD_NIL",
	OpMove:             "MOVE",
	OpAddInt:           "ADD_INT",
	OpSubInt:           "SUBTRACT_INT",
	OpMulInt:           "MULTIPLY_INT",
	OpDivInt:           "DIVIDE_INT",
	OpPowInt:           "EXPONENT_INT",
	OpNegInt:           "UNARY_NEGATE_INT",
	OpIntIsZero:        "INT_IS_ZERO",
	OpAddFloat:         "ADD_FLOAT",
	OpSubFloat:         "SUBTRACT_FLOAT",
	OpMulFloat:         "MULTIPLY_FLOAT",
	OpDivFloat:         "DIVIDE_FLOAT",
	OpPowFloat:         "EXPONENT_FLOAT",
	OpNegFloat:         "UNARY_NEGATE_FLOAT",
	OpConcatString:     "CONCAT_STRING",
	OpAndBool:          "AND_BOOL",
	OpOrBool:           "OR_BOOL",
	OpNotBool:          "UNARY_NOT",
	OpLessInt:          "COMPARE_LESS_INT",
	OpLessEqInt:        "COMPARE_LESS_EQUAL_INT",
	OpGreaterInt:       "COMPARE_GREATER_INT",
	OpGreaterEqInt:     "COMPARE_GREATER_EQUAL_INT",
	OpLessFloat:        "COMPARE_LESS_FLOAT",
	OpLessEqFloat:      "COMPARE_LESS_EQUAL_FLOAT",
	OpGreaterFloat:     "COMPARE_GREATER_FLOAT",
	OpGreaterEqFloat:   "COMPARE_GREATER_EQUAL_FLOAT",
	OpEqual:            "COMPARE_EQUAL",
	OpNotEqual:         "COMPARE_NOT_EQUAL",
	OpNewArray:         "NEW_ARRAY",
	OpIndexGet:         "INDEX_GET",
	OpIndexSet:         "INDEX_SET",
	OpLogAddr:          "LOG",
	OpJump:             "JUMP",
	OpJumpIfFalse:      "JUMP_IF_FALSE",
}
