package bytecode

import (
	"encoding/binary"

	"github.com/vyn-lang/vync/pkg/diag"
	"github.com/vyn-lang/vync/pkg/ir"
	"github.com/vyn-lang/vync/pkg/regalloc"
	"github.com/vyn-lang/vync/pkg/source"
)

// Bytecode is the flattened, directly-executable result of emission:
// a byte stream plus the constant/string pools it indexes into and
// the debug table mapping byte offsets back to source spans.
type Bytecode struct {
	Instructions []byte
	Constants    []Constant
	Strings      []string
	Debug        *DebugInfo
}

// patch records a two-byte jump-target placeholder to be backfilled
// once every label in the stream has been seen.
type patch struct {
	offset int
	target ir.Label
}

// Emitter lowers a register-allocated ir.SpannedInstr stream into bytes.
type Emitter struct {
	alloc        *regalloc.Allocator
	constants    *constantPool
	strings      *stringPool
	debug        *DebugInfo
	buf          []byte
	labelOffsets map[ir.Label]int
	patches      []patch
	curSpan      source.Span
}

// NewEmitter creates an Emitter backed by a physical register file of
// maxRegisters slots.
func NewEmitter(maxRegisters regalloc.PhysReg) *Emitter {
	return &Emitter{
		alloc:        regalloc.New(maxRegisters),
		constants:    newConstantPool(),
		strings:      newStringPool(),
		debug:        newDebugInfo(),
		labelOffsets: make(map[ir.Label]int),
	}
}

// Emit walks instrs in order, resolving every virtual register to a
// physical one and every Label to a byte offset. It adds a
// diag.RegisterOverflow diagnostic to c and returns ok=false if the
// instruction stream needs more live registers than the allocator has.
func (e *Emitter) Emit(instrs []ir.SpannedInstr, c *diag.Collector) (Bytecode, bool) {
	e.alloc.AnalyzeLiveness(instrs)

	for i, si := range instrs {
		if !e.emitOne(i, si, c) {
			return Bytecode{}, false
		}
	}

	for _, p := range e.patches {
		target, ok := e.labelOffsets[p.target]
		if !ok {
			// Unreachable for a Builder-produced stream: every jump's
			// target label is always defined somewhere in the stream.
			continue
		}
		binary.BigEndian.PutUint16(e.buf[p.offset:], uint16(target))
	}

	return Bytecode{
		Instructions: e.buf,
		Constants:    e.constants.values,
		Strings:      e.strings.values,
		Debug:        e.debug,
	}, true
}

// resolveUse resolves a virtual register already defined earlier in
// the stream to its physical slot, frees it if it is dead past this
// instruction, and returns the physical register as a byte.
func (e *Emitter) resolveUse(v ir.VReg, i int, span source.Span, c *diag.Collector) (byte, bool) {
	p, ok := e.alloc.Allocate(v, i, span, c)
	if !ok {
		return 0, false
	}
	e.alloc.Free(v, i)
	return byte(p), true
}

// resolveDef assigns (or reuses) vreg's physical register for an
// instruction's destination. Called after every use at this
// instruction has already been freed, so a just-vacated slot is
// available to reuse.
func (e *Emitter) resolveDef(v ir.VReg, i int, span source.Span, c *diag.Collector) (byte, bool) {
	p, ok := e.alloc.Allocate(v, i, span, c)
	if !ok {
		return 0, false
	}
	return byte(p), true
}

func (e *Emitter) emitOne(i int, si ir.SpannedInstr, c *diag.Collector) bool {
	in := si.Node
	span := si.Span
	e.curSpan = span

	switch in.Op {
	case ir.OpLabel:
		e.labelOffsets[in.Name] = len(e.buf)
		return true

	case ir.OpJump:
		e.write(OpJump)
		e.patches = append(e.patches, patch{offset: len(e.buf), target: in.Target})
		e.writeU16(0)
		return true

	case ir.OpJumpIfFalse:
		src, ok := e.resolveUse(in.Src, i, span, c)
		if !ok {
			return false
		}
		e.write(OpJumpIfFalse, src)
		e.patches = append(e.patches, patch{offset: len(e.buf), target: in.Target})
		e.writeU16(0)
		return true

	case ir.OpHalt:
		e.write(OpHalt)
		return true

	case ir.OpLogAddr:
		src, ok := e.resolveUse(in.Src, i, span, c)
		if !ok {
			return false
		}
		e.write(OpLogAddr, src)
		return true

	case ir.OpLoadConstInt:
		dest, ok := e.resolveDef(in.Dest, i, span, c)
		if !ok {
			return false
		}
		idx := e.constants.intern(Constant{Kind: ConstInt, Int: in.IntValue})
		e.write(OpLoadConstInt, dest)
		e.writeU16(idx)
		return true

	case ir.OpLoadConstFloat:
		dest, ok := e.resolveDef(in.Dest, i, span, c)
		if !ok {
			return false
		}
		idx := e.constants.intern(Constant{Kind: ConstFloat, Float: in.FloatValue})
		e.write(OpLoadConstFloat, dest)
		e.writeU16(idx)
		return true

	case ir.OpLoadConstString:
		dest, ok := e.resolveDef(in.Dest, i, span, c)
		if !ok {
			return false
		}
		idx := e.strings.intern(in.StringValue)
		e.write(OpLoadConstString, dest)
		e.writeU16(idx)
		return true

	case ir.OpLoadBoolTrue:
		dest, ok := e.resolveDef(in.Dest, i, span, c)
		if !ok {
			return false
		}
		e.write(OpLoadBoolTrue, dest)
		return true

	case ir.OpLoadBoolFalse:
		dest, ok := e.resolveDef(in.Dest, i, span, c)
		if !ok {
			return false
		}
		e.write(OpLoadBoolFalse, dest)
		return true

	case ir.OpLoadNil:
		dest, ok := e.resolveDef(in.Dest, i, span, c)
		if !ok {
			return false
		}
		e.write(OpLoadNil, dest)
		return true

	case ir.OpMove:
		src, ok := e.resolveUse(in.Src, i, span, c)
		if !ok {
			return false
		}
		dest, ok := e.resolveDef(in.Dest, i, span, c)
		if !ok {
			return false
		}
		e.write(OpMove, dest, src)
		return true

	case ir.OpNegInt, ir.OpNegFloat, ir.OpNotBool, ir.OpIntIsZero:
		src, ok := e.resolveUse(in.Src, i, span, c)
		if !ok {
			return false
		}
		dest, ok := e.resolveDef(in.Dest, i, span, c)
		if !ok {
			return false
		}
		e.write(unaryOp(in.Op), dest, src)
		return true

	case ir.OpNewArray:
		elems := make([]byte, len(in.Elements))
		for idx, v := range in.Elements {
			r, ok := e.resolveUse(v, i, span, c)
			if !ok {
				return false
			}
			elems[idx] = r
		}
		dest, ok := e.resolveDef(in.Dest, i, span, c)
		if !ok {
			return false
		}
		e.write(OpNewArray, dest)
		e.writeU16(uint16(len(elems)))
		for _, b := range elems {
			e.appendByte(b)
		}
		return true

	case ir.OpIndexGet:
		target, ok := e.resolveUse(in.Left, i, span, c)
		if !ok {
			return false
		}
		index, ok := e.resolveUse(in.Right, i, span, c)
		if !ok {
			return false
		}
		dest, ok := e.resolveDef(in.Dest, i, span, c)
		if !ok {
			return false
		}
		e.write(OpIndexGet, dest, target, index)
		return true

	case ir.OpIndexSet:
		value, ok := e.resolveUse(in.Dest, i, span, c)
		if !ok {
			return false
		}
		target, ok := e.resolveUse(in.Left, i, span, c)
		if !ok {
			return false
		}
		index, ok := e.resolveUse(in.Right, i, span, c)
		if !ok {
			return false
		}
		e.write(OpIndexSet, value, target, index)
		return true

	default:
		// Binary arithmetic/comparison/logical family: all share the
		// (dest, left, right) operand shape.
		left, ok := e.resolveUse(in.Left, i, span, c)
		if !ok {
			return false
		}
		right, ok := e.resolveUse(in.Right, i, span, c)
		if !ok {
			return false
		}
		dest, ok := e.resolveDef(in.Dest, i, span, c)
		if !ok {
			return false
		}
		e.write(binaryOp(in.Op), dest, left, right)
		return true
	}
}

func (e *Emitter) write(op Op, operands ...byte) {
	e.appendByte(byte(op))
	for _, b := range operands {
		e.appendByte(b)
	}
}

func (e *Emitter) writeU16(v uint16) {
	e.appendByte(byte(v >> 8))
	e.appendByte(byte(v))
}

// appendByte appends one byte to the instruction stream and records
// its source span in the debug table, only adding a new run-length
// entry when the span actually changes from the previous byte.
func (e *Emitter) appendByte(b byte) {
	e.debug.record(len(e.buf), e.curSpan)
	e.buf = append(e.buf, b)
}

func unaryOp(op ir.Op) Op {
	switch op {
	case ir.OpNegInt:
		return OpNegInt
	case ir.OpNegFloat:
		return OpNegFloat
	case ir.OpNotBool:
		return OpNotBool
	case ir.OpIntIsZero:
		return OpIntIsZero
	default:
		return OpHalt
	}
}

func binaryOp(op ir.Op) Op {
	switch op {
	case ir.OpAddInt:
		return OpAddInt
	case ir.OpSubInt:
		return OpSubInt
	case ir.OpMulInt:
		return OpMulInt
	case ir.OpDivInt:
		return OpDivInt
	case ir.OpPowInt:
		return OpPowInt
	case ir.OpAddFloat:
		return OpAddFloat
	case ir.OpSubFloat:
		return OpSubFloat
	case ir.OpMulFloat:
		return OpMulFloat
	case ir.OpDivFloat:
		return OpDivFloat
	case ir.OpPowFloat:
		return OpPowFloat
	case ir.OpConcatString:
		return OpConcatString
	case ir.OpAndBool:
		return OpAndBool
	case ir.OpOrBool:
		return OpOrBool
	case ir.OpLessInt:
		return OpLessInt
	case ir.OpLessEqInt:
		return OpLessEqInt
	case ir.OpGreaterInt:
		return OpGreaterInt
	case ir.OpGreaterEqInt:
		return OpGreaterEqInt
	case ir.OpLessFloat:
		return OpLessFloat
	case ir.OpLessEqFloat:
		return OpLessEqFloat
	case ir.OpGreaterFloat:
		return OpGreaterFloat
	case ir.OpGreaterEqFloat:
		return OpGreaterEqFloat
	case ir.OpEqual:
		return OpEqual
	case ir.OpNotEqual:
		return OpNotEqual
	default:
		return OpHalt
	}
}
