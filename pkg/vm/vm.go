// Package vm executes the register-based bytecode produced by
// pkg/bytecode: a fixed-size register file, an append-only runtime
// heap for strings and arrays, and a dispatch loop that switches on
// the opcode at the instruction pointer until it reaches Halt.
package vm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/vyn-lang/vync/pkg/bytecode"
	"github.com/vyn-lang/vync/pkg/diag"
	"github.com/vyn-lang/vync/pkg/source"
)

// numRegisters is the size of the VM's physical register file. The
// allocator never hands out a physical register past this, so any
// instruction byte naming a higher slot is an emitter bug, not a
// program error.
const numRegisters = 256

// RuntimeError is a VM fault with the source span the failing
// instruction byte maps to, so the caller can render it through
// diag.Render exactly like a compile-time diagnostic.
type RuntimeError struct {
	Kind    diag.Kind
	Message string
	Span    source.Span
}

func (e *RuntimeError) Error() string { return e.Message }

// Diagnostic converts a RuntimeError into a diag.Diagnostic for the
// CLI's shared error-rendering path.
func (e *RuntimeError) Diagnostic() diag.Diagnostic {
	return diag.New(e.Kind, e.Span, "%s", e.Message)
}

// VM is a single, non-reentrant execution of one Bytecode image. A
// fresh VM must be constructed per run; it is not safe to reuse across
// concurrent executions (spec.md's single-threaded resource model).
type VM struct {
	registers [numRegisters]Value

	strings []string  // append-only string heap, seeded from the pool
	arrays  [][]Value // heap-allocated arrays, indexed by Value.Ref

	code      []byte
	constants []bytecode.Constant
	debug     *bytecode.DebugInfo
	ip        int

	out   io.Writer
	steps int64
}

// New constructs a VM ready to run b, writing LogAddr output to out.
func New(b bytecode.Bytecode, out io.Writer) *VM {
	strs := make([]string, len(b.Strings))
	copy(strs, b.Strings)

	return &VM{
		strings:   strs,
		code:      b.Instructions,
		constants: b.Constants,
		debug:     b.Debug,
		out:       out,
	}
}

// StepCount returns the number of instructions executed so far,
// exposed for the compiler's instruction-count metric.
func (vm *VM) StepCount() int64 { return vm.steps }

// Run executes the instruction stream from the beginning until Halt or
// a runtime fault.
func (vm *VM) Run() error {
	for vm.ip < len(vm.code) {
		halted, err := vm.step()
		if err != nil {
			return err
		}
		if halted {
			return nil
		}
	}
	return nil
}

func (vm *VM) fault(kind diag.Kind, format string, args ...interface{}) error {
	return &RuntimeError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Span:    vm.debug.SpanAt(vm.ip),
	}
}

// step decodes and executes the single instruction at vm.ip, advancing
// it past the instruction's operands. Jumps set vm.ip directly and
// return before the normal advance runs.
func (vm *VM) step() (halted bool, err error) {
	start := vm.ip
	op := bytecode.Op(vm.code[vm.ip])
	vm.ip++
	vm.steps++

	switch op {
	case bytecode.OpHalt:
		return true, nil

	case bytecode.OpLoadConstInt:
		dest := vm.readReg()
		idx := vm.readU16()
		vm.registers[dest] = intValue(vm.constants[idx].Int)

	case bytecode.OpLoadConstFloat:
		dest := vm.readReg()
		idx := vm.readU16()
		vm.registers[dest] = floatValue(vm.constants[idx].Float)

	case bytecode.OpLoadConstString:
		dest := vm.readReg()
		idx := vm.readU16()
		vm.registers[dest] = stringRef(int(idx))

	case bytecode.OpLoadBoolTrue:
		dest := vm.readReg()
		vm.registers[dest] = boolValue(true)

	case bytecode.OpLoadBoolFalse:
		dest := vm.readReg()
		vm.registers[dest] = boolValue(false)

	case bytecode.OpLoadNil:
		dest := vm.readReg()
		vm.registers[dest] = nilValue()

	case bytecode.OpMove:
		dest, src := vm.readReg(), vm.readReg()
		vm.registers[dest] = vm.registers[src]

	case bytecode.OpAddInt:
		if err := vm.intBinOp(func(a, b int32) (int32, error) { return a + b, nil }); err != nil {
			return false, err
		}
	case bytecode.OpSubInt:
		if err := vm.intBinOp(func(a, b int32) (int32, error) { return a - b, nil }); err != nil {
			return false, err
		}
	case bytecode.OpMulInt:
		if err := vm.intBinOp(func(a, b int32) (int32, error) { return a * b, nil }); err != nil {
			return false, err
		}
	case bytecode.OpDivInt:
		if err := vm.intBinOp(func(a, b int32) (int32, error) {
			if b == 0 {
				return 0, vm.fault(diag.DivisionByZeroRuntime, "division by zero")
			}
			return a / b, nil
		}); err != nil {
			return false, err
		}
	case bytecode.OpPowInt:
		if err := vm.intBinOp(func(a, b int32) (int32, error) {
			return int32(math.Pow(float64(a), float64(b))), nil
		}); err != nil {
			return false, err
		}
	case bytecode.OpNegInt:
		dest, src := vm.readReg(), vm.readReg()
		vm.registers[dest] = intValue(-vm.registers[src].Int)
	case bytecode.OpIntIsZero:
		dest, src := vm.readReg(), vm.readReg()
		vm.registers[dest] = boolValue(vm.registers[src].Int == 0)

	case bytecode.OpAddFloat:
		vm.floatBinOp(func(a, b float64) float64 { return a + b })
	case bytecode.OpSubFloat:
		vm.floatBinOp(func(a, b float64) float64 { return a - b })
	case bytecode.OpMulFloat:
		vm.floatBinOp(func(a, b float64) float64 { return a * b })
	case bytecode.OpDivFloat:
		if err := vm.floatBinOpErr(func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, vm.fault(diag.DivisionByZeroRuntime, "division by zero")
			}
			return a / b, nil
		}); err != nil {
			return false, err
		}
	case bytecode.OpPowFloat:
		vm.floatBinOp(math.Pow)
	case bytecode.OpNegFloat:
		dest, src := vm.readReg(), vm.readReg()
		vm.registers[dest] = floatValue(-vm.registers[src].Float)

	case bytecode.OpConcatString:
		dest, left, right := vm.readReg(), vm.readReg(), vm.readReg()
		a := vm.strings[vm.registers[left].Ref]
		b := vm.strings[vm.registers[right].Ref]
		vm.registers[dest] = stringRef(vm.internRuntimeString(a + b))

	case bytecode.OpAndBool:
		dest, left, right := vm.readReg(), vm.readReg(), vm.readReg()
		vm.registers[dest] = boolValue(vm.registers[left].Bool && vm.registers[right].Bool)
	case bytecode.OpOrBool:
		dest, left, right := vm.readReg(), vm.readReg(), vm.readReg()
		vm.registers[dest] = boolValue(vm.registers[left].Bool || vm.registers[right].Bool)
	case bytecode.OpNotBool:
		dest, src := vm.readReg(), vm.readReg()
		vm.registers[dest] = boolValue(!vm.registers[src].Bool)

	case bytecode.OpLessInt:
		vm.intCompare(func(a, b int32) bool { return a < b })
	case bytecode.OpLessEqInt:
		vm.intCompare(func(a, b int32) bool { return a <= b })
	case bytecode.OpGreaterInt:
		vm.intCompare(func(a, b int32) bool { return a > b })
	case bytecode.OpGreaterEqInt:
		vm.intCompare(func(a, b int32) bool { return a >= b })
	case bytecode.OpLessFloat:
		vm.floatCompare(func(a, b float64) bool { return a < b })
	case bytecode.OpLessEqFloat:
		vm.floatCompare(func(a, b float64) bool { return a <= b })
	case bytecode.OpGreaterFloat:
		vm.floatCompare(func(a, b float64) bool { return a > b })
	case bytecode.OpGreaterEqFloat:
		vm.floatCompare(func(a, b float64) bool { return a >= b })

	case bytecode.OpEqual:
		dest, left, right := vm.readReg(), vm.readReg(), vm.readReg()
		vm.registers[dest] = boolValue(vm.valuesEqual(vm.registers[left], vm.registers[right]))
	case bytecode.OpNotEqual:
		dest, left, right := vm.readReg(), vm.readReg(), vm.readReg()
		vm.registers[dest] = boolValue(!vm.valuesEqual(vm.registers[left], vm.registers[right]))

	case bytecode.OpNewArray:
		dest := vm.readReg()
		count := int(vm.readU16())
		elems := make([]Value, count)
		for i := 0; i < count; i++ {
			elems[i] = vm.registers[vm.readReg()]
		}
		idx := len(vm.arrays)
		vm.arrays = append(vm.arrays, elems)
		vm.registers[dest] = arrayRef(idx)

	case bytecode.OpIndexGet:
		dest, target, index := vm.readReg(), vm.readReg(), vm.readReg()
		arr := vm.arrays[vm.registers[target].Ref]
		i := vm.registers[index].Int
		if i < 0 || int(i) >= len(arr) {
			return false, vm.fault(diag.IndexOutOfBounds, "index out of bounds: %d", i)
		}
		vm.registers[dest] = arr[i]

	case bytecode.OpIndexSet:
		value, target, index := vm.readReg(), vm.readReg(), vm.readReg()
		arr := vm.arrays[vm.registers[target].Ref]
		i := vm.registers[index].Int
		if i < 0 || int(i) >= len(arr) {
			return false, vm.fault(diag.IndexOutOfBounds, "index out of bounds: %d", i)
		}
		arr[i] = vm.registers[value]

	case bytecode.OpLogAddr:
		src := vm.readReg()
		fmt.Fprintln(vm.out, vm.Render(vm.registers[src]))

	case bytecode.OpJump:
		target := vm.readU16()
		vm.ip = int(target)
		return false, nil

	case bytecode.OpJumpIfFalse:
		src := vm.readReg()
		target := vm.readU16()
		if !vm.Truthy(vm.registers[src]) {
			vm.ip = int(target)
			return false, nil
		}

	default:
		return false, vm.fault(diag.UnknownAST, "unknown opcode %#02x at offset %d", op, start)
	}

	return false, nil
}

func (vm *VM) readReg() byte {
	b := vm.code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readU16() uint16 {
	v := binary.BigEndian.Uint16(vm.code[vm.ip:])
	vm.ip += 2
	return v
}

func (vm *VM) intBinOp(f func(a, b int32) (int32, error)) error {
	dest, left, right := vm.readReg(), vm.readReg(), vm.readReg()
	result, err := f(vm.registers[left].Int, vm.registers[right].Int)
	if err != nil {
		return err
	}
	vm.registers[dest] = intValue(result)
	return nil
}

func (vm *VM) floatBinOp(f func(a, b float64) float64) {
	dest, left, right := vm.readReg(), vm.readReg(), vm.readReg()
	vm.registers[dest] = floatValue(f(vm.registers[left].Float, vm.registers[right].Float))
}

func (vm *VM) floatBinOpErr(f func(a, b float64) (float64, error)) error {
	dest, left, right := vm.readReg(), vm.readReg(), vm.readReg()
	result, err := f(vm.registers[left].Float, vm.registers[right].Float)
	if err != nil {
		return err
	}
	vm.registers[dest] = floatValue(result)
	return nil
}

func (vm *VM) intCompare(f func(a, b int32) bool) {
	dest, left, right := vm.readReg(), vm.readReg(), vm.readReg()
	vm.registers[dest] = boolValue(f(vm.registers[left].Int, vm.registers[right].Int))
}

func (vm *VM) floatCompare(f func(a, b float64) bool) {
	dest, left, right := vm.readReg(), vm.readReg(), vm.readReg()
	vm.registers[dest] = boolValue(f(vm.registers[left].Float, vm.registers[right].Float))
}

// valuesEqual compares two registers of possibly differing kinds;
// mismatched kinds are simply unequal rather than a runtime fault,
// matching the type checker's guarantee that OpEqual only ever
// compares like-typed operands in a well-typed program.
func (vm *VM) valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindBool:
		return a.Bool == b.Bool
	case KindString:
		return vm.strings[a.Ref] == vm.strings[b.Ref]
	case KindArray:
		return a.Ref == b.Ref
	default:
		return false
	}
}

// internRuntimeString appends s to the runtime string heap without
// deduplication, per spec: only the compile-time string pool interns;
// a runtime concat always grows the heap.
func (vm *VM) internRuntimeString(s string) int {
	idx := len(vm.strings)
	vm.strings = append(vm.strings, s)
	return idx
}
