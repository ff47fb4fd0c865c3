package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags a register's runtime representation, mirroring the
// RuntimeValue variants of the object format's constant pool.
type Kind byte

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindArray
)

// Value is the VM's tagged register contents. Strings and arrays hold
// an index into the VM's heap rather than the payload itself, so a
// register copy (OpMove, array element load) never copies heap data.
type Value struct {
	Kind  Kind
	Int   int32
	Float float64
	Bool  bool
	Ref   int // index into heap.strings or heap.arrays, depending on Kind
}

func nilValue() Value           { return Value{Kind: KindNil} }
func intValue(n int32) Value    { return Value{Kind: KindInt, Int: n} }
func floatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func boolValue(b bool) Value    { return Value{Kind: KindBool, Bool: b} }
func stringRef(idx int) Value   { return Value{Kind: KindString, Ref: idx} }
func arrayRef(idx int) Value    { return Value{Kind: KindArray, Ref: idx} }

// Truthy implements the spec's truthiness rule for JumpIfFalse: false,
// Nil, numeric zero and the empty string are falsy; everything else,
// including every array, is truthy.
func (vm *VM) Truthy(v Value) bool {
	switch v.Kind {
	case KindNil:
		return false
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	case KindString:
		return vm.strings[v.Ref] != ""
	default:
		return true
	}
}

// render writes v's LogAddr textual form to b: scalars in literal form,
// strings resolved through the string heap, arrays recursively as
// "[e0, e1, ...]".
func (vm *VM) render(b *strings.Builder, v Value) {
	switch v.Kind {
	case KindNil:
		b.WriteString("nil")
	case KindBool:
		if v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindInt:
		b.WriteString(strconv.FormatInt(int64(v.Int), 10))
	case KindFloat:
		b.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case KindString:
		b.WriteString(vm.strings[v.Ref])
	case KindArray:
		b.WriteByte('[')
		for i, elem := range vm.arrays[v.Ref] {
			if i > 0 {
				b.WriteString(", ")
			}
			vm.render(b, elem)
		}
		b.WriteByte(']')
	default:
		fmt.Fprintf(b, "<?%d>", v.Kind)
	}
}

// Render returns v's LogAddr textual form without a trailing newline.
func (vm *VM) Render(v Value) string {
	var b strings.Builder
	vm.render(&b, v)
	return b.String()
}
