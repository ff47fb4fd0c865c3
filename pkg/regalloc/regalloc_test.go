package regalloc

import (
	"testing"

	"github.com/vyn-lang/vync/pkg/diag"
	"github.com/vyn-lang/vync/pkg/ir"
	"github.com/vyn-lang/vync/pkg/source"
)

func spanned(i ir.Instruction) ir.SpannedInstr {
	return source.With(i, source.Span{})
}

func TestAllocateReusesFreedRegister(t *testing.T) {
	instrs := []ir.SpannedInstr{
		spanned(ir.Instruction{Op: ir.OpLoadConstInt, Dest: 0, IntValue: 1}),
		spanned(ir.Instruction{Op: ir.OpLoadConstInt, Dest: 1, IntValue: 2}),
		spanned(ir.Instruction{Op: ir.OpAddInt, Dest: 2, Left: 0, Right: 1}),
		spanned(ir.Instruction{Op: ir.OpLogAddr, Src: 2}),
		spanned(ir.Instruction{Op: ir.OpHalt}),
	}

	a := New(2)
	a.AnalyzeLiveness(instrs)
	c := diag.NewCollector()

	for i, si := range instrs {
		if d, ok := def(si.Node); ok {
			if _, ok := a.Allocate(d, i, si.Span, c); !ok {
				t.Fatalf("instruction %d: unexpected overflow: %v", i, c.All())
			}
		}
		for _, u := range uses(si.Node) {
			a.Free(u, i)
		}
	}

	if a.PeakRegisterUsage() > 2 {
		t.Fatalf("peak usage %d exceeds budget", a.PeakRegisterUsage())
	}
}

func TestAllocateOverflowsWithoutSpillCandidate(t *testing.T) {
	instrs := []ir.SpannedInstr{
		spanned(ir.Instruction{Op: ir.OpLoadConstInt, Dest: 0, IntValue: 1}),
		spanned(ir.Instruction{Op: ir.OpLoadConstInt, Dest: 1, IntValue: 2}),
		spanned(ir.Instruction{Op: ir.OpLoadConstInt, Dest: 2, IntValue: 3}),
		spanned(ir.Instruction{Op: ir.OpNewArray, Dest: 3, Elements: []ir.VReg{0, 1, 2}}),
	}

	a := New(2)
	a.AnalyzeLiveness(instrs)
	c := diag.NewCollector()

	for i, si := range instrs {
		if d, ok := def(si.Node); ok {
			if _, ok := a.Allocate(d, i, si.Span, c); !ok {
				if i != 2 {
					t.Fatalf("unexpected overflow at instruction %d", i)
				}
				if !c.Failed() {
					t.Fatalf("expected a RegisterOverflow diagnostic to be recorded")
				}
				return
			}
		}
	}
	t.Fatalf("expected register overflow before instruction 3")
}
