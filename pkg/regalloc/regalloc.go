// Package regalloc maps the Builder's unbounded virtual-register space
// onto a small, fixed set of physical registers. It runs a standard
// two-phase allocation: a backward liveness analysis over the
// instruction stream, then a forward pass that assigns physical slots
// on demand and spills by reusing the slot of whichever resident
// virtual register is not live at the current instruction.
package regalloc

import (
	"github.com/vyn-lang/vync/pkg/diag"
	"github.com/vyn-lang/vync/pkg/ir"
	"github.com/vyn-lang/vync/pkg/source"
)

// PhysReg is a physical register index, 0..MaxRegisters-1.
type PhysReg uint16

// DefaultMaxRegisters is the physical register file size used when the
// caller has no reason to pick a different budget.
const DefaultMaxRegisters = 16

// Allocator assigns physical registers to the virtual registers used by
// a single instruction stream. Call AnalyzeLiveness once up front, then
// Allocate/Free while walking the stream in order (the pass the
// bytecode emitter makes while translating each Instruction).
type Allocator struct {
	maxRegisters PhysReg
	allocation   map[ir.VReg]PhysReg
	usedPhysical map[PhysReg]bool
	liveRanges   []map[ir.VReg]struct{}
	peakUsed     int
}

// New creates an Allocator with room for maxRegisters physical slots.
func New(maxRegisters PhysReg) *Allocator {
	return &Allocator{
		maxRegisters: maxRegisters,
		allocation:   make(map[ir.VReg]PhysReg),
		usedPhysical: make(map[PhysReg]bool),
	}
}

// AnalyzeLiveness computes, for every point between instructions, the
// set of virtual registers that are live (defined earlier, used later).
// liveRanges[i] holds the registers live immediately after instruction
// i executes; liveRanges[len(instrs)] is always empty.
func (a *Allocator) AnalyzeLiveness(instrs []ir.SpannedInstr) {
	a.liveRanges = make([]map[ir.VReg]struct{}, len(instrs)+1)
	a.liveRanges[len(instrs)] = map[ir.VReg]struct{}{}

	for i := len(instrs) - 1; i >= 0; i-- {
		live := make(map[ir.VReg]struct{}, len(a.liveRanges[i+1]))
		for r := range a.liveRanges[i+1] {
			live[r] = struct{}{}
		}
		if d, ok := def(instrs[i].Node); ok {
			delete(live, d)
		}
		for _, u := range uses(instrs[i].Node) {
			live[u] = struct{}{}
		}
		a.liveRanges[i] = live
	}
}

// isLiveAt reports whether vreg is live immediately after instruction
// index i (i.e. appears in liveRanges[i+1]).
func (a *Allocator) isLiveAt(vreg ir.VReg, i int) bool {
	if i+1 >= len(a.liveRanges) {
		return false
	}
	_, ok := a.liveRanges[i+1][vreg]
	return ok
}

// Allocate returns the physical register assigned to vreg, assigning a
// fresh one (or spilling an existing tenant) if this is its first use.
// instIndex is the position of the instruction being translated, used
// both to decide which resident registers are safe to evict and to
// label the overflow diagnostic's span if allocation is impossible. On
// overflow it adds a diag.RegisterOverflow diagnostic to c and returns
// ok=false; the caller should abandon this instruction stream's
// compilation rather than trust the returned register.
func (a *Allocator) Allocate(vreg ir.VReg, instIndex int, span source.Span, c *diag.Collector) (PhysReg, bool) {
	if p, ok := a.allocation[vreg]; ok {
		a.usedPhysical[p] = true
		return p, true
	}

	for p := PhysReg(0); p < a.maxRegisters; p++ {
		if !a.usedPhysical[p] {
			for v, q := range a.allocation {
				if q == p {
					delete(a.allocation, v)
				}
			}
			a.allocation[vreg] = p
			a.usedPhysical[p] = true
			a.trackPeak()
			return p, true
		}
	}

	if victim, ok := a.findSpillable(instIndex); ok {
		p := a.allocation[victim]
		delete(a.allocation, victim)
		a.allocation[vreg] = p
		a.usedPhysical[p] = true
		a.trackPeak()
		return p, true
	}

	c.Add(diag.New(diag.RegisterOverflow, span,
		"expression requires more than %d live registers", a.maxRegisters))
	return 0, false
}

// findSpillable looks for a virtual register currently occupying a
// physical slot that is not live at instIndex, and returns it as a
// candidate for eviction. The allocation table entry for an evicted
// register is deleted by the caller, not here.
func (a *Allocator) findSpillable(instIndex int) (ir.VReg, bool) {
	for vreg := range a.allocation {
		if !a.isLiveAt(vreg, instIndex) {
			return vreg, true
		}
	}
	return 0, false
}

// Get looks up the physical register already assigned to vreg. It is
// only valid to call after a prior Allocate for the same vreg; unlike
// the allocator this was ported from, an unknown vreg returns ok=false
// rather than panicking, since a miss here means a bug in the emitter's
// instruction walk rather than a reachable runtime condition.
func (a *Allocator) Get(vreg ir.VReg) (PhysReg, bool) {
	p, ok := a.allocation[vreg]
	return p, ok
}

// Free releases vreg's physical register once it is no longer live
// past instIndex. The allocation entry itself is kept until Allocate
// gives the slot to another virtual register; only the "currently
// occupied" bit is cleared here.
func (a *Allocator) Free(vreg ir.VReg, instIndex int) {
	if a.isLiveAt(vreg, instIndex) {
		return
	}
	if p, ok := a.allocation[vreg]; ok {
		a.usedPhysical[p] = false
	}
}

// NumUsedRegisters returns how many physical registers are currently
// occupied.
func (a *Allocator) NumUsedRegisters() int {
	n := 0
	for _, used := range a.usedPhysical {
		if used {
			n++
		}
	}
	return n
}

// PeakRegisterUsage returns the highest number of physical registers
// that were simultaneously occupied at any point during allocation.
func (a *Allocator) PeakRegisterUsage() int {
	return a.peakUsed
}

func (a *Allocator) trackPeak() {
	if n := a.NumUsedRegisters(); n > a.peakUsed {
		a.peakUsed = n
	}
}

// def returns the virtual register an instruction writes to, if any.
func def(i ir.Instruction) (ir.VReg, bool) {
	switch i.Op {
	case ir.OpLoadConstInt, ir.OpLoadConstFloat, ir.OpLoadConstString,
		ir.OpLoadBoolTrue, ir.OpLoadBoolFalse, ir.OpLoadNil,
		ir.OpMove,
		ir.OpAddInt, ir.OpSubInt, ir.OpMulInt, ir.OpDivInt, ir.OpPowInt, ir.OpNegInt, ir.OpIntIsZero,
		ir.OpAddFloat, ir.OpSubFloat, ir.OpMulFloat, ir.OpDivFloat, ir.OpPowFloat, ir.OpNegFloat,
		ir.OpConcatString,
		ir.OpAndBool, ir.OpOrBool, ir.OpNotBool,
		ir.OpLessInt, ir.OpLessEqInt, ir.OpGreaterInt, ir.OpGreaterEqInt,
		ir.OpLessFloat, ir.OpLessEqFloat, ir.OpGreaterFloat, ir.OpGreaterEqFloat,
		ir.OpEqual, ir.OpNotEqual,
		ir.OpNewArray, ir.OpIndexGet:
		return i.Dest, true
	case ir.OpIndexSet:
		// Dest holds the value register here, not a fresh def (see
		// Instruction's doc comment); IndexSet produces no new binding.
		return 0, false
	default:
		return 0, false
	}
}

// uses returns the virtual registers an instruction reads.
func uses(i ir.Instruction) []ir.VReg {
	switch i.Op {
	case ir.OpMove:
		return []ir.VReg{i.Src}
	case ir.OpNegInt, ir.OpNegFloat, ir.OpNotBool, ir.OpIntIsZero:
		return []ir.VReg{i.Src}
	case ir.OpAddInt, ir.OpSubInt, ir.OpMulInt, ir.OpDivInt, ir.OpPowInt,
		ir.OpAddFloat, ir.OpSubFloat, ir.OpMulFloat, ir.OpDivFloat, ir.OpPowFloat,
		ir.OpConcatString,
		ir.OpAndBool, ir.OpOrBool,
		ir.OpLessInt, ir.OpLessEqInt, ir.OpGreaterInt, ir.OpGreaterEqInt,
		ir.OpLessFloat, ir.OpLessEqFloat, ir.OpGreaterFloat, ir.OpGreaterEqFloat,
		ir.OpEqual, ir.OpNotEqual:
		return []ir.VReg{i.Left, i.Right}
	case ir.OpNewArray:
		return i.Elements
	case ir.OpIndexGet:
		return []ir.VReg{i.Left, i.Right}
	case ir.OpIndexSet:
		return []ir.VReg{i.Dest, i.Left, i.Right}
	case ir.OpLogAddr:
		return []ir.VReg{i.Src}
	case ir.OpJumpIfFalse:
		return []ir.VReg{i.Src}
	default:
		return nil
	}
}
