package bytecode

import (
	"sort"

	"github.com/vyn-lang/vync/pkg/source"
)

// change records that a tracked value (line, start column, or end
// column) became v starting at byte offset.
type change struct {
	offset int
	value  int
}

// DebugInfo maps bytecode byte offsets back to source spans using
// run-length encoding: a new entry is appended only when the value
// actually changes, since long runs of instructions compiled from the
// same expression share a span.
type DebugInfo struct {
	lineChanges      []change
	startColChanges  []change
	endColChanges    []change
}

func newDebugInfo() *DebugInfo {
	return &DebugInfo{}
}

// record is called once per emitted byte, in increasing offset order.
func (d *DebugInfo) record(offset int, span source.Span) {
	d.push(&d.lineChanges, offset, span.Line)
	d.push(&d.startColChanges, offset, span.StartColumn)
	d.push(&d.endColChanges, offset, span.EndColumn)
}

func (d *DebugInfo) push(changes *[]change, offset, value int) {
	if len(*changes) == 0 || (*changes)[len(*changes)-1].value != value {
		*changes = append(*changes, change{offset: offset, value: value})
	}
}

// SpanAt reconstructs the source span responsible for the byte at ip.
func (d *DebugInfo) SpanAt(ip int) source.Span {
	return source.Span{
		Line:        find(d.lineChanges, ip),
		StartColumn: find(d.startColChanges, ip),
		EndColumn:   find(d.endColChanges, ip),
	}
}

// find locates the value in effect at offset ip via binary search over
// the sorted-by-offset change list.
func find(changes []change, ip int) int {
	if len(changes) == 0 {
		return 0
	}
	i := sort.Search(len(changes), func(i int) bool { return changes[i].offset > ip })
	if i == 0 {
		return 0
	}
	return changes[i-1].value
}
