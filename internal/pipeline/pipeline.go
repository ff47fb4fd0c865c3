// Package pipeline wires the lexer, parser, static evaluator, type
// checker, IR builder and bytecode emitter into the single
// compile-to-bytecode path the CLI drives, plus the VM hand-off to run
// it.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/vyn-lang/vync/pkg/bytecode"
	"github.com/vyn-lang/vync/pkg/diag"
	"github.com/vyn-lang/vync/pkg/ir"
	"github.com/vyn-lang/vync/pkg/lexer"
	"github.com/vyn-lang/vync/pkg/parser"
	"github.com/vyn-lang/vync/pkg/staticeval"
	"github.com/vyn-lang/vync/pkg/tracing"
	"github.com/vyn-lang/vync/pkg/types"
	"github.com/vyn-lang/vync/pkg/vm"
)

// MaxRegisters bounds the physical register file the bytecode emitter
// allocates against; it matches the VM's own fixed register file size.
const MaxRegisters = 256

// PhaseTiming records how long a single pipeline phase took, surfaced
// by the CLI's --verbose flag.
type PhaseTiming struct {
	Name     string
	Duration time.Duration
}

// Result is everything a caller needs after a source file has gone
// through every phase up to (but not including) execution.
type Result struct {
	Diagnostics *diag.Collector
	Bytecode    bytecode.Bytecode
	Timings     []PhaseTiming
	Failed      bool
}

// timed runs fn inside an OpenTelemetry span named after the phase
// (see pkg/tracing) and records its wall-clock duration for
// --verbose output; tracing.WithSpan is a no-op span when no
// exporter has been configured.
func (r *Result) timed(ctx context.Context, name string, fn func()) {
	start := time.Now()
	tracing.WithSpan(ctx, name, func(context.Context) error {
		fn()
		return nil
	})
	r.Timings = append(r.Timings, PhaseTiming{Name: name, Duration: time.Since(start)})
}

// Compile runs source through every phase of the pipeline, stopping at
// the first one that records a diagnostic: later phases assume the
// program they receive already passed the ones before it.
func Compile(source string) Result {
	ctx := context.Background()
	c := diag.NewCollector()
	res := Result{Diagnostics: c}

	toks := lexer.New(source).Tokenize()
	prog := parser.New(toks, c).ParseProgram()
	if c.Failed() {
		res.Failed = true
		return res
	}

	var statics *staticeval.Table
	res.timed(ctx, "static-eval", func() {
		statics = staticeval.New().EvaluateProgram(prog, c)
	})
	if c.Failed() {
		res.Failed = true
		return res
	}

	res.timed(ctx, "typecheck", func() {
		types.NewChecker(statics).Check(prog, c)
	})
	if c.Failed() {
		res.Failed = true
		return res
	}

	var instrs []ir.SpannedInstr
	res.timed(ctx, "ir-build", func() {
		instrs = ir.NewBuilder(statics).Build(prog)
	})

	res.timed(ctx, "emit", func() {
		bc, ok := bytecode.NewEmitter(MaxRegisters).Emit(instrs, c)
		res.Bytecode = bc
		res.Failed = !ok
	})
	return res
}

// Run executes already-emitted bytecode against out inside a
// "vm-exec" span, returning any runtime fault the VM raised.
func Run(bc bytecode.Bytecode, out io.Writer) error {
	return tracing.WithSpan(context.Background(), "vm-exec", func(context.Context) error {
		return vm.New(bc, out).Run()
	})
}
