package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CompilerMetrics holds the Prometheus collectors for compiler activity:
// phase duration, diagnostics raised, compile outcomes, VM instructions
// executed, and compiles that failed on register overflow. `vync serve`
// records phase durations, diagnostics and outcomes; nothing in the CLI
// calls ObserveVMInstructions or RecordRegisterOverflow.
type CompilerMetrics struct {
	phaseDuration    *prometheus.HistogramVec
	diagnosticsTotal *prometheus.CounterVec
	compilesTotal    *prometheus.CounterVec
	vmInstructions   prometheus.Histogram
	registerOverflow prometheus.Counter

	registry *prometheus.Registry
}

// NewCompilerMetrics creates and registers the compiler's Prometheus
// collectors under the vync/compiler namespace.
func NewCompilerMetrics() *CompilerMetrics {
	registry := prometheus.NewRegistry()

	m := &CompilerMetrics{
		registry: registry,
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "vync",
				Subsystem: "compiler",
				Name:      "phase_duration_seconds",
				Help:      "Duration of each compile phase (static-eval, typecheck, ir-build, emit).",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		diagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vync",
				Subsystem: "compiler",
				Name:      "diagnostics_total",
				Help:      "Diagnostics raised by category.",
			},
			[]string{"category"},
		),
		compilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vync",
				Subsystem: "compiler",
				Name:      "compiles_total",
				Help:      "Completed compilations by outcome.",
			},
			[]string{"outcome"},
		),
		vmInstructions: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "vync",
				Subsystem: "vm",
				Name:      "instructions_executed",
				Help:      "Number of bytecode instructions a run executed.",
				Buckets:   prometheus.ExponentialBuckets(8, 4, 10),
			},
		),
		registerOverflow: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vync",
				Subsystem: "compiler",
				Name:      "register_overflow_total",
				Help:      "Compiles that failed because the register allocator ran out of physical registers.",
			},
		),
	}

	registry.MustRegister(m.phaseDuration, m.diagnosticsTotal, m.compilesTotal, m.vmInstructions, m.registerOverflow)
	return m
}

// ObservePhase records one phase's duration in seconds.
func (m *CompilerMetrics) ObservePhase(phase string, seconds float64) {
	m.phaseDuration.WithLabelValues(phase).Observe(seconds)
}

// RecordDiagnostic increments the counter for a diagnostic category.
func (m *CompilerMetrics) RecordDiagnostic(category string) {
	m.diagnosticsTotal.WithLabelValues(category).Inc()
}

// RecordCompile increments the outcome counter ("ok" or "failed").
func (m *CompilerMetrics) RecordCompile(outcome string) {
	m.compilesTotal.WithLabelValues(outcome).Inc()
}

// ObserveVMInstructions records how many instructions a run executed.
func (m *CompilerMetrics) ObserveVMInstructions(n int64) {
	m.vmInstructions.Observe(float64(n))
}

// RecordRegisterOverflow increments the register-overflow counter.
func (m *CompilerMetrics) RecordRegisterOverflow() {
	m.registerOverflow.Inc()
}

// Handler exposes the collectors for /metrics.
func (m *CompilerMetrics) Handler() prometheus.Gatherer {
	return m.registry
}
