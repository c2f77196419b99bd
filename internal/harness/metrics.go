package harness

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gitrdm/deltablue/pkg/deltablue"
)

const (
	metricsNamespace = "deltablue"
	metricsSubsystem = "harness"
)

// Phase labels.
const (
	PhaseWarmUp   = "warmup"
	PhaseMeasured = "measured"
)

// Metrics holds the Prometheus instruments updated by the harness.
type Metrics struct {
	// IterationSeconds measures one inner benchmark loop.
	// Labels: benchmark, phase (warmup, measured)
	IterationSeconds *prometheus.HistogramVec

	// IterationsTotal counts completed inner benchmark loops.
	// Labels: benchmark, phase
	IterationsTotal *prometheus.CounterVec

	// FailuresTotal counts loops that returned an error.
	// Labels: benchmark
	FailuresTotal *prometheus.CounterVec

	// PlannerEvents mirrors the planner statistics of the last run.
	// Labels: event
	PlannerEvents *prometheus.GaugeVec
}

// NewMetrics creates the harness metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IterationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "iteration_duration_seconds",
			Help:      "Duration of one inner benchmark loop in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"benchmark", "phase"}),
		IterationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "iterations_total",
			Help:      "Completed inner benchmark loops",
		}, []string{"benchmark", "phase"}),
		FailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "failures_total",
			Help:      "Inner benchmark loops that failed",
		}, []string{"benchmark"}),
		PlannerEvents: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "planner",
			Name:      "events",
			Help:      "Planner statistics accumulated over the last run",
		}, []string{"event"}),
	}
}

// RecordIteration records a completed loop.
func (m *Metrics) RecordIteration(benchmark, phase string, seconds float64) {
	if m == nil {
		return
	}
	m.IterationSeconds.WithLabelValues(benchmark, phase).Observe(seconds)
	m.IterationsTotal.WithLabelValues(benchmark, phase).Inc()
}

// RecordFailure records a failed loop.
func (m *Metrics) RecordFailure(benchmark string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(benchmark).Inc()
}

// RecordStats publishes planner statistics.
func (m *Metrics) RecordStats(s *deltablue.PlannerStats) {
	if m == nil || s == nil {
		return
	}
	for event, v := range map[string]int{
		"constraints_added":   s.ConstraintsAdded,
		"constraints_removed": s.ConstraintsRemoved,
		"satisfactions":       s.Satisfactions,
		"overrides":           s.Overrides,
		"unsatisfied":         s.Unsatisfied,
		"cycles":              s.CyclesDetected,
		"marks":               s.MarksIssued,
		"plans":               s.PlansExtracted,
		"plan_steps":          s.PlanSteps,
		"executions":          s.Executions,
		"propagations":        s.Propagations,
		"changes":             s.Changes,
		"peak_worklist":       s.PeakWorklist,
	} {
		m.PlannerEvents.WithLabelValues(event).Set(float64(v))
	}
}
