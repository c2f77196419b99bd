// Package harness measures benchmark workloads the way the classic
// cross-language benchmark harness does: optional warm-up loops, then a
// number of measured iterations, each running the inner benchmark loop once
// at a given problem size, reported in microseconds.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gitrdm/deltablue/internal/config"
	"github.com/gitrdm/deltablue/internal/parallel"
	"github.com/gitrdm/deltablue/pkg/deltablue"
)

// Harness runs one configured benchmark.
type Harness struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *Metrics
	monitor *deltablue.PlannerMonitor
	clock   func() time.Time
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger used by the harness and by every planner.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// WithMetrics publishes iteration timings and planner statistics to m.
func WithMetrics(m *Metrics) Option {
	return func(h *Harness) { h.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(h *Harness) { h.clock = clock }
}

// New creates a harness for cfg.
func New(cfg *config.Config, opts ...Option) *Harness {
	h := &Harness{
		cfg:     cfg,
		logger:  slog.New(slog.DiscardHandler),
		monitor: deltablue.NewPlannerMonitor(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run validates the configuration, runs every copy of the benchmark and
// returns the report. Copies run concurrently when cfg.Parallel > 1; each
// uses its own planners.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	if err := h.cfg.Validate(); err != nil {
		return nil, err
	}
	plannerConfig := &deltablue.PlannerConfig{
		ChangeRepetitions: h.cfg.ChangeRepetitions,
		Logger:            h.logger,
		Monitor:           h.monitor,
	}
	// Resolve the name before starting any goroutine.
	if _, err := Lookup(h.cfg.Benchmark, plannerConfig); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:           uuid.NewString(),
		Benchmark:       h.cfg.Benchmark,
		Iterations:      h.cfg.Iterations,
		WarmUp:          h.cfg.WarmUp,
		InnerIterations: h.cfg.InnerIterations,
		Version:         deltablue.GetVersion(),
		Copies:          make([]CopyResult, h.cfg.Parallel),
	}
	logger := h.logger.With(slog.String("run_id", report.RunID))
	logger.Info("benchmark started",
		slog.String("benchmark", report.Benchmark),
		slog.Int("iterations", report.Iterations),
		slog.Int("warmup", report.WarmUp),
		slog.Int("inner_iterations", report.InnerIterations),
		slog.Int("parallel", h.cfg.Parallel))

	err := parallel.Run(ctx, h.cfg.Parallel, h.cfg.Parallel, func(ctx context.Context, i int) error {
		bench, err := Lookup(h.cfg.Benchmark, plannerConfig)
		if err != nil {
			return err
		}
		// Each copy writes only its own slot.
		result, err := h.runCopy(ctx, bench, i)
		report.Copies[i] = result
		return err
	})

	stats := h.monitor.GetStats()
	report.Stats = stats
	h.metrics.RecordStats(stats)
	for _, c := range report.Copies {
		report.TotalMicros += c.TotalMicros
	}

	if err != nil {
		logger.Error("benchmark failed", slog.String("error", err.Error()))
		return report, err
	}
	logger.Info("benchmark finished", slog.Int64("total_us", report.TotalMicros))
	return report, nil
}

// runCopy performs the warm-up and measured iterations of one copy.
func (h *Harness) runCopy(ctx context.Context, bench Benchmark, copyIndex int) (CopyResult, error) {
	result := CopyResult{
		Copy:           copyIndex,
		RuntimesMicros: make([]int64, 0, h.cfg.Iterations),
	}

	for i := 0; i < h.cfg.WarmUp; i++ {
		if _, err := h.measure(ctx, bench, PhaseWarmUp); err != nil {
			return result, err
		}
	}

	for i := 0; i < h.cfg.Iterations; i++ {
		us, err := h.measure(ctx, bench, PhaseMeasured)
		if err != nil {
			return result, err
		}
		result.RuntimesMicros = append(result.RuntimesMicros, us)
		result.TotalMicros += us
	}
	result.AverageMicros = result.TotalMicros / int64(len(result.RuntimesMicros))
	return result, nil
}

// measure runs one inner benchmark loop and returns its runtime in
// microseconds.
func (h *Harness) measure(ctx context.Context, bench Benchmark, phase string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	start := h.clock()
	if err := bench.InnerBenchmarkLoop(h.cfg.InnerIterations); err != nil {
		h.metrics.RecordFailure(bench.Name())
		return 0, fmt.Errorf("%s: %w", bench.Name(), err)
	}
	elapsed := h.clock().Sub(start)
	h.metrics.RecordIteration(bench.Name(), phase, elapsed.Seconds())
	// Published per iteration so a scrape during a long run sees progress.
	h.metrics.RecordStats(h.monitor.GetStats())
	return elapsed.Microseconds(), nil
}

// Monitor returns the statistics monitor shared by every planner of the run.
func (h *Harness) Monitor() *deltablue.PlannerMonitor {
	return h.monitor
}
