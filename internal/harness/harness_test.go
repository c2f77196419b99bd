package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/deltablue/internal/config"
	"github.com/gitrdm/deltablue/pkg/deltablue"
)

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	var calls atomic.Int64
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		return base.Add(time.Duration(calls.Add(1)) * step)
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Iterations = 3
	cfg.WarmUp = 1
	cfg.InnerIterations = 10
	return cfg
}

func TestLookup(t *testing.T) {
	b, err := Lookup("DeltaBlue", nil)
	require.NoError(t, err)
	assert.Equal(t, "DeltaBlue", b.Name())
	assert.NoError(t, b.InnerBenchmarkLoop(5))

	_, err = Lookup("Richards", nil)
	assert.ErrorIs(t, err, ErrUnknownBenchmark)
	assert.Equal(t, []string{"DeltaBlue"}, Names())
}

func TestHarness_Run(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	h := New(testConfig(), WithMetrics(metrics), WithClock(steppingClock(1500*time.Microsecond)))

	report, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "DeltaBlue", report.Benchmark)
	assert.Equal(t, deltablue.Version, report.Version)
	require.Len(t, report.Copies, 1)
	assert.Equal(t, []int64{1500, 1500, 1500}, report.Copies[0].RuntimesMicros)
	assert.Equal(t, int64(1500), report.Copies[0].AverageMicros)
	assert.Equal(t, int64(4500), report.TotalMicros)

	require.NotNil(t, report.Stats)
	// Four loops (one warm-up, three measured), each with one chain plan and
	// four projection changes.
	assert.Equal(t, 4*5, report.Stats.PlansExtracted)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.IterationsTotal.WithLabelValues("DeltaBlue", PhaseWarmUp)))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.IterationsTotal.WithLabelValues("DeltaBlue", PhaseMeasured)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.FailuresTotal.WithLabelValues("DeltaBlue")))
	assert.Equal(t, 20.0, testutil.ToFloat64(metrics.PlannerEvents.WithLabelValues("plans")))
}

func TestHarness_RunIDIsUniquePerRun(t *testing.T) {
	h := New(testConfig())
	a, err := h.Run(context.Background())
	require.NoError(t, err)
	b, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestHarness_Parallel(t *testing.T) {
	cfg := testConfig()
	cfg.Parallel = 4
	h := New(cfg, WithClock(steppingClock(time.Millisecond)))

	report, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Copies, 4)
	for i, c := range report.Copies {
		assert.Equal(t, i, c.Copy)
		assert.Len(t, c.RuntimesMicros, 3)
	}
	assert.Equal(t, 4*4*5, report.Stats.PlansExtracted)
}

func TestHarness_UnknownBenchmark(t *testing.T) {
	cfg := testConfig()
	cfg.Benchmark = "Havlak"
	_, err := New(cfg).Run(context.Background())
	assert.ErrorIs(t, err, ErrUnknownBenchmark)
}

func TestHarness_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Iterations = 0
	_, err := New(cfg).Run(context.Background())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestHarness_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testConfig()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type failingBenchmark struct{}

func (failingBenchmark) Name() string { return "Failing" }

func (failingBenchmark) InnerBenchmarkLoop(int) error {
	return verdict(deltablue.ErrScenarioFailed)
}

func TestHarness_IncorrectResult(t *testing.T) {
	registry["Failing"] = func(*deltablue.PlannerConfig) Benchmark { return failingBenchmark{} }
	t.Cleanup(func() { delete(registry, "Failing") })

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	cfg := testConfig()
	cfg.Benchmark = "Failing"

	_, err := New(cfg, WithMetrics(metrics)).Run(context.Background())
	require.ErrorIs(t, err, ErrIncorrectResult)
	assert.Contains(t, err.Error(), "benchmark failed with incorrect result")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FailuresTotal.WithLabelValues("Failing")))
}

// observingBenchmark runs DeltaBlue and records the published plan count
// at the start of every loop.
type observingBenchmark struct {
	inner   Benchmark
	metrics *Metrics
	seen    []float64
}

func (b *observingBenchmark) Name() string { return "Observing" }

func (b *observingBenchmark) InnerBenchmarkLoop(n int) error {
	b.seen = append(b.seen, testutil.ToFloat64(b.metrics.PlannerEvents.WithLabelValues("plans")))
	return b.inner.InnerBenchmarkLoop(n)
}

func TestHarness_PublishesStatsEveryIteration(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	var bench *observingBenchmark
	registry["Observing"] = func(pc *deltablue.PlannerConfig) Benchmark {
		bench = &observingBenchmark{inner: &DeltaBlue{config: pc}, metrics: metrics}
		return bench
	}
	t.Cleanup(func() { delete(registry, "Observing") })

	cfg := testConfig()
	cfg.Benchmark = "Observing"
	_, err := New(cfg, WithMetrics(metrics)).Run(context.Background())
	require.NoError(t, err)

	// One chain plan and four projection changes per loop, visible before
	// the run ends.
	require.NotNil(t, bench)
	assert.Equal(t, []float64{0, 5, 10, 15}, bench.seen)
	assert.Equal(t, 20.0, testutil.ToFloat64(metrics.PlannerEvents.WithLabelValues("plans")))
}

func TestVerdict(t *testing.T) {
	other := errors.New("other")
	assert.NotErrorIs(t, verdict(other), ErrIncorrectResult)
	assert.ErrorIs(t, verdict(deltablue.ErrScenarioFailed), ErrIncorrectResult)
}

func sampleReport() *Report {
	return &Report{
		RunID:           "run",
		Benchmark:       "DeltaBlue",
		Version:         deltablue.Version,
		Iterations:      2,
		InnerIterations: 100,
		Copies: []CopyResult{
			{Copy: 0, RuntimesMicros: []int64{120, 80}, AverageMicros: 100, TotalMicros: 200},
		},
		TotalMicros: 200,
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, config.OutputText, sampleReport()))
	assert.Equal(t, "Starting DeltaBlue benchmark ...\n"+
		"DeltaBlue: iterations=1 runtime: 120us\n"+
		"DeltaBlue: iterations=1 runtime: 80us\n"+
		"DeltaBlue: iterations=2 average: 100us total: 200us\n"+
		"\n"+
		"\n"+
		"Total Runtime: 200us\n", buf.String())
}

func TestWriteText_LabelsCopies(t *testing.T) {
	r := sampleReport()
	r.Copies = append(r.Copies, CopyResult{Copy: 1, RuntimesMicros: []int64{50}, AverageMicros: 50, TotalMicros: 50})

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	assert.Contains(t, buf.String(), "DeltaBlue#0: iterations=1 runtime: 120us\n")
	assert.Contains(t, buf.String(), "DeltaBlue#1: iterations=1 runtime: 50us\n")
}

func TestWrite_StructuredFormats(t *testing.T) {
	var js bytes.Buffer
	require.NoError(t, Write(&js, config.OutputJSON, sampleReport()))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "DeltaBlue", decoded["benchmark"])
	assert.EqualValues(t, 200, decoded["total_us"])

	var ys bytes.Buffer
	require.NoError(t, Write(&ys, config.OutputYAML, sampleReport()))
	var y map[string]any
	require.NoError(t, yaml.Unmarshal(ys.Bytes(), &y))
	assert.Equal(t, "run", y["run_id"])

	assert.Error(t, Write(&bytes.Buffer{}, "xml", sampleReport()))
}
