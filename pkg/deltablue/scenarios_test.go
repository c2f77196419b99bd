package deltablue

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestChainTest(t *testing.T) {
	for _, n := range []int{1, 2, 10, 100, 1000} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			assert.NoError(t, ChainTest(n, nil))
		})
	}
}

func TestProjectionTest(t *testing.T) {
	for _, n := range []int{0, 1, 2, 10, 100, 1000} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			assert.NoError(t, ProjectionTest(n, nil))
		})
	}
}

func TestChainTest_Stats(t *testing.T) {
	monitor := NewPlannerMonitor()
	config := DefaultPlannerConfig()
	config.Monitor = monitor

	require.NoError(t, ChainTest(5, config))

	stats := monitor.GetStats()
	assert.Equal(t, 7, stats.ConstraintsAdded)
	assert.Equal(t, 1, stats.ConstraintsRemoved)
	assert.Equal(t, 1, stats.PlansExtracted)
	assert.Equal(t, 6, stats.PlanSteps)
	assert.GreaterOrEqual(t, stats.Executions, 600)
	assert.Zero(t, stats.CyclesDetected)
}

func TestProjectionTest_Stats(t *testing.T) {
	monitor := NewPlannerMonitor()
	config := DefaultPlannerConfig()
	config.Monitor = monitor

	require.NoError(t, ProjectionTest(10, config))

	stats := monitor.GetStats()
	assert.Equal(t, 4, stats.Changes)
	assert.Equal(t, 4, stats.PlansExtracted)
	// 10 stays, 10 scales and one edit per change.
	assert.Equal(t, 24, stats.ConstraintsAdded)
	assert.Equal(t, 4, stats.ConstraintsRemoved)
}

func TestScenarios_ShareMonitorAcrossGoroutines(t *testing.T) {
	monitor := NewPlannerMonitor()
	config := DefaultPlannerConfig()
	config.Monitor = monitor

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error { return ChainTest(20, config) })
		g.Go(func() error { return ProjectionTest(20, config) })
	}
	require.NoError(t, g.Wait())

	stats := monitor.GetStats()
	assert.Equal(t, 8*4, stats.Changes)
	assert.Equal(t, 8*(20+2)+8*(40+4), stats.ConstraintsAdded)
}
