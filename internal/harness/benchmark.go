package harness

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gitrdm/deltablue/pkg/deltablue"
)

var (
	// ErrUnknownBenchmark is returned for a benchmark name with no registration.
	ErrUnknownBenchmark = errors.New("unknown benchmark")

	// ErrIncorrectResult is returned when a workload verifies wrong values.
	ErrIncorrectResult = errors.New("benchmark failed with incorrect result")
)

// Benchmark is a measurable workload.
type Benchmark interface {
	Name() string

	// InnerBenchmarkLoop runs the workload once at the given problem size.
	InnerBenchmarkLoop(innerIterations int) error
}

// Factory builds a benchmark that runs its planners with config.
type Factory func(config *deltablue.PlannerConfig) Benchmark

var registry = map[string]Factory{
	"DeltaBlue": func(config *deltablue.PlannerConfig) Benchmark {
		return &DeltaBlue{config: config}
	},
}

// Lookup returns the benchmark registered under name.
func Lookup(name string, config *deltablue.PlannerConfig) (Benchmark, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownBenchmark, name, Names())
	}
	return f(config), nil
}

// Names lists the registered benchmarks.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeltaBlue runs the chain workload followed by the projection workload.
type DeltaBlue struct {
	config *deltablue.PlannerConfig
}

// Name implements Benchmark.
func (*DeltaBlue) Name() string { return "DeltaBlue" }

// InnerBenchmarkLoop implements Benchmark.
func (b *DeltaBlue) InnerBenchmarkLoop(innerIterations int) error {
	if err := deltablue.ChainTest(innerIterations, b.config); err != nil {
		return verdict(err)
	}
	if err := deltablue.ProjectionTest(innerIterations, b.config); err != nil {
		return verdict(err)
	}
	return nil
}

// verdict marks wrong values as ErrIncorrectResult; other errors pass through.
func verdict(err error) error {
	if errors.Is(err, deltablue.ErrScenarioFailed) {
		return fmt.Errorf("%w: %w", ErrIncorrectResult, err)
	}
	return err
}
