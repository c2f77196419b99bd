package deltablue

import "log/slog"

// DefaultChangeRepetitions is how many times Change re-executes its plan.
// One execution is enough for correctness; the benchmark workload repeats
// it ten times.
const DefaultChangeRepetitions = 10

// PlannerConfig holds planner parameters.
type PlannerConfig struct {
	// ChangeRepetitions is the number of times Change assigns the new value
	// and executes its plan. Values below 1 are treated as 1.
	ChangeRepetitions int

	// Logger receives structured planner events. Nil discards them.
	Logger *slog.Logger

	// Monitor collects statistics. Nil disables collection.
	Monitor *PlannerMonitor
}

// DefaultPlannerConfig returns the default configuration.
func DefaultPlannerConfig() *PlannerConfig {
	return &PlannerConfig{
		ChangeRepetitions: DefaultChangeRepetitions,
	}
}
