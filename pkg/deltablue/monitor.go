package deltablue

// monitor.go: statistics for the incremental planner

import (
	"fmt"
	"sync"
)

// PlannerStats holds counters describing planner activity.
type PlannerStats struct {
	// Graph edits
	ConstraintsAdded   int // constraints passed to Add*
	ConstraintsRemoved int // constraints destroyed
	Satisfactions      int // successful satisfy calls
	Overrides          int // constraints bumped off their output
	Unsatisfied        int // satisfy calls that left the constraint unsatisfied
	CyclesDetected     int // constraints retracted by cycle detection
	MarksIssued        int // edit episodes started

	// Planning and execution
	PlansExtracted int // plans built
	PlanSteps      int // constraints placed in plans
	Executions     int // constraint executions
	Propagations   int // PropagateFrom calls
	Changes        int // Change calls

	PeakWorklist int // largest worklist seen in any traversal
}

// PlannerMonitor collects PlannerStats. A monitor may be shared by several
// planners running on different goroutines.
type PlannerMonitor struct {
	mu    sync.Mutex
	stats PlannerStats
}

// NewPlannerMonitor creates a new planner monitor.
func NewPlannerMonitor() *PlannerMonitor {
	return &PlannerMonitor{}
}

// GetStats returns a copy of the current statistics.
func (m *PlannerMonitor) GetStats() *PlannerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	return &stats
}

// Reset clears all counters.
func (m *PlannerMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = PlannerStats{}
}

// record applies f under the lock. A nil monitor records nothing.
func (m *PlannerMonitor) record(f func(s *PlannerStats)) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f(&m.stats)
}

// RecordConstraintAdded records a constraint entering the graph.
func (m *PlannerMonitor) RecordConstraintAdded() {
	m.record(func(s *PlannerStats) { s.ConstraintsAdded++ })
}

// RecordConstraintRemoved records a destroyed constraint.
func (m *PlannerMonitor) RecordConstraintRemoved() {
	m.record(func(s *PlannerStats) { s.ConstraintsRemoved++ })
}

// RecordSatisfy records the outcome of one satisfy call.
func (m *PlannerMonitor) RecordSatisfy(satisfied, overrode bool) {
	m.record(func(s *PlannerStats) {
		if !satisfied {
			s.Unsatisfied++
			return
		}
		s.Satisfactions++
		if overrode {
			s.Overrides++
		}
	})
}

// RecordCycle records a constraint retracted because of a cycle.
func (m *PlannerMonitor) RecordCycle() {
	m.record(func(s *PlannerStats) { s.CyclesDetected++ })
}

// RecordMark records a new edit episode.
func (m *PlannerMonitor) RecordMark() {
	m.record(func(s *PlannerStats) { s.MarksIssued++ })
}

// RecordPlan records an extracted plan of the given length.
func (m *PlannerMonitor) RecordPlan(steps int) {
	m.record(func(s *PlannerStats) {
		s.PlansExtracted++
		s.PlanSteps += steps
	})
}

// RecordExecution records one constraint execution.
func (m *PlannerMonitor) RecordExecution() {
	m.record(func(s *PlannerStats) { s.Executions++ })
}

// RecordPropagation records a PropagateFrom call.
func (m *PlannerMonitor) RecordPropagation() {
	m.record(func(s *PlannerStats) { s.Propagations++ })
}

// RecordChange records a Change call.
func (m *PlannerMonitor) RecordChange() {
	m.record(func(s *PlannerStats) { s.Changes++ })
}

// RecordWorklist records the current size of a traversal worklist.
func (m *PlannerMonitor) RecordWorklist(size int) {
	m.record(func(s *PlannerStats) {
		if size > s.PeakWorklist {
			s.PeakWorklist = size
		}
	})
}

// String returns a formatted string representation of the statistics
func (s *PlannerStats) String() string {
	return fmt.Sprintf(
		"Planner Statistics:\n"+
			"  Graph: %d added, %d removed, %d marks\n"+
			"  Satisfy: %d satisfied, %d overrides, %d unsatisfied, %d cycles\n"+
			"  Plans: %d extracted, %d steps, %d executions\n"+
			"  Propagation: %d propagations, %d changes, peak worklist %d",
		s.ConstraintsAdded, s.ConstraintsRemoved, s.MarksIssued,
		s.Satisfactions, s.Overrides, s.Unsatisfied, s.CyclesDetected,
		s.PlansExtracted, s.PlanSteps, s.Executions,
		s.Propagations, s.Changes, s.PeakWorklist,
	)
}
