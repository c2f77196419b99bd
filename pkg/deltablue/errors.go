package deltablue

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by the planner. Callers match them with errors.Is.
var (
	// ErrRequiredUnsatisfied is returned when a Required constraint cannot be
	// satisfied given the rest of the graph.
	ErrRequiredUnsatisfied = errors.New("could not satisfy a required constraint")

	// ErrCycle is returned when satisfying a constraint would close a cycle in
	// the dataflow graph. The constraints involved have been retracted and
	// destroyed, and the graph is still consistent. Use errors.As with a
	// *CycleError to learn which constraints were retracted.
	ErrCycle = errors.New("cycle encountered")

	// ErrPlannerInconsistent is returned by every mutating call after a
	// required constraint failed in the middle of an edit.
	ErrPlannerInconsistent = errors.New("planner is inconsistent")

	// ErrScenarioFailed is returned by ChainTest and ProjectionTest when a
	// variable ends up with the wrong value.
	ErrScenarioFailed = errors.New("scenario produced an incorrect result")

	// ErrUnknownConstraint is returned for a nil constraint, one owned by
	// another planner, or one that has been destroyed.
	ErrUnknownConstraint = errors.New("unknown constraint")

	// ErrUnknownVariable is returned for a nil variable or one owned by
	// another planner.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrInvalidStrength is returned when a constraint is added with a
	// strength outside Required..WeakDefault.
	ErrInvalidStrength = errors.New("invalid strength")

	// ErrInvariantViolation wraps every problem reported by Validate.
	ErrInvariantViolation = errors.New("invariant violation")
)

// CycleError lists the constraints retracted during one call because
// satisfying them would have closed a dataflow cycle. It matches ErrCycle.
type CycleError struct {
	Retracted []*Constraint
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Retracted))
	for i, c := range e.Retracted {
		names[i] = c.String()
	}
	return fmt.Sprintf("%s: retracted %s", ErrCycle, strings.Join(names, ", "))
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}
