package deltablue

import (
	"fmt"
	"strings"
)

// Plan is an ordered list of constraints whose execution, front to back,
// recomputes every variable downstream of the plan's sources. A plan is
// built once by the planner and may be executed any number of times while
// the graph is unchanged.
type Plan struct {
	planner *Planner
	steps   []*Constraint
}

func newPlan(p *Planner) *Plan {
	return &Plan{planner: p, steps: make([]*Constraint, 0, 15)}
}

func (pl *Plan) append(c *Constraint) {
	pl.steps = append(pl.steps, c)
}

// Execute runs every constraint of the plan in order.
func (pl *Plan) Execute() {
	for _, c := range pl.steps {
		pl.planner.execute(c)
	}
}

// Len returns the number of constraints in the plan.
func (pl *Plan) Len() int {
	return len(pl.steps)
}

// Constraints returns a copy of the plan's constraints in execution order.
func (pl *Plan) Constraints() []*Constraint {
	out := make([]*Constraint, len(pl.steps))
	copy(out, pl.steps)
	return out
}

// String returns a human-readable representation.
func (pl *Plan) String() string {
	parts := make([]string, len(pl.steps))
	for i, c := range pl.steps {
		parts[i] = c.String()
	}
	return fmt.Sprintf("Plan[%s]", strings.Join(parts, " -> "))
}
