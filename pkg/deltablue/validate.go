package deltablue

import (
	"errors"
	"fmt"
)

// Validate checks the structural invariants of the current solution:
//   - every satisfied, attached constraint determines its own output
//   - every determined variable points at a satisfied, attached constraint
//     whose output is that variable
//   - a variable's constraint list and the constraints' attachment agree
//   - a constraint is detached exactly when it has been destroyed
//   - following determinedBy through constraint inputs never revisits a
//     variable (the dataflow graph is acyclic)
//
// All violations found are joined; each wraps ErrInvariantViolation.
func (p *Planner) Validate() error {
	var errs []error
	violation := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...)))
	}

	for _, c := range p.constraints {
		if c.attached == c.destroyed {
			violation("%s has attached=%t destroyed=%t", c, c.attached, c.destroyed)
		}
		if !c.attached {
			if c.IsSatisfied() {
				violation("%s is satisfied but detached", c)
			}
			continue
		}
		for _, id := range c.variablesOf() {
			if !containsConstraint(p.variables[id].constraints, c.id) {
				violation("%s missing from constraints of %s", c, p.variables[id].name)
			}
		}
		if c.IsSatisfied() {
			if out := p.output(c); out.determinedBy != c.id {
				violation("%s is satisfied but %s is determined by #%d", c, out.name, out.determinedBy)
			}
		}
	}

	for _, v := range p.variables {
		for _, id := range v.constraints {
			if c := p.Constraint(id); c == nil || !c.attached {
				violation("%s references detached constraint #%d", v.name, id)
			}
		}
		if v.determinedBy == NoConstraint {
			continue
		}
		c := p.Constraint(v.determinedBy)
		switch {
		case c == nil:
			violation("%s determined by unknown constraint #%d", v.name, v.determinedBy)
		case !c.attached || !c.IsSatisfied():
			violation("%s determined by inactive %s", v.name, c)
		case p.output(c) != v:
			violation("%s determined by %s whose output is %s", v.name, c, p.output(c).name)
		}
	}

	if len(errs) == 0 {
		if cyc := p.findCycle(); cyc != nil {
			violation("dataflow cycle through %s", cyc.name)
		}
	}
	return errors.Join(errs...)
}

// findCycle returns a variable lying on a cycle of the dataflow graph, or nil.
func (p *Planner) findCycle() *Variable {
	const (
		unvisited = iota
		active
		done
	)
	state := make([]uint8, len(p.variables))

	var visit func(v *Variable) *Variable
	visit = func(v *Variable) *Variable {
		switch state[v.id] {
		case active:
			return v
		case done:
			return nil
		}
		state[v.id] = active
		if v.determinedBy != NoConstraint {
			var buf [3]*Variable
			for _, in := range p.inputs(p.constraints[v.determinedBy], buf[:0]) {
				if cyc := visit(in); cyc != nil {
					return cyc
				}
			}
		}
		state[v.id] = done
		return nil
	}

	for _, v := range p.variables {
		if cyc := visit(v); cyc != nil {
			return cyc
		}
	}
	return nil
}

func containsConstraint(ids []ConstraintID, id ConstraintID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
