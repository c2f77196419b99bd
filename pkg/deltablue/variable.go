// Package deltablue provides an incremental constraint planner.
// This file defines Variable, the value cell the planner keeps consistent.
package deltablue

import "fmt"

// VariableID identifies a variable within its planner.
type VariableID int

// Variable is a constrained value cell. Besides its value it carries the
// planner's bookkeeping for the current dataflow graph: the constraint that
// determines it, its walkabout strength, its stay flag, and the set of
// constraints that reference it.
//
// Variables are created by Planner.NewVariable and belong to that planner.
// Back-references to constraints are stored as ConstraintIDs resolved
// through the planner, never as pointers.
//
// Invariants:
//   - if determinedBy != NoConstraint, that constraint is satisfied and its
//     current output is this variable
//   - walkStrength is AbsoluteWeakest when the variable is undetermined
type Variable struct {
	id    VariableID
	name  string
	owner *Planner

	value        int
	constraints  []ConstraintID
	determinedBy ConstraintID
	mark         int
	walkStrength Strength
	stay         bool
}

func newVariable(owner *Planner, id VariableID, name string, value int) *Variable {
	return &Variable{
		id:           id,
		name:         name,
		owner:        owner,
		value:        value,
		constraints:  make([]ConstraintID, 0, 2),
		determinedBy: NoConstraint,
		walkStrength: AbsoluteWeakest,
		stay:         true,
	}
}

// ID returns the variable's handle within its planner.
func (v *Variable) ID() VariableID {
	return v.id
}

// Name returns the variable's name for debugging.
func (v *Variable) Name() string {
	return v.name
}

// Value returns the current value.
func (v *Variable) Value() int {
	return v.value
}

// SetValue overwrites the value without touching the graph. Use
// Planner.Change or an edit constraint with a plan to propagate the change.
func (v *Variable) SetValue(value int) {
	v.value = value
}

// WalkStrength returns the variable's walkabout strength: the strength of
// the weakest constraint on the path that determines it, or AbsoluteWeakest
// if nothing determines it.
func (v *Variable) WalkStrength() Strength {
	return v.walkStrength
}

// IsStay reports whether the variable is a planning-time constant.
func (v *Variable) IsStay() bool {
	return v.stay
}

// DeterminedBy returns the constraint that currently computes this variable.
func (v *Variable) DeterminedBy() (ConstraintID, bool) {
	return v.determinedBy, v.determinedBy != NoConstraint
}

// Constraints returns a copy of the handles of the constraints that
// reference this variable.
func (v *Variable) Constraints() []ConstraintID {
	out := make([]ConstraintID, len(v.constraints))
	copy(out, v.constraints)
	return out
}

// String returns a human-readable representation.
func (v *Variable) String() string {
	return fmt.Sprintf("%s=%d", v.name, v.value)
}

func (v *Variable) addConstraint(c ConstraintID) {
	v.constraints = append(v.constraints, c)
}

// removeConstraint removes every trace of c from the variable.
func (v *Variable) removeConstraint(c ConstraintID) {
	kept := v.constraints[:0]
	for _, id := range v.constraints {
		if id != c {
			kept = append(kept, id)
		}
	}
	v.constraints = kept
	if v.determinedBy == c {
		v.determinedBy = NoConstraint
	}
}
