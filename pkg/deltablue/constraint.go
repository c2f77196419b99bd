// Package deltablue provides an incremental constraint planner.
//
// This file defines Constraint, a tagged variant over the four constraint
// kinds, and the per-kind behaviour the planner dispatches on:
//
//   - Stay:     unary, anchors a variable at its current value
//   - Edit:     unary input constraint, marks a variable the caller will change
//   - Equality: binary, v1 = v2
//   - Scale:    binary, v2 = v1*scale + offset (scale and offset are read-only)
//
// Unary constraints have one possible output and a satisfied flag. Binary
// constraints have two candidate outputs and a Direction; DirectionNone means
// unsatisfied.
package deltablue

import "fmt"

// ConstraintID identifies a constraint within its planner.
type ConstraintID int

// NoConstraint is the ConstraintID of "no constraint".
const NoConstraint ConstraintID = -1

// ConstraintKind tags the variant of a Constraint.
type ConstraintKind uint8

const (
	KindStay ConstraintKind = iota
	KindEdit
	KindEquality
	KindScale
)

// String returns the kind name.
func (k ConstraintKind) String() string {
	switch k {
	case KindStay:
		return "Stay"
	case KindEdit:
		return "Edit"
	case KindEquality:
		return "Equality"
	case KindScale:
		return "Scale"
	default:
		return fmt.Sprintf("ConstraintKind(%d)", uint8(k))
	}
}

// IsUnary reports whether constraints of this kind have a single variable.
func (k ConstraintKind) IsUnary() bool {
	return k == KindStay || k == KindEdit
}

// Direction records which way a binary constraint flows.
type Direction uint8

const (
	DirectionNone     Direction = iota // unsatisfied
	DirectionForward                   // v2 computed from v1
	DirectionBackward                  // v1 computed from v2
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return "none"
	}
}

// Constraint is a relation between one or two variables that the planner
// enforces in at most one direction at a time.
//
// Constraints are created by the planner's Add* methods. The variable fields
// are handles into the planner's arena; unary constraints use only v1.
type Constraint struct {
	id       ConstraintID
	kind     ConstraintKind
	strength Strength
	owner    *Planner

	v1, v2        VariableID
	scale, offset VariableID

	satisfied bool      // unary kinds
	direction Direction // binary kinds

	attached  bool
	destroyed bool
}

// ID returns the constraint's handle within its planner.
func (c *Constraint) ID() ConstraintID { return c.id }

// Kind returns the constraint variant.
func (c *Constraint) Kind() ConstraintKind { return c.kind }

// Strength returns the constraint's strength.
func (c *Constraint) Strength() Strength { return c.strength }

// Direction returns the current direction of a binary constraint. Unary
// constraints report DirectionNone.
func (c *Constraint) Direction() Direction { return c.direction }

// IsInput reports whether the constraint depends on state outside the graph.
// Only edit constraints are inputs.
func (c *Constraint) IsInput() bool {
	return c.kind == KindEdit
}

// IsSatisfied reports whether the constraint is enforced in the current
// solution.
func (c *Constraint) IsSatisfied() bool {
	if c.kind.IsUnary() {
		return c.satisfied
	}
	return c.direction != DirectionNone
}

// IsAttached reports whether the constraint is part of the graph.
func (c *Constraint) IsAttached() bool { return c.attached }

// IsDestroyed reports whether DestroyConstraint has been called on c.
func (c *Constraint) IsDestroyed() bool { return c.destroyed }

// String returns a human-readable representation.
func (c *Constraint) String() string {
	switch c.kind {
	case KindStay, KindEdit:
		return fmt.Sprintf("%s#%d(v%d, %s)", c.kind, c.id, c.v1, c.strength)
	case KindScale:
		return fmt.Sprintf("%s#%d(v%d, v%d*v%d+v%d, %s, %s)",
			c.kind, c.id, c.v2, c.v1, c.scale, c.offset, c.strength, c.direction)
	default:
		return fmt.Sprintf("%s#%d(v%d, v%d, %s, %s)",
			c.kind, c.id, c.v1, c.v2, c.strength, c.direction)
	}
}

func (c *Constraint) markUnsatisfied() {
	c.satisfied = false
	c.direction = DirectionNone
}

// variablesOf lists every variable c references, in a fixed order.
func (c *Constraint) variablesOf() []VariableID {
	switch c.kind {
	case KindStay, KindEdit:
		return []VariableID{c.v1}
	case KindScale:
		return []VariableID{c.v1, c.v2, c.scale, c.offset}
	default:
		return []VariableID{c.v1, c.v2}
	}
}

// -----------------------------------------------------------------------------
// Per-kind behaviour
// -----------------------------------------------------------------------------

func (p *Planner) addToGraph(c *Constraint) {
	for _, id := range c.variablesOf() {
		p.variables[id].addConstraint(c.id)
	}
	c.markUnsatisfied()
	c.attached = true
}

func (p *Planner) removeFromGraph(c *Constraint) {
	if c.attached {
		for _, id := range c.variablesOf() {
			p.variables[id].removeConstraint(c.id)
		}
	}
	c.markUnsatisfied()
	c.attached = false
}

// output returns the variable c currently computes. For an unsatisfied
// binary constraint this is v1.
func (p *Planner) output(c *Constraint) *Variable {
	if !c.kind.IsUnary() && c.direction == DirectionForward {
		return p.variables[c.v2]
	}
	return p.variables[c.v1]
}

// chooseMethod decides whether c can be satisfied, and in which direction,
// given which variables already carry mark and the walkabout strengths of
// the candidate outputs.
func (p *Planner) chooseMethod(c *Constraint, mark int) {
	if c.kind.IsUnary() {
		out := p.variables[c.v1]
		c.satisfied = out.mark != mark && c.strength.Stronger(out.walkStrength)
		return
	}

	v1, v2 := p.variables[c.v1], p.variables[c.v2]
	c.direction = DirectionNone
	switch {
	case v1.mark == mark:
		if v2.mark != mark && c.strength.Stronger(v2.walkStrength) {
			c.direction = DirectionForward
		}
	case v2.mark == mark:
		if c.strength.Stronger(v1.walkStrength) {
			c.direction = DirectionBackward
		}
	case v1.walkStrength.Weaker(v2.walkStrength):
		if c.strength.Stronger(v1.walkStrength) {
			c.direction = DirectionBackward
		}
	default:
		if c.strength.Stronger(v2.walkStrength) {
			c.direction = DirectionForward
		}
	}
}

// inputs returns c's current input variables. Unary constraints have none.
// buf is reused when large enough.
func (p *Planner) inputs(c *Constraint, buf []*Variable) []*Variable {
	buf = buf[:0]
	switch c.kind {
	case KindStay, KindEdit:
		return buf
	case KindScale:
		in := c.v2
		if c.direction == DirectionForward {
			in = c.v1
		}
		return append(buf, p.variables[in], p.variables[c.scale], p.variables[c.offset])
	default:
		in := c.v2
		if c.direction == DirectionForward {
			in = c.v1
		}
		return append(buf, p.variables[in])
	}
}

// inputsKnown reports whether every input of c is known at plan time: marked
// with mark, stay, or not determined by any constraint.
func (p *Planner) inputsKnown(c *Constraint, mark int) bool {
	var buf [3]*Variable
	for _, v := range p.inputs(c, buf[:0]) {
		if v.mark != mark && !v.stay && v.determinedBy != NoConstraint {
			return false
		}
	}
	return true
}

// execute enforces c. c is assumed satisfied.
func (p *Planner) execute(c *Constraint) {
	p.monitor.RecordExecution()
	switch c.kind {
	case KindEquality:
		v1, v2 := p.variables[c.v1], p.variables[c.v2]
		if c.direction == DirectionForward {
			v2.value = v1.value
		} else {
			v1.value = v2.value
		}
	case KindScale:
		v1, v2 := p.variables[c.v1], p.variables[c.v2]
		scale, offset := p.variables[c.scale].value, p.variables[c.offset].value
		if c.direction == DirectionForward {
			v2.value = v1.value*scale + offset
		} else if scale != 0 {
			v1.value = (v2.value - offset) / scale
		}
	}
	// Stay and edit constraints compute nothing.
}

// recalculate derives the walkabout strength and stay flag of c's output
// and, when the output is stay, its value. c is assumed satisfied.
func (p *Planner) recalculate(c *Constraint) {
	out := p.output(c)
	switch c.kind {
	case KindStay, KindEdit:
		out.walkStrength = c.strength
		out.stay = !c.IsInput()
	default:
		in := p.variables[c.v2]
		if c.direction == DirectionForward {
			in = p.variables[c.v1]
		}
		out.walkStrength = c.strength.Weakest(in.walkStrength)
		out.stay = in.stay
		if c.kind == KindScale {
			out.stay = out.stay && p.variables[c.scale].stay && p.variables[c.offset].stay
		}
	}
	if out.stay {
		p.execute(c)
	}
}
