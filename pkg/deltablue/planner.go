// Package deltablue provides an incremental constraint planner.
//
// This file implements the Planner, which owns the constraint graph and keeps
// a dataflow solution for it up to date as constraints are added and removed.
//
// The planner follows the DeltaBlue algorithm:
//   - Each variable is determined by at most one satisfied constraint.
//   - Adding a constraint may override a weaker constraint on its output;
//     the overridden constraint then tries another method, and so on.
//   - Removing a constraint recomputes downstream walkabout strengths and
//     re-tries the constraints that became satisfiable, strongest first.
//   - Every edit episode takes a fresh mark; a marked variable reached
//     downstream of the constraint being satisfied means a cycle.
//
// Thread safety: a Planner is not safe for concurrent use. Distinct planners
// share no mutable state and may run on different goroutines.
package deltablue

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// Planner owns an arena of variables and constraints and maintains the
// current solution of the constraint graph.
type Planner struct {
	variables   []*Variable
	constraints []*Constraint

	// currentMark is incremented for every edit episode.
	currentMark int

	config  *PlannerConfig
	logger  *slog.Logger
	monitor *PlannerMonitor

	// err is set once a required constraint fails in the middle of an edit.
	err error

	// retracted collects constraints dropped by cycle detection until the
	// public call that caused them returns.
	retracted []*Constraint
}

// NewPlanner creates an empty planner with default configuration.
func NewPlanner() *Planner {
	return NewPlannerWithConfig(nil)
}

// NewPlannerWithConfig creates an empty planner with custom configuration.
func NewPlannerWithConfig(config *PlannerConfig) *Planner {
	if config == nil {
		config = DefaultPlannerConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Planner{
		variables:   make([]*Variable, 0),
		constraints: make([]*Constraint, 0),
		currentMark: 1,
		config:      config,
		logger:      logger,
		monitor:     config.Monitor,
	}
}

// -----------------------------------------------------------------------------
// Arena
// -----------------------------------------------------------------------------

// NewVariable creates a variable holding value.
func (p *Planner) NewVariable(value int) *Variable {
	return p.NewVariableWithName(fmt.Sprintf("v%d", len(p.variables)), value)
}

// NewVariableWithName creates a named variable for easier debugging.
func (p *Planner) NewVariableWithName(name string, value int) *Variable {
	v := newVariable(p, VariableID(len(p.variables)), name, value)
	p.variables = append(p.variables, v)
	return v
}

// NewVariables creates count variables holding value.
func (p *Planner) NewVariables(count int, value int) []*Variable {
	vars := make([]*Variable, count)
	for i := range vars {
		vars[i] = p.NewVariable(value)
	}
	return vars
}

// Variable returns the variable with the given handle, or nil.
func (p *Planner) Variable(id VariableID) *Variable {
	if id < 0 || int(id) >= len(p.variables) {
		return nil
	}
	return p.variables[id]
}

// Constraint returns the constraint with the given handle, or nil.
func (p *Planner) Constraint(id ConstraintID) *Constraint {
	if id < 0 || int(id) >= len(p.constraints) {
		return nil
	}
	return p.constraints[id]
}

// Variables returns every variable in creation order.
func (p *Planner) Variables() []*Variable {
	out := make([]*Variable, len(p.variables))
	copy(out, p.variables)
	return out
}

// Constraints returns every constraint ever added, including destroyed ones,
// in creation order.
func (p *Planner) Constraints() []*Constraint {
	out := make([]*Constraint, len(p.constraints))
	copy(out, p.constraints)
	return out
}

// CurrentMark returns the most recently issued mark.
func (p *Planner) CurrentMark() int {
	return p.currentMark
}

// Err returns the failure that made the planner inconsistent, if any.
func (p *Planner) Err() error {
	return p.err
}

// Output returns the variable c currently determines. ok is false when c
// is not satisfied.
func (p *Planner) Output(c *Constraint) (v *Variable, ok bool) {
	if p.checkConstraint(c) != nil || !c.IsSatisfied() {
		return nil, false
	}
	return p.output(c), true
}

func (p *Planner) checkVariable(v *Variable) error {
	if v == nil {
		return fmt.Errorf("%w: nil", ErrUnknownVariable)
	}
	if v.owner != p {
		return fmt.Errorf("%w: %s belongs to another planner", ErrUnknownVariable, v.name)
	}
	return nil
}

func (p *Planner) checkConstraint(c *Constraint) error {
	if c == nil {
		return fmt.Errorf("%w: nil", ErrUnknownConstraint)
	}
	if c.owner != p {
		return fmt.Errorf("%w: %s belongs to another planner", ErrUnknownConstraint, c)
	}
	if c.destroyed {
		return fmt.Errorf("%w: %s was destroyed", ErrUnknownConstraint, c)
	}
	return nil
}

func (p *Planner) checkUsable() error {
	if p.err != nil {
		return fmt.Errorf("%w: %w", ErrPlannerInconsistent, p.err)
	}
	return nil
}

// poison records err as the reason the planner can no longer be trusted.
func (p *Planner) poison(err error) error {
	if p.err == nil {
		p.err = err
		p.logger.Error("planner left inconsistent", slog.String("error", err.Error()))
	}
	return err
}

// takeRetracted folds the constraints retracted by cycles during the current
// call into err and clears the list.
func (p *Planner) takeRetracted(err error) error {
	if len(p.retracted) == 0 {
		return err
	}
	cerr := &CycleError{Retracted: p.retracted}
	p.retracted = nil
	if err == nil || errors.Is(err, ErrCycle) {
		return cerr
	}
	return errors.Join(err, cerr)
}

// settle is takeRetracted for calls that hand back a constraint. The
// constraint is still returned when only others were retracted.
func (p *Planner) settle(c *Constraint, err error) (*Constraint, error) {
	return c, p.takeRetracted(err)
}

// -----------------------------------------------------------------------------
// Constraint construction and destruction
// -----------------------------------------------------------------------------

const noVariable VariableID = -1

// AddStay adds a stay constraint on v: v keeps its value, with the given
// strength of preference.
//
// All Add methods return nil and the error when the new constraint could not
// be placed. If placing it retracted other constraints to break a cycle, the
// new constraint is returned together with a *CycleError naming them.
func (p *Planner) AddStay(v *Variable, strength Strength) (*Constraint, error) {
	if err := p.checkVariable(v); err != nil {
		return nil, err
	}
	return p.settle(p.addConstraint(KindStay, strength, v.id, noVariable, noVariable, noVariable))
}

// AddEdit adds an edit constraint on v, marking it as a variable the caller
// is about to change.
func (p *Planner) AddEdit(v *Variable, strength Strength) (*Constraint, error) {
	if err := p.checkVariable(v); err != nil {
		return nil, err
	}
	return p.settle(p.addConstraint(KindEdit, strength, v.id, noVariable, noVariable, noVariable))
}

// AddEquality adds the constraint a = b.
func (p *Planner) AddEquality(a, b *Variable, strength Strength) (*Constraint, error) {
	for _, v := range []*Variable{a, b} {
		if err := p.checkVariable(v); err != nil {
			return nil, err
		}
	}
	return p.settle(p.addConstraint(KindEquality, strength, a.id, b.id, noVariable, noVariable))
}

// AddScale adds the constraint dst = src*scale + offset. Either src or dst
// may be computed from the other; scale and offset are only read.
func (p *Planner) AddScale(src, scale, offset, dst *Variable, strength Strength) (*Constraint, error) {
	for _, v := range []*Variable{src, scale, offset, dst} {
		if err := p.checkVariable(v); err != nil {
			return nil, err
		}
	}
	return p.settle(p.addConstraint(KindScale, strength, src.id, dst.id, scale.id, offset.id))
}

// addConstraint places a new constraint in the graph and tries to satisfy it.
// On failure the constraint is detached again and nil is returned.
func (p *Planner) addConstraint(kind ConstraintKind, strength Strength, v1, v2, scale, offset VariableID) (*Constraint, error) {
	if err := p.checkUsable(); err != nil {
		return nil, err
	}
	if !strength.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStrength, strength)
	}

	c := &Constraint{
		id:       ConstraintID(len(p.constraints)),
		kind:     kind,
		strength: strength,
		owner:    p,
		v1:       v1,
		v2:       v2,
		scale:    scale,
		offset:   offset,
	}
	p.constraints = append(p.constraints, c)
	p.addToGraph(c)
	p.monitor.RecordConstraintAdded()

	if err := p.incrementalAdd(c); err != nil {
		// Cycle retraction already detached c; a required failure on c
		// itself changed nothing but c's own state.
		p.removeFromGraph(c)
		c.destroyed = true
		return nil, err
	}
	p.logger.Debug("constraint added",
		slog.String("constraint", c.String()),
		slog.Bool("satisfied", c.IsSatisfied()))
	return c, nil
}

// DestroyConstraint retracts c if it is satisfied, lets the rest of the
// graph re-settle, and detaches c from its variables. Constraints retracted
// by cycles while re-settling are reported in a *CycleError.
func (p *Planner) DestroyConstraint(c *Constraint) error {
	return p.takeRetracted(p.destroyConstraint(c))
}

func (p *Planner) destroyConstraint(c *Constraint) error {
	if err := p.checkUsable(); err != nil {
		return err
	}
	if err := p.checkConstraint(c); err != nil {
		return err
	}
	if c.IsSatisfied() {
		if err := p.incrementalRemove(c); err != nil {
			return err
		}
	}
	p.removeFromGraph(c)
	c.destroyed = true
	p.monitor.RecordConstraintRemoved()
	p.logger.Debug("constraint destroyed", slog.String("constraint", c.String()))
	return nil
}

// -----------------------------------------------------------------------------
// Incremental satisfaction
// -----------------------------------------------------------------------------

func (p *Planner) newMark() int {
	p.currentMark++
	p.monitor.RecordMark()
	return p.currentMark
}

// incrementalAdd satisfies c and then re-satisfies, with the same mark, each
// constraint bumped off its output along the way. The chain ends at a
// variable nothing determined before, or at a constraint too weak to be
// satisfied by any method. Marking keeps the chain finite even if the graph
// has a cycle.
//
// Errors concerning c itself are returned to the caller. A cycle further
// down the chain retracts only the overridden constraint, which is recorded
// for the public call to report. A required constraint failing further down
// the chain leaves the planner inconsistent.
func (p *Planner) incrementalAdd(c *Constraint) error {
	mark := p.newMark()
	overridden, err := p.satisfy(c, mark)
	for err == nil && overridden != nil {
		overridden, err = p.satisfy(overridden, mark)
		switch {
		case err == nil:
		case errors.Is(err, ErrCycle):
			// The overridden constraint was retracted and recorded.
			return nil
		default:
			return p.poison(err)
		}
	}
	return err
}

// satisfy tries to enforce c, which is assumed unsatisfied. It returns the
// constraint that c overrode, if any.
func (p *Planner) satisfy(c *Constraint, mark int) (*Constraint, error) {
	p.chooseMethod(c, mark)

	if !c.IsSatisfied() {
		p.monitor.RecordSatisfy(false, false)
		if c.strength.SameAs(Required) {
			return nil, fmt.Errorf("%w: %s", ErrRequiredUnsatisfied, c)
		}
		return nil, nil
	}

	// Mark inputs so addPropagate can detect a path back to them.
	var buf [3]*Variable
	for _, in := range p.inputs(c, buf[:0]) {
		in.mark = mark
	}

	out := p.output(c)
	var overridden *Constraint
	if out.determinedBy != NoConstraint {
		overridden = p.constraints[out.determinedBy]
		overridden.markUnsatisfied()
	}
	out.determinedBy = c.id

	ok, err := p.addPropagate(c, mark)
	if err != nil {
		return nil, err
	}
	if !ok {
		c.destroyed = true
		p.retracted = append(p.retracted, c)
		p.monitor.RecordCycle()
		p.logger.Warn("cycle encountered, constraint retracted",
			slog.String("constraint", c.String()))
		return nil, fmt.Errorf("%w: %s", ErrCycle, c)
	}

	out.mark = mark
	p.monitor.RecordSatisfy(true, overridden != nil)
	return overridden, nil
}

// incrementalRemove retracts c, which is assumed satisfied, and updates the
// graph. Removing c may let some unsatisfied downstream constraints be
// satisfied; they are retried strongest first so that weak constraints are
// not added only to be overridden.
func (p *Planner) incrementalRemove(c *Constraint) error {
	out := p.output(c)
	c.markUnsatisfied()
	p.removeFromGraph(c)

	for _, u := range p.removePropagateFrom(out) {
		if u.IsSatisfied() || !u.attached {
			continue
		}
		if err := p.incrementalAdd(u); err != nil {
			if errors.Is(err, ErrCycle) {
				// u was retracted and recorded.
				continue
			}
			return p.poison(err)
		}
	}
	return nil
}

// addPropagate recomputes walkabout strengths and stay flags downstream of c,
// executing constraints whose outputs become stay. The inputs of c carry
// mark, so reaching a marked output downstream means a path from c's output
// back to one of its inputs; c is then retracted and false is returned.
func (p *Planner) addPropagate(c *Constraint, mark int) (bool, error) {
	todo := []*Constraint{c}
	for head := 0; head < len(todo); head++ {
		d := todo[head]
		out := p.output(d)
		if out.mark == mark {
			if err := p.incrementalRemove(c); err != nil {
				return false, err
			}
			return false, nil
		}
		p.recalculate(d)
		todo = p.addConstraintsConsumingTo(out, todo)
	}
	p.monitor.RecordWorklist(len(todo))
	return true, nil
}

// removePropagateFrom resets out to undetermined and recomputes the
// walkabout strengths and stay flags of everything downstream of it. It
// returns the unsatisfied constraints met along the way, strongest first.
func (p *Planner) removePropagateFrom(out *Variable) []*Constraint {
	out.determinedBy = NoConstraint
	out.walkStrength = AbsoluteWeakest
	out.stay = true

	var unsatisfied []*Constraint
	seen := make(map[ConstraintID]struct{})

	todo := []*Variable{out}
	for head := 0; head < len(todo); head++ {
		v := todo[head]
		for _, id := range v.constraints {
			c := p.constraints[id]
			if c.IsSatisfied() {
				continue
			}
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				unsatisfied = append(unsatisfied, c)
			}
		}
		for _, id := range v.constraints {
			c := p.constraints[id]
			if id == v.determinedBy || !c.IsSatisfied() {
				continue
			}
			p.recalculate(c)
			todo = append(todo, p.output(c))
		}
	}
	p.monitor.RecordWorklist(len(todo))

	sort.SliceStable(unsatisfied, func(i, j int) bool {
		return unsatisfied[i].strength.Stronger(unsatisfied[j].strength)
	})
	return unsatisfied
}

// addConstraintsConsumingTo appends to todo every satisfied constraint that
// reads v, that is, every satisfied constraint on v other than the one
// determining it.
func (p *Planner) addConstraintsConsumingTo(v *Variable, todo []*Constraint) []*Constraint {
	for _, id := range v.constraints {
		c := p.constraints[id]
		if id != v.determinedBy && c.IsSatisfied() {
			todo = append(todo, c)
		}
	}
	return todo
}

// -----------------------------------------------------------------------------
// Plans and propagation
// -----------------------------------------------------------------------------

// ExtractPlanFromConstraints builds a plan starting from the outputs of the
// satisfied input constraints among cs. Other constraints in cs are ignored.
func (p *Planner) ExtractPlanFromConstraints(cs ...*Constraint) (*Plan, error) {
	if err := p.checkUsable(); err != nil {
		return nil, err
	}
	sources := make([]*Constraint, 0, len(cs))
	for _, c := range cs {
		if err := p.checkConstraint(c); err != nil {
			return nil, err
		}
		if c.IsInput() && c.IsSatisfied() {
			sources = append(sources, c)
		}
	}
	return p.MakePlan(sources...)
}

// MakePlan builds a plan starting from the given satisfied source
// constraints. The plan uses stay optimization: it contains only
// constraints whose outputs are not stay.
//
// A constraint joins the plan once all its inputs are known. A variable is
// known if it was marked by a constraint earlier in the plan, if it is stay,
// or if no constraint determines it (such as the past state of a history
// variable).
func (p *Planner) MakePlan(sources ...*Constraint) (*Plan, error) {
	if err := p.checkUsable(); err != nil {
		return nil, err
	}
	for _, c := range sources {
		if err := p.checkConstraint(c); err != nil {
			return nil, err
		}
	}

	mark := p.newMark()
	plan := newPlan(p)
	todo := make([]*Constraint, 0, len(sources))
	for _, c := range sources {
		if c.IsSatisfied() {
			todo = append(todo, c)
		}
	}

	for head := 0; head < len(todo); head++ {
		c := todo[head]
		out := p.output(c)
		if out.mark == mark || out.stay || !p.inputsKnown(c, mark) {
			continue
		}
		plan.append(c)
		out.mark = mark
		todo = p.addConstraintsConsumingTo(out, todo)
	}

	p.monitor.RecordWorklist(len(todo))
	p.monitor.RecordPlan(plan.Len())
	p.logger.Debug("plan extracted",
		slog.Int("sources", len(sources)),
		slog.Int("steps", plan.Len()))
	return plan, nil
}

// PropagateFrom recomputes, by direct execution, every variable downstream
// of v. Use it after changing v's value when the graph itself is unchanged.
func (p *Planner) PropagateFrom(v *Variable) error {
	if err := p.checkUsable(); err != nil {
		return err
	}
	if err := p.checkVariable(v); err != nil {
		return err
	}
	p.monitor.RecordPropagation()

	todo := p.addConstraintsConsumingTo(v, nil)
	for head := 0; head < len(todo); head++ {
		c := todo[head]
		p.execute(c)
		todo = p.addConstraintsConsumingTo(p.output(c), todo)
	}
	p.monitor.RecordWorklist(len(todo))
	return nil
}

// Change sets v to value and re-establishes every constraint that depends
// on it. It adds a preferred edit constraint on v, extracts a plan from it,
// assigns the value and executes the plan ChangeRepetitions times, and then
// destroys the edit constraint.
//
// Constraints retracted by cycles during the change are reported in a
// *CycleError after the change has been applied.
func (p *Planner) Change(v *Variable, value int) error {
	if err := p.checkVariable(v); err != nil {
		return err
	}
	return p.takeRetracted(p.change(v, value))
}

func (p *Planner) change(v *Variable, value int) error {
	edit, err := p.addConstraint(KindEdit, Preferred, v.id, noVariable, noVariable, noVariable)
	if err != nil {
		return err
	}
	plan, err := p.ExtractPlanFromConstraints(edit)
	if err != nil {
		return err
	}

	reps := max(p.config.ChangeRepetitions, 1)
	for range reps {
		v.value = value
		plan.Execute()
	}
	p.monitor.RecordChange()

	return p.destroyConstraint(edit)
}
