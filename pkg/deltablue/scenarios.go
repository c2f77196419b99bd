// Package deltablue provides an incremental constraint planner.
//
// This file contains the two standard DeltaBlue workloads. Both build a
// graph on a fresh planner, drive edits through it, and verify the values
// that come out.
package deltablue

import "fmt"

// ChainTest builds a chain of n required equality constraints with a stay
// constraint on one end, adds a preferred edit constraint on the other end,
// and pushes the values 0..99 through the chain with one extracted plan.
//
// The edit is stronger than the stay, so every value has to travel the full
// length of the chain.
func ChainTest(n int, config *PlannerConfig) error {
	p := NewPlannerWithConfig(config)
	vars := p.NewVariables(n+1, 0)

	for i := 0; i < n; i++ {
		if _, err := p.AddEquality(vars[i], vars[i+1], Required); err != nil {
			return fmt.Errorf("chain: equality %d: %w", i, err)
		}
	}
	if _, err := p.AddStay(vars[n], StrongDefault); err != nil {
		return fmt.Errorf("chain: stay: %w", err)
	}
	edit, err := p.AddEdit(vars[0], Preferred)
	if err != nil {
		return fmt.Errorf("chain: edit: %w", err)
	}

	plan, err := p.ExtractPlanFromConstraints(edit)
	if err != nil {
		return fmt.Errorf("chain: %w", err)
	}
	for i := 0; i < 100; i++ {
		vars[0].value = i
		plan.Execute()
		if vars[n].value != i {
			return fmt.Errorf("%w: chain: %s, want %d", ErrScenarioFailed, vars[n], i)
		}
	}

	return p.DestroyConstraint(edit)
}

// ProjectionTest builds n pairs of variables related by dst = src*scale +
// offset, then changes a variable on either side of the mapping and the
// scale and offset factors, checking the projected values after each change.
func ProjectionTest(n int, config *PlannerConfig) error {
	p := NewPlannerWithConfig(config)
	scale := p.NewVariableWithName("scale", 10)
	offset := p.NewVariableWithName("offset", 1000)

	var src, dst *Variable
	dests := make([]*Variable, 0, n)
	for i := 1; i <= n; i++ {
		src = p.NewVariableWithName(fmt.Sprintf("src%d", i), i)
		dst = p.NewVariableWithName(fmt.Sprintf("dst%d", i), i)
		dests = append(dests, dst)
		if _, err := p.AddStay(src, Default); err != nil {
			return fmt.Errorf("projection: stay %d: %w", i, err)
		}
		if _, err := p.AddScale(src, scale, offset, dst, Required); err != nil {
			return fmt.Errorf("projection: scale %d: %w", i, err)
		}
	}
	if n < 1 {
		return nil
	}

	if err := p.Change(src, 17); err != nil {
		return fmt.Errorf("projection 1: %w", err)
	}
	if dst.value != 1170 {
		return fmt.Errorf("%w: projection 1: %s, want 1170", ErrScenarioFailed, dst)
	}

	if err := p.Change(dst, 1050); err != nil {
		return fmt.Errorf("projection 2: %w", err)
	}
	if src.value != 5 {
		return fmt.Errorf("%w: projection 2: %s, want 5", ErrScenarioFailed, src)
	}

	if err := p.Change(scale, 5); err != nil {
		return fmt.Errorf("projection 3: %w", err)
	}
	for i := 0; i < n-1; i++ {
		if want := (i+1)*5 + 1000; dests[i].value != want {
			return fmt.Errorf("%w: projection 3: %s, want %d", ErrScenarioFailed, dests[i], want)
		}
	}

	if err := p.Change(offset, 2000); err != nil {
		return fmt.Errorf("projection 4: %w", err)
	}
	for i := 0; i < n-1; i++ {
		if want := (i+1)*5 + 2000; dests[i].value != want {
			return fmt.Errorf("%w: projection 4: %s, want %d", ErrScenarioFailed, dests[i], want)
		}
	}
	return nil
}
