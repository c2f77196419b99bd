package deltablue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildChain(t *testing.T, n int) (*Planner, []*Variable, *Constraint) {
	t.Helper()
	p := NewPlanner()
	vars := p.NewVariables(n+1, 0)
	for i := 0; i < n; i++ {
		_, err := p.AddEquality(vars[i], vars[i+1], Required)
		require.NoError(t, err)
	}
	_, err := p.AddStay(vars[n], StrongDefault)
	require.NoError(t, err)
	edit, err := p.AddEdit(vars[0], Preferred)
	require.NoError(t, err)
	return p, vars, edit
}

func TestPlan_ExecuteIsIdempotent(t *testing.T) {
	p, vars, edit := buildChain(t, 4)

	plan, err := p.ExtractPlanFromConstraints(edit)
	require.NoError(t, err)

	vars[0].SetValue(42)
	plan.Execute()
	first := make([]int, len(vars))
	for i, v := range vars {
		first[i] = v.Value()
	}

	plan.Execute()
	for i, v := range vars {
		assert.Equal(t, first[i], v.Value(), "%s changed on second execution", v.Name())
	}
}

func TestPlan_ExtractTwiceGivesSameSteps(t *testing.T) {
	p, _, edit := buildChain(t, 3)

	a, err := p.ExtractPlanFromConstraints(edit)
	require.NoError(t, err)
	b, err := p.ExtractPlanFromConstraints(edit)
	require.NoError(t, err)

	assert.Equal(t, a.Constraints(), b.Constraints())
	assert.Equal(t, a.String(), b.String())
}

func TestPlan_StartsWithSourceAndFollowsFlow(t *testing.T) {
	p, vars, edit := buildChain(t, 2)

	plan, err := p.ExtractPlanFromConstraints(edit)
	require.NoError(t, err)
	steps := plan.Constraints()
	require.Len(t, steps, 3)
	assert.Same(t, edit, steps[0])

	for i, c := range steps[1:] {
		out, ok := p.Output(c)
		require.True(t, ok)
		assert.Same(t, vars[i+1], out)
	}
	assert.Equal(t,
		"Plan[Edit#3(v0, preferred) -> Equality#0(v0, v1, required, forward) -> Equality#1(v1, v2, required, forward)]",
		plan.String())
}

func TestPlan_ConstraintsIsACopy(t *testing.T) {
	p, _, edit := buildChain(t, 2)
	plan, err := p.ExtractPlanFromConstraints(edit)
	require.NoError(t, err)

	steps := plan.Constraints()
	steps[0] = nil
	assert.Same(t, edit, plan.Constraints()[0])
}

func TestExtractPlan_IgnoresNonInputConstraints(t *testing.T) {
	p := NewPlanner()
	a, b := p.NewVariable(0), p.NewVariable(0)
	stay, err := p.AddStay(a, Default)
	require.NoError(t, err)
	eq, err := p.AddEquality(a, b, Required)
	require.NoError(t, err)

	plan, err := p.ExtractPlanFromConstraints(stay, eq)
	require.NoError(t, err)
	assert.Equal(t, 0, plan.Len())
}

func TestMakePlan_SkipsStayOutputs(t *testing.T) {
	p := NewPlanner()
	a, b := p.NewVariable(2), p.NewVariable(0)
	stay, err := p.AddStay(a, Default)
	require.NoError(t, err)
	_, err = p.AddEquality(a, b, Required)
	require.NoError(t, err)

	// A stay source yields stay outputs throughout: nothing to recompute.
	plan, err := p.MakePlan(stay)
	require.NoError(t, err)
	assert.Equal(t, 0, plan.Len())
	assert.Equal(t, 2, b.Value())
}

func TestMakePlan_WaitsForAllScaleInputs(t *testing.T) {
	p := NewPlanner()
	src := p.NewVariableWithName("src", 1)
	scale := p.NewVariableWithName("scale", 2)
	offset := p.NewVariableWithName("offset", 0)
	dst := p.NewVariableWithName("dst", 0)
	_, err := p.AddStay(offset, Default)
	require.NoError(t, err)
	_, err = p.AddScale(src, scale, offset, dst, Required)
	require.NoError(t, err)

	srcEdit, err := p.AddEdit(src, Preferred)
	require.NoError(t, err)
	scaleEdit, err := p.AddEdit(scale, Preferred)
	require.NoError(t, err)

	plan, err := p.ExtractPlanFromConstraints(srcEdit, scaleEdit)
	require.NoError(t, err)
	require.Equal(t, 3, plan.Len())

	src.SetValue(4)
	scale.SetValue(3)
	plan.Execute()
	assert.Equal(t, 12, dst.Value())
}

func TestMakePlan_RejectsDestroyedSource(t *testing.T) {
	p, _, edit := buildChain(t, 1)
	require.NoError(t, p.DestroyConstraint(edit))

	_, err := p.MakePlan(edit)
	assert.ErrorIs(t, err, ErrUnknownConstraint)
}
