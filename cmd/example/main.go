// Package main walks through the deltablue planner API: building a graph,
// editing variables from either end, reusing plans, and what happens on
// cycles and unsatisfiable required constraints.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gitrdm/deltablue/pkg/deltablue"
)

func main() {
	fmt.Println("=== DeltaBlue Planner Examples ===")
	fmt.Println()

	unitConversion()
	reusablePlan()
	cycles()
	requiredConflict()
	statistics()
}

// unitConversion keeps meters and centimeters in sync in both directions.
func unitConversion() {
	fmt.Println("1. Unit Conversion:")

	p := deltablue.NewPlanner()
	meters := p.NewVariableWithName("meters", 0)
	centimeters := p.NewVariableWithName("centimeters", 0)
	factor := p.NewVariableWithName("factor", 100)
	zero := p.NewVariableWithName("zero", 0)

	must(p.AddStay(meters, deltablue.Default))
	must(p.AddScale(meters, factor, zero, centimeters, deltablue.Required))

	check(p.Change(meters, 12))
	fmt.Printf("   set meters      => %v, %v\n", meters, centimeters)

	check(p.Change(centimeters, 700))
	fmt.Printf("   set centimeters => %v, %v\n", meters, centimeters)
	fmt.Println()
}

// reusablePlan extracts a plan once and replays it for a stream of inputs.
func reusablePlan() {
	fmt.Println("2. Reusable Plan:")

	p := deltablue.NewPlanner()
	vars := p.NewVariables(5, 0)
	for i := 0; i < 4; i++ {
		must(p.AddEquality(vars[i], vars[i+1], deltablue.Required))
	}
	must(p.AddStay(vars[4], deltablue.StrongDefault))
	edit := must(p.AddEdit(vars[0], deltablue.Preferred))

	plan, err := p.ExtractPlanFromConstraints(edit)
	check(err)
	fmt.Printf("   %v\n", plan)

	for _, v := range []int{3, 14, 15} {
		vars[0].SetValue(v)
		plan.Execute()
		fmt.Printf("   input %2d => %v\n", v, vars[4])
	}
	check(p.DestroyConstraint(edit))
	fmt.Println()
}

// cycles shows that a constraint closing a dataflow loop is retracted.
func cycles() {
	fmt.Println("3. Cycle Detection:")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	p := deltablue.NewPlannerWithConfig(&deltablue.PlannerConfig{
		ChangeRepetitions: deltablue.DefaultChangeRepetitions,
		Logger:            logger,
	})
	a, b, c := p.NewVariableWithName("a", 1), p.NewVariableWithName("b", 0), p.NewVariableWithName("c", 0)
	must(p.AddEquality(a, b, deltablue.Required))
	must(p.AddEquality(b, c, deltablue.Required))

	_, err := p.AddEquality(c, a, deltablue.Default)
	fmt.Printf("   closing the loop: cycle=%v\n", errors.Is(err, deltablue.ErrCycle))
	fmt.Printf("   graph valid: %v\n", p.Validate() == nil)
	fmt.Println()
}

// requiredConflict shows a required constraint that cannot be satisfied.
func requiredConflict() {
	fmt.Println("4. Required Conflict:")

	p := deltablue.NewPlanner()
	x, y := p.NewVariableWithName("x", 1), p.NewVariableWithName("y", 2)
	must(p.AddStay(x, deltablue.Required))
	must(p.AddStay(y, deltablue.Required))

	_, err := p.AddEquality(x, y, deltablue.Required)
	fmt.Printf("   x = y: %v\n", err)
	fmt.Printf("   still usable: %v\n", p.Err() == nil)
	fmt.Println()
}

// statistics runs the standard workloads under a monitor.
func statistics() {
	fmt.Println("5. Statistics:")

	monitor := deltablue.NewPlannerMonitor()
	config := deltablue.DefaultPlannerConfig()
	config.Monitor = monitor

	check(deltablue.ChainTest(100, config))
	check(deltablue.ProjectionTest(100, config))
	fmt.Println(monitor.GetStats())
}

func must(c *deltablue.Constraint, err error) *deltablue.Constraint {
	check(err)
	return c
}

func check(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
