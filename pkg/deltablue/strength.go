// Package deltablue provides an incremental constraint planner.
// This file defines constraint strengths, the priority levels that decide
// which constraint wins when several could determine the same variable.
package deltablue

import "fmt"

// Strength is the priority of a constraint. Strengths are totally ordered;
// a lower rank is stronger. The zero value is AbsoluteStrongest.
//
// Strengths are plain values, so two strengths with the same rank are the
// same strength and may be compared with ==.
type Strength uint8

// Strength levels, strongest first.
const (
	AbsoluteStrongest Strength = iota
	Required
	StrongPreferred
	Preferred
	StrongDefault
	Default
	WeakDefault
	AbsoluteWeakest
)

type strengthEntry struct {
	name       string
	arithmetic int
}

// strengthTable is indexed by rank and never modified after init.
var strengthTable = [...]strengthEntry{
	AbsoluteStrongest: {"absolute_strongest", -10000},
	Required:          {"required", -800},
	StrongPreferred:   {"strong_preferred", -600},
	Preferred:         {"preferred", -400},
	StrongDefault:     {"strong_default", -200},
	Default:           {"default", 0},
	WeakDefault:       {"weak_default", 500},
	AbsoluteWeakest:   {"absolute_weakest", 10000},
}

var strengthByName = func() map[string]Strength {
	m := make(map[string]Strength, len(strengthTable))
	for i, e := range strengthTable {
		m[e.name] = Strength(i)
	}
	return m
}()

// Strengths returns every strength, strongest first.
func Strengths() []Strength {
	out := make([]Strength, len(strengthTable))
	for i := range strengthTable {
		out[i] = Strength(i)
	}
	return out
}

// ParseStrength looks a strength up by its symbolic name (for example
// "strong_default").
func ParseStrength(name string) (Strength, error) {
	s, ok := strengthByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown name %q", ErrInvalidStrength, name)
	}
	return s, nil
}

// Valid reports whether s is one of the defined strength levels.
func (s Strength) Valid() bool {
	return int(s) < len(strengthTable)
}

// Stronger reports whether s is strictly stronger than o.
func (s Strength) Stronger(o Strength) bool {
	return s < o
}

// Weaker reports whether s is strictly weaker than o.
func (s Strength) Weaker(o Strength) bool {
	return s > o
}

// SameAs reports whether s and o are the same level.
func (s Strength) SameAs(o Strength) bool {
	return s == o
}

// Strongest returns the stronger of s and o.
func (s Strength) Strongest(o Strength) Strength {
	if o.Stronger(s) {
		return o
	}
	return s
}

// Weakest returns the weaker of s and o.
func (s Strength) Weakest(o Strength) Strength {
	if o.Weaker(s) {
		return o
	}
	return s
}

// ArithmeticValue returns the numeric weight historically attached to the
// level. It orders strengths the same way ranks do.
func (s Strength) ArithmeticValue() int {
	if !s.Valid() {
		return 0
	}
	return strengthTable[s].arithmetic
}

// String returns the symbolic name of the strength.
func (s Strength) String() string {
	if !s.Valid() {
		return fmt.Sprintf("strength(%d)", uint8(s))
	}
	return strengthTable[s].name
}
