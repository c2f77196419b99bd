// Package deltablue provides an incremental constraint planner for
// one-way dataflow constraints.
//
// Version: 0.1.0
//
// A Planner owns variables and constraints. Each constraint has a Strength;
// the planner keeps, incrementally, a solution in which every variable is
// computed by at most one constraint and the strongest constraints win.
// Adding or removing a constraint re-plans only the affected part of the
// graph. Changing an input variable either propagates directly
// (PropagateFrom) or through an extracted Plan that can be replayed.
//
// Basic use:
//
//	p := deltablue.NewPlanner()
//	celsius := p.NewVariableWithName("celsius", 0)
//	fahrenheit := p.NewVariableWithName("fahrenheit", 0)
//	...
//	_, err := p.AddScale(celsius, nine, thirtyTwo, fahrenheit, deltablue.Required)
//	err = p.Change(celsius, 100)
package deltablue

// Version is the current version of the deltablue package.
const Version = "0.1.0"

// VersionInfo provides detailed version information.
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	GitCommit string `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty" yaml:"build_date,omitempty"`
}

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

// GetVersionInfo returns detailed version information.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GoVersion: "1.25+",
	}
}
