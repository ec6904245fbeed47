// Package programs holds the built-in reactor programs.
//
// Each program is a main reactor registered under a name with its
// parameters and their defaults. They stand in for the output of a code
// generator and are what the CLI and the scenario harness run:
//
//	prog, err := programs.Build("pingpong", programs.Params{"count": 10})
package programs
