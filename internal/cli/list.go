package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reactorrt/internal/programs"
)

// ProgramInfo describes one registered program.
type ProgramInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Physical    bool           `json:"physical"`
	Defaults    map[string]any `json:"defaults"`
}

// ProgramList is the output of the list command.
type ProgramList struct {
	Programs []ProgramInfo `json:"programs"`
}

// Text renders the list one program per line.
func (l ProgramList) Text() string {
	var b strings.Builder
	for _, p := range l.Programs {
		kind := "logical"
		if p.Physical {
			kind = "physical"
		}
		fmt.Fprintf(&b, "%-10s %-8s %s\n", p.Name, kind, p.Description)
		keys := make([]string, 0, len(p.Defaults))
		for k := range p.Defaults {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%-10s   %s=%v\n", "", k, p.Defaults[k])
		}
	}
	return b.String()
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List built-in programs",
		Long: `List the built-in programs with their parameters and defaults.

Programs marked physical receive events from outside the scheduler, so
their traces depend on the wall clock.

Examples:
  reactorrt list
  reactorrt list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ProgramList{}
			for _, e := range programs.Entries() {
				out.Programs = append(out.Programs, ProgramInfo{
					Name:        e.Name,
					Description: e.Description,
					Physical:    e.Physical,
					Defaults:    e.Defaults,
				})
			}
			return rootOpts.formatter(cmd).Success(out)
		},
	}
}
