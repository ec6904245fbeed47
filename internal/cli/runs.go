package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reactorrt/internal/store"
	"github.com/roach88/reactorrt/internal/trace"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Program  string
}

// RunInfo is one stored run as listed by the runs command.
type RunInfo struct {
	ID                string         `json:"id"`
	Seq               int64          `json:"seq"`
	Program           string         `json:"program"`
	Params            map[string]any `json:"params,omitempty"`
	Mode              string         `json:"mode"`
	Workers           int            `json:"workers"`
	Reason            string         `json:"reason"`
	FinalTag          string         `json:"final_tag"`
	TagsProcessed     int            `json:"tags_processed"`
	ReactionsExecuted int            `json:"reactions_executed"`
	Digest            string         `json:"digest"`
	Error             string         `json:"error,omitempty"`
}

// RunList is the output of the runs command.
type RunList struct {
	Runs []RunInfo `json:"runs"`
}

// Text renders one run per line.
func (l RunList) Text() string {
	if len(l.Runs) == 0 {
		return "No runs stored.\n"
	}
	var b strings.Builder
	for _, r := range l.Runs {
		fmt.Fprintf(&b, "%-4d %s %-9s %-9s %-16s %s\n", r.Seq, r.ID, r.Program, r.Reason, r.FinalTag, shortDigest(r.Digest))
	}
	return b.String()
}

func newRunInfo(r store.Run) RunInfo {
	return RunInfo{
		ID:                r.ID,
		Seq:               r.Seq,
		Program:           r.Program,
		Params:            r.Params,
		Mode:              r.Mode,
		Workers:           r.Workers,
		Reason:            r.Reason,
		FinalTag:          trace.Stamp{Elapsed: r.FinalElapsed, Microstep: r.FinalMicrostep}.String(),
		TagsProcessed:     r.TagsProcessed,
		ReactionsExecuted: r.ReactionsExecuted,
		Digest:            r.Digest,
		Error:             r.Error,
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Long: `List the runs stored by "reactorrt run --db", oldest first.

Examples:
  reactorrt runs --db ./reactorrt.db
  reactorrt runs --db ./reactorrt.db --program diamond --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Program, "program", "", "only list runs of this program")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if opts.Program != "" {
		runs, err = st.ListRunsForProgram(ctx, opts.Program)
	} else {
		runs, err = st.ListRuns(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	out := RunList{Runs: make([]RunInfo, 0, len(runs))}
	for _, r := range runs {
		out.Runs = append(out.Runs, newRunInfo(r))
	}
	return opts.formatter(cmd).Success(out)
}
