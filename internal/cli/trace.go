package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reactorrt/internal/store"
	"github.com/roach88/reactorrt/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - filter to one event kind
	Reaction string // optional - filter to one reaction
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      RunInfo       `json:"run"`
	Timeline []trace.Event `json:"timeline"`
	Stats    TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Tags        int `json:"tags"`
	Reactions   int `json:"reactions"`
	Sets        int `json:"sets"`
	Schedules   int `json:"schedules"`
	// DigestVerified is set when the unfiltered trace matches the stored digest.
	DigestVerified bool `json:"digest_verified"`
}

// Text renders the run header, the timeline and the stats.
func (r TraceResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s, reason=%s, final %s)\n\n", r.Run.ID, r.Run.Program, r.Run.Reason, r.Run.FinalTag)
	b.WriteString(trace.RenderString(r.Timeline))
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Stats: %d events, %d tags, %d reactions, %d sets, %d schedules\n",
		r.Stats.TotalEvents, r.Stats.Tags, r.Stats.Reactions, r.Stats.Sets, r.Stats.Schedules)
	if r.Stats.DigestVerified {
		fmt.Fprintf(&b, "Digest: %s (verified)\n", r.Run.Digest)
	}
	return b.String()
}

var traceKinds = []string{
	string(trace.KindTag), string(trace.KindReaction), string(trace.KindSet),
	string(trace.KindSchedule), string(trace.KindShutdown),
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the trace of a stored run",
		Long: `Show the execution trace of a stored run.

The output includes:
- Timeline: the tags processed, the reactions executed at each tag and
  the ports they set and actions they scheduled
- Stats: event counts, and whether the stored trace still matches the
  digest recorded with the run

Examples:
  reactorrt trace --db ./reactorrt.db --run 0190a6f2-7c3b-7d4e-9a1b-2c3d4e5f6a7b
  reactorrt trace --db ./reactorrt.db --run <id> --kind set
  reactorrt trace --db ./reactorrt.db --run <id> --reaction main/1@B --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind ("+strings.Join(traceKinds, "|")+")")
	cmd.Flags().StringVar(&opts.Reaction, "reaction", "", "filter to events of one reaction label")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.Kind != "" && !slices.Contains(traceKinds, opts.Kind) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q: must be one of %v", opts.Kind, traceKinds))
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		f := opts.formatter(cmd)
		if err := f.Error("E_RUN_NOT_FOUND", fmt.Sprintf("no run with id %q", opts.RunID), nil); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	var events []trace.Event
	if opts.Kind != "" {
		events, err = st.ReadTraceKind(ctx, opts.RunID, trace.Kind(opts.Kind))
	} else {
		events, err = st.ReadTrace(ctx, opts.RunID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	out := TraceResult{Run: newRunInfo(run)}
	if opts.Kind == "" && opts.Reaction == "" {
		digest, err := trace.Digest(events)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to digest trace", err)
		}
		if digest != run.Digest {
			return NewExitError(ExitFailure, fmt.Sprintf("stored trace digest %s does not match run digest %s", digest, run.Digest))
		}
		out.Stats.DigestVerified = true
	}

	out.Timeline = make([]trace.Event, 0, len(events))
	for _, e := range events {
		if opts.Reaction != "" && e.Reaction != opts.Reaction {
			continue
		}
		out.Timeline = append(out.Timeline, e)
	}
	out.Stats.TotalEvents = len(out.Timeline)
	out.Stats.Tags = len(trace.Filter(out.Timeline, trace.KindTag))
	out.Stats.Reactions = len(trace.Filter(out.Timeline, trace.KindReaction))
	out.Stats.Sets = len(trace.Filter(out.Timeline, trace.KindSet))
	out.Stats.Schedules = len(trace.Filter(out.Timeline, trace.KindSchedule))

	return opts.formatter(cmd).SuccessWithRun(run.ID, out)
}

// openExisting opens a database that must already exist, so a typo in
// --db does not create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
