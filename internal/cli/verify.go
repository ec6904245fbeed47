package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/programs"
	"github.com/roach88/reactorrt/internal/reactor"
	"github.com/roach88/reactorrt/internal/testutil"
	"github.com/roach88/reactorrt/internal/trace"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Params  []string
	Workers int
	Repeat  int
}

// VerifyRun is one execution of a verify check.
type VerifyRun struct {
	Workers int    `json:"workers"`
	Reason  string `json:"reason"`
	Events  int    `json:"events"`
	Digest  string `json:"digest"`
}

// VerifyResult is the output of the verify command.
type VerifyResult struct {
	Program       string      `json:"program"`
	Deterministic bool        `json:"deterministic"`
	Runs          []VerifyRun `json:"runs"`
	Diff          string      `json:"diff,omitempty"`
}

// Text renders one line per run and the verdict.
func (v VerifyResult) Text() string {
	var b strings.Builder
	for _, r := range v.Runs {
		fmt.Fprintf(&b, "workers=%-3d reason=%-9s events=%-5d digest=%s\n", r.Workers, r.Reason, r.Events, r.Digest)
	}
	if v.Deterministic {
		fmt.Fprintf(&b, "✓ %s is deterministic\n", v.Program)
	} else {
		fmt.Fprintf(&b, "✗ %s traces differ\n%s", v.Program, v.Diff)
	}
	return b.String()
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <program>",
		Short: "Check that a program's trace does not depend on the worker count",
		Long: `Run a program in fast mode on a manual clock, once with a single worker
and then with --workers workers, and compare the trace digests.

Programs with physical actions are rejected: their tags come from the
wall clock.

Exit codes:
  0 - All digests are equal
  1 - Traces differ
  2 - Command error (unknown program, physical program, etc.)

Examples:
  reactorrt verify diamond --workers 8
  reactorrt verify bank --param width=16 --workers 4 --repeat 5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "program parameter key=value (repeatable)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "worker count compared against the single-worker run")
	cmd.Flags().IntVar(&opts.Repeat, "repeat", 1, "number of multi-worker runs")

	return cmd
}

func runVerify(opts *VerifyOptions, name string, cmd *cobra.Command) error {
	entry, ok := programs.Lookup(name)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown program %q", name))
	}
	if entry.Physical {
		return NewExitError(ExitCommandError, fmt.Sprintf("program %q has physical actions and is not reproducible", name))
	}
	if opts.Workers < 1 || opts.Repeat < 1 {
		return NewExitError(ExitCommandError, "--workers and --repeat must be at least 1")
	}
	params, err := parseParams(nil, opts.Params)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid parameters", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	workers := []int{1}
	for range opts.Repeat {
		workers = append(workers, opts.Workers)
	}

	out := VerifyResult{Program: name, Deterministic: true}
	var baseline []trace.Event
	for _, w := range workers {
		events, res, err := simulate(ctx, name, params, w)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to run program", err)
		}
		digest, err := trace.Digest(events)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to digest trace", err)
		}
		out.Runs = append(out.Runs, VerifyRun{Workers: w, Reason: string(res.Reason), Events: len(events), Digest: digest})
		opts.formatter(cmd).VerboseLog("workers=%d digest=%s", w, digest)

		if baseline == nil {
			baseline = events
			continue
		}
		if digest != out.Runs[0].Digest && out.Deterministic {
			out.Deterministic = false
			out.Diff = cmp.Diff(renderLines(baseline), renderLines(events))
		}
	}

	f := opts.formatter(cmd)
	if !out.Deterministic {
		if err := f.Error("E_NOT_DETERMINISTIC", "trace digests differ", out); err != nil {
			return err
		}
		if opts.Format != "json" {
			fmt.Fprint(f.Writer, out.Text())
		}
		return NewExitError(ExitFailure, "trace digests differ")
	}
	return f.Success(out)
}

// simulate runs a freshly built program in fast mode on a manual clock.
func simulate(ctx context.Context, name string, params programs.Params, workers int) ([]trace.Event, *reactor.RunResult, error) {
	prog, err := programs.Build(name, params)
	if err != nil {
		return nil, nil, err
	}
	rec := trace.NewMemory()
	res, err := reactor.NewSyncScheduler(prog,
		reactor.WithMode(reactor.ModeFast),
		reactor.WithWorkers(workers),
		reactor.WithClock(ltime.NewManualClock(testutil.Epoch)),
		reactor.WithRecorder(rec),
		reactor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	).Run(ctx)
	if res == nil {
		return nil, nil, err
	}
	// A reaction error is part of the trace, so it is compared too.
	return rec.Events(), res, nil
}

func renderLines(events []trace.Event) []string {
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = trace.FormatEvent(e)
	}
	return lines
}
