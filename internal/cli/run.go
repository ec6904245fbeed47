package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/reactorrt/internal/config"
	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/programs"
	"github.com/roach88/reactorrt/internal/reactor"
	"github.com/roach88/reactorrt/internal/store"
	"github.com/roach88/reactorrt/internal/telemetry"
	"github.com/roach88/reactorrt/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config        string
	Database      string
	Params        []string
	Mode          string
	Workers       int
	Timeout       string
	KeepAlive     bool
	MaxMicrosteps int
	MetricsAddr   string
	PrintTrace    bool

	// Environ overrides the environment read for REACTORRT_* variables
	// (for testing). If nil, the process environment is used.
	Environ map[string]string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs store.RunIDGenerator

	// Clock allows overriding the physical clock (for testing).
	Clock ltime.Clock
}

// RunSummary is the output of the run command.
type RunSummary struct {
	RunID             string `json:"run_id,omitempty"`
	Program           string `json:"program"`
	Mode              string `json:"mode"`
	Workers           int    `json:"workers"`
	Reason            string `json:"reason"`
	FinalTag          string `json:"final_tag"`
	TagsProcessed     int    `json:"tags_processed"`
	ReactionsExecuted int    `json:"reactions_executed"`
	Digest            string `json:"digest"`
	Error             string `json:"error,omitempty"`
	Trace             string `json:"trace,omitempty"`
}

// Text renders the summary, preceded by the trace when it was requested.
func (s RunSummary) Text() string {
	var b strings.Builder
	b.WriteString(s.Trace)
	fmt.Fprintf(&b, "program:   %s (%s, %d workers)\n", s.Program, s.Mode, s.Workers)
	fmt.Fprintf(&b, "reason:    %s\n", s.Reason)
	fmt.Fprintf(&b, "final tag: %s\n", s.FinalTag)
	fmt.Fprintf(&b, "tags:      %d\n", s.TagsProcessed)
	fmt.Fprintf(&b, "reactions: %d\n", s.ReactionsExecuted)
	fmt.Fprintf(&b, "digest:    %s\n", s.Digest)
	if s.RunID != "" {
		fmt.Fprintf(&b, "run id:    %s\n", s.RunID)
	}
	if s.Error != "" {
		fmt.Fprintf(&b, "error:     %s\n", s.Error)
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

// newRunCommand builds the run command around opts, so tests can set the
// override fields.
func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Run a program",
		Long: `Assemble a built-in program and run it until it shuts down.

Options come from, in increasing precedence: the config file (--config,
.cue or .yaml), REACTORRT_* environment variables, and command flags.
With --db the run and its trace are stored for the runs and trace
commands. Interrupting the process runs shutdown reactions before exit.

Example:
  reactorrt run delay --mode fast --print-trace
  reactorrt run timer --param count=10 --param "period=50 msec"
  reactorrt run diamond --config run.cue --db ./reactorrt.db --workers 4
  reactorrt run sensor --keepalive --timeout "2 sec" --metrics-addr :9090`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to a .cue or .yaml config file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to store the run")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "program parameter key=value (repeatable)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "execution mode (realtime|fast)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "reactions executed concurrently within a level")
	cmd.Flags().StringVar(&opts.Timeout, "timeout", "", `logical timeout, e.g. "2 sec" or 500ms`)
	cmd.Flags().BoolVar(&opts.KeepAlive, "keepalive", false, "wait for physical events when the queue is empty")
	cmd.Flags().IntVar(&opts.MaxMicrosteps, "max-microsteps", 0, "bound on microsteps at one instant (0 disables)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	cmd.Flags().BoolVar(&opts.PrintTrace, "print-trace", false, "print the execution trace")

	return cmd
}

// resolveConfig layers the config file, the environment and changed flags.
func resolveConfig(opts *RunOptions, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	environ := opts.Environ
	if environ == nil {
		environ = processEnviron()
	}
	cfg, err := config.ApplyEnv(cfg, environ)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Mode = opts.Mode
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.Timeout
	}
	if flags.Changed("keepalive") {
		cfg.KeepAlive = opts.KeepAlive
	}
	if flags.Changed("max-microsteps") {
		cfg.MaxMicrosteps = opts.MaxMicrosteps
	}
	if flags.Changed("db") {
		cfg.DB = opts.Database
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func processEnviron() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

func runProgram(opts *RunOptions, name string, cmd *cobra.Command) error {
	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	schedOpts, err := cfg.SchedulerOptions()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	params, err := parseParams(cfg.Params, opts.Params)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid parameters", err)
	}

	slog.Info("assembling program", "program", name)
	prog, err := programs.Build(name, params)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to assemble program", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "reactorrt")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Error("error flushing spans", "error", err)
		}
	}()

	rec := trace.NewMemory()
	schedulerOpts := []reactor.SchedulerOption{
		reactor.WithOptions(schedOpts),
		reactor.WithLogger(slog.Default()),
		reactor.WithRecorder(rec),
		reactor.WithTracer(telemetry.Tracer()),
	}
	if opts.Clock != nil {
		schedulerOpts = append(schedulerOpts, reactor.WithClock(opts.Clock))
	}
	if opts.MetricsAddr != "" {
		reg := newMetricsRegistry()
		metrics, err := reactor.NewMetrics(reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to register metrics", err)
		}
		srv, err := startMetricsServer(opts.MetricsAddr, reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start metrics server", err)
		}
		defer func() {
			if err := srv.Stop(); err != nil {
				slog.Error("error stopping metrics server", "error", err)
			}
		}()
		schedulerOpts = append(schedulerOpts, reactor.WithMetrics(metrics))
	}

	res, runErr := reactor.NewSyncScheduler(prog, schedulerOpts...).Run(ctx)
	if res == nil {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}

	events := rec.Events()
	digest, err := trace.Digest(events)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to digest trace", err)
	}

	summary := RunSummary{
		Program:           name,
		Mode:              schedOpts.Mode.String(),
		Workers:           schedOpts.Workers,
		Reason:            string(res.Reason),
		FinalTag:          res.FinalTag.Format(res.StartTime),
		TagsProcessed:     res.TagsProcessed,
		ReactionsExecuted: res.ReactionsExecuted,
		Digest:            digest,
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	if opts.PrintTrace {
		summary.Trace = trace.RenderString(events)
	}

	if cfg.DB != "" {
		runIDs := opts.RunIDs
		if runIDs == nil {
			runIDs = store.UUIDv7Generator{}
		}
		summary.RunID = runIDs.Generate()
		run := store.Run{
			ID:                summary.RunID,
			Program:           name,
			Params:            params,
			Mode:              summary.Mode,
			Workers:           schedOpts.Workers,
			Timeout:           schedOpts.Timeout,
			Reason:            summary.Reason,
			FinalElapsed:      res.Elapsed(),
			FinalMicrostep:    uint32(res.FinalTag.Microstep),
			TagsProcessed:     res.TagsProcessed,
			ReactionsExecuted: res.ReactionsExecuted,
			Error:             summary.Error,
			Digest:            digest,
		}
		if err := saveRun(ctx, cfg.DB, run, events); err != nil {
			return WrapExitError(ExitCommandError, "failed to store run", err)
		}
	}

	f := opts.formatter(cmd)
	if runErr != nil {
		if err := f.Error("E_RUN_FAILED", runErr.Error(), summary); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	return f.SuccessWithRun(summary.RunID, summary)
}

func saveRun(ctx context.Context, path string, run store.Run, events []trace.Event) error {
	slog.Info("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// Interrupted runs are still stored.
	if _, err := st.WriteRun(context.WithoutCancel(ctx), run, events); err != nil {
		return err
	}
	slog.Info("run stored", "run_id", run.ID, "events", len(events))
	return nil
}
