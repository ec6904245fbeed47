package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reactorrt/internal/config"
	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/programs"
	"github.com/roach88/reactorrt/internal/reactor"
	"github.com/roach88/reactorrt/internal/store"
	"github.com/roach88/reactorrt/internal/testutil"
	"github.com/roach88/reactorrt/internal/trace"
)

// Harness is the test execution engine.
// It runs scenarios in simulation mode on a manual clock with fixed run
// ids, so the same scenario always produces the same trace.
type Harness struct {
	store  *store.Store
	runIDs store.RunIDGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Resolve options and assemble the program
// 3. Run the scheduler, recording the trace
// 4. Store the run and read the trace back
// 5. Evaluate assertions against the stored run
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runIDs: testutil.NewFixedRunID(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.SchedulerOptions()
	if err != nil {
		return nil, err
	}

	entry, _ := programs.Lookup(scenario.Program)
	prog, err := programs.Build(scenario.Program, scenario.Params)
	if err != nil {
		return nil, err
	}

	// A manual clock never advances, so anything that waits on the wall
	// clock needs the system clock.
	var clock ltime.Clock = ltime.NewManualClock(testutil.Epoch)
	if opts.Mode == reactor.ModeRealtime || entry.Physical {
		clock = ltime.NewSystemClock()
	}

	rec := trace.NewMemory()
	sched := reactor.NewSyncScheduler(prog,
		reactor.WithOptions(opts),
		reactor.WithClock(clock),
		reactor.WithRecorder(rec),
		reactor.WithLogger(h.logger),
	)
	res, runErr := sched.Run(ctx)
	if res == nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, runErr)
	}

	events := rec.Events()
	digest, err := trace.Digest(events)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	run := store.Run{
		ID:                h.runIDs.Generate(),
		Program:           scenario.Program,
		Params:            scenario.Params,
		Mode:              opts.Mode.String(),
		Workers:           opts.Workers,
		Timeout:           opts.Timeout,
		Reason:            string(res.Reason),
		FinalElapsed:      res.FinalTag.Since(res.StartTime),
		FinalMicrostep:    uint32(res.FinalTag.Microstep),
		TagsProcessed:     res.TagsProcessed,
		ReactionsExecuted: res.ReactionsExecuted,
		Digest:            digest,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if _, err := h.store.WriteRun(ctx, run, events); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult()
	if result.Run, err = h.store.ReadRun(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	if result.Trace, err = h.store.ReadTrace(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	stored, err := trace.Digest(result.Trace)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	if stored != digest {
		result.AddError(fmt.Sprintf("stored trace digest %s differs from recorded %s", stored, digest))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"program", scenario.Program,
		"reason", run.Reason,
		"pass", result.Pass,
	)

	return result, nil
}

// scenarioConfig validates the scenario options with the config schema.
// Simulation mode is the default so scenarios are reproducible.
func scenarioConfig(scenario *Scenario) (config.Config, error) {
	options := make(map[string]any, len(scenario.Options)+1)
	for k, v := range scenario.Options {
		options[k] = v
	}
	if _, ok := options["mode"]; !ok {
		options["mode"] = "fast"
	}
	data, err := yaml.Marshal(options)
	if err != nil {
		return config.Config{}, fmt.Errorf("scenario %s: options: %w", scenario.Name, err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return config.Config{}, fmt.Errorf("scenario %s: options: %w", scenario.Name, err)
	}
	return cfg, nil
}
