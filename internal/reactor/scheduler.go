package reactor

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/roach88/reactorrt/internal/ids"
	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/trace"
)

// State is the lifecycle state of a scheduler.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateShuttingDown
	StateTimedOut
	StateErrored
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting-down"
	case StateTimedOut:
		return "timed-out"
	case StateErrored:
		return "errored"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Reason tells how a run ended.
type Reason string

const (
	// ReasonExhausted means the event queue ran empty.
	ReasonExhausted Reason = "exhausted"
	// ReasonShutdown means a reaction or the caller requested shutdown.
	ReasonShutdown Reason = "shutdown"
	// ReasonTimeout means the configured timeout was reached.
	ReasonTimeout Reason = "timeout"
	// ReasonError means a runtime error ended the run.
	ReasonError Reason = "error"
)

// RunResult describes a finished run.
type RunResult struct {
	Reason            Reason
	FinalTag          ltime.EventTag
	StartTime         ltime.Instant
	TagsProcessed     int
	ReactionsExecuted int
	Err               error
}

// Elapsed returns the logical time between the start and the final tag.
func (r *RunResult) Elapsed() time.Duration { return r.FinalTag.Since(r.StartTime) }

// SyncScheduler executes a Program.
//
// One owner goroutine, the caller of Run, advances logical time and owns
// the event queue. Reactions of one level may run on up to Workers
// goroutines; the level is joined before the next one starts and before
// time advances. Physical actions enter through the PhysicalSchedulerLink
// from any goroutine.
type SyncScheduler struct {
	prog     *Program
	opts     SchedulerOptions
	clock    ltime.Clock
	logger   *slog.Logger
	recorder trace.Recorder
	metrics  *Metrics
	tracer   oteltrace.Tracer

	queue *eventQueue
	link  *PhysicalSchedulerLink
	quota *microstepQuota
	state atomic.Int32

	// Owner goroutine state.
	start             ltime.Instant
	deadline          ltime.Instant
	hasDeadline       bool
	last              ltime.EventTag
	processed         bool
	present           map[ids.TriggerID]bool
	shutdownRequested bool
	seq               int64
	tags              int
	reactions         int
	started           atomic.Bool
}

// NewSyncScheduler creates a scheduler for prog.
func NewSyncScheduler(prog *Program, opts ...SchedulerOption) *SyncScheduler {
	s := &SyncScheduler{
		prog:     prog,
		opts:     DefaultOptions(),
		clock:    ltime.NewSystemClock(),
		logger:   slog.Default(),
		recorder: trace.Discard,
		queue:    newEventQueue(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.opts.Workers < 1 {
		s.opts.Workers = 1
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("github.com/roach88/reactorrt/internal/reactor")
	}
	s.link = &PhysicalSchedulerLink{s: s}
	s.quota = newMicrostepQuota(s.opts.MaxMicrosteps)
	return s
}

// Link returns the handle through which external goroutines schedule
// physical actions. It may be taken before Run; scheduling only succeeds
// while the run is in progress.
func (s *SyncScheduler) Link() *PhysicalSchedulerLink { return s.link }

// Options returns the effective execution options.
func (s *SyncScheduler) Options() SchedulerOptions { return s.opts }

// State returns the current lifecycle state.
func (s *SyncScheduler) State() State { return State(s.state.Load()) }

func (s *SyncScheduler) setState(st State) { s.state.Store(int32(st)) }

// Run executes the program until the queue is exhausted, a reaction
// requests shutdown, the timeout is reached or a runtime error occurs.
//
// Cancelling ctx shuts the run down gracefully: shutdown reactions still
// run. A context deadline counts as a timeout. The returned error is the
// runtime error of the run, if any, and is also stored in the result.
func (s *SyncScheduler) Run(ctx context.Context) (*RunResult, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, errors.New("scheduler already started")
	}
	if !s.prog.running.CompareAndSwap(false, true) {
		return nil, errProgramBusy
	}
	defer s.prog.running.Store(false)

	s.start = s.clock.Now()
	if s.opts.Timeout > 0 {
		s.deadline = s.start.Add(s.opts.Timeout)
		s.hasDeadline = true
	}
	s.setState(StateRunning)
	s.logger.Info("scheduler starting",
		"program", s.prog.name,
		"mode", s.opts.Mode.String(),
		"workers", s.opts.Workers,
		"timeout", s.opts.Timeout,
		"keepalive", s.opts.KeepAlive)

	s.seed()
	result := s.loop(ctx)
	return result, result.Err
}

// seed opens the queue with the startup tag and the first firing of every
// timer that some reaction depends on.
func (s *SyncScheduler) seed() {
	origin := ltime.Pure(s.start)
	s.queue.open(origin)
	s.queue.push(origin, ids.StartupTrigger)
	for _, t := range s.prog.timers {
		if !s.prog.graph.HasDependents(t.m.id) {
			continue
		}
		at, ok := s.start.CheckedAdd(t.offset)
		if !ok {
			s.logger.Warn("timer offset overflows, timer never fires", "trigger", t.m.label)
			continue
		}
		s.queue.push(ltime.Pure(at), t.m.id)
	}
}

type waitResult int

const (
	waitReached waitResult = iota
	waitInterrupted
	waitCancelled
)

func (s *SyncScheduler) loop(ctx context.Context) *RunResult {
	keepAlive := s.opts.KeepAlive && s.prog.HasPhysicalActions()
	for {
		if err := ctx.Err(); err != nil {
			return s.cancelled(ctx, err)
		}

		next, ok := s.queue.peek()
		switch {
		case !ok && !keepAlive:
			return s.shutdownAfterLast(ctx, ReasonExhausted)

		case !ok:
			if !s.hasDeadline {
				select {
				case <-s.queue.Wait():
				case <-ctx.Done():
				}
				continue
			}
			if s.waitUntil(ctx, s.deadline) == waitReached {
				return s.shutdown(ctx, ltime.Pure(s.deadline), ReasonTimeout)
			}

		case s.hasDeadline && !next.Before(ltime.Pure(s.deadline)):
			if s.opts.Mode == ModeRealtime && s.waitUntil(ctx, s.deadline) != waitReached {
				continue
			}
			return s.shutdown(ctx, ltime.Pure(s.deadline), ReasonTimeout)

		default:
			if s.opts.Mode == ModeRealtime && s.waitUntil(ctx, next.Time) != waitReached {
				continue
			}
			tag, triggers, ok := s.queue.pop()
			if !ok {
				continue
			}
			if err := s.quota.Check(tag); err != nil {
				return s.fail(tag, err)
			}
			if err := s.step(ctx, tag, triggers); err != nil {
				return s.fail(tag, err)
			}
			if s.shutdownRequested {
				stop, err := tag.NextMicrostep()
				if err != nil {
					return s.fail(tag, scheduleError(err, "shutdown"))
				}
				return s.shutdown(ctx, stop, ReasonShutdown)
			}
		}
	}
}

// waitUntil blocks until the physical clock reaches at. New events and
// cancellation interrupt the wait.
func (s *SyncScheduler) waitUntil(ctx context.Context, at ltime.Instant) waitResult {
	for {
		d := at.Sub(s.clock.Now())
		if d <= 0 {
			return waitReached
		}
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-s.queue.Wait():
			timer.Stop()
			return waitInterrupted
		case <-ctx.Done():
			timer.Stop()
			return waitCancelled
		}
	}
}

func (s *SyncScheduler) cancelled(ctx context.Context, err error) *RunResult {
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Info("scheduler stopping: context deadline exceeded")
		return s.shutdownAfterLast(ctx, ReasonTimeout)
	}
	s.logger.Info("scheduler stopping: context cancelled")
	return s.shutdownAfterLast(ctx, ReasonShutdown)
}

// afterLast returns the first tag after the last processed one, or the
// start tag if nothing was processed yet.
func (s *SyncScheduler) afterLast() (ltime.EventTag, error) {
	if !s.processed {
		return ltime.Pure(s.start), nil
	}
	return s.last.NextMicrostep()
}

func (s *SyncScheduler) shutdownAfterLast(ctx context.Context, reason Reason) *RunResult {
	stop, err := s.afterLast()
	if err != nil {
		return s.fail(s.last, scheduleError(err, "shutdown"))
	}
	return s.shutdown(ctx, stop, reason)
}

// shutdown processes the final tag stop, at which the shutdown trigger is
// present along with any events already queued for exactly stop.
func (s *SyncScheduler) shutdown(ctx context.Context, stop ltime.EventTag, reason Reason) *RunResult {
	if s.processed && !stop.After(s.last) {
		next, err := s.last.NextMicrostep()
		if err != nil {
			return s.fail(s.last, scheduleError(err, "shutdown"))
		}
		stop = next
	}
	if reason == ReasonTimeout {
		s.setState(StateTimedOut)
	} else {
		s.setState(StateShuttingDown)
	}

	triggers := append(s.queue.takeAt(stop), ids.ShutdownTrigger)
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	if err := s.step(context.WithoutCancel(ctx), stop, triggers); err != nil {
		return s.fail(stop, err)
	}
	return s.finish(stop, reason, nil)
}

func (s *SyncScheduler) fail(tag ltime.EventTag, err error) *RunResult {
	s.setState(StateErrored)
	var re *RuntimeError
	if errors.As(err, &re) {
		s.metrics.recordFailure(s.prog.name, re.Code)
	}
	s.logger.Error("run failed", "tag", tag.Format(s.start), "error", err)
	return s.finish(tag, ReasonError, err)
}

func (s *SyncScheduler) finish(final ltime.EventTag, reason Reason, err error) *RunResult {
	s.emit(trace.Event{Kind: trace.KindShutdown, At: trace.StampOf(final, s.start), Reason: string(reason)})
	s.queue.close()
	s.prog.resetValues()
	s.setState(StateTerminated)
	s.metrics.recordRun(s.prog.name, reason)
	s.logger.Info("scheduler stopped",
		"reason", string(reason),
		"final_tag", final.Format(s.start),
		"tags", s.tags,
		"reactions", s.reactions)
	return &RunResult{
		Reason:            reason,
		FinalTag:          final,
		StartTime:         s.start,
		TagsProcessed:     s.tags,
		ReactionsExecuted: s.reactions,
		Err:               err,
	}
}

func (s *SyncScheduler) emit(e trace.Event) {
	e.Seq = s.seq
	s.seq++
	s.recorder.Record(e)
}
