package reactor

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/trace"
)

// Mode selects how logical time relates to the wall clock.
type Mode int

const (
	// ModeRealtime waits until the wall clock reaches a tag's time before
	// processing it.
	ModeRealtime Mode = iota
	// ModeFast processes tags as fast as the queue yields them.
	ModeFast
)

func (m Mode) String() string {
	if m == ModeFast {
		return "fast"
	}
	return "realtime"
}

// ParseMode parses "realtime" or "fast".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "realtime", "real-time", "":
		return ModeRealtime, nil
	case "fast", "as-fast-as-possible", "simulation":
		return ModeFast, nil
	}
	return 0, fmt.Errorf("unknown execution mode %q", s)
}

// DefaultMaxMicrosteps is the default bound on microsteps at one instant.
// Zero disables the quota.
const DefaultMaxMicrosteps = 0

// SchedulerOptions are the execution options of a run.
type SchedulerOptions struct {
	// Mode selects real-time or as-fast-as-possible execution.
	Mode Mode
	// Workers bounds the number of reactions executed concurrently within
	// one level. Values below one mean one.
	Workers int
	// Timeout ends the run at logical time start+Timeout. Zero means no
	// timeout.
	Timeout time.Duration
	// KeepAlive keeps the scheduler waiting for physical actions when the
	// event queue is empty.
	KeepAlive bool
	// MaxMicrosteps bounds the consecutive tags processed at one instant.
	// Zero means no bound.
	MaxMicrosteps int
}

// DefaultOptions returns real-time execution with a single worker.
func DefaultOptions() SchedulerOptions {
	return SchedulerOptions{Mode: ModeRealtime, Workers: 1, MaxMicrosteps: DefaultMaxMicrosteps}
}

// SchedulerOption configures a SyncScheduler.
type SchedulerOption func(*SyncScheduler)

// WithOptions replaces all execution options at once.
func WithOptions(o SchedulerOptions) SchedulerOption {
	return func(s *SyncScheduler) { s.opts = o }
}

// WithMode sets the execution mode.
func WithMode(m Mode) SchedulerOption {
	return func(s *SyncScheduler) { s.opts.Mode = m }
}

// WithWorkers sets the number of workers per level.
func WithWorkers(n int) SchedulerOption {
	return func(s *SyncScheduler) { s.opts.Workers = n }
}

// WithTimeout ends the run at start+d.
func WithTimeout(d time.Duration) SchedulerOption {
	return func(s *SyncScheduler) { s.opts.Timeout = d }
}

// WithKeepAlive keeps the scheduler alive while the queue is empty.
func WithKeepAlive(keep bool) SchedulerOption {
	return func(s *SyncScheduler) { s.opts.KeepAlive = keep }
}

// WithMaxMicrosteps bounds consecutive tags at one instant.
//
// Use WithMaxMicrosteps(1000) to catch zero-delay feedback loops that
// never let time advance.
func WithMaxMicrosteps(n int) SchedulerOption {
	return func(s *SyncScheduler) { s.opts.MaxMicrosteps = n }
}

// WithClock sets the physical clock. Tests pass an ltime.ManualClock.
func WithClock(c ltime.Clock) SchedulerOption {
	return func(s *SyncScheduler) { s.clock = c }
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *SyncScheduler) { s.logger = l }
}

// WithRecorder sets the trace recorder. Default: trace.Discard.
func WithRecorder(r trace.Recorder) SchedulerOption {
	return func(s *SyncScheduler) { s.recorder = r }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) SchedulerOption {
	return func(s *SyncScheduler) { s.metrics = m }
}

// WithTracer enables OpenTelemetry spans, one per tag.
func WithTracer(t oteltrace.Tracer) SchedulerOption {
	return func(s *SyncScheduler) { s.tracer = t }
}
