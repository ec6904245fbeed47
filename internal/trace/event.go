package trace

import (
	"fmt"
	"sync"
	"time"

	"github.com/roach88/reactorrt/internal/ltime"
)

// Kind identifies the type of a trace event.
type Kind string

const (
	// KindTag opens a tag and lists the triggers present at it.
	KindTag Kind = "tag"
	// KindReaction records the execution of a reaction.
	KindReaction Kind = "reaction"
	// KindSet records a port write.
	KindSet Kind = "set"
	// KindSchedule records an action being scheduled.
	KindSchedule Kind = "schedule"
	// KindShutdown records the final tag and why the run ended.
	KindShutdown Kind = "shutdown"
)

// Stamp is a tag relative to the start of a run.
type Stamp struct {
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
	Microstep uint32        `json:"microstep" yaml:"microstep"`
}

// StampOf converts a tag into a stamp relative to origin.
func StampOf(tag ltime.EventTag, origin ltime.Instant) Stamp {
	return Stamp{Elapsed: tag.Since(origin), Microstep: uint32(tag.Microstep)}
}

// String renders the stamp as "(T0 + 5ms, 1)".
func (s Stamp) String() string {
	return fmt.Sprintf("(T0 + %s, %d)", s.Elapsed, s.Microstep)
}

// Before orders stamps like tags.
func (s Stamp) Before(o Stamp) bool {
	if s.Elapsed != o.Elapsed {
		return s.Elapsed < o.Elapsed
	}
	return s.Microstep < o.Microstep
}

// Event is one entry of a trace.
type Event struct {
	// Seq numbers events from zero in emission order.
	Seq int64 `json:"seq"`
	// Kind is the event type.
	Kind Kind `json:"kind"`
	// At is the tag at which the event happened.
	At Stamp `json:"at"`
	// Reaction is the reaction label for reaction, set and schedule events.
	Reaction string `json:"reaction,omitempty"`
	// Trigger is the port or action label for set and schedule events.
	Trigger string `json:"trigger,omitempty"`
	// Triggers lists the triggers present at a tag event.
	Triggers []string `json:"triggers,omitempty"`
	// Value is the value written or scheduled.
	Value any `json:"value,omitempty"`
	// Target is the tag an action was scheduled for.
	Target *Stamp `json:"target,omitempty"`
	// Reason is the termination reason of a shutdown event.
	Reason string `json:"reason,omitempty"`
}

// Recorder receives trace events. The scheduler calls Record from its
// owner goroutine only, in trace order.
type Recorder interface {
	Record(Event)
}

// Memory is a Recorder that keeps all events in memory.
//
// Thread-safety: safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory creates an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends an event.
func (m *Memory) Record(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Events returns a copy of the recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Len returns the number of recorded events.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Discard is a Recorder that drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(Event) {}

// Filter returns the events of the given kind.
func Filter(events []Event, kind Kind) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
