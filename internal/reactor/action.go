package reactor

import (
	"sync"
	"time"

	"github.com/roach88/reactorrt/internal/ids"
	"github.com/roach88/reactorrt/internal/ltime"
)

// Action is a trigger that reactions schedule for a future tag, carrying
// a value to that tag. LogicalAction and PhysicalAction are its two
// implementations.
type Action[T any] interface {
	Source[T]
	// MinDelay returns the delay declared at assembly time.
	MinDelay() time.Duration
	// IsPhysical reports whether tags are computed from the wall clock.
	IsPhysical() bool

	store(at ltime.EventTag, v T)
}

// LogicalAction is scheduled by reactions, relative to the current tag.
//
// Only reactions touch a logical action, and assembly never lets two
// reactions that touch the same action run concurrently, so it needs no
// lock.
type LogicalAction[T any] struct {
	m        triggerMeta
	minDelay time.Duration
	values   map[ltime.EventTag]T
}

func (a *LogicalAction[T]) ID() ids.TriggerID       { return a.m.id }
func (a *LogicalAction[T]) Name() string            { return a.m.name }
func (a *LogicalAction[T]) meta() *triggerMeta      { return &a.m }
func (a *LogicalAction[T]) MinDelay() time.Duration { return a.minDelay }
func (a *LogicalAction[T]) IsPhysical() bool        { return false }

func (a *LogicalAction[T]) store(at ltime.EventTag, v T) {
	a.values[at] = v
}

func (a *LogicalAction[T]) read(tag ltime.EventTag) (T, bool) {
	v, ok := a.values[tag]
	return v, ok
}

func (a *LogicalAction[T]) clearAt(tag ltime.EventTag) { delete(a.values, tag) }
func (a *LogicalAction[T]) reset()                     { clear(a.values) }

// PhysicalAction may be scheduled from goroutines outside the scheduler
// through a PhysicalActionRef. Its tag is computed from the wall clock and
// never falls behind the current logical tag.
//
// Thread-safety: the pending values are guarded by a mutex, the only lock
// taken on a trigger.
type PhysicalAction[T any] struct {
	m        triggerMeta
	minDelay time.Duration

	mu     sync.Mutex
	values map[ltime.EventTag]T
}

func (a *PhysicalAction[T]) ID() ids.TriggerID       { return a.m.id }
func (a *PhysicalAction[T]) Name() string            { return a.m.name }
func (a *PhysicalAction[T]) meta() *triggerMeta      { return &a.m }
func (a *PhysicalAction[T]) MinDelay() time.Duration { return a.minDelay }
func (a *PhysicalAction[T]) IsPhysical() bool        { return true }

func (a *PhysicalAction[T]) store(at ltime.EventTag, v T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[at] = v
}

func (a *PhysicalAction[T]) read(tag ltime.EventTag) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.values[tag]
	return v, ok
}

func (a *PhysicalAction[T]) clearAt(tag ltime.EventTag) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.values, tag)
}

func (a *PhysicalAction[T]) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.values)
}

// PhysicalActionRef hands a physical action to code running outside the
// scheduler, such as I/O callbacks. It is safe for concurrent use and may
// outlive the reaction that created it.
type PhysicalActionRef[T any] struct {
	link   *PhysicalSchedulerLink
	action *PhysicalAction[T]
}

// NewPhysicalActionRef binds a physical action to a scheduler link.
func NewPhysicalActionRef[T any](link *PhysicalSchedulerLink, a *PhysicalAction[T]) PhysicalActionRef[T] {
	return PhysicalActionRef[T]{link: link, action: a}
}

// Schedule schedules the action with value v at least off after its
// minimum delay, measured from the wall clock. It returns the assigned
// tag, or an error if the scheduler is not running.
func (r PhysicalActionRef[T]) Schedule(v T, off ltime.Offset) (ltime.EventTag, error) {
	return SchedulePhysical(r.link, r.action, v, off)
}

// Action returns the referenced action.
func (r PhysicalActionRef[T]) Action() *PhysicalAction[T] { return r.action }
