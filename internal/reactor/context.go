package reactor

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/roach88/reactorrt/internal/depgraph"
	"github.com/roach88/reactorrt/internal/ids"
	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/trace"
)

// ReactionCtx is handed to exactly one reaction invocation. It is the only
// way a reaction reads ports and actions, writes ports, schedules actions
// and requests shutdown.
//
// Every access is checked against the dependencies the reaction declared
// at assembly. An undeclared access panics with a CONTRACT_VIOLATION
// RuntimeError, which ends the run. The context and all views obtained
// from it are revoked when the reaction returns.
type ReactionCtx struct {
	sched   *SyncScheduler
	entry   *reactionEntry
	tag     ltime.EventTag
	revoked atomic.Bool

	written   []portSlot
	seen      map[ids.TriggerID]bool
	scheduled []scheduledEvent
	events    []trace.Event
	shutdown  bool
	err       error
}

type scheduledEvent struct {
	tag     ltime.EventTag
	trigger ids.TriggerID
}

func newReactionCtx(s *SyncScheduler, e *reactionEntry, tag ltime.EventTag) *ReactionCtx {
	return &ReactionCtx{sched: s, entry: e, tag: tag}
}

// Tag returns the current tag.
func (rc *ReactionCtx) Tag() ltime.EventTag { return rc.tag }

// StartTime returns the instant at which the run started.
func (rc *ReactionCtx) StartTime() ltime.Instant { return rc.sched.start }

// Elapsed returns the logical time elapsed since the start of the run.
func (rc *ReactionCtx) Elapsed() time.Duration { return rc.tag.Since(rc.sched.start) }

// PhysicalTime reads the scheduler's physical clock.
func (rc *ReactionCtx) PhysicalTime() ltime.Instant { return rc.sched.clock.Now() }

// Reaction returns the label of the running reaction.
func (rc *ReactionCtx) Reaction() string { return rc.entry.label }

// RequestShutdown asks the scheduler to stop. The current tag completes,
// shutdown reactions run at the next microstep, then the run ends.
func (rc *ReactionCtx) RequestShutdown() {
	rc.checkLive()
	rc.shutdown = true
}

// IsPresent reports whether t is present at the current tag. t must be a
// trigger or use of the reaction.
func (rc *ReactionCtx) IsPresent(t Trigger) bool {
	rc.checkRead(t)
	m := t.meta()
	switch m.kind {
	case depgraph.KindPort:
		return t.(interface{ isSet() bool }).isSet()
	case depgraph.KindBank:
		return t.(interface{ anySet() bool }).anySet()
	case depgraph.KindLogicalAction, depgraph.KindPhysicalAction:
		return t.(interface{ hasValueAt(ltime.EventTag) bool }).hasValueAt(rc.tag)
	}
	return rc.sched.present[m.id]
}

func (p *Port[T]) isSet() bool { return p.cell().present }

func (b *PortBank[T]) anySet() bool {
	for _, p := range b.ports {
		if p.isSet() {
			return true
		}
	}
	return false
}

func (a *LogicalAction[T]) hasValueAt(tag ltime.EventTag) bool {
	_, ok := a.read(tag)
	return ok
}

func (a *PhysicalAction[T]) hasValueAt(tag ltime.EventTag) bool {
	_, ok := a.read(tag)
	return ok
}

func (rc *ReactionCtx) violation(t Trigger, format string, args ...any) {
	err := &RuntimeError{
		Code:     ErrCodeContractViolation,
		Message:  fmt.Sprintf(format, args...),
		Reaction: rc.entry.label,
		Tag:      rc.tag,
	}
	if t != nil {
		err.Trigger = t.meta().label
	}
	panic(err)
}

func (rc *ReactionCtx) checkLive() {
	if rc.revoked.Load() {
		rc.violation(nil, "context used after the reaction returned")
	}
}

func (rc *ReactionCtx) checkRead(t Trigger) {
	rc.checkLive()
	if !rc.entry.reads[t.ID()] {
		rc.violation(t, "%s is not a declared trigger or use", t.meta().label)
	}
}

func (rc *ReactionCtx) checkWrite(t Trigger) {
	rc.checkLive()
	if !rc.entry.writes[t.ID()] {
		rc.violation(t, "%s is not a declared effect", t.meta().label)
	}
}

func (rc *ReactionCtx) stamp(tag ltime.EventTag) trace.Stamp {
	return trace.StampOf(tag, rc.sched.start)
}

func (rc *ReactionCtx) wrote(p portSlot, label string, v any) {
	if rc.seen == nil {
		rc.seen = make(map[ids.TriggerID]bool)
	}
	if !rc.seen[p.ID()] {
		rc.seen[p.ID()] = true
		rc.written = append(rc.written, p)
	}
	rc.events = append(rc.events, trace.Event{
		Kind:     trace.KindSet,
		At:       rc.stamp(rc.tag),
		Reaction: rc.entry.label,
		Trigger:  label,
		Value:    v,
	})
}

// invoke runs the reaction body, converting errors and panics into
// runtime errors, then revokes the context.
func (rc *ReactionCtx) invoke() {
	defer rc.revoked.Store(true)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if re, ok := r.(*RuntimeError); ok {
			if re.Reaction == "" {
				re.Reaction = rc.entry.label
				re.Tag = rc.tag
			}
			rc.err = re
			return
		}
		rc.err = &RuntimeError{
			Code:     ErrCodeReactionPanic,
			Message:  fmt.Sprintf("reaction panicked: %v", r),
			Reaction: rc.entry.label,
			Tag:      rc.tag,
		}
	}()
	if err := rc.entry.body(rc); err != nil {
		rc.err = &RuntimeError{
			Code:     ErrCodeReactionFailed,
			Message:  "reaction returned an error",
			Reaction: rc.entry.label,
			Tag:      rc.tag,
			Err:      err,
		}
	}
}

// Get returns the value of a port or action at the current tag. The
// second result is false if no value is present, which is normal dataflow
// and not an error.
func Get[T any](rc *ReactionCtx, s Source[T]) (T, bool) {
	rc.checkRead(s)
	return s.read(rc.tag)
}

// Set writes v to port p for the current tag. Writing twice in one tag
// keeps the last value.
func Set[T any](rc *ReactionCtx, p *Port[T], v T) {
	rc.checkWrite(p)
	p.write(v)
	rc.wrote(p, p.m.label, v)
}

// Schedule schedules action a with value v. A logical action fires at the
// current tag plus its minimum delay plus off; a zero total delay targets
// the next microstep. A physical action is measured from the wall clock
// and never lands before the next microstep. It returns the assigned tag.
//
// An overflowing delay is fatal to the run.
func Schedule[T any](rc *ReactionCtx, a Action[T], v T, off ltime.Offset) ltime.EventTag {
	rc.checkWrite(a)
	var (
		tag ltime.EventTag
		err error
	)
	if a.IsPhysical() {
		tag, err = ltime.PhysicalTag(rc.sched.clock.Now(), rc.tag, a.MinDelay(), off)
	} else {
		tag, err = ltime.ScheduleTag(rc.tag, a.MinDelay(), off)
	}
	if err != nil {
		re := scheduleError(err, a.meta().label)
		re.Reaction = rc.entry.label
		re.Tag = rc.tag
		panic(re)
	}
	a.store(tag, v)
	rc.scheduled = append(rc.scheduled, scheduledEvent{tag: tag, trigger: a.ID()})
	target := rc.stamp(tag)
	rc.events = append(rc.events, trace.Event{
		Kind:     trace.KindSchedule,
		At:       rc.stamp(rc.tag),
		Reaction: rc.entry.label,
		Trigger:  a.meta().label,
		Value:    v,
		Target:   &target,
	})
	return tag
}

// PhysicalRef returns a handle that lets goroutines outside the scheduler
// schedule a. The reaction must declare a as an effect.
func PhysicalRef[T any](rc *ReactionCtx, a *PhysicalAction[T]) PhysicalActionRef[T] {
	rc.checkWrite(a)
	return NewPhysicalActionRef(rc.sched.link, a)
}
