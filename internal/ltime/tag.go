package ltime

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrTimeOverflow is returned when a delay pushes a tag past the end of
	// the time domain.
	ErrTimeOverflow = errors.New("time overflow")

	// ErrMicrostepOverflow is returned when the microstep counter of an
	// instant is exhausted.
	ErrMicrostepOverflow = errors.New("microstep overflow")

	// ErrNegativeDelay is returned for scheduling requests with a negative
	// delay.
	ErrNegativeDelay = errors.New("negative delay")
)

// MicroStep orders events that share the same instant.
type MicroStep uint32

// MaxMicroStep is the largest microstep.
const MaxMicroStep MicroStep = math.MaxUint32

// Next returns m+1, or false if m is already MaxMicroStep.
func (m MicroStep) Next() (MicroStep, bool) {
	if m == MaxMicroStep {
		return m, false
	}
	return m + 1, true
}

// EventTag is a superdense logical timestamp. Tags are ordered by time and
// then by microstep. Two tags are equal only if both components match, so
// EventTag values can be compared with == and used as map keys.
type EventTag struct {
	Time      Instant
	Microstep MicroStep
}

// Pure returns the tag (t, 0).
func Pure(t Instant) EventTag {
	return EventTag{Time: t}
}

// Compare returns -1, 0 or +1 depending on whether t is before, equal to or
// after o.
func (t EventTag) Compare(o EventTag) int {
	switch {
	case t.Time < o.Time:
		return -1
	case t.Time > o.Time:
		return 1
	case t.Microstep < o.Microstep:
		return -1
	case t.Microstep > o.Microstep:
		return 1
	}
	return 0
}

// Before reports whether t sorts strictly before o.
func (t EventTag) Before(o EventTag) bool { return t.Compare(o) < 0 }

// After reports whether t sorts strictly after o.
func (t EventTag) After(o EventTag) bool { return t.Compare(o) > 0 }

// NextMicrostep returns (t.Time, t.Microstep+1).
func (t EventTag) NextMicrostep() (EventTag, error) {
	m, ok := t.Microstep.Next()
	if !ok {
		return t, fmt.Errorf("next microstep of %s: %w", t, ErrMicrostepOverflow)
	}
	return EventTag{Time: t.Time, Microstep: m}, nil
}

// Successor returns the tag of an event scheduled delay after t.
//
// A zero delay yields (t.Time, t.Microstep+1); a positive delay yields
// (t.Time+delay, 0). The result is always strictly greater than t.
func (t EventTag) Successor(delay time.Duration) (EventTag, error) {
	if delay < 0 {
		return t, fmt.Errorf("successor of %s: %w", t, ErrNegativeDelay)
	}
	if delay == 0 {
		return t.NextMicrostep()
	}
	at, ok := t.Time.CheckedAdd(delay)
	if !ok {
		return t, fmt.Errorf("successor of %s after %s: %w", t, delay, ErrTimeOverflow)
	}
	return Pure(at), nil
}

// Since returns the time component of t relative to origin.
func (t EventTag) Since(origin Instant) time.Duration {
	return t.Time.Sub(origin)
}

// String renders the raw tag.
func (t EventTag) String() string {
	return fmt.Sprintf("(%d, %d)", int64(t.Time), t.Microstep)
}

// Format renders the tag relative to the start of a run, e.g. "(T0 + 5ms, 1)".
func (t EventTag) Format(origin Instant) string {
	return fmt.Sprintf("(T0 + %s, %d)", t.Since(origin), t.Microstep)
}

// ScheduleTag computes the tag of a logical scheduling request issued at
// now, for an action with the given minimum delay and an extra offset.
func ScheduleTag(now EventTag, minDelay time.Duration, off Offset) (EventTag, error) {
	if minDelay < 0 || off.Duration() < 0 {
		return now, ErrNegativeDelay
	}
	total, ok := CheckedAddDuration(minDelay, off.Duration())
	if !ok {
		return now, fmt.Errorf("delay %s + %s: %w", minDelay, off.Duration(), ErrTimeOverflow)
	}
	return now.Successor(total)
}

// PhysicalTag computes the tag of a physical scheduling request.
//
// The base instant is max(wallNow, current.Time), so the tag is never in
// the past of either clock. If the resulting tag does not sort after
// current (zero delay while the wall clock lags behind logical time), it is
// moved to the next microstep of current.
func PhysicalTag(wallNow Instant, current EventTag, minDelay time.Duration, off Offset) (EventTag, error) {
	if minDelay < 0 || off.Duration() < 0 {
		return current, ErrNegativeDelay
	}
	total, ok := CheckedAddDuration(minDelay, off.Duration())
	if !ok {
		return current, fmt.Errorf("delay %s + %s: %w", minDelay, off.Duration(), ErrTimeOverflow)
	}
	base := MaxOf(wallNow, current.Time)
	at, ok := base.CheckedAdd(total)
	if !ok {
		return current, fmt.Errorf("physical delay %s: %w", total, ErrTimeOverflow)
	}
	tag := Pure(at)
	if !tag.After(current) {
		return current.NextMicrostep()
	}
	return tag, nil
}
