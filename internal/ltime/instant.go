package ltime

import (
	"math"
	"time"
)

// Instant is a point on the runtime time line, in nanoseconds.
//
// Instants obtained from a SystemClock are Unix nanoseconds, so they can be
// converted back with Time. Instants obtained from a ManualClock are whatever
// the test put there.
type Instant int64

const (
	// MinInstant is the earliest representable instant.
	MinInstant Instant = math.MinInt64
	// MaxInstant is the latest representable instant.
	MaxInstant Instant = math.MaxInt64
)

// FromTime converts a wall-clock time into an Instant.
func FromTime(t time.Time) Instant {
	return Instant(t.UnixNano())
}

// Time converts the instant back to a wall-clock time.
func (i Instant) Time() time.Time {
	return time.Unix(0, int64(i))
}

// Add returns i+d, saturating at MinInstant and MaxInstant.
func (i Instant) Add(d time.Duration) Instant {
	r, ok := i.CheckedAdd(d)
	if ok {
		return r
	}
	if d > 0 {
		return MaxInstant
	}
	return MinInstant
}

// CheckedAdd returns i+d and false if the result leaves the time domain.
func (i Instant) CheckedAdd(d time.Duration) (Instant, bool) {
	a, b := int64(i), int64(d)
	sum := a + b
	// overflow iff both operands share a sign the result does not
	if (a >= 0) == (b >= 0) && (sum >= 0) != (a >= 0) {
		return 0, false
	}
	return Instant(sum), true
}

// Sub returns i-j as a duration, saturating at the duration bounds.
func (i Instant) Sub(j Instant) time.Duration {
	a, b := int64(i), int64(j)
	diff := a - b
	if (a >= 0) != (b >= 0) && (diff >= 0) != (a >= 0) {
		if a >= 0 {
			return time.Duration(math.MaxInt64)
		}
		return time.Duration(math.MinInt64)
	}
	return time.Duration(diff)
}

// Before reports whether i is strictly before j.
func (i Instant) Before(j Instant) bool { return i < j }

// After reports whether i is strictly after j.
func (i Instant) After(j Instant) bool { return i > j }

// MaxOf returns the later of two instants.
func MaxOf(a, b Instant) Instant {
	if a > b {
		return a
	}
	return b
}

// SaturatingAddDuration adds two durations without wrapping.
func SaturatingAddDuration(a, b time.Duration) time.Duration {
	r, ok := CheckedAddDuration(a, b)
	if ok {
		return r
	}
	if b > 0 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(math.MinInt64)
}

// CheckedAddDuration adds two durations and reports overflow.
func CheckedAddDuration(a, b time.Duration) (time.Duration, bool) {
	sum := a + b
	if (a >= 0) == (b >= 0) && (sum >= 0) != (a >= 0) {
		return 0, false
	}
	return sum, true
}
