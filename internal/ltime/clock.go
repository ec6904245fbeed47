package ltime

import (
	"sync/atomic"
	"time"
)

// Clock is the source of physical time for a scheduler.
//
// Implementations must return monotonically non-decreasing instants and be
// safe for concurrent use: physical actions read the clock from arbitrary
// goroutines.
type Clock interface {
	Now() Instant
}

// SystemClock reads the wall clock through Go's monotonic reading, so it
// never goes backwards even if the system time is adjusted.
type SystemClock struct {
	origin time.Time
	base   Instant
}

// NewSystemClock creates a clock anchored at the current wall time.
func NewSystemClock() *SystemClock {
	now := time.Now()
	return &SystemClock{origin: now, base: FromTime(now)}
}

// Now returns the current instant.
func (c *SystemClock) Now() Instant {
	return c.base.Add(time.Since(c.origin))
}

// ManualClock is a clock that only moves when told to. It is used for
// reproducible runs in simulation mode and in tests.
//
// Thread-safety: all methods use atomic operations.
type ManualClock struct {
	now atomic.Int64
}

// NewManualClock creates a manual clock reading start.
func NewManualClock(start Instant) *ManualClock {
	c := &ManualClock{}
	c.now.Store(int64(start))
	return c
}

// Now returns the current reading.
func (c *ManualClock) Now() Instant {
	return Instant(c.now.Load())
}

// Advance moves the clock forward by d. Negative values are ignored so the
// clock stays monotonic.
func (c *ManualClock) Advance(d time.Duration) Instant {
	if d <= 0 {
		return c.Now()
	}
	for {
		cur := c.now.Load()
		next := int64(Instant(cur).Add(d))
		if c.now.CompareAndSwap(cur, next) {
			return Instant(next)
		}
	}
}

// Set moves the clock to t if t is not before the current reading.
func (c *ManualClock) Set(t Instant) {
	for {
		cur := c.now.Load()
		if int64(t) <= cur {
			return
		}
		if c.now.CompareAndSwap(cur, int64(t)) {
			return
		}
	}
}
