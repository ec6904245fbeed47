package testutil

import (
	"sync"
	"time"

	"github.com/roach88/reactorrt/internal/ltime"
)

// Epoch is the instant test clocks start at. Traces are relative to the
// start of a run, so the value only matters for absolute tag rendering.
const Epoch ltime.Instant = 0

// SteppingClock is an ltime.Clock that advances by a fixed step on every
// reading.
//
// Unlike ltime.ManualClock, SteppingClock moves on its own, which lets
// physical-action tests observe wall-clock progress without sleeping.
// This enables the same test scenario to run multiple times with identical
// physical tags.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu    sync.Mutex
	start ltime.Instant
	now   ltime.Instant
	step  time.Duration
	reads int64
}

// NewSteppingClock creates a clock reading start that advances by step
// after each call to Now.
//
// The first call to Now() returns start.
func NewSteppingClock(start ltime.Instant, step time.Duration) *SteppingClock {
	return &SteppingClock{start: start, now: start, step: step}
}

// Now returns the current reading and advances the clock.
//
// Monotonic: never decreases, since negative steps are treated as zero.
func (c *SteppingClock) Now() ltime.Instant {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.now
	if c.step > 0 {
		c.now = c.now.Add(c.step)
	}
	c.reads++
	return cur
}

// Reads returns how many times Now has been called.
func (c *SteppingClock) Reads() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Reset moves the clock back to its start reading.
//
// Used for test reuse. After Reset(), the next call to Now() returns start.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
	c.reads = 0
}
