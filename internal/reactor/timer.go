package reactor

import (
	"time"

	"github.com/roach88/reactorrt/internal/ids"
)

// Timer fires at start+offset and then every period. A zero period fires
// once.
type Timer struct {
	m      triggerMeta
	offset time.Duration
	period time.Duration
}

func (t *Timer) ID() ids.TriggerID  { return t.m.id }
func (t *Timer) Name() string       { return t.m.name }
func (t *Timer) meta() *triggerMeta { return &t.m }

// Offset returns the delay of the first firing after the start of a run.
func (t *Timer) Offset() time.Duration { return t.offset }

// Period returns the interval between firings.
func (t *Timer) Period() time.Duration { return t.period }

// IsOneShot reports whether the timer fires only once.
func (t *Timer) IsOneShot() bool { return t.period == 0 }
