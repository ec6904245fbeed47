package programs

import (
	"time"

	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/reactor"
)

func init() {
	register(Entry{
		Name:        "delay",
		Description: "A -> logical action(delay) -> B, value forwarded after the delay",
		Defaults:    Params{"delay": "5 msec", "value": 42},
		New:         newDelay,
	})
}

// Delay schedules a logical action with a minimum delay at startup and
// forwards the value to its output when the action fires.
type Delay struct {
	Delay time.Duration
	Value int
}

func newDelay(p Params) (reactor.Reactor, error) {
	d, err := p.Duration("delay", 5*time.Millisecond)
	if err != nil {
		return nil, err
	}
	v, err := p.Int("value", 42)
	if err != nil {
		return nil, err
	}
	return &Delay{Delay: d, Value: v}, nil
}

func (r *Delay) Assemble(c *reactor.AssemblyCtx) {
	act := reactor.NewLogicalAction[int](c, "act", r.Delay)
	out := reactor.NewPort[int](c, "out", reactor.Output)
	c.NewReaction("A", func(rc *reactor.ReactionCtx) error {
		reactor.Schedule[int](rc, act, r.Value, ltime.Asap)
		return nil
	}).TriggeredBy(c.Startup()).Effects(act)
	c.NewReaction("B", func(rc *reactor.ReactionCtx) error {
		if v, ok := reactor.Get[int](rc, act); ok {
			reactor.Set(rc, out, v)
		}
		return nil
	}).TriggeredBy(act).Effects(out)
}
