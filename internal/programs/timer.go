package programs

import (
	"time"

	"github.com/roach88/reactorrt/internal/reactor"
)

func init() {
	register(Entry{
		Name:        "timer",
		Description: "periodic timer writing its firing count, shutdown after count ticks",
		Defaults:    Params{"offset": "0", "period": "100 msec", "count": 5},
		New:         newTicker,
	})
}

// Ticker fires a timer at offset, offset+period, ... and writes the firing
// count to its output. It requests shutdown after count firings.
type Ticker struct {
	Offset, Period time.Duration
	Count          int

	fired int
}

func newTicker(p Params) (reactor.Reactor, error) {
	offset, err := p.Duration("offset", 0)
	if err != nil {
		return nil, err
	}
	period, err := p.Duration("period", 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	count, err := p.PositiveInt("count", 5)
	if err != nil {
		return nil, err
	}
	return &Ticker{Offset: offset, Period: period, Count: count}, nil
}

func (r *Ticker) Assemble(c *reactor.AssemblyCtx) {
	t := c.NewTimer("t", r.Offset, r.Period)
	out := reactor.NewPort[int](c, "ticks", reactor.Output)
	c.NewReaction("tick", func(rc *reactor.ReactionCtx) error {
		r.fired++
		reactor.Set(rc, out, r.fired)
		if r.fired >= r.Count {
			rc.RequestShutdown()
		}
		return nil
	}).TriggeredBy(t).Effects(out)
	c.NewReaction("report", func(rc *reactor.ReactionCtx) error {
		reactor.Set(rc, out, r.fired)
		return nil
	}).TriggeredBy(c.Shutdown()).Effects(out)
}
