package programs

import (
	"time"

	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/reactor"
)

func init() {
	register(Entry{
		Name:        "pingpong",
		Description: "two reactors trading a counter over ports, the reply delayed by a logical action",
		Defaults:    Params{"count": 3, "delay": "1 msec"},
		New:         newPingPong,
	})
}

// PingPong wires a Pinger and a Ponger in a loop. The feedback crosses
// tags through the Ponger's logical action.
type PingPong struct {
	Count int
	Delay time.Duration
}

func newPingPong(p Params) (reactor.Reactor, error) {
	count, err := p.PositiveInt("count", 3)
	if err != nil {
		return nil, err
	}
	d, err := p.Duration("delay", time.Millisecond)
	if err != nil {
		return nil, err
	}
	return &PingPong{Count: count, Delay: d}, nil
}

func (r *PingPong) Assemble(c *reactor.AssemblyCtx) {
	ping := &Pinger{Count: r.Count}
	pong := &Ponger{Delay: r.Delay}
	c.AssembleChild("ping", ping)
	c.AssembleChild("pong", pong)
	if c.Err() != nil {
		return
	}
	reactor.BindPorts(c, ping.Out, pong.In)
	reactor.BindPorts(c, pong.Out, ping.In)
}

// Pinger serves 0 at startup and increments every returned ball until it
// reaches Count.
type Pinger struct {
	Count   int
	In, Out *reactor.Port[int]
}

func (r *Pinger) Assemble(c *reactor.AssemblyCtx) {
	r.In = reactor.NewPort[int](c, "in", reactor.Input)
	r.Out = reactor.NewPort[int](c, "out", reactor.Output)
	c.NewReaction("serve", func(rc *reactor.ReactionCtx) error {
		v, ok := reactor.Get[int](rc, r.In)
		if !ok {
			reactor.Set(rc, r.Out, 0)
			return nil
		}
		if v+1 >= r.Count {
			rc.RequestShutdown()
			return nil
		}
		reactor.Set(rc, r.Out, v+1)
		return nil
	}).TriggeredBy(c.Startup(), r.In).Effects(r.Out)
}

// Ponger returns every ball after Delay.
type Ponger struct {
	Delay   time.Duration
	In, Out *reactor.Port[int]
}

func (r *Ponger) Assemble(c *reactor.AssemblyCtx) {
	r.In = reactor.NewPort[int](c, "in", reactor.Input)
	r.Out = reactor.NewPort[int](c, "out", reactor.Output)
	back := reactor.NewLogicalAction[int](c, "back", r.Delay)
	// reply precedes receive so the in-tag order is reply -> serve -> receive
	c.NewReaction("reply", func(rc *reactor.ReactionCtx) error {
		if v, ok := reactor.Get[int](rc, back); ok {
			reactor.Set(rc, r.Out, v)
		}
		return nil
	}).TriggeredBy(back).Effects(r.Out)
	c.NewReaction("receive", func(rc *reactor.ReactionCtx) error {
		if v, ok := reactor.Get[int](rc, r.In); ok {
			reactor.Schedule[int](rc, back, v, ltime.Asap)
		}
		return nil
	}).TriggeredBy(r.In).Effects(back)
}
