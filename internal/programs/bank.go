package programs

import (
	"fmt"
	"time"

	"github.com/roach88/reactorrt/internal/reactor"
)

func init() {
	register(Entry{
		Name:        "bank",
		Description: "scatter through a port bank to width workers and gather the results",
		Defaults:    Params{"width": 4, "count": 3, "period": "10 msec"},
		New:         newBank,
	})
}

// Bank scatters every tick to Width workers over a port bank; worker i
// multiplies by i+1, and a gatherer sums the present channels.
type Bank struct {
	Width  int
	Count  int
	Period time.Duration
}

func newBank(p Params) (reactor.Reactor, error) {
	width, err := p.PositiveInt("width", 4)
	if err != nil {
		return nil, err
	}
	count, err := p.PositiveInt("count", 3)
	if err != nil {
		return nil, err
	}
	period, err := p.Duration("period", 10*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return &Bank{Width: width, Count: count, Period: period}, nil
}

func (r *Bank) Assemble(c *reactor.AssemblyCtx) {
	src := &scatter{width: r.Width, count: r.Count, period: r.Period}
	dst := &gather{width: r.Width}
	c.AssembleChild("scatter", src)
	c.AssembleChild("gather", dst)
	if c.Err() != nil {
		return
	}
	for i := 0; i < r.Width; i++ {
		w := &scaler{factor: i + 1}
		c.AssembleChild(fmt.Sprintf("w%d", i), w)
		if c.Err() != nil {
			return
		}
		reactor.BindPorts(c, src.out.Port(i), w.in)
		reactor.BindPorts(c, w.out, dst.in.Port(i))
	}
}

type scatter struct {
	width, count int
	period       time.Duration
	out          *reactor.PortBank[int]
	ticks        int
}

func (r *scatter) Assemble(c *reactor.AssemblyCtx) {
	r.out = reactor.NewPortBank[int](c, "out", reactor.Output, r.width)
	t := c.NewTimer("t", 0, r.period)
	c.NewReaction("scatter", func(rc *reactor.ReactionCtx) error {
		r.ticks++
		w := reactor.WriteBank(rc, r.out)
		for i := 0; i < w.Len(); i++ {
			w.Set(i, r.ticks)
		}
		if r.ticks >= r.count {
			rc.RequestShutdown()
		}
		return nil
	}).TriggeredBy(t).Effects(r.out)
}

type scaler struct {
	factor  int
	in, out *reactor.Port[int]
}

func (r *scaler) Assemble(c *reactor.AssemblyCtx) {
	r.in = reactor.NewPort[int](c, "in", reactor.Input)
	r.out = reactor.NewPort[int](c, "out", reactor.Output)
	c.NewReaction("scale", func(rc *reactor.ReactionCtx) error {
		if v, ok := reactor.ReadPort(rc, r.in).Get(); ok {
			reactor.WritePort(rc, r.out).Set(v * r.factor)
		}
		return nil
	}).TriggeredBy(r.in).Effects(r.out)
}

type gather struct {
	width int
	in    *reactor.PortBank[int]
	sum   *reactor.Port[int]
}

func (r *gather) Assemble(c *reactor.AssemblyCtx) {
	r.in = reactor.NewPortBank[int](c, "in", reactor.Input, r.width)
	r.sum = reactor.NewPort[int](c, "sum", reactor.Output)
	c.NewReaction("gather", func(rc *reactor.ReactionCtx) error {
		in := reactor.ReadBank(rc, r.in)
		total := 0
		for _, i := range in.Present() {
			v, _ := in.Get(i)
			total += v
		}
		reactor.Set(rc, r.sum, total)
		return nil
	}).TriggeredBy(r.in).Effects(r.sum)
}
