package programs

import (
	"time"

	"github.com/roach88/reactorrt/internal/reactor"
)

func init() {
	register(Entry{
		Name:        "diamond",
		Description: "fan-out to two branches and fan-in to a join, three levels per tick",
		Defaults:    Params{"count": 5, "period": "10 msec"},
		New:         newDiamond,
	})
}

// Diamond sends a counter through two independent branches that run on
// the same level and joins their results.
type Diamond struct {
	Count  int
	Period time.Duration
}

func newDiamond(p Params) (reactor.Reactor, error) {
	count, err := p.PositiveInt("count", 5)
	if err != nil {
		return nil, err
	}
	period, err := p.Duration("period", 10*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return &Diamond{Count: count, Period: period}, nil
}

func (r *Diamond) Assemble(c *reactor.AssemblyCtx) {
	src := &counter{count: r.Count, period: r.Period}
	left := &mapper{fn: func(v int) int { return v * v }}
	right := &mapper{fn: func(v int) int { return v + 100 }}
	join := &joiner{}
	c.AssembleChild("src", src)
	c.AssembleChild("left", left)
	c.AssembleChild("right", right)
	c.AssembleChild("join", join)
	if c.Err() != nil {
		return
	}
	reactor.BindPorts(c, src.out, left.in)
	reactor.BindPorts(c, src.out, right.in)
	reactor.BindPorts(c, left.out, join.a)
	reactor.BindPorts(c, right.out, join.b)
}

// counter writes 1..count on a periodic timer, then requests shutdown.
type counter struct {
	count  int
	period time.Duration
	out    *reactor.Port[int]
	n      int
}

func (r *counter) Assemble(c *reactor.AssemblyCtx) {
	r.out = reactor.NewPort[int](c, "out", reactor.Output)
	t := c.NewTimer("t", 0, r.period)
	c.NewReaction("count", func(rc *reactor.ReactionCtx) error {
		r.n++
		reactor.Set(rc, r.out, r.n)
		if r.n >= r.count {
			rc.RequestShutdown()
		}
		return nil
	}).TriggeredBy(t).Effects(r.out)
}

type mapper struct {
	fn      func(int) int
	in, out *reactor.Port[int]
}

func (r *mapper) Assemble(c *reactor.AssemblyCtx) {
	r.in = reactor.NewPort[int](c, "in", reactor.Input)
	r.out = reactor.NewPort[int](c, "out", reactor.Output)
	c.NewReaction("map", func(rc *reactor.ReactionCtx) error {
		if v, ok := reactor.Get[int](rc, r.in); ok {
			reactor.Set(rc, r.out, r.fn(v))
		}
		return nil
	}).TriggeredBy(r.in).Effects(r.out)
}

type joiner struct {
	a, b *reactor.Port[int]
	sum  *reactor.Port[int]
}

func (r *joiner) Assemble(c *reactor.AssemblyCtx) {
	r.a = reactor.NewPort[int](c, "a", reactor.Input)
	r.b = reactor.NewPort[int](c, "b", reactor.Input)
	r.sum = reactor.NewPort[int](c, "sum", reactor.Output)
	c.NewReaction("join", func(rc *reactor.ReactionCtx) error {
		a, _ := reactor.Get[int](rc, r.a)
		b, _ := reactor.Get[int](rc, r.b)
		reactor.Set(rc, r.sum, a+b)
		return nil
	}).TriggeredBy(r.a, r.b).Effects(r.sum)
}
