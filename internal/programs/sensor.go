package programs

import (
	"sync"
	"time"

	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/reactor"
)

func init() {
	register(Entry{
		Name:        "sensor",
		Description: "physical action fed by a goroutine, shutdown after count readings",
		Defaults:    Params{"count": 5, "interval": "10 msec"},
		Physical:    true,
		New:         newSensor,
	})
}

// Sensor starts a goroutine at startup that delivers Count readings through
// a physical action, one every Interval of wall-clock time. Tags of the
// readings depend on the wall clock, so traces of this program are not
// reproducible.
type Sensor struct {
	Count    int
	Interval time.Duration

	reading  *reactor.PhysicalAction[int]
	received int
	wg       sync.WaitGroup
}

func newSensor(p Params) (reactor.Reactor, error) {
	count, err := p.PositiveInt("count", 5)
	if err != nil {
		return nil, err
	}
	interval, err := p.Duration("interval", 10*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return &Sensor{Count: count, Interval: interval}, nil
}

func (r *Sensor) Assemble(c *reactor.AssemblyCtx) {
	r.reading = reactor.NewPhysicalAction[int](c, "reading", 0)
	out := reactor.NewPort[int](c, "out", reactor.Output)
	c.NewReaction("arm", func(rc *reactor.ReactionCtx) error {
		ref := reactor.PhysicalRef(rc, r.reading)
		r.wg.Add(1)
		go r.poll(ref)
		return nil
	}).TriggeredBy(c.Startup()).Effects(r.reading)
	c.NewReaction("read", func(rc *reactor.ReactionCtx) error {
		v, ok := reactor.Get[int](rc, r.reading)
		if !ok {
			return nil
		}
		r.received++
		reactor.Set(rc, out, v)
		if r.received >= r.Count {
			rc.RequestShutdown()
		}
		return nil
	}).TriggeredBy(r.reading).Effects(out)
}

// poll stops early once the scheduler no longer accepts events.
func (r *Sensor) poll(ref reactor.PhysicalActionRef[int]) {
	defer r.wg.Done()
	for i := 1; i <= r.Count; i++ {
		time.Sleep(r.Interval)
		if _, err := ref.Schedule(i, ltime.Asap); err != nil {
			return
		}
	}
}

// Wait blocks until the polling goroutine has exited.
func (r *Sensor) Wait() {
	r.wg.Wait()
}
