package reactor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/trace"
)

var errBoom = errors.New("boom")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFastScheduler runs in fast mode on a manual clock reading zero.
func newFastScheduler(prog *Program, rec trace.Recorder, opts ...SchedulerOption) *SyncScheduler {
	base := []SchedulerOption{
		WithMode(ModeFast),
		WithClock(ltime.NewManualClock(0)),
		WithRecorder(rec),
		WithLogger(quietLogger()),
	}
	return NewSyncScheduler(prog, append(base, opts...)...)
}

func runFast(t *testing.T, main Reactor, opts ...SchedulerOption) (*RunResult, []trace.Event) {
	t.Helper()
	prog, err := Assemble(main)
	require.NoError(t, err)
	rec := trace.NewMemory()
	res, _ := newFastScheduler(prog, rec, opts...).Run(context.Background())
	require.NotNil(t, res)
	return res, rec.Events()
}

// at builds a tag relative to a run started at instant zero.
func at(d time.Duration, m uint32) ltime.EventTag {
	return ltime.EventTag{Time: ltime.Instant(d), Microstep: ltime.MicroStep(m)}
}

// ticker fires a timer and requests shutdown after limit firings. A zero
// limit never requests shutdown.
type ticker struct {
	offset, period time.Duration
	limit          int

	fired     []time.Duration
	present   []bool
	shutdowns int
}

func (r *ticker) Assemble(c *AssemblyCtx) {
	t := c.NewTimer("t", r.offset, r.period)
	c.NewReaction("tick", func(rc *ReactionCtx) error {
		r.fired = append(r.fired, rc.Elapsed())
		r.present = append(r.present, rc.IsPresent(t))
		if len(r.fired) == r.limit {
			rc.RequestShutdown()
		}
		return nil
	}).TriggeredBy(t)
	c.NewReaction("stop", func(*ReactionCtx) error {
		r.shutdowns++
		return nil
	}).TriggeredBy(c.Shutdown())
}

// delayed schedules a logical action with a 5ms minimum delay at startup.
type delayed struct {
	value     int
	triggered bool

	scheduled ltime.EventTag
	got       []int
	tags      []ltime.EventTag
}

func (r *delayed) Assemble(c *AssemblyCtx) {
	a := NewLogicalAction[int](c, "act", 5*time.Millisecond)
	c.NewReaction("A", func(rc *ReactionCtx) error {
		r.scheduled = Schedule[int](rc, a, r.value, ltime.Asap)
		return nil
	}).TriggeredBy(c.Startup()).Effects(a)

	b := c.NewReaction("B", func(rc *ReactionCtx) error {
		if v, ok := Get[int](rc, a); ok {
			r.got = append(r.got, v)
			r.tags = append(r.tags, rc.Tag())
		}
		return nil
	})
	if r.triggered {
		b.TriggeredBy(a)
	} else {
		b.TriggeredBy(c.Startup()).Uses(a)
	}
}

// microsteps reschedules itself with zero delay n times.
type microsteps struct {
	n    int
	tags []ltime.EventTag
}

func (r *microsteps) Assemble(c *AssemblyCtx) {
	a := NewLogicalAction[int](c, "again", 0)
	c.NewReaction("loop", func(rc *ReactionCtx) error {
		r.tags = append(r.tags, rc.Tag())
		if r.n < 0 || len(r.tags) <= r.n {
			Schedule[int](rc, a, len(r.tags), ltime.Asap)
		}
		return nil
	}).TriggeredBy(c.Startup(), a).Effects(a)
}

// source writes its tick count on even ticks only.
type source struct {
	out   *Port[int]
	ticks int
}

func (s *source) Assemble(c *AssemblyCtx) {
	s.out = NewPort[int](c, "out", Output)
	t := c.NewTimer("t", 0, time.Millisecond)
	c.NewReaction("emit", func(rc *ReactionCtx) error {
		if s.ticks%2 == 0 {
			Set(rc, s.out, s.ticks)
		}
		s.ticks++
		return nil
	}).TriggeredBy(t).Effects(s.out)
}

type observation struct {
	tick    int
	value   int
	present bool
}

// sink samples its input on its own timer without being triggered by it.
type sink struct {
	in   *Port[int]
	seen []observation
}

func (s *sink) Assemble(c *AssemblyCtx) {
	s.in = NewPort[int](c, "in", Input)
	t := c.NewTimer("t", 0, time.Millisecond)
	c.NewReaction("observe", func(rc *ReactionCtx) error {
		v, ok := Get[int](rc, s.in)
		if ok != rc.IsPresent(s.in) {
			return fmt.Errorf("presence mismatch on %s", s.in.Name())
		}
		s.seen = append(s.seen, observation{tick: len(s.seen), value: v, present: ok})
		return nil
	}).TriggeredBy(t).Uses(s.in)
}

type pipeline struct {
	src *source
	snk *sink
}

func (p *pipeline) Assemble(c *AssemblyCtx) {
	p.src, p.snk = &source{}, &sink{}
	c.AssembleChild("src", p.src)
	c.AssembleChild("snk", p.snk)
	BindPorts(c, p.src.out, p.snk.in)
}

// rogue misbehaves at startup according to mode.
type rogue struct {
	mode     string
	afterRan bool
}

func (r *rogue) Assemble(c *AssemblyCtx) {
	out := NewPort[int](c, "out", Output)
	other := NewPort[int](c, "other", Output)
	c.NewReaction("misbehave", func(rc *ReactionCtx) error {
		switch r.mode {
		case "undeclared":
			Set(rc, other, 1)
		case "error":
			return errBoom
		case "panic":
			panic("kaboom")
		}
		Set(rc, out, 1)
		return nil
	}).TriggeredBy(c.Startup()).Effects(out)
	c.NewReaction("after", func(*ReactionCtx) error {
		r.afterRan = true
		return nil
	}).TriggeredBy(c.Shutdown())
}

// overflower schedules an action far beyond the end of the time domain.
type overflower struct{}

func (overflower) Assemble(c *AssemblyCtx) {
	a := NewLogicalAction[int](c, "far", time.Duration(1<<63-1))
	c.NewReaction("push", func(rc *ReactionCtx) error {
		Schedule[int](rc, a, 1, ltime.After(time.Hour))
		return nil
	}).TriggeredBy(c.Startup()).Effects(a)
	c.NewReaction("never", func(*ReactionCtx) error { return nil }).TriggeredBy(a)
}

// leaky keeps a view past the end of its reaction.
type leaky struct {
	kept  ReadablePort[int]
	calls int
}

func (r *leaky) Assemble(c *AssemblyCtx) {
	in := NewPort[int](c, "in", Input)
	t := c.NewTimer("t", 0, time.Millisecond)
	c.NewReaction("keep", func(rc *ReactionCtx) error {
		if r.calls == 0 {
			r.kept = ReadPort(rc, in)
		} else {
			r.kept.Get()
		}
		r.calls++
		return nil
	}).TriggeredBy(t).Uses(in)
}

// idle declares a physical action nobody schedules.
type idle struct {
	action    *PhysicalAction[int]
	shutdowns int
}

func (r *idle) Assemble(c *AssemblyCtx) {
	r.action = NewPhysicalAction[int](c, "wake", 0)
	c.NewReaction("wake", func(*ReactionCtx) error { return nil }).TriggeredBy(r.action)
	c.NewReaction("stop", func(*ReactionCtx) error {
		r.shutdowns++
		return nil
	}).TriggeredBy(c.Shutdown())
}

// bankSource writes every channel of its output bank on each tick.
type bankSource struct {
	width int
	out   *PortBank[int]
	ticks int
}

func (s *bankSource) Assemble(c *AssemblyCtx) {
	s.out = NewPortBank[int](c, "out", Output, s.width)
	t := c.NewTimer("t", 0, time.Millisecond)
	c.NewReaction("scatter", func(rc *ReactionCtx) error {
		w := WriteBank(rc, s.out)
		for i := 0; i < w.Len(); i++ {
			w.Set(i, s.ticks*10+i)
		}
		s.ticks++
		return nil
	}).TriggeredBy(t).Effects(s.out)
}

type bankWorker struct {
	factor  int
	in, out *Port[int]
}

func (w *bankWorker) Assemble(c *AssemblyCtx) {
	w.in = NewPort[int](c, "in", Input)
	w.out = NewPort[int](c, "out", Output)
	c.NewReaction("work", func(rc *ReactionCtx) error {
		if v, ok := Get[int](rc, w.in); ok {
			WritePort(rc, w.out).Set(v * w.factor)
		}
		return nil
	}).TriggeredBy(w.in).Effects(w.out)
}

type bankSink struct {
	width int
	in    *PortBank[int]
	sums  []int
}

func (s *bankSink) Assemble(c *AssemblyCtx) {
	s.in = NewPortBank[int](c, "in", Input, s.width)
	c.NewReaction("gather", func(rc *ReactionCtx) error {
		r := ReadBank(rc, s.in)
		sum := 0
		for _, i := range r.Present() {
			v, _ := r.Get(i)
			sum += v
		}
		s.sums = append(s.sums, sum)
		return nil
	}).TriggeredBy(s.in)
}

// fanout scatters through a bank to width workers and gathers the results.
type fanout struct {
	width int
	sink  *bankSink
}

func (f *fanout) Assemble(c *AssemblyCtx) {
	src := &bankSource{width: f.width}
	f.sink = &bankSink{width: f.width}
	c.AssembleChild("src", src)
	c.AssembleChild("sink", f.sink)
	if c.Err() != nil {
		return
	}
	for i := 0; i < f.width; i++ {
		w := &bankWorker{factor: i + 1}
		c.AssembleChild(fmt.Sprintf("w%d", i), w)
		BindPorts(c, src.out.Port(i), w.in)
		BindPorts(c, w.out, f.sink.in.Port(i))
	}
}
