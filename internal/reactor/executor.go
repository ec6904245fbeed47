package reactor

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/reactorrt/internal/depgraph"
	"github.com/roach88/reactorrt/internal/ids"
	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/trace"
)

// levelPlan collects the reactions to execute at one tag, grouped by
// level. A reaction is marked at most once per tag.
type levelPlan struct {
	graph  *depgraph.Graph
	marked []bool
	levels [][]int
}

func newLevelPlan(g *depgraph.Graph) *levelPlan {
	return &levelPlan{
		graph:  g,
		marked: make([]bool, g.NumReactions()),
		levels: make([][]int, g.NumLevels()),
	}
}

func (p *levelPlan) mark(reactions []int) {
	for _, i := range reactions {
		if p.marked[i] {
			continue
		}
		p.marked[i] = true
		l := p.graph.Reaction(i).Level
		p.levels[l] = append(p.levels[l], i)
	}
}

// take returns the reactions of level l in declaration order.
func (p *levelPlan) take(l int) []int {
	batch := p.levels[l]
	sort.Ints(batch)
	return batch
}

// step executes every reaction triggered at tag, level by level.
//
// Reactions write ports directly, since no two reactions of one level touch
// the same port. Everything else a reaction produces (trace events,
// scheduled actions, shutdown requests) is buffered in its context and
// merged after the level joins, in declaration order. The trace and the
// queue therefore do not depend on the number of workers.
func (s *SyncScheduler) step(ctx context.Context, tag ltime.EventTag, triggers []ids.TriggerID) error {
	began := time.Now()
	_, span := s.tracer.Start(ctx, "reactorrt.tag", oteltrace.WithAttributes(
		attribute.String("reactorrt.program", s.prog.name),
		attribute.String("reactorrt.tag", tag.Format(s.start)),
		attribute.Int("reactorrt.triggers", len(triggers)),
	))
	defer span.End()

	s.last, s.processed = tag, true
	s.tags++
	s.present = make(map[ids.TriggerID]bool, len(triggers))
	labels := make([]string, len(triggers))
	for i, t := range triggers {
		s.present[t] = true
		labels[i] = s.prog.TriggerLabel(t)
	}
	stamp := trace.StampOf(tag, s.start)
	s.emit(trace.Event{Kind: trace.KindTag, At: stamp, Triggers: labels})
	s.logger.Debug("processing tag", "tag", tag.Format(s.start), "triggers", labels)

	graph := s.prog.graph
	plan := newLevelPlan(graph)
	for _, t := range triggers {
		plan.mark(graph.Dependents(t))
	}

	var (
		written  []portSlot
		executed int
		err      error
	)
	for l := 0; l < len(plan.levels) && err == nil; l++ {
		batch := plan.take(l)
		if len(batch) == 0 {
			continue
		}
		ctxs := make([]*ReactionCtx, len(batch))
		for i, idx := range batch {
			ctxs[i] = newReactionCtx(s, s.prog.reactions[idx], tag)
		}
		s.metrics.recordLevel(len(ctxs))
		s.runLevel(ctxs)

		for _, rc := range ctxs {
			if !rc.revoked.Load() {
				break
			}
			executed++
			s.emit(trace.Event{Kind: trace.KindReaction, At: stamp, Reaction: rc.entry.label})
			for _, e := range rc.events {
				s.emit(e)
			}
			s.logger.Debug("reaction executed", "reaction", rc.entry.label, "level", l, "tag", tag.Format(s.start))
			if rc.err != nil {
				err = rc.err
				break
			}
			for _, p := range rc.written {
				plan.mark(graph.Dependents(p.ID()))
				written = append(written, p)
			}
			for _, ev := range rc.scheduled {
				s.queue.push(ev.tag, ev.trigger)
			}
			if rc.shutdown {
				s.shutdownRequested = true
			}
		}
	}

	for _, p := range written {
		p.clear()
	}
	for _, t := range triggers {
		if slot, ok := s.prog.actions[t]; ok {
			slot.clearAt(tag)
		}
	}
	s.reactions += executed
	span.SetAttributes(attribute.Int("reactorrt.reactions", executed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.rescheduleTimers(tag, triggers)
	s.metrics.recordTag(s.prog.name, executed, time.Since(began), s.queue.Len())
	return nil
}

// runLevel invokes the reactions of one level and returns once all of
// them have returned. With a single worker they run inline in declaration
// order and the level stops at the first failure.
func (s *SyncScheduler) runLevel(ctxs []*ReactionCtx) {
	if s.opts.Workers <= 1 || len(ctxs) == 1 {
		for _, rc := range ctxs {
			rc.invoke()
			if rc.err != nil {
				return
			}
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for _, rc := range ctxs {
		g.Go(func() error {
			rc.invoke()
			return nil
		})
	}
	_ = g.Wait()
}

// rescheduleTimers queues the next firing of every periodic timer present
// at tag.
func (s *SyncScheduler) rescheduleTimers(tag ltime.EventTag, triggers []ids.TriggerID) {
	for _, id := range triggers {
		t := s.prog.timer(id)
		if t == nil || t.IsOneShot() {
			continue
		}
		at, ok := tag.Time.CheckedAdd(t.period)
		if !ok {
			s.logger.Warn("timer period overflows, timer stops", "trigger", t.m.label)
			continue
		}
		s.queue.push(ltime.Pure(at), id)
	}
}
