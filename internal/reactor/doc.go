// Package reactor provides the reactor runtime: the assembly API, the data
// model reactions exchange values through, and the scheduler that executes
// an assembled program in logical time.
//
// # Assembly
//
// A program is a tree of Reactor values. Assemble calls Reactor.Assemble
// on the main reactor, which declares ports, actions, timers, children and
// reactions through its AssemblyCtx:
//
//	func (p *Pinger) Assemble(c *reactor.AssemblyCtx) {
//		p.out = reactor.NewPort[int](c, "out", reactor.Output)
//		t := c.NewTimer("tick", 0, 10*time.Millisecond)
//		c.NewReaction("ping", func(rc *reactor.ReactionCtx) error {
//			reactor.Set(rc, p.out, p.count)
//			p.count++
//			return nil
//		}).TriggeredBy(t).Effects(p.out)
//	}
//
// Assembly builds the dependency graph once and fails with a
// depgraph.AssemblyError on cycles, duplicate names and invalid
// dependencies or bindings. The resulting Program is immutable.
//
// # Execution
//
// A SyncScheduler processes tags in order. At each tag it executes the
// triggered reactions level by level; the reactions of one level may run
// concurrently on a bounded number of workers. Reactions communicate
// through a ReactionCtx, which checks every access against the
// dependencies declared at assembly.
//
// Physical actions are scheduled from other goroutines through a
// PhysicalSchedulerLink or a PhysicalActionRef.
//
// # Determinism
//
// For a program without physical actions, the trace of a run in fast mode
// does not depend on the number of workers.
package reactor
