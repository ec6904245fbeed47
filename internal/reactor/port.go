package reactor

import (
	"github.com/roach88/reactorrt/internal/ids"
	"github.com/roach88/reactorrt/internal/ltime"
)

// Port is a single-slot value cell scoped to one tag.
//
// A port holds at most one present value per tag. The scheduler clears
// it once the tag has been processed, so a later read without a new write
// observes absence.
//
// A port bound downstream of another port has no cell of its own: it
// reads the value of the root of its binding chain.
type Port[T any] struct {
	m        triggerMeta
	upstream *Port[T]
	root     *Port[T]

	value   T
	present bool
}

func (p *Port[T]) ID() ids.TriggerID  { return p.m.id }
func (p *Port[T]) Name() string       { return p.m.name }
func (p *Port[T]) meta() *triggerMeta { return &p.m }

// Direction returns whether the port is an input or an output.
func (p *Port[T]) Direction() Direction { return p.m.dir }

func (p *Port[T]) cell() *Port[T] {
	if p.root != nil {
		return p.root
	}
	c := p
	for c.upstream != nil {
		c = c.upstream
	}
	return c
}

func (p *Port[T]) read(ltime.EventTag) (T, bool) {
	c := p.cell()
	return c.value, c.present
}

func (p *Port[T]) write(v T) {
	p.value = v
	p.present = true
}

func (p *Port[T]) clear() {
	var zero T
	p.value = zero
	p.present = false
}

// resolve flattens the binding chain once assembly is complete.
func (p *Port[T]) resolve() {
	p.root = nil
	p.root = p.cell()
}

// portSlot is the type-erased side of a port used by the scheduler.
type portSlot interface {
	Trigger
	clear()
	resolve()
}

// PortBank is an ordered sequence of ports declared together, used for
// replicated children. Triggering on a bank means triggering on any of its
// channels; effecting a bank means effecting all of them.
type PortBank[T any] struct {
	m     triggerMeta
	ports []*Port[T]
}

func (b *PortBank[T]) ID() ids.TriggerID  { return b.m.id }
func (b *PortBank[T]) Name() string       { return b.m.name }
func (b *PortBank[T]) meta() *triggerMeta { return &b.m }

// Len returns the number of channels.
func (b *PortBank[T]) Len() int { return len(b.ports) }

// Port returns channel i.
func (b *PortBank[T]) Port(i int) *Port[T] { return b.ports[i] }

// Direction returns whether the bank is an input or an output bank.
func (b *PortBank[T]) Direction() Direction { return b.m.dir }
