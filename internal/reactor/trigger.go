package reactor

import (
	"github.com/roach88/reactorrt/internal/depgraph"
	"github.com/roach88/reactorrt/internal/ids"
	"github.com/roach88/reactorrt/internal/ltime"
)

// Trigger is anything a reaction may depend on: ports, port banks,
// actions, timers, and the startup and shutdown events.
type Trigger interface {
	// ID returns the program-wide trigger id.
	ID() ids.TriggerID
	// Name returns the name given at declaration.
	Name() string

	meta() *triggerMeta
}

// Source is a trigger carrying a value at the tags where it is present.
type Source[T any] interface {
	Trigger
	read(tag ltime.EventTag) (T, bool)
}

// Direction tells inputs from outputs. Only ports and banks have one.
type Direction uint8

const (
	NoDirection Direction = iota
	Input
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	}
	return "none"
}

// triggerMeta is the assembly-time identity of a trigger. asm is the
// assembler that declared it; ids are only unique within one assembler.
type triggerMeta struct {
	id    ids.TriggerID
	name  string
	label string
	kind  depgraph.Kind
	owner ids.ReactorID
	dir   Direction
	asm   *Assembler
}

// eventTrigger is the startup or shutdown trigger as seen from one reactor.
type eventTrigger struct {
	m triggerMeta
}

func (e *eventTrigger) ID() ids.TriggerID  { return e.m.id }
func (e *eventTrigger) Name() string       { return e.m.name }
func (e *eventTrigger) meta() *triggerMeta { return &e.m }

// valueSlot is a trigger whose per-tag values must be dropped once a tag
// has been processed.
type valueSlot interface {
	Trigger
	clearAt(tag ltime.EventTag)
	reset()
}
