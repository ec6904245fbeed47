package ids

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when an id space is exhausted.
var ErrOverflow = errors.New("id overflow")

// ReactorID identifies a reactor instance within a program.
type ReactorID uint16

// LocalReactionID identifies a reaction within its reactor. Local ids follow
// declaration order, so they double as the reactor-local priority.
type LocalReactionID uint16

// MaxReactors and MaxLocalReactions bound the two id spaces.
const (
	MaxReactors       = math.MaxUint16 + 1
	MaxLocalReactions = math.MaxUint16 + 1
)

// GlobalID packs a reactor id and a local id into one value:
// reactor<<16 | local.
type GlobalID uint32

// NewGlobalID builds the global id of local within container.
func NewGlobalID(container ReactorID, local LocalReactionID) GlobalID {
	return GlobalID(uint32(container)<<16 | uint32(local))
}

// Container returns the reactor part of the id.
func (g GlobalID) Container() ReactorID { return ReactorID(g >> 16) }

// Local returns the local part of the id.
func (g GlobalID) Local() LocalReactionID { return LocalReactionID(g & 0xffff) }

func (g GlobalID) String() string {
	return fmt.Sprintf("%d/%d", g.Container(), g.Local())
}

// GlobalReactionID identifies a reaction within a program.
type GlobalReactionID struct {
	GlobalID
}

// NewGlobalReactionID returns the id of reaction local of reactor container.
func NewGlobalReactionID(container ReactorID, local LocalReactionID) GlobalReactionID {
	return GlobalReactionID{NewGlobalID(container, local)}
}

// Less orders reaction ids by reactor, then by declaration order.
func (r GlobalReactionID) Less(o GlobalReactionID) bool {
	return r.GlobalID < o.GlobalID
}

// TriggerID identifies a port, port bank channel, action or timer.
//
// Trigger ids come from one program-wide counter. The first two values are
// reserved for the startup and shutdown triggers shared by every reactor.
type TriggerID uint32

const (
	// StartupTrigger fires once at the first tag of a run.
	StartupTrigger TriggerID = 0
	// ShutdownTrigger fires once at the last tag of a run.
	ShutdownTrigger TriggerID = 1
	// FirstRegularTrigger is the first id handed out by a TriggerAllocator.
	FirstRegularTrigger TriggerID = 2
)

// IsReserved reports whether t is the startup or shutdown trigger.
func (t TriggerID) IsReserved() bool { return t < FirstRegularTrigger }

func (t TriggerID) String() string {
	switch t {
	case StartupTrigger:
		return "startup"
	case ShutdownTrigger:
		return "shutdown"
	}
	return fmt.Sprintf("t%d", uint32(t))
}

// TriggerAllocator hands out trigger ids in increasing order.
type TriggerAllocator struct {
	next TriggerID
	done bool
}

// NewTriggerAllocator returns an allocator starting at FirstRegularTrigger.
func NewTriggerAllocator() *TriggerAllocator {
	return &TriggerAllocator{next: FirstRegularTrigger}
}

// Next returns a fresh trigger id.
func (a *TriggerAllocator) Next() (TriggerID, error) {
	if a.done {
		return 0, fmt.Errorf("trigger ids: %w", ErrOverflow)
	}
	id := a.next
	if id == math.MaxUint32 {
		a.done = true
	} else {
		a.next++
	}
	return id, nil
}

// Count returns the number of trigger ids in use, reserved ones included.
func (a *TriggerAllocator) Count() int {
	if a.done {
		return int(a.next) + 1
	}
	return int(a.next)
}
