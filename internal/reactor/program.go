package reactor

import (
	"errors"
	"sort"
	"sync/atomic"

	"github.com/roach88/reactorrt/internal/depgraph"
	"github.com/roach88/reactorrt/internal/ids"
)

// errProgramBusy is returned when two schedulers run one program at once.
var errProgramBusy = errors.New("program is already running")

// Program is an assembled reactor tree together with its frozen
// dependency graph. No structural change is possible once it exists.
//
// A Program may be run by one scheduler at a time. Reactor state lives in
// the reactor values themselves, so runs that must start from scratch
// should assemble a fresh Program.
type Program struct {
	name      string
	graph     *depgraph.Graph
	debug     *ids.DebugInfoRegistry
	reactions []*reactionEntry
	ports     []portSlot
	actions   map[ids.TriggerID]valueSlot
	timers    []*Timer
	physical  []Trigger
	labels    map[ids.TriggerID]string

	running atomic.Bool
}

// Name returns the type name of the main reactor.
func (p *Program) Name() string { return p.name }

// Graph returns the dependency graph.
func (p *Program) Graph() *depgraph.Graph { return p.graph }

// Debug returns the id registry of the program.
func (p *Program) Debug() *ids.DebugInfoRegistry { return p.debug }

// NumReactions returns the number of reactions.
func (p *Program) NumReactions() int { return len(p.reactions) }

// Timers returns the timers of the program in declaration order.
func (p *Program) Timers() []*Timer { return p.timers }

// HasPhysicalActions reports whether any reactor declared a physical action.
func (p *Program) HasPhysicalActions() bool { return len(p.physical) > 0 }

// TriggerLabel returns the full label of a trigger, e.g. "main/src.out".
func (p *Program) TriggerLabel(id ids.TriggerID) string {
	if l, ok := p.labels[id]; ok {
		return l
	}
	return id.String()
}

// ReactionLabel returns the label of the reaction with declaration index i.
func (p *Program) ReactionLabel(i int) string { return p.reactions[i].label }

// LevelDescription lists reaction labels per level.
type LevelDescription struct {
	Level     int      `json:"level"`
	Reactions []string `json:"reactions"`
}

// Describe returns the level structure of the program.
func (p *Program) Describe() []LevelDescription {
	out := make([]LevelDescription, 0, p.graph.NumLevels())
	for l, members := range p.graph.Levels() {
		d := LevelDescription{Level: l}
		for _, i := range members {
			d.Reactions = append(d.Reactions, p.reactions[i].label)
		}
		out = append(out, d)
	}
	return out
}

// TriggerLabels returns all trigger labels sorted by id.
func (p *Program) TriggerLabels() []string {
	keys := make([]ids.TriggerID, 0, len(p.labels))
	for id := range p.labels {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]string, len(keys))
	for i, id := range keys {
		out[i] = p.labels[id]
	}
	return out
}

func (p *Program) timer(id ids.TriggerID) *Timer {
	for _, t := range p.timers {
		if t.m.id == id {
			return t
		}
	}
	return nil
}

// resetValues drops every port and action value left by a run.
func (p *Program) resetValues() {
	for _, port := range p.ports {
		port.clear()
	}
	for _, a := range p.actions {
		a.reset()
	}
}
