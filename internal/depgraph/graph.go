package depgraph

import (
	"sort"

	"github.com/roach88/reactorrt/internal/ids"
)

// Reaction describes a reaction of an assembled program.
type Reaction struct {
	ID    ids.GlobalReactionID
	Label string
	// Index is the position in declaration order.
	Index int
	// Level is the longest path length from any root of the precedence
	// relation. Reactions on a path have strictly increasing levels.
	Level int
	// Triggers, Uses and Effects are expanded to bank channels.
	Triggers []ids.TriggerID
	Uses     []ids.TriggerID
	Effects  []ids.TriggerID
}

// Trigger describes a trigger of an assembled program.
type Trigger struct {
	ID    ids.TriggerID
	Kind  Kind
	Label string
	// Root is the port whose value this port observes through bindings.
	// It is the trigger itself for unbound ports and all other kinds.
	Root ids.TriggerID
	// Channels lists the channels of a bank.
	Channels []ids.TriggerID
}

// Edge is a precedence edge between two reactions, by declaration index.
type Edge struct {
	From, To int
}

// Graph is the immutable dependency graph of an assembled program.
//
// It is safe for concurrent use.
type Graph struct {
	reactions  []Reaction
	byReaction map[ids.GlobalReactionID]int
	triggers   []Trigger
	byTrigger  map[ids.TriggerID]int
	succ       [][]int
	levels     [][]int
	fanout     map[ids.TriggerID][]int
	serialized []Edge
}

// Build validates the declarations and freezes them into a Graph.
func (b *Builder) Build() (*Graph, error) {
	if path := findCycle(b.sameTagEdges()); path != nil {
		labels := make([]string, len(path))
		for i, ref := range path {
			labels[i] = b.label(nodeRef(ref))
		}
		return nil, newCycleError(labels)
	}

	g := &Graph{
		byReaction: make(map[ids.GlobalReactionID]int, len(b.reactions)),
		byTrigger:  make(map[ids.TriggerID]int, len(b.byTrigger)),
		fanout:     make(map[ids.TriggerID][]int),
	}
	b.freezeTriggers(g)

	index := make(map[nodeRef]int, len(b.reactions))
	for i, ref := range b.reactions {
		index[ref] = i
	}
	for i, ref := range b.reactions {
		rn := b.nodes[ref].reaction
		g.byReaction[rn.id] = i
		g.reactions = append(g.reactions, Reaction{
			ID:       rn.id,
			Label:    rn.label,
			Index:    i,
			Triggers: b.triggerIDs(rn.triggers),
			Uses:     b.triggerIDs(rn.uses),
			Effects:  b.triggerIDs(rn.effects),
		})
	}

	g.succ = b.precedence(index)
	level, err := g.serialize()
	if err != nil {
		return nil, err
	}
	g.assignLevels(level)
	b.computeFanout(g, index)
	return g, nil
}

// sameTagEdges returns the adjacency over all nodes restricted to edges
// that order work within one tag.
func (b *Builder) sameTagEdges() [][]int {
	adj := make([][]int, len(b.nodes))
	for i, n := range b.nodes {
		if rn := n.reaction; rn != nil {
			for _, e := range rn.effects {
				if b.nodes[e].trigger.kind == KindPort {
					adj[i] = append(adj[i], int(e))
				}
			}
			for _, a := range rn.after {
				adj[i] = append(adj[i], int(a))
			}
			continue
		}
		tn := n.trigger
		if tn.kind != KindPort {
			continue
		}
		for _, d := range tn.bindings {
			adj[i] = append(adj[i], int(d))
		}
		for _, r := range tn.readers {
			adj[i] = append(adj[i], int(r))
		}
	}
	return adj
}

func (b *Builder) label(ref nodeRef) string {
	if rn := b.nodes[ref].reaction; rn != nil {
		return rn.label
	}
	return b.nodes[ref].trigger.label
}

func (b *Builder) triggerIDs(refs []nodeRef) []ids.TriggerID {
	out := make([]ids.TriggerID, len(refs))
	for i, ref := range refs {
		out[i] = b.nodes[ref].trigger.id
	}
	return out
}

func (b *Builder) root(ref nodeRef) nodeRef {
	for b.nodes[ref].trigger.upstream != noNode {
		ref = b.nodes[ref].trigger.upstream
	}
	return ref
}

// downstream returns ref and every port reachable from it via bindings.
func (b *Builder) downstream(ref nodeRef) []nodeRef {
	out := []nodeRef{ref}
	for i := 0; i < len(out); i++ {
		out = append(out, b.nodes[out[i]].trigger.bindings...)
	}
	return out
}

func (b *Builder) freezeTriggers(g *Graph) {
	for _, n := range b.nodes {
		tn := n.trigger
		if tn == nil {
			continue
		}
		t := Trigger{ID: tn.id, Kind: tn.kind, Label: tn.label, Root: tn.id}
		if tn.kind == KindPort {
			t.Root = b.nodes[b.root(b.byTrigger[tn.id])].trigger.id
		}
		if tn.kind == KindBank {
			t.Channels = b.triggerIDs(tn.channels)
		}
		g.triggers = append(g.triggers, t)
	}
	sort.Slice(g.triggers, func(i, j int) bool { return g.triggers[i].ID < g.triggers[j].ID })
	for i, t := range g.triggers {
		g.byTrigger[t.ID] = i
	}
}

// precedence derives reaction successors, by declaration index: explicit
// priorities plus writer -> reader through ports and bindings.
func (b *Builder) precedence(index map[nodeRef]int) [][]int {
	succ := make([][]int, len(b.reactions))
	for i, ref := range b.reactions {
		rn := b.nodes[ref].reaction
		seen := map[int]bool{}
		add := func(j int) {
			if j != i && !seen[j] {
				seen[j] = true
				succ[i] = append(succ[i], j)
			}
		}
		for _, a := range rn.after {
			add(index[a])
		}
		for _, e := range rn.effects {
			if b.nodes[e].trigger.kind != KindPort {
				continue
			}
			for _, p := range b.downstream(e) {
				for _, r := range b.nodes[p].trigger.readers {
					add(index[r])
				}
			}
		}
		sort.Ints(succ[i])
	}
	return succ
}

// serialize orders conflicting same-level reactions by declaration index
// until no level holds a conflicting pair. Same-level reactions have no
// path between them, so the added edges never close a cycle.
func (g *Graph) serialize() ([]int, error) {
	for {
		level, err := longestPath(g.succ)
		if err != nil {
			return nil, err
		}
		var byLevel [][]int
		for i, l := range level {
			for len(byLevel) <= l {
				byLevel = append(byLevel, nil)
			}
			byLevel[l] = append(byLevel[l], i)
		}
		added := false
		for _, members := range byLevel {
			for x := 0; x < len(members); x++ {
				for y := x + 1; y < len(members); y++ {
					i, j := members[x], members[y]
					if g.conflict(i, j) {
						g.succ[i] = append(g.succ[i], j)
						g.serialized = append(g.serialized, Edge{From: i, To: j})
						added = true
					}
				}
			}
		}
		if !added {
			return level, nil
		}
		for i := range g.succ {
			sort.Ints(g.succ[i])
		}
	}
}

// conflict reports whether two reactions must not run concurrently: they
// effect a common port or action, or one schedules an action the other
// reads.
func (g *Graph) conflict(i, j int) bool {
	a, b := &g.reactions[i], &g.reactions[j]
	if intersects(a.Effects, b.Effects) {
		return true
	}
	return g.schedulesRead(a, b) || g.schedulesRead(b, a)
}

func (g *Graph) schedulesRead(w, r *Reaction) bool {
	for _, e := range w.Effects {
		if !g.triggers[g.byTrigger[e]].Kind.IsAction() {
			continue
		}
		if contains(r.Triggers, e) || contains(r.Uses, e) {
			return true
		}
	}
	return false
}

// longestPath assigns each node the length of the longest path reaching
// it. The adjacency must be acyclic.
func longestPath(succ [][]int) ([]int, error) {
	indeg := make([]int, len(succ))
	for _, ss := range succ {
		for _, j := range ss {
			indeg[j]++
		}
	}
	queue := make([]int, 0, len(succ))
	for i, d := range indeg {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	level := make([]int, len(succ))
	done := 0
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		done++
		for _, j := range succ[i] {
			level[j] = max(level[j], level[i]+1)
			indeg[j]--
			if indeg[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	if done != len(succ) {
		return nil, Errorf(ErrCodeCyclicDependency, "reaction precedence is cyclic")
	}
	return level, nil
}

func (g *Graph) assignLevels(level []int) {
	n := 0
	for i, l := range level {
		g.reactions[i].Level = l
		n = max(n, l+1)
	}
	g.levels = make([][]int, n)
	for i, l := range level {
		g.levels[l] = append(g.levels[l], i)
	}
}

func (b *Builder) computeFanout(g *Graph, index map[nodeRef]int) {
	for ref, n := range b.nodes {
		tn := n.trigger
		if tn == nil || tn.kind == KindBank {
			continue
		}
		seen := map[int]bool{}
		var out []int
		for _, p := range b.downstream(nodeRef(ref)) {
			for _, r := range b.nodes[p].trigger.readers {
				i := index[r]
				if !seen[i] && contains(g.reactions[i].Triggers, b.nodes[p].trigger.id) {
					seen[i] = true
					out = append(out, i)
				}
			}
		}
		if len(out) == 0 {
			continue
		}
		sort.Slice(out, func(x, y int) bool { return g.less(out[x], out[y]) })
		g.fanout[tn.id] = out
	}
}

// less orders reactions by level, then declaration index.
func (g *Graph) less(i, j int) bool {
	a, b := g.reactions[i], g.reactions[j]
	if a.Level != b.Level {
		return a.Level < b.Level
	}
	return a.Index < b.Index
}

func intersects(a, b []ids.TriggerID) bool {
	for _, x := range a {
		if contains(b, x) {
			return true
		}
	}
	return false
}

func contains(s []ids.TriggerID, t ids.TriggerID) bool {
	for _, x := range s {
		if x == t {
			return true
		}
	}
	return false
}

// NumReactions returns the number of reactions.
func (g *Graph) NumReactions() int { return len(g.reactions) }

// Reaction returns the reaction with declaration index i.
func (g *Graph) Reaction(i int) Reaction { return g.reactions[i] }

// ReactionIndex returns the declaration index of a reaction.
func (g *Graph) ReactionIndex(id ids.GlobalReactionID) (int, bool) {
	i, ok := g.byReaction[id]
	return i, ok
}

// Levels returns reaction indices grouped by level, each group in
// declaration order. The returned slices must not be modified.
func (g *Graph) Levels() [][]int { return g.levels }

// NumLevels returns the number of levels.
func (g *Graph) NumLevels() int { return len(g.levels) }

// Successors returns the precedence successors of reaction i, including
// serialization edges.
func (g *Graph) Successors(i int) []int { return g.succ[i] }

// Serialized returns the edges added to order conflicting reactions.
func (g *Graph) Serialized() []Edge { return g.serialized }

// Dependents returns the reactions triggered when t is present, ordered
// by level then declaration index. For a port this includes reactions
// triggered by ports bound downstream of it.
func (g *Graph) Dependents(t ids.TriggerID) []int { return g.fanout[t] }

// HasDependents reports whether any reaction is triggered by t.
func (g *Graph) HasDependents(t ids.TriggerID) bool { return len(g.fanout[t]) > 0 }

// Trigger returns the description of a trigger.
func (g *Graph) Trigger(t ids.TriggerID) (Trigger, bool) {
	i, ok := g.byTrigger[t]
	if !ok {
		return Trigger{}, false
	}
	return g.triggers[i], true
}

// Triggers returns all triggers ordered by id.
func (g *Graph) Triggers() []Trigger { return g.triggers }

// Root returns the port whose value t observes, or t itself.
func (g *Graph) Root(t ids.TriggerID) ids.TriggerID {
	if i, ok := g.byTrigger[t]; ok {
		return g.triggers[i].Root
	}
	return t
}
