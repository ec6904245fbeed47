package reactor

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/reactorrt/internal/depgraph"
	"github.com/roach88/reactorrt/internal/ids"
	"github.com/roach88/reactorrt/internal/ltime"
)

// Reactor is a component that declares its ports, actions, timers,
// children and reactions when assembled.
//
// Assemble is called exactly once per instance. Declaration errors are
// collected by the context; the first one aborts assembly of the program.
type Reactor interface {
	Assemble(ctx *AssemblyCtx)
}

// ReactionFunc is the body of a reaction. A returned error ends the run.
type ReactionFunc func(ctx *ReactionCtx) error

type reactorInfo struct {
	id       ids.ReactorID
	parent   ids.ReactorID
	root     bool
	path     string
	names    map[string]bool
	children map[ids.ReactorID]bool
	reacts   int
	last     *reactionEntry
}

type reactionEntry struct {
	id     ids.GlobalReactionID
	label  string
	index  int
	body   ReactionFunc
	reads  map[ids.TriggerID]bool
	writes map[ids.TriggerID]bool
}

// Assembler builds a Program from a tree of reactors.
type Assembler struct {
	builder   *depgraph.Builder
	alloc     *ids.TriggerAllocator
	debug     *ids.DebugInfoRegistry
	reactors  []*reactorInfo
	reactions []*reactionEntry
	ports     []portSlot
	slots     []valueSlot
	timers    []*Timer
	physical  []Trigger
	labels    map[ids.TriggerID]string
	err       error
}

// Assemble assembles main and everything below it into a Program.
func Assemble(main Reactor) (*Program, error) {
	a := &Assembler{
		builder: depgraph.NewBuilder(),
		alloc:   ids.NewTriggerAllocator(),
		debug:   ids.NewDebugInfoRegistry(),
		labels: map[ids.TriggerID]string{
			ids.StartupTrigger:  ids.StartupTrigger.String(),
			ids.ShutdownTrigger: ids.ShutdownTrigger.String(),
		},
	}
	root, err := a.newReactor(nil, ids.RootDebugInfo(typeName(main)))
	if err != nil {
		return nil, err
	}
	ctx := &AssemblyCtx{asm: a, reactor: root}
	main.Assemble(ctx)
	if a.err != nil {
		return nil, a.err
	}
	return a.finish(typeName(main))
}

func typeName(r Reactor) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", r), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func (a *Assembler) newReactor(parent *reactorInfo, info ids.ReactorDebugInfo) (*reactorInfo, error) {
	if len(a.reactors) >= ids.MaxReactors {
		return nil, depgraph.Errorf(depgraph.ErrCodeIDOverflow, "too many reactors")
	}
	r := &reactorInfo{
		id:       ids.ReactorID(len(a.reactors)),
		root:     parent == nil,
		path:     info.InstPath,
		names:    make(map[string]bool),
		children: make(map[ids.ReactorID]bool),
	}
	if parent != nil {
		r.parent = parent.id
		parent.children[r.id] = true
	}
	if err := a.debug.RecordReactor(r.id, info); err != nil {
		return nil, err
	}
	a.reactors = append(a.reactors, r)
	return r, nil
}

func (a *Assembler) finish(name string) (*Program, error) {
	graph, err := a.builder.Build()
	if err != nil {
		return nil, err
	}
	for _, p := range a.ports {
		p.resolve()
	}
	actions := make(map[ids.TriggerID]valueSlot, len(a.slots))
	for _, s := range a.slots {
		actions[s.ID()] = s
	}
	return &Program{
		name:      name,
		graph:     graph,
		debug:     a.debug,
		reactions: a.reactions,
		ports:     a.ports,
		actions:   actions,
		timers:    a.timers,
		physical:  a.physical,
		labels:    a.labels,
	}, nil
}

// AssemblyCtx is the declaration surface of one reactor instance.
type AssemblyCtx struct {
	asm     *Assembler
	reactor *reactorInfo
}

// Path returns the instance path of the reactor, e.g. "main/src".
func (c *AssemblyCtx) Path() string { return c.reactor.path }

// Err returns the first declaration error of the program, if any.
func (c *AssemblyCtx) Err() error { return c.asm.err }

func (c *AssemblyCtx) fail(err error) {
	if c.asm.err == nil {
		c.asm.err = depgraph.InContext(err, c.reactor.path)
	}
}

func (c *AssemblyCtx) isChild(r ids.ReactorID) bool {
	return c.reactor.children[r]
}

func (c *AssemblyCtx) declare(name string, kind depgraph.Kind, dir Direction) triggerMeta {
	m := triggerMeta{name: name, kind: kind, owner: c.reactor.id, dir: dir, asm: c.asm}
	m.label = c.reactor.path + "." + name
	if c.reactor.names[name] {
		c.fail(depgraph.Errorf(depgraph.ErrCodeDuplicateID, "%s %s declared twice", kind, name))
		return m
	}
	c.reactor.names[name] = true
	m.id = c.allocID()
	return m
}

func (c *AssemblyCtx) allocID() ids.TriggerID {
	id, err := c.asm.alloc.Next()
	if err != nil {
		c.fail(depgraph.Errorf(depgraph.ErrCodeIDOverflow, "%v", err))
	}
	return id
}

func (c *AssemblyCtx) register(m *triggerMeta) {
	if c.asm.err != nil {
		return
	}
	if err := c.asm.builder.AddTrigger(m.id, m.kind, m.label); err != nil {
		c.fail(err)
		return
	}
	c.asm.debug.RecordTrigger(m.id, m.owner, m.name)
	c.asm.labels[m.id] = m.label
}

// Startup returns the trigger present at the first tag of a run.
func (c *AssemblyCtx) Startup() Trigger {
	return &eventTrigger{m: triggerMeta{
		id: ids.StartupTrigger, name: "startup", label: "startup",
		kind: depgraph.KindStartup, owner: c.reactor.id, asm: c.asm,
	}}
}

// Shutdown returns the trigger present at the last tag of a run.
func (c *AssemblyCtx) Shutdown() Trigger {
	return &eventTrigger{m: triggerMeta{
		id: ids.ShutdownTrigger, name: "shutdown", label: "shutdown",
		kind: depgraph.KindShutdown, owner: c.reactor.id, asm: c.asm,
	}}
}

// NewPort declares a port of this reactor.
func NewPort[T any](c *AssemblyCtx, name string, dir Direction) *Port[T] {
	p := &Port[T]{m: c.declare(name, depgraph.KindPort, dir)}
	if dir == NoDirection {
		c.fail(depgraph.Errorf(depgraph.ErrCodeInvalidDependency, "port %s needs a direction", name))
	}
	c.register(&p.m)
	c.asm.ports = append(c.asm.ports, p)
	return p
}

// NewPortBank declares width ports named name[0] .. name[width-1] that are
// addressed together.
func NewPortBank[T any](c *AssemblyCtx, name string, dir Direction, width int) *PortBank[T] {
	b := &PortBank[T]{m: c.declare(name, depgraph.KindBank, dir)}
	if width <= 0 || dir == NoDirection {
		c.fail(depgraph.Errorf(depgraph.ErrCodeInvalidBank, "bank %s needs a direction and a positive width, got %d", name, width))
		return b
	}
	channels := make([]ids.TriggerID, 0, width)
	for i := 0; i < width; i++ {
		p := &Port[T]{m: triggerMeta{
			id:    c.allocID(),
			name:  fmt.Sprintf("%s[%d]", name, i),
			kind:  depgraph.KindPort,
			owner: c.reactor.id,
			dir:   dir,
			asm:   c.asm,
		}}
		p.m.label = c.reactor.path + "." + p.m.name
		c.register(&p.m)
		c.asm.ports = append(c.asm.ports, p)
		b.ports = append(b.ports, p)
		channels = append(channels, p.m.id)
	}
	if c.asm.err != nil {
		return b
	}
	if err := c.asm.builder.AddBank(b.m.id, b.m.label, channels); err != nil {
		c.fail(err)
		return b
	}
	c.asm.debug.RecordTrigger(b.m.id, b.m.owner, b.m.name)
	c.asm.labels[b.m.id] = b.m.label
	return b
}

// NewLogicalAction declares a logical action with a minimum delay.
func NewLogicalAction[T any](c *AssemblyCtx, name string, minDelay time.Duration) *LogicalAction[T] {
	a := &LogicalAction[T]{
		m:        c.declare(name, depgraph.KindLogicalAction, NoDirection),
		minDelay: minDelay,
		values:   make(map[ltime.EventTag]T),
	}
	c.checkDelay(name, minDelay)
	c.register(&a.m)
	c.asm.slots = append(c.asm.slots, a)
	return a
}

// NewPhysicalAction declares a physical action with a minimum delay.
func NewPhysicalAction[T any](c *AssemblyCtx, name string, minDelay time.Duration) *PhysicalAction[T] {
	a := &PhysicalAction[T]{
		m:        c.declare(name, depgraph.KindPhysicalAction, NoDirection),
		minDelay: minDelay,
		values:   make(map[ltime.EventTag]T),
	}
	c.checkDelay(name, minDelay)
	c.register(&a.m)
	c.asm.slots = append(c.asm.slots, a)
	c.asm.physical = append(c.asm.physical, a)
	return a
}

func (c *AssemblyCtx) checkDelay(name string, d time.Duration) {
	if d < 0 {
		c.fail(depgraph.Errorf(depgraph.ErrCodeInvalidDependency, "action %s has negative minimum delay %s", name, d))
	}
}

// NewTimer declares a timer firing at offset and then every period.
func (c *AssemblyCtx) NewTimer(name string, offset, period time.Duration) *Timer {
	t := &Timer{
		m:      c.declare(name, depgraph.KindTimer, NoDirection),
		offset: offset,
		period: period,
	}
	if offset < 0 || period < 0 {
		c.fail(depgraph.Errorf(depgraph.ErrCodeInvalidDependency, "timer %s has negative offset or period", name))
	}
	c.register(&t.m)
	c.asm.timers = append(c.asm.timers, t)
	return t
}

// AssembleChild assembles child as a direct child of this reactor. The
// child's ports become visible to this reactor's reactions and bindings.
func (c *AssemblyCtx) AssembleChild(name string, child Reactor) {
	if c.asm.err != nil {
		return
	}
	if c.reactor.names[name] {
		c.fail(depgraph.Errorf(depgraph.ErrCodeDuplicateID, "child %s declared twice", name))
		return
	}
	c.reactor.names[name] = true
	parentInfo, _ := c.asm.debug.Reactor(c.reactor.id)
	r, err := c.asm.newReactor(c.reactor, parentInfo.Child(typeName(child), name))
	if err != nil {
		c.fail(err)
		return
	}
	child.Assemble(&AssemblyCtx{asm: c.asm, reactor: r})
}

// NewReaction declares a reaction of this reactor. Reactions of one
// reactor run in declaration order when they fire at the same tag.
func (c *AssemblyCtx) NewReaction(label string, body ReactionFunc) *ReactionBuilder {
	b := &ReactionBuilder{c: c}
	if c.asm.err != nil {
		return b
	}
	if c.reactor.reacts >= ids.MaxLocalReactions {
		c.fail(depgraph.Errorf(depgraph.ErrCodeIDOverflow, "too many reactions"))
		return b
	}
	id := ids.NewGlobalReactionID(c.reactor.id, ids.LocalReactionID(c.reactor.reacts))
	c.reactor.reacts++
	c.asm.debug.RecordReaction(id, label)
	e := &reactionEntry{
		id:     id,
		label:  c.asm.debug.FmtReaction(id),
		index:  len(c.asm.reactions),
		body:   body,
		reads:  make(map[ids.TriggerID]bool),
		writes: make(map[ids.TriggerID]bool),
	}
	if err := c.asm.builder.AddReaction(id, e.label); err != nil {
		c.fail(err)
		return b
	}
	if prev := c.reactor.last; prev != nil {
		if err := c.asm.builder.AddPriority(prev.id, id); err != nil {
			c.fail(err)
			return b
		}
	}
	c.reactor.last = e
	c.asm.reactions = append(c.asm.reactions, e)
	b.entry = e
	return b
}

// ReactionBuilder declares the dependencies of a reaction.
//
// Triggers and uses must be inputs of the reactor, outputs of a direct
// child, or the reactor's own actions and timers. Effects must be outputs
// of the reactor, inputs of a direct child, or the reactor's own actions.
type ReactionBuilder struct {
	c     *AssemblyCtx
	entry *reactionEntry
}

// TriggeredBy declares triggers that make the reaction fire. Triggers are
// readable by the reaction.
func (b *ReactionBuilder) TriggeredBy(ts ...Trigger) *ReactionBuilder {
	return b.declare(ts, "trigger", b.c.canRead, b.c.asm.builder.AddTriggeredBy, b.addRead)
}

// Uses declares triggers the reaction reads without being triggered.
func (b *ReactionBuilder) Uses(ts ...Trigger) *ReactionBuilder {
	return b.declare(ts, "use", b.c.canRead, b.c.asm.builder.AddUses, b.addRead)
}

// Effects declares ports the reaction writes and actions it schedules.
func (b *ReactionBuilder) Effects(ts ...Trigger) *ReactionBuilder {
	return b.declare(ts, "effect", b.c.canWrite, b.c.asm.builder.AddEffect, b.addWrite)
}

func (b *ReactionBuilder) declare(
	ts []Trigger,
	what string,
	allowed func(*triggerMeta) bool,
	add func(ids.GlobalReactionID, ids.TriggerID) error,
	grant func(Trigger),
) *ReactionBuilder {
	if b.entry == nil || b.c.asm.err != nil {
		return b
	}
	for _, t := range ts {
		m := t.meta()
		if !b.c.declared(m) {
			return b
		}
		if !allowed(m) {
			b.c.fail(depgraph.Errorf(depgraph.ErrCodeInvalidDependency,
				"reaction %s cannot declare %s %s as a %s", b.entry.label, m.kind, m.label, what))
			return b
		}
		if err := add(b.entry.id, m.id); err != nil {
			b.c.fail(err)
			return b
		}
		grant(t)
	}
	return b
}

func (b *ReactionBuilder) addRead(t Trigger) {
	for _, id := range expandIDs(t) {
		b.entry.reads[id] = true
	}
}

func (b *ReactionBuilder) addWrite(t Trigger) {
	for _, id := range expandIDs(t) {
		b.entry.writes[id] = true
	}
}

// bankLike exposes the channel ids of a bank without its element type.
type bankLike interface {
	channelIDs() []ids.TriggerID
}

func (b *PortBank[T]) channelIDs() []ids.TriggerID {
	out := make([]ids.TriggerID, len(b.ports))
	for i, p := range b.ports {
		out[i] = p.m.id
	}
	return out
}

func expandIDs(t Trigger) []ids.TriggerID {
	out := []ids.TriggerID{t.ID()}
	if bank, ok := t.(bankLike); ok {
		out = append(out, bank.channelIDs()...)
	}
	return out
}

// declared reports whether m was declared by this program. Handles from
// another Assemble call are dangling here even when their ids collide with
// local triggers.
func (c *AssemblyCtx) declared(m *triggerMeta) bool {
	if m.asm == c.asm {
		return true
	}
	c.fail(depgraph.Errorf(depgraph.ErrCodeDanglingDependency,
		"%s %s was not declared in this program", m.kind, m.label))
	return false
}

func (c *AssemblyCtx) canRead(m *triggerMeta) bool {
	switch m.kind {
	case depgraph.KindStartup, depgraph.KindShutdown:
		return true
	case depgraph.KindPort, depgraph.KindBank:
		if m.owner == c.reactor.id {
			return m.dir == Input
		}
		return c.isChild(m.owner) && m.dir == Output
	}
	return m.owner == c.reactor.id
}

func (c *AssemblyCtx) canWrite(m *triggerMeta) bool {
	switch m.kind {
	case depgraph.KindPort, depgraph.KindBank:
		if m.owner == c.reactor.id {
			return m.dir == Output
		}
		return c.isChild(m.owner) && m.dir == Input
	case depgraph.KindLogicalAction, depgraph.KindPhysicalAction:
		return m.owner == c.reactor.id
	}
	return false
}

// canBind checks the binding rules: an input of this reactor feeds an
// input of a direct child or an output of this reactor; an output of a
// direct child feeds an input of a different direct child or an output of
// this reactor.
func (c *AssemblyCtx) canBind(up, down *triggerMeta) bool {
	self := c.reactor.id
	toOwnOutput := down.owner == self && down.dir == Output
	switch {
	case up.owner == self && up.dir == Input:
		return toOwnOutput || (c.isChild(down.owner) && down.dir == Input)
	case c.isChild(up.owner) && up.dir == Output:
		return toOwnOutput || (c.isChild(down.owner) && down.owner != up.owner && down.dir == Input)
	}
	return false
}

// BindPorts forwards every value of up to down. The downstream port may be
// bound once and may not be the effect of any reaction.
func BindPorts[T any](c *AssemblyCtx, up, down *Port[T]) {
	if c.asm.err != nil || !c.declared(&up.m) || !c.declared(&down.m) {
		return
	}
	if !c.canBind(&up.m, &down.m) {
		c.fail(depgraph.Errorf(depgraph.ErrCodeInvalidBinding, "cannot bind %s %s to %s %s",
			up.m.dir, up.m.label, down.m.dir, down.m.label))
		return
	}
	if err := c.asm.builder.Bind(up.m.id, down.m.id); err != nil {
		c.fail(err)
		return
	}
	down.upstream = up
}

// BindBanks binds two banks of equal width channel by channel.
func BindBanks[T any](c *AssemblyCtx, up, down *PortBank[T]) {
	if c.asm.err != nil || !c.declared(&up.m) || !c.declared(&down.m) {
		return
	}
	if !c.canBind(&up.m, &down.m) {
		c.fail(depgraph.Errorf(depgraph.ErrCodeInvalidBinding, "cannot bind %s %s to %s %s",
			up.m.dir, up.m.label, down.m.dir, down.m.label))
		return
	}
	if err := c.asm.builder.Bind(up.m.id, down.m.id); err != nil {
		c.fail(err)
		return
	}
	for i := range down.ports {
		down.ports[i].upstream = up.ports[i]
	}
}
