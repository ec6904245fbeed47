package depgraph

import (
	"github.com/roach88/reactorrt/internal/ids"
)

// Kind is the kind of a trigger node.
type Kind uint8

const (
	KindStartup Kind = iota
	KindShutdown
	KindPort
	KindBank
	KindLogicalAction
	KindPhysicalAction
	KindTimer
)

var kindNames = [...]string{
	KindStartup:        "startup",
	KindShutdown:       "shutdown",
	KindPort:           "port",
	KindBank:           "bank",
	KindLogicalAction:  "logical-action",
	KindPhysicalAction: "physical-action",
	KindTimer:          "timer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsAction reports whether the kind is a logical or physical action.
func (k Kind) IsAction() bool {
	return k == KindLogicalAction || k == KindPhysicalAction
}

// nodeRef is an index into the node arena.
type nodeRef int

const noNode nodeRef = -1

type triggerNode struct {
	id       ids.TriggerID
	kind     Kind
	label    string
	channels []nodeRef // bank only
	bank     nodeRef   // bank channel only
	upstream nodeRef   // ports only
	bindings []nodeRef // ports only
	readers  []nodeRef // reactions that trigger on or use this node
	writers  []nodeRef // reactions that effect this node
}

type reactionNode struct {
	id       ids.GlobalReactionID
	label    string
	triggers []nodeRef
	uses     []nodeRef
	effects  []nodeRef
	after    []nodeRef // explicit reaction successors
}

// node is either a trigger or a reaction.
type node struct {
	trigger  *triggerNode
	reaction *reactionNode
}

// Builder collects declarations and produces a Graph. A Builder is not
// safe for concurrent use and must not be reused after Build.
type Builder struct {
	nodes      []node
	byTrigger  map[ids.TriggerID]nodeRef
	byReaction map[ids.GlobalReactionID]nodeRef
	reactions  []nodeRef // declaration order
}

// NewBuilder returns a builder holding the startup and shutdown triggers.
func NewBuilder() *Builder {
	b := &Builder{
		byTrigger:  make(map[ids.TriggerID]nodeRef),
		byReaction: make(map[ids.GlobalReactionID]nodeRef),
	}
	b.addTriggerNode(ids.StartupTrigger, KindStartup, "startup")
	b.addTriggerNode(ids.ShutdownTrigger, KindShutdown, "shutdown")
	return b
}

func (b *Builder) addTriggerNode(id ids.TriggerID, kind Kind, label string) nodeRef {
	ref := nodeRef(len(b.nodes))
	b.nodes = append(b.nodes, node{trigger: &triggerNode{
		id:       id,
		kind:     kind,
		label:    label,
		bank:     noNode,
		upstream: noNode,
	}})
	b.byTrigger[id] = ref
	return ref
}

// AddTrigger declares a port, action or timer. Banks are declared with
// AddBank.
func (b *Builder) AddTrigger(id ids.TriggerID, kind Kind, label string) error {
	if kind == KindBank || kind == KindStartup || kind == KindShutdown {
		return Errorf(ErrCodeInvalidDependency, "cannot declare %s trigger %s", kind, label)
	}
	if _, exists := b.byTrigger[id]; exists {
		return Errorf(ErrCodeDuplicateID, "trigger %s declared twice", label)
	}
	b.addTriggerNode(id, kind, label)
	return nil
}

// AddBank declares a port bank over already declared channel ports.
func (b *Builder) AddBank(id ids.TriggerID, label string, channels []ids.TriggerID) error {
	if _, exists := b.byTrigger[id]; exists {
		return Errorf(ErrCodeDuplicateID, "trigger %s declared twice", label)
	}
	refs := make([]nodeRef, 0, len(channels))
	for i, ch := range channels {
		ref, ok := b.byTrigger[ch]
		if !ok {
			return Errorf(ErrCodeDanglingDependency, "bank %s channel %d is not declared", label, i)
		}
		tn := b.nodes[ref].trigger
		if tn.kind != KindPort || tn.bank != noNode {
			return Errorf(ErrCodeInvalidBank, "bank %s channel %d must be a plain port", label, i)
		}
		refs = append(refs, ref)
	}
	bankRef := b.addTriggerNode(id, KindBank, label)
	b.nodes[bankRef].trigger.channels = refs
	for _, ref := range refs {
		b.nodes[ref].trigger.bank = bankRef
	}
	return nil
}

// AddReaction declares a reaction. Reactions are ordered by the sequence
// of AddReaction calls.
func (b *Builder) AddReaction(id ids.GlobalReactionID, label string) error {
	if _, exists := b.byReaction[id]; exists {
		return Errorf(ErrCodeDuplicateID, "reaction %s declared twice", label)
	}
	ref := nodeRef(len(b.nodes))
	b.nodes = append(b.nodes, node{reaction: &reactionNode{id: id, label: label}})
	b.byReaction[id] = ref
	b.reactions = append(b.reactions, ref)
	return nil
}

func (b *Builder) reaction(id ids.GlobalReactionID) (nodeRef, *reactionNode, error) {
	ref, ok := b.byReaction[id]
	if !ok {
		return noNode, nil, Errorf(ErrCodeDanglingDependency, "reaction %s is not declared", id)
	}
	return ref, b.nodes[ref].reaction, nil
}

func (b *Builder) trigger(id ids.TriggerID) (nodeRef, *triggerNode, error) {
	ref, ok := b.byTrigger[id]
	if !ok {
		return noNode, nil, Errorf(ErrCodeDanglingDependency, "trigger %s is not declared", id)
	}
	return ref, b.nodes[ref].trigger, nil
}

// expand returns the port channels of a bank, or the node itself.
func (b *Builder) expand(ref nodeRef) []nodeRef {
	if tn := b.nodes[ref].trigger; tn.kind == KindBank {
		return tn.channels
	}
	return []nodeRef{ref}
}

// AddTriggeredBy declares that reaction r fires when t is present.
// Triggering on a bank means triggering on each of its channels.
func (b *Builder) AddTriggeredBy(r ids.GlobalReactionID, t ids.TriggerID) error {
	rref, rn, err := b.reaction(r)
	if err != nil {
		return err
	}
	tref, _, err := b.trigger(t)
	if err != nil {
		return err
	}
	for _, ch := range b.expand(tref) {
		rn.triggers = appendUnique(rn.triggers, ch)
		tn := b.nodes[ch].trigger
		tn.readers = appendUnique(tn.readers, rref)
	}
	return nil
}

// AddUses declares that reaction r reads t without being triggered by it.
func (b *Builder) AddUses(r ids.GlobalReactionID, t ids.TriggerID) error {
	rref, rn, err := b.reaction(r)
	if err != nil {
		return err
	}
	tref, tn, err := b.trigger(t)
	if err != nil {
		return err
	}
	if tn.kind == KindStartup || tn.kind == KindShutdown {
		return Errorf(ErrCodeInvalidDependency, "reaction %s cannot use %s", rn.label, tn.label)
	}
	for _, ch := range b.expand(tref) {
		rn.uses = appendUnique(rn.uses, ch)
		cn := b.nodes[ch].trigger
		cn.readers = appendUnique(cn.readers, rref)
	}
	return nil
}

// AddEffect declares that reaction r writes port t or schedules action t.
// Effecting a bank means effecting each of its channels.
func (b *Builder) AddEffect(r ids.GlobalReactionID, t ids.TriggerID) error {
	rref, rn, err := b.reaction(r)
	if err != nil {
		return err
	}
	tref, tn, err := b.trigger(t)
	if err != nil {
		return err
	}
	switch tn.kind {
	case KindStartup, KindShutdown, KindTimer:
		return Errorf(ErrCodeInvalidDependency, "reaction %s cannot have %s %s as an effect", rn.label, tn.kind, tn.label)
	}
	for _, ch := range b.expand(tref) {
		cn := b.nodes[ch].trigger
		if cn.upstream != noNode {
			return Errorf(ErrCodeInvalidBinding, "port %s is bound to %s and cannot be an effect of %s",
				cn.label, b.nodes[cn.upstream].trigger.label, rn.label)
		}
		rn.effects = appendUnique(rn.effects, ch)
		cn.writers = appendUnique(cn.writers, rref)
	}
	return nil
}

// AddPriority declares that reaction before runs before reaction after
// whenever both fire at the same tag.
func (b *Builder) AddPriority(before, after ids.GlobalReactionID) error {
	_, bn, err := b.reaction(before)
	if err != nil {
		return err
	}
	aref, _, err := b.reaction(after)
	if err != nil {
		return err
	}
	bn.after = appendUnique(bn.after, aref)
	return nil
}

// Bind forwards every value of port up to port down. Banks are bound
// channel by channel and must have the same width.
func (b *Builder) Bind(up, down ids.TriggerID) error {
	uref, un, err := b.trigger(up)
	if err != nil {
		return err
	}
	dref, dn, err := b.trigger(down)
	if err != nil {
		return err
	}
	ups, downs := b.expand(uref), b.expand(dref)
	if un.kind == KindBank || dn.kind == KindBank {
		if un.kind != dn.kind || len(ups) != len(downs) {
			return Errorf(ErrCodeInvalidBinding, "cannot bind %s to %s: bank widths differ", un.label, dn.label)
		}
	}
	for i := range ups {
		if err := b.bindPorts(ups[i], downs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) bindPorts(up, down nodeRef) error {
	un, dn := b.nodes[up].trigger, b.nodes[down].trigger
	if un.kind != KindPort || dn.kind != KindPort {
		return Errorf(ErrCodeInvalidBinding, "cannot bind %s %s to %s %s: only ports can be bound",
			un.kind, un.label, dn.kind, dn.label)
	}
	if up == down {
		return Errorf(ErrCodeInvalidBinding, "cannot bind port %s to itself", un.label)
	}
	if dn.upstream != noNode {
		return Errorf(ErrCodeInvalidBinding, "port %s is already bound to %s",
			dn.label, b.nodes[dn.upstream].trigger.label)
	}
	if len(dn.writers) > 0 {
		return Errorf(ErrCodeInvalidBinding, "port %s is an effect of %s and cannot be bound",
			dn.label, b.nodes[dn.writers[0]].reaction.label)
	}
	dn.upstream = up
	un.bindings = append(un.bindings, down)
	return nil
}

func appendUnique(s []nodeRef, r nodeRef) []nodeRef {
	for _, x := range s {
		if x == r {
			return s
		}
	}
	return append(s, r)
}
