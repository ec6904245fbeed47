package ids

import (
	"fmt"
	"strings"
)

// RootName is the instance name of the top-level reactor.
const RootName = "main"

// ReactorDebugInfo describes a reactor instance for diagnostics.
type ReactorDebugInfo struct {
	// TypeName is the reactor's type, e.g. "Source".
	TypeName string
	// InstName is the last segment of the instance path.
	InstName string
	// InstPath is the slash separated path from the root, e.g. "main/src".
	InstPath string
}

// RootDebugInfo returns the debug info of the top-level reactor.
func RootDebugInfo(typeName string) ReactorDebugInfo {
	return ReactorDebugInfo{TypeName: typeName, InstName: RootName, InstPath: RootName}
}

// Child derives the debug info of a child instance.
func (d ReactorDebugInfo) Child(typeName, instName string) ReactorDebugInfo {
	return ReactorDebugInfo{
		TypeName: typeName,
		InstName: instName,
		InstPath: d.InstPath + "/" + instName,
	}
}

func (d ReactorDebugInfo) String() string { return d.InstPath }

// DebugInfoRegistry maps ids to human-readable labels.
//
// It is filled during assembly and read-only afterwards, so concurrent
// readers need no locking once the program is built.
type DebugInfoRegistry struct {
	reactors  []ReactorDebugInfo
	triggers  map[TriggerID]string
	owners    map[TriggerID]ReactorID
	reactions map[GlobalReactionID]string
}

// NewDebugInfoRegistry creates an empty registry.
func NewDebugInfoRegistry() *DebugInfoRegistry {
	return &DebugInfoRegistry{
		triggers:  make(map[TriggerID]string),
		owners:    make(map[TriggerID]ReactorID),
		reactions: make(map[GlobalReactionID]string),
	}
}

// RecordReactor registers the next reactor. Reactor ids must be recorded in
// increasing order starting at zero.
func (r *DebugInfoRegistry) RecordReactor(id ReactorID, info ReactorDebugInfo) error {
	if int(id) != len(r.reactors) {
		return fmt.Errorf("reactor %d recorded out of order (expected %d)", id, len(r.reactors))
	}
	r.reactors = append(r.reactors, info)
	return nil
}

// RecordTrigger registers the label of a trigger owned by a reactor.
func (r *DebugInfoRegistry) RecordTrigger(id TriggerID, owner ReactorID, label string) {
	r.triggers[id] = label
	r.owners[id] = owner
}

// RecordReaction registers an optional reaction label.
func (r *DebugInfoRegistry) RecordReaction(id GlobalReactionID, label string) {
	if label != "" {
		r.reactions[id] = label
	}
}

// Reactor returns the debug info of a reactor.
func (r *DebugInfoRegistry) Reactor(id ReactorID) (ReactorDebugInfo, bool) {
	if int(id) >= len(r.reactors) {
		return ReactorDebugInfo{}, false
	}
	return r.reactors[id], true
}

// NumReactors returns the number of recorded reactors.
func (r *DebugInfoRegistry) NumReactors() int { return len(r.reactors) }

// TriggerOwner returns the reactor that declared a trigger.
func (r *DebugInfoRegistry) TriggerOwner(id TriggerID) (ReactorID, bool) {
	owner, ok := r.owners[id]
	return owner, ok
}

// FmtReaction renders a reaction as "path/local", with "@label" appended
// when the reaction has a label.
func (r *DebugInfoRegistry) FmtReaction(id GlobalReactionID) string {
	var b strings.Builder
	if info, ok := r.Reactor(id.Container()); ok {
		b.WriteString(info.InstPath)
	} else {
		fmt.Fprintf(&b, "r%d", id.Container())
	}
	fmt.Fprintf(&b, "/%d", id.Local())
	if label, ok := r.reactions[id]; ok {
		b.WriteString("@")
		b.WriteString(label)
	}
	return b.String()
}

// FmtTrigger renders a trigger as "path.label". Startup and shutdown
// render as their names.
func (r *DebugInfoRegistry) FmtTrigger(id TriggerID) string {
	if id.IsReserved() {
		return id.String()
	}
	label, ok := r.triggers[id]
	if !ok {
		return id.String()
	}
	owner := r.owners[id]
	if info, ok := r.Reactor(owner); ok {
		return info.InstPath + "." + label
	}
	return label
}
