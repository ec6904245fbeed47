package trace

import (
	"fmt"
	"io"
	"strings"
)

// Render writes a human-readable trace, one event per line, indented by
// nesting: tags, then reactions, then their effects.
//
//	(T0 + 0s, 0) tag [startup]
//	(T0 + 0s, 0)   reaction main/src/0@emit
//	(T0 + 0s, 0)     set main/src.out = 1
func Render(w io.Writer, events []Event) error {
	for _, e := range events {
		if _, err := fmt.Fprintln(w, FormatEvent(e)); err != nil {
			return err
		}
	}
	return nil
}

// RenderString renders a trace into a string.
func RenderString(events []Event) string {
	var b strings.Builder
	_ = Render(&b, events)
	return b.String()
}

// FormatEvent renders one event without a trailing newline.
func FormatEvent(e Event) string {
	at := e.At.String()
	switch e.Kind {
	case KindTag:
		return fmt.Sprintf("%s tag [%s]", at, strings.Join(e.Triggers, ", "))
	case KindReaction:
		return fmt.Sprintf("%s   reaction %s", at, e.Reaction)
	case KindSet:
		return fmt.Sprintf("%s     set %s = %s", at, e.Trigger, formatValue(e.Value))
	case KindSchedule:
		target := "?"
		if e.Target != nil {
			target = e.Target.String()
		}
		return fmt.Sprintf("%s     schedule %s = %s -> %s", at, e.Trigger, formatValue(e.Value), target)
	case KindShutdown:
		return fmt.Sprintf("%s shutdown reason=%s", at, e.Reason)
	}
	return fmt.Sprintf("%s %s", at, e.Kind)
}

func formatValue(v any) string {
	b, err := MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
