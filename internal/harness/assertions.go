package harness

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/reactorrt/internal/store"
	"github.com/roach88/reactorrt/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, trace.FormatEvent(event))
		}
	}

	return buf.String()
}

// String renders the match the way it is written in a scenario.
func (m EventMatch) String() string {
	var parts []string
	if m.Kind != "" {
		parts = append(parts, "kind="+m.Kind)
	}
	if m.Reaction != "" {
		parts = append(parts, "reaction="+m.Reaction)
	}
	if m.Trigger != "" {
		parts = append(parts, "trigger="+m.Trigger)
	}
	if m.Value != nil {
		parts = append(parts, "value="+canonicalString(m.Value))
	}
	if m.At != "" {
		parts = append(parts, "at="+m.At)
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Matches reports whether e satisfies every field set in m.
func (m EventMatch) Matches(e trace.Event) bool {
	if m.Kind != "" && string(e.Kind) != m.Kind {
		return false
	}
	if m.Reaction != "" && e.Reaction != m.Reaction {
		return false
	}
	if m.Trigger != "" {
		if e.Kind == trace.KindTag {
			if !slices.Contains(e.Triggers, m.Trigger) {
				return false
			}
		} else if e.Trigger != m.Trigger {
			return false
		}
	}
	if m.Value != nil && !valuesEqual(e.Value, m.Value) {
		return false
	}
	if m.At != "" && e.At.String() != m.At {
		return false
	}
	return true
}

// valuesEqual compares values by canonical JSON, so a YAML int matches
// the json.Number read back from the store.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	a, err := trace.MarshalCanonical(actual)
	if err != nil {
		return false
	}
	b, err := trace.MarshalCanonical(expected)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func canonicalString(v any) string {
	b, err := trace.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// assertTraceContains checks that some event matches.
func assertTraceContains(events []trace.Event, assertion Assertion) error {
	for _, e := range events {
		if assertion.EventMatch.Matches(e) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: "event matching " + assertion.EventMatch.String(),
		Actual:   "not found in trace",
		Trace:    events,
	}
}

// assertTraceOrder checks that the expected events appear in order.
// Events don't need to be consecutive (intervening events are allowed).
func assertTraceOrder(events []trace.Event, assertion Assertion) error {
	pos := 0
	prev := -1
	for i, want := range assertion.Events {
		found := -1
		for j := pos; j < len(events); j++ {
			if want.Matches(events[j]) {
				found = j
				break
			}
		}
		if found < 0 {
			actual := fmt.Sprintf("no event matching %s", want)
			if i > 0 {
				actual += fmt.Sprintf(" after seq %d", events[prev].Seq)
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual:   actual,
				Trace:    events,
			}
		}
		prev = found
		pos = found + 1
	}
	return nil
}

// assertTraceCount checks that exactly Count events match.
func assertTraceCount(events []trace.Event, assertion Assertion) error {
	count := 0
	for _, e := range events {
		if assertion.EventMatch.Matches(e) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d events matching %s", assertion.Count, assertion.EventMatch),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    events,
		}
	}

	return nil
}

// assertReason checks how the run ended.
func assertReason(run store.Run, assertion Assertion) error {
	if run.Reason == assertion.Reason {
		return nil
	}
	actual := run.Reason
	if run.Error != "" {
		actual += ": " + run.Error
	}
	return &AssertionError{
		Type:     AssertReason,
		Expected: assertion.Reason,
		Actual:   actual,
	}
}

// assertFinalTag checks the tag the run ended at.
func assertFinalTag(run store.Run, assertion Assertion) error {
	final := trace.Stamp{Elapsed: run.FinalElapsed, Microstep: run.FinalMicrostep}
	if final.String() == assertion.At {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalTag,
		Expected: assertion.At,
		Actual:   final.String(),
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertReason:
			err = assertReason(result.Run, assertion)
		case AssertFinalTag:
			err = assertFinalTag(result.Run, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
