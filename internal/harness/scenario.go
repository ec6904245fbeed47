package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reactorrt/internal/programs"
	"github.com/roach88/reactorrt/internal/trace"
)

// Scenario defines a conformance test scenario.
// A scenario runs one built-in program with fixed parameters and options
// and asserts on the resulting trace and run outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the registered name of the program to run.
	Program string `yaml:"program"`

	// Params are the program parameters.
	Params map[string]any `yaml:"params,omitempty"`

	// Options are run options in config file form (mode, workers, timeout,
	// keepalive, max_microsteps). Mode defaults to "fast".
	Options map[string]any `yaml:"options,omitempty"`

	// Assertions validate the trace and the outcome.
	// Supported types: trace_contains, trace_order, trace_count, reason, final_tag
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id for the stored run.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// EventMatch selects trace events. Empty fields match anything.
type EventMatch struct {
	// Kind is the event kind: tag, reaction, set, schedule or shutdown.
	Kind string `yaml:"kind,omitempty"`

	// Reaction is the reaction label, e.g. "main/1@B".
	Reaction string `yaml:"reaction,omitempty"`

	// Trigger is the port or action label, e.g. "main.out". For tag events
	// it matches any of the present triggers.
	Trigger string `yaml:"trigger,omitempty"`

	// Value is compared by canonical JSON, so 42 matches a stored 42.
	Value any `yaml:"value,omitempty"`

	// At is the tag in rendered form, e.g. "(T0 + 5ms, 0)".
	At string `yaml:"at,omitempty"`
}

// Assertion validates the trace or the outcome of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": some event matches
	// - "trace_order": events matching Events appear in that order
	// - "trace_count": exactly Count events match
	// - "reason": the run ended with Reason
	// - "final_tag": the run ended at tag At
	Type string `yaml:"type"`

	// EventMatch selects events for trace_contains and trace_count.
	EventMatch `yaml:",inline"`

	// Events is the expected event order (used by trace_order).
	Events []EventMatch `yaml:"events,omitempty"`

	// Count is the expected number of matching events (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Reason is the expected termination reason (used by reason).
	Reason string `yaml:"reason,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertReason        = "reason"
	AssertFinalTag      = "final_tag"
)

var (
	validKinds = []string{
		string(trace.KindTag), string(trace.KindReaction), string(trace.KindSet),
		string(trace.KindSchedule), string(trace.KindShutdown),
	}
	validReasons = []string{"exhausted", "shutdown", "timeout", "error"}
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation
// (catches typos like "assertion:" vs "assertions:").
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file
// name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, ok := programs.Lookup(s.Program); !ok {
		return fmt.Errorf("unknown program %q (available: %v)", s.Program, programs.Names())
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.EventMatch.empty() {
			return fmt.Errorf("assertions[%d]: kind, reaction, trigger, value or at is required for trace_contains", index)
		}
		return validateMatch(fmt.Sprintf("assertions[%d]", index), a.EventMatch)
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
		for j, m := range a.Events {
			if m.empty() {
				return fmt.Errorf("assertions[%d].events[%d]: empty event match", index, j)
			}
			if err := validateMatch(fmt.Sprintf("assertions[%d].events[%d]", index, j), m); err != nil {
				return err
			}
		}
	case AssertTraceCount:
		if a.EventMatch.empty() {
			return fmt.Errorf("assertions[%d]: kind, reaction, trigger, value or at is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
		return validateMatch(fmt.Sprintf("assertions[%d]", index), a.EventMatch)
	case AssertReason:
		if !slices.Contains(validReasons, a.Reason) {
			return fmt.Errorf("assertions[%d]: reason must be one of %v, got %q", index, validReasons, a.Reason)
		}
	case AssertFinalTag:
		if a.At == "" {
			return fmt.Errorf("assertions[%d]: at is required for final_tag", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q (valid: trace_contains, trace_order, trace_count, reason, final_tag)", index, a.Type)
	}

	return nil
}

func validateMatch(where string, m EventMatch) error {
	if m.Kind != "" && !slices.Contains(validKinds, m.Kind) {
		return fmt.Errorf("%s: unknown event kind %q (valid: %v)", where, m.Kind, validKinds)
	}
	return nil
}

func (m EventMatch) empty() bool {
	return m.Kind == "" && m.Reaction == "" && m.Trigger == "" && m.Value == nil && m.At == ""
}
