package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/reactorrt/internal/trace"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a test run with minimal required fields.
func createTestRun(id, program string) Run {
	return Run{
		ID:                id,
		Program:           program,
		Params:            map[string]any{},
		Mode:              "fast",
		Workers:           1,
		Reason:            "exhausted",
		FinalElapsed:      3 * time.Millisecond,
		FinalMicrostep:    1,
		TagsProcessed:     4,
		ReactionsExecuted: 4,
	}
}

func stamp(d time.Duration, m uint32) trace.Stamp {
	return trace.Stamp{Elapsed: d, Microstep: m}
}

// createTestTrace builds a small trace exercising every event field.
func createTestTrace() []trace.Event {
	target := stamp(5*time.Millisecond, 0)
	return []trace.Event{
		{Seq: 0, Kind: trace.KindTag, At: stamp(0, 0), Triggers: []string{"startup"}},
		{Seq: 1, Kind: trace.KindReaction, At: stamp(0, 0), Reaction: "main/0@start"},
		{Seq: 2, Kind: trace.KindSet, At: stamp(0, 0), Reaction: "main/0@start", Trigger: "main.out", Value: 42},
		{Seq: 3, Kind: trace.KindSchedule, At: stamp(0, 0), Reaction: "main/0@start", Trigger: "main.a",
			Value: map[string]any{"name": "ping", "n": 1}, Target: &target},
		{Seq: 4, Kind: trace.KindTag, At: target, Triggers: []string{"main.a"}},
		{Seq: 5, Kind: trace.KindShutdown, At: stamp(5*time.Millisecond, 1), Reason: "exhausted"},
	}
}
