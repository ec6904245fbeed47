package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Scenarios(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_StoresRun(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/delay.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, "delay-run", result.Run.ID)
	assert.Equal(t, int64(1), result.Run.Seq)
	assert.Equal(t, "delay", result.Run.Program)
	assert.Equal(t, "fast", result.Run.Mode)
	assert.Equal(t, 1, result.Run.Workers)
	assert.Equal(t, "exhausted", result.Run.Reason)
	assert.Equal(t, 5*time.Millisecond, result.Run.FinalElapsed)
	assert.Equal(t, uint32(1), result.Run.FinalMicrostep)
	assert.Equal(t, 3, result.Run.TagsProcessed)
	assert.Equal(t, 2, result.Run.ReactionsExecuted)
	assert.NotEmpty(t, result.Run.Digest)
	assert.Len(t, result.Trace, 8)
}

func TestRun_DefaultRunID(t *testing.T) {
	s := &Scenario{
		Name:       "default_id",
		Program:    "delay",
		Assertions: []Assertion{{Type: AssertReason, Reason: "exhausted"}},
	}
	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, "test-run-default", result.Run.ID)
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/diamond.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Run.Digest, second.Run.Digest)
	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_WorkerCountDoesNotChangeTrace(t *testing.T) {
	base := &Scenario{
		Name:       "bank",
		Program:    "bank",
		Params:     map[string]any{"width": 4, "count": 3},
		Assertions: []Assertion{{Type: AssertReason, Reason: "shutdown"}},
	}

	var digests []string
	for _, workers := range []int{1, 2, 4} {
		s := *base
		s.Options = map[string]any{"workers": workers}
		result, err := Run(&s)
		require.NoError(t, err)
		require.True(t, result.Pass, "workers=%d errors: %v", workers, result.Errors)
		digests = append(digests, result.Run.Digest)
	}
	assert.Equal(t, digests[0], digests[1])
	assert.Equal(t, digests[0], digests[2])
}

func TestRun_FailingAssertion(t *testing.T) {
	s := &Scenario{
		Name:    "wrong_value",
		Program: "delay",
		Params:  map[string]any{"value": 1},
		Assertions: []Assertion{
			{Type: AssertTraceContains, EventMatch: EventMatch{Kind: "set", Trigger: "main.out", Value: 2}},
			{Type: AssertReason, Reason: "shutdown"},
		},
	}
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 2)
}

func TestRun_InvalidOptions(t *testing.T) {
	s := &Scenario{
		Name:       "bad_options",
		Program:    "delay",
		Options:    map[string]any{"workers": 0},
		Assertions: []Assertion{{Type: AssertReason, Reason: "exhausted"}},
	}
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad_options")
}

func TestRun_UnknownParam(t *testing.T) {
	s := &Scenario{
		Name:       "bad_params",
		Program:    "delay",
		Params:     map[string]any{"bogus": 1},
		Assertions: []Assertion{{Type: AssertReason, Reason: "exhausted"}},
	}
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestRun_PhysicalProgram(t *testing.T) {
	s := &Scenario{
		Name:    "sensor",
		Program: "sensor",
		Params:  map[string]any{"count": 2, "interval": "1 msec"},
		Options: map[string]any{"keepalive": true, "timeout": "5 sec"},
		Assertions: []Assertion{
			{Type: AssertTraceCount, EventMatch: EventMatch{Kind: "tag", Trigger: "main.reading"}, Count: 2},
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := RunContext(ctx, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
