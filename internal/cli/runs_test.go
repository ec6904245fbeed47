package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedRuns stores a delay run ("run-a") and a timer run ("run-b").
func seedRuns(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	_, err := execute(t, testRunCommand("text", "run-a"), "delay", "--mode", "fast", "--db", dbPath)
	require.NoError(t, err)
	_, err = execute(t, testRunCommand("text", "run-b"), "timer", "--mode", "fast", "--db", dbPath, "--param", "count=2")
	require.NoError(t, err)
	return dbPath
}

func TestRunsList(t *testing.T) {
	dbPath := seedRuns(t)

	out, err := execute(t, NewRunsCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	var list RunList
	decodeData(t, out, &list)
	require.Len(t, list.Runs, 2)
	assert.Equal(t, "run-a", list.Runs[0].ID)
	assert.Equal(t, int64(1), list.Runs[0].Seq)
	assert.Equal(t, "(T0 + 5ms, 1)", list.Runs[0].FinalTag)
	assert.Equal(t, "run-b", list.Runs[1].ID)
	assert.Equal(t, "shutdown", list.Runs[1].Reason)

	out, err = execute(t, NewRunsCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--program", "timer")
	require.NoError(t, err)
	assert.Contains(t, out, "run-b")
	assert.NotContains(t, out, "run-a")
}

func TestRunsErrors(t *testing.T) {
	_, err := execute(t, NewRunsCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	_, err = execute(t, NewRunsCommand(&RootOptions{Format: "text"}), "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
}

func TestTraceText(t *testing.T) {
	dbPath := seedRuns(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "run-a")
	require.NoError(t, err)

	assert.Contains(t, out, "Run run-a (delay, reason=exhausted, final (T0 + 5ms, 1))")
	assert.Contains(t, out, delayTrace)
	assert.Contains(t, out, "Stats: 8 events, 3 tags, 2 reactions, 1 sets, 1 schedules")
	assert.Contains(t, out, "(verified)")
}

func TestTraceFilters(t *testing.T) {
	dbPath := seedRuns(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--run", "run-b", "--kind", "set")
	require.NoError(t, err)

	var result TraceResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "run-b", resp.RunID)
	assert.Equal(t, 3, result.Stats.Sets)
	assert.Equal(t, result.Stats.Sets, result.Stats.TotalEvents)
	assert.False(t, result.Stats.DigestVerified)

	out, err = execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--run", "run-b", "--reaction", "main/0@tick")
	require.NoError(t, err)
	decodeData(t, out, &result)
	assert.Equal(t, 2, result.Stats.Reactions)
	assert.Equal(t, 2, result.Stats.Sets)
	assert.Zero(t, result.Stats.Tags)
}

func TestTraceErrors(t *testing.T) {
	dbPath := seedRuns(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing run flag", []string{"--db", dbPath}, "required flag"},
		{"unknown run", []string{"--db", dbPath, "--run", "nope"}, "run not found: nope"},
		{"bad kind", []string{"--db", dbPath, "--run", "run-a", "--kind", "emit"}, "invalid kind"},
		{"missing db", []string{"--db", filepath.Join(t.TempDir(), "x.db"), "--run", "run-a"}, "database not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
