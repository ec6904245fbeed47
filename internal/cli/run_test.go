package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactorrt/internal/store"
)

const delayTrace = `(T0 + 0s, 0) tag [startup]
(T0 + 0s, 0)   reaction main/0@A
(T0 + 0s, 0)     schedule main.act = 42 -> (T0 + 5ms, 0)
(T0 + 5ms, 0) tag [main.act]
(T0 + 5ms, 0)   reaction main/1@B
(T0 + 5ms, 0)     set main.out = 42
(T0 + 5ms, 1) tag [shutdown]
(T0 + 5ms, 1) shutdown reason=exhausted
`

func TestRunText(t *testing.T) {
	out, err := execute(t, testRunCommand("text"), "delay", "--mode", "fast", "--print-trace")
	require.NoError(t, err)

	assert.Contains(t, out, delayTrace)
	assert.Contains(t, out, "program:   delay (fast, 1 workers)")
	assert.Contains(t, out, "reason:    exhausted")
	assert.Contains(t, out, "final tag: (T0 + 5ms, 1)")
	assert.NotContains(t, out, "run id:")
}

func TestRunJSON(t *testing.T) {
	out, err := execute(t, testRunCommand("json"), "pingpong", "--mode", "fast", "--workers", "2", "--param", "count=4")
	require.NoError(t, err)

	var summary RunSummary
	resp := decodeData(t, out, &summary)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "pingpong", summary.Program)
	assert.Equal(t, 2, summary.Workers)
	assert.Equal(t, "shutdown", summary.Reason)
	assert.Equal(t, "(T0 + 4ms, 1)", summary.FinalTag)
	assert.Len(t, summary.Digest, 64)
	assert.Empty(t, summary.Trace)
}

func TestRunStoresRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, testRunCommand("json", "run-1"), "delay", "--mode", "fast", "--db", dbPath, "--param", "value=7")
	require.NoError(t, err)

	var summary RunSummary
	resp := decodeData(t, out, &summary)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "run-1", summary.RunID)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "delay", run.Program)
	assert.Equal(t, "exhausted", run.Reason)
	assert.Equal(t, summary.Digest, run.Digest)
	assert.Equal(t, 5*time.Millisecond, run.FinalElapsed)
	assert.Equal(t, json.Number("7"), run.Params["value"])

	events, err := st.ReadTrace(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Len(t, events, 8)
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
mode: fast
workers: 2
params:
  count: 2
  period: "1 msec"
`), 0o644))

	out, err := execute(t, testRunCommand("json"), "timer", "--config", cfgPath)
	require.NoError(t, err)

	var summary RunSummary
	decodeData(t, out, &summary)
	assert.Equal(t, "fast", summary.Mode)
	assert.Equal(t, 2, summary.Workers)
	assert.Equal(t, "(T0 + 1ms, 1)", summary.FinalTag)
}

func TestRunPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.cue")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`mode: "realtime"
workers: 2
`), 0o644))

	cmd := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		Environ:     map[string]string{"REACTORRT_MODE": "fast", "REACTORRT_WORKERS": "3"},
	})
	out, err := execute(t, cmd, "delay", "--config", cfgPath, "--workers", "4")
	require.NoError(t, err)

	var summary RunSummary
	decodeData(t, out, &summary)
	// env beats file, flags beat env
	assert.Equal(t, "fast", summary.Mode)
	assert.Equal(t, 4, summary.Workers)
}

func TestRunTimeout(t *testing.T) {
	out, err := execute(t, testRunCommand("json"), "timer", "--mode", "fast", "--timeout", "250 msec", "--param", "count=100")
	require.NoError(t, err)

	var summary RunSummary
	decodeData(t, out, &summary)
	assert.Equal(t, "timeout", summary.Reason)
	assert.Equal(t, "(T0 + 250ms, 0)", summary.FinalTag)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
		code int
	}{
		{"unknown program", []string{"nope"}, "failed to assemble program", ExitCommandError},
		{"bad mode", []string{"delay", "--mode", "slow"}, "invalid configuration", ExitCommandError},
		{"bad workers", []string{"delay", "--workers", "0"}, "invalid configuration", ExitCommandError},
		{"bad timeout", []string{"delay", "--timeout", "soon"}, "invalid configuration", ExitCommandError},
		{"missing config", []string{"delay", "--config", "/nonexistent/run.yaml"}, "invalid configuration", ExitCommandError},
		{"bad param", []string{"delay", "--param", "value"}, "invalid parameters", ExitCommandError},
		{"missing arg", nil, "accepts 1 arg", ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, testRunCommand("text"), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, tt.code, GetExitCode(err))
		})
	}
}

func TestMetricsServer(t *testing.T) {
	reg := newMetricsRegistry()
	srv, err := startMetricsServer("127.0.0.1:0", reg)
	require.NoError(t, err)
	defer func() { _ = srv.Stop() }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRunWithMetricsAddr(t *testing.T) {
	_, err := execute(t, testRunCommand("text"), "diamond", "--mode", "fast", "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)
}
