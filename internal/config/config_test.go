package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactorrt/internal/reactor"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_CUE(t *testing.T) {
	path := writeFile(t, "run.cue", `
mode:    "fast"
workers: 4
timeout: "2 sec"
params: count: 10
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fast", c.Mode)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, "2 sec", c.Timeout)
	assert.False(t, c.KeepAlive)
	assert.Contains(t, c.Params, "count")

	opts, err := c.SchedulerOptions()
	require.NoError(t, err)
	assert.Equal(t, reactor.ModeFast, opts.Mode)
	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, 2*time.Second, opts.Timeout)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "run.yaml", `
mode: realtime
keepalive: true
timeout: 1m30s
db: runs.db
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "realtime", c.Mode)
	assert.Equal(t, 1, c.Workers, "schema default")
	assert.True(t, c.KeepAlive)
	assert.Equal(t, "runs.db", c.DB)

	d, err := c.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeFile(t, "empty.yaml", "")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Mode, c.Mode)
	assert.Equal(t, Default().Workers, c.Workers)
	assert.Equal(t, Default().Timeout, c.Timeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown mode", "bad.yaml", "mode: turbo\n"},
		{"zero workers", "bad.yaml", "workers: 0\n"},
		{"unknown field", "bad.yaml", "speed: 3\n"},
		{"bad duration", "bad.cue", `timeout: "soon"`},
		{"negative quota", "bad.cue", `max_microsteps: -1`},
		{"bad unit", "bad.yaml", "timeout: 5 fortnights\n"},
		{"unsupported ext", "bad.toml", "mode = 'fast'\n"},
		{"malformed yaml", "bad.yaml", "mode: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidConfig))
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte("mode: fast\nworkers: 8\n"))
	require.NoError(t, err)
	assert.Equal(t, "fast", c.Mode)
	assert.Equal(t, 8, c.Workers)
}

func TestApplyEnv(t *testing.T) {
	c, err := ApplyEnv(Default(), map[string]string{
		"REACTORRT_MODE":      "fast",
		"REACTORRT_WORKERS":   "3",
		"REACTORRT_TIMEOUT":   "5 msec",
		"REACTORRT_KEEPALIVE": "true",
		"REACTORRT_DB":        "/tmp/runs.db",
	})
	require.NoError(t, err)

	assert.Equal(t, "fast", c.Mode)
	assert.Equal(t, 3, c.Workers)
	assert.True(t, c.KeepAlive)
	assert.Equal(t, "/tmp/runs.db", c.DB)

	opts, err := c.SchedulerOptions()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, opts.Timeout)
}

func TestApplyEnv_UnsetKeepsFileValues(t *testing.T) {
	base := Config{Mode: "fast", Workers: 2, Timeout: "1 sec", DB: "a.db"}
	c, err := ApplyEnv(base, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, base, c)
}

func TestApplyEnv_Invalid(t *testing.T) {
	_, err := ApplyEnv(Default(), map[string]string{"REACTORRT_WORKERS": "many"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = ApplyEnv(Default(), map[string]string{"REACTORRT_MODE": "turbo"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestApplyEnv_ProcessEnvironment(t *testing.T) {
	t.Setenv("REACTORRT_WORKERS", "6")
	c, err := ApplyEnv(Default(), nil)
	require.NoError(t, err)
	assert.Equal(t, 6, c.Workers)
}

func TestSchedulerOptions_Default(t *testing.T) {
	opts, err := Default().SchedulerOptions()
	require.NoError(t, err)
	assert.Equal(t, reactor.ModeRealtime, opts.Mode)
	assert.Equal(t, 1, opts.Workers)
	assert.Zero(t, opts.Timeout)
}
