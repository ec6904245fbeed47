package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactorrt/internal/trace"
)

func TestVerifyDeterministic(t *testing.T) {
	for _, program := range []string{"delay", "diamond", "bank", "pingpong", "timer"} {
		t.Run(program, func(t *testing.T) {
			out, err := execute(t, NewVerifyCommand(&RootOptions{Format: "json"}), program, "--workers", "4", "--repeat", "2")
			require.NoError(t, err)

			var v VerifyResult
			decodeData(t, out, &v)
			assert.True(t, v.Deterministic)
			require.Len(t, v.Runs, 3)
			assert.Equal(t, 1, v.Runs[0].Workers)
			for _, r := range v.Runs[1:] {
				assert.Equal(t, 4, r.Workers)
				assert.Equal(t, v.Runs[0].Digest, r.Digest)
			}
		})
	}
}

func TestVerifyText(t *testing.T) {
	out, err := execute(t, NewVerifyCommand(&RootOptions{Format: "text"}), "bank", "--param", "width=6")
	require.NoError(t, err)
	assert.Contains(t, out, "workers=1")
	assert.Contains(t, out, "workers=4")
	assert.Contains(t, out, "✓ bank is deterministic")
}

func TestVerifyErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown program", []string{"nope"}, `unknown program "nope"`},
		{"physical program", []string{"sensor"}, "not reproducible"},
		{"bad workers", []string{"delay", "--workers", "0"}, "at least 1"},
		{"bad param", []string{"delay", "--param", "bogus=1"}, "failed to run program"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewVerifyCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestRenderLines(t *testing.T) {
	lines := renderLines([]trace.Event{
		{Kind: trace.KindTag, Triggers: []string{"startup"}},
		{Kind: trace.KindShutdown, Reason: "exhausted"},
	})
	assert.Equal(t, []string{
		"(T0 + 0s, 0) tag [startup]",
		"(T0 + 0s, 0) shutdown reason=exhausted",
	}, lines)
}
