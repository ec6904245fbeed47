package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListText(t *testing.T) {
	out, err := execute(t, NewListCommand(&RootOptions{Format: "text"}))
	require.NoError(t, err)

	assert.Contains(t, out, "delay")
	assert.Contains(t, out, "value=42")
	assert.Regexp(t, `sensor\s+physical`, out)
	assert.Regexp(t, `timer\s+logical`, out)
}

func TestListJSON(t *testing.T) {
	out, err := execute(t, NewListCommand(&RootOptions{Format: "json"}))
	require.NoError(t, err)

	var list ProgramList
	resp := decodeData(t, out, &list)
	assert.Equal(t, "ok", resp.Status)

	names := make([]string, 0, len(list.Programs))
	for _, p := range list.Programs {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"bank", "delay", "diamond", "pingpong", "sensor", "timer"}, names)
}

func TestListRejectsArgs(t *testing.T) {
	_, err := execute(t, NewListCommand(&RootOptions{Format: "text"}), "extra")
	require.Error(t, err)
}

func TestGraphText(t *testing.T) {
	out, err := execute(t, NewGraphCommand(&RootOptions{Format: "text"}), "delay")
	require.NoError(t, err)

	assert.Contains(t, out, "program delay: 2 reactions, 2 levels")
	assert.Contains(t, out, "level 0: main/0@A")
	assert.Contains(t, out, "level 1: main/1@B")
	assert.Contains(t, out, "triggers: startup, shutdown, main.act, main.out")
}

func TestGraphJSON(t *testing.T) {
	out, err := execute(t, NewGraphCommand(&RootOptions{Format: "json"}), "diamond", "--param", "count=2")
	require.NoError(t, err)

	var g GraphResult
	decodeData(t, out, &g)
	assert.Equal(t, "diamond", g.Program)
	assert.Len(t, g.Levels, 3)
}

func TestGraphErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown program", []string{"nope"}, "failed to assemble program"},
		{"bad param", []string{"delay", "--param", "novalue"}, "invalid parameters"},
		{"unknown param", []string{"delay", "--param", "bogus=1"}, "bogus"},
		{"missing arg", nil, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewGraphCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams(map[string]any{"count": 1, "keep": "x"}, []string{
		"count=3",
		"delay=5 msec",
		"flag=true",
		"empty=",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, params["count"])
	assert.Equal(t, "5 msec", params["delay"])
	assert.Equal(t, true, params["flag"])
	assert.Equal(t, "", params["empty"])
	assert.Equal(t, "x", params["keep"])

	_, err = parseParams(nil, []string{"=1"})
	require.Error(t, err)
}
