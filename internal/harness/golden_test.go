package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGolden(t *testing.T) {
	for _, file := range []string{"delay.yaml", "timer.yaml"} {
		s, err := LoadScenario("testdata/scenarios/" + file)
		require.NoError(t, err)

		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestAssertGolden_ExistingResult(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/delay.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.NoError(t, AssertGolden(t, s.Name, result))
}
