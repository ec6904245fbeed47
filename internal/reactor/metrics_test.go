package reactor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactorrt/internal/trace"
)

func TestMetrics_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	prog, err := Assemble(&ticker{period: time.Millisecond, limit: 3})
	require.NoError(t, err)
	_, err = newFastScheduler(prog, trace.Discard, WithMetrics(m)).Run(context.Background())
	require.NoError(t, err)

	// three timer tags (the first with startup) and the shutdown tag
	assert.Equal(t, 4.0, testutil.ToFloat64(m.tagsProcessed.WithLabelValues("ticker")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.reactionsExecuted.WithLabelValues("ticker")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ticker", "shutdown")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.queueDepth))
}

func TestMetrics_RecordFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	prog, err := Assemble(&rogue{mode: "error"})
	require.NoError(t, err)
	_, err = newFastScheduler(prog, trace.Discard, WithMetrics(m)).Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.reactionFailures.WithLabelValues("rogue", "REACTION_FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("rogue", "error")))
}

func TestMetrics_NilRegistryDisables(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	// nil metrics are safe to record into
	m.recordTag("x", 1, time.Millisecond, 0)
	m.recordRun("x", ReasonExhausted)
}

func TestMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
