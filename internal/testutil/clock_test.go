package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactorrt/internal/ltime"
)

func TestSteppingClock_StartsAtStart(t *testing.T) {
	clock := NewSteppingClock(Epoch, time.Millisecond)
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, int64(1), clock.Reads())
}

func TestSteppingClock_AdvancesByStep(t *testing.T) {
	clock := NewSteppingClock(ltime.Instant(100), 10*time.Nanosecond)

	assert.Equal(t, ltime.Instant(100), clock.Now())
	assert.Equal(t, ltime.Instant(110), clock.Now())
	assert.Equal(t, ltime.Instant(120), clock.Now())
	assert.Equal(t, int64(3), clock.Reads())
}

func TestSteppingClock_ZeroStepIsConstant(t *testing.T) {
	clock := NewSteppingClock(Epoch, 0)
	for i := 0; i < 5; i++ {
		assert.Equal(t, Epoch, clock.Now())
	}
}

func TestSteppingClock_NegativeStepNeverDecreases(t *testing.T) {
	clock := NewSteppingClock(ltime.Instant(50), -time.Second)
	assert.Equal(t, ltime.Instant(50), clock.Now())
	assert.Equal(t, ltime.Instant(50), clock.Now())
}

func TestSteppingClock_Reset(t *testing.T) {
	clock := NewSteppingClock(Epoch, time.Millisecond)
	clock.Now()
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Reads())
	assert.Equal(t, Epoch, clock.Now())
}

func TestSteppingClock_ThreadSafe(t *testing.T) {
	clock := NewSteppingClock(Epoch, time.Nanosecond)
	const numGoroutines = 100
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]ltime.Instant, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]ltime.Instant, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Now()
			}
		}(i)
	}
	wg.Wait()

	// every reading is distinct and within [0, total)
	seen := make(map[ltime.Instant]bool)
	for i := range results {
		for _, v := range results[i] {
			require.False(t, seen[v], "duplicate reading %d", v)
			seen[v] = true
		}
	}
	total := numGoroutines * callsPerGoroutine
	assert.Len(t, seen, total)
	for i := 0; i < total; i++ {
		assert.True(t, seen[ltime.Instant(i)], "missing reading %d", i)
	}
}

func TestSteppingClock_ImplementsClock(t *testing.T) {
	var _ ltime.Clock = NewSteppingClock(Epoch, time.Millisecond)
}
