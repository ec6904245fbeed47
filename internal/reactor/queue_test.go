package reactor

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactorrt/internal/ids"
	"github.com/roach88/reactorrt/internal/ltime"
)

func TestEventQueue_MergesEventsAtSameTag(t *testing.T) {
	q := newEventQueue()
	q.open(at(0, 0))

	require.True(t, q.push(at(time.Millisecond, 0), 5))
	require.True(t, q.push(at(time.Millisecond, 0), 3))
	require.True(t, q.push(at(time.Millisecond, 0), 5))
	assert.Equal(t, 1, q.Len())

	tag, triggers, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, at(time.Millisecond, 0), tag)
	assert.Equal(t, []ids.TriggerID{3, 5}, triggers)
}

func TestEventQueue_PopsInTagOrder(t *testing.T) {
	q := newEventQueue()
	q.open(at(0, 0))

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		tag := at(time.Duration(rng.Intn(20))*time.Millisecond, uint32(rng.Intn(3)))
		q.push(tag, ids.TriggerID(2+rng.Intn(4)))
	}

	var prev ltime.EventTag
	first := true
	for {
		tag, _, ok := q.pop()
		if !ok {
			break
		}
		if !first {
			assert.True(t, tag.After(prev), "%s not after %s", tag, prev)
		}
		prev, first = tag, false
	}
}

func TestEventQueue_TakeAt(t *testing.T) {
	q := newEventQueue()
	q.open(at(0, 0))
	q.push(at(time.Millisecond, 0), 4)
	q.push(at(2*time.Millisecond, 0), 5)

	assert.Nil(t, q.takeAt(at(2*time.Millisecond, 0)), "only the earliest tag is taken")
	assert.Equal(t, []ids.TriggerID{4}, q.takeAt(at(time.Millisecond, 0)))
	assert.Equal(t, 1, q.Len())
}

func TestEventQueue_CloseRejectsPushes(t *testing.T) {
	q := newEventQueue()
	q.open(at(0, 0))
	q.push(at(time.Millisecond, 0), 4)

	q.close()
	q.close()

	assert.Equal(t, 0, q.Len())
	assert.False(t, q.push(at(time.Millisecond, 0), 4))
	_, ok := <-q.Wait()
	assert.False(t, ok, "signal channel is closed")
}

func TestMicrostepQuota(t *testing.T) {
	q := newMicrostepQuota(2)

	require.NoError(t, q.Check(at(0, 0)))
	require.NoError(t, q.Check(at(0, 1)))
	err := q.Check(at(0, 2))
	assert.True(t, IsQuotaError(err))

	require.NoError(t, q.Check(at(time.Millisecond, 0)))
	assert.Equal(t, 1, q.Current())

	var disabled *microstepQuota
	assert.NoError(t, disabled.Check(at(0, 0)))
}
