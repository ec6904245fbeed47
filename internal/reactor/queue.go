package reactor

import (
	"container/heap"
	"sort"
	"sync"

	"github.com/roach88/reactorrt/internal/ids"
	"github.com/roach88/reactorrt/internal/ltime"
)

// tagHeap is a min-heap of distinct tags.
type tagHeap []ltime.EventTag

func (h tagHeap) Len() int           { return len(h) }
func (h tagHeap) Less(i, j int) bool { return h[i].Before(h[j]) }
func (h tagHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *tagHeap) Push(x any)        { *h = append(*h, x.(ltime.EventTag)) }
func (h *tagHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// eventQueue holds pending tags and the triggers present at each of them.
// Events scheduled for the same tag are merged.
//
// The scheduler's owner goroutine pops tags; physical scheduling pushes
// from arbitrary goroutines. The mutex also guards current, the tag being
// processed, so a physical tag is computed and inserted atomically with
// respect to the owner advancing time.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the run loop.
type eventQueue struct {
	mu       sync.Mutex
	tags     tagHeap
	triggers map[ltime.EventTag][]ids.TriggerID
	current  ltime.EventTag
	running  bool
	closed   bool
	signal   chan struct{} // signals new events (buffered, size 1)
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		tags:     make(tagHeap, 0, 64),
		triggers: make(map[ltime.EventTag][]ids.TriggerID),
		signal:   make(chan struct{}, 1),
	}
}

// open marks the queue as running from origin on.
func (q *eventQueue) open(origin ltime.EventTag) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.current = origin
	q.running = true
}

// push adds trigger at tag. Returns false if the queue is closed.
// Thread-safe: may be called from any goroutine.
func (q *eventQueue) push(tag ltime.EventTag, trigger ids.TriggerID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushLocked(tag, trigger)
}

func (q *eventQueue) pushLocked(tag ltime.EventTag, trigger ids.TriggerID) bool {
	if q.closed {
		return false
	}
	existing, ok := q.triggers[tag]
	if !ok {
		heap.Push(&q.tags, tag)
	}
	for _, t := range existing {
		if t == trigger {
			return true
		}
	}
	q.triggers[tag] = append(existing, trigger)

	// non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// peek returns the earliest pending tag.
func (q *eventQueue) peek() (ltime.EventTag, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tags) == 0 {
		return ltime.EventTag{}, false
	}
	return q.tags[0], true
}

// pop removes the earliest tag and makes it current. Triggers are
// returned in ascending id order.
func (q *eventQueue) pop() (ltime.EventTag, []ids.TriggerID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tags) == 0 {
		return ltime.EventTag{}, nil, false
	}
	tag := heap.Pop(&q.tags).(ltime.EventTag)
	q.current = tag
	return tag, q.detach(tag), true
}

// takeAt makes tag current and removes its triggers if tag is the
// earliest pending tag.
func (q *eventQueue) takeAt(tag ltime.EventTag) []ids.TriggerID {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.current = tag
	if len(q.tags) == 0 || q.tags[0] != tag {
		return nil
	}
	heap.Pop(&q.tags)
	return q.detach(tag)
}

func (q *eventQueue) detach(tag ltime.EventTag) []ids.TriggerID {
	ts := q.triggers[tag]
	delete(q.triggers, tag)
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}

// Wait returns a channel that signals when events may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending tags.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tags)
}

// close discards pending events and rejects further pushes.
func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.running = false
	q.tags = q.tags[:0]
	clear(q.triggers)
	// Waiters must observe the close, not a stale wakeup.
	select {
	case <-q.signal:
	default:
	}
	close(q.signal)
}
