package reactor

import (
	"fmt"

	"github.com/roach88/reactorrt/internal/ltime"
)

// microstepQuota counts consecutive tags processed at one instant and
// enforces a limit.
//
// It catches zero-delay feedback through actions, which would otherwise
// keep the scheduler busy without ever advancing time.
type microstepQuota struct {
	max     int
	instant ltime.Instant
	count   int
	started bool
}

func newMicrostepQuota(limit int) *microstepQuota {
	return &microstepQuota{max: limit}
}

// Check counts tag and returns an error once more than max tags share
// an instant. A non-positive max disables the check.
func (q *microstepQuota) Check(tag ltime.EventTag) error {
	if q == nil || q.max <= 0 {
		return nil
	}
	if !q.started || tag.Time != q.instant {
		q.started = true
		q.instant = tag.Time
		q.count = 0
	}
	q.count++
	if q.count > q.max {
		return &RuntimeError{
			Code:    ErrCodeMicrostepQuota,
			Message: fmt.Sprintf("more than %d microsteps at one instant", q.max),
			Tag:     tag,
		}
	}
	return nil
}

// Current returns the number of tags counted at the current instant.
func (q *microstepQuota) Current() int { return q.count }
