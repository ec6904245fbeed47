package reactor

import (
	"github.com/roach88/reactorrt/internal/ltime"
)

// PhysicalSchedulerLink is the scheduler surface for goroutines outside the
// scheduler, such as I/O callbacks. It is safe for concurrent use.
type PhysicalSchedulerLink struct {
	s *SyncScheduler
}

// Running reports whether the scheduler currently accepts events.
func (l *PhysicalSchedulerLink) Running() bool {
	q := l.s.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running && !q.closed
}

// SchedulePhysical schedules a with value v through link. The tag is
// max(wall clock, current tag time) plus the action's minimum delay plus
// off, and always sorts after the tag being processed.
//
// It returns a SCHEDULER_STOPPED error before the run starts or after it
// ends, and a TIME_OVERFLOW error if the delay leaves the time domain.
// Neither affects the run.
func SchedulePhysical[T any](link *PhysicalSchedulerLink, a *PhysicalAction[T], v T, off ltime.Offset) (ltime.EventTag, error) {
	s := link.s
	q := s.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running || q.closed {
		return ltime.EventTag{}, &RuntimeError{
			Code:    ErrCodeSchedulerStopped,
			Message: "cannot schedule " + a.m.label + ": scheduler is not running",
			Trigger: a.m.label,
		}
	}
	tag, err := ltime.PhysicalTag(s.clock.Now(), q.current, a.minDelay, off)
	if err != nil {
		return ltime.EventTag{}, scheduleError(err, a.m.label)
	}
	a.store(tag, v)
	q.pushLocked(tag, a.m.id)
	s.metrics.recordPhysical()
	s.logger.Debug("physical action scheduled", "trigger", a.m.label, "tag", tag.Format(s.start))
	return tag, nil
}
