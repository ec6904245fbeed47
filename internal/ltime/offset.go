package ltime

import "time"

// Offset is the extra delay a caller adds on top of an action's minimum
// delay when scheduling it.
type Offset struct {
	d time.Duration
}

// Asap schedules with no additional delay. With a zero minimum delay this
// targets the next microstep of the current tag.
var Asap = Offset{}

// After returns an offset of d.
func After(d time.Duration) Offset {
	return Offset{d: d}
}

// Duration returns the offset as a duration.
func (o Offset) Duration() time.Duration { return o.d }

// IsAsap reports whether the offset adds no delay.
func (o Offset) IsAsap() bool { return o.d == 0 }

func (o Offset) String() string {
	if o.IsAsap() {
		return "asap"
	}
	return "after " + o.d.String()
}
