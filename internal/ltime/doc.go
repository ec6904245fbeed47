// Package ltime implements the time model of the reactor runtime.
//
// Physical time and logical time share one scale: an Instant is a signed
// nanosecond count. Logical time is superdense: an EventTag pairs an Instant
// with a MicroStep so that events at the same instant are still totally
// ordered.
//
// Arithmetic on Instants saturates at the bounds of the time domain. The
// scheduling helpers (ScheduleTag, PhysicalTag) use the checked variants
// instead and report ErrTimeOverflow rather than truncating.
package ltime
