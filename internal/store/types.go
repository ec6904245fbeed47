package store

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded execution of a program.
type Run struct {
	// ID identifies the run, normally a UUIDv7.
	ID string
	// Seq orders runs in the store. Assigned by WriteRun.
	Seq int64
	// Program is the registry name of the executed program.
	Program string
	// Params are the program parameters.
	Params map[string]any

	Mode    string
	Workers int
	Timeout time.Duration

	// Reason is how the run ended: exhausted, shutdown, timeout or error.
	Reason            string
	FinalElapsed      time.Duration
	FinalMicrostep    uint32
	TagsProcessed     int
	ReactionsExecuted int
	// Error is the runtime error message of a failed run.
	Error string
	// Digest is the trace digest of the run.
	Digest string
}
