package reactor

import (
	"errors"
	"fmt"

	"github.com/roach88/reactorrt/internal/ltime"
)

// RuntimeError represents an error detected while a program executes.
//
// Runtime errors include:
//   - Contract violations: a reaction touched a trigger it did not declare
//   - Time overflow: a schedule request left the time domain
//   - Reaction failures: a reaction returned an error or panicked
//   - Scheduler stopped: a physical schedule arrived after termination
//
// All of them except SCHEDULER_STOPPED terminate the run.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Reaction is the label of the reaction that failed, if any.
	Reaction string

	// Trigger is the label of the trigger involved, if any.
	Trigger string

	// Tag is the tag at which the error occurred.
	Tag ltime.EventTag

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeContractViolation indicates access to an undeclared trigger or
	// use of a revoked view.
	ErrCodeContractViolation RuntimeErrorCode = "CONTRACT_VIOLATION"

	// ErrCodeTimeOverflow indicates a delay that overflows the time domain.
	ErrCodeTimeOverflow RuntimeErrorCode = "TIME_OVERFLOW"

	// ErrCodeMicrostepOverflow indicates an exhausted microstep counter.
	ErrCodeMicrostepOverflow RuntimeErrorCode = "MICROSTEP_OVERFLOW"

	// ErrCodeReactionFailed indicates a reaction returned an error.
	ErrCodeReactionFailed RuntimeErrorCode = "REACTION_FAILED"

	// ErrCodeReactionPanic indicates a reaction panicked.
	ErrCodeReactionPanic RuntimeErrorCode = "REACTION_PANIC"

	// ErrCodeSchedulerStopped indicates the scheduler is not running.
	ErrCodeSchedulerStopped RuntimeErrorCode = "SCHEDULER_STOPPED"

	// ErrCodeMicrostepQuota indicates too many microsteps at one instant.
	ErrCodeMicrostepQuota RuntimeErrorCode = "MICROSTEP_QUOTA"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Reaction != "" {
		msg += fmt.Sprintf(" (reaction=%s, tag=%s)", e.Reaction, e.Tag)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Err }

// IsContractViolation returns true if the error is a contract violation.
// Uses errors.As to handle wrapped errors.
func IsContractViolation(err error) bool {
	return hasCode(err, ErrCodeContractViolation)
}

// IsTimeOverflow returns true if the error is a time or microstep overflow.
func IsTimeOverflow(err error) bool {
	return hasCode(err, ErrCodeTimeOverflow) || hasCode(err, ErrCodeMicrostepOverflow)
}

// IsSchedulerStopped returns true if a physical schedule was rejected
// because the scheduler is not running.
func IsSchedulerStopped(err error) bool {
	return hasCode(err, ErrCodeSchedulerStopped)
}

// IsQuotaError returns true if the error is a microstep quota error.
func IsQuotaError(err error) bool {
	return hasCode(err, ErrCodeMicrostepQuota)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// scheduleError converts an ltime error into a runtime error.
func scheduleError(err error, trigger string) *RuntimeError {
	code := ErrCodeTimeOverflow
	if errors.Is(err, ltime.ErrMicrostepOverflow) {
		code = ErrCodeMicrostepOverflow
	}
	if errors.Is(err, ltime.ErrNegativeDelay) {
		code = ErrCodeContractViolation
	}
	return &RuntimeError{Code: code, Message: "cannot schedule " + trigger, Trigger: trigger, Err: err}
}
