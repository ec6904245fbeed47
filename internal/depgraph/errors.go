package depgraph

import (
	"errors"
	"fmt"
	"strings"
)

// AssemblyError describes a structural defect of a program. It is only ever
// produced while assembling; an accepted Graph never yields one.
type AssemblyError struct {
	// Code identifies the error category.
	Code AssemblyErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the offending node sequence for cycle errors, first node
	// repeated at the end.
	Path []string

	// Context lists reactor instance paths, innermost first, in which the
	// error occurred.
	Context []string
}

// AssemblyErrorCode categorizes assembly errors.
type AssemblyErrorCode string

const (
	// ErrCodeCyclicDependency indicates a dependency cycle inside one tag.
	ErrCodeCyclicDependency AssemblyErrorCode = "CYCLIC_DEPENDENCY"

	// ErrCodeDuplicateID indicates a name or id declared twice.
	ErrCodeDuplicateID AssemblyErrorCode = "DUPLICATE_ID"

	// ErrCodeDanglingDependency indicates a reference to an undeclared
	// trigger or reaction.
	ErrCodeDanglingDependency AssemblyErrorCode = "DANGLING_DEPENDENCY"

	// ErrCodeInvalidBinding indicates a port binding that breaks the
	// binding rules.
	ErrCodeInvalidBinding AssemblyErrorCode = "INVALID_BINDING"

	// ErrCodeInvalidDependency indicates a dependency the reaction is not
	// allowed to declare, such as an effect on a timer.
	ErrCodeInvalidDependency AssemblyErrorCode = "INVALID_DEPENDENCY"

	// ErrCodeIDOverflow indicates an exhausted id space.
	ErrCodeIDOverflow AssemblyErrorCode = "ID_OVERFLOW"

	// ErrCodeInvalidBank indicates a malformed port bank.
	ErrCodeInvalidBank AssemblyErrorCode = "INVALID_BANK"
)

// Error implements the error interface.
func (e *AssemblyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if len(e.Context) > 0 {
		fmt.Fprintf(&b, " (in %s)", strings.Join(e.Context, ", in "))
	}
	return b.String()
}

// InContext returns a copy of err with reactor path appended to its
// context. Errors that are not assembly errors are returned unchanged.
func InContext(err error, path string) error {
	var ae *AssemblyError
	if !errors.As(err, &ae) {
		return err
	}
	cp := *ae
	cp.Context = append(append([]string(nil), ae.Context...), path)
	return &cp
}

// IsAssemblyError returns true if err is or wraps an AssemblyError.
func IsAssemblyError(err error) bool {
	var ae *AssemblyError
	return errors.As(err, &ae)
}

// IsCyclicDependency returns true if err is a cycle error.
// Uses errors.As to handle wrapped errors.
func IsCyclicDependency(err error) bool {
	return hasCode(err, ErrCodeCyclicDependency)
}

// IsDuplicateID returns true if err is a duplicate id error.
func IsDuplicateID(err error) bool {
	return hasCode(err, ErrCodeDuplicateID)
}

// IsInvalidBinding returns true if err is a binding error.
func IsInvalidBinding(err error) bool {
	return hasCode(err, ErrCodeInvalidBinding)
}

// IsDanglingDependency returns true if err references an undeclared node.
func IsDanglingDependency(err error) bool {
	return hasCode(err, ErrCodeDanglingDependency)
}

func hasCode(err error, code AssemblyErrorCode) bool {
	var ae *AssemblyError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// Errorf creates an AssemblyError with a formatted message.
func Errorf(code AssemblyErrorCode, format string, args ...any) *AssemblyError {
	return &AssemblyError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func newCycleError(path []string) *AssemblyError {
	return &AssemblyError{
		Code:    ErrCodeCyclicDependency,
		Message: "cyclic dependency: " + strings.Join(path, " → "),
		Path:    path,
	}
}
