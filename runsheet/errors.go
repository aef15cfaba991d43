package runsheet

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input to CreateCue.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid cue %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a cue id that is not present in the run.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cue %s not found", e.ID)
}

// InvalidTransitionError reports a command that the cue's current status does not accept.
type InvalidTransitionError struct {
	Command Command
	Status  Status
	Reason  string // optional detail, e.g. another cue is already live
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s cue in status %s: %s", e.Command, e.Status, e.Reason)
	}
	return fmt.Sprintf("cannot %s cue in status %s", e.Command, e.Status)
}

// RunNotFoundError reports a run key with no cues, on a read that would not create it.
type RunNotFoundError struct {
	RunID string
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("run %s not found", e.RunID)
}

// StatusConflictError is returned by a Store when a conditional status write finds
// the cue in another status than expected, typically because a second process
// sharing the store changed it.
type StatusConflictError struct {
	ID       string
	Expected Status
	Actual   Status
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("cue %s is %s, expected %s", e.ID, e.Actual, e.Expected)
}

// PersistenceError wraps a Cue Store failure. The in-memory registry is left untouched.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cue store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsRunNotFound reports whether err is or wraps a *RunNotFoundError.
func IsRunNotFound(err error) bool {
	var target *RunNotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsInvalidTransition reports whether err is or wraps an *InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsPersistence reports whether err is or wraps a *PersistenceError.
func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

// Error codes reported by the transports.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrorCode classifies err for a transport response.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return CodeInvalidRequest
	case IsNotFound(err), IsRunNotFound(err):
		return CodeNotFound
	case IsInvalidTransition(err):
		return CodeInvalidTransition
	case IsPersistence(err):
		return CodeStoreUnavailable
	}
	return CodeInternal
}
