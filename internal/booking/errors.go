package booking

import (
	"errors"
	"fmt"

	"github.com/tutorhive/booking-engine/internal/availability"
)

var (
	ErrTutorNotFound   = errors.New("tutor not found")
	ErrTutorInactive   = errors.New("tutor profile is not active")
	ErrStudentNotFound = errors.New("student not found")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrSessionNotFound = errors.New("session not found")

	ErrRateUnset = errors.New("tutor hourly rate is unset or non-positive")

	// ErrSlotConflict means the requested interval collides with an existing
	// non-cancelled session. Expected and frequent under load; callers should
	// re-query slots and pick another time.
	ErrSlotConflict = errors.New("requested time conflicts with an existing session")

	ErrInvalidStatusTransition = errors.New("invalid session status transition")
)

// ValidationError is malformed input: bad duration, bad date, missing field.
// Recoverable by the caller correcting input, never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// OutsideAvailabilityError means the requested interval does not lie within
// any configured availability window for that date. Windows carries the
// day's open windows as a hint for the caller.
type OutsideAvailabilityError struct {
	Windows []availability.Window
}

func (e *OutsideAvailabilityError) Error() string {
	if len(e.Windows) == 0 {
		return "tutor has no availability on the requested date"
	}
	return "requested time is outside the tutor's availability windows"
}

// PersistenceError is an underlying storage failure unrelated to a booking
// conflict. Transient from the caller's point of view.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
