package booking

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusScheduled  SessionStatus = "scheduled"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusCancelled  SessionStatus = "cancelled"
)

// Blocks reports whether a session in this status occupies its interval for
// conflict purposes. Completed and cancelled sessions never block.
func (s SessionStatus) Blocks() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusInProgress:
		return true
	default:
		return false
	}
}

type Student struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tutor is the tutor profile, not the underlying user account. Availability,
// pricing, and sessions are all keyed on this identifier.
type Tutor struct {
	ID              uuid.UUID
	Name            string
	HourlyRateCents int64
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Subject struct {
	ID        uuid.UUID
	TutorID   uuid.UUID
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session is a committed, persisted tutoring session. ScheduledAt, TutorID
// and DurationMinutes never mutate after creation; rescheduling is a
// cancel-plus-recreate at the data level.
type Session struct {
	ID              uuid.UUID
	StudentID       uuid.UUID
	TutorID         uuid.UUID
	SubjectID       uuid.UUID
	ScheduledAt     time.Time
	DurationMinutes int
	Status          SessionStatus
	PriceCents      int64
	Notes           *string
	MeetingLink     *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// End is the exclusive end of the session's occupied interval.
func (s *Session) End() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

type EventLog struct {
	ID        int64
	EventType string
	SessionID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}
