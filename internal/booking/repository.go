package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhive/booking-engine/internal/availability"
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetTutorByID(ctx context.Context, id uuid.UUID) (*Tutor, error)
	GetStudentByID(ctx context.Context, id uuid.UUID) (*Student, error)
	GetSubjectByID(ctx context.Context, id uuid.UUID) (*Subject, error)

	// GetSchedule loads the tutor's configured windows (recurring + exceptions).
	GetSchedule(ctx context.Context, tutorID uuid.UUID) (*availability.Schedule, error)

	// GetSessionsBetween returns the tutor's non-cancelled sessions whose
	// scheduled_at falls in [from, to).
	GetSessionsBetween(ctx context.Context, tutorID uuid.UUID, from, to time.Time) ([]Session, error)

	// InsertSessionIfNoConflict persists the session only if no blocking
	// session overlaps its interval, in one atomic statement. Returns
	// ErrSlotConflict when the guard fails.
	InsertSessionIfNoConflict(ctx context.Context, s *Session) (*Session, error)

	GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error)
	UpdateSessionStatus(ctx context.Context, id uuid.UUID, from, to SessionStatus) (*Session, error)
	ListSessionsByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]Session, error)

	// Expiry worker
	FindStalePending(ctx context.Context, olderThan time.Time) ([]Session, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
