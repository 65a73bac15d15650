package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorhive/booking-engine/internal/availability"
	"github.com/tutorhive/booking-engine/internal/config"
	"github.com/tutorhive/booking-engine/internal/notification"
	redisclient "github.com/tutorhive/booking-engine/internal/redis"
)

const (
	EventSessionRequested = "SESSION_REQUESTED"
	EventSessionConfirmed = "SESSION_CONFIRMED"
	EventSessionCancelled = "SESSION_CANCELLED"
	EventSessionExpired   = "SESSION_EXPIRED"
)

const minutesPerDay = 24 * 60

// errInsertRace marks a conflict detected by the insert guard after the
// in-lock pre-check had passed, i.e. a lost race. Retried once.
var errInsertRace = errors.New("session insert lost a booking race")

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier notification.Dispatcher
	cfg      config.Config
	log      *zap.Logger

	// injected clock keeps "is in the past" checks deterministic in tests
	now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, notifier notification.Dispatcher, cfg config.Config, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Slots computes the candidate slots for one tutor and date. Read path only:
// results carry no booking guarantee and may be stale by the time the caller
// books; Book re-checks against current state.
func (s *Service) Slots(ctx context.Context, tutorID uuid.UUID, date time.Time, durationMin, stepMin int) ([]availability.Slot, error) {
	if stepMin == 0 {
		stepMin = s.cfg.DefaultStepMinutes
	}
	if stepMin < 0 || stepMin > minutesPerDay {
		return nil, invalid("step_minutes", "must be between 1 and 1440")
	}
	if err := s.checkDuration(durationMin); err != nil {
		return nil, err
	}

	dayStart := startOfDay(date, s.cfg.Location)
	today := startOfDay(s.now(), s.cfg.Location)
	if dayStart.Before(today) {
		return nil, invalid("date", "must not be in the past")
	}

	tutor, err := s.repo.GetTutorByID(ctx, tutorID)
	if err != nil {
		return nil, wrapPersistence("load tutor", err)
	}
	if !tutor.Active {
		return nil, ErrTutorInactive
	}

	sched, err := s.loadSchedule(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	windows := sched.WindowsOn(dayStart)
	candidates := availability.GenerateSlots(windows, durationMin, stepMin)

	sessions, err := s.repo.GetSessionsBetween(ctx, tutorID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, wrapPersistence("load sessions", err)
	}

	return availability.MarkConflicts(candidates, s.busyIntervals(sessions, dayStart)), nil
}

// BookingRequest carries a validated booking intent. PriceCents is optional
// and honored only for trusted callers; zero means "compute from the tutor's
// hourly rate".
type BookingRequest struct {
	StudentID       uuid.UUID
	TutorID         uuid.UUID
	SubjectID       uuid.UUID
	ScheduledAt     time.Time
	DurationMinutes int
	PriceCents      int64
	Notes           *string
}

// Book validates a booking request against the tutor's current availability
// and committed sessions, then atomically creates the pending session. The
// client's earlier Slots result is advisory only; this is the authoritative
// check. A failure inside the atomic step is retried once: a lost race then
// surfaces as ErrSlotConflict, a transient storage failure as the
// PersistenceError itself.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Session, error) {
	if req.StudentID == uuid.Nil {
		return nil, invalid("student_id", "is required")
	}
	if req.TutorID == uuid.Nil {
		return nil, invalid("tutor_id", "is required")
	}
	if req.SubjectID == uuid.Nil {
		return nil, invalid("subject_id", "is required")
	}
	if err := s.checkDuration(req.DurationMinutes); err != nil {
		return nil, err
	}

	scheduledAt := req.ScheduledAt.In(s.cfg.Location)
	if !scheduledAt.After(s.now()) {
		return nil, invalid("scheduled_at", "must be in the future")
	}

	tutor, err := s.repo.GetTutorByID(ctx, req.TutorID)
	if err != nil {
		return nil, wrapPersistence("load tutor", err)
	}
	if !tutor.Active {
		return nil, ErrTutorInactive
	}

	if _, err := s.repo.GetStudentByID(ctx, req.StudentID); err != nil {
		return nil, wrapPersistence("load student", err)
	}

	subject, err := s.repo.GetSubjectByID(ctx, req.SubjectID)
	if err != nil {
		return nil, wrapPersistence("load subject", err)
	}
	if subject.TutorID != tutor.ID || !subject.Active {
		return nil, ErrSubjectNotFound
	}

	price := req.PriceCents
	if price <= 0 {
		if tutor.HourlyRateCents <= 0 {
			return nil, ErrRateUnset
		}
		price = tutor.HourlyRateCents * int64(req.DurationMinutes) / 60
	}

	// Re-resolve availability for the target date; the requested interval
	// must lie fully inside one open window.
	sched, err := s.loadSchedule(ctx, req.TutorID)
	if err != nil {
		return nil, err
	}

	dayStart := startOfDay(scheduledAt, s.cfg.Location)
	startMin := minuteOfDay(scheduledAt, dayStart)
	endMin := startMin + req.DurationMinutes

	windows := sched.WindowsOn(dayStart)
	if !availability.Contains(windows, startMin, endMin) {
		return nil, &OutsideAvailabilityError{Windows: windows}
	}

	var created *Session
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		created, lastErr = s.tryInsert(ctx, req, scheduledAt, dayStart, startMin, endMin, price)
		if lastErr == nil {
			break
		}
		if !retryableInsertErr(lastErr) {
			return nil, lastErr
		}
		s.log.Warn("booking attempt failed transiently, retrying",
			zap.String("tutor_id", req.TutorID.String()),
			zap.Time("scheduled_at", scheduledAt),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
	}
	if lastErr != nil {
		if errors.Is(lastErr, errInsertRace) || errors.Is(lastErr, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotConflict
		}
		return nil, lastErr
	}

	s.log.Info("session booked",
		zap.String("session_id", created.ID.String()),
		zap.String("tutor_id", created.TutorID.String()),
		zap.String("student_id", created.StudentID.String()),
		zap.Time("scheduled_at", created.ScheduledAt),
		zap.Int("duration_minutes", created.DurationMinutes),
		zap.Int64("price_cents", created.PriceCents),
	)

	s.logEvent(ctx, created.ID, EventSessionRequested, map[string]any{
		"tutor_id":     created.TutorID.String(),
		"student_id":   created.StudentID.String(),
		"scheduled_at": created.ScheduledAt,
	})

	// Best effort: a failed notification never rolls back the booking.
	if err := s.notifier.NotifyTutorOfBookingRequest(ctx, notification.SessionSummary{
		SessionID:       created.ID,
		TutorID:         created.TutorID,
		StudentID:       created.StudentID,
		SubjectID:       created.SubjectID,
		ScheduledAt:     created.ScheduledAt,
		DurationMinutes: created.DurationMinutes,
		PriceCents:      created.PriceCents,
	}); err != nil {
		s.log.Warn("tutor notification failed",
			zap.String("session_id", created.ID.String()),
			zap.Error(err),
		)
	}

	return created, nil
}

// tryInsert runs the conflict re-check plus insert under the per-tutor lock.
func (s *Service) tryInsert(ctx context.Context, req BookingRequest, scheduledAt, dayStart time.Time, startMin, endMin int, price int64) (*Session, error) {
	var created *Session

	err := s.locker.WithTutorLock(ctx, req.TutorID, func(lockCtx context.Context) error {
		sessions, err := s.repo.GetSessionsBetween(lockCtx, req.TutorID, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return wrapPersistence("load sessions", err)
		}
		for _, b := range s.busyIntervals(sessions, dayStart) {
			if availability.Overlaps(startMin, endMin, b.StartMin, b.EndMin) {
				return ErrSlotConflict
			}
		}

		candidate := &Session{
			StudentID:       req.StudentID,
			TutorID:         req.TutorID,
			SubjectID:       req.SubjectID,
			ScheduledAt:     scheduledAt,
			DurationMinutes: req.DurationMinutes,
			Status:          StatusPending,
			PriceCents:      price,
			Notes:           req.Notes,
		}

		created, err = s.repo.InsertSessionIfNoConflict(lockCtx, candidate)
		if err != nil {
			if errors.Is(err, ErrSlotConflict) {
				// Pre-check passed but the guard fired: a concurrent writer
				// got there first, likely after our lock expired.
				return errInsertRace
			}
			return wrapPersistence("insert session", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// retryableInsertErr reports whether a failed atomic insert attempt deserves
// one more try: a lost race, lock contention, or a transient storage failure.
// A conflict found by the in-lock pre-check is final and never lands here.
func retryableInsertErr(err error) bool {
	var persistErr *PersistenceError
	return errors.Is(err, errInsertRace) ||
		errors.Is(err, redisclient.ErrLockNotAcquired) ||
		errors.As(err, &persistErr)
}

// Confirm moves a pending session to scheduled (tutor accepted).
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.repo.GetSessionByID(ctx, id)
	if err != nil {
		return nil, wrapPersistence("load session", err)
	}
	if sess.Status != StatusPending {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateSessionStatus(ctx, id, StatusPending, StatusScheduled)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			// Lost a status race between the read and the CAS update.
			return nil, ErrInvalidStatusTransition
		}
		return nil, wrapPersistence("confirm session", err)
	}

	s.logEvent(ctx, updated.ID, EventSessionConfirmed, map[string]any{})

	return updated, nil
}

// Cancel moves a pending or scheduled session to cancelled, freeing its
// interval for new bookings.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.repo.GetSessionByID(ctx, id)
	if err != nil {
		return nil, wrapPersistence("load session", err)
	}
	if sess.Status != StatusPending && sess.Status != StatusScheduled {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateSessionStatus(ctx, id, sess.Status, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, wrapPersistence("cancel session", err)
	}

	s.logEvent(ctx, updated.ID, EventSessionCancelled, map[string]any{
		"previous_status": string(sess.Status),
	})

	return updated, nil
}

// ExpireStalePending cancels pending sessions the tutor never confirmed
// within the booking TTL. Called periodically by the expiry worker.
func (s *Service) ExpireStalePending(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.BookingTTL)
	stale, err := s.repo.FindStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find stale pending sessions: %w", err)
	}

	for _, sess := range stale {
		if _, err := s.repo.UpdateSessionStatus(ctx, sess.ID, StatusPending, StatusCancelled); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue // confirmed or cancelled since the scan
			}
			s.log.Error("failed to expire session",
				zap.String("session_id", sess.ID.String()),
				zap.Error(err),
			)
			continue
		}
		s.logEvent(ctx, sess.ID, EventSessionExpired, map[string]any{
			"reason": "unconfirmed past booking ttl",
		})
	}

	return nil
}

// SessionByID retrieves one session.
func (s *Service) SessionByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.repo.GetSessionByID(ctx, id)
	if err != nil {
		return nil, wrapPersistence("load session", err)
	}
	return sess, nil
}

// SessionsByStudent lists a student's sessions, newest first.
func (s *Service) SessionsByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	sessions, err := s.repo.ListSessionsByStudent(ctx, studentID, limit, offset)
	if err != nil {
		return nil, wrapPersistence("list sessions", err)
	}
	return sessions, nil
}

// loadSchedule fetches the tutor's windows and rejects misconfigured ones,
// so overlapping windows cannot yield duplicate candidate slots downstream.
// Stored data failing its own invariants is a storage-level fault.
func (s *Service) loadSchedule(ctx context.Context, tutorID uuid.UUID) (*availability.Schedule, error) {
	sched, err := s.repo.GetSchedule(ctx, tutorID)
	if err != nil {
		return nil, wrapPersistence("load availability", err)
	}
	if err := sched.Validate(); err != nil {
		return nil, &PersistenceError{Op: "validate availability", Err: err}
	}
	return sched, nil
}

func (s *Service) checkDuration(durationMin int) error {
	if durationMin < s.cfg.MinSessionMinutes || durationMin > s.cfg.MaxSessionMinutes {
		return invalid("duration_minutes", fmt.Sprintf("must be between %d and %d",
			s.cfg.MinSessionMinutes, s.cfg.MaxSessionMinutes))
	}
	return nil
}

// busyIntervals projects blocking sessions onto minute-of-day intervals
// relative to dayStart in the platform zone.
func (s *Service) busyIntervals(sessions []Session, dayStart time.Time) []availability.Interval {
	var busy []availability.Interval
	for _, sess := range sessions {
		if !sess.Status.Blocks() {
			continue
		}
		start := minuteOfDay(sess.ScheduledAt.In(s.cfg.Location), dayStart)
		busy = append(busy, availability.Interval{
			StartMin: start,
			EndMin:   start + sess.DurationMinutes,
		})
	}
	return busy
}

func (s *Service) logEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("failed to marshal event payload",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		data = nil
	}

	sessID := sessionID

	ev := EventLog{
		EventType: eventType,
		SessionID: &sessID,
		Payload:   data,
		CreatedAt: s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error("failed to insert event log",
			zap.String("event_type", eventType),
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
	}
}

// wrapPersistence passes domain sentinels through untouched and wraps
// everything else as a storage failure.
func wrapPersistence(op string, err error) error {
	switch {
	case errors.Is(err, ErrTutorNotFound),
		errors.Is(err, ErrStudentNotFound),
		errors.Is(err, ErrSubjectNotFound),
		errors.Is(err, ErrSessionNotFound):
		return err
	default:
		return &PersistenceError{Op: op, Err: err}
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func minuteOfDay(t time.Time, dayStart time.Time) int {
	return int(t.Sub(dayStart) / time.Minute)
}
