package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorhive/booking-engine/internal/availability"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanStudent(row pgx.Row) (*Student, error) {
	var s Student
	var email *string

	err := row.Scan(
		&s.ID,
		&s.Name,
		&email,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	s.Email = email
	return &s, nil
}

func scanTutor(row pgx.Row) (*Tutor, error) {
	var t Tutor

	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.HourlyRateCents,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}

	return &t, nil
}

func scanSubject(row pgx.Row) (*Subject, error) {
	var s Subject

	err := row.Scan(
		&s.ID,
		&s.TutorID,
		&s.Name,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	var notes, meetingLink *string

	err := row.Scan(
		&s.ID,
		&s.StudentID,
		&s.TutorID,
		&s.SubjectID,
		&s.ScheduledAt,
		&s.DurationMinutes,
		&s.Status,
		&s.PriceCents,
		&notes,
		&meetingLink,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	s.Notes = notes
	s.MeetingLink = meetingLink
	return &s, nil
}

const sessionColumns = `id, student_id, tutor_id, subject_id, scheduled_at, duration_minutes, status, price_cents, notes, meeting_link, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetTutorByID(ctx context.Context, id uuid.UUID) (*Tutor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, hourly_rate_cents, active, created_at, updated_at
		FROM tutors
		WHERE id = $1
	`, id)
	return scanTutor(row)
}

func (r *PgRepository) GetStudentByID(ctx context.Context, id uuid.UUID) (*Student, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM students
		WHERE id = $1
	`, id)
	return scanStudent(row)
}

func (r *PgRepository) GetSubjectByID(ctx context.Context, id uuid.UUID) (*Subject, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tutor_id, name, active, created_at, updated_at
		FROM subjects
		WHERE id = $1
	`, id)
	return scanSubject(row)
}

func (r *PgRepository) GetSchedule(ctx context.Context, tutorID uuid.UUID) (*availability.Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, date, start_minute, end_minute, available
		FROM availability_windows
		WHERE tutor_id = $1
		ORDER BY weekday, start_minute
	`, tutorID)
	if err != nil {
		return nil, fmt.Errorf("query availability windows: %w", err)
	}
	defer rows.Close()

	sched := &availability.Schedule{TutorID: tutorID}
	for rows.Next() {
		var weekday int
		var date *time.Time
		var w availability.Window

		if err := rows.Scan(&weekday, &date, &w.StartMin, &w.EndMin, &w.Available); err != nil {
			return nil, fmt.Errorf("scan availability window: %w", err)
		}
		w.Weekday = time.Weekday(weekday)
		w.Date = date
		sched.Windows = append(sched.Windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sched, nil
}

func (r *PgRepository) GetSessionsBetween(ctx context.Context, tutorID uuid.UUID, from, to time.Time) ([]Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE tutor_id = $1
		  AND status <> 'cancelled'
		  AND scheduled_at >= $2
		  AND scheduled_at < $3
		ORDER BY scheduled_at
	`, tutorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// InsertSessionIfNoConflict makes the database the final arbiter: the insert
// and the blocking-overlap check run as one statement, so even if the tutor
// lock were lost mid-flight two overlapping sessions cannot both land.
func (r *PgRepository) InsertSessionIfNoConflict(ctx context.Context, s *Session) (*Session, error) {
	id := s.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO sessions (id, student_id, tutor_id, subject_id, scheduled_at, duration_minutes, status, price_cents, notes, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5::timestamptz, $6, $7, $8, $9, now(), now()
		WHERE NOT EXISTS (
			SELECT 1 FROM sessions
			WHERE tutor_id = $3
			  AND status IN ('pending', 'scheduled', 'in_progress')
			  AND scheduled_at < $5::timestamptz + make_interval(mins => $6)
			  AND scheduled_at + make_interval(mins => duration_minutes) > $5::timestamptz
		)
		RETURNING `+sessionColumns+`
	`, id, s.StudentID, s.TutorID, s.SubjectID, s.ScheduledAt, s.DurationMinutes, s.Status, s.PriceCents, s.Notes)

	inserted, err := scanSession(row)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			// No row returned means the guard suppressed the insert.
			return nil, ErrSlotConflict
		}
		return nil, err
	}
	return inserted, nil
}

func (r *PgRepository) GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1
	`, id)
	return scanSession(row)
}

func (r *PgRepository) UpdateSessionStatus(ctx context.Context, id uuid.UUID, from, to SessionStatus) (*Session, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE sessions
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+sessionColumns+`
	`, id, to, from)

	return scanSession(row)
}

func (r *PgRepository) ListSessionsByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE student_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2 OFFSET $3
	`, studentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) FindStalePending(ctx context.Context, olderThan time.Time) ([]Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE status = 'pending'
		  AND created_at < $1
	`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, session_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.SessionID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
