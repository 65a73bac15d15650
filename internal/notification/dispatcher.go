package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionSummary is what the tutor-facing notification channel receives when
// a booking request lands.
type SessionSummary struct {
	SessionID       uuid.UUID `json:"session_id"`
	TutorID         uuid.UUID `json:"tutor_id"`
	StudentID       uuid.UUID `json:"student_id"`
	SubjectID       uuid.UUID `json:"subject_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
}

// Dispatcher hands booking events to the delivery side of the platform.
// Best effort: errors are logged by the caller, never propagated to the
// student's booking result.
type Dispatcher interface {
	NotifyTutorOfBookingRequest(ctx context.Context, summary SessionSummary) error
}

// RedisDispatcher publishes summaries on a per-tutor Redis channel, where the
// delivery workers of the surrounding platform pick them up.
type RedisDispatcher struct {
	client *redis.Client
}

func NewRedisDispatcher(client *redis.Client) *RedisDispatcher {
	return &RedisDispatcher{client: client}
}

func (d *RedisDispatcher) NotifyTutorOfBookingRequest(ctx context.Context, summary SessionSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal booking notification: %w", err)
	}

	channel := fmt.Sprintf("notify:tutor:%s", summary.TutorID.String())
	if err := d.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish booking notification: %w", err)
	}
	return nil
}

// LogDispatcher just records the notification. Used in dev and tests.
type LogDispatcher struct {
	log *zap.Logger
}

func NewLogDispatcher(log *zap.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) NotifyTutorOfBookingRequest(_ context.Context, summary SessionSummary) error {
	d.log.Info("booking request notification",
		zap.String("session_id", summary.SessionID.String()),
		zap.String("tutor_id", summary.TutorID.String()),
		zap.Time("scheduled_at", summary.ScheduledAt),
		zap.Int("duration_minutes", summary.DurationMinutes),
	)
	return nil
}
