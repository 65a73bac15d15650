package api

import (
	"time"

	"github.com/google/uuid"
)

type SlotView struct {
	Start     string `json:"start"` // HH:MM in the platform time zone
	End       string `json:"end"`
	Available bool   `json:"available"`
}

type SlotsResponse struct {
	TutorID uuid.UUID  `json:"tutor_id"`
	Date    string     `json:"date"`
	Slots   []SlotView `json:"slots"`
}

type CreateBookingRequest struct {
	StudentID       string  `json:"student_id" validate:"required,uuid"`
	TutorID         string  `json:"tutor_id" validate:"required,uuid"`
	SubjectID       string  `json:"subject_id" validate:"required,uuid"`
	ScheduledAt     string  `json:"scheduled_at" validate:"required"` // ISO 8601
	DurationMinutes int     `json:"duration_minutes" validate:"required,gt=0"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type SessionResponse struct {
	ID              uuid.UUID `json:"id"`
	StudentID       uuid.UUID `json:"student_id"`
	TutorID         uuid.UUID `json:"tutor_id"`
	SubjectID       uuid.UUID `json:"subject_id"`
	Status          string    `json:"status"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	Notes           *string   `json:"notes,omitempty"`
	MeetingLink     *string   `json:"meeting_link,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
