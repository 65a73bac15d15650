package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tutorhive/booking-engine/internal/booking"
)

func tutorSlotsHandler(svc *booking.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tutorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_tutor_id", "id must be a valid UUID")
			return
		}

		dateStr := r.URL.Query().Get("date")
		date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		duration, err := strconv.Atoi(r.URL.Query().Get("duration"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be an integer number of minutes")
			return
		}

		step := 0
		if s := r.URL.Query().Get("step"); s != "" {
			step, err = strconv.Atoi(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_step", "step must be an integer number of minutes")
				return
			}
		}

		slots, err := svc.Slots(r.Context(), tutorID, date, duration, step)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := SlotsResponse{
			TutorID: tutorID,
			Date:    dateStr,
			Slots:   make([]SlotView, 0, len(slots)),
		}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, SlotView{
				Start:     minuteClock(s.StartMin),
				End:       minuteClock(s.EndMin),
				Available: s.Available,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func createBookingHandler(svc *booking.Service, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		// Validator already guaranteed UUID shape.
		studentID, _ := uuid.Parse(req.StudentID)
		tutorID, _ := uuid.Parse(req.TutorID)
		subjectID, _ := uuid.Parse(req.SubjectID)

		scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_scheduled_at", "scheduled_at must be ISO 8601")
			return
		}

		created, err := svc.Book(r.Context(), booking.BookingRequest{
			StudentID:       studentID,
			TutorID:         tutorID,
			SubjectID:       subjectID,
			ScheduledAt:     scheduledAt,
			DurationMinutes: req.DurationMinutes,
			Notes:           req.Notes,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, sessionResponse(created))
	}
}

func confirmBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "id must be a valid UUID")
			return
		}

		updated, err := svc.Confirm(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, sessionResponse(updated))
	}
}

func cancelBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "id must be a valid UUID")
			return
		}

		updated, err := svc.Cancel(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, sessionResponse(updated))
	}
}

func getBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "id must be a valid UUID")
			return
		}

		sess, err := svc.SessionByID(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

func listBookingsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID, err := uuid.Parse(r.URL.Query().Get("student_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_student_id", "student_id must be a valid UUID")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		sessions, err := svc.SessionsByStudent(r.Context(), studentID, limit, offset)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := make([]SessionResponse, 0, len(sessions))
		for i := range sessions {
			resp = append(resp, sessionResponse(&sessions[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	var vErr *booking.ValidationError
	var availErr *booking.OutsideAvailabilityError
	var persistErr *booking.PersistenceError

	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "invalid_request", vErr.Error())
	case errors.Is(err, booking.ErrTutorNotFound):
		writeError(w, http.StatusNotFound, "tutor_not_found", err.Error())
	case errors.Is(err, booking.ErrTutorInactive):
		writeError(w, http.StatusNotFound, "tutor_inactive", err.Error())
	case errors.Is(err, booking.ErrStudentNotFound):
		writeError(w, http.StatusNotFound, "student_not_found", err.Error())
	case errors.Is(err, booking.ErrSubjectNotFound):
		writeError(w, http.StatusNotFound, "subject_not_found", err.Error())
	case errors.Is(err, booking.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.As(err, &availErr):
		writeError(w, http.StatusUnprocessableEntity, "outside_availability", availabilityHint(availErr))
	case errors.Is(err, booking.ErrRateUnset):
		writeError(w, http.StatusUnprocessableEntity, "tutor_rate_unset", err.Error())
	case errors.Is(err, booking.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", "requested time was just booked, please pick another slot")
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.As(err, &persistErr):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "temporary storage failure, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// availabilityHint renders the day's open windows so the client can prompt
// the user toward a valid time.
func availabilityHint(err *booking.OutsideAvailabilityError) string {
	if len(err.Windows) == 0 {
		return "tutor has no availability on the requested date"
	}

	parts := make([]string, 0, len(err.Windows))
	for _, w := range err.Windows {
		parts = append(parts, fmt.Sprintf("%s-%s", minuteClock(w.StartMin), minuteClock(w.EndMin)))
	}
	return "available windows: " + strings.Join(parts, ", ")
}

func sessionResponse(s *booking.Session) SessionResponse {
	return SessionResponse{
		ID:              s.ID,
		StudentID:       s.StudentID,
		TutorID:         s.TutorID,
		SubjectID:       s.SubjectID,
		Status:          string(s.Status),
		ScheduledAt:     s.ScheduledAt,
		DurationMinutes: s.DurationMinutes,
		PriceCents:      s.PriceCents,
		Notes:           s.Notes,
		MeetingLink:     s.MeetingLink,
	}
}

func minuteClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
