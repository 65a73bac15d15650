package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tutorhive/booking-engine/internal/booking"
)

type RouterConfig struct {
	Service  *booking.Service
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Location *time.Location
	Log      *zap.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	validate := validator.New()

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability read path
	r.Get("/tutors/{id}/slots", tutorSlotsHandler(cfg.Service, cfg.Location))

	// Booking endpoints
	r.Post("/bookings", createBookingHandler(cfg.Service, validate))
	r.Get("/bookings", listBookingsHandler(cfg.Service))
	r.Get("/bookings/{id}", getBookingHandler(cfg.Service))
	r.Post("/bookings/{id}/confirm", confirmBookingHandler(cfg.Service))
	r.Post("/bookings/{id}/cancel", cancelBookingHandler(cfg.Service))

	return r
}
