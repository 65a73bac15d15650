package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	pgPool  *pgxpool.Pool
	redis   *redis.Client
	env     string
	version string
}

func NewHealthHandler(pgPool *pgxpool.Pool, redis *redis.Client, env, version string) *HealthHandler {
	return &HealthHandler{
		pgPool:  pgPool,
		redis:   redis,
		env:     env,
		version: version,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type DependencyStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

type ReadinessResponse struct {
	Status       string                      `json:"status"`
	Version      string                      `json:"version,omitempty"`
	Env          string                      `json:"env,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	})
}

// Readiness pings both stores. Postgres down means nothing works. Redis down
// only disables the tutor lock, so slot reads still serve and the status is
// degraded rather than error.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]DependencyStatus{
		"postgres": probe(ctx, h.pgPool.Ping),
		"redis": probe(ctx, func(ctx context.Context) error {
			return h.redis.Ping(ctx).Err()
		}),
	}

	status := "ok"
	httpStatus := http.StatusOK
	switch {
	case deps["postgres"].Status != "ok":
		status = "error"
		httpStatus = http.StatusServiceUnavailable
	case deps["redis"].Status != "ok":
		status = "degraded"
	}

	writeJSON(w, httpStatus, ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	})
}

func probe(ctx context.Context, ping func(context.Context) error) DependencyStatus {
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	start := time.Now()
	if err := ping(pingCtx); err != nil {
		return DependencyStatus{Status: "down", LatencyMs: time.Since(start).Milliseconds()}
	}
	return DependencyStatus{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
}
