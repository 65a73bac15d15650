package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorhive/booking-engine/internal/config"
	"github.com/tutorhive/booking-engine/internal/db"
)

// simulate hammers the booking endpoint with concurrent requests aimed at a
// deliberately small set of tutor/time targets, so many requests race for the
// same interval. Afterwards it checks the database for the one invariant that
// must survive: no two non-cancelled sessions for the same tutor overlap.

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	TutorLimit  int
	TargetSlots int
	PostgresDSN string
}

type Target struct {
	TutorID     uuid.UUID
	SubjectID   uuid.UUID
	ScheduledAt time.Time
	Minutes     int
}

type DataPool struct {
	Students []uuid.UUID
	Targets  []Target
}

type Metrics struct {
	Total     int64
	Created   int64
	Conflict  int64
	Rejected  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *Metrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case err != nil:
		atomic.AddInt64(&m.Error, 1)
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Created, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Rejected, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *Metrics) Stats() (avg, p50, p95 time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(m.latencies))
	copy(latencies, m.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))

	p50 = latencies[len(latencies)*50/100]
	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, p50, p95
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, 4)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	pool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d students, %d contested targets", len(pool.Students), len(pool.Targets))

	metrics := &Metrics{}
	client := &http.Client{Timeout: 10 * time.Second}

	runCtx, stop := context.WithTimeout(context.Background(), cfg.Duration)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for runCtx.Err() == nil {
				target := pool.Targets[rng.Intn(len(pool.Targets))]
				student := pool.Students[rng.Intn(len(pool.Students))]
				attemptBooking(runCtx, client, cfg.APIBaseURL, student, target, metrics)
			}
		}(time.Now().UnixNano() + int64(i))
	}
	wg.Wait()

	printReport(metrics)

	if err := verifyNoOverlaps(context.Background(), pgPool); err != nil {
		log.Fatalf("INVARIANT VIOLATED: %v", err)
	}
	log.Println("invariant holds: no overlapping non-cancelled sessions")
}

func attemptBooking(ctx context.Context, client *http.Client, baseURL string, student uuid.UUID, target Target, metrics *Metrics) {
	body, _ := json.Marshal(map[string]any{
		"student_id":       student.String(),
		"tutor_id":         target.TutorID.String(),
		"subject_id":       target.SubjectID.String(),
		"scheduled_at":     target.ScheduledAt.Format(time.RFC3339),
		"duration_minutes": target.Minutes,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/bookings", bytes.NewReader(body))
	if err != nil {
		metrics.Record(0, 0, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			metrics.Record(latency, 0, err)
		}
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	metrics.Record(latency, resp.StatusCode, nil)
}

func loadSimConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 20),
		TutorLimit:  getInt("SIM_TUTOR_LIMIT", 5),
		TargetSlots: getInt("SIM_TARGET_SLOTS", 10),
		PostgresDSN: baseCfg.PostgresDSN,
	}
}

// loadDataPool picks a handful of tutors and builds contested booking targets
// inside their availability windows on the next occurrence of each weekday.
func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM students LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dp.Students = append(dp.Students, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	targetRows, err := pool.Query(ctx, `
		SELECT w.tutor_id, s.id, w.weekday, w.start_minute
		FROM availability_windows w
		JOIN subjects s ON s.tutor_id = w.tutor_id AND s.active
		WHERE w.date IS NULL AND w.available
		LIMIT $1
	`, cfg.TutorLimit*cfg.TargetSlots)
	if err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}
	defer targetRows.Close()

	now := time.Now()
	for targetRows.Next() {
		var tutorID, subjectID uuid.UUID
		var weekday, startMin int
		if err := targetRows.Scan(&tutorID, &subjectID, &weekday, &startMin); err != nil {
			return nil, err
		}

		daysAhead := (weekday - int(now.Weekday()) + 7) % 7
		if daysAhead == 0 {
			daysAhead = 7
		}
		day := now.AddDate(0, 0, daysAhead)
		scheduledAt := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).
			Add(time.Duration(startMin) * time.Minute)

		dp.Targets = append(dp.Targets, Target{
			TutorID:     tutorID,
			SubjectID:   subjectID,
			ScheduledAt: scheduledAt,
			Minutes:     60,
		})
	}
	if err := targetRows.Err(); err != nil {
		return nil, err
	}

	if len(dp.Students) == 0 || len(dp.Targets) == 0 {
		return nil, fmt.Errorf("not enough seed data, run cmd/seed first")
	}

	return dp, nil
}

// verifyNoOverlaps is the ground-truth check: a pairwise self-join over
// blocking sessions must come back empty.
func verifyNoOverlaps(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM sessions a
		JOIN sessions b
		  ON a.tutor_id = b.tutor_id
		 AND a.id < b.id
		 AND a.status IN ('pending', 'scheduled', 'in_progress')
		 AND b.status IN ('pending', 'scheduled', 'in_progress')
		 AND a.scheduled_at < b.scheduled_at + make_interval(mins => b.duration_minutes)
		 AND b.scheduled_at < a.scheduled_at + make_interval(mins => a.duration_minutes)
	`).Scan(&count)
	if err != nil {
		return fmt.Errorf("overlap query: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%d overlapping session pairs found", count)
	}
	return nil
}

func printReport(m *Metrics) {
	avg, p50, p95 := m.Stats()
	log.Println("==== booking race report ====")
	log.Printf("total=%d created=%d conflict=%d rejected=%d error=%d",
		atomic.LoadInt64(&m.Total),
		atomic.LoadInt64(&m.Created),
		atomic.LoadInt64(&m.Conflict),
		atomic.LoadInt64(&m.Rejected),
		atomic.LoadInt64(&m.Error),
	)
	log.Printf("latency avg=%s p50=%s p95=%s", avg, p50, p95)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
