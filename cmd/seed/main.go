package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorhive/booking-engine/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 4)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	tutorIDs, err := seedTutors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed tutors: %v", err)
	}
	if err := seedSubjects(context.Background(), pool, tutorIDs); err != nil {
		log.Fatalf("seed subjects: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, tutorIDs); err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if err := seedStudents(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed students: %v", err)
	}

	log.Println("seed complete")
}

func seedTutors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d tutors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		// Hourly rates between $15.00 and $120.00.
		rate := int64(gofakeit.Number(1500, 12000))

		_, err := tx.Exec(ctx, `
			INSERT INTO tutors (id, name, hourly_rate_cents, active, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())
		`, id, name, rate)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("tutors seeded")
	return ids, nil
}

func seedSubjects(ctx context.Context, pool *pgxpool.Pool, tutorIDs []uuid.UUID) error {
	subjects := []string{
		"Mathematics",
		"Physics",
		"Chemistry",
		"Biology",
		"English",
		"Spanish",
		"Computer Science",
		"History",
		"Economics",
		"Music Theory",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, tutorID := range tutorIDs {
		n := gofakeit.Number(1, 3)
		for i := 0; i < n; i++ {
			name := subjects[gofakeit.Number(0, len(subjects)-1)]
			_, err := tx.Exec(ctx, `
				INSERT INTO subjects (id, tutor_id, name, active, created_at, updated_at)
				VALUES ($1, $2, $3, true, now(), now())
			`, uuid.New(), tutorID, name)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("subjects seeded")
	return nil
}

func seedAvailability(ctx context.Context, pool *pgxpool.Pool, tutorIDs []uuid.UUID) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, tutorID := range tutorIDs {
		// Open weekdays Monday through Friday with a morning start between
		// 08:00 and 11:00 and a 4 to 8 hour span.
		for weekday := 1; weekday <= 5; weekday++ {
			if gofakeit.Number(0, 9) == 0 {
				continue // some tutors skip a day
			}
			startMin := gofakeit.Number(8, 11) * 60
			endMin := startMin + gofakeit.Number(4, 8)*60
			if endMin > 22*60 {
				endMin = 22 * 60
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO availability_windows (tutor_id, weekday, date, start_minute, end_minute, available)
				VALUES ($1, $2, NULL, $3, $4, true)
			`, tutorID, weekday, startMin, endMin)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability windows seeded")
	return nil
}

func seedStudents(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d students", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO students (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("students seeded: %d/%d", end, count)
	}

	log.Println("students seeded")
	return nil
}
