package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tutorhive/booking-engine/internal/app"
	"github.com/tutorhive/booking-engine/internal/booking"
	"github.com/tutorhive/booking-engine/internal/config"
	"github.com/tutorhive/booking-engine/internal/db"
	"github.com/tutorhive/booking-engine/internal/notification"
	redisclient "github.com/tutorhive/booking-engine/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log := app.NewLogger(cfg.Env)
	defer func() { _ = log.Sync() }()

	log.Info("expiry-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Duration("booking_ttl", cfg.BookingTTL),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, int32(cfg.PgMaxConns))
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisTutorLocker(rdb, cfg.LockTTL)
	notifier := notification.NewLogDispatcher(log)
	svc := booking.NewService(repo, locker, notifier, cfg, log)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.ExpireStalePending(runCtx); err != nil {
		log.Error("expiry run error", zap.Error(err))
		return
	}
	log.Info("expiry run complete", zap.Duration("took", time.Since(start)))
}
