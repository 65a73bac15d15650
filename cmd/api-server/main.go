package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tutorhive/booking-engine/internal/api"
	"github.com/tutorhive/booking-engine/internal/app"
	"github.com/tutorhive/booking-engine/internal/booking"
	"github.com/tutorhive/booking-engine/internal/config"
	"github.com/tutorhive/booking-engine/internal/db"
	"github.com/tutorhive/booking-engine/internal/notification"
	redisclient "github.com/tutorhive/booking-engine/internal/redis"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log := app.NewLogger(cfg.Env)
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("platform_tz", cfg.PlatformTZ),
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

	migrator, err := db.NewMigrator(pgPool, cfg.MigrationsDir)
	if err != nil {
		log.Fatal("migrator init error", zap.Error(err))
	}
	if err := migrator.Up(rootCtx); err != nil {
		log.Fatal("migration error", zap.Error(err))
	}
	if v, err := migrator.Version(rootCtx); err == nil {
		log.Info("migrations applied", zap.Int64("version", v))
	}
	_ = migrator.Close()

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
	notifier := notification.NewRedisDispatcher(rdb)
	svc := booking.NewService(repo, locker, notifier, cfg, log)

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		PgPool:   pgPool,
		Redis:    rdb,
		Location: cfg.Location,
		Log:      log,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()

	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", zap.Error(err))
	}
}
