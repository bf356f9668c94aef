package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hackgods/clinic-appointment-platform/internal/api"
	"github.com/hackgods/clinic-appointment-platform/internal/appointment"
	"github.com/hackgods/clinic-appointment-platform/internal/availability"
	"github.com/hackgods/clinic-appointment-platform/internal/config"
	"github.com/hackgods/clinic-appointment-platform/internal/db"
	"github.com/hackgods/clinic-appointment-platform/internal/logging"
	"github.com/hackgods/clinic-appointment-platform/internal/observability/metrics"
	"github.com/hackgods/clinic-appointment-platform/internal/records"
	redisclient "github.com/hackgods/clinic-appointment-platform/internal/redis"
	"github.com/hackgods/clinic-appointment-platform/internal/specialist"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("prod", "info")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "api-server").Logger()
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("timezone", cfg.ClinicLocation.String()).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Without Redis bookings still serialize on the unique index.
	var (
		locker    redisclient.Locker = redisclient.NoopLocker{}
		redisPing api.PingFunc
	)
	rdb, err := redisclient.NewClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, booking lock disabled")
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		redisPing = redisclient.Ping(rdb)
		logger.Info().Msg("connected to Redis")
	}

	m := metrics.NewClinicMetrics(prometheus.DefaultRegisterer)

	apptRepo := appointment.NewPgRepository(pgPool)
	specRepo := specialist.NewPgRepository(pgPool)
	store := records.NewPgStore(pgPool)

	handler := api.NewRouter(api.RouterConfig{
		Appointments: appointment.NewService(apptRepo, locker, logger, m),
		Specialists:  specialist.NewService(specRepo, logger),
		Availability: availability.NewResolver(apptRepo, specRepo, logger,
			availability.WithLocation(cfg.ClinicLocation),
			availability.WithHorizonDays(cfg.HorizonDays),
			availability.WithMetrics(m),
		),
		Records:  store,
		Loader:   records.NewLoader(store, cfg.RecordFetchConcurrency, m),
		Logger:   logger,
		Gatherer: prometheus.DefaultGatherer,
		Location: cfg.ClinicLocation,
		Postgres: pgPool.Ping,
		Redis:    redisPing,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server failed")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
	logger.Info().Msg("api-server stopped")
}
