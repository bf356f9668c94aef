package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-platform/internal/appointment"
	"github.com/hackgods/clinic-appointment-platform/internal/config"
	"github.com/hackgods/clinic-appointment-platform/internal/db"
	"github.com/hackgods/clinic-appointment-platform/internal/logging"
	"github.com/hackgods/clinic-appointment-platform/internal/observability/metrics"
)

const sweepBatch = 200

// sweeper cancels unassigned requests whose slot time passed without a
// specialist answering.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("prod", "info")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "sweeper").Logger()
	logger.Info().Dur("interval", cfg.SweepInterval).Msg("sweeper starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Cancellation needs no booking lock.
	svc := appointment.NewService(appointment.NewPgRepository(pgPool), nil, logger, metrics.NewClinicMetrics(prometheus.DefaultRegisterer))

	runOnce(rootCtx, logger, svc)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping sweeper")
			return
		case <-ticker.C:
			runOnce(rootCtx, logger, svc)
		}
	}
}

func runOnce(ctx context.Context, logger zerolog.Logger, svc *appointment.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.CancelStaleRequests(runCtx, sweepBatch)
	if err != nil {
		logger.Error().Err(err).Msg("sweep run error")
		return
	}
	logger.Info().Int("cancelled", n).Dur("took", time.Since(start)).Msg("sweep run complete")
}
