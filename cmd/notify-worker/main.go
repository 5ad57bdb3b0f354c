package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentalai/clinic-triage/internal/config"
	"github.com/dentalai/clinic-triage/internal/db"
	"github.com/dentalai/clinic-triage/internal/notify"
	"github.com/dentalai/clinic-triage/internal/observability/logging"
	"github.com/dentalai/clinic-triage/internal/patient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.NewLogger("dev", "notify-worker")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.NewLogger(cfg.Env, "notify-worker")
	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("notify-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	repo := patient.NewPgRepository(pgPool)
	dispatcher := notify.NewDispatcher(repo, notify.LogSender{Logger: logger}, logger)

	// Run once at startup
	runOnce(rootCtx, dispatcher, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping notify worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, dispatcher, logger)
		}
	}
}

func runOnce(ctx context.Context, d *notify.Dispatcher, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := d.DispatchPending(runCtx); err != nil {
		logger.Error().Err(err).Msg("dispatch run error")
		return
	}
	logger.Info().Dur("took", time.Since(start)).Msg("dispatch run complete")
}
