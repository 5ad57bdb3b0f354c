package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dentalai/clinic-triage/internal/api"
	"github.com/dentalai/clinic-triage/internal/booking"
	"github.com/dentalai/clinic-triage/internal/chat"
	"github.com/dentalai/clinic-triage/internal/config"
	"github.com/dentalai/clinic-triage/internal/db"
	"github.com/dentalai/clinic-triage/internal/notify"
	"github.com/dentalai/clinic-triage/internal/observability/logging"
	"github.com/dentalai/clinic-triage/internal/observability/metrics"
	"github.com/dentalai/clinic-triage/internal/patient"
	"github.com/dentalai/clinic-triage/internal/redisclient"
	"github.com/dentalai/clinic-triage/internal/triage"
	"github.com/dentalai/clinic-triage/internal/waitroom"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.NewLogger("dev", "api-server")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.NewLogger(cfg.Env, "api-server")
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

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

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	registry := prometheus.NewRegistry()
	clinicMetrics := metrics.NewClinicMetrics(registry)

	gen, closeGen, err := buildGenerator(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("gemini client error")
	}
	defer closeGen()

	classifier := triage.NewClassifier(gen, cfg.TriageTimeout, logger, triage.WithFallbackHook(func(reason string) {
		clinicMetrics.ObserveTriageFallback(reason)
	}))

	repo := patient.NewPgRepository(pgPool)
	broadcaster := notify.NewBroadcaster(rdb, logger)
	bookingSvc := booking.NewService(repo, classifier, broadcaster, clinicMetrics, logger)
	chatSvc := chat.NewService(gen, chat.NewPgRepository(pgPool), cfg.TriageTimeout, logger)

	queue := waitroom.NewQueue(cfg.ResortInterval, logger, clinicMetrics)
	go queue.Run(rootCtx)
	go feedQueue(rootCtx, broadcaster, repo, queue, logger)

	router := api.NewRouter(api.RouterConfig{
		Booking:  bookingSvc,
		Chat:     chatSvc,
		Queue:    queue,
		PgPool:   pgPool,
		Redis:    rdb,
		Registry: registry,
		Env:      cfg.Env,
		Version:  version,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}

// buildGenerator wires the shared Gemini client. A missing API key leaves
// the generator nil, which puts triage and chat on their deterministic
// paths.
func buildGenerator(ctx context.Context, cfg config.Config, logger zerolog.Logger) (triage.TextGenerator, func(), error) {
	if !cfg.AssistedTriageEnabled() {
		logger.Info().Msg("GEMINI_API_KEY not set, running deterministic triage and FAQ chat only")
		return nil, func() {}, nil
	}

	gen, err := triage.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Str("model", cfg.GeminiModelID).Msg("assisted triage enabled")
	closeGen := func() {
		if err := gen.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing gemini client")
		}
	}
	return gen, closeGen, nil
}

// feedQueue keeps the waiting room in sync with the record collection.
// It seeds from the store, then applies every published snapshot.
func feedQueue(ctx context.Context, b *notify.Broadcaster, repo patient.Repository, q *waitroom.Queue, logger zerolog.Logger) {
	if records, err := repo.ListRecords(ctx); err != nil {
		logger.Error().Err(err).Msg("initial waitroom load failed")
	} else {
		q.Ingest(records)
	}

	sub, err := b.Subscribe(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("waitroom subscribe failed")
		return
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case records, ok := <-sub.Records():
			if !ok {
				return
			}
			q.Ingest(records)
		}
	}
}
