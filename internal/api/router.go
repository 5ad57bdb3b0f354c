package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dentalai/clinic-triage/internal/booking"
	"github.com/dentalai/clinic-triage/internal/chat"
	"github.com/dentalai/clinic-triage/internal/waitroom"
)

type RouterConfig struct {
	Booking  *booking.Service
	Chat     *chat.Service
	Queue    *waitroom.Queue
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Registry *prometheus.Registry
	Env      string
	Version  string
	Logger   zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health/live", livenessHandler(cfg.Env, cfg.Version))
	r.Get("/health/ready", readinessHandler(cfg.Env, cfg.Version, cfg.PgPool, cfg.Redis))

	if cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", createBookingHandler(cfg.Booking))
		r.Get("/", listBookingsHandler(cfg.Booking))
		r.Get("/{id}", getBookingHandler(cfg.Booking))
		r.Post("/{id}/status", updateStatusHandler(cfg.Booking))
	})

	r.Get("/waitlist", waitlistHandler(cfg.Queue))
	r.Method(http.MethodGet, "/waitlist/stream", waitlistStreamHandler(cfg.Queue, cfg.Logger))

	r.Get("/slots", slotsHandler())

	r.Route("/chat", func(r chi.Router) {
		r.Post("/", chatHandler(cfg.Chat))
		r.Get("/{sessionID}", chatHistoryHandler(cfg.Chat))
	})

	return r
}
