package api

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type healthResponse struct {
	Status   string            `json:"status"`
	Env      string            `json:"env"`
	Version  string            `json:"version"`
	Checks   map[string]string `json:"checks,omitempty"`
	ServerTS string            `json:"serverTimestamp"`
}

func livenessHandler(env, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:   "ok",
			Env:      env,
			Version:  version,
			ServerTS: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func readinessHandler(env, version string, pool *pgxpool.Pool, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		checks := map[string]string{"postgres": "ok", "redis": "ok"}
		status := http.StatusOK

		if err := pool.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		writeJSON(w, status, healthResponse{
			Status:   overall,
			Env:      env,
			Version:  version,
			Checks:   checks,
			ServerTS: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
