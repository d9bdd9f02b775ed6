// File: internal/infra/http/server.go
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"social-scrape-platform/internal/config"
	"social-scrape-platform/internal/infra/redis"
)

// Server exposes the unauthenticated operational surface: liveness plus the
// Prometheus scrape endpoint. It listens on its own port so the API port
// never serves metrics.
type Server struct {
	cfg    *config.OpsConfig
	pool   *pgxpool.Pool
	rds    *redis.Client
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(cfg *config.OpsConfig, pool *pgxpool.Pool, rds *redis.Client, logger *zerolog.Logger) *Server {
	s := &Server{cfg: cfg, pool: pool, rds: rds, log: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("ops server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{"postgres": "ok", "redis": "ok"}
	healthy := true

	if s.pool != nil {
		if err := s.pool.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		}
	}
	if s.rds != nil {
		if err := s.rds.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(checks)
}
