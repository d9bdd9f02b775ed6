// File: internal/infra/web/server.go
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"social-scrape-platform/internal/config"
	"social-scrape-platform/internal/infra/logging"
	"social-scrape-platform/internal/usecase"
)

type ctxKey string

const ctxKeyOwnerID ctxKey = "owner_id"

// Server is the authenticated content acquisition API.
type Server struct {
	scrapeUC usecase.ScrapeUseCase
	ledgerUC usecase.LedgerUseCase
	auth     *AuthManager
	log      *zerolog.Logger
	server   *http.Server
}

func NewServer(cfg *config.APIConfig, scrapeUC usecase.ScrapeUseCase, ledgerUC usecase.LedgerUseCase, logger *zerolog.Logger) *Server {
	s := &Server{
		scrapeUC: scrapeUC,
		ledgerUC: ledgerUC,
		auth:     NewAuthManager(cfg.JWTSecret, 0),
		log:      logger,
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Routes builds the router; exposed separately so tests can drive the full
// middleware stack through httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/scrapes", s.handleCreateScrape)
		r.Get("/scrapes/{jobID}", s.handleGetScrape)
		r.Post("/scrapes/{jobID}/transcript", s.handleFetchTranscript)
		r.Get("/credits", s.handleGetCredits)
	})
	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("api server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// traceMiddleware tags every request with a trace id and logs it on the way
// out with the status and duration.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Request-Id")
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx := logging.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Request-Id", traceID)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// authMiddleware verifies the bearer token and stashes the owner id in the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := s.auth.OwnerFromRequest(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(logging.WithOwnerID(r.Context(), ownerID), ctxKeyOwnerID, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ownerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyOwnerID).(string)
	return id
}
