// Package server provides the HTTP API for matching CVs against job listings.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/cv-matcher/internal/db"
	"github.com/jonathan/cv-matcher/internal/extraction"
	"github.com/jonathan/cv-matcher/internal/logger"
	"github.com/jonathan/cv-matcher/internal/matching"
	"github.com/jonathan/cv-matcher/internal/server/middleware"
	"github.com/jonathan/cv-matcher/internal/server/ratelimit"
	"github.com/jonathan/cv-matcher/internal/types"
	"go.uber.org/zap"
)

// DefaultMaxUploadBytes caps the multipart body of upload endpoints
const DefaultMaxUploadBytes = 32 << 20

// MatchService runs the matching pipeline
type MatchService interface {
	Process(ctx context.Context, listingURL string, uploads []matching.Upload) (*matching.ProcessResult, error)
	Extract(filename string, data []byte) (types.ExtractedProfile, extraction.Report, error)
	MaxFiles() int
}

// MatchStore reads stored verdicts
type MatchStore interface {
	GetMatchGroup(ctx context.Context, groupID uuid.UUID) (*db.MatchGroup, error)
	GetMatchResponse(ctx context.Context, responseID uuid.UUID) (*db.MatchResponse, error)
	ListMatchGroups(ctx context.Context, limit int) ([]db.MatchGroupSummary, error)
	DeleteMatchGroup(ctx context.Context, groupID uuid.UUID) error
}

// Pinger is implemented by stores that can report their health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server configuration
type Config struct {
	Port           int
	MaxUploadBytes int64
	CORSOrigins    []string
	RateLimit      *ratelimit.Config // nil reads RATE_LIMIT_* from the environment
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	service     MatchService
	store       MatchStore
	validate    *validator.Validate
	rateLimiter *ratelimit.Limiter
	logger      *zap.Logger
	maxUpload   int64
}

// New creates a server. It does not listen until Start.
func New(cfg Config, service MatchService, store MatchStore, log *zap.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	rl := cfg.RateLimit
	if rl == nil {
		rl = ratelimit.LoadConfig()
	}

	s := &Server{
		service:     service,
		store:       store,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		rateLimiter: ratelimit.NewLimiter(rl),
		logger:      logger.OrNop(log),
		maxUpload:   cfg.MaxUploadBytes,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /process", s.handleProcess)
	mux.HandleFunc("POST /extract", s.handleExtract)
	mux.HandleFunc("GET /match_groups", s.handleListMatchGroups)
	mux.HandleFunc("GET /match_group/{id}", s.handleGetMatchGroup)
	mux.HandleFunc("DELETE /match_group/{id}", s.handleDeleteMatchGroup)
	mux.HandleFunc("GET /matches/{id}", s.handleGetMatch)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: middleware.Chain(mux,
			middleware.RequestID,
			middleware.Logging(s.logger),
			middleware.CORS(cfg.CORSOrigins...),
			middleware.RateLimit(s.rateLimiter, s.logger),
		),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second, // one model call per CV
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped router
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// handleHealth reports ok, or 503 when the store cannot be reached
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
