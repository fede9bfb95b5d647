package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/mercury/internal/heroku"
	"github.com/mattjoyce/mercury/internal/slack"
)

// Notifier delivers a message to Slack. *slack.Notifier implements it.
type Notifier interface {
	Deliver(ctx context.Context, msg slack.Message, token slack.AccessToken) error
}

// WebhookForwarder turns a verified webhook body into a Slack delivery.
// *heroku.Forwarder implements it.
type WebhookForwarder interface {
	Forward(ctx context.Context, target heroku.Target, body []byte) (heroku.Result, error)
}

// Config holds API server configuration
type Config struct {
	Listen string
	// SlackToken is both the bearer token callers must present and the token
	// used for Slack calls.
	SlackToken slack.AccessToken
	// HerokuSecret verifies webhook signatures. Empty rejects every webhook.
	HerokuSecret    heroku.Secret
	MaxBodySize     int64
	ShutdownTimeout time.Duration
}

// Server represents the HTTP API server
type Server struct {
	config    Config
	notifier  Notifier
	forwarder WebhookForwarder
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance
func New(config Config, notifier Notifier, forwarder WebhookForwarder, logger *slog.Logger) *Server {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = 1024 * 1024
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:    config,
		notifier:  notifier,
		forwarder: forwarder,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Minute, // covers a full channel enumeration plus join and retry
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.With(s.authMiddleware).Post("/slack", s.handleSlack)
		r.Post("/heroku/hook", s.handleHerokuHook)
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}
