// ABOUTME: Server orchestrator that wires storage, sessions, the feedback service and the admin UI
// ABOUTME: Owns the HTTP listener, background maintenance goroutines and graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/2389/feedbackd/internal/assets"
	"github.com/2389/feedbackd/internal/auth"
	"github.com/2389/feedbackd/internal/config"
	"github.com/2389/feedbackd/internal/feedback"
	"github.com/2389/feedbackd/internal/store"
	"github.com/2389/feedbackd/internal/webadmin"
)

// limiterCleanupInterval is how often idle per-IP login limiters are dropped.
const limiterCleanupInterval = 10 * time.Minute

// FeedbackBackend is a feedback store the server can health-check and close.
type FeedbackBackend interface {
	store.FeedbackStore
	pinger
	Close() error
}

// SessionBackend is a session store the server can health-check and close.
type SessionBackend interface {
	store.SessionStore
	pinger
	Close() error
}

// Stores are the storage backends a Server runs on.
type Stores struct {
	Feedback FeedbackBackend
	Sessions SessionBackend
}

// Server serves the public widget, the submission endpoint and the admin UI.
type Server struct {
	config     *config.Config
	stores     Stores
	feedback   *feedback.Service
	sessions   *auth.SessionManager
	limiter    *auth.LoginLimiter
	admin      *webadmin.Admin
	registry   *prometheus.Registry
	handler    http.Handler
	httpServer *http.Server
	logger     *slog.Logger
}

// OpenStores opens the SQLite database and, depending on session.backend,
// either reuses it for sessions or connects to redis.
func OpenStores(cfg *config.Config) (Stores, error) {
	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return Stores{}, fmt.Errorf("opening store: %w", err)
	}

	if cfg.Session.Backend != config.SessionBackendRedis {
		return Stores{Feedback: sqlStore, Sessions: sqlStore}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Session.Redis.Addr,
		Password: cfg.Session.Redis.Password,
		DB:       cfg.Session.Redis.DB,
	})
	sessions := store.NewRedisSessionStore(client, cfg.Session.Redis.Prefix, cfg.Session.IdleTimeout)
	return Stores{Feedback: sqlStore, Sessions: sessions}, nil
}

// New opens the configured stores and builds a Server on them.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	stores, err := OpenStores(cfg)
	if err != nil {
		return nil, err
	}

	srv, err := NewWithStores(cfg, stores, logger)
	if err != nil {
		closeStores(stores)
		return nil, err
	}
	return srv, nil
}

// NewWithStores builds a Server on already-open stores. The Server takes
// ownership and closes them on Shutdown.
func NewWithStores(cfg *config.Config, stores Stores, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	creds, err := auth.NewCredentials(cfg.Admin.Username, cfg.Admin.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("loading admin credentials: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := feedback.NewService(stores.Feedback, feedback.NewMetrics(registry), logger)
	sessions := auth.NewSessionManager(stores.Sessions, auth.NewJWTSigner([]byte(cfg.Session.Secret)), auth.SessionConfig{
		IdleTimeout: cfg.Session.IdleTimeout,
		MaxLifetime: cfg.Session.MaxLifetime,
	})
	limiter := auth.NewLoginLimiter(cfg.LoginLimit.PerMinute(), cfg.LoginLimit.Burst)

	s := &Server{
		config:   cfg,
		stores:   stores,
		feedback: svc,
		sessions: sessions,
		limiter:  limiter,
		registry: registry,
		logger:   logger.With("component", "server"),
	}

	mux := http.NewServeMux()

	// Public endpoints - no auth required
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /static/", http.StripPrefix("/static", assets.FileServer()))
	mux.HandleFunc("POST /submit_feedback", s.handleSubmit)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)

	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		s.logger.Info("metrics enabled", "path", cfg.Metrics.Path)
	}

	// The admin UI has its own session-based auth
	s.admin = webadmin.New(svc, sessions, creds, limiter, webadmin.Config{
		SecureCookie: cfg.Session.SecureCookie,
	})
	s.admin.RegisterRoutes(mux)

	s.handler = withRequestID(instrument(logger.With("component", "http"), newHTTPMetrics(registry), securityHeaders(mux)))

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Registry returns the Prometheus registry the server reports on.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Server) dependencies() map[string]pinger {
	deps := map[string]pinger{"database": s.stores.Feedback}
	if !s.sharedStore() {
		deps["sessions"] = s.stores.Sessions
	}
	return deps
}

func (s *Server) sharedStore() bool {
	return any(s.stores.Feedback) == any(s.stores.Sessions)
}

// Run listens on server.http_addr and serves until ctx is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		_ = s.Shutdown(context.Background())
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	s.startBackground(bgCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	stopBackground()
	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// startBackground launches the session reaper and limiter cleanup.
func (s *Server) startBackground(ctx context.Context) {
	if s.config.Session.Backend == config.SessionBackendSQLite && s.config.Session.ReapInterval > 0 {
		go s.sessions.RunReaper(ctx, s.config.Session.ReapInterval)
	}
	go s.limiter.Run(ctx, limiterCleanupInterval)
}

// gracefulShutdown uses a fresh context since the caller's is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and closes the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	errs = append(errs, closeStores(s.stores)...)

	return errors.Join(errs...)
}

func closeStores(stores Stores) []error {
	var errs []error
	errs = appendCloseError(errs, "store close", stores.Feedback.Close())
	if any(stores.Feedback) != any(stores.Sessions) {
		errs = appendCloseError(errs, "session store close", stores.Sessions.Close())
	}
	return errs
}
