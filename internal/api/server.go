package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/marcus/sutra/internal/payment"
	"github.com/marcus/sutra/internal/serverdb"
)

// subscriptionMarker is the single write the payment webhook performs.
type subscriptionMarker interface {
	MarkSubscriptionActive(userID string, now time.Time) error
}

// Server is the HTTP API server for sutra-server.
type Server struct {
	config      Config
	http        *http.Server
	store       *serverdb.ServerDB
	payments    payment.Provider
	upgrades    subscriptionMarker
	metrics     *Metrics
	rateLimiter *RateLimiter
	now         func() time.Time
	cancel      context.CancelFunc
	upgrader    websocket.Upgrader

	bcryptCost int
	// watchPingInterval is how often idle watch streams are pinged.
	watchPingInterval time.Duration
}

// NewServer creates a new Server with the given config, store and payment provider.
func NewServer(cfg Config, store *serverdb.ServerDB, payments payment.Provider) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("server store is required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment provider is required")
	}
	s := &Server{
		config:            cfg,
		store:             store,
		payments:          payments,
		upgrades:          store,
		metrics:           NewMetrics(),
		rateLimiter:       NewRateLimiter(),
		now:               time.Now,
		bcryptCost:        defaultBcryptCost,
		watchPingInterval: 30 * time.Second,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.allowWatchOrigin,
	}

	s.http = &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     s.routes(),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: watch streams are long-lived. Handlers that write
		// once finish well inside ReadTimeout+processing.
		IdleTimeout: 120 * time.Second,
	}

	return s, nil
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()

	// Periodically prune old auth events and idle rate limit buckets
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("cleanup panic", "panic", r)
			}
		}()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.rateLimiter.Cleanup(10 * time.Minute)
				n, err := s.store.CleanupAuthEvents(s.config.AuthEventRetention)
				if err != nil {
					slog.Error("cleanup auth events", "err", err)
				} else if n > 0 {
					slog.Info("cleaned up auth events", "count", n)
				}
			}
		}
	}()

	return nil
}

// Handler returns the fully wrapped HTTP handler, for embedding the API in
// another server or an httptest.Server.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.http.Shutdown(ctx)
}

// routes builds the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health & metrics
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metricz", s.handleMetrics)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Auth (public)
	mux.HandleFunc("POST /v1/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /v1/auth/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("GET /v1/auth/me", s.requireAuth(s.handleMe))

	// Journey document
	mux.HandleFunc("GET /v1/journey", s.requireAuth(s.withRateLimit(s.handleGetJourney, s.config.RateLimitOther)))
	mux.HandleFunc("PUT /v1/journey", s.requireAuth(s.withRateLimit(s.handlePutJourney, s.config.RateLimitOther)))
	mux.HandleFunc("GET /v1/journey/watch", s.requireAuth(s.withRateLimit(s.handleWatchJourney, s.config.RateLimitOther)))

	// Subscription document
	mux.HandleFunc("GET /v1/subscription", s.requireAuth(s.withRateLimit(s.handleGetSubscription, s.config.RateLimitOther)))
	mux.HandleFunc("GET /v1/subscription/watch", s.requireAuth(s.withRateLimit(s.handleWatchSubscription, s.config.RateLimitOther)))

	// Payment provider glue
	mux.HandleFunc("POST /v1/checkout/sessions", s.handleCreateCheckoutSession)
	mux.HandleFunc("POST /v1/checkout/verify", s.handleVerifyCheckoutSession)
	mux.HandleFunc("POST /v1/webhooks/stripe", s.handleStripeWebhook)

	return chain(mux, recoveryMiddleware, requestContextMiddleware, observeMiddleware(s.metrics), s.corsMiddleware, maxBytesMiddleware(1<<20), authRateLimitMiddleware(s.rateLimiter, s.config.RateLimitAuth, s.metrics))
}

// handleHealth returns a health check response, pinging the server DB.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMetrics returns a snapshot of server metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
