// Package http serves the bill store API consumed by the client components.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"billed/internal/backend"
	applog "billed/internal/log"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultRateLimit      = 60
)

// Options tune the API server. Zero values select the defaults.
type Options struct {
	// Token, when set, is required as a Bearer token on /bills routes.
	Token string
	// MaxUploadBytes caps a receipt upload, multipart overhead included.
	MaxUploadBytes int64
	// RateLimit is the number of writes a client may send per minute.
	RateLimit int
}

type Server struct {
	http.Server
	backend     backend.Backend
	logger      *applog.Logger
	validate    *validator.Validate
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	token       string
	maxUpload   int64

	shutdownOnce sync.Once
}

func NewServer(addr string, b backend.Backend, logger *applog.Logger, opts Options) *Server {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentHTTP)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	s := &Server{
		backend:     b,
		logger:      logger,
		validate:    newValidator(),
		rateLimiter: newRateLimiter(opts.RateLimit),
		metrics:     &securityMetrics{},
		token:       opts.Token,
		maxUpload:   opts.MaxUploadBytes,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(applog.Middleware(s.logger))
	r.Use(s.withSecurity)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	// Receipt keys are unguessable and embedded in bill records, so receipts
	// are served without a token.
	r.With(applog.ComponentMiddleware(applog.ComponentStorage)).Get("/receipts/{key}", s.handleReceipt)

	r.Group(func(r chi.Router) {
		r.Use(applog.ComponentMiddleware(applog.ComponentBills))
		r.Use(s.requireToken)
		r.Get("/bills", s.handleListBills)
		r.Post("/bills", s.handleCreateBill)
		r.Patch("/bills/{id}", s.handleUpdateBill)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "No route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed on "+r.URL.Path)
	})
	return r
}

// Shutdown stops the rate limiter cleanup and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady pings the backend when it supports it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.backend.(interface{ Ping(context.Context) error }); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Store unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
