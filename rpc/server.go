package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rentacar/core"
	"rentacar/eventlog"
	"rentacar/observability"
)

const (
	maxRequestBytes   = 1 << 20 // 1 MiB
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Config tunes the HTTP surface.
type Config struct {
	RequestsPerMinute int
	Burst             int
	Logger            *slog.Logger
	Metrics           *observability.ContractMetrics
}

// Server exposes the contract over HTTP: signed calls on POST /v1/call and
// read-only views under /v1.
type Server struct {
	exec    *core.Executor
	events  *eventlog.Store
	limiter *RateLimiter
	logger  *slog.Logger
	handler http.Handler
}

// NewServer builds the router. events may be nil, in which case the event
// endpoints answer 503.
func NewServer(exec *core.Executor, events *eventlog.Store, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		exec:    exec,
		events:  events,
		limiter: NewRateLimiter(cfg.RequestsPerMinute, cfg.Burst, cfg.Metrics),
		logger:  logger.With(slog.String("component", "rpc")),
	}
	s.handler = otelhttp.NewHandler(s.routes(), "rentacar-rpc")
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.Post("/call", s.handleCall)
		r.Get("/methods", s.handleMethods)
		r.Get("/admin", s.handleAdmin)
		r.Get("/admin/fee", s.handleAdminFee)
		r.Get("/admin/fees-balance", s.handleAdminFeesBalance)
		r.Get("/balance", s.handleBalance)
		r.Get("/nonces/{address}", s.handleNonce)
		r.Get("/cars", s.handleCars)
		r.Get("/cars/{owner}", s.handleCarInfo)
		r.Get("/cars/{owner}/status", s.handleCarStatus)
		r.Get("/rentals/{renter}/{owner}", s.handleRental)
		r.Get("/audit", s.handleAudit)
		r.Get("/events", s.handleEvents)
		r.Get("/events/stream", s.handleEventStream)
	})
	return r
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler { return s.handler }

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("rpc listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
