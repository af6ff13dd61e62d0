package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/service"
)

type Dependencies struct {
	Logger   *slog.Logger
	Addr     string
	Engine   *service.Engine
	Observer service.Observer
	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler
	// StreamInterval is the push period of the status stream. Defaults to 1s.
	StreamInterval time.Duration
	// DiagnosticsPerSecond caps how many diagnostic payloads are logged.
	DiagnosticsPerSecond float64
}

type Server struct {
	httpServer  *http.Server
	logger      *slog.Logger
	mux         *http.ServeMux
	engine      *service.Engine
	observer    service.Observer
	streamEvery time.Duration
	diagLimiter *rate.Limiter
	diagDropped atomic.Int64
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.StreamInterval <= 0 {
		d.StreamInterval = time.Second
	}
	if d.DiagnosticsPerSecond <= 0 {
		d.DiagnosticsPerSecond = 2
	}

	s := &Server{
		logger:      d.Logger,
		mux:         mux,
		engine:      d.Engine,
		observer:    d.Observer,
		streamEvery: d.StreamInterval,
		diagLimiter: rate.NewLimiter(rate.Limit(d.DiagnosticsPerSecond), 5),
	}

	mux.HandleFunc("POST /v1/distance", s.handleDistance)
	mux.HandleFunc("POST /distance", s.handleDistance)
	mux.HandleFunc("POST /", s.handleDiagnostic)

	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /{$}", s.handleStatus)
	mux.HandleFunc("GET /v1/status/stream", s.handleStatusStream)

	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	handler := requestIDMiddleware(loggingMiddleware(d.Logger, mux))

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Serve is Start on an existing listener.
func (s *Server) Serve(lis net.Listener) error {
	err := s.httpServer.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
