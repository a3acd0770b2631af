package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes /metrics, /health and any handlers mounted with WithHandler.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
}

// ServerOption configures the Server mux.
type ServerOption func(mux *http.ServeMux)

// WithHandler mounts h at pattern, e.g. the per-network board at /networks.
func WithHandler(pattern string, h http.Handler) ServerOption {
	return func(mux *http.ServeMux) {
		mux.Handle(pattern, h)
	}
}

// NewServer builds a server for addr (":9090", "127.0.0.1:0", ...). Nothing
// listens until Start.
func NewServer(addr string, gatherer prometheus.Gatherer, opts ...ServerOption) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck // best-effort health response
	})
	for _, opt := range opts {
		opt(mux)
	}

	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start binds the address and serves in the background. A bind failure or
// a serve error is delivered on the returned channel, which is closed once
// the server stops.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		errCh <- fmt.Errorf("metrics server: %w", err)
		close(errCh)
		return errCh
	}
	s.listener = ln

	go func() {
		defer close(errCh)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()
	return errCh
}

// Addr returns the bound address once started, the configured one otherwise.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections and waits for active ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
