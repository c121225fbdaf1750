package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/xdrproxy/internal/logger"
)

// Server exposes the process registry on GET /metrics.
type Server struct {
	port     int
	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a metrics server for port. The registry must already be
// initialized.
func NewServer(port int) (*Server, error) {
	reg := GetRegistry()
	if reg == nil {
		return nil, errors.New("metrics registry not initialized")
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return &Server{
		port: port,
		server: &http.Server{
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Start listens and serves until Stop is called or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("metrics server listen: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logger.Info("Metrics server listening", "address", ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.Background())
	}()

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
