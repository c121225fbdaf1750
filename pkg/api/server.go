package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/xdrproxy/internal/logger"
)

// Server serves the XML-RPC endpoint and health probes over HTTP.
//
// Endpoints:
//   - POST /xlater (configurable): XML-RPC calls
//   - GET /health: Liveness probe
//   - GET /health/ready: Readiness probe
//
// The server supports graceful shutdown.
type Server struct {
	server       *http.Server
	config       Config
	listener     net.Listener
	ready        chan struct{}
	shutdownOnce sync.Once
}

// NewServer creates the HTTP server in a stopped state. Call Start to serve.
//
// Defaults are applied here so the server works when created directly
// (e.g., in tests).
func NewServer(config Config, p Proxy) *Server {
	config.applyDefaults()

	server := &http.Server{
		Addr:              net.JoinHostPort(config.Address, strconv.Itoa(config.Port)),
		Handler:           NewRouter(config, p),
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}

	return &Server{
		server: server,
		config: config,
		ready:  make(chan struct{}),
	}
}

// Start listens and serves until ctx is cancelled or serving fails.
//
// When the context is cancelled, Start initiates graceful shutdown and returns.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("XML-RPC server failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	close(s.ready)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("XML-RPC server listening", "addr", ln.Addr().String(), "path", s.config.Path)

		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("XML-RPC server shutdown signal received")
		// The cancelled ctx would abort shutdown immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("XML-RPC server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. It is safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("XML-RPC server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("XML-RPC server shutdown error: %w", err)
			logger.Error("XML-RPC server shutdown error", logger.Err(err))
		} else {
			logger.Info("XML-RPC server stopped gracefully")
		}
	})
	return shutdownErr
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address. It is nil until Ready is closed.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL returns the XML-RPC endpoint URL. It is empty until Ready is closed.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == nil {
		return ""
	}
	return "http://" + addr.String() + s.config.Path
}
