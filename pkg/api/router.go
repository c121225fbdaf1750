package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/xdrproxy/internal/logger"
	"github.com/marmos91/xdrproxy/pkg/api/handlers"
)

// Proxy is what the HTTP front end serves. *proxy.Proxy implements it.
type Proxy interface {
	handlers.Translator
	Ready() bool
}

// NewRouter creates the chi router.
//
// Routes:
//   - POST {cfg.Path} - XML-RPC endpoint
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
func NewRouter(cfg Config, p Proxy) http.Handler {
	cfg.applyDefaults()

	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	healthHandler := handlers.NewHealthHandler(p)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Method(http.MethodPost, cfg.Path, handlers.NewXMLRPCHandler(p, cfg.MaxRequestSize.Int64()))

	return r
}

// requestLogger logs each HTTP request using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (DEBUG level): method, path, status, duration
//
// Completion is DEBUG because translation outcomes are already traced by the
// proxy according to the debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("HTTP request started",
			"http_request_id", requestID,
			"http_method", r.Method,
			"http_path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debug("HTTP request completed",
			"http_request_id", requestID,
			"http_method", r.Method,
			"http_path", r.URL.Path,
			"status", ww.Status(),
			logger.KeyBytes, ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start),
		)
	})
}
