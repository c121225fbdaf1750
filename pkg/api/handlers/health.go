package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
)

// ReadinessChecker reports whether the proxy can translate calls.
// *proxy.Proxy implements it.
type ReadinessChecker interface {
	Ready() bool
	ListProcedures() []schema.ProcedureInfo
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checker   ReadinessChecker
	startTime time.Time
}

// NewHealthHandler creates a health handler. checker may be nil, in which
// case the readiness probe always fails.
func NewHealthHandler(checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		checker:   checker,
		startTime: time.Now(),
	}
}

// Liveness handles GET /health. It succeeds whenever the process serves HTTP.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "xdrproxy",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     time.Since(h.startTime).Round(time.Second).String(),
	}))
}

// Readiness handles GET /health/ready. The proxy is ready once at least one
// procedure is registered.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("proxy not initialized"))
		return
	}
	if !h.checker.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("no procedures registered"))
		return
	}

	programs := make(map[string]int)
	procs := h.checker.ListProcedures()
	for _, p := range procs {
		programs[p.Program]++
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"programs":   programs,
		"procedures": len(procs),
	}))
}
