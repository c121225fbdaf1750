// Package metrics defines the observability interfaces of the proxy and the
// process-wide Prometheus registry they are exported through.
//
// Metrics are opt-in: until InitRegistry is called IsEnabled reports false
// and constructors in pkg/metrics/prometheus return nil, which every consumer
// treats as "no metrics".
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process registry with the Go runtime and process
// collectors. Calling it again returns the existing registry.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// ResetRegistry drops the process registry. Tests use it to start from a
// clean set of collectors.
func ResetRegistry() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
}
