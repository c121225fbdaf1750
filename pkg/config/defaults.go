package config

import (
	"strings"
	"time"

	"github.com/marmos91/xdrproxy/internal/bytesize"
	"github.com/marmos91/xdrproxy/internal/telemetry"
	"github.com/marmos91/xdrproxy/pkg/api"
)

// Defaults for settings left empty in the file and environment.
const (
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsPort     = 9090
	DefaultCallTimeout     = 10 * time.Second
	DefaultMaxReplySize    = bytesize.MiB
	DefaultOTLPEndpoint    = "localhost:4317"
	DefaultPyroscopeURL    = "http://localhost:4040"
)

// orDefault stores def in *field when it holds the zero value.
func orDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

// ApplyDefaults fills zero-valued fields. Explicit values are kept, so an
// explicit 0 cannot be expressed for fields with a non-zero default; the
// debug level defaults to 0 and is unaffected.
func ApplyDefaults(cfg *Config) {
	l := &cfg.Logging
	orDefault(&l.Level, "INFO")
	l.Level = strings.ToUpper(l.Level)
	orDefault(&l.Format, "text")
	orDefault(&l.Output, "stdout")

	t := &cfg.Telemetry
	orDefault(&t.Endpoint, DefaultOTLPEndpoint)
	orDefault(&t.SampleRate, 1.0)
	orDefault(&t.Profiling.Endpoint, DefaultPyroscopeURL)
	if len(t.Profiling.ProfileTypes) == 0 {
		t.Profiling.ProfileTypes = append([]string(nil), telemetry.DefaultProfileTypes...)
	}

	orDefault(&cfg.ShutdownTimeout, DefaultShutdownTimeout)
	if cfg.Metrics.Enabled {
		orDefault(&cfg.Metrics.Port, DefaultMetricsPort)
	}

	s := &cfg.Server
	orDefault(&s.Port, api.DefaultPort)
	orDefault(&s.Path, api.DefaultPath)
	orDefault(&s.ReadTimeout, 10*time.Second)
	orDefault(&s.WriteTimeout, 60*time.Second)
	orDefault(&s.IdleTimeout, 120*time.Second)
	orDefault(&s.MaxRequestSize, bytesize.MiB)

	p := &cfg.Proxy
	orDefault(&p.CallTimeout, DefaultCallTimeout)
	orDefault(&p.MaxReplySize, DefaultMaxReplySize)
	orDefault(&p.Pool.MaxIdlePerHost, 4)
	orDefault(&p.Pool.IdleTimeout, 30*time.Second)
}

// GetDefaultConfig returns the configuration written by `xdrproxy init`.
func GetDefaultConfig() *Config {
	cfg := &Config{Telemetry: TelemetryConfig{Insecure: true}}
	ApplyDefaults(cfg)
	return cfg
}
