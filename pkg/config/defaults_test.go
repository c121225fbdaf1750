package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/xdrproxy/internal/bytesize"
	"github.com/marmos91/xdrproxy/internal/telemetry"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
	assert.Equal(t, telemetry.DefaultProfileTypes, cfg.Telemetry.Profiling.ProfileTypes)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Zero(t, cfg.Metrics.Port, "port only defaults when metrics are enabled")
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, bytesize.MiB, cfg.Server.MaxRequestSize)
	assert.Zero(t, cfg.Proxy.DebugLevel)
	assert.Equal(t, 4, cfg.Proxy.Pool.MaxIdlePerHost)
	assert.Equal(t, 30*time.Second, cfg.Proxy.Pool.IdleTimeout)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "warn", Format: "json", Output: "stderr"},
		Metrics: MetricsConfig{Enabled: true},
		Proxy:   ProxyConfig{DebugLevel: 10, CallTimeout: 3 * time.Second},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, int64(10), cfg.Proxy.DebugLevel)
	assert.Equal(t, 3*time.Second, cfg.Proxy.CallTimeout)
}

func TestDemoEnabled(t *testing.T) {
	on, off := true, false

	assert.True(t, (&SchemasConfig{}).DemoEnabled())
	assert.False(t, (&SchemasConfig{Paths: []string{"a.yaml"}}).DemoEnabled())
	assert.True(t, (&SchemasConfig{Paths: []string{"a.yaml"}, Demo: &on}).DemoEnabled())
	assert.False(t, (&SchemasConfig{Demo: &off}).DemoEnabled())
}
