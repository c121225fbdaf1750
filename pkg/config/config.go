package config

import (
	"time"

	"github.com/marmos91/xdrproxy/internal/bytesize"
	"github.com/marmos91/xdrproxy/pkg/api"
)

// EnvPrefix prefixes environment variable overrides (XDRPROXY_PROXY_DEBUG_LEVEL).
const EnvPrefix = "XDRPROXY"

// Config represents the xdrproxy configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (XDRPROXY_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// The debug level set here is only the startup value; system.setDebugLevel
// changes it at runtime without touching the file.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Server configures the XML-RPC HTTP endpoint
	Server api.Config `mapstructure:"server" yaml:"server"`

	// Proxy configures translation and the outbound ONC-RPC client
	Proxy ProxyConfig `mapstructure:"proxy" yaml:"proxy"`

	// Schemas lists the procedure schema files
	Schemas SchemasConfig `mapstructure:"schemas" yaml:"schemas"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS towards the collector
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes []string `mapstructure:"profile_types" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ProxyConfig configures translation.
type ProxyConfig struct {
	// DebugLevel is the trace verbosity at startup (0 = silent, 10 summary,
	// 20 arguments, 30 replies, 50 wire dumps).
	DebugLevel int64 `mapstructure:"debug_level" validate:"gte=0" yaml:"debug_level"`

	// CallTimeout bounds one ONC-RPC call including connect.
	// Default: 10s
	CallTimeout time.Duration `mapstructure:"call_timeout" validate:"gte=0" yaml:"call_timeout"`

	// MaxReplySize caps a reassembled ONC-RPC reply record.
	// Default: 1Mi
	MaxReplySize bytesize.ByteSize `mapstructure:"max_reply_size" yaml:"max_reply_size"`

	// Pool controls reuse of target connections
	Pool PoolConfig `mapstructure:"pool" yaml:"pool"`
}

// PoolConfig controls per-target connection reuse.
type PoolConfig struct {
	// Enabled turns on connection reuse. Default: false (one connection per call)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// MaxIdlePerHost caps idle connections per target.
	// Default: 4
	MaxIdlePerHost int `mapstructure:"max_idle_per_host" validate:"gte=0" yaml:"max_idle_per_host"`

	// IdleTimeout closes connections idle for longer than this.
	// Default: 30s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gte=0" yaml:"idle_timeout"`
}

// SchemasConfig lists schema sources.
type SchemasConfig struct {
	// Paths are schema files or directories of *.yaml / *.yml files
	Paths []string `mapstructure:"paths" yaml:"paths"`

	// Watch reloads the schemas when a file under Paths changes
	Watch bool `mapstructure:"watch" yaml:"watch"`

	// Demo registers the built-in tst_prog_1 program.
	// Default: true when Paths is empty
	Demo *bool `mapstructure:"demo" yaml:"demo,omitempty"`
}

// DemoEnabled reports whether the built-in demo program is registered.
func (c *SchemasConfig) DemoEnabled() bool {
	if c.Demo == nil {
		return len(c.Paths) == 0
	}
	return *c.Demo
}
