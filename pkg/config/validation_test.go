package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/xdrproxy/internal/bytesize"
)

func TestValidate_DefaultConfig(t *testing.T) {
	assert.NoError(t, Validate(GetDefaultConfig()))
}

func TestValidate_Errors(t *testing.T) {
	off := false

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"LogLevel", func(c *Config) { c.Logging.Level = "INVALID" }, "oneof"},
		{"LogFormat", func(c *Config) { c.Logging.Format = "xml" }, "oneof"},
		{"ServerPortRange", func(c *Config) { c.Server.Port = 70000 }, "max"},
		{"ServerPortNegative", func(c *Config) { c.Server.Port = -1 }, "min"},
		{"ServerPath", func(c *Config) { c.Server.Path = "xlater" }, "startswith"},
		{"MetricsPort", func(c *Config) { c.Metrics.Port = 70000 }, "max"},
		{"SampleRate", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "lte"},
		{"ProfileType", func(c *Config) { c.Telemetry.Profiling.ProfileTypes = []string{"heap"} }, "oneof"},
		{"DebugLevel", func(c *Config) { c.Proxy.DebugLevel = -5 }, "gte"},
		{"ShutdownTimeout", func(c *Config) { c.ShutdownTimeout = 0 }, "required"},
		{"ReplySize", func(c *Config) { c.Proxy.MaxReplySize = 4 * bytesize.GiB }, "record limit"},
		{"WriteTimeout", func(c *Config) { c.Proxy.CallTimeout = time.Minute }, "write_timeout"},
		{"WatchWithoutPaths", func(c *Config) { c.Schemas.Watch = true }, "requires schemas.paths"},
		{"NoSchemas", func(c *Config) { c.Schemas.Demo = &off }, "demo program is disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
