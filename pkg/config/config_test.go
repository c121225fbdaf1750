package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/xdrproxy/internal/bytesize"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
proxy:
  debug_level: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level is normalized")
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "/xlater", cfg.Server.Path)
	assert.Equal(t, int64(50), cfg.Proxy.DebugLevel)
	assert.Equal(t, 10*time.Second, cfg.Proxy.CallTimeout)
	assert.Equal(t, bytesize.MiB, cfg.Proxy.MaxReplySize)
	assert.False(t, cfg.Proxy.Pool.Enabled)
	assert.True(t, cfg.Schemas.DemoEnabled())
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig().Server, cfg.Server)
}

func TestLoad_HumanReadableValues(t *testing.T) {
	schemaDir := t.TempDir()
	path := writeConfig(t, `
server:
  port: 9000
  max_request_size: 64Ki
  write_timeout: 2m
proxy:
  call_timeout: 1500ms
  max_reply_size: 4Mi
  pool:
    enabled: true
    max_idle_per_host: 8
    idle_timeout: 1m
schemas:
  paths: ["`+filepath.ToSlash(schemaDir)+`"]
  watch: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 64*bytesize.KiB, cfg.Server.MaxRequestSize)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Proxy.CallTimeout)
	assert.Equal(t, 4*bytesize.MiB, cfg.Proxy.MaxReplySize)
	assert.True(t, cfg.Proxy.Pool.Enabled)
	assert.Equal(t, 8, cfg.Proxy.Pool.MaxIdlePerHost)
	assert.Equal(t, []string{filepath.ToSlash(schemaDir)}, cfg.Schemas.Paths)
	assert.True(t, cfg.Schemas.Watch)
	assert.False(t, cfg.Schemas.DemoEnabled(), "explicit paths disable the demo by default")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: INFO\n")
	t.Setenv("XDRPROXY_LOGGING_LEVEL", "WARN")
	t.Setenv("XDRPROXY_PROXY_DEBUG_LEVEL", "20")
	t.Setenv("XDRPROXY_SERVER_PORT", "18081")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, int64(20), cfg.Proxy.DebugLevel)
	assert.Equal(t, 18081, cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"BadYAML", "logging: [\n"},
		{"BadDuration", "proxy:\n  call_timeout: soon\n"},
		{"BadSize", "proxy:\n  max_reply_size: lots\n"},
		{"NegativeDebugLevel", "proxy:\n  debug_level: -1\n"},
		{"BadLogFormat", "logging:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xdrproxy init")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Proxy.DebugLevel = 30
	cfg.Server.MaxRequestSize = 256 * bytesize.KiB

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Proxy, loaded.Proxy)
	assert.Equal(t, cfg.Server, loaded.Server)
}

func TestDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "xdrproxy", "config.yaml"), GetDefaultConfigPath())
	assert.False(t, DefaultConfigExists())
}

func TestJSONSchema(t *testing.T) {
	data, err := json.Marshal(JSONSchema())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"logging", "server", "proxy", "schemas", "shutdown_timeout"} {
		assert.Contains(t, props, key)
	}
	assert.Contains(t, string(data), "64Ki")
}
