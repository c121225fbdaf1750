package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInitConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := InitConfig(false)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, section := range []string{"# xdrproxy Configuration File", "logging:", "server:", "proxy:", "schemas:", "# Translation settings"} {
		assert.Contains(t, string(content), section)
	}

	var cfg Config
	require.NoError(t, yaml.Unmarshal(content, &cfg), "generated config is valid YAML")

	_, err = InitConfig(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = InitConfig(true)
	assert.NoError(t, err)
}

func TestInitConfigToPath_Loads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom", "config.yaml")
	require.NoError(t, InitConfigToPath(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig().Proxy, cfg.Proxy)
	assert.Equal(t, GetDefaultConfig().Server, cfg.Server)
}
