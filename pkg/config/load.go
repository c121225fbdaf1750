package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/xdrproxy/internal/bytesize"
)

const (
	appDir         = "xdrproxy"
	configFileName = "config.yaml"
)

// Load reads the configuration: defaults, then the YAML file, then
// XDRPROXY_* environment variables. CLI flags are applied by the caller.
//
// An empty path searches $XDG_CONFIG_HOME/xdrproxy/config.yaml (or
// ~/.config/xdrproxy/config.yaml). A missing file is not an error.
func Load(path string) (*Config, error) {
	v := newViper(path)

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil, errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// MustLoad is Load for commands that need a real file when one is named on
// the command line. The error tells the user how to create it.
func MustLoad(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Create one with:\n  xdrproxy init --config %s", path, path)
		}
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML, creating the directory.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()

	// XDRPROXY_PROXY_CALL_TIMEOUT=5s overrides proxy.call_timeout.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range leafKeys(reflect.TypeOf(Config{}), "") {
		_ = v.BindEnv(key)
	}

	// A false bool is indistinguishable from unset after decoding.
	v.SetDefault("telemetry.insecure", true)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(configDir())
		v.SetConfigName(strings.TrimSuffix(configFileName, ".yaml"))
		v.SetConfigType("yaml")
	}
	return v
}

// leafKeys lists the dotted mapstructure keys of every non-struct field of t.
// Viper only consults the environment for keys it knows about.
func leafKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			keys = append(keys, leafKeys(f.Type, name)...)
			continue
		}
		keys = append(keys, name)
	}
	return keys
}

// decodeHook turns "1Mi" into a ByteSize, "30s" into a Duration and
// "a,b" from the environment into a string slice. Plain numbers are bytes
// and nanoseconds respectively.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		numericHook(reflect.TypeOf(bytesize.ByteSize(0))),
		numericHook(reflect.TypeOf(time.Duration(0))),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// numericHook converts YAML numbers (often float64) into the integer kind
// behind target.
func numericHook(target reflect.Type) mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != target {
			return data, nil
		}
		var n int64
		switch d := data.(type) {
		case int:
			n = int64(d)
		case int64:
			n = d
		case uint64:
			n = int64(d)
		case float64:
			n = int64(d)
		default:
			return data, nil
		}
		if n < 0 && target.Kind() == reflect.Uint64 {
			return nil, fmt.Errorf("negative size %d", n)
		}
		return reflect.ValueOf(n).Convert(target).Interface(), nil
	}
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", appDir)
	}
	return "."
}

// GetDefaultConfigPath returns the file Load reads when no path is given.
func GetDefaultConfigPath() string {
	return filepath.Join(configDir(), configFileName)
}

// DefaultConfigExists reports whether GetDefaultConfigPath names a file.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
