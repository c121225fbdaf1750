package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# xdrproxy Configuration File
#
# Every key can be overridden with an environment variable:
#   XDRPROXY_<SECTION>_<KEY>, e.g. XDRPROXY_PROXY_DEBUG_LEVEL=50
`

// sectionComments annotate the top-level keys of a generated file.
var sectionComments = map[string]string{
	"logging":          "Log output. level: DEBUG|INFO|WARN|ERROR, format: text|json",
	"telemetry":        "OpenTelemetry tracing and Pyroscope profiling",
	"shutdown_timeout": "Maximum time to drain in-flight calls on shutdown",
	"metrics":          "Prometheus /metrics endpoint",
	"server":           "XML-RPC endpoint (POST http://<address>:<port><path>)",
	"proxy":            "Translation settings. debug_level: 0 silent, 10 summary, 20 args, 30 replies, 50 wire",
	"schemas":          "Procedure schema files. The built-in tst_prog_1 demo is used when no paths are given",
}

// InitConfig writes a default configuration file to the default location
// and returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	data, err := RenderDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// RenderDefaultConfig returns the default configuration as commented YAML.
func RenderDefaultConfig() ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(GetDefaultConfig()); err != nil {
		return nil, fmt.Errorf("failed to encode default config: %w", err)
	}

	// doc is a mapping node: keys and values alternate.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if c, ok := sectionComments[key.Value]; ok {
			key.HeadComment = c
		}
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	buf.WriteString("\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return buf.Bytes(), nil
}
