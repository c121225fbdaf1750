package api

import (
	"time"

	"github.com/marmos91/xdrproxy/internal/bytesize"
)

// DefaultPort is the port the XML-RPC endpoint listens on.
const DefaultPort = 8081

// DefaultPath is the URL path of the XML-RPC endpoint.
const DefaultPath = "/xlater"

// Config configures the XML-RPC HTTP server.
type Config struct {
	// Address is the interface to bind. Empty binds all interfaces.
	Address string `mapstructure:"address" yaml:"address"`

	// Port is the HTTP port. 0 picks a free port, which is only useful in tests.
	// Default: 8081
	Port int `mapstructure:"port" validate:"min=0,max=65535" yaml:"port"`

	// Path is the URL path XML-RPC calls are POSTed to.
	// Default: /xlater
	Path string `mapstructure:"path" validate:"omitempty,startswith=/" yaml:"path"`

	// ReadTimeout bounds reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds writing the response. It must exceed the proxy
	// call timeout or slow targets surface as dropped connections.
	// Default: 60s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is how long a keep-alive connection may sit idle.
	// Default: 120s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// MaxRequestSize caps the XML-RPC request body.
	// Default: 1Mi
	MaxRequestSize bytesize.ByteSize `mapstructure:"max_request_size" yaml:"max_request_size"`
}

// applyDefaults fills in zero values. Port is left alone so 0 stays usable.
func (c *Config) applyDefaults() {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.MaxRequestSize == 0 {
		c.MaxRequestSize = bytesize.MiB
	}
}
