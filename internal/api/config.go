// Package api serves the admin HTTP surface: starting and resuming crawls,
// inspecting sessions and recent changes, health and metrics.
package api

import "time"

// Default timeout values for the HTTP server.
const (
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	// Port is the port number to listen on.
	Port int `mapstructure:"port"`

	// Debug enables gin debug mode.
	Debug bool `mapstructure:"debug"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// JWTSecret enables bearer-token auth on /api/v1 when set.
	JWTSecret string `mapstructure:"-"`

	// ServiceName and ServiceVersion are reported by /health.
	ServiceName    string `mapstructure:"-"`
	ServiceVersion string `mapstructure:"-"`
}

// SetDefaults applies default values where none are set.
func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.ServiceName == "" {
		c.ServiceName = "catalog-ingestor"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
}
