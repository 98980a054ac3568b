package fetcher

import "time"

// Default configuration values.
const (
	defaultUserAgent      = "Mozilla/5.0 (compatible; CatalogIngestor/1.0)"
	defaultRequestTimeout = 30 * time.Second
	defaultMaxRetries     = 3
	defaultBackoffBase    = time.Second
	defaultMaxBackoff     = 30 * time.Second
	defaultMaxRedirects   = 10
	defaultBurst          = 1
)

// Config holds outbound request settings.
type Config struct {
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	// MaxRetries is the number of retries after the first attempt. Zero disables
	// retries; a negative value selects the default.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// BackoffBase is the delay before the first retry; later retries double it.
	BackoffBase  time.Duration `mapstructure:"backoff_base"  yaml:"backoff_base"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff"   yaml:"max_backoff"`
	MaxRedirects int           `mapstructure:"max_redirects" yaml:"max_redirects"`
	// RequestsPerSecond paces outbound requests across all callers. Zero disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst"               yaml:"burst"`
}

// WithDefaults returns a copy of the config with default values applied for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
	return c
}
