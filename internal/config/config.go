// Package config loads the catalog ingestor configuration from defaults,
// an optional YAML file, and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/api"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/database"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/extractor"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/fetcher"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/ingest"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/scheduler"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// AppConfig holds process-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// SourceConfig describes the catalog being crawled.
type SourceConfig struct {
	BaseURL            string   `mapstructure:"base_url"`
	ListingPathPattern string   `mapstructure:"listing_path_pattern"`
	RecordMarker       string   `mapstructure:"record_marker"`
	RatingScale        []string `mapstructure:"rating_scale"`
}

// CrawlConfig controls batching and politeness.
type CrawlConfig struct {
	BatchSize          int           `mapstructure:"batch_size"`
	RecordDelay        time.Duration `mapstructure:"record_delay"`
	BatchDelay         time.Duration `mapstructure:"batch_delay"`
	PageFailurePenalty int           `mapstructure:"page_failure_penalty"`
}

// Config is the full application configuration.
type Config struct {
	App       AppConfig        `mapstructure:"app"`
	Logger    logger.Config    `mapstructure:"logger"`
	Server    api.Config       `mapstructure:"server"`
	Auth      AuthConfig       `mapstructure:"auth"`
	Database  database.Config  `mapstructure:"database"`
	Source    SourceConfig     `mapstructure:"source"`
	Fetcher   fetcher.Config   `mapstructure:"fetcher"`
	Crawl     CrawlConfig      `mapstructure:"crawl"`
	Scheduler scheduler.Config `mapstructure:"scheduler"`
}

// SetDefaults registers production-safe defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app", map[string]any{
		"name":        "catalog-ingestor",
		"version":     "1.0.0",
		"environment": EnvProduction,
		"debug":       false,
	})

	v.SetDefault("logger", map[string]any{
		"level":        "info",
		"development":  false,
		"encoding":     logger.EncodingJSON,
		"output_paths": []string{"stdout"},
	})

	v.SetDefault("server", map[string]any{
		"port":             api.DefaultPort,
		"read_timeout":     api.DefaultReadTimeout.String(),
		"write_timeout":    api.DefaultWriteTimeout.String(),
		"idle_timeout":     api.DefaultIdleTimeout.String(),
		"shutdown_timeout": api.DefaultShutdownTimeout.String(),
	})

	v.SetDefault("database", map[string]any{
		"host":    "localhost",
		"port":    "5432",
		"user":    "postgres",
		"name":    "catalog",
		"sslmode": "disable",
	})

	v.SetDefault("source", map[string]any{
		"base_url":             ingest.DefaultBaseURL,
		"listing_path_pattern": ingest.DefaultListingPathPattern,
		"record_marker":        extractor.DefaultRecordMarker,
		"rating_scale":         extractor.DefaultRatingScale,
	})

	v.SetDefault("fetcher", map[string]any{
		"user_agent":          "Mozilla/5.0 (compatible; CatalogIngestor/1.0)",
		"request_timeout":     "30s",
		"max_retries":         3,
		"backoff_base":        "1s",
		"max_backoff":         "30s",
		"max_redirects":       10,
		"requests_per_second": 0,
		"burst":               1,
	})

	v.SetDefault("crawl", map[string]any{
		"batch_size":           ingest.DefaultBatchSize,
		"record_delay":         ingest.DefaultRecordDelay.String(),
		"batch_delay":          ingest.DefaultBatchDelay.String(),
		"page_failure_penalty": ingest.DefaultPageFailurePenalty,
	})

	v.SetDefault("scheduler", map[string]any{
		"enabled":      false,
		"interval":     scheduler.DefaultInterval.String(),
		"run_on_start": false,
	})
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Logger = cfg.Logger.WithDefaults()
	if cfg.App.Debug {
		cfg.Logger.Level = logger.DebugLevel
		cfg.Server.Debug = true
	}
	cfg.Server.JWTSecret = cfg.Auth.JWTSecret
	cfg.Server.ServiceName = cfg.App.Name
	cfg.Server.ServiceVersion = cfg.App.Version

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Fetcher = cfg.Fetcher.WithDefaults()
	return &cfg, nil
}

// Validate rejects settings a crawl cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Logger.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logger: %w", err))
	}
	if err := c.Ingest().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("crawl: %w", err))
	}
	if len(c.Source.RatingScale) == 0 {
		errs = append(errs, errors.New("source: rating scale must not be empty"))
	}
	if c.Fetcher.MaxRetries < 0 {
		errs = append(errs, errors.New("fetcher: max retries must not be negative"))
	}
	if c.Fetcher.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("fetcher: requests per second must not be negative"))
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler: interval must be positive"))
	}

	return errors.Join(errs...)
}

// Ingest assembles the orchestrator settings from the source and crawl sections.
func (c *Config) Ingest() ingest.Config {
	return ingest.Config{
		BaseURL:            c.Source.BaseURL,
		ListingPathPattern: c.Source.ListingPathPattern,
		BatchSize:          c.Crawl.BatchSize,
		RecordDelay:        c.Crawl.RecordDelay,
		BatchDelay:         c.Crawl.BatchDelay,
		PageFailurePenalty: c.Crawl.PageFailurePenalty,
	}
}

// Extractor assembles the extractor settings from the source section.
func (c *Config) Extractor() extractor.Config {
	return extractor.Config{
		RecordMarker: c.Source.RecordMarker,
		RatingScale:  c.Source.RatingScale,
	}.WithDefaults()
}

// IsDevelopment reports whether the app runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}
