package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/config"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
)

func newViper() *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, "https://books.toscrape.com", cfg.Source.BaseURL)
	assert.Equal(t, "/catalogue/page-%d.html", cfg.Source.ListingPathPattern)
	assert.Equal(t, []string{"Zero", "One", "Two", "Three", "Four", "Five"}, cfg.Source.RatingScale)

	assert.Equal(t, 3, cfg.Crawl.BatchSize)
	assert.Equal(t, time.Second, cfg.Crawl.RecordDelay)
	assert.Equal(t, time.Second, cfg.Crawl.BatchDelay)
	assert.Equal(t, 20, cfg.Crawl.PageFailurePenalty)

	assert.Equal(t, 30*time.Second, cfg.Fetcher.RequestTimeout)
	assert.Equal(t, 3, cfg.Fetcher.MaxRetries)
	assert.Equal(t, time.Second, cfg.Fetcher.BackoffBase)
	assert.Equal(t, 10, cfg.Fetcher.MaxRedirects)

	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, logger.InfoLevel, cfg.Logger.Level)
	assert.Equal(t, "catalog", cfg.Database.DBName)

	ing := cfg.Ingest()
	assert.NoError(t, ing.Validate())
	assert.Equal(t, "catalogue", cfg.Extractor().RecordMarker)
}

func TestLoad_ZeroMaxRetriesIsKept(t *testing.T) {
	t.Parallel()

	v := newViper()
	v.Set("fetcher.max_retries", 0)

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Fetcher.MaxRetries)
}

func TestLoad_Overrides(t *testing.T) {
	t.Parallel()

	v := newViper()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
app:
  debug: true
auth:
  jwt_secret: s3cret
source:
  base_url: https://mirror.example.com
  rating_scale: [None, Single, Double]
crawl:
  batch_size: 5
  record_delay: 250ms
scheduler:
  enabled: true
  interval: 30m
`)))

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.example.com", cfg.Ingest().BaseURL)
	assert.Equal(t, 5, cfg.Ingest().BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Ingest().RecordDelay)
	assert.Equal(t, []string{"None", "Single", "Double"}, cfg.Extractor().RatingScale)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)

	// debug forces debug logging and the gin debug mode
	assert.Equal(t, logger.DebugLevel, cfg.Logger.Level)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		value   any
		wantErr string
	}{
		{"zero batch size", "crawl.batch_size", 0, "batch size"},
		{"negative delay", "crawl.batch_delay", "-1s", "delays"},
		{"empty base url", "source.base_url", "", "base url"},
		{"pattern without page", "source.listing_path_pattern", "/catalogue/", "%d"},
		{"negative retries", "fetcher.max_retries", -1, "max retries"},
		{"bad log level", "logger.level", "verbose", "logger"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := newViper()
			v.Set(tt.key, tt.value)

			_, err := config.Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
