package ingest

import (
	"errors"
	"strings"
	"time"
)

// Default run settings.
const (
	DefaultBaseURL            = "https://books.toscrape.com"
	DefaultListingPathPattern = "/catalogue/page-%d.html"
	DefaultBatchSize          = 3
	DefaultRecordDelay        = time.Second
	DefaultBatchDelay         = time.Second
	// DefaultPageFailurePenalty is the failed-record count charged for a page
	// whose listing could not be read. The real page size is unknown then.
	DefaultPageFailurePenalty = 20
)

// Config controls how a run walks the source.
type Config struct {
	BaseURL            string        `mapstructure:"base_url"`
	ListingPathPattern string        `mapstructure:"listing_path_pattern"`
	BatchSize          int           `mapstructure:"batch_size"`
	RecordDelay        time.Duration `mapstructure:"record_delay"`
	BatchDelay         time.Duration `mapstructure:"batch_delay"`
	PageFailurePenalty int           `mapstructure:"page_failure_penalty"`
}

// DefaultConfig returns the settings for books.toscrape.com.
func DefaultConfig() Config {
	return Config{
		BaseURL:            DefaultBaseURL,
		ListingPathPattern: DefaultListingPathPattern,
		BatchSize:          DefaultBatchSize,
		RecordDelay:        DefaultRecordDelay,
		BatchDelay:         DefaultBatchDelay,
		PageFailurePenalty: DefaultPageFailurePenalty,
	}
}

// Validate checks the config for values a run cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base url is required"))
	}
	if !strings.Contains(c.ListingPathPattern, "%d") {
		errs = append(errs, errors.New("listing path pattern must contain %d"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, errors.New("batch size must be at least 1"))
	}
	if c.RecordDelay < 0 || c.BatchDelay < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	if c.PageFailurePenalty < 0 {
		errs = append(errs, errors.New("page failure penalty must not be negative"))
	}
	return errors.Join(errs...)
}
