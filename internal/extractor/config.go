package extractor

// Defaults for the books.toscrape.com layout.
const (
	DefaultRecordMarker = "catalogue"
	DefaultTitle        = "Unknown Title"
	DefaultCategory     = "General"

	maxSlugLength = 50
)

// DefaultRatingScale maps star-rating class tokens to their value (the index).
var DefaultRatingScale = []string{"Zero", "One", "Two", "Three", "Four", "Five"}

// Config controls layout-specific extraction details.
type Config struct {
	// RecordMarker is the URL path segment that precedes a record's identifier.
	RecordMarker string `mapstructure:"record_marker" yaml:"record_marker"`
	// RatingScale lists rating words in ascending order; a word's index is its rating.
	RatingScale []string `mapstructure:"rating_scale" yaml:"rating_scale"`
}

// WithDefaults returns a copy of the config with default values applied for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.RecordMarker == "" {
		c.RecordMarker = DefaultRecordMarker
	}
	if len(c.RatingScale) == 0 {
		c.RatingScale = DefaultRatingScale
	}
	return c
}
