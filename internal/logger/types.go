package logger

// Level represents the logging level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
	FatalLevel Level = "fatal"
)

// Encodings accepted by New.
const (
	EncodingJSON    = "json"
	EncodingConsole = "console"
)

// Config represents the logger configuration.
type Config struct {
	// Level is the minimum logging level.
	Level Level `mapstructure:"level" yaml:"level" json:"level"`
	// Development enables development mode (colored levels, stack traces on warn).
	Development bool `mapstructure:"development" yaml:"development" json:"development"`
	// Encoding is either "json" or "console".
	Encoding string `mapstructure:"encoding" yaml:"encoding" json:"encoding"`
	// OutputPaths is a list of URLs or file paths to write logging output to.
	OutputPaths []string `mapstructure:"output_paths" yaml:"output_paths" json:"output_paths"`
}

// WithDefaults returns a copy of the config with zero values filled in.
func (c Config) WithDefaults() Config {
	if c.Level == "" {
		c.Level = InfoLevel
	}
	if c.Encoding == "" {
		c.Encoding = EncodingJSON
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = []string{"stdout"}
	}
	return c
}

// Validate checks the level and encoding.
func (c Config) Validate() error {
	if _, ok := logLevels[string(c.Level)]; !ok {
		return ErrInvalidLevel
	}
	if c.Encoding != EncodingJSON && c.Encoding != EncodingConsole {
		return ErrInvalidEncoding
	}
	return nil
}
