package bootstrap

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/config"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
)

// CommandDeps holds what every command needs.
type CommandDeps struct {
	Config *config.Config
	Logger logger.Interface
}

// NewCommandDeps decodes the configuration held by v and builds the logger.
func NewCommandDeps(v *viper.Viper) (*CommandDeps, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	log = log.With("service", cfg.App.Name, "version", cfg.App.Version)
	return &CommandDeps{Config: cfg, Logger: log}, nil
}
