package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Loader handles configuration loading.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Load returns the defaults merged with the file at path. A missing file is
// an error only when required is set; an empty path means defaults only.
func (l *Loader) Load(path string, required bool) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		loaded, err := LoadFromFile(path)
		switch {
		case err == nil:
			l.logger.Debug("loaded config", zap.String("path", path))
			config = loaded
		case errors.Is(err, os.ErrNotExist) && !required:
			l.logger.Debug("no config file, using defaults", zap.String("path", path))
		default:
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	l.logger.Debug("target environment",
		zap.String("python_version", config.Target.PythonVersion),
		zap.String("platform", config.Target.Platform),
		zap.String("machine", config.Target.Machine),
		zap.Int("ignored", len(config.IgnoreList())))
	return config, nil
}
