package config

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// NewLogger builds the process logger.
//
// Returns:
//   - *zap.SugaredLogger: A development logger (console, caller info) or a
//     production logger (JSON, sampled) at the configured level.
//   - error: If the level is unknown.
func (c LogConfig) NewLogger() (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if c.Development {
		cfg = zap.NewDevelopmentConfig()
	}

	if c.Level != "" {
		level, err := zap.ParseAtomicLevel(c.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "log level %q", c.Level)
		}
		cfg.Level = level
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logger.Sugar(), nil
}
