package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig represents the [log] section.
type LogConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"` // json or console
}

// Validate performs validation on the log configuration
func (l *LogConfig) Validate() error {
	if _, err := zapcore.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("invalid level: %s", l.Level)
	}
	if l.Format != "json" && l.Format != "console" {
		return fmt.Errorf("invalid format: %s (valid options: json, console)", l.Format)
	}
	return nil
}

// NewLogger builds the daemon logger: the production preset for json, the
// development preset for console.
func (l *LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid level: %s", l.Level)
	}

	var cfg zap.Config
	if l.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
