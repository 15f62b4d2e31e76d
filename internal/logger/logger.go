// Package logger builds the zap loggers used by the server and the CLI.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every record written by a production logger.
const ServiceName = "servicesearch"

// NewLogger returns a logger for env. prod writes JSON with ISO8601
// timestamps and no sampling so every rejected search is visible;
// local, dev and docker write colored console output. Both write to stderr.
// A non-empty levelOverride (debug, info, warn, error) replaces the
// environment's default level.
func NewLogger(env string, levelOverride ...string) (*zap.Logger, error) {
	cfg, err := configFor(env)
	if err != nil {
		return nil, err
	}

	if len(levelOverride) > 0 {
		if lvl := strings.TrimSpace(levelOverride[0]); lvl != "" {
			level, err := zapcore.ParseLevel(lvl)
			if err != nil {
				return nil, fmt.Errorf("invalid log level %q: %w", lvl, err)
			}
			cfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func configFor(env string) (zap.Config, error) {
	switch env {
	case "prod":
		cfg := zap.NewProductionConfig()
		cfg.Sampling = nil
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.InitialFields = map[string]any{"service": ServiceName}
		return cfg, nil
	case "local", "dev", "docker":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		return cfg, nil
	default:
		return zap.Config{}, fmt.Errorf("unknown environment %q for logger", env)
	}
}

// Secret logs only whether a sensitive value is set.
func Secret(key, value string) zap.Field {
	if value == "" {
		return zap.String(key, "[empty]")
	}
	return zap.String(key, "[set]")
}
