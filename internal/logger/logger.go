package logger

import (
	"fmt"

	"github.com/smallbiznis/faktur/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service-wide zap logger. Production gets the JSON encoder,
// anything else keeps the readable development output. The logger is named
// after the service so scoped children come out as "faktur.invoice.service".
func New(appCfg config.Config) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if appCfg.IsProduction() {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := appCfg.LogLevel
	if level == "" {
		level = "info"
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	logger = logger.Named(appCfg.AppName)

	zap.ReplaceGlobals(logger)
	return logger, nil
}
