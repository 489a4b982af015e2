package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig controls how the process-wide logger is built.
type LoggerConfig struct {
	// Debug switches to a human readable development encoder at debug level.
	Debug bool
}

// NewLogger builds a zap logger. Production settings (JSON, info level) are used
// unless Debug is set.
func NewLogger(cfg *LoggerConfig) (*zap.Logger, error) {
	if cfg == nil {
		cfg = &LoggerConfig{}
	}

	var zapCfg zap.Config
	if cfg.Debug {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "timestamp"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	return zapCfg.Build()
}
