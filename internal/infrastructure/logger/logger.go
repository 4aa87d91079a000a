package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"o2o/internal/config"
)

// New builds the JSON production logger. Every entry carries the service and
// instance so logs from several replicas can be told apart.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return newConfig(cfg).Build()
}

func newConfig(cfg config.LogConfig) zap.Config {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	instance := cfg.Instance
	if instance == "" {
		if host, err := os.Hostname(); err == nil {
			instance = host
		}
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.InitialFields = map[string]interface{}{
		"service":  cfg.Service,
		"instance": instance,
	}
	return zc
}
