// Package obs constructs the one structured logger used by cmd/exchange
// and passed into the pipeline. Grounded on
// uhyunpark-hyperlicked/pkg/util/log.go's zap.NewProductionConfig setup.
package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a production JSON logger with an ISO8601 timestamp.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
