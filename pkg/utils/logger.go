package utils

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewSugaredLogger creates a sugared logger based on the verbose flag.
// Verbose selects a development logger at debug level with console output;
// otherwise a JSON production logger at info level is built. Timestamps are
// ISO8601 in both cases.
func NewSugaredLogger(verbose bool, opts ...zap.Option) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	kind := "production"
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		kind = "development"
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s logger: %w", kind, err)
	}
	return l.Sugar(), nil
}
