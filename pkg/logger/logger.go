// Package logger builds the service's zap logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger tuned for the environment: JSON at info level in
// production, colored console output at debug level everywhere else.
func New(env string) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}

	return config.Build()
}

// MustNew is New, panicking on a broken logging configuration.
func MustNew(env string) *zap.Logger {
	logger, err := New(env)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return logger
}
