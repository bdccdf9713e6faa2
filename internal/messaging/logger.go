package messaging

import (
	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"
)

// zapAdapter routes watermill's internal logging into zap.
type zapAdapter struct {
	logger *zap.Logger
}

// NewLoggerAdapter wraps a zap logger as a watermill.LoggerAdapter.
func NewLoggerAdapter(logger *zap.Logger) watermill.LoggerAdapter {
	return &zapAdapter{logger: logger.Named("watermill")}
}

func (a *zapAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (a *zapAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, zapFields(fields)...)
}

func (a *zapAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

// Trace is mapped to debug; zap has no lower level.
func (a *zapAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

func (a *zapAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zapAdapter{logger: a.logger.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}

	return out
}
