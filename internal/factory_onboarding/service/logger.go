package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/api/http/middleware"
)

// Logger provides structured logging for services
type Logger struct {
	base      *zap.Logger
	requestID string
}

// NewLogger creates a logger with request context. A nil base falls back to
// the global zap logger.
func NewLogger(ctx context.Context, base *zap.Logger) *Logger {
	if base == nil {
		base = zap.L()
	}
	// Try to get request ID from context (set by middleware)
	requestID := middleware.GetRequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	return &Logger{base: base, requestID: requestID}
}

// RequestID returns the request id the logger stamps on every record.
func (l *Logger) RequestID() string {
	return l.requestID
}

func (l *Logger) fields(operation string, extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("request_id", l.requestID),
		zap.String("operation", operation),
	}, extra...)
}

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error) {
	l.base.Error("operation failed", l.fields(operation, zap.Error(err))...)
}

// LogErrorf logs a formatted error with context
func (l *Logger) LogErrorf(operation string, format string, args ...interface{}) {
	l.base.Error(fmt.Sprintf(format, args...), l.fields(operation)...)
}

// LogInfo logs an info message with context
func (l *Logger) LogInfo(operation string, message string, extra ...zap.Field) {
	l.base.Info(message, l.fields(operation, extra...)...)
}

// LogInfof logs a formatted info message with context
func (l *Logger) LogInfof(operation string, format string, args ...interface{}) {
	l.base.Info(fmt.Sprintf(format, args...), l.fields(operation)...)
}

// LogWarn logs a warning with context
func (l *Logger) LogWarn(operation string, message string, extra ...zap.Field) {
	l.base.Warn(message, l.fields(operation, extra...)...)
}

// LogWarnf logs a formatted warning with context
func (l *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	l.base.Warn(fmt.Sprintf(format, args...), l.fields(operation)...)
}
