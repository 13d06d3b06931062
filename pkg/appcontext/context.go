package appcontext

import (
	"context"

	"github.com/sirupsen/logrus"
)

type contextId int

const (
	logPathKeyId contextId = iota
	patternKeyId
	passIdKeyId
)

func WithLogPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, logPathKeyId, path)
}

func WithPattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, patternKeyId, pattern)
}

// WithPassId tags every log line of one rotation pass (useful in scheduled mode).
func WithPassId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, passIdKeyId, id)
}

func LoggerFromContext(logger logrus.FieldLogger, ctx context.Context) logrus.FieldLogger {
	if ctx == nil {
		return logger
	}

	result := logger

	if ctxPassId, ok := ctx.Value(passIdKeyId).(string); ok && ctxPassId != "" {
		result = result.WithField("pass_id", ctxPassId)
	}

	if ctxPattern, ok := ctx.Value(patternKeyId).(string); ok && ctxPattern != "" {
		result = result.WithField("pattern", ctxPattern)
	}

	if ctxLogPath, ok := ctx.Value(logPathKeyId).(string); ok && ctxLogPath != "" {
		result = result.WithField("log_path", ctxLogPath)
	}

	return result
}
