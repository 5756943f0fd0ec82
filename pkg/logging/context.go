package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const (
	loggerKey contextKey = iota
	runIDKey
)

// WithLogger stores logger in the context. A nil logger stores the package
// logger.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the context logger, or the package logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// with derives a child logger and stores it in the context.
func with(ctx context.Context, fn func(zerolog.Context) zerolog.Context) context.Context {
	logger := fn(FromContext(ctx).With()).Logger()
	return WithLogger(ctx, &logger)
}

// WithRun tags the context logger with an ingestion run ID.
func WithRun(ctx context.Context, runID string) context.Context {
	ctx = context.WithValue(ctx, runIDKey, runID)
	return with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("run_id", runID) })
}

// RunID returns the run ID stored by WithRun.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithRecord tags the context logger with the input source and row index.
func WithRecord(ctx context.Context, source string, row int) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("source", source).Int("row", row) })
}

// WithProduct tags the context logger with a canonical product ID.
func WithProduct(ctx context.Context, productID string) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("product_id", productID) })
}

// WithOperation tags the context logger with the operation name.
func WithOperation(ctx context.Context, operation string) context.Context {
	return WithField(ctx, "operation", operation)
}

// WithField tags the context logger with one field.
func WithField(ctx context.Context, key string, value any) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context { return addField(c, key, value) })
}
