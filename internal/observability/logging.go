// Package observability provides structured logging and metrics.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetLevel replaces the global logger with one writing at the given level.
func SetLevel(level slog.Level) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// RepoLogger provides structured logging for repository operations.
type RepoLogger struct {
	collection string
	backend    string
}

// NewRepoLogger creates a new RepoLogger for the given backend and collection.
func NewRepoLogger(backend, collection string) *RepoLogger {
	return &RepoLogger{collection: collection, backend: backend}
}

// LogWrite logs a mutation at debug level.
func (l *RepoLogger) LogWrite(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("backend", l.backend),
		slog.String("collection", l.collection),
		slog.String("operation", operation),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.DebugContext(ctx, "repository write", attrs...)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	GlobalLogger.ErrorContext(ctx, "repository error",
		slog.String("backend", l.backend),
		slog.String("collection", l.collection),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// LogSubscriptionStart logs a live query being opened.
func LogSubscriptionStart(ctx context.Context, stream string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("stream", stream),
		slog.String("type", "subscription_start"),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "live query opened", attrs...)
}

// LogSubscriptionEnd logs a live query being released.
func LogSubscriptionEnd(ctx context.Context, stream string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("stream", stream),
		slog.String("type", "subscription_end"),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "live query released", attrs...)
}

// LogSubscriptionError logs a live query that failed. The stream is closed afterwards.
func LogSubscriptionError(ctx context.Context, stream string, err error) {
	GlobalLogger.ErrorContext(ctx, "live query failed",
		slog.String("stream", stream),
		slog.String("type", "subscription_error"),
		slog.String("error", err.Error()),
	)
}

// LogServiceError logs the cause behind an error that reaches the user as a generic message.
func LogServiceError(ctx context.Context, service, method string, err error, fields map[string]interface{}) {
	attrs := []any{
		slog.String("service", service),
		slog.String("method", method),
		slog.String("error", err.Error()),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.ErrorContext(ctx, "service error", attrs...)
}
