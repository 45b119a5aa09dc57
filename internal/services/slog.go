package services

import (
	"context"
	"log/slog"

	"engineatlas/internal/infrastructure"
)

// logServiceError logs a failed service operation through the
// context-aware infrastructure logger so the trace ID travels with it.
func logServiceError(ctx context.Context, component, action, message string, attrs ...slog.Attr) {
	logger := infrastructure.LoggerWithContext(ctx)

	allAttrs := []slog.Attr{
		slog.String("component", component),
		slog.String("action", action),
	}
	allAttrs = append(allAttrs, attrs...)

	logger.LogAttrs(ctx, slog.LevelError, message, allAttrs...)
}
