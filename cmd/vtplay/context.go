package main

import (
	"context"
	"log/slog"

	vtlog "github.com/vtrender/vtrender/log"
)

type loggerKey struct{}

func newLogger(h vtlog.Handler) *slog.Logger {
	return slog.New(h)
}

func withLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}

	return slog.Default()
}
