package infra

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/helixbio/gva-annotation-orchestrator/config"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

type LoggerClient struct {
	logger *slog.Logger
}

func InitLoggerClient(cfg *config.EnvConfig) *LoggerClient {
	var handler slog.Handler
	if cfg.Environment.Mode == "development" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		// Bridged to the OTLP logger provider set up in telemetry.go.
		handler = otelslog.NewHandler(cfg.Grafana.ServiceName)
	}

	logger := slog.New(handler).With(
		slog.String("service", cfg.Grafana.ServiceName),
		slog.String("group", cfg.Environment.Group),
	)

	return &LoggerClient{logger: logger}
}

func (l *LoggerClient) DebugWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.logger.DebugContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) InfoWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.logger.InfoContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) WarningWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.logger.WarnContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) ErrorWithContextf(ctx context.Context, err error, format string, args ...interface{}) {
	if err != nil {
		l.logger.ErrorContext(ctx, fmt.Sprintf(format, args...), slog.Any("error", err))
		return
	}
	l.logger.ErrorContext(ctx, fmt.Sprintf(format, args...))
}
