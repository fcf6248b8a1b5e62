// Package logging builds the process-wide slog logger for the datapack tools.
package logging

import (
	"context"
	"datapack/internal/config"
	"datapack/internal/logsink"
	"datapack/internal/telemetry"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Setup installs a default logger writing text to stderr and, when configured, to the
// OTLP log exporter and an Azure append blob. The returned func flushes all of them.
func Setup(ctx context.Context, cfg *config.Config, tool string) (func(context.Context) error, error) {
	return setup(ctx, cfg, tool, os.Stderr)
}

func setup(ctx context.Context, cfg *config.Config, tool string, w io.Writer) (func(context.Context) error, error) {
	level := cfg.Logging.Level
	handlers := []slog.Handler{
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	}
	var closers []func(context.Context) error

	tel, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	if tel.Enabled() {
		handlers = append(handlers, &minLevel{
			Handler: otelslog.NewHandler(tool, otelslog.WithLoggerProvider(tel.LoggerProvider)),
			level:   level,
		})
		closers = append(closers, tel.Shutdown)
	}

	if cfg.Azure.LogSinkEnabled() {
		sink, err := logsink.New(ctx, logsink.Config{
			AccountName: cfg.Azure.AccountName,
			AccountKey:  cfg.Azure.AccountKey,
			Container:   cfg.Azure.LogContainer,
			BlobName:    cfg.Azure.LogBlob,
			Tool:        tool,
			Level:       level,
		})
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, fmt.Errorf("create log sink: %w", err)
		}
		handlers = append(handlers, sink)
		closers = append(closers, func(context.Context) error { return sink.Close() })
	}

	logger := slog.New(slog.NewMultiHandler(handlers...)).With("tool", tool)
	slog.SetDefault(logger)

	return func(ctx context.Context) error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c(ctx))
		}
		return errors.Join(errs...)
	}, nil
}

// minLevel drops records below level before they reach the wrapped handler.
type minLevel struct {
	slog.Handler
	level slog.Level
}

func (h *minLevel) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.Handler.Enabled(ctx, level)
}

func (h *minLevel) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &minLevel{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *minLevel) WithGroup(name string) slog.Handler {
	return &minLevel{Handler: h.Handler.WithGroup(name), level: h.level}
}
