package logging

import (
	"context"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func zapStdout() *os.File { return os.Stdout }

// zapSlogHandler adapts a *zap.Logger to slog.Handler so code written
// against the standard library's structured logger (the teacher's
// pattern throughout internal/ffmpeg, internal/playlist, etc.) keeps
// emitting through the same zap cores this package configures.
type zapSlogHandler struct {
	logger *zap.Logger
	attrs  []slog.Attr
}

func (h zapSlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.Core().Enabled(slogToZapLevel(level))
}

func (h zapSlogHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]zap.Field, 0, record.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		fields = append(fields, zap.Any(a.Key, a.Value.Any()))
	}
	record.Attrs(func(a slog.Attr) bool {
		fields = append(fields, zap.Any(a.Key, a.Value.Any()))
		return true
	})

	ce := h.logger.Check(slogToZapLevel(record.Level), record.Message)
	if ce != nil {
		ce.Write(fields...)
	}
	return nil
}

func (h zapSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next = append(next, h.attrs...)
	next = append(next, attrs...)
	return zapSlogHandler{logger: h.logger, attrs: next}
}

func (h zapSlogHandler) WithGroup(name string) slog.Handler {
	return zapSlogHandler{logger: h.logger.Named(name), attrs: h.attrs}
}

func slogToZapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
