// Package logging builds the process-wide structured logger. It replaces
// main.go's teacher-era slog.NewJSONHandler setup with zap, writing to
// two cores — a human-readable console core on stdout and a rotating
// JSON file core via lumberjack — matching the dual-sink shape
// original_source/main.rs's tracing_subscriber registry builds (a stdout
// layer plus a daily-rolling file layer).
package logging

import (
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how verbosely the logger writes.
type Config struct {
	Level      string // debug, info, warn, error
	Dir        string
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a *zap.Logger per cfg and installs it as the default slog
// logger too (via zap's slog bridge equivalent, a thin slog.Handler
// wrapping the zap core) so packages written against log/slog — like the
// internal/decode and internal/recording subprocess wrappers — keep
// working unchanged.
func New(cfg Config) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)

	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(zapStdout())), level)

	var cores []zapcore.Core
	cores = append(cores, consoleCore)

	if cfg.Dir != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Dir + "/" + fileNameOrDefault(cfg.FileName),
			MaxSize:    intOrDefault(cfg.MaxSizeMB, 100),
			MaxBackups: intOrDefault(cfg.MaxBackups, 7),
			MaxAge:     intOrDefault(cfg.MaxAgeDays, 14),
			Compress:   true,
		}
		fileCore := zapcore.NewCore(fileEncoder, zapcore.AddSync(rotator), level)
		cores = append(cores, fileCore)
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	slog.SetDefault(slog.New(zapSlogHandler{logger: logger}))
	return logger, nil
}

func fileNameOrDefault(name string) string {
	if name == "" {
		return "eas-listener.log"
	}
	return name
}

func intOrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
