package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"ImageMigrator/internal/config"
)

// New creates a console slog.Logger, teeing into a rotating file when one is configured.
func New(cfg config.LoggingConfig) *slog.Logger {
	return slog.New(slog.NewTextHandler(output(cfg), &slog.HandlerOptions{
		Level: levelFromString(cfg.Level),
	}))
}

func output(cfg config.LoggingConfig) io.Writer {
	if strings.TrimSpace(cfg.File) == "" {
		return os.Stdout
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
	}
	return io.MultiWriter(os.Stdout, file)
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
