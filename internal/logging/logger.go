package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hanamilabs/frc-clock-bot/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

func New(cfg config.Config) (*slog.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return nil, err
	}

	rotatingWriter := &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	}

	writer := io.MultiWriter(os.Stdout, rotatingWriter)
	return NewWithWriter(writer, cfg.LogFormat, cfg.LogLevel), nil
}

func NewWithWriter(w io.Writer, format string, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CronLogger satisfies cron.Logger on top of slog.
type CronLogger struct {
	Logger *slog.Logger
}

func (l CronLogger) Info(msg string, keysAndValues ...any) {
	l.Logger.Debug("cron: "+msg, normalizeKV(keysAndValues)...)
}

func (l CronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append(normalizeKV(keysAndValues), "error", err)
	l.Logger.Error("cron: "+msg, args...)
}

func normalizeKV(keysAndValues []any) []any {
	out := make([]any, 0, len(keysAndValues))
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 >= len(keysAndValues) {
			out = append(out, "extra", key)
			break
		}
		out = append(out, key, keysAndValues[i+1])
	}
	return out
}
