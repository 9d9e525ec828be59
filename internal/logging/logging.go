// Package logging настраивает структурное логирование через log/slog.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup устанавливает глобальный slog-логгер с уровнем из конфигурации.
// Допустимые значения: DEBUG, INFO, WARN, ERROR.
func Setup(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
