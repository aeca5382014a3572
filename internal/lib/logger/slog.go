package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New создаёт и настраивает новый экземпляр slog.Logger
// уровень логирования определяется строковым параметром из конфига
func New(levelStr string) *slog.Logger {
	var level slog.Level

	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		// по умолчанию INFO, если в конфиге указано что-то некорректное
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true, // чтобы видеть файл и строку, откуда был вызов лога
		Level:     level,
	})

	return slog.New(handler)
}
