package logging

import (
	"log/slog"
	"os"
)

// New builds the process logger: JSON in prod, text elsewhere.
func New(env string) *slog.Logger {
	var handler slog.Handler

	switch env {
	case "prod", "production":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: true,
		})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		})
	}

	log := slog.New(handler).With("service", "marketcore")
	slog.SetDefault(log)
	return log
}
