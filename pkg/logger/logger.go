package logger

import (
	"log/slog"
	"os"

	"github.com/IlyaPronin461/mushroom-classification/configs"
)

func NewLogger(cfg *configs.Config) *slog.Logger {
	var handler slog.Handler
	switch cfg.Env {
	case "dev":
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(handler)
}
