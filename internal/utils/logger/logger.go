// Package logger builds the slog logger used across the client, tuned per
// environment: human-readable debug output locally, JSON elsewhere.
package logger

import (
	"os"

	"golang.org/x/exp/slog"

	"campsync/internal/app/client/config"
)

// New returns a logger for the given environment. Local gets a pretty text
// handler at debug level, dev JSON at debug, everything else JSON at info.
func New(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return setupPrettySlog()
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
}

func setupPrettySlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
