package artwork

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Package-level logger instance for the artwork resolution engine.
var (
	artworkLogger     *slog.Logger
	artworkLevelVar   = new(slog.LevelVar)
	artworkLoggerOnce sync.Once
)

// getLogger returns the artwork logger instance.
// The debug parameter controls the log level (debug vs info).
// Returns a singleton slog.Logger instance.
func getLogger(debug bool) *slog.Logger {
	artworkLoggerOnce.Do(func() {
		if debug {
			artworkLevelVar.Set(slog.LevelDebug)
		} else {
			artworkLevelVar.Set(slog.LevelInfo)
		}

		handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: artworkLevelVar,
		})

		artworkLogger = slog.New(handler).With("module", "artwork")
	})

	return artworkLogger
}

// SetLogLevel dynamically changes the logging level for the artwork logger.
func SetLogLevel(level slog.Level) {
	artworkLevelVar.Set(level)
}

// discardLogger returns a logger that discards all output.
// Useful for testing.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
