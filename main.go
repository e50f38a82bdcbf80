package main

import (
	"log/slog"
	"os"

	"github.com/tphakala/artfetch/cmd"
	"github.com/tphakala/artfetch/internal/conf"
	"github.com/tphakala/artfetch/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("Error loading configuration", "error", err)
	}

	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
