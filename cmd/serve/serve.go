// Package serve implements the long-running resolver service command.
package serve

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/artfetch/internal/api"
	"github.com/tphakala/artfetch/internal/artwork"
	"github.com/tphakala/artfetch/internal/conf"
	"github.com/tphakala/artfetch/internal/logging"
	"github.com/tphakala/artfetch/internal/observability"
	"github.com/tphakala/artfetch/internal/observability/metrics"
)

// Command creates the serve command, which runs the resolver with the admin
// API and optional telemetry endpoint until interrupted.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the artwork resolver service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(settings)
		},
	}
}

func runServe(settings *conf.Settings) error {
	var wg sync.WaitGroup
	quit := make(chan struct{})

	var artworkMetrics *observability.Metrics
	if settings.Telemetry.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			return fmt.Errorf("error initializing metrics: %w", err)
		}
		artworkMetrics = m

		endpoint, err := observability.NewEndpoint(settings, m)
		if err != nil {
			return fmt.Errorf("error creating telemetry endpoint: %w", err)
		}
		endpoint.Start(&wg, quit)
	}

	resolver := newResolver(settings, artworkMetrics)
	defer func() {
		if err := resolver.Close(); err != nil {
			logging.Error("Error closing resolver", "error", err)
		}
	}()

	errChan := make(chan error, 1)
	if settings.WebServer.Enabled {
		controller := api.New(settings, resolver)
		go func() {
			errChan <- controller.Start(quit)
		}()
	}

	logging.Info("Artwork resolver service started", "node", settings.Main.Name)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logging.Info("Received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		if err != nil {
			close(quit)
			wg.Wait()
			return fmt.Errorf("API server error: %w", err)
		}
	}

	close(quit)
	wg.Wait()
	return nil
}

func newResolver(settings *conf.Settings, m *observability.Metrics) *artwork.Resolver {
	var artMetrics *metrics.ArtworkMetrics
	if m != nil {
		artMetrics = m.Artwork
	}
	r := artwork.New(settings, artMetrics)
	artwork.RegisterConfiguredProviders(r, settings)
	return r
}
