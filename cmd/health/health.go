// Package health implements the provider health probe command.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/artfetch/internal/artwork"
	"github.com/tphakala/artfetch/internal/conf"
)

// Command creates the health command, which probes every configured
// provider and prints per-provider health as JSON. The command fails when
// no provider is healthy.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the health of all configured artwork providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(settings)
		},
	}
}

func runHealth(settings *conf.Settings) error {
	resolver := artwork.New(settings, nil)
	artwork.RegisterConfiguredProviders(resolver, settings)
	defer resolver.Close()

	health := resolver.HealthCheckAll(context.Background())

	out, err := json.MarshalIndent(health, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding health report: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))

	for _, h := range health {
		if h.Healthy {
			return nil
		}
	}
	return fmt.Errorf("no healthy providers")
}
