// Package resolve implements the one-shot resolution command.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/artfetch/internal/artwork"
	"github.com/tphakala/artfetch/internal/conf"
)

// Command creates the resolve command, which resolves a single item's
// artwork URL and prints the result as JSON.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <item-id> [item-name]",
		Short: "Resolve the artwork URL for a single item",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID := args[0]
			itemName := ""
			if len(args) > 1 {
				itemName = args[1]
			}
			return runResolve(settings, itemID, itemName)
		},
	}
}

func runResolve(settings *conf.Settings, itemID, itemName string) error {
	resolver := artwork.New(settings, nil)
	artwork.RegisterConfiguredProviders(resolver, settings)
	defer resolver.Close()

	result := resolver.Resolve(context.Background(), itemID, itemName)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))

	if result.URL == "" {
		return fmt.Errorf("no artwork found (%s)", result.Source)
	}
	return nil
}
