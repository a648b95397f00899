package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/realmall/storefront/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:   "realmall",
		Short: "Realmall storefront with AI product image editing",
		Long: `Realmall serves a small product catalog with a shopping cart and an
AI image editor that restyles product photos from a text prompt.

Run "realmall serve" for the HTTP API, or use the catalog and edit commands
from the terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			*cfg = *loaded
			setupLogging(cfg, verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging (overrides LOG_LEVEL)")

	// Add subcommands
	cmd.AddCommand(newServeCmd(cfg))
	cmd.AddCommand(newCatalogCmd(cfg))
	cmd.AddCommand(newEditCmd(cfg))

	return cmd
}
