package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/realmall/storefront/internal/config"
	"github.com/realmall/storefront/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the storefront HTTP API",
		Long: `Starts the Realmall HTTP API on the specified port.

The API exposes the product catalog, the shopping cart and the AI image
editor. Edits are sent to the provider selected by IMAGE_PROVIDER.`,
		Example: `  # Start server on PORT (default 8888)
  realmall serve

  # Start server on custom port
  realmall serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = cfg.Port
			}

			sf, fetcher, err := newStorefront(cfg, cfg.CatalogPath)
			if err != nil {
				return err
			}
			handler := handlers.New(sf, fetcher)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Realmall API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				sf.CloseEditor()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (defaults to PORT)")

	return cmd
}
