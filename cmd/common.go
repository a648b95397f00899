package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/realmall/storefront/internal/cart"
	"github.com/realmall/storefront/internal/catalog"
	"github.com/realmall/storefront/internal/config"
	"github.com/realmall/storefront/internal/gemini"
	"github.com/realmall/storefront/internal/images"
	"github.com/realmall/storefront/internal/openai"
	"github.com/realmall/storefront/internal/providers"
	"github.com/realmall/storefront/internal/storage"
	"github.com/realmall/storefront/internal/storefront"
)

func setupLogging(cfg *config.Config, verbose bool) {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func loadCatalog(path string) (*storage.ProductStore, error) {
	products, err := catalog.NewLoader(path).Load()
	if err != nil {
		return nil, err
	}
	return storage.New(products), nil
}

// newImageEditor returns the provider selected by IMAGE_PROVIDER.
func newImageEditor(cfg *config.Config) (providers.ImageEditor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		slog.Debug("Using OpenAI image editor", "model", cfg.OpenAIModel)
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case config.ProviderGemini:
		slog.Debug("Using Gemini image editor", "model", cfg.GeminiModel)
		return gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	default:
		return nil, fmt.Errorf("unsupported IMAGE_PROVIDER %q", cfg.Provider)
	}
}

func newFetcher(cfg *config.Config) *images.Fetcher {
	f := images.NewFetcher(cfg.FetchTimeout)
	f.MaxBytes = cfg.MaxImageBytes
	return f
}

// newStorefront wires the catalog, cart, provider and fetcher together.
func newStorefront(cfg *config.Config, catalogPath string) (*storefront.Storefront, *images.Fetcher, error) {
	store, err := loadCatalog(catalogPath)
	if err != nil {
		return nil, nil, err
	}
	imageEditor, err := newImageEditor(cfg)
	if err != nil {
		return nil, nil, err
	}
	fetcher := newFetcher(cfg)
	sf := storefront.New(store, cart.New(), imageEditor, fetcher, storefront.WithEditTimeout(cfg.EditTimeout))
	slog.Info("Catalog loaded", "products", store.Len(), "provider", cfg.Provider)
	return sf, fetcher, nil
}
