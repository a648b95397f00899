package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/realmall/storefront/internal/catalog"
	"github.com/realmall/storefront/internal/config"
	"github.com/realmall/storefront/internal/models"
	"github.com/spf13/cobra"
)

func newCatalogCmd(cfg *config.Config) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and export the product catalog",
	}
	cmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalog file (defaults to CATALOG_PATH or the built-in catalog)")

	path := func() string {
		if catalogPath != "" {
			return catalogPath
		}
		return cfg.CatalogPath
	}

	cmd.AddCommand(newCatalogListCmd(path))
	cmd.AddCommand(newCatalogExportCmd(path))
	return cmd
}

func newCatalogListCmd(path func() string) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products, optionally filtered by category",
		Example: `  realmall catalog list
  realmall catalog list --category sunglasses`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := models.ParseCategoryFilter(category)
			if err != nil {
				return err
			}
			store, err := loadCatalog(path())
			if err != nil {
				return err
			}
			return printProducts(cmd.OutOrStdout(), store.FilterByCategory(filter))
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", string(models.CategoryAll), "Category filter (all, watch, sunglasses)")
	return cmd
}

func printProducts(out io.Writer, products []models.Product) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tRATING")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.Rating)
	}
	return tw.Flush()
}

func newCatalogExportCmd(path func() string) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog as YAML, JSON Lines or Parquet",
		Example: `  realmall catalog export --format parquet --output catalog.parquet
  realmall catalog export --format jsonl > catalog.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadCatalog(path())
			if err != nil {
				return err
			}

			if output == "" {
				return catalog.Write(cmd.OutOrStdout(), format, store.Products())
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			if err := writeAndClose(f, format, store.Products()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d products to %s\n", store.Len(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", catalog.FormatYAML, "Output format (yaml, jsonl, parquet)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to stdout)")
	return cmd
}

// writeAndClose writes products to w and closes it. A failed close is an
// error since buffered data may not have reached disk.
func writeAndClose(w io.WriteCloser, format string, products []models.Product) error {
	if err := catalog.Write(w, format, products); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
