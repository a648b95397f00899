package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/realmall/storefront/internal/catalog"
	"github.com/realmall/storefront/internal/config"
	"github.com/realmall/storefront/internal/editor"
	"github.com/realmall/storefront/internal/models"
	"github.com/spf13/cobra"
)

func newEditCmd(cfg *config.Config) *cobra.Command {
	var productID, prompt, preset, output, catalogPath string
	var commit bool

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a product image from the terminal",
		Long: `Opens an editor for one product, sends a single prompt to the image
provider and writes the edited image to disk.

With --commit the edited image replaces the product image and the updated
product record is printed as YAML.`,
		Example: `  # Restyle a watch with a free-form prompt
  realmall edit --product w1 --prompt "place it on a marble table"

  # Use a preset and print the committed record
  realmall edit --product s2 --preset "Golden Hour" --commit --output s2.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if catalogPath == "" {
				catalogPath = cfg.CatalogPath
			}
			sf, fetcher, err := newStorefront(cfg, catalogPath)
			if err != nil {
				return err
			}

			session, err := sf.OpenEditor(productID)
			if err != nil {
				return fmt.Errorf("%w: %s", err, productID)
			}
			defer sf.CloseEditor()

			if preset != "" {
				if err := session.ApplyPreset(preset); err != nil {
					return err
				}
			} else {
				session.SetPrompt(prompt)
			}

			slog.Info("Submitting edit", "product_id", productID, "prompt", session.View().Prompt)
			_, outcome, err := sf.Generate(cmd.Context())
			if err != nil {
				return err
			}
			switch outcome {
			case editor.OutcomeApplied:
			case editor.OutcomeRejected:
				return errors.New("edit rejected: the prompt is empty")
			default:
				if msg := session.View().Error; msg != "" {
					return errors.New(msg)
				}
				return fmt.Errorf("edit did not complete (%s)", outcome)
			}

			data, mediaType, err := fetcher.Resolve(cmd.Context(), session.Current())
			if err != nil {
				return fmt.Errorf("failed to read edited image: %w", err)
			}
			if output == "" {
				ext := ".img"
				if m := mimetype.Lookup(mediaType); m != nil {
					ext = m.Extension()
				}
				output = productID + "-edited" + ext
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to save image: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved edited image to %s (%s, %d bytes)\n", output, mediaType, len(data))

			if !commit {
				return nil
			}
			_, ok, err := sf.CommitEditor()
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("commit rejected")
			}
			product, _ := sf.Catalog().Get(productID)
			return catalog.Write(cmd.OutOrStdout(), catalog.FormatYAML, []models.Product{product})
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "Product id to edit (required)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Edit instruction")
	cmd.Flags().StringVar(&preset, "preset", "", "Preset style (Retro Vibe, Studio Light, Beach Scene, Golden Hour, Noir)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the edited image (defaults to <product>-edited.<ext>)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog file (defaults to CATALOG_PATH or the built-in catalog)")
	cmd.Flags().BoolVar(&commit, "commit", false, "Commit the edit into the catalog and print the updated record")

	_ = cmd.MarkFlagRequired("product")
	cmd.MarkFlagsOneRequired("prompt", "preset")
	cmd.MarkFlagsMutuallyExclusive("prompt", "preset")
	return cmd
}
