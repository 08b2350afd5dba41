package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"estatehub/gateway/internal/models"
	"estatehub/gateway/internal/transcode"
)

type dryRunOutput struct {
	ContentType string            `yaml:"contentType"`
	Fields      map[string]string `yaml:"fields"`
	Files       []string          `yaml:"files,omitempty"`
	Bytes       int               `yaml:"bytes"`
}

func newListingCmd(app *cliApp) *cobra.Command {
	listingCmd := &cobra.Command{
		Use:   "listing",
		Short: "Create or edit listings",
	}

	var formPath, listingID string
	var dryRun bool
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a listing form written in YAML",
		Long: `Reads a listing form from --form, validates and flattens it into a
multipart body, and posts it upstream. Photo keys in the form are file paths
relative to the form. With --id the listing is updated instead of created.

Example:
  estatectl listing submit --form villa.yaml --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := loadListingForm(formPath)
			if err != nil {
				return err
			}
			payload, err := transcode.Listing(form)
			if err != nil {
				return err
			}
			opener := fileOpener{dir: filepath.Dir(formPath)}

			if dryRun {
				var buf bytes.Buffer
				ct, err := payload.Encode(cmd.Context(), &buf, opener)
				if err != nil {
					return err
				}
				out := dryRunOutput{ContentType: ct, Fields: map[string]string{}, Bytes: buf.Len()}
				for _, f := range payload.Fields {
					out.Fields[f.Name] = f.Value
				}
				for _, f := range payload.Files {
					out.Files = append(out.Files, fmt.Sprintf("%s: %s (%s)", f.Field, f.FileName, f.ContentType))
				}
				return printYAML(cmd.OutOrStdout(), out)
			}

			ctx, err := app.upstreamContext(cmd.Context())
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			ct, err := payload.Encode(ctx, &buf, opener)
			if err != nil {
				return err
			}
			var listing *models.Listing
			if listingID == "" {
				listing, err = app.client.CreateListing(ctx, ct, &buf)
			} else {
				listing, err = app.client.UpdateListing(ctx, listingID, ct, &buf)
			}
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), listingOutput{ID: listing.ID, Title: listing.Title, Type: string(listing.ListingType)})
		},
	}
	submitCmd.Flags().StringVar(&formPath, "form", "", "path to the YAML listing form")
	submitCmd.Flags().StringVar(&listingID, "id", "", "existing listing to update")
	submitCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the encoded form instead of sending it")
	_ = submitCmd.MarkFlagRequired("form")

	listingCmd.AddCommand(submitCmd)
	return listingCmd
}

func loadListingForm(path string) (models.ListingForm, error) {
	var form models.ListingForm
	raw, err := os.ReadFile(path)
	if err != nil {
		return form, fmt.Errorf("failed to read form: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&form); err != nil {
		return form, fmt.Errorf("failed to parse form %s: %w", path, err)
	}
	return form, nil
}
