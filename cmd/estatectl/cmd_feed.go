package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"estatehub/gateway/internal/feed"
	"estatehub/gateway/internal/models"
)

const cliFeedKey = "estatectl"

type feedPageOutput struct {
	Mode      string `yaml:"mode"`
	Page      int    `yaml:"page"`
	Appended  int    `yaml:"appended"`
	Exhausted bool   `yaml:"exhausted,omitempty"`
}

type listingOutput struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Type  string `yaml:"type,omitempty"`
}

type feedOutput struct {
	Pages []feedPageOutput `yaml:"pages"`
	Mode  string           `yaml:"mode"`
	Items []listingOutput  `yaml:"items"`
}

func newFeedCmd(app *cliApp) *cobra.Command {
	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Page through the listing feed",
	}

	var (
		pages    int
		lat, lon float64
	)
	nextCmd := &cobra.Command{
		Use:   "next",
		Short: "Load feed pages the way the app does, nearby first then all",
		Long: `Loads up to --pages pages into an in-memory feed and prints what was
appended. With --lat/--lon the feed starts in nearby mode and falls back to
all listings when nearby runs out; without them it stays in all mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := app.upstreamContext(cmd.Context())
			if err != nil {
				return err
			}
			hasLoc := cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")

			var loc *models.GeoPoint
			if hasLoc {
				pt := models.GeoPoint{Latitude: lat, Longitude: lon}
				if !pt.Valid() {
					return fmt.Errorf("invalid location %v,%v", lat, lon)
				}
				loc = &pt
			}

			agg := feed.NewAggregator(app.client, feed.NewMemoryStore(), app.logger)
			out := feedOutput{}
			var st *feed.State
			for i := 0; i < pages; i++ {
				res, err := agg.Next(ctx, cliFeedKey, loc)
				if err != nil {
					return err
				}
				st = res.State
				for _, req := range res.Requests {
					out.Pages = append(out.Pages, feedPageOutput{Mode: string(req.Mode), Page: req.Page})
				}
				if n := len(out.Pages); n > 0 && len(res.Requests) > 0 {
					out.Pages[n-1].Appended = res.Appended
				}
				if res.Exhausted {
					out.Pages = append(out.Pages, feedPageOutput{Mode: string(st.Mode), Exhausted: true})
					break
				}
			}
			if st != nil {
				out.Mode = string(st.Mode)
				for _, l := range st.Items {
					out.Items = append(out.Items, listingOutput{ID: l.ID, Title: l.Title, Type: string(l.ListingType)})
				}
			}
			return printYAML(cmd.OutOrStdout(), out)
		},
	}
	nextCmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	nextCmd.Flags().Float64Var(&lat, "lat", 0, "device latitude")
	nextCmd.Flags().Float64Var(&lon, "lon", 0, "device longitude")

	feedCmd.AddCommand(nextCmd)
	return feedCmd
}
