package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"estatehub/gateway/internal/models"
	"estatehub/gateway/internal/reconcile"
)

type conversationOutput struct {
	ID          string `yaml:"id"`
	Listing     string `yaml:"listing,omitempty"`
	LastMessage string `yaml:"lastMessage,omitempty"`
	LastAt      string `yaml:"lastAt,omitempty"`
	Unread      *int   `yaml:"unread,omitempty"`
}

type conversationSource interface {
	Conversations(ctx context.Context, page int) (*models.ConversationPage, error)
}

func newConversationsCmd(app *cliApp) *cobra.Command {
	convCmd := &cobra.Command{
		Use:   "conversations",
		Short: "Inspect the caller's conversations",
	}

	var maxPages, parallel int
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch conversation pages and print the reconciled list",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := app.upstreamContext(cmd.Context())
			if err != nil {
				return err
			}
			if maxPages < 1 || parallel < 1 {
				return fmt.Errorf("--pages and --parallel must be positive")
			}

			list, err := fetchConversations(ctx, app.client, maxPages, parallel, app.logger)
			if err != nil {
				return err
			}

			out := make([]conversationOutput, 0, len(list))
			for _, c := range list {
				o := conversationOutput{ID: c.ID, Listing: c.Listing, Unread: c.UnreadCount}
				if c.LastMessage != nil {
					o.LastMessage = c.LastMessage.Text
					o.LastAt = c.LastMessage.CreatedAt
				}
				out = append(out, o)
			}
			return printYAML(cmd.OutOrStdout(), out)
		},
	}
	syncCmd.Flags().IntVar(&maxPages, "pages", 10, "maximum pages to fetch")
	syncCmd.Flags().IntVar(&parallel, "parallel", 4, "pages fetched at once")

	convCmd.AddCommand(syncCmd)
	return convCmd
}

// fetchConversations pulls pages in batches of parallel until a page reports
// no more or maxPages is reached. Merge is order independent, so pages are
// combined as they arrive.
func fetchConversations(ctx context.Context, src conversationSource, maxPages, parallel int, logger *zap.Logger) ([]models.Conversation, error) {
	var list []models.Conversation
	for start := 1; start <= maxPages; start += parallel {
		end := min(start+parallel-1, maxPages)
		pages := make([]*models.ConversationPage, end-start+1)

		g, gctx := errgroup.WithContext(ctx)
		for p := start; p <= end; p++ {
			g.Go(func() error {
				page, err := src.Conversations(gctx, p)
				if err != nil {
					return err
				}
				pages[p-start] = page
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		more := true
		for i, page := range pages {
			if page == nil {
				continue
			}
			list = reconcile.Merge(list, page.Conversations)
			logger.Debug("conversation page merged", zap.Int("page", start+i), zap.Int("count", len(page.Conversations)))
			if !page.HasMore {
				more = false
			}
		}
		if !more {
			break
		}
	}
	return list, nil
}
