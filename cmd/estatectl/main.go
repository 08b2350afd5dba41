// Command estatectl drives the gateway's feed, conversation and submission
// logic directly against the marketplace API, holding state in memory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Tests build a fresh one per case.
func newRootCmd() *cobra.Command {
	app := &cliApp{}

	rootCmd := &cobra.Command{
		Use:           "estatectl",
		Short:         "Operate the estatehub gateway logic from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.upstreamURL, "upstream", os.Getenv("UPSTREAM_BASE_URL"), "marketplace API base URL")
	flags.StringVar(&app.token, "token", os.Getenv("ESTATECTL_TOKEN"), "bearer token for the marketplace API")
	flags.StringVar(&app.userID, "user", "", "mint a token for this user instead of passing --token")
	flags.StringVar(&app.secret, "secret", os.Getenv("JWT_SECRET"), "signing secret used with --user")
	flags.DurationVar(&app.timeout, "timeout", defaultTimeout, "upstream request timeout")
	flags.IntVar(&app.pageSize, "page-size", 20, "items per upstream page")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "debug logging to stderr")

	rootCmd.AddCommand(newFeedCmd(app), newConversationsCmd(app), newListingCmd(app), newTokenCmd(app))
	return rootCmd
}
