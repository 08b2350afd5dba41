package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"estatehub/gateway/internal/auth"
)

func newTokenCmd(app *cliApp) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Work with gateway tokens",
	}

	var ttl = mintedTokenTTL
	mintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Print a token for --user signed with --secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.userID == "" || app.secret == "" {
				return errors.New("--user and --secret are required")
			}
			tok, err := auth.GenerateJWT(app.userID, app.secret, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	mintCmd.Flags().DurationVar(&ttl, "ttl", mintedTokenTTL, "token lifetime")

	tokenCmd.AddCommand(mintCmd)
	return tokenCmd
}
