package commands

import (
	"fmt"
	"time"

	"satprep/internal/middleware"

	"github.com/spf13/cobra"
)

const defaultTokenTTL = 24 * time.Hour

// AuthCommands returns the token management commands
func AuthCommands(env *Env) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers",
	}
	authCmd.AddCommand(tokenCmd(env))
	return authCmd
}

func tokenCmd(env *Env) *cobra.Command {
	var userID int
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		Long: `Mint an HS256 bearer token signed with auth.jwt_secret.

The token is accepted by every /learning-path endpoint and by POST /v1/auth/session.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePositive("user", userID); err != nil {
				return err
			}
			token, err := middleware.IssueToken(env.Config.Auth, userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	userIDFlag(cmd, &userID)
	cmd.Flags().DurationVar(&ttl, "ttl", defaultTokenTTL, "Token lifetime")
	return cmd
}
