// Package commands provides CLI commands for the admin tool
package commands

import (
	"fmt"
	"text/tabwriter"

	contextutils "satprep/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(env *Env) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the learning path service.

Available commands:
  stats     - Show table counts and connection details`,
	}

	dbCmd.AddCommand(statsCmd(env))
	return dbCmd
}

func statsCmd(env *Env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if env.Services == nil {
				return contextutils.WrapError(contextutils.ErrDatabaseConnection, "database is not configured")
			}
			svc, db, err := env.Services(ctx)
			if err != nil {
				return err
			}

			stats, err := svc.DatabaseStats(ctx)
			if err != nil {
				env.Logger.Error(ctx, "Failed to get database statistics", err)
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to get database statistics: %v", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "database\t%s\n", maskDatabaseURL(env.Config.Database.URL))
			fmt.Fprintf(tw, "connection\t%s\n", getDatabaseInfo(ctx, db))
			fmt.Fprintf(tw, "users\t%d\n", stats.Users)
			fmt.Fprintf(tw, "attempts\t%d\n", stats.Attempts)
			fmt.Fprintf(tw, "recommendations\t%d\n", stats.Recommendations)
			fmt.Fprintf(tw, "pending recommendations\t%d\n", stats.Pending)
			fmt.Fprintf(tw, "progress rows\t%d\n", stats.ProgressRows)
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
