package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"satprep/internal/config"
	"satprep/internal/models"

	"github.com/spf13/cobra"
)

// RecommendationCommands returns the recommendation management commands
func RecommendationCommands(env *Env) *cobra.Command {
	recCmd := &cobra.Command{
		Use:     "recommendations",
		Aliases: []string{"recs"},
		Short:   "Inspect and regenerate a user's recommendations",
		Long: `Recommendation commands for the learning path service.

Available commands:
  regenerate - Replace a user's pending recommendations and refresh progress
  list       - List a user's pending recommendations
  next       - Show the single most important pending recommendation
  complete   - Mark one recommendation complete`,
	}

	recCmd.AddCommand(regenerateCmd(env))
	recCmd.AddCommand(listCmd(env))
	recCmd.AddCommand(nextCmd(env))
	recCmd.AddCommand(completeCmd(env))
	return recCmd
}

func regenerateCmd(env *Env) *cobra.Command {
	var userID int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Regenerate recommendations for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePositive("user", userID); err != nil {
				return err
			}
			svc, err := env.learningPath(cmd.Context())
			if err != nil {
				return err
			}

			recs, err := svc.GenerateRecommendations(cmd.Context(), userID)
			if err != nil {
				return err
			}
			progress, err := svc.UpdateProgress(cmd.Context(), userID)
			if err != nil {
				return err
			}
			env.Logger.Info(cmd.Context(), "Recommendations regenerated", map[string]interface{}{
				"user_id":         userID,
				"count":           len(recs),
				"progress_topics": len(progress),
			})
			return printRecommendations(cmd.OutOrStdout(), recs, asJSON)
		},
	}
	userIDFlag(cmd, &userID)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func listCmd(env *Env) *cobra.Command {
	var userID, limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending recommendations without regenerating",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePositive("user", userID); err != nil {
				return err
			}
			if err := requirePositive("limit", limit); err != nil {
				return err
			}
			svc, err := env.learningPath(cmd.Context())
			if err != nil {
				return err
			}

			recs, err := svc.ListRecommendations(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			return printRecommendations(cmd.OutOrStdout(), recs, asJSON)
		},
	}
	userIDFlag(cmd, &userID)
	cmd.Flags().IntVar(&limit, "limit", config.DefaultRecommendationLimit, "Maximum recommendations to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func nextCmd(env *Env) *cobra.Command {
	var userID int

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next recommendation for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePositive("user", userID); err != nil {
				return err
			}
			svc, err := env.learningPath(cmd.Context())
			if err != nil {
				return err
			}

			rec, err := svc.NextRecommendation(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if rec == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No recommendations available.")
				return nil
			}
			return printRecommendations(cmd.OutOrStdout(), []models.Recommendation{*rec}, false)
		},
	}
	userIDFlag(cmd, &userID)
	return cmd
}

func completeCmd(env *Env) *cobra.Command {
	var userID, recommendationID int

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark a recommendation complete on behalf of a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePositive("user", userID); err != nil {
				return err
			}
			if err := requirePositive("id", recommendationID); err != nil {
				return err
			}
			svc, err := env.learningPath(cmd.Context())
			if err != nil {
				return err
			}

			rec, err := svc.CompleteRecommendation(cmd.Context(), userID, recommendationID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed recommendation %d (%s)\n", rec.ID, rec.SubtopicName)
			return nil
		},
	}
	userIDFlag(cmd, &userID)
	cmd.Flags().IntVar(&recommendationID, "id", 0, "Recommendation ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func printRecommendations(w io.Writer, recs []models.Recommendation, asJSON bool) error {
	if asJSON {
		if recs == nil {
			recs = []models.Recommendation{}
		}
		return writeJSON(w, recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "No pending recommendations.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRIORITY\tTYPE\tDIFFICULTY\tSUBTOPIC\tREASON")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.Priority, r.RecommendationType, r.DifficultyLevel, r.SubtopicName, r.Reason)
	}
	return tw.Flush()
}
