package commands

import (
	"fmt"
	"text/tabwriter"

	"satprep/internal/models"

	"github.com/spf13/cobra"
)

// ProgressCommands returns the learning path progress commands
func ProgressCommands(env *Env) *cobra.Command {
	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Learning path progress commands",
	}

	progressCmd.AddCommand(refreshProgressCmd(env))
	progressCmd.AddCommand(performanceCmd(env))
	return progressCmd
}

func refreshProgressCmd(env *Env) *cobra.Command {
	var userID int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute and store per-topic progress for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePositive("user", userID); err != nil {
				return err
			}
			svc, err := env.learningPath(cmd.Context())
			if err != nil {
				return err
			}

			rows, err := svc.UpdateProgress(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if asJSON {
				if rows == nil {
					rows = []models.LearningPathProgress{}
				}
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No topics in the catalog.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TOPIC\tMASTERY\tCOMPLETED\tTOTAL\tENGAGEMENT")
			for _, p := range rows {
				fmt.Fprintf(tw, "%s\t%.2f\t%d\t%d\t%.2f\n",
					p.MajorTopicName, p.MasteryLevel, p.SubtopicsCompleted, p.TotalSubtopics, p.EngagementScore)
			}
			return tw.Flush()
		},
	}
	userIDFlag(cmd, &userID)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func performanceCmd(env *Env) *cobra.Command {
	var userID, majorTopicID int

	cmd := &cobra.Command{
		Use:   "performance",
		Short: "Show performance analysis and insights for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePositive("user", userID); err != nil {
				return err
			}
			var filter *int
			if cmd.Flags().Changed("major-topic") {
				if err := requirePositive("major-topic", majorTopicID); err != nil {
					return err
				}
				filter = &majorTopicID
			}
			svc, err := env.learningPath(cmd.Context())
			if err != nil {
				return err
			}

			report, err := svc.GetPerformance(cmd.Context(), userID, filter)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	userIDFlag(cmd, &userID)
	cmd.Flags().IntVar(&majorTopicID, "major-topic", 0, "Only include this major topic")
	return cmd
}
