// Package main provides the entry point for the learning path admin CLI tool.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"satprep/cmd/adm/commands"
	"satprep/internal/config"
	"satprep/internal/di"
	"satprep/internal/observability"
	"satprep/internal/serviceinterfaces"
	"satprep/internal/version"

	"github.com/spf13/cobra"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The admin tool never exports telemetry
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	providers, err := observability.SetupObservability(&cfg.OpenTelemetry, "error")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	logger := providers.Logger

	var container *di.ServiceContainer
	env := &commands.Env{
		Config: cfg,
		Logger: logger,
		Services: func(ctx context.Context) (serviceinterfaces.LearningPathService, *sql.DB, error) {
			if container == nil {
				c := di.NewServiceContainer(cfg, logger, di.WithoutMigrations())
				if err := c.Initialize(ctx); err != nil {
					return nil, nil, err
				}
				container = c
			}
			svc, err := container.GetLearningPathService()
			return svc, container.GetDatabase(), err
		},
	}

	rootCmd := newRootCmd(env)
	err = rootCmd.ExecuteContext(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if container != nil {
		if shutdownErr := container.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn(shutdownCtx, "Failed to release resources", map[string]interface{}{"error": shutdownErr.Error()})
		}
	}
	_ = providers.Shutdown(shutdownCtx)

	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(env *commands.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "SAT learning path administration tool",
		Long: `SAT learning path administration tool

Inspect and regenerate recommendations, refresh progress, mint tokens
and probe a running server.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.RecommendationCommands(env))
	rootCmd.AddCommand(commands.ProgressCommands(env))
	rootCmd.AddCommand(commands.DatabaseCommands(env))
	rootCmd.AddCommand(commands.AuthCommands(env))
	rootCmd.AddCommand(commands.HealthCommand(env))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.Get("adm")
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit %s, built %s, %s)\n",
				info.Service, info.Version, info.Commit, info.BuildTime, info.GoVersion)
		},
	})

	return rootCmd
}
