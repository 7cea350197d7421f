// Package serviceinterfaces defines service interfaces for dependency injection and testing.
package serviceinterfaces

import (
	"context"

	"satprep/internal/models"
)

// LearningPathService defines the recommendation engine operations exposed to handlers and the CLI
type LearningPathService interface {
	// AnalyzePerformance returns per-subtopic performance over the trailing 30 days
	AnalyzePerformance(ctx context.Context, userID int) ([]models.PerformanceRecord, error)

	// EngagementScore returns the trailing 14-day engagement score
	EngagementScore(ctx context.Context, userID int) (float64, error)

	// GenerateRecommendations replaces the user's recommendations with a freshly computed set
	GenerateRecommendations(ctx context.Context, userID int) ([]models.Recommendation, error)

	// UpdateProgress recomputes and upserts per-major-topic progress
	UpdateProgress(ctx context.Context, userID int) ([]models.LearningPathProgress, error)

	// RefreshLearningPath regenerates, refreshes progress and lists the top pending recommendations
	RefreshLearningPath(ctx context.Context, userID, limit int) ([]models.Recommendation, error)

	// ListRecommendations returns pending recommendations ordered by priority then age
	ListRecommendations(ctx context.Context, userID, limit int) ([]models.Recommendation, error)

	// NextRecommendation returns the single top pending recommendation, generating once if none exist
	NextRecommendation(ctx context.Context, userID int) (*models.Recommendation, error)

	// CompleteRecommendation marks one of the user's pending recommendations complete and regenerates
	CompleteRecommendation(ctx context.Context, userID, recommendationID int) (*models.Recommendation, error)

	// GetOverview refreshes progress and returns the full learning path summary
	GetOverview(ctx context.Context, userID int) (*models.LearningPathOverview, error)

	// GetPerformance returns performance, engagement and insights, optionally for one major topic
	GetPerformance(ctx context.Context, userID int, majorTopicID *int) (*models.PerformanceReport, error)

	// DatabaseStats returns table counts for operators
	DatabaseStats(ctx context.Context) (*models.DatabaseStats, error)
}
