package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// PerformanceLevel is the accuracy tier of a subtopic
type PerformanceLevel string

// Performance levels from best to worst
const (
	PerformanceMastered   PerformanceLevel = "mastered"
	PerformanceProficient PerformanceLevel = "proficient"
	PerformanceStruggling PerformanceLevel = "struggling"
	PerformanceCritical   PerformanceLevel = "critical"
)

// RecommendationType is the kind of action a recommendation asks for
type RecommendationType string

// Recommendation types
const (
	RecommendationNextTopic RecommendationType = "next_topic"
	RecommendationReview    RecommendationType = "review"
	RecommendationPractice  RecommendationType = "practice"
	RecommendationChallenge RecommendationType = "challenge"
)

// DifficultyLevel is the problem difficulty a recommendation targets
type DifficultyLevel string

// Difficulty levels
const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// Priority orders recommendations; lower values are served first
type Priority int

// Priority tiers
const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
	// PriorityLowest is a valid stored value that no generation rule assigns.
	PriorityLowest Priority = 5
)

// Accuracy thresholds (percent, inclusive lower bounds)
const (
	MasteredThreshold   = 80.0
	ProficientThreshold = 60.0
	StrugglingThreshold = 40.0
)

// Generation and scoring constants
const (
	// ReviewMinAttempts is the attempt floor below which low accuracy is treated as noise.
	ReviewMinAttempts = 3

	PerformanceWindowDays = 30
	EngagementWindowDays  = 14

	// ChallengeEngagementThreshold must be strictly exceeded to emit challenges.
	ChallengeEngagementThreshold = 80.0
	// MediumNextTopicEngagementThreshold must be strictly exceeded for medium next topics.
	MediumNextTopicEngagementThreshold = 70.0
)

// Engagement sub-score weights and saturation points
const (
	EngagementFrequencyWeight  = 40.0
	EngagementVolumeWeight     = 30.0
	EngagementRecencyWeight    = 20.0
	EngagementEfficiencyWeight = 10.0

	EngagementVolumeTarget = 50.0
)

// PerformanceRecord is the derived per-subtopic performance for one user
type PerformanceRecord struct {
	SubtopicID              int              `json:"subtopic_id"`
	SubtopicName            string           `json:"subtopic_name"`
	OrderIndex              int              `json:"order_index"`
	MajorTopicID            int              `json:"major_topic_id"`
	MajorTopicName          string           `json:"major_topic_name"`
	TotalAttempts           int              `json:"total_attempts"`
	CorrectAttempts         int              `json:"correct_attempts"`
	AccuracyRate            float64          `json:"accuracy_rate"`
	AvgTimeTaken            float64          `json:"avg_time_taken"`
	UniqueProblemsAttempted int              `json:"unique_problems_attempted"`
	LastAttemptAt           time.Time        `json:"last_attempt_at"`
	PerformanceLevel        PerformanceLevel `json:"performance_level"`
	NeedsReview             bool             `json:"needs_review"`
}

// Recommendation is a persisted, typed suggestion pointing a user at one subtopic
type Recommendation struct {
	ID                 int                `json:"id"`
	UserID             int                `json:"user_id"`
	SubtopicID         int                `json:"subtopic_id"`
	SubtopicName       string             `json:"subtopic_name"`
	MajorTopicName     string             `json:"major_topic_name"`
	RecommendationType RecommendationType `json:"recommendation_type"`
	Priority           Priority           `json:"priority"`
	DifficultyLevel    DifficultyLevel    `json:"difficulty_level"`
	Reason             string             `json:"reason"`
	IsCompleted        bool               `json:"is_completed"`
	CompletedAt        sql.NullTime       `json:"completed_at"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// MarshalJSON renders CompletedAt as a nullable timestamp
func (r Recommendation) MarshalJSON() ([]byte, error) {
	type alias Recommendation
	return json.Marshal(&struct {
		alias
		CompletedAt *time.Time `json:"completed_at"`
	}{
		alias:       alias(r),
		CompletedAt: nullTimeToPointer(r.CompletedAt),
	})
}

// LearningPathProgress is the per (user, major topic) progress summary
type LearningPathProgress struct {
	ID                   int          `json:"id"`
	UserID               int          `json:"user_id"`
	MajorTopicID         int          `json:"major_topic_id"`
	MajorTopicName       string       `json:"major_topic_name"`
	MasteryLevel         float64      `json:"mastery_level"`
	SubtopicsCompleted   int          `json:"subtopics_completed"`
	TotalSubtopics       int          `json:"total_subtopics"`
	EngagementScore      float64      `json:"engagement_score"`
	LastRecommendationAt sql.NullTime `json:"last_recommendation_at"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// MarshalJSON renders LastRecommendationAt as a nullable timestamp
func (p LearningPathProgress) MarshalJSON() ([]byte, error) {
	type alias LearningPathProgress
	return json.Marshal(&struct {
		alias
		LastRecommendationAt *time.Time `json:"last_recommendation_at"`
	}{
		alias:                alias(p),
		LastRecommendationAt: nullTimeToPointer(p.LastRecommendationAt),
	})
}

// InsightType is the tone of an insight
type InsightType string

// Insight tones
const (
	InsightPositive InsightType = "positive"
	InsightNeutral  InsightType = "neutral"
	InsightConcern  InsightType = "concern"
)

// Insight is derived advisory text, never persisted
type Insight struct {
	Type     InsightType `json:"type"`
	Category string      `json:"category"`
	Message  string      `json:"message"`
}

// OverviewSummary holds the headline numbers of the learning path overview
type OverviewSummary struct {
	EngagementScore         float64 `json:"engagement_score"`
	TotalSubtopicsAttempted int     `json:"total_subtopics_attempted"`
	MasteredCount           int     `json:"mastered_count"`
	ProficientCount         int     `json:"proficient_count"`
	StrugglingCount         int     `json:"struggling_count"`
	CriticalCount           int     `json:"critical_count"`
	SubtopicsNeedingReview  int     `json:"subtopics_needing_review"`
	OverallAccuracy         float64 `json:"overall_accuracy"`
	PendingRecommendations  int     `json:"pending_recommendations"`
}

// LearningPathOverview is the full overview payload
type LearningPathOverview struct {
	Overview            OverviewSummary                `json:"overview"`
	Progress            []LearningPathProgress         `json:"progress"`
	PerformanceAnalysis []PerformanceRecord            `json:"performance_analysis"`
	PerformanceByTopic  map[string][]PerformanceRecord `json:"performance_by_topic"`
}

// PerformanceReport is the filtered performance view with derived insights
type PerformanceReport struct {
	Performance     []PerformanceRecord `json:"performance"`
	EngagementScore float64             `json:"engagement_score"`
	Insights        []Insight           `json:"insights"`
}
