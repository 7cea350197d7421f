package services

import (
	"fmt"
	"sort"
	"strconv"

	"satprep/internal/models"
)

// GenerationInput is the snapshot the generator works from
type GenerationInput struct {
	UserID      int
	Performance []models.PerformanceRecord
	Catalog     []models.CatalogSubtopic
	// AttemptedSubtopics holds every subtopic the user has ever attempted, not only the recent window.
	AttemptedSubtopics map[int]struct{}
	EngagementScore    float64
}

func formatAccuracy(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// GenerateRecommendations applies the rule tiers in order: critical review, struggling practice,
// next topic per major topic, then challenges for highly engaged users.
func GenerateRecommendations(in GenerationInput) []models.Recommendation {
	var recs []models.Recommendation

	recs = append(recs, lowAccuracyTier(in, models.PerformanceCritical, models.RecommendationReview,
		models.PriorityCritical, "Critical review needed: %s%% accuracy in %s")...)
	recs = append(recs, lowAccuracyTier(in, models.PerformanceStruggling, models.RecommendationPractice,
		models.PriorityHigh, "Additional practice needed: %s%% accuracy in %s")...)
	recs = append(recs, nextTopicTier(in)...)

	if in.EngagementScore > models.ChallengeEngagementThreshold {
		for _, p := range in.Performance {
			if p.PerformanceLevel != models.PerformanceMastered {
				continue
			}
			recs = append(recs, models.Recommendation{
				UserID:             in.UserID,
				SubtopicID:         p.SubtopicID,
				SubtopicName:       p.SubtopicName,
				MajorTopicName:     p.MajorTopicName,
				RecommendationType: models.RecommendationChallenge,
				Priority:           models.PriorityLow,
				DifficultyLevel:    models.DifficultyHard,
				Reason:             "Challenge problems for mastered topic: " + p.SubtopicName,
			})
		}
	}

	return recs
}

// lowAccuracyTier emits one easy recommendation per subtopic at level with enough attempts, worst accuracy first
func lowAccuracyTier(in GenerationInput, level models.PerformanceLevel, recType models.RecommendationType,
	priority models.Priority, reasonFormat string,
) []models.Recommendation {
	var matched []models.PerformanceRecord
	for _, p := range in.Performance {
		if p.PerformanceLevel == level && p.TotalAttempts >= models.ReviewMinAttempts {
			matched = append(matched, p)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].AccuracyRate < matched[j].AccuracyRate
	})

	recs := make([]models.Recommendation, 0, len(matched))
	for _, p := range matched {
		recs = append(recs, models.Recommendation{
			UserID:             in.UserID,
			SubtopicID:         p.SubtopicID,
			SubtopicName:       p.SubtopicName,
			MajorTopicName:     p.MajorTopicName,
			RecommendationType: recType,
			Priority:           priority,
			DifficultyLevel:    models.DifficultyEasy,
			Reason:             fmt.Sprintf(reasonFormat, formatAccuracy(p.AccuracyRate), p.SubtopicName),
		})
	}
	return recs
}

// nextTopicTier picks the lowest-order never-attempted subtopic of each major topic
func nextTopicTier(in GenerationInput) []models.Recommendation {
	difficulty := models.DifficultyEasy
	if in.EngagementScore > models.MediumNextTopicEngagementThreshold {
		difficulty = models.DifficultyMedium
	}

	next := make(map[int]models.CatalogSubtopic)
	var topicOrder []int
	for _, s := range in.Catalog {
		if _, attempted := in.AttemptedSubtopics[s.SubtopicID]; attempted {
			continue
		}
		current, seen := next[s.MajorTopicID]
		if !seen {
			topicOrder = append(topicOrder, s.MajorTopicID)
			next[s.MajorTopicID] = s
			continue
		}
		if s.OrderIndex < current.OrderIndex {
			next[s.MajorTopicID] = s
		}
	}

	recs := make([]models.Recommendation, 0, len(topicOrder))
	for _, topicID := range topicOrder {
		s := next[topicID]
		recs = append(recs, models.Recommendation{
			UserID:             in.UserID,
			SubtopicID:         s.SubtopicID,
			SubtopicName:       s.SubtopicName,
			MajorTopicName:     s.MajorTopicName,
			RecommendationType: models.RecommendationNextTopic,
			Priority:           models.PriorityMedium,
			DifficultyLevel:    difficulty,
			Reason:             "Next topic to explore: " + s.SubtopicName,
		})
	}
	return recs
}

// countByType tallies recommendations per type for metrics
func countByType(recs []models.Recommendation) map[string]int {
	counts := make(map[string]int)
	for _, r := range recs {
		counts[string(r.RecommendationType)]++
	}
	return counts
}
