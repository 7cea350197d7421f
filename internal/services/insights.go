package services

import (
	"fmt"

	"satprep/internal/models"
)

// OverallAccuracy weights every attempt equally: total correct over total attempts
func OverallAccuracy(records []models.PerformanceRecord) float64 {
	var correct, total int
	for _, r := range records {
		correct += r.CorrectAttempts
		total += r.TotalAttempts
	}
	return AccuracyRate(correct, total)
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}

// BuildInsights derives advisory messages from performance records and the engagement score
func BuildInsights(records []models.PerformanceRecord, engagement float64) []models.Insight {
	insights := make([]models.Insight, 0, 4)

	if len(records) > 0 {
		accuracy := OverallAccuracy(records)
		switch {
		case accuracy >= models.MasteredThreshold:
			insights = append(insights, models.Insight{
				Type:     models.InsightPositive,
				Category: "accuracy",
				Message:  fmt.Sprintf("Excellent work! Your overall accuracy is %s%%.", formatAccuracy(accuracy)),
			})
		case accuracy >= models.ProficientThreshold:
			insights = append(insights, models.Insight{
				Type:     models.InsightNeutral,
				Category: "accuracy",
				Message:  fmt.Sprintf("Good progress. Your overall accuracy is %s%%; focus on weaker subtopics to push past 80%%.", formatAccuracy(accuracy)),
			})
		default:
			insights = append(insights, models.Insight{
				Type:     models.InsightConcern,
				Category: "accuracy",
				Message:  fmt.Sprintf("Your overall accuracy is %s%%. Reviewing fundamentals will help.", formatAccuracy(accuracy)),
			})
		}
	}

	switch {
	case engagement >= 80:
		insights = append(insights, models.Insight{
			Type:     models.InsightPositive,
			Category: "engagement",
			Message:  "Outstanding consistency! You have been practicing regularly.",
		})
	case engagement >= 50:
		insights = append(insights, models.Insight{
			Type:     models.InsightNeutral,
			Category: "engagement",
			Message:  "Steady practice. A few more sessions each week will speed up your progress.",
		})
	default:
		insights = append(insights, models.Insight{
			Type:     models.InsightConcern,
			Category: "engagement",
			Message:  "Practice has been light recently. Short daily sessions build momentum.",
		})
	}

	var review, mastered int
	for _, r := range records {
		if r.NeedsReview {
			review++
		}
		if r.PerformanceLevel == models.PerformanceMastered {
			mastered++
		}
	}

	if review > 0 {
		insights = append(insights, models.Insight{
			Type:     models.InsightConcern,
			Category: "review",
			Message:  fmt.Sprintf("%d %s review.", review, plural(review, "subtopic needs", "subtopics need")),
		})
	}
	if mastered > 0 {
		insights = append(insights, models.Insight{
			Type:     models.InsightPositive,
			Category: "mastery",
			Message:  fmt.Sprintf("%d mastered %s ready for challenge problems.", mastered, plural(mastered, "subtopic is", "subtopics are")),
		})
	}

	return insights
}

// SummarizeOverview computes the headline counts shown on the overview
func SummarizeOverview(records []models.PerformanceRecord, engagement float64, pending int) models.OverviewSummary {
	summary := models.OverviewSummary{
		EngagementScore:         engagement,
		TotalSubtopicsAttempted: len(records),
		OverallAccuracy:         OverallAccuracy(records),
		PendingRecommendations:  pending,
	}
	for _, r := range records {
		switch r.PerformanceLevel {
		case models.PerformanceMastered:
			summary.MasteredCount++
		case models.PerformanceProficient:
			summary.ProficientCount++
		case models.PerformanceStruggling:
			summary.StrugglingCount++
		case models.PerformanceCritical:
			summary.CriticalCount++
		}
		if r.NeedsReview {
			summary.SubtopicsNeedingReview++
		}
	}
	return summary
}

// GroupByMajorTopic buckets records under their major topic name, keeping input order inside each bucket
func GroupByMajorTopic(records []models.PerformanceRecord) map[string][]models.PerformanceRecord {
	grouped := make(map[string][]models.PerformanceRecord)
	for _, r := range records {
		grouped[r.MajorTopicName] = append(grouped[r.MajorTopicName], r)
	}
	return grouped
}

// FilterByMajorTopic keeps records of one major topic; a nil id keeps everything
func FilterByMajorTopic(records []models.PerformanceRecord, majorTopicID *int) []models.PerformanceRecord {
	if majorTopicID == nil {
		return records
	}
	filtered := make([]models.PerformanceRecord, 0, len(records))
	for _, r := range records {
		if r.MajorTopicID == *majorTopicID {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
