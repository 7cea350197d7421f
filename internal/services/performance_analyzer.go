package services

import (
	"math"

	"satprep/internal/models"
)

// round2 rounds half away from zero to two decimals
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AccuracyRate returns correct/total as a percentage rounded to two decimals, or 0 with no attempts
func AccuracyRate(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(correct) / float64(total) * 100)
}

// ClassifyPerformance maps an accuracy percentage to its tier; bounds are inclusive
func ClassifyPerformance(accuracy float64) models.PerformanceLevel {
	switch {
	case accuracy >= models.MasteredThreshold:
		return models.PerformanceMastered
	case accuracy >= models.ProficientThreshold:
		return models.PerformanceProficient
	case accuracy >= models.StrugglingThreshold:
		return models.PerformanceStruggling
	default:
		return models.PerformanceCritical
	}
}

// NeedsReview reports whether a subtopic has enough attempts and low enough accuracy to need review
func NeedsReview(accuracy float64, totalAttempts int) bool {
	return accuracy < models.ProficientThreshold && totalAttempts >= models.ReviewMinAttempts
}

// AnalyzePerformance converts attempt aggregates into performance records, preserving input order
func AnalyzePerformance(rows []models.SubtopicAggregate) []models.PerformanceRecord {
	records := make([]models.PerformanceRecord, 0, len(rows))
	for _, row := range rows {
		accuracy := AccuracyRate(row.CorrectAttempts, row.TotalAttempts)
		records = append(records, models.PerformanceRecord{
			SubtopicID:              row.SubtopicID,
			SubtopicName:            row.SubtopicName,
			OrderIndex:              row.OrderIndex,
			MajorTopicID:            row.MajorTopicID,
			MajorTopicName:          row.MajorTopicName,
			TotalAttempts:           row.TotalAttempts,
			CorrectAttempts:         row.CorrectAttempts,
			AccuracyRate:            accuracy,
			AvgTimeTaken:            round2(row.AvgTimeTaken),
			UniqueProblemsAttempted: row.UniqueProblems,
			LastAttemptAt:           row.LastAttemptAt,
			PerformanceLevel:        ClassifyPerformance(accuracy),
			NeedsReview:             NeedsReview(accuracy, row.TotalAttempts),
		})
	}
	return records
}
