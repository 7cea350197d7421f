package services

import (
	"database/sql"
	"time"

	"satprep/internal/models"
)

// ComputeProgress builds one progress row per catalog major topic. Mastery is measured against the
// subtopics the user attempted in that topic, while TotalSubtopics counts the whole catalog topic.
func ComputeProgress(userID int, records []models.PerformanceRecord, catalog []models.CatalogSubtopic,
	engagement float64, now time.Time,
) []models.LearningPathProgress {
	type tally struct {
		name      string
		total     int
		attempted int
		mastered  int
	}

	var order []int
	tallies := make(map[int]*tally)
	for _, s := range catalog {
		t, ok := tallies[s.MajorTopicID]
		if !ok {
			t = &tally{name: s.MajorTopicName}
			tallies[s.MajorTopicID] = t
			order = append(order, s.MajorTopicID)
		}
		t.total++
	}

	for _, r := range records {
		t, ok := tallies[r.MajorTopicID]
		if !ok {
			continue
		}
		t.attempted++
		if r.AccuracyRate >= models.MasteredThreshold {
			t.mastered++
		}
	}

	progress := make([]models.LearningPathProgress, 0, len(order))
	for _, topicID := range order {
		t := tallies[topicID]
		var mastery float64
		if t.attempted > 0 {
			mastery = round2(float64(t.mastered) / float64(t.attempted) * 100)
		}
		progress = append(progress, models.LearningPathProgress{
			UserID:               userID,
			MajorTopicID:         topicID,
			MajorTopicName:       t.name,
			MasteryLevel:         mastery,
			SubtopicsCompleted:   t.mastered,
			TotalSubtopics:       t.total,
			EngagementScore:      engagement,
			LastRecommendationAt: sql.NullTime{Time: now, Valid: true},
		})
	}
	return progress
}
