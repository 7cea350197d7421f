package services

import (
	"math"
	"time"

	"satprep/internal/models"
)

// daysAgo counts whole elapsed days between t and now; future timestamps count as zero
func daysAgo(t, now time.Time) int {
	elapsed := now.Sub(t)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

// ScoreEngagement combines frequency, volume, recency and solve speed over the engagement
// window into a score in [0, 100] rounded to two decimals.
func ScoreEngagement(stats models.EngagementStats, now time.Time) float64 {
	window := float64(models.EngagementWindowDays)

	frequency := math.Min(float64(stats.ActiveDays)/window*models.EngagementFrequencyWeight, models.EngagementFrequencyWeight)
	volume := math.Min(float64(stats.TotalAttempts)/models.EngagementVolumeTarget*models.EngagementVolumeWeight, models.EngagementVolumeWeight)

	var recency float64
	if stats.LastAttemptAt.Valid {
		remaining := math.Max(0, window-float64(daysAgo(stats.LastAttemptAt.Time, now)))
		recency = remaining / window * models.EngagementRecencyWeight
	}

	var efficiency float64
	if stats.AvgTimeTakenSeconds.Valid {
		efficiency = math.Min(models.EngagementEfficiencyWeight,
			math.Max(0, models.EngagementEfficiencyWeight-stats.AvgTimeTakenSeconds.Float64/60))
	}

	return round2(frequency + volume + recency + efficiency)
}
