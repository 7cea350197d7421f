// Package models defines data structures used throughout the learning path service.
package models

import (
	"database/sql"
	"time"
)

// CatalogSubtopic is one subtopic of the static catalog joined with its major topic
type CatalogSubtopic struct {
	SubtopicID     int    `json:"subtopic_id"`
	SubtopicName   string `json:"subtopic_name"`
	OrderIndex     int    `json:"order_index"`
	MajorTopicID   int    `json:"major_topic_id"`
	MajorTopicName string `json:"major_topic_name"`
	ProblemCount   int    `json:"problem_count"`
}

// SubtopicAggregate is the per-subtopic attempt rollup read from the attempts table
type SubtopicAggregate struct {
	SubtopicID      int
	SubtopicName    string
	OrderIndex      int
	MajorTopicID    int
	MajorTopicName  string
	TotalAttempts   int
	CorrectAttempts int
	AvgTimeTaken    float64
	UniqueProblems  int
	LastAttemptAt   time.Time
}

// EngagementStats is the attempt rollup over the engagement window.
// LastAttemptAt and AvgTimeTakenSeconds are invalid when the window is empty.
type EngagementStats struct {
	ActiveDays          int
	TotalAttempts       int
	LastAttemptAt       sql.NullTime
	AvgTimeTakenSeconds sql.NullFloat64
}

// DatabaseStats summarizes row counts for the admin CLI
type DatabaseStats struct {
	Users           int `json:"users"`
	Attempts        int `json:"attempts"`
	Recommendations int `json:"recommendations"`
	Pending         int `json:"pending_recommendations"`
	ProgressRows    int `json:"progress_rows"`
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}
