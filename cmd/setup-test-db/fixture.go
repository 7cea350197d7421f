package main

import (
	"os"
	"time"

	contextutils "satprep/internal/utils"

	"gopkg.in/yaml.v3"
)

// Fixture is the seed data file layout
type Fixture struct {
	MajorTopics []FixtureMajorTopic `yaml:"major_topics"`
	Users       []FixtureUser       `yaml:"users"`
}

// FixtureMajorTopic is one catalog major topic with its subtopics
type FixtureMajorTopic struct {
	Name       string            `yaml:"name"`
	OrderIndex int               `yaml:"order_index"`
	Subtopics  []FixtureSubtopic `yaml:"subtopics"`
}

// FixtureSubtopic is one catalog subtopic and how many problems to create for it
type FixtureSubtopic struct {
	Name       string `yaml:"name"`
	OrderIndex int    `yaml:"order_index"`
	Problems   int    `yaml:"problems"`
}

// FixtureUser is a user and their attempt history
type FixtureUser struct {
	Username string           `yaml:"username"`
	Email    string           `yaml:"email"`
	Attempts []FixtureAttempt `yaml:"attempts"`
}

// FixtureAttempt describes a batch of attempts on one subtopic. Attempts are spread evenly
// backwards from DaysAgo over SpreadDays.
type FixtureAttempt struct {
	Subtopic   string `yaml:"subtopic"`
	Correct    int    `yaml:"correct"`
	Incorrect  int    `yaml:"incorrect"`
	Seconds    int    `yaml:"seconds"`
	DaysAgo    int    `yaml:"days_ago"`
	SpreadDays int    `yaml:"spread_days"`
}

// attemptRow is one row destined for the attempts table
type attemptRow struct {
	ProblemID int
	Correct   bool
	Seconds   int
	At        time.Time
}

// LoadFixture reads and validates a fixture file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to read fixture %s: %v", path, err)
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to parse fixture %s: %v", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	subtopics := make(map[string]int)
	for _, mt := range f.MajorTopics {
		for _, s := range mt.Subtopics {
			if s.Problems < 1 {
				return contextutils.WrapErrorf(contextutils.ErrValidationFailed, "subtopic %q needs at least one problem", s.Name)
			}
			subtopics[s.Name]++
		}
	}
	for name, n := range subtopics {
		if n > 1 {
			return contextutils.WrapErrorf(contextutils.ErrValidationFailed, "subtopic name %q is not unique", name)
		}
	}
	for _, u := range f.Users {
		for _, a := range u.Attempts {
			if _, ok := subtopics[a.Subtopic]; !ok {
				return contextutils.WrapErrorf(contextutils.ErrValidationFailed, "user %s attempts unknown subtopic %q", u.Username, a.Subtopic)
			}
			if a.Correct < 0 || a.Incorrect < 0 || a.DaysAgo < 0 || a.SpreadDays < 0 {
				return contextutils.WrapErrorf(contextutils.ErrValidationFailed, "user %s has negative counts for %q", u.Username, a.Subtopic)
			}
		}
	}
	return nil
}

// expandAttempts turns a batch into rows, cycling through the subtopic's problems. Correct
// answers come first in time order.
func expandAttempts(a FixtureAttempt, problemIDs []int, now time.Time) []attemptRow {
	total := a.Correct + a.Incorrect
	if total == 0 || len(problemIDs) == 0 {
		return nil
	}

	newest := now.AddDate(0, 0, -a.DaysAgo)
	var step time.Duration
	if total > 1 && a.SpreadDays > 0 {
		step = time.Duration(a.SpreadDays) * 24 * time.Hour / time.Duration(total-1)
	}

	rows := make([]attemptRow, 0, total)
	for i := 0; i < total; i++ {
		rows = append(rows, attemptRow{
			ProblemID: problemIDs[i%len(problemIDs)],
			Correct:   i < a.Correct,
			Seconds:   a.Seconds,
			At:        newest.Add(-time.Duration(total-1-i) * step).Add(-time.Duration(total-i) * time.Minute),
		})
	}
	return rows
}
