package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	contextutils "satprep/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixture_Sample(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "fixture.yaml"))
	require.NoError(t, err)

	assert.Len(t, f.MajorTopics, 3)
	assert.Equal(t, "Algebra", f.MajorTopics[0].Name)
	assert.Equal(t, 8, f.MajorTopics[0].Subtopics[0].Problems)
	require.Len(t, f.Users, 3)
	assert.Empty(t, f.Users[0].Attempts)
	assert.Equal(t, 13, f.Users[2].Attempts[0].SpreadDays)
}

func TestLoadFixture_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "major_topics: [oops"},
		{"unknown subtopic", `
major_topics:
  - name: Algebra
    subtopics:
      - name: Linear
        problems: 1
users:
  - username: a
    attempts:
      - subtopic: Geometry
        correct: 1
`},
		{"no problems", `
major_topics:
  - name: Algebra
    subtopics:
      - name: Linear
        problems: 0
`},
		{"duplicate subtopic", `
major_topics:
  - name: Algebra
    subtopics:
      - name: Linear
        problems: 1
  - name: Other
    subtopics:
      - name: Linear
        problems: 1
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "fixture.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			_, err := LoadFixture(path)
			require.Error(t, err)
		})
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, contextutils.ErrInvalidInput)
}

func TestExpandAttempts(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("cycles problems and orders correct first", func(t *testing.T) {
		rows := expandAttempts(FixtureAttempt{Correct: 2, Incorrect: 3, Seconds: 60, DaysAgo: 1}, []int{7, 8}, now)
		require.Len(t, rows, 5)

		assert.Equal(t, []int{7, 8, 7, 8, 7}, []int{rows[0].ProblemID, rows[1].ProblemID, rows[2].ProblemID, rows[3].ProblemID, rows[4].ProblemID})
		assert.True(t, rows[0].Correct)
		assert.True(t, rows[1].Correct)
		assert.False(t, rows[2].Correct)
		for i := 1; i < len(rows); i++ {
			assert.True(t, rows[i].At.After(rows[i-1].At))
		}
		assert.True(t, rows[4].At.Before(now.AddDate(0, 0, -1)))
		assert.Equal(t, 60, rows[0].Seconds)
	})

	t.Run("spreads across days", func(t *testing.T) {
		rows := expandAttempts(FixtureAttempt{Correct: 3, SpreadDays: 10}, []int{1}, now)
		require.Len(t, rows, 3)

		span := rows[2].At.Sub(rows[0].At)
		assert.InDelta(t, float64(10*24*time.Hour), float64(span), float64(5*time.Minute))
	})

	t.Run("empty batch", func(t *testing.T) {
		assert.Nil(t, expandAttempts(FixtureAttempt{}, []int{1}, now))
		assert.Nil(t, expandAttempts(FixtureAttempt{Correct: 1}, nil, now))
	})
}

func TestAdminURL(t *testing.T) {
	admin, name, err := adminURL("postgres://satprep:pw@localhost:5432/satprep_test?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "satprep_test", name)
	assert.Equal(t, "postgres://satprep:pw@localhost:5432/postgres?sslmode=disable", admin)

	_, _, err = adminURL("postgres://localhost:5432/postgres")
	assert.ErrorIs(t, err, contextutils.ErrInvalidInput)

	_, _, err = adminURL("postgres://localhost:5432")
	assert.Error(t, err)
}

func TestWriteUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "users.json")
	require.NoError(t, writeUsers(path, []SeededUser{{ID: 1, Username: "a", Token: "t", Recommendations: 3}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"username":"a","token":"t","recommendations":3}]`, string(data))
}
