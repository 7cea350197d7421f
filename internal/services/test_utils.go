//go:build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"satprep/internal/config"
	"satprep/internal/database"
	"satprep/internal/observability"

	"github.com/stretchr/testify/require"
)

// SharedTestDBSetup returns a migrated, empty database for an integration test
func SharedTestDBSetup(t *testing.T) *sql.DB {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	dbManager := database.NewManager(observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
	db, err := dbManager.InitDB(context.Background(), config.DatabaseConfig{
		URL:             databaseURL,
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: config.DatabaseConnMaxLifetime,
	})
	require.NoError(t, err)

	CleanupTestDatabase(db, t)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CleanupTestDatabase truncates every table in one statement
func CleanupTestDatabase(db *sql.DB, t *testing.T) {
	t.Helper()
	_, err := db.Exec(`TRUNCATE TABLE learning_path_progress, learning_recommendations, attempts,
		problems, subtopics, major_topics, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func seedUser(t *testing.T, db *sql.DB, username string) int {
	t.Helper()
	var id int
	require.NoError(t, db.QueryRow(`INSERT INTO users (username) VALUES ($1) RETURNING id`, username).Scan(&id))
	return id
}

func seedMajorTopic(t *testing.T, db *sql.DB, name string, orderIndex int) int {
	t.Helper()
	var id int
	require.NoError(t, db.QueryRow(
		`INSERT INTO major_topics (name, order_index) VALUES ($1, $2) RETURNING id`, name, orderIndex).Scan(&id))
	return id
}

// seedSubtopic creates a subtopic with problemCount problems and returns the subtopic and problem ids
func seedSubtopic(t *testing.T, db *sql.DB, majorTopicID int, name string, orderIndex, problemCount int) (int, []int) {
	t.Helper()
	var id int
	require.NoError(t, db.QueryRow(
		`INSERT INTO subtopics (major_topic_id, name, order_index) VALUES ($1, $2, $3) RETURNING id`,
		majorTopicID, name, orderIndex).Scan(&id))

	problems := make([]int, 0, problemCount)
	for i := 0; i < problemCount; i++ {
		var pid int
		require.NoError(t, db.QueryRow(`INSERT INTO problems (subtopic_id) VALUES ($1) RETURNING id`, id).Scan(&pid))
		problems = append(problems, pid)
	}
	return id, problems
}

func seedAttempt(t *testing.T, db *sql.DB, userID, problemID int, correct bool, seconds int, at time.Time) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO attempts (user_id, problem_id, is_correct, time_taken_seconds, created_at) VALUES ($1, $2, $3, $4, $5)`,
		userID, problemID, correct, seconds, at)
	require.NoError(t, err)
}
