// Package main seeds a database with a SAT catalog, users and attempt histories, then
// generates each user's learning path. Bearer tokens for the seeded users are written to a
// JSON file so API tests and manual exploration can authenticate as them.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"satprep/internal/config"
	"satprep/internal/database"
	"satprep/internal/middleware"
	"satprep/internal/observability"
	"satprep/internal/services"
	contextutils "satprep/internal/utils"

	"github.com/lib/pq"
)

const tokenTTL = 30 * 24 * time.Hour

var difficulties = []string{"easy", "medium", "hard"}

// SeededUser is written to the output file for each fixture user
type SeededUser struct {
	ID              int    `json:"id"`
	Username        string `json:"username"`
	Token           string `json:"token,omitempty"`
	Recommendations int    `json:"recommendations"`
}

func main() {
	var (
		reset       = flag.Bool("reset", false, "Drop and recreate the database before seeding")
		fixturePath = flag.String("fixture", "cmd/setup-test-db/testdata/fixture.yaml", "Path to the seed fixture")
		outPath     = flag.String("out", "tmp/seeded_users.json", "Where to write seeded users and tokens")
		verbose     = flag.Bool("verbose", false, "Log every seeding step")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	level := "warn"
	if *verbose {
		level = "debug"
	}
	providers, err := observability.SetupObservability(&cfg.OpenTelemetry, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	logger := providers.Logger
	defer func() { _ = providers.Shutdown(context.Background()) }()

	if err := run(ctx, cfg, logger, *reset, *fixturePath, *outPath); err != nil {
		logger.Error(ctx, "Seeding failed", err)
		fmt.Fprintf(os.Stderr, "Seeding failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded database, users written to %s\n", *outPath)
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger, reset bool, fixturePath, outPath string) error {
	fixture, err := LoadFixture(fixturePath)
	if err != nil {
		return err
	}

	if reset {
		if err := resetDatabase(ctx, cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	db, err := database.NewManager(logger).InitDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	users, err := seed(ctx, db, fixture, time.Now(), logger)
	if err != nil {
		return err
	}

	// A reseeded catalog must not be served from a stale cache entry
	cache := services.NewCatalogCache(cfg.Redis)
	defer func() { _ = cache.Close() }()
	if err := cache.Invalidate(ctx); err != nil {
		logger.Warn(ctx, "Failed to invalidate catalog cache", map[string]interface{}{"error": err.Error()})
	}

	svc := services.NewLearningPathService(db, cache, logger)
	for i := range users {
		recs, err := svc.RefreshLearningPath(ctx, users[i].ID, cfg.LearningPath.DefaultLimit)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to generate learning path for %s", users[i].Username)
		}
		users[i].Recommendations = len(recs)

		if cfg.Auth.JWTSecret != "" {
			token, err := middleware.IssueToken(cfg.Auth, users[i].ID, tokenTTL)
			if err != nil {
				return err
			}
			users[i].Token = token
		}
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn(ctx, "No JWT secret configured, seeded users have no tokens")
	}

	return writeUsers(outPath, users)
}

// adminURL points the connection string at the maintenance database
func adminURL(databaseURL string) (adminURL, dbName string, err error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid database URL: %v", err)
	}
	dbName = filepath.Base(u.Path)
	if dbName == "" || dbName == "/" || dbName == "." {
		return "", "", contextutils.WrapError(contextutils.ErrInvalidInput, "database URL has no database name")
	}
	if dbName == "postgres" {
		return "", "", contextutils.WrapError(contextutils.ErrInvalidInput, "refusing to reset the postgres maintenance database")
	}
	u.Path = "/postgres"
	return u.String(), dbName, nil
}

func resetDatabase(ctx context.Context, databaseURL string, logger *observability.Logger) error {
	admin, dbName, err := adminURL(databaseURL)
	if err != nil {
		return err
	}

	adminDB, err := sql.Open("postgres", admin)
	if err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseConnection, err.Error())
	}
	defer func() { _ = adminDB.Close() }()

	fields := map[string]interface{}{"database": dbName}

	logger.Info(ctx, "Terminating connections", fields)
	if _, err := adminDB.ExecContext(ctx,
		`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()`, dbName); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to terminate connections: %v", err)
	}

	logger.Info(ctx, "Dropping database", fields)
	if _, err := adminDB.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pq.QuoteIdentifier(dbName))); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to drop database: %v", err)
	}

	logger.Info(ctx, "Creating database", fields)
	if _, err := adminDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to create database: %v", err)
	}
	return nil
}

// seed inserts the catalog, users and attempts in a single transaction
func seed(ctx context.Context, db *sql.DB, fixture *Fixture, now time.Time, logger *observability.Logger) (users []SeededUser, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseConnection, err.Error())
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	problemsBySubtopic := make(map[string][]int)
	for _, mt := range fixture.MajorTopics {
		var majorID int
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO major_topics (name, order_index) VALUES ($1, $2) RETURNING id`,
			mt.Name, mt.OrderIndex).Scan(&majorID); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert major topic %s: %v", mt.Name, err)
		}

		for _, st := range mt.Subtopics {
			var subtopicID int
			if err := tx.QueryRowContext(ctx,
				`INSERT INTO subtopics (major_topic_id, name, order_index) VALUES ($1, $2, $3) RETURNING id`,
				majorID, st.Name, st.OrderIndex).Scan(&subtopicID); err != nil {
				return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert subtopic %s: %v", st.Name, err)
			}

			ids := make([]int, 0, st.Problems)
			for i := 0; i < st.Problems; i++ {
				var problemID int
				if err := tx.QueryRowContext(ctx,
					`INSERT INTO problems (subtopic_id, difficulty) VALUES ($1, $2) RETURNING id`,
					subtopicID, difficulties[i%len(difficulties)]).Scan(&problemID); err != nil {
					return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert problem: %v", err)
				}
				ids = append(ids, problemID)
			}
			problemsBySubtopic[st.Name] = ids
		}
		logger.Debug(ctx, "Seeded major topic", map[string]interface{}{"name": mt.Name, "subtopics": len(mt.Subtopics)})
	}

	for _, fu := range fixture.Users {
		user := SeededUser{Username: fu.Username}
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO users (username, email) VALUES ($1, NULLIF($2, '')) RETURNING id`,
			fu.Username, fu.Email).Scan(&user.ID); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert user %s: %v", fu.Username, err)
		}

		count := 0
		for _, batch := range fu.Attempts {
			for _, row := range expandAttempts(batch, problemsBySubtopic[batch.Subtopic], now) {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO attempts (user_id, problem_id, is_correct, time_taken_seconds, created_at) VALUES ($1, $2, $3, $4, $5)`,
					user.ID, row.ProblemID, row.Correct, row.Seconds, row.At); err != nil {
					return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert attempt: %v", err)
				}
				count++
			}
		}
		logger.Debug(ctx, "Seeded user", map[string]interface{}{"username": fu.Username, "user_id": user.ID, "attempts": count})
		users = append(users, user)
	}

	if err := tx.Commit(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to commit seed: %v", err)
	}
	return users, nil
}

func writeUsers(path string, users []SeededUser) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal seeded users")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return contextutils.WrapError(err, "failed to create output directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return contextutils.WrapError(err, "failed to write seeded users")
	}
	return nil
}
