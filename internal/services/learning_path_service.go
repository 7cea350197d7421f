package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"satprep/internal/models"
	"satprep/internal/observability"
	"satprep/internal/serviceinterfaces"
	contextutils "satprep/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var _ serviceinterfaces.LearningPathService = (*LearningPathService)(nil)

// recommendationLockNamespace is the first key of the per-user transaction advisory lock
const recommendationLockNamespace = 7301

const (
	performanceQuery = `
		SELECT s.id, s.name, s.order_index, mt.id, mt.name,
		       COUNT(*) AS total_attempts,
		       COUNT(*) FILTER (WHERE a.is_correct) AS correct_attempts,
		       COALESCE(AVG(a.time_taken_seconds), 0) AS avg_time_taken,
		       COUNT(DISTINCT a.problem_id) AS unique_problems,
		       MAX(a.created_at) AS last_attempt_at
		FROM attempts a
		JOIN problems p ON p.id = a.problem_id
		JOIN subtopics s ON s.id = p.subtopic_id
		JOIN major_topics mt ON mt.id = s.major_topic_id
		WHERE a.user_id = $1 AND a.created_at >= $2
		GROUP BY s.id, s.name, s.order_index, mt.id, mt.name
		ORDER BY mt.name, s.order_index`

	engagementQuery = `
		SELECT COUNT(DISTINCT DATE(a.created_at)), COUNT(*), MAX(a.created_at), AVG(a.time_taken_seconds)
		FROM attempts a
		WHERE a.user_id = $1 AND a.created_at >= $2`

	catalogQuery = `
		SELECT s.id, s.name, s.order_index, mt.id, mt.name, COUNT(p.id)
		FROM subtopics s
		JOIN major_topics mt ON mt.id = s.major_topic_id
		LEFT JOIN problems p ON p.subtopic_id = s.id
		GROUP BY s.id, s.name, s.order_index, mt.id, mt.name
		ORDER BY mt.name, s.order_index`

	attemptedSubtopicsQuery = `
		SELECT DISTINCT p.subtopic_id
		FROM attempts a
		JOIN problems p ON p.id = a.problem_id
		WHERE a.user_id = $1`

	insertRecommendationQuery = `
		INSERT INTO learning_recommendations
		    (user_id, subtopic_id, recommendation_type, priority, difficulty_level, reason, is_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $7)
		RETURNING id`

	upsertProgressQuery = `
		INSERT INTO learning_path_progress
		    (user_id, major_topic_id, mastery_level, subtopics_completed, total_subtopics, engagement_score,
		     last_recommendation_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $7)
		ON CONFLICT (user_id, major_topic_id) DO UPDATE SET
		    mastery_level = EXCLUDED.mastery_level,
		    subtopics_completed = EXCLUDED.subtopics_completed,
		    total_subtopics = EXCLUDED.total_subtopics,
		    engagement_score = EXCLUDED.engagement_score,
		    last_recommendation_at = EXCLUDED.last_recommendation_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	listRecommendationsQuery = `
		SELECT lr.id, lr.user_id, lr.subtopic_id, s.name, mt.name, lr.recommendation_type, lr.priority,
		       lr.difficulty_level, lr.reason, lr.is_completed, lr.completed_at, lr.created_at, lr.updated_at
		FROM learning_recommendations lr
		JOIN subtopics s ON s.id = lr.subtopic_id
		JOIN major_topics mt ON mt.id = s.major_topic_id
		WHERE lr.user_id = $1 AND lr.is_completed = FALSE
		ORDER BY lr.priority ASC, lr.created_at ASC, lr.id ASC
		LIMIT $2`

	completeRecommendationQuery = `
		WITH updated AS (
		    UPDATE learning_recommendations
		    SET is_completed = TRUE, completed_at = $3, updated_at = $3
		    WHERE id = $1 AND user_id = $2 AND is_completed = FALSE
		    RETURNING id, user_id, subtopic_id, recommendation_type, priority, difficulty_level, reason,
		              is_completed, completed_at, created_at, updated_at
		)
		SELECT u.id, u.user_id, u.subtopic_id, s.name, mt.name, u.recommendation_type, u.priority,
		       u.difficulty_level, u.reason, u.is_completed, u.completed_at, u.created_at, u.updated_at
		FROM updated u
		JOIN subtopics s ON s.id = u.subtopic_id
		JOIN major_topics mt ON mt.id = s.major_topic_id`

	progressQuery = `
		SELECT lpp.id, lpp.user_id, lpp.major_topic_id, mt.name, lpp.mastery_level, lpp.subtopics_completed,
		       lpp.total_subtopics, lpp.engagement_score, lpp.last_recommendation_at, lpp.created_at, lpp.updated_at
		FROM learning_path_progress lpp
		JOIN major_topics mt ON mt.id = lpp.major_topic_id
		WHERE lpp.user_id = $1
		ORDER BY mt.name`

	pendingCountQuery = `
		SELECT COUNT(*) FROM learning_recommendations WHERE user_id = $1 AND is_completed = FALSE`

	statsQuery = `
		SELECT (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM attempts),
		       (SELECT COUNT(*) FROM learning_recommendations),
		       (SELECT COUNT(*) FROM learning_recommendations WHERE is_completed = FALSE),
		       (SELECT COUNT(*) FROM learning_path_progress)`
)

// LearningPathService computes and persists personalized learning paths
type LearningPathService struct {
	db     *sql.DB
	cache  CatalogCache
	logger *observability.Logger
	now    func() time.Time
}

// NewLearningPathService creates a new LearningPathService. A nil cache disables catalog caching.
func NewLearningPathService(db *sql.DB, cache CatalogCache, logger *observability.Logger) *LearningPathService {
	if cache == nil {
		cache = NoopCatalogCache{}
	}
	return &LearningPathService{
		db:     db,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source, used to pin windows in tests
func (s *LearningPathService) WithClock(now func() time.Time) *LearningPathService {
	s.now = now
	return s
}

// snapshot is everything one recompute needs, read at a single instant
type snapshot struct {
	now        time.Time
	records    []models.PerformanceRecord
	engagement float64
	catalog    []models.CatalogSubtopic
	attempted  map[int]struct{}
}

// loadSnapshot reads the inputs concurrently; attempted subtopics are only loaded when needed
func (s *LearningPathService) loadSnapshot(ctx context.Context, userID int, withAttempted bool) (*snapshot, error) {
	snap := &snapshot{now: s.now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := s.analyzePerformanceAt(gctx, userID, snap.now)
		snap.records = records
		return err
	})
	g.Go(func() error {
		score, err := s.engagementScoreAt(gctx, userID, snap.now)
		snap.engagement = score
		return err
	})
	g.Go(func() error {
		catalog, err := s.ListCatalog(gctx)
		snap.catalog = catalog
		return err
	})
	if withAttempted {
		g.Go(func() error {
			attempted, err := s.AttemptedSubtopicIDs(gctx, userID)
			snap.attempted = attempted
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// AnalyzePerformance returns per-subtopic performance over the trailing 30 days
func (s *LearningPathService) AnalyzePerformance(ctx context.Context, userID int) (result []models.PerformanceRecord, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "analyze_performance", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	return s.analyzePerformanceAt(ctx, userID, s.now())
}

func (s *LearningPathService) analyzePerformanceAt(ctx context.Context, userID int, now time.Time) ([]models.PerformanceRecord, error) {
	since := now.AddDate(0, 0, -models.PerformanceWindowDays)
	rows, err := s.db.QueryContext(ctx, performanceQuery, userID, since)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load performance for user %d: %v", userID, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close performance rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var aggregates []models.SubtopicAggregate
	for rows.Next() {
		var a models.SubtopicAggregate
		if err := rows.Scan(&a.SubtopicID, &a.SubtopicName, &a.OrderIndex, &a.MajorTopicID, &a.MajorTopicName,
			&a.TotalAttempts, &a.CorrectAttempts, &a.AvgTimeTaken, &a.UniqueProblems, &a.LastAttemptAt); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan performance row: %v", err)
		}
		aggregates = append(aggregates, a)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate performance rows: %v", err)
	}

	return AnalyzePerformance(aggregates), nil
}

// EngagementScore returns the trailing 14-day engagement score
func (s *LearningPathService) EngagementScore(ctx context.Context, userID int) (result float64, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "engagement_score", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	return s.engagementScoreAt(ctx, userID, s.now())
}

func (s *LearningPathService) engagementScoreAt(ctx context.Context, userID int, now time.Time) (float64, error) {
	since := now.AddDate(0, 0, -models.EngagementWindowDays)

	var stats models.EngagementStats
	err := s.db.QueryRowContext(ctx, engagementQuery, userID, since).Scan(
		&stats.ActiveDays, &stats.TotalAttempts, &stats.LastAttemptAt, &stats.AvgTimeTakenSeconds)
	if err != nil {
		return 0, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load engagement for user %d: %v", userID, err)
	}
	return ScoreEngagement(stats, now), nil
}

// ListCatalog returns every subtopic with its major topic, ordered by major topic name then order index.
// Cache failures are logged and fall through to the database.
func (s *LearningPathService) ListCatalog(ctx context.Context) (result []models.CatalogSubtopic, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "list_catalog")
	defer observability.FinishSpan(span, &err)

	cached, found, cacheErr := s.cache.Get(ctx)
	if cacheErr != nil {
		s.logger.Warn(ctx, "Catalog cache read failed, using database", map[string]interface{}{"error": cacheErr.Error()})
	}
	if found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	rows, err := s.db.QueryContext(ctx, catalogQuery)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load catalog: %v", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close catalog rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	for rows.Next() {
		var c models.CatalogSubtopic
		if err := rows.Scan(&c.SubtopicID, &c.SubtopicName, &c.OrderIndex, &c.MajorTopicID, &c.MajorTopicName, &c.ProblemCount); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan catalog row: %v", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate catalog rows: %v", err)
	}

	if setErr := s.cache.Set(ctx, result); setErr != nil {
		s.logger.Warn(ctx, "Catalog cache write failed", map[string]interface{}{"error": setErr.Error()})
	}
	return result, nil
}

// AttemptedSubtopicIDs returns every subtopic the user has ever attempted
func (s *LearningPathService) AttemptedSubtopicIDs(ctx context.Context, userID int) (map[int]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, attemptedSubtopicsQuery, userID)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load attempted subtopics for user %d: %v", userID, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close attempted subtopic rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	attempted := make(map[int]struct{})
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan attempted subtopic: %v", err)
		}
		attempted[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate attempted subtopics: %v", err)
	}
	return attempted, nil
}

// GenerateRecommendations replaces the user's recommendations with a freshly computed set
func (s *LearningPathService) GenerateRecommendations(ctx context.Context, userID int) (result []models.Recommendation, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "generate_recommendations", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	snap, err := s.loadSnapshot(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	return s.generateFrom(ctx, userID, snap)
}

func (s *LearningPathService) generateFrom(ctx context.Context, userID int, snap *snapshot) (recs []models.Recommendation, err error) {
	start := time.Now()
	defer func() {
		observability.RecordGeneration(countByType(recs), time.Since(start), err)
	}()

	recs = GenerateRecommendations(GenerationInput{
		UserID:             userID,
		Performance:        snap.records,
		Catalog:            snap.catalog,
		AttemptedSubtopics: snap.attempted,
		EngagementScore:    snap.engagement,
	})

	if err := s.replaceRecommendations(ctx, userID, recs, snap.now); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Generated learning path recommendations", map[string]interface{}{
		"user_id":          userID,
		"count":            len(recs),
		"engagement_score": snap.engagement,
	})
	return recs, nil
}

// replaceRecommendations deletes and reinserts the user's rows in one transaction, serialized
// per user by a transaction-scoped advisory lock.
func (s *LearningPathService) replaceRecommendations(ctx context.Context, userID int, recs []models.Recommendation, now time.Time) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseTransaction, "failed to begin recommendation transaction: %v", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error(ctx, "Failed to roll back recommendation transaction", rbErr, map[string]interface{}{"user_id": userID})
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, recommendationLockNamespace, userID); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseTransaction, "failed to lock recommendations for user %d: %v", userID, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM learning_recommendations WHERE user_id = $1`, userID); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to clear recommendations for user %d: %v", userID, err)
	}

	if len(recs) > 0 {
		stmt, prepErr := tx.PrepareContext(ctx, insertRecommendationQuery)
		if prepErr != nil {
			err = contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to prepare recommendation insert: %v", prepErr)
			return err
		}
		defer func() {
			if closeErr := stmt.Close(); closeErr != nil {
				s.logger.Warn(ctx, "Failed to close recommendation statement", map[string]interface{}{"error": closeErr.Error()})
			}
		}()

		for i := range recs {
			r := &recs[i]
			if err = stmt.QueryRowContext(ctx, userID, r.SubtopicID, r.RecommendationType, r.Priority,
				r.DifficultyLevel, r.Reason, now).Scan(&r.ID); err != nil {
				return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert recommendation for subtopic %d: %v", r.SubtopicID, err)
			}
			r.UserID = userID
			r.CreatedAt = now
			r.UpdatedAt = now
		}
	}

	if err = tx.Commit(); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseTransaction, "failed to commit recommendations for user %d: %v", userID, err)
	}
	return nil
}

// UpdateProgress recomputes and upserts per-major-topic progress
func (s *LearningPathService) UpdateProgress(ctx context.Context, userID int) (result []models.LearningPathProgress, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "update_progress", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	snap, err := s.loadSnapshot(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	return s.updateProgressFrom(ctx, userID, snap)
}

func (s *LearningPathService) updateProgressFrom(ctx context.Context, userID int, snap *snapshot) (progress []models.LearningPathProgress, err error) {
	progress = ComputeProgress(userID, snap.records, snap.catalog, snap.engagement, snap.now)
	if len(progress) == 0 {
		return progress, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseTransaction, "failed to begin progress transaction: %v", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error(ctx, "Failed to roll back progress transaction", rbErr, map[string]interface{}{"user_id": userID})
			}
		}
	}()

	for i := range progress {
		p := &progress[i]
		if err = tx.QueryRowContext(ctx, upsertProgressQuery, userID, p.MajorTopicID, p.MasteryLevel,
			p.SubtopicsCompleted, p.TotalSubtopics, p.EngagementScore, snap.now).Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to upsert progress for major topic %d: %v", p.MajorTopicID, err)
		}
		p.UpdatedAt = snap.now
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseTransaction, "failed to commit progress for user %d: %v", userID, err)
	}
	return progress, nil
}

// RefreshLearningPath regenerates recommendations and progress from one snapshot, then lists the top pending items
func (s *LearningPathService) RefreshLearningPath(ctx context.Context, userID, limit int) (result []models.Recommendation, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "refresh_learning_path",
		observability.AttributeUserID(userID), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	if limit < 1 {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "limit must be positive, got %d", limit)
	}

	snap, err := s.loadSnapshot(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	if _, err = s.generateFrom(ctx, userID, snap); err != nil {
		return nil, err
	}
	if _, err = s.updateProgressFrom(ctx, userID, snap); err != nil {
		return nil, err
	}
	return s.ListRecommendations(ctx, userID, limit)
}

// ListRecommendations returns pending recommendations ordered by priority, then oldest first
func (s *LearningPathService) ListRecommendations(ctx context.Context, userID, limit int) (result []models.Recommendation, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "list_recommendations",
		observability.AttributeUserID(userID), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	if limit < 1 {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "limit must be positive, got %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, listRecommendationsQuery, userID, limit)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to list recommendations for user %d: %v", userID, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close recommendation rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	result = make([]models.Recommendation, 0, limit)
	for rows.Next() {
		rec, scanErr := scanRecommendation(rows)
		if scanErr != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan recommendation: %v", scanErr)
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate recommendations: %v", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecommendation(row rowScanner) (*models.Recommendation, error) {
	var r models.Recommendation
	if err := row.Scan(&r.ID, &r.UserID, &r.SubtopicID, &r.SubtopicName, &r.MajorTopicName, &r.RecommendationType,
		&r.Priority, &r.DifficultyLevel, &r.Reason, &r.IsCompleted, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// NextRecommendation returns the top pending recommendation. When none exist it generates once and
// retries; a nil result with no error means there is nothing left to recommend.
func (s *LearningPathService) NextRecommendation(ctx context.Context, userID int) (result *models.Recommendation, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "next_recommendation", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	recs, err := s.ListRecommendations(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		span.SetAttributes(attribute.Bool("regenerated", true))
		if _, err = s.GenerateRecommendations(ctx, userID); err != nil {
			return nil, err
		}
		if recs, err = s.ListRecommendations(ctx, userID, 1); err != nil {
			return nil, err
		}
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// CompleteRecommendation marks one pending recommendation of this user complete, then regenerates.
// Foreign, missing and already-completed ids all yield ErrRecommendationNotFound.
func (s *LearningPathService) CompleteRecommendation(ctx context.Context, userID, recommendationID int) (result *models.Recommendation, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "complete_recommendation",
		observability.AttributeUserID(userID), observability.AttributeRecommendationID(recommendationID))
	defer observability.FinishSpan(span, &err)

	result, err = scanRecommendation(s.db.QueryRowContext(ctx, completeRecommendationQuery, recommendationID, userID, s.now()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecommendationNotFound, "recommendation %d for user %d", recommendationID, userID)
	}
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to complete recommendation %d: %v", recommendationID, err)
	}
	observability.RecommendationsCompletedTotal.Inc()

	if _, err = s.GenerateRecommendations(ctx, userID); err != nil {
		return nil, err
	}
	return result, nil
}

// GetProgress returns the stored progress rows ordered by major topic name
func (s *LearningPathService) GetProgress(ctx context.Context, userID int) (result []models.LearningPathProgress, err error) {
	rows, err := s.db.QueryContext(ctx, progressQuery, userID)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load progress for user %d: %v", userID, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close progress rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	result = []models.LearningPathProgress{}
	for rows.Next() {
		var p models.LearningPathProgress
		if err := rows.Scan(&p.ID, &p.UserID, &p.MajorTopicID, &p.MajorTopicName, &p.MasteryLevel, &p.SubtopicsCompleted,
			&p.TotalSubtopics, &p.EngagementScore, &p.LastRecommendationAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan progress row: %v", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate progress rows: %v", err)
	}
	return result, nil
}

// CountPendingRecommendations counts the user's incomplete recommendations
func (s *LearningPathService) CountPendingRecommendations(ctx context.Context, userID int) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, pendingCountQuery, userID).Scan(&n); err != nil {
		return 0, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to count pending recommendations for user %d: %v", userID, err)
	}
	return n, nil
}

// GetOverview refreshes progress, then assembles progress, performance and counts
func (s *LearningPathService) GetOverview(ctx context.Context, userID int) (result *models.LearningPathOverview, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "get_overview", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	snap, err := s.loadSnapshot(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	if _, err = s.updateProgressFrom(ctx, userID, snap); err != nil {
		return nil, err
	}

	var progress []models.LearningPathProgress
	var pending int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var gErr error
		progress, gErr = s.GetProgress(gctx, userID)
		return gErr
	})
	g.Go(func() error {
		var gErr error
		pending, gErr = s.CountPendingRecommendations(gctx, userID)
		return gErr
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	records := snap.records
	if records == nil {
		records = []models.PerformanceRecord{}
	}
	return &models.LearningPathOverview{
		Overview:            SummarizeOverview(records, snap.engagement, pending),
		Progress:            progress,
		PerformanceAnalysis: records,
		PerformanceByTopic:  GroupByMajorTopic(records),
	}, nil
}

// GetPerformance returns performance with insights, optionally narrowed to one major topic.
// The engagement score always covers every topic.
func (s *LearningPathService) GetPerformance(ctx context.Context, userID int, majorTopicID *int) (result *models.PerformanceReport, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "get_performance", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)
	if majorTopicID != nil {
		span.SetAttributes(observability.AttributeMajorTopicID(*majorTopicID))
	}

	now := s.now()
	var records []models.PerformanceRecord
	var engagement float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var gErr error
		records, gErr = s.analyzePerformanceAt(gctx, userID, now)
		return gErr
	})
	g.Go(func() error {
		var gErr error
		engagement, gErr = s.engagementScoreAt(gctx, userID, now)
		return gErr
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	filtered := FilterByMajorTopic(records, majorTopicID)
	if filtered == nil {
		filtered = []models.PerformanceRecord{}
	}
	return &models.PerformanceReport{
		Performance:     filtered,
		EngagementScore: engagement,
		Insights:        BuildInsights(filtered, engagement),
	}, nil
}

// DatabaseStats returns table counts for operators
func (s *LearningPathService) DatabaseStats(ctx context.Context) (result *models.DatabaseStats, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "database_stats")
	defer observability.FinishSpan(span, &err)

	var st models.DatabaseStats
	if err = s.db.QueryRowContext(ctx, statsQuery).Scan(&st.Users, &st.Attempts, &st.Recommendations, &st.Pending, &st.ProgressRows); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load database stats: %v", err)
	}
	return &st, nil
}
