package handlers

import (
	"net/http"

	"satprep/internal/config"
	"satprep/internal/middleware"
	"satprep/internal/models"
	"satprep/internal/observability"
	"satprep/internal/serviceinterfaces"
	contextutils "satprep/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Fixed user-facing messages for unexpected failures
const (
	msgRecommendationsFailed = "Failed to generate personalized recommendations"
	msgOverviewFailed        = "Failed to load learning path overview"
	msgNextFailed            = "Failed to get next recommendation"
	msgCompleteFailed        = "Failed to complete recommendation"
	msgPerformanceFailed     = "Failed to analyze performance"
	msgRefreshFailed         = "Failed to refresh learning path"

	msgNothingToRecommend = "No recommendations available right now. Keep practicing to unlock new topics."
)

// LearningPathHandler serves the /learning-path endpoints
type LearningPathHandler struct {
	service serviceinterfaces.LearningPathService
	cfg     *config.Config
	logger  *observability.Logger
}

// NewLearningPathHandler creates a new LearningPathHandler
func NewLearningPathHandler(service serviceinterfaces.LearningPathService, cfg *config.Config, logger *observability.Logger) *LearningPathHandler {
	return &LearningPathHandler{service: service, cfg: cfg, logger: logger}
}

type listQuery struct {
	Limit    int `validate:"min=1,ltefield=MaxLimit"`
	MaxLimit int `validate:"-"`
}

type performanceQuery struct {
	MajorTopicID *int `validate:"omitempty,min=1"`
}

type completeParams struct {
	ID int `validate:"min=1"`
}

func (h *LearningPathHandler) limits() (defaultLimit, maxLimit int) {
	defaultLimit, maxLimit = config.DefaultRecommendationLimit, config.MaxRecommendationLimit
	if h.cfg != nil {
		if h.cfg.LearningPath.DefaultLimit > 0 {
			defaultLimit = h.cfg.LearningPath.DefaultLimit
		}
		if h.cfg.LearningPath.MaxLimit > 0 {
			maxLimit = h.cfg.LearningPath.MaxLimit
		}
	}
	return defaultLimit, maxLimit
}

// parseLimit reads ?limit, falling back to the configured default when absent
func (h *LearningPathHandler) parseLimit(c *gin.Context) (int, error) {
	defaultLimit, maxLimit := h.limits()
	raw, err := contextutils.ParseOptionalInt(c.Query("limit"))
	if err != nil {
		return 0, err
	}
	q := listQuery{Limit: defaultLimit, MaxLimit: maxLimit}
	if raw != nil {
		q.Limit = *raw
	}
	if err := contextutils.ValidateStruct(q); err != nil {
		return 0, err
	}
	return q.Limit, nil
}

// GetRecommendations regenerates the learning path and returns the top pending recommendations
func (h *LearningPathHandler) GetRecommendations(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_recommendations")
	defer observability.FinishSpan(span, nil)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	limit, err := h.parseLimit(c)
	if err != nil {
		h.respondWithError(c, err, msgRecommendationsFailed)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeLimit(limit))

	recs, err := h.service.RefreshLearningPath(ctx, userID, limit)
	if err != nil {
		h.respondWithError(c, err, msgRecommendationsFailed)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendations": nonNilRecommendations(recs)})
}

// GetOverview returns the learning path summary with progress and performance
func (h *LearningPathHandler) GetOverview(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_overview")
	defer observability.FinishSpan(span, nil)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	overview, err := h.service.GetOverview(ctx, userID)
	if err != nil {
		h.respondWithError(c, err, msgOverviewFailed)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetNext returns the single most important pending recommendation, or null with a message
func (h *LearningPathHandler) GetNext(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_next_recommendation")
	defer observability.FinishSpan(span, nil)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	rec, err := h.service.NextRecommendation(ctx, userID)
	if err != nil {
		h.respondWithError(c, err, msgNextFailed)
		return
	}

	if rec == nil {
		c.JSON(http.StatusOK, gin.H{"recommendation": nil, "message": msgNothingToRecommend})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendation": rec})
}

// CompleteRecommendation marks one of the caller's recommendations complete
func (h *LearningPathHandler) CompleteRecommendation(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "complete_recommendation")
	defer observability.FinishSpan(span, nil)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	id, err := contextutils.ParseOptionalInt(c.Param("id"))
	if err != nil || id == nil {
		HandleValidationError(c, "recommendation id", c.Param("id"), "must be a positive integer")
		return
	}
	if err := contextutils.ValidateStruct(completeParams{ID: *id}); err != nil {
		HandleValidationError(c, "recommendation id", *id, "must be a positive integer")
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeRecommendationID(*id))

	rec, err := h.service.CompleteRecommendation(ctx, userID, *id)
	if err != nil {
		h.respondWithError(c, err, msgCompleteFailed)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendation": rec})
}

// GetPerformance returns performance records, engagement and insights, optionally for one major topic
func (h *LearningPathHandler) GetPerformance(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_performance")
	defer observability.FinishSpan(span, nil)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	majorTopicID, err := contextutils.ParseOptionalInt(c.Query("major_topic_id"))
	if err != nil {
		h.respondWithError(c, err, msgPerformanceFailed)
		return
	}
	if err := contextutils.ValidateStruct(performanceQuery{MajorTopicID: majorTopicID}); err != nil {
		h.respondWithError(c, err, msgPerformanceFailed)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID), attribute.Bool("filtered", majorTopicID != nil))

	report, err := h.service.GetPerformance(ctx, userID, majorTopicID)
	if err != nil {
		h.respondWithError(c, err, msgPerformanceFailed)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Refresh forces a full regeneration and returns the default-sized list
func (h *LearningPathHandler) Refresh(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "refresh_learning_path")
	defer observability.FinishSpan(span, nil)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	defaultLimit, _ := h.limits()
	recs, err := h.service.RefreshLearningPath(ctx, userID, defaultLimit)
	if err != nil {
		h.respondWithError(c, err, msgRefreshFailed)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendations": nonNilRecommendations(recs)})
}

func nonNilRecommendations(recs []models.Recommendation) []models.Recommendation {
	if recs == nil {
		return []models.Recommendation{}
	}
	return recs
}
