package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"satprep/internal/config"
	"satprep/internal/middleware"
	"satprep/internal/models"
	"satprep/internal/observability"
	contextutils "satprep/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLearningPathService struct {
	mock.Mock
}

func (m *mockLearningPathService) AnalyzePerformance(ctx context.Context, userID int) ([]models.PerformanceRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PerformanceRecord), args.Error(1)
}

func (m *mockLearningPathService) EngagementScore(ctx context.Context, userID int) (float64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockLearningPathService) GenerateRecommendations(ctx context.Context, userID int) ([]models.Recommendation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Recommendation), args.Error(1)
}

func (m *mockLearningPathService) UpdateProgress(ctx context.Context, userID int) ([]models.LearningPathProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LearningPathProgress), args.Error(1)
}

func (m *mockLearningPathService) RefreshLearningPath(ctx context.Context, userID, limit int) ([]models.Recommendation, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Recommendation), args.Error(1)
}

func (m *mockLearningPathService) ListRecommendations(ctx context.Context, userID, limit int) ([]models.Recommendation, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Recommendation), args.Error(1)
}

func (m *mockLearningPathService) NextRecommendation(ctx context.Context, userID int) (*models.Recommendation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recommendation), args.Error(1)
}

func (m *mockLearningPathService) CompleteRecommendation(ctx context.Context, userID, recommendationID int) (*models.Recommendation, error) {
	args := m.Called(ctx, userID, recommendationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recommendation), args.Error(1)
}

func (m *mockLearningPathService) GetOverview(ctx context.Context, userID int) (*models.LearningPathOverview, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LearningPathOverview), args.Error(1)
}

func (m *mockLearningPathService) GetPerformance(ctx context.Context, userID int, majorTopicID *int) (*models.PerformanceReport, error) {
	args := m.Called(ctx, userID, majorTopicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PerformanceReport), args.Error(1)
}

func (m *mockLearningPathService) DatabaseStats(ctx context.Context) (*models.DatabaseStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DatabaseStats), args.Error(1)
}

type stubHealthChecker struct {
	err error
}

func (s stubHealthChecker) PingContext(context.Context) error { return s.err }

const testUserID = 42

func testRouterConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{SessionSecret: "test-session-secret"},
		Auth:   config.AuthConfig{JWTSecret: "test-jwt-secret"},
		LearningPath: config.LearningPathConfig{
			DefaultLimit: 10,
			MaxLimit:     50,
		},
		OpenTelemetry: config.OpenTelemetryConfig{ServiceName: "satprep-test"},
	}
}

func newTestLearningPathRouter(t *testing.T, svc *mockLearningPathService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(testRouterConfig(), svc, stubHealthChecker{}, observability.NewLogger(nil))
}

func authedRequest(t *testing.T, method, target string) *http.Request {
	t.Helper()
	token, err := middleware.IssueToken(testRouterConfig().Auth, testUserID, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func sampleRecommendation(id int) models.Recommendation {
	return models.Recommendation{
		ID:                 id,
		UserID:             testUserID,
		SubtopicID:         10,
		SubtopicName:       "Linear equations",
		MajorTopicName:     "Algebra",
		RecommendationType: models.RecommendationPractice,
		Priority:           models.PriorityCritical,
		DifficultyLevel:    models.DifficultyEasy,
		Reason:             "Accuracy is 25.0%",
	}
}

func TestLearningPathRoutes_RequireAuth(t *testing.T) {
	svc := &mockLearningPathService{}
	router := newTestLearningPathRouter(t, svc)

	routes := []struct{ method, path string }{
		{"GET", "/learning-path/recommendations"},
		{"GET", "/learning-path/overview"},
		{"GET", "/learning-path/next"},
		{"POST", "/learning-path/recommendations/1/complete"},
		{"GET", "/learning-path/performance"},
		{"POST", "/learning-path/refresh"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, string(contextutils.ErrorCodeUnauthorized), decodeBody(t, w)["code"])
		})
	}
	svc.AssertExpectations(t)
}

func TestGetRecommendations_DefaultLimit(t *testing.T) {
	svc := &mockLearningPathService{}
	svc.On("RefreshLearningPath", mock.Anything, testUserID, 10).
		Return([]models.Recommendation{sampleRecommendation(1), sampleRecommendation(2)}, nil)
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", "/learning-path/recommendations"))

	require.Equal(t, http.StatusOK, w.Code)
	recs := decodeBody(t, w)["recommendations"].([]interface{})
	assert.Len(t, recs, 2)
	svc.AssertExpectations(t)
}

func TestGetRecommendations_ExplicitLimit(t *testing.T) {
	svc := &mockLearningPathService{}
	svc.On("RefreshLearningPath", mock.Anything, testUserID, 3).Return(nil, nil)
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", "/learning-path/recommendations?limit=3"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recommendations":[]}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestGetRecommendations_InvalidLimit(t *testing.T) {
	for _, limit := range []string{"0", "-1", "51", "abc"} {
		t.Run(limit, func(t *testing.T) {
			svc := &mockLearningPathService{}
			router := newTestLearningPathRouter(t, svc)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, authedRequest(t, "GET", "/learning-path/recommendations?limit="+limit))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			svc.AssertNotCalled(t, "RefreshLearningPath", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetRecommendations_ServiceFailureHidesDetails(t *testing.T) {
	svc := &mockLearningPathService{}
	svc.On("RefreshLearningPath", mock.Anything, testUserID, 10).
		Return(nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, "pq: deadlock detected"))
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", "/learning-path/recommendations"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, msgRecommendationsFailed, body["message"])
	assert.NotContains(t, w.Body.String(), "deadlock")
}

func TestGetOverview(t *testing.T) {
	svc := &mockLearningPathService{}
	svc.On("GetOverview", mock.Anything, testUserID).Return(&models.LearningPathOverview{
		Overview: models.OverviewSummary{
			EngagementScore:        43.76,
			MasteredCount:          1,
			PendingRecommendations: 3,
		},
		Progress:            []models.LearningPathProgress{},
		PerformanceAnalysis: []models.PerformanceRecord{},
		PerformanceByTopic:  map[string][]models.PerformanceRecord{},
	}, nil)
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", "/learning-path/overview"))

	require.Equal(t, http.StatusOK, w.Code)
	overview := decodeBody(t, w)["overview"].(map[string]interface{})
	assert.Equal(t, 43.76, overview["engagement_score"])
	assert.Equal(t, float64(3), overview["pending_recommendations"])
	svc.AssertExpectations(t)
}

func TestGetOverview_Failure(t *testing.T) {
	svc := &mockLearningPathService{}
	svc.On("GetOverview", mock.Anything, testUserID).Return(nil, errors.New("boom"))
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", "/learning-path/overview"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, msgOverviewFailed, decodeBody(t, w)["message"])
}

func TestGetNext(t *testing.T) {
	svc := &mockLearningPathService{}
	rec := sampleRecommendation(5)
	svc.On("NextRecommendation", mock.Anything, testUserID).Return(&rec, nil)
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", "/learning-path/next"))

	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody(t, w)["recommendation"].(map[string]interface{})
	assert.Equal(t, float64(5), got["id"])
	assert.Equal(t, "practice", got["recommendation_type"])
}

func TestGetNext_NothingToRecommend(t *testing.T) {
	svc := &mockLearningPathService{}
	svc.On("NextRecommendation", mock.Anything, testUserID).Return(nil, nil)
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", "/learning-path/next"))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Nil(t, body["recommendation"])
	assert.Equal(t, msgNothingToRecommend, body["message"])
}

func TestCompleteRecommendation(t *testing.T) {
	svc := &mockLearningPathService{}
	rec := sampleRecommendation(7)
	rec.IsCompleted = true
	svc.On("CompleteRecommendation", mock.Anything, testUserID, 7).Return(&rec, nil)
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "POST", "/learning-path/recommendations/7/complete"))

	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody(t, w)["recommendation"].(map[string]interface{})
	assert.Equal(t, true, got["is_completed"])
	svc.AssertExpectations(t)
}

func TestCompleteRecommendation_NotFound(t *testing.T) {
	svc := &mockLearningPathService{}
	svc.On("CompleteRecommendation", mock.Anything, testUserID, 99).
		Return(nil, contextutils.WrapError(contextutils.ErrRecommendationNotFound, "recommendation 99"))
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "POST", "/learning-path/recommendations/99/complete"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(contextutils.ErrorCodeRecommendationNotFound), decodeBody(t, w)["code"])
}

func TestCompleteRecommendation_InvalidID(t *testing.T) {
	for _, id := range []string{"abc", "0", "-4"} {
		t.Run(id, func(t *testing.T) {
			svc := &mockLearningPathService{}
			router := newTestLearningPathRouter(t, svc)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, authedRequest(t, "POST", "/learning-path/recommendations/"+id+"/complete"))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			svc.AssertNotCalled(t, "CompleteRecommendation", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetPerformance(t *testing.T) {
	svc := &mockLearningPathService{}
	svc.On("GetPerformance", mock.Anything, testUserID, (*int)(nil)).Return(&models.PerformanceReport{
		Performance:     []models.PerformanceRecord{},
		EngagementScore: 12.5,
		Insights:        []models.Insight{},
	}, nil)
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", "/learning-path/performance"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 12.5, decodeBody(t, w)["engagement_score"])
	svc.AssertExpectations(t)
}

func TestGetPerformance_FilteredByMajorTopic(t *testing.T) {
	svc := &mockLearningPathService{}
	svc.On("GetPerformance", mock.Anything, testUserID, mock.MatchedBy(func(id *int) bool {
		return id != nil && *id == 2
	})).Return(&models.PerformanceReport{Performance: []models.PerformanceRecord{}, Insights: []models.Insight{}}, nil)
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", "/learning-path/performance?major_topic_id=2"))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestGetPerformance_InvalidMajorTopic(t *testing.T) {
	for _, raw := range []string{"x", "0"} {
		t.Run(raw, func(t *testing.T) {
			svc := &mockLearningPathService{}
			router := newTestLearningPathRouter(t, svc)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, authedRequest(t, "GET", "/learning-path/performance?major_topic_id="+raw))

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRefresh_UsesDefaultLimit(t *testing.T) {
	svc := &mockLearningPathService{}
	svc.On("RefreshLearningPath", mock.Anything, testUserID, 10).
		Return([]models.Recommendation{sampleRecommendation(1)}, nil)
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "POST", "/learning-path/refresh"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["recommendations"].([]interface{}), 1)
	svc.AssertExpectations(t)
}

func TestRefresh_Failure(t *testing.T) {
	svc := &mockLearningPathService{}
	svc.On("RefreshLearningPath", mock.Anything, testUserID, 10).
		Return(nil, contextutils.WrapError(contextutils.ErrDatabaseTransaction, "commit"))
	router := newTestLearningPathRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "POST", "/learning-path/refresh"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, msgRefreshFailed, decodeBody(t, w)["message"])
}

func TestLimits_FallBackWithoutConfig(t *testing.T) {
	h := NewLearningPathHandler(nil, nil, observability.NewLogger(nil))
	defaultLimit, maxLimit := h.limits()

	assert.Equal(t, config.DefaultRecommendationLimit, defaultLimit)
	assert.Equal(t, config.MaxRecommendationLimit, maxLimit)
}
