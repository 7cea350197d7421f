package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"satprep/internal/config"
	contextutils "satprep/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuthConfig = config.AuthConfig{JWTSecret: "test-jwt-secret", JWTIssuer: "satprep-test"}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions("test-session", store))
	return router
}

func setSessionCookie(t *testing.T, router *gin.Engine, values map[string]interface{}) *http.Cookie {
	setupPath := "/setup-session-" + t.Name()
	router.GET(setupPath, func(c *gin.Context) {
		session := sessions.Default(c)
		for k, v := range values {
			session.Set(k, v)
		}
		require.NoError(t, session.Save())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", setupPath, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func protectedRouter(t *testing.T, authCfg config.AuthConfig) *gin.Engine {
	router := newTestRouter()
	router.GET("/resource", RequireAuth(authCfg), func(c *gin.Context) {
		userID, ok := GetUserID(c)
		require.True(t, ok)
		assert.Equal(t, userID, contextutils.GetUserIDFromContext(c.Request.Context()))
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return router
}

func TestRequireAuth_SessionUser(t *testing.T) {
	router := protectedRouter(t, testAuthConfig)
	sessionCookie := setSessionCookie(t, router, map[string]interface{}{UserIDKey: 42})

	req := httptest.NewRequest("GET", "/resource", nil)
	req.AddCookie(sessionCookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":42}`, w.Body.String())
}

func TestRequireAuth_SessionFloatUserID(t *testing.T) {
	router := protectedRouter(t, testAuthConfig)
	sessionCookie := setSessionCookie(t, router, map[string]interface{}{UserIDKey: float64(7)})

	req := httptest.NewRequest("GET", "/resource", nil)
	req.AddCookie(sessionCookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7}`, w.Body.String())
}

func TestRequireAuth_SessionWrongType(t *testing.T) {
	router := protectedRouter(t, testAuthConfig)
	sessionCookie := setSessionCookie(t, router, map[string]interface{}{UserIDKey: "42"})

	req := httptest.NewRequest("GET", "/resource", nil)
	req.AddCookie(sessionCookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_NoCredentials(t *testing.T) {
	router := protectedRouter(t, testAuthConfig)

	req := httptest.NewRequest("GET", "/resource", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication required")
	assert.Contains(t, w.Body.String(), string(contextutils.ErrorCodeUnauthorized))
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
}

func TestRequireAuth_BearerToken(t *testing.T) {
	router := protectedRouter(t, testAuthConfig)

	token, err := IssueToken(testAuthConfig, 99, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/resource", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":99}`, w.Body.String())
}

func TestRequireAuth_BearerRejections(t *testing.T) {
	expired, err := IssueToken(testAuthConfig, 99, -time.Minute)
	require.NoError(t, err)

	wrongSecret, err := IssueToken(config.AuthConfig{JWTSecret: "other", JWTIssuer: testAuthConfig.JWTIssuer}, 99, time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := IssueToken(config.AuthConfig{JWTSecret: testAuthConfig.JWTSecret, JWTIssuer: "someone-else"}, 99, time.Hour)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-number",
		Issuer:    testAuthConfig.JWTIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testAuthConfig.JWTSecret))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "99",
		Issuer:    testAuthConfig.JWTIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testAuthConfig.JWTSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + wrongSecret},
		{"wrong issuer", "Bearer " + wrongIssuer},
		{"non numeric subject", "Bearer " + badSubject},
		{"unexpected algorithm", "Bearer " + hs512},
		{"empty token", "Bearer "},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
	}

	router := protectedRouter(t, testAuthConfig)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/resource", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRequireAuth_BearerDisabledWithoutSecret(t *testing.T) {
	token, err := IssueToken(testAuthConfig, 5, time.Hour)
	require.NoError(t, err)

	router := protectedRouter(t, config.AuthConfig{})
	req := httptest.NewRequest("GET", "/resource", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIssueToken_RequiresSecret(t *testing.T) {
	_, err := IssueToken(config.AuthConfig{}, 1, time.Hour)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))
}

func TestGetUserID_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetUserID(c)
	assert.False(t, ok)

	c.Set(UserIDKey, "42")
	_, ok = GetUserID(c)
	assert.False(t, ok)
}
