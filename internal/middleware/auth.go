// Package middleware provides authentication, recovery and request correlation middleware for the Gin web framework.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"satprep/internal/config"
	contextutils "satprep/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Session keys for storing user information
const (
	// UserIDKey is the key used to store user ID in session and gin context
	UserIDKey = "user_id"
)

const bearerPrefix = "Bearer "

// RequireAuth returns a middleware that resolves the caller to a user id from the session cookie
// or, when a JWT secret is configured, from an HS256 bearer token whose subject is the user id.
func RequireAuth(authCfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromSession(c)
		if !ok {
			userID, ok = userIDFromBearer(c.GetHeader("Authorization"), authCfg)
		}
		if !ok {
			abortUnauthorized(c)
			return
		}

		// Store user info in context for handlers to use
		c.Set(UserIDKey, userID)
		c.Request = c.Request.WithContext(contextutils.WithUserID(c.Request.Context(), userID))

		c.Next()
	}
}

// GetUserID returns the authenticated user id set by RequireAuth
func GetUserID(c *gin.Context) (int, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok && id > 0
}

func userIDFromSession(c *gin.Context) (int, bool) {
	session := sessions.Default(c)
	switch v := session.Get(UserIDKey).(type) {
	case int:
		return v, v > 0
	case float64:
		// JSON numbers decode as float64
		return int(v), v > 0
	default:
		return 0, false
	}
}

func userIDFromBearer(header string, authCfg config.AuthConfig) (int, bool) {
	if authCfg.JWTSecret == "" || !strings.HasPrefix(header, bearerPrefix) {
		return 0, false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		return 0, false
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if authCfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(authCfg.JWTIssuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(authCfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return 0, false
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}

// IssueToken signs an HS256 bearer token for userID, used by operators and tests
func IssueToken(authCfg config.AuthConfig, userID int, ttl time.Duration) (string, error) {
	if authCfg.JWTSecret == "" {
		return "", contextutils.WrapError(contextutils.ErrInvalidInput, "jwt secret is not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		Issuer:    authCfg.JWTIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(authCfg.JWTSecret))
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to sign token: %v", err)
	}
	return signed, nil
}

func abortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", `Bearer realm="satprep"`)
	appErr := contextutils.NewAppError(
		contextutils.ErrorCodeUnauthorized,
		contextutils.SeverityWarn,
		"Authentication required",
		"",
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized, appErr.ToJSON())
}
