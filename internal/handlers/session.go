package handlers

import (
	"net/http"

	"satprep/internal/middleware"
	"satprep/internal/observability"
	contextutils "satprep/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// GetUserIDFromSession retrieves the current user ID from the session.
// Returns (0, false) if not authenticated or if the stored value is invalid.
func GetUserIDFromSession(c *gin.Context) (int, bool) {
	session := sessions.Default(c)
	userID := session.Get(middleware.UserIDKey)
	if userID == nil {
		return 0, false
	}
	id, ok := userID.(int)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// SessionHandler lets browser clients trade a bearer token for a cookie session
type SessionHandler struct {
	logger *observability.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(logger *observability.Logger) *SessionHandler {
	return &SessionHandler{logger: logger}
}

// Create stores the authenticated user in the cookie session. Mounted behind RequireAuth.
func (h *SessionHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.UserIDKey, userID)
	if err := session.Save(); err != nil {
		h.logger.Error(c.Request.Context(), "Failed to save session", err, map[string]interface{}{"user_id": userID})
		middleware.StandardizeAppError(c, contextutils.NewAppError(
			contextutils.ErrorCodeInternalError,
			contextutils.SeverityError,
			"Failed to create session",
			"",
		))
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user_id": userID})
}

// Status reports whether the cookie session carries a user
func (h *SessionHandler) Status(c *gin.Context) {
	userID, ok := GetUserIDFromSession(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user_id": userID})
}

// Delete clears the cookie session
func (h *SessionHandler) Delete(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		h.logger.Warn(c.Request.Context(), "Failed to clear session", map[string]interface{}{"error": err.Error()})
	}
	c.Status(http.StatusNoContent)
}
