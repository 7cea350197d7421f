package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"satprep/internal/middleware"
	contextutils "satprep/internal/utils"

	"github.com/gin-gonic/gin"
)

// HandleValidationError handles input validation errors consistently
func HandleValidationError(c *gin.Context, field string, value interface{}, reason string) {
	appErr := contextutils.NewAppError(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		fmt.Sprintf("Invalid %s", field),
		fmt.Sprintf("Value '%v' is invalid: %s", value, reason),
	)

	middleware.StandardizeAppError(c, appErr)
}

// isClientError reports whether err carries a code that is safe to show the caller as-is
func isClientError(err error) bool {
	var appErr *contextutils.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return middleware.HTTPStatusForCode(appErr.Code) < http.StatusInternalServerError
}

// respondWithError is the single translation point from service errors to responses. Client
// errors keep their code and message; anything else is logged and answered with the fixed
// public message for the endpoint.
func (h *LearningPathHandler) respondWithError(c *gin.Context, err error, publicMessage string) {
	if isClientError(err) {
		middleware.HandleAppError(c, err)
		return
	}

	h.logger.Error(c.Request.Context(), publicMessage, err, map[string]interface{}{
		"path":   c.FullPath(),
		"method": c.Request.Method,
	})

	middleware.StandardizeAppError(c, contextutils.NewAppError(
		contextutils.ErrorCodeInternalError,
		contextutils.SeverityError,
		publicMessage,
		"",
	))
}
