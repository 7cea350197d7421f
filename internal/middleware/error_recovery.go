package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"satprep/internal/config"
	"satprep/internal/observability"
	contextutils "satprep/internal/utils"

	"github.com/gin-gonic/gin"
	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrorRecoveryConfig configures error recovery behavior
type ErrorRecoveryConfig struct {
	// EnableCircuitBreaker enables shedding load with 503 once too many requests fail
	EnableCircuitBreaker bool
	// MinRequests is the number of requests in the current interval before the breaker may trip
	MinRequests uint32
	// FailureRatio is the share of 5xx responses that trips the breaker
	FailureRatio float64
	// Timeout is how long the breaker stays open before letting a probe through
	Timeout time.Duration
	// Interval resets the closed-state counts; zero keeps them until the state changes
	Interval time.Duration
}

// DefaultErrorRecoveryConfig returns a default error recovery configuration
func DefaultErrorRecoveryConfig() *ErrorRecoveryConfig {
	return &ErrorRecoveryConfig{
		EnableCircuitBreaker: false,
		MinRequests:          config.DefaultBreakerMinRequests,
		FailureRatio:         config.DefaultBreakerFailureRatio,
		Timeout:              config.DefaultBreakerTimeout,
		Interval:             time.Minute,
	}
}

// ErrorRecoveryConfigFrom builds the middleware configuration from the circuit breaker section
func ErrorRecoveryConfigFrom(cfg config.CircuitBreakerConfig) *ErrorRecoveryConfig {
	rc := DefaultErrorRecoveryConfig()
	rc.EnableCircuitBreaker = cfg.Enabled
	if cfg.MinRequests > 0 {
		rc.MinRequests = cfg.MinRequests
	}
	if cfg.FailureRatio > 0 {
		rc.FailureRatio = cfg.FailureRatio
	}
	if cfg.Timeout > 0 {
		rc.Timeout = cfg.Timeout
	}
	return rc
}

// errServerFailure marks a 5xx response as a failure for the breaker
var errServerFailure = errors.New("server error response")

func newCircuitBreaker(cfg *ErrorRecoveryConfig, logger *observability.Logger) *gobreaker.CircuitBreaker[struct{}] {
	observability.CircuitBreakerState.Set(float64(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:     "http",
		Interval: cfg.Interval,
		Timeout:  cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.CircuitBreakerState.Set(float64(to))
			if logger != nil {
				logger.Warn(context.Background(), "Circuit breaker state changed", map[string]interface{}{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
			}
		},
	})
}

// ErrorRecoveryMiddleware converts panics into 500 responses and, when enabled, trips a circuit
// breaker on a high ratio of 5xx responses so further requests get 503 until it recovers.
func ErrorRecoveryMiddleware(logger *observability.Logger, cfg *ErrorRecoveryConfig) gin.HandlerFunc {
	if cfg == nil {
		cfg = DefaultErrorRecoveryConfig()
	}

	var cb *gobreaker.CircuitBreaker[struct{}]
	if cfg.EnableCircuitBreaker {
		cb = newCircuitBreaker(cfg, logger)
	}

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				stackTrace := string(debug.Stack())
				if logger != nil {
					logger.Error(c.Request.Context(), "Panic recovered", fmt.Errorf("panic: %v", rec), map[string]interface{}{
						"path":        c.Request.URL.Path,
						"method":      c.Request.Method,
						"stack_trace": stackTrace,
					})
				}

				appErr := contextutils.NewAppError(
					contextutils.ErrorCodeInternalError,
					contextutils.SeverityFatal,
					"Internal server error",
					"A panic occurred while processing the request",
				)
				StandardizeAppError(c, appErr)
				c.Abort()
			}
		}()

		if cb == nil {
			c.Next()
			return
		}

		_, err := cb.Execute(func() (struct{}, error) {
			c.Next()
			if c.Writer.Status() >= http.StatusInternalServerError {
				return struct{}{}, errServerFailure
			}
			return struct{}{}, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			ServiceUnavailable(c, "Service temporarily unavailable due to high error rate")
			c.Abort()
		}
	}
}

// HandleAppError handles any AppError and sends appropriate HTTP response
func HandleAppError(c *gin.Context, err error) {
	var appErr *contextutils.AppError
	if errors.As(err, &appErr) {
		StandardizeAppError(c, appErr)
		return
	}
	StandardizeAppError(c, contextutils.NewAppError(
		contextutils.ErrorCodeInternalError,
		contextutils.SeverityError,
		"Internal server error",
		"",
	))
}

// StandardizeAppError sends a structured error response using AppError
func StandardizeAppError(c *gin.Context, err *contextutils.AppError) {
	_ = c.Error(err)
	c.JSON(HTTPStatusForCode(err.Code), err.ToJSON())
}

// ServiceUnavailable sends a 503 Service Unavailable error with a standardized payload
func ServiceUnavailable(c *gin.Context, msg string) {
	appErr := contextutils.NewAppError(
		contextutils.ErrorCodeServiceUnavailable,
		contextutils.SeverityError,
		msg,
		"",
	)
	StandardizeAppError(c, appErr)
}

// HTTPStatusForCode maps AppError codes to HTTP status codes
func HTTPStatusForCode(code contextutils.ErrorCode) int {
	switch code {
	// 4xx Client Errors
	case contextutils.ErrorCodeInvalidInput, contextutils.ErrorCodeValidationFailed:
		return http.StatusBadRequest

	case contextutils.ErrorCodeUnauthorized:
		return http.StatusUnauthorized

	case contextutils.ErrorCodeForbidden:
		return http.StatusForbidden

	case contextutils.ErrorCodeRecordNotFound, contextutils.ErrorCodeRecommendationNotFound:
		return http.StatusNotFound

	// 5xx Server Errors
	case contextutils.ErrorCodeServiceUnavailable, contextutils.ErrorCodeDatabaseConnection:
		return http.StatusServiceUnavailable

	case contextutils.ErrorCodeTimeout:
		return http.StatusRequestTimeout

	default:
		return http.StatusInternalServerError
	}
}
