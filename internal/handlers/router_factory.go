package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"satprep/internal/config"
	"satprep/internal/middleware"
	"satprep/internal/observability"
	"satprep/internal/serviceinterfaces"
	"satprep/internal/version"
)

// HealthChecker reports whether a dependency is reachable. *sql.DB satisfies it.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// NewRouter builds the gin engine with the middleware chain and every route
func NewRouter(
	cfg *config.Config,
	learningPathService serviceinterfaces.LearningPathService,
	health HealthChecker,
	logger *observability.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = false

	router.Use(middleware.RequestID())
	router.Use(observability.GinMiddleware(cfg.OpenTelemetry.ServiceName))
	router.Use(accessLogMiddleware(logger))
	router.Use(observability.SpanErrorMiddleware())
	router.Use(middleware.ErrorRecoveryMiddleware(logger, middleware.ErrorRecoveryConfigFrom(cfg.CircuitBreaker)))
	router.Use(observability.PrometheusMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
		sessionOpts.Secure = true
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	router.GET("/health", healthHandler(health, logger))
	router.GET("/metrics", observability.PrometheusHandler())

	learningPathHandler := NewLearningPathHandler(learningPathService, cfg, logger)
	sessionHandler := NewSessionHandler(logger)
	requireAuth := middleware.RequireAuth(cfg.Auth)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Get(cfg.OpenTelemetry.ServiceName))
		})

		auth := v1.Group("/auth")
		{
			auth.POST("/session", requireAuth, sessionHandler.Create)
			auth.GET("/session", sessionHandler.Status)
			auth.DELETE("/session", sessionHandler.Delete)
		}
	}

	learningPath := router.Group("/learning-path", requireAuth)
	{
		learningPath.GET("/recommendations", learningPathHandler.GetRecommendations)
		learningPath.GET("/overview", learningPathHandler.GetOverview)
		learningPath.GET("/next", learningPathHandler.GetNext)
		learningPath.POST("/recommendations/:id/complete", learningPathHandler.CompleteRecommendation)
		learningPath.GET("/performance", learningPathHandler.GetPerformance)
		learningPath.POST("/refresh", learningPathHandler.Refresh)
	}

	routeListingHandler := NewRouteListingHandler(cfg.OpenTelemetry.ServiceName)
	router.GET("/", routeListingHandler.GetRouteListing)
	routeListingHandler.CollectRoutes(router)

	return router
}

// healthHandler pings the database and answers 503 when it is unreachable
func healthHandler(health HealthChecker, logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		if err := health.PingContext(ctx); err != nil {
			logger.Warn(c.Request.Context(), "Health check failed", map[string]interface{}{"error": err.Error()})
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
	}
}

// accessLogMiddleware writes one structured line per request, leveled by response status
func accessLogMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.route":       c.FullPath(),
			"http.status_code": statusCode,
			"http.latency_ms":  time.Since(start).Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}
		if statusCode >= 400 {
			fields["http.response_size"] = c.Writer.Size()
			if statusCode >= 500 {
				fields["http.error_type"] = "server_error"
			} else {
				fields["http.error_type"] = "client_error"
			}
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	}
}
