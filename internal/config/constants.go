package config

import "time"

// Timeout constants
const (
	DefaultHTTPTimeout    = 60 * time.Second
	ServerShutdownTimeout = 30 * time.Second
	TestTimeout           = 100 * time.Millisecond

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Session timeouts
	SessionMaxAge = 7 * 24 * time.Hour // 7 days
)

// Server defaults
const (
	DefaultServerPort   = "8080"
	DefaultServiceName  = "satprep-backend"
	DefaultMaxOpenConns = 25
	DefaultMaxIdleConns = 5
	DefaultCatalogTTL   = 10 * time.Minute
)

// Recommendation list bounds
const (
	DefaultRecommendationLimit = 10
	MaxRecommendationLimit     = 50
)

// Circuit breaker defaults
const (
	DefaultBreakerMinRequests  = 20
	DefaultBreakerFailureRatio = 0.5
	DefaultBreakerTimeout      = 30 * time.Second
)

// Session configuration constants
const (
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionSecure   = false // Set to true in production with HTTPS

	SessionName = "satprep-session"
)

// Security configuration constants
const (
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; img-src 'self' data:;"
)
