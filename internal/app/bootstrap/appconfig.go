// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging, CORS and body limits; everything specific to the
// research portal lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Session token and cookie
	TokenSecret    string        // HS256 signing secret (32+ random chars in production)
	TokenExpiry    time.Duration // Token lifetime and cookie max-age (default: 24h)
	CookieName     string        // Session cookie name (default: researchportal-session)
	CookieDomain   string        // Cookie domain (blank means current host)
	CookieSameSite string        // lax, strict or none

	// Treat paths outside the public and protected lists as protected.
	DefaultDeny bool

	// CSRF protection for state-changing requests outside /api/auth
	CSRFEnabled bool
	CSRFKey     string // 32 bytes used by gorilla/csrf

	// Rate limiting configuration
	RateLimitEnabled       bool          // Enable rate limiting for login attempts (default: false)
	RateLimitLoginAttempts int           // Max failed login attempts before lockout (default: 5)
	RateLimitLoginWindow   time.Duration // Time window for counting failed attempts (default: 15m)
	RateLimitLoginLockout  time.Duration // Lockout duration after exceeding limit (default: 15m)

	// Login activity mirror: "log" also emits each row through zap, "off" stores only.
	ActivityLogMirror string

	// Project listing cache. Redis is used when RedisAddr is set.
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Expose Prometheus metrics at /metrics.
	MetricsEnabled bool

	// Per-operation database budgets
	TimeoutPing   time.Duration // health and readiness pings
	TimeoutShort  time.Duration // single reads and writes
	TimeoutMedium time.Duration // login, registration, dashboards
}
