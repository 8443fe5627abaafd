// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/researchportal/internal/app/system/activitylog"
	"github.com/dalemusser/researchportal/internal/app/system/auth"
	"github.com/dalemusser/researchportal/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "RESEARCHPORTAL"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, token_secret, etc.
//   - Environment variables: RESEARCHPORTAL_MONGO_URI, RESEARCHPORTAL_TOKEN_SECRET, etc.
//   - Command-line flags: --mongo_uri, --token_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "researchportal", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Session token and cookie
	{Name: "token_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session token signing secret (32+ random chars in production)"},
	{Name: "token_expiry", Default: "24h", Desc: "Session token lifetime and cookie max age (e.g., 24h, 1h)"},
	{Name: "cookie_name", Default: auth.DefaultCookieName, Desc: "Session cookie name"},
	{Name: "cookie_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "cookie_samesite", Default: "lax", Desc: "Session cookie SameSite: lax, strict or none"},
	{Name: "default_deny", Default: false, Desc: "Require a session on paths outside the public and protected lists"},

	// CSRF
	{Name: "csrf_enabled", Default: true, Desc: "Enable CSRF protection outside /api/auth"},
	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	// Rate limiting configuration
	{Name: "rate_limit_enabled", Default: false, Desc: "Enable rate limiting for login attempts"},
	{Name: "rate_limit_login_attempts", Default: 5, Desc: "Max failed login attempts before lockout"},
	{Name: "rate_limit_login_window", Default: "15m", Desc: "Time window for counting failed attempts"},
	{Name: "rate_limit_login_lockout", Default: "15m", Desc: "Lockout duration after exceeding limit"},

	{Name: "activity_log_mirror", Default: activitylog.MirrorLog, Desc: "Login activity mirror: 'log' (db+log) or 'off' (db only)"},

	// Listing cache
	{Name: "cache_ttl", Default: "30s", Desc: "Project listing cache TTL"},
	{Name: "redis_addr", Default: "", Desc: "Redis address for the listing cache (blank uses in-process memory)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	{Name: "metrics_enabled", Default: true, Desc: "Expose Prometheus metrics at /metrics"},

	// Database operation budgets
	{Name: "timeout_ping", Default: "2s", Desc: "Health check ping timeout"},
	{Name: "timeout_short", Default: "5s", Desc: "Single read/write timeout"},
	{Name: "timeout_medium", Default: "10s", Desc: "Login, registration and dashboard timeout"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, RESEARCHPORTAL_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		TokenSecret:    appValues.String("token_secret"),
		TokenExpiry:    appValues.Duration("token_expiry", 24*time.Hour),
		CookieName:     appValues.String("cookie_name"),
		CookieDomain:   appValues.String("cookie_domain"),
		CookieSameSite: appValues.String("cookie_samesite"),
		DefaultDeny:    appValues.Bool("default_deny"),

		CSRFEnabled: appValues.Bool("csrf_enabled"),
		CSRFKey:     appValues.String("csrf_key"),

		// Rate limiting
		RateLimitEnabled:       appValues.Bool("rate_limit_enabled"),
		RateLimitLoginAttempts: appValues.Int("rate_limit_login_attempts"),
		RateLimitLoginWindow:   appValues.Duration("rate_limit_login_window", 15*time.Minute),
		RateLimitLoginLockout:  appValues.Duration("rate_limit_login_lockout", 15*time.Minute),

		ActivityLogMirror: appValues.String("activity_log_mirror"),

		// Listing cache
		CacheTTL:      appValues.Duration("cache_ttl", 30*time.Second),
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		MetricsEnabled: appValues.Bool("metrics_enabled"),

		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The token secret is checked again by auth.NewSessionManager; failing here
// stops startup before any backend is dialed.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	secure := coreCfg.Env == "prod"
	if err := auth.ValidateSecret(appCfg.TokenSecret, secure); err != nil {
		logger.Error("invalid token secret", zap.Error(err))
		return err
	}
	if appCfg.TokenExpiry <= 0 {
		return errors.New("token_expiry must be positive")
	}

	sameSite, err := auth.ParseSameSite(appCfg.CookieSameSite)
	if err != nil {
		return err
	}
	if sameSite == http.SameSiteNoneMode && !secure {
		return errors.New("cookie_samesite=none requires env=prod (secure cookies)")
	}

	if appCfg.CSRFEnabled && secure && len(appCfg.CSRFKey) < 32 {
		return errors.New("csrf_key must be at least 32 characters in production")
	}

	switch appCfg.ActivityLogMirror {
	case activitylog.MirrorLog, activitylog.MirrorOff:
	default:
		return fmt.Errorf("invalid activity_log_mirror %q (want %q or %q)",
			appCfg.ActivityLogMirror, activitylog.MirrorLog, activitylog.MirrorOff)
	}

	if appCfg.RateLimitEnabled && appCfg.RateLimitLoginAttempts < 1 {
		return errors.New("rate_limit_login_attempts must be at least 1")
	}

	return nil
}
