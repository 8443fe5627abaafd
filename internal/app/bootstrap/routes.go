// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"
	"time"

	authapifeature "github.com/dalemusser/researchportal/internal/app/features/authapi"
	dashboardfeature "github.com/dalemusser/researchportal/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/researchportal/internal/app/features/errors"
	healthfeature "github.com/dalemusser/researchportal/internal/app/features/health"
	projectsfeature "github.com/dalemusser/researchportal/internal/app/features/projects"
	statusfeature "github.com/dalemusser/researchportal/internal/app/features/status"
	"github.com/dalemusser/researchportal/internal/app/store/loginactivity"
	"github.com/dalemusser/researchportal/internal/app/store/ratelimit"
	userstore "github.com/dalemusser/researchportal/internal/app/store/users"
	"github.com/dalemusser/researchportal/internal/app/system/activitylog"
	"github.com/dalemusser/researchportal/internal/app/system/auth"
	"github.com/dalemusser/researchportal/internal/app/system/authutil"
	"github.com/dalemusser/researchportal/internal/app/system/respcache"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// csrfExemptPrefix covers login, register and logout. Those endpoints
// establish or drop the session themselves and are called before a client
// has a CSRF token.
const csrfExemptPrefix = "/api/auth/"

// CSRFHeader is the request header clients send the token in.
const CSRFHeader = "X-CSRF-Token"

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// Middleware order: timeout, request id, real ip, CORS, security headers,
// session gate, CSRF. The gate runs before CSRF so an anonymous mutation on
// a protected path gets 401 rather than 403.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"

	sameSite, err := auth.ParseSameSite(appCfg.CookieSameSite)
	if err != nil {
		return nil, err
	}
	policy := auth.DefaultPolicy()
	policy.DefaultDeny = appCfg.DefaultDeny

	sessionMgr, err := auth.NewSessionManager(auth.Config{
		Secret:       appCfg.TokenSecret,
		Expiry:       appCfg.TokenExpiry,
		CookieName:   appCfg.CookieName,
		CookieDomain: appCfg.CookieDomain,
		SameSite:     sameSite,
		Secure:       secure,
		Policy:       policy,
	}, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Create error logger and error pages for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	// Stores and the login activity recorder.
	users := userstore.New(deps.MongoDatabase).WithLogger(logger)
	recorder := activitylog.New(loginactivity.New(deps.MongoDatabase), logger, activitylog.Config{
		Mirror: appCfg.ActivityLogMirror,
	})

	// Rate limiting for login attempts (nil if disabled)
	var rateLimitStore *ratelimit.Store
	if appCfg.RateLimitEnabled {
		rateLimitStore = ratelimit.New(
			deps.MongoDatabase,
			appCfg.RateLimitLoginAttempts,
			appCfg.RateLimitLoginWindow,
			appCfg.RateLimitLoginLockout,
		)
	}

	// Listing cache: Redis when configured, otherwise in-process.
	var listingCache respcache.Cache
	if deps.Redis != nil {
		listingCache = respcache.NewRedis(deps.Redis, appCfg.CacheTTL, logger)
	} else {
		listingCache = respcache.NewMemory(appCfg.CacheTTL)
	}
	logger.Info("listing cache ready",
		zap.String("backend", listingCache.Backend()),
		zap.Duration("ttl", appCfg.CacheTTL))

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session gate: classifies the path, verifies the cookie and enforces roles.
	r.Use(sessionMgr.Gate)

	if appCfg.CSRFEnabled {
		r.Use(csrfGuard([]byte(appCfg.CSRFKey), secure, appCfg.CookieDomain, errorsHandler.CSRFFailure(logger)))
	} else {
		logger.Warn("CSRF protection disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	// Authentication API (public, CSRF-exempt)
	authHandler := authapifeature.NewHandler(
		users,
		recorder,
		rateLimitStore,
		authutil.NewHasher(0),
		sessionMgr,
		errLog,
		logger,
	)
	r.Mount("/api/auth", authapifeature.Routes(authHandler))
	r.Get("/api/me", authHandler.Me)

	// Projects listing (public) plus role-scoped mutations
	projectsHandler := projectsfeature.NewHandler(deps.MongoDatabase, listingCache, errLog, logger)
	r.Mount("/api/projects", projectsfeature.Routes(projectsHandler))

	// Role-based dashboards
	dashboardHandler := dashboardfeature.NewHandler(deps.MongoDatabase, errLog, logger)
	r.Route("/api/faculty", func(sr chi.Router) {
		sr.Get("/dashboard", dashboardHandler.Faculty)
		projectsHandler.MountFaculty(sr)
	})
	r.Route("/api/student", func(sr chi.Router) {
		sr.Get("/dashboard", dashboardHandler.Student)
		projectsHandler.MountStudent(sr)
	})
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler))

	// Database status report
	statusHandler := statusfeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/api/admin", statusfeature.Routes(statusHandler))

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	if appCfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// 404 and 405 catch-alls for unmatched routes
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	return r, nil
}

// csrfGuard wraps gorilla/csrf. Mutations under /api/auth/ skip the token
// check. Safe methods there go through the middleware like any other path,
// so GET /api/auth/csrf receives the cookie and a token. Outside
// production, requests are marked as plaintext HTTP and localhost origins
// are trusted.
func csrfGuard(key []byte, secure bool, domain string, onFailure http.Handler) func(http.Handler) http.Handler {
	opts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("researchportal_csrf"),
		csrf.RequestHeader(CSRFHeader),
		csrf.FieldName("csrf_token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(onFailure),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	if !secure {
		opts = append(opts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if domain != "" {
		opts = append(opts, csrf.Domain(domain))
	}
	protect := csrf.Protect(key, opts...)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !secure {
				req = csrf.PlaintextHTTPRequest(req)
			}
			if csrfExempt(req) {
				req = csrf.UnsafeSkipCheck(req)
			}
			protected.ServeHTTP(w, req)
		})
	}
}

// csrfExempt reports whether req is a state-changing auth request.
// The skip path in gorilla/csrf issues no token, so safe methods never
// take it.
func csrfExempt(req *http.Request) bool {
	if !strings.HasPrefix(req.URL.Path, csrfExemptPrefix) {
		return false
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}
