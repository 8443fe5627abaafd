package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/researchportal/internal/app/features/authapi"
	errorsfeature "github.com/dalemusser/researchportal/internal/app/features/errors"
	"github.com/dalemusser/researchportal/internal/app/system/activitylog"
	"github.com/dalemusser/researchportal/internal/app/system/auth"
	"github.com/dalemusser/researchportal/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const testCSRFKey = "0123456789abcdef0123456789abcdef"

// csrfTestServer mounts the real auth routes behind csrfGuard, plus an
// echo handler standing in for the protected mutation endpoints. Login and
// register fail validation on an empty body before touching any store.
func csrfTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager(auth.Config{
		Secret: "k7Qp2xVb9LmN4rT8wYz1aC5dF3gH6jS0",
		Expiry: time.Hour,
		Policy: auth.DefaultPolicy(),
	}, logger)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	authHandler := authapi.NewHandler(nil, nil, nil, nil, sm, errorsfeature.NewErrorLogger(logger), logger)

	r := chi.NewRouter()
	r.Use(csrfGuard([]byte(testCSRFKey), false, "", errorsfeature.NewHandler().CSRFFailure(logger)))
	r.Mount("/api/auth", authapi.Routes(authHandler))
	echo := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	r.Get("/api/projects", echo)
	r.Post("/api/faculty/projects", echo)
	return r
}

func TestCSRFGuard_AuthEndpointsExempt(t *testing.T) {
	h := csrfTestServer(t)

	for _, path := range []string{"/api/auth/login", "/api/auth/register", "/api/auth/logout"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := testutil.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusForbidden {
			t.Errorf("POST %s rejected by csrf: %s", path, rec.Body.String())
		}
	}
}

func TestCSRFGuard_TokenEndpointIssuesToken(t *testing.T) {
	h := csrfTestServer(t)
	pair := testutil.FetchCSRF(t, h)

	var named bool
	for _, c := range pair.Cookies {
		if c.Name == "researchportal_csrf" {
			named = true
		}
	}
	if !named {
		t.Errorf("cookies = %v, want researchportal_csrf", pair.Cookies)
	}
}

func TestCSRFGuard_ProtectsMutations(t *testing.T) {
	h := csrfTestServer(t)

	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/faculty/projects", nil))
	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertCode(t, "CSRF_FAILED")

	pair := testutil.FetchCSRF(t, h)
	rec = testutil.NewRecorder()
	h.ServeHTTP(rec, pair.Apply(httptest.NewRequest(http.MethodPost, "/api/faculty/projects", nil)))
	rec.AssertStatus(t, http.StatusOK)

	// A token without its cookie is refused.
	req := httptest.NewRequest(http.MethodPost, "/api/faculty/projects", nil)
	req.Header.Set(CSRFHeader, pair.Token)
	rec = testutil.NewRecorder()
	h.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestCSRFGuard_SafeMethodsPass(t *testing.T) {
	h := csrfTestServer(t)
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))
	rec.AssertStatus(t, http.StatusOK)
}

func TestCSRFExempt(t *testing.T) {
	tests := []struct {
		method, path string
		want         bool
	}{
		{http.MethodPost, "/api/auth/login", true},
		{http.MethodPost, "/api/auth/register", true},
		{http.MethodPost, "/api/auth/logout", true},
		{http.MethodGet, "/api/auth/csrf", false},
		{http.MethodHead, "/api/auth/csrf", false},
		{http.MethodPost, "/api/faculty/projects", false},
		{http.MethodPost, "/api/authx", false},
	}
	for _, tt := range tests {
		if got := csrfExempt(httptest.NewRequest(tt.method, tt.path, nil)); got != tt.want {
			t.Errorf("csrfExempt(%s %s) = %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}
}

func validAppConfig() AppConfig {
	return AppConfig{
		MongoURI:          "mongodb://localhost:27017",
		MongoDatabase:     "researchportal",
		TokenSecret:       "k7Qp2xVb9LmN4rT8wYz1aC5dF3gH6jS0",
		TokenExpiry:       24 * time.Hour,
		CookieSameSite:    "lax",
		CSRFEnabled:       true,
		CSRFKey:           testCSRFKey,
		ActivityLogMirror: activitylog.MirrorLog,
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid dev", "dev", func(*AppConfig) {}, false},
		{"valid prod", "prod", func(*AppConfig) {}, false},
		{"empty mongo uri", "dev", func(c *AppConfig) { c.MongoURI = "" }, true},
		{"placeholder secret dev", "dev", func(c *AppConfig) { c.TokenSecret = "dev-only-change-me-please-0123456789ABCDEF" }, false},
		{"placeholder secret prod", "prod", func(c *AppConfig) { c.TokenSecret = "dev-only-change-me-please-0123456789ABCDEF" }, true},
		{"short secret prod", "prod", func(c *AppConfig) { c.TokenSecret = "tooshort" }, true},
		{"empty secret", "dev", func(c *AppConfig) { c.TokenSecret = "" }, true},
		{"zero expiry", "dev", func(c *AppConfig) { c.TokenExpiry = 0 }, true},
		{"bad samesite", "dev", func(c *AppConfig) { c.CookieSameSite = "sometimes" }, true},
		{"samesite none in dev", "dev", func(c *AppConfig) { c.CookieSameSite = "none" }, true},
		{"samesite none in prod", "prod", func(c *AppConfig) { c.CookieSameSite = "none" }, false},
		{"short csrf key prod", "prod", func(c *AppConfig) { c.CSRFKey = "short" }, true},
		{"short csrf key disabled", "prod", func(c *AppConfig) { c.CSRFEnabled = false; c.CSRFKey = "" }, false},
		{"bad mirror", "dev", func(c *AppConfig) { c.ActivityLogMirror = "db" }, true},
		{"rate limit zero attempts", "dev", func(c *AppConfig) { c.RateLimitEnabled = true; c.RateLimitLoginAttempts = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAppConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
