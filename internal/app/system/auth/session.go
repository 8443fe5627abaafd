package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/researchportal/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultCookieName is used when Config.CookieName is empty.
const DefaultCookieName = "researchportal-session"

// Config configures a SessionManager.
type Config struct {
	Secret       string        // HS256 signing secret
	Expiry       time.Duration // token lifetime and cookie max-age
	CookieName   string
	CookieDomain string
	SameSite     http.SameSite
	Secure       bool // Secure cookies; also enables strict secret checks
	Policy       Policy
}

// SessionConfigError is returned when session configuration is invalid.
type SessionConfigError struct {
	Message string
}

func (e *SessionConfigError) Error() string {
	return e.Message
}

// SessionManager issues and clears session cookies and gates requests on them.
type SessionManager struct {
	codec    *Codec
	policy   Policy
	logger   *zap.Logger
	name     string
	domain   string
	sameSite http.SameSite
	secure   bool
}

// NewSessionManager validates cfg and builds a SessionManager.
//
// With cfg.Secure set (production), a secret shorter than 32 characters or
// one that looks like a placeholder is rejected. Otherwise it is allowed
// with a warning.
func NewSessionManager(cfg Config, logger *zap.Logger) (*SessionManager, error) {
	if err := ValidateSecret(cfg.Secret, cfg.Secure); err != nil {
		return nil, err
	}
	if isWeakSecret(cfg.Secret) {
		logger.Warn("token secret is weak; 32+ random chars required in production",
			zap.Int("length", len(cfg.Secret)),
			zap.Bool("is_default", isDefaultKey(cfg.Secret)))
	}

	if cfg.SameSite == http.SameSiteNoneMode && !cfg.Secure {
		return nil, &SessionConfigError{Message: "SameSite=None requires secure cookies"}
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}

	codec, err := NewCodec(cfg.Secret, cfg.Expiry)
	if err != nil {
		return nil, err
	}

	name := cfg.CookieName
	if name == "" {
		name = DefaultCookieName
	}

	logger.Info("session manager initialized",
		zap.Bool("secure", cfg.Secure),
		zap.String("cookie", name),
		zap.String("domain", cfg.CookieDomain),
		zap.Duration("expiry", cfg.Expiry),
		zap.Bool("default_deny", cfg.Policy.DefaultDeny))

	return &SessionManager{
		codec:    codec,
		policy:   cfg.Policy,
		logger:   logger,
		name:     name,
		domain:   cfg.CookieDomain,
		sameSite: cfg.SameSite,
		secure:   cfg.Secure,
	}, nil
}

// CookieName returns the configured session cookie name.
func (sm *SessionManager) CookieName() string {
	return sm.name
}

// Codec returns the token codec.
func (sm *SessionManager) Codec() *Codec {
	return sm.codec
}

// Policy returns the path table the gate enforces.
func (sm *SessionManager) Policy() Policy {
	return sm.policy
}

// Issue mints a token for u and sets it as the session cookie.
func (sm *SessionManager) Issue(w http.ResponseWriter, u models.User) (*Claims, error) {
	token, claims, err := sm.codec.Mint(u)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.name,
		Value:    token,
		Path:     "/",
		Domain:   sm.domain,
		MaxAge:   int(sm.codec.Expiry().Seconds()),
		Expires:  claims.ExpiresAt.Time,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: sm.sameSite,
	})
	return claims, nil
}

// Clear expires the session cookie. It is safe to call without a session.
func (sm *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.name,
		Value:    "",
		Path:     "/",
		Domain:   sm.domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: sm.sameSite,
	})
}

func (sm *SessionManager) tokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(sm.name)
	if err != nil {
		return ""
	}
	return c.Value
}

// ParseSameSite maps a config value onto http.SameSite.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("invalid SameSite value %q (want lax, strict or none)", s)
}

// ValidateSecret rejects an empty secret, and in production (secure) one
// shorter than 32 characters or that looks like a placeholder.
func ValidateSecret(secret string, secure bool) error {
	if secret == "" {
		return &SessionConfigError{Message: "token secret is empty; provide ≥32 random chars"}
	}
	if secure && isWeakSecret(secret) {
		return &SessionConfigError{
			Message: "token secret is too weak for production; provide ≥32 random chars (not the default dev key)",
		}
	}
	return nil
}

func isWeakSecret(secret string) bool {
	return len(secret) < 32 || isDefaultKey(secret)
}

// isDefaultKey checks if the secret appears to be a default/placeholder value.
func isDefaultKey(key string) bool {
	lower := strings.ToLower(key)
	patterns := []string{
		"dev-only",
		"change-me",
		"changeme",
		"placeholder",
		"default",
		"example",
		"insecure",
		"secret123",
		"your-secret",
	}
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
