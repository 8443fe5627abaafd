package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/researchportal/internal/domain/models"
	"go.uber.org/zap"
)

// issueCookie returns a session cookie for a fresh user with role.
func issueCookie(t *testing.T, sm *SessionManager, role string) (*http.Cookie, models.User) {
	t.Helper()
	u := testUser(role)
	rec := httptest.NewRecorder()
	if _, err := sm.Issue(rec, u); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return rec.Result().Cookies()[0], u
}

// captureHandler records whether it ran and what identity it saw.
type captureHandler struct {
	called bool
	user   *SessionUser
}

func (h *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.user, _ = CurrentUser(r)
	w.WriteHeader(http.StatusOK)
}

func serveGate(sm *SessionManager, req *http.Request) (*httptest.ResponseRecorder, *captureHandler) {
	next := &captureHandler{}
	rec := httptest.NewRecorder()
	sm.Gate(next).ServeHTTP(rec, req)
	return rec, next
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return body
}

func clearedCookie(rec *httptest.ResponseRecorder, name string) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestGate_PublicAndUnprotectedPassThrough(t *testing.T) {
	sm := newTestManager(t)

	for _, path := range []string{"/", "/login", "/api/auth/login", "/health", "/about", "/api/projects"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "garbage"})
			rec, next := serveGate(sm, req)

			if !next.called {
				t.Fatal("next handler not called")
			}
			if next.user != nil {
				t.Error("pass-through should not attach identity")
			}
			if clearedCookie(rec, sm.CookieName()) {
				t.Error("pass-through should not touch the cookie")
			}
		})
	}
}

func TestGate_ProtectedWithoutCookie(t *testing.T) {
	sm := newTestManager(t)

	t.Run("api gets 401 json", func(t *testing.T) {
		rec, next := serveGate(sm, httptest.NewRequest(http.MethodGet, "/api/faculty/dashboard", nil))
		if next.called {
			t.Fatal("next handler should not run")
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		body := decodeEnvelope(t, rec)
		if body["success"] != false || body["code"] != "UNAUTHORIZED" {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("page redirects to login with redirect param", func(t *testing.T) {
		rec, next := serveGate(sm, httptest.NewRequest(http.MethodGet, "/student/dashboard?tab=apps", nil))
		if next.called {
			t.Fatal("next handler should not run")
		}
		if rec.Code != http.StatusSeeOther {
			t.Errorf("status = %d, want 303", rec.Code)
		}
		want := "/login?redirect=" + "%2Fstudent%2Fdashboard%3Ftab%3Dapps"
		if got := rec.Header().Get("Location"); got != want {
			t.Errorf("Location = %q, want %q", got, want)
		}
	})
}

func TestGate_ValidTokenOwnRole(t *testing.T) {
	sm := newTestManager(t)
	cookie, u := issueCookie(t, sm, models.RoleFaculty)

	for _, path := range []string{"/api/faculty/dashboard", "/faculty/dashboard", "/dashboard", "/api/me"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.AddCookie(cookie)
			rec, next := serveGate(sm, req)

			if rec.Code != http.StatusOK || !next.called {
				t.Fatalf("status = %d, called = %v; want 200 and handler called", rec.Code, next.called)
			}
			if next.user == nil {
				t.Fatal("identity not propagated")
			}
			if next.user.ID != u.ID.Hex() || next.user.Role != models.RoleFaculty || next.user.Email != u.Email {
				t.Errorf("identity = %+v", next.user)
			}
			if next.user.UserID() != u.ID {
				t.Errorf("UserID() = %v, want %v", next.user.UserID(), u.ID)
			}
		})
	}
}

func TestGate_WrongRole(t *testing.T) {
	sm := newTestManager(t)
	cookie, _ := issueCookie(t, sm, models.RoleStudent)

	t.Run("api gets 403 json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/faculty/dashboard", nil)
		req.AddCookie(cookie)
		rec, next := serveGate(sm, req)

		if next.called {
			t.Fatal("next handler should not run")
		}
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
		if body := decodeEnvelope(t, rec); body["code"] != "FORBIDDEN" {
			t.Errorf("code = %v, want FORBIDDEN", body["code"])
		}
		if clearedCookie(rec, sm.CookieName()) {
			t.Error("a valid session must not be cleared on 403")
		}
	})

	t.Run("page redirects to own dashboard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/faculty/dashboard", nil)
		req.AddCookie(cookie)
		rec, _ := serveGate(sm, req)

		if rec.Code != http.StatusSeeOther {
			t.Errorf("status = %d, want 303", rec.Code)
		}
		if got := rec.Header().Get("Location"); got != "/student/dashboard" {
			t.Errorf("Location = %q, want /student/dashboard", got)
		}
	})

	t.Run("dot segments cannot escape the role check", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/student/../faculty/dashboard", nil)
		req.AddCookie(cookie)
		rec, next := serveGate(sm, req)
		if next.called || rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, called = %v; want 403 and not called", rec.Code, next.called)
		}
	})
}

func TestGate_ExpiredTokenActsLikeMissingCookie(t *testing.T) {
	sm := newTestManager(t)
	past := &Codec{secret: []byte(testSecret), expiry: time.Hour, now: func() time.Time {
		return time.Now().Add(-3 * time.Hour)
	}}
	expired, _, err := past.Mint(testUser(models.RoleStudent))
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	for _, tc := range []struct {
		path       string
		wantStatus int
	}{
		{"/api/student/dashboard", http.StatusUnauthorized},
		{"/student/dashboard", http.StatusSeeOther},
	} {
		t.Run(tc.path, func(t *testing.T) {
			missing, _ := serveGate(sm, httptest.NewRequest(http.MethodGet, tc.path, nil))

			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: expired})
			rec, next := serveGate(sm, req)

			if next.called {
				t.Fatal("next handler should not run")
			}
			if rec.Code != tc.wantStatus || rec.Code != missing.Code {
				t.Errorf("status = %d, missing-cookie status = %d, want %d", rec.Code, missing.Code, tc.wantStatus)
			}
			if rec.Header().Get("Location") != missing.Header().Get("Location") {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), missing.Header().Get("Location"))
			}
			if !clearedCookie(rec, sm.CookieName()) {
				t.Error("expired token cookie was not cleared")
			}
		})
	}
}

func TestGate_TamperedTokenClearsCookie(t *testing.T) {
	sm := newTestManager(t)
	cookie, _ := issueCookie(t, sm, models.RoleFaculty)
	cookie.Value = strings.TrimSuffix(cookie.Value, cookie.Value[len(cookie.Value)-2:]) + "AA"

	req := httptest.NewRequest(http.MethodGet, "/api/faculty/dashboard", nil)
	req.AddCookie(cookie)
	rec, next := serveGate(sm, req)

	if next.called || rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, called = %v; want 401 and not called", rec.Code, next.called)
	}
	if !clearedCookie(rec, sm.CookieName()) {
		t.Error("tampered cookie was not cleared")
	}
}

func TestGate_DefaultDeny(t *testing.T) {
	pol := DefaultPolicy()
	pol.DefaultDeny = true
	sm, err := NewSessionManager(Config{Secret: testSecret, Expiry: time.Hour, Policy: pol}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}

	rec, next := serveGate(sm, httptest.NewRequest(http.MethodGet, "/api/unlisted", nil))
	if next.called || rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, called = %v; want 401 under default-deny", rec.Code, next.called)
	}
}

func TestLoginRedirect(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/faculty/projects?page=2", nil)
	if got := LoginRedirect(req); got != "/login?redirect=%2Ffaculty%2Fprojects%3Fpage%3D2" {
		t.Errorf("LoginRedirect() = %q", got)
	}
}
