package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/researchportal/internal/app/system/apierr"
	"github.com/dalemusser/researchportal/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewHandler(t *testing.T) {
	h := NewHandler()
	if h == nil {
		t.Fatal("NewHandler() returned nil")
	}
}

func TestNotFound(t *testing.T) {
	h := NewHandler()

	t.Run("api path gets envelope", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
		rec.AssertStatus(t, http.StatusNotFound)
		rec.AssertCode(t, "NOT_FOUND")
	})

	t.Run("page path gets plain 404", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		rec.AssertStatus(t, http.StatusNotFound)
		if ct := rec.Header().Get("Content-Type"); ct == "application/json" {
			t.Errorf("Content-Type = %q, want non-JSON", ct)
		}
	})
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewHandler()
	rec := testutil.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/auth/login", nil))
	rec.AssertStatus(t, http.StatusMethodNotAllowed)
	rec.AssertCode(t, "METHOD_NOT_ALLOWED")
}

func TestCSRFFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := NewHandler()

	rec := testutil.NewRecorder()
	h.CSRFFailure(zap.New(core)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/student/applications", nil))

	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertCode(t, "CSRF_FAILED")
	if logs.Len() != 1 {
		t.Errorf("logged %d entries, want 1", logs.Len())
	}
}

func TestErrorLogger_Write(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	el := NewErrorLogger(zap.New(core))

	t.Run("internal cause is logged not leaked", func(t *testing.T) {
		rec := testutil.NewRecorder()
		el.Write(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil), errors.New("socket closed"))
		rec.AssertStatus(t, http.StatusInternalServerError)
		rec.AssertCode(t, "INTERNAL")
		if env := rec.Envelope(t); env.Message == "socket closed" {
			t.Error("internal cause leaked into response")
		}
		if logs.Len() != 1 {
			t.Errorf("logged %d entries, want 1", logs.Len())
		}
	})

	t.Run("classified error is not logged", func(t *testing.T) {
		before := logs.Len()
		rec := testutil.NewRecorder()
		el.Write(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil), apierr.Forbidden())
		rec.AssertStatus(t, http.StatusForbidden)
		if logs.Len() != before {
			t.Errorf("logged %d new entries, want 0", logs.Len()-before)
		}
	})
}

func TestNewErrorLogger_NilLogger(t *testing.T) {
	el := NewErrorLogger(nil)
	el.Log(httptest.NewRequest(http.MethodGet, "/", nil), "msg", errors.New("x"))
	if el.Logger() == nil {
		t.Error("Logger() = nil, want nop logger")
	}
}
