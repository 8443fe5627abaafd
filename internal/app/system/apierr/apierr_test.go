package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/researchportal/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

func TestCodeStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidCredentials, http.StatusUnauthorized},
		{CodeDuplicateEmail, http.StatusConflict},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.Status(); got != tt.want {
				t.Errorf("%s.Status() = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	v := Validation("email", "Email is required.")
	wrapped := fmt.Errorf("login: %w", v)
	if got := From(wrapped); got != v {
		t.Errorf("From(wrapped) = %v, want the original *Error", got)
	}

	cause := errors.New("socket closed")
	got := From(cause)
	if got.Code != CodeInternal {
		t.Errorf("From(plain).Code = %s, want INTERNAL", got.Code)
	}
	if !errors.Is(got, cause) {
		t.Error("From(plain) should wrap the cause")
	}
}

func TestRateLimitedMessage(t *testing.T) {
	until := time.Now().Add(5 * time.Minute)
	if msg := RateLimited(&until).Message; !strings.Contains(msg, "minute") {
		t.Errorf("RateLimited message = %q, want minutes hint", msg)
	}
	if msg := RateLimited(nil).Message; msg == "" {
		t.Error("RateLimited(nil) message is empty")
	}
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"validation", Validation("password", "Password is required."), 400, "VALIDATION_ERROR", "Password is required."},
		{"invalid credentials", InvalidCredentials(), 401, "INVALID_CREDENTIALS", InvalidCredentialsMessage},
		{"duplicate email", DuplicateEmail(), 409, "DUPLICATE_EMAIL", "An account with this email already exists"},
		{"internal hides cause", errors.New("E11000 something secret"), 500, "INTERNAL", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			Write(rec, req, zap.NewNop(), tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var env jsonutil.Envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if env.Success {
				t.Error("success = true, want false")
			}
			if env.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", env.Code, tt.wantCode)
			}
			if env.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", env.Message, tt.wantMsg)
			}
			if strings.Contains(rec.Body.String(), "secret") {
				t.Error("response leaked internal error detail")
			}
		})
	}
}
