// Package apierr defines the error taxonomy shared by the auth flow, the
// session gate and the portal handlers, and maps it onto HTTP statuses.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/researchportal/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

// Code is a stable machine-readable error identifier.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeDuplicateEmail     Code = "DUPLICATE_EMAIL"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeInternal           Code = "INTERNAL"
)

// InvalidCredentialsMessage is shared by the unknown-email and
// wrong-password outcomes.
const InvalidCredentialsMessage = "Invalid email or password"

// Status returns the HTTP status for a code.
func (c Code) Status() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeInvalidCredentials, CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeDuplicateEmail, CodeConflict:
		return http.StatusConflict
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Error is a classified failure. Message is safe to show callers; Err is
// the underlying cause and is only logged.
type Error struct {
	Code    Code
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports a missing or malformed field.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Field: field, Message: message}
}

// InvalidCredentials reports a failed login without saying why.
func InvalidCredentials() *Error {
	return &Error{Code: CodeInvalidCredentials, Message: InvalidCredentialsMessage}
}

// DuplicateEmail reports a registration conflict.
func DuplicateEmail() *Error {
	return &Error{Code: CodeDuplicateEmail, Field: "email", Message: "An account with this email already exists"}
}

// Unauthorized reports a missing, invalid or expired session.
func Unauthorized() *Error {
	return &Error{Code: CodeUnauthorized, Message: "Authentication required"}
}

// Forbidden reports a valid session without the required role.
func Forbidden() *Error {
	return &Error{Code: CodeForbidden, Message: "You do not have access to this resource"}
}

// RateLimited reports a login lockout.
func RateLimited(until *time.Time) *Error {
	msg := "Too many failed login attempts. Please try again later."
	if until != nil {
		if mins := int(time.Until(*until).Minutes()) + 1; mins > 0 {
			msg = fmt.Sprintf("Too many failed login attempts. Please try again in %d minute(s).", mins)
		}
	}
	return &Error{Code: CodeRateLimited, Message: msg}
}

// NotFound reports a missing resource.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

// Conflict reports a state conflict other than duplicate email.
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// Internal wraps an unexpected store or codec failure.
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "An internal error occurred", Err: err}
}

// From classifies err. Anything not already an *Error is Internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Write classifies err and writes the failure envelope. Internal causes are
// logged with the request path and never sent to the caller.
func Write(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	e := From(err)
	if e.Code == CodeInternal && logger != nil {
		logger.Error("request failed",
			zap.Error(e.Err),
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
		)
	}
	jsonutil.JSON(w, e.Code.Status(), jsonutil.Envelope{
		Success: false,
		Message: e.Message,
		Code:    string(e.Code),
		Field:   e.Field,
	})
}
