// internal/app/features/errors/errors.go
package errors

import (
	"net/http"
	"strings"

	"github.com/dalemusser/researchportal/internal/app/system/apierr"
	"github.com/dalemusser/researchportal/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

// ErrorLogger wraps the zap logger for error logging.
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger creates a new ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{logger: logger}
}

// Logger returns the underlying zap logger.
func (e *ErrorLogger) Logger() *zap.Logger {
	return e.logger
}

// Log logs an error with the given message and error.
func (e *ErrorLogger) Log(r *http.Request, msg string, err error) {
	e.logger.Error(msg,
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	)
}

// LogWithFields logs an error with additional fields.
func (e *ErrorLogger) LogWithFields(r *http.Request, msg string, err error, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	}, fields...)
	e.logger.Error(msg, allFields...)
}

// Write sends err as an API envelope. Internal causes go through Log so
// the caller never sees them.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error) {
	apierr.Write(w, r, e.logger, err)
}

// Handler provides the router's fallback responses.
type Handler struct{}

// NewHandler creates a new error Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if !isAPI(r) {
		http.NotFound(w, r)
		return
	}
	jsonutil.Fail(w, http.StatusNotFound, string(apierr.CodeNotFound), "Resource not found")
}

// MethodNotAllowed answers known routes called with the wrong verb.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if !isAPI(r) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	jsonutil.Fail(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// CSRFFailure is installed as the gorilla/csrf error handler.
func (h *Handler) CSRFFailure(logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if logger != nil {
			logger.Warn("csrf validation failed",
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
				zap.String("ip", r.RemoteAddr))
		}
		jsonutil.Fail(w, http.StatusForbidden, "CSRF_FAILED", "Invalid or missing CSRF token")
	})
}

func isAPI(r *http.Request) bool {
	return r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/")
}
