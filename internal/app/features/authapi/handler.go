// internal/app/features/authapi/handler.go
package authapi

import (
	"net/http"

	errorsfeature "github.com/dalemusser/researchportal/internal/app/features/errors"
	"github.com/dalemusser/researchportal/internal/app/store/ratelimit"
	userstore "github.com/dalemusser/researchportal/internal/app/store/users"
	"github.com/dalemusser/researchportal/internal/app/system/activitylog"
	"github.com/dalemusser/researchportal/internal/app/system/auth"
	"github.com/dalemusser/researchportal/internal/app/system/authutil"
	"github.com/dalemusser/researchportal/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the JSON authentication endpoints.
type Handler struct {
	userStore      *userstore.Store
	recorder       *activitylog.Recorder
	rateLimitStore *ratelimit.Store // nil if rate limiting disabled
	hasher         *authutil.Hasher
	sessionMgr     *auth.SessionManager
	errLog         *errorsfeature.ErrorLogger
	logger         *zap.Logger
}

// NewHandler creates a new auth API Handler.
// rateLimitStore can be nil to disable rate limiting.
func NewHandler(
	userStore *userstore.Store,
	recorder *activitylog.Recorder,
	rateLimitStore *ratelimit.Store,
	hasher *authutil.Hasher,
	sessionMgr *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	if hasher == nil {
		hasher = authutil.NewHasher(0)
	}
	return &Handler{
		userStore:      userStore,
		recorder:       recorder,
		rateLimitStore: rateLimitStore,
		hasher:         hasher,
		sessionMgr:     sessionMgr,
		errLog:         errLog,
		logger:         logger,
	}
}

// Routes returns a chi.Router with the auth endpoints. Mount at /api/auth.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
	r.Get("/csrf", h.handleCSRF)
	return r
}

// accountData is the data member of login, register and me responses.
type accountData struct {
	User    models.User    `json:"user"`
	Profile models.Profile `json:"profile"`
}
