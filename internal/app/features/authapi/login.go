// internal/app/features/authapi/login.go
package authapi

import (
	"errors"
	"net/http"

	userstore "github.com/dalemusser/researchportal/internal/app/store/users"
	"github.com/dalemusser/researchportal/internal/app/system/activitylog"
	"github.com/dalemusser/researchportal/internal/app/system/apierr"
	"github.com/dalemusser/researchportal/internal/app/system/inputval"
	"github.com/dalemusser/researchportal/internal/app/system/jsonutil"
	"github.com/dalemusser/researchportal/internal/app/system/metrics"
	"github.com/dalemusser/researchportal/internal/app/system/normalize"
	"github.com/dalemusser/researchportal/internal/app/system/timeouts"
	"github.com/dalemusser/researchportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"userAgent"`
	IPAddress string `json:"ipAddress"`
}

// handleLogin authenticates by email and password.
//
// Every request that gets past input validation writes exactly one
// login_activity row, whatever the outcome. The cookie is set only on
// success.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginValidation).Inc()
		apierr.Write(w, r, h.logger, apierr.Validation("", "Request body must be a JSON object"))
		return
	}
	if fe := inputval.Missing(
		inputval.Str("email", req.Email),
		inputval.Str("password", req.Password),
	); fe != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginValidation).Inc()
		apierr.Write(w, r, h.logger, apierr.Validation(fe.Field, "Email and password are required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "login")
	defer cancel()
	r = r.WithContext(ctx)

	email := normalize.Email(req.Email)
	client := activitylog.ClientFrom(r, req.IPAddress, req.UserAgent)
	record := func(userID *primitive.ObjectID, success bool) {
		// A failed audit write is logged and counted by the recorder and
		// does not change the outcome.
		_, _ = h.recorder.Record(ctx, activitylog.Attempt{
			Event:   activitylog.EventLogin,
			UserID:  userID,
			Email:   email,
			Client:  client,
			Success: success,
		})
	}

	user, err := h.userStore.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, userstore.ErrNotFound) {
		record(nil, false)
		metrics.LoginAttempts.WithLabelValues(metrics.LoginError).Inc()
		h.errLog.Log(r, "login lookup failed", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}

	var userID *primitive.ObjectID
	if user != nil {
		userID = &user.ID
	}

	if h.rateLimitStore != nil {
		if allowed, _, lockedUntil := h.rateLimitStore.CheckAllowed(ctx, email); !allowed {
			record(userID, false)
			metrics.LoginAttempts.WithLabelValues(metrics.LoginRateLimited).Inc()
			h.logger.Warn("login rate limited", zap.String("ip", client.IP))
			apierr.Write(w, r, h.logger, apierr.RateLimited(lockedUntil))
			return
		}
	}

	if user == nil {
		// Same cost as a real comparison so response time does not reveal
		// whether the email exists.
		h.hasher.Burn(req.Password)
		record(nil, false)
		h.recordFailure(r, email)
		metrics.LoginAttempts.WithLabelValues(metrics.LoginInvalid).Inc()
		apierr.Write(w, r, h.logger, apierr.InvalidCredentials())
		return
	}

	ok := h.hasher.Verify(req.Password, user.PasswordHash)
	record(userID, ok)
	if !ok {
		h.recordFailure(r, email)
		metrics.LoginAttempts.WithLabelValues(metrics.LoginInvalid).Inc()
		apierr.Write(w, r, h.logger, apierr.InvalidCredentials())
		return
	}

	if h.rateLimitStore != nil {
		if err := h.rateLimitStore.ClearOnSuccess(ctx, email); err != nil {
			h.logger.Warn("failed to clear rate limit", zap.Error(err))
		}
	}

	h.signIn(w, r, *user, "Login successful", http.StatusOK, metrics.LoginSuccess)
}

func (h *Handler) recordFailure(r *http.Request, email string) {
	if h.rateLimitStore == nil {
		return
	}
	if locked, until := h.rateLimitStore.RecordFailure(r.Context(), email); locked && until != nil {
		h.logger.Warn("login locked out",
			zap.Time("locked_until", *until),
			zap.String("ip", r.RemoteAddr))
	}
}

// signIn loads the profile, sets the session cookie and writes the
// account envelope. outcome labels the login metric; empty skips it.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, user models.User, message string, status int, outcome string) {
	profile, err := h.userStore.GetProfile(r.Context(), user)
	if err != nil && !errors.Is(err, userstore.ErrNotFound) {
		if outcome != "" {
			metrics.LoginAttempts.WithLabelValues(metrics.LoginError).Inc()
		}
		h.errLog.Log(r, "failed to load profile", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}

	if _, err := h.sessionMgr.Issue(w, user); err != nil {
		if outcome != "" {
			metrics.LoginAttempts.WithLabelValues(metrics.LoginError).Inc()
		}
		h.errLog.Log(r, "failed to mint session token", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}

	if outcome != "" {
		metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
	h.logger.Info("user signed in",
		zap.String("user_id", user.ID.Hex()),
		zap.String("role", user.Role))

	jsonutil.JSON(w, status, jsonutil.Envelope{
		Success: true,
		Message: message,
		Data:    accountData{User: user, Profile: profile},
	})
}
