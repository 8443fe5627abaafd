// internal/app/features/authapi/session.go
package authapi

import (
	"errors"
	"net/http"

	userstore "github.com/dalemusser/researchportal/internal/app/store/users"
	"github.com/dalemusser/researchportal/internal/app/system/apierr"
	"github.com/dalemusser/researchportal/internal/app/system/auth"
	"github.com/dalemusser/researchportal/internal/app/system/jsonutil"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// handleLogout expires the session cookie. It always succeeds, with or
// without a session, and does not revoke the token itself.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user, ok := auth.CurrentUser(r); ok {
		h.logger.Info("user signed out", zap.String("user_id", user.ID))
	}
	h.sessionMgr.Clear(w)
	jsonutil.OK(w, "Logged out successfully", nil)
}

// Me returns the caller's account with a fresh profile read.
// Mounted at GET /api/me behind the session gate.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Write(w, r, h.logger, apierr.Unauthorized())
		return
	}

	acct, err := h.userStore.LoadAccount(r.Context(), su.ID)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			// Token outlived the account.
			h.sessionMgr.Clear(w)
			apierr.Write(w, r, h.logger, apierr.Unauthorized())
			return
		}
		h.errLog.Log(r, "failed to load account", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}

	jsonutil.OK(w, "", accountData{User: acct.User, Profile: acct.Profile})
}

type csrfData struct {
	Token  string `json:"token"`
	Header string `json:"header"`
}

// handleCSRF hands the current CSRF token to script clients, which echo
// it in the X-CSRF-Token header on protected mutations.
func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, "", csrfData{Token: csrf.Token(r), Header: "X-CSRF-Token"})
}
