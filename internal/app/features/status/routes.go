// internal/app/features/status/routes.go
package status

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a chi.Router with the status report mounted at /db-status.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/db-status", h.Serve)
	return r
}
