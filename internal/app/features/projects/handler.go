// internal/app/features/projects/handler.go
package projects

import (
	"net/http"

	errorsfeature "github.com/dalemusser/researchportal/internal/app/features/errors"
	applicationstore "github.com/dalemusser/researchportal/internal/app/store/applications"
	projectstore "github.com/dalemusser/researchportal/internal/app/store/projects"
	"github.com/dalemusser/researchportal/internal/app/system/apierr"
	"github.com/dalemusser/researchportal/internal/app/system/authz"
	"github.com/dalemusser/researchportal/internal/app/system/respcache"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves project listings, project management and applications.
type Handler struct {
	projects     *projectstore.Store
	applications *applicationstore.Store
	cache        respcache.Cache
	errLog       *errorsfeature.ErrorLogger
	logger       *zap.Logger
}

// NewHandler creates a new projects Handler. cache backs the public
// listing; nil disables caching.
func NewHandler(db *mongo.Database, cache respcache.Cache, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		projects:     projectstore.New(db),
		applications: applicationstore.New(db),
		cache:        cache,
		errLog:       errLog,
		logger:       logger,
	}
}

// Routes returns the public router mounted at /api/projects.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	return r
}

// MountFaculty adds the faculty endpoints to a router mounted at
// /api/faculty.
func (h *Handler) MountFaculty(r chi.Router) {
	r.Post("/projects", h.create)
	r.Patch("/projects/{id}/status", h.updateStatus)
	r.Patch("/applications/{id}", h.decide)
}

// MountStudent adds the student endpoints to a router mounted at
// /api/student.
func (h *Handler) MountStudent(r chi.Router) {
	r.Post("/applications", h.apply)
}

// caller returns the session user's id when it has role.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request, role string) (primitive.ObjectID, bool) {
	uid, err := authz.Require(r, role)
	if err != nil {
		apierr.Write(w, r, h.logger, err)
		return primitive.NilObjectID, false
	}
	return uid, true
}

// pathID parses the {id} URL parameter. A malformed id is reported as
// not found.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, what string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.logger, apierr.NotFound(what+" not found"))
		return primitive.NilObjectID, false
	}
	return oid, true
}
