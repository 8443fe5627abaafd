// internal/app/features/projects/apply.go
package projects

import (
	"errors"
	"net/http"

	applicationstore "github.com/dalemusser/researchportal/internal/app/store/applications"
	projectstore "github.com/dalemusser/researchportal/internal/app/store/projects"
	"github.com/dalemusser/researchportal/internal/app/system/apierr"
	"github.com/dalemusser/researchportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/researchportal/internal/app/system/inputval"
	"github.com/dalemusser/researchportal/internal/app/system/jsonutil"
	"github.com/dalemusser/researchportal/internal/app/system/timeouts"
	"github.com/dalemusser/researchportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type applyInput struct {
	ProjectID   string `json:"projectId" validate:"objectid" label:"Project"`
	CoverLetter string `json:"coverLetter" validate:"max=5000" label:"Cover letter"`
}

// apply records the calling student's application to an open project.
// A student may apply to a project once.
func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "apply to project")
	defer cancel()

	uid, ok := h.caller(w, r, models.RoleStudent)
	if !ok {
		return
	}

	var in applyInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.logger, apierr.Validation("", "Request body must be a JSON object"))
		return
	}
	if fe := inputval.Missing(inputval.Str("projectId", in.ProjectID)); fe != nil {
		apierr.Write(w, r, h.logger, apierr.Validation(fe.Field, fe.Message))
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		fe := res.Errors[0]
		apierr.Write(w, r, h.logger, apierr.Validation(fe.Field, fe.Message))
		return
	}
	pid, _ := primitive.ObjectIDFromHex(in.ProjectID)

	p, err := h.projects.GetByID(ctx, pid)
	if err != nil {
		if errors.Is(err, projectstore.ErrNotFound) {
			apierr.Write(w, r, h.logger, apierr.NotFound("Project not found"))
			return
		}
		h.errLog.Log(r, "project lookup failed", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}
	if p.Status != models.ProjectOpen {
		apierr.Write(w, r, h.logger, apierr.Conflict("This project is not accepting applications"))
		return
	}

	a, err := h.applications.Create(ctx, models.Application{
		ProjectID:   p.ID,
		StudentID:   uid,
		FacultyID:   p.FacultyID,
		CoverLetter: htmlsanitize.Strip(in.CoverLetter),
	})
	if err != nil {
		if errors.Is(err, applicationstore.ErrDuplicateApplication) {
			apierr.Write(w, r, h.logger, apierr.Conflict("You have already applied to this project"))
			return
		}
		h.errLog.Log(r, "failed to create application", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}
	jsonutil.Created(w, "Application submitted", a)
}
