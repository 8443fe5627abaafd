// internal/app/features/projects/manage.go
package projects

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	applicationstore "github.com/dalemusser/researchportal/internal/app/store/applications"
	projectstore "github.com/dalemusser/researchportal/internal/app/store/projects"
	"github.com/dalemusser/researchportal/internal/app/system/apierr"
	"github.com/dalemusser/researchportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/researchportal/internal/app/system/inputval"
	"github.com/dalemusser/researchportal/internal/app/system/jsonutil"
	"github.com/dalemusser/researchportal/internal/app/system/normalize"
	"github.com/dalemusser/researchportal/internal/app/system/timeouts"
	"github.com/dalemusser/researchportal/internal/domain/models"
	"go.uber.org/zap"
)

// MaxSkills caps the skills list on a project.
const MaxSkills = 20

type createInput struct {
	Title       string   `json:"title" validate:"max=200" label:"Title"`
	Description string   `json:"description" validate:"max=20000" label:"Description"`
	Department  string   `json:"department" validate:"max=120" label:"Department"`
	Skills      []string `json:"skills"`
	Positions   *int     `json:"positions"`
	Deadline    string   `json:"deadline"`
}

// create posts a new open project owned by the calling faculty member.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "create project")
	defer cancel()

	uid, ok := h.caller(w, r, models.RoleFaculty)
	if !ok {
		return
	}

	var in createInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.logger, apierr.Validation("", "Request body must be a JSON object"))
		return
	}
	if fe := inputval.Missing(
		inputval.Str("title", in.Title),
		inputval.Str("department", in.Department),
	); fe != nil {
		apierr.Write(w, r, h.logger, apierr.Validation(fe.Field, fe.Message))
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		fe := res.Errors[0]
		apierr.Write(w, r, h.logger, apierr.Validation(fe.Field, fe.Message))
		return
	}

	p := models.Project{
		FacultyID:   uid,
		Title:       in.Title,
		Description: htmlsanitize.Description(in.Description),
		Department:  normalize.Name(in.Department),
		Positions:   1,
	}
	if in.Positions != nil {
		if *in.Positions < 1 {
			apierr.Write(w, r, h.logger, apierr.Validation("positions", "Positions must be at least 1."))
			return
		}
		p.Positions = *in.Positions
	}
	if len(in.Skills) > MaxSkills {
		apierr.Write(w, r, h.logger, apierr.Validation("skills", fmt.Sprintf("At most %d skills are allowed.", MaxSkills)))
		return
	}
	for _, s := range in.Skills {
		if s = htmlsanitize.Strip(s); s != "" {
			p.Skills = append(p.Skills, s)
		}
	}
	if d := strings.TrimSpace(in.Deadline); d != "" {
		if !inputval.IsValidISODate(d) {
			apierr.Write(w, r, h.logger, apierr.Validation("deadline", "Deadline must be a date in YYYY-MM-DD format."))
			return
		}
		t, _ := time.Parse("2006-01-02", d)
		p.Deadline = &t
	}

	created, err := h.projects.Create(ctx, p)
	if err != nil {
		h.errLog.Log(r, "failed to create project", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}
	h.logger.Info("project created",
		zap.String("project_id", created.ID.Hex()),
		zap.String("faculty_id", uid.Hex()))
	jsonutil.Created(w, "Project created", created)
}

type statusInput struct {
	Status string `json:"status" validate:"projectstatus" label:"Status"`
}

// updateStatus opens or closes a project. Projects owned by someone else
// are reported as not found.
func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "update project status")
	defer cancel()

	uid, ok := h.caller(w, r, models.RoleFaculty)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "Project")
	if !ok {
		return
	}

	var in statusInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.logger, apierr.Validation("", "Request body must be a JSON object"))
		return
	}
	in.Status = normalize.Status(in.Status)
	if fe := inputval.Missing(inputval.Str("status", in.Status)); fe != nil {
		apierr.Write(w, r, h.logger, apierr.Validation(fe.Field, fe.Message))
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		fe := res.Errors[0]
		apierr.Write(w, r, h.logger, apierr.Validation(fe.Field, fe.Message))
		return
	}

	p, err := h.projects.UpdateStatus(ctx, id, uid, in.Status)
	if err != nil {
		if errors.Is(err, projectstore.ErrNotFound) {
			apierr.Write(w, r, h.logger, apierr.NotFound("Project not found"))
			return
		}
		h.errLog.Log(r, "failed to update project status", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}
	jsonutil.OK(w, "Project updated", p)
}

type decisionInput struct {
	Status string `json:"status" validate:"decision" label:"Status"`
}

// decide accepts or rejects an application sent to the calling faculty
// member.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "decide application")
	defer cancel()

	uid, ok := h.caller(w, r, models.RoleFaculty)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "Application")
	if !ok {
		return
	}

	var in decisionInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.logger, apierr.Validation("", "Request body must be a JSON object"))
		return
	}
	in.Status = normalize.Status(in.Status)
	if fe := inputval.Missing(inputval.Str("status", in.Status)); fe != nil {
		apierr.Write(w, r, h.logger, apierr.Validation(fe.Field, fe.Message))
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		fe := res.Errors[0]
		apierr.Write(w, r, h.logger, apierr.Validation(fe.Field, fe.Message))
		return
	}

	a, err := h.applications.Decide(ctx, id, uid, in.Status)
	if err != nil {
		if errors.Is(err, applicationstore.ErrNotFound) {
			apierr.Write(w, r, h.logger, apierr.NotFound("Application not found"))
			return
		}
		h.errLog.Log(r, "failed to decide application", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}
	jsonutil.OK(w, "Application updated", a)
}
