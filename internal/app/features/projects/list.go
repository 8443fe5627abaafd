// internal/app/features/projects/list.go
package projects

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	projectstore "github.com/dalemusser/researchportal/internal/app/store/projects"
	"github.com/dalemusser/researchportal/internal/app/store/storeutil"
	"github.com/dalemusser/researchportal/internal/app/system/apierr"
	"github.com/dalemusser/researchportal/internal/app/system/jsonutil"
	"github.com/dalemusser/researchportal/internal/app/system/normalize"
	"github.com/dalemusser/researchportal/internal/app/system/respcache"
	"github.com/dalemusser/researchportal/internal/app/system/timeouts"
	"github.com/dalemusser/researchportal/internal/domain/models"
)

// ListResponse is the data member of GET /api/projects.
type ListResponse struct {
	Items  []models.Project `json:"items"`
	Total  int64            `json:"total"`
	Limit  int64            `json:"limit"`
	Offset int64            `json:"offset"`
}

// list serves open projects, newest first. Responses are cached for a
// short TTL and never invalidated, so a new project can take up to one
// TTL to appear.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "list projects")
	defer cancel()

	q := r.URL.Query()
	filter := projectstore.ListFilter{
		Department: normalize.QueryParam(q.Get("department")),
		Query:      normalize.QueryParam(q.Get("q")),
	}
	page := storeutil.ParsePage(q.Get("limit"), q.Get("offset"))

	fill := func(ctx context.Context) ([]byte, error) {
		items, total, err := h.projects.ListOpen(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []models.Project{}
		}
		return json.Marshal(jsonutil.Envelope{
			Success: true,
			Data:    ListResponse{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset},
		})
	}

	var (
		body []byte
		hit  bool
		err  error
	)
	if h.cache != nil {
		body, hit, err = respcache.Remember(ctx, h.cache, listKey(filter, page), fill)
	} else {
		body, err = fill(ctx)
	}
	if err != nil {
		h.errLog.Log(r, "project listing failed", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// listKey canonicalizes the listing query so equivalent requests share an
// entry.
func listKey(f projectstore.ListFilter, p storeutil.Page) string {
	v := url.Values{}
	v.Set("department", f.Department)
	v.Set("q", f.Query)
	v.Set("limit", strconv.FormatInt(p.Limit, 10))
	v.Set("offset", strconv.FormatInt(p.Offset, 10))
	return "projects:" + v.Encode()
}

// show serves one project of any status.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "show project")
	defer cancel()

	id, ok := h.pathID(w, r, "Project")
	if !ok {
		return
	}
	p, err := h.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, projectstore.ErrNotFound) {
			apierr.Write(w, r, h.logger, apierr.NotFound("Project not found"))
			return
		}
		h.errLog.Log(r, "project lookup failed", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}
	jsonutil.OK(w, "", p)
}
