// internal/app/features/dashboard/dashboard.go
package dashboard

import (
	"context"
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/researchportal/internal/app/features/errors"
	applicationstore "github.com/dalemusser/researchportal/internal/app/store/applications"
	"github.com/dalemusser/researchportal/internal/app/store/loginactivity"
	projectstore "github.com/dalemusser/researchportal/internal/app/store/projects"
	"github.com/dalemusser/researchportal/internal/app/store/storeutil"
	userstore "github.com/dalemusser/researchportal/internal/app/store/users"
	"github.com/dalemusser/researchportal/internal/app/system/apierr"
	"github.com/dalemusser/researchportal/internal/app/system/auth"
	"github.com/dalemusser/researchportal/internal/app/system/authz"
	"github.com/dalemusser/researchportal/internal/app/system/jsonutil"
	"github.com/dalemusser/researchportal/internal/app/system/timeouts"
	"github.com/dalemusser/researchportal/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecentActivityLimit is how many login_activity rows a dashboard shows.
const RecentActivityLimit = 5

// Handler assembles the per-role dashboards.
type Handler struct {
	users        *userstore.Store
	projects     *projectstore.Store
	applications *applicationstore.Store
	activity     *loginactivity.Store
	errLog       *errorsfeature.ErrorLogger
	logger       *zap.Logger
}

// NewHandler creates a new dashboard Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		users:        userstore.New(db).WithLogger(logger),
		projects:     projectstore.New(db),
		applications: applicationstore.New(db),
		activity:     loginactivity.New(db),
		errLog:       errLog,
		logger:       logger,
	}
}

// Routes returns the page router mounted at /dashboard. It sends the
// caller on to their own role's dashboard.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.redirectToRole)
	return r
}

func (h *Handler) redirectToRole(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, auth.LoginRedirect(r), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, models.DashboardPath(u.Role), http.StatusSeeOther)
}

// List is one page of a dashboard list.
type List[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

func listOf[T any](items []T, total int64, page storeutil.Page) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}
}

// ApplicationView is an application with the names a dashboard shows
// next to it.
type ApplicationView struct {
	models.Application
	ProjectTitle string `json:"project_title,omitempty"`
	StudentName  string `json:"student_name,omitempty"`
	StudentEmail string `json:"student_email,omitempty"`
}

// LoginStats summarises a user's authentication attempts.
type LoginStats struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
}

// FacultyDashboard is the payload of GET /api/faculty/dashboard.
type FacultyDashboard struct {
	Profile        *models.FacultyProfile `json:"profile"`
	Projects       List[models.Project]   `json:"projects"`
	Applications   List[ApplicationView]  `json:"applications"`
	StatusCounts   map[string]int64       `json:"application_status_counts"`
	RecentActivity []models.LoginActivity `json:"recent_activity"`
	Logins         LoginStats             `json:"logins"`
}

// StudentDashboard is the payload of GET /api/student/dashboard.
type StudentDashboard struct {
	Profile        *models.StudentProfile `json:"profile"`
	Applications   List[ApplicationView]  `json:"applications"`
	OpenProjects   List[models.Project]   `json:"open_projects"`
	RecentActivity []models.LoginActivity `json:"recent_activity"`
	Logins         LoginStats             `json:"logins"`
}

// caller returns the session user's id if it has role, writing the failure
// otherwise. The gate already enforces role prefixes; this keeps the
// handler safe when mounted elsewhere.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request, role string) (primitive.ObjectID, bool) {
	uid, err := authz.Require(r, role)
	if err != nil {
		apierr.Write(w, r, h.logger, err)
		return primitive.NilObjectID, false
	}
	return uid, true
}

// Faculty serves GET /api/faculty/dashboard.
func (h *Handler) Faculty(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r, models.RoleFaculty)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "faculty dashboard")
	defer cancel()
	r = r.WithContext(ctx)

	page := storeutil.ParsePage(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))

	var (
		out      FacultyDashboard
		projects []models.Project
		projTot  int64
		apps     []models.Application
		appsTot  int64
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		p, err := h.users.GetFacultyProfile(ctx, uid)
		if errors.Is(err, userstore.ErrNotFound) {
			return nil
		}
		out.Profile = p
		return err
	})
	g.Go(func() (err error) {
		projects, projTot, err = h.projects.ListByFaculty(ctx, uid, page)
		return err
	})
	g.Go(func() (err error) {
		apps, appsTot, err = h.applications.ListByFaculty(ctx, uid, page)
		return err
	})
	g.Go(func() (err error) {
		out.StatusCounts, err = h.applications.CountByStatus(ctx, uid)
		return err
	})
	g.Go(func() (err error) {
		out.RecentActivity, err = h.activity.ListByUser(ctx, uid, RecentActivityLimit, 0)
		return err
	})
	h.countLogins(ctx, g, uid, &out.Logins)
	if err := g.Wait(); err != nil {
		h.errLog.Log(r, "faculty dashboard query failed", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}

	views, err := h.applicationViews(r.Context(), apps, true)
	if err != nil {
		h.errLog.Log(r, "faculty dashboard enrichment failed", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}

	out.Projects = listOf(projects, projTot, page)
	out.Applications = listOf(views, appsTot, page)
	if out.RecentActivity == nil {
		out.RecentActivity = []models.LoginActivity{}
	}
	jsonutil.OK(w, "", out)
}

// Student serves GET /api/student/dashboard.
func (h *Handler) Student(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r, models.RoleStudent)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "student dashboard")
	defer cancel()
	r = r.WithContext(ctx)

	page := storeutil.ParsePage(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))

	var (
		out     StudentDashboard
		apps    []models.Application
		appsTot int64
		open    []models.Project
		openTot int64
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		p, err := h.users.GetStudentProfile(ctx, uid)
		if errors.Is(err, userstore.ErrNotFound) {
			return nil
		}
		out.Profile = p
		return err
	})
	g.Go(func() (err error) {
		apps, appsTot, err = h.applications.ListByStudent(ctx, uid, page)
		return err
	})
	g.Go(func() (err error) {
		open, openTot, err = h.projects.ListOpen(ctx, projectstore.ListFilter{}, page)
		return err
	})
	g.Go(func() (err error) {
		out.RecentActivity, err = h.activity.ListByUser(ctx, uid, RecentActivityLimit, 0)
		return err
	})
	h.countLogins(ctx, g, uid, &out.Logins)
	if err := g.Wait(); err != nil {
		h.errLog.Log(r, "student dashboard query failed", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}

	views, err := h.applicationViews(r.Context(), apps, false)
	if err != nil {
		h.errLog.Log(r, "student dashboard enrichment failed", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}

	out.Applications = listOf(views, appsTot, page)
	out.OpenProjects = listOf(open, openTot, page)
	if out.RecentActivity == nil {
		out.RecentActivity = []models.LoginActivity{}
	}
	jsonutil.OK(w, "", out)
}

// countLogins adds the two login_activity counts to g.
func (h *Handler) countLogins(ctx context.Context, g *errgroup.Group, uid primitive.ObjectID, out *LoginStats) {
	g.Go(func() (err error) {
		out.Total, err = h.activity.CountByUser(ctx, uid, false)
		return err
	})
	g.Go(func() (err error) {
		out.Successful, err = h.activity.CountByUser(ctx, uid, true)
		return err
	})
}

// applicationViews attaches project titles and, for faculty, the
// applicant's name and email.
func (h *Handler) applicationViews(ctx context.Context, apps []models.Application, withStudents bool) ([]ApplicationView, error) {
	if len(apps) == 0 {
		return nil, nil
	}

	projectIDs := make([]primitive.ObjectID, 0, len(apps))
	studentIDs := make([]primitive.ObjectID, 0, len(apps))
	for _, a := range apps {
		projectIDs = append(projectIDs, a.ProjectID)
		studentIDs = append(studentIDs, a.StudentID)
	}

	var (
		projects []models.Project
		students []models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		projects, err = h.projects.GetByIDs(gctx, projectIDs)
		return err
	})
	if withStudents {
		g.Go(func() (err error) {
			students, err = h.users.GetByIDs(gctx, studentIDs)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	titles := make(map[primitive.ObjectID]string, len(projects))
	for _, p := range projects {
		titles[p.ID] = p.Title
	}
	people := make(map[primitive.ObjectID]models.User, len(students))
	for _, u := range students {
		people[u.ID] = u
	}

	views := make([]ApplicationView, 0, len(apps))
	for _, a := range apps {
		v := ApplicationView{Application: a, ProjectTitle: titles[a.ProjectID]}
		if u, ok := people[a.StudentID]; ok {
			v.StudentName = u.FullName()
			v.StudentEmail = u.Email
		}
		views = append(views, v)
	}
	return views, nil
}
