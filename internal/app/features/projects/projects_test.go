package projects

import (
	"net/http"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/researchportal/internal/app/features/errors"
	projectstore "github.com/dalemusser/researchportal/internal/app/store/projects"
	"github.com/dalemusser/researchportal/internal/app/store/storeutil"
	"github.com/dalemusser/researchportal/internal/app/system/respcache"
	"github.com/dalemusser/researchportal/internal/domain/models"
	"github.com/dalemusser/researchportal/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	db     *mongo.Database
	h      *Handler
	router http.Handler
	cache  *respcache.Memory
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cache := respcache.NewMemory(time.Minute)
	h := NewHandler(db, cache, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())

	r := chi.NewRouter()
	r.Mount("/api/projects", Routes(h))
	r.Route("/api/faculty", h.MountFaculty)
	r.Route("/api/student", h.MountStudent)
	return &env{db: db, h: h, router: r, cache: cache}
}

func (e *env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) seedProject(t *testing.T, owner primitive.ObjectID, title, dept, status string) models.Project {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p, err := projectstore.New(e.db).Create(ctx, models.Project{FacultyID: owner, Title: title, Department: dept, Status: status, Positions: 1})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return p
}

func oid(t *testing.T, u testutil.TestUser) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		t.Fatalf("bad test user id %q", u.ID)
	}
	return id
}

func TestList_FiltersAndCaches(t *testing.T) {
	e := newEnv(t)
	fac := testutil.FacultyUser()
	e.seedProject(t, oid(t, fac), "Quantum Optics", "Physics", models.ProjectOpen)
	e.seedProject(t, oid(t, fac), "Graph Mining", "Computer Science", models.ProjectOpen)
	e.seedProject(t, oid(t, fac), "Old Study", "Physics", models.ProjectClosed)

	tests := []struct {
		name      string
		target    string
		wantTotal int64
	}{
		{"all open", "/api/projects", 2},
		{"department", "/api/projects?department=Physics", 1},
		{"title query is case-insensitive", "/api/projects?q=graph", 1},
		{"no match", "/api/projects?q=biology", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(testutil.NewRequest(http.MethodGet, tt.target))
			rec.AssertStatus(t, http.StatusOK)
			var got ListResponse
			rec.DecodeData(t, &got)
			if got.Total != tt.wantTotal || int64(len(got.Items)) != tt.wantTotal {
				t.Errorf("total = %d, items = %d; want %d", got.Total, len(got.Items), tt.wantTotal)
			}
			for _, p := range got.Items {
				if p.Status != models.ProjectOpen {
					t.Errorf("listed %s project %q", p.Status, p.Title)
				}
			}
		})
	}

	// A repeat is served from cache, so a project created since does not show.
	e.seedProject(t, oid(t, fac), "Late Addition", "Physics", models.ProjectOpen)
	rec := e.do(testutil.NewRequest(http.MethodGet, "/api/projects"))
	if got := rec.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", got)
	}
	var cached ListResponse
	rec.DecodeData(t, &cached)
	if cached.Total != 2 {
		t.Errorf("cached total = %d, want 2", cached.Total)
	}

	rec = e.do(testutil.NewRequest(http.MethodGet, "/api/projects?limit=1"))
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache = %q, want MISS for a new page", got)
	}
}

func TestList_NoCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())
	rec := testutil.NewRecorder()
	Routes(h).ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"items":[]`)
}

func TestShow(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject(t, primitive.NewObjectID(), "Quantum Optics", "Physics", models.ProjectClosed)

	e.do(testutil.NewRequest(http.MethodGet, "/api/projects/"+p.ID.Hex())).AssertStatus(t, http.StatusOK)
	e.do(testutil.NewRequest(http.MethodGet, "/api/projects/"+primitive.NewObjectID().Hex())).AssertCode(t, "NOT_FOUND")
	e.do(testutil.NewRequest(http.MethodGet, "/api/projects/zzz")).AssertCode(t, "NOT_FOUND")
}

func TestCreate(t *testing.T) {
	e := newEnv(t)
	fac := testutil.FacultyUser()

	t.Run("sanitizes and defaults", func(t *testing.T) {
		req := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/faculty/projects", map[string]any{
			"title":       "  Robot   Swarms ",
			"description": `<p>Build <b>robots</b></p><script>alert(1)</script>`,
			"department":  "Engineering",
			"skills":      []string{"Go", "<i>ROS</i>", " "},
			"deadline":    "2026-12-01",
		}), fac)
		rec := e.do(req)
		rec.AssertStatus(t, http.StatusCreated)

		var p models.Project
		rec.DecodeData(t, &p)
		if p.Title != "Robot Swarms" || p.Status != models.ProjectOpen || p.Positions != 1 {
			t.Errorf("project = %+v", p)
		}
		if strings.Contains(p.Description, "<script") || !strings.Contains(p.Description, "<b>robots</b>") {
			t.Errorf("description = %q", p.Description)
		}
		if len(p.Skills) != 2 || p.Skills[1] != "ROS" {
			t.Errorf("skills = %v, want [Go ROS]", p.Skills)
		}
		if p.Deadline == nil || p.Deadline.Format("2006-01-02") != "2026-12-01" {
			t.Errorf("deadline = %v", p.Deadline)
		}
		if p.FacultyID.Hex() != fac.ID {
			t.Errorf("faculty_id = %s, want %s", p.FacultyID.Hex(), fac.ID)
		}
	})

	tests := []struct {
		name      string
		body      map[string]any
		wantField string
	}{
		{"missing title", map[string]any{"department": "X"}, "title"},
		{"missing department", map[string]any{"title": "X"}, "department"},
		{"zero positions", map[string]any{"title": "X", "department": "Y", "positions": 0}, "positions"},
		{"bad deadline", map[string]any{"title": "X", "department": "Y", "deadline": "soon"}, "deadline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/faculty/projects", tt.body), fac))
			rec.AssertStatus(t, http.StatusBadRequest)
			if got := rec.Envelope(t).Field; got != tt.wantField {
				t.Errorf("field = %q, want %q", got, tt.wantField)
			}
		})
	}

	t.Run("student cannot create", func(t *testing.T) {
		req := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/faculty/projects", map[string]any{"title": "X", "department": "Y"}), testutil.StudentUser())
		e.do(req).AssertStatus(t, http.StatusForbidden)
	})
}

func TestUpdateStatus(t *testing.T) {
	e := newEnv(t)
	owner := testutil.FacultyUser()
	p := e.seedProject(t, oid(t, owner), "Optics", "Physics", models.ProjectOpen)
	path := "/api/faculty/projects/" + p.ID.Hex() + "/status"

	rec := e.do(testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPatch, path, map[string]string{"status": "Closed"}), owner))
	rec.AssertStatus(t, http.StatusOK)
	var got models.Project
	rec.DecodeData(t, &got)
	if got.Status != models.ProjectClosed {
		t.Errorf("status = %q, want closed", got.Status)
	}

	other := testutil.FacultyUser()
	e.do(testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPatch, path, map[string]string{"status": "open"}), other)).
		AssertCode(t, "NOT_FOUND")

	e.do(testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPatch, path, map[string]string{"status": "archived"}), owner)).
		AssertCode(t, "VALIDATION_ERROR")
}

func TestApplyAndDecide(t *testing.T) {
	e := newEnv(t)
	fac := testutil.FacultyUser()
	stu := testutil.StudentUser()
	open := e.seedProject(t, oid(t, fac), "Optics", "Physics", models.ProjectOpen)
	closed := e.seedProject(t, oid(t, fac), "Old", "Physics", models.ProjectClosed)

	applyTo := func(id string) *testutil.ResponseRecorder {
		return e.do(testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/student/applications", map[string]string{
			"projectId":   id,
			"coverLetter": "<p>I love <b>optics</b></p>",
		}), stu))
	}

	rec := applyTo(open.ID.Hex())
	rec.AssertStatus(t, http.StatusCreated)
	var a models.Application
	rec.DecodeData(t, &a)
	if a.Status != models.ApplicationPending || a.FacultyID != oid(t, fac) {
		t.Errorf("application = %+v", a)
	}
	if strings.Contains(a.CoverLetter, "<") {
		t.Errorf("cover letter not stripped: %q", a.CoverLetter)
	}

	applyTo(open.ID.Hex()).AssertCode(t, "CONFLICT")
	applyTo(closed.ID.Hex()).AssertCode(t, "CONFLICT")
	applyTo(primitive.NewObjectID().Hex()).AssertCode(t, "NOT_FOUND")
	applyTo("not-an-id").AssertCode(t, "VALIDATION_ERROR")

	decide := func(user testutil.TestUser, status string) *testutil.ResponseRecorder {
		return e.do(testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPatch,
			"/api/faculty/applications/"+a.ID.Hex(), map[string]string{"status": status}), user))
	}

	decide(testutil.FacultyUser(), "accepted").AssertCode(t, "NOT_FOUND")
	decide(fac, "pending").AssertCode(t, "VALIDATION_ERROR")

	rec = decide(fac, "accepted")
	rec.AssertStatus(t, http.StatusOK)
	var decided models.Application
	rec.DecodeData(t, &decided)
	if decided.Status != models.ApplicationAccepted {
		t.Errorf("status = %q, want accepted", decided.Status)
	}
}

func TestListKey(t *testing.T) {
	a := listKey(projectstore.ListFilter{Department: "Physics"}, storeutil.NewPage(10, 0))
	b := listKey(projectstore.ListFilter{Department: "Physics"}, storeutil.NewPage(10, 0))
	c := listKey(projectstore.ListFilter{Department: "Physics", Query: "x"}, storeutil.NewPage(10, 0))
	if a != b {
		t.Errorf("equal queries gave keys %q and %q", a, b)
	}
	if a == c {
		t.Errorf("different queries share key %q", a)
	}
}
