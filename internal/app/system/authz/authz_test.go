package authz

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/researchportal/internal/app/system/apierr"
	"github.com/dalemusser/researchportal/internal/app/system/auth"
	"github.com/dalemusser/researchportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func withTestUser(id, role string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return auth.WithTestUser(req, &auth.SessionUser{ID: id, Role: role, Name: "Test User"})
}

func TestUserCtx(t *testing.T) {
	validID := primitive.NewObjectID()

	tests := []struct {
		name     string
		id       string
		role     string
		wantRole string
		wantID   primitive.ObjectID
		wantOK   bool
	}{
		{"faculty", validID.Hex(), models.RoleFaculty, models.RoleFaculty, validID, true},
		{"student", validID.Hex(), models.RoleStudent, models.RoleStudent, validID, true},
		{"malformed id", "not-an-objectid", models.RoleStudent, "", primitive.NilObjectID, false},
		{"empty id", "", models.RoleFaculty, "", primitive.NilObjectID, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, id, ok := UserCtx(withTestUser(tt.id, tt.role))
			if role != tt.wantRole || id != tt.wantID || ok != tt.wantOK {
				t.Errorf("UserCtx() = (%q, %v, %v), want (%q, %v, %v)",
					role, id, ok, tt.wantRole, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestUserCtx_NoUser(t *testing.T) {
	role, id, ok := UserCtx(httptest.NewRequest(http.MethodGet, "/", nil))
	if ok || role != "" || !id.IsZero() {
		t.Errorf("UserCtx() = (%q, %v, %v), want empty and false", role, id, ok)
	}
}

func TestRolePredicates(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	faculty := withTestUser(id, models.RoleFaculty)
	student := withTestUser(id, models.RoleStudent)
	anon := httptest.NewRequest(http.MethodGet, "/", nil)

	if !IsFaculty(faculty) || IsFaculty(student) || IsFaculty(anon) {
		t.Error("IsFaculty() mismatch")
	}
	if !IsStudent(student) || IsStudent(faculty) || IsStudent(anon) {
		t.Error("IsStudent() mismatch")
	}
	if !IsLoggedIn(faculty) || IsLoggedIn(anon) {
		t.Error("IsLoggedIn() mismatch")
	}
	if !HasRole(student, models.RoleFaculty, models.RoleStudent) {
		t.Error("HasRole(student, faculty|student) = false, want true")
	}
	if HasRole(student, models.RoleFaculty) {
		t.Error("HasRole(student, faculty) = true, want false")
	}
	if HasRole(anon, models.RoleStudent) {
		t.Error("HasRole(anon) = true, want false")
	}
}

func TestRequire(t *testing.T) {
	oid := primitive.NewObjectID()

	tests := []struct {
		name     string
		req      *http.Request
		role     string
		wantCode apierr.Code
	}{
		{"matching role", withTestUser(oid.Hex(), models.RoleStudent), models.RoleStudent, ""},
		{"wrong role", withTestUser(oid.Hex(), models.RoleStudent), models.RoleFaculty, apierr.CodeForbidden},
		{"no user", httptest.NewRequest(http.MethodGet, "/", nil), models.RoleStudent, apierr.CodeUnauthorized},
		{"malformed id", withTestUser("bad", models.RoleStudent), models.RoleStudent, apierr.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uid, err := Require(tt.req, tt.role)
			if tt.wantCode == "" {
				if err != nil || uid != oid {
					t.Fatalf("Require() = (%v, %v), want (%v, nil)", uid, err, oid)
				}
				return
			}
			var ae *apierr.Error
			if !errors.As(err, &ae) || ae.Code != tt.wantCode {
				t.Errorf("Require() error = %v, want code %s", err, tt.wantCode)
			}
			if !uid.IsZero() {
				t.Errorf("Require() id = %v, want zero", uid)
			}
		})
	}
}
