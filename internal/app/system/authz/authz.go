// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/researchportal/internal/app/system/apierr"
	"github.com/dalemusser/researchportal/internal/app/system/auth"
	"github.com/dalemusser/researchportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the caller's role, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "", NilObjectID, false, so ok=true always carries a usable id.
func UserCtx(r *http.Request) (role string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "", primitive.NilObjectID, false
	}
	userID = user.UserID()
	if userID.IsZero() {
		// Malformed user ID in a validly signed token: fail closed.
		return "", primitive.NilObjectID, false
	}
	return user.Role, userID, true
}

// IsFaculty reports whether the current request's user is faculty.
func IsFaculty(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == models.RoleFaculty
}

// IsStudent reports whether the current request's user is a student.
func IsStudent(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == models.RoleStudent
}

// IsLoggedIn reports whether there is a user in the request context.
func IsLoggedIn(r *http.Request) bool {
	_, _, ok := UserCtx(r)
	return ok
}

// HasRole reports whether the current user has one of the specified roles.
// Roles compare exactly; stored roles are already lowercase.
func HasRole(r *http.Request, roles ...string) bool {
	role, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, allowed := range roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Require returns the caller's id when they hold role. Otherwise it returns
// an UNAUTHORIZED error for a missing identity or FORBIDDEN for the wrong role.
func Require(r *http.Request, role string) (primitive.ObjectID, error) {
	have, uid, ok := UserCtx(r)
	if !ok {
		return primitive.NilObjectID, apierr.Unauthorized()
	}
	if have != role {
		return primitive.NilObjectID, apierr.Forbidden()
	}
	return uid, nil
}
