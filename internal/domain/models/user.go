// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the identity record for a portal account.
//
// Email is the login identity. It is stored exactly as submitted (trimmed)
// and matched case-sensitively. Role is fixed at registration.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Role         string             `bson:"role" json:"role"` // faculty | student
	FirstName    string             `bson:"first_name" json:"first_name"`
	LastName     string             `bson:"last_name" json:"last_name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// FullName joins first and last name for display and token claims.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// User roles
const (
	RoleFaculty = "faculty"
	RoleStudent = "student"
)

// AllRoles returns all valid user roles.
func AllRoles() []string {
	return []string{
		RoleFaculty,
		RoleStudent,
	}
}

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// DashboardPath returns the page a role lands on after sign-in.
func DashboardPath(role string) string {
	switch role {
	case RoleFaculty:
		return "/faculty/dashboard"
	case RoleStudent:
		return "/student/dashboard"
	}
	return "/"
}
