package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Application statuses
const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

// Application is a student's request to join a project.
// FacultyID is copied from the project so faculty dashboards can list
// received applications without a join.
type Application struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID   primitive.ObjectID `bson:"project_id" json:"project_id"`
	StudentID   primitive.ObjectID `bson:"student_id" json:"student_id"`
	FacultyID   primitive.ObjectID `bson:"faculty_id" json:"faculty_id"`
	CoverLetter string             `bson:"cover_letter,omitempty" json:"cover_letter,omitempty"`
	Status      string             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsValidDecision reports whether s is a status faculty may assign.
func IsValidDecision(s string) bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}
