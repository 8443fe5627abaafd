package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project statuses
const (
	ProjectOpen   = "open"
	ProjectClosed = "closed"
)

// Project is a research opening posted by a faculty member.
// Description holds sanitized HTML.
type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FacultyID   primitive.ObjectID `bson:"faculty_id" json:"faculty_id"` // owning User id
	Title       string             `bson:"title" json:"title"`
	TitleCI     string             `bson:"title_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Department  string             `bson:"department" json:"department"`
	Skills      []string           `bson:"skills,omitempty" json:"skills,omitempty"`
	Positions   int                `bson:"positions" json:"positions"`
	Status      string             `bson:"status" json:"status"`
	Deadline    *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsValidProjectStatus reports whether s is a known project status.
func IsValidProjectStatus(s string) bool {
	return s == ProjectOpen || s == ProjectClosed
}
