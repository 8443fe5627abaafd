package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FacultyProfile extends a faculty User 1:1. UserID is unique.
type FacultyProfile struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	FacultyID      string             `bson:"faculty_id" json:"faculty_id"`
	Department     string             `bson:"department" json:"department"`
	Specialization string             `bson:"specialization" json:"specialization"`
	DateOfJoining  string             `bson:"date_of_joining" json:"date_of_joining"` // YYYY-MM-DD
	DateOfBirth    string             `bson:"date_of_birth" json:"date_of_birth"`     // YYYY-MM-DD
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// StudentProfile extends a student User 1:1. UserID is unique.
type StudentProfile struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID `bson:"user_id" json:"user_id"`
	RegistrationNumber string             `bson:"registration_number" json:"registration_number"`
	Department         string             `bson:"department" json:"department"`
	Year               string             `bson:"year" json:"year"`
	CGPA               float64            `bson:"cgpa" json:"cgpa"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// Profile carries exactly one of the role extensions.
// It marshals to whichever profile is set, or null.
type Profile struct {
	Faculty *FacultyProfile
	Student *StudentProfile
}

// Value returns the populated profile, or nil.
func (p Profile) Value() any {
	switch {
	case p.Faculty != nil:
		return p.Faculty
	case p.Student != nil:
		return p.Student
	}
	return nil
}

// MarshalJSON encodes the populated profile directly.
func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Value())
}
