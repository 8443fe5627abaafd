// internal/app/store/applications/store.go
package applicationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/researchportal/internal/app/store/storeutil"
	"github.com/dalemusser/researchportal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection holds student applications to projects.
const Collection = "applications"

var (
	// ErrDuplicateApplication is returned when the student already applied.
	ErrDuplicateApplication = errors.New("already applied to this project")
	// ErrNotFound is returned when no application matches, including when
	// the caller does not own the project it was sent to.
	ErrNotFound = errors.New("application not found")

	errBadDecision = errors.New(`status must be "accepted"|"rejected"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a pending application. One per (project, student).
func (s *Store) Create(ctx context.Context, a models.Application) (models.Application, error) {
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.Status = models.ApplicationPending
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Application{}, ErrDuplicateApplication
		}
		return models.Application{}, err
	}
	return a, nil
}

// ListByStudent returns a student's applications, newest first.
func (s *Store) ListByStudent(ctx context.Context, studentID primitive.ObjectID, page storeutil.Page) ([]models.Application, int64, error) {
	return s.list(ctx, bson.M{"student_id": studentID}, page)
}

// ListByFaculty returns applications received on a faculty member's
// projects, newest first.
func (s *Store) ListByFaculty(ctx context.Context, facultyID primitive.ObjectID, page storeutil.Page) ([]models.Application, int64, error) {
	return s.list(ctx, bson.M{"faculty_id": facultyID}, page)
}

// CountByStatus counts a faculty member's received applications by status.
func (s *Store) CountByStatus(ctx context.Context, facultyID primitive.ObjectID) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"faculty_id": facultyID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int64{
		models.ApplicationPending:  0,
		models.ApplicationAccepted: 0,
		models.ApplicationRejected: 0,
	}
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}

// Decide sets accepted or rejected on an application sent to facultyID.
func (s *Store) Decide(ctx context.Context, id, facultyID primitive.ObjectID, status string) (*models.Application, error) {
	if !models.IsValidDecision(status) {
		return nil, errBadDecision
	}
	var a models.Application
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "faculty_id": facultyID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) list(ctx context.Context, filter bson.M, page storeutil.Page) ([]models.Application, int64, error) {
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, page.Find())
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.Application{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
