// internal/app/store/projects/store.go
package projectstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/researchportal/internal/app/store/storeutil"
	"github.com/dalemusser/researchportal/internal/app/system/normalize"
	"github.com/dalemusser/researchportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection holds research projects.
const Collection = "projects"

var (
	// ErrNotFound is returned when no project matches, including when the
	// caller does not own it.
	ErrNotFound = errors.New("project not found")

	errBadStatus = errors.New(`status must be "open"|"closed"`)
	errNoTitle   = errors.New("title is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a project. Status defaults to open.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	p.Title = normalize.Name(p.Title)
	if p.Title == "" {
		return models.Project{}, errNoTitle
	}
	p.TitleCI = text.Fold(p.Title)
	p.Department = normalize.Name(p.Department)
	if p.Status == "" {
		p.Status = models.ProjectOpen
	}
	if !models.IsValidProjectStatus(p.Status) {
		return models.Project{}, errBadStatus
	}

	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// GetByID loads a project.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListFilter narrows ListOpen.
type ListFilter struct {
	Department string
	// Query matches titles containing it, ignoring case and diacritics.
	Query string
}

func (f ListFilter) bson() bson.M {
	m := bson.M{"status": models.ProjectOpen}
	if d := normalize.Name(f.Department); d != "" {
		m["department"] = d
	}
	if q := text.Fold(f.Query); q != "" {
		m["title_ci"] = bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(q)}}
	}
	return m
}

// ListOpen returns open projects, newest first, plus the total match count.
func (s *Store) ListOpen(ctx context.Context, f ListFilter, page storeutil.Page) ([]models.Project, int64, error) {
	filter := f.bson()
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.find(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByFaculty returns a faculty member's projects in any status.
func (s *Store) ListByFaculty(ctx context.Context, facultyID primitive.ObjectID, page storeutil.Page) ([]models.Project, int64, error) {
	filter := bson.M{"faculty_id": facultyID}
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.find(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// IDsByFaculty returns the ids of every project a faculty member owns.
func (s *Store) IDsByFaculty(ctx context.Context, facultyID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"faculty_id": facultyID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var p struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)
	}
	return ids, cur.Err()
}

// GetByIDs loads projects by id, in no particular order.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus opens or closes a project owned by facultyID.
func (s *Store) UpdateStatus(ctx context.Context, id, facultyID primitive.ObjectID, status string) (*models.Project, error) {
	status = normalize.Status(status)
	if !models.IsValidProjectStatus(status) {
		return nil, errBadStatus
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "faculty_id": facultyID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Store) find(ctx context.Context, filter bson.M, page storeutil.Page) ([]models.Project, error) {
	cur, err := s.c.Find(ctx, filter, page.Find())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Project{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
