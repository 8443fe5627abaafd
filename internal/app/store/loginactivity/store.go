// internal/app/store/loginactivity/store.go
package loginactivity

import (
	"context"
	"time"

	"github.com/dalemusser/researchportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection holds one row per authentication attempt.
const Collection = "login_activity"

// Store appends and reads login activity. There is no update method;
// rows are removed only by DeleteByUser during account deletion.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a row. CreatedAt is always assigned here, never by callers.
func (s *Store) Create(ctx context.Context, a models.LoginActivity) (models.LoginActivity, error) {
	a.ID = primitive.NewObjectID()
	a.CreatedAt = time.Now().UTC()
	if a.DeviceType == "" {
		a.DeviceType = models.DeviceUnknown
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.LoginActivity{}, err
	}
	return a, nil
}

// ListByUser returns a user's attempts, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, limit, offset int64) ([]models.LoginActivity, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.LoginActivity{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByUser counts a user's attempts, optionally only successful ones.
func (s *Store) CountByUser(ctx context.Context, userID primitive.ObjectID, successOnly bool) (int64, error) {
	filter := bson.M{"user_id": userID}
	if successOnly {
		filter["success"] = true
	}
	return s.c.CountDocuments(ctx, filter)
}

// DeleteByUser removes a user's rows. Only account deletion calls this.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
