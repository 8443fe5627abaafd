// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/researchportal/internal/app/store/loginactivity"
	"github.com/dalemusser/researchportal/internal/app/system/normalize"
	"github.com/dalemusser/researchportal/internal/app/system/txn"
	"github.com/dalemusser/researchportal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collection names owned by this store.
const (
	UsersCollection           = "users"
	FacultyProfilesCollection = "faculty_profiles"
	StudentProfilesCollection = "student_profiles"
)

var (
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrNotFound is returned when no user or profile matches.
	ErrNotFound = errors.New("user not found")

	errBadRole         = errors.New("invalid role")
	errProfileMismatch = errors.New("profile does not match role")
)

// Store is the credential store: users and their 1:1 role profiles.
type Store struct {
	db       *mongo.Database
	c        *mongo.Collection
	faculty  *mongo.Collection
	student  *mongo.Collection
	activity *loginactivity.Store
	log      *zap.Logger
}

func New(db *mongo.Database) *Store {
	return &Store{
		db:       db,
		c:        db.Collection(UsersCollection),
		faculty:  db.Collection(FacultyProfilesCollection),
		student:  db.Collection(StudentProfilesCollection),
		activity: loginactivity.New(db),
		log:      zap.L().Named("userstore"),
	}
}

// WithLogger returns a copy of s that logs transaction fallbacks to log.
func (s *Store) WithLogger(log *zap.Logger) *Store {
	cp := *s
	cp.log = log
	return &cp
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up a user by exact email. Emails are matched
// case-sensitively after trimming.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

// GetByIDs loads multiple users by their ObjectIDs.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// EmailExists reports whether email is already registered.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"email": normalize.Email(email)})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateWithProfile inserts a user and its role profile as one unit.
//
// On deployments with transactions both inserts commit or neither does.
// Without transactions the user is inserted first; if the profile insert
// then fails the user is deleted again, and a failed cleanup is logged.
func (s *Store) CreateWithProfile(ctx context.Context, u models.User, p models.Profile) (models.User, models.Profile, error) {
	u.Role = normalize.Role(u.Role)
	if !models.IsValidRole(u.Role) {
		return models.User{}, models.Profile{}, errBadRole
	}
	if (u.Role == models.RoleFaculty) != (p.Faculty != nil) || (u.Role == models.RoleStudent) != (p.Student != nil) {
		return models.User{}, models.Profile{}, errProfileMismatch
	}

	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.Email = normalize.Email(u.Email)
	u.FirstName = normalize.Name(u.FirstName)
	u.LastName = normalize.Name(u.LastName)
	u.CreatedAt = now
	u.UpdatedAt = now

	var profileColl *mongo.Collection
	var profileDoc any
	switch {
	case p.Faculty != nil:
		fp := *p.Faculty
		fp.ID = primitive.NewObjectID()
		fp.UserID = u.ID
		fp.CreatedAt, fp.UpdatedAt = now, now
		p = models.Profile{Faculty: &fp}
		profileColl, profileDoc = s.faculty, fp
	default:
		sp := *p.Student
		sp.ID = primitive.NewObjectID()
		sp.UserID = u.ID
		sp.CreatedAt, sp.UpdatedAt = now, now
		p = models.Profile{Student: &sp}
		profileColl, profileDoc = s.student, sp
	}

	insert := func(ctx context.Context) error {
		if _, err := s.c.InsertOne(ctx, u); err != nil {
			if wafflemongo.IsDup(err) {
				return ErrDuplicateEmail
			}
			return err
		}
		_, err := profileColl.InsertOne(ctx, profileDoc)
		return err
	}
	undo := func(ctx context.Context) error {
		_, err := s.c.DeleteOne(ctx, bson.M{"_id": u.ID})
		return err
	}

	if err := txn.RunCompensated(ctx, s.db, s.log, insert, undo); err != nil {
		return models.User{}, models.Profile{}, err
	}
	return u, p, nil
}

// GetFacultyProfile loads the faculty profile for a user.
func (s *Store) GetFacultyProfile(ctx context.Context, userID primitive.ObjectID) (*models.FacultyProfile, error) {
	var fp models.FacultyProfile
	if err := s.faculty.FindOne(ctx, bson.M{"user_id": userID}).Decode(&fp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &fp, nil
}

// GetStudentProfile loads the student profile for a user.
func (s *Store) GetStudentProfile(ctx context.Context, userID primitive.ObjectID) (*models.StudentProfile, error) {
	var sp models.StudentProfile
	if err := s.student.FindOne(ctx, bson.M{"user_id": userID}).Decode(&sp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sp, nil
}

// GetProfile loads whichever profile matches the user's role.
func (s *Store) GetProfile(ctx context.Context, u models.User) (models.Profile, error) {
	switch u.Role {
	case models.RoleFaculty:
		fp, err := s.GetFacultyProfile(ctx, u.ID)
		if err != nil {
			return models.Profile{}, err
		}
		return models.Profile{Faculty: fp}, nil
	case models.RoleStudent:
		sp, err := s.GetStudentProfile(ctx, u.ID)
		if err != nil {
			return models.Profile{}, err
		}
		return models.Profile{Student: sp}, nil
	}
	return models.Profile{}, errBadRole
}

// Delete removes a user with its profile and login activity.
// Returns ErrNotFound if the user does not exist.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		if _, err := s.faculty.DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
			return err
		}
		if _, err := s.student.DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
			return err
		}
		_, err = s.activity.DeleteByUser(ctx, id)
		return err
	})
}

// Count returns the number of users, optionally for one role.
func (s *Store) Count(ctx context.Context, role string) (int64, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = normalize.Role(role)
	}
	return s.c.CountDocuments(ctx, filter)
}
