// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	for _, c := range Collections() {
		ensure(c.Name, c.Schema)
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

// Collection is a collection the app owns and its optional validator.
type Collection struct {
	Name   string
	Schema bson.M
}

// Collections lists every collection created at startup, in creation order.
func Collections() []Collection {
	return []Collection{
		{"users", usersSchema()},
		{"faculty_profiles", facultyProfilesSchema()},
		{"student_profiles", studentProfilesSchema()},
		{"login_activity", loginActivitySchema()},
		{"projects", projectsSchema()},
		{"applications", applicationsSchema()},
		{"rate_limits", nil},
	}
}

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	isoDate  = bson.M{"bsonType": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"}
	number   = bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}}
)

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"first_name", "last_name", "email", "password_hash", "role", "created_at"},
			"properties": bson.M{
				"first_name":    nonBlank,
				"last_name":     nonBlank,
				"email":         nonBlank,
				"password_hash": bson.M{"bsonType": "string", "minLength": 1},
				"role":          bson.M{"enum": bson.A{"faculty", "student"}},
				"created_at":    bson.M{"bsonType": "date"},
				"updated_at":    bson.M{"bsonType": "date"},
			},
		},
	}
}

func facultyProfilesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "faculty_id", "department", "specialization", "date_of_joining", "date_of_birth"},
			"properties": bson.M{
				"user_id":         bson.M{"bsonType": "objectId"},
				"faculty_id":      nonBlank,
				"department":      nonBlank,
				"specialization":  nonBlank,
				"date_of_joining": isoDate,
				"date_of_birth":   isoDate,
			},
		},
	}
}

func studentProfilesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "registration_number", "department", "year", "cgpa"},
			"properties": bson.M{
				"user_id":             bson.M{"bsonType": "objectId"},
				"registration_number": nonBlank,
				"department":          nonBlank,
				"year":                nonBlank,
				"cgpa":                number,
			},
		},
	}
}

func loginActivitySchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "created_at", "success"},
			"properties": bson.M{
				"user_id":     bson.M{"bsonType": bson.A{"objectId", "null"}},
				"created_at":  bson.M{"bsonType": "date"},
				"success":     bson.M{"bsonType": "bool"},
				"ip":          bson.M{"bsonType": "string"},
				"user_agent":  bson.M{"bsonType": "string"},
				"device_type": bson.M{"enum": bson.A{"desktop", "mobile", "tablet", "bot", "unknown"}},
			},
		},
	}
}

func projectsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"faculty_id", "title", "status", "created_at"},
			"properties": bson.M{
				"faculty_id": bson.M{"bsonType": "objectId"},
				"title":      nonBlank,
				"status":     bson.M{"enum": bson.A{"open", "closed"}},
				"positions":  bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			},
		},
	}
}

func applicationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"project_id", "student_id", "faculty_id", "status"},
			"properties": bson.M{
				"project_id": bson.M{"bsonType": "objectId"},
				"student_id": bson.M{"bsonType": "objectId"},
				"faculty_id": bson.M{"bsonType": "objectId"},
				"status":     bson.M{"enum": bson.A{"pending", "accepted", "rejected"}},
			},
		},
	}
}
