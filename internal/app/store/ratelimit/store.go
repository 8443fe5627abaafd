// internal/app/store/ratelimit/store.go
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/researchportal/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection holds per-email failure counters.
const Collection = "rate_limits"

// Attempt tracks failed logins for one email.
type Attempt struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	AttemptCount int                `bson:"attempt_count"` // failures in the current window
	WindowStart  time.Time          `bson:"window_start"`
	LockedUntil  *time.Time         `bson:"locked_until"` // nil when not locked
	LastAttempt  time.Time          `bson:"last_attempt"` // TTL index key
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// Store counts failed logins per email and locks an email out after
// maxAttempts failures inside one window. Store errors fail open.
type Store struct {
	c               *mongo.Collection
	maxAttempts     int
	windowDuration  time.Duration
	lockoutDuration time.Duration
	now             func() time.Time
}

// New creates a Store.
func New(db *mongo.Database, maxAttempts int, window, lockout time.Duration) *Store {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Store{
		c:               db.Collection(Collection),
		maxAttempts:     maxAttempts,
		windowDuration:  window,
		lockoutDuration: lockout,
		now:             time.Now,
	}
}

// CheckAllowed reports whether a login for email may proceed.
// remaining is -1 while locked; lockedUntil is set only while locked.
func (s *Store) CheckAllowed(ctx context.Context, email string) (allowed bool, remaining int, lockedUntil *time.Time) {
	now := s.now()

	attempt, err := s.get(ctx, email)
	if err != nil || attempt == nil {
		return true, s.maxAttempts, nil
	}

	if attempt.LockedUntil != nil && now.Before(*attempt.LockedUntil) {
		return false, -1, attempt.LockedUntil
	}
	if now.After(attempt.WindowStart.Add(s.windowDuration)) {
		return true, s.maxAttempts, nil
	}

	remaining = s.maxAttempts - attempt.AttemptCount
	if remaining <= 0 {
		// Lockout expired but the window has not; the next failure re-locks.
		return true, 1, nil
	}
	return true, remaining, nil
}

// RecordFailure counts a failed login and locks the email when the count
// reaches maxAttempts.
func (s *Store) RecordFailure(ctx context.Context, email string) (lockedOut bool, lockedUntil *time.Time) {
	email = normalize.Email(email)
	now := s.now()

	attempt, err := s.get(ctx, email)
	if err != nil {
		return false, nil
	}

	if attempt == nil || now.After(attempt.WindowStart.Add(s.windowDuration)) {
		attempt = &Attempt{Email: email, WindowStart: now, CreatedAt: now}
	}
	attempt.AttemptCount++
	attempt.LastAttempt = now
	attempt.UpdatedAt = now
	attempt.LockedUntil = nil

	if attempt.AttemptCount >= s.maxAttempts {
		until := now.Add(s.lockoutDuration)
		attempt.LockedUntil = &until
		lockedOut, lockedUntil = true, &until
	}

	_, _ = s.c.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{
			"$set": bson.M{
				"attempt_count": attempt.AttemptCount,
				"window_start":  attempt.WindowStart,
				"locked_until":  attempt.LockedUntil,
				"last_attempt":  attempt.LastAttempt,
				"updated_at":    attempt.UpdatedAt,
			},
			"$setOnInsert": bson.M{"created_at": attempt.CreatedAt},
		},
		options.Update().SetUpsert(true),
	)

	return lockedOut, lockedUntil
}

// ClearOnSuccess removes the counter after a successful login.
func (s *Store) ClearOnSuccess(ctx context.Context, email string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"email": normalize.Email(email)})
	return err
}

// get returns the counter for email, or nil if there is none.
func (s *Store) get(ctx context.Context, email string) (*Attempt, error) {
	var attempt Attempt
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&attempt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
