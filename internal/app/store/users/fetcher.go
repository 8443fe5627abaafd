// internal/app/store/users/fetcher.go
package userstore

import (
	"context"
	"errors"

	"github.com/dalemusser/researchportal/internal/app/system/timeouts"
	"github.com/dalemusser/researchportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is a user together with its role profile.
type Account struct {
	User    models.User    `json:"user"`
	Profile models.Profile `json:"profile"`
}

// LoadAccount loads a user and profile by hex id within a short timeout.
// A user without a profile is returned with an empty Profile; only a
// missing user is ErrNotFound.
func (s *Store) LoadAccount(ctx context.Context, userID string) (*Account, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := s.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	p, err := s.GetProfile(ctx, *u)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return &Account{User: *u, Profile: p}, nil
}
