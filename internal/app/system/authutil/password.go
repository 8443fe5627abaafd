// Package authutil hashes and verifies account passwords.
package authutil

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Password validation constants.
// bcrypt only considers the first 72 bytes, so longer passwords are rejected.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
	BcryptCost        = 12
)

// Password validation errors
var (
	ErrPasswordTooShort = errors.New("Password must be at least 6 characters.")
	ErrPasswordTooLong  = errors.New("Password must be at most 72 bytes.")
	ErrPasswordCommon   = errors.New("This password is too common. Please choose a different one.")
)

var commonPasswords = map[string]bool{
	"123456":     true,
	"1234567":    true,
	"12345678":   true,
	"123456789":  true,
	"password":   true,
	"password1":  true,
	"qwerty":     true,
	"qwerty123":  true,
	"abc123":     true,
	"111111":     true,
	"000000":     true,
	"123123":     true,
	"iloveyou":   true,
	"letmein":    true,
	"welcome":    true,
	"student":    true,
	"faculty":    true,
	"research":   true,
	"university": true,
}

// ValidatePassword checks if a password meets the requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	if commonPasswords[strings.ToLower(password)] {
		return ErrPasswordCommon
	}
	return nil
}

// Hasher is the one-way password hash used by the credential store.
// The zero value uses BcryptCost.
type Hasher struct {
	Cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher returns a Hasher with the given bcrypt cost. Costs outside
// bcrypt's range fall back to BcryptCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = BcryptCost
	}
	return &Hasher{Cost: cost}
}

func (h *Hasher) cost() int {
	if h == nil || h.Cost == 0 {
		return BcryptCost
	}
	return h.Cost
}

// Hash returns the bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. Compare is constant-time.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Burn spends roughly the time of one Verify against a throwaway hash.
// Login calls it for unknown emails so response timing does not reveal
// which addresses have accounts.
func (h *Hasher) Burn(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-account"), h.cost())
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}
