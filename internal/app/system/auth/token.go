package auth

import (
	"errors"
	"time"

	"github.com/dalemusser/researchportal/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token verification failures. Both mean "no session" to callers; they are
// distinguished only for logging.
var (
	ErrTokenExpired = errors.New("session token expired")
	ErrTokenInvalid = errors.New("session token invalid")
)

// tokenIssuer is stamped into every token and required on verify.
const tokenIssuer = "researchportal"

// Claims is the identity carried by a session token.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Codec mints and verifies HS256 session tokens.
type Codec struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewCodec returns a Codec signing with secret. Tokens expire after expiry.
func NewCodec(secret string, expiry time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, &SessionConfigError{Message: "token secret is empty"}
	}
	if expiry <= 0 {
		return nil, &SessionConfigError{Message: "token expiry must be positive"}
	}
	return &Codec{secret: []byte(secret), expiry: expiry, now: time.Now}, nil
}

// Expiry returns the configured token lifetime.
func (c *Codec) Expiry() time.Duration {
	return c.expiry
}

// Mint signs a new token for u with a fresh jti.
func (c *Codec) Mint(u models.User) (string, *Claims, error) {
	now := c.now().UTC()
	claims := &Claims{
		UserID: u.ID.Hex(),
		Role:   u.Role,
		Email:  u.Email,
		Name:   u.FullName(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.Hex(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks the signature, algorithm, issuer and expiry of raw and
// returns its claims. Any failure yields ErrTokenExpired or ErrTokenInvalid.
func (c *Codec) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenInvalid
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" || claims.ID == "" || !models.IsValidRole(claims.Role) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
