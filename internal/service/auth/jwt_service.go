package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenLifetime is the access token lifetime used when none is configured.
const DefaultTokenLifetime = 30 * time.Minute

// JWTService issues and validates access tokens. There are no refresh tokens;
// clients log in again once a token expires.
type JWTService interface {
	// GenerateToken creates a signed access token for the user.
	GenerateToken(ctx context.Context, userID uuid.UUID, username string) (*Token, error)

	// ValidateToken verifies the signature and time claims of tokenString and
	// returns its claims. Returns ErrExpiredToken or ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Token is a signed access token and the moment it stops being accepted.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Claims are the validated contents of an access token.
type Claims struct {
	UserID    uuid.UUID `json:"uid,omitempty"`
	Username  string    `json:"username,omitempty"`
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
