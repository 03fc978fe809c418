package service

import (
	"time"

	"dubaivat/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims defines the custom claims for the JWT tokens.
type Claims struct {
	UserID   uuid.UUID           `json:"uid"`
	Email    string              `json:"email,omitempty"`
	Metadata entity.UserMetadata `json:"user_metadata"`
	Type     string              `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // Expiry of the access token.
}

// TokenService defines the interface for generating and validating JWTs.
// This abstracts the details of token creation from the identity provider.
type TokenService interface {
	// GenerateTokens creates a new access token and refresh token for an identity.
	GenerateTokens(identity entity.Identity) (*TokenPair, error)

	// ValidateToken checks the validity of a token string.
	ValidateToken(tokenString string) (*Claims, error)
}
