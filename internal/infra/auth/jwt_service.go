// Package auth provides the local identity provider and the token and password
// services it is built from.
package auth

import (
	"time"

	"dubaivat/config"
	"dubaivat/internal/domain/entity"
	domainerrors "dubaivat/internal/domain/errors"
	"dubaivat/internal/domain/service"
	"dubaivat/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	tokenIssuer = "dubaivat"
)

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	accessSecret  string        // Secret key for signing access tokens.
	refreshSecret string        // Secret key for signing refresh tokens.
	accessTTL     time.Duration // Time-to-live for access tokens.
	refreshTTL    time.Duration // Time-to-live for refresh tokens.
	now           func() time.Time
}

// NewJWTService is the constructor for jwtService.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.SecretKey.Access == "" || cfg.SecretKey.Refresh == "" {
		return nil, errors.New("jwt secrets must be provided")
	}

	authCfg := cfg.Auth
	if authCfg == nil {
		authCfg = &config.AuthConfig{}
	}
	authCfg.ApplyDefaults()

	return &jwtService{
		accessSecret:  cfg.SecretKey.Access,
		refreshSecret: cfg.SecretKey.Refresh,
		accessTTL:     authCfg.AccessTokenTTL,
		refreshTTL:    authCfg.RefreshTokenTTL,
		now:           time.Now,
	}, nil
}

// GenerateTokens creates a new access token and refresh token for an identity.
// The access token carries the user metadata so a session can be rebuilt from it.
func (s *jwtService) GenerateTokens(identity entity.Identity) (*service.TokenPair, error) {
	issuedAt := s.now()
	meta := entity.UserMetadata{
		DisplayName: identity.DisplayName,
		AccountType: identity.AccountType,
	}

	accessToken, err := s.generateToken(identity, meta, issuedAt, s.accessTTL, s.accessSecret, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateToken(identity, entity.UserMetadata{}, issuedAt, s.refreshTTL, s.refreshSecret, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	return &service.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    issuedAt.Add(s.accessTTL),
	}, nil
}

// ValidateToken checks the signature and expiry of either token type. The
// unverified type claim selects the secret, so a refresh token signed with the
// access secret is rejected.
func (s *jwtService) ValidateToken(tokenString string) (*service.Claims, error) {
	claims := &service.Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		switch claims.Type {
		case tokenTypeAccess:
			return []byte(s.accessSecret), nil
		case tokenTypeRefresh:
			return []byte(s.refreshSecret), nil
		default:
			return nil, errors.Errorf("unknown token type %q", claims.Type)
		}
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrTokenInvalid, err.Error())
	}

	return claims, nil
}

// generateToken is a private helper to create a JWT with specific claims.
func (s *jwtService) generateToken(
	identity entity.Identity,
	meta entity.UserMetadata,
	issuedAt time.Time,
	ttl time.Duration,
	secret, tokenType string,
) (string, error) {
	claims := service.Claims{
		UserID:   identity.ID,
		Email:    identity.Email,
		Metadata: meta,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   identity.ID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}
