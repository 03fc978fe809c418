package middleware

import (
	"strings"

	deliverycontext "dubaivat/internal/delivery/context"
	domainerrors "dubaivat/internal/domain/errors"
	"dubaivat/internal/domain/service"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware restricts routes to the holder of the current session's access token.
type AuthMiddleware struct {
	tokenSvc service.TokenService
	provider service.IdentityProvider
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService, provider service.IdentityProvider) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc, provider: provider}
}

// Authenticate validates the bearer access token and checks that it belongs to
// the identity that is signed in right now.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return domainerrors.ErrNotAuthenticated.WithDetails("authorization header is missing")
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			return domainerrors.ErrTokenInvalid.WithDetails("must be a Bearer token")
		}

		claims, err := m.tokenSvc.ValidateToken(tokenString)
		if err != nil {
			return err
		}
		if claims.Type != "access" {
			return domainerrors.ErrTokenInvalid.WithDetails("not an access token")
		}

		session, err := m.provider.GetSession(c.Request().Context())
		if err != nil {
			return err
		}
		if session == nil || session.Identity.ID != claims.UserID {
			return domainerrors.ErrNotAuthenticated.WithDetails("token does not belong to the current session")
		}

		deliverycontext.SetUserID(c, claims.UserID)

		return next(c)
	}
}
