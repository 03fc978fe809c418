package handler

import (
	"log/slog"
	"net/http"
	"time"

	"dubaivat/internal/delivery/http/response"
	"dubaivat/internal/domain/service"
	"dubaivat/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// SessionHandler serves the session read model and the sign-in commands.
type SessionHandler struct {
	uc       usecase.SessionUsecase
	provider service.IdentityProvider
	logger   *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler, injected by Fx.
func NewSessionHandler(uc usecase.SessionUsecase, provider service.IdentityProvider, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		uc:       uc,
		provider: provider,
		logger:   logger,
	}
}

// SessionOutput is the read model plus its derived READY classification.
type SessionOutput struct {
	usecase.Snapshot
	Readiness string `json:"readiness,omitempty"`
}

// TokensOutput carries the credentials the client presents on protected routes.
type TokensOutput struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthOutput is returned by sign-in and sign-up.
type AuthOutput struct {
	Tokens  *TokensOutput `json:"tokens"`
	Session SessionOutput `json:"session"`
}

func newSessionOutput(snapshot usecase.Snapshot) SessionOutput {
	return SessionOutput{Snapshot: snapshot, Readiness: snapshot.Readiness()}
}

// GetSession returns the current snapshot.
func (h *SessionHandler) GetSession(c echo.Context) error {
	return response.Success(c, http.StatusOK, newSessionOutput(h.uc.Snapshot()), "")
}

func (h *SessionHandler) SignUp(c echo.Context) error {
	var input *usecase.SignUpInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sign-up input")
	}

	if err := h.uc.SignUp(c.Request().Context(), input); err != nil {
		return errors.WithStack(err)
	}

	return h.respondWithSession(c, http.StatusCreated, "Account created")
}

func (h *SessionHandler) SignIn(c echo.Context) error {
	var input *usecase.SignInInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sign-in input")
	}

	if err := h.uc.SignIn(c.Request().Context(), input); err != nil {
		return errors.WithStack(err)
	}

	return h.respondWithSession(c, http.StatusOK, "Signed in")
}

// UpdateUser changes the account metadata and returns the reissued tokens.
func (h *SessionHandler) UpdateUser(c echo.Context) error {
	var input *usecase.UpdateUserInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid user input")
	}
	if input == nil {
		input = &usecase.UpdateUserInput{}
	}

	if err := h.uc.UpdateUser(c.Request().Context(), input); err != nil {
		return errors.WithStack(err)
	}

	return h.respondWithSession(c, http.StatusOK, "User updated")
}

func (h *SessionHandler) SignOut(c echo.Context) error {
	if err := h.uc.SignOut(c.Request().Context()); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newSessionOutput(h.uc.Snapshot()), "Signed out")
}

// respondWithSession answers before the machine has necessarily applied the
// SIGNED_IN event; clients follow up on GET /session.
func (h *SessionHandler) respondWithSession(c echo.Context, status int, message string) error {
	session, err := h.provider.GetSession(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	output := AuthOutput{Session: newSessionOutput(h.uc.Snapshot())}
	if session != nil {
		output.Tokens = &TokensOutput{
			AccessToken:  session.AccessToken,
			RefreshToken: session.RefreshToken,
			ExpiresAt:    session.ExpiresAt,
		}
	}

	return response.Success(c, status, output, message)
}
