package handler

import (
	"log/slog"
	"net/http"

	deliverycontext "dubaivat/internal/delivery/context"
	"dubaivat/internal/delivery/http/response"
	"dubaivat/internal/domain/entity"
	"dubaivat/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// OnboardingHandler serves the profile completion commands. Every route sits
// behind the auth middleware.
type OnboardingHandler struct {
	uc     usecase.SessionUsecase
	logger *slog.Logger
}

// NewOnboardingHandler is the constructor for OnboardingHandler, injected by Fx.
func NewOnboardingHandler(uc usecase.SessionUsecase, logger *slog.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		uc:     uc,
		logger: logger,
	}
}

func (h *OnboardingHandler) Complete(c echo.Context) error {
	var input entity.BusinessProfileData
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid business profile")
	}

	profile, err := h.uc.CompleteOnboarding(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, profile, "Business profile saved")
}

func (h *OnboardingHandler) Skip(c echo.Context) error {
	if err := h.uc.SkipOnboarding(c.Request().Context()); err != nil {
		return errors.WithStack(err)
	}

	userID, _ := deliverycontext.GetUserID(c)
	deliverycontext.GetLoggerOrDefault(c.Request().Context(), h.logger).Info("Onboarding skipped", slog.Any("user_id", userID))

	return response.Success(c, http.StatusOK, newSessionOutput(h.uc.Snapshot()), "Onboarding skipped")
}

func (h *OnboardingHandler) CompleteIndividual(c echo.Context) error {
	var input entity.IndividualProfileData
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid individual profile")
	}

	profile, err := h.uc.CompleteIndividualProfile(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, profile, "Individual profile saved")
}

// RefreshProfile re-reads the profile and returns the updated user.
func (h *OnboardingHandler) RefreshProfile(c echo.Context) error {
	user, err := h.uc.RefreshProfile(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, user, "")
}
