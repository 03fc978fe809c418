// Package router wires the bridge routes onto echo.
package router

import (
	"dubaivat/internal/delivery/http/middleware"
	"dubaivat/internal/delivery/http/router/handler"
	"dubaivat/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	SessionHandler    *handler.SessionHandler
	OnboardingHandler *handler.OnboardingHandler
	AuthMiddleware    *middleware.AuthMiddleware
	Gatherer          prometheus.Gatherer `optional:"true"`
}

// router holds all the handlers that need to be registered.
type router struct {
	sessionHandler    *handler.SessionHandler
	onboardingHandler *handler.OnboardingHandler
	authMiddleware    *middleware.AuthMiddleware
	gatherer          prometheus.Gatherer
}

// NewRouter is the constructor for the Router.
func NewRouter(params RouterParams) *router {
	return &router{
		sessionHandler:    params.SessionHandler,
		onboardingHandler: params.OnboardingHandler,
		authMiddleware:    params.AuthMiddleware,
		gatherer:          params.Gatherer,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
	if r.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(r.gatherer)))
	}

	e.GET("/session", r.sessionHandler.GetSession)

	authGroup := e.Group("/auth")
	{
		authGroup.POST("/signup", r.sessionHandler.SignUp)
		authGroup.POST("/signin", r.sessionHandler.SignIn)
		authGroup.POST("/signout", r.sessionHandler.SignOut)
		authGroup.POST("/user", r.sessionHandler.UpdateUser, r.authMiddleware.Authenticate)
	}

	onboardingGroup := e.Group("/onboarding")
	onboardingGroup.Use(r.authMiddleware.Authenticate)
	{
		onboardingGroup.POST("/complete", r.onboardingHandler.Complete)
		onboardingGroup.POST("/skip", r.onboardingHandler.Skip)
		onboardingGroup.POST("/individual", r.onboardingHandler.CompleteIndividual)
	}

	profileGroup := e.Group("/profile")
	profileGroup.Use(r.authMiddleware.Authenticate)
	{
		profileGroup.POST("/refresh", r.onboardingHandler.RefreshProfile)
	}
}
