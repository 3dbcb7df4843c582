// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"accounts/internal/delivery/http/middleware"
	"accounts/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler        *handler.AuthHandler
	AdminHandler       *handler.AdminHandler
	AdminKeyMiddleware *middleware.AdminKeyMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler        *handler.AuthHandler
	adminHandler       *handler.AdminHandler
	adminKeyMiddleware *middleware.AdminKeyMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:        params.AuthHandler,
		adminHandler:       params.AdminHandler,
		adminKeyMiddleware: params.AdminKeyMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)

	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register", r.authHandler.Register)
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.GET("/exists", r.authHandler.Exists)
	}

	// Admin routes exist only when admin.apiKey is set.
	if !r.adminKeyMiddleware.Enabled() {
		return
	}

	adminGroup := e.Group("/admin", r.adminKeyMiddleware.Authenticate())
	{
		adminGroup.PUT("/users/:id/active", r.adminHandler.SetActive)
	}
}
