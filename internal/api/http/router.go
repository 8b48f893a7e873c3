package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/api/http/handlers"
	"github.com/spec-kit/support-portal/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Tickets           *handlers.TicketsHandler
	Sessions          *handlers.SessionsHandler
	Admin             *handlers.AdminHandler
	Theme             *handlers.ThemeHandler
	SessionMiddleware *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	// public surface: the customer form and the identity gate
	api.Post("/tickets", cfg.Tickets.Submit)
	api.Post("/session/login", cfg.Sessions.Login)
	api.Get("/theme", cfg.Theme.Get)
	api.Put("/theme", cfg.Theme.Set)

	// dashboards require an active session
	protected := api.Group("", cfg.SessionMiddleware.Handle)
	protected.Get("/tickets", cfg.Tickets.List)
	protected.Get("/tickets/:id", cfg.Tickets.Get)
	protected.Post("/tickets/:id/comments", cfg.Tickets.AddComment)
	protected.Post("/session/logout", cfg.Sessions.Logout)
	protected.Post("/admin/login", cfg.Admin.Login)

	// destructive and edit actions sit behind the admin grant
	admin := protected.Group("", auth.RequireAdmin())
	admin.Put("/tickets/:id", cfg.Admin.Update)
	admin.Delete("/tickets/:id", cfg.Admin.Delete)
}
