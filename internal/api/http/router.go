package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/expense-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/expense-ticket-service/internal/auth"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tenants        *handlers.TenantsHandler
	Tickets        *handlers.TicketsHandler
	Assists        *handlers.AssistsHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	tenant := protected.Group("/tenant")
	tenant.Post("/initialize", auth.RequireRole(domain.RoleAdmin), cfg.Tenants.Initialize)
	tenant.Get("/levels", cfg.Tenants.Levels)
	tenant.Get("/departments", cfg.Tenants.Departments)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/pending", cfg.Tickets.Pending)
	tickets.Get("/available", cfg.Tickets.Available)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/approve", cfg.Tickets.Approve)
	tickets.Post("/:id/reject", cfg.Tickets.Reject)
	tickets.Post("/:id/take", cfg.Tickets.Take)
	tickets.Post("/:id/finish", cfg.Tickets.Finish)

	me := protected.Group("/me")
	me.Get("/current", cfg.Tickets.Current)
	me.Get("/history", cfg.Tickets.History)

	assists := protected.Group("/assists")
	assists.Post("", cfg.Assists.CreateAssist)
	assists.Get("/available", cfg.Assists.Available)
	assists.Post("/:id/join", cfg.Assists.JoinAssist)
	assists.Post("/:id/close", cfg.Assists.CloseAssist)

	reports := protected.Group("/reports")
	reports.Get("/pie", cfg.Reports.Pie)
	reports.Get("/bar", cfg.Reports.Bar)
	reports.Get("/pie.xlsx", cfg.Reports.PieWorkbook)
	reports.Get("/bar.xlsx", cfg.Reports.BarWorkbook)
}
