package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cliphub/support-service/internal/api/http/handlers"
	"github.com/cliphub/support-service/internal/auth"
	"github.com/cliphub/support-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	Stats          *handlers.StatsHandler
	Templates      *handlers.TemplatesHandler
	Agents         *handlers.AgentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Auth.RegisterUser)
	authGroup.Post("/users/login", cfg.Auth.LoginUser)
	authGroup.Post("/agents/login", cfg.Auth.LoginAgent)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	protectedAuth := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyPrincipal())
	protectedAuth.Post("/password/change", cfg.Auth.ChangePassword)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireUser())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Post("/:id/satisfaction", cfg.Tickets.RateTicket)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAgentRole())
	admin.Get("/stats", cfg.Stats.Overview)

	adminTickets := admin.Group("/tickets")
	adminTickets.Get("", cfg.AdminTickets.ListTickets)
	adminTickets.Get("/export", cfg.AdminTickets.ExportCSV)
	adminTickets.Post("/bulk/status", cfg.AdminTickets.BulkUpdateStatus)
	adminTickets.Post("/bulk/assign", cfg.AdminTickets.BulkAssign)
	adminTickets.Get("/:id", cfg.AdminTickets.GetTicket)
	adminTickets.Post("/:id/reply", cfg.AdminTickets.Reply)
	adminTickets.Patch("/:id/status", cfg.AdminTickets.UpdateStatus)
	adminTickets.Patch("/:id/priority", cfg.AdminTickets.UpdatePriority)
	adminTickets.Patch("/:id/assign", cfg.AdminTickets.Assign)
	adminTickets.Post("/:id/tags", cfg.AdminTickets.AddTag)
	adminTickets.Delete("/:id/tags/:tag", cfg.AdminTickets.RemoveTag)
	adminTickets.Post("/:id/notes", cfg.AdminTickets.AddNote)
	adminTickets.Get("/:id/history", cfg.AdminTickets.History)
	adminTickets.Delete("/:id", cfg.AdminTickets.DeleteTicket)

	templates := admin.Group("/templates")
	templates.Get("", cfg.Templates.List)
	templates.Post("", cfg.Templates.Save)
	templates.Get("/:id", cfg.Templates.Get)
	templates.Post("/:id/render", cfg.Templates.Render)
	templates.Delete("/:id", cfg.Templates.Delete)

	agents := admin.Group("/agents")
	agents.Get("", cfg.Agents.List)
	agents.Post("", auth.RequireAgentRole(domain.AgentRoleAdmin), cfg.Agents.Create)
	agents.Patch("/:id", auth.RequireAgentRole(domain.AgentRoleAdmin), cfg.Agents.Update)
}
