package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldlink/feedback-engine/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Feedback *handlers.FeedbackHandler
	Tickets  *handlers.TicketsHandler
	Queue    *handlers.QueueHandler
	Alerts   *handlers.AlertsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/feedback", cfg.Feedback.Submit)

	tickets := app.Group("/tickets")
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/:number", cfg.Tickets.Get)
	tickets.Post("/:number/respond", cfg.Tickets.Respond)
	tickets.Post("/:number/messages", cfg.Tickets.AddMessage)
	tickets.Post("/:number/close", cfg.Tickets.Close)
	tickets.Post("/:number/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:number/rating", cfg.Tickets.Rate)

	app.Get("/queue/:department", cfg.Queue.Department)
	app.Get("/alerts", cfg.Alerts.List)
}
