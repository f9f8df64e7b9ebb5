package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicseva/civic-complaints/internal/api/http/handlers"
	"github.com/civicseva/civic-complaints/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Session           *handlers.SessionHandler
	Profile           *handlers.ProfileHandler
	Complaints        *handlers.ComplaintsHandler
	Authority         *handlers.AuthorityHandler
	Chat              *handlers.ChatHandler
	SessionMiddleware *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Get("/categories", cfg.Profile.Categories)

	resolved := app.Group("", cfg.SessionMiddleware.Handle)
	resolved.Get("/auth/session", cfg.Session.Session)
	resolved.Post("/auth/signout", auth.RequireSession(), cfg.Session.SignOut)
	resolved.Get("/gate/:view", cfg.Session.Gate)

	resolved.Get("/profile", auth.RequireSession(), cfg.Profile.Get)
	resolved.Put("/profile", auth.RequireSession(), cfg.Profile.Update)
	resolved.Post("/chat", auth.RequireSession(), cfg.Chat.Chat)

	complaints := resolved.Group("/complaints")
	complaints.Post("/", auth.RequireCitizen(), cfg.Complaints.Submit)
	complaints.Get("/mine", auth.RequireCitizen(), cfg.Complaints.Mine)
	complaints.Get("/map", auth.RequireSession(), cfg.Complaints.Map)
	complaints.Get("/:id", auth.RequireSession(), cfg.Complaints.Get)
	complaints.Get("/:id/reviews", auth.RequireSession(), cfg.Complaints.Reviews)
	complaints.Post("/:id/votes", auth.RequireCitizen(), cfg.Complaints.Vote)
	complaints.Post("/:id/vote-instead", auth.RequireCitizen(), cfg.Complaints.VoteInstead)
	complaints.Post("/:id/reopen", auth.RequireSession(), cfg.Complaints.Reopen)
	complaints.Post("/:id/reviews", auth.RequireSession(), cfg.Complaints.Review)

	authority := resolved.Group("/authority", auth.RequireAdmin())
	authority.Get("/complaints", cfg.Authority.List)
	authority.Get("/stats", cfg.Authority.Stats)
	authority.Post("/complaints/:id/status", cfg.Authority.UpdateStatus)
	authority.Get("/complaints/:id/history", cfg.Authority.History)
}
