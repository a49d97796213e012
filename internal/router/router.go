package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/talent-tree-api/internal/config"
	"github.com/noah-isme/talent-tree-api/internal/handler"
	"github.com/noah-isme/talent-tree-api/internal/middleware"
	"github.com/noah-isme/talent-tree-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler *handler.ActivitySubmissionHandler
	AttendanceHandler *handler.AttendanceHandler
	ProfileHandler    *handler.ProfileHandler
	HistoryHandler    *handler.HistoryHandler
	LedgerHandler     *handler.LedgerHandler
	LiveHandler       *handler.LiveHandler
	SeedHandler       *handler.SeedHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	v2 := app.Group("/api/v2", jwtMiddleware)

	if deps.SubmissionHandler != nil {
		submissions := v2.Group("/submissions", middleware.RateLimit("submissions", 60, time.Minute))
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.AttendanceHandler != nil {
		deps.AttendanceHandler.Register(v2)
	}

	// Static profile routes must precede /profiles/:id.
	if deps.ProfileHandler != nil {
		deps.ProfileHandler.Register(v2)
	}

	if deps.HistoryHandler != nil {
		deps.HistoryHandler.Register(v2)
	}

	if deps.LedgerHandler != nil {
		deps.LedgerHandler.Register(v2)
	}

	if deps.LiveHandler != nil {
		deps.LiveHandler.Register(v2)
	}

	if deps.SeedHandler != nil && cfg.SeedEnabled {
		seed := v2.Group("/seed", middleware.RequireRole("teacher"))
		deps.SeedHandler.Register(seed)
	}
}
