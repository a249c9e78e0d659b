package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/exeats-api/internal/config"
	"github.com/noah-isme/exeats-api/internal/handler"
	"github.com/noah-isme/exeats-api/internal/middleware"
	"github.com/noah-isme/exeats-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	SlotHandler     *handler.SlotHandler
	StudentHandler  *handler.StudentHandler
	EmailHandler    *handler.EmailHandler
	SignupHandler   *handler.SignupHandler
	FeedHandler     *handler.FeedHandler
	ActivityHandler *handler.ActivityHandler
	AdminHandler    *handler.AdminHandler
	DeployHandler   *handler.DeployHandler
	HealthProbes    map[string]handler.Probe
	Session         fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})

	app.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))
	app.Get("/metrics", observability.MetricsHandler())

	// Signup links and the deploy hook carry their own credentials.
	if deps.SignupHandler != nil {
		deps.SignupHandler.Register(app.Group("/signup"))
	}
	if deps.DeployHandler != nil {
		deps.DeployHandler.Register(app)
	}

	if deps.Session != nil {
		app.Use(deps.Session)
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(app)
	}

	tutor := app.Group("/tutor", middleware.RequireTutor())
	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterSettings(tutor)
	}
	if deps.SlotHandler != nil {
		deps.SlotHandler.Register(tutor)
	}
	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(tutor)
	}
	if deps.EmailHandler != nil {
		deps.EmailHandler.Register(tutor)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(tutor)
	}
	if deps.FeedHandler != nil {
		deps.FeedHandler.Register(tutor)
	}

	admin := app.Group("/admin", middleware.RequireAdmin())
	if deps.AdminHandler != nil {
		deps.AdminHandler.Register(admin)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.RegisterAdmin(admin)
	}
}
