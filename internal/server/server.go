package server

import (
	"log"

	"fitness-billing-be/internal/bootstrap"
	"fitness-billing-be/internal/config"
	"fitness-billing-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // notifications are small
	})

	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CorsOrigins(),
		AllowCredentials: cfg.CorsAllowsCredentials(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Signature",
		AllowMethods:     "GET, POST, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	api.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(serverutils.SuccessResponse("OK", fiber.Map{"status": "up"}))
	})

	c.WebhookController.RegisterRoutes(api)
	c.SubscriptionController.RegisterRoutes(api, c.AuthMiddleware)

	// Paid app features mount under this group.
	premium := api.Group("/premium", c.AuthMiddleware, c.RequireSubscribed)
	premium.Get("/access", func(ctx *fiber.Ctx) error {
		return ctx.JSON(serverutils.SuccessResponse("Access granted", fiber.Map{"has_access": true}))
	})
}
