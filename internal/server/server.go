package server

import (
	"context"
	"time"

	"userhub/internal/config"
	"userhub/internal/handlers"
	"userhub/internal/metrics"
	"userhub/internal/middleware"
	"userhub/internal/repositories"
	"userhub/internal/services"
	"userhub/internal/storage"
	"userhub/pkg/response"
	"userhub/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
)

const healthTimeout = 2 * time.Second

// Dependencies are the resources the HTTP server is built on. Publisher may
// be nil, in which case events are dropped.
type Dependencies struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Users     repositories.UserRepository
	Publisher services.EventPublisher
}

// New wires services, handlers and the middleware chain into a Fiber app.
func New(deps Dependencies) (*fiber.App, error) {
	cfg, logger := deps.Config, deps.Logger

	hasher, err := services.NewPasswordHasher(cfg.PasswordHasher)
	if err != nil {
		return nil, err
	}
	tokens := services.NewTokenService(services.TokenConfig{
		Secret: cfg.JWTSecret,
		TTL:    cfg.JWTTTL,
	}, logger)

	registry := metrics.New()
	userService := services.NewUserService(deps.Users, hasher, deps.Publisher, registry, logger)

	userHandler := handlers.NewUserHandler(userService, tokens, validation.New())
	fileHandler := handlers.NewFileHandler(
		storage.NewLocalBlobStore(cfg.UploadDir),
		storage.NewLocalBlobStore(cfg.StorageDir),
		logger,
	)

	app := fiber.New(fiber.Config{
		AppName:               "userhub",
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          response.ErrorHandler(logger),
		DisableStartupMessage: true,
	})

	// metrics hands errors to the ErrorHandler; recover has to run inside it.
	app.Use(requestid.New())
	app.Use(middleware.NewRequestLoggerMiddleware(logger).Handle())
	app.Use(registry.HTTPMiddleware())
	app.Use(recover.New())

	app.Get("/health", response.Handle(func(c *fiber.Ctx) (any, error) {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		if err := userService.Ping(ctx); err != nil {
			logger.WithError(err).Error("Health check failed")
			return nil, fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
		}
		return response.Success(fiber.Map{
			"status":   "healthy",
			"database": "connected",
			"time":     time.Now().Format(time.RFC3339),
		}, "ok"), nil
	}))
	app.Get("/metrics", registry.Handler())
	app.Static("/static", cfg.StaticDir)

	userHandler.RegisterRoutes(app, middleware.AuthRequired(tokens))
	fileHandler.RegisterRoutes(app)

	return app, nil
}
