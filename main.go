package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"userhub/internal/config"
	"userhub/internal/logging"
	"userhub/internal/models"
	"userhub/internal/repositories"
	"userhub/internal/server"
	"userhub/internal/services"
	"userhub/pkg/database"
	"userhub/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server stopped with error")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Persistence ---
	users, closeUsers, err := openUserRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer closeUsers()

	// --- Events ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.EventsQueue}, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := mqClient.Close(); err != nil {
				logger.WithError(err).Warn("Error closing RabbitMQ client")
			}
		}()
		publisher = mqClient

		err = mqClient.Consume(ctx, func(body []byte) error {
			logger.WithField("event", string(body)).Info("Received user event")
			return nil
		})
		if err != nil {
			logger.WithError(err).Warn("Failed to start RabbitMQ consumer")
		}
	} else {
		logger.Info("RABBITMQ_URL not set, user events are disabled")
	}

	// --- HTTP ---
	app, err := server.New(server.Dependencies{
		Config:    cfg,
		Logger:    logger,
		Users:     users,
		Publisher: publisher,
	})
	if err != nil {
		return err
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.AppPort).Info("Starting server")
		listenErr <- app.Listen(cfg.AppPort)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.WithError(err).Error("Error during Fiber shutdown")
	}
	logger.Info("Server gracefully stopped")
	return nil
}

func openUserRepository(cfg *config.Config, logger *logrus.Logger) (repositories.UserRepository, func(), error) {
	if cfg.DBDriver == config.DriverMemory {
		logger.Warn("Using in-memory user repository, data is lost on restart")
		return repositories.NewInMemoryUserRepository(), func() {}, nil
	}

	db, err := database.Open(database.Config{Driver: cfg.DBDriver, DSN: cfg.DatabaseDSN}, logger, &models.User{})
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := database.Close(db); err != nil {
			logger.WithError(err).Warn("Error closing database")
		}
	}
	return repositories.NewGORMUserRepository(db), closeDB, nil
}
