package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/app"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Error("helpdesk api stopped", zap.Error(err))
		os.Exit(1)
	}
}

// run serves until SIGINT/SIGTERM or a listener failure, then drains the
// server and releases the container.
func run(cfg *config.Config, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	defer func() {
		if cerr := container.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("release backends: %w", cerr))
		}
	}()

	if err := container.Seed(ctx); err != nil {
		return fmt.Errorf("seed records: %w", err)
	}

	server := newServer(cfg, logger, container)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		listenErr <- server.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down", zap.Duration("grace", shutdownGrace))
	}

	if err := server.ShutdownWithTimeout(shutdownGrace); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	return nil
}

func newServer(cfg *config.Config, logger *zap.Logger, container *app.Container) *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             bodyLimit(cfg),
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(server, logger, container.Metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			storageName(cfg.Storage.Driver): container.Store,
			"attachments":                   container.Attachments,
		}),
		Users:          handlers.NewUsersHandler(container.Directory),
		Tickets:        handlers.NewTicketsHandler(container.Tickets, container.Attachments, logger),
		Attachments:    handlers.NewAttachmentsHandler(container.Attachments),
		Metrics:        handlers.NewMetricsHandler(container.Reports),
		Prometheus:     container.Metrics.Handler(),
		AuthMiddleware: auth.NewMiddleware(container.Directory),
	})
	return server
}

func storageName(driver string) string {
	if driver == "" {
		return "memory"
	}
	return driver
}

// bodyLimit leaves room for a few maximum-size files in one multipart create.
func bodyLimit(cfg *config.Config) int {
	limit := int(cfg.Attachments.MaxSizeBytes) * 4
	if limit < fiber.DefaultBodyLimit {
		return fiber.DefaultBodyLimit
	}
	return limit
}
