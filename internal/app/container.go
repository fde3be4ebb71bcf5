package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/attachments"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/validation"
	"github.com/spec-kit/helpdesk/internal/worker"
)

const metricsNamespace = "helpdesk"

// Container holds the wired services shared by the API server and the CLI.
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Store       persistence.KVStore
	Metrics     *observability.Metrics
	Tokens      *auth.TokenManager
	Directory   *service.DirectoryService
	Tickets     *service.TicketService
	Reports     *service.MetricsService
	Attachments *attachments.Storage

	notifier notify.Notifier
	worker   *worker.NotificationWorker
}

// Build opens the configured backends and wires the services. Call Close
// when done.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	store, err := persistence.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, Logger: logger, Store: store}

	policy, err := auth.NewPolicy()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("build policy: %w", err)
	}
	validator, err := validation.New()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("build validator: %w", err)
	}

	c.Metrics = observability.NewMetrics(metricsNamespace)

	c.notifier, err = notify.New(cfg.Notification, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("build notifier: %w", err)
	}
	c.worker = worker.NewNotificationWorker(c.notifier, logger, c.Metrics, worker.Options{
		Workers:   cfg.Notification.Workers,
		QueueSize: cfg.Notification.QueueSize,
	})
	c.worker.Start()

	userRepo := repository.NewUserRepository(store)
	ticketRepo := repository.NewTicketRepository(store)
	dispatcher := events.NewInMemoryDispatcher(logger)

	c.Tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	c.Directory = service.NewDirectoryService(service.DirectoryDependencies{
		UserRepo:          userRepo,
		SessionRepo:       repository.NewSessionRepository(store),
		Tokens:            c.Tokens,
		Policy:            policy,
		Logger:            logger,
		AllowRoleOverride: cfg.Auth.AllowRoleOverride,
		SeedFile:          cfg.Directory.SeedFile,
	})
	c.Tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:        ticketRepo,
		UserRepo:          userRepo,
		Policy:            policy,
		Validator:         validator,
		Dispatcher:        dispatcher,
		Logger:            logger,
		StrictTransitions: cfg.Tickets.StrictTransitions,
	})
	c.Reports = service.NewMetricsService(ticketRepo, policy, nil)
	service.NewNotificationService(dispatcher, c.worker, logger, cfg.Notification.AdminRecipient).RegisterHandlers()

	collector := observability.NewTicketCollector(metricsNamespace, c.Reports.Snapshot, logger)
	if err := c.Metrics.Register(collector); err != nil {
		c.Close()
		return nil, fmt.Errorf("register ticket collector: %w", err)
	}

	c.Attachments, err = attachments.Open(ctx, cfg.Attachments)
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Seed writes the directory and, when enabled, the demo tickets if their
// records are absent.
func (c *Container) Seed(ctx context.Context) error {
	if err := c.Directory.EnsureSeeded(ctx); err != nil {
		return err
	}
	if !c.Config.Storage.SeedDemo {
		return nil
	}
	return c.Tickets.EnsureDemoData(ctx)
}

// Close drains pending notifications and releases every backend.
func (c *Container) Close() error {
	var errs []error
	if c.worker != nil {
		c.worker.Stop()
	}
	if c.notifier != nil {
		if err := c.notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close notifier: %w", err))
		}
	}
	if c.Attachments != nil {
		if err := c.Attachments.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close attachments: %w", err))
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
