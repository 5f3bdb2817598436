package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/fieldsync/fieldsync/config"
	"github.com/fieldsync/fieldsync/internal/adapters/queuerunner"
	"github.com/fieldsync/fieldsync/internal/connectivity"
	"github.com/fieldsync/fieldsync/internal/data"
	"github.com/fieldsync/fieldsync/internal/observability/notify"
	"github.com/fieldsync/fieldsync/internal/observability/notify/redispub"
	"github.com/fieldsync/fieldsync/internal/observability/notify/webhook"
	"github.com/fieldsync/fieldsync/internal/remote"
	"github.com/fieldsync/fieldsync/internal/service"
	"github.com/fieldsync/fieldsync/internal/service/deliverynotifier"
)

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	Store       *data.RecordRepo
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// ServiceContainer holds all application services. Remote, Submission and
// Drafts are nil when no remote endpoint is configured (reaper-only mode).
type ServiceContainer struct {
	Monitor    *connectivity.Monitor
	Remote     *remote.Client
	Notifier   *deliverynotifier.Service
	Submission *service.SubmissionService
	Drafts     *service.DraftController
	Reaper     *service.ReaperService
}

// NewServices wires up the pipeline services from shared dependencies.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	monitor := connectivity.NewMonitor(connectivity.MonitorOptions{
		Logger: logger.With("component", "connectivity"),
	})

	notifier, err := newNotifier(cfg, deps.RedisClient, logger)
	if err != nil {
		return nil, err
	}

	var remoteClient *remote.Client
	var submission *service.SubmissionService
	var drafts *service.DraftController
	if cfg.Remote.BaseURL != "" {
		remoteClient, err = remote.NewClient(remote.Config{
			BaseURL: cfg.Remote.BaseURL,
			Timeout: cfg.Remote.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("build remote client: %w", err)
		}

		submission, err = service.NewSubmissionService(service.SubmissionServiceOptions{
			Store:    deps.Store,
			Remote:   remoteClient,
			Notifier: notifier,
			Config:   cfg.Queue,
			Logger:   logger.With("component", "submission_queue"),
		})
		if err != nil {
			return nil, fmt.Errorf("build submission service: %w", err)
		}

		drafts, err = service.NewDraftController(service.DraftControllerOptions{
			Store:        deps.Store,
			Queue:        submission,
			Connectivity: monitor,
			Config:       cfg.Draft,
			Logger:       logger.With("component", "draft_controller"),
		})
		if err != nil {
			return nil, fmt.Errorf("build draft controller: %w", err)
		}
	}

	reaper, err := service.NewReaperService(service.ReaperServiceOptions{
		Store:  deps.Store,
		Config: cfg.Reaper,
		Logger: logger.With("component", "reaper"),
	})
	if err != nil {
		return nil, fmt.Errorf("build reaper service: %w", err)
	}

	return &ServiceContainer{
		Monitor:    monitor,
		Remote:     remoteClient,
		Notifier:   notifier,
		Submission: submission,
		Drafts:     drafts,
		Reaper:     reaper,
	}, nil
}

func newNotifier(cfg *config.AppConfig, redisClient redis.UniversalClient, logger *slog.Logger) (*deliverynotifier.Service, error) {
	var sinks []deliverynotifier.SinkRegistration

	if cfg.Notify.LogEnabled {
		sinks = append(sinks, deliverynotifier.SinkRegistration{
			Name: "log",
			Sink: notify.NewLogSink(logger.With("component", "delivery_notify")),
		})
	}

	if cfg.Notify.WebhookURL != "" {
		hook, err := webhook.NewClient(webhook.Config{
			URL:        cfg.Notify.WebhookURL,
			Timeout:    cfg.Notify.WebhookTimeout,
			RetryLimit: cfg.Notify.WebhookRetryLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("build webhook sink: %w", err)
		}
		sinks = append(sinks, deliverynotifier.SinkRegistration{Name: "webhook", Sink: hook})
	}

	if cfg.Notify.RedisChannel != "" && redisClient != nil {
		sink, err := redispub.NewSink(redisClient, cfg.Notify.RedisChannel)
		if err != nil {
			return nil, fmt.Errorf("build redis sink: %w", err)
		}
		sinks = append(sinks, deliverynotifier.SinkRegistration{Name: "redis", Sink: sink})
	}

	return deliverynotifier.NewService(deliverynotifier.Options{
		Logger: logger.With("component", "delivery_notifier"),
		Sinks:  sinks,
	}), nil
}

// RunServicesWithShutdown runs the enabled background services until a
// shutdown signal arrives or one of them fails.
func RunServicesWithShutdown(ctx context.Context, cfg *config.AppConfig, services *ServiceContainer, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Connectivity.ProbeURL != "" {
		probe, err := connectivity.NewProbe(connectivity.ProbeOptions{
			Monitor:       services.Monitor,
			URL:           cfg.Connectivity.ProbeURL,
			Interval:      cfg.Connectivity.ProbeInterval,
			SlowThreshold: cfg.Connectivity.SlowThreshold,
			Logger:        logger.With("component", "connectivity_probe"),
		})
		if err != nil {
			return fmt.Errorf("build connectivity probe: %w", err)
		}
		g.Go(func() error { return probe.Run(ctx) })
	}

	if cfg.IsQueueEnabled() && services.Submission != nil {
		runner, err := queuerunner.NewRunner(queuerunner.RunnerOptions{
			Queue:        services.Submission,
			Connectivity: services.Monitor,
			Interval:     cfg.Queue.Interval,
			Logger:       logger.With("component", "queue_runner"),
		})
		if err != nil {
			return fmt.Errorf("build queue runner: %w", err)
		}
		g.Go(func() error { return runner.Run(ctx) })
	}

	if cfg.IsReaperEnabled() {
		g.Go(func() error { return services.Reaper.Run(ctx) })
	}

	logger.InfoContext(ctx, "services started", "services", cfg.Services)
	return g.Wait()
}
