// Command fieldsync runs the offline-first submission pipeline agent: the
// durable record store, the submission queue runner, the connectivity probe,
// and the retention reaper, per the enabled service modes.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/fieldsync/fieldsync/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.IsDev {
		logger = bootstrap.InitDevLogger()
	}

	if err = bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}

	store, err := bootstrap.OpenStore(&cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close record store failed", "error", cerr)
		}
	}()

	redisClient := bootstrap.NewRedisClient(&cfg)
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cfg,
		Store:       store,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "fieldsync starting",
		"store_path", cfg.Store.Path,
		"remote", cfg.Remote.BaseURL,
		"services", cfg.Services,
	)

	return bootstrap.RunServicesWithShutdown(ctx, &cfg, services, logger)
}
