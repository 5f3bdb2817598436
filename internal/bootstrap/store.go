package bootstrap

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fieldsync/fieldsync/config"
	"github.com/fieldsync/fieldsync/internal/data"
)

// OpenStore opens the durable record store described by the configuration.
func OpenStore(cfg *config.AppConfig) (*data.RecordRepo, error) {
	repo, err := data.Open(cfg.Store.Path, data.RepoConfig{
		QuotaBytes: cfg.Store.QuotaBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("open record store %q: %w", cfg.Store.Path, err)
	}
	return repo, nil
}

// NewRedisClient builds a Redis client when the Redis notification channel is
// configured; it returns nil otherwise.
func NewRedisClient(cfg *config.AppConfig) redis.UniversalClient {
	if cfg.Notify.RedisChannel == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
