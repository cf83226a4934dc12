package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/coursecart/internal/config"
	"github.com/nikolayk812/coursecart/internal/port"
	"github.com/nikolayk812/coursecart/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// newStorage builds the configured backend behind a circuit breaker.
// The returned func releases the backend's connections.
func newStorage(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (port.CartStorage, func(), error) {
	var (
		storage port.CartStorage
		cleanup = func() {}
		err     error
	)

	switch cfg.Backend {
	case "memory":
		storage = repository.NewMemoryStorage()

	case "file":
		storage, err = repository.NewFileStorage(afero.NewOsFs(), cfg.File.Dir, cfg.Key)
		if err != nil {
			return nil, nil, fmt.Errorf("repository.NewFileStorage: %w", err)
		}

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("client.Ping: %w", err)
		}
		cleanup = func() { _ = client.Close() }

		storage, err = repository.NewRedisStorage(client, cfg.Key)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("repository.NewRedisStorage: %w", err)
		}

	case "postgres":
		if err := repository.Migrate(ctx, cfg.Postgres.URL); err != nil {
			return nil, nil, fmt.Errorf("repository.Migrate: %w", err)
		}

		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("pgxpool.New: %w", err)
		}
		cleanup = pool.Close

		storage, err = repository.NewPostgresStorage(pool, cfg.Key)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("repository.NewPostgresStorage: %w", err)
		}

	default:
		return nil, nil, fmt.Errorf("storage backend[%s] is not supported", cfg.Backend)
	}

	storage = repository.NewBreakerStorage(storage, repository.BreakerSettings{
		Name:        "cart-storage-" + cfg.Backend,
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
		Logger:      log.Named("storage"),
	})

	return storage, cleanup, nil
}
