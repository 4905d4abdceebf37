package storage

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/nejkit/telegram-drive-bridge/config"
	"github.com/nejkit/telegram-drive-bridge/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Open initializes the task store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (TaskStorage, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	log := logrus.WithField("driver", driver)

	switch driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		ping := func() error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.WithError(err).Warn("redis is not reachable yet")
				return err
			}

			return nil
		}

		policy := backoff.NewExponentialBackOff()
		policy.MaxElapsedTime = 30 * time.Second

		if err := backoff.Retry(ping, backoff.WithContext(policy, ctx)); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(err, "connect redis")
		}

		log.Info("task storage opened")

		return NewRedisTaskStorage(cfg.Prefix, client), nil

	case "sqlite", "sqlite3":
		store, err := NewSQLiteTaskStorage(ctx, cfg.SQLitePath, cfg.BusyTimeout)

		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}

		log.WithField("path", cfg.SQLitePath).Info("task storage opened")

		return store, nil

	case "memory":
		cache, err := NewTaskCache()

		if err != nil {
			return nil, errors.Wrap(err, "create task cache")
		}

		log.Warn("task storage is in memory, records are lost on restart")

		return NewInMemoryTaskStorage(cache), nil

	default:
		return nil, errors.Wrapf(domain.ErrorUnknownStorageDriver, "driver %q", cfg.Driver)
	}
}
