// Package app opens the storage and collections described by a Config. The
// server and the CLI share it so both see the same collections.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/backend"
	"github.com/yangwenmai/storyverse/internal/config"
	"github.com/yangwenmai/storyverse/internal/kv"
	"github.com/yangwenmai/storyverse/internal/notify"
	"github.com/yangwenmai/storyverse/internal/store"
)

const redisPingTimeout = 5 * time.Second

// App bundles the collections of one process.
type App struct {
	Storage  kv.Storage
	Notifier *notify.Notifier
	// Redis is set only for the redis storage driver.
	Redis *redis.Client

	Characters  *store.Characters
	Storyboards *store.Storyboards
	History     *store.SearchHistory
	Recent      *store.RecentSearches

	closers []func() error
}

// Open connects the configured storage and builds every collection.
// confirm gates Delete and ClearAll on the three galleries.
func Open(ctx context.Context, cfg config.Config, confirm store.Confirmer, logger *zap.Logger) (*App, error) {
	a := &App{Notifier: notify.New()}
	quota := kv.WithMaxValueBytes(cfg.StorageQuotaBytes)

	switch cfg.StorageDriver {
	case config.DriverSQLite:
		db, err := kv.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.DBPath, err)
		}
		a.closers = append(a.closers, db.Close)
		s, err := kv.NewSQLite(db, quota)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		a.Storage = s
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		a.Redis = client
		a.Storage = kv.NewRedis(client, cfg.RedisPrefix, quota)
	case config.DriverMemory:
		a.Storage = kv.NewMemory(quota)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	a.Characters = store.NewCharacters(a.Storage, a.Notifier, confirm, logger)
	a.Storyboards = store.NewStoryboards(a.Storage, a.Notifier, confirm, logger)
	a.History = store.NewSearchHistory(a.Storage, a.Notifier, confirm, cfg.HistoryLimit, logger)
	a.Recent = store.NewRecentSearches(a.Storage, a.Notifier, cfg.RecentLimit, logger)

	logger.Info("storage ready", zap.String("driver", cfg.StorageDriver), zap.Int("quota_bytes", cfg.StorageQuotaBytes))
	return a, nil
}

// Keys lists the storage key of every collection.
func (a *App) Keys() []string {
	return []string{
		a.Characters.Key(),
		a.Storyboards.Key(),
		a.History.Key(),
		store.KeyRecentSearches,
	}
}

// Close releases the storage connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Backend returns the configured generation backend, or the stub when no
// backend URL is set.
func Backend(cfg config.Config, logger *zap.Logger) backend.Service {
	if cfg.UseStubBackend() {
		logger.Warn("BACKEND_URL not set, using stub backend")
		return backend.Stub{}
	}
	return backend.NewClient(cfg.BackendURL,
		backend.WithToken(cfg.BackendToken),
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithLogger(logger),
	)
}
