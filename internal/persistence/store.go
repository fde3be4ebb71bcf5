package persistence

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// ErrKeyNotFound is returned by Get when no record exists under the key.
var ErrKeyNotFound = errors.New("persistence: key not found")

// KVStore persists whole records under string keys. Values are opaque bytes;
// repositories decide the encoding.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the KV store selected by STORAGE_DRIVER.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (KVStore, error) {
	var (
		store KVStore
		err   error
	)
	switch cfg.Storage.Driver {
	case "", "memory":
		store = NewMemoryStore()
	case "sqlite":
		store, err = NewSQLiteStore(ctx, cfg.Storage.SQLitePath)
	case "redis":
		store = NewRedis(cfg.Redis, logger)
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return nil, errors.New("POSTGRES_DSN required for postgres storage driver")
		}
		var pg *Postgres
		pg, err = NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			break
		}
		if cfg.Postgres.RunMigrations {
			if err = RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				break
			}
		}
		store = pg
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}

	logger.Info("storage ready", zap.String("driver", cfg.Storage.Driver), zap.String("key_prefix", cfg.Storage.KeyPrefix))
	return WithPrefix(store, cfg.Storage.KeyPrefix), nil
}

type prefixedStore struct {
	KVStore
	prefix string
}

// WithPrefix namespaces every key. An empty prefix returns store unchanged.
func WithPrefix(store KVStore, prefix string) KVStore {
	if prefix == "" {
		return store
	}
	return &prefixedStore{KVStore: store, prefix: prefix}
}

func (p *prefixedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return p.KVStore.Get(ctx, p.prefix+key)
}

func (p *prefixedStore) Set(ctx context.Context, key string, value []byte) error {
	return p.KVStore.Set(ctx, p.prefix+key, value)
}

func (p *prefixedStore) Delete(ctx context.Context, key string) error {
	return p.KVStore.Delete(ctx, p.prefix+key)
}
