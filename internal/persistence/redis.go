package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// Redis stores each record as a plain string key. The client is a
// UniversalClient: one address gives a single node, several give a cluster,
// and a master name switches to sentinel failover.
type Redis struct {
	Client redis.UniversalClient
}

// NewRedis builds the client and probes it once. An unreachable server is
// logged, not fatal; readiness checks report it later.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      cfg.Addrs,
		MasterName: cfg.MasterName,
		Password:   cfg.Password,
		DB:         cfg.DB,
	})

	fields := []zap.Field{zap.Strings("addrs", cfg.Addrs)}
	if cfg.MasterName != "" {
		fields = append(fields, zap.String("master", cfg.MasterName))
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", append(fields, zap.Error(err))...)
	} else {
		logger.Info("connected to redis", fields...)
	}

	return &Redis{Client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.Client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrKeyNotFound
	case err != nil:
		return nil, err
	}
	return val, nil
}

// Set writes without expiry; records live until deleted.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.Client.Set(ctx, key, value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
