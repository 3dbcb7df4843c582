// Package redisstore implements the user store on Redis. Each user is a hash and
// two index keys map the username and the email to the user ID.
package redisstore

import (
	"context"
	"log/slog"

	"accounts/config"
	"accounts/internal/domain/lifecycle"
	"accounts/internal/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New creates the Redis client and checks connectivity on start.
func New(params Params) (*redis.Client, error) {
	redisCfg := params.Config.Storage.Redis
	if redisCfg == nil || redisCfg.Addr == "" {
		return nil, errors.New("storage.redis.addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := client.Ping(ctx).Err(); err != nil {
				return errors.Wrap(err, "failed to ping redis")
			}
			params.Logger.Info("Redis user store connected", slog.String("addr", redisCfg.Addr))

			return nil
		},
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})

	return client, nil
}
