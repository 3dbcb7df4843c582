// Package persistence selects the user store configured by storage.driver.
package persistence

import (
	"log/slog"

	"accounts/config"
	"accounts/internal/domain/repository"
	"accounts/internal/errors"
	"accounts/internal/infra/persistence/gormstore"
	"accounts/internal/infra/persistence/memory"
	"accounts/internal/infra/persistence/redisstore"

	"go.uber.org/fx"
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// NewUserRepository opens the configured backend and returns its repository.
// Connections are only created for the selected driver.
func NewUserRepository(params Params) (repository.UserRepository, error) {
	driver := params.Config.Storage.Driver
	logger := params.Logger.With(slog.String("driver", driver))

	switch driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory user store, accounts are lost on restart")

		return memory.NewUserRepository(), nil
	case config.DriverRedis:
		client, err := redisstore.New(redisstore.Params{
			Lifecycle: params.Lifecycle,
			Config:    params.Config,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}

		return redisstore.NewUserRepository(client, params.Config.Storage.Redis.KeyPrefix), nil
	case config.DriverSQLite, config.DriverPostgres:
		db, err := gormstore.New(gormstore.Params{
			Lifecycle: params.Lifecycle,
			Config:    params.Config,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}

		return gormstore.NewUserRepository(db), nil
	default:
		return nil, errors.Errorf("unknown storage driver: %q", driver)
	}
}
