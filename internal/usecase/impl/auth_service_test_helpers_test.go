package impl

import (
	"io"
	"log/slog"
	"time"

	"accounts/config"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(mutators ...func(*config.AuthConfig)) *config.Config {
	cfg := &config.Config{
		Storage: &config.StorageConfig{
			Driver:       config.DriverMemory,
			QueryTimeout: time.Second,
		},
		Auth: &config.AuthConfig{
			Hasher:            config.HasherBcrypt,
			BcryptCost:        4,
			StrictEmail:       true,
			MaxUsernameLength: 50,
			MaxEmailLength:    100,
		},
	}
	for _, mutate := range mutators {
		mutate(cfg.Auth)
	}

	return cfg
}

func unifyLoginFailures(auth *config.AuthConfig) {
	auth.UnifyLoginFailures = true
}
