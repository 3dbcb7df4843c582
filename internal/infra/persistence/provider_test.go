package persistence

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"accounts/config"
	"accounts/internal/domain/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func newParams(t *testing.T, storage *config.StorageConfig) (Params, *fxtest.Lifecycle) {
	t.Helper()

	lc := fxtest.NewLifecycle(t)

	return Params{
		Lifecycle: lc,
		Config:    &config.Config{Storage: storage},
		Logger:    slog.New(slog.DiscardHandler),
	}, lc
}

func TestNewUserRepository_Drivers(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		storage *config.StorageConfig
	}{
		{
			name:    "memory",
			storage: &config.StorageConfig{Driver: config.DriverMemory},
		},
		{
			name: "redis",
			storage: &config.StorageConfig{
				Driver: config.DriverRedis,
				Redis:  &config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "accounts"},
			},
		},
		{
			name: "sqlite",
			storage: &config.StorageConfig{
				Driver: config.DriverSQLite,
				SQLite: &config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "app.db")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, lc := newParams(t, tt.storage)

			repo, err := NewUserRepository(params)
			require.NoError(t, err)

			lc.RequireStart()
			defer lc.RequireStop()

			ctx := context.Background()
			user := &entity.User{Username: "alice", Email: "a@x.io", PasswordHash: "h", IsActive: true}
			require.NoError(t, repo.Insert(ctx, user))

			found, err := repo.FindActiveByUsername(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, user.ID, found.ID)
		})
	}
}

func TestNewUserRepository_UnknownDriver(t *testing.T) {
	params, _ := newParams(t, &config.StorageConfig{Driver: "mongo"})

	_, err := NewUserRepository(params)
	assert.ErrorContains(t, err, "unknown storage driver")
}
