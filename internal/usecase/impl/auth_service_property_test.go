package impl

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"accounts/config"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/infra/auth"
	"accounts/internal/infra/persistence/gormstore"
	"accounts/internal/infra/persistence/memory"
	"accounts/internal/infra/persistence/redisstore"
	"accounts/internal/usecase"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type userStore struct {
	name    string
	newRepo func(t *testing.T) repository.UserRepository
}

func userStores() []userStore {
	return []userStore{
		{
			name: "memory",
			newRepo: func(*testing.T) repository.UserRepository {
				return memory.NewUserRepository()
			},
		},
		{
			name: "sqlite",
			newRepo: func(t *testing.T) repository.UserRepository {
				cfg := &config.Config{Storage: &config.StorageConfig{
					Driver: config.DriverSQLite,
					SQLite: &config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "accounts.db")},
				}}
				db, err := gormstore.Open(cfg, newDiscardLogger())
				require.NoError(t, err)

				sqlDB, err := db.DB()
				require.NoError(t, err)
				t.Cleanup(func() { _ = sqlDB.Close() })

				require.NoError(t, gormstore.Migrate(context.Background(), db))

				return gormstore.NewUserRepository(db)
			},
		},
		{
			name: "redis",
			newRepo: func(t *testing.T) repository.UserRepository {
				mr := miniredis.RunT(t)
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = client.Close() })

				return redisstore.NewUserRepository(client, "accounts")
			},
		},
	}
}

// forEachStore runs the flow against a fresh service on every store driver.
func forEachStore(t *testing.T, cfg *config.Config, run func(t *testing.T, srv usecase.AuthUsecase)) {
	t.Helper()

	// SQLite serialises writers on one connection, so the concurrent flows need headroom.
	cfg.Storage.QueryTimeout = 5 * time.Second

	for _, store := range userStores() {
		t.Run(store.name, func(t *testing.T) {
			run(t, NewAuthService(AuthServiceParams{
				UserRepo: store.newRepo(t),
				Hasher:   auth.NewPasswordHasher(cfg),
				Config:   cfg,
				Logger:   newDiscardLogger(),
			}))
		})
	}
}

func TestAuthFlow_AliceExample(t *testing.T) {
	forEachStore(t, newTestConfig(), func(t *testing.T, srv usecase.AuthUsecase) {
		ctx := context.Background()

		registered, err := srv.Register(ctx, &usecase.RegisterInput{Username: "alice", Email: " Alice@Example.com ", Password: "S3cret!"})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, registered.User.ID)
		assert.NotEqual(t, "S3cret!", registered.User.PasswordHash)
		assert.Equal(t, "alice@example.com", registered.User.Email)
		assert.True(t, registered.User.IsActive)
		assert.Equal(t, time.UTC, registered.User.CreatedAt.Location())

		_, err = srv.Login(ctx, &usecase.LoginInput{Username: "alice", Password: "wrong"})
		assert.ErrorIs(t, err, domainerrors.ErrWrongPassword)

		loggedIn, err := srv.Login(ctx, &usecase.LoginInput{Username: "alice", Password: "S3cret!"})
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, loggedIn.User.ID)
		assert.Equal(t, "alice", loggedIn.User.Username)
		assert.Equal(t, "alice@example.com", loggedIn.User.Email)
		assert.WithinDuration(t, registered.User.CreatedAt, loggedIn.User.CreatedAt, time.Millisecond)
	})
}

func TestAuthFlow_DuplicateUsernameOrEmail(t *testing.T) {
	forEachStore(t, newTestConfig(), func(t *testing.T, srv usecase.AuthUsecase) {
		ctx := context.Background()

		_, err := srv.Register(ctx, &usecase.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "p1"})
		require.NoError(t, err)

		_, err = srv.Register(ctx, &usecase.RegisterInput{Username: "alice", Email: "other@example.com", Password: "p2"})
		assert.ErrorIs(t, err, domainerrors.ErrUserAlreadyExists)

		_, err = srv.Register(ctx, &usecase.RegisterInput{Username: "alice2", Email: "alice@example.com", Password: "p2"})
		assert.ErrorIs(t, err, domainerrors.ErrUserAlreadyExists)

		// The first password still works, so the rejected attempts changed nothing.
		_, err = srv.Login(ctx, &usecase.LoginInput{Username: "alice", Password: "p1"})
		assert.NoError(t, err)

		exists, err := srv.UserExists(ctx, "", "other@example.com")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestAuthFlow_CasePolicy(t *testing.T) {
	forEachStore(t, newTestConfig(), func(t *testing.T, srv usecase.AuthUsecase) {
		ctx := context.Background()

		_, err := srv.Register(ctx, &usecase.RegisterInput{Username: "alice", Email: "Alice@Example.com", Password: "p"})
		require.NoError(t, err)

		// Emails are case-insensitive.
		_, err = srv.Register(ctx, &usecase.RegisterInput{Username: "bob", Email: "ALICE@example.COM", Password: "p"})
		assert.ErrorIs(t, err, domainerrors.ErrUserAlreadyExists)

		exists, err := srv.UserExists(ctx, "", "aLiCe@EXAMPLE.com")
		require.NoError(t, err)
		assert.True(t, exists)

		// Usernames are case-sensitive.
		_, err = srv.Register(ctx, &usecase.RegisterInput{Username: "Alice", Email: "alice2@example.com", Password: "p"})
		assert.NoError(t, err)

		_, err = srv.Login(ctx, &usecase.LoginInput{Username: "ALICE", Password: "p"})
		assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
	})
}

func TestAuthFlow_EmailKeepsNonCaseCharacters(t *testing.T) {
	cfg := newTestConfig(func(a *config.AuthConfig) { a.StrictEmail = false })

	forEachStore(t, cfg, func(t *testing.T, srv usecase.AuthUsecase) {
		ctx := context.Background()

		registered, err := srv.Register(ctx, &usecase.RegisterInput{Username: "hans", Email: "Straße@x.io", Password: "p"})
		require.NoError(t, err)
		assert.Equal(t, "straße@x.io", registered.User.Email)

		// "ss" is a different address from "ß".
		_, err = srv.Register(ctx, &usecase.RegisterInput{Username: "fritz", Email: "STRASSE@x.io", Password: "p"})
		assert.NoError(t, err)
	})
}

func TestAuthFlow_EmailLimitAppliesToInputAsEntered(t *testing.T) {
	cfg := newTestConfig(func(a *config.AuthConfig) { a.StrictEmail = false })

	forEachStore(t, cfg, func(t *testing.T, srv usecase.AuthUsecase) {
		// 100 runes as entered; "İ" lowercases to two runes.
		email := strings.Repeat("İ", 95) + "@x.io"

		_, err := srv.Register(context.Background(), &usecase.RegisterInput{Username: "ilker", Email: email, Password: "p"})
		assert.NoError(t, err)
	})
}

func TestAuthFlow_DeactivatedUserCannotLogin(t *testing.T) {
	forEachStore(t, newTestConfig(), func(t *testing.T, srv usecase.AuthUsecase) {
		ctx := context.Background()

		registered, err := srv.Register(ctx, &usecase.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "p"})
		require.NoError(t, err)

		require.NoError(t, srv.SetActive(ctx, &usecase.SetActiveInput{UserID: registered.User.ID, Active: false}))

		_, err = srv.Login(ctx, &usecase.LoginInput{Username: "alice", Password: "p"})
		assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)

		exists, err := srv.UserExists(ctx, "alice", "")
		require.NoError(t, err)
		assert.True(t, exists)

		// A deactivated user still owns the username.
		_, err = srv.Register(ctx, &usecase.RegisterInput{Username: "alice", Email: "new@example.com", Password: "p"})
		assert.ErrorIs(t, err, domainerrors.ErrUserAlreadyExists)

		require.NoError(t, srv.SetActive(ctx, &usecase.SetActiveInput{UserID: registered.User.ID, Active: true}))
		_, err = srv.Login(ctx, &usecase.LoginInput{Username: "alice", Password: "p"})
		assert.NoError(t, err)

		err = srv.SetActive(ctx, &usecase.SetActiveInput{UserID: uuid.Must(uuid.NewV7()), Active: true})
		assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
	})
}

func TestAuthFlow_UnifiedLoginFailures(t *testing.T) {
	forEachStore(t, newTestConfig(unifyLoginFailures), func(t *testing.T, srv usecase.AuthUsecase) {
		ctx := context.Background()

		_, err := srv.Register(ctx, &usecase.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "p"})
		require.NoError(t, err)

		_, unknownErr := srv.Login(ctx, &usecase.LoginInput{Username: "nobody", Password: "p"})
		_, wrongErr := srv.Login(ctx, &usecase.LoginInput{Username: "alice", Password: "wrong"})

		assert.ErrorIs(t, unknownErr, domainerrors.ErrInvalidCredentials)
		assert.Equal(t, unknownErr, wrongErr)
	})
}

func TestAuthFlow_ConcurrentRegistrationsOfSameUsername(t *testing.T) {
	forEachStore(t, newTestConfig(), func(t *testing.T, srv usecase.AuthUsecase) {
		ctx := context.Background()

		const workers = 50
		var succeeded, alreadyExists atomic.Int32

		var g errgroup.Group
		for i := range workers {
			g.Go(func() error {
				_, err := srv.Register(ctx, &usecase.RegisterInput{
					Username: "racer",
					Email:    fmt.Sprintf("racer%d@example.com", i),
					Password: "p",
				})
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.Is(err, domainerrors.ErrUserAlreadyExists):
					alreadyExists.Add(1)
				default:
					return err
				}

				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, int32(1), succeeded.Load())
		assert.Equal(t, int32(workers-1), alreadyExists.Load())

		exists, err := srv.UserExists(ctx, "racer", "")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestAuthFlow_Argon2idHasher(t *testing.T) {
	cfg := newTestConfig(func(a *config.AuthConfig) {
		a.Hasher = config.HasherArgon2id
		a.Argon2 = &config.Argon2Config{Time: 1, MemoryKiB: 8 * 1024, Threads: 1, KeyLen: 32}
	})

	forEachStore(t, cfg, func(t *testing.T, srv usecase.AuthUsecase) {
		ctx := context.Background()

		registered, err := srv.Register(ctx, &usecase.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "S3cret!"})
		require.NoError(t, err)
		assert.Contains(t, registered.User.PasswordHash, "$argon2id$")

		_, err = srv.Login(ctx, &usecase.LoginInput{Username: "alice", Password: "S3cret!"})
		assert.NoError(t, err)
	})
}
