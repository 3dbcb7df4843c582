package impl

import (
	"context"
	"strings"
	"testing"
	"time"

	"accounts/config"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	mockRepo "accounts/internal/mocks/repository"
	mockSvc "accounts/internal/mocks/service"
	"accounts/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// authServiceFixtures holds all test dependencies for auth service tests.
type authServiceFixtures struct {
	service  usecase.AuthUsecase
	userRepo *mockRepo.MockUserRepository
	hasher   *mockSvc.MockPasswordHasher
}

func createTestAuthService(t *testing.T, cfg *config.Config) authServiceFixtures {
	userRepo := mockRepo.NewMockUserRepository(t)
	hasher := mockSvc.NewMockPasswordHasher(t)

	service := NewAuthService(AuthServiceParams{
		UserRepo: userRepo,
		Hasher:   hasher,
		Config:   cfg,
		Logger:   newDiscardLogger(),
	})

	return authServiceFixtures{
		service:  service,
		userRepo: userRepo,
		hasher:   hasher,
	}
}

func activeUser(username string) *entity.User {
	return &entity.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "digest",
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	fx := createTestAuthService(t, newTestConfig())
	ctx := context.Background()

	fx.userRepo.EXPECT().
		FindByUsernameOrEmail(mock.Anything, "alice", "alice@example.com").
		Return(nil, repository.ErrUserNotFound)
	fx.hasher.EXPECT().Hash("S3cret!").Return("digest", nil)
	fx.userRepo.EXPECT().
		Insert(mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
			return u.Username == "alice" &&
				u.Email == "alice@example.com" &&
				u.PasswordHash == "digest" &&
				u.IsActive &&
				u.CreatedAt.Location() == time.UTC
		})).
		Run(func(_ context.Context, u *entity.User) { u.ID = uuid.New() }).
		Return(nil)

	out, err := fx.service.Register(ctx, &usecase.RegisterInput{
		Username: "  alice ",
		Email:    " Alice@Example.COM",
		Password: "S3cret!",
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, out.User.ID)
	assert.Equal(t, "alice", out.User.Username)
	assert.Equal(t, "alice@example.com", out.User.Email)
}

func TestAuthService_Register_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input *usecase.RegisterInput
	}{
		{name: "nil input", input: nil},
		{name: "empty username", input: &usecase.RegisterInput{Email: "a@x.io", Password: "p"}},
		{name: "blank username", input: &usecase.RegisterInput{Username: "   ", Email: "a@x.io", Password: "p"}},
		{name: "empty email", input: &usecase.RegisterInput{Username: "alice", Password: "p"}},
		{name: "empty password", input: &usecase.RegisterInput{Username: "alice", Email: "a@x.io"}},
		{name: "malformed email", input: &usecase.RegisterInput{Username: "alice", Email: "not-an-email", Password: "p"}},
		{name: "username too long", input: &usecase.RegisterInput{Username: strings.Repeat("a", 51), Email: "a@x.io", Password: "p"}},
		{name: "email too long", input: &usecase.RegisterInput{Username: "alice", Email: strings.Repeat("a", 96) + "@x.io", Password: "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := createTestAuthService(t, newTestConfig())

			_, err := fx.service.Register(context.Background(), tt.input)

			assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
			assert.False(t, domainerrors.Retryable(err))
		})
	}
}

func TestAuthService_Register_LaxEmailPolicy(t *testing.T) {
	fx := createTestAuthService(t, newTestConfig(func(a *config.AuthConfig) { a.StrictEmail = false }))

	fx.userRepo.EXPECT().FindByUsernameOrEmail(mock.Anything, "alice", "not-an-email").Return(nil, repository.ErrUserNotFound)
	fx.hasher.EXPECT().Hash("p").Return("digest", nil)
	fx.userRepo.EXPECT().Insert(mock.Anything, mock.Anything).Return(nil)

	_, err := fx.service.Register(context.Background(), &usecase.RegisterInput{Username: "alice", Email: "not-an-email", Password: "p"})
	assert.NoError(t, err)
}

func TestAuthService_Register_AlreadyExistsFromPreCheck(t *testing.T) {
	fx := createTestAuthService(t, newTestConfig())

	fx.userRepo.EXPECT().
		FindByUsernameOrEmail(mock.Anything, "alice", "new@example.com").
		Return(activeUser("alice"), nil)

	_, err := fx.service.Register(context.Background(), &usecase.RegisterInput{
		Username: "alice",
		Email:    "new@example.com",
		Password: "p",
	})

	assert.ErrorIs(t, err, domainerrors.ErrUserAlreadyExists)
	fx.hasher.AssertNotCalled(t, "Hash", mock.Anything)
}

func TestAuthService_Register_InsertConflictLooksLikePreCheck(t *testing.T) {
	fx := createTestAuthService(t, newTestConfig())

	fx.userRepo.EXPECT().FindByUsernameOrEmail(mock.Anything, mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound)
	fx.hasher.EXPECT().Hash("p").Return("digest", nil)
	fx.userRepo.EXPECT().Insert(mock.Anything, mock.Anything).Return(repository.ErrUserConflict)

	_, err := fx.service.Register(context.Background(), &usecase.RegisterInput{Username: "alice", Email: "a@x.io", Password: "p"})

	assert.Equal(t, domainerrors.ErrUserAlreadyExists, err)
}

func TestAuthService_Register_StoreErrors(t *testing.T) {
	storeFailure := errors.New("connection refused")

	t.Run("pre-check", func(t *testing.T) {
		fx := createTestAuthService(t, newTestConfig())
		fx.userRepo.EXPECT().FindByUsernameOrEmail(mock.Anything, mock.Anything, mock.Anything).Return(nil, storeFailure)

		_, err := fx.service.Register(context.Background(), &usecase.RegisterInput{Username: "alice", Email: "a@x.io", Password: "p"})

		assert.ErrorIs(t, err, domainerrors.ErrStoreUnavailable)
		assert.ErrorIs(t, err, storeFailure)
		assert.True(t, domainerrors.Retryable(err))
	})

	t.Run("insert", func(t *testing.T) {
		fx := createTestAuthService(t, newTestConfig())
		fx.userRepo.EXPECT().FindByUsernameOrEmail(mock.Anything, mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound)
		fx.hasher.EXPECT().Hash("p").Return("digest", nil)
		fx.userRepo.EXPECT().Insert(mock.Anything, mock.Anything).Return(storeFailure).Once()

		_, err := fx.service.Register(context.Background(), &usecase.RegisterInput{Username: "alice", Email: "a@x.io", Password: "p"})

		assert.ErrorIs(t, err, domainerrors.ErrStoreUnavailable)
		assert.NotErrorIs(t, err, domainerrors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Register_HashFailure(t *testing.T) {
	fx := createTestAuthService(t, newTestConfig())

	fx.userRepo.EXPECT().FindByUsernameOrEmail(mock.Anything, mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound)
	fx.hasher.EXPECT().Hash("p").Return("", errors.New("entropy source failed"))

	_, err := fx.service.Register(context.Background(), &usecase.RegisterInput{Username: "alice", Email: "a@x.io", Password: "p"})

	assert.ErrorIs(t, err, domainerrors.ErrInternalError)
	fx.userRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestAuthService_Register_StoreCallIsBoundedByQueryTimeout(t *testing.T) {
	cfg := newTestConfig()
	cfg.Storage.QueryTimeout = 20 * time.Millisecond
	fx := createTestAuthService(t, cfg)

	fx.userRepo.EXPECT().
		FindByUsernameOrEmail(mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, _, _ string) (*entity.User, error) {
			<-ctx.Done()

			return nil, ctx.Err()
		})

	_, err := fx.service.Register(context.Background(), &usecase.RegisterInput{Username: "alice", Email: "a@x.io", Password: "p"})

	assert.ErrorIs(t, err, domainerrors.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAuthService_Login(t *testing.T) {
	user := activeUser("alice")

	tests := []struct {
		name      string
		cfg       *config.Config
		setup     func(fx authServiceFixtures)
		input     *usecase.LoginInput
		wantErr   error
		wantRetry bool
	}{
		{
			name: "success",
			cfg:  newTestConfig(),
			setup: func(fx authServiceFixtures) {
				fx.userRepo.EXPECT().FindActiveByUsername(mock.Anything, "alice").Return(user, nil)
				fx.hasher.EXPECT().Check("S3cret!", "digest").Return(true)
			},
			input: &usecase.LoginInput{Username: "alice", Password: "S3cret!"},
		},
		{
			name:    "empty password",
			cfg:     newTestConfig(),
			setup:   func(authServiceFixtures) {},
			input:   &usecase.LoginInput{Username: "alice"},
			wantErr: domainerrors.ErrInvalidInput,
		},
		{
			name: "unknown user",
			cfg:  newTestConfig(),
			setup: func(fx authServiceFixtures) {
				fx.userRepo.EXPECT().FindActiveByUsername(mock.Anything, "bob").Return(nil, repository.ErrUserNotFound)
			},
			input:   &usecase.LoginInput{Username: "bob", Password: "x"},
			wantErr: domainerrors.ErrUserNotFound,
		},
		{
			name: "wrong password",
			cfg:  newTestConfig(),
			setup: func(fx authServiceFixtures) {
				fx.userRepo.EXPECT().FindActiveByUsername(mock.Anything, "alice").Return(user, nil)
				fx.hasher.EXPECT().Check("wrong", "digest").Return(false)
			},
			input:   &usecase.LoginInput{Username: "alice", Password: "wrong"},
			wantErr: domainerrors.ErrWrongPassword,
		},
		{
			name: "store failure is never not found",
			cfg:  newTestConfig(),
			setup: func(fx authServiceFixtures) {
				fx.userRepo.EXPECT().FindActiveByUsername(mock.Anything, "alice").Return(nil, context.DeadlineExceeded)
			},
			input:     &usecase.LoginInput{Username: "alice", Password: "x"},
			wantErr:   domainerrors.ErrStoreUnavailable,
			wantRetry: true,
		},
		{
			name: "unified unknown user runs a dummy check",
			cfg:  newTestConfig(unifyLoginFailures),
			setup: func(fx authServiceFixtures) {
				fx.userRepo.EXPECT().FindActiveByUsername(mock.Anything, "bob").Return(nil, repository.ErrUserNotFound)
				fx.hasher.EXPECT().Hash(dummyPassword).Return("dummy-digest", nil).Once()
				fx.hasher.EXPECT().Check("x", "dummy-digest").Return(false).Once()
			},
			input:   &usecase.LoginInput{Username: "bob", Password: "x"},
			wantErr: domainerrors.ErrInvalidCredentials,
		},
		{
			name: "unified wrong password",
			cfg:  newTestConfig(unifyLoginFailures),
			setup: func(fx authServiceFixtures) {
				fx.userRepo.EXPECT().FindActiveByUsername(mock.Anything, "alice").Return(user, nil)
				fx.hasher.EXPECT().Check("wrong", "digest").Return(false)
			},
			input:   &usecase.LoginInput{Username: "alice", Password: "wrong"},
			wantErr: domainerrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := createTestAuthService(t, tt.cfg)
			tt.setup(fx)

			out, err := fx.service.Login(context.Background(), tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, out)
				assert.Equal(t, tt.wantRetry, domainerrors.Retryable(err))

				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, out.User.ID)
		})
	}
}

func TestAuthService_UserExists(t *testing.T) {
	fx := createTestAuthService(t, newTestConfig())

	fx.userRepo.EXPECT().ExistsByUsernameOrEmail(mock.Anything, "alice", "a@x.io").Return(true, nil)

	exists, err := fx.service.UserExists(context.Background(), "alice", "A@X.io")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = fx.service.UserExists(context.Background(), " ", "")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestAuthService_SetActive(t *testing.T) {
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		fx := createTestAuthService(t, newTestConfig())
		fx.userRepo.EXPECT().SetActive(mock.Anything, id, false).Return(nil)

		assert.NoError(t, fx.service.SetActive(context.Background(), &usecase.SetActiveInput{UserID: id, Active: false}))
	})

	t.Run("unknown id", func(t *testing.T) {
		fx := createTestAuthService(t, newTestConfig())
		fx.userRepo.EXPECT().SetActive(mock.Anything, id, true).Return(repository.ErrUserNotFound)

		err := fx.service.SetActive(context.Background(), &usecase.SetActiveInput{UserID: id, Active: true})
		assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
	})

	t.Run("nil id", func(t *testing.T) {
		fx := createTestAuthService(t, newTestConfig())

		err := fx.service.SetActive(context.Background(), &usecase.SetActiveInput{})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	})

	t.Run("store failure", func(t *testing.T) {
		fx := createTestAuthService(t, newTestConfig())
		fx.userRepo.EXPECT().SetActive(mock.Anything, id, true).Return(errors.New("boom"))

		err := fx.service.SetActive(context.Background(), &usecase.SetActiveInput{UserID: id, Active: true})
		assert.True(t, domainerrors.Retryable(err))
	})
}
