// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"accounts/config"
	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
	"accounts/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// dummyPassword is hashed once to give unknown usernames the same verification cost.
const dummyPassword = "dummy-password-for-timing"

// authService implements the AuthUsecase interface.
type authService struct {
	userRepo     repository.UserRepository
	hasher       service.PasswordHasher
	validate     *validator.Validate
	queryTimeout time.Duration
	policy       config.AuthConfig
	dummyDigest  func() string
	logger       *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	UserRepo repository.UserRepository
	Hasher   service.PasswordHasher
	Config   *config.Config
	Logger   *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	var policy config.AuthConfig
	if params.Config != nil && params.Config.Auth != nil {
		policy = *params.Config.Auth
	}

	var queryTimeout time.Duration
	if params.Config != nil && params.Config.Storage != nil {
		queryTimeout = params.Config.Storage.QueryTimeout
	}

	srv := &authService{
		userRepo:     params.UserRepo,
		hasher:       params.Hasher,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		queryTimeout: queryTimeout,
		policy:       policy,
		logger:       params.Logger,
	}
	srv.dummyDigest = sync.OnceValue(func() string {
		digest, err := srv.hasher.Hash(dummyPassword)
		if err != nil {
			return ""
		}

		return digest
	})

	return srv
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// storeContext bounds a single store call by storage.queryTimeout.
func (srv *authService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if srv.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, srv.queryTimeout)
}

// normalizeEmail trims the address and lowercases it, so "A@X.io" and "a@x.io" are one account.
// Only letter case changes; "straße@x.io" is kept as is. A Caser is stateful, so each call gets its own.
func normalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// Register creates an active account after checking that neither the username nor the email is taken.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	if input == nil {
		return nil, domainerrors.ErrInvalidInput
	}

	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	// Limits apply to the address as entered; lowercasing may change its length.
	if err := srv.validateRegistration(username, email, input.Password); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)

	logger := srv.log(ctx).With(slog.String("username", username))
	logger.Info("Starting registration")

	_, err := srv.findByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		logger.Info("Registration rejected, username or email taken")

		return nil, domainerrors.ErrUserAlreadyExists
	case !errors.Is(err, repository.ErrUserNotFound):
		logger.Error("Registration pre-check failed", slog.Any("error", err))

		return nil, domainerrors.NewStoreError(err, "registration pre-check")
	}

	digest, err := srv.hasher.Hash(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", slog.Any("error", err))

		return nil, domainerrors.ErrInternalError.WrapMessage("failed to hash password")
	}

	user := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
	}

	if err := srv.insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserConflict) {
			logger.Info("Registration lost a concurrent insert race")

			return nil, domainerrors.ErrUserAlreadyExists
		}
		logger.Error("Failed to insert user", slog.Any("error", err))

		return nil, domainerrors.NewStoreError(err, "insert user")
	}

	logger.Info("Registration completed", slog.Any("user", user))

	return &usecase.RegisterOutput{User: user}, nil
}

func (srv *authService) validateRegistration(username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return domainerrors.ErrInvalidInput
	}

	if limit := srv.policy.MaxUsernameLength; limit > 0 && utf8.RuneCountInString(username) > limit {
		return domainerrors.ErrInvalidInput.WrapMessage("username is too long")
	}
	if limit := srv.policy.MaxEmailLength; limit > 0 && utf8.RuneCountInString(email) > limit {
		return domainerrors.ErrInvalidInput.WrapMessage("email is too long")
	}

	if srv.policy.StrictEmail {
		if err := srv.validate.Var(email, "email"); err != nil {
			return domainerrors.ErrInvalidInput.WrapMessage("email is not a valid address")
		}
	}

	return nil
}

// Login verifies the password of an active user.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	if input == nil || strings.TrimSpace(input.Username) == "" || input.Password == "" {
		return nil, domainerrors.ErrInvalidInput
	}

	username := strings.TrimSpace(input.Username)
	logger := srv.log(ctx).With(slog.String("username", username))

	user, err := srv.findActiveByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		logger.Info("Login failed, no active user")
		if srv.policy.UnifyLoginFailures {
			srv.hasher.Check(input.Password, srv.dummyDigest())

			return nil, domainerrors.ErrInvalidCredentials
		}

		return nil, domainerrors.ErrUserNotFound
	}
	if err != nil {
		logger.Error("Login lookup failed", slog.Any("error", err))

		return nil, domainerrors.NewStoreError(err, "find active user")
	}

	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		logger.Info("Login failed, wrong password")
		if srv.policy.UnifyLoginFailures {
			return nil, domainerrors.ErrInvalidCredentials
		}

		return nil, domainerrors.ErrWrongPassword
	}

	logger.Debug("Login succeeded", slog.Any("user", user))

	return &usecase.LoginOutput{User: user}, nil
}

// UserExists reports whether the username or the email is already registered.
func (srv *authService) UserExists(ctx context.Context, username, email string) (bool, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" && email == "" {
		return false, domainerrors.ErrInvalidInput
	}

	exists, err := srv.existsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		srv.log(ctx).Error("Existence check failed", slog.Any("error", err))

		return false, domainerrors.NewStoreError(err, "check user existence")
	}

	return exists, nil
}

// SetActive enables or disables login for a user. Deactivated users keep their username and email.
func (srv *authService) SetActive(ctx context.Context, input *usecase.SetActiveInput) error {
	if input == nil || input.UserID == uuid.Nil {
		return domainerrors.ErrInvalidInput
	}

	storeCtx, cancel := srv.storeContext(ctx)
	defer cancel()

	err := srv.userRepo.SetActive(storeCtx, input.UserID, input.Active)
	if errors.Is(err, repository.ErrUserNotFound) {
		return domainerrors.ErrUserNotFound.WrapMessage("user id not found")
	}
	if err != nil {
		srv.log(ctx).Error("Failed to update activation", slog.Any("userID", input.UserID), slog.Any("error", err))

		return domainerrors.NewStoreError(err, "set user activation")
	}

	srv.log(ctx).Info("User activation changed", slog.Any("userID", input.UserID), slog.Bool("active", input.Active))

	return nil
}

func (srv *authService) findByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error) {
	storeCtx, cancel := srv.storeContext(ctx)
	defer cancel()

	return srv.userRepo.FindByUsernameOrEmail(storeCtx, username, email)
}

func (srv *authService) existsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	storeCtx, cancel := srv.storeContext(ctx)
	defer cancel()

	return srv.userRepo.ExistsByUsernameOrEmail(storeCtx, username, email)
}

func (srv *authService) insert(ctx context.Context, user *entity.User) error {
	storeCtx, cancel := srv.storeContext(ctx)
	defer cancel()

	return srv.userRepo.Insert(storeCtx, user)
}

func (srv *authService) findActiveByUsername(ctx context.Context, username string) (*entity.User, error) {
	storeCtx, cancel := srv.storeContext(ctx)
	defer cancel()

	return srv.userRepo.FindActiveByUsername(storeCtx, username)
}
