// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"accounts/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Username string
	Password string
}

// SetActiveInput enables or disables login for an existing user.
type SetActiveInput struct {
	UserID uuid.UUID
	Active bool
}

// --- Output DTOs ---

// RegisterOutput returns the newly created user.
type RegisterOutput struct {
	User *entity.User
}

// LoginOutput returns the authenticated user. No session or token is issued.
type LoginOutput struct {
	User *entity.User
}

// AuthUsecase defines the interface for account registration and login.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
//
// Every error returned matches exactly one domain error under errors.Is:
// ErrInvalidInput, ErrUserAlreadyExists, ErrUserNotFound, ErrWrongPassword,
// ErrInvalidCredentials, ErrStoreUnavailable or ErrInternalError.
type AuthUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
	SetActive(ctx context.Context, input *SetActiveInput) error
}
