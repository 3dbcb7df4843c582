// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"accounts/internal/domain/entity"

	"github.com/google/uuid"
)

// Domain-specific errors for user persistence.
// Only these two outcomes are definitive; every other error is an infrastructure failure.
var (
	// ErrUserNotFound is returned when a completed lookup matched no user.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserConflict is returned when an insert would duplicate a username or an email.
	ErrUserConflict = errors.New("user conflicts with an existing username or email")
)

// UserRepository defines the standard operations for user persistence.
// Implementations enforce username and email uniqueness themselves, so Insert
// stays correct even when two registrations pass the pre-check concurrently.
type UserRepository interface {
	// FindByUsernameOrEmail returns a user whose username equals username or whose email equals email.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error)

	// ExistsByUsernameOrEmail is the boolean form of FindByUsernameOrEmail.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// Insert persists a new user and assigns its ID. It returns ErrUserConflict
	// if the username or email is already taken.
	Insert(ctx context.Context, user *entity.User) error

	// FindActiveByUsername returns the active user with the given username.
	FindActiveByUsername(ctx context.Context, username string) (*entity.User, error)

	// FindByID retrieves a single user by their unique ID, active or not.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// SetActive toggles the IsActive flag. It returns ErrUserNotFound for an unknown ID.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
