// Package memory implements the user store in process memory. It backs the
// "memory" driver and the service-level tests.
package memory

import (
	"context"
	"sync"
	"time"

	"accounts/internal/domain/entity"
	"accounts/internal/domain/repository"
	"accounts/internal/errors"

	"github.com/google/uuid"
)

type userRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]entity.User
	byUsername map[string]uuid.UUID
	byEmail    map[string]uuid.UUID
}

// NewUserRepository returns an empty in-memory repository.UserRepository.
func NewUserRepository() repository.UserRepository {
	return &userRepository{
		byID:       make(map[uuid.UUID]entity.User),
		byUsername: make(map[string]uuid.UUID),
		byEmail:    make(map[string]uuid.UUID),
	}
}

func (repo *userRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if id, ok := repo.byUsername[username]; ok {
		return repo.copyOf(id), nil
	}
	if id, ok := repo.byEmail[email]; ok {
		return repo.copyOf(id), nil
	}

	return nil, repository.ErrUserNotFound
}

func (repo *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.WithStack(err)
	}

	repo.mu.RLock()
	defer repo.mu.RUnlock()

	_, byUsername := repo.byUsername[username]
	_, byEmail := repo.byEmail[email]

	return byUsername || byEmail, nil
}

func (repo *userRepository) Insert(ctx context.Context, user *entity.User) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.byUsername[user.Username]; ok {
		return repository.ErrUserConflict
	}
	if _, ok := repo.byEmail[user.Email]; ok {
		return repository.ErrUserConflict
	}

	if user.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return errors.Wrap(err, "failed to generate user id")
		}
		user.ID = id
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	repo.byID[user.ID] = *user
	repo.byUsername[user.Username] = user.ID
	repo.byEmail[user.Email] = user.ID

	return nil
}

func (repo *userRepository) FindActiveByUsername(ctx context.Context, username string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	repo.mu.RLock()
	defer repo.mu.RUnlock()

	id, ok := repo.byUsername[username]
	if !ok || !repo.byID[id].IsActive {
		return nil, repository.ErrUserNotFound
	}

	return repo.copyOf(id), nil
}

func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if _, ok := repo.byID[id]; !ok {
		return nil, repository.ErrUserNotFound
	}

	return repo.copyOf(id), nil
}

func (repo *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.IsActive = active
	repo.byID[id] = user

	return nil
}

// copyOf must be called with the lock held.
func (repo *userRepository) copyOf(id uuid.UUID) *entity.User {
	user := repo.byID[id]

	return &user
}
