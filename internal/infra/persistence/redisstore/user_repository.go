package redisstore

import (
	"context"
	"strconv"
	"time"

	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hash fields of a stored user.
const (
	fieldID           = "id"
	fieldUsername     = "username"
	fieldEmail        = "email"
	fieldPasswordHash = "passwordHash"
	fieldCreatedAt    = "createdAt"
	fieldIsActive     = "isActive"
)

// insertScript claims both index keys and writes the user hash in one step.
// KEYS: user hash, username index, email index. ARGV: id, username, email, hash, createdAt, isActive.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 or redis.call('EXISTS', KEYS[3]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1],
	'id', ARGV[1], 'username', ARGV[2], 'email', ARGV[3],
	'passwordHash', ARGV[4], 'createdAt', ARGV[5], 'isActive', ARGV[6])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('SET', KEYS[3], ARGV[1])
return 1
`)

// setActiveScript updates isActive only on an existing user hash.
var setActiveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'isActive', ARGV[1])
return 1
`)

type userRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewUserRepository returns a Redis-backed repository.UserRepository. Keys are namespaced by prefix.
func NewUserRepository(client redis.UniversalClient, prefix string) repository.UserRepository {
	return &userRepository{client: client, prefix: prefix}
}

func (repo *userRepository) userKey(id string) string {
	return repo.prefix + ":user:" + id
}

func (repo *userRepository) usernameKey(username string) string {
	return repo.prefix + ":username:" + username
}

func (repo *userRepository) emailKey(email string) string {
	return repo.prefix + ":email:" + email
}

// FindByUsernameOrEmail prefers the username match when both exist.
func (repo *userRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error) {
	ids, err := repo.client.MGet(ctx, repo.usernameKey(username), repo.emailKey(email)).Result()
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to read user indexes")
	}

	for _, id := range ids {
		if s, ok := id.(string); ok && s != "" {
			return repo.load(ctx, s)
		}
	}

	return nil, repository.ErrUserNotFound
}

func (repo *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	n, err := repo.client.Exists(ctx, repo.usernameKey(username), repo.emailKey(email)).Result()
	if err != nil {
		return false, domainerrors.NewDatabaseExecuteError(err, "failed to check user indexes")
	}

	return n > 0, nil
}

func (repo *userRepository) Insert(ctx context.Context, user *entity.User) error {
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

	id := user.ID.String()
	keys := []string{repo.userKey(id), repo.usernameKey(user.Username), repo.emailKey(user.Email)}
	args := []any{
		id,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt.UTC().Format(time.RFC3339Nano),
		strconv.FormatBool(user.IsActive),
	}

	inserted, err := insertScript.Run(ctx, repo.client, keys, args...).Int()
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to insert user")
	}
	if inserted == 0 {
		return repository.ErrUserConflict
	}

	return nil
}

func (repo *userRepository) FindActiveByUsername(ctx context.Context, username string) (*entity.User, error) {
	id, err := repo.client.Get(ctx, repo.usernameKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrUserNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to read username index")
	}

	user, err := repo.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, repository.ErrUserNotFound
	}

	return user, nil
}

func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return repo.load(ctx, id.String())
}

func (repo *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	updated, err := setActiveScript.Run(ctx, repo.client, []string{repo.userKey(id.String())}, strconv.FormatBool(active)).Int()
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to update user activation")
	}
	if updated == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

func (repo *userRepository) load(ctx context.Context, id string) (*entity.User, error) {
	fields, err := repo.client.HGetAll(ctx, repo.userKey(id)).Result()
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to read user")
	}
	if len(fields) == 0 {
		return nil, repository.ErrUserNotFound
	}

	return decodeUser(fields)
}

func decodeUser(fields map[string]string) (*entity.User, error) {
	id, err := uuid.Parse(fields[fieldID])
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "stored user has an invalid id")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "stored user has an invalid createdAt")
	}

	isActive, err := strconv.ParseBool(fields[fieldIsActive])
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "stored user has an invalid isActive")
	}

	return &entity.User{
		ID:           id,
		Username:     fields[fieldUsername],
		Email:        fields[fieldEmail],
		PasswordHash: fields[fieldPasswordHash],
		CreatedAt:    createdAt,
		IsActive:     isActive,
	}, nil
}
