package gormstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"accounts/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLoggedTestDB(t *testing.T, buf *bytes.Buffer) *gorm.DB {
	t.Helper()

	cfg := &config.Config{}
	cfg.Env.Debug = true
	baseLogger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := openSQLite(dsn, newGormSlogLogger(baseLogger, cfg))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(context.Background(), db))

	return db
}

func TestGormSlogLogger_QueryLogOmitsPasswordDigest(t *testing.T) {
	var buf bytes.Buffer
	repo := NewUserRepository(newLoggedTestDB(t, &buf))
	ctx := context.Background()

	user := newUser("alice", "a@x.io")
	user.PasswordHash = "$argon2id$SECRETDIGEST"
	require.NoError(t, repo.Insert(ctx, user))

	_, err := repo.FindActiveByUsername(ctx, "alice")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "component=gorm")
	assert.Contains(t, out, "INSERT INTO")
	assert.NotContains(t, out, "SECRETDIGEST")
	// Bound values are replaced by placeholders.
	assert.NotContains(t, out, "a@x.io")
}

func TestGormSlogLogger_FailedQueryOmitsPasswordDigest(t *testing.T) {
	var buf bytes.Buffer
	db := newLoggedTestDB(t, &buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	user := newUser("alice", "a@x.io")
	user.PasswordHash = "$argon2id$SECRETDIGEST"
	err := NewUserRepository(db).Insert(ctx, user)
	require.Error(t, err)

	assert.NotContains(t, buf.String(), "SECRETDIGEST")
}

func TestGormSlogLogger_TraceLevels(t *testing.T) {
	var buf bytes.Buffer
	gormLogger := newGormSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)), nil)
	sqlFn := func() (string, int64) { return "SELECT 1", 1 }

	gormLogger.Trace(context.Background(), time.Now(), sqlFn, nil)
	assert.Empty(t, buf.String(), "plain queries stay below the default level")

	gormLogger.Trace(context.Background(), time.Now(), sqlFn, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "misses are not logged")

	gormLogger.Trace(context.Background(), time.Now(), sqlFn, errors.New("disk I/O error"))
	assert.Contains(t, buf.String(), "query failed")
	assert.Contains(t, buf.String(), "disk I/O error")
}
