package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. IDs are UUIDv7 assigned by the application,
// so the same model works on SQLite and PostgreSQL.
// It is an exported type so it can be used by the GORM Gen tool from other packages.
type UserModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"type:text;not null;uniqueIndex:idx_users_username"`
	Email        string    `gorm:"type:text;not null;uniqueIndex:idx_users_email"`
	PasswordHash string    `gorm:"type:text;not null"`
	IsActive     bool      `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
