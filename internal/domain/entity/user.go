// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// User is one registered account.
// Once created only IsActive ever changes.
type User struct {
	ID           uuid.UUID `json:"id"`        // Assigned by the store on insert.
	Username     string    `json:"username"`  // Unique, compared case-sensitively.
	Email        string    `json:"email"`     // Unique, stored case-folded.
	PasswordHash string    `json:"-"`         // Digest produced by the PasswordHasher. Never serialized.
	CreatedAt    time.Time `json:"createdAt"` // UTC.
	IsActive     bool      `json:"isActive"`  // Only active users may log in.
}

// LogValue keeps the password digest out of structured logs.
func (u User) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", u.ID.String()),
		slog.String("username", u.Username),
		slog.Bool("isActive", u.IsActive),
	)
}
