// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

// PasswordHasher defines the interface for password hashing and verification.
// This abstracts the underlying hashing algorithm (e.g., argon2id, bcrypt), keeping the domain pure.
type PasswordHasher interface {
	// Hash derives a salted digest from a plaintext password. Any string, including "", is accepted.
	Hash(password string) (string, error)

	// Check reports whether password matches digest. Comparison runs in constant time
	// and malformed or unknown digests never match.
	Check(password, digest string) bool
}
