package auth

import (
	"strings"

	"accounts/config"
	"accounts/internal/domain/service"
)

// multiHasher hashes with the configured algorithm and verifies any digest
// whose format it recognizes, so switching auth.hasher keeps old accounts usable.
type multiHasher struct {
	primary service.PasswordHasher
	argon2  service.PasswordHasher
	bcrypt  service.PasswordHasher
}

// NewPasswordHasher builds the PasswordHasher selected by auth.hasher.
func NewPasswordHasher(cfg *config.Config) service.PasswordHasher {
	authCfg := cfg.Auth

	params := Argon2Params{}
	if authCfg.Argon2 != nil {
		params = Argon2Params{
			Time:      authCfg.Argon2.Time,
			MemoryKiB: authCfg.Argon2.MemoryKiB,
			Threads:   authCfg.Argon2.Threads,
			KeyLen:    authCfg.Argon2.KeyLen,
		}
	}

	h := &multiHasher{
		argon2: NewArgon2Hasher(params),
		bcrypt: NewBcryptHasherWithCost(authCfg.BcryptCost),
	}

	h.primary = h.argon2
	if authCfg.Hasher == config.HasherBcrypt {
		h.primary = h.bcrypt
	}

	return h
}

func (h *multiHasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

func (h *multiHasher) Check(password, digest string) bool {
	switch {
	case strings.HasPrefix(digest, argon2Prefix):
		return h.argon2.Check(password, digest)
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return h.bcrypt.Check(password, digest)
	default:
		return false
	}
}
