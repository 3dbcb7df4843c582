package middleware

import (
	"crypto/subtle"

	"accounts/config"
	domainerrors "accounts/internal/domain/errors"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// HeaderXAdminKey carries the shared secret for the admin routes.
const HeaderXAdminKey = "X-Admin-Key"

// AdminKeyMiddleware guards the admin routes with a static API key.
type AdminKeyMiddleware struct {
	apiKey []byte
}

// NewAdminKeyMiddleware creates the admin key middleware from admin.apiKey.
func NewAdminKeyMiddleware(cfg *config.Config) *AdminKeyMiddleware {
	var apiKey string
	if cfg.Admin != nil {
		apiKey = cfg.Admin.APIKey
	}

	return &AdminKeyMiddleware{apiKey: []byte(apiKey)}
}

// Enabled reports whether an admin key is configured.
func (m *AdminKeyMiddleware) Enabled() bool {
	return len(m.apiKey) > 0
}

// Authenticate rejects requests whose X-Admin-Key does not match.
func (m *AdminKeyMiddleware) Authenticate() echo.MiddlewareFunc {
	return echomiddleware.KeyAuthWithConfig(echomiddleware.KeyAuthConfig{
		KeyLookup: "header:" + HeaderXAdminKey,
		Validator: func(key string, _ echo.Context) (bool, error) {
			return m.Enabled() && subtle.ConstantTimeCompare([]byte(key), m.apiKey) == 1, nil
		},
		ErrorHandler: func(_ error, _ echo.Context) error {
			return domainerrors.ErrUnauthorized
		},
	})
}
