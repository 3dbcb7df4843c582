// Package validator adapts go-playground/validator to echo.Validator.
package validator

import (
	"strings"

	domainerrors "accounts/internal/domain/errors"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// CustomValidator validates request DTOs by their `validate` tags.
type CustomValidator struct {
	validate *validator.Validate
}

// New returns an echo.Validator backed by validator/v10.
func New() *CustomValidator {
	return &CustomValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate reports the failing fields as an invalid-input error.
func (cv *CustomValidator) Validate(i any) error {
	err := cv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate request")
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field()+" failed "+fe.Tag())
	}

	return domainerrors.ErrInvalidInput.WrapMessage(strings.Join(fields, "; "))
}
