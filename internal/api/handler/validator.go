package handler

import (
	"github.com/go-playground/validator/v10"

	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/pkg/validation"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return &echoValidator{v: validation.New()}
}

// Validate satisfies the echo.Validator interface. Field failures come back as
// a *domain.ValidationError keyed by json field name.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		if fields := validation.FieldMessages(err); fields != nil {
			return &domain.ValidationError{Fields: fields}
		}
		return err
	}
	return nil
}
