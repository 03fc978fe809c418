// Package validator adapts go-playground/validator to echo.Validator.
package validator

import (
	domainerrors "dubaivat/internal/domain/errors"
	"dubaivat/internal/util"

	"github.com/go-playground/validator/v10"
)

// EchoValidator reports failures as ErrValidationFailed with per-field details.
type EchoValidator struct {
	validate *validator.Validate
}

func New() *EchoValidator {
	return &EchoValidator{validate: util.NewValidator()}
}

func (v *EchoValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(util.DescribeValidationError(err))
	}

	return nil
}
