package dto

import (
	"errors"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/cliphub/support-service/pkg/util"
)

var validate = validator.New()

// Validate runs struct-tag validation and converts failures into a
// VALIDATION_FAILED domain error with per-field details.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]any, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
		return apperrors.NewValidationError("invalid payload", details)
	}
	return apperrors.NewValidationError("invalid payload", nil)
}
