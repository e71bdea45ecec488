package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator"

	"tasker/internal/apierr"
)

var validate = validator.New()

// Validate checks a payload's struct tags. A rejected payload is returned as
// an apierr validation error so callers treat it like a 400 from the server.
func Validate(op string, payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierr.New(apierr.KindValidation, op, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return apierr.New(apierr.KindValidation, op, errors.New(strings.Join(msgs, "; ")))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "alphanum":
		return field + " must contain only letters and digits"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
