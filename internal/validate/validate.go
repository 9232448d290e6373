// Package validate rejects incomplete payloads before they reach the transport.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"helpdesk/internal/failure"
)

var v = newValidator()

func newValidator() *validator.Validate {
	vv := validator.New(validator.WithRequiredStructEnabled())
	vv.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return vv
}

// Struct validates s and returns a ValidationFailure describing the first
// offending field.
func Struct(op string, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return failure.New(failure.ValidationFailure, op, describe(ve[0]))
	}
	return failure.Wrap(failure.ValidationFailure, op, err)
}

// Required checks a single free-text value, e.g. comment content.
func Required(op, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return failure.New(failure.ValidationFailure, op, field+" is required")
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return field + " must be selected"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
