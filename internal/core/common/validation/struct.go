package validation

import (
	stdErrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	errors "github.com/frahmantamala/rt-lending/internal"
)

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// report json field names instead of Go field names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// ValidateStruct runs `validate` struct tags and converts failures into a
// validation AppError with one entry per field.
func ValidateStruct(s interface{}) *errors.AppError {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stdErrors.As(err, &fieldErrs) {
		return errors.NewValidationError(err.Error(), errors.ErrCodeValidationFailed)
	}

	details := make([]errors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, errors.ValidationError{
			Field:   fe.Field(),
			Message: describe(fe),
			Code:    string(codeFor(fe)),
		})
	}
	return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
		WithDetails(errors.ValidationErrors{Errors: details})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as YYYY-MM-DD", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func codeFor(fe validator.FieldError) errors.ErrorCode {
	switch fe.Field() {
	case "amount":
		return errors.ErrCodeInvalidAmount
	case "date":
		return errors.ErrCodeInvalidDate
	case "borrowerName":
		return errors.ErrCodeInvalidBorrower
	case "description":
		return errors.ErrCodeInvalidDescription
	case "status":
		return errors.ErrCodeInvalidStatus
	case "type":
		return errors.ErrCodeInvalidType
	}
	return errors.ErrCodeValidationFailed
}
