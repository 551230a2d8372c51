package validation

import (
	"fmt"
	"reflect"

	"github.com/deppfellow/storefront/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Validatable is implemented by every request payload.
// Validate usually delegates to Struct, and may add checks tags cannot express.
type Validatable interface {
	Validate() error
}

// CustomValidationError is a rule violation produced by hand-written checks.
type CustomValidationError struct {
	Field   string
	Message string
}

// CustomValidationErrors lets Validate report violations tags cannot express.
type CustomValidationErrors []CustomValidationError

func (c CustomValidationErrors) Error() string {
	return "Validation failed"
}

const invalidBodyCode = "INVALID_REQUEST_BODY"

// BindAndValidate fills payload from the request (path params, query and
// body), sanitizes it and validates it.
//
// A body that cannot be decoded is a 400 with a fixed message. Rule
// violations are a 400 listing every field error.
func BindAndValidate(c echo.Context, payload Validatable) error {
	if err := c.Bind(payload); err != nil {
		code := invalidBodyCode
		return errs.NewBadRequestError("Invalid request body: expected well-formed JSON matching the endpoint schema", &code, nil)
	}

	if err := Sanitize(c.Request().Context(), payload); err != nil {
		return errs.NewInternalServerError(errors.Wrap(err, "sanitizing request"))
	}

	if err := payload.Validate(); err != nil {
		return ToHTTPError(err)
	}

	return nil
}

// ToHTTPError converts the result of a Validate call into a 400 with field errors.
// Errors of other types are returned unchanged.
func ToHTTPError(err error) error {
	fieldErrors, ok := extractValidationError(err)
	if !ok {
		return err
	}
	return errs.NewValidationError(fieldErrors)
}

func extractValidationError(err error) ([]errs.FieldError, bool) {
	var customErrors CustomValidationErrors
	if errors.As(err, &customErrors) {
		fieldErrors := make([]errs.FieldError, 0, len(customErrors))
		for _, e := range customErrors {
			fieldErrors = append(fieldErrors, errs.FieldError{Field: e.Field, Message: e.Message})
		}
		return fieldErrors, true
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}

	fieldErrors := make([]errs.FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fieldErrors = append(fieldErrors, errs.FieldError{
			Field:   e.Field(),
			Message: messageFor(e),
		})
	}
	return fieldErrors, true
}

func messageFor(err validator.FieldError) string {
	isString := err.Kind() == reflect.String

	switch err.Tag() {
	case "required":
		return "is required"

	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", err.Param())
		}
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", err.Param())
		}
		return fmt.Sprintf("must be at least %s", err.Param())

	case "max":
		if isString {
			return fmt.Sprintf("must not exceed %s characters", err.Param())
		}
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("must not contain more than %s items", err.Param())
		}
		return fmt.Sprintf("must not exceed %s", err.Param())

	case "len":
		if isString {
			return fmt.Sprintf("must be exactly %s characters", err.Param())
		}
		return fmt.Sprintf("must have exactly %s items", err.Param())

	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", err.Param())

	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", err.Param())

	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())

	case "email":
		return "must be a valid email address"

	case "url":
		return "must be a valid URL"

	case "uuid", "uuid4":
		return "must be a valid UUID"

	case "mongodb":
		return "must be a valid id"

	case "slug":
		return "must contain only lowercase letters, digits and single dashes"

	case "alpha":
		return "must contain only letters"

	case "startswith":
		return fmt.Sprintf("must start with %s", err.Param())
	}

	if err.Param() != "" {
		return fmt.Sprintf("failed the %s=%s rule", err.Tag(), err.Param())
	}
	return fmt.Sprintf("failed the %s rule", err.Tag())
}
