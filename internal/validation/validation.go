// Package validation contains the logic for sanitizing and
// validating request data.
//
// Sanitizers (`mod` tags, go-playground/mold) run first, so rules are
// checked against the cleaned values. Rules (`validate` tags,
// go-playground/validator) are then evaluated for every field and all
// violations are reported, in field order, under their JSON names.
package validation

import (
	"context"
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
)

var (
	validate  = newValidator()
	conformer = newConformer()
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by the name clients send, not the Go field name:
	// the JSON key, or the path/query parameter for bound URL values.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "param", "query"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRegex.MatchString(fl.Field().String())
	})

	return v
}

func newConformer() *mold.Transformer {
	t := modifiers.New()

	// escape HTML-escapes a string so it can be echoed back safely.
	t.Register("escape", func(_ context.Context, fl mold.FieldLevel) error {
		if fl.Field().Kind() == reflect.String {
			fl.Field().SetString(html.EscapeString(fl.Field().String()))
		}
		return nil
	})

	return t
}

// Struct checks the `validate` tags of v. It does not sanitize.
func Struct(v any) error {
	return validate.Struct(v)
}

// Sanitize applies the `mod` tags of v in place. v must be a pointer.
func Sanitize(ctx context.Context, v any) error {
	return conformer.Struct(ctx, v)
}
