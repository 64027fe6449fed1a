// Package validate checks request payloads with struct tags.
package validate

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
)

var (
	global        = New()
	categoryRegex = regexp.MustCompile(`^[a-z][a-z0-9_\-]{0,31}$`)
)

// New returns a validator with the service's custom tags registered.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("category", validateCategory)
	return v
}

// Category reports whether s is a well-formed registration category.
func Category(s string) bool {
	return categoryRegex.MatchString(s)
}

func validateCategory(fl validator.FieldLevel) bool {
	return Category(fl.Field().String())
}

// Struct validates s and reports the first failing field as a validation error.
func Struct(ctx context.Context, s any) error {
	return parseValidationErrors(global.StructCtx(ctx, s))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return apperr.Wrap(apperr.KindValidation, err, "invalid request")
	}
	ve := vErrors[0]
	field := ve.Field()
	switch ve.Tag() {
	case "required":
		return apperr.Validation("%s is required", field)
	case "email":
		return apperr.Validation("%s must be a valid email address", field)
	case "category":
		return apperr.Validation("%s must be a lower-case category name", field)
	case "oneof":
		return apperr.Validation("%s must be one of: %s", field, ve.Param())
	case "max":
		return apperr.Validation("%s exceeds maximum of %s", field, ve.Param())
	case "min":
		return apperr.Validation("%s is below minimum of %s", field, ve.Param())
	case "gt", "gte":
		return apperr.Validation("%s must be greater than %s", field, ve.Param())
	case "lt", "lte":
		return apperr.Validation("%s must be at most %s", field, ve.Param())
	default:
		return apperr.Validation("%s failed %s validation", field, ve.Tag())
	}
}
