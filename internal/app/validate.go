package app

import (
	"errors"
	"reflect"
	"strings"

	"bizledger/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// newValidator returns a validator that reports fields by their JSON names and
// compares decimal.Decimal fields numerically, so gte=0 and friends apply to money.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// validate runs struct validation and converts failures into an
// InvalidInput error keyed by field path.
func (s *appService) validate(req any) error {
	err := s.validator.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return core.InvalidInputf("invalid request: %v", err)
	}
	return core.InvalidFields("validation failed", processValidationErrors(verrs))
}

// processValidationErrors maps each failing field to the tag that rejected it.
// The top-level struct name is dropped from the namespace.
func processValidationErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		field := ve.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		tag := ve.Tag()
		if ve.Param() != "" {
			tag += "=" + ve.Param()
		}
		out[field] = tag
	}
	return out
}
