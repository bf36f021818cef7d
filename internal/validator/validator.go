// Package validator checks request payloads against their `validate` struct
// tags and turns the first failure into a model.ErrValidation.
package validator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
)

var global *validator.Validate

const (
	ErrFieldRequired      = "field is required"
	ErrFieldBlank         = "field must not be blank"
	ErrFieldExceedsMaxLen = "field exceeds maximum length"
	ErrFieldBelowMinLen   = "field is below minimum length"
	ErrFieldExceedsMaxVal = "field exceeds maximum value"
	ErrFieldBelowMinVal   = "field is below minimum value"
	ErrInvalidUUID        = "field must be a UUID"
	ErrUnknownValidation  = "invalid field"
)

func init() {
	SetValidator(New())
}

// New returns a validator that reports fields by their JSON names and knows
// the notblank tag.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("notblank", validateNotBlank)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Validate checks structure and returns nil or an error wrapping
// model.ErrValidation that names the first offending field.
func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "required":
		msg = ErrFieldRequired
	case "notblank":
		msg = ErrFieldBlank
	case "max":
		msg = ErrFieldExceedsMaxLen
		if isNumber(ve.Kind()) {
			msg = ErrFieldExceedsMaxVal
		}
	case "min":
		msg = ErrFieldBelowMinLen
		if isNumber(ve.Kind()) {
			msg = ErrFieldBelowMinVal
		}
	case "lt", "lte":
		msg = ErrFieldExceedsMaxVal
	case "gt", "gte":
		msg = ErrFieldBelowMinVal
	case "uuid":
		msg = ErrInvalidUUID
	default:
		msg = ErrUnknownValidation
	}
	return fmt.Errorf("%w: %s: %s", model.ErrValidation, msg, fieldPath(ve.Namespace()))
}

// fieldPath drops the root struct name from a namespace such as
// "RegisterRequest.team.members[0].name".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
