package core

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"fleetcare/internal/types"
)

// maxOdometerKm rejects obviously mistyped odometer readings.
const maxOdometerKm = 5_000_000

// FieldError describes one failed rule, named by the JSON field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Validator wraps go-playground/validator with the API's custom tags.
type Validator struct {
	v *validator.Validate
}

// NewValidator registers the custom tags:
//
//	odometer  integer kilometers in [0, 5,000,000]
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
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
	_ = v.RegisterValidation("odometer", func(fl validator.FieldLevel) bool {
		km := fl.Field().Int()
		return km >= 0 && km <= maxOdometerKm
	})
	return &Validator{v: v}
}

// ValidateStruct returns nil, or a validation_request_fields AppError whose
// details list every failing field.
func (val *Validator) ValidateStruct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation could not run", err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
	}
	return types.NewAppError(types.ErrCodeValidationRequestFields, "request validation failed", nil).
		WithDetails(map[string]any{"fields": fields})
}
