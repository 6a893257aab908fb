package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/safefall/safefall-go/httpclient"
)

// Validator wraps go-playground/validator with the facade's custom rules.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the custom "resourceid" rule registered.
func NewValidator() *Validator {
	v := validator.New()
	if err := v.RegisterValidation("resourceid", validateResourceID); err != nil {
		panic(fmt.Sprintf("api: register resourceid validation: %v", err))
	}
	return &Validator{validate: v}
}

// Validate checks i and returns a *ValidationError listing every failing field.
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// Var validates a single value against tag, reporting failures under field.
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.validate.Var(value, tag); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			ve := &ValidationError{}
			for _, fe := range validationErrors {
				ve.Errors = append(ve.Errors, FieldError{
					Field:   field,
					Message: fieldMessage(field, fe),
					Value:   fmt.Sprintf("%v", fe.Value()),
				})
			}
			return ve
		}
		return err
	}
	return nil
}

// ValidationError lists field-level input problems found before a request is sent.
// It is a httpclient.ClientError of type httpclient.ValidationError.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// FieldError is a validation failure of one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

var _ httpclient.ClientError = (*ValidationError)(nil)

// NewValidationError converts go-playground/validator errors.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fieldErrors := make([]FieldError, 0, len(errs))
	for _, err := range errs {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   err.Field(),
			Message: getErrorMessage(err),
			Value:   fmt.Sprintf("%v", err.Value()),
		})
	}
	return &ValidationError{Errors: fieldErrors}
}

func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s", ve.Errors[0].Message)
	}
	return fmt.Sprintf("validation failed: %d errors", len(ve.Errors))
}

// Type reports httpclient.ValidationError.
func (ve *ValidationError) Type() httpclient.ErrorType { return httpclient.ValidationError }

func getErrorMessage(fe validator.FieldError) string {
	return fieldMessage(fe.Field(), fe)
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as %s", field, fe.Param())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, fe.Param())
	case "resourceid":
		return fmt.Sprintf("%s must be a non-empty identifier without path separators", field)
	default:
		return fmt.Sprintf("%s failed validation", field)
	}
}

// validateResourceID accepts identifiers that are safe as a single path segment.
func validateResourceID(fl validator.FieldLevel) bool {
	id := strings.TrimSpace(fl.Field().String())
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}
