package calls

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

type (
	// ErrorResponse represents a validation error response.
	ErrorResponse struct {
		Error       bool   `json:"error"`
		FailedField string `json:"failed_field"`
		Tag         string `json:"tag"`
		Value       any    `json:"value"`
	}

	// XValidator validates request bodies.
	XValidator struct{}
)

var validate = validator.New() //nolint:gochecknoglobals

// Validate performs validation on the provided data and returns a slice of ErrorResponse.
func (v XValidator) Validate(data any) []ErrorResponse {
	var validationErrors []ErrorResponse

	err := validate.Struct(data)

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}

	for _, fe := range errs {
		validationErrors = append(validationErrors, ErrorResponse{
			Error:       true,
			FailedField: fe.Field(),
			Tag:         fe.Tag(),
			Value:       fe.Value(),
		})
	}

	return validationErrors
}
