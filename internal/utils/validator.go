// internal/utils/validator.go
package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("principal", validatePrincipal)
	validate.RegisterValidation("capability", validateCapability)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validatePrincipal(fl validator.FieldLevel) bool {
	return IsValidAddress(fl.Field().String())
}

func validateCapability(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "citation_recorder", "citation_verifier", "paper_verifier":
		return true
	}
	return false
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "gt":
		return e.Field() + " must be greater than " + e.Param()
	case "principal":
		return e.Field() + " must be a checksummed 0x address"
	case "capability":
		return "Capability must be one of citation_recorder, citation_verifier, paper_verifier"
	default:
		return e.Field() + " is invalid"
	}
}
