// internal/utils/validator.go
package utils

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// Safaricom/Airtel mobile numbers in local (07.., 01..) or international
// (+2547.., 2541..) form.
var kenyanPhonePattern = regexp.MustCompile(`^(?:\+?254|0)([17]\d{8})$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("ke_phone", validateKenyanPhone)
	validate.RegisterValidation("handle", validateHandle)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateKenyanPhone(fl validator.FieldLevel) bool {
	_, ok := NormalizePhone(fl.Field().String())
	return ok
}

func validateHandle(fl validator.FieldLevel) bool {
	handle := fl.Field().String()
	if len(handle) < 2 || len(handle) > 64 {
		return false
	}

	matched, _ := regexp.MatchString("^[a-zA-Z0-9_.]+$", handle)
	return matched
}

// NormalizePhone returns the +254 form of a Kenyan mobile number.
func NormalizePhone(phone string) (string, bool) {
	phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	m := kenyanPhonePattern.FindStringSubmatch(phone)
	if m == nil {
		return "", false
	}
	return "+254" + m[1], true
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
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
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "numeric":
		return e.Field() + " must contain only digits"
	case "ke_phone":
		return "Phone must be a Kenyan mobile number, e.g. 0712345678"
	case "handle":
		return "Handle must be 2-64 characters of letters, numbers, dots and underscores"
	default:
		return e.Field() + " is invalid"
	}
}
