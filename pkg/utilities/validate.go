package utilities

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)

// Validate is the shared validator instance. It knows the extra "phone" tag
// (10 to 15 ASCII digits).
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// IsPhone reports whether s is 10 to 15 digits.
func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}
