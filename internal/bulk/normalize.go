package bulk

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/entity"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/utilities"
)

// ContactInput is a validated row. An empty ID means "insert".
type ContactInput struct {
	ID string
	entity.Fields
}

// rowRules are the bulk constraints; they are looser than the single-add
// rules (no length bounds, timezone optional).
type rowRules struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
	Phone string `validate:"omitempty,phone"`
}

var ruleFields = map[string]string{"Name": "name", "Email": "email", "Phone": "phone"}

// Normalize maps a raw row to a ContactInput. It returns a *ValidationFailure
// when the row breaks a constraint. It never touches the store.
func Normalize(row RawRow) (ContactInput, error) {
	in := ContactInput{
		ID: row.Get("id"),
		Fields: entity.Fields{
			Name:     row.Get("name"),
			Email:    row.Get("email"),
			Phone:    row.Get("phone"),
			Address:  row.Get("address"),
			Timezone: row.Get("timezone"),
		},
	}
	err := utilities.Validate.Struct(rowRules{Name: in.Name, Email: in.Email, Phone: in.Phone})
	if err == nil {
		return in, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return in, &ValidationFailure{Reasons: []string{err.Error()}}
	}
	failure := &ValidationFailure{}
	for _, fe := range verrs {
		failure.Reasons = append(failure.Reasons, reasonFor(fe))
	}
	return in, failure
}

func reasonFor(fe validator.FieldError) string {
	field := ruleFields[fe.Field()]
	switch fe.Tag() {
	case "required":
		return "missing required field: " + field
	case "email":
		return "invalid email"
	case "phone":
		return "invalid phone: must be 10 to 15 digits"
	default:
		return fmt.Sprintf("invalid %s", field)
	}
}
