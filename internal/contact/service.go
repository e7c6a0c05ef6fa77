package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/entity"
	contactrepo "github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/repo"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/utilities"
)

var (
	ErrConflict = errors.New("contact already exists")
	ErrNotFound = errors.New("contact not found")
)

// ValidationError lists the broken rules of one request item. Item is the
// position in a batch body, -1 for single-item requests.
type ValidationError struct {
	Item    int
	Reasons []string
}

func (e *ValidationError) Error() string {
	if e.Item < 0 {
		return strings.Join(e.Reasons, ", ")
	}
	return fmt.Sprintf("item %d: %s", e.Item, strings.Join(e.Reasons, ", "))
}

// Input is the body of an add or single update.
type Input struct {
	Name     string `json:"name" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Address  string `json:"address" validate:"omitempty,min=3,max=255"`
	Timezone string `json:"timezone" validate:"required,min=1,max=50"`
}

func (in Input) fields() entity.Fields {
	return entity.Fields{Name: in.Name, Email: in.Email, Phone: in.Phone, Address: in.Address, Timezone: in.Timezone}
}

// UpdateItem is one element of a batch update. Phone is mandatory here.
type UpdateItem struct {
	ID       string `json:"id" validate:"required,uuid"`
	Name     string `json:"name" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,phone"`
	Address  string `json:"address" validate:"omitempty,min=3,max=255"`
	Timezone string `json:"timezone" validate:"required,min=1,max=50"`
}

// ListQuery carries the GET /contacts query parameters.
type ListQuery struct {
	Name      string
	Email     string
	Timezone  string
	SortField string `validate:"omitempty,oneof=name email timezone created_at"`
	SortOrder string `validate:"omitempty,oneof=asc desc ASC DESC"`
}

// Service implements contact CRUD for one owner at a time.
type Service struct {
	repo   *contactrepo.ContactRepo
	logger *zap.SugaredLogger
	newID  func() string
}

func NewService(db *sqlx.DB, r *contactrepo.ContactRepo, logger *zap.SugaredLogger) *Service {
	if r == nil {
		r = contactrepo.NewContactRepo(db)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: r, logger: logger, newID: utilities.NewContactID}
}

func validate(item int, v any) error {
	err := utilities.Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{Item: item}
	for _, fe := range verrs {
		ve.Reasons = append(ve.Reasons, describe(fe))
	}
	return ve
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s should be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s should not exceed %s characters", field, fe.Param())
	case "email":
		return "invalid email format"
	case "phone":
		return "phone number must be a valid 10-15 digit number"
	case "uuid":
		return "invalid id format"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return "invalid " + field
	}
}

// AddOne creates a single contact.
func (s *Service) AddOne(ctx context.Context, ownerID string, in Input) (*entity.Contact, error) {
	if err := validate(-1, in); err != nil {
		return nil, err
	}
	out, err := s.add(ctx, ownerID, []Input{in})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// AddMany creates every contact of ins or none of them.
func (s *Service) AddMany(ctx context.Context, ownerID string, ins []Input) ([]entity.Contact, error) {
	if len(ins) == 0 {
		return nil, &ValidationError{Item: -1, Reasons: []string{"at least one contact is required"}}
	}
	for i, in := range ins {
		if err := validate(i, in); err != nil {
			return nil, err
		}
	}
	return s.add(ctx, ownerID, ins)
}

// add inserts ins in one transaction. Any existing contact of the owner
// (active or not) with the same email or phone aborts the whole request.
func (s *Service) add(ctx context.Context, ownerID string, ins []Input) ([]entity.Contact, error) {
	out := make([]entity.Contact, 0, len(ins))
	err := s.repo.WithTx(ctx, func(tx *contactrepo.ContactRepo) error {
		for _, in := range ins {
			_, err := tx.FindByOwnerAndIdentity(ctx, ownerID, in.Email, in.Phone)
			switch {
			case err == nil:
				return fmt.Errorf("%w: email %s or phone %s", ErrConflict, in.Email, in.Phone)
			case !errors.Is(err, sql.ErrNoRows):
				return err
			}
			c := entity.Contact{
				ID:       s.newID(),
				OwnerID:  ownerID,
				Name:     in.Name,
				Email:    in.Email,
				Phone:    in.Phone,
				Address:  in.Address,
				Timezone: in.Timezone,
			}
			if _, err := tx.Insert(ctx, &c); err != nil {
				return err
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("contacts added", "owner", ownerID, "count", len(out))
	return out, nil
}

// List returns the owner's active contacts.
func (s *Service) List(ctx context.Context, ownerID string, q ListQuery) ([]entity.Contact, error) {
	if err := validate(-1, q); err != nil {
		return nil, err
	}
	return s.repo.ListActive(ctx, ownerID, entity.ListFilter{
		Name:      q.Name,
		Email:     q.Email,
		Timezone:  q.Timezone,
		SortField: q.SortField,
		SortOrder: q.SortOrder,
	})
}

// UpdateOne overwrites contact id. ErrNotFound when no row of the owner matched.
func (s *Service) UpdateOne(ctx context.Context, ownerID, id string, in Input) error {
	if err := validate(-1, in); err != nil {
		return err
	}
	n, err := s.repo.UpdateByID(ctx, id, ownerID, in.fields())
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateMany applies items in one transaction and returns the number of rows
// changed. Items whose id matches nothing are not an error.
func (s *Service) UpdateMany(ctx context.Context, ownerID string, items []UpdateItem) (int64, error) {
	if len(items) == 0 {
		return 0, &ValidationError{Item: -1, Reasons: []string{"at least one contact is required"}}
	}
	for i, it := range items {
		if err := validate(i, it); err != nil {
			return 0, err
		}
	}
	var total int64
	err := s.repo.WithTx(ctx, func(tx *contactrepo.ContactRepo) error {
		for _, it := range items {
			n, err := tx.UpdateByID(ctx, it.ID, ownerID, entity.Fields{
				Name: it.Name, Email: it.Email, Phone: it.Phone, Address: it.Address, Timezone: it.Timezone,
			})
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Delete soft-deletes contact id.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	n, err := s.repo.SoftDelete(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
