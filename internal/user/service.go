package user

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contact-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-contact-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/mailer"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Repository is the storage used by UserService; *userrepo.UserRepo implements it.
type Repository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByVerifyToken(ctx context.Context, token string) (*entity.User, error)
	MarkVerified(ctx context.Context, id string) error
	IncrementFailedLogin(ctx context.Context, id string) (int, error)
	LockIfThreshold(ctx context.Context, id string, threshold int, lockMinutes int) (bool, error)
	ResetLoginSuccess(ctx context.Context, id string) error
}

var (
	ErrUserExists     = errors.New("user already exists")
	ErrLocked         = errors.New("user locked")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrUnknownToken   = errors.New("invalid token or user not found")
)

// SignupRequest request body for signup endpoint.
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4,max=100"`
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4,max=100"`
}

var verifyMail = template.Must(template.New("verify").Parse(`<div style="font-family: Arial, sans-serif; padding: 20px;">
  <h2>Hello, {{.Name}}!</h2>
  <p>Thank you for registering with us. Please click the link below to verify your email address:</p>
  <a href="{{.Link}}">Verify Your Email</a>
  <p>If you did not create an account, please ignore this email.</p>
</div>`))

// UserService orchestrates signup, login and email verification.
type UserService struct {
	repo    Repository
	hasher  PasswordHasher
	tokens  *auth.TokenManager
	mail    mailer.Sender
	baseURL string
	logger  *zap.SugaredLogger
	now     func() time.Time
	// configuration knobs
	MaxFailed   int
	LockMinutes int
}

type Options struct {
	Hasher  PasswordHasher
	Tokens  *auth.TokenManager
	Mail    mailer.Sender
	BaseURL string
	Logger  *zap.SugaredLogger
}

func NewUserService(db *sqlx.DB, r Repository, opts Options) *UserService {
	if r == nil {
		r = userrepo.NewUserRepo(db)
	}
	if opts.Hasher == nil {
		opts.Hasher = BcryptHasher{Cost: 10}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Mail == nil {
		opts.Mail = mailer.NewLogSender(opts.Logger)
	}
	return &UserService{
		repo:        r,
		hasher:      opts.Hasher,
		tokens:      opts.Tokens,
		mail:        opts.Mail,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		logger:      opts.Logger,
		now:         time.Now,
		MaxFailed:   6,
		LockMinutes: 15,
	}
}

// Signup creates an unverified account and mails the verification link.
// A mail failure does not fail the signup.
func (s *UserService) Signup(ctx context.Context, req SignupRequest) (*entity.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := utilities.Validate.Struct(req); err != nil {
		return nil, err
	}

	_, err := s.repo.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, ErrUserExists
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	token := utilities.NewKSUID()
	u := &entity.User{
		ID:           utilities.NewSnowflakeID(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		VerifyToken:  &token,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, u, token); err != nil {
		s.logger.Warnw("verification mail failed", "user", u.ID, "err", err)
	}
	return u, nil
}

func (s *UserService) sendVerification(ctx context.Context, u *entity.User, token string) error {
	var body bytes.Buffer
	err := verifyMail.Execute(&body, map[string]string{
		"Name": u.Name,
		"Link": s.baseURL + "/mail-verification?token=" + token,
	})
	if err != nil {
		return fmt.Errorf("render mail: %w", err)
	}
	return s.mail.Send(ctx, u.Email, "Mail Verification", body.String())
}

// Login checks the password and issues an access token.
func (s *UserService) Login(ctx context.Context, req LoginRequest) (*entity.LoginView, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, ErrBadCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		} // avoid user enumeration
		return nil, err
	}
	if u.Locked(s.now()) {
		return nil, ErrLocked
	}

	if !s.hasher.Verify(u.PasswordHash, req.Password) {
		if _, incErr := s.repo.IncrementFailedLogin(ctx, u.ID); incErr == nil {
			if locked, _ := s.repo.LockIfThreshold(ctx, u.ID, s.MaxFailed, s.LockMinutes); locked {
				s.logger.Infow("account locked", "user", u.ID, "minutes", s.LockMinutes)
			}
		}
		return nil, ErrBadCredentials
	}

	if err := s.repo.ResetLoginSuccess(ctx, u.ID); err != nil {
		return nil, err
	}
	tok, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &entity.LoginView{Token: tok, Name: u.Name, Email: u.Email}, nil
}

// VerifyEmail consumes a verification token.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrUnknownToken
	}
	u, err := s.repo.GetByVerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownToken
		}
		return err
	}
	return s.repo.MarkVerified(ctx, u.ID)
}
