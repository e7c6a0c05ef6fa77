package user

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contact-go/internal/user/entity"
)

type fakeRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeRepo() *fakeRepo { return &fakeRepo{users: map[string]*entity.User{}} }

func (f *fakeRepo) Create(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.Email] = &cp
	return nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) byID(id string) *entity.User {
	for _, u := range f.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *fakeRepo) GetByVerifyToken(_ context.Context, token string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.VerifyToken != nil && *u.VerifyToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRepo) MarkVerified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(id)
	u.IsVerified = true
	u.VerifyToken = nil
	return nil
}

func (f *fakeRepo) IncrementFailedLogin(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(id)
	u.LoginFailedAttempts++
	return u.LoginFailedAttempts, nil
}

func (f *fakeRepo) LockIfThreshold(_ context.Context, id string, threshold, lockMinutes int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(id)
	if u.LoginFailedAttempts < threshold {
		return false, nil
	}
	until := time.Now().Add(time.Duration(lockMinutes) * time.Minute)
	u.LockedUntil = &until
	u.LoginFailedAttempts = 0
	return true, nil
}

func (f *fakeRepo) ResetLoginSuccess(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(id)
	u.LoginFailedAttempts = 0
	u.LockedUntil = nil
	return nil
}

type sentMail struct{ to, subject, body string }

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.sent = append(m.sent, sentMail{to, subject, body})
	return m.err
}

func newTestService(repo Repository, mail *fakeMailer) *UserService {
	return NewUserService(nil, repo, Options{
		Hasher:  BcryptHasher{Cost: 4},
		Tokens:  auth.NewTokenManager("secret", "contactbook", time.Hour),
		Mail:    mail,
		BaseURL: "http://localhost:9090/",
		Logger:  zap.NewNop().Sugar(),
	})
}

func TestSignup_SendsVerificationLink(t *testing.T) {
	repo := newFakeRepo()
	mail := &fakeMailer{}
	svc := newTestService(repo, mail)

	u, err := svc.Signup(context.Background(), SignupRequest{Name: "Ann Lee", Email: " Ann@Example.com ", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.NotEqual(t, "hunter22", u.PasswordHash)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "ann@example.com", mail.sent[0].to)
	assert.Contains(t, mail.sent[0].body, "http://localhost:9090/mail-verification?token="+*u.VerifyToken)

	_, err = svc.Signup(context.Background(), SignupRequest{Name: "Ann Lee", Email: "ann@example.com", Password: "other1"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestSignup_MailFailureIsNotFatal(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeMailer{err: errors.New("smtp down")})
	_, err := svc.Signup(context.Background(), SignupRequest{Name: "Ann Lee", Email: "ann@example.com", Password: "hunter22"})
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeMailer{})
	u, err := svc.Signup(context.Background(), SignupRequest{Name: "Ann Lee", Email: "ann@example.com", Password: "hunter22"})
	require.NoError(t, err)

	view, err := svc.Login(context.Background(), LoginRequest{Email: "ann@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", view.Name)
	claims, err := svc.tokens.Verify(view.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.ID)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeMailer{})
	svc.MaxFailed = 3
	_, err := svc.Signup(context.Background(), SignupRequest{Name: "Ann Lee", Email: "ann@example.com", Password: "hunter22"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Login(context.Background(), LoginRequest{Email: "ann@example.com", Password: "wrong"})
		require.ErrorIs(t, err, ErrBadCredentials)
	}
	_, err = svc.Login(context.Background(), LoginRequest{Email: "ann@example.com", Password: "hunter22"})
	require.ErrorIs(t, err, ErrLocked)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.Login(context.Background(), LoginRequest{Email: "ann@example.com", Password: "hunter22"})
	require.NoError(t, err)
}

func TestVerifyEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeMailer{})
	u, err := svc.Signup(context.Background(), SignupRequest{Name: "Ann Lee", Email: "ann@example.com", Password: "hunter22"})
	require.NoError(t, err)
	token := *u.VerifyToken

	require.NoError(t, svc.VerifyEmail(context.Background(), token))
	stored, _ := repo.GetByEmail(context.Background(), "ann@example.com")
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.VerifyToken)

	assert.ErrorIs(t, svc.VerifyEmail(context.Background(), token), ErrUnknownToken)
	assert.ErrorIs(t, svc.VerifyEmail(context.Background(), ""), ErrUnknownToken)
}

func TestHandler(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeMailer{})
	h := NewHandler(svc, zap.NewNop().Sugar())

	post := func(fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		fn(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		return rr
	}

	assert.Equal(t, http.StatusCreated, post(h.Signup, `{"name":"Ann Lee","email":"ann@example.com","password":"hunter22"}`).Code)
	assert.Equal(t, http.StatusConflict, post(h.Signup, `{"name":"Ann Lee","email":"ann@example.com","password":"hunter22"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h.Signup, `{"name":"A","email":"x","password":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h.Login, `not json`).Code)
	assert.Equal(t, http.StatusForbidden, post(h.Login, `{"email":"ann@example.com","password":"nope"}`).Code)

	rr := post(h.Login, `{"email":"ann@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"jwtToken"`)

	rr = httptest.NewRecorder()
	h.VerifyEmail(rr, httptest.NewRequest(http.MethodGet, "/mail-verification?token=missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid token")

	stored, _ := repo.GetByEmail(context.Background(), "ann@example.com")
	rr = httptest.NewRecorder()
	h.VerifyEmail(rr, httptest.NewRequest(http.MethodGet, "/mail-verification?token="+*stored.VerifyToken, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Mail verified successfully!")
}
