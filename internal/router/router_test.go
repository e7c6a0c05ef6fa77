package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contact-go/internal/bulk"
	"github.com/ovaphlow/pitchfork/service-contact-go/internal/contact"
	"github.com/ovaphlow/pitchfork/service-contact-go/internal/user"
)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func newTestRouter(t *testing.T, db Pinger, rate string) http.Handler {
	t.Helper()
	lg := zap.NewNop().Sugar()
	h, err := RegisterRoutes(Deps{
		Logger:         lg,
		DB:             db,
		Tokens:         auth.NewTokenManager("secret", "contactbook", time.Hour),
		Users:          user.NewHandler(nil, lg),
		Contacts:       contact.NewHandler(nil, lg),
		Bulk:           bulk.NewHandler(nil, lg, 0),
		AllowedOrigins: []string{"https://app.example.com"},
		RateLimit:      rate,
	})
	require.NoError(t, err)
	return h
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPingAndHealth(t *testing.T) {
	h := newTestRouter(t, pinger{}, "")

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	down := newTestRouter(t, pinger{err: errors.New("connection refused")}, "")
	rr = serve(down, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestRouter(t, pinger{}, "")
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/contacts"},
		{http.MethodPost, "/contacts"},
		{http.MethodPost, "/contacts/batch"},
		{http.MethodPut, "/contacts/abc"},
		{http.MethodPut, "/contacts"},
		{http.MethodDelete, "/contacts/abc"},
		{http.MethodPost, "/bulkcontacts/upload"},
		{http.MethodGet, "/bulkcontacts/download"},
	} {
		rr := serve(h, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.method+" "+tc.path)
	}
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	h := newTestRouter(t, pinger{}, "")
	serve(h, httptest.NewRequest(http.MethodGet, "/ping", nil))

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `contactbook_http_requests_total{method="GET",path="GET /ping",status="200"}`)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t, pinger{}, "")
	req := httptest.NewRequest(http.MethodOptions, "/contacts", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	rr := serve(h, req)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	h := newTestRouter(t, pinger{}, "2-M")
	login := func() int {
		return serve(h, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))).Code
	}
	assert.Equal(t, http.StatusBadRequest, login())
	assert.Equal(t, http.StatusBadRequest, login())
	assert.Equal(t, http.StatusTooManyRequests, login())

	// other routes are not limited
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)
}

func TestRegisterRoutes_RejectsBadRate(t *testing.T) {
	_, err := RegisterRoutes(Deps{Logger: zap.NewNop().Sugar(), RateLimit: "lots"})
	assert.Error(t, err)
}
